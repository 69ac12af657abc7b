package features

import (
	"math"
	"strconv"
	"strings"
)

// Sanitize parses tokens into a cleaned sequence. Tokens that are not decimal
// numbers, or that parse to NaN or ±Inf, are dropped; survivors keep their
// relative order and are rounded to two decimal places.
func Sanitize(tokens []string) []float64 {
	out := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, ok := parseToken(tok)
		if !ok {
			continue
		}
		out = append(out, round2(v))
	}
	return out
}

func parseToken(tok string) (float64, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" || isHexLiteral(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// isHexLiteral rejects hexadecimal float syntax, which ParseFloat accepts but
// no sensor export produces.
func isHexLiteral(tok string) bool {
	tok = strings.TrimLeft(tok, "+-")
	return len(tok) > 1 && tok[0] == '0' && (tok[1] == 'x' || tok[1] == 'X')
}

// round2 rounds half to even on the value scaled by 100. Values too large to
// scale are already integral at that precision and are returned unchanged.
func round2(v float64) float64 {
	scaled := v * 100
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.RoundToEven(scaled) / 100
}
