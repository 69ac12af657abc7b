package featureio

import (
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/sensor.features/internal/features"
)

// UndefinedField is written for features that have no value.
const UndefinedField = ""

// FormatValue renders one feature value as an output field. Counts are written
// as integers; other values use FormatFloat.
func FormatValue(f features.Feature, v features.Value) string {
	if !v.OK {
		return UndefinedField
	}
	if f.IsCount() && !math.IsNaN(v.V) && !math.IsInf(v.V, 0) {
		return strconv.FormatInt(int64(v.V), 10)
	}
	return FormatFloat(v.V)
}

// FormatFloat writes the shortest decimal that round-trips to v. Magnitudes in
// [1e-4, 1e16) use positional notation with at least one fractional digit
// ("3.0", "0.25"); others use exponent notation ("1e-05", "1.5e+16").
// Non-finite values are written as "nan", "inf" and "-inf".
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	exp := decimalExponent(v)
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// decimalExponent returns the exponent of v's shortest scientific form, which
// avoids the off-by-one rounding of floor(log10(|v|)) near powers of ten.
func decimalExponent(v float64) int {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	i := strings.LastIndexByte(s, 'e')
	exp, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return 0
	}
	return exp
}

// FormatRow renders a row's values in header order.
func FormatRow(row features.Row) []string {
	out := make([]string, 0, features.NumChannels*features.NumFeatures)
	for _, cr := range row.Channels {
		for f, v := range cr.Vector {
			out = append(out, FormatValue(features.Feature(f), v))
		}
	}
	return out
}
