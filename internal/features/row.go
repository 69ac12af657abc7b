package features

import (
	"errors"
	"fmt"
)

// ExtractFunc computes a descriptor vector from a cleaned sequence.
type ExtractFunc func(arr []float64) Vector

// ChannelError reports a channel whose descriptors could not be computed.
type ChannelError struct {
	Channel Channel
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// ChannelResult is the outcome for one channel of a row. When Err is set the
// Vector is fully undefined.
type ChannelResult struct {
	Channel Channel
	Samples int
	Vector  Vector
	Err     error
}

// Row holds the per-channel results of one raw input row.
type Row struct {
	Channels [NumChannels]ChannelResult
}

// Values flattens the row into NumChannels*NumFeatures values in Header order.
func (r Row) Values() []Value {
	out := make([]Value, 0, NumChannels*NumFeatures)
	for _, cr := range r.Channels {
		out = append(out, cr.Vector[:]...)
	}
	return out
}

// Failures returns the channel errors recorded for the row, in channel order.
func (r Row) Failures() []*ChannelError {
	var errs []*ChannelError
	for _, cr := range r.Channels {
		if cr.Err == nil {
			continue
		}
		var ce *ChannelError
		if errors.As(cr.Err, &ce) {
			errs = append(errs, ce)
		} else {
			errs = append(errs, &ChannelError{Channel: cr.Channel, Err: cr.Err})
		}
	}
	return errs
}

// ExtractRow de-interleaves a raw row and computes every channel's vector.
func ExtractRow(row []string) Row {
	return ExtractRowWith(row, Extract)
}

// ExtractRowWith is ExtractRow with a caller-supplied extractor.
func ExtractRowWith(row []string, fn ExtractFunc) Row {
	if fn == nil {
		fn = Extract
	}
	var out Row
	for c, tokens := range Deinterleave(row) {
		out.Channels[c] = ExtractChannel(Channel(c), tokens, fn)
	}
	return out
}

// ExtractChannel sanitizes one channel's tokens and computes its vector. A
// panic inside fn is contained to this channel: the vector is left undefined
// and Err carries a *ChannelError.
func ExtractChannel(c Channel, tokens []string, fn ExtractFunc) (res ChannelResult) {
	res.Channel = c
	arr := Sanitize(tokens)
	res.Samples = len(arr)

	defer func() {
		if r := recover(); r != nil {
			res.Vector = UndefinedVector()
			res.Err = &ChannelError{Channel: c, Err: fmt.Errorf("feature computation failed: %v", r)}
		}
	}()
	res.Vector = fn(arr)
	return res
}
