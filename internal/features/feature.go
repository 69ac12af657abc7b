package features

import (
	"fmt"
	"strings"
)

// Feature indexes one descriptor within a Vector. The order is part of the
// output format and must not change.
type Feature int

const (
	Mean Feature = iota
	Min
	Max
	Median
	StdDev
	CoeffVar
	PeakToPeak
	Percentile25
	Percentile75
	InterquartileRange
	Skewness
	Kurtosis
	SignalPower
	RootMeanSquare
	PeakIntensity
	Autocorrelation
	TrapezoidalIntegration
	PitchAngle
	RollAngle
	SignalMagnitudeArea
	SignalVectorMagnitude
	MedianCrossings
	PSD
)

// NumFeatures is the length of a Vector.
const NumFeatures = 23

var featureNames = [NumFeatures]string{
	"mean", "min", "max", "median", "std_dev",
	"coeff_var", "peak_to_peak", "percentile_25", "percentile_75",
	"interquartile_range", "skewness", "kurtosis", "signal_power",
	"root_mean_square", "peak_intensity", "autocorrelation",
	"trapezoidal_integration", "pitch_angle", "roll_angle",
	"signal_magnitude_area", "signal_vector_magnitude", "median_crossings",
	"psd",
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// IsCount reports whether the feature is an integer count rather than a
// real-valued measurement.
func (f Feature) IsCount() bool {
	return f == PeakIntensity || f == MedianCrossings
}

// ParseFeature looks a feature up by its column suffix, e.g. "root_mean_square".
func ParseFeature(name string) (Feature, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i, n := range featureNames {
		if n == name {
			return Feature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feature %q", name)
}

// ColumnName returns the output column name for a channel/feature pair.
func ColumnName(c Channel, f Feature) string {
	return c.String() + "_" + f.String()
}

// Header returns the NumChannels*NumFeatures output column names in channel
// then feature order.
func Header() []string {
	header := make([]string, 0, NumChannels*NumFeatures)
	for _, c := range Channels {
		for f := Feature(0); f < NumFeatures; f++ {
			header = append(header, ColumnName(c, f))
		}
	}
	return header
}

// Value is a single feature result. OK is false when the feature is undefined
// for the input, in which case V carries no meaning.
type Value struct {
	V  float64
	OK bool
}

// Undefined marks a feature that cannot be computed for its input.
var Undefined = Value{}

// Defined wraps a computed feature value.
func Defined(v float64) Value {
	return Value{V: v, OK: true}
}

func (v Value) String() string {
	if !v.OK {
		return "undefined"
	}
	return fmt.Sprintf("%g", v.V)
}

// Vector holds one channel's descriptors indexed by Feature.
type Vector [NumFeatures]Value

// UndefinedVector returns a vector with every feature undefined.
func UndefinedVector() Vector {
	return Vector{}
}

// Get returns the value of feature f.
func (v Vector) Get(f Feature) Value {
	return v[f]
}

// DefinedCount returns how many features carry a value.
func (v Vector) DefinedCount() int {
	n := 0
	for _, x := range v {
		if x.OK {
			n++
		}
	}
	return n
}
