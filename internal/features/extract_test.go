package features_test

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sensor.features/internal/features"
	"github.com/banshee-data/sensor.features/internal/testutil"
)

func TestExtract_Empty(t *testing.T) {
	v := features.Extract(nil)
	require.Len(t, v, features.NumFeatures)
	for f := features.Feature(0); f < features.NumFeatures; f++ {
		testutil.AssertUndefined(t, f.String(), v[f])
	}
	assert.Equal(t, 0, v.DefinedCount())
}

func TestExtract_OneToFive(t *testing.T) {
	v := features.Extract([]float64{1, 2, 3, 4, 5})

	testutil.AssertFeature(t, v, features.Mean, 3)
	testutil.AssertFeature(t, v, features.Min, 1)
	testutil.AssertFeature(t, v, features.Max, 5)
	testutil.AssertFeature(t, v, features.Median, 3)
	testutil.AssertFeature(t, v, features.StdDev, math.Sqrt2)
	testutil.AssertFeature(t, v, features.CoeffVar, math.Sqrt2/3)
	testutil.AssertFeature(t, v, features.PeakToPeak, 4)
	testutil.AssertFeature(t, v, features.Percentile25, 2)
	testutil.AssertFeature(t, v, features.Percentile75, 4)
	testutil.AssertFeature(t, v, features.InterquartileRange, 2)
	testutil.AssertFeature(t, v, features.Skewness, 0)
	testutil.AssertFeature(t, v, features.Kurtosis, 1.7)
	testutil.AssertFeature(t, v, features.SignalPower, 55)
	testutil.AssertFeature(t, v, features.RootMeanSquare, math.Sqrt(11))
	testutil.AssertFeature(t, v, features.PeakIntensity, 0)
	testutil.AssertFeature(t, v, features.Autocorrelation, 0)
	testutil.AssertFeature(t, v, features.TrapezoidalIntegration, 12)
	testutil.AssertFeature(t, v, features.PitchAngle, math.Atan2(1, math.Sqrt(13)))
	testutil.AssertFeature(t, v, features.RollAngle, math.Atan2(2, math.Sqrt(10)))
	testutil.AssertFeature(t, v, features.SignalMagnitudeArea, 3)
	testutil.AssertFeature(t, v, features.SignalVectorMagnitude, math.Sqrt(55))
	testutil.AssertFeature(t, v, features.MedianCrossings, 0)
	testutil.AssertDefined(t, "psd", v[features.PSD], naivePSD([]float64{1, 2, 3, 4, 5}), 1e-9)
	assert.Equal(t, features.NumFeatures, v.DefinedCount())
}

func TestExtract_ZeroVariance(t *testing.T) {
	v := features.Extract([]float64{5, 5, 5, 5})

	testutil.AssertFeature(t, v, features.StdDev, 0)
	// std/mean is defined whenever the mean is non-zero, and is zero here.
	testutil.AssertFeature(t, v, features.CoeffVar, 0)
	testutil.AssertUndefined(t, "skewness", v[features.Skewness])
	testutil.AssertUndefined(t, "kurtosis", v[features.Kurtosis])
	testutil.AssertFeature(t, v, features.MedianCrossings, 0)
	testutil.AssertFeature(t, v, features.PeakIntensity, 0)
	testutil.AssertFeature(t, v, features.PSD, 0)
}

func TestExtract_ConstantInexactValue(t *testing.T) {
	// 0.1 has no exact binary form; a constant run of it still has zero
	// variance, so the shape moments stay undefined.
	v := features.Extract([]float64{0.1, 0.1, 0.1})

	if got := v[features.StdDev]; !got.OK || got.V != 0 {
		t.Errorf("std_dev = %v, want exactly 0", got)
	}
	testutil.AssertUndefined(t, "skewness", v[features.Skewness])
	testutil.AssertUndefined(t, "kurtosis", v[features.Kurtosis])
	testutil.AssertFeature(t, v, features.CoeffVar, 0)
}

func TestExtract_ZeroMean(t *testing.T) {
	v := features.Extract([]float64{-1, 1, -1, 1})

	testutil.AssertFeature(t, v, features.Mean, 0)
	testutil.AssertUndefined(t, "coeff_var", v[features.CoeffVar])
	testutil.AssertFeature(t, v, features.StdDev, 1)
	testutil.AssertFeature(t, v, features.Skewness, 0)
	testutil.AssertFeature(t, v, features.Kurtosis, 1)
	testutil.AssertFeature(t, v, features.MedianCrossings, 3)
	testutil.AssertFeature(t, v, features.Autocorrelation, -1)
}

func TestExtract_ShortSequences(t *testing.T) {
	t.Run("single value", func(t *testing.T) {
		v := features.Extract([]float64{2.5})
		testutil.AssertFeature(t, v, features.Mean, 2.5)
		testutil.AssertFeature(t, v, features.Median, 2.5)
		testutil.AssertFeature(t, v, features.Percentile25, 2.5)
		testutil.AssertFeature(t, v, features.Percentile75, 2.5)
		testutil.AssertUndefined(t, "skewness", v[features.Skewness])
		testutil.AssertUndefined(t, "autocorrelation", v[features.Autocorrelation])
		testutil.AssertUndefined(t, "pitch_angle", v[features.PitchAngle])
		testutil.AssertUndefined(t, "roll_angle", v[features.RollAngle])
		testutil.AssertFeature(t, v, features.TrapezoidalIntegration, 0)
		testutil.AssertFeature(t, v, features.PSD, 0)
	})

	t.Run("two values", func(t *testing.T) {
		v := features.Extract([]float64{1, 2})
		testutil.AssertFeature(t, v, features.Median, 1.5)
		testutil.AssertFeature(t, v, features.Percentile25, 1.25)
		testutil.AssertFeature(t, v, features.Percentile75, 1.75)
		testutil.AssertFeature(t, v, features.Autocorrelation, -0.25)
		testutil.AssertFeature(t, v, features.TrapezoidalIntegration, 1.5)
		testutil.AssertFeature(t, v, features.MedianCrossings, 1)
		testutil.AssertUndefined(t, "pitch_angle", v[features.PitchAngle])
		// DFT [3, -1] with bin frequencies [0, -0.5].
		testutil.AssertFeature(t, v, features.PSD, 0.5)
	})

	t.Run("three values", func(t *testing.T) {
		v := features.Extract([]float64{1, 2, 3})
		testutil.AssertFeature(t, v, features.Autocorrelation, -1.0/3)
		testutil.AssertFeature(t, v, features.PitchAngle, math.Atan2(1, math.Sqrt(13)))
		testutil.AssertFeature(t, v, features.RollAngle, math.Atan2(2, math.Sqrt(10)))
	})
}

func TestExtract_EvenCountPercentiles(t *testing.T) {
	v := features.Extract([]float64{4, 1, 3, 2})

	testutil.AssertFeature(t, v, features.Median, 2.5)
	testutil.AssertFeature(t, v, features.Percentile25, 1.75)
	testutil.AssertFeature(t, v, features.Percentile75, 3.25)
	testutil.AssertFeature(t, v, features.InterquartileRange, 1.5)
}

func TestExtract_PeaksAndCrossings(t *testing.T) {
	v := features.Extract([]float64{1, 3, 2, 4, 1})
	testutil.AssertFeature(t, v, features.PeakIntensity, 2)

	// Plateaus are not strict maxima.
	v = features.Extract([]float64{1, 3, 3, 1})
	testutil.AssertFeature(t, v, features.PeakIntensity, 0)

	// Touching the median does not count as a crossing.
	v = features.Extract([]float64{1, 2, 3})
	testutil.AssertFeature(t, v, features.MedianCrossings, 0)

	v = features.Extract([]float64{1, 5, 1, 5})
	testutil.AssertFeature(t, v, features.MedianCrossings, 3)
}

func TestExtract_ImpulsePSD(t *testing.T) {
	// A unit impulse has a flat spectrum, so psd is the sum of |f_k|.
	v := features.Extract([]float64{1, 0, 0, 0})
	testutil.AssertFeature(t, v, features.PSD, 1)
}

func TestExtract_PSDMatchesNaiveDFT(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{2, 3, 7, 8, 16, 33} {
		arr := make([]float64, n)
		for i := range arr {
			arr[i] = math.Round(rng.NormFloat64()*1000) / 100
		}
		v := features.Extract(arr)
		want := naivePSD(arr)
		testutil.AssertDefined(t, "psd", v[features.PSD], want, 1e-7*math.Max(1, want))
	}
}

func TestExtract_DoesNotReorderInput(t *testing.T) {
	arr := []float64{3, 1, 2}
	features.Extract(arr)
	assert.Equal(t, []float64{3, 1, 2}, arr)
}

func TestExtract_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(40)
		arr := make([]float64, n)
		for i := range arr {
			arr[i] = math.Round((rng.Float64()*20-10)*100) / 100
		}
		v := features.Extract(arr)

		minimum, maximum := v[features.Min].V, v[features.Max].V
		median := v[features.Median].V
		p25, p75 := v[features.Percentile25].V, v[features.Percentile75].V

		assert.LessOrEqual(t, minimum, median, "min <= median for %v", arr)
		assert.LessOrEqual(t, median, maximum, "median <= max for %v", arr)
		assert.LessOrEqual(t, p25, median, "p25 <= median for %v", arr)
		assert.LessOrEqual(t, median, p75, "median <= p75 for %v", arr)
		assert.Equal(t, maximum-minimum, v[features.PeakToPeak].V)
		assert.Equal(t, p75-p25, v[features.InterquartileRange].V)

		assert.Equal(t, v[features.Mean].V != 0, v[features.CoeffVar].OK, "coeff_var defined iff mean != 0")
		assert.Equal(t, v[features.StdDev].V != 0, v[features.Skewness].OK, "skewness defined iff std != 0")
		assert.Equal(t, v[features.StdDev].V != 0, v[features.Kurtosis].OK, "kurtosis defined iff std != 0")
		assert.Equal(t, n >= 3, v[features.PitchAngle].OK, "pitch defined iff n >= 3")
		assert.Equal(t, n >= 3, v[features.RollAngle].OK, "roll defined iff n >= 3")
		assert.Equal(t, n > 1, v[features.Autocorrelation].OK, "autocorrelation defined iff n > 1")
	}
}

func TestBinFrequency(t *testing.T) {
	tests := []struct {
		n    int
		want []float64
	}{
		{1, []float64{0}},
		{4, []float64{0, 0.25, -0.5, -0.25}},
		{5, []float64{0, 0.2, 0.4, -0.4, -0.2}},
	}
	for _, tc := range tests {
		got := make([]float64, tc.n)
		for k := range got {
			got[k] = features.BinFrequency(k, tc.n)
		}
		assert.InDeltaSlice(t, tc.want, got, 1e-12, "n=%d", tc.n)
	}
}

// naivePSD evaluates the DFT directly as a reference for the FFT path.
func naivePSD(arr []float64) float64 {
	n := len(arr)
	var psd float64
	for k := 0; k < n; k++ {
		var sum complex128
		for j, x := range arr {
			angle := -2 * math.Pi * float64(k*j) / float64(n)
			sum += complex(x, 0) * cmplx.Exp(complex(0, angle))
		}
		mag := cmplx.Abs(sum)
		psd += mag * mag * math.Abs(features.BinFrequency(k, n))
	}
	return psd
}
