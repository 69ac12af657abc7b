package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Extract computes the descriptor vector of a cleaned sequence. The input is
// not modified. An empty sequence yields a fully undefined vector.
func Extract(arr []float64) Vector {
	var v Vector
	n := len(arr)
	if n == 0 {
		return v
	}
	fn := float64(n)

	sorted := make([]float64, n)
	copy(sorted, arr)
	sort.Float64s(sorted)

	mean, variance := stat.PopMeanVariance(arr, nil)
	std := math.Sqrt(variance)
	minimum := floats.Min(arr)
	maximum := floats.Max(arr)
	median := sortedMedian(sorted)
	p25 := sortedPercentile(sorted, 25)
	p75 := sortedPercentile(sorted, 75)
	power := floats.Dot(arr, arr)

	v[Mean] = Defined(mean)
	v[Min] = Defined(minimum)
	v[Max] = Defined(maximum)
	v[Median] = Defined(median)
	v[StdDev] = Defined(std)
	if mean != 0 {
		v[CoeffVar] = Defined(std / mean)
	}
	v[PeakToPeak] = Defined(maximum - minimum)
	v[Percentile25] = Defined(p25)
	v[Percentile75] = Defined(p75)
	v[InterquartileRange] = Defined(p75 - p25)
	if std != 0 {
		v[Skewness] = Defined(stat.Moment(3, arr, nil) / (std * std * std))
		v[Kurtosis] = Defined(stat.Moment(4, arr, nil) / (std * std * std * std))
	}
	v[SignalPower] = Defined(power)
	v[RootMeanSquare] = Defined(math.Sqrt(power / fn))
	v[PeakIntensity] = Defined(float64(countPeaks(arr)))
	if n > 1 {
		v[Autocorrelation] = Defined(lagOneAutocorrelation(arr, mean))
	}
	v[TrapezoidalIntegration] = Defined(trapezoid(arr))
	if n >= 3 {
		v[PitchAngle] = Defined(math.Atan2(arr[0], math.Sqrt(arr[1]*arr[1]+arr[2]*arr[2])))
		v[RollAngle] = Defined(math.Atan2(arr[1], math.Sqrt(arr[0]*arr[0]+arr[2]*arr[2])))
	}
	v[SignalMagnitudeArea] = Defined(meanAbs(arr))
	v[SignalVectorMagnitude] = Defined(math.Sqrt(power))
	v[MedianCrossings] = Defined(float64(countCrossings(arr, median)))
	v[PSD] = Defined(spectralDensity(arr))
	return v
}

// sortedMedian returns the middle element, or the mean of the two middle
// elements for an even count.
func sortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sortedPercentile interpolates linearly between the closest ranks, with rank
// p/100*(n-1) on the sorted data.
func sortedPercentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := math.Floor(rank)
	i := int(lo)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return lerp(sorted[i], sorted[i+1], rank-lo)
}

// lerp interpolates from the nearer endpoint so that t=1 returns b exactly.
func lerp(a, b, t float64) float64 {
	d := b - a
	if t >= 0.5 {
		return b - d*(1-t)
	}
	return a + d*t
}

// countPeaks counts strict interior local maxima.
func countPeaks(arr []float64) int {
	peaks := 0
	for i := 1; i < len(arr)-1; i++ {
		if arr[i] > arr[i-1] && arr[i] > arr[i+1] {
			peaks++
		}
	}
	return peaks
}

// lagOneAutocorrelation correlates the centred sequence with itself shifted
// circularly by one sample.
func lagOneAutocorrelation(arr []float64, mean float64) float64 {
	n := len(arr)
	var sum float64
	for i := range arr {
		prev := arr[(i+n-1)%n]
		sum += (arr[i] - mean) * (prev - mean)
	}
	return sum / float64(n)
}

// trapezoid integrates with unit sample spacing.
func trapezoid(arr []float64) float64 {
	var area float64
	for i := 1; i < len(arr); i++ {
		area += (arr[i] + arr[i-1]) / 2
	}
	return area
}

func meanAbs(arr []float64) float64 {
	var sum float64
	for _, x := range arr {
		sum += math.Abs(x)
	}
	return sum / float64(len(arr))
}

// countCrossings counts adjacent pairs on strictly opposite sides of median.
func countCrossings(arr []float64, median float64) int {
	crossings := 0
	for i := 0; i+1 < len(arr); i++ {
		if (arr[i]-median)*(arr[i+1]-median) < 0 {
			crossings++
		}
	}
	return crossings
}

// spectralDensity weights the power of every DFT bin by the magnitude of the
// bin's relative frequency.
func spectralDensity(arr []float64) float64 {
	n := len(arr)
	if n < 2 {
		// The only bin is DC, whose frequency is zero.
		return 0
	}
	seq := make([]complex128, n)
	for i, x := range arr {
		seq[i] = complex(x, 0)
	}
	coeffs := fourier.NewCmplxFFT(n).Coefficients(nil, seq)

	var psd float64
	for k, c := range coeffs {
		re, im := real(c), imag(c)
		psd += (re*re + im*im) * math.Abs(BinFrequency(k, n))
	}
	return psd
}

// BinFrequency returns the relative frequency, in cycles per sample, of DFT
// bin k for a length-n sequence. Bins at or past the midpoint map to negative
// frequencies, so the result lies in [-0.5, 0.5).
func BinFrequency(k, n int) float64 {
	if k < (n+1)/2 {
		return float64(k) / float64(n)
	}
	return float64(k-n) / float64(n)
}
