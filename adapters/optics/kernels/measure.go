package kernels

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Energy returns Σ intensity·dt.
func Energy(intensity []float64, dt float64) float64 {
	return floats.Sum(intensity) * dt
}

// IntensityFWHM returns the full width at half maximum of y over x, using
// linear interpolation at the half-maximum crossings nearest the peak.
// It returns 0 when either crossing is missing.
func IntensityFWHM(x, y []float64) float64 {
	if len(y) < 2 || len(x) != len(y) {
		return 0
	}
	peakIdx := floats.MaxIdx(y)
	peak := y[peakIdx]
	if peak <= 0 {
		return 0
	}
	half := peak / 2

	left := -1
	for i := peakIdx; i > 0; i-- {
		if y[i-1] < half && half <= y[i] {
			left = i
			break
		}
	}
	right := -1
	for i := peakIdx; i < len(y)-1; i++ {
		if y[i] >= half && half > y[i+1] {
			right = i
			break
		}
	}
	if left < 0 || right < 0 {
		return 0
	}

	tLeft := crossing(x[left-1], x[left], y[left-1], y[left], half)
	tRight := crossing(x[right], x[right+1], y[right], y[right+1], half)
	return tRight - tLeft
}

func crossing(x0, x1, y0, y1, target float64) float64 {
	if y1 == y0 {
		return x0
	}
	return x0 + (target-y0)*(x1-x0)/(y1-y0)
}

// Autocorrelation returns the full discrete autocorrelation of y (2n−1 lags,
// zero lag at index n−1), computed through a zero-padded FFT.
func Autocorrelation(y []float64) []float64 {
	n := len(y)
	if n == 0 {
		return nil
	}
	size := 1
	for size < 2*n-1 {
		size <<= 1
	}
	fft := fourier.NewFFT(size)
	padded := make([]float64, size)
	for i, v := range y {
		padded[i] = math.Max(v, 0)
	}
	coeffs := fft.Coefficients(nil, padded)
	for i, c := range coeffs {
		coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	circular := fft.Sequence(nil, coeffs)

	out := make([]float64, 2*n-1)
	scale := 1 / float64(size)
	for k := range out {
		lag := k - (n - 1)
		idx := lag
		if idx < 0 {
			idx += size
		}
		out[k] = circular[idx] * scale
	}
	return out
}

// AutocorrelationFWHM returns the FWHM of the intensity autocorrelation of y
// sampled on t, or 0 when y has no positive sample.
func AutocorrelationFWHM(t, y []float64) float64 {
	if len(y) < 2 || floats.Max(y) <= 0 {
		return 0
	}
	dt := MeanSpacing(t)
	ac := Autocorrelation(y)
	lags := make([]float64, len(ac))
	for k := range lags {
		lags[k] = float64(k-(len(y)-1)) * dt
	}
	return IntensityFWHM(lags, ac)
}

// MeanSpacing returns the mean difference between consecutive samples.
func MeanSpacing(t []float64) float64 {
	if len(t) < 2 {
		return 0
	}
	diffs := make([]float64, len(t)-1)
	for i := range diffs {
		diffs[i] = t[i+1] - t[i]
	}
	mean, err := stats.Mean(diffs)
	if err != nil {
		return 0
	}
	return mean
}

// RMSWidth returns sqrt(Σ wᵢ(xᵢ−μ)² / Σ wᵢ), with μ the weighted mean.
// It returns 0 when the total weight is not positive.
func RMSWidth(x, weights []float64) float64 {
	if len(x) == 0 || len(x) != len(weights) || floats.Sum(weights) <= 0 {
		return 0
	}
	return math.Sqrt(math.Max(stat.Moment(2, x, weights), 0))
}

// RMSBandwidth returns the RMS spectral width about the spectral centroid in rad/fs.
func RMSBandwidth(w, spectrum []float64) float64 {
	return RMSWidth(w, spectrum)
}

// RMSTemporalWidth returns the RMS duration of an intensity trace in fs.
func RMSTemporalWidth(t, intensity []float64) float64 {
	return RMSWidth(t, intensity)
}

// CosineSimilarity compares two shapes, returning 0 on length mismatch or zero
// norm and clamping the result to [0, 1].
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	s := floats.Dot(a, b) / (na * nb)
	return math.Min(math.Max(s, 0), 1)
}

// AmplificationRatio returns out/in, or 0 when in is not positive.
func AmplificationRatio(energyOut, energyIn float64) float64 {
	if energyIn <= 0 {
		return 0
	}
	return energyOut / energyIn
}

// SpreadStats summarises a sampled trace for reports.
type SpreadStats struct {
	Mean   float64
	StdDev float64
	Max    float64
}

// Spread returns the mean, population standard deviation and maximum of values.
func Spread(values []float64) SpreadStats {
	mean, _ := stats.Mean(values)
	std, _ := stats.StandardDeviation(values)
	maxV, _ := stats.Max(values)
	return SpreadStats{Mean: mean, StdDev: std, Max: maxV}
}
