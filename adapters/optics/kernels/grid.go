package kernels

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"cpasim/domain/core"
)

// NearestPowerOfTwo returns 1 << round(log2(n)).
func NearestPowerOfTwo(n int) (int, error) {
	if n < 1 {
		return 0, core.NewValidationError("grid size", fmt.Sprintf("must be >= 1, got %d", n))
	}
	return 1 << int(math.Round(math.Log2(float64(n)))), nil
}

// ResampleComplex linearly interpolates the real and imaginary parts of signal
// from oldT onto n uniform samples spanning the same interval.
func ResampleComplex(signal []complex128, oldT []float64, n int) ([]complex128, []float64, error) {
	if len(signal) != len(oldT) || len(oldT) < 2 {
		return nil, nil, core.NewValidationError("resample", fmt.Sprintf("need matching axes with >= 2 samples, got %d and %d", len(signal), len(oldT)))
	}
	if n < 2 {
		return nil, nil, core.NewValidationError("resample", fmt.Sprintf("target size must be >= 2, got %d", n))
	}
	re := make([]float64, len(signal))
	im := make([]float64, len(signal))
	for i, v := range signal {
		re[i], im[i] = real(v), imag(v)
	}

	var pre, pim interp.PiecewiseLinear
	if err := pre.Fit(oldT, re); err != nil {
		return nil, nil, fmt.Errorf("resample real part: %w", err)
	}
	if err := pim.Fit(oldT, im); err != nil {
		return nil, nil, fmt.Errorf("resample imaginary part: %w", err)
	}

	newT := floats.Span(make([]float64, n), oldT[0], oldT[len(oldT)-1])
	out := make([]complex128, n)
	for i, t := range newT {
		out[i] = complex(pre.Predict(t), pim.Predict(t))
	}
	return out, newT, nil
}
