package pulse

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"cpasim/domain/core"
)

// Grid uniformity tolerances.
const (
	uniformRelTol = 1e-6
	uniformAbsTol = 1e-12
)

// PulseGrid holds the time axis (fs) and its FFT-shifted angular frequency axis (rad/fs).
type PulseGrid struct {
	T                  []float64 `json:"t"`
	W                  []float64 `json:"w"`
	Dt                 float64   `json:"dt"`
	Dw                 float64   `json:"dw"`
	CenterWavelengthNm float64   `json:"center_wavelength_nm"`
}

// NewGrid builds a grid of n samples spanning [-window/2, window/2].
func NewGrid(windowFs float64, n int, centerWavelengthNm float64) (PulseGrid, error) {
	if n < 2 {
		return PulseGrid{}, core.NewValidationError("n_samples", fmt.Sprintf("must be >= 2, got %d", n))
	}
	if !(windowFs > 0) {
		return PulseGrid{}, core.NewValidationError("time_window_fs", fmt.Sprintf("must be > 0, got %g", windowFs))
	}
	return SpanGrid(-0.5*windowFs, 0.5*windowFs, n, centerWavelengthNm), nil
}

// SpanGrid builds a uniform grid of n samples from t0 to t1 inclusive.
func SpanGrid(t0, t1 float64, n int, centerWavelengthNm float64) PulseGrid {
	t := floats.Span(make([]float64, n), t0, t1)
	dt := t[1] - t[0]
	w := FrequencyAxis(n, dt)
	return PulseGrid{
		T:                  t,
		W:                  w,
		Dt:                 dt,
		Dw:                 w[1] - w[0],
		CenterWavelengthNm: centerWavelengthNm,
	}
}

// FrequencyAxis returns the FFT-shifted angular frequency axis for n samples at spacing dt.
func FrequencyAxis(n int, dt float64) []float64 {
	w := make([]float64, n)
	scale := 2 * math.Pi / (float64(n) * dt)
	for i := range w {
		w[i] = float64(i-n/2) * scale
	}
	return w
}

// Len returns the number of samples.
func (g PulseGrid) Len() int {
	return len(g.T)
}

// ValidateUniform checks that the time axis is uniformly spaced.
func (g PulseGrid) ValidateUniform() error {
	if len(g.T) < 2 {
		return nil
	}
	d0 := g.T[1] - g.T[0]
	for i := 2; i < len(g.T); i++ {
		d := g.T[i] - g.T[i-1]
		if math.Abs(d-d0) > uniformAbsTol+uniformRelTol*math.Abs(d0) {
			return fmt.Errorf("%w: spacing %g at index %d differs from %g", core.ErrNonUniformGrid, d, i, d0)
		}
	}
	return nil
}

// Clone deep-copies the grid axes.
func (g PulseGrid) Clone() PulseGrid {
	out := g
	out.T = append([]float64(nil), g.T...)
	out.W = append([]float64(nil), g.W...)
	return out
}
