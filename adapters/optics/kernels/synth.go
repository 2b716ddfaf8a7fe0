package kernels

import (
	"fmt"
	"math"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

// sech2FWHMFactor converts a sech² intensity FWHM to the T0 time constant.
var sech2FWHMFactor = 2 * math.Acosh(math.Sqrt2)

// Synthesized is an analytic seed pulse together with the widths and powers
// that were resolved to build it.
type Synthesized struct {
	State           pulse.PulseState
	IntensityFWHMFs float64
	PeakPowerW      float64
	PulseEnergyJ    float64
}

// Synthesize builds a zero-phase analytic pulse on a grid centered at zero.
func Synthesize(spec config.PulseSpec) (Synthesized, error) {
	if spec.NSamples < 2 {
		return Synthesized{}, core.NewValidationError("PulseSpec.n_samples", fmt.Sprintf("must be >= 2, got %d", spec.NSamples))
	}
	if !(spec.TimeWindowFs > 0) {
		return Synthesized{}, core.NewValidationError("PulseSpec.time_window_fs", fmt.Sprintf("must be > 0, got %g", spec.TimeWindowFs))
	}

	width, err := spec.ResolveIntensityFWHM()
	if err != nil {
		return Synthesized{}, err
	}
	if !(width > 0) {
		return Synthesized{}, core.NewValidationError("PulseSpec.width_fs", fmt.Sprintf("resolved intensity FWHM must be > 0, got %g", width))
	}
	peak, err := spec.ResolvePeakPowerW(width)
	if err != nil {
		return Synthesized{}, err
	}

	grid, err := pulse.NewGrid(spec.TimeWindowFs, spec.NSamples, spec.CenterWavelengthNm)
	if err != nil {
		return Synthesized{}, err
	}
	intensity, err := IntensityProfile(spec.Shape, grid.T, width, peak)
	if err != nil {
		return Synthesized{}, err
	}

	field := make([]complex128, len(intensity))
	for i, v := range intensity {
		field[i] = complex(math.Sqrt(v), 0)
	}
	state := pulse.NewPulseState(grid, field)
	return Synthesized{
		State:           state,
		IntensityFWHMFs: width,
		PeakPowerW:      peak,
		PulseEnergyJ:    state.EnergyJ(),
	}, nil
}

// IntensityProfile evaluates the shape's intensity on t for the given FWHM and peak.
func IntensityProfile(shape config.Shape, t []float64, fwhmFs, peak float64) ([]float64, error) {
	out := make([]float64, len(t))
	switch shape {
	case config.ShapeGaussian:
		for i, ti := range t {
			x := ti / fwhmFs
			out[i] = peak * math.Exp(-4*math.Ln2*x*x)
		}
	case config.ShapeSech2:
		t0 := fwhmFs / sech2FWHMFactor
		for i, ti := range t {
			c := math.Cosh(ti / t0)
			out[i] = peak / (c * c)
		}
	default:
		return nil, fmt.Errorf("%w: %q. Expected one of: gaussian, sech2", core.ErrUnknownShape, shape)
	}
	return out, nil
}
