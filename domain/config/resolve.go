package config

import (
	"fmt"
	"math"

	"cpasim/domain/core"
)

// Autocorrelation deconvolution factors: intensity FWHM = AC FWHM / factor.
// For sech² the 0.648 width multiplier is used, giving a divisor of 1/0.648 ≈ 1.5432.
const (
	GaussianAutocorrFactor  = math.Sqrt2
	Sech2AutocorrMultiplier = 0.648
	Sech2AutocorrFactor     = 1 / Sech2AutocorrMultiplier
	MHzToHz                 = 1e6
	FsToS                   = 1e-15
)

// AutocorrDeconvolution returns the shape-specific autocorrelation deconvolution factor.
func AutocorrDeconvolution(shape Shape) (float64, error) {
	switch shape {
	case ShapeGaussian:
		return GaussianAutocorrFactor, nil
	case ShapeSech2:
		return Sech2AutocorrFactor, nil
	}
	return 0, fmt.Errorf("%w: Unknown pulse shape for autocorrelation deconvolution: %q. Expected one of: gaussian, sech2",
		core.ErrUnknownShape, shape)
}

// RepRateHz converts a repetition rate from MHz to Hz.
func RepRateHz(repRateMHz float64) float64 {
	return repRateMHz * MHzToHz
}

// ResolveIntensityFWHM returns the intensity FWHM in fs: explicit width first,
// then the deconvolved autocorrelation width, then the default.
func (p PulseSpec) ResolveIntensityFWHM() (float64, error) {
	if p.WidthFs != nil {
		return *p.WidthFs, nil
	}
	if p.AutocorrFwhmFs != nil {
		factor, err := AutocorrDeconvolution(p.Shape)
		if err != nil {
			return 0, err
		}
		return *p.AutocorrFwhmFs / factor, nil
	}
	return DefaultWidthFs, nil
}

// ResolvePulseEnergyJ returns the explicit energy, or average power divided by
// the repetition rate. ok is false when neither is set.
func (p PulseSpec) ResolvePulseEnergyJ() (energy float64, ok bool) {
	if p.PulseEnergyJ != nil {
		return *p.PulseEnergyJ, true
	}
	if p.AvgPowerW != nil {
		return *p.AvgPowerW / RepRateHz(p.RepRateMHz), true
	}
	return 0, false
}

// PeakPowerFromEnergy converts pulse energy to peak power using the analytic
// integral of the intensity profile.
func PeakPowerFromEnergy(energyJ, widthFs float64, shape Shape) (float64, error) {
	widthS := widthFs * FsToS
	if !(widthS > 0) {
		return 0, core.NewValidationError("width_fs", "must be > 0 to compute peak power")
	}
	switch shape {
	case ShapeGaussian:
		return energyJ * 2 * math.Sqrt(math.Ln2) / (widthS * math.Sqrt(math.Pi)), nil
	case ShapeSech2:
		return energyJ * math.Acosh(math.Sqrt2) / widthS, nil
	}
	return 0, fmt.Errorf("%w: Unknown pulse shape for peak-power conversion: %q", core.ErrUnknownShape, shape)
}

// ResolvePeakPowerW applies the precedence peak power, energy, legacy amplitude², 1.0.
func (p PulseSpec) ResolvePeakPowerW(widthFs float64) (float64, error) {
	if p.PeakPowerW != nil {
		return *p.PeakPowerW, nil
	}
	if energy, ok := p.ResolvePulseEnergyJ(); ok {
		return PeakPowerFromEnergy(energy, widthFs, p.Shape)
	}
	if p.Amplitude != nil {
		return *p.Amplitude * *p.Amplitude, nil
	}
	return 1.0, nil
}
