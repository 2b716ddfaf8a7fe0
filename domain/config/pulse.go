package config

import (
	"fmt"
	"strings"

	"cpasim/domain/core"
)

// Shape is the temporal intensity profile family.
type Shape string

const (
	ShapeGaussian Shape = "gaussian"
	ShapeSech2    Shape = "sech2"
)

// Pulse defaults applied when a field is absent.
const (
	DefaultWidthFs            = 100.0
	DefaultCenterWavelengthNm = 1030.0
	DefaultRepRateMHz         = 1.0
	DefaultNSamples           = 256
	DefaultTimeWindowFs       = 2000.0
)

// PulseSpec describes the analytic seed pulse. Pointer fields are optional
// inputs; nil means "not explicitly set".
type PulseSpec struct {
	Shape              Shape    `json:"shape"`
	Amplitude          *float64 `json:"amplitude,omitempty"`
	PeakPowerW         *float64 `json:"peak_power_w,omitempty"`
	PulseEnergyJ       *float64 `json:"pulse_energy_j,omitempty"`
	AvgPowerW          *float64 `json:"avg_power_w,omitempty"`
	WidthFs            *float64 `json:"width_fs,omitempty"`
	AutocorrFwhmFs     *float64 `json:"intensity_autocorr_fwhm_fs,omitempty"`
	CenterWavelengthNm float64  `json:"center_wavelength_nm"`
	RepRateMHz         float64  `json:"rep_rate_mhz"`
	NSamples           int      `json:"n_samples"`
	TimeWindowFs       float64  `json:"time_window_fs"`
}

// DefaultPulseSpec returns a 100 fs Gaussian sampled with 256 points over 2 ps.
func DefaultPulseSpec() PulseSpec {
	return PulseSpec{
		Shape:              ShapeGaussian,
		CenterWavelengthNm: DefaultCenterWavelengthNm,
		RepRateMHz:         DefaultRepRateMHz,
		NSamples:           DefaultNSamples,
		TimeWindowFs:       DefaultTimeWindowFs,
	}
}

// NewPulseSpec validates spec and returns it.
func NewPulseSpec(spec PulseSpec) (PulseSpec, error) {
	if err := spec.Validate(); err != nil {
		return PulseSpec{}, err
	}
	return spec, nil
}

// Validate enforces the mutually exclusive input groups and scalar ranges.
func (p PulseSpec) Validate() error {
	var power []string
	if p.PeakPowerW != nil {
		power = append(power, "peak_power_w")
	}
	if p.PulseEnergyJ != nil {
		power = append(power, "pulse_energy_j")
	}
	if p.AvgPowerW != nil {
		power = append(power, "avg_power_w")
	}
	if p.Amplitude != nil && len(power) > 0 {
		return fmt.Errorf("%w: PulseSpec.amplitude cannot be set together with %s",
			core.ErrConflictingPower, strings.Join(power, ", "))
	}
	if len(power) > 1 {
		return fmt.Errorf("%w: Exactly one pulse normalization input may be explicitly set, got %s",
			core.ErrConflictingPower, strings.Join(power, ", "))
	}
	if p.WidthFs != nil && p.AutocorrFwhmFs != nil {
		return fmt.Errorf("%w: Only one pulse width input may be explicitly set: width_fs or intensity_autocorr_fwhm_fs",
			core.ErrConflictingWidth)
	}

	switch p.Shape {
	case ShapeGaussian, ShapeSech2:
	default:
		return fmt.Errorf("%w: %q, expected one of gaussian, sech2", core.ErrUnknownShape, p.Shape)
	}

	if !(p.RepRateMHz > 0) {
		return core.NewValidationError("PulseSpec.rep_rate_mhz", fmt.Sprintf("must be > 0, got %g", p.RepRateMHz))
	}
	if p.NSamples < 2 {
		return core.NewValidationError("PulseSpec.n_samples", fmt.Sprintf("must be >= 2, got %d", p.NSamples))
	}
	if !(p.TimeWindowFs > 0) {
		return core.NewValidationError("PulseSpec.time_window_fs", fmt.Sprintf("must be > 0, got %g", p.TimeWindowFs))
	}
	if !(p.CenterWavelengthNm > 0) {
		return core.NewValidationError("PulseSpec.center_wavelength_nm", fmt.Sprintf("must be > 0, got %g", p.CenterWavelengthNm))
	}
	for name, v := range map[string]*float64{
		"width_fs":                   p.WidthFs,
		"intensity_autocorr_fwhm_fs": p.AutocorrFwhmFs,
		"peak_power_w":               p.PeakPowerW,
		"pulse_energy_j":             p.PulseEnergyJ,
		"avg_power_w":                p.AvgPowerW,
	} {
		if v != nil && !(*v > 0) {
			return core.NewValidationError("PulseSpec."+name, fmt.Sprintf("must be > 0, got %g", *v))
		}
	}
	return nil
}

// Warnings returns deprecation notices for legacy inputs.
func (p PulseSpec) Warnings() []string {
	if p.Amplitude != nil {
		return []string{"PulseSpec.amplitude is deprecated; use peak_power_w, pulse_energy_j, or avg_power_w"}
	}
	return nil
}

// BeamSpec describes the transverse beam.
type BeamSpec struct {
	RadiusMm float64 `json:"radius_mm"`
	M2       float64 `json:"m2"`
}

// DefaultBeamSpec returns a 1 mm diffraction-limited beam.
func DefaultBeamSpec() BeamSpec {
	return BeamSpec{RadiusMm: 1, M2: 1}
}

// LaserSpec groups the pulse and beam description of the seed laser.
type LaserSpec struct {
	Pulse PulseSpec `json:"pulse"`
	Beam  BeamSpec  `json:"beam"`
}

// DefaultLaserSpec returns the default pulse and beam.
func DefaultLaserSpec() LaserSpec {
	return LaserSpec{Pulse: DefaultPulseSpec(), Beam: DefaultBeamSpec()}
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 {
	return &v
}
