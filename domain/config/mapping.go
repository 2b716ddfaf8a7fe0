package config

import (
	"fmt"

	"cpasim/domain/core"
)

// Vendor pulse-width measurement types.
const (
	MeasuredIntensityFWHM = "intensity_fwhm"
	MeasuredAutocorrFWHM  = "autocorrelation_fwhm"
)

// PulseWidthMapping records how a vendor width maps to the simulation intensity FWHM.
type PulseWidthMapping struct {
	SourceMeasurementType string   `json:"source_measurement_type"`
	SourceWidthPs         float64  `json:"source_width_ps"`
	AssumedPulseShape     Shape    `json:"assumed_pulse_shape"`
	DeconvolutionFactor   float64  `json:"deconvolution_factor"`
	SimulationWidthFs     float64  `json:"simulation_width_fs"`
	UncertaintyRel        float64  `json:"uncertainty_rel"`
	LowerBoundFs          float64  `json:"lower_bound_fs"`
	UpperBoundFs          float64  `json:"upper_bound_fs"`
	Assumptions           []string `json:"assumptions"`
}

// MapVendorPulseWidth converts a datasheet width in ps into an intensity FWHM
// in fs with symmetric relative bounds.
func MapVendorPulseWidth(widthPs float64, measurement string, shape Shape, uncertaintyRel float64, assumptions ...string) (PulseWidthMapping, error) {
	if !(widthPs > 0) {
		return PulseWidthMapping{}, core.NewValidationError("source_width_ps", "must be > 0")
	}
	if uncertaintyRel < 0 {
		return PulseWidthMapping{}, core.NewValidationError("uncertainty_rel", "must be >= 0")
	}

	factor := 1.0
	switch measurement {
	case MeasuredIntensityFWHM:
		if _, err := TimeBandwidthProduct(shape); err != nil {
			return PulseWidthMapping{}, err
		}
	case MeasuredAutocorrFWHM:
		f, err := AutocorrDeconvolution(shape)
		if err != nil {
			return PulseWidthMapping{}, err
		}
		factor = f
	default:
		return PulseWidthMapping{}, core.NewValidationError("source_measurement_type", fmt.Sprintf("unknown type %q", measurement))
	}

	width := widthPs / factor * 1000
	return PulseWidthMapping{
		SourceMeasurementType: measurement,
		SourceWidthPs:         widthPs,
		AssumedPulseShape:     shape,
		DeconvolutionFactor:   factor,
		SimulationWidthFs:     width,
		UncertaintyRel:        uncertaintyRel,
		LowerBoundFs:          width * (1 - uncertaintyRel),
		UpperBoundFs:          width * (1 + uncertaintyRel),
		Assumptions: append(append([]string(nil), assumptions...),
			"Pulse width in simulation is intensity-domain FWHM.",
			"Autocorrelation pulse widths are deconvolved with pulse-shape-specific factors.",
			"Bounds are symmetric relative uncertainty around mapped simulation width.",
		),
	}, nil
}

// PulseSpec returns spec with its width set to the mapped intensity FWHM.
func (m PulseWidthMapping) PulseSpec(spec PulseSpec) PulseSpec {
	spec.Shape = m.AssumedPulseShape
	spec.WidthFs = Float(m.SimulationWidthFs)
	spec.AutocorrFwhmFs = nil
	return spec
}
