package config

import (
	"fmt"
	"math"
	"strings"

	"cpasim/domain/core"
)

// Time-bandwidth products of transform-limited pulses.
const (
	GaussianTBP = 0.441
	Sech2TBP    = 0.315
)

// SamplingPolicy sets the pre-flight resolution checks for a pulse spec.
type SamplingPolicy struct {
	MinPointsPerFWHM int
	NyquistMargin    float64
	Strict           bool
}

// DefaultSamplingPolicy asks for 8 points per FWHM and a 4x spectral Nyquist margin.
func DefaultSamplingPolicy() SamplingPolicy {
	return SamplingPolicy{MinPointsPerFWHM: 8, NyquistMargin: 4}
}

// TimeBandwidthProduct returns the transform-limited TBP for shape.
func TimeBandwidthProduct(shape Shape) (float64, error) {
	switch shape {
	case ShapeGaussian:
		return GaussianTBP, nil
	case ShapeSech2:
		return Sech2TBP, nil
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownShape, shape)
}

// ValidatePulseSampling checks that the time step resolves the intensity FWHM
// and that the grid Nyquist frequency covers the spectrum with margin.
// In strict mode any finding is an error; otherwise findings are returned as warnings.
func ValidatePulseSampling(spec PulseSpec, policy SamplingPolicy) ([]string, error) {
	if spec.NSamples < 2 || !(spec.TimeWindowFs > 0) {
		return nil, core.NewValidationError("PulseSpec", "n_samples >= 2 and time_window_fs > 0 are required for sampling checks")
	}
	if policy.MinPointsPerFWHM < 1 {
		return nil, core.NewValidationError("min_points_per_fwhm", "must be >= 1")
	}
	fwhm, err := spec.ResolveIntensityFWHM()
	if err != nil {
		return nil, err
	}
	tbp, err := TimeBandwidthProduct(spec.Shape)
	if err != nil {
		return nil, err
	}

	dt := spec.TimeWindowFs / float64(spec.NSamples-1)
	var findings []string

	maxDt := fwhm / float64(policy.MinPointsPerFWHM)
	if dt > maxDt {
		recommended, _ := RecommendedNSamples(fwhm, spec.TimeWindowFs, policy.MinPointsPerFWHM)
		findings = append(findings, fmt.Sprintf(
			"pulse is under-resolved: dt_fs=%.3f but require dt_fs <= resolved_intensity_fwhm_fs / N_min "+
				"(resolved_intensity_fwhm_fs=%.3f fs, N_min=%d); use n_samples >= %d",
			dt, fwhm, policy.MinPointsPerFWHM, recommended))
	}

	if policy.NyquistMargin > 0 {
		nyquist := math.Pi / dt
		spectralFWHM := 2 * math.Pi * tbp / fwhm
		margin := nyquist / spectralFWHM
		if margin < policy.NyquistMargin {
			findings = append(findings, fmt.Sprintf(
				"spectral Nyquist margin %.2f is below the required %.2f for a %s pulse "+
					"(nyquist=%.4g rad/fs, spectral_fwhm=%.4g rad/fs)",
				margin, policy.NyquistMargin, spec.Shape, nyquist, spectralFWHM))
		}
	}

	if len(findings) > 0 && policy.Strict {
		return nil, fmt.Errorf("%w: %s", core.ErrSamplingPolicy, strings.Join(findings, "; "))
	}
	return findings, nil
}

// RecommendedNSamples returns the smallest power of two n with
// window/(n-1) <= width/minPointsPerFWHM.
func RecommendedNSamples(widthFs, windowFs float64, minPointsPerFWHM int) (int, error) {
	if !(widthFs > 0) || !(windowFs > 0) || minPointsPerFWHM < 1 {
		return 0, core.NewValidationError("sampling", "width_fs, time_window_fs and min_points_per_fwhm must be positive")
	}
	maxDt := widthFs / float64(minPointsPerFWHM)
	required := int(math.Ceil(windowFs/maxDt)) + 1
	n := 2
	for n < required {
		n <<= 1
	}
	return n, nil
}
