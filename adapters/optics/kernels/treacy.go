package kernels

import (
	"math"
	"math/cmplx"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
)

// CUmPerFs is the speed of light in µm/fs.
const CUmPerFs = 0.299792458

// Treacy holds the closed-form grating-pair geometry and dispersion.
type Treacy struct {
	GDDFs2              float64
	TODFs3              float64
	PeriodUm            float64
	WavelengthUm        float64
	IncidenceAngleRad   float64
	LittrowAngleDeg     float64
	DiffractionAngleDeg float64
	Omega0RadPerFs      float64
}

// ComputeTreacy evaluates the grating-pair equations. Override values replace
// only their own term; TOD is zero unless IncludeTOD is set.
func ComputeTreacy(cfg config.TreacyGratingPairConfig) (Treacy, error) {
	lambda := cfg.WavelengthNm * 1e-3
	d := 1000 / cfg.LineDensityLpmm
	theta := cfg.IncidenceAngleDeg * math.Pi / 180
	m := float64(cfg.DiffractionOrder)
	passes := float64(cfg.NPasses)
	sinTheta := math.Sin(theta)

	littrow, err := safeAsin(lambda/(2*d), "littrow angle")
	if err != nil {
		return Treacy{}, err
	}
	diffArg := -m*(lambda/d) - sinTheta
	diffraction, err := safeAsin(diffArg, "diffraction angle")
	if err != nil {
		return Treacy{}, err
	}

	bracket := 1 - diffArg*diffArg
	if bracket <= 0 {
		return Treacy{}, core.NewDomainError("Treacy geometry",
			"GDD radical argument must be > 0. Got %.12g with line_density_lpmm=%g, incidence_angle_deg=%g, wavelength_nm=%g, diffraction_order=%d",
			bracket, cfg.LineDensityLpmm, cfg.IncidenceAngleDeg, cfg.WavelengthNm, cfg.DiffractionOrder)
	}
	gdd := -(passes * m * m * cfg.SeparationUm * lambda * lambda * lambda) /
		(2 * math.Pi * CUmPerFs * CUmPerFs * d * d) * math.Pow(bracket, -1.5)

	todDen := 1 - math.Pow(lambda/d-sinTheta, 2)
	if todDen <= 0 {
		return Treacy{}, core.NewDomainError("Treacy geometry",
			"TOD denominator must be > 0. Got %.12g with line_density_lpmm=%g, incidence_angle_deg=%g, wavelength_nm=%g",
			todDen, cfg.LineDensityLpmm, cfg.IncidenceAngleDeg, cfg.WavelengthNm)
	}
	todNum := 1 + (lambda/d)*sinTheta - sinTheta*sinTheta
	tod := -(3 * lambda / (2 * math.Pi * CUmPerFs)) * (todNum / todDen) * gdd

	out := Treacy{
		GDDFs2:              gdd,
		PeriodUm:            d,
		WavelengthUm:        lambda,
		IncidenceAngleRad:   theta,
		LittrowAngleDeg:     littrow * 180 / math.Pi,
		DiffractionAngleDeg: diffraction * 180 / math.Pi,
		Omega0RadPerFs:      AngularFrequency(cfg.WavelengthNm),
	}
	if cfg.IncludeTOD {
		out.TODFs3 = tod
	}
	if cfg.OverrideGDDFs2 != nil {
		out.GDDFs2 = *cfg.OverrideGDDFs2
	}
	if cfg.OverrideTODFs3 != nil {
		out.TODFs3 = *cfg.OverrideTODFs3
	}
	return out, nil
}

// AngularFrequency returns 2πc/λ in rad/fs.
func AngularFrequency(wavelengthNm float64) float64 {
	return 2 * math.Pi * CUmPerFs / (wavelengthNm * 1e-3)
}

func safeAsin(arg float64, context string) (float64, error) {
	if arg < -1 || arg > 1 {
		return 0, core.NewDomainError("Invalid asin domain for "+context, "arg=%.12g (must be within [-1, 1])", arg)
	}
	return math.Asin(arg), nil
}

// DispersionPhase returns −½·GDD·Δω² − ⅙·TOD·Δω³ with Δω = w − omega0.
func DispersionPhase(w []float64, omega0, gddFs2, todFs3 float64) []float64 {
	out := make([]float64, len(w))
	for i, wi := range w {
		dw := wi - omega0
		out[i] = -0.5*gddFs2*dw*dw - todFs3*dw*dw*dw/6
	}
	return out
}

// ApplySpectralPhase multiplies the spectral envelope by exp(i·phase).
func ApplySpectralPhase(p *pulse.PulseState, phase []float64) {
	fieldW := make([]complex128, len(p.FieldW))
	for i, a := range p.FieldW {
		fieldW[i] = a * cmplx.Exp(complex(0, phase[i]))
	}
	p.SetFieldW(fieldW)
}
