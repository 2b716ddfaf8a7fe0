package config

import (
	"encoding/json"
	"fmt"
	"math"

	"cpasim/domain/core"
)

// GammaTolerance is the relative disagreement allowed between an explicit
// nonlinearity and the one derived from n2 and the effective area.
const GammaTolerance = 0.05

// Dispersion model kinds.
const (
	DispersionTaylor        = "taylor"
	DispersionInterpolation = "interpolation"
)

// Dispersion describes the fiber propagation constant, either as Taylor
// coefficients around the carrier or as sampled effective indices.
type Dispersion struct {
	Kind                string    `json:"kind"`
	BetasPsnPerM        []float64 `json:"betas_psn_per_m,omitempty"`
	EffectiveIndices    []float64 `json:"effective_indices,omitempty"`
	LambdasNm           []float64 `json:"lambdas_nm,omitempty"`
	CentralWavelengthNm float64   `json:"central_wavelength_nm,omitempty"`
}

func (d Dispersion) Validate() error {
	switch d.Kind {
	case DispersionTaylor:
		return nil
	case DispersionInterpolation:
		if len(d.EffectiveIndices) != len(d.LambdasNm) {
			return core.NewValidationError("dispersion", fmt.Sprintf("effective_indices (%d) and lambdas_nm (%d) must have equal length",
				len(d.EffectiveIndices), len(d.LambdasNm)))
		}
		if len(d.LambdasNm) < 3 {
			return core.NewValidationError("dispersion", "interpolation needs at least 3 samples")
		}
		if !(d.CentralWavelengthNm > 0) {
			return core.NewValidationError("dispersion.central_wavelength_nm", "must be > 0")
		}
		return nil
	}
	return fmt.Errorf("%w: dispersion kind %q", core.ErrUnknownKind, d.Kind)
}

// Raman response models understood by solver backends.
var RamanModels = []string{"blowwood", "linagrawal", "hollenbeck"}

// Raman selects a delayed nonlinear response model.
type Raman struct {
	Model string `json:"model"`
}

func (r Raman) Validate() error {
	for _, m := range RamanModels {
		if r.Model == m {
			return nil
		}
	}
	return fmt.Errorf("%w: raman model %q", core.ErrUnknownKind, r.Model)
}

// FiberPhysics holds the physical fiber parameters. LossDBPerM may be
// negative to describe distributed gain.
type FiberPhysics struct {
	LengthM               float64    `json:"length_m"`
	LossDBPerM            float64    `json:"loss_db_per_m"`
	GammaPerWM            *float64   `json:"gamma_1_per_w_m,omitempty"`
	N2M2PerW              *float64   `json:"n2_m2_per_w,omitempty"`
	AeffM2                *float64   `json:"aeff_m2,omitempty"`
	ReferenceWavelengthNm float64    `json:"reference_wavelength_nm"`
	Dispersion            Dispersion `json:"dispersion"`
	Raman                 *Raman     `json:"raman,omitempty"`
	SelfSteepening        bool       `json:"self_steepening"`
}

// DefaultFiberPhysics returns a 1 m lossless linear fiber.
func DefaultFiberPhysics() FiberPhysics {
	return FiberPhysics{
		LengthM:               1,
		GammaPerWM:            Float(0),
		ReferenceWavelengthNm: DefaultCenterWavelengthNm,
		Dispersion:            Dispersion{Kind: DispersionTaylor},
	}
}

// NewFiberPhysics validates physics and returns it.
func NewFiberPhysics(physics FiberPhysics) (FiberPhysics, error) {
	if err := physics.Validate(); err != nil {
		return FiberPhysics{}, err
	}
	return physics, nil
}

// DerivedGamma returns 2π·n2 / (λ_ref·Aeff) when both inputs are present.
func (f FiberPhysics) DerivedGamma() (float64, bool) {
	if f.N2M2PerW == nil || f.AeffM2 == nil {
		return 0, false
	}
	lambdaM := f.ReferenceWavelengthNm * 1e-9
	return 2 * math.Pi * *f.N2M2PerW / (lambdaM * *f.AeffM2), true
}

// Gamma returns the effective nonlinearity in 1/(W·m).
func (f FiberPhysics) Gamma() float64 {
	if f.GammaPerWM != nil {
		return *f.GammaPerWM
	}
	g, _ := f.DerivedGamma()
	return g
}

func (f FiberPhysics) Validate() error {
	if !(f.LengthM > 0) {
		return core.NewValidationError("FiberPhysics.length_m", fmt.Sprintf("must be > 0, got %g", f.LengthM))
	}
	if (f.N2M2PerW != nil || f.AeffM2 != nil) && !(f.ReferenceWavelengthNm > 0) {
		return core.NewValidationError("FiberPhysics.reference_wavelength_nm", "must be > 0 to derive gamma")
	}
	if f.AeffM2 != nil && !(*f.AeffM2 > 0) {
		return core.NewValidationError("FiberPhysics.aeff_m2", fmt.Sprintf("must be > 0, got %g", *f.AeffM2))
	}
	derived, derivable := f.DerivedGamma()
	if f.GammaPerWM == nil && !derivable {
		return core.NewValidationError("FiberPhysics",
			"requires gamma_1_per_w_m, or both n2_m2_per_w and aeff_m2 to derive it")
	}
	if f.GammaPerWM != nil && derivable {
		mismatch := math.Abs(*f.GammaPerWM-derived) / math.Max(math.Abs(derived), 1e-30)
		if mismatch > GammaTolerance {
			return fmt.Errorf("%w: explicit gamma_1_per_w_m=%g is inconsistent with n2_m2_per_w and aeff_m2 (derived %g, mismatch %.1f%%)",
				core.ErrContradiction, *f.GammaPerWM, derived, 100*mismatch)
		}
	}
	if err := f.Dispersion.Validate(); err != nil {
		return err
	}
	if f.Raman != nil {
		if err := f.Raman.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Fiber numerics backends.
const (
	BackendToyPhase = "toy_phase"
	BackendSolver   = "solver"
)

// Grid policies applied before handing a pulse to the solver backend.
const (
	GridAsIs            = "as_is"
	GridForcePow2       = "force_pow2"
	GridForceResolution = "force_resolution"
)

// FiberNumerics selects how the fiber stage propagates.
type FiberNumerics interface {
	Backend() string
	Validate() error
}

// ToyPhaseNumerics applies a closed-form self-phase modulation.
type ToyPhaseNumerics struct {
	NonlinearPhaseRad float64 `json:"nonlinear_phase_rad"`
}

func (ToyPhaseNumerics) Backend() string { return BackendToyPhase }
func (ToyPhaseNumerics) Validate() error { return nil }

func (n ToyPhaseNumerics) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"backend": BackendToyPhase, "nonlinear_phase_rad": n.NonlinearPhaseRad})
}

// SolverNumerics delegates propagation to the injected solver backend.
type SolverNumerics struct {
	GridPolicy           string  `json:"grid_policy"`
	ResolutionOverride   *int    `json:"resolution_override,omitempty"`
	ZSaves               int     `json:"z_saves"`
	Rtol                 float64 `json:"rtol"`
	Atol                 float64 `json:"atol"`
	RecordBackendVersion bool    `json:"record_backend_version"`
}

// DefaultSolverNumerics returns as-is gridding with two saved slices.
func DefaultSolverNumerics() SolverNumerics {
	return SolverNumerics{GridPolicy: GridAsIs, ZSaves: 2, Rtol: 1e-5, Atol: 1e-8, RecordBackendVersion: true}
}

func (SolverNumerics) Backend() string { return BackendSolver }

func (n SolverNumerics) Validate() error {
	switch n.GridPolicy {
	case GridAsIs, GridForcePow2:
	case GridForceResolution:
		if n.ResolutionOverride == nil {
			return core.NewValidationError("numerics.resolution_override", "is required when grid_policy='force_resolution'")
		}
		if *n.ResolutionOverride < 2 {
			return core.NewValidationError("numerics.resolution_override", fmt.Sprintf("must be >= 2, got %d", *n.ResolutionOverride))
		}
	default:
		return core.NewValidationError("numerics.grid_policy", fmt.Sprintf("unknown policy %q", n.GridPolicy))
	}
	if n.ZSaves < 1 {
		return core.NewValidationError("numerics.z_saves", fmt.Sprintf("must be >= 1, got %d", n.ZSaves))
	}
	if !(n.Rtol > 0) || n.Atol < 0 {
		return core.NewValidationError("numerics", "rtol must be > 0 and atol >= 0")
	}
	return nil
}

func (n SolverNumerics) MarshalJSON() ([]byte, error) {
	type plain SolverNumerics
	data, err := json.Marshal(plain(n))
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m["backend"] = BackendSolver
	return json.Marshal(m)
}
