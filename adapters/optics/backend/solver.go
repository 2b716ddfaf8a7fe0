package backend

import (
	"fmt"

	"cpasim/domain/config"
	"cpasim/domain/core"
)

// Solver is an external nonlinear propagation capability. The fiber stage
// receives one through injection and never constructs it itself.
type Solver interface {
	Name() string
	Version() string
	Propagate(in SolverInput) (Trajectory, error)
}

// SolverInput is everything a solver needs to propagate one envelope.
type SolverInput struct {
	Resolution     int
	TimeWindowPs   float64
	WavelengthNm   float64
	FiberLengthM   float64
	GammaPerWM     float64
	LossDBPerM     float64
	Envelope       []complex128
	Dispersion     config.Dispersion
	Raman          *config.Raman
	SelfSteepening bool
	Rtol           float64
	Atol           float64
	ZSaves         int
}

// Validate checks the shape of the request.
func (in SolverInput) Validate() error {
	if in.Resolution < 2 {
		return core.NewValidationError("solver.resolution", fmt.Sprintf("must be >= 2, got %d", in.Resolution))
	}
	if len(in.Envelope) != in.Resolution {
		return core.NewValidationError("solver.envelope", fmt.Sprintf("length %d does not match resolution %d", len(in.Envelope), in.Resolution))
	}
	if !(in.TimeWindowPs > 0) {
		return core.NewValidationError("solver.time_window_ps", fmt.Sprintf("must be > 0, got %g", in.TimeWindowPs))
	}
	if !(in.FiberLengthM > 0) {
		return core.NewValidationError("solver.fiber_length_m", fmt.Sprintf("must be > 0, got %g", in.FiberLengthM))
	}
	if !(in.WavelengthNm > 0) {
		return core.NewValidationError("solver.wavelength_nm", fmt.Sprintf("must be > 0, got %g", in.WavelengthNm))
	}
	if in.ZSaves < 1 {
		return core.NewValidationError("solver.z_saves", fmt.Sprintf("must be >= 1, got %d", in.ZSaves))
	}
	return nil
}

// Trajectory holds one envelope row per saved z slice.
type Trajectory struct {
	Z      []float64
	Fields [][]complex128
}

// Final returns the last saved envelope.
func (t Trajectory) Final() ([]complex128, error) {
	if len(t.Fields) == 0 {
		return nil, fmt.Errorf("%w: solver returned an empty trajectory", core.ErrPhysicalDomain)
	}
	return t.Fields[len(t.Fields)-1], nil
}
