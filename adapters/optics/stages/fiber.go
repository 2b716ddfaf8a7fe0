package stages

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"cpasim/adapters/optics/backend"
	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// toyPhaseFloor keeps the normalised SPM phase finite for an all-zero field.
const toyPhaseFloor = 1e-12

// Fiber propagates the pulse through a fiber using the configured numerics.
type Fiber struct {
	cfg    config.FiberConfig
	solver backend.Solver
}

// NewFiber binds the fiber config to a solver. The solver may be nil only
// for toy_phase numerics.
func NewFiber(cfg config.FiberConfig, solver backend.Solver) (*Fiber, error) {
	if _, ok := cfg.Numerics.(config.SolverNumerics); ok && solver == nil {
		return nil, fmt.Errorf("%w: fiber stage %s uses the solver backend but no solver was provided",
			core.ErrMissingCapability, cfg.Name)
	}
	return &Fiber{cfg: cfg, solver: solver}, nil
}

func (s *Fiber) Name() stage.Name { return s.cfg.Name }

func (s *Fiber) Process(in *pulse.LaserState, _ stage.Policy) (stage.Result, error) {
	if err := requireUniform(in, s.cfg.Name); err != nil {
		return stage.Result{}, err
	}
	switch numerics := s.cfg.Numerics.(type) {
	case config.ToyPhaseNumerics:
		return s.toyPhase(in, numerics), nil
	case config.SolverNumerics:
		return s.solve(in, numerics)
	}
	return stage.Result{}, fmt.Errorf("%w: unsupported fiber numerics backend %T", core.ErrUnknownKind, s.cfg.Numerics)
}

// toyPhase applies φ(t) = φ_NL·I(t)/max(I) and the scalar fiber loss.
func (s *Fiber) toyPhase(in *pulse.LaserState, numerics config.ToyPhaseNumerics) stage.Result {
	out := in.Clone()
	energyIn := out.Pulse.Energy()
	intensity := out.Pulse.IntensityT
	peak := math.Max(floats.Max(intensity), toyPhaseFloor)
	amplitude := math.Sqrt(lossLinear(s.cfg.Physics))

	field := make([]complex128, len(out.Pulse.FieldT))
	maxPhase := 0.0
	for i, a := range out.Pulse.FieldT {
		phase := numerics.NonlinearPhaseRad * intensity[i] / peak
		maxPhase = math.Max(maxPhase, phase)
		field[i] = a * cmplx.Exp(complex(0, phase)) * complex(amplitude, 0)
	}
	out.Pulse.SetFieldT(field)
	markFieldUnits(out)

	n := s.cfg.Name
	return record(out, map[string]float64{
		key(n, "b_integral_proxy_rad"): maxPhase,
		key(n, "energy_in_au"):         energyIn,
		key(n, "energy_out_au"):        out.Pulse.Energy(),
		key(n, "energy_in_j"):          energyIn * pulse.FsToS,
		key(n, "energy_out_j"):         out.Pulse.EnergyJ(),
	})
}

// solve resamples per the grid policy and delegates to the injected solver.
func (s *Fiber) solve(in *pulse.LaserState, numerics config.SolverNumerics) (stage.Result, error) {
	out := in.Clone()
	energyIn := out.Pulse.Energy()

	points, err := backend.ResolveGridPoints(out.Pulse.Grid.Len(), numerics)
	if err != nil {
		return stage.Result{}, err
	}
	regridded, err := backend.Regrid(out.Pulse, points)
	if err != nil {
		return stage.Result{}, err
	}
	grid := regridded.Grid
	physics := s.cfg.Physics

	wavelength := grid.CenterWavelengthNm
	if wavelength <= 0 {
		wavelength = physics.ReferenceWavelengthNm
	}
	traj, err := s.solver.Propagate(backend.SolverInput{
		Resolution:     grid.Len(),
		TimeWindowPs:   (grid.T[grid.Len()-1] - grid.T[0]) / 1000,
		WavelengthNm:   wavelength,
		FiberLengthM:   physics.LengthM,
		GammaPerWM:     physics.Gamma(),
		LossDBPerM:     physics.LossDBPerM,
		Envelope:       regridded.FieldT,
		Dispersion:     physics.Dispersion,
		Raman:          physics.Raman,
		SelfSteepening: physics.SelfSteepening,
		Rtol:           numerics.Rtol,
		Atol:           numerics.Atol,
		ZSaves:         numerics.ZSaves,
	})
	if err != nil {
		return stage.Result{}, fmt.Errorf("stage %s: %s backend: %w", s.cfg.Name, s.solver.Name(), err)
	}
	final, err := traj.Final()
	if err != nil {
		return stage.Result{}, fmt.Errorf("stage %s: %w", s.cfg.Name, err)
	}
	if len(final) != grid.Len() {
		return stage.Result{}, fmt.Errorf("stage %s: %w: backend returned %d samples for a %d-point grid",
			s.cfg.Name, core.ErrPhysicalDomain, len(final), grid.Len())
	}

	out.Pulse = pulse.NewPulseState(grid, append([]complex128(nil), final...))
	markFieldUnits(out)

	n := s.cfg.Name
	out.Artifacts[key(n, "backend")] = s.solver.Name()
	if numerics.RecordBackendVersion {
		version := s.solver.Version()
		if version == "" {
			version = "unknown"
		}
		out.Artifacts[key(n, "backend_version")] = version
	}

	energyOut := out.Pulse.Energy()
	return record(out, map[string]float64{
		key(n, "energy_in_au"):    energyIn,
		key(n, "energy_out_au"):   energyOut,
		key(n, "energy_in_j"):     energyIn * pulse.FsToS,
		key(n, "energy_out_j"):    out.Pulse.EnergyJ(),
		key(n, "energy_ratio"):    kernels.AmplificationRatio(energyOut, energyIn),
		key(n, "grid_points"):     float64(grid.Len()),
		key(n, "spectral_rms_au"): kernels.RMSBandwidth(grid.W, out.Pulse.SpectrumW),
	}), nil
}

// lossLinear returns the power transmission 10^(−loss·L/10).
func lossLinear(physics config.FiberPhysics) float64 {
	return math.Pow(10, -physics.LossDBPerM*physics.LengthM/10)
}

func markFieldUnits(out *pulse.LaserState) {
	section := out.MetaSection("pulse")
	section["field_units"] = "sqrt(W)"
	section["power_is_absA2_W"] = true
}
