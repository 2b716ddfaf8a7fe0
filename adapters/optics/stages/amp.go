package stages

import (
	"fmt"
	"math"

	"cpasim/adapters/optics/backend"
	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// SimpleGain scales the field by √G.
type SimpleGain struct {
	cfg config.SimpleGainConfig
}

func NewSimpleGain(cfg config.SimpleGainConfig) *SimpleGain {
	return &SimpleGain{cfg: cfg}
}

func (s *SimpleGain) Name() stage.Name { return s.cfg.Name }

func (s *SimpleGain) Process(in *pulse.LaserState, _ stage.Policy) (stage.Result, error) {
	out := in.Clone()
	scaleField(&out.Pulse, math.Sqrt(math.Max(s.cfg.GainLinear, 0)))

	n := s.cfg.Name
	return record(out, map[string]float64{
		key(n, "gain_linear"): s.cfg.GainLinear,
		key(n, "energy_au"):   out.Pulse.Energy(),
	}), nil
}

// ToyFiberAmp runs the split-step amplifier model.
type ToyFiberAmp struct {
	cfg config.ToyFiberAmpConfig
}

func NewToyFiberAmp(cfg config.ToyFiberAmpConfig) *ToyFiberAmp {
	return &ToyFiberAmp{cfg: cfg}
}

func (s *ToyFiberAmp) Name() stage.Name { return s.cfg.Name }

func (s *ToyFiberAmp) Process(in *pulse.LaserState, _ stage.Policy) (stage.Result, error) {
	repRate, err := repRateHz(in, s.cfg.Name)
	if err != nil {
		return stage.Result{}, err
	}
	if err := requireUniform(in, s.cfg.Name); err != nil {
		return stage.Result{}, err
	}

	out := in.Clone()
	p := out.Pulse
	energyIn := p.Energy()
	energyInJ := p.EnergyJ()
	powerIn := energyInJ * repRate
	peakIn := p.PeakIntensity()
	bandwidthIn := kernels.RMSBandwidth(p.Grid.W, p.SpectrumW)

	gainDB, err := kernels.ResolveGainDB(s.cfg.GainDB, s.cfg.AmpPowerW, powerIn, s.cfg.LossDBPerM, s.cfg.LengthM)
	if err != nil {
		return stage.Result{}, fmt.Errorf("stage %s: %w", s.cfg.Name, err)
	}
	amp := kernels.ToyAmp{
		LengthM:      s.cfg.LengthM,
		NSteps:       s.cfg.NSteps,
		GainDB:       gainDB,
		LossDBPerM:   s.cfg.LossDBPerM,
		Beta2Fs2PerM: s.cfg.Beta2Fs2PerM,
		GammaPerWM:   s.cfg.GammaPerWM,
	}
	out.Pulse.SetFieldT(amp.Propagate(p.Grid.W, p.FieldT))

	n := s.cfg.Name
	return record(out, map[string]float64{
		key(n, "gain_db"):                  gainDB,
		key(n, "gain_db_applied"):          gainDB,
		key(n, "gain_linear"):              amp.GainLinear(),
		key(n, "loss_db_per_m"):            s.cfg.LossDBPerM,
		key(n, "energy_in_au"):             energyIn,
		key(n, "energy_out_au"):            out.Pulse.Energy(),
		key(n, "energy_in_j"):              energyInJ,
		key(n, "energy_out_j"):             out.Pulse.EnergyJ(),
		key(n, "power_in_avg_w"):           powerIn,
		key(n, "power_out_avg_w"):          avgPowerW(out.Pulse, repRate),
		key(n, "peak_power_in_au"):         peakIn,
		key(n, "peak_power_out_au"):        out.Pulse.PeakIntensity(),
		key(n, "bandwidth_in_rad_per_fs"):  bandwidthIn,
		key(n, "bandwidth_out_rad_per_fs"): kernels.RMSBandwidth(out.Pulse.Grid.W, out.Pulse.SpectrumW),
		key(n, "b_integral_proxy_rad"):     s.cfg.GammaPerWM * s.cfg.LengthM * peakIn,
	}), nil
}

// FiberAmpWrap drives the fiber stage with the distributed gain needed to
// reach a target average output power, then trims the field to hit it exactly.
type FiberAmpWrap struct {
	cfg    config.FiberAmpWrapConfig
	solver backend.Solver
}

// NewFiberAmpWrap fails when the wrapped numerics need a solver that is missing.
func NewFiberAmpWrap(cfg config.FiberAmpWrapConfig, solver backend.Solver) (*FiberAmpWrap, error) {
	if _, err := NewFiber(cfg.Fiber(cfg.Physics.LossDBPerM), solver); err != nil {
		return nil, err
	}
	return &FiberAmpWrap{cfg: cfg, solver: solver}, nil
}

func (s *FiberAmpWrap) Name() stage.Name { return s.cfg.Name }

func (s *FiberAmpWrap) Process(in *pulse.LaserState, policy stage.Policy) (stage.Result, error) {
	repRate, err := repRateHz(in, s.cfg.Name)
	if err != nil {
		return stage.Result{}, err
	}
	powerIn := avgPowerW(in.Pulse, repRate)
	if !(powerIn > 0) {
		return stage.Result{}, core.NewDomainError(string(s.cfg.Name),
			"requires positive input average power to map power_out_w, got %g W", powerIn)
	}
	length := s.cfg.Physics.LengthM
	if !(length > 0) {
		return stage.Result{}, core.NewValidationError("FiberAmpWrap.physics.length_m", fmt.Sprintf("must be > 0, got %g", length))
	}

	netGainDB := 10 * math.Log10(s.cfg.PowerOutW/powerIn)
	effectiveLoss := -netGainDB / length
	fiber, err := NewFiber(s.cfg.Fiber(effectiveLoss), s.solver)
	if err != nil {
		return stage.Result{}, err
	}
	res, err := fiber.Process(in, policy)
	if err != nil {
		return stage.Result{}, err
	}

	out := res.State
	achieved := avgPowerW(out.Pulse, repRate)
	if !(achieved > 0) {
		return stage.Result{}, core.NewDomainError(string(s.cfg.Name), "produced non-positive output average power %g W", achieved)
	}
	scaleField(&out.Pulse, math.Sqrt(s.cfg.PowerOutW/achieved))

	n := s.cfg.Name
	metrics := map[string]float64{
		key(n, "power_in_avg_w"):          powerIn,
		key(n, "power_out_target_w"):      s.cfg.PowerOutW,
		key(n, "power_out_avg_w"):         avgPowerW(out.Pulse, repRate),
		key(n, "effective_loss_db_per_m"): effectiveLoss,
		key(n, "net_gain_db"):             netGainDB,
	}
	for k, v := range res.Metrics {
		if _, ok := metrics[k]; !ok {
			metrics[k] = v
		}
	}
	return record(out, metrics), nil
}

func scaleField(p *pulse.PulseState, factor float64) {
	field := make([]complex128, len(p.FieldT))
	for i, a := range p.FieldT {
		field[i] = a * complex(factor, 0)
	}
	p.SetFieldT(field)
}
