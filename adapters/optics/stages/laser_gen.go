package stages

import (
	"log"

	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// LaserGen synthesizes the analytic seed pulse. It replaces the incoming
// placeholder pulse and seeds the metadata later stages depend on.
type LaserGen struct {
	cfg      config.LaserGenConfig
	sampling config.SamplingPolicy
}

// NewLaserGen creates a laser stage with the default sampling policy.
func NewLaserGen(cfg config.LaserGenConfig) *LaserGen {
	return &LaserGen{cfg: cfg, sampling: config.DefaultSamplingPolicy()}
}

func (s *LaserGen) Name() stage.Name { return s.cfg.Name }

func (s *LaserGen) Process(in *pulse.LaserState, policy stage.Policy) (stage.Result, error) {
	spec := s.cfg.Spec.Pulse

	sampling := s.sampling
	sampling.Strict = policy.Bool(stage.PolicyStrictSampling)
	warnings, err := config.ValidatePulseSampling(spec, sampling)
	if err != nil {
		return stage.Result{}, err
	}

	syn, err := kernels.Synthesize(spec)
	if err != nil {
		return stage.Result{}, err
	}

	out := in.Clone()
	for _, w := range warnings {
		log.Printf("[LaserGen] %s: sampling warning: %s", s.cfg.Name, w)
		out.AddWarning(w)
	}
	out.Pulse = syn.State
	out.Beam = pulse.BeamState{RadiusMm: s.cfg.Spec.Beam.RadiusMm, M2: s.cfg.Spec.Beam.M2}
	out.Reference = &pulse.Trace{
		IntensityT: append([]float64(nil), syn.State.IntensityT...),
		SpectrumW:  append([]float64(nil), syn.State.SpectrumW...),
	}

	avgPower := syn.PulseEnergyJ * config.RepRateHz(spec.RepRateMHz)
	out.Meta[metaRepRate] = spec.RepRateMHz
	out.Meta["laser.intensity_fwhm_fs"] = syn.IntensityFWHMFs
	out.Meta["laser.peak_power_w"] = syn.PeakPowerW
	out.Meta["laser.pulse_energy_j"] = syn.PulseEnergyJ
	out.Meta["laser.avg_power_w"] = avgPower
	if spec.AutocorrFwhmFs != nil {
		out.Meta["laser.intensity_autocorr_fwhm_fs_input"] = *spec.AutocorrFwhmFs
	}

	return record(out, map[string]float64{
		"laser.energy_au":         syn.State.Energy(),
		"laser.peak_intensity_au": syn.State.PeakIntensity(),
		"laser.intensity_fwhm_fs": syn.IntensityFWHMFs,
		"laser.peak_power_w":      syn.PeakPowerW,
		"laser.pulse_energy_j":    syn.PulseEnergyJ,
		"laser.avg_power_w":       avgPower,
	}), nil
}
