package stages

import (
	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/observables"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// Metrics computes the end-of-chain summary and the observable contract.
type Metrics struct {
	cfg config.MetricsConfig
}

func NewMetrics(cfg config.MetricsConfig) *Metrics {
	return &Metrics{cfg: cfg}
}

func (s *Metrics) Name() stage.Name { return s.cfg.Name }

func (s *Metrics) Process(in *pulse.LaserState, _ stage.Policy) (stage.Result, error) {
	out := in.Clone()
	p := out.Pulse
	t := p.Grid.T

	energy := p.Energy()
	fwhm := kernels.IntensityFWHM(t, p.IntensityT)
	acFwhm := kernels.AutocorrelationFWHM(t, p.IntensityT)
	bandwidth := kernels.RMSBandwidth(p.Grid.W, p.SpectrumW)

	var temporal, spectral float64
	if ref := out.Reference; ref != nil {
		temporal = kernels.CosineSimilarity(ref.IntensityT, p.IntensityT)
		spectral = kernels.CosineSimilarity(ref.SpectrumW, p.SpectrumW)
	}

	out.Meta["observable_contract"] = observables.NewContract(fwhm, acFwhm, bandwidth)

	return record(out, map[string]float64{
		"summary.energy_au":                 energy,
		"summary.peak_intensity_au":         p.PeakIntensity(),
		"summary.fwhm_fs":                   fwhm,
		"summary.ac_fwhm_fs":                acFwhm,
		"summary.bandwidth_rad_per_fs":      bandwidth,
		"summary.amplification_ratio":       kernels.AmplificationRatio(energy, out.Metrics["laser.energy_au"]),
		"summary.temporal_shape_similarity": temporal,
		"summary.spectral_shape_similarity": spectral,
	}), nil
}
