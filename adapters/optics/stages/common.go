package stages

import (
	"fmt"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// metaRepRate is the metadata key the laser stage writes and amplifiers read.
const metaRepRate = "rep_rate_mhz"

// repRateHz reads the repetition rate populated by the laser stage.
func repRateHz(state *pulse.LaserState, name stage.Name) (float64, error) {
	mhz, ok := state.MetaFloat(metaRepRate)
	if !ok {
		return 0, core.NewPreconditionError(string(name), "meta['rep_rate_mhz'] populated by the laser stage")
	}
	if !(mhz > 0) {
		return 0, core.NewDomainError(string(name), "requires rep_rate_mhz > 0, got %g", mhz)
	}
	return config.RepRateHz(mhz), nil
}

// avgPowerW returns pulse energy times repetition rate.
func avgPowerW(p pulse.PulseState, repRateHz float64) float64 {
	return p.EnergyJ() * repRateHz
}

// requireUniform guards Fourier-domain operations.
func requireUniform(state *pulse.LaserState, name stage.Name) error {
	if err := state.Pulse.Grid.ValidateUniform(); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}

// key builds a stage-prefixed metric or artifact key.
func key(name stage.Name, metric string) string {
	return string(name) + "." + metric
}

// record merges metrics into the state and returns them as a stage result.
func record(out *pulse.LaserState, metrics map[string]float64) stage.Result {
	for k, v := range metrics {
		out.Metrics[k] = v
	}
	return stage.Result{State: out, Metrics: metrics}
}

func boolMetric(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
