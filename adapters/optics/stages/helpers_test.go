package stages

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cpasim/adapters/optics/kernels"
	"cpasim/domain/config"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

func laserState(t *testing.T, mutate func(*config.PulseSpec)) *pulse.LaserState {
	t.Helper()
	cfg := config.DefaultLaserGenConfig()
	if mutate != nil {
		mutate(&cfg.Spec.Pulse)
	}
	res, err := NewLaserGen(cfg).Process(pulse.Placeholder(), nil)
	require.NoError(t, err)
	return res.State
}

func rmsOf(x, y []float64) float64 {
	return kernels.RMSWidth(x, y)
}

func rmsWidth(s *pulse.LaserState) float64 {
	return rmsOf(s.Pulse.Grid.T, s.Pulse.IntensityT)
}

var noPolicy stage.Policy
