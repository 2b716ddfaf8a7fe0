package stages

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/config"
	"cpasim/domain/observables"
)

func TestMetrics_OnSeedPulse(t *testing.T) {
	in := laserState(t, nil)

	res, err := NewMetrics(config.DefaultMetricsConfig()).Process(in, noPolicy)
	require.NoError(t, err)

	m := res.Metrics
	assert.InDelta(t, 100.0, m["summary.fwhm_fs"], 1.0)
	assert.InDelta(t, 100*math.Sqrt2, m["summary.ac_fwhm_fs"], 2.0)
	assert.InDelta(t, 1.0, m["summary.amplification_ratio"], 1e-12)
	assert.InDelta(t, 1.0, m["summary.temporal_shape_similarity"], 1e-12)
	assert.InDelta(t, 1.0, m["summary.spectral_shape_similarity"], 1e-12)
	assert.Greater(t, m["summary.bandwidth_rad_per_fs"], 0.0)

	contract, ok := res.State.Meta["observable_contract"].(observables.Contract)
	require.True(t, ok)
	assert.Equal(t, observables.SchemaVersion, contract.SchemaVersion)
	fwhm, ok := contract.Find(observables.IntensityFWHM)
	require.True(t, ok)
	assert.Equal(t, m["summary.fwhm_fs"], fwhm.Value)
	assert.Equal(t, "fs", fwhm.Unit)
}

func TestMetrics_WithoutReference(t *testing.T) {
	in := laserState(t, nil)
	in.Reference = nil
	in.Metrics = map[string]float64{}

	res, err := NewMetrics(config.DefaultMetricsConfig()).Process(in, noPolicy)
	require.NoError(t, err)
	assert.Zero(t, res.Metrics["summary.temporal_shape_similarity"])
	assert.Zero(t, res.Metrics["summary.spectral_shape_similarity"])
	assert.Zero(t, res.Metrics["summary.amplification_ratio"])
}
