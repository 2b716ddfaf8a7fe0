package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/run"
	"cpasim/domain/stage"
)

func TestRecorder_ObserveStage(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("fiber", stage.KindFiber, 3*time.Millisecond, nil)
	r.ObserveStage("amp", stage.KindToyFiberAmp, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("amp", string(stage.KindToyFiberAmp))))
}

func TestRecorder_RecordResultAndTextfile(t *testing.T) {
	r := NewRecorder()
	r.RecordResult("cpa", &run.Result{Metrics: map[string]float64{
		"cpa.metrics.summary.fwhm_fs":    101.2,
		"cpa.laser_init.laser.energy_au": 3,
	}})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs))
	assert.Equal(t, 1, testutil.CollectAndCount(r.metrics))
	assert.Equal(t, 101.2, testutil.ToFloat64(r.metrics.WithLabelValues("cpa", "summary.fwhm_fs")))

	path := filepath.Join(t.TempDir(), "telemetry.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cpasim_run_metric{metric="summary.fwhm_fs",pipeline="cpa"} 101.2`)
	assert.Contains(t, string(data), "cpasim_runs_total 1")
}
