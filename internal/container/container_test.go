package container

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/domain/config"
	"cpasim/domain/run"
	internalconfig "cpasim/internal/config"
	"cpasim/internal/pipeline"
	"cpasim/ports"
)

func testConfig(dsn string) *internalconfig.Config {
	return &internalconfig.Config{
		Output: internalconfig.OutputConfig{Dir: "out"},
		Ledger: internalconfig.LedgerConfig{DSN: dsn},
		Log:    internalconfig.LogConfig{Level: "ERROR"},
	}
}

func init() {
	logOutput = io.Discard
}

func TestNew_RejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_WiresCapabilities(t *testing.T) {
	c, err := New(testConfig(""))
	require.NoError(t, err)

	assert.NotNil(t, c.Solver)
	assert.NotNil(t, c.Traces)
	assert.NotNil(t, c.Telemetry)
	assert.NotEmpty(t, c.Registry.Kinds())

	deps := c.Dependencies()
	assert.Equal(t, c.Solver, deps.Solver)
	assert.NotNil(t, deps.Logger)
	assert.NotNil(t, deps.TraceExporter)
	assert.NotNil(t, deps.Observer)
}

func TestInitLedger_DisabledWithoutDSN(t *testing.T) {
	c, err := New(testConfig(""))
	require.NoError(t, err)

	require.NoError(t, c.InitLedger(context.Background()))
	assert.Nil(t, c.Ledger)
	assert.Nil(t, c.DB)
	assert.NoError(t, c.Shutdown())
}

func TestInitWithDatabase_RejectsNil(t *testing.T) {
	c, err := New(testConfig(""))
	require.NoError(t, err)
	assert.Error(t, c.InitWithDatabase(nil))
}

func TestContainer_RunAndRecord(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "ledger.db")

	c, err := New(testConfig(dsn))
	require.NoError(t, err)
	require.NoError(t, c.InitLedger(ctx))
	t.Cleanup(func() { _ = c.Shutdown() })
	require.NotNil(t, c.Ledger)

	cfg := config.DefaultPipelineConfig()
	p, err := pipeline.Build(cfg, c.Registry, c.Dependencies())
	require.NoError(t, err)
	res, err := p.Run(nil)
	require.NoError(t, err)

	entry, err := run.NewLedgerEntry(p.Name(), res)
	require.NoError(t, err)
	require.NoError(t, c.Ledger.RecordRun(ctx, entry))

	got, err := c.Ledger.GetRun(ctx, res.Provenance.RunID)
	require.NoError(t, err)
	assert.Equal(t, entry.StateHash, got.StateHash)

	runs, err := c.Ledger.ListRuns(ctx, ports.RunFilters{Pipeline: &entry.Pipeline})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
