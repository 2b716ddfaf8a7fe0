package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainconfig "cpasim/domain/config"
	"cpasim/domain/stage"
	"cpasim/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"CPASIM_OUTPUT_DIR", "CPASIM_PIPELINE_NAME", "CPASIM_STRICT_SAMPLING",
		"CPASIM_EMIT_TRACES", "CPASIM_TRACE_DIR", "CPASIM_LEDGER_DSN", "CPASIM_LOG_LEVEL", "CPASIM_SEED"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, stage.DefaultStagePlotDir, cfg.Run.TraceDir)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Empty(t, cfg.Ledger.DSN)
	assert.Nil(t, cfg.Policy())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CPASIM_OUTPUT_DIR", "/tmp/cpa")
	t.Setenv("CPASIM_PIPELINE_NAME", "bench")
	t.Setenv("CPASIM_STRICT_SAMPLING", "true")
	t.Setenv("CPASIM_EMIT_TRACES", "1")
	t.Setenv("CPASIM_TRACE_DIR", "/tmp/cpa/traces")
	t.Setenv("CPASIM_LEDGER_DSN", "ledger.db")
	t.Setenv("CPASIM_LOG_LEVEL", "debug")
	t.Setenv("CPASIM_SEED", "17")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "ledger.db", cfg.Ledger.DSN)

	policy := cfg.Policy()
	assert.True(t, policy.Bool(stage.PolicyStrictSampling))
	assert.True(t, policy.EmitTraces())
	assert.Equal(t, "/tmp/cpa/traces", policy.TraceDir())

	pipeline := cfg.Apply(domainconfig.DefaultPipelineConfig())
	assert.Equal(t, "bench", pipeline.Name)
	assert.Equal(t, int64(17), pipeline.Runtime.Seed)
}

func TestLoad_RejectsBadLogLevel(t *testing.T) {
	t.Setenv("CPASIM_OUTPUT_DIR", "out")
	t.Setenv("CPASIM_LOG_LEVEL", "chatty")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
