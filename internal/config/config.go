package config

import (
	"os"
	"strconv"
	"strings"

	domainconfig "cpasim/domain/config"
	"cpasim/domain/stage"
	"cpasim/internal/errors"
)

// Config represents the process configuration of the cpasim CLI
type Config struct {
	Output OutputConfig
	Run    RunConfig
	Ledger LedgerConfig
	Log    LogConfig
}

// OutputConfig holds file system paths
type OutputConfig struct {
	Dir       string
	DumpState bool
}

// RunConfig holds defaults applied to every pipeline run
type RunConfig struct {
	PipelineName   string
	StrictSampling bool
	EmitTraces     bool
	TraceDir       string
	Seed           int64
}

// LedgerConfig holds run ledger connection settings. An empty DSN disables the ledger.
type LedgerConfig struct {
	DSN string
}

// LogConfig holds logging verbosity
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Output: loadOutputConfig(),
		Run:    loadRunConfig(),
		Ledger: LedgerConfig{DSN: getEnvOrDefault("CPASIM_LEDGER_DSN", "")},
		Log:    LogConfig{Level: strings.ToUpper(getEnvOrDefault("CPASIM_LOG_LEVEL", "INFO"))},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadOutputConfig() OutputConfig {
	return OutputConfig{
		Dir:       getEnvOrDefault("CPASIM_OUTPUT_DIR", "out"),
		DumpState: getEnvBoolOrDefault("CPASIM_DUMP_STATE", false),
	}
}

func loadRunConfig() RunConfig {
	return RunConfig{
		PipelineName:   getEnvOrDefault("CPASIM_PIPELINE_NAME", ""),
		StrictSampling: getEnvBoolOrDefault("CPASIM_STRICT_SAMPLING", false),
		EmitTraces:     getEnvBoolOrDefault("CPASIM_EMIT_TRACES", false),
		TraceDir:       getEnvOrDefault("CPASIM_TRACE_DIR", stage.DefaultStagePlotDir),
		Seed:           getEnvInt64OrDefault("CPASIM_SEED", 0),
	}
}

func validateConfig(config *Config) error {
	if config.Output.Dir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if config.Run.EmitTraces && config.Run.TraceDir == "" {
		return errors.ConfigInvalid("trace directory is required when trace emission is enabled")
	}
	switch config.Log.Level {
	case "ERROR", "WARN", "INFO", "DEBUG", "TRACE":
	default:
		return errors.ConfigInvalid("CPASIM_LOG_LEVEL must be one of ERROR, WARN, INFO, DEBUG, TRACE")
	}
	return nil
}

// Policy builds the stage execution policy from the run settings.
func (c *Config) Policy() stage.Policy {
	policy := stage.Policy{}
	if c.Run.StrictSampling {
		policy[stage.PolicyStrictSampling] = true
	}
	if c.Run.EmitTraces {
		policy[stage.PolicyEmitStagePlots] = true
		policy[stage.PolicyStagePlotDir] = c.Run.TraceDir
	}
	if len(policy) == 0 {
		return nil
	}
	return policy
}

// Apply overrides the pipeline name and seed of cfg when they are set in the environment.
func (c *Config) Apply(cfg domainconfig.PipelineConfig) domainconfig.PipelineConfig {
	if c.Run.PipelineName != "" {
		cfg.Name = c.Run.PipelineName
	}
	if c.Run.Seed != 0 {
		cfg.Runtime.Seed = c.Run.Seed
	}
	return cfg
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
