package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/run"
)

// Output schema identifiers.
const (
	MetricsSchema   = "cpa.metrics.v1"
	ArtifactsSchema = "cpa.artifacts.v1"
)

// Output file names inside the run directory.
const (
	metricsFile   = "metrics.json"
	artifactsFile = "artifacts.json"
	stateFile     = "state_final.json"
	reportMDFile  = "report.md"
	reportHTML    = "report.html"
	telemetryFile = "telemetry.prom"
)

// MetricsDocument is the persisted metrics file.
type MetricsDocument struct {
	Schema     string                        `json:"schema"`
	Pipeline   string                        `json:"pipeline"`
	Provenance run.Provenance                `json:"provenance"`
	Overall    map[string]float64            `json:"overall"`
	PerStage   map[string]map[string]float64 `json:"per_stage"`
}

// ArtifactsDocument is the persisted artifact index.
type ArtifactsDocument struct {
	Schema    string            `json:"schema"`
	Pipeline  string            `json:"pipeline"`
	Artifacts map[string]string `json:"artifacts"`
}

// loadPipelineConfig reads a YAML (or JSON) pipeline file.
func loadPipelineConfig(path string) (config.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.PipelineConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return config.PipelineConfig{}, fmt.Errorf("%w: failed to parse %s: %v", core.ErrConfigInvalid, path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return config.FromMap(raw)
}

func newMetricsDocument(pipeline string, res *run.Result) MetricsDocument {
	perStage := make(map[string]map[string]float64, len(res.Plan.Stages))
	for _, spec := range res.Plan.Stages {
		perStage[string(spec.Name)] = res.StageMetrics(pipeline, spec.Name)
	}
	return MetricsDocument{
		Schema:     MetricsSchema,
		Pipeline:   pipeline,
		Provenance: res.Provenance,
		Overall:    res.Metrics,
		PerStage:   perStage,
	}
}

func newArtifactsDocument(pipeline string, res *run.Result) ArtifactsDocument {
	artifacts := res.Artifacts
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	return ArtifactsDocument{Schema: ArtifactsSchema, Pipeline: pipeline, Artifacts: artifacts}
}

// writeRunOutputs writes the metrics and artifact documents and, when
// dumpState is set, the final state. It returns the paths written.
func writeRunOutputs(dir, pipeline string, res *run.Result, dumpState bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	var written []string
	write := func(name string, v any) error {
		path := filepath.Join(dir, name)
		if err := writeJSON(path, v); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write(metricsFile, newMetricsDocument(pipeline, res)); err != nil {
		return nil, err
	}
	if err := write(artifactsFile, newArtifactsDocument(pipeline, res)); err != nil {
		return nil, err
	}
	if dumpState {
		if err := write(stateFile, res.State); err != nil {
			return nil, err
		}
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
