package pipeline

import (
	"fmt"
	"time"

	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
	"cpasim/domain/run"
	"cpasim/domain/stage"
	"cpasim/ports"
)

// Pipeline is a built, validated stage chain ready to run.
type Pipeline struct {
	name       string
	seed       int64
	plan       stage.Plan
	kinds      []stage.Kind
	stages     []ports.Stage
	configHash core.ConfigHash
	warnings   []string
	deps       Dependencies
}

// Build validates cfg, resolves its topology and constructs every stage.
// Lookup failures, missing bank keys and malformed chains fail here, before
// any stage runs.
func Build(cfg config.PipelineConfig, registry *Registry, deps Dependencies) (*Pipeline, error) {
	deps = deps.withDefaults()
	if registry == nil {
		registry = DefaultRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	topology, err := cfg.Topology()
	if err != nil {
		return nil, err
	}
	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}
	hash, err := cfg.Hash()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		name:       cfg.Name,
		seed:       cfg.Runtime.Seed,
		plan:       plan,
		configHash: hash,
		warnings:   cfg.Warnings(),
		deps:       deps,
	}
	for _, sc := range topology {
		factory, err := registry.Lookup(sc.Kind())
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", sc.StageName(), err)
		}
		s, err := factory(sc, deps)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", sc.StageName(), err)
		}
		p.stages = append(p.stages, s)
		p.kinds = append(p.kinds, sc.Kind())
	}

	deps.Logger.Printf("[Pipeline] %s: built %d stages %v (config %s)", p.name, len(p.stages), plan.Names(), core.Hash(hash).Short(12))
	for _, w := range p.warnings {
		deps.Logger.Printf("[Pipeline] %s: warning: %s", p.name, w)
	}
	return p, nil
}

// Name returns the pipeline name used as the metric namespace.
func (p *Pipeline) Name() string { return p.name }

// Plan returns the resolved stage plan.
func (p *Pipeline) Plan() stage.Plan { return p.plan }

// ConfigHash returns the content hash of the pipeline config.
func (p *Pipeline) ConfigHash() core.ConfigHash { return p.configHash }

// Run folds the stages left to right over a fresh placeholder state.
func (p *Pipeline) Run(policy stage.Policy) (*run.Result, error) {
	policyHash, err := policy.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash policy: %w", err)
	}
	prov := run.NewProvenance(p.seed, p.configHash, policyHash, p.deps.Clock())

	state := pulse.Placeholder()
	for _, w := range p.warnings {
		state.AddWarning(w)
	}

	metrics := map[string]float64{}
	artifacts := map[string]string{}
	timings := make([]run.StageTiming, 0, len(p.stages))
	emitTraces := policy.EmitTraces() && p.deps.TraceExporter != nil

	for i, s := range p.stages {
		name := s.Name()
		start := time.Now()
		res, err := s.Process(state, policy)
		elapsed := time.Since(start)
		if p.deps.Observer != nil {
			p.deps.Observer.ObserveStage(name, p.kinds[i], elapsed, err)
		}
		if err != nil {
			p.deps.Logger.Printf("[Pipeline] %s: stage %s failed after %.2fms: %v", p.name, name, float64(elapsed.Nanoseconds())/1e6, err)
			return nil, fmt.Errorf("pipeline %s: stage %s: %w", p.name, name, err)
		}
		if res.State == nil {
			return nil, fmt.Errorf("pipeline %s: stage %s returned no state", p.name, name)
		}

		state = res.State
		for k, v := range res.Metrics {
			state.Metrics[k] = v
			metrics[p.name+"."+string(name)+"."+k] = v
		}

		if emitTraces {
			traced, err := p.deps.TraceExporter.ExportTraces(name, state, policy.TraceDir())
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: stage %s: trace export: %w", p.name, name, err)
			}
			for k, v := range traced {
				state.Artifacts[k] = v
			}
		}
		for k, v := range state.Artifacts {
			artifacts[k] = v
		}

		timings = append(timings, run.StageTiming{Stage: name, DurationMs: float64(elapsed.Nanoseconds()) / 1e6})
	}

	state.Meta["provenance"] = prov
	warnings, _ := state.Meta["warnings"].([]string)

	p.deps.Logger.Printf("[Pipeline] %s: run %s completed %d stages, %d metrics, %d artifacts",
		p.name, prov.RunID, len(p.stages), len(metrics), len(artifacts))

	return &run.Result{
		State:      state,
		Metrics:    metrics,
		Artifacts:  artifacts,
		Provenance: prov,
		Plan:       p.plan,
		Timings:    timings,
		Warnings:   append([]string(nil), warnings...),
	}, nil
}

// Run builds cfg with the default registry and runs it once.
func Run(cfg config.PipelineConfig, policy stage.Policy, deps Dependencies) (*run.Result, error) {
	p, err := Build(cfg, DefaultRegistry(), deps)
	if err != nil {
		return nil, err
	}
	return p.Run(policy)
}
