package config

import (
	"encoding/json"
	"fmt"

	"cpasim/domain/core"
	"cpasim/domain/stage"
)

// DefaultPipelineName namespaces metrics when no name is configured.
const DefaultPipelineName = "cpa"

// Runtime carries run-level settings.
type Runtime struct {
	Seed int64 `json:"seed"`
}

// PipelineConfig is the full description of a run.
//
// Topology resolution, first match wins: an explicit Chain over the stage
// Banks; a non-empty Stages list between LaserGen and Metrics; the canonical
// chain laser_init → stretcher → fiber → amp → compressor → metrics built
// from the single-stage fields.
type PipelineConfig struct {
	Name       string
	Runtime    Runtime
	LaserGen   LaserGenConfig
	Stretcher  StageConfig
	Fiber      StageConfig
	Amp        StageConfig
	Compressor StageConfig
	Metrics    MetricsConfig
	Stages     []StageConfig
	Banks      map[stage.Family]map[string]StageConfig
	Chain      []stage.Ref

	// Deprecations collects notices from legacy config upgrades.
	Deprecations []string
}

// DefaultPipelineConfig returns the canonical chain with neutral stages.
func DefaultPipelineConfig() PipelineConfig {
	stretcher, _ := NewPhaseOnlyDispersionConfig(stage.NameStretcher, 0, 0)
	compressor, _ := NewPhaseOnlyDispersionConfig(stage.NameCompressor, 0, 0)
	return PipelineConfig{
		Name:       DefaultPipelineName,
		LaserGen:   DefaultLaserGenConfig(),
		Stretcher:  stretcher,
		Fiber:      DefaultFiberConfig(),
		Amp:        SimpleGainConfig{Name: stage.NameAmp, GainLinear: 1},
		Compressor: compressor,
		Metrics:    DefaultMetricsConfig(),
	}
}

// WithStages returns a copy of c using stages as the middle of the chain.
func (c PipelineConfig) WithStages(stages ...StageConfig) PipelineConfig {
	c.Stages = stages
	return c
}

// Validate checks every stage config and the topology.
func (c PipelineConfig) Validate() error {
	if c.Name == "" {
		return core.NewValidationError("name", "pipeline name cannot be empty")
	}
	stages, err := c.Topology()
	if err != nil {
		return err
	}
	for _, s := range stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage %s: %w", s.StageName(), err)
		}
	}
	return nil
}

// Topology resolves the ordered stage configs.
func (c PipelineConfig) Topology() ([]StageConfig, error) {
	if c.Chain != nil {
		return c.resolveChain()
	}
	if len(c.Stages) > 0 {
		out := make([]StageConfig, 0, len(c.Stages)+2)
		out = append(out, c.LaserGen)
		for i, s := range c.Stages {
			if s == nil {
				return nil, core.NewValidationError("stages", fmt.Sprintf("entry %d is empty", i))
			}
			if f := s.Family(); f == stage.FamilyLaserGen || f == stage.FamilyMetrics {
				return nil, core.NewValidationError("stages", fmt.Sprintf("entry %d (%s) may not be a %s stage", i, s.StageName(), f))
			}
			out = append(out, s)
		}
		return append(out, c.Metrics), nil
	}
	middle := []StageConfig{c.Stretcher, c.Fiber, c.Amp, c.Compressor}
	for i, s := range middle {
		if s == nil {
			return nil, core.NewValidationError("default chain", fmt.Sprintf("stage %d is not configured", i+1))
		}
	}
	return append(append([]StageConfig{c.LaserGen}, middle...), c.Metrics), nil
}

// ResolvedBanks returns the stage banks with empty families seeded from the
// single-stage fields.
func (c PipelineConfig) ResolvedBanks() map[stage.Family]map[string]StageConfig {
	banks := make(map[stage.Family]map[string]StageConfig, len(stage.Families))
	for _, f := range stage.Families {
		banks[f] = map[string]StageConfig{}
		for k, v := range c.Banks[f] {
			banks[f][k] = v
		}
	}
	seed := func(f stage.Family, cfgs ...StageConfig) {
		if len(banks[f]) > 0 {
			return
		}
		for _, s := range cfgs {
			if s != nil {
				banks[f][string(s.StageName())] = s
			}
		}
	}
	seed(stage.FamilyLaserGen, c.LaserGen)
	seed(stage.FamilyFreeSpace, c.Stretcher, c.Compressor)
	seed(stage.FamilyFiber, c.Fiber)
	seed(stage.FamilyAmp, c.Amp)
	seed(stage.FamilyMetrics, c.Metrics)
	return banks
}

func (c PipelineConfig) resolveChain() ([]StageConfig, error) {
	if len(c.Chain) == 0 {
		return nil, core.ErrEmptyChain
	}
	first, last := c.Chain[0], c.Chain[len(c.Chain)-1]
	if first.Family != stage.FamilyLaserGen || last.Family != stage.FamilyMetrics {
		return nil, fmt.Errorf("%w: got %s ... %s", core.ErrChainEndpoints, first.Family, last.Family)
	}

	banks := c.ResolvedBanks()
	out := make([]StageConfig, 0, len(c.Chain))
	for _, ref := range c.Chain {
		if !ref.Family.Valid() {
			return nil, fmt.Errorf("%w: stage_type %q", core.ErrUnknownKind, ref.Family)
		}
		cfg, ok := banks[ref.Family][ref.Key]
		if !ok {
			return nil, core.NewMissingStageRefError(string(ref.Family), ref.Key)
		}
		if cfg.Family() != ref.Family {
			return nil, core.NewValidationError("stage_chain", fmt.Sprintf("%s resolves to a %s stage", ref, cfg.Family()))
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Plan resolves the topology into a stage plan.
func (c PipelineConfig) Plan() (stage.Plan, error) {
	stages, err := c.Topology()
	if err != nil {
		return stage.Plan{}, err
	}
	plan := stage.Plan{Stages: make([]stage.Spec, len(stages))}
	for i, s := range stages {
		plan.Stages[i] = stage.Spec{Name: s.StageName(), Family: s.Family(), Kind: s.Kind()}
	}
	return plan, plan.Validate()
}

// Warnings returns deprecation notices from upgrades and from stage configs.
func (c PipelineConfig) Warnings() []string {
	out := append([]string(nil), c.Deprecations...)
	stages, err := c.Topology()
	if err != nil {
		return out
	}
	for _, s := range stages {
		if w, ok := s.(Warner); ok {
			out = append(out, w.Warnings()...)
		}
	}
	return out
}

// envelope tags a stage config with its discriminators for hashing and dumps.
type envelope struct {
	Family stage.Family `json:"family"`
	Kind   stage.Kind   `json:"kind"`
	Config StageConfig  `json:"config"`
}

func wrap(s StageConfig) *envelope {
	if s == nil {
		return nil
	}
	return &envelope{Family: s.Family(), Kind: s.Kind(), Config: s}
}

// MarshalJSON renders the canonical form used for the config hash.
func (c PipelineConfig) MarshalJSON() ([]byte, error) {
	stages := make([]*envelope, len(c.Stages))
	for i, s := range c.Stages {
		stages[i] = wrap(s)
	}
	banks := map[string]map[string]*envelope{}
	for f, bank := range c.Banks {
		banks[string(f)] = map[string]*envelope{}
		for k, s := range bank {
			banks[string(f)][k] = wrap(s)
		}
	}
	return json.Marshal(map[string]any{
		"name":       c.Name,
		"runtime":    c.Runtime,
		"laser_gen":  wrap(c.LaserGen),
		"stretcher":  wrap(c.Stretcher),
		"fiber":      wrap(c.Fiber),
		"amp":        wrap(c.Amp),
		"compressor": wrap(c.Compressor),
		"metrics":    wrap(c.Metrics),
		"stages":     stages,
		"banks":      banks,
		"chain":      c.Chain,
	})
}

// Hash returns the content hash of the canonical configuration.
func (c PipelineConfig) Hash() (core.ConfigHash, error) {
	h, err := core.HashJSON(c)
	if err != nil {
		return "", fmt.Errorf("failed to hash pipeline config: %w", err)
	}
	return core.ConfigHash(h), nil
}
