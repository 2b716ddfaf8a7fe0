package pipeline

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpasim/adapters/optics/backend"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
	"cpasim/ports"
)

func fixedClock(ts string) func() core.Timestamp {
	return func() core.Timestamp {
		t, _ := time.Parse(time.RFC3339, ts)
		return core.NewTimestamp(t)
	}
}

func quietDeps() Dependencies {
	return Dependencies{
		Logger: log.New(io.Discard, "", 0),
		Clock:  fixedClock("2024-05-01T12:00:00Z"),
	}
}

// spyStage records the metric keys visible when it runs.
type spyStage struct {
	name  stage.Name
	calls *[]stage.Name
	seen  map[stage.Name][]string
	fail  error
}

func (s *spyStage) Name() stage.Name { return s.name }

func (s *spyStage) Process(in *pulse.LaserState, _ stage.Policy) (stage.Result, error) {
	*s.calls = append(*s.calls, s.name)
	if s.fail != nil {
		return stage.Result{}, s.fail
	}
	for k := range in.Metrics {
		s.seen[s.name] = append(s.seen[s.name], k)
	}
	out := in.Clone()
	return stage.Result{State: out, Metrics: map[string]float64{string(s.name) + ".order": float64(len(*s.calls))}}, nil
}

func spyRegistry(calls *[]stage.Name, seen map[stage.Name][]string, fail error) *Registry {
	r := DefaultRegistry()
	r.Register(stage.KindSimpleGain, func(cfg config.StageConfig, _ Dependencies) (ports.Stage, error) {
		return &spyStage{name: cfg.StageName(), calls: calls, seen: seen, fail: fail}, nil
	})
	return r
}

func gain(name stage.Name) config.SimpleGainConfig {
	return config.SimpleGainConfig{Name: name, GainLinear: 1}
}

func TestRun_DefaultPipeline(t *testing.T) {
	res, err := Run(config.DefaultPipelineConfig(), nil, quietDeps())
	require.NoError(t, err)

	assert.Equal(t, []stage.Name{"laser_init", "stretcher", "fiber", "amp", "compressor", "metrics"}, res.Plan.Names())
	assert.Contains(t, res.Metrics, "cpa.laser_init.laser.energy_au")
	assert.Contains(t, res.Metrics, "cpa.stretcher.stretcher.gdd_fs2")
	assert.InDelta(t, 100.0, res.Metrics["cpa.metrics.summary.fwhm_fs"], 1.0)
	assert.InDelta(t, 1.0, res.Metrics["cpa.metrics.summary.amplification_ratio"], 1e-9)

	// Stage-local and pipeline views agree.
	assert.Equal(t, res.State.Metrics["summary.fwhm_fs"], res.Metrics["cpa.metrics.summary.fwhm_fs"])
	assert.Equal(t, res.Metrics["cpa.amp.amp.gain_linear"], res.StageMetrics("cpa", "amp")["amp.gain_linear"])

	require.Len(t, res.Timings, 6)
	assert.Equal(t, stage.Name("metrics"), res.Timings[5].Stage)
	assert.Equal(t, res.Provenance, res.State.Meta["provenance"])
	require.NoError(t, res.Provenance.Validate())
	assert.Empty(t, res.Provenance.PolicyHash)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.Runtime.Seed = 42
	cfg.Fiber = config.FiberConfig{Name: "fiber", Physics: config.DefaultFiberPhysics(), Numerics: config.ToyPhaseNumerics{NonlinearPhaseRad: 1.5}}

	first, err := Run(cfg, nil, quietDeps())
	require.NoError(t, err)
	second, err := Run(cfg, nil, quietDeps())
	require.NoError(t, err)

	assert.Equal(t, first.State.Pulse.FieldT, second.State.Pulse.FieldT)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.Provenance.RunID, second.Provenance.RunID)

	later := quietDeps()
	later.Clock = fixedClock("2024-05-02T12:00:00Z")
	third, err := Run(cfg, nil, later)
	require.NoError(t, err)
	assert.Equal(t, first.Metrics, third.Metrics)
	assert.NotEqual(t, first.Provenance.RunID, third.Provenance.RunID)

	h1, err := first.State.Hash()
	require.NoError(t, err)
	h3, err := third.State.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
}

func TestRun_StageOrderAndVisibility(t *testing.T) {
	var calls []stage.Name
	seen := map[stage.Name][]string{}
	cfg := config.DefaultPipelineConfig().WithStages(gain("a"), gain("b"), gain("c"))

	p, err := Build(cfg, spyRegistry(&calls, seen, nil), quietDeps())
	require.NoError(t, err)
	res, err := p.Run(nil)
	require.NoError(t, err)

	assert.Equal(t, []stage.Name{"a", "b", "c"}, calls)
	assert.Equal(t, 1.0, res.Metrics["cpa.a.a.order"])
	assert.Equal(t, 3.0, res.Metrics["cpa.c.c.order"])
	assert.NotContains(t, seen["a"], "b.order")
	assert.Contains(t, seen["c"], "b.order")
	assert.Contains(t, seen["a"], "laser.energy_au")
}

func TestBuild_FailuresAbortBeforeAnyStage(t *testing.T) {
	withChain := func(chain ...stage.Ref) config.PipelineConfig {
		cfg := config.DefaultPipelineConfig()
		cfg.Chain = append([]stage.Ref{}, chain...)
		return cfg
	}
	laser := stage.Ref{Family: stage.FamilyLaserGen, Key: "laser_init"}
	metrics := stage.Ref{Family: stage.FamilyMetrics, Key: "metrics"}

	solverFiber := config.DefaultPipelineConfig()
	solverFiber.Fiber = config.FiberConfig{Name: "fiber", Physics: config.DefaultFiberPhysics(), Numerics: config.DefaultSolverNumerics()}

	tests := []struct {
		name     string
		cfg      config.PipelineConfig
		registry *Registry
		want     error
	}{
		{"missing bank key", withChain(laser, stage.Ref{Family: stage.FamilyAmp, Key: "booster"}, metrics), nil, core.ErrMissingStageRef},
		{"empty chain", withChain(), nil, core.ErrEmptyChain},
		{"bad endpoints", withChain(metrics, laser), nil, core.ErrChainEndpoints},
		{"unknown family", withChain(laser, stage.Ref{Family: "mirror", Key: "m1"}, metrics), nil, core.ErrUnknownKind},
		{"unregistered kind", config.DefaultPipelineConfig(), NewRegistry(), core.ErrUnknownKind},
		{"solver without capability", solverFiber, nil, core.ErrMissingCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []stage.Name
			registry := tt.registry
			if registry == nil {
				registry = spyRegistry(&calls, map[stage.Name][]string{}, nil)
			}
			_, err := Build(tt.cfg, registry, quietDeps())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, calls)
		})
	}
}

func TestBuild_ChainFromBanks(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.Banks = map[stage.Family]map[string]config.StageConfig{
		stage.FamilyAmp: {"pre": gain("pre"), "booster": gain("booster")},
	}
	cfg.Chain = []stage.Ref{
		{Family: stage.FamilyLaserGen, Key: "laser_init"},
		{Family: stage.FamilyAmp, Key: "booster"},
		{Family: stage.FamilyAmp, Key: "pre"},
		{Family: stage.FamilyMetrics, Key: "metrics"},
	}

	p, err := Build(cfg, DefaultRegistry(), quietDeps())
	require.NoError(t, err)
	assert.Equal(t, []stage.Name{"laser_init", "booster", "pre", "metrics"}, p.Plan().Names())
	assert.Equal(t, "cpa", p.Name())
	assert.NotEmpty(t, p.ConfigHash())
}

type recordingObserver struct {
	stages []stage.Name
	kinds  []stage.Kind
	errs   []error
}

func (o *recordingObserver) ObserveStage(name stage.Name, kind stage.Kind, _ time.Duration, err error) {
	o.stages = append(o.stages, name)
	o.kinds = append(o.kinds, kind)
	o.errs = append(o.errs, err)
}

func TestRun_ObserverAndFailure(t *testing.T) {
	var calls []stage.Name
	boom := core.NewDomainError("amp", "non-positive gain")
	obs := &recordingObserver{}
	deps := quietDeps()
	deps.Observer = obs

	p, err := Build(config.DefaultPipelineConfig(), spyRegistry(&calls, map[stage.Name][]string{}, boom), deps)
	require.NoError(t, err)
	_, err = p.Run(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPhysicalDomain))
	assert.Contains(t, err.Error(), "stage amp")

	assert.Equal(t, []stage.Name{"laser_init", "stretcher", "fiber", "amp"}, obs.stages)
	assert.Equal(t, stage.KindSimpleGain, obs.kinds[3])
	assert.NoError(t, obs.errs[2])
	assert.Equal(t, boom, obs.errs[3])
}

type fakeExporter struct {
	dirs  []string
	names []stage.Name
}

func (f *fakeExporter) ExportTraces(name stage.Name, _ *pulse.LaserState, dir string) (map[string]string, error) {
	f.dirs = append(f.dirs, dir)
	f.names = append(f.names, name)
	return map[string]string{string(name) + ".trace_workbook": dir + "/" + string(name) + "_traces.xlsx"}, nil
}

func TestRun_TraceEmissionIsPolicyGated(t *testing.T) {
	exporter := &fakeExporter{}
	deps := quietDeps()
	deps.TraceExporter = exporter

	res, err := Run(config.DefaultPipelineConfig(), nil, deps)
	require.NoError(t, err)
	assert.Empty(t, exporter.names)
	assert.Empty(t, res.Artifacts)

	policy := stage.Policy{stage.PolicyEmitStagePlotsLegacy: true, stage.PolicyStagePlotDir: "out/traces"}
	res, err = Run(config.DefaultPipelineConfig(), policy, deps)
	require.NoError(t, err)
	assert.Len(t, exporter.names, 6)
	assert.Equal(t, "out/traces", exporter.dirs[0])
	assert.Equal(t, "out/traces/fiber_traces.xlsx", res.Artifacts["fiber.trace_workbook"])
	assert.Equal(t, res.Artifacts["fiber.trace_workbook"], res.State.Artifacts["fiber.trace_workbook"])
	assert.NotEmpty(t, res.Provenance.PolicyHash)
}

func TestRun_SolverBackendArtifacts(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.Fiber = config.FiberConfig{Name: "fiber", Physics: config.DefaultFiberPhysics(), Numerics: config.DefaultSolverNumerics()}
	deps := quietDeps()
	deps.Solver = backend.NewSplitStepSolver()

	res, err := Run(cfg, nil, deps)
	require.NoError(t, err)
	assert.Equal(t, "splitstep", res.Artifacts["fiber.backend"])
	assert.Equal(t, backend.SplitStepVersion, res.Artifacts["fiber.backend_version"])
	assert.InDelta(t, 1.0, res.Metrics["cpa.fiber.fiber.energy_ratio"], 1e-6)
}

func TestRun_CollectsWarnings(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.LaserGen.Spec.Pulse.WidthFs = config.Float(10)
	cfg.Deprecations = []string{"legacy fiber keys were upgraded"}

	res, err := Run(cfg, nil, quietDeps())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Warnings), 2)
	assert.Equal(t, "legacy fiber keys were upgraded", res.Warnings[0])
	assert.Contains(t, res.Warnings[1], "under-resolved")

	_, err = Run(cfg, stage.Policy{stage.PolicyStrictSampling: "true"}, quietDeps())
	assert.True(t, errors.Is(err, core.ErrSamplingPolicy))
}

func TestRegistry_Kinds(t *testing.T) {
	kinds := DefaultRegistry().Kinds()
	assert.Len(t, kinds, 8)
	assert.Contains(t, kinds, stage.KindFiberAmpWrap)

	_, err := NewRegistry().Lookup(stage.KindFiber)
	assert.True(t, errors.Is(err, core.ErrUnknownKind))
}
