package pipeline

import (
	"fmt"
	"sort"

	"cpasim/adapters/optics/stages"
	"cpasim/domain/config"
	"cpasim/domain/core"
	"cpasim/domain/stage"
	"cpasim/ports"
)

// Factory builds a stage from its config and the injected dependencies.
type Factory func(cfg config.StageConfig, deps Dependencies) (ports.Stage, error)

// Registry maps stage kinds to factories.
type Registry struct {
	factories map[stage.Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[stage.Kind]Factory)}
}

// Register binds kind to f, replacing any previous factory.
func (r *Registry) Register(kind stage.Kind, f Factory) {
	r.factories[kind] = f
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind stage.Kind) (Factory, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no stage implementation registered for kind %q", core.ErrUnknownKind, kind)
	}
	return f, nil
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []stage.Kind {
	kinds := make([]stage.Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// DefaultRegistry registers every built-in stage kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(stage.KindAnalytic, typed(func(c config.LaserGenConfig, _ Dependencies) (ports.Stage, error) {
		return stages.NewLaserGen(c), nil
	}))
	r.Register(stage.KindPhaseOnlyDispersion, typed(func(c config.PhaseOnlyDispersionConfig, _ Dependencies) (ports.Stage, error) {
		return stages.NewPhaseOnlyDispersion(c), nil
	}))
	r.Register(stage.KindTreacyGratingPair, typed(func(c config.TreacyGratingPairConfig, _ Dependencies) (ports.Stage, error) {
		return stages.NewTreacyGratingPair(c), nil
	}))
	r.Register(stage.KindFiber, typed(func(c config.FiberConfig, deps Dependencies) (ports.Stage, error) {
		return stages.NewFiber(c, deps.Solver)
	}))
	r.Register(stage.KindSimpleGain, typed(func(c config.SimpleGainConfig, _ Dependencies) (ports.Stage, error) {
		return stages.NewSimpleGain(c), nil
	}))
	r.Register(stage.KindToyFiberAmp, typed(func(c config.ToyFiberAmpConfig, _ Dependencies) (ports.Stage, error) {
		return stages.NewToyFiberAmp(c), nil
	}))
	r.Register(stage.KindFiberAmpWrap, typed(func(c config.FiberAmpWrapConfig, deps Dependencies) (ports.Stage, error) {
		return stages.NewFiberAmpWrap(c, deps.Solver)
	}))
	r.Register(stage.KindStandardMetrics, typed(func(c config.MetricsConfig, _ Dependencies) (ports.Stage, error) {
		return stages.NewMetrics(c), nil
	}))
	return r
}

// typed adapts a factory over a concrete config type.
func typed[T config.StageConfig](build func(T, Dependencies) (ports.Stage, error)) Factory {
	return func(cfg config.StageConfig, deps Dependencies) (ports.Stage, error) {
		c, ok := cfg.(T)
		if !ok {
			return nil, fmt.Errorf("%w: kind %q cannot be built from %T", core.ErrUnknownKind, cfg.Kind(), cfg)
		}
		return build(c, deps)
	}
}
