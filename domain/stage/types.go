package stage

import (
	"fmt"

	"cpasim/domain/core"
)

// Name is the user-facing name of a stage instance. It namespaces metrics and artifacts.
type Name string

// Family groups stage kinds that occupy the same slot in a chain.
type Family string

// Kind selects the concrete implementation inside a family.
type Kind string

const (
	FamilyLaserGen  Family = "laser_gen"
	FamilyFreeSpace Family = "free_space"
	FamilyFiber     Family = "fiber"
	FamilyAmp       Family = "amp"
	FamilyMetrics   Family = "metrics"
)

const (
	KindAnalytic            Kind = "analytic"
	KindPhaseOnlyDispersion Kind = "phase_only_dispersion"
	KindTreacyGratingPair   Kind = "treacy_grating_pair"
	KindFiber               Kind = "fiber"
	KindSimpleGain          Kind = "simple_gain"
	KindToyFiberAmp         Kind = "toy_fiber_amp"
	KindFiberAmpWrap        Kind = "fiber_amp_wrap"
	KindStandardMetrics     Kind = "standard"
)

// Canonical stage names used by the default chain.
const (
	NameLaserInit  Name = "laser_init"
	NameStretcher  Name = "stretcher"
	NameFiber      Name = "fiber"
	NameAmp        Name = "amp"
	NameCompressor Name = "compressor"
	NameMetrics    Name = "metrics"
)

// Families lists every family in chain order.
var Families = []Family{FamilyLaserGen, FamilyFreeSpace, FamilyFiber, FamilyAmp, FamilyMetrics}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// Ref points at a stage config inside a named bank.
type Ref struct {
	Family Family `json:"stage_type"`
	Key    string `json:"key"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Family, r.Key)
}

// Spec is one resolved entry of a stage plan.
type Spec struct {
	Name   Name   `json:"name"`
	Family Family `json:"family"`
	Kind   Kind   `json:"kind"`
}

// Plan is the ordered, resolved stage list of a pipeline.
type Plan struct {
	Stages []Spec `json:"stages"`
}

// Hash computes a deterministic hash of the stage order.
func (p Plan) Hash() core.Hash {
	h, err := core.HashJSON(p.Stages)
	if err != nil {
		return ""
	}
	return h
}

// Validate checks the plan shape. A stage name may repeat; later runs of the
// same stage overwrite its metric keys.
func (p Plan) Validate() error {
	if len(p.Stages) == 0 {
		return core.ErrEmptyChain
	}
	if p.Stages[0].Family != FamilyLaserGen || p.Stages[len(p.Stages)-1].Family != FamilyMetrics {
		return fmt.Errorf("%w: got %s ... %s", core.ErrChainEndpoints,
			p.Stages[0].Family, p.Stages[len(p.Stages)-1].Family)
	}

	for _, s := range p.Stages {
		if s.Name == "" {
			return core.NewValidationError("stage", "name cannot be empty")
		}
	}
	return nil
}

// Names returns the stage names in execution order.
func (p Plan) Names() []Name {
	out := make([]Name, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = s.Name
	}
	return out
}
