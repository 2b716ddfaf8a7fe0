package pulse

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"cpasim/domain/observables"
)

// FsToS converts femtoseconds to seconds.
const FsToS = 1e-15

// PulseState owns the complex envelope in both domains and its derived magnitudes.
// Derived arrays are only written by SetFieldT and SetFieldW.
type PulseState struct {
	Grid       PulseGrid    `json:"grid"`
	FieldT     []complex128 `json:"-"`
	FieldW     []complex128 `json:"-"`
	IntensityT []float64    `json:"intensity_t"`
	SpectrumW  []float64    `json:"spectrum_w"`
}

// NewPulseState builds a state from a time-domain envelope on grid.
func NewPulseState(grid PulseGrid, fieldT []complex128) PulseState {
	p := PulseState{Grid: grid}
	p.SetFieldT(fieldT)
	return p
}

// SetFieldT replaces the time envelope and recomputes everything derived from it.
func (p *PulseState) SetFieldT(fieldT []complex128) {
	p.FieldT = fieldT
	p.FieldW = Forward(fieldT)
	p.refreshDerived()
}

// SetFieldW replaces the spectral envelope and recomputes everything derived from it.
func (p *PulseState) SetFieldW(fieldW []complex128) {
	p.FieldW = fieldW
	p.FieldT = Inverse(fieldW)
	p.refreshDerived()
}

func (p *PulseState) refreshDerived() {
	p.IntensityT = AbsSquared(p.FieldT)
	p.SpectrumW = AbsSquared(p.FieldW)
}

// Energy returns Σ|A(t)|²·dt in arbitrary units (W·fs).
func (p PulseState) Energy() float64 {
	return floats.Sum(p.IntensityT) * p.Grid.Dt
}

// EnergyJ returns the pulse energy in joules.
func (p PulseState) EnergyJ() float64 {
	return p.Energy() * FsToS
}

// PeakIntensity returns max|A(t)|².
func (p PulseState) PeakIntensity() float64 {
	if len(p.IntensityT) == 0 {
		return 0
	}
	return floats.Max(p.IntensityT)
}

// Clone deep-copies every array.
func (p PulseState) Clone() PulseState {
	return PulseState{
		Grid:       p.Grid.Clone(),
		FieldT:     append([]complex128(nil), p.FieldT...),
		FieldW:     append([]complex128(nil), p.FieldW...),
		IntensityT: append([]float64(nil), p.IntensityT...),
		SpectrumW:  append([]float64(nil), p.SpectrumW...),
	}
}

// AbsSquared returns |x|² elementwise.
func AbsSquared(x []complex128) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		a := cmplx.Abs(v)
		out[i] = a * a
	}
	return out
}

// BeamState describes the transverse beam.
type BeamState struct {
	RadiusMm float64 `json:"radius_mm"`
	M2       float64 `json:"m2"`
}

// Trace is a reference intensity/spectrum pair captured before propagation.
type Trace struct {
	IntensityT []float64 `json:"intensity_t"`
	SpectrumW  []float64 `json:"spectrum_w"`
}

// LaserState is the value threaded through the pipeline.
type LaserState struct {
	Pulse     PulseState         `json:"pulse"`
	Beam      BeamState          `json:"beam"`
	Meta      map[string]any     `json:"meta"`
	Metrics   map[string]float64 `json:"metrics"`
	Artifacts map[string]string  `json:"artifacts"`
	Reference *Trace             `json:"reference,omitempty"`
}

// Placeholder returns the trivial state a pipeline starts from.
func Placeholder() *LaserState {
	grid := SpanGrid(0, 1, 2, 1030)
	return &LaserState{
		Pulse:     NewPulseState(grid, make([]complex128, 2)),
		Beam:      BeamState{RadiusMm: 1, M2: 1},
		Meta:      map[string]any{},
		Metrics:   map[string]float64{},
		Artifacts: map[string]string{},
	}
}

// Clone deep-copies the state so a stage can mutate it without aliasing its input.
func (s *LaserState) Clone() *LaserState {
	out := &LaserState{
		Pulse:     s.Pulse.Clone(),
		Beam:      s.Beam,
		Meta:      cloneMap(s.Meta),
		Metrics:   make(map[string]float64, len(s.Metrics)),
		Artifacts: make(map[string]string, len(s.Artifacts)),
	}
	for k, v := range s.Metrics {
		out.Metrics[k] = v
	}
	for k, v := range s.Artifacts {
		out.Artifacts[k] = v
	}
	if s.Reference != nil {
		out.Reference = &Trace{
			IntensityT: append([]float64(nil), s.Reference.IntensityT...),
			SpectrumW:  append([]float64(nil), s.Reference.SpectrumW...),
		}
	}
	return out
}

// MetaFloat reads a numeric metadata value.
func (s *LaserState) MetaFloat(key string) (float64, bool) {
	switch v := s.Meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// MetaSection returns the nested map under key, creating it when absent.
func (s *LaserState) MetaSection(key string) map[string]any {
	if m, ok := s.Meta[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	s.Meta[key] = m
	return m
}

// AddWarning appends a message to meta["warnings"].
func (s *LaserState) AddWarning(msg string) {
	ws, _ := s.Meta["warnings"].([]string)
	s.Meta["warnings"] = append(ws, msg)
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	case observables.Contract:
		return t.Clone()
	default:
		return v
	}
}
