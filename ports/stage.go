package ports

import (
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// Stage transforms a laser state. Implementations clone their input before
// mutating it and must not keep references to it after returning.
type Stage interface {
	Name() stage.Name
	Process(state *pulse.LaserState, policy stage.Policy) (stage.Result, error)
}

// TraceExporter writes diagnostic traces of a state and returns the written
// artifacts keyed by "<stage>.<artifact>".
type TraceExporter interface {
	ExportTraces(name stage.Name, state *pulse.LaserState, dir string) (map[string]string, error)
}
