package pipeline

import (
	"log"
	"time"

	"cpasim/adapters/optics/backend"
	"cpasim/domain/core"
	"cpasim/domain/stage"
	"cpasim/ports"
)

// Observer is notified after every stage. It never influences results.
type Observer interface {
	ObserveStage(name stage.Name, kind stage.Kind, d time.Duration, err error)
}

// Dependencies are the capabilities injected into stage factories and the engine.
type Dependencies struct {
	Solver        backend.Solver
	Logger        *log.Logger
	TraceExporter ports.TraceExporter
	Observer      Observer
	Clock         func() core.Timestamp
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Clock == nil {
		d.Clock = core.Now
	}
	return d
}
