package stage

import "cpasim/domain/pulse"

// Result is what a stage hands back to the engine. Metric keys are already
// prefixed by the stage ("amp.gain_db", "laser.energy_au").
type Result struct {
	State   *pulse.LaserState
	Metrics map[string]float64
}
