package run

import (
	"cpasim/domain/core"
	"cpasim/domain/pulse"
	"cpasim/domain/stage"
)

// Provenance identifies a single run. It is created once and attached to
// the final state metadata under "provenance".
type Provenance struct {
	RunID      core.RunID      `json:"run_id"`
	CreatedUTC string          `json:"created_utc"`
	Seed       int64           `json:"seed"`
	ConfigHash core.ConfigHash `json:"config_hash"`
	PolicyHash core.PolicyHash `json:"policy_hash,omitempty"`
}

// NewProvenance derives the run id from seed, hashes and creation time.
func NewProvenance(seed int64, configHash core.ConfigHash, policyHash core.PolicyHash, created core.Timestamp) Provenance {
	createdUTC := created.ISO()
	return Provenance{
		RunID:      core.NewRunID(seed, configHash, policyHash, createdUTC),
		CreatedUTC: createdUTC,
		Seed:       seed,
		ConfigHash: configHash,
		PolicyHash: policyHash,
	}
}

// Validate checks that the provenance is complete.
func (p Provenance) Validate() error {
	if p.RunID == "" {
		return core.NewValidationError("provenance", "run_id cannot be empty")
	}
	if core.Hash(p.ConfigHash).IsEmpty() {
		return core.NewValidationError("provenance", "config_hash cannot be empty")
	}
	if p.CreatedUTC == "" {
		return core.NewValidationError("provenance", "created_utc cannot be empty")
	}
	return nil
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage      stage.Name `json:"stage"`
	DurationMs float64    `json:"duration_ms"`
}

// Result is the output of a pipeline run.
type Result struct {
	State      *pulse.LaserState  `json:"state"`
	Metrics    map[string]float64 `json:"metrics"`
	Artifacts  map[string]string  `json:"artifacts"`
	Provenance Provenance         `json:"provenance"`
	Plan       stage.Plan         `json:"plan"`
	Timings    []StageTiming      `json:"timings"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// StageMetrics returns the metrics of one stage with the pipeline and stage
// prefixes removed.
func (r *Result) StageMetrics(pipeline string, name stage.Name) map[string]float64 {
	prefix := pipeline + "." + string(name) + "."
	out := map[string]float64{}
	for k, v := range r.Metrics {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = v
		}
	}
	return out
}
