package run

import (
	"encoding/json"
	"fmt"

	"cpasim/domain/core"
)

// LedgerEntry is the persisted summary of one run.
type LedgerEntry struct {
	ID          core.ID    `db:"id" json:"id"`
	RunID       core.RunID `db:"run_id" json:"run_id"`
	Pipeline    string     `db:"pipeline" json:"pipeline"`
	CreatedUTC  string     `db:"created_utc" json:"created_utc"`
	Seed        int64      `db:"seed" json:"seed"`
	ConfigHash  string     `db:"config_hash" json:"config_hash"`
	PolicyHash  string     `db:"policy_hash" json:"policy_hash"`
	StateHash   string     `db:"state_hash" json:"state_hash"`
	StageCount  int        `db:"stage_count" json:"stage_count"`
	MetricsJSON string     `db:"metrics_json" json:"-"`
}

// NewLedgerEntry summarises r for the run ledger.
func NewLedgerEntry(pipeline string, r *Result) (LedgerEntry, error) {
	if r == nil || r.State == nil {
		return LedgerEntry{}, fmt.Errorf("ledger entry requires a completed result")
	}
	stateHash, err := r.State.Hash()
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("failed to hash final state: %w", err)
	}
	metrics, err := core.CanonicalJSON(r.Metrics)
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("failed to encode metrics: %w", err)
	}
	return LedgerEntry{
		ID:          core.NewID(),
		RunID:       r.Provenance.RunID,
		Pipeline:    pipeline,
		CreatedUTC:  r.Provenance.CreatedUTC,
		Seed:        r.Provenance.Seed,
		ConfigHash:  r.Provenance.ConfigHash.String(),
		PolicyHash:  r.Provenance.PolicyHash.String(),
		StateHash:   stateHash.String(),
		StageCount:  len(r.Plan.Stages),
		MetricsJSON: string(metrics),
	}, nil
}

// Metrics decodes the stored metrics map.
func (e LedgerEntry) Metrics() (map[string]float64, error) {
	out := map[string]float64{}
	if e.MetricsJSON == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(e.MetricsJSON), &out); err != nil {
		return nil, fmt.Errorf("failed to decode ledger metrics: %w", err)
	}
	return out, nil
}
