package ports

import (
	"context"

	"cpasim/domain/core"
	"cpasim/domain/run"
)

// RunLedgerWriter appends completed runs. Entries are never updated.
type RunLedgerWriter interface {
	RecordRun(ctx context.Context, entry run.LedgerEntry) error
}

// RunLedgerReader provides read-only access to recorded runs
type RunLedgerReader interface {
	GetRun(ctx context.Context, runID core.RunID) (*run.LedgerEntry, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]run.LedgerEntry, error)
}

// RunFilters for querying runs
type RunFilters struct {
	Pipeline   *string
	ConfigHash *core.ConfigHash
	Limit      int
	Offset     int
}

// RunLedger combines read and write access
type RunLedger interface {
	RunLedgerWriter
	RunLedgerReader
}
