package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"cpasim/domain/core"
	"cpasim/domain/run"
	appErrors "cpasim/internal/errors"
	"cpasim/ports"
)

// ErrRunNotFound is returned when no ledger entry matches a run ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, run_id, pipeline, created_utc, seed, config_hash, policy_hash, state_hash, stage_count, metrics_json`

// RunRepositoryImpl implements ports.RunLedger over sqlx.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a run ledger repository
func NewRunRepository(db *sqlx.DB) ports.RunLedger {
	return &RunRepositoryImpl{db: db}
}

// RecordRun appends a ledger entry.
func (r *RunRepositoryImpl) RecordRun(ctx context.Context, entry run.LedgerEntry) error {
	if entry.ID.IsEmpty() {
		entry.ID = core.NewID()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (:id, :run_id, :pipeline, :created_utc, :seed, :config_hash, :policy_hash, :state_hash, :stage_count, :metrics_json)
	`, entry)
	if err != nil {
		return appErrors.DatabaseError(fmt.Sprintf("failed to record run %s", entry.RunID), err)
	}
	return nil
}

// GetRun returns the most recently recorded entry for runID.
func (r *RunRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*run.LedgerEntry, error) {
	var entry run.LedgerEntry
	err := r.db.GetContext(ctx, &entry, r.db.Rebind(`
		SELECT `+runColumns+`
		FROM runs
		WHERE run_id = ?
		ORDER BY created_utc DESC, id DESC
		LIMIT 1
	`), runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, appErrors.DatabaseError("failed to get run", err)
	}
	return &entry, nil
}

// ListRuns returns entries newest first, filtered by pipeline and config hash.
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, filters ports.RunFilters) ([]run.LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	if filters.Pipeline != nil {
		where = append(where, "pipeline = ?")
		args = append(args, *filters.Pipeline)
	}
	if filters.ConfigHash != nil {
		where = append(where, "config_hash = ?")
		args = append(args, filters.ConfigHash.String())
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_utc DESC, id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	entries := []run.LedgerEntry{}
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, appErrors.DatabaseError("failed to list runs", err)
	}
	return entries, nil
}
