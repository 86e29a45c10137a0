package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"gosim/domain/core"
	"gosim/domain/run"
	"gosim/internal/errors"
	"gosim/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// RunRepositoryImpl implements LedgerPort for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run ledger
func NewRunRepository(db *sqlx.DB) ports.LedgerPort {
	return &RunRepositoryImpl{db: db}
}

// Connect opens and pings a PostgreSQL database
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

type runRow struct {
	ID        string    `db:"id"`
	Record    []byte    `db:"record"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveRun stores a run record, replacing any record with the same ID
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, record *run.Record) error {
	if record == nil || record.ID == "" {
		return errors.InvalidInput("run record has no ID")
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO simulation_runs (id, kind, fingerprint, seed, trials, workers, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			fingerprint = EXCLUDED.fingerprint,
			seed = EXCLUDED.seed,
			trials = EXCLUDED.trials,
			workers = EXCLUDED.workers,
			record = EXCLUDED.record`,
		record.ID.String(), string(record.Kind), record.Fingerprint.Fingerprint.String(),
		record.Seed(), record.Trials(), record.Workers, recordJSON, record.CreatedAt.Time())
	if err != nil {
		return errors.DatabaseError("failed to save run", err)
	}
	return nil
}

// GetRun retrieves a run record by ID
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, record, created_at
		FROM simulation_runs
		WHERE id = $1
	`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get run", err)
	}
	return decodeRun(row)
}

// ListRuns returns run records newest first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, filters ports.RunFilters) ([]*run.Record, error) {
	var kind, fingerprint string
	if filters.Kind != nil {
		kind = string(*filters.Kind)
	}
	if filters.Fingerprint != nil {
		fingerprint = filters.Fingerprint.String()
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, record, created_at
		FROM simulation_runs
		WHERE ($1::text = '' OR kind = $1::text)
		  AND ($2::text = '' OR fingerprint = $2::text)
		ORDER BY created_at DESC
		LIMIT NULLIF($3::int, 0) OFFSET $4::int
	`, kind, fingerprint, filters.Limit, filters.Offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}

	records := make([]*run.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRun(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRun(row runRow) (*run.Record, error) {
	var rec run.Record
	if err := json.Unmarshal(row.Record, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", row.ID, err)
	}
	return &rec, nil
}
