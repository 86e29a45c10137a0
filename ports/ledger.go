package ports

import (
	"context"

	"gosim/domain/core"
	"gosim/domain/run"
)

// LedgerWriterPort provides append-only write access to run records
type LedgerWriterPort interface {
	SaveRun(ctx context.Context, record *run.Record) error
}

// LedgerReaderPort provides read-only access to stored run records
type LedgerReaderPort interface {
	GetRun(ctx context.Context, id core.RunID) (*run.Record, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]*run.Record, error)
}

// RunFilters for querying run records, newest first
type RunFilters struct {
	Kind        *run.Kind
	Fingerprint *core.Hash
	Limit       int
	Offset      int
}

// LedgerPort combines read and write access
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}
