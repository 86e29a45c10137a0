package testkit

import (
	"context"
	"sync"

	"gosim/domain/core"
	"gosim/domain/run"
	"gosim/internal"
	"gosim/internal/random"
	"gosim/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	ledger *InMemoryLedgerAdapter // Shared ledger instance
	seed   int64
}

// NewTestKit creates a test kit whose sources all derive from seed
func NewTestKit(seed int64) *TestKit {
	return &TestKit{ledger: NewInMemoryLedgerAdapter(), seed: seed}
}

// Seed returns the root seed of the kit
func (t *TestKit) Seed() int64 {
	return t.seed
}

// Source returns a fresh source for the kit's seed. Two calls return
// sources that produce identical streams.
func (t *TestKit) Source() *random.Source {
	return random.New(t.seed)
}

// LedgerAdapter returns the shared in-memory ledger
func (t *TestKit) LedgerAdapter() ports.LedgerPort {
	return t.ledger
}

// Ledger returns the concrete ledger for assertions
func (t *TestKit) Ledger() *InMemoryLedgerAdapter {
	return t.ledger
}

// Logger returns a logger that discards output
func (t *TestKit) Logger() *internal.Logger {
	return internal.NewNopLogger()
}

// InMemoryLedgerAdapter implements LedgerPort with in-memory storage
type InMemoryLedgerAdapter struct {
	runs  map[core.RunID]run.Record
	order []core.RunID
	mu    sync.RWMutex
}

func NewInMemoryLedgerAdapter() *InMemoryLedgerAdapter {
	return &InMemoryLedgerAdapter{
		runs: make(map[core.RunID]run.Record),
	}
}

func (s *InMemoryLedgerAdapter) SaveRun(ctx context.Context, record *run.Record) error {
	if record == nil || record.ID == "" {
		return core.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.runs[record.ID] = *record
	return nil
}

func (s *InMemoryLedgerAdapter) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.runs[id]
	if !exists {
		return nil, core.ErrRunNotFound
	}
	return &rec, nil
}

func (s *InMemoryLedgerAdapter) ListRuns(ctx context.Context, filters ports.RunFilters) ([]*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*run.Record
	skipped := 0
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.runs[s.order[i]]
		// Apply filters
		if filters.Kind != nil && rec.Kind != *filters.Kind {
			continue
		}
		if filters.Fingerprint != nil && rec.Fingerprint.Fingerprint != *filters.Fingerprint {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		results = append(results, &rec)
		if filters.Limit > 0 && len(results) >= filters.Limit {
			break
		}
	}
	return results, nil
}

// Len returns the number of stored runs
func (s *InMemoryLedgerAdapter) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
