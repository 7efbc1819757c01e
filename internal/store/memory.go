package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryLedger implements Ledger for testing and for runs with history
// disabled.
type InMemoryLedger struct {
	mu            sync.RWMutex
	runs          []Run
	verifications []Verification
}

// NewInMemoryLedger creates a new in-memory ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{}
}

// RecordRun adds a run to the ledger.
func (s *InMemoryLedger) RecordRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	s.runs = append(s.runs, run)
	return run.ID, nil
}

// RecordVerification adds a verification to the ledger.
func (s *InMemoryLedger) RecordVerification(ctx context.Context, v Verification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	s.verifications = append(s.verifications, v)
	return v.ID, nil
}

// Runs returns recorded runs, newest first.
func (s *InMemoryLedger) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.runs, limit), nil
}

// Verifications returns recorded verifications, newest first.
func (s *InMemoryLedger) Verifications(ctx context.Context, limit int) ([]Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.verifications, limit), nil
}

// Close is a no-op.
func (s *InMemoryLedger) Close() error {
	return nil
}

// newestFirst returns up to limit items of xs in reverse insertion order.
func newestFirst[T any](xs []T, limit int) []T {
	n := len(xs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(xs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, xs[i])
	}
	return out
}
