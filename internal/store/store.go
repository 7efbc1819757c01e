// Package store defines the Ledger interface for recording generate runs
// and verifications.
package store

import (
	"context"
	"time"
)

// Run records one completed generate invocation.
type Run struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Output           string    `json:"output"`
	Seed             uint64    `json:"seed"`
	Doors            int       `json:"doors"`
	Floors           int       `json:"floors"`
	RetryThreshold   int       `json:"retry_threshold"`
	DistributionHash string    `json:"distribution_hash"`
	Seconds          int       `json:"seconds"`
	Events           int       `json:"events"`
	Collisions       int       `json:"collisions"`
	RepairScans      int       `json:"repair_scans"`
	Wraps            int       `json:"wraps"`
	DurationMS       int64     `json:"duration_ms"`
}

// Verification records one verify invocation.
type Verification struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Reference      string    `json:"reference"`
	Candidate      string    `json:"candidate"`
	Outcome        string    `json:"outcome"` // "match", "content_mismatch", "length_mismatch", "reference_missing", "candidate_missing"
	ExitCode       int       `json:"exit_code"`
	Line           int       `json:"line,omitempty"`
	ReferenceLines int       `json:"reference_lines"`
	CandidateLines int       `json:"candidate_lines"`
}

// Ledger stores the history of runs and verifications.
type Ledger interface {
	// RecordRun stores a run. An empty ID is filled in and returned.
	RecordRun(ctx context.Context, run Run) (string, error)

	// RecordVerification stores a verification. An empty ID is filled in and returned.
	RecordVerification(ctx context.Context, v Verification) (string, error)

	// Runs returns the most recent runs, newest first. limit <= 0 returns all.
	Runs(ctx context.Context, limit int) ([]Run, error)

	// Verifications returns the most recent verifications, newest first.
	Verifications(ctx context.Context, limit int) ([]Verification, error)

	Close() error
}
