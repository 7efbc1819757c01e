// Package store provides run ledger implementations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteLedger implements Ledger using SQLite for persistence.
type SQLiteLedger struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteLedger opens the ledger rooted at projectRoot, creating
// .doorsim/doorsim.db on first use.
func NewSQLiteLedger(projectRoot string) (*SQLiteLedger, error) {
	dir, err := EnsureLocalDir(projectRoot)
	if err != nil {
		return nil, err
	}
	return OpenSQLiteLedger(filepath.Join(dir, DBName))
}

// OpenSQLiteLedger opens the ledger database at dbPath.
func OpenSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteLedger) Path() string {
	return s.dbPath
}

// RecordRun stores a run.
func (s *SQLiteLedger) RecordRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, output, seed, doors, floors, retry_threshold,
			distribution_hash, seconds, events, collisions, repair_scans,
			wraps, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Output,
		strconv.FormatUint(run.Seed, 10),
		run.Doors,
		run.Floors,
		run.RetryThreshold,
		nullString(run.DistributionHash),
		run.Seconds,
		run.Events,
		run.Collisions,
		run.RepairScans,
		run.Wraps,
		run.DurationMS,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return run.ID, nil
}

// RecordVerification stores a verification.
func (s *SQLiteLedger) RecordVerification(ctx context.Context, v Verification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verifications (
			id, created_at, reference, candidate, outcome, exit_code,
			line, reference_lines, candidate_lines
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.CreatedAt.UTC().Format(timeLayout),
		v.Reference,
		v.Candidate,
		v.Outcome,
		v.ExitCode,
		v.Line,
		v.ReferenceLines,
		v.CandidateLines,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert verification: %w", err)
	}
	return v.ID, nil
}

// Runs returns the most recent runs, newest first.
func (s *SQLiteLedger) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, output, seed, doors, floors, retry_threshold,
		       distribution_hash, seconds, events, collisions, repair_scans,
		       wraps, duration_ms
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			createdAt string
			seed      string
			hash      sql.NullString
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Output, &seed, &r.Doors, &r.Floors,
			&r.RetryThreshold, &hash, &r.Seconds, &r.Events, &r.Collisions,
			&r.RepairScans, &r.Wraps, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if r.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("run %s: invalid seed %q: %w", r.ID, seed, err)
		}
		r.DistributionHash = hash.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Verifications returns the most recent verifications, newest first.
func (s *SQLiteLedger) Verifications(ctx context.Context, limit int) ([]Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, reference, candidate, outcome, exit_code,
		       line, reference_lines, candidate_lines
		FROM verifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verifications: %w", err)
	}
	defer rows.Close()

	var out []Verification
	for rows.Next() {
		var (
			v         Verification
			createdAt string
		)
		if err := rows.Scan(&v.ID, &createdAt, &v.Reference, &v.Candidate, &v.Outcome,
			&v.ExitCode, &v.Line, &v.ReferenceLines, &v.CandidateLines); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		if v.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("verification %s: %w", v.ID, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verifications: %w", err)
	}
	return out, nil
}

// Reset drops all recorded history.
func (s *SQLiteLedger) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResetSchema(ctx, s.db)
}

// Close closes the database.
func (s *SQLiteLedger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.New("ledger already closed")
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
