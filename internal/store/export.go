package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// exportRecord is one JSONL line of an export. Exactly one of Run and
// Verification is set.
type exportRecord struct {
	Type         string        `json:"type"`
	Run          *Run          `json:"run,omitempty"`
	Verification *Verification `json:"verification,omitempty"`
}

// ExportJSONL writes every run and verification in l to w, one JSON
// object per line, runs first. It returns the number of records written.
func ExportJSONL(ctx context.Context, l Ledger, w io.Writer) (int, error) {
	runs, err := l.Runs(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list runs: %w", err)
	}
	verifications, err := l.Verifications(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list verifications: %w", err)
	}

	enc := json.NewEncoder(w)
	n := 0
	for i := range runs {
		if err := enc.Encode(exportRecord{Type: "run", Run: &runs[i]}); err != nil {
			return n, fmt.Errorf("failed to write run %s: %w", runs[i].ID, err)
		}
		n++
	}
	for i := range verifications {
		if err := enc.Encode(exportRecord{Type: "verification", Verification: &verifications[i]}); err != nil {
			return n, fmt.Errorf("failed to write verification %s: %w", verifications[i].ID, err)
		}
		n++
	}
	return n, nil
}
