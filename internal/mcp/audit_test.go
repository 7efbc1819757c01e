package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readAuditEntries(t *testing.T, root string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(root, ".doorsim", AuditFileName))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parsing audit entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning audit log: %v", err)
	}
	return entries
}

func TestAuditLogger_NilSafety(t *testing.T) {
	t.Run("nil logger Log is no-op", func(t *testing.T) {
		var logger *AuditLogger
		logger.Log(AuditEntry{Tool: "test"})
	})

	t.Run("nil logger Close is no-op", func(t *testing.T) {
		var logger *AuditLogger
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on nil logger returned error: %v", err)
		}
	})
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	root := t.TempDir()
	logger := NewAuditLogger(root)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	defer logger.Close()

	logger.Log(AuditEntry{
		Timestamp:  time.Now(),
		Tool:       "doorsim_generate",
		DurationMs: 42,
		Status:     "success",
		Params:     map[string]string{"seed": "7"},
	})

	entries := readAuditEntries(t, root)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Tool != "doorsim_generate" {
		t.Errorf("tool = %q, want doorsim_generate", entry.Tool)
	}
	if entry.DurationMs != 42 {
		t.Errorf("duration_ms = %d, want 42", entry.DurationMs)
	}
	if entry.Params["seed"] != "7" {
		t.Errorf("params[seed] = %q, want 7", entry.Params["seed"])
	}
}

func TestAuditLogger_FilePermissions(t *testing.T) {
	root := t.TempDir()
	logger := NewAuditLogger(root)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	defer logger.Close()

	info, err := os.Stat(filepath.Join(root, ".doorsim", AuditFileName))
	if err != nil {
		t.Fatalf("stat audit log: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("audit log permissions = %o, want 0600", perm)
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	root := t.TempDir()
	logger := NewAuditLogger(root)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEntry{Tool: "doorsim_stats", Status: "success"})
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := len(readAuditEntries(t, root)); got != n {
		t.Errorf("got %d entries, want %d", got, n)
	}
}

func TestAuditLogger_NonFatalOnBadPath(t *testing.T) {
	// A regular file where the .doorsim directory should be.
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".doorsim"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	logger := NewAuditLogger(root)
	if logger != nil {
		logger.Close()
		t.Fatal("expected nil logger when the directory cannot be created")
	}
	logger.Log(AuditEntry{Tool: "doorsim_verify"})
}

func TestAuditLogger_CloseTwice(t *testing.T) {
	logger := NewAuditLogger(t.TempDir())
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	logger.Log(AuditEntry{Tool: "after close"})
}

func TestSanitizeToolParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   map[string]string
	}{
		{
			name:   "nil params",
			params: nil,
			want:   nil,
		},
		{
			name:   "safe values are kept",
			params: map[string]any{"seed": uint64(42), "doors": 20, "floors": 10},
			want:   map[string]string{"seed": "42", "doors": "20", "floors": "10", "_param_count": "3"},
		},
		{
			name:   "paths are presence only",
			params: map[string]any{"mock": "/home/me/1_mock_data/mock_data.csv", "extracted": "x.csv"},
			want:   map[string]string{"mock": "(set)", "extracted": "(set)", "_param_count": "2"},
		},
		{
			name:   "empty and nil skipped",
			params: map[string]any{"output": "", "distribution": nil, "limit": 5},
			want:   map[string]string{"limit": "5", "_param_count": "1"},
		},
		{
			name:   "unknown keys counted but not logged",
			params: map[string]any{"secret": "hunter2"},
			want:   map[string]string{"_param_count": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeToolParams(tt.params)
			if tt.want == nil {
				if got != nil {
					t.Errorf("sanitizeToolParams() = %v, want nil", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Errorf("sanitizeToolParams() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("params[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestAuditTool_Integration(t *testing.T) {
	root := t.TempDir()
	s := &Server{auditLogger: NewAuditLogger(root)}
	if s.auditLogger == nil {
		t.Fatal("expected non-nil logger")
	}

	start := time.Now()
	s.auditTool("doorsim_verify", start, nil, map[string]string{"_param_count": "0"})
	s.auditTool("doorsim_generate", start, errors.New("boom"), nil)
	if err := s.auditLogger.Close(); err != nil {
		t.Fatal(err)
	}

	entries := readAuditEntries(t, root)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Status != "success" || entries[0].Error != "" {
		t.Errorf("first entry = %+v, want success without error", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Errorf("second entry = %+v, want error boom", entries[1])
	}
}
