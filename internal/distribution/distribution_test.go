package distribution

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTotals(t *testing.T) {
	table := Default()

	if len(table) != 100 {
		t.Errorf("len(Default()) = %d, want 100", len(table))
	}
	if got := table.TotalSeconds(); got != 10822 {
		t.Errorf("TotalSeconds() = %d, want 10822", got)
	}
	if got := table.TotalEvents(); got != 67260 {
		t.Errorf("TotalEvents() = %d, want 67260", got)
	}
	if got := table.MaxEvents(); got != 99 {
		t.Errorf("MaxEvents() = %d, want 99", got)
	}
	if err := table.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTableTotals(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		seconds int
		events  int
		maxK    int
	}{
		{"empty", Table{}, 0, 0, -1},
		{"all zero", Table{0, 0, 0}, 0, 0, -1},
		{"only empty seconds", Table{5}, 5, 0, 0},
		{"single busy second", Table{0, 0, 0, 1}, 1, 3, 3},
		{"mixed", Table{2, 1, 3}, 6, 7, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.TotalSeconds(); got != tt.seconds {
				t.Errorf("TotalSeconds() = %d, want %d", got, tt.seconds)
			}
			if got := tt.table.TotalEvents(); got != tt.events {
				t.Errorf("TotalEvents() = %d, want %d", got, tt.events)
			}
			if got := tt.table.MaxEvents(); got != tt.maxK {
				t.Errorf("MaxEvents() = %d, want %d", got, tt.maxK)
			}
		})
	}
}

func TestValidateNegative(t *testing.T) {
	err := Table{1, -2, 3}.Validate()
	if !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("Validate() = %v, want ErrNegativeCount", err)
	}
	if !strings.Contains(err.Error(), "events per second 1") {
		t.Errorf("error %q does not name the offending entry", err)
	}
}

func TestValidateLimits(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		ok    bool
	}{
		{"widest table", make(Table, MaxEventsPerSecond+1), true},
		{"too wide", make(Table, MaxEventsPerSecond+2), false},
		{"longest timeline", Table{MaxSeconds - 1, 1}, true},
		{"too long", Table{MaxSeconds, 1}, false},
		{"sum overflow", Table{int(^uint(0) >> 1), 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrTooLarge) {
				t.Errorf("Validate() = %v, want ErrTooLarge", err)
			}
		})
	}
}

func TestHashIgnoresTrailingZeros(t *testing.T) {
	a := Table{3, 2, 1}
	b := Table{3, 2, 1, 0, 0}
	c := Table{3, 2, 2}

	if a.Hash() != b.Hash() {
		t.Errorf("Hash() differs for tables that only differ in trailing zeros")
	}
	if a.Hash() == c.Hash() {
		t.Errorf("Hash() equal for different tables")
	}
	if !strings.HasPrefix(a.Hash(), "sha256:") {
		t.Errorf("Hash() = %q, want sha256: prefix", a.Hash())
	}
}

func TestMarshalLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dist.yaml")

	data, err := Marshal("default", Default())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	want := Default()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("count[%d] = %d, want %d", k, got[k], want[k])
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"negative key", "counts:\n  -1: 4\n", "non-negative"},
		{"negative count", "counts:\n  0: 1\n  2: -4\n", "negative occurrence count"},
		{"no counts", "name: empty\n", "has no counts"},
		{"bad yaml", "counts: [1, 2\n", "parsing distribution file"},
		{"huge key", "counts:\n  1000000000: 1\n", "distribution too large"},
		{"huge count", "counts:\n  0: 1000000000000\n", "distribution too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("LoadFile() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFile() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if table.TotalSeconds() != Default().TotalSeconds() {
		t.Errorf("Load(\"\") did not return the default table")
	}
}

func TestFileKeysSorted(t *testing.T) {
	f := FromTable("x", Table{0, 4, 0, 2, 1})
	keys := f.Keys()
	want := []int{1, 3, 4}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys() = %v, want %v", keys, want)
		}
	}
}
