// Package distribution holds the events-per-second frequency tables that
// drive event synthesis.
//
// A Table maps an event count k (the index) to c_k, the number of simulated
// seconds that contain exactly k events.
package distribution

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// Limits on the tables Validate accepts. A table sizes the synthesizer's
// timeline, so both bound memory.
const (
	MaxEventsPerSecond = 10000
	MaxSeconds         = 1 << 24
)

var (
	// ErrNegativeCount is returned when a table holds a negative occurrence count.
	ErrNegativeCount = errors.New("negative occurrence count")

	// ErrTooLarge is returned for tables beyond MaxEventsPerSecond or
	// MaxSeconds.
	ErrTooLarge = errors.New("distribution too large")
)

// Table is a dense events-per-second distribution. Table[k] is the number of
// seconds with exactly k events.
type Table []int

// Validate checks that every occurrence count is non-negative and that the
// table stays within MaxEventsPerSecond and MaxSeconds.
func (t Table) Validate() error {
	if len(t) > MaxEventsPerSecond+1 {
		return fmt.Errorf("%w: %d events per second, limit %d", ErrTooLarge, len(t)-1, MaxEventsPerSecond)
	}
	seconds := 0
	for k, c := range t {
		if c < 0 {
			return fmt.Errorf("events per second %d: %w (%d)", k, ErrNegativeCount, c)
		}
		if c > MaxSeconds-seconds {
			return fmt.Errorf("%w: more than %d seconds", ErrTooLarge, MaxSeconds)
		}
		seconds += c
	}
	return nil
}

// TotalSeconds returns Σ c_k, the length of the simulated timeline.
func (t Table) TotalSeconds() int {
	total := 0
	for _, c := range t {
		total += c
	}
	return total
}

// TotalEvents returns Σ k·c_k, the number of events a run emits.
func (t Table) TotalEvents() int {
	total := 0
	for k, c := range t {
		total += k * c
	}
	return total
}

// MaxEvents returns the largest k with a non-zero count, or -1 for an empty table.
func (t Table) MaxEvents() int {
	for k := len(t) - 1; k >= 0; k-- {
		if t[k] > 0 {
			return k
		}
	}
	return -1
}

// Trim returns the table without trailing zero counts.
func (t Table) Trim() Table {
	return t[:t.MaxEvents()+1]
}

// Hash returns a stable fingerprint of the table's significant entries, used
// to tell runs from different distributions apart in the run ledger.
func (t Table) Hash() string {
	h := sha256.New()
	var buf [8]byte
	for _, c := range t.Trim() {
		binary.LittleEndian.PutUint64(buf[:], uint64(c))
		h.Write(buf[:])
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Default returns the built-in empirical distribution observed over a
// building's door sensors: 10,822 seconds carrying 67,260 events.
func Default() Table {
	return Table{
		2104, 1814, 1226, 864, 672, 558, 410, 374, 310, 270, // 0-9
		246, 218, 184, 172, 138, 102, 116, 104, 84, 88, // 10-19
		68, 62, 52, 52, 42, 36, 34, 30, 34, 24, // 20-29
		24, 22, 18, 16, 20, 16, 14, 18, 16, 12, // 30-39
		10, 6, 8, 6, 6, 8, 10, 4, 6, 4, // 40-49
		4, 4, 4, 2, 4, 2, 2, 6, 2, 2, // 50-59
		2, 2, 2, 2, 2, 2, 2, 2, 2, 2, // 60-69
		2, 2, 2, 2, 2, 2, 2, 2, 2, 2, // 70-79
		2, 2, 0, 0, 2, 0, 0, 0, 0, 2, // 80-89
		0, 2, 2, 2, 0, 0, 0, 2, 0, 2, // 90-99
	}
}
