// Package synth expands an events-per-second distribution into an ordered,
// timestamped stream of door sensor flips.
//
// A Run lays the distribution out as a timeline with one slot per simulated
// second, then consumes the slots in random order. Each consumed slot is the
// next second of virtual time and emits as many sensor flips as the slot
// holds. Random probing is bounded: after RetryThreshold consecutive draws
// land on consumed slots, a linear repair scan walks forward from the last
// draw to the next unconsumed slot, so a run always finishes in at most
// O(seconds) extra steps once probing degenerates.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/doorsim/internal/distribution"
	"github.com/nvandessel/doorsim/internal/eventlog"
	"github.com/nvandessel/doorsim/internal/logging"
)

const (
	// DefaultMaxDoors is the number of doors per floor.
	DefaultMaxDoors = 20

	// DefaultMaxFloors is the number of floors in the building.
	DefaultMaxFloors = 10

	// DefaultRetryThreshold is how many consecutive collisions random
	// probing tolerates before falling back to a repair scan.
	DefaultRetryThreshold = 1000

	// Consumed marks a timeline slot that has already been scheduled.
	Consumed = -1

	// MaxSensors bounds floors*doors.
	MaxSensors = 1 << 20

	// spinWarnAfter is the number of repair-scan wraparounds after which a
	// run reports that it is spinning.
	spinWarnAfter = 5
)

var (
	// ErrEmptyGrid is returned for grids without floors or doors.
	ErrEmptyGrid = errors.New("sensor grid must have at least one floor and one door")

	// ErrGridTooLarge is returned for grids with more than MaxSensors
	// sensors.
	ErrGridTooLarge = errors.New("sensor grid too large")

	// ErrThreshold is returned for a negative retry threshold.
	ErrThreshold = errors.New("retry threshold must not be negative")

	// ErrAlreadyExecuted is returned when Execute is called twice on a Run.
	ErrAlreadyExecuted = errors.New("run already executed")
)

// Source is the randomness a run draws from. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Options configures a synthesis run.
type Options struct {
	MaxDoors       int
	MaxFloors      int
	RetryThreshold int

	// Seed makes a run reproducible. Zero picks a seed from the wall clock;
	// the seed actually used is reported in Stats.
	Seed uint64

	// Source overrides the seeded generator. Used by tests to force
	// collisions.
	Source Source

	Logger *slog.Logger
	Trace  *logging.TraceLogger
}

// DefaultOptions returns the grid and threshold of the reference building.
func DefaultOptions() Options {
	return Options{
		MaxDoors:       DefaultMaxDoors,
		MaxFloors:      DefaultMaxFloors,
		RetryThreshold: DefaultRetryThreshold,
	}
}

// Stats summarizes a finished run.
type Stats struct {
	Seed        uint64 `json:"seed"`
	Seconds     int    `json:"seconds"`
	Events      int    `json:"events"`
	Draws       int    `json:"draws"`
	Collisions  int    `json:"collisions"`
	RepairScans int    `json:"repair_scans"`
	Wraps       int    `json:"wraps"`
	OpenSensors int    `json:"open_sensors"`
	FinalClock  string `json:"final_clock"`
}

// Run owns the mutable state of one synthesis: timeline, virtual clock,
// change counter and sensor grid. A Run is single-use and not safe for
// concurrent use.
type Run struct {
	opts Options
	src  Source
	log  *slog.Logger

	timeline  []int
	remaining int

	clock   eventlog.Timestamp
	ticks   int
	changes int
	grid    *Grid

	stats    Stats
	spinning bool
	executed bool
}

// NewRun validates the table and options and lays out the timeline.
func NewRun(table distribution.Table, opts Options) (*Run, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid distribution: %w", err)
	}
	if opts.MaxDoors <= 0 || opts.MaxFloors <= 0 {
		return nil, fmt.Errorf("%w (floors=%d, doors=%d)", ErrEmptyGrid, opts.MaxFloors, opts.MaxDoors)
	}
	if opts.MaxDoors > MaxSensors/opts.MaxFloors {
		return nil, fmt.Errorf("%w (floors=%d, doors=%d, limit %d sensors)", ErrGridTooLarge, opts.MaxFloors, opts.MaxDoors, MaxSensors)
	}
	if opts.RetryThreshold < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrThreshold, opts.RetryThreshold)
	}

	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	src := opts.Source
	if src == nil {
		src = rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	r := &Run{
		opts:     opts,
		src:      src,
		log:      log,
		timeline: expand(table),
		grid:     NewGrid(opts.MaxFloors, opts.MaxDoors),
	}
	r.remaining = len(r.timeline)
	r.stats.Seed = opts.Seed
	return r, nil
}

// expand returns c_k copies of k for every k, in increasing k.
func expand(table distribution.Table) []int {
	timeline := make([]int, 0, table.TotalSeconds())
	for k, c := range table {
		for n := 0; n < c; n++ {
			timeline = append(timeline, k)
		}
	}
	return timeline
}

// Execute schedules every slot of the timeline, passing each event to emit
// in order. An error from emit aborts the run.
func (r *Run) Execute(emit func(eventlog.Event) error) (Stats, error) {
	if r.executed {
		return r.stats, ErrAlreadyExecuted
	}
	r.executed = true

	total := len(r.timeline)
	r.log.Debug("synthesis started", "seed", r.opts.Seed, "seconds", total,
		"floors", r.opts.MaxFloors, "doors", r.opts.MaxDoors)

	retries := 0
	for r.remaining > 0 {
		i := r.src.IntN(total)
		r.stats.Draws++

		if r.timeline[i] != Consumed {
			retries = 0
			if err := r.consume(i, emit); err != nil {
				return r.stats, err
			}
			continue
		}

		r.stats.Collisions++
		retries++
		r.log.Log(context.Background(), logging.LevelTrace, "draw collision", "slot", i, "retries", retries)
		if retries <= r.opts.RetryThreshold {
			continue
		}

		retries = 0
		if err := r.consume(r.repairScan(i), emit); err != nil {
			return r.stats, err
		}
	}

	r.stats.OpenSensors = r.grid.Open()
	if r.ticks > 0 {
		r.stats.FinalClock = r.clock.String()
	}
	r.log.Debug("synthesis finished", "events", r.stats.Events, "seconds", r.stats.Seconds,
		"collisions", r.stats.Collisions, "repair_scans", r.stats.RepairScans, "wraps", r.stats.Wraps)
	return r.stats, nil
}

// repairScan walks cyclically forward from slot i to the next unconsumed
// slot. The caller guarantees at least one slot is unconsumed.
func (r *Run) repairScan(i int) int {
	from := i
	for {
		i++
		if i >= len(r.timeline) {
			i = 0
			r.stats.Wraps++
			if r.stats.Wraps > spinWarnAfter && !r.spinning {
				r.spinning = true
				r.log.Warn("spinning", "wraps", r.stats.Wraps, "remaining", r.remaining)
			}
		}
		if r.timeline[i] != Consumed {
			break
		}
	}

	r.stats.RepairScans++
	r.opts.Trace.Log(map[string]any{
		"event":     "repair_scan",
		"seed":      r.opts.Seed,
		"from":      from,
		"found":     i,
		"remaining": r.remaining,
		"wraps":     r.stats.Wraps,
	})
	return i
}

// consume schedules slot i as the next second and emits its events.
func (r *Run) consume(i int, emit func(eventlog.Event) error) error {
	k := r.timeline[i]
	r.timeline[i] = Consumed
	r.remaining--

	r.tick()
	for n := 0; n < k; n++ {
		if err := emit(r.flip()); err != nil {
			return fmt.Errorf("emitting event %d: %w", r.changes, err)
		}
	}
	return nil
}

// tick advances the virtual clock by one second. The first scheduled second
// is 00:00:00.
func (r *Run) tick() {
	if r.ticks > 0 {
		r.clock = r.clock.Tick()
	}
	r.ticks++
	r.stats.Seconds++
}

// flip toggles a random sensor and returns the resulting event.
func (r *Run) flip() eventlog.Event {
	door := r.src.IntN(r.opts.MaxDoors)
	floor := r.src.IntN(r.opts.MaxFloors)
	state := r.grid.Toggle(floor, door)

	r.changes++
	r.stats.Events++
	return eventlog.Event{
		Time:  r.clock,
		Seq:   r.changes,
		Floor: floor + 1,
		Door:  door + 1,
		State: state,
	}
}

// Grid returns the run's sensor grid.
func (r *Run) Grid() *Grid {
	return r.grid
}

// Seed returns the seed the run draws from.
func (r *Run) Seed() uint64 {
	return r.opts.Seed
}

// Result is a fully materialized run.
type Result struct {
	Events []eventlog.Event
	Stats  Stats
}

// Generate runs a synthesis and collects every event in memory.
func Generate(table distribution.Table, opts Options) (*Result, error) {
	r, err := NewRun(table, opts)
	if err != nil {
		return nil, err
	}

	events := make([]eventlog.Event, 0, table.TotalEvents())
	stats, err := r.Execute(func(e eventlog.Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Events: events, Stats: stats}, nil
}
