package eventlog

import (
	"fmt"

	"github.com/nvandessel/doorsim/internal/distribution"
)

// Bounds limits the floor and door numbers accepted by Analyze. Zero
// disables the corresponding check.
type Bounds struct {
	MaxFloors int
	MaxDoors  int
}

// Problem is one invariant violation found in a log.
type Problem struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d: %s", p.Line, p.Message)
}

// Summary describes an event log.
type Summary struct {
	Events      int                `json:"events"`
	Seconds     int                `json:"seconds"`
	First       Timestamp          `json:"-"`
	Last        Timestamp          `json:"-"`
	OpenSensors int                `json:"open_sensors"`
	Histogram   distribution.Table `json:"histogram"`
	Problems    []Problem          `json:"problems,omitempty"`
}

// OK reports whether no invariant was violated.
func (s *Summary) OK() bool {
	return len(s.Problems) == 0
}

const maxProblems = 100

// Analyze checks the log invariants and rebuilds its events-per-second
// histogram:
//   - sequence ids run 1..N without gaps
//   - timestamps never decrease
//   - floor and door stay within b
//   - every new state is the inverse of the sensor's previous state,
//     starting from 0
//
// Empty seconds are inferred from clock gaps, counting from 00:00:00. Empty
// seconds after the last event leave no trace in the log and are not counted.
func Analyze(events []Event, b Bounds) *Summary {
	s := &Summary{Events: len(events)}
	if len(events) == 0 {
		return s
	}

	addProblem := func(line int, format string, args ...any) {
		if len(s.Problems) < maxProblems {
			s.Problems = append(s.Problems, Problem{Line: line, Message: fmt.Sprintf(format, args...)})
		}
	}

	type sensor struct{ floor, door int }
	states := make(map[sensor]int)

	s.First = events[0].Time
	s.Last = events[len(events)-1].Time
	s.Seconds = s.Last.Elapsed() + 1

	// Only busy seconds are stored; the span comes from an untrusted clock.
	perSecond := make(map[int]int)
	prev := -1
	for i, e := range events {
		line := i + 1
		if e.Seq != line {
			addProblem(line, "sequence id %d, want %d", e.Seq, line)
		}

		at := e.Time.Elapsed()
		if at < prev {
			addProblem(line, "timestamp %s goes backwards", e.Time)
		} else {
			prev = at
		}
		if at < s.Seconds {
			perSecond[at]++
		}

		if (b.MaxFloors > 0 && e.Floor > b.MaxFloors) || (b.MaxDoors > 0 && e.Door > b.MaxDoors) {
			addProblem(line, "floor %d door %d outside %dx%d grid", e.Floor, e.Door, b.MaxFloors, b.MaxDoors)
		}

		key := sensor{e.Floor, e.Door}
		if want := 1 - states[key]; e.State != want {
			addProblem(line, "floor %d door %d went to %d, want %d", e.Floor, e.Door, e.State, want)
		}
		states[key] = e.State
	}

	for _, v := range states {
		s.OpenSensors += v
	}

	s.Histogram = distribution.Table{s.Seconds - len(perSecond)}
	for _, k := range perSecond {
		for len(s.Histogram) <= k {
			s.Histogram = append(s.Histogram, 0)
		}
		s.Histogram[k]++
	}
	return s
}
