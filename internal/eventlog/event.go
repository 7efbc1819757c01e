// Package eventlog defines the CSV interchange format shared by the event
// synthesizer and its consumers.
//
// Each line is one sensor flip:
//
//	HH:MM:SS,<seq>,<floor>,<door>,<state>
//
// with zero-padded clock fields, an unpadded positive sequence id, 1-based
// floor and door numbers and a new state of 0 or 1. There is no header.
package eventlog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed event line")

// MaxHours is the largest hour Parse accepts. Elapsed stays within an
// int32 up to MaxHours:59:59.
const MaxHours = 596522

// Timestamp is a virtual wall-clock reading. Hours are not limited to 24.
type Timestamp struct {
	Hours   int
	Minutes int
	Seconds int
}

// Tick returns the timestamp one second later, carrying seconds into minutes
// and minutes into hours at 60.
func (ts Timestamp) Tick() Timestamp {
	ts.Seconds++
	if ts.Seconds > 59 {
		ts.Seconds = 0
		ts.Minutes++
		if ts.Minutes > 59 {
			ts.Minutes = 0
			ts.Hours++
		}
	}
	return ts
}

// Elapsed returns the number of seconds since 00:00:00.
func (ts Timestamp) Elapsed() int {
	return ts.Hours*3600 + ts.Minutes*60 + ts.Seconds
}

// FromElapsed converts a seconds offset back into a timestamp.
func FromElapsed(sec int) Timestamp {
	return Timestamp{Hours: sec / 3600, Minutes: sec / 60 % 60, Seconds: sec % 60}
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", ts.Hours, ts.Minutes, ts.Seconds)
}

// Event is one sensor state change.
type Event struct {
	Time  Timestamp
	Seq   int
	Floor int
	Door  int
	State int
}

// AppendEncode appends the CSV line for e, including the trailing newline.
func AppendEncode(dst []byte, e Event) []byte {
	dst = fmt.Appendf(dst, "%02d:%02d:%02d,", e.Time.Hours, e.Time.Minutes, e.Time.Seconds)
	dst = strconv.AppendInt(dst, int64(e.Seq), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(e.Floor), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(e.Door), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(e.State), 10)
	return append(dst, '\n')
}

// Encode returns the CSV line for e without the trailing newline.
func Encode(e Event) string {
	b := AppendEncode(nil, e)
	return string(b[:len(b)-1])
}

// Parse decodes one line (without its newline). Only the canonical encoding
// is accepted: Encode(Parse(line)) == line.
func Parse(line string) (Event, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return Event{}, fmt.Errorf("%w: want 5 fields, got %d", ErrMalformed, len(fields))
	}

	clock := strings.Split(fields[0], ":")
	if len(clock) != 3 {
		return Event{}, fmt.Errorf("%w: timestamp %q is not HH:MM:SS", ErrMalformed, fields[0])
	}

	var nums [7]int
	parts := append(clock, fields[1:]...)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Event{}, fmt.Errorf("%w: field %q is not a non-negative integer", ErrMalformed, p)
		}
		nums[i] = n
	}

	e := Event{
		Time:  Timestamp{Hours: nums[0], Minutes: nums[1], Seconds: nums[2]},
		Seq:   nums[3],
		Floor: nums[4],
		Door:  nums[5],
		State: nums[6],
	}

	switch {
	case e.Time.Minutes > 59 || e.Time.Seconds > 59:
		return Event{}, fmt.Errorf("%w: timestamp %q out of range", ErrMalformed, fields[0])
	case e.Time.Hours > MaxHours:
		return Event{}, fmt.Errorf("%w: timestamp %q exceeds %d hours", ErrMalformed, fields[0], MaxHours)
	case e.Seq < 1:
		return Event{}, fmt.Errorf("%w: sequence id must be positive", ErrMalformed)
	case e.Floor < 1 || e.Door < 1:
		return Event{}, fmt.Errorf("%w: floor and door are 1-based", ErrMalformed)
	case e.State > 1:
		return Event{}, fmt.Errorf("%w: state must be 0 or 1, got %d", ErrMalformed, e.State)
	}

	if Encode(e) != line {
		return Event{}, fmt.Errorf("%w: %q is not in canonical form", ErrMalformed, line)
	}
	return e, nil
}
