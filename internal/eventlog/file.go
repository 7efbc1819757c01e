package eventlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Writer encodes events onto an underlying stream.
type Writer struct {
	w     *bufio.Writer
	buf   []byte
	count int
}

// NewWriter returns a Writer buffering output to w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one event line.
func (w *Writer) Write(e Event) error {
	w.buf = AppendEncode(w.buf[:0], e)
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("writing event %d: %w", e.Seq, err)
	}
	w.count++
	return nil
}

// Count returns the number of events written so far.
func (w *Writer) Count() int {
	return w.count
}

// Flush writes any buffered data to the underlying stream.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flushing event log: %w", err)
	}
	return nil
}

// CreateFile streams an event log into path. fill is called with a Writer
// backed by a temp file in the same directory; the temp file replaces path
// only if fill and every write succeed, so a failed run never leaves a
// partial log behind.
func CreateFile(path string, fill func(*Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := NewWriter(tmp)
	if err = fill(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// WriteFile writes events to path.
func WriteFile(path string, events []Event) error {
	return CreateFile(path, func(w *Writer) error {
		for _, e := range events {
			if err := w.Write(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Read parses every line from r. Errors carry the 1-based line number.
func Read(r io.Reader) ([]Event, error) {
	var events []Event
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading line %d: %w", lineNo, err)
		}
		if line == "" && err == io.EOF {
			return events, nil
		}
		if !strings.HasSuffix(line, "\n") {
			return nil, fmt.Errorf("line %d: %w: missing trailing newline", lineNo, ErrMalformed)
		}

		e, perr := Parse(strings.TrimSuffix(line, "\n"))
		if perr != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, perr)
		}
		events = append(events, e)
	}
}

// ReadFile parses the event log stored at path.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	return Read(f)
}
