// Package verify checks that an extracted event log is byte-for-byte
// identical to the reference log it was extracted from.
package verify

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Outcome is the verdict of a comparison.
type Outcome int

const (
	// OutcomeMatch means both sequences are identical.
	OutcomeMatch Outcome = iota
	// OutcomeContentMismatch means some line differs.
	OutcomeContentMismatch
	// OutcomeLengthMismatch means the shared prefix matches but one
	// sequence is longer.
	OutcomeLengthMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeContentMismatch:
		return "content_mismatch"
	case OutcomeLengthMismatch:
		return "length_mismatch"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Length classifies the candidate's line count against the reference.
type Length int

const (
	LengthEqual Length = iota
	LengthLonger
	LengthShorter
)

func (l Length) String() string {
	switch l {
	case LengthLonger:
		return "longer"
	case LengthShorter:
		return "shorter"
	default:
		return "equal"
	}
}

// Exit statuses of the verify command.
const (
	ExitMatch            = 0
	ExitContentMismatch  = 1
	ExitLengthMismatch   = 2
	ExitCandidateMissing = 3
	ExitReferenceMissing = 4
	// ExitFailure means no comparison was made, for example because the
	// configuration could not be loaded.
	ExitFailure = 5
)

// Result is the outcome of comparing a candidate with its reference.
type Result struct {
	Outcome        Outcome `json:"-"`
	Length         Length  `json:"-"`
	ReferenceLines int     `json:"reference_lines"`
	CandidateLines int     `json:"candidate_lines"`

	// Line is the 1-based number of the first differing line, or 0.
	Line      int    `json:"line,omitempty"`
	Reference string `json:"reference,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}

// ExitCode maps the result onto the command's exit status.
func (r *Result) ExitCode() int {
	switch r.Outcome {
	case OutcomeContentMismatch:
		return ExitContentMismatch
	case OutcomeLengthMismatch:
		return ExitLengthMismatch
	default:
		return ExitMatch
	}
}

// Compare checks ref and cand line by line. A differing line always wins over
// a length difference: the scan stops at the first mismatch, and a length
// difference is only the verdict when the shared prefix is identical.
func Compare(ref, cand []string) *Result {
	r := &Result{
		ReferenceLines: len(ref),
		CandidateLines: len(cand),
	}

	n := len(ref)
	switch {
	case len(cand) > len(ref):
		r.Length = LengthLonger
	case len(cand) < len(ref):
		r.Length = LengthShorter
		n = len(cand)
	}

	for i := 0; i < n; i++ {
		if ref[i] != cand[i] {
			r.Outcome = OutcomeContentMismatch
			r.Line = i + 1
			r.Reference = ref[i]
			r.Candidate = cand[i]
			return r
		}
	}

	if r.Length != LengthEqual {
		r.Outcome = OutcomeLengthMismatch
	}
	return r
}

// Role names which side of a comparison a file plays.
type Role string

const (
	RoleReference Role = "reference"
	RoleCandidate Role = "candidate"
)

// ResourceError reports a file that could not be read.
type ResourceError struct {
	Role Role
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s file %s is missing or not readable: %v", e.Role, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Outcome names the failure: "reference_missing" or "candidate_missing".
func (e *ResourceError) Outcome() string {
	return string(e.Role) + "_missing"
}

// ExitCode returns the exit status for a resource error.
func (e *ResourceError) ExitCode() int {
	if e.Role == RoleReference {
		return ExitReferenceMissing
	}
	return ExitCandidateMissing
}

// ReadLines reads every line of r. Lines keep their terminator so that a
// missing final newline or a CRLF ending counts as a difference.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ReadFile reads the lines of the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("is a directory")
	}
	return ReadLines(f)
}

// Files compares the candidate file against the reference file. The
// reference is read first; if it is unreadable the candidate is never
// opened. Unreadable files are reported as *ResourceError.
func Files(referencePath, candidatePath string) (*Result, error) {
	ref, err := ReadFile(referencePath)
	if err != nil {
		return nil, &ResourceError{Role: RoleReference, Path: referencePath, Err: err}
	}

	cand, err := ReadFile(candidatePath)
	if err != nil {
		return nil, &ResourceError{Role: RoleCandidate, Path: candidatePath, Err: err}
	}

	return Compare(ref, cand), nil
}

// ExitCode returns the exit status for the outcome of Files.
func ExitCode(res *Result, err error) int {
	var rerr *ResourceError
	if errors.As(err, &rerr) {
		return rerr.ExitCode()
	}
	if err != nil || res == nil {
		return ExitFailure
	}
	return res.ExitCode()
}

// OutcomeName returns the outcome name for the result of Files, covering
// resource errors as well as comparison outcomes.
func OutcomeName(res *Result, err error) string {
	var rerr *ResourceError
	if errors.As(err, &rerr) {
		return rerr.Outcome()
	}
	if err != nil || res == nil {
		return "error"
	}
	return res.Outcome.String()
}
