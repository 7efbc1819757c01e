package verify

import (
	"fmt"
	"io"
	"strings"
)

// Report prints the human-readable verdict for a comparison of
// candidatePath against referencePath.
func (r *Result) Report(w io.Writer, referencePath, candidatePath string) {
	fmt.Fprintf(w, "Original mock data file : %s\n", referencePath)
	fmt.Fprintf(w, "Extracted text data file: %s\n", candidatePath)
	fmt.Fprintln(w)

	switch r.Outcome {
	case OutcomeContentMismatch:
		if r.Length != LengthEqual {
			fmt.Fprintf(w, "First problem: extracted data file is %s than the original mock data file\n", r.Length)
		}
		fmt.Fprintf(w, "Extracted data differs to original mock data at line: %d\n", r.Line)
		fmt.Fprintf(w, "Original line  : %s\n", displayLine(r.Reference))
		fmt.Fprintf(w, "Extracted line : %s\n", displayLine(r.Candidate))
	case OutcomeLengthMismatch:
		fmt.Fprintf(w, "Extracted data file is %s than the original mock data file (%d lines, original has %d)\n",
			r.Length, r.CandidateLines, r.ReferenceLines)
	default:
		fmt.Fprintln(w, "Extracted text matches the original OK")
	}
}

// displayLine shows a line without its newline, quoting it when it carries
// characters that would otherwise be invisible.
func displayLine(s string) string {
	trimmed := strings.TrimSuffix(s, "\n")
	if strings.ContainsAny(trimmed, "\r\t") || !strings.HasSuffix(s, "\n") {
		return fmt.Sprintf("%q", s)
	}
	return trimmed
}
