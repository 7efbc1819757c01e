// Package sanitize cleans text read from untrusted event logs before it is
// returned to MCP clients. It strips control characters and XML/HTML tags
// so that a crafted extracted file cannot smuggle instructions into an
// agent's context.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLineLength is the maximum length of a sanitized line.
const MaxLineLength = 200

// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
// It also matches XML processing instructions like <?xml ...?>.
var reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

// Line sanitizes a single log line for display:
//  1. Make line terminators and other control characters visible as \n, \r, \t or dropped
//  2. Strip XML/HTML tags
//  3. Truncate to MaxLineLength
func Line(input string) string {
	if input == "" {
		return ""
	}

	s := escapeControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")

	if len(s) > MaxLineLength {
		s = s[:MaxLineLength] + "..."
	}
	return s
}

// escapeControlChars renders \n, \r and \t as two-character escapes so a
// line-ending difference stays visible, and drops all other ASCII control
// characters (0x00-0x1F, 0x7F).
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
