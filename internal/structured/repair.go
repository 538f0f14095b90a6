package structured

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseError wraps the parse failure from a response that could not be
// recovered into valid JSON.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return "invalid structured output: " + e.Cause.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// fencePattern matches a markdown code fence with optional language tag,
// keeping the interior.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\n?(.*?)```")

// stripFence extracts the interior of the first fenced code block, if any.
func stripFence(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ExtractJSON locates the single JSON value expected in raw response text.
// It strips a wrapping code fence, attempts a direct parse, and on failure
// runs a repair pass before re-parsing. The returned string is valid JSON.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(stripFence(raw))

	var probe interface{}
	parseErr := json.Unmarshal([]byte(text), &probe)
	if parseErr == nil {
		return text, nil
	}

	repaired := RepairJSON(text)
	if repaired != "" && json.Unmarshal([]byte(repaired), &probe) == nil {
		return repaired, nil
	}

	return "", &ParseError{Cause: parseErr}
}

// RepairJSON applies a targeted repair pass to near-valid JSON text:
//   - trims everything before the first '{' and after the last '}'
//   - drops trailing commas immediately before a closing brace or bracket
//   - escapes raw newlines, carriage returns, and tabs inside string
//     literals
//   - escapes a premature closing quote inside a string (one not followed
//     by a structural character) so it reads as literal content
//
// The scanner keeps three explicit states: outside-string, inside-string,
// and escape-pending. It is not a general grammar corrector; text that is
// broken in other ways comes back still broken.
func RepairJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			if escaped {
				b.WriteByte(c)
				escaped = false
				continue
			}
			switch c {
			case '\\':
				b.WriteByte(c)
				escaped = true
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '"':
				if quoteTerminates(s, i+1) {
					inString = false
					b.WriteByte(c)
				} else {
					b.WriteString(`\"`)
				}
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case ',':
			if j := skipSpace(s, i+1); j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// quoteTerminates reports whether a closing quote at position i-1 is a real
// string terminator: it must be followed (optionally after whitespace) by a
// structural character, or end the input.
func quoteTerminates(s string, i int) bool {
	j := skipSpace(s, i)
	if j >= len(s) {
		return true
	}
	switch s[j] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
