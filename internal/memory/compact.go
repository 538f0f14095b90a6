package memory

import (
	"strings"
)

// DeterministicSummary builds the fallback compaction summary: one bullet
// per entry concatenating its instruction, changed files, and decisions.
// Prior compacted history is folded in as a leading section so earlier
// passes are not lost.
func DeterministicSummary(prior string, entries []Entry) string {
	var sb strings.Builder
	if prior != "" {
		sb.WriteString(prior)
		if !strings.HasSuffix(prior, "\n") {
			sb.WriteString("\n")
		}
	}
	for _, e := range entries {
		sb.WriteString("- ")
		sb.WriteString(firstLine(e.Instruction))
		if len(e.FilesChanged) > 0 {
			sb.WriteString(" (files: ")
			sb.WriteString(strings.Join(e.FilesChanged, ", "))
			sb.WriteString(")")
		}
		for _, d := range e.Decisions {
			sb.WriteString("; ")
			sb.WriteString(firstLine(d))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// firstLine returns the first non-empty line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
