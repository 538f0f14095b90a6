package planner

import (
	"strings"
)

// clarificationQuestions is the fixed question set returned for ambiguous
// instructions.
var clarificationQuestions = []string{
	"Which file or component should change?",
	"What is the expected behavior after the change?",
	"Are there tests or constraints that must keep passing?",
}

// vaguePronouns dominate instructions that cannot be decomposed without
// more context.
var vaguePronouns = map[string]bool{
	"it": true, "this": true, "that": true, "them": true,
	"those": true, "these": true, "thing": true, "things": true,
	"stuff": true,
}

// stepSeparators split an instruction into coordinated clauses.
var stepSeparators = []string{
	" and then ", " and ", " then ", "; ", ". ", ", ",
}

// HeuristicDecompose computes a task plan from the instruction text alone,
// with no backend call. It always terminates and always returns a usable,
// non-empty decision: either ordered imperative steps bracketed by a
// review step and a verify step, or a clarification request when the
// instruction is too vague to act on.
func HeuristicDecompose(instruction string) Plan {
	trimmed := strings.TrimSpace(instruction)

	if isAmbiguous(trimmed) {
		return Plan{
			ID:        NewID(),
			Title:     "Clarify the request",
			Ambiguous: true,
			Questions: clarificationQuestions,
			Fallback:  true,
		}
	}

	steps := []string{"Review the current project state and the files involved"}
	for _, clause := range splitClauses(trimmed) {
		steps = append(steps, clause)
	}
	steps = append(steps, "Verify the result")

	return Plan{
		ID:       NewID(),
		Title:    title(trimmed),
		Steps:    steps,
		Fallback: true,
	}
}

// isAmbiguous classifies an instruction that has fewer than two meaningful
// tokens, or is dominated by vague pronouns with neither quoted text nor a
// path-like token.
func isAmbiguous(instruction string) bool {
	tokens := strings.Fields(strings.ToLower(instruction))

	meaningful := 0
	vague := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,;:!?\"'`()")
		if tok == "" {
			continue
		}
		if vaguePronouns[tok] {
			vague++
			continue
		}
		if isStopWord(tok) {
			continue
		}
		meaningful++
	}
	if meaningful < 2 {
		return true
	}
	if vague == 0 {
		return false
	}
	if strings.Contains(instruction, `"`) || strings.Contains(instruction, "'") {
		return false
	}
	if hasPathToken(instruction) {
		return false
	}
	return vague >= meaningful
}

// isStopWord filters articles and filler that carry no task content.
func isStopWord(tok string) bool {
	switch tok {
	case "a", "an", "the", "to", "of", "in", "on", "for", "with", "please":
		return true
	}
	return false
}

// hasPathToken reports whether any token looks like a file path: contains a
// slash or a dot-separated extension.
func hasPathToken(instruction string) bool {
	for _, tok := range strings.Fields(instruction) {
		tok = strings.Trim(tok, ".,;:!?\"'`()")
		if strings.Contains(tok, "/") {
			return true
		}
		if dot := strings.LastIndexByte(tok, '.'); dot > 0 && dot < len(tok)-1 {
			return true
		}
	}
	return false
}

// splitClauses breaks the instruction on coordinating conjunctions and
// punctuation into ordered imperative clauses.
func splitClauses(instruction string) []string {
	clauses := []string{instruction}
	for _, sep := range stepSeparators {
		var next []string
		for _, c := range clauses {
			next = append(next, strings.Split(c, sep)...)
		}
		clauses = next
	}

	var out []string
	for _, c := range clauses {
		c = strings.Trim(c, " \t.,;")
		if c == "" {
			continue
		}
		out = append(out, capitalize(c))
	}
	if len(out) == 0 {
		out = []string{capitalize(instruction)}
	}
	return out
}

// title derives a short plan title from the instruction.
func title(instruction string) string {
	line := firstLine(instruction)
	if len(line) > 72 {
		line = strings.TrimRight(line[:72], " ") + "…"
	}
	return capitalize(line)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
