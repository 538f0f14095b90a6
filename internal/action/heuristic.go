package action

import (
	"sort"
	"strings"

	"github.com/anvil-dev/anvil/internal/planner"
	"github.com/anvil-dev/anvil/internal/project"
)

// validationWords flag a step as validation-flavored.
var validationWords = []string{"test", "lint", "build", "validate", "check"}

// reviewWords flag a step as review/open-flavored.
var reviewWords = []string{"review", "open", "look", "inspect", "read", "examine"}

// scriptPriority is the fixed order in which known project scripts are
// considered for a validation step.
var scriptPriority = []string{"test", "lint", "build"}

// HeuristicNext selects exactly one next action from local information
// only. One step advances per already-issued call; steps are never skipped.
// For any input one of the enumerated shapes comes back; the function
// never fails.
func HeuristicNext(plan planner.Plan, snap *project.Snapshot, priorCalls int) Action {
	if plan.Ambiguous || len(plan.Steps) == 0 {
		questions := plan.Questions
		if len(questions) == 0 {
			questions = []string{"What should be done, and in which part of the project?"}
		}
		return Action{Tool: ToolRequestClarification, Questions: questions, Fallback: true}
	}

	idx := priorCalls
	if idx < 0 {
		idx = 0
	}
	if idx > len(plan.Steps)-1 {
		idx = len(plan.Steps) - 1
	}
	step := strings.ToLower(plan.Steps[idx])

	if containsAny(step, validationWords) {
		if cmd := validationCommand(snap); cmd != "" {
			return Action{Tool: ToolRunValidationCommand, Command: cmd, Fallback: true}
		}
	}

	if path := bestFileMatch(step, snap); path != "" {
		return Action{Tool: ToolReadFile, Path: path, Fallback: true}
	}

	if containsAny(step, reviewWords) && snap != nil && snap.ActiveFile != "" {
		return Action{Tool: ToolReadFile, Path: snap.ActiveFile, Fallback: true}
	}

	// Requesting a diff is always safe: it mutates nothing and grounds the
	// next decision.
	return Action{Tool: ToolRequestDiff, Fallback: true}
}

// validationCommand picks the project script to run, by fixed priority.
func validationCommand(snap *project.Snapshot) string {
	if snap == nil {
		return ""
	}
	for _, name := range scriptPriority {
		if cmd := snap.ScriptCommand(name); cmd != "" {
			return cmd
		}
	}
	return ""
}

// bestFileMatch returns the known project file the step most plausibly
// refers to: among files whose path or base name occurs in the step text,
// the shortest path wins, ties broken lexicographically for determinism.
func bestFileMatch(step string, snap *project.Snapshot) string {
	if snap == nil {
		return ""
	}
	var candidates []string
	for _, f := range snap.Files {
		lower := strings.ToLower(f)
		base := lower
		if i := strings.LastIndexByte(lower, '/'); i >= 0 {
			base = lower[i+1:]
		}
		if strings.Contains(step, lower) || strings.Contains(step, base) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
