package planner

import (
	"strings"
	"testing"
)

func TestHeuristicDecompose_SimpleInstruction(t *testing.T) {
	plan := HeuristicDecompose("fix the bug")

	if plan.Ambiguous {
		t.Fatal("'fix the bug' should not be classified as ambiguous")
	}
	if plan.ID == "" {
		t.Error("plan ID is empty")
	}
	if len(plan.Steps) < 3 {
		t.Fatalf("got %d steps, want at least 3", len(plan.Steps))
	}
	if !strings.Contains(strings.ToLower(plan.Steps[0]), "review") {
		t.Errorf("first step = %q, want a review step", plan.Steps[0])
	}
	last := plan.Steps[len(plan.Steps)-1]
	if !strings.Contains(strings.ToLower(last), "verify") {
		t.Errorf("last step = %q, want a verify step", last)
	}

	found := false
	for _, s := range plan.Steps {
		if strings.Contains(strings.ToLower(s), "fix the bug") {
			found = true
		}
	}
	if !found {
		t.Errorf("no step references the instruction: %v", plan.Steps)
	}
	if !plan.Fallback {
		t.Error("heuristic plans must be marked as fallback")
	}
}

func TestHeuristicDecompose_VagueInstruction(t *testing.T) {
	plan := HeuristicDecompose("it")

	if !plan.Ambiguous {
		t.Fatal("'it' should be classified as ambiguous")
	}
	if len(plan.Questions) == 0 {
		t.Error("ambiguous plan carries no clarification questions")
	}
	if len(plan.Steps) != 0 {
		t.Errorf("ambiguous plan has %d steps, want none", len(plan.Steps))
	}
}

func TestHeuristicDecompose_SplitsConjunctions(t *testing.T) {
	plan := HeuristicDecompose("rename the loader and update the docs, then run the tests")

	if plan.Ambiguous {
		t.Fatal("instruction should not be ambiguous")
	}
	// Review + three clauses + verify.
	if len(plan.Steps) != 5 {
		t.Fatalf("got %d steps, want 5: %v", len(plan.Steps), plan.Steps)
	}
	if plan.Steps[1] != "Rename the loader" {
		t.Errorf("step 1 = %q", plan.Steps[1])
	}
	if plan.Steps[2] != "Update the docs" {
		t.Errorf("step 2 = %q", plan.Steps[2])
	}
	if plan.Steps[3] != "Run the tests" {
		t.Errorf("step 3 = %q", plan.Steps[3])
	}
}

func TestIsAmbiguous(t *testing.T) {
	tests := []struct {
		instruction string
		want        bool
	}{
		{"it", true},
		{"fix", true},
		{"fix it", true},
		{"fix this and that", true},
		{"fix the bug", false},
		{"update it in src/config.ts", false},
		{`rename it to "loadConfig"`, false},
		{"refactor the session store and add tests", false},
	}
	for _, tt := range tests {
		if got := isAmbiguous(tt.instruction); got != tt.want {
			t.Errorf("isAmbiguous(%q) = %v, want %v", tt.instruction, got, tt.want)
		}
	}
}

func TestHeuristicDecompose_TitleTruncated(t *testing.T) {
	long := strings.Repeat("extend the retry handling for slow backends ", 4)
	plan := HeuristicDecompose(long)

	if len(plan.Title) > 80 {
		t.Errorf("title length = %d, want capped", len(plan.Title))
	}
	if plan.Title[:1] != strings.ToUpper(plan.Title[:1]) {
		t.Errorf("title %q is not capitalized", plan.Title)
	}
}

func TestHeuristicDecompose_Deterministic(t *testing.T) {
	a := HeuristicDecompose("add a retry budget and test it against the mock server")
	b := HeuristicDecompose("add a retry budget and test it against the mock server")

	if len(a.Steps) != len(b.Steps) {
		t.Fatalf("step counts diverge: %d vs %d", len(a.Steps), len(b.Steps))
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			t.Errorf("step %d differs: %q vs %q", i, a.Steps[i], b.Steps[i])
		}
	}
	if a.Title != b.Title {
		t.Errorf("titles differ: %q vs %q", a.Title, b.Title)
	}
}
