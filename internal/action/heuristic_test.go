package action

import (
	"testing"

	"github.com/anvil-dev/anvil/internal/planner"
	"github.com/anvil-dev/anvil/internal/project"
)

func twoStepPlan() planner.Plan {
	return planner.Plan{
		ID:    "p1",
		Title: "Read and test",
		Steps: []string{"Read src/app.ts", "Run tests"},
	}
}

func appSnapshot() *project.Snapshot {
	return &project.Snapshot{
		Root:  "/tmp/app",
		Files: []string{"src/app.ts", "src/util/helpers.ts", "package.json"},
		Manifest: &project.Manifest{
			Name:    "app",
			Scripts: map[string]string{"test": "vitest run", "build": "tsc"},
		},
		PackageManager: "npm",
	}
}

func TestHeuristicNext_StepAdvancesPerCall(t *testing.T) {
	plan := twoStepPlan()
	snap := appSnapshot()

	first := HeuristicNext(plan, snap, 0)
	if first.Tool != ToolReadFile {
		t.Fatalf("first tool = %q, want read_file", first.Tool)
	}
	if first.Path != "src/app.ts" {
		t.Errorf("first path = %q, want src/app.ts", first.Path)
	}

	second := HeuristicNext(plan, snap, 1)
	if second.Tool != ToolRunValidationCommand {
		t.Fatalf("second tool = %q, want run_validation_command", second.Tool)
	}
	if second.Command != "npm test" {
		t.Errorf("second command = %q, want npm test", second.Command)
	}
}

func TestHeuristicNext_ClampsToLastStep(t *testing.T) {
	plan := twoStepPlan()
	snap := appSnapshot()

	// More prior calls than steps keeps selecting the final step.
	act := HeuristicNext(plan, snap, 7)
	if act.Tool != ToolRunValidationCommand {
		t.Errorf("tool = %q, want run_validation_command", act.Tool)
	}
}

func TestHeuristicNext_ClarificationForAmbiguousPlan(t *testing.T) {
	plan := planner.Plan{
		ID:        "p2",
		Ambiguous: true,
		Questions: []string{"Which file should change?"},
	}

	act := HeuristicNext(plan, appSnapshot(), 0)
	if act.Tool != ToolRequestClarification {
		t.Fatalf("tool = %q, want request_clarification", act.Tool)
	}
	if len(act.Questions) != 1 || act.Questions[0] != "Which file should change?" {
		t.Errorf("questions = %v, want the plan's own", act.Questions)
	}
}

func TestHeuristicNext_EmptyPlanAsksForClarification(t *testing.T) {
	act := HeuristicNext(planner.Plan{ID: "p3"}, appSnapshot(), 0)
	if act.Tool != ToolRequestClarification {
		t.Fatalf("tool = %q, want request_clarification", act.Tool)
	}
	if len(act.Questions) == 0 {
		t.Error("empty plan should still yield at least one question")
	}
}

func TestHeuristicNext_ValidationPriority(t *testing.T) {
	plan := planner.Plan{
		ID:    "p4",
		Steps: []string{"Lint and build the project"},
	}
	snap := appSnapshot() // declares test and build, no lint

	act := HeuristicNext(plan, snap, 0)
	if act.Tool != ToolRunValidationCommand {
		t.Fatalf("tool = %q, want run_validation_command", act.Tool)
	}
	// test outranks build even though the step never mentions it.
	if act.Command != "npm test" {
		t.Errorf("command = %q, want npm test", act.Command)
	}
}

func TestHeuristicNext_PackageManagerCommand(t *testing.T) {
	snap := appSnapshot()
	snap.PackageManager = "pnpm"

	act := HeuristicNext(twoStepPlan(), snap, 1)
	if act.Command != "pnpm test" {
		t.Errorf("command = %q, want pnpm test", act.Command)
	}
}

func TestHeuristicNext_ReviewStepReadsActiveFile(t *testing.T) {
	snap := appSnapshot()
	snap.ActiveFile = "src/app.ts"

	plan := planner.Plan{
		ID:    "p5",
		Steps: []string{"Review the current project state"},
	}

	act := HeuristicNext(plan, snap, 0)
	if act.Tool != ToolReadFile {
		t.Fatalf("tool = %q, want read_file", act.Tool)
	}
	if act.Path != "src/app.ts" {
		t.Errorf("path = %q, want the active file", act.Path)
	}
}

func TestHeuristicNext_DefaultsToRequestDiff(t *testing.T) {
	plan := planner.Plan{
		ID:    "p6",
		Steps: []string{"Refactor the session handling"},
	}

	act := HeuristicNext(plan, appSnapshot(), 0)
	if act.Tool != ToolRequestDiff {
		t.Errorf("tool = %q, want request_diff", act.Tool)
	}
	if !act.Fallback {
		t.Error("heuristic actions must be marked as fallback")
	}
}

func TestBestFileMatch_ShortestPathWins(t *testing.T) {
	snap := &project.Snapshot{
		Files: []string{"src/deep/nested/app.ts", "src/app.ts", "app.ts"},
	}

	got := bestFileMatch("open app.ts and check the bootstrap", snap)
	if got != "app.ts" {
		t.Errorf("bestFileMatch = %q, want app.ts", got)
	}
}

func TestHeuristicNext_NilSnapshot(t *testing.T) {
	act := HeuristicNext(twoStepPlan(), nil, 1)
	if act.Tool != ToolRequestDiff {
		t.Errorf("tool = %q, want request_diff with no project context", act.Tool)
	}
}
