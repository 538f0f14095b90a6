package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/anvil-dev/anvil/internal/budget"
	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/observability"
	"github.com/anvil-dev/anvil/internal/planner"
	"github.com/anvil-dev/anvil/internal/project"
	"github.com/anvil-dev/anvil/internal/structured"
)

const selectorSystemPrompt = `You pick the single next tool call for an automated coding assistant working through a plan. Choose exactly one tool: read_file (with path), run_validation_command (with command), request_clarification (with questions), or request_diff. Never invent file paths that are not listed.`

// Generative is the backend-routed selector with the heuristic engine as
// its exhaustion fallback.
type Generative struct {
	Client           *structured.Client
	MaxContextTokens int
	CharsPerToken    float64
	Logger           *zap.Logger
	Metrics          *observability.Metrics

	// Instructions holds project-authored guidance (ANVIL.md) layered onto
	// the system prompt.
	Instructions string
}

// Next requests one tool call for the current plan position. Exhaustion of
// the protocol activates the heuristic engine; cancellation surfaces
// immediately.
func (g *Generative) Next(ctx context.Context, plan planner.Plan, snap *project.Snapshot, priorCalls int) (Action, error) {
	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: selectorSystemPrompt},
	}
	if g.Instructions != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: g.Instructions})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: selectorPrompt(plan, snap, priorCalls)})
	if g.MaxContextTokens > 0 {
		messages, _ = budget.Compose(messages, g.MaxContextTokens, g.CharsPerToken)
	}

	act, err := structured.Request[Action](ctx, g.Client, messages, actionSchema, structured.Options{})
	if err != nil {
		if ctx.Err() != nil {
			return Action{}, ctx.Err()
		}
		logger.Warn("generative action selection exhausted, using heuristic fallback", zap.Error(err))
		g.Metrics.RecordFallback("action")
		return HeuristicNext(plan, snap, priorCalls), nil
	}

	if !validShape(act) {
		logger.Warn("generative action had invalid shape, using heuristic fallback",
			zap.String("tool", string(act.Tool)))
		g.Metrics.RecordFallback("action")
		return HeuristicNext(plan, snap, priorCalls), nil
	}
	return act, nil
}

// validShape checks the action is one of the enumerated shapes with its
// required field present.
func validShape(a Action) bool {
	switch a.Tool {
	case ToolReadFile:
		return a.Path != ""
	case ToolRunValidationCommand:
		return a.Command != ""
	case ToolRequestClarification:
		return len(a.Questions) > 0
	case ToolRequestDiff:
		return true
	}
	return false
}

// selectorPrompt renders the plan position and project context.
func selectorPrompt(plan planner.Plan, snap *project.Snapshot, priorCalls int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan: %s\n", plan.Title)
	for i, s := range plan.Steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	fmt.Fprintf(&sb, "Tool calls already issued: %d\n", priorCalls)
	if snap != nil {
		if snap.PackageManager != "" {
			fmt.Fprintf(&sb, "Package manager: %s\n", snap.PackageManager)
		}
		if snap.Manifest != nil && len(snap.Manifest.Scripts) > 0 {
			names := make([]string, 0, len(snap.Manifest.Scripts))
			for name := range snap.Manifest.Scripts {
				names = append(names, name)
			}
			sort.Strings(names)
			sb.WriteString("Scripts: " + strings.Join(names, " ") + "\n")
		}
		if snap.ActiveFile != "" {
			fmt.Fprintf(&sb, "Active file: %s\n", snap.ActiveFile)
		}
		limit := len(snap.Files)
		if limit > 100 {
			limit = 100
		}
		if limit > 0 {
			sb.WriteString("Known files:\n")
			for _, f := range snap.Files[:limit] {
				sb.WriteString("  " + f + "\n")
			}
		}
	}
	sb.WriteString("Respond with the single next tool call.")
	return sb.String()
}
