package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/anvil-dev/anvil/internal/budget"
	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/observability"
	"github.com/anvil-dev/anvil/internal/project"
	"github.com/anvil-dev/anvil/internal/structured"
)

const plannerSystemPrompt = `You decompose a coding instruction into a short ordered plan for an automated assistant. Steps are imperative sentences. Start by reviewing relevant state and end by verifying the result. If the instruction is too vague to act on, set "ambiguous" to true and ask clarifying questions instead of guessing.`

// Generative is the backend-routed planner. On exhaustion of the structured
// request protocol it hands over to the heuristic engine, so Decompose
// always yields a usable plan unless the call was cancelled.
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

// Decompose builds budgeted messages and requests a task plan. Transport,
// capability, and parse failures inside the protocol are retried there;
// only exhaustion reaches this level, where the deterministic fallback
// takes over. Cancellation surfaces immediately and never falls back.
func (g *Generative) Decompose(ctx context.Context, instruction string, snap *project.Snapshot) (Plan, error) {
	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: plannerSystemPrompt},
	}
	if g.Instructions != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: g.Instructions})
	}
	if pc := projectContext(snap); pc != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: pc})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: instruction})

	if g.MaxContextTokens > 0 {
		var trimmed bool
		messages, trimmed = budget.Compose(messages, g.MaxContextTokens, g.CharsPerToken)
		if trimmed {
			logger.Debug("planner context trimmed to fit budget")
		}
	}

	plan, err := structured.Request[Plan](ctx, g.Client, messages, planSchema, structured.Options{})
	if err != nil {
		if ctx.Err() != nil {
			return Plan{}, ctx.Err()
		}
		logger.Warn("generative planning exhausted, using heuristic fallback", zap.Error(err))
		g.Metrics.RecordFallback("planner")
		return HeuristicDecompose(instruction), nil
	}

	if plan.ID == "" {
		plan.ID = NewID()
	}
	if !plan.Ambiguous && len(plan.Steps) == 0 {
		// A plan with no steps is unusable; treat it like exhaustion.
		logger.Warn("generative plan had no steps, using heuristic fallback")
		g.Metrics.RecordFallback("planner")
		return HeuristicDecompose(instruction), nil
	}
	return plan, nil
}

// projectContext renders a compact snapshot description for the prompt.
func projectContext(snap *project.Snapshot) string {
	if snap == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Project context:\n")
	if snap.Manifest != nil && snap.Manifest.Name != "" {
		fmt.Fprintf(&sb, "- package: %s\n", snap.Manifest.Name)
	}
	if snap.PackageManager != "" {
		fmt.Fprintf(&sb, "- package manager: %s\n", snap.PackageManager)
	}
	if snap.ActiveFile != "" {
		fmt.Fprintf(&sb, "- active file: %s\n", snap.ActiveFile)
	}
	if len(snap.Files) > 0 {
		sb.WriteString("- files:\n")
		limit := len(snap.Files)
		if limit > 50 {
			limit = 50
		}
		for _, f := range snap.Files[:limit] {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}
	return sb.String()
}
