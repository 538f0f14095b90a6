package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/structured"
)

// summarySchema constrains the summarization response.
var summarySchema = &llm.Schema{
	Name: "memory_summary",
	Raw: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "Condensed history of the listed work items",
			},
		},
		"required":             []string{"summary"},
		"additionalProperties": false,
	},
}

type summaryResult struct {
	Summary string `json:"summary"`
}

// GenerativeSummarizer condenses compacted entries through the structured
// request protocol.
type GenerativeSummarizer struct {
	Client *structured.Client
}

// Summarize asks the backend for a condensed history of the entries being
// removed. Errors propagate so the store can apply its deterministic
// fallback.
func (g *GenerativeSummarizer) Summarize(ctx context.Context, prior string, entries []Entry) (string, error) {
	if g == nil || g.Client == nil {
		return "", fmt.Errorf("no summarization client configured")
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal entries: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Condense the following completed work items into a short history a coding assistant can use as context. Keep file paths and decisions; drop chatter.\n")
	if prior != "" {
		sb.WriteString("\nEarlier history, to be folded in:\n")
		sb.WriteString(prior)
		sb.WriteString("\n")
	}
	sb.WriteString("\nWork items (JSON):\n")
	sb.Write(payload)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You summarize an automated coding assistant's project memory."},
		{Role: llm.RoleUser, Content: sb.String()},
	}

	result, err := structured.Request[summaryResult](ctx, g.Client, messages, summarySchema, structured.Options{})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Summary) == "" {
		return "", fmt.Errorf("empty summary")
	}
	return result.Summary, nil
}
