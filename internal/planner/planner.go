// Package planner turns a user instruction into an ordered task plan. Two
// implementations share the Planner contract: a generative one routed
// through the structured request protocol, and a local heuristic engine
// used when the generative path is exhausted.
package planner

import (
	"context"

	"github.com/google/uuid"

	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/project"
)

// Plan is an ordered task decomposition. A plan produced by the fallback
// engine is indistinguishable in shape from a generative one; Fallback is
// diagnostic only.
type Plan struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Steps     []string `json:"steps"`
	Questions []string `json:"questions,omitempty"`
	Ambiguous bool     `json:"ambiguous,omitempty"`
	Fallback  bool     `json:"-"`
}

// Planner decomposes an instruction against a project snapshot.
type Planner interface {
	Decompose(ctx context.Context, instruction string, snap *project.Snapshot) (Plan, error)
}

// NewID returns a fresh plan identifier.
func NewID() string {
	return uuid.NewString()
}

// planSchema constrains the generative task-plan response.
var planSchema = &llm.Schema{
	Name: "task_plan",
	Raw: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
			"steps": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"questions": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"ambiguous": map[string]interface{}{"type": "boolean"},
		},
		"required":             []string{"title", "steps"},
		"additionalProperties": false,
	},
}
