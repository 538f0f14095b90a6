// Package action selects the next tool call for a task plan. As with the
// planner, a generative selector and a local heuristic engine share one
// contract; the heuristic engine also serves as the fallback when the
// generative path is exhausted.
package action

import (
	"context"

	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/planner"
	"github.com/anvil-dev/anvil/internal/project"
)

// Tool enumerates the action shapes a selector may return.
type Tool string

const (
	ToolReadFile             Tool = "read_file"
	ToolRunValidationCommand Tool = "run_validation_command"
	ToolRequestClarification Tool = "request_clarification"
	ToolRequestDiff          Tool = "request_diff"
)

// Action is exactly one next tool call. Fields beyond Tool are populated
// per shape: Path for read_file, Command for run_validation_command,
// Questions for request_clarification.
type Action struct {
	Tool      Tool     `json:"tool"`
	Path      string   `json:"path,omitempty"`
	Command   string   `json:"command,omitempty"`
	Questions []string `json:"questions,omitempty"`
	Fallback  bool     `json:"-"`
}

// Selector chooses the next action for a plan given the project snapshot
// and the number of tool calls already issued.
type Selector interface {
	Next(ctx context.Context, plan planner.Plan, snap *project.Snapshot, priorCalls int) (Action, error)
}

// actionSchema constrains the generative tool-call response.
var actionSchema = &llm.Schema{
	Name: "tool_call",
	Raw: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"tool": map[string]interface{}{
				"type": "string",
				"enum": []string{
					string(ToolReadFile),
					string(ToolRunValidationCommand),
					string(ToolRequestClarification),
					string(ToolRequestDiff),
				},
			},
			"path":    map[string]interface{}{"type": "string"},
			"command": map[string]interface{}{"type": "string"},
			"questions": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
		"required":             []string{"tool"},
		"additionalProperties": false,
	},
}
