// Package verify asks the backend whether a change satisfies its
// instruction. Verification has no deterministic fallback: when the
// structured request protocol is exhausted the error propagates and the
// caller must treat the unit of work's status as unknown, not failed.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/anvil-dev/anvil/internal/budget"
	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/structured"
)

// Status is the verification outcome.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Verdict is the structured verification result.
type Verdict struct {
	Status  Status   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}

// verdictSchema constrains the verification response.
var verdictSchema = &llm.Schema{
	Name: "verification_verdict",
	Raw: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"status": map[string]interface{}{
				"type": "string",
				"enum": []string{string(StatusPass), string(StatusFail), string(StatusUnknown)},
			},
			"reasons": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
		"required":             []string{"status"},
		"additionalProperties": false,
	},
}

const verifierSystemPrompt = `You verify whether a code change satisfies its instruction. Judge only from the diff and command output given. Answer pass, fail, or unknown with short reasons. Answer unknown when the evidence is insufficient.`

// Verifier routes verification through the structured request protocol.
type Verifier struct {
	Client           *structured.Client
	MaxContextTokens int
	CharsPerToken    float64
	Logger           *zap.Logger
}

// Verify judges the change described by diff and validation output against
// the instruction. On protocol exhaustion the verdict is unknown and the
// error is returned for the caller to surface.
func (v *Verifier) Verify(ctx context.Context, instruction, diff, output string) (Verdict, error) {
	logger := v.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Instruction:\n%s\n\n", instruction)
	if diff != "" {
		fmt.Fprintf(&sb, "Diff:\n%s\n\n", diff)
	}
	if output != "" {
		fmt.Fprintf(&sb, "Validation output:\n%s\n", output)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: verifierSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
	if v.MaxContextTokens > 0 {
		messages, _ = budget.Compose(messages, v.MaxContextTokens, v.CharsPerToken)
	}

	verdict, err := structured.Request[Verdict](ctx, v.Client, messages, verdictSchema, structured.Options{})
	if err != nil {
		return Verdict{Status: StatusUnknown}, fmt.Errorf("verification failed: %w", err)
	}

	switch verdict.Status {
	case StatusPass, StatusFail, StatusUnknown:
	default:
		logger.Warn("verifier returned unexpected status, treating as unknown",
			zap.String("status", string(verdict.Status)))
		verdict.Status = StatusUnknown
	}
	return verdict, nil
}
