package llm

import "context"

// Role is the message role used in chat exchanges.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation message. Messages are values; trimming
// and composition produce new messages rather than mutating in place.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects the structured-output mode requested from a backend.
type ResponseFormat string

const (
	// FormatText requests plain free-text generation.
	FormatText ResponseFormat = "text"
	// FormatJSONObject requests any syntactically valid JSON object.
	FormatJSONObject ResponseFormat = "json_object"
	// FormatJSONSchema requests output constrained to a caller-supplied schema.
	FormatJSONSchema ResponseFormat = "json_schema"
)

// Schema is an opaque structural description of the expected response.
// Raw holds a JSON Schema document; it is passed through to the backend
// verbatim and never mutated.
type Schema struct {
	Name string
	Raw  map[string]interface{}
}

// ChatRequest is the input for chat providers.
type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Format      ResponseFormat
	Schema      *Schema
}

// Usage captures token accounting reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is the result of a chat completion.
type ChatResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
	ProviderName string
	Model        string
}

// StreamChunk is emitted during streaming responses.
type StreamChunk struct {
	Content      string
	FinishReason string
	Err          error
}

// Provider defines the contract for generative backends.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, <-chan error)
}
