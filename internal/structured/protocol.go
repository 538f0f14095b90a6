package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anvil-dev/anvil/internal/llm"
	"github.com/anvil-dev/anvil/internal/observability"
)

// DefaultMaxRetries is the number of re-attempts after the first exchange.
const DefaultMaxRetries = 2

// escalationDirectives is the ordered strictness table, indexed by attempt.
// Attempt 0 sends the caller's messages unmodified; later attempts prepend
// the directive as an extra system message. Attempts beyond the table reuse
// the final entry.
var escalationDirectives = []string{
	"",
	"Respond with a single valid JSON value and nothing else. No markdown code fences, no prose before or after the JSON.",
	"Respond with minified JSON on one line. Inside string values escape newlines as \\n and double quotes as \\\". Do not use code fences or commentary.",
	"Respond with minified JSON only. If you cannot produce the requested structure, respond with {} exactly.",
}

// directiveFor returns the strictness directive for the given attempt.
func directiveFor(attempt int) string {
	if attempt < 0 {
		return ""
	}
	if attempt >= len(escalationDirectives) {
		return escalationDirectives[len(escalationDirectives)-1]
	}
	return escalationDirectives[attempt]
}

// ExhaustedError is returned when every attempt of a structured request
// failed. Cause is the error from the final attempt.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("structured request failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// Client bundles everything a structured request needs: the transport
// provider, the capability session discovered for it, and request defaults.
type Client struct {
	Provider  llm.Provider
	Session   *Session
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewClient constructs a Client with a fresh capability session.
func NewClient(provider llm.Provider, model string, opts ...ClientOption) *Client {
	c := &Client{
		Provider: provider,
		Session:  NewSession(),
		Model:    model,
		Timeout:  60 * time.Second,
		Logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.Logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) { c.Metrics = m }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.Timeout = d }
}

// WithMaxTokens caps the completion size.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.MaxTokens = n }
}

// Options controls a single structured request.
type Options struct {
	// MaxRetries is the number of re-attempts after the first exchange.
	// Zero means DefaultMaxRetries; negative disables retries.
	MaxRetries int
}

// Request issues the messages through the capability-negotiating requester
// and the recovery parser, retrying with escalating strictness directives
// until a response decodes into T or attempts run out.
//
// Attempts are strictly sequential. Cancellation is observed before each
// attempt and aborts the in-flight exchange; a cancelled call is never
// retried and never reports exhaustion.
func Request[T any](ctx context.Context, c *Client, messages []llm.Message, schema *llm.Schema, opts Options) (T, error) {
	var zero T

	retries := opts.MaxRetries
	if retries == 0 {
		retries = DefaultMaxRetries
	}
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		msgs := messages
		if d := directiveFor(attempt); d != "" {
			msgs = append([]llm.Message{{Role: llm.RoleSystem, Content: d}}, messages...)
		}

		out, err := c.attempt(ctx, msgs, schema)
		if err == nil {
			var value T
			decodeErr := json.Unmarshal([]byte(out), &value)
			if decodeErr == nil {
				c.Metrics.RecordStructuredRequest("success")
				return value, nil
			}
			err = &ParseError{Cause: decodeErr}
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		lastErr = err
		c.Metrics.RecordStructuredRetry()
		c.Logger.Debug("structured request attempt failed",
			zap.Int("attempt", attempt),
			zap.String("capability", string(c.Session.Capability())),
			zap.Error(err))
	}

	c.Metrics.RecordStructuredRequest("exhausted")
	return zero, &ExhaustedError{Attempts: retries + 1, Cause: lastErr}
}

// attempt runs one exchange plus recovery parse, bounded by the client
// timeout.
func (c *Client) attempt(ctx context.Context, messages []llm.Message, schema *llm.Schema) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	before := c.Session.Capability()
	start := time.Now()
	resp, err := c.Session.exchange(ctx, c.Provider, llm.ChatRequest{
		Model:     c.Model,
		Messages:  messages,
		MaxTokens: c.MaxTokens,
		Schema:    schema,
	})
	c.Metrics.RecordRequestDuration(c.Provider.Name(), time.Since(start))
	if after := c.Session.Capability(); after != before && after != CapabilitySchema {
		c.Metrics.RecordCapabilityDowngrade(string(before), string(after))
		c.Logger.Info("structured output capability downgraded",
			zap.String("from", string(before)),
			zap.String("to", string(after)))
	}
	if err != nil {
		return "", err
	}
	return ExtractJSON(resp.Content)
}
