package mock

import (
	"context"

	"github.com/anvil-dev/anvil/internal/llm"
)

// Provider is a test double implementing llm.Provider.
type Provider struct {
	NameValue    string
	ChatFn       func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
	StreamChunks []llm.StreamChunk
	StreamErr    error
}

func (p *Provider) Name() string {
	if p.NameValue != "" {
		return p.NameValue
	}
	return "mock"
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if p.ChatFn != nil {
		return p.ChatFn(ctx, req)
	}
	return llm.ChatResponse{Content: "{}", ProviderName: p.Name()}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, <-chan error) {
	ch := make(chan llm.StreamChunk, len(p.StreamChunks))
	errCh := make(chan error, 1)
	go func() {
		defer close(ch)
		defer close(errCh)
		for _, c := range p.StreamChunks {
			ch <- c
		}
		if p.StreamErr != nil {
			errCh <- p.StreamErr
		}
	}()
	return ch, errCh
}

// Scripted returns a provider that replays the given responses in order.
// Each entry is either a content string or an error; once exhausted, further
// calls repeat the final entry.
func Scripted(steps ...Step) *Provider {
	i := 0
	return &Provider{
		ChatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
			if len(steps) == 0 {
				return llm.ChatResponse{Content: "{}"}, nil
			}
			step := steps[min(i, len(steps)-1)]
			i++
			if step.Err != nil {
				return llm.ChatResponse{}, step.Err
			}
			return llm.ChatResponse{Content: step.Content, ProviderName: "mock"}, nil
		},
	}
}

// Step is one scripted exchange outcome.
type Step struct {
	Content string
	Err     error
}
