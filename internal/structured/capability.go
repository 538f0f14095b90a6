package structured

import (
	"context"
	"strings"
	"sync"

	"github.com/anvil-dev/anvil/internal/llm"
)

// Capability is the structured-output mode a backend has been discovered
// to accept.
type Capability string

const (
	CapabilityUnknown Capability = "unknown"
	CapabilitySchema  Capability = "schema"
	CapabilityObject  Capability = "object"
	CapabilityNone    Capability = "none"
)

// Session tracks the negotiated capability for one backend across the life
// of the process. Backend capability does not change between calls, so it is
// discovered once and reused. Downgrades are sticky: once a mode is rejected
// the session never attempts it again.
//
// A Session is safe for concurrent use. Two exchanges negotiating at the
// same time converge to the same discovered mode; the duplicate negotiation
// is harmless.
type Session struct {
	mu         sync.Mutex
	capability Capability
}

// NewSession returns a session in the undiscovered state.
func NewSession() *Session {
	return &Session{capability: CapabilityUnknown}
}

// Capability returns the current negotiated mode.
func (s *Session) Capability() Capability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capability
}

// downgradeFrom records that the given mode was rejected. The session moves
// to the next looser mode. It never moves upward: a concurrent exchange may
// already have downgraded further.
func (s *Session) downgradeFrom(rejected Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch rejected {
	case CapabilitySchema:
		if s.capability == CapabilityUnknown || s.capability == CapabilitySchema {
			s.capability = CapabilityObject
		}
	case CapabilityObject:
		if s.capability != CapabilityNone {
			s.capability = CapabilityNone
		}
	}
}

// confirm records a successful exchange using the given mode. It only
// resolves the undiscovered state; a discovered mode is never upgraded.
func (s *Session) confirm(mode Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capability == CapabilityUnknown {
		s.capability = mode
	}
}

// formatFor maps a capability to the request format used on the wire.
func formatFor(c Capability) llm.ResponseFormat {
	switch c {
	case CapabilityUnknown, CapabilitySchema:
		return llm.FormatJSONSchema
	case CapabilityObject:
		return llm.FormatJSONObject
	default:
		return llm.FormatText
	}
}

// modeFor is the capability an exchange is exercising for a given format.
func modeFor(f llm.ResponseFormat) Capability {
	switch f {
	case llm.FormatJSONSchema:
		return CapabilitySchema
	case llm.FormatJSONObject:
		return CapabilityObject
	default:
		return CapabilityNone
	}
}

// capabilityVocabulary are substrings that mark an error as a rejection of
// the requested response-format parameter rather than a transport failure.
// The transport surfaces only error text, so this is best-effort; the retry
// escalation is the true safety net. Generic wrappers like
// "invalid_request_error" are excluded: the backend uses them for
// context-length and bad-parameter failures too.
var capabilityVocabulary = []string{
	"response_format",
	"response format",
	"json_schema",
	"structured output",
	"structured outputs",
	"unsupported format",
	"unknown parameter",
	"unrecognized request argument",
}

// rejectionPhrases mark a rejection only alongside one of formatTerms.
// On their own they match too much: an unknown model name surfaces as
// "not supported" as well.
var rejectionPhrases = []string{"does not support", "not supported"}

var formatTerms = []string{"format", "json", "schema"}

// isCapabilityError reports whether the error text indicates the backend
// rejected the requested structured-output mode for capability reasons.
// Timeouts, connection failures, and other transport errors are not
// capability signals.
func isCapabilityError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, v := range capabilityVocabulary {
		if strings.Contains(text, v) {
			return true
		}
	}
	for _, p := range rejectionPhrases {
		if !strings.Contains(text, p) {
			continue
		}
		for _, term := range formatTerms {
			if strings.Contains(text, term) {
				return true
			}
		}
	}
	return false
}

// exchange performs one negotiated request/response exchange. It asks for
// the most expressive mode the session still allows; a capability rejection
// downgrades the session and retries immediately with the looser mode.
// Non-capability errors propagate without touching session state.
func (s *Session) exchange(ctx context.Context, provider llm.Provider, req llm.ChatRequest) (llm.ChatResponse, error) {
	for {
		format := formatFor(s.Capability())
		req.Format = format
		if format != llm.FormatJSONSchema {
			req.Schema = nil
		}

		resp, err := provider.Chat(ctx, req)
		if err == nil {
			s.confirm(modeFor(format))
			return resp, nil
		}
		if format == llm.FormatText || !isCapabilityError(err) {
			return llm.ChatResponse{}, err
		}
		s.downgradeFrom(modeFor(format))
	}
}
