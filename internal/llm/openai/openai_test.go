package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvil-dev/anvil/internal/llm"
)

func completionsResponse(content string) string {
	return `{
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": ` + mustJSON(content) + `}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestChat_Success(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionsResponse(`{"ok": true}`)))
	}))
	defer server.Close()

	p := NewProvider("openai", server.URL, "sk-test", 5*time.Second)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.NotContains(t, captured, "response_format")
}

func TestChat_SchemaFormatOnWire(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionsResponse(`{}`)))
	}))
	defer server.Close()

	p := NewProvider("openai", server.URL, "sk-test", 5*time.Second)
	_, err := p.Chat(context.Background(), llm.ChatRequest{
		Model:  "gpt-4o-mini",
		Format: llm.FormatJSONSchema,
		Schema: &llm.Schema{
			Name: "task_plan",
			Raw:  map[string]interface{}{"type": "object"},
		},
	})
	require.NoError(t, err)

	rf, ok := captured["response_format"].(map[string]interface{})
	require.True(t, ok, "response_format missing from request body")
	assert.Equal(t, "json_schema", rf["type"])
	schema, ok := rf["json_schema"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "task_plan", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestChat_ObjectFormatOnWire(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionsResponse(`{}`)))
	}))
	defer server.Close()

	p := NewProvider("openai", server.URL, "", 5*time.Second)
	_, err := p.Chat(context.Background(), llm.ChatRequest{
		Model:  "gpt-4o-mini",
		Format: llm.FormatJSONObject,
	})
	require.NoError(t, err)

	rf, ok := captured["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
}

func TestChat_ErrorBodyPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Unknown parameter: 'response_format'", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	p := NewProvider("openai", server.URL, "sk-test", 5*time.Second)
	_, err := p.Chat(context.Background(), llm.ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
	// The body text must survive so capability sniffing can read it.
	assert.Contains(t, err.Error(), "response_format")
	assert.Contains(t, err.Error(), "status 400")
}

func TestChat_MissingModel(t *testing.T) {
	p := NewProvider("openai", "http://localhost:1", "", time.Second)
	_, err := p.Chat(context.Background(), llm.ChatRequest{})
	require.Error(t, err)
}

func TestChat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p := NewProvider("openai", server.URL, "", 5*time.Second)
	_, err := p.Chat(context.Background(), llm.ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestStream_SingleChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionsResponse("chunk content")))
	}))
	defer server.Close()

	p := NewProvider("openai", server.URL, "", 5*time.Second)
	ch, errCh := p.Stream(context.Background(), llm.ChatRequest{Model: "gpt-4o-mini"})

	var chunks []llm.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	require.NoError(t, <-errCh)
	require.Len(t, chunks, 1)
	assert.Equal(t, "chunk content", chunks[0].Content)
}
