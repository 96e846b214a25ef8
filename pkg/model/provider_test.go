package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpad/modelpad/pkg/config"
)

func TestFromConfigRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.AI.Provider = "openrouter"

	_, err := FromConfig(cfg)
	assert.Error(t, err)
}

func TestFromConfigBuildsSelectedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.AI.Provider = "anthropic"
	cfg.Providers.Anthropic.Enabled = true
	cfg.Providers.Anthropic.APIKey = "test"
	cfg.Providers.Anthropic.Model = "claude-3-5-haiku-latest"

	provider, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider.ID())
	assert.Equal(t, "claude-3-5-haiku-latest", provider.DefaultModel())
}

func TestOpenAICompleteRoundTrip(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"detected": true}`}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider("sk-test", server.URL, "gpt-4o-mini", 5*time.Second)
	resp, err := provider.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "detect"}},
		JSONOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	assert.Equal(t, `{"detected": true}`, resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOpenAICompleteNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("sk-test", server.URL, "gpt-4o-mini", 5*time.Second)
	_, err := provider.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicCompleteSplitsSystemPrompt(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg-1",
			"model": "claude-3-5-haiku-latest",
			"content": []map[string]any{
				{"type": "text", "text": "hello"},
			},
			"usage": map[string]any{"input_tokens": 7, "output_tokens": 3},
		})
	}))
	defer server.Close()

	provider := NewAnthropicProvider("test-key", server.URL, "claude-3-5-haiku-latest", 5*time.Second)
	resp, err := provider.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: "system", Content: "you are a detector"},
			{Role: "user", Content: "detect"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "you are a detector", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestOpenRouterUsesOpenAIWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "or-1",
			"model": "openai/gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	provider := NewOpenRouterProvider("or-key", server.URL, "openai/gpt-4o-mini", 5*time.Second)
	assert.Equal(t, "openrouter", provider.ID())

	resp, err := provider.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}
