package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicBaseURL = "https://api.anthropic.com"

// AnthropicProvider calls the Claude Messages API.
type AnthropicProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	version      string
}

// NewAnthropicProvider builds an Anthropic provider.
func NewAnthropicProvider(apiKey, baseURL, defaultModel string, timeout time.Duration) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: timeout},
		version:      "2023-06-01",
	}
}

// ID returns provider identifier.
func (p *AnthropicProvider) ID() string {
	return "anthropic"
}

// DefaultModel returns the configured default model.
func (p *AnthropicProvider) DefaultModel() string {
	return p.defaultModel
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete executes a non-streaming request. The Messages API keeps the
// system prompt out of the messages array, so it is split off here.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	anthReq := anthropicRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
	}
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if anthReq.System != "" {
				anthReq.System += "\n\n"
			}
			anthReq.System += msg.Content
			continue
		}
		anthReq.Messages = append(anthReq.Messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	// No response_format equivalent; JSON-only behavior is requested in the
	// system prompt instead.
	if req.JSONOnly {
		if anthReq.System != "" {
			anthReq.System += "\n\n"
		}
		anthReq.System += "Respond with a single JSON object and nothing else."
	}

	body, err := json.Marshal(anthReq)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.version)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("anthropic request failed: %s: %s", resp.Status, string(payload))
	}

	var anthResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthResp); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}

	var parts []string
	for _, block := range anthResp.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("anthropic: empty response content")
	}

	return &Response{
		ID:      anthResp.ID,
		Model:   anthResp.Model,
		Content: strings.Join(parts, "\n"),
		Usage: Usage{
			PromptTokens:     anthResp.Usage.InputTokens,
			CompletionTokens: anthResp.Usage.OutputTokens,
			TotalTokens:      anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens,
		},
	}, nil
}
