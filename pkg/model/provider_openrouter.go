package model

import (
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider calls the OpenRouter chat completions API. The wire
// format is OpenAI-compatible, so it embeds the OpenAI implementation and
// only overrides identity and endpoint.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider builds an OpenRouter provider.
func NewOpenRouterProvider(apiKey, baseURL, defaultModel string, timeout time.Duration) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	return &OpenRouterProvider{
		OpenAIProvider: NewOpenAIProvider(apiKey, baseURL, defaultModel, timeout),
	}
}

// ID returns provider identifier.
func (p *OpenRouterProvider) ID() string {
	return "openrouter"
}
