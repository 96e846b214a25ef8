package model

import (
	"context"
	"fmt"
	"time"

	"github.com/modelpad/modelpad/pkg/config"
)

const defaultTimeout = 120 * time.Second

// Provider defines the behavior required for an LLM backend/provider.
type Provider interface {
	ID() string
	DefaultModel() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// FromConfig builds the provider selected by cfg.AI.Provider. Returns an
// error when that provider has no usable credentials; callers surface this
// as a configuration error, not a crash.
func FromConfig(cfg *config.Config) (Provider, error) {
	timeout := cfg.AI.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch cfg.AI.Provider {
	case "openrouter":
		p := cfg.Providers.OpenRouter
		if !p.Enabled || p.APIKey == "" {
			return nil, fmt.Errorf("openrouter provider not configured; set OPENROUTER_API_KEY")
		}
		return NewOpenRouterProvider(p.APIKey, p.BaseURL, p.Model, timeout), nil
	case "openai":
		p := cfg.Providers.OpenAI
		if !p.Enabled || p.APIKey == "" {
			return nil, fmt.Errorf("openai provider not configured; set OPENAI_API_KEY")
		}
		return NewOpenAIProvider(p.APIKey, p.BaseURL, p.Model, timeout), nil
	case "anthropic":
		p := cfg.Providers.Anthropic
		if !p.Enabled || p.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider not configured; set ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(p.APIKey, p.BaseURL, p.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.AI.Provider)
	}
}
