package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultOpenRouterModel = "openai/gpt-4o-mini"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultAnthropicModel  = "claude-3-5-haiku-latest"
)

// Default configuration values exported for documentation and validation
const (
	DefaultBind           = "127.0.0.1:8787"
	DefaultProvider       = "openrouter"
	DefaultPython         = "python3"
	DefaultRequestTimeout = 120 * time.Second
	DefaultRatePerMinute  = 30
	DefaultPromptBudget   = 12000
)

var providerDefaultModels = map[string]string{
	"openrouter": defaultOpenRouterModel,
	"openai":     defaultOpenAIModel,
	"anthropic":  defaultAnthropicModel,
}

// Config represents the complete modelpad configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Providers ProviderConfig  `yaml:"providers"`
	AI        AIConfig        `yaml:"ai"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Bind string `yaml:"bind"`
}

// StorageConfig controls the SQLite database location
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig holds per-provider credentials
type ProviderConfig struct {
	OpenRouter ProviderSettings `yaml:"openrouter"`
	OpenAI     ProviderSettings `yaml:"openai"`
	Anthropic  ProviderSettings `yaml:"anthropic"`
}

// ProviderSettings configures one LLM provider
type ProviderSettings struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AIConfig controls the AI gateway behavior
type AIConfig struct {
	Provider       string        `yaml:"provider"`        // which configured provider handles requests
	RequestTimeout time.Duration `yaml:"request_timeout"` // per LLM call
	RatePerMinute  int           `yaml:"rate_per_minute"` // provider call budget
	PromptBudget   int           `yaml:"prompt_budget"`   // token budget for code/stdout excerpts
}

// ExecutionConfig controls the Python execution engine
type ExecutionConfig struct {
	Python       string        `yaml:"python"`        // interpreter binary
	WorkspaceDir string        `yaml:"workspace_dir"` // dataset staging + cwd; temp dir if empty
	RunTimeout   time.Duration `yaml:"run_timeout"`   // 0 = no deadline (matches engine contract)
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Default returns a config populated with defaults
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Bind: DefaultBind},
		Storage: StorageConfig{Path: filepath.Join(dataDir(), "modelpad.db")},
		AI: AIConfig{
			Provider:       DefaultProvider,
			RequestTimeout: DefaultRequestTimeout,
			RatePerMinute:  DefaultRatePerMinute,
			PromptBudget:   DefaultPromptBudget,
		},
		Execution: ExecutionConfig{Python: DefaultPython},
		Logging:   LoggingConfig{Dir: filepath.Join(dataDir(), "logs"), Level: "info"},
	}
}

// Load reads the config file (if present), then applies environment
// overrides. A missing file is not an error; env-only setups are common.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return fmt.Errorf("server.bind cannot be empty")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}
	if c.AI.Provider != "" {
		if _, ok := providerDefaultModels[c.AI.Provider]; !ok {
			return fmt.Errorf("unknown ai.provider %q (openrouter, openai, anthropic)", c.AI.Provider)
		}
	}
	if c.AI.RatePerMinute < 0 {
		return fmt.Errorf("ai.rate_per_minute cannot be negative")
	}
	return nil
}

// HasProviderCredentials reports whether at least one provider is usable.
// The AI gateway returns CONFIG_ERROR on every endpoint when this is false.
func (c *Config) HasProviderCredentials() bool {
	return (c.Providers.OpenRouter.Enabled && c.Providers.OpenRouter.APIKey != "") ||
		(c.Providers.OpenAI.Enabled && c.Providers.OpenAI.APIKey != "") ||
		(c.Providers.Anthropic.Enabled && c.Providers.Anthropic.APIKey != "")
}

func (c *Config) applyProviderDefaults() {
	if c.Providers.OpenRouter.Model == "" {
		c.Providers.OpenRouter.Model = defaultOpenRouterModel
	}
	if c.Providers.OpenAI.Model == "" {
		c.Providers.OpenAI.Model = defaultOpenAIModel
	}
	if c.Providers.Anthropic.Model == "" {
		c.Providers.Anthropic.Model = defaultAnthropicModel
	}
	if c.AI.Provider == "" {
		c.AI.Provider = DefaultProvider
	}
	if c.AI.RequestTimeout <= 0 {
		c.AI.RequestTimeout = DefaultRequestTimeout
	}
	if c.AI.RatePerMinute == 0 {
		c.AI.RatePerMinute = DefaultRatePerMinute
	}
	if c.AI.PromptBudget <= 0 {
		c.AI.PromptBudget = DefaultPromptBudget
	}
	if c.Execution.Python == "" {
		c.Execution.Python = DefaultPython
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELPAD_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("MODELPAD_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MODELPAD_PYTHON"); v != "" {
		cfg.Execution.Python = v
	}
	if v := os.Getenv("MODELPAD_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("MODELPAD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MODELPAD_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("MODELPAD_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AI.RatePerMinute = n
		}
	}

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Providers.OpenRouter.APIKey = v
		cfg.Providers.OpenRouter.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
		cfg.Providers.OpenAI.Enabled = true
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
		cfg.Providers.Anthropic.Enabled = true
	}
}

func dataDir() string {
	if v := os.Getenv("MODELPAD_DATA_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".modelpad"
	}
	return filepath.Join(home, ".modelpad")
}
