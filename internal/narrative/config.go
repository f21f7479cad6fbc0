package narrative

import (
	"time"

	"loan-agent/internal/common/config"
)

type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	APIKeyEnv    string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider:     config.ProviderOpenAI,
		APIKeyEnv:    config.DefaultAPIKeyEnv,
		Model:        config.DefaultModel,
		Temperature:  0.2,
		Timeout:      60 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
		CacheTTL:     time.Hour,
	}
}

// ConfigFromApp maps the llm and cache sections of the application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		Provider:     cfg.LLM.Provider,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		APIKeyEnv:    cfg.LLM.APIKeyEnv,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Timeout:      config.GetDuration(cfg.LLM.Timeout),
		MaxRetries:   cfg.LLM.MaxRetries,
		RetryBackoff: config.GetDuration(cfg.LLM.RetryBackoff),
		CacheTTL:     cfg.Cache.CacheTTL(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = d.APIKeyEnv
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.BaseURL == "" && c.Provider == config.ProviderOpenAI {
		c.BaseURL = config.DefaultOpenAIBaseURL
	}
}
