// Package llm produces answers for QA pairs. Every provider satisfies
// Generator; New wraps the chosen one with timing, tracing and metrics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/syncraft-backend/internal/pkg/envutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderMock       = "mock"

	OpenRouterBaseURL = "https://openrouter.ai/api/v1/"

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

var defaultModels = map[string]string{
	ProviderOpenRouter: "anthropic/claude-3.7-sonnet",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderAnthropic:  "claude-3-7-sonnet-latest",
	ProviderGemini:     "gemini-2.0-flash",
	ProviderMock:       "mock",
}

var ErrEmptyCompletion = errors.New("llm: empty completion")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

func (c Config) withDefaults() Config {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderMock
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.Provider == ProviderOpenRouter && strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = OpenRouterBaseURL
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// ConfigFromEnv resolves the provider.
//
// TESTING=true always selects mock. Otherwise LLM_PROVIDER wins when set; if
// it is empty the first provider with an API key is used, in the order
// openrouter, openai, anthropic, gemini, and mock when none has one.
func ConfigFromEnv(log *logger.Logger) Config {
	cfg := Config{
		Model:      envutil.GetEnv("LLM_MODEL", "", log),
		BaseURL:    envutil.GetEnv("LLM_BASE_URL", "", log),
		MaxTokens:  envutil.GetEnvAsInt("LLM_MAX_TOKENS", DefaultMaxTokens, log),
		Timeout:    envutil.GetEnvAsDuration("LLM_TIMEOUT", 60*time.Second, log),
		MaxRetries: envutil.GetEnvAsInt("LLM_MAX_RETRIES", 2, log),
	}
	if envutil.GetEnvAsBool("TESTING", false, log) {
		cfg.Provider = ProviderMock
		return cfg.withDefaults()
	}

	keys := map[string]string{
		ProviderOpenRouter: envutil.GetEnv("OPENROUTER_API_KEY", "", log),
		ProviderOpenAI:     envutil.GetEnv("OPENAI_API_KEY", "", log),
		ProviderAnthropic:  envutil.GetEnv("ANTHROPIC_API_KEY", "", log),
		ProviderGemini:     envutil.GetEnv("GEMINI_API_KEY", "", log),
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(envutil.GetEnv("LLM_PROVIDER", "", log)))
	if cfg.Provider == "" {
		cfg.Provider = ProviderMock
		for _, p := range []string{ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
			if strings.TrimSpace(keys[p]) != "" {
				cfg.Provider = p
				break
			}
		}
	}
	cfg.APIKey = strings.TrimSpace(keys[cfg.Provider])
	return cfg.withDefaults()
}

// New builds the provider for cfg and wraps it with instrumentation.
func New(cfg Config, log *logger.Logger) (Generator, error) {
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	if cfg.Provider != ProviderMock && cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: provider %q needs an API key", cfg.Provider)
	}

	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case ProviderOpenRouter, ProviderOpenAI:
		gen = NewOpenAI(cfg)
	case ProviderAnthropic:
		gen = NewAnthropic(cfg)
	case ProviderGemini:
		gen, err = NewGemini(context.Background(), cfg)
	case ProviderMock:
		gen = Mock{}
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	log.Info("LLM provider configured", "provider", cfg.Provider, "model", cfg.Model)
	return Instrument(gen, cfg, log), nil
}
