package llm

import (
	"fmt"
	"time"

	"github.com/voicedev/vox/internal/config"
)

// NewRouterFromConfig builds a router with every provider that has
// credentials configured. At least one provider must be usable.
func NewRouterFromConfig(cfg *config.LLMConfig) (*Router, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm configuration cannot be nil")
	}

	timeout := 120 * time.Second
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}

	router := NewRouter(cfg.DefaultProvider)

	if cfg.OpenAI.APIKey != "" {
		router.Register(NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, timeout))
	}
	if cfg.Anthropic.APIKey != "" {
		router.Register(NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, timeout))
	}

	if len(router.Providers()) == 0 {
		return nil, fmt.Errorf("no LLM provider configured; set an API key for openai or anthropic")
	}

	return router, nil
}

// DefaultRequest builds a Request from configured generation parameters
func DefaultRequest(cfg *config.LLMConfig, prompt string) Request {
	return Request{
		Prompt:      prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}
