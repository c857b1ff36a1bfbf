// Package llm adapts an OpenAI-compatible chat API to narrative.Generator.
package llm

import (
	"context"
	"fmt"
	"time"

	"trialmetrics/internal/config"
	"trialmetrics/internal/errors"
	"trialmetrics/internal/narrative"
)

// Config holds LLM adapter configuration
type Config struct {
	Model        string        // e.g., "gpt-4.1-nano"
	APIKey       string        // OpenAI API key
	BaseURL      string        // Optional override (default: https://api.openai.com/v1)
	SystemPrompt string        // Sent as the system message on every request
	Temperature  float64       // 0.0-1.0, lower = more deterministic
	MaxTokens    int           // Max tokens in response
	Timeout      time.Duration // Request timeout
}

// ConfigFromApp maps application AI settings onto adapter settings.
func ConfigFromApp(ai config.AIConfig) Config {
	return Config{
		Model:        ai.OpenAIModel,
		APIKey:       ai.OpenAIKey,
		BaseURL:      ai.BaseURL,
		SystemPrompt: narrative.SystemPrompt,
		Temperature:  ai.Temperature,
		MaxTokens:    ai.MaxTokens,
		Timeout:      ai.Timeout,
	}
}

// GeneratorAdapter implements narrative.Generator using an LLM
type GeneratorAdapter struct {
	config    Config
	llmClient LLMClient
}

var _ narrative.Generator = (*GeneratorAdapter)(nil)

// NewGeneratorAdapter creates a new LLM generator adapter
func NewGeneratorAdapter(config Config) (*GeneratorAdapter, error) {
	client, err := newLLMClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewGeneratorAdapterWithClient(config, client), nil
}

// NewGeneratorAdapterWithClient wires an existing client, e.g. a MockLLMClient.
func NewGeneratorAdapterWithClient(config Config, client LLMClient) *GeneratorAdapter {
	return &GeneratorAdapter{config: config, llmClient: client}
}

// Generate sends prompt to the configured model.
func (g *GeneratorAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	out, err := g.llmClient.ChatCompletion(ctx, g.config.Model, prompt, g.config.MaxTokens)
	if err != nil {
		return "", errors.ExternalServiceError("llm", err)
	}
	return out, nil
}
