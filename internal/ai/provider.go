// Package ai wraps an external language model for category suggestion,
// narrative summaries, pattern insights and free-text questions. Every call
// is best-effort: failures are logged and replaced by static text.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finanzas/internal/core"
)

// Prompt is one single-turn completion request.
type Prompt struct {
	System      string
	User        string
	Model       string // empty selects the provider default
	Temperature float64
	MaxTokens   int // 0 means provider default
}

// Provider sends a prompt to a language model and returns its text answer.
type Provider interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}

// Provider kinds accepted by NewProvider.
const (
	KindOpenAI   = "openai"
	KindGigaChat = "gigachat"
	KindNone     = "none"
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrEmptyResponse = errors.New("empty response from language model")
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Kind string

	OpenAIKey     string
	OpenAIBaseURL string

	GigaChatKey                string
	GigaChatScope              string
	GigaChatInsecureSkipVerify bool
}

// NewProvider builds the configured provider. Kind "none" returns a nil
// provider and no error; a missing key is a configuration error.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindNone:
		return nil, nil
	case "", KindOpenAI:
		if strings.TrimSpace(cfg.OpenAIKey) == "" {
			return nil, core.Misconfigured("OPENAI_API_KEY", ErrMissingAPIKey)
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	case KindGigaChat:
		if strings.TrimSpace(cfg.GigaChatKey) == "" {
			return nil, core.Misconfigured("GIGACHAT_API_KEY", ErrMissingAPIKey)
		}
		g, err := NewGigaChat(ctx, cfg.GigaChatKey, cfg.GigaChatScope, cfg.GigaChatInsecureSkipVerify)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, core.Misconfigured("AI_PROVIDER", fmt.Errorf("unknown provider %q", cfg.Kind))
	}
}
