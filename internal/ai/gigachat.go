package ai

import (
	"context"
	"strings"

	"github.com/Role1776/gigago"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

const (
	DefaultGigaChatModel = "GigaChat"
	DefaultGigaChatScope = "GIGACHAT_API_PERS"
)

// GigaChat talks to the GigaChat generative-model API.
type GigaChat struct {
	client *gigago.Client
}

// NewGigaChat obtains a client for apiKey (the base64 authorization key).
func NewGigaChat(ctx context.Context, apiKey, scope string, insecureSkipVerify bool) (*GigaChat, error) {
	if strings.TrimSpace(scope) == "" {
		scope = DefaultGigaChatScope
	}
	opts := []gigago.Option{gigago.WithCustomScope(scope)}
	if insecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		log.NewComponentLogger(log.ComponentAI).WarnContext(ctx, "GigaChat TLS certificate verification is disabled")
	}
	return newGigaChat(ctx, apiKey, opts...)
}

func newGigaChat(ctx context.Context, apiKey string, opts ...gigago.Option) (*GigaChat, error) {
	client, err := gigago.NewClient(ctx, apiKey, opts...)
	if err != nil {
		return nil, core.Communication("create GigaChat client", err)
	}
	return &GigaChat{client: client}, nil
}

func (g *GigaChat) Name() string { return KindGigaChat }

// Complete builds a model per call so system instruction and temperature
// never leak between prompts. MaxTokens is left to the service default.
func (g *GigaChat) Complete(ctx context.Context, p Prompt) (string, error) {
	name := p.Model
	if name == "" || strings.HasPrefix(name, "gpt-") {
		name = DefaultGigaChatModel
	}
	model := g.client.GenerativeModel(name)
	model.SystemInstruction = p.System
	setFloat(&model.Temperature, p.Temperature)

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: p.User},
	})
	if err != nil {
		return "", core.Communication("gigachat generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.Communication("gigachat generate", ErrEmptyResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close stops the client's background token refresher.
func (g *GigaChat) Close() error {
	g.client.Close()
	return nil
}

func setFloat[T ~float32 | ~float64](dst *T, v float64) { *dst = T(v) }
