package ai

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"finanzas/internal/core"
)

// DefaultOpenAIModel is used when a prompt names no model.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI talks to a chat-completion API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates a provider. baseURL may point at any compatible API;
// empty keeps the public endpoint.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Name() string { return KindOpenAI }

func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	model := p.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	var messages []openai.ChatCompletionMessage
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(p.Temperature),
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", core.Communication("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.Communication("openai chat completion", ErrEmptyResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
