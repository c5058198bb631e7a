package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/v3"
	openaiopt "github.com/openai/openai-go/v3/option"
)

// Provider issues one grounded completion call. Every implementation must
// be called at temperature=0 and must never retry (spec §4.7 Non-goal).
type Provider interface {
	ModelID() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// anthropicProvider calls Claude models via the official SDK.
type anthropicProvider struct {
	client  anthropic.Client
	model   string
	maxTok  int64
}

// NewAnthropicProvider constructs the primary editor provider (spec §4.7
// "anthropic (primary, anthropic-sdk-go)").
func NewAnthropicProvider(apiKey, model string, maxTokens int64) Provider {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &anthropicProvider{
		client: anthropic.NewClient(anthropicopt.WithAPIKey(apiKey), anthropicopt.WithMaxRetries(0)),
		model:  model,
		maxTok: maxTokens,
	}
}

func (p *anthropicProvider) ModelID() string { return p.model }

func (p *anthropicProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTok,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("editor: anthropic complete: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// openaiProvider calls OpenAI-compatible chat completion endpoints via the
// official SDK. It is the editor's secondary provider; embeddings for C2/C3
// go through retrieve.NewOpenAICompatibleCall instead.
type openaiProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider constructs the secondary editor provider (spec §4.7
// "openai (openai-go/v3)").
func NewOpenAIProvider(apiKey, baseURL, model string) Provider {
	opts := []openaiopt.RequestOption{openaiopt.WithAPIKey(apiKey), openaiopt.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, openaiopt.WithBaseURL(baseURL))
	}
	return &openaiProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (p *openaiProvider) ModelID() string { return p.model }

func (p *openaiProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("editor: openai complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("editor: openai complete: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// NewProvider selects a provider by name, mirroring the teacher's
// provider-name-keyed selection pattern in embeddingProviders.
func NewProvider(name, apiKey, baseURL, model string) (Provider, error) {
	switch strings.ToLower(name) {
	case "anthropic":
		return NewAnthropicProvider(apiKey, model, 0), nil
	case "openai":
		return NewOpenAIProvider(apiKey, baseURL, model), nil
	default:
		return nil, fmt.Errorf("editor: unsupported provider %q", name)
	}
}
