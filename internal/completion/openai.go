package completion

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Sampling settings shared by every provider.
const (
	defaultTemperature = 0.6
	defaultMaxTokens   = 1500
	reasoningMaxTokens = 2500
)

// openaiProvider speaks the chat-completions API, which also covers
// OpenAI-compatible services reached through a base URL.
type openaiProvider struct {
	client openai.Client
}

func newOpenAIProvider(_ context.Context, cfg ProviderConfig, apiKey string) (Provider, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries belong to Client.Send.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{client: openai.NewClient(opts...)}, nil
}

func (p *openaiProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, chatParams(model, prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// chatParams builds the request body. Reasoning models (ids starting with
// "o") reject temperature and take max_completion_tokens instead of
// max_tokens.
func chatParams(model, prompt string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if isReasoningModel(model) {
		params.MaxCompletionTokens = openai.Int(reasoningMaxTokens)
	} else {
		params.Temperature = openai.Float(defaultTemperature)
		params.MaxTokens = openai.Int(defaultMaxTokens)
	}
	return params
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o")
}
