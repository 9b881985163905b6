package completion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const ollamaDefaultURL = "http://localhost:11434"

type ollamaProvider struct {
	client *api.Client
}

func newOllamaProvider(_ context.Context, cfg ProviderConfig, _ string) (Provider, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = ollamaDefaultURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	return &ollamaProvider{client: api.NewClient(base, http.DefaultClient)}, nil
}

func (p *ollamaProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": defaultTemperature,
			"num_predict": defaultMaxTokens,
		},
	}

	var content string
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
