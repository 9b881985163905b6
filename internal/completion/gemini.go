package completion

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

type geminiProvider struct {
	client *genai.Client
}

func newGeminiProvider(ctx context.Context, cfg ProviderConfig, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini requires an API key")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &geminiProvider{client: client}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	temperature := float32(defaultTemperature)
	result, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("empty response from gemini")
	}
	return result.Text(), nil
}
