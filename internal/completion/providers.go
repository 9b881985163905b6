package completion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrUnknownProvider is returned for provider names with no configuration.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider kinds.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindOllama    = "ollama"
	KindGemini    = "gemini"
)

// Provider sends a single prompt to a model and returns its text.
type Provider interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// ProviderConfig describes how to reach one named provider.
type ProviderConfig struct {
	Name      string
	Kind      string // defaults to KindOpenAI
	APIKeyEnv string
	BaseURL   string
	Models    []string
}

// Factory builds a provider from its configuration and resolved API key.
type Factory func(ctx context.Context, cfg ProviderConfig, apiKey string) (Provider, error)

var factories = map[string]Factory{
	KindOpenAI:    newOpenAIProvider,
	KindAnthropic: newAnthropicProvider,
	KindOllama:    newOllamaProvider,
	KindGemini:    newGeminiProvider,
}

// Providers is a lazily populated registry of provider clients. A client is
// built the first time its provider is used and reused afterwards.
type Providers struct {
	mu      sync.Mutex
	configs map[string]ProviderConfig
	clients map[string]Provider
	getenv  func(string) string
	logger  *log.Logger
}

// NewProviders creates a registry over the given configurations.
func NewProviders(logger *log.Logger, configs ...ProviderConfig) (*Providers, error) {
	p := &Providers{
		configs: make(map[string]ProviderConfig, len(configs)),
		clients: make(map[string]Provider),
		getenv:  os.Getenv,
		logger:  logger.WithPrefix("providers"),
	}
	for _, cfg := range configs {
		if cfg.Kind == "" {
			cfg.Kind = KindOpenAI
		}
		if _, ok := factories[cfg.Kind]; !ok {
			return nil, fmt.Errorf("provider %q: unsupported kind %q", cfg.Name, cfg.Kind)
		}
		if _, dup := p.configs[cfg.Name]; dup {
			return nil, fmt.Errorf("provider %q configured twice", cfg.Name)
		}
		p.configs[cfg.Name] = cfg
	}
	return p, nil
}

// Register installs a ready-made provider under name, bypassing the factory.
func (p *Providers) Register(name string, provider Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.configs[name]; !ok {
		p.configs[name] = ProviderConfig{Name: name, Kind: KindOpenAI}
	}
	p.clients[name] = provider
}

// Has reports whether name is a configured provider.
func (p *Providers) Has(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.configs[name]
	return ok
}

// Get returns the client for name, building it on first use.
func (p *Providers) Get(ctx context.Context, name string) (Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[name]; ok {
		return client, nil
	}
	cfg, ok := p.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = p.getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			p.logger.Warn("API key environment variable is empty", "provider", name, "env", cfg.APIKeyEnv)
		}
	}

	client, err := factories[cfg.Kind](ctx, cfg, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client for %q: %w", cfg.Kind, name, err)
	}
	p.logger.Debug("Created provider client", "provider", name, "kind", cfg.Kind, "base_url", cfg.BaseURL)
	p.clients[name] = client
	return client, nil
}

// Configs returns every provider configuration sorted by name.
func (p *Providers) Configs() []ProviderConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ProviderConfig, 0, len(p.configs))
	for _, cfg := range p.configs {
		cfg.Models = slices.Clone(cfg.Models)
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
