// Package config loads the arena run configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/llmarena/internal/completion"
	"github.com/lox/llmarena/internal/game"
	"github.com/lox/llmarena/internal/prompt"
)

// Config represents the complete arena configuration
type Config struct {
	Arena     *ArenaSettings   `hcl:"arena,block"`
	Providers []ProviderConfig `hcl:"provider,block"`
}

// ArenaSettings contains run-level configuration
type ArenaSettings struct {
	LogDirectory string `hcl:"log_directory,optional"`
	Language     string `hcl:"language,optional"`
	RolesFile    string `hcl:"roles_file,optional"`
	ProviderFile string `hcl:"provider_file,optional"`
	GamesDir     string `hcl:"games_dir,optional"`
	SQLitePath   string `hcl:"sqlite_path,optional"`
	MaxRetries   *int   `hcl:"max_retries,optional"`
	RetryDelay   string `hcl:"retry_delay,optional"`
	Timeout      string `hcl:"timeout,optional"`
	Dispatch     string `hcl:"dispatch,optional"`
	Workers      int    `hcl:"workers,optional"`
	PayoffPolicy string `hcl:"payoff_policy,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	EnvFile      string `hcl:"env_file,optional"`
}

// ProviderConfig defines one named model provider
type ProviderConfig struct {
	Name            string   `hcl:"name,label"`
	Kind            string   `hcl:"kind,optional"`
	APIKeyEnv       string   `hcl:"api_key_env,optional"`
	BaseURL         string   `hcl:"base_url,optional"`
	AvailableModels []string `hcl:"available_models,optional"`
}

// Default returns the default arena configuration
func Default() *Config {
	retries := 5
	return &Config{
		Arena: &ArenaSettings{
			LogDirectory: "logs",
			Language:     "en",
			RolesFile:    "config/roles.json",
			GamesDir:     "config/games",
			MaxRetries:   &retries,
			RetryDelay:   "10s",
			Timeout:      "120s",
			Dispatch:     "sequential",
			Workers:      4,
			PayoffPolicy: "lenient",
			LogLevel:     "info",
			EnvFile:      ".env",
		},
		Providers: []ProviderConfig{
			{
				Name:            "openai",
				Kind:            completion.KindOpenAI,
				APIKeyEnv:       "OPENAI_API_KEY",
				BaseURL:         "https://api.openai.com/v1",
				AvailableModels: []string{"gpt-4o", "gpt-4o-mini", "o3-mini"},
			},
		},
	}
}

// Load loads the arena configuration from an HCL file. A missing file yields
// the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	if config.Arena.ProviderFile != "" {
		extra, err := LoadProvidersJSON(config.Arena.ProviderFile)
		if err != nil {
			return nil, err
		}
		config.Providers = append(config.Providers, extra...)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.Arena == nil {
		c.Arena = &ArenaSettings{}
	}

	a := c.Arena
	if a.LogDirectory == "" {
		a.LogDirectory = defaults.Arena.LogDirectory
	}
	if a.Language == "" {
		a.Language = defaults.Arena.Language
	}
	if a.RolesFile == "" {
		a.RolesFile = defaults.Arena.RolesFile
	}
	if a.GamesDir == "" {
		a.GamesDir = defaults.Arena.GamesDir
	}
	// max_retries = 0 is meaningful, so only an absent value takes the default.
	if a.MaxRetries == nil {
		a.MaxRetries = defaults.Arena.MaxRetries
	}
	if a.RetryDelay == "" {
		a.RetryDelay = defaults.Arena.RetryDelay
	}
	if a.Timeout == "" {
		a.Timeout = defaults.Arena.Timeout
	}
	if a.Dispatch == "" {
		a.Dispatch = defaults.Arena.Dispatch
	}
	if a.Workers == 0 {
		a.Workers = defaults.Arena.Workers
	}
	if a.PayoffPolicy == "" {
		a.PayoffPolicy = defaults.Arena.PayoffPolicy
	}
	if a.LogLevel == "" {
		a.LogLevel = defaults.Arena.LogLevel
	}

	for i := range c.Providers {
		if c.Providers[i].Kind == "" {
			c.Providers[i].Kind = completion.KindOpenAI
		}
	}
}

// Validate validates the arena configuration
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := game.ParseDispatch(c.Arena.Dispatch); err != nil {
		return err
	}
	if _, err := game.ParsePayoffPolicy(c.Arena.PayoffPolicy); err != nil {
		return err
	}
	if c.Arena.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Arena.Workers)
	}
	if !slices.Contains(prompt.Languages, c.Arena.Language) {
		return fmt.Errorf("unsupported language %q", c.Arena.Language)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return errors.New("provider with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("provider %s: configured twice", p.Name)
		}
		seen[p.Name] = true
		switch p.Kind {
		case completion.KindOpenAI, completion.KindAnthropic, completion.KindOllama, completion.KindGemini:
		default:
			return fmt.Errorf("provider %s: invalid kind %s", p.Name, p.Kind)
		}
	}
	return nil
}

// Policy returns the completion retry policy described by the settings.
func (c *Config) Policy() (completion.Policy, error) {
	delay, err := time.ParseDuration(c.Arena.RetryDelay)
	if err != nil {
		return completion.Policy{}, fmt.Errorf("invalid retry_delay: %w", err)
	}
	timeout, err := time.ParseDuration(c.Arena.Timeout)
	if err != nil {
		return completion.Policy{}, fmt.Errorf("invalid timeout: %w", err)
	}
	retries := 0
	if c.Arena.MaxRetries != nil {
		retries = *c.Arena.MaxRetries
	}
	if retries < 0 {
		return completion.Policy{}, fmt.Errorf("max_retries must not be negative, got %d", retries)
	}
	if delay < 0 {
		return completion.Policy{}, errors.New("retry_delay must not be negative")
	}
	if timeout <= 0 {
		return completion.Policy{}, errors.New("timeout must be positive")
	}
	return completion.Policy{MaxRetries: retries, RetryDelay: delay, Timeout: timeout}, nil
}

// Dispatch returns the parsed dispatch mode.
func (c *Config) Dispatch() game.Dispatch {
	d, _ := game.ParseDispatch(c.Arena.Dispatch)
	return d
}

// PayoffPolicy returns the parsed payoff policy.
func (c *Config) PayoffPolicy() game.PayoffPolicy {
	p, _ := game.ParsePayoffPolicy(c.Arena.PayoffPolicy)
	return p
}

// ProviderConfigs converts the provider blocks for completion.NewProviders.
func (c *Config) ProviderConfigs() []completion.ProviderConfig {
	out := make([]completion.ProviderConfig, len(c.Providers))
	for i, p := range c.Providers {
		out[i] = completion.ProviderConfig{
			Name:      p.Name,
			Kind:      p.Kind,
			APIKeyEnv: p.APIKeyEnv,
			BaseURL:   p.BaseURL,
			Models:    p.AvailableModels,
		}
	}
	return out
}

// GetProviderByName returns a provider configuration by name
func (c *Config) GetProviderByName(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

type jsonProvider struct {
	Kind            string   `json:"kind"`
	APIKeyEnv       string   `json:"api_key_env"`
	BaseURL         string   `json:"base_url"`
	AvailableModels []string `json:"available_models"`
}

// LoadProvidersJSON reads a JSON provider registry keyed by provider name:
//
//	{"deepseek": {"api_key_env": "DEEPSEEK_API_KEY", "base_url": "...", "available_models": [...]}}
//
// Providers are returned sorted by name with the kind defaulting to openai.
func LoadProvidersJSON(filename string) ([]ProviderConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider file: %w", err)
	}
	var raw map[string]jsonProvider
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode provider file %s: %w", filename, err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]ProviderConfig, 0, len(names))
	for _, name := range names {
		p := raw[name]
		kind := p.Kind
		if kind == "" {
			kind = completion.KindOpenAI
		}
		providers = append(providers, ProviderConfig{
			Name:            name,
			Kind:            kind,
			APIKeyEnv:       p.APIKeyEnv,
			BaseURL:         p.BaseURL,
			AvailableModels: p.AvailableModels,
		})
	}
	return providers, nil
}
