package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/llmarena/internal/completion"
	"github.com/lox/llmarena/internal/game"
	"github.com/lox/llmarena/internal/registry"
	"github.com/lox/llmarena/internal/rules"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, completion.DefaultPolicy(), policy)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "arena.hcl", `
arena {
  log_directory = "out"
  language      = "zh"
  max_retries   = 0
  retry_delay   = "250ms"
  timeout       = "30s"
  dispatch      = "concurrent"
  workers       = 8
  payoff_policy = "strict"
}

provider "deepseek" {
  api_key_env      = "DEEPSEEK_API_KEY"
  base_url         = "https://api.deepseek.com"
  available_models = ["deepseek-chat"]
}

provider "claude" {
  kind        = "anthropic"
  api_key_env = "ANTHROPIC_API_KEY"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "out", cfg.Arena.LogDirectory)
	assert.Equal(t, "zh", cfg.Arena.Language)
	assert.Equal(t, "config/games", cfg.Arena.GamesDir, "unset values take defaults")
	assert.Equal(t, "info", cfg.Arena.LogLevel)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, completion.Policy{MaxRetries: 0, RetryDelay: 250 * time.Millisecond, Timeout: 30 * time.Second}, policy)
	assert.Equal(t, game.Concurrent, cfg.Dispatch())
	assert.Equal(t, game.PayoffStrict, cfg.PayoffPolicy())
	assert.Equal(t, 8, cfg.Arena.Workers)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, completion.KindOpenAI, cfg.Providers[0].Kind)
	assert.Equal(t, completion.KindAnthropic, cfg.GetProviderByName("claude").Kind)
	assert.Nil(t, cfg.GetProviderByName("missing"))

	pcs := cfg.ProviderConfigs()
	assert.Equal(t, completion.ProviderConfig{
		Name:      "deepseek",
		Kind:      completion.KindOpenAI,
		APIKeyEnv: "DEEPSEEK_API_KEY",
		BaseURL:   "https://api.deepseek.com",
		Models:    []string{"deepseek-chat"},
	}, pcs[0])
}

func TestLoadWithoutArenaBlock(t *testing.T) {
	path := writeFile(t, "arena.hcl", `provider "local" {
  kind = "ollama"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "logs", cfg.Arena.LogDirectory)
	assert.Equal(t, 5, *cfg.Arena.MaxRetries)
}

func TestLoadRejectsBadHCL(t *testing.T) {
	_, err := Load(writeFile(t, "bad.hcl", `arena {`))
	assert.ErrorContains(t, err, "failed to parse HCL")

	_, err = Load(writeFile(t, "unknown.hcl", `arena { colour = "red" }`))
	assert.ErrorContains(t, err, "failed to decode HCL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad delay", func(c *Config) { c.Arena.RetryDelay = "soon" }, "retry_delay"},
		{"negative timeout", func(c *Config) { c.Arena.Timeout = "-1s" }, "timeout must be positive"},
		{"zero timeout", func(c *Config) { c.Arena.Timeout = "0s" }, "timeout must be positive"},
		{"negative retry delay", func(c *Config) { c.Arena.RetryDelay = "-1s" }, "retry_delay must not be negative"},
		{"negative retries", func(c *Config) { n := -1; c.Arena.MaxRetries = &n }, "max_retries"},
		{"bad dispatch", func(c *Config) { c.Arena.Dispatch = "parallel" }, "dispatch"},
		{"bad payoff policy", func(c *Config) { c.Arena.PayoffPolicy = "loose" }, "payoff policy"},
		{"no workers", func(c *Config) { c.Arena.Workers = -2 }, "workers"},
		{"bad language", func(c *Config) { c.Arena.Language = "fr" }, "language"},
		{"bad kind", func(c *Config) { c.Providers[0].Kind = "bard" }, "invalid kind"},
		{"duplicate provider", func(c *Config) { c.Providers = append(c.Providers, c.Providers[0]) }, "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoadProvidersJSON(t *testing.T) {
	path := writeFile(t, "providers.json", `{
  "openrouter": {"api_key_env": "OPENROUTER_API_KEY", "base_url": "https://openrouter.ai/api/v1", "available_models": ["x/y"]},
  "deepseek": {"api_key_env": "DEEPSEEK_API_KEY", "base_url": "https://api.deepseek.com", "available_models": ["deepseek-chat"]},
  "gemini": {"kind": "gemini", "api_key_env": "GEMINI_API_KEY"}
}`)

	providers, err := LoadProvidersJSON(path)
	require.NoError(t, err)
	require.Len(t, providers, 3)
	assert.Equal(t, "deepseek", providers[0].Name)
	assert.Equal(t, completion.KindOpenAI, providers[0].Kind)
	assert.Equal(t, completion.KindGemini, providers[1].Kind)
	assert.Equal(t, []string{"x/y"}, providers[2].AvailableModels)

	_, err = LoadProvidersJSON(writeFile(t, "broken.json", `[`))
	assert.Error(t, err)
	_, err = LoadProvidersJSON(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

func TestLoadMergesProviderFile(t *testing.T) {
	providers := writeFile(t, "providers.json", `{"deepseek": {"api_key_env": "DEEPSEEK_API_KEY"}}`)
	path := writeFile(t, "arena.hcl", `
arena {
  provider_file = "`+filepath.ToSlash(providers)+`"
}
provider "local" {
  kind = "ollama"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "local", cfg.Providers[0].Name)
	assert.Equal(t, "deepseek", cfg.Providers[1].Name)
	require.NoError(t, cfg.Validate())
}

func TestShippedConfiguration(t *testing.T) {
	cfg, err := Load("../../arena.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	agents, err := registry.LoadFile(filepath.Join("../..", cfg.Arena.RolesFile))
	require.NoError(t, err)
	require.NotEmpty(t, agents)
	for _, a := range agents {
		assert.NotNil(t, cfg.GetProviderByName(a.Provider), "agent %s uses unconfigured provider %s", a.Name, a.Provider)
	}

	games := rules.Dir(filepath.Join("../..", cfg.Arena.GamesDir))
	ids, err := games.List()
	require.NoError(t, err)
	assert.Contains(t, ids, "prisoners_dilemma")
	for _, id := range ids {
		_, err := games.Load(id)
		assert.NoError(t, err, id)
	}
}
