package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/lox/llmarena/internal/completion"
	"github.com/lox/llmarena/internal/config"
	"github.com/lox/llmarena/internal/registry"
	"github.com/lox/llmarena/internal/rules"
)

// app holds everything built from the run configuration.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	registry  *registry.Registry
	providers *completion.Providers
	games     rules.Dir
}

func newApp(g *Globals) (*app, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Arena.LogLevel = g.LogLevel
	}
	if g.EnvFile != "" {
		cfg.Arena.EnvFile = g.EnvFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", g.Config, err)
	}

	logger, err := newLogger(cfg.Arena.LogLevel)
	if err != nil {
		return nil, err
	}

	if err := loadEnv(cfg.Arena.EnvFile); err != nil {
		return nil, err
	}

	agents, err := loadRoles(cfg.Arena.RolesFile, logger)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(logger, agents...)
	if err != nil {
		return nil, err
	}

	providers, err := completion.NewProviders(logger, cfg.ProviderConfigs()...)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		providers: providers,
		games:     rules.Dir(cfg.Arena.GamesDir),
	}, nil
}

func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
	}), nil
}

// loadEnv loads a dotenv file without overriding variables already set. A
// missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// loadRoles reads the permanent agents. A missing role file leaves the
// registry empty so temporary players can still be seated.
func loadRoles(path string, logger *log.Logger) ([]registry.Agent, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Role file not found, starting with no permanent agents", "path", path)
		return nil, nil
	}
	return registry.LoadFile(path)
}
