package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/llmarena/internal/completion"
	"github.com/lox/llmarena/internal/game"
	"github.com/lox/llmarena/internal/ledger"
	"github.com/lox/llmarena/internal/metrics"
	"github.com/lox/llmarena/internal/prompt"
)

type PlayCmd struct {
	Game   string   `arg:"" help:"Game id (rule file name without .json)"`
	Agents []string `arg:"" optional:"" help:"Agents to seat, in order"`

	Player      []string `short:"p" help:"Temporary player as name=role@provider/model (repeatable)"`
	Dispatch    string   `help:"Override the dispatch mode (sequential|concurrent)"`
	Workers     int      `help:"Override the concurrent worker count"`
	Strict      bool     `help:"Abort the game when the payoff table has no matching entry"`
	Language    string   `help:"Override the prompt language (en|zh)"`
	LogDir      string   `help:"Override the ledger directory"`
	MetricsAddr string   `help:"Serve Prometheus metrics on this address while playing (e.g. localhost:9090)"`
	Verbose     bool     `help:"Print reflections after each round"`
}

func (c *PlayCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	c.override(a)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := slices.Clone(c.Agents)
	defer a.registry.ClearTemporary()
	for _, raw := range c.Player {
		spec, err := parsePlayer(raw)
		if err != nil {
			return err
		}
		agent, err := a.addPlayer(spec)
		if err != nil {
			return err
		}
		if !slices.Contains(names, agent.Name) {
			names = append(names, agent.Name)
		}
	}

	var recorder metrics.Recorder = metrics.Nop{}
	if c.MetricsAddr != "" {
		prom := metrics.NewPrometheus()
		recorder = prom
		shutdown, err := serveMetrics(c.MetricsAddr, prom, a.logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	policy, err := a.cfg.Policy()
	if err != nil {
		return err
	}
	prompts, err := prompt.New(a.cfg.Arena.Language)
	if err != nil {
		return err
	}

	files := ledger.NewFileStore(a.cfg.Arena.LogDirectory, a.logger, nil)
	var opener ledger.Opener = files
	if path := a.cfg.Arena.SQLitePath; path != "" {
		store, err := ledger.OpenSQLite(ctx, path, a.logger, nil)
		if err != nil {
			return err
		}
		defer store.Close()
		opener = ledger.Tee(a.logger, files, store)
	}

	orchestrator, err := game.New(game.Config{
		Registry:     a.registry,
		Rules:        a.games,
		Client:       completion.NewClient(a.providers, a.logger, completion.WithMetrics(recorder)),
		Providers:    a.providers,
		Prompts:      prompts,
		Ledgers:      opener,
		Policy:       policy,
		Dispatch:     a.cfg.Dispatch(),
		Workers:      a.cfg.Arena.Workers,
		PayoffPolicy: a.cfg.PayoffPolicy(),
		Monitor:      newConsoleMonitor(os.Stdout, c.Verbose),
		Metrics:      recorder,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	result, err := orchestrator.Start(ctx, c.Game, names)
	if errors.Is(err, context.Canceled) {
		a.logger.Warn("Game interrupted, completed rounds remain in the ledger")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Ledger saved as %s in %s\n", result.LedgerID, files.Dir())
	return nil
}

// override applies command-line settings on top of the loaded configuration.
func (c *PlayCmd) override(a *app) {
	if c.Dispatch != "" {
		a.cfg.Arena.Dispatch = c.Dispatch
	}
	if c.Workers > 0 {
		a.cfg.Arena.Workers = c.Workers
	}
	if c.Strict {
		a.cfg.Arena.PayoffPolicy = game.PayoffStrict.String()
	}
	if c.Language != "" {
		a.cfg.Arena.Language = c.Language
	}
	if c.LogDir != "" {
		a.cfg.Arena.LogDirectory = c.LogDir
	}
}

// serveMetrics exposes the Prometheus handler on addr until shutdown is
// called.
func serveMetrics(addr string, prom *metrics.Prometheus, logger *log.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", listener.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
