package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lox/llmarena/internal/ledger"
)

// HistoryCmd is the root command for ledger browsing.
type HistoryCmd struct {
	List        HistoryListCmd        `cmd:"" default:"1" help:"List recorded games, newest first"`
	Show        HistoryShowCmd        `cmd:"" help:"Print a recorded game round by round"`
	Export      HistoryExportCmd      `cmd:"" help:"Export a recorded game as Markdown"`
	Leaderboard HistoryLeaderboardCmd `cmd:"" help:"Show totals per agent across every game in the SQLite mirror"`
}

// HistoryListCmd lists ledger files.
type HistoryListCmd struct {
	Game  string `help:"Only show ledgers for this game"`
	Limit int    `default:"20" help:"Maximum number of ledgers to show (0 = all)"`
}

func (c *HistoryListCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	entries, err := ledger.NewFileStore(a.cfg.Arena.LogDirectory, a.logger, nil).List()
	if err != nil {
		return err
	}

	t := newTable("ID", "Game", "Started", "Rounds", "Size")
	shown := 0
	for _, e := range entries {
		if c.Game != "" && !strings.EqualFold(e.Game, c.Game) {
			continue
		}
		if c.Limit > 0 && shown == c.Limit {
			break
		}
		rounds := "?"
		if records, err := ledger.ReadFile(e.Path); err == nil {
			rounds = strconv.Itoa(len(records))
		}
		t.Row(e.ID, e.Game, e.Started.Format("2006-01-02 15:04:05"), rounds, humanize.Bytes(uint64(e.Size)))
		shown++
	}
	if shown == 0 {
		fmt.Fprintf(os.Stdout, "No ledgers in %s\n", a.cfg.Arena.LogDirectory)
		return nil
	}
	fmt.Fprintln(os.Stdout, t.String())
	return nil
}

// HistoryShowCmd prints one ledger.
type HistoryShowCmd struct {
	Ledger string `arg:"" help:"Ledger id or path to a ledger file"`
}

func (c *HistoryShowCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	records, err := loadLedger(a, c.Ledger)
	if err != nil {
		return err
	}
	return printLedger(os.Stdout, c.Ledger, records)
}

func printLedger(w io.Writer, title string, records []ledger.RoundRecord) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("=== %s ===", title)))
	if len(records) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No rounds were recorded."))
		return nil
	}

	for _, r := range records {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Round %d", r.Round)))
		fmt.Fprintln(w, roundTable(r))
		for _, agent := range r.Agents() {
			if text, ok := r.Reflections[agent]; ok {
				fmt.Fprintf(w, "%s %s\n", agentStyle.Render(agent+":"), dimStyle.Render(text))
			}
		}
	}

	last := records[len(records)-1]
	winners, _ := ledger.Standings(records)
	fmt.Fprintln(w)
	standings(w, last.Agents(), last.CumulativeScores, winners)
	return nil
}

// HistoryExportCmd writes a ledger as Markdown.
type HistoryExportCmd struct {
	Ledger string `arg:"" help:"Ledger id or path to a ledger file"`
	Output string `short:"o" help:"Output file (default stdout)"`
}

func (c *HistoryExportCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	records, err := loadLedger(a, c.Ledger)
	if err != nil {
		return err
	}

	title := strings.TrimSuffix(filepath.Base(c.Ledger), ".json")
	if c.Output == "" {
		return ledger.WriteMarkdown(os.Stdout, title, records)
	}

	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.Output, err)
	}
	if err := ledger.WriteMarkdown(f, title, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.logger.Info("Exported ledger", "ledger", c.Ledger, "path", c.Output, "rounds", len(records))
	return nil
}

// HistoryLeaderboardCmd aggregates scores from the SQLite mirror.
type HistoryLeaderboardCmd struct{}

func (c *HistoryLeaderboardCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	if a.cfg.Arena.SQLitePath == "" {
		return errors.New("leaderboard needs sqlite_path set in the arena block")
	}

	ctx := context.Background()
	store, err := ledger.OpenSQLite(ctx, a.cfg.Arena.SQLitePath, a.logger, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	totals, err := store.Leaderboard(ctx)
	if err != nil {
		return err
	}
	t := newTable("Agent", "Games", "Rounds", "Total")
	for _, at := range totals {
		t.Row(at.Agent, strconv.Itoa(at.Games), strconv.Itoa(at.Rounds), ledger.FormatScore(at.Total))
	}
	fmt.Fprintln(os.Stdout, t.String())
	return nil
}

// loadLedger accepts either a path to a ledger file or an id in the
// configured log directory.
func loadLedger(a *app, ref string) ([]ledger.RoundRecord, error) {
	if strings.HasSuffix(ref, ".json") || strings.ContainsAny(ref, `/\`) {
		return ledger.ReadFile(ref)
	}
	return ledger.NewFileStore(a.cfg.Arena.LogDirectory, a.logger, nil).Load(ref)
}
