package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/llmarena/internal/game"
	"github.com/lox/llmarena/internal/interpret"
	"github.com/lox/llmarena/internal/ledger"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("13"))

	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Faint(true)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// newTable returns a bordered table with a bold header row.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

// roundTable renders one committed round.
func roundTable(r ledger.RoundRecord) string {
	t := newTable("Agent", "Action", "Payoff", "Total")
	for _, agent := range r.Agents() {
		t.Row(agent, r.Actions[agent].Action, ledger.FormatScore(r.Payoffs[agent]), ledger.FormatScore(r.CumulativeScores[agent]))
	}
	return t.String()
}

// standings renders the final scores with the winners highlighted.
func standings(w io.Writer, order []string, scores map[string]float64, winners []string) {
	winner := make(map[string]bool, len(winners))
	for _, name := range winners {
		winner[name] = true
	}

	t := newTable("Agent", "Score", "")
	for _, name := range order {
		mark := ""
		if winner[name] {
			mark = winStyle.Render("winner")
		}
		t.Row(name, ledger.FormatScore(scores[name]), mark)
	}
	fmt.Fprintln(w, t.String())
}

// consoleMonitor prints game progress as it happens.
type consoleMonitor struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	started map[int]bool
}

func newConsoleMonitor(w io.Writer, verbose bool) *consoleMonitor {
	return &consoleMonitor{w: w, verbose: verbose, started: make(map[int]bool)}
}

func (m *consoleMonitor) OnGameStart(info game.GameInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintln(m.w, titleStyle.Render(fmt.Sprintf("=== %s ===", info.Name)))
	fmt.Fprintf(m.w, "Agents: %s\n", strings.Join(info.Agents, ", "))
	fmt.Fprintf(m.w, "Rounds: %d\n", info.MaxRounds)
	fmt.Fprintln(m.w, dimStyle.Render("Ledger: "+info.LedgerID))
}

func (m *consoleMonitor) OnAction(round int, a game.ActionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started[round] {
		m.started[round] = true
		fmt.Fprintln(m.w)
		fmt.Fprintln(m.w, headerStyle.Render(fmt.Sprintf("Round %d", round)))
	}

	line := fmt.Sprintf("  %s chose %s", agentStyle.Render(a.Agent), a.Action)
	switch {
	case a.Failed:
		line += warnStyle.Render(" (no response, default)")
	case a.Match != interpret.MatchExact:
		line += warnStyle.Render(fmt.Sprintf(" (%s match)", a.Match))
	}
	fmt.Fprintln(m.w, line)
}

func (m *consoleMonitor) OnRoundComplete(r ledger.RoundRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintln(m.w, roundTable(r))
	if !m.verbose {
		return
	}
	for _, agent := range r.Agents() {
		if text, ok := r.Reflections[agent]; ok {
			fmt.Fprintf(m.w, "%s %s\n", agentStyle.Render(agent+":"), dimStyle.Render(text))
		}
	}
}

func (m *consoleMonitor) OnGameComplete(res *game.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintln(m.w)
	fmt.Fprintln(m.w, titleStyle.Render("=== GAME COMPLETED ==="))
	standings(m.w, res.State.Order, res.State.CumulativeScores, res.Winners)
	if len(res.Winners) == 1 {
		fmt.Fprintf(m.w, "Winner: %s with %s points\n", winStyle.Render(res.Winners[0]), ledger.FormatScore(res.HighScore))
	} else {
		fmt.Fprintf(m.w, "Tie between %s with %s points each\n", winStyle.Render(strings.Join(res.Winners, ", ")), ledger.FormatScore(res.HighScore))
	}
}
