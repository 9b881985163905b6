package ledger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lox/llmarena/internal/statistics"
)

// Stats builds per-agent statistics from a ledger's records.
func Stats(records []RoundRecord) *statistics.Table {
	table := statistics.New()
	for _, r := range records {
		for _, agent := range r.Agents() {
			table.Add(agent, r.Actions[agent].Action, r.Payoffs[agent])
		}
	}
	return table
}

// WriteMarkdown renders a ledger as a Markdown report: each round's actions,
// payoffs and reflections, then final standings and per-agent statistics.
func WriteMarkdown(w io.Writer, title string, records []RoundRecord) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n\n", title)
	if len(records) == 0 {
		fmt.Fprintln(bw, "_No rounds were recorded._")
		return bw.Flush()
	}

	for _, r := range records {
		fmt.Fprintf(bw, "## Round %d\n\n", r.Round)
		fmt.Fprintln(bw, "| Agent | Action | Payoff | Cumulative |")
		fmt.Fprintln(bw, "|---|---|---:|---:|")
		for _, agent := range r.Agents() {
			fmt.Fprintf(bw, "| %s | %s | %s | %s |\n",
				cell(agent), cell(r.Actions[agent].Action),
				FormatScore(r.Payoffs[agent]), FormatScore(r.CumulativeScores[agent]))
		}
		fmt.Fprintln(bw)

		for _, agent := range r.Agents() {
			reflection, ok := r.Reflections[agent]
			if !ok {
				continue
			}
			fmt.Fprintf(bw, "**%s** reflects:\n\n", agent)
			for _, line := range strings.Split(reflection, "\n") {
				fmt.Fprintf(bw, "> %s\n", line)
			}
			fmt.Fprintln(bw)
		}
	}

	winners, high := Standings(records)
	fmt.Fprintln(bw, "## Final standings")
	fmt.Fprintln(bw)
	if len(winners) == 1 {
		fmt.Fprintf(bw, "Winner: **%s** with %s points.\n\n", winners[0], FormatScore(high))
	} else {
		fmt.Fprintf(bw, "Tie between **%s** with %s points each.\n\n", strings.Join(winners, "**, **"), FormatScore(high))
	}

	fmt.Fprintln(bw, "| Agent | Total | Mean | Std dev | Favorite action |")
	fmt.Fprintln(bw, "|---|---:|---:|---:|---|")
	for _, a := range Stats(records).Agents() {
		fmt.Fprintf(bw, "| %s | %s | %.2f | %.2f | %s |\n",
			cell(a.Name), FormatScore(a.Sum), a.Mean(), a.StdDev(), cell(a.FavoriteAction()))
	}
	return bw.Flush()
}

// FormatScore prints whole scores without a fractional part.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
