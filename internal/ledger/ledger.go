// Package ledger persists the ordered sequence of round records for a game.
//
// A ledger is semantically append-only: once a record is appended it is never
// changed, and readers never observe a partially written round.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfOrder is returned when a record's round does not follow the last one.
var ErrOutOfOrder = errors.New("round record out of order")

// Action is one agent's resolved action and the text it came from.
type Action struct {
	Action      string `json:"action"`
	RawResponse string `json:"raw_response"`
}

// RoundRecord is the immutable snapshot of a game at the end of a round.
type RoundRecord struct {
	Round            int                `json:"round"`
	Actions          map[string]Action  `json:"actions"`
	Payoffs          map[string]float64 `json:"payoffs"`
	Reflections      map[string]string  `json:"reflections"`
	CumulativeScores map[string]float64 `json:"cumulative_scores"`
}

// Agents returns the agent names present in the record, sorted.
func (r RoundRecord) Agents() []string {
	names := make([]string, 0, len(r.CumulativeScores))
	for name := range r.CumulativeScores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ledger is the round history of one game.
type Ledger interface {
	// ID identifies the ledger within its store.
	ID() string
	// Append persists record after every record already appended.
	Append(ctx context.Context, record RoundRecord) error
	// Len returns the number of records appended.
	Len() int
	Close() error
}

// Opener creates a new, empty ledger for a game.
type Opener interface {
	Open(ctx context.Context, game string) (Ledger, error)
}

// Standings returns the highest cumulative score of the final record and
// every agent that reached it, sorted by name.
func Standings(records []RoundRecord) (winners []string, high float64) {
	if len(records) == 0 {
		return nil, 0
	}
	final := records[len(records)-1].CumulativeScores
	first := true
	for _, score := range final {
		if first || score > high {
			high = score
			first = false
		}
	}
	for name, score := range final {
		if score == high {
			winners = append(winners, name)
		}
	}
	sort.Strings(winners)
	return winners, high
}

// encode writes v as JSON without HTML escaping so raw responses containing
// tags stay readable.
func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func checkOrder(n int, record RoundRecord) error {
	if record.Round != n+1 {
		return fmt.Errorf("%w: expected round %d, got %d", ErrOutOfOrder, n+1, record.Round)
	}
	return nil
}
