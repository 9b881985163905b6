package game

import (
	"maps"

	"github.com/lox/llmarena/internal/interpret"
	"github.com/lox/llmarena/internal/ledger"
)

// ActionRecord is one agent's result from the action phase.
type ActionRecord struct {
	Agent       string
	Action      string
	RawResponse string
	Match       interpret.Match
	Failed      bool // the completion request was exhausted
}

// PayoffRecord is the result of the payoff phase.
type PayoffRecord struct {
	Key       string
	Payoffs   map[string]float64
	Found     bool
	Truncated bool
}

// ReflectionRecord is one agent's result from the reflection phase.
type ReflectionRecord struct {
	Agent       string
	Text        string
	RawResponse string
	Failed      bool
}

// RoundView is a round in progress, as shown to reflection prompts.
type RoundView struct {
	Round   int // 1-based number of the round being played
	Actions []ActionRecord
	Payoff  PayoffRecord
}

// State is the game state between rounds. It only changes at commit, and
// always as a whole.
type State struct {
	Round            int
	Order            []string
	Actions          map[string]ledger.Action
	Payoffs          map[string]float64
	Reflections      map[string]string
	CumulativeScores map[string]float64
}

func newState(order []string) State {
	scores := make(map[string]float64, len(order))
	for _, name := range order {
		scores[name] = 0
	}
	return State{
		Order:            order,
		Actions:          map[string]ledger.Action{},
		Payoffs:          map[string]float64{},
		Reflections:      map[string]string{},
		CumulativeScores: scores,
	}
}

// next returns the state after committing a round. s is left untouched.
func (s State) next(actions []ActionRecord, payoff PayoffRecord, reflections []ReflectionRecord) State {
	n := State{
		Round:            s.Round + 1,
		Order:            s.Order,
		Actions:          make(map[string]ledger.Action, len(actions)),
		Payoffs:          maps.Clone(payoff.Payoffs),
		Reflections:      make(map[string]string, len(reflections)),
		CumulativeScores: maps.Clone(s.CumulativeScores),
	}
	if n.Payoffs == nil {
		n.Payoffs = map[string]float64{}
	}
	for _, a := range actions {
		n.Actions[a.Agent] = ledger.Action{Action: a.Action, RawResponse: a.RawResponse}
	}
	for _, r := range reflections {
		n.Reflections[r.Agent] = r.Text
	}
	for _, name := range s.Order {
		n.CumulativeScores[name] += payoff.Payoffs[name]
	}
	return n
}

// Record returns the ledger snapshot of s.
func (s State) Record() ledger.RoundRecord {
	return ledger.RoundRecord{
		Round:            s.Round,
		Actions:          maps.Clone(s.Actions),
		Payoffs:          maps.Clone(s.Payoffs),
		Reflections:      maps.Clone(s.Reflections),
		CumulativeScores: maps.Clone(s.CumulativeScores),
	}
}

// Winners returns the agents holding the highest cumulative score, in
// registration order, and that score.
func (s State) Winners() ([]string, float64) {
	var high float64
	for i, name := range s.Order {
		if score := s.CumulativeScores[name]; i == 0 || score > high {
			high = score
		}
	}
	var winners []string
	for _, name := range s.Order {
		if s.CumulativeScores[name] == high {
			winners = append(winners, name)
		}
	}
	return winners, high
}
