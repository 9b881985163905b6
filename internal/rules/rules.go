// Package rules loads game rule files and evaluates payoffs and termination.
//
// A RuleSet is immutable once loaded. All of its methods are pure functions
// over their arguments, so a single RuleSet can be shared across a game.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// DefaultMaxRounds is used when a rule file omits max_rounds.
const DefaultMaxRounds = 3

var (
	// ErrInvalidRules is returned for unreadable or malformed rule files.
	ErrInvalidRules = errors.New("invalid rule file")
	// ErrPayoffMissing is returned by PayoffStrict when no table entry matches.
	ErrPayoffMissing = errors.New("payoff table has no entry")
	// ErrPayoffLength is returned by PayoffStrict when an entry has the wrong arity.
	ErrPayoffLength = errors.New("payoff entry length does not match agent count")
)

// File is the on-disk shape of a game rule file.
type File struct {
	Name      string               `json:"name"`
	Actions   []string             `json:"actions"`
	Payoff    map[string][]float64 `json:"payoff"`
	MaxRounds *int                 `json:"max_rounds"`
	Rules     string               `json:"rules"`
}

// RuleSet is a game's action vocabulary, payoff table and termination limit.
type RuleSet struct {
	name      string
	actions   []string
	payoff    map[string][]float64
	maxRounds int
	text      string
}

// Move is one agent's submitted action. Payoff input is an ordered slice of
// moves so that the lookup key follows submission order.
type Move struct {
	Agent  string
	Action string
}

// Outcome is the result of a payoff lookup.
type Outcome struct {
	Key       string
	Payoffs   map[string]float64
	Found     bool // the key was present in the payoff table
	Truncated bool // the entry length differed from the number of moves
}

// New builds a RuleSet from a decoded rule file.
func New(f File) (*RuleSet, error) {
	if len(f.Actions) == 0 {
		return nil, fmt.Errorf("%w: %q declares no actions", ErrInvalidRules, f.Name)
	}
	seen := make(map[string]bool, len(f.Actions))
	actions := make([]string, 0, len(f.Actions))
	for _, a := range f.Actions {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, fmt.Errorf("%w: %q has an empty action", ErrInvalidRules, f.Name)
		}
		key := strings.ToLower(a)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q declares action %q twice", ErrInvalidRules, f.Name, a)
		}
		seen[key] = true
		actions = append(actions, a)
	}

	maxRounds := DefaultMaxRounds
	if f.MaxRounds != nil {
		if *f.MaxRounds < 0 {
			return nil, fmt.Errorf("%w: %q has negative max_rounds", ErrInvalidRules, f.Name)
		}
		maxRounds = *f.MaxRounds
	}

	payoff := make(map[string][]float64, len(f.Payoff))
	for key, values := range f.Payoff {
		parts := strings.Split(key, ",")
		payoff[joinKey(parts)] = append([]float64(nil), values...)
	}

	return &RuleSet{
		name:      f.Name,
		actions:   actions,
		payoff:    payoff,
		maxRounds: maxRounds,
		text:      f.Rules,
	}, nil
}

// Load decodes a rule file from JSON bytes.
func Load(data []byte) (*RuleSet, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	return New(f)
}

// LoadFile reads and decodes a rule file.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	rs, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Name returns the game name declared by the rule file.
func (r *RuleSet) Name() string { return r.name }

// Actions returns a copy of the action vocabulary in declaration order.
func (r *RuleSet) Actions() []string { return append([]string(nil), r.actions...) }

// DefaultAction is the canonical fallback action, the first in the vocabulary.
func (r *RuleSet) DefaultAction() string { return r.actions[0] }

// MaxRounds returns the number of rounds after which the game ends.
func (r *RuleSet) MaxRounds() int { return r.maxRounds }

// Text returns the free-form rules text shown to agents.
func (r *RuleSet) Text() string { return r.text }

// IsGameOver reports whether round has reached the configured limit.
func (r *RuleSet) IsGameOver(round int) bool {
	return round >= r.maxRounds
}

// Payoff looks up the joint action of moves and assigns values positionally.
//
// A missing key scores zero for every mover. An entry whose length differs
// from len(moves) is applied up to the shorter length; movers past the end
// get no entry at all.
func (r *RuleSet) Payoff(moves []Move) Outcome {
	actions := make([]string, len(moves))
	for i, m := range moves {
		actions[i] = m.Action
	}
	key := joinKey(actions)

	values, ok := r.payoff[key]
	if !ok {
		zero := make(map[string]float64, len(moves))
		for _, m := range moves {
			zero[m.Agent] = 0
		}
		return Outcome{Key: key, Payoffs: zero}
	}

	n := min(len(values), len(moves))
	payoffs := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		payoffs[moves[i].Agent] = values[i]
	}
	return Outcome{
		Key:       key,
		Payoffs:   payoffs,
		Found:     true,
		Truncated: len(values) != len(moves),
	}
}

// PayoffStrict is Payoff that fails instead of zero-filling or truncating.
func (r *RuleSet) PayoffStrict(moves []Move) (Outcome, error) {
	out := r.Payoff(moves)
	if !out.Found {
		return out, fmt.Errorf("%w for %q", ErrPayoffMissing, out.Key)
	}
	if out.Truncated {
		return out, fmt.Errorf("%w: %q has %d values for %d agents", ErrPayoffLength, out.Key, len(r.payoff[out.Key]), len(moves))
	}
	return out, nil
}

// Normalize applies the payoff key casing: first letter upper, rest lower.
func Normalize(action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return ""
	}
	lower := []rune(strings.ToLower(action))
	lower[0] = unicode.ToUpper(lower[0])
	return string(lower)
}

func joinKey(actions []string) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = Normalize(a)
	}
	return strings.Join(parts, ",")
}
