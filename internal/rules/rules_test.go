package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prisonersDilemma = `{
	"name": "Prisoner's Dilemma",
	"actions": ["Cooperate", "Defect"],
	"payoff": {
		"Cooperate,Cooperate": [3, 3],
		"Cooperate,Defect": [0, 5],
		"Defect,Cooperate": [5, 0],
		"Defect,Defect": [1, 1]
	},
	"max_rounds": 1,
	"rules": "Two players choose simultaneously."
}`

func mustLoad(t *testing.T, data string) *RuleSet {
	t.Helper()
	rs, err := Load([]byte(data))
	require.NoError(t, err)
	return rs
}

func TestLoad(t *testing.T) {
	rs := mustLoad(t, prisonersDilemma)

	assert.Equal(t, "Prisoner's Dilemma", rs.Name())
	assert.Equal(t, []string{"Cooperate", "Defect"}, rs.Actions())
	assert.Equal(t, "Cooperate", rs.DefaultAction())
	assert.Equal(t, 1, rs.MaxRounds())
	assert.Equal(t, "Two players choose simultaneously.", rs.Text())
}

func TestLoadDefaultsMaxRounds(t *testing.T) {
	rs := mustLoad(t, `{"name":"g","actions":["A","B"],"payoff":{}}`)
	assert.Equal(t, DefaultMaxRounds, rs.MaxRounds())
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"name":`},
		{"no actions", `{"name":"g","actions":[]}`},
		{"blank action", `{"name":"g","actions":["A"," "]}`},
		{"duplicate action", `{"name":"g","actions":["A","a"]}`},
		{"negative rounds", `{"name":"g","actions":["A"],"max_rounds":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidRules)
		})
	}
}

func TestActionsIsACopy(t *testing.T) {
	rs := mustLoad(t, prisonersDilemma)
	actions := rs.Actions()
	actions[0] = "Mutated"
	assert.Equal(t, "Cooperate", rs.DefaultAction())
}

func TestPayoff(t *testing.T) {
	rs := mustLoad(t, prisonersDilemma)

	out := rs.Payoff([]Move{{"A", "cooperate"}, {"B", "DEFECT"}})
	assert.True(t, out.Found)
	assert.False(t, out.Truncated)
	assert.Equal(t, "Cooperate,Defect", out.Key)
	assert.Equal(t, map[string]float64{"A": 0, "B": 5}, out.Payoffs)

	// Submission order decides the key, not agent names.
	out = rs.Payoff([]Move{{"B", "Defect"}, {"A", "Cooperate"}})
	assert.Equal(t, map[string]float64{"B": 5, "A": 0}, out.Payoffs)
}

func TestPayoffIsPure(t *testing.T) {
	rs := mustLoad(t, prisonersDilemma)
	moves := []Move{{"A", "Defect"}, {"B", "Defect"}}

	first := rs.Payoff(moves)
	first.Payoffs["A"] = 100
	second := rs.Payoff(moves)

	assert.Equal(t, map[string]float64{"A": 1, "B": 1}, second.Payoffs)
}

func TestPayoffMissZeroFillsEveryAgent(t *testing.T) {
	rs := mustLoad(t, prisonersDilemma)

	out := rs.Payoff([]Move{{"A", "Cooperate"}, {"B", "Cooperate"}, {"C", "Defect"}})
	assert.False(t, out.Found)
	assert.Equal(t, map[string]float64{"A": 0, "B": 0, "C": 0}, out.Payoffs)

	_, err := rs.PayoffStrict([]Move{{"A", "Cooperate"}, {"B", "Cooperate"}, {"C", "Defect"}})
	assert.ErrorIs(t, err, ErrPayoffMissing)
}

func TestPayoffTruncatesPositionally(t *testing.T) {
	rs := mustLoad(t, `{
		"name": "odd",
		"actions": ["Up", "Down"],
		"payoff": {"Up,Up,Up": [1, 2], "Down,Down": [4, 5, 6]}
	}`)

	out := rs.Payoff([]Move{{"A", "Up"}, {"B", "Up"}, {"C", "Up"}})
	assert.True(t, out.Found)
	assert.True(t, out.Truncated)
	assert.Equal(t, map[string]float64{"A": 1, "B": 2}, out.Payoffs)
	assert.NotContains(t, out.Payoffs, "C")

	out = rs.Payoff([]Move{{"A", "Down"}, {"B", "Down"}})
	assert.Equal(t, map[string]float64{"A": 4, "B": 5}, out.Payoffs)

	_, err := rs.PayoffStrict([]Move{{"A", "Down"}, {"B", "Down"}})
	assert.ErrorIs(t, err, ErrPayoffLength)
}

func TestPayoffTableKeysAreNormalized(t *testing.T) {
	rs := mustLoad(t, `{"name":"g","actions":["Stag Hunt","Hare"],"payoff":{"STAG HUNT, hare":[2,1]}}`)

	out := rs.Payoff([]Move{{"A", "stag hunt"}, {"B", "Hare"}})
	require.True(t, out.Found)
	assert.Equal(t, "Stag hunt,Hare", out.Key)
}

func TestIsGameOver(t *testing.T) {
	rs := mustLoad(t, `{"name":"g","actions":["A"],"max_rounds":5}`)

	assert.False(t, rs.IsGameOver(0))
	assert.False(t, rs.IsGameOver(4))
	assert.True(t, rs.IsGameOver(5))
	assert.True(t, rs.IsGameOver(6))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Cooperate", Normalize("cOOPERATE"))
	assert.Equal(t, "Defect", Normalize("  defect "))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "Élan", Normalize("éLAN"))
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prisoners_dilemma.json"), []byte(prisonersDilemma), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := Dir(dir).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "prisoners_dilemma"}, ids)

	rs, err := Dir(dir).Load("prisoners_dilemma")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.MaxRounds())

	_, err = Dir(dir).Load("broken")
	assert.ErrorIs(t, err, ErrInvalidRules)

	_, err = Dir(dir).Load("missing")
	assert.ErrorIs(t, err, ErrInvalidRules)

	_, err = Dir(dir).Load("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidRules)
}
