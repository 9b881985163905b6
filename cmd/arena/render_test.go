package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/llmarena/internal/game"
	"github.com/lox/llmarena/internal/interpret"
	"github.com/lox/llmarena/internal/ledger"
)

func sampleRecords() []ledger.RoundRecord {
	return []ledger.RoundRecord{
		{
			Round: 1,
			Actions: map[string]ledger.Action{
				"alice": {Action: "Cooperate", RawResponse: "<Action>Cooperate</Action>"},
				"bob":   {Action: "Defect", RawResponse: "<Action>Defect</Action>"},
			},
			Payoffs:          map[string]float64{"alice": 0, "bob": 5},
			Reflections:      map[string]string{"alice": "bob betrayed me", "bob": "easy points"},
			CumulativeScores: map[string]float64{"alice": 0, "bob": 5},
		},
		{
			Round: 2,
			Actions: map[string]ledger.Action{
				"alice": {Action: "Defect"},
				"bob":   {Action: "Defect"},
			},
			Payoffs:          map[string]float64{"alice": 1, "bob": 1},
			Reflections:      map[string]string{"alice": "tit for tat"},
			CumulativeScores: map[string]float64{"alice": 1, "bob": 6},
		},
	}
}

func TestPrintLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLedger(&buf, "pd_test", sampleRecords()))

	out := buf.String()
	assert.Contains(t, out, "pd_test")
	assert.Contains(t, out, "Round 1")
	assert.Contains(t, out, "Round 2")
	assert.Contains(t, out, "Cooperate")
	assert.Contains(t, out, "bob betrayed me")
	assert.Contains(t, out, "winner")
}

func TestPrintEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLedger(&buf, "empty", nil))
	assert.Contains(t, buf.String(), "No rounds were recorded.")
}

func TestConsoleMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := newConsoleMonitor(&buf, true)
	records := sampleRecords()

	m.OnGameStart(game.GameInfo{GameID: "pd", Name: "Prisoner's Dilemma", LedgerID: "pd_x", Agents: []string{"alice", "bob"}, MaxRounds: 2})
	m.OnAction(1, game.ActionRecord{Agent: "alice", Action: "Cooperate", Match: interpret.MatchExact})
	m.OnAction(1, game.ActionRecord{Agent: "bob", Action: "Cooperate", Match: interpret.MatchDefault, Failed: true})
	m.OnRoundComplete(records[0])
	m.OnGameComplete(&game.Result{
		State: game.State{
			Order:            []string{"alice", "bob"},
			CumulativeScores: records[0].CumulativeScores,
		},
		Winners:   []string{"bob"},
		HighScore: 5,
	})

	out := buf.String()
	assert.Contains(t, out, "=== Prisoner's Dilemma ===")
	assert.Contains(t, out, "Agents: alice, bob")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Round 1")))
	assert.Contains(t, out, "no response, default")
	assert.Contains(t, out, "easy points")
	assert.Contains(t, out, "Winner: bob with 5 points")
}

func TestConsoleMonitorTie(t *testing.T) {
	var buf bytes.Buffer
	m := newConsoleMonitor(&buf, false)
	m.OnGameComplete(&game.Result{
		State: game.State{
			Order:            []string{"alice", "bob"},
			CumulativeScores: map[string]float64{"alice": 3, "bob": 3},
		},
		Winners:   []string{"alice", "bob"},
		HighScore: 3,
	})
	assert.Contains(t, buf.String(), "Tie between alice, bob with 3 points each")
}
