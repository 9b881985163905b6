package game

import "github.com/lox/llmarena/internal/ledger"

// GameInfo describes a game that is about to play its first round.
type GameInfo struct {
	GameID    string
	Name      string
	LedgerID  string
	Agents    []string
	MaxRounds int
}

// Monitor receives notifications about game progress.
type Monitor interface {
	// OnGameStart is called once setup has succeeded.
	OnGameStart(info GameInfo)

	// OnAction is called for each agent's resolved action, in agent order.
	OnAction(round int, action ActionRecord)

	// OnRoundComplete is called after a round has been committed.
	OnRoundComplete(record ledger.RoundRecord)

	// OnGameComplete is called when the game ends normally.
	OnGameComplete(result *Result)
}

// NopMonitor ignores every notification.
type NopMonitor struct{}

func (NopMonitor) OnGameStart(GameInfo)               {}
func (NopMonitor) OnAction(int, ActionRecord)         {}
func (NopMonitor) OnRoundComplete(ledger.RoundRecord) {}
func (NopMonitor) OnGameComplete(*Result)             {}

// MultiMonitor fans notifications out to several monitors.
type MultiMonitor struct {
	monitors []Monitor
}

// NewMultiMonitor builds a composite monitor, pruning nil entries and
// returning a NopMonitor when none remain.
func NewMultiMonitor(monitors ...Monitor) Monitor {
	filtered := make([]Monitor, 0, len(monitors))
	for _, m := range monitors {
		if m != nil {
			filtered = append(filtered, m)
		}
	}
	switch len(filtered) {
	case 0:
		return NopMonitor{}
	case 1:
		return filtered[0]
	}
	return &MultiMonitor{monitors: filtered}
}

func (m *MultiMonitor) OnGameStart(info GameInfo) {
	for _, mon := range m.monitors {
		mon.OnGameStart(info)
	}
}

func (m *MultiMonitor) OnAction(round int, action ActionRecord) {
	for _, mon := range m.monitors {
		mon.OnAction(round, action)
	}
}

func (m *MultiMonitor) OnRoundComplete(record ledger.RoundRecord) {
	for _, mon := range m.monitors {
		mon.OnRoundComplete(record)
	}
}

func (m *MultiMonitor) OnGameComplete(result *Result) {
	for _, mon := range m.monitors {
		mon.OnGameComplete(result)
	}
}
