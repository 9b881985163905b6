// Package statistics summarizes per-agent payoffs and action choices across
// the rounds of a game.
package statistics

import (
	"fmt"
	"math"
	"sort"
)

// Agent accumulates one agent's per-round results.
type Agent struct {
	Name    string
	Rounds  int
	Sum     float64
	Sum2    float64   // sum of squares for variance
	Values  []float64 // per-round payoffs in round order
	Actions map[string]int
}

// Add incorporates one round's action and payoff.
func (a *Agent) Add(action string, payoff float64) {
	if a.Actions == nil {
		a.Actions = make(map[string]int)
	}
	a.Rounds++
	a.Sum += payoff
	a.Sum2 += payoff * payoff
	a.Values = append(a.Values, payoff)
	a.Actions[action]++
}

// Mean returns the mean payoff per round.
func (a *Agent) Mean() float64 {
	if a.Rounds == 0 {
		return 0
	}
	return a.Sum / float64(a.Rounds)
}

// Variance returns the sample variance of per-round payoffs.
func (a *Agent) Variance() float64 {
	if a.Rounds < 2 {
		return 0
	}
	mean := a.Mean()
	v := (a.Sum2 - float64(a.Rounds)*mean*mean) / float64(a.Rounds-1)
	return math.Max(v, 0)
}

// StdDev returns the sample standard deviation of per-round payoffs.
func (a *Agent) StdDev() float64 {
	return math.Sqrt(a.Variance())
}

// StdError returns the standard error of the mean.
func (a *Agent) StdError() float64 {
	if a.Rounds == 0 {
		return 0
	}
	return a.StdDev() / math.Sqrt(float64(a.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (a *Agent) ConfidenceInterval95() (float64, float64) {
	mean := a.Mean()
	margin := 1.96 * a.StdError()
	return mean - margin, mean + margin
}

// Median returns the median per-round payoff.
func (a *Agent) Median() float64 {
	if len(a.Values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), a.Values...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// ActionShare returns the fraction of rounds in which action was chosen.
func (a *Agent) ActionShare(action string) float64 {
	if a.Rounds == 0 {
		return 0
	}
	return float64(a.Actions[action]) / float64(a.Rounds)
}

// FavoriteAction returns the most chosen action, breaking ties by name.
func (a *Agent) FavoriteAction() string {
	best, count := "", -1
	for action, n := range a.Actions {
		if n > count || (n == count && action < best) {
			best, count = action, n
		}
	}
	return best
}

// Validate checks that the accumulated values agree with each other.
func (a *Agent) Validate() error {
	if len(a.Values) != a.Rounds {
		return fmt.Errorf("%s: %d values for %d rounds", a.Name, len(a.Values), a.Rounds)
	}
	var sum float64
	for _, v := range a.Values {
		sum += v
	}
	if math.Abs(sum-a.Sum) > 1e-6 {
		return fmt.Errorf("%s: payoff sum %.6f does not match values %.6f", a.Name, a.Sum, sum)
	}
	total := 0
	for _, n := range a.Actions {
		total += n
	}
	if total != a.Rounds {
		return fmt.Errorf("%s: %d actions for %d rounds", a.Name, total, a.Rounds)
	}
	return nil
}

// Table collects statistics for every agent of a game.
type Table struct {
	agents map[string]*Agent
}

// New creates an empty table.
func New() *Table {
	return &Table{agents: make(map[string]*Agent)}
}

// Add records one agent's round.
func (t *Table) Add(agent, action string, payoff float64) {
	a, ok := t.agents[agent]
	if !ok {
		a = &Agent{Name: agent}
		t.agents[agent] = a
	}
	a.Add(action, payoff)
}

// Get returns the statistics for agent.
func (t *Table) Get(agent string) (*Agent, bool) {
	a, ok := t.agents[agent]
	return a, ok
}

// Agents returns every agent ordered by total payoff, best first, then name.
func (t *Table) Agents() []*Agent {
	out := make([]*Agent, 0, len(t.agents))
	for _, a := range t.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sum != out[j].Sum {
			return out[i].Sum > out[j].Sum
		}
		return out[i].Name < out[j].Name
	})
	return out
}
