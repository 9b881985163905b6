package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/llmarena/internal/completion"
	"github.com/lox/llmarena/internal/interpret"
	"github.com/lox/llmarena/internal/ledger"
	"github.com/lox/llmarena/internal/metrics"
	"github.com/lox/llmarena/internal/registry"
	"github.com/lox/llmarena/internal/rules"
)

// ErrConfiguration is returned when a game cannot be set up. No round has
// run when it is returned.
var ErrConfiguration = errors.New("game configuration error")

// RuleSource loads the rule set for a game id.
type RuleSource interface {
	Load(gameID string) (*rules.RuleSet, error)
}

// Completer sends one prompt and returns the model's text.
type Completer interface {
	Send(ctx context.Context, req completion.Request) (string, error)
}

// ProviderSet reports whether a provider name is configured.
type ProviderSet interface {
	Has(name string) bool
}

// PromptBuilder renders the prompts shown to agents.
type PromptBuilder interface {
	ActionPrompt(agent registry.Agent, rs *rules.RuleSet, state State) (string, error)
	ReflectionPrompt(agent registry.Agent, rs *rules.RuleSet, round RoundView) (string, error)
}

// PayoffPolicy decides what happens when the payoff table does not fit the
// joint action.
type PayoffPolicy int

const (
	// PayoffLenient scores a missing key as zero for everyone and applies a
	// mismatched entry positionally.
	PayoffLenient PayoffPolicy = iota
	// PayoffStrict aborts the game on a missing key or mismatched entry.
	PayoffStrict
)

// ParsePayoffPolicy parses "lenient" or "strict".
func ParsePayoffPolicy(s string) (PayoffPolicy, error) {
	switch s {
	case "", "lenient":
		return PayoffLenient, nil
	case "strict":
		return PayoffStrict, nil
	}
	return 0, fmt.Errorf("unknown payoff policy %q", s)
}

func (p PayoffPolicy) String() string {
	if p == PayoffStrict {
		return "strict"
	}
	return "lenient"
}

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Registry  *registry.Registry
	Rules     RuleSource
	Client    Completer
	Providers ProviderSet // optional; checked during setup when set
	Prompts   PromptBuilder
	Ledgers   ledger.Opener

	Policy       completion.Policy
	Dispatch     Dispatch
	Workers      int
	PayoffPolicy PayoffPolicy

	Monitor Monitor
	Metrics metrics.Recorder
	Clock   quartz.Clock
	Logger  *log.Logger
}

// Result is the outcome of a finished game.
type Result struct {
	GameID    string
	Name      string
	LedgerID  string
	State     State
	Records   []ledger.RoundRecord
	Winners   []string
	HighScore float64
}

// Orchestrator runs games.
type Orchestrator struct {
	cfg    Config
	interp *interpret.Interpreter
	logger *log.Logger
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Registry == nil:
		return nil, errors.New("game: registry is required")
	case cfg.Rules == nil:
		return nil, errors.New("game: rule source is required")
	case cfg.Client == nil:
		return nil, errors.New("game: completion client is required")
	case cfg.Prompts == nil:
		return nil, errors.New("game: prompt builder is required")
	case cfg.Ledgers == nil:
		return nil, errors.New("game: ledger opener is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Monitor == nil {
		cfg.Monitor = NopMonitor{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	logger := cfg.Logger.WithPrefix("game")
	return &Orchestrator{
		cfg:    cfg,
		interp: interpret.New(cfg.Logger),
		logger: logger,
	}, nil
}

// run is the per-game context threaded through the phases.
type run struct {
	id     string
	rules  *rules.RuleSet
	agents []registry.Agent
	ledger ledger.Ledger
	state  State
	logger *log.Logger
}

// Start plays gameID between the named agents until the rule set's round
// limit and returns the final state with the winners.
//
// Setup failures wrap ErrConfiguration. Completion failures never abort the
// game; they degrade to default actions and empty reflections. Cancelling
// ctx stops the game between agents or phases, leaving only fully committed
// rounds in the ledger.
func (o *Orchestrator) Start(ctx context.Context, gameID string, agentNames []string) (*Result, error) {
	g, err := o.setup(ctx, gameID, agentNames)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := g.ledger.Close(); err != nil {
			g.logger.Error("Failed to close ledger", "error", err)
		}
	}()

	o.cfg.Monitor.OnGameStart(GameInfo{
		GameID:    gameID,
		Name:      g.rules.Name(),
		LedgerID:  g.ledger.ID(),
		Agents:    g.state.Order,
		MaxRounds: g.rules.MaxRounds(),
	})
	g.logger.Info("Game started", "agents", g.state.Order, "max_rounds", g.rules.MaxRounds(), "dispatch", o.cfg.Dispatch)

	var records []ledger.RoundRecord
	for !g.rules.IsGameOver(g.state.Round) {
		record, err := o.playRound(ctx, g)
		if err != nil {
			g.logger.Warn("Game stopped", "round", g.state.Round+1, "committed", g.state.Round, "error", err)
			return nil, err
		}
		records = append(records, record)
		o.cfg.Monitor.OnRoundComplete(record)
	}

	winners, high := g.state.Winners()
	result := &Result{
		GameID:    gameID,
		Name:      g.rules.Name(),
		LedgerID:  g.ledger.ID(),
		State:     g.state,
		Records:   records,
		Winners:   winners,
		HighScore: high,
	}
	g.logger.Info("Game complete", "rounds", g.state.Round, "winners", winners, "score", high)
	o.cfg.Monitor.OnGameComplete(result)
	return result, nil
}

func (o *Orchestrator) setup(ctx context.Context, gameID string, names []string) (*run, error) {
	rs, err := o.cfg.Rules.Load(gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 agents, got %d", ErrConfiguration, len(names))
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: agent %q listed twice", ErrConfiguration, name)
		}
		seen[name] = true
	}

	agents, err := o.cfg.Registry.Resolve(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if o.cfg.Providers != nil {
		for _, a := range agents {
			if !o.cfg.Providers.Has(a.Provider) {
				return nil, fmt.Errorf("%w: agent %q uses %w %q", ErrConfiguration, a.Name, completion.ErrUnknownProvider, a.Provider)
			}
		}
	}

	l, err := o.cfg.Ledgers.Open(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	order := make([]string, len(agents))
	for i, a := range agents {
		order[i] = a.Name
	}
	return &run{
		id:     gameID,
		rules:  rs,
		agents: agents,
		ledger: l,
		state:  newState(order),
		logger: o.logger.With("game", gameID, "ledger", l.ID()),
	}, nil
}

func (o *Orchestrator) playRound(ctx context.Context, g *run) (ledger.RoundRecord, error) {
	start := o.cfg.Clock.Now()
	number := g.state.Round + 1
	g.logger.Info("Round started", "round", number)

	actions, err := o.actionPhase(ctx, g)
	if err != nil {
		return ledger.RoundRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return ledger.RoundRecord{}, err
	}

	payoff, err := o.payoffPhase(g, actions)
	if err != nil {
		return ledger.RoundRecord{}, err
	}

	reflections, err := o.reflectionPhase(ctx, g, RoundView{Round: number, Actions: actions, Payoff: payoff})
	if err != nil {
		return ledger.RoundRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return ledger.RoundRecord{}, err
	}

	record, err := o.commit(ctx, g, actions, payoff, reflections)
	if err != nil {
		return ledger.RoundRecord{}, err
	}
	o.cfg.Metrics.ObserveRound(g.id, o.cfg.Clock.Since(start))
	g.logger.Info("Round complete", "round", record.Round, "payoffs", record.Payoffs, "scores", record.CumulativeScores)
	return record, nil
}

func (o *Orchestrator) actionPhase(ctx context.Context, g *run) ([]ActionRecord, error) {
	vocabulary := g.rules.Actions()
	number := g.state.Round + 1

	out := make([]ActionRecord, len(g.agents))
	err := o.dispatch(ctx, len(g.agents),
		func(ctx context.Context, i int) error {
			agent := g.agents[i]
			prompt, err := o.cfg.Prompts.ActionPrompt(agent, g.rules, g.state)
			if err != nil {
				return fmt.Errorf("failed to build action prompt for %s: %w", agent.Name, err)
			}

			text, sendErr := o.send(ctx, agent, prompt)
			if sendErr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				g.logger.Warn("Completion failed, using default action", "agent", agent.Name, "provider", agent.Provider, "model", agent.Model, "action", g.rules.DefaultAction(), "error", sendErr)
			}
			action, match := o.interp.Action(agent.Name, text, vocabulary)
			o.cfg.Metrics.ObserveParse(g.id, match.String())
			out[i] = ActionRecord{
				Agent:       agent.Name,
				Action:      action,
				RawResponse: text,
				Match:       match,
				Failed:      sendErr != nil,
			}
			return nil
		},
		func(i int) { o.cfg.Monitor.OnAction(number, out[i]) },
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) payoffPhase(g *run, actions []ActionRecord) (PayoffRecord, error) {
	moves := make([]rules.Move, len(actions))
	for i, a := range actions {
		moves[i] = rules.Move{Agent: a.Agent, Action: a.Action}
	}

	var out rules.Outcome
	if o.cfg.PayoffPolicy == PayoffStrict {
		var err error
		out, err = g.rules.PayoffStrict(moves)
		if err != nil {
			o.cfg.Metrics.ObservePayoff(g.id, out.Found, out.Truncated)
			return PayoffRecord{}, err
		}
	} else {
		out = g.rules.Payoff(moves)
		switch {
		case !out.Found:
			g.logger.Warn("Payoff table has no entry, scoring zero", "key", out.Key)
		case out.Truncated:
			g.logger.Warn("Payoff entry length does not match agent count, applying positionally", "key", out.Key, "agents", len(moves))
		}
	}
	o.cfg.Metrics.ObservePayoff(g.id, out.Found, out.Truncated)

	return PayoffRecord{
		Key:       out.Key,
		Payoffs:   out.Payoffs,
		Found:     out.Found,
		Truncated: out.Truncated,
	}, nil
}

func (o *Orchestrator) reflectionPhase(ctx context.Context, g *run, view RoundView) ([]ReflectionRecord, error) {
	out := make([]ReflectionRecord, len(g.agents))
	err := o.dispatch(ctx, len(g.agents),
		func(ctx context.Context, i int) error {
			agent := g.agents[i]
			prompt, err := o.cfg.Prompts.ReflectionPrompt(agent, g.rules, view)
			if err != nil {
				return fmt.Errorf("failed to build reflection prompt for %s: %w", agent.Name, err)
			}

			text, sendErr := o.send(ctx, agent, prompt)
			if sendErr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				g.logger.Warn("Completion failed, recording no reflection", "agent", agent.Name, "provider", agent.Provider, "model", agent.Model, "error", sendErr)
			}
			out[i] = ReflectionRecord{
				Agent:       agent.Name,
				Text:        o.interp.Reflection(agent.Name, text),
				RawResponse: text,
				Failed:      sendErr != nil,
			}
			return nil
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// commit appends the round to the ledger and only then replaces the state.
// The append is not cancellable so a round is either fully recorded or not
// at all.
func (o *Orchestrator) commit(ctx context.Context, g *run, actions []ActionRecord, payoff PayoffRecord, reflections []ReflectionRecord) (ledger.RoundRecord, error) {
	next := g.state.next(actions, payoff, reflections)
	record := next.Record()
	if err := g.ledger.Append(context.WithoutCancel(ctx), record); err != nil {
		g.logger.Error("Failed to append round to ledger", "round", record.Round, "error", err)
		return ledger.RoundRecord{}, fmt.Errorf("failed to record round %d: %w", record.Round, err)
	}
	g.state = next
	return record, nil
}

// send asks the agent's model for a completion. A failed request yields an
// empty response, which the interpreter resolves to a default.
func (o *Orchestrator) send(ctx context.Context, agent registry.Agent, prompt string) (string, error) {
	text, err := o.cfg.Client.Send(ctx, completion.Request{
		Prompt:   prompt,
		Provider: agent.Provider,
		Model:    agent.Model,
		Policy:   o.cfg.Policy,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
