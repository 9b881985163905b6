// Package prompt renders the action and reflection prompts sent to agents.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/lox/llmarena/internal/game"
	"github.com/lox/llmarena/internal/ledger"
	"github.com/lox/llmarena/internal/registry"
	"github.com/lox/llmarena/internal/rules"
)

// Languages lists the supported prompt languages.
var Languages = []string{"en", "zh"}

type templates struct {
	action     *template.Template
	reflection *template.Template
}

var byLanguage = map[string]templates{
	"en": {
		action:     template.Must(template.New("action").Parse(enAction)),
		reflection: template.Must(template.New("reflection").Parse(enReflection)),
	},
	"zh": {
		action:     template.Must(template.New("action").Parse(zhAction)),
		reflection: template.Must(template.New("reflection").Parse(zhReflection)),
	},
}

// Builder renders prompts in one language.
type Builder struct {
	language string
	t        templates
}

var _ game.PromptBuilder = (*Builder)(nil)

// New returns a builder for language.
func New(language string) (*Builder, error) {
	t, ok := byLanguage[language]
	if !ok {
		return nil, fmt.Errorf("unsupported prompt language %q (supported: %s)", language, strings.Join(Languages, ", "))
	}
	return &Builder{language: language, t: t}, nil
}

// Language returns the builder's language code.
func (b *Builder) Language() string { return b.language }

type entry struct {
	Agent string
	Value string
}

type actionData struct {
	Name     string
	Behavior string
	Rules    string
	Actions  []string
	Round    int
	Previous []entry
	Payoffs  []entry
	Scores   []entry
}

type reflectionData struct {
	Name     string
	Behavior string
	Rules    string
	MyAction string
	Others   []entry
	Payoffs  []entry
}

// ActionPrompt asks agent for its move in the round after state.Round. The
// previous round's actions and payoffs are included once one has been played.
func (b *Builder) ActionPrompt(agent registry.Agent, rs *rules.RuleSet, state game.State) (string, error) {
	data := actionData{
		Name:     agent.Name,
		Behavior: agent.Behavior,
		Rules:    rs.Text(),
		Actions:  rs.Actions(),
		Round:    state.Round + 1,
	}
	for _, name := range order(state) {
		if a, ok := state.Actions[name]; ok {
			data.Previous = append(data.Previous, entry{name, a.Action})
		}
		if p, ok := state.Payoffs[name]; ok {
			data.Payoffs = append(data.Payoffs, entry{name, ledger.FormatScore(p)})
		}
		if state.Round > 0 {
			data.Scores = append(data.Scores, entry{name, ledger.FormatScore(state.CumulativeScores[name])})
		}
	}
	return render(b.t.action, data)
}

// ReflectionPrompt shows agent the outcome of the round in view.
func (b *Builder) ReflectionPrompt(agent registry.Agent, rs *rules.RuleSet, view game.RoundView) (string, error) {
	data := reflectionData{
		Name:     agent.Name,
		Behavior: agent.Behavior,
		Rules:    rs.Text(),
		MyAction: "None",
	}
	for _, a := range view.Actions {
		if a.Agent == agent.Name {
			data.MyAction = a.Action
			continue
		}
		data.Others = append(data.Others, entry{a.Agent, a.Action})
	}
	for _, a := range view.Actions {
		if p, ok := view.Payoff.Payoffs[a.Agent]; ok {
			data.Payoffs = append(data.Payoffs, entry{a.Agent, ledger.FormatScore(p)})
		}
	}
	return render(b.t.reflection, data)
}

func order(state game.State) []string {
	if len(state.Order) > 0 {
		return state.Order
	}
	names := make([]string, 0, len(state.CumulativeScores))
	for name := range state.CumulativeScores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
