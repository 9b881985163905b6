package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GamesCmd lists the rule files in the games directory.
type GamesCmd struct{}

func (c *GamesCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}
	ids, err := a.games.List()
	if err != nil {
		return err
	}

	t := newTable("ID", "Name", "Actions", "Rounds")
	for _, id := range ids {
		rs, err := a.games.Load(id)
		if err != nil {
			a.logger.Warn("Skipping unreadable rule file", "game", id, "error", err)
			continue
		}
		t.Row(id, rs.Name(), strings.Join(rs.Actions(), ", "), strconv.Itoa(rs.MaxRounds()))
	}
	fmt.Fprintln(os.Stdout, t.String())
	return nil
}

// AgentsCmd lists permanent agents.
type AgentsCmd struct {
	Behavior bool `help:"Include each agent's behavior description"`
}

func (c *AgentsCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}

	headers := []string{"Name", "Provider", "Model"}
	if c.Behavior {
		headers = append(headers, "Behavior")
	}
	t := newTable(headers...)
	for _, agent := range a.registry.Permanent() {
		row := []string{agent.Name, agent.Provider, agent.Model}
		if c.Behavior {
			row = append(row, agent.Behavior)
		}
		t.Row(row...)
	}
	fmt.Fprintln(os.Stdout, t.String())
	return nil
}

// ProvidersCmd lists configured model providers.
type ProvidersCmd struct{}

func (c *ProvidersCmd) Run(g *Globals) error {
	a, err := newApp(g)
	if err != nil {
		return err
	}

	t := newTable("Name", "Kind", "Base URL", "Key", "Models")
	for _, p := range a.providers.Configs() {
		key := dimStyle.Render("-")
		if p.APIKeyEnv != "" {
			if os.Getenv(p.APIKeyEnv) != "" {
				key = winStyle.Render(p.APIKeyEnv)
			} else {
				key = warnStyle.Render(p.APIKeyEnv + " (unset)")
			}
		}
		t.Row(p.Name, p.Kind, p.BaseURL, key, strings.Join(p.Models, ", "))
	}
	fmt.Fprintln(os.Stdout, t.String())
	return nil
}
