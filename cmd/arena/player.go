package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lox/llmarena/internal/completion"
	"github.com/lox/llmarena/internal/registry"
)

// playerSpec is a temporary player given on the command line as
// name=role@provider/model. The role defaults to the player's name.
type playerSpec struct {
	Name     string
	Role     string
	Provider string
	Model    string
}

func parsePlayer(s string) (playerSpec, error) {
	head, target, ok := strings.Cut(s, "@")
	if !ok {
		return playerSpec{}, fmt.Errorf("player %q: expected name=role@provider/model", s)
	}
	provider, model, ok := strings.Cut(target, "/")
	if !ok || provider == "" || model == "" {
		return playerSpec{}, fmt.Errorf("player %q: expected provider/model after @", s)
	}

	name, role, hasRole := strings.Cut(head, "=")
	if !hasRole {
		role = name
	}
	name, role = strings.TrimSpace(name), strings.TrimSpace(role)
	if name == "" || role == "" {
		return playerSpec{}, fmt.Errorf("player %q: name and role must not be empty", s)
	}
	return playerSpec{Name: name, Role: role, Provider: provider, Model: model}, nil
}

// addPlayer registers spec as a temporary agent, copying the behavior of
// the permanent role it names.
func (a *app) addPlayer(spec playerSpec) (registry.Agent, error) {
	var behavior string
	found := false
	for _, p := range a.registry.Permanent() {
		if p.Name == spec.Role {
			behavior, found = p.Behavior, true
			break
		}
	}
	if !found {
		return registry.Agent{}, fmt.Errorf("player %s: %w %q", spec.Name, registry.ErrUnknownAgent, spec.Role)
	}
	provider := a.cfg.GetProviderByName(spec.Provider)
	if provider == nil {
		return registry.Agent{}, fmt.Errorf("player %s: %w %q", spec.Name, completion.ErrUnknownProvider, spec.Provider)
	}
	if len(provider.AvailableModels) > 0 && !slices.Contains(provider.AvailableModels, spec.Model) {
		a.logger.Warn("Model is not in the provider's available models", "player", spec.Name, "provider", spec.Provider, "model", spec.Model, "available", provider.AvailableModels)
	}

	return a.registry.AddTemporary(registry.Agent{
		Name:     spec.Name,
		Behavior: behavior,
		Provider: spec.Provider,
		Model:    spec.Model,
	})
}
