// Package registry holds the agents available to games.
//
// Permanent agents are loaded once per run from a role file. Temporary agents
// are created per session, shadow permanent agents of the same name, and are
// cleared between games. One Registry is built by the top-level run and
// passed to whoever needs it.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrDuplicateAgent is returned when permanent agents share a name.
	ErrDuplicateAgent = errors.New("duplicate agent name")
	// ErrUnknownAgent is returned by Resolve for names with no entry.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Agent is a game participant bound to a provider and model.
type Agent struct {
	Name     string
	Behavior string
	Provider string
	Model    string
}

// Validate checks that the agent can be dispatched.
func (a Agent) Validate() error {
	switch {
	case a.Name == "":
		return errors.New("agent name is empty")
	case a.Provider == "":
		return fmt.Errorf("agent %q has no provider", a.Name)
	case a.Model == "":
		return fmt.Errorf("agent %q has no model", a.Name)
	}
	return nil
}

// Registry maps agent names to agents.
type Registry struct {
	mu        sync.RWMutex
	permanent []Agent
	temporary []Agent
	logger    *log.Logger
}

// New creates a registry holding the given permanent agents.
func New(logger *log.Logger, permanent ...Agent) (*Registry, error) {
	seen := make(map[string]bool, len(permanent))
	for _, a := range permanent {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAgent, a.Name)
		}
		seen[a.Name] = true
	}
	r := &Registry{
		permanent: append([]Agent(nil), permanent...),
		logger:    logger.WithPrefix("registry"),
	}
	r.logger.Debug("Loaded permanent agents", "count", len(permanent))
	return r, nil
}

// Get returns the agent named name, preferring temporary entries.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(name)
}

func (r *Registry) get(name string) (Agent, bool) {
	for _, a := range r.temporary {
		if a.Name == name {
			return a, true
		}
	}
	for _, a := range r.permanent {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

// Resolve looks up every name in order and fails on the first unknown one.
func (r *Registry) Resolve(names []string) ([]Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]Agent, 0, len(names))
	for _, name := range names {
		a, ok := r.get(name)
		if !ok {
			r.logger.Warn("Agent not found", "name", name, "permanent", namesOf(r.permanent), "temporary", namesOf(r.temporary))
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// AddTemporary adds a session-scoped agent, replacing any temporary agent of
// the same name.
func (r *Registry) AddTemporary(a Agent) (Agent, error) {
	if err := a.Validate(); err != nil {
		return Agent{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.temporary {
		if existing.Name == a.Name {
			r.logger.Info("Replacing temporary agent", "name", a.Name)
			r.temporary[i] = a
			return a, nil
		}
	}
	r.temporary = append(r.temporary, a)
	r.logger.Info("Added temporary agent", "name", a.Name, "provider", a.Provider, "model", a.Model)
	return a, nil
}

// RemoveTemporary removes the temporary agent named name.
func (r *Registry) RemoveTemporary(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.temporary {
		if a.Name == name {
			r.temporary = append(r.temporary[:i], r.temporary[i+1:]...)
			return true
		}
	}
	return false
}

// ClearTemporary drops every temporary agent.
func (r *Registry) ClearTemporary() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("Clearing temporary agents", "count", len(r.temporary))
	r.temporary = nil
}

// Permanent returns a copy of the permanent agents in load order.
func (r *Registry) Permanent() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Agent(nil), r.permanent...)
}

// Temporary returns a copy of the temporary agents in insertion order.
func (r *Registry) Temporary() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Agent(nil), r.temporary...)
}

func namesOf(agents []Agent) []string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}
