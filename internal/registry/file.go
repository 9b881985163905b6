package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRoles is returned for unreadable or malformed role files.
var ErrInvalidRoles = errors.New("invalid role file")

// Role is the on-disk shape of one entry in a role file.
type Role struct {
	Name      string    `json:"name" yaml:"name"`
	Behavior  string    `json:"behavior" yaml:"behavior"`
	LLMConfig LLMConfig `json:"llm_config" yaml:"llm_config"`
}

// LLMConfig binds a role to a provider and model.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// Agent converts the role to a registry agent.
func (r Role) Agent() Agent {
	return Agent{
		Name:     r.Name,
		Behavior: r.Behavior,
		Provider: r.LLMConfig.Provider,
		Model:    r.LLMConfig.Model,
	}
}

// LoadFile reads a JSON or YAML role file, chosen by extension.
func LoadFile(path string) ([]Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoles, err)
	}

	var roles []Role
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &roles)
	default:
		err = json.Unmarshal(data, &roles)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoles, path, err)
	}

	agents := make([]Agent, 0, len(roles))
	for i, r := range roles {
		a := r.Agent()
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %v", ErrInvalidRoles, path, i, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}
