package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir loads rule files named <gameID>.json from a directory.
type Dir string

// Load reads the rule file for gameID.
func (d Dir) Load(gameID string) (*RuleSet, error) {
	if gameID == "" || strings.ContainsAny(gameID, `/\`) {
		return nil, fmt.Errorf("%w: bad game id %q", ErrInvalidRules, gameID)
	}
	return LoadFile(filepath.Join(string(d), gameID+".json"))
}

// List returns the ids of every rule file in the directory, sorted.
func (d Dir) List() ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if err != nil {
		return nil, fmt.Errorf("failed to read games directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
