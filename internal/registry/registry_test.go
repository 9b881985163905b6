package registry

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

var (
	alice = Agent{Name: "alice", Behavior: "always cooperates", Provider: "openai", Model: "gpt-4o"}
	bob   = Agent{Name: "bob", Behavior: "tit for tat", Provider: "deepseek", Model: "deepseek-chat"}
)

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(testLogger(), alice, bob, alice)
	require.ErrorIs(t, err, ErrDuplicateAgent)
}

func TestNewRejectsIncompleteAgents(t *testing.T) {
	_, err := New(testLogger(), Agent{Name: "x", Provider: "openai"})
	require.Error(t, err)
}

func TestTemporaryShadowsPermanent(t *testing.T) {
	r, err := New(testLogger(), alice, bob)
	require.NoError(t, err)

	got, ok := r.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", got.Model)

	shadow := alice
	shadow.Model = "o3-mini"
	_, err = r.AddTemporary(shadow)
	require.NoError(t, err)

	got, ok = r.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "o3-mini", got.Model)

	r.ClearTemporary()
	got, _ = r.Get("alice")
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Empty(t, r.Temporary())
}

func TestAddTemporaryReplacesByName(t *testing.T) {
	r, err := New(testLogger())
	require.NoError(t, err)

	first := Agent{Name: "carol", Behavior: "greedy", Provider: "openai", Model: "gpt-4o"}
	second := first
	second.Behavior = "generous"

	_, err = r.AddTemporary(first)
	require.NoError(t, err)
	_, err = r.AddTemporary(second)
	require.NoError(t, err)

	temps := r.Temporary()
	require.Len(t, temps, 1)
	assert.Equal(t, "generous", temps[0].Behavior)

	assert.True(t, r.RemoveTemporary("carol"))
	assert.False(t, r.RemoveTemporary("carol"))
}

func TestResolve(t *testing.T) {
	r, err := New(testLogger(), alice, bob)
	require.NoError(t, err)

	agents, err := r.Resolve([]string{"bob", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []Agent{bob, alice}, agents)

	_, err = r.Resolve([]string{"alice", "mallory"})
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestPermanentIsACopy(t *testing.T) {
	r, err := New(testLogger(), alice)
	require.NoError(t, err)

	perm := r.Permanent()
	perm[0].Name = "changed"
	_, ok := r.Get("alice")
	assert.True(t, ok)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "roles.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[
		{"name": "alice", "behavior": "always cooperates", "llm_config": {"provider": "openai", "model": "gpt-4o"}},
		{"name": "bob", "behavior": "tit for tat", "llm_config": {"provider": "deepseek", "model": "deepseek-chat"}}
	]`), 0o644))

	agents, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []Agent{alice, bob}, agents)

	yamlPath := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- name: alice
  behavior: always cooperates
  llm_config:
    provider: openai
    model: gpt-4o
`), 0o644))

	agents, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []Agent{alice}, agents)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrInvalidRoles)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`[{"name":`), 0o644))
	_, err = LoadFile(broken)
	assert.ErrorIs(t, err, ErrInvalidRoles)

	noModel := filepath.Join(dir, "nomodel.json")
	require.NoError(t, os.WriteFile(noModel, []byte(`[{"name":"x","llm_config":{"provider":"openai"}}]`), 0o644))
	_, err = LoadFile(noModel)
	assert.ErrorIs(t, err, ErrInvalidRoles)
}
