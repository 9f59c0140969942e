package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/dice"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(dice.NewCryptoSource(), zap.NewNop())
	t.Cleanup(m.Close)
	return m
}

// TestOnEnter_NoScripts verifies the hazard flag passes through untouched
// when no VM is loaded.
func TestOnEnter_NoScripts(t *testing.T) {
	m := newTestManager(t)

	fire, err := m.OnEnter("team-1", "thicket", true)
	require.NoError(t, err)
	assert.True(t, fire)

	fire, err = m.OnEnter("team-1", "meadow", false)
	require.NoError(t, err)
	assert.False(t, fire)
}

// TestOnEnter_HookDecides verifies a loaded on_enter hook overrides the
// hazard flag in both directions.
func TestOnEnter_HookDecides(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "triggers.lua", `
function on_enter(team_id, waypoint_id, hazard)
  if waypoint_id == "ambush" then
    return true
  end
  if waypoint_id == "sanctuary" then
    return false
  end
  return hazard
end
`)
	m := newTestManager(t)
	require.NoError(t, m.LoadDir(dir, 0))

	fire, err := m.OnEnter("team-1", "ambush", false)
	require.NoError(t, err)
	assert.True(t, fire)

	fire, err = m.OnEnter("team-1", "sanctuary", true)
	require.NoError(t, err)
	assert.False(t, fire)

	fire, err = m.OnEnter("team-1", "elsewhere", true)
	require.NoError(t, err)
	assert.True(t, fire)
}

// TestOnEnter_HookMissing verifies scripts without on_enter leave the
// hazard flag in force.
func TestOnEnter_HookMissing(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "util.lua", `helper = 42`)
	m := newTestManager(t)
	require.NoError(t, m.LoadDir(dir, 0))

	fire, err := m.OnEnter("team-1", "thicket", true)
	require.NoError(t, err)
	assert.True(t, fire)
}

// TestOnEnter_RuntimeErrorFallsBack verifies a hook that raises surfaces the
// error alongside the hazard flag.
func TestOnEnter_RuntimeErrorFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "bad.lua", `
function on_enter(team_id, waypoint_id, hazard)
  error("boom")
end
`)
	m := newTestManager(t)
	require.NoError(t, m.LoadDir(dir, 0))

	fire, err := m.OnEnter("team-1", "thicket", true)
	assert.Error(t, err)
	assert.True(t, fire)
}

// TestOnEnter_InstructionLimit verifies a runaway hook is cut off instead of
// hanging the server, and the VM recovers for the next call.
func TestOnEnter_InstructionLimit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "loop.lua", `
calls = 0
function on_enter(team_id, waypoint_id, hazard)
  calls = calls + 1
  if calls == 1 then
    while true do end
  end
  return hazard
end
`)
	m := newTestManager(t)
	require.NoError(t, m.LoadDir(dir, 10_000))

	_, err := m.OnEnter("team-1", "thicket", true)
	assert.Error(t, err)

	// A fresh instruction budget applies to the next call.
	fire, err := m.OnEnter("team-1", "thicket", true)
	require.NoError(t, err)
	assert.True(t, fire)
}

// TestLoadDir_BadScript verifies a syntax error rejects the whole load.
func TestLoadDir_BadScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", `function on_enter(`)
	m := newTestManager(t)
	assert.Error(t, m.LoadDir(dir, 0))
}

// TestLoadDir_MissingDir verifies an unreadable directory is an error.
func TestLoadDir_MissingDir(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, m.LoadDir(filepath.Join(t.TempDir(), "absent"), 0))
}

// TestModules_Roll verifies waygate.roll stays within its half-open range.
func TestModules_Roll(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "roll.lua", `
function on_enter(team_id, waypoint_id, hazard)
  local v = waygate.roll(1, 4)
  return v >= 1 and v < 4
end
`)
	m := newTestManager(t)
	require.NoError(t, m.LoadDir(dir, 0))

	for i := 0; i < 20; i++ {
		fire, err := m.OnEnter("team-1", "w", false)
		require.NoError(t, err)
		assert.True(t, fire)
	}
}

// TestSandbox_DangerousGlobalsRemoved verifies the filesystem-reaching
// globals are not available to scripts.
func TestSandbox_DangerousGlobalsRemoved(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "probe.lua", `
function on_enter(team_id, waypoint_id, hazard)
  return dofile == nil and loadfile == nil and load == nil and require == nil
end
`)
	m := newTestManager(t)
	require.NoError(t, m.LoadDir(dir, 0))

	fire, err := m.OnEnter("team-1", "w", false)
	require.NoError(t, err)
	assert.True(t, fire)
}
