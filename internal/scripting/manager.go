package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/dice"
)

// onEnterHook is the Lua global consulted when a team enters a waypoint.
const onEnterHook = "on_enter"

// Manager owns one sandboxed LState running the loaded trigger scripts and
// exposes hook dispatch. The mutex serializes all VM access; a fresh
// instruction budget is installed before every hook call.
type Manager struct {
	mu        sync.Mutex
	state     *lua.LState
	cancel    func()
	instLimit int
	src       dice.Source
	logger    *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: src and logger must be non-nil.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	return &Manager{
		instLimit: DefaultInstructionLimit,
		src:       src,
		logger:    logger,
	}
}

// LoadDir creates a sandboxed VM, registers the waygate.* module, then
// executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: The VM is live; returns an error on Lua load failure,
// leaving any previously loaded VM in place.
func (m *Manager) LoadDir(scriptDir string, instLimit int) error {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}

	L, cancel := NewSandboxedState(instLimit)
	m.registerModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
	}
	m.state = L
	m.cancel = cancel
	m.instLimit = instLimit
	m.mu.Unlock()
	return nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
		m.state = nil
		m.cancel = nil
	}
}

// OnEnter consults the on_enter Lua hook to decide whether entering the
// waypoint raises an encounter. With no VM or no hook defined, the map's
// hazard flag is returned verbatim.
//
// Postcondition: Returns the hook's boolean verdict, or an error on a Lua
// runtime failure (callers fall back to the hazard flag).
func (m *Manager) OnEnter(teamID, waypointID string, hazard bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return hazard, nil
	}
	fn := m.state.GetGlobal(onEnterHook)
	if fn == lua.LNil {
		return hazard, nil
	}

	// Fresh instruction budget for this execution.
	ctx, cancel := newCountingContext(m.instLimit)
	m.state.SetContext(ctx)
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel

	if err := m.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(teamID), lua.LString(waypointID), lua.LBool(hazard)); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", onEnterHook),
			zap.String("waypoint", waypointID),
			zap.Error(err),
		)
		return hazard, fmt.Errorf("scripting: %s hook: %w", onEnterHook, err)
	}

	ret := m.state.Get(-1)
	m.state.Pop(1)
	return lua.LVAsBool(ret), nil
}
