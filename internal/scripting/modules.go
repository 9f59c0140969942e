package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/dice"
)

// registerModules installs the waygate.* Lua table:
//
//	waygate.log(msg)        -- structured info log from script code
//	waygate.roll(min, max)  -- random integer in [min, max)
func (m *Manager) registerModules(L *lua.LState) {
	tbl := L.NewTable()

	L.SetField(tbl, "log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		m.logger.Info("script log", zap.String("message", msg))
		return 0
	}))

	L.SetField(tbl, "roll", L.NewFunction(func(L *lua.LState) int {
		min := L.CheckInt(1)
		max := L.CheckInt(2)
		if max <= min {
			L.ArgError(2, "max must exceed min")
			return 0
		}
		L.Push(lua.LNumber(dice.Between(m.src, min, max)))
		return 1
	}))

	L.SetGlobal("waygate", tbl)
}
