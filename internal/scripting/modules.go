package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules registers all engine.* Lua tables into v's state:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.room.name()        -- the room the current hook runs for
//	engine.room.broadcast(msg)
//	engine.random.float()     -- [0, 1)
//	engine.random.int(n)      -- [0, n)
//
// Postcondition: engine global is defined in v.L.
func (m *Manager) registerModules(v *vm) {
	L := v.L
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	logTbl := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("room", v.room), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(engine, "log", logTbl)

	roomTbl := L.NewTable()
	L.SetField(roomTbl, "name", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(v.room))
		return 1
	}))
	L.SetField(roomTbl, "broadcast", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		if m.Broadcast != nil {
			m.Broadcast(v.room, msg)
		}
		return 0
	}))
	L.SetField(engine, "room", roomTbl)

	randTbl := L.NewTable()
	L.SetField(randTbl, "float", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.src.Float64()))
		return 1
	}))
	L.SetField(randTbl, "int", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be > 0")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(n)))
		return 1
	}))
	L.SetField(engine, "random", randTbl)
}
