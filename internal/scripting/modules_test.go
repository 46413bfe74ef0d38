package scripting_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/scripting"
)

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	dir := writeTempLua(t, "test.lua", luaSrc)
	require.NoError(t, mgr.LoadRoom("field", dir))
	ret, err := mgr.CallHook("field", hook, args...)
	require.NoError(t, err)
	return ret
}

func TestEngineLog_AllLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dice.NewSeededSource(1), 0, zap.New(core))

	runScript(t, mgr, `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`, "do_all_logs")

	for msg, level := range map[string]zapcore.Level{
		"d": zap.DebugLevel,
		"i": zap.InfoLevel,
		"w": zap.WarnLevel,
		"e": zap.ErrorLevel,
	} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, level, entries[0].Level)
		assert.Equal(t, "field", entries[0].ContextMap()["room"])
	}
}

func TestEngineRoom_Broadcast(t *testing.T) {
	mgr, _ := newTestManager(t)
	var mu sync.Mutex
	var got []string
	mgr.Broadcast = func(roomName, text string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, roomName+":"+text)
	}
	runScript(t, mgr, `
		function on_join(name)
			engine.room.broadcast("welcome " .. name)
		end
	`, "on_join", lua.LString("alice"))
	assert.Equal(t, []string{"field:welcome alice"}, got)
}

func TestEngineRoom_BroadcastWithoutSinkIsNoOp(t *testing.T) {
	mgr, logs := newTestManager(t)
	runScript(t, mgr, `function hi() engine.room.broadcast("hi") end`, "hi")
	assert.Equal(t, 0, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestEngineRandom(t *testing.T) {
	mgr := scripting.NewManager(dice.NewSequence(0.25).WithInts(3), 0, zap.NewNop())
	ret := runScript(t, mgr, `function roll() return engine.random.float() + engine.random.int(10) end`, "roll")
	assert.Equal(t, lua.LNumber(3.25), ret)
}

func TestEngineRandom_IntRejectsNonPositive(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret := runScript(t, mgr, `function roll() return engine.random.int(0) end`, "roll")
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestProperty_EngineRandomIntInRange(t *testing.T) {
	mgr := scripting.NewManager(dice.NewSeededSource(9), 0, zap.NewNop())
	dir := writeTempLua(t, "r.lua", `function roll(n) return engine.random.int(n) end`)
	require.NoError(t, mgr.LoadRoom("field", dir))
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		ret, err := mgr.CallHook("field", "roll", lua.LNumber(n))
		if err != nil {
			rt.Fatal(err)
		}
		v := int(ret.(lua.LNumber))
		if v < 0 || v >= n {
			rt.Fatalf("engine.random.int(%d) = %d", n, v)
		}
	})
}
