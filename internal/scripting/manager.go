package scripting

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/dice"
)

// globalRoom is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no room VM is found.
const globalRoom = "__global__"

// Hook names called by the room event methods.
const (
	HookJoin            = "on_join"
	HookLeave           = "on_leave"
	HookLevelUp         = "on_level_up"
	HookMonsterDefeated = "on_monster_defeated"
)

// Manager owns one sandboxed LState per room and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook after all LoadRoom calls complete.
// Each room's LState is single-threaded; a per-VM mutex serializes calls to
// the same room while allowing different rooms to run concurrently.
type Manager struct {
	mu        sync.RWMutex
	vms       map[string]*vm
	src       dice.Source
	instLimit int
	logger    *zap.Logger

	// Broadcast sends a system chat line to a room. Injected after
	// construction; nil makes engine.room.broadcast a no-op.
	Broadcast func(room, text string)
}

type vm struct {
	mu sync.Mutex
	L  *lua.LState
	// room is the room the current call runs for; the global VM serves many.
	room   string
	closed bool
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.L.Close()
		v.closed = true
	}
}

// NewManager creates a Manager whose hook calls are each bounded by instLimit opcodes.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no room VMs.
func NewManager(src dice.Source, instLimit int, logger *zap.Logger) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:       make(map[string]*vm),
		src:       src,
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadRoom creates a sandboxed VM for room, registers the engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: room must be non-empty; scriptDir must be a readable directory.
// Postcondition: Room VM is registered; returns error on Lua load failure.
func (m *Manager) LoadRoom(room, scriptDir string) error {
	return m.loadInto(room, scriptDir)
}

// LoadGlobal creates the shared VM used as a CallHook fallback from any room.
func (m *Manager) LoadGlobal(scriptDir string) error {
	return m.loadInto(globalRoom, scriptDir)
}

// LoadTree loads root's *.lua files as the global VM and each root/<room>
// directory as that room's VM. Rooms without a directory get no VM.
//
// Postcondition: Returns nil if root does not exist.
func (m *Manager) LoadTree(root string, rooms []string) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		m.logger.Info("scripting: no script directory", zap.String("dir", root))
		return nil
	}
	if err := m.LoadGlobal(root); err != nil {
		return err
	}
	for _, room := range rooms {
		dir := filepath.Join(root, room)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := m.LoadRoom(room, dir); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) loadInto(key, scriptDir string) error {
	L := NewSandboxedState()
	v := &vm{L: L, room: key}
	m.registerModules(v)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		release := Limit(L, m.instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.close()
	}
	m.vms[key] = v
	m.mu.Unlock()
	m.logger.Info("scripting: loaded scripts",
		zap.String("room", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// CallHook calls the named Lua global function in room's VM. If the room has
// no VM, the global VM is tried as a fallback. Returns (LNil, nil) if the hook
// is not defined or no VM exists. Lua runtime errors, including an exhausted
// instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(room, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[room]
	if !ok {
		v = m.vms[globalRoom]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Debug("scripting: no VM for room",
			zap.String("room", room),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return lua.LNil, nil
	}
	v.room = room
	L := v.L

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	release := Limit(L, m.instLimit)
	top := L.GetTop()
	err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...)
	release()
	if err != nil {
		L.SetTop(top)
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("room", room),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM. Subsequent CallHook calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.close()
		delete(m.vms, key)
	}
}

// PlayerJoined calls on_join(username).
func (m *Manager) PlayerJoined(room, username string) {
	m.CallHook(room, HookJoin, lua.LString(username)) //nolint:errcheck
}

// PlayerLeft calls on_leave(username).
func (m *Manager) PlayerLeft(room, username string) {
	m.CallHook(room, HookLeave, lua.LString(username)) //nolint:errcheck
}

// PlayerLeveled calls on_level_up(username, level).
func (m *Manager) PlayerLeveled(room, username string, level int) {
	m.CallHook(room, HookLevelUp, lua.LString(username), lua.LNumber(level)) //nolint:errcheck
}

// MonsterDefeated calls on_monster_defeated(name, x, y).
func (m *Manager) MonsterDefeated(room, monster string, x, y float64) {
	m.CallHook(room, HookMonsterDefeated, lua.LString(monster), lua.LNumber(x), lua.LNumber(y)) //nolint:errcheck
}
