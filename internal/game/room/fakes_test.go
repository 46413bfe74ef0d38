package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/session"
	"github.com/cory-johannsen/platformer/internal/game/tilemap"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Test map: 50x20 tiles of 16px with a solid floor row whose top edge is at y=304.
const (
	floorTop = 304.0
	groundY  = floorTop - 16
)

type recordingWriter struct {
	mu     sync.Mutex
	writes []session.Write
}

func (w *recordingWriter) Enqueue(wr session.Write) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, wr)
	return true
}

func (w *recordingWriter) all() []session.Write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]session.Write(nil), w.writes...)
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	welcomes []string
	frames   []replication.Frame
	chats    []ChatMessage
}

func (b *recordingBroadcaster) Welcome(_, username string, _ JoinResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.welcomes = append(b.welcomes, username)
}

func (b *recordingBroadcaster) PublishFrame(f replication.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, f)
}

func (b *recordingBroadcaster) PublishChat(_ string, msg ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chats = append(b.chats, msg)
}

func (b *recordingBroadcaster) frameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

type recordingHooks struct {
	events []string
}

func (h *recordingHooks) PlayerJoined(room, username string) {
	h.events = append(h.events, fmt.Sprintf("join %s %s", room, username))
}

func (h *recordingHooks) PlayerLeft(room, username string) {
	h.events = append(h.events, fmt.Sprintf("leave %s %s", room, username))
}

func (h *recordingHooks) PlayerLeveled(room, username string, level int) {
	h.events = append(h.events, fmt.Sprintf("level %s %s %d", room, username, level))
}

func (h *recordingHooks) MonsterDefeated(room, monster string, _, _ float64) {
	h.events = append(h.events, fmt.Sprintf("defeat %s %s", room, monster))
}

func floorMap() *tilemap.Map {
	m := &tilemap.Map{Width: 50, Height: 20, TileWidth: 16, TileHeight: 16}
	for col := 0; col < m.Width; col++ {
		m.Colliders = append(m.Colliders, tilemap.Collider{X: float64(col)*16 + 8, Y: floorTop + 8})
	}
	return m
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}
}

func snailTemplate() world.MonsterTemplate {
	return world.MonsterTemplate{
		Name: "Snail", MaxHealth: 30, Damage: 10, Width: 32, Height: 32, DetectionRange: 100, Experience: 10,
		PotentialLoot: []world.LootTemplate{{ID: "small_coin", Name: "Small Coin", Width: 16, Height: 16}},
	}
}

type harness struct {
	room   *Room
	writer *recordingWriter
	out    *recordingBroadcaster
	hooks  *recordingHooks
}

func newHarness(t *testing.T, def *Definition, logger *zap.Logger, src dice.Source) *harness {
	t.Helper()
	if def == nil {
		def = &Definition{Name: "field", Map: "field.tmj"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if src == nil {
		src = dice.NewSeededSource(7)
	}
	h := &harness{writer: &recordingWriter{}, out: &recordingBroadcaster{}, hooks: &recordingHooks{}}
	r, err := New(def, Deps{
		Geometry:         floorMap(),
		Monsters:         map[string]world.MonsterTemplate{"snail": snailTemplate()},
		Profiles:         h.writer,
		Broadcaster:      h.out,
		Hooks:            h.hooks,
		Source:           src,
		NewID:            sequentialIDs(),
		Logger:           logger,
		LoopInterval:     time.Millisecond,
		KeyframeInterval: 10,
	})
	require.NoError(t, err)
	h.room = r
	return h
}

// steps runs n fixed steps.
func (h *harness) steps(n int) {
	for i := 0; i < n; i++ {
		h.room.step()
	}
}
