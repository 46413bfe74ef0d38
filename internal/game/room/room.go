package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/npc"
	"github.com/cory-johannsen/platformer/internal/game/profile"
	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/session"
	"github.com/cory-johannsen/platformer/internal/game/tilemap"
	"github.com/cory-johannsen/platformer/internal/game/world"
	"github.com/cory-johannsen/platformer/internal/observability"
)

// ErrDuplicateSession is returned when the username already has a player in the room.
var ErrDuplicateSession = errors.New("player already in room")

// ErrNotInRoom is returned when leaving a room the player is not in.
var ErrNotInRoom = errors.New("player not in room")

// ErrStopped is returned by mailbox calls after the room loop has exited.
var ErrStopped = errors.New("room stopped")

// ChatMessage is an outbound chat line.
type ChatMessage struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// Broadcaster delivers a room's output to its connected clients. Calls come
// from the room goroutine in simulation order; implementations must not block.
type Broadcaster interface {
	// Welcome is sent to a joining player before any frame that follows the join.
	Welcome(room, username string, res JoinResult)
	PublishFrame(frame replication.Frame)
	PublishChat(room string, msg ChatMessage)
}

// Hooks receives room events for scripting. Calls run on the room goroutine.
type Hooks interface {
	PlayerJoined(room, username string)
	PlayerLeft(room, username string)
	PlayerLeveled(room, username string, level int)
	MonsterDefeated(room, monster string, x, y float64)
}

// ProfileWriter queues profile writes without blocking.
type ProfileWriter interface {
	Enqueue(w session.Write) bool
}

type noHooks struct{}

func (noHooks) PlayerJoined(string, string) {}
func (noHooks) PlayerLeft(string, string) {}
func (noHooks) PlayerLeveled(string, string, int) {}
func (noHooks) MonsterDefeated(string, string, float64, float64) {}

// Deps are the collaborators a Room is built with.
type Deps struct {
	Geometry *tilemap.Map
	// Monsters maps monster template ids to resolved templates.
	Monsters    map[string]world.MonsterTemplate
	Profiles    ProfileWriter
	Broadcaster Broadcaster
	// Hooks may be nil.
	Hooks  Hooks
	Source dice.Source
	NewID  func() string
	Logger *zap.Logger

	LoopInterval time.Duration
	// KeyframeInterval is the number of publishes between full snapshots.
	KeyframeInterval int
	MailboxSize      int
}

// JoinResult is returned to a player admitted to the room.
type JoinResult struct {
	PlayerID string
	Snapshot *replication.Snapshot
}

// Room owns one world state. All state access happens on the goroutine
// running Run; other goroutines talk to it through the mailbox methods.
type Room struct {
	name    string
	state   *world.State
	spawner *npc.Spawner
	sched   *Scheduler
	src     dice.Source
	newID   func() string

	profiles ProfileWriter
	out      Broadcaster
	hooks    Hooks
	logger   *zap.Logger

	clock float64 // room time in ms
	tick  int64
	acc   float64

	lastPublished *replication.Snapshot
	publishes     int
	keyframeEvery int
	forceKeyframe bool

	loopInterval time.Duration
	mailbox      chan func()
	done         chan struct{}
}

// New builds a room from def.
//
// Precondition: deps.Geometry, Profiles, Broadcaster, Source, NewID and Logger must be non-nil.
// Postcondition: Returns an error if def names an unknown monster template or
// the geometry yields duplicate ids.
func New(def *Definition, deps Deps) (*Room, error) {
	state, err := buildState(def, deps.Geometry, deps.NewID)
	if err != nil {
		return nil, err
	}
	rules, err := spawnRules(def, deps.Monsters)
	if err != nil {
		return nil, err
	}
	hooks := deps.Hooks
	if hooks == nil {
		hooks = noHooks{}
	}
	keyframeEvery := deps.KeyframeInterval
	if keyframeEvery <= 0 {
		keyframeEvery = 1
	}
	mailboxSize := deps.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = 256
	}
	loop := deps.LoopInterval
	if loop <= 0 {
		loop = 16 * time.Millisecond
	}
	return &Room{
		name:          def.Name,
		state:         state,
		spawner:       npc.NewSpawner(rules, deps.NewID, deps.Source),
		sched:         NewScheduler(),
		src:           deps.Source,
		newID:         deps.NewID,
		profiles:      deps.Profiles,
		out:           deps.Broadcaster,
		hooks:         hooks,
		logger:        observability.ForRoom(deps.Logger, def.Name),
		keyframeEvery: keyframeEvery,
		loopInterval:  loop,
		mailbox:       make(chan func(), mailboxSize),
		done:          make(chan struct{}),
	}, nil
}

// Name returns the room's name.
func (r *Room) Name() string { return r.name }

// Run drives the room until ctx is cancelled. Each wake consumes the elapsed
// wall-clock time as back-to-back fixed steps and publishes once if anything
// stepped. Mailbox messages are handled between wakes.
//
// Postcondition: On return every remaining player has been written back to the
// profile store and all later mailbox calls fail with ErrStopped.
func (r *Room) Run(ctx context.Context) error {
	defer close(r.done)
	ticker := time.NewTicker(r.loopInterval)
	defer ticker.Stop()

	r.logger.Info("room started",
		zap.Int("obstacles", len(r.state.Obstacles)),
		zap.Int("portals", len(r.state.Portals)),
		zap.Int("spawn_rules", len(r.spawner.Rules())),
	)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case fn := <-r.mailbox:
			fn()
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if r.advance(elapsed) > 0 {
				r.publish()
			}
		}
	}
}

func (r *Room) shutdown() {
	for len(r.state.Players) > 0 {
		_ = r.leave(r.state.Players[0].Username)
	}
	r.logger.Info("room stopped", zap.Int64("tick", r.tick))
}

// Done is closed when Run returns.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) submit(ctx context.Context, fn func()) error {
	select {
	case r.mailbox <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

// call runs fn on the room goroutine and waits for its result.
func call[T any](ctx context.Context, r *Room, fn func() (T, error)) (T, error) {
	type reply struct {
		v   T
		err error
	}
	ch := make(chan reply, 1)
	var zero T
	if err := r.submit(ctx, func() {
		v, err := fn()
		ch <- reply{v, err}
	}); err != nil {
		return zero, err
	}
	select {
	case rep := <-ch:
		return rep.v, rep.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.done:
		return zero, ErrStopped
	}
}

// Join admits an authenticated player.
//
// Postcondition: Returns ErrDuplicateSession if the username is already in the
// room. On success every in-flight loot collection in the room has been reset
// and the result carries a full snapshot.
func (r *Room) Join(ctx context.Context, p profile.Profile, opts session.JoinOptions) (JoinResult, error) {
	return call(ctx, r, func() (JoinResult, error) { return r.join(p, opts) })
}

// Leave removes username from the room and queues its profile write.
func (r *Room) Leave(ctx context.Context, username string) error {
	_, err := call(ctx, r, func() (struct{}, error) { return struct{}{}, r.leave(username) })
	return err
}

// Input queues one input frame for processing on the next step.
func (r *Room) Input(ctx context.Context, in world.Input) error {
	return r.submit(ctx, func() { r.input(in) })
}

// Chat broadcasts text from username to the room.
func (r *Room) Chat(ctx context.Context, username, text string) error {
	return r.submit(ctx, func() { r.chat(username, text) })
}

// Snapshot captures the current state.
func (r *Room) Snapshot(ctx context.Context) (*replication.Snapshot, error) {
	return call(ctx, r, func() (*replication.Snapshot, error) {
		return replication.Capture(r.state, r.tick), nil
	})
}

func (r *Room) join(p profile.Profile, opts session.JoinOptions) (JoinResult, error) {
	if r.state.PlayerByUsername(p.Username) != nil {
		return JoinResult{}, fmt.Errorf("%w: %s", ErrDuplicateSession, p.Username)
	}
	if n := r.state.ResetLootCollection(); n > 0 {
		r.logger.Debug("reset in-flight loot collection", zap.Int("items", n))
	}
	x, y := session.SpawnPosition(p, opts)
	pl := session.NewPlayer(r.newID(), p, x, y)
	if err := r.state.AddPlayer(pl); err != nil {
		return JoinResult{}, err
	}
	r.logger.Info("player joined",
		observability.Player(pl.ID, pl.Username),
		zap.Float64("x", x),
		zap.Float64("y", y),
		zap.Bool("portal", opts.TargetX != nil && opts.TargetY != nil),
	)
	res := JoinResult{PlayerID: pl.ID, Snapshot: replication.Capture(r.state, r.tick)}
	r.out.Welcome(r.name, pl.Username, res)
	r.hooks.PlayerJoined(r.name, pl.Username)
	r.forceKeyframe = true
	return res, nil
}

func (r *Room) leave(username string) error {
	pl := r.state.PlayerByUsername(username)
	if pl == nil {
		return fmt.Errorf("%w: %s", ErrNotInRoom, username)
	}
	r.profiles.Enqueue(session.Write{Username: username, Update: session.LeaveUpdate(pl, r.name), Reason: "leave"})
	r.state.RemovePlayer(username)
	r.logger.Info("player left",
		observability.Player(pl.ID, pl.Username),
		zap.Float64("x", pl.X),
		zap.Float64("y", pl.Y),
	)
	r.hooks.PlayerLeft(r.name, username)
	return nil
}

func (r *Room) input(in world.Input) {
	pl := r.state.PlayerByUsername(in.Username)
	if pl == nil {
		r.logger.Warn("input for unknown player dropped",
			zap.String("username", in.Username),
			zap.Int64("input_tick", in.Tick),
		)
		return
	}
	pl.Enqueue(in)
}

// chat relays text verbatim, empty lines included.
func (r *Room) chat(username, text string) {
	r.out.PublishChat(r.name, ChatMessage{Username: username, Text: text})
}

func (r *Room) publish() {
	snap := replication.Capture(r.state, r.tick)
	frame := replication.Frame{Room: r.name, Tick: r.tick}
	if r.lastPublished == nil || r.forceKeyframe || r.publishes%r.keyframeEvery == 0 {
		frame.Keyframe = snap
		r.forceKeyframe = false
	} else {
		frame.Patches = replication.Diff(r.lastPublished, snap)
	}
	r.lastPublished = snap
	r.publishes++
	if frame.Keyframe == nil && len(frame.Patches) == 0 {
		return
	}
	r.out.PublishFrame(frame)
}
