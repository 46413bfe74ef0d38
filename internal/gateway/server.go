package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/profile"
	"github.com/cory-johannsen/platformer/internal/game/room"
	"github.com/cory-johannsen/platformer/internal/game/session"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

const (
	maxMessageSize  = 4096
	shutdownTimeout = 5 * time.Second

	// DefaultReconnectGrace is how long a join waits for the same user's
	// previous connection to finish closing.
	DefaultReconnectGrace = 2 * time.Second
)

// Room is the part of a room the gateway drives.
type Room interface {
	Join(ctx context.Context, p profile.Profile, opts session.JoinOptions) (room.JoinResult, error)
	Leave(ctx context.Context, username string) error
	Input(ctx context.Context, in world.Input) error
	Chat(ctx context.Context, username, text string) error
}

// RoomLookup resolves a room by name.
type RoomLookup func(name string) (Room, bool)

// ManagerLookup adapts a room.Manager to a RoomLookup.
func ManagerLookup(m *room.Manager) RoomLookup {
	return func(name string) (Room, bool) {
		r, ok := m.Get(name)
		if !ok {
			return nil, false
		}
		return r, true
	}
}

// Config holds the listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ReconnectGrace defaults to DefaultReconnectGrace when zero.
	ReconnectGrace time.Duration
}

// Server serves the auth endpoints and the per-room websocket endpoint.
type Server struct {
	cfg      Config
	store    profile.Store
	rooms    RoomLookup
	dir      *session.Directory
	logger   *zap.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	http     *http.Server
}

// NewServer wires the routes.
//
// Precondition: store, rooms, dir and logger must be non-nil.
func NewServer(cfg Config, store profile.Store, rooms RoomLookup, dir *session.Directory, logger *zap.Logger) *Server {
	if cfg.ReconnectGrace <= 0 {
		cfg.ReconnectGrace = DefaultReconnectGrace
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		rooms:  rooms,
		dir:    dir,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /rooms/{name}/ws", s.handleRoom)
	s.http = &http.Server{Addr: cfg.Addr, Handler: s.mux}
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info("gateway listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving gateway: %w", err)
	}
	return nil
}

// Stop stops accepting requests and waits briefly for in-flight ones.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("gateway shutdown", zap.Error(err))
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, profile.ErrMissingCredentials.Error())
		return
	}
	p, err := s.store.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, profile.ErrExists):
		writeError(w, http.StatusConflict, "username already exists")
		return
	case err != nil:
		s.logger.Error("registering profile", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	s.logger.Info("profile registered", zap.String("username", p.Username))
	writeJSON(w, http.StatusCreated, map[string]any{"message": "registration successful", "profile": newProfileView(p)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	p, err := session.Authenticate(r.Context(), s.store, session.JoinOptions{Username: req.Username, Password: req.Password})
	if err != nil {
		status, msg := authFailure(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("login", zap.String("username", req.Username), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": newProfileView(p)})
}

// handleRoom authenticates, joins the room and then upgrades. The directory
// entry is created before the join so the welcome has an outbox to land in.
// A portal transfer closes the old socket and dials the next room at once, so
// the directory entry waits out the old connection's release for a short grace.
func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rm, ok := s.rooms(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown room")
		return
	}
	opts, err := joinOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := session.Authenticate(r.Context(), s.store, opts)
	if err != nil {
		status, msg := authFailure(err)
		writeError(w, status, msg)
		return
	}
	connectCtx, cancel := context.WithTimeout(r.Context(), s.cfg.ReconnectGrace)
	c, err := s.dir.ConnectWait(connectCtx, p.Username, name)
	cancel()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	res, err := rm.Join(r.Context(), p, opts)
	if err != nil {
		s.dir.Release(c)
		if errors.Is(err, room.ErrDuplicateSession) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("username", p.Username), zap.Error(err))
		_ = rm.Leave(context.Background(), p.Username)
		s.dir.Release(c)
		return
	}
	s.logger.Info("client connected",
		zap.String("room", name),
		zap.String("username", p.Username),
		zap.String("player_id", res.PlayerID),
	)
	go s.writePump(conn, c)
	s.readPump(conn, c, rm)
}

// readPump forwards client messages to the room until the connection fails.
//
// Postcondition: The player has left the room and its directory entry is released.
func (s *Server) readPump(conn *websocket.Conn, c *session.Connection, rm Room) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		if err := rm.Leave(context.Background(), c.Username); err != nil &&
			!errors.Is(err, room.ErrNotInRoom) && !errors.Is(err, room.ErrStopped) {
			s.logger.Warn("leaving room", zap.String("username", c.Username), zap.Error(err))
		}
		s.dir.Release(c)
		_ = conn.Close()
		s.logger.Info("client disconnected", zap.String("room", c.Room), zap.String("username", c.Username))
	}()

	conn.SetReadLimit(maxMessageSize)
	for {
		if s.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("read ended", zap.String("username", c.Username), zap.Error(err))
			return
		}
		var env clientEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.reject(c, "malformed message", err)
			continue
		}
		switch env.Type {
		case TypeInput:
			var in world.Input
			if err := json.Unmarshal(env.Payload, &in); err != nil {
				s.reject(c, "malformed input", err)
				continue
			}
			in.Username = c.Username
			if err := rm.Input(ctx, in); err != nil {
				return
			}
		case TypeChat:
			var req chatRequest
			if err := json.Unmarshal(env.Payload, &req); err != nil {
				s.reject(c, "malformed chat", err)
				continue
			}
			if err := rm.Chat(ctx, c.Username, req.Text); err != nil {
				return
			}
		default:
			s.reject(c, fmt.Sprintf("unknown message type %q", env.Type), nil)
		}
	}
}

// writePump is the only writer on conn. It ends when the outbox closes or a write fails.
func (s *Server) writePump(conn *websocket.Conn, c *session.Connection) {
	defer conn.Close()
	for msg := range c.Outbox.Messages() {
		if s.cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.logger.Debug("write failed", zap.String("username", c.Username), zap.Error(err))
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) reject(c *session.Connection, msg string, err error) {
	s.logger.Warn("client message rejected",
		zap.String("username", c.Username),
		zap.String("reason", msg),
		zap.Error(err),
	)
	data, encErr := encode(TypeError, ErrorPayload{Message: msg})
	if encErr != nil {
		return
	}
	_ = c.Outbox.Push(data)
}

// joinOptions reads credentials and an optional portal target from q.
// The target is honored only when both coordinates are present.
func joinOptions(q url.Values) (session.JoinOptions, error) {
	opts := session.JoinOptions{Username: q.Get("username"), Password: q.Get("password")}
	xs, ys := q.Get("targetX"), q.Get("targetY")
	if xs == "" || ys == "" {
		return opts, nil
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return opts, fmt.Errorf("invalid targetX %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return opts, fmt.Errorf("invalid targetY %q", ys)
	}
	opts.TargetX, opts.TargetY = &x, &y
	return opts, nil
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, profile.ErrMissingCredentials):
		return http.StatusBadRequest, profile.ErrMissingCredentials.Error()
	case errors.Is(err, profile.ErrNotFound), errors.Is(err, profile.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	default:
		return http.StatusInternalServerError, "authentication failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorPayload{Message: msg})
}
