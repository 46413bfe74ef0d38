// Package main provides the game server binary: the room simulations, the
// websocket gateway for clients and the gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/admin"
	"github.com/cory-johannsen/platformer/internal/config"
	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/loot"
	"github.com/cory-johannsen/platformer/internal/game/npc"
	"github.com/cory-johannsen/platformer/internal/game/profile"
	"github.com/cory-johannsen/platformer/internal/game/room"
	"github.com/cory-johannsen/platformer/internal/game/session"
	"github.com/cory-johannsen/platformer/internal/game/tilemap"
	"github.com/cory-johannsen/platformer/internal/game/world"
	"github.com/cory-johannsen/platformer/internal/gateway"
	"github.com/cory-johannsen/platformer/internal/observability"
	"github.com/cory-johannsen/platformer/internal/scripting"
	"github.com/cory-johannsen/platformer/internal/server"
	"github.com/cory-johannsen/platformer/internal/storage/postgres"
)

const (
	dbHealthInterval = 30 * time.Second
	dbHealthTimeout  = 5 * time.Second
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("name", cfg.Server.Name),
		zap.String("gateway_addr", cfg.Gateway.Addr()),
		zap.String("admin_addr", cfg.Admin.Addr()),
		zap.String("profiles", cfg.Profiles.Backend),
	)

	lifecycle := server.NewLifecycle(logger)
	adminSrv := admin.NewServer(cfg.Admin.Addr(), logger)

	// Profile store
	var store profile.Store
	switch cfg.Profiles.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		store = postgres.NewProfileRepository(pool.DB())
		probe := adminSrv.NewProbe("postgres", dbHealthInterval, dbHealthTimeout, func(ctx context.Context) error {
			return pool.Health(ctx, dbHealthTimeout)
		})
		lifecycle.Add("postgres", probe)
	default:
		logger.Warn("using in-memory profile store; profiles are lost on restart")
		store = profile.NewMemoryStore()
	}

	// Content
	contentStart := time.Now()
	catalog, err := loot.LoadCatalog(cfg.Content.LootFile)
	if err != nil {
		logger.Fatal("loading loot catalog", zap.Error(err))
	}
	monsters, err := loadMonsters(cfg.Content.MonstersDir, catalog)
	if err != nil {
		logger.Fatal("loading monster templates", zap.Error(err))
	}
	defs, err := room.LoadDefinitions(cfg.Content.RoomsDir)
	if err != nil {
		logger.Fatal("loading room definitions", zap.Error(err))
	}
	if err := room.CheckPortalTargets(defs); err != nil {
		logger.Fatal("validating portals", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("loot", catalog.Len()),
		zap.Int("monsters", len(monsters)),
		zap.Int("rooms", len(defs)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	dir := session.NewDirectory(cfg.Gateway.OutboxSize)
	hub := gateway.NewHub(dir, logger)
	persister := session.NewPersister(store, cfg.Simulation.PersistQueue, cfg.Simulation.PersistTimeout, logger)
	src := dice.NewCryptoSource()

	// Scripting
	var hooks room.Hooks
	if cfg.Content.ScriptsDir != "" {
		scriptMgr := scripting.NewManager(src, cfg.Simulation.ScriptInstructionLimit, logger)
		defer scriptMgr.Close()
		names := make([]string, 0, len(defs))
		for _, d := range defs {
			names = append(names, d.Name)
		}
		if err := scriptMgr.LoadTree(cfg.Content.ScriptsDir, names); err != nil {
			logger.Fatal("loading room scripts", zap.Error(err))
		}
		scriptMgr.Broadcast = hub.Announce
		hooks = scriptMgr
	}

	// Rooms
	rooms := make([]*room.Room, 0, len(defs))
	for _, d := range defs {
		geometry, err := tilemap.Load(filepath.Join(cfg.Content.MapsDir, d.Map))
		if err != nil {
			logger.Fatal("loading map", zap.String("room", d.Name), zap.Error(err))
		}
		r, err := room.New(d, room.Deps{
			Geometry:         geometry,
			Monsters:         monsters,
			Profiles:         persister,
			Broadcaster:      hub,
			Hooks:            hooks,
			Source:           src,
			NewID:            uuid.NewString,
			Logger:           logger,
			LoopInterval:     cfg.Simulation.LoopInterval,
			KeyframeInterval: cfg.Gateway.KeyframeInterval,
		})
		if err != nil {
			logger.Fatal("creating room", zap.String("room", d.Name), zap.Error(err))
		}
		logger.Info("room ready",
			zap.String("room", d.Name),
			zap.Int("obstacles", len(geometry.Colliders)),
			zap.Int("portals", len(d.Portals)),
			zap.Int("spawn_rules", len(d.Spawns)),
		)
		rooms = append(rooms, r)
	}
	roomMgr, err := room.NewManager(rooms...)
	if err != nil {
		logger.Fatal("creating room manager", zap.Error(err))
	}

	gw := gateway.NewServer(gateway.Config{
		Addr:           cfg.Gateway.Addr(),
		ReadTimeout:    cfg.Gateway.ReadTimeout,
		WriteTimeout:   cfg.Gateway.WriteTimeout,
		ReconnectGrace: cfg.Gateway.ReconnectGrace,
	}, store, gateway.ManagerLookup(roomMgr), dir, logger)

	// Services stop in reverse order: rooms flush their players' positions
	// into the persister before it drains and stops.
	persistCtx, stopPersist := context.WithCancel(ctx)
	persistDone := make(chan struct{})
	lifecycle.Add("persister", &server.FuncService{
		StartFn: func() error {
			defer close(persistDone)
			return persister.Run(persistCtx)
		},
		StopFn: func() {
			stopPersist()
			<-persistDone
		},
	})
	lifecycle.Add("rooms", &server.FuncService{
		StartFn: func() error {
			adminRooms := make([]admin.Room, 0, len(rooms))
			for _, r := range rooms {
				adminRooms = append(adminRooms, r)
			}
			adminSrv.TrackRooms(adminRooms...)
			return roomMgr.Start()
		},
		StopFn: roomMgr.Stop,
	})
	lifecycle.Add("gateway", gw)
	lifecycle.Add("admin", adminSrv)

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("rooms", roomMgr.Names()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// loadMonsters reads monster templates from dir and resolves their loot ids.
//
// Postcondition: Returns templates keyed by id, or the first load or resolve error.
func loadMonsters(dir string, catalog *loot.Catalog) (map[string]world.MonsterTemplate, error) {
	templates, err := npc.LoadTemplates(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]world.MonsterTemplate, len(templates))
	for _, t := range templates {
		mt, err := t.Resolve(catalog)
		if err != nil {
			return nil, err
		}
		out[t.ID] = mt
	}
	return out, nil
}
