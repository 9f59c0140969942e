// Package main provides the Waygate game server binary: a TCP socket
// frontend over the room and battle engine.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/config"
	"github.com/kestrel-games/waygate/internal/frontend/socket"
	"github.com/kestrel-games/waygate/internal/game/dice"
	"github.com/kestrel-games/waygate/internal/game/room"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
	"github.com/kestrel-games/waygate/internal/game/session"
	"github.com/kestrel-games/waygate/internal/game/world"
	"github.com/kestrel-games/waygate/internal/observability"
	"github.com/kestrel-games/waygate/internal/scripting"
	"github.com/kestrel-games/waygate/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	src := dice.NewCryptoSource()

	logger.Info("starting game server",
		zap.String("addr", cfg.Socket.Addr()),
	)

	// Load the game board.
	gameMap := world.DefaultMap()
	if cfg.Game.MapFile != "" {
		gameMap, err = world.LoadMapFromFile(cfg.Game.MapFile)
		if err != nil {
			logger.Fatal("loading map", zap.Error(err))
		}
	}
	logger.Info("map loaded",
		zap.String("map", gameMap.ID),
		zap.Int("waypoints", len(gameMap.Waypoints)),
	)

	// Load the ruleset content.
	rules := ruleset.DefaultRegistry()
	if cfg.Game.ClassesDir != "" {
		classes, err := ruleset.LoadClasses(cfg.Game.ClassesDir)
		if err != nil {
			logger.Fatal("loading classes", zap.Error(err))
		}
		skills, err := ruleset.LoadSkills(cfg.Game.SkillsDir)
		if err != nil {
			logger.Fatal("loading skills", zap.Error(err))
		}
		rules, err = ruleset.NewRegistry(classes, skills)
		if err != nil {
			logger.Fatal("building ruleset", zap.Error(err))
		}
	}
	logger.Info("ruleset loaded", zap.Int("classes", rules.ClassCount()))

	// Optional Lua trigger scripts.
	var trigger room.TriggerHook
	var scripts *scripting.Manager
	if cfg.Game.ScriptsDir != "" {
		scripts = scripting.NewManager(src, logger)
		if err := scripts.LoadDir(cfg.Game.ScriptsDir, 0); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		trigger = scripts
		logger.Info("trigger scripts loaded", zap.String("dir", cfg.Game.ScriptsDir))
	}

	registry := session.NewRegistry(session.Config{
		Map:         gameMap,
		Ruleset:     rules,
		Source:      src,
		Logger:      logger,
		TurnTimeout: cfg.Game.TurnTimeout,
		Trigger:     trigger,
		EnemyHealth: cfg.Game.EnemyHealth,
	})

	acceptor := socket.NewAcceptor(cfg.Socket, registry, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("socket-acceptor", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})
	if scripts != nil {
		lifecycle.Add("scripting", &server.FuncService{StopFn: scripts.Close})
	}

	logger.Info("game server ready", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server terminated", zap.Error(err))
	}
}
