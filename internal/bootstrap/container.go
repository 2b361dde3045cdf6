package bootstrap

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/hsqsh/maisHack25/internal/config"
	"github.com/hsqsh/maisHack25/internal/detect"
	"github.com/hsqsh/maisHack25/internal/handler"
	"github.com/hsqsh/maisHack25/internal/pkg/logger"
	"github.com/hsqsh/maisHack25/internal/relay"
)

type Container struct {
	RelayHandler *handler.RelayHandler
	Hub          *relay.Hub
	Logger       logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Redis is optional; without it the relay runs single-instance.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// Relay Hub
	relayLogger := logger.NewIsolatedLogger("logs/relay.log")
	hub := relay.NewHub(cfg.Relay.NotifyCooldown, rdb, relayLogger)
	go hub.RunBridge(context.Background())

	// Detection collaborator (liveness passthrough only on the relay side)
	detector := detect.NewClient(cfg.Scanner.DetectURL, cfg.Scanner.DetectTimeout)

	relayHandler := handler.NewRelayHandler(hub, detector, relayLogger)

	return &Container{
		RelayHandler: relayHandler,
		Hub:          hub,
		Logger:       sysLogger,
	}
}
