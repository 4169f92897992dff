// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/ajmeyer/groupfinder/internal/auth"
	"github.com/ajmeyer/groupfinder/internal/cache"
	"github.com/ajmeyer/groupfinder/internal/config"
	"github.com/ajmeyer/groupfinder/internal/coordinator"
	"github.com/ajmeyer/groupfinder/internal/database"
	"github.com/ajmeyer/groupfinder/internal/handlers"
	"github.com/ajmeyer/groupfinder/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	auth.Init()

	pool, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	store := database.NewStore(pool)

	opts := []coordinator.Option{coordinator.WithStoreTimeout(cfg.StoreTimeout)}
	if cfg.RedisAddr != "" {
		publisher, err := cache.NewPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.EventQueue, logger)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer publisher.Close()
		opts = append(opts, coordinator.WithEventMirror(publisher))
	}

	coord := coordinator.New(store, coordinator.NewRegistry(), logger, opts...)

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/lobby/create", logged(handlers.CreateLobbyHandler(store)))
	mux.Handle("/lobby/list", logged(handlers.ListLobbiesHandler(store)))
	mux.Handle("/lobby/get", logged(handlers.GetLobbyHandler(coord)))
	mux.Handle("/lobby/ws", logged(handlers.LobbyWSHandler(logger, coord, store, cfg.PingPeriod)))

	logger.Infof("Running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
