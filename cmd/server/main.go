// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pyatikantrop/pyatikantrop/internal/auth"
	"github.com/pyatikantrop/pyatikantrop/internal/config"
	"github.com/pyatikantrop/pyatikantrop/internal/handlers"
	"github.com/pyatikantrop/pyatikantrop/internal/middleware"
	"github.com/pyatikantrop/pyatikantrop/internal/room"
	"github.com/pyatikantrop/pyatikantrop/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	cfg := config.Load()

	st := pickStore(cfg, logger)
	rooms := room.NewService(st, logger)
	srv := handlers.NewServer(rooms, logger)

	server := &http.Server{
		Handler:      middleware.LogMiddleware(logger)(srv),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

// pickStore connects the Redis-backed document store when an address is
// configured and reachable, falling back to the in-memory store otherwise.
// The in-memory store is fine for a single instance; Redis is needed once
// rooms must be shared across instances or survive a restart.
func pickStore(cfg config.Config, logger *logrus.Logger) store.Store {
	if cfg.RedisAddr == "" {
		logger.Info("no REDIS_ADDR configured, using the in-memory room store")
		return store.NewMemory()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warnf("redis at %s unreachable, falling back to the in-memory room store", cfg.RedisAddr)
		return store.NewMemory()
	}

	logger.Infof("using redis room store at %s", cfg.RedisAddr)
	return store.NewRedis(rdb, cfg.RoomTTL, logger)
}
