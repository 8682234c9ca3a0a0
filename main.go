package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pollboard-backend/auth"
	"pollboard-backend/cache"
	"pollboard-backend/config"
	"pollboard-backend/database"
	"pollboard-backend/polls"
	"pollboard-backend/ratelimit"
	"pollboard-backend/routes"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}

	if err := database.Init(cfg); err != nil {
		log.WithError(err).Fatal("initialize database")
	}

	limiter := buildLimiter(cfg)

	provider := auth.NewGormProvider(database.DB, cfg.BcryptCost, cfg.SessionMaxAge)
	gateway := auth.NewGateway(provider)
	pollService := polls.NewService(database.DB, gateway)

	router := routes.SetupRouter(cfg, routes.Deps{
		DB:      database.DB,
		Gateway: gateway,
		Polls:   pollService,
		Limiter: limiter,
	})
	srv := routes.StartServer(cfg, router)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}

	database.Close()
	cache.Close()
	log.Info("server stopped")
}

// buildLimiter prefers the shared Redis window when Redis is configured and
// reachable, otherwise the process-local one.
func buildLimiter(cfg *config.Config) ratelimit.Limiter {
	if err := cache.Init(cfg.RedisAddr); err != nil {
		if !errors.Is(err, cache.ErrRedisNotAvailable) {
			log.WithError(err).Warn("redis unavailable, using in-memory rate limiter")
		}
		return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	client, err := cache.Client()
	if err != nil {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	log.Info("using redis-backed rate limiter")
	return ratelimit.NewRedisLimiter(client, "ip", cfg.RateLimitMax, cfg.RateLimitWindow)
}
