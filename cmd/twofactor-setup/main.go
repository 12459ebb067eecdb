// Command twofactor-setup prepares the backing infrastructure for a
// Postgres-backed deployment: it creates the credential table and verifies
// that the optional Redis instance is reachable.
//
// Configuration comes from the environment (PG_CONN_URL, and REDIS_URL when
// Redis is used for replay tracking and attempt counting).
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"

	"github.com/veilauth/twofactor/pkg/logger"
	"github.com/veilauth/twofactor/pkg/pg"
	"github.com/veilauth/twofactor/pkg/redis"
	"github.com/veilauth/twofactor/pkg/store"
)

type setupConfig struct {
	Postgres pg.Config
	RedisURL string `env:"REDIS_URL"`
}

func main() {
	log := logger.New(logger.WithFormat(logger.FormatText))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var cfg setupConfig
	if err := env.Parse(&cfg); err != nil {
		log.Error("failed to parse configuration", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.NewPostgresStore(pool).EnsureSchema(ctx); err != nil {
		log.Error("failed to create credential schema", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("credential schema ready")

	if cfg.RedisURL != "" {
		redisCfg := redis.Config{
			ConnectionURL:  cfg.RedisURL,
			RetryAttempts:  3,
			RetryInterval:  time.Second,
			ConnectTimeout: 30 * time.Second,
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			log.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()

		if err := redis.Healthcheck(client)(ctx); err != nil {
			log.Error("redis healthcheck failed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("redis reachable")
	}

	log.Info("setup complete")
}
