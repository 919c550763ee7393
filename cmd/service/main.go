package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/arnldo/seenlist/internal/seenlist"
)

func main() {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seenlist-service: pg: %v", err)
	}
	defer pool.Close()

	if err := seenlist.AutoMigrate(ctx, pool); err != nil {
		log.Fatalf("seenlist-service: migrate: %v", err)
	}
	if err := seenlist.MigrateLegacyCollaborators(ctx, pool); err != nil {
		log.Fatalf("seenlist-service: migrate collaborators: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("seenlist-service: redis: %v", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	}

	srv := seenlist.NewServer(pool, rdb)
	r := srv.Router(
		corsMiddleware(cfg),
		stripTrustedHeadersMiddleware,
		bodyLimitMiddleware(cfg.BodyLimitBytes),
		requestLogMiddleware,
		jwtAuthMiddleware(cfg.JWTSecret),
	)

	log.Printf("seenlist-service listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("seenlist-service: %v", err)
	}
}
