/**
 * OCR Parse Service - Background Worker Entry Point
 *
 * Consumes queued parse tasks from Redis via asynq and runs them
 * through the same pipeline as the HTTP server, persisting results
 * to PostgreSQL when configured.
 */

package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/shelfscan/ocrparse/internal/cache"
	"github.com/shelfscan/ocrparse/internal/config"
	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/pipeline"
	"github.com/shelfscan/ocrparse/internal/queue"
	"github.com/shelfscan/ocrparse/internal/storage"
	"github.com/shelfscan/ocrparse/internal/verify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required for the worker")
	}

	logger := logging.NewLoggerWithLevel("ocrparse-worker", logging.ParseLevel(cfg.LogLevel))
	logger.Info("starting worker",
		"concurrency", cfg.WorkerConcurrency,
		"env", cfg.Env)

	registry := verify.NewRegistry(
		verify.NewGoogleBooksProvider(cfg.GoogleBooksBaseURL, cfg.ProviderTimeout),
		verify.NewOpenLibraryProvider(cfg.OpenLibraryBaseURL, cfg.ProviderTimeout),
	)

	var resultCache verify.ResultCache
	redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.VerifyCacheTTL, logger.WithPrefix("cache"))
	if err != nil {
		logger.Warn("verification cache disabled", "error", err)
	} else {
		defer redisCache.Close()
		resultCache = redisCache
	}

	verifier := verify.NewVerifier(registry, resultCache, logger.WithPrefix("verify"))

	var store pipeline.ResultStore
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pgStore.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure database schema: %v", err)
		}
		cancel()
		store = pgStore
		logger.Info("result persistence enabled")
	}

	p := pipeline.New(verifier, store, pipeline.Options{
		VerifyDefault: cfg.VerifyDefault,
		MaxLinesCap:   cfg.MaxLinesCap,
	}, logger.WithPrefix("pipeline"))

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	queue.NewHandler(p, logger.WithPrefix("queue")).Register(mux)

	logger.Info("worker ready, waiting for tasks")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
