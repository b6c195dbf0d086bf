/**
 * OCR Parse Service - HTTP Server Entry Point
 *
 * Serves the book title/author parse API:
 * - Synchronous, batch, async, and image parse endpoints
 * - Bibliographic verification against Google Books and Open Library
 * - Optional PostgreSQL persistence and Redis verification cache
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelfscan/ocrparse/internal/cache"
	"github.com/shelfscan/ocrparse/internal/config"
	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/ocr"
	"github.com/shelfscan/ocrparse/internal/pipeline"
	"github.com/shelfscan/ocrparse/internal/queue"
	"github.com/shelfscan/ocrparse/internal/server"
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

	logger := logging.NewLoggerWithLevel("ocrparse", logging.ParseLevel(cfg.LogLevel))
	logger.Info("starting server",
		"port", cfg.Port,
		"providers", fmt.Sprintf("%v", cfg.VerifyProviderOrder),
		"verify_default", cfg.VerifyDefault,
		"env", cfg.Env)

	registry := verify.NewRegistry(
		verify.NewGoogleBooksProvider(cfg.GoogleBooksBaseURL, cfg.ProviderTimeout),
		verify.NewOpenLibraryProvider(cfg.OpenLibraryBaseURL, cfg.ProviderTimeout),
	)

	var (
		resultCache verify.ResultCache
		redisCache  *cache.RedisCache
	)
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL, cfg.VerifyCacheTTL, logger.WithPrefix("cache"))
		if err != nil {
			logger.Warn("verification cache disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			resultCache = redisCache
			logger.Info("verification cache enabled", "ttl", cfg.VerifyCacheTTL)
		}
	}

	verifier := verify.NewVerifier(registry, resultCache, logger.WithPrefix("verify"))

	var (
		store   pipeline.ResultStore
		pgStore *storage.PostgresStore
	)
	if cfg.DatabaseURL != "" {
		pgStore, err = storage.NewPostgresStore(cfg.DatabaseURL)
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

	var enqueuer *queue.Enqueuer
	if cfg.RedisURL != "" {
		enqueuer, err = queue.NewEnqueuer(cfg.RedisURL)
		if err != nil {
			logger.Warn("async parsing disabled", "error", err)
			enqueuer = nil
		} else {
			defer enqueuer.Close()
			logger.Info("async parsing enabled")
		}
	}

	var engine *ocr.Engine
	if cfg.TesseractEnabled {
		engine = ocr.NewEngine(cfg.TesseractLangs)
		logger.Info("image OCR enabled", "langs", cfg.TesseractLangs)
	}

	srv := server.New(cfg, p, enqueuer, engine, logger.WithPrefix("server"))
	if pgStore != nil {
		srv.AddHealthCheck("database", pgStore.Ping)
	}
	if redisCache != nil {
		srv.AddHealthCheck("redis", redisCache.Ping)
	}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
