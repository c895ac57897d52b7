package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/infamy/internal/catalog"
	"github.com/jwebster45206/infamy/internal/config"
	"github.com/jwebster45206/infamy/internal/handlers"
	"github.com/jwebster45206/infamy/internal/logger"
	"github.com/jwebster45206/infamy/internal/middleware"
	"github.com/jwebster45206/infamy/internal/services/queue"
	"github.com/jwebster45206/infamy/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Infamy API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"catalog_driver", cfg.CatalogDriver)

	store := storage.NewRedisStorage(cfg.RedisURL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Open(storageCtx, cfg.CatalogDriver, cfg.CatalogDSN, log)
	if err != nil {
		log.Error("Failed to open catalog", "error", err)
		os.Exit(1)
	}
	if n, err := cat.SeedIfEmpty(storageCtx, cfg.CatalogSeed); err != nil {
		log.Error("Failed to seed catalog", "error", err, "path", cfg.CatalogSeed)
		os.Exit(1)
	} else if n > 0 {
		log.Info("Catalog seeded", "records", n)
	}

	messages := queue.NewMessageQueue(queue.NewClientFromRedis(store.Client(), log))

	mux := handlers.Routes(store, messages, store.Client(), map[string]handlers.Pinger{
		"redis":   store,
		"catalog": cat,
	}, log)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log)(mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream holds its response open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := cat.Close(); err != nil {
		log.Error("Error closing catalog", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
