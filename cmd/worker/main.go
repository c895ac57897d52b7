package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/infamy/internal/catalog"
	"github.com/jwebster45206/infamy/internal/commands"
	"github.com/jwebster45206/infamy/internal/config"
	"github.com/jwebster45206/infamy/internal/input"
	"github.com/jwebster45206/infamy/internal/logger"
	"github.com/jwebster45206/infamy/internal/services/events"
	"github.com/jwebster45206/infamy/internal/services/queue"
	"github.com/jwebster45206/infamy/internal/storage"
	"github.com/jwebster45206/infamy/internal/worker"
	"github.com/jwebster45206/infamy/pkg/duel"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Infamy Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"worker_id", cfg.WorkerID)

	store := storage.NewRedisStorage(cfg.RedisURL, log)
	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	if err := store.WaitForConnection(startCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()

	cat, err := catalog.Open(startCtx, cfg.CatalogDriver, cfg.CatalogDSN, log)
	if err != nil {
		log.Error("Failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			log.Error("Error closing catalog", "error", err)
		}
	}()
	if _, err := cat.SeedIfEmpty(startCtx, cfg.CatalogSeed); err != nil {
		log.Error("Failed to seed catalog", "error", err, "path", cfg.CatalogSeed)
		os.Exit(1)
	}

	hub := input.NewHub(log)
	broadcaster := events.NewBroadcaster(store.Client(), log)
	messages := queue.NewMessageQueue(queue.NewClientFromRedis(store.Client(), log))

	dispatcher := commands.New(commands.Deps{
		Store:    store,
		Catalog:  cat,
		Input:    hub,
		Narrator: broadcaster,
		Logger:   log,
	}, commands.Settings{
		Prefix:         cfg.CommandPrefix,
		AdminIDs:       cfg.AdminIDs,
		ConfirmTimeout: cfg.ConfirmTimeout,
		DuelOptions: duel.Options{
			ActionTimeout: cfg.DuelActionTimeout,
			NarrationTTL:  cfg.NarrationTTL,
		},
	})
	log.Info("Command dispatcher initialized", "prefix", cfg.CommandPrefix, "admins", len(cfg.AdminIDs))

	w := worker.New(worker.Deps{
		Queue:       messages,
		Hub:         hub,
		Dispatcher:  dispatcher,
		Directory:   store,
		Echo:        broadcaster,
		Narrator:    broadcaster,
		RedisClient: store.Client(),
		Logger:      log,
	}, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for messages...")

	<-quit
	log.Info("Worker shutdown signal received")

	// Stop cancels running commands and waits for them to return.
	w.Stop()

	log.Info("Worker exited")
}
