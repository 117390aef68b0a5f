package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/internal/config"
	"github.com/jwebster45206/drifter/internal/handlers"
	"github.com/jwebster45206/drifter/internal/logger"
	"github.com/jwebster45206/drifter/internal/middleware"
	"github.com/jwebster45206/drifter/internal/services"
	"github.com/jwebster45206/drifter/internal/services/events"
	"github.com/jwebster45206/drifter/internal/simulation"
	"github.com/jwebster45206/drifter/internal/storage"
	"github.com/jwebster45206/drifter/pkg/rng"
)

// lockTTL bounds how long a crashed instance can hold a campaign.
const lockTTL = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting DRIFTER API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"storage_backend", cfg.StorageBackend)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startupCancel()

	generator, err := services.NewGenerator(startupCtx, cfg, log)
	if err != nil {
		log.Error("Failed to create generator", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(startupCtx, cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	if err := store.Ping(startupCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var random rng.Source = rng.NewRandom()
	if cfg.Seed != 0 {
		random = rng.NewSeeded(cfg.Seed)
		log.Info("Using seeded randomness", "seed", cfg.Seed)
	}

	opts := campaign.Options{
		Random:   random,
		Deadline: cfg.SimulationDeadline,
	}

	mux := http.NewServeMux()

	// Redis also carries the busy locks and the event stream when it is
	// the storage backend
	if redisStore, ok := store.(*storage.RedisStorage); ok {
		opts.Locker = services.NewRedisLocker(redisStore.Client(), lockTTL)
		opts.Shared = true
		backlog := events.NewBacklog(redisStore.Client(), events.DefaultBacklogSize)
		opts.Publisher = events.NewBroadcaster(redisStore.Client(), log).WithBacklog(backlog)
		mux.Handle("/v1/events/", handlers.NewEventsHandler(redisStore.Client(), log).WithBacklog(backlog))
	}

	orchestrator := simulation.NewOrchestrator(generator, log, cfg.RetryBackoff)
	controller := campaign.NewController(store, orchestrator, log, opts)

	mux.Handle("/health", handlers.NewHealthHandler(store, cfg.LLMProvider, log))

	campaignHandler := handlers.NewCampaignHandler(controller, log)
	mux.Handle("/v1/campaigns", campaignHandler)
	mux.Handle("/v1/campaigns/", campaignHandler)

	handler := middleware.Logger(log)(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: advance can take up to the simulation deadline and SSE streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// let background snapshot writes finish before the store goes away
	controller.Wait()

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if closer, ok := generator.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error("Error closing generator", "error", err)
		}
	}

	log.Info("Server exited")
}
