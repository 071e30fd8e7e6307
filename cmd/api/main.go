package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jleechanorg/claude-commands-sub003/internal/config"
	"github.com/jleechanorg/claude-commands-sub003/internal/handlers"
	"github.com/jleechanorg/claude-commands-sub003/internal/logger"
	"github.com/jleechanorg/claude-commands-sub003/internal/middleware"
	"github.com/jleechanorg/claude-commands-sub003/internal/services"
	"github.com/jleechanorg/claude-commands-sub003/internal/services/queue"
	"github.com/jleechanorg/claude-commands-sub003/internal/worker"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Campaign Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"dice_strategy", cfg.DiceStrategy)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	roller := dice.NewRoller(rand.NewSource(seed), log)

	var llmService services.LLMService
	switch strings.ToLower(cfg.LLMProvider) {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Error("Gemini API key is required when using gemini provider")
			os.Exit(1)
		}
		llmService = services.NewGeminiService(cfg.GeminiAPIKey, cfg.ModelName, log)
		log.Info("Using Gemini LLM provider")
	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			log.Error("OpenRouter API key is required when using openrouter provider")
			os.Exit(1)
		}
		llmService = services.NewOpenRouterService(cfg.OpenRouterAPIKey, cfg.ModelName, roller, log)
		log.Info("Using OpenRouter LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"gemini", "openrouter"})
		os.Exit(1)
	}

	var storage services.Storage = services.NewRedisStorage(cfg.RedisURL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := storage.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	redisURL := cfg.RedisURL
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	queueClient, err := queue.NewClient(redisURL, log)
	if err != nil {
		log.Error("Failed to connect correction queue", "error", err)
		os.Exit(1)
	}
	corrections := queue.NewCorrectionQueue(queueClient)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	processor := worker.NewTurnProcessor(storage, llmService, corrections, log).
		WithMaxAttempts(cfg.MaxTurnAttempts)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(storage, log)
	mux.Handle("/health", healthHandler)

	turnHandler := handlers.NewTurnHandler(processor, log)
	mux.Handle("/v1/turn", turnHandler)

	campaignHandler := handlers.NewCampaignHandler(storage, log)
	mux.Handle("/v1/campaigns", campaignHandler)
	mux.Handle("/v1/campaigns/", campaignHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	if err := queueClient.Close(); err != nil {
		log.Error("Error closing correction queue", "error", err)
	}
	if err := storage.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
