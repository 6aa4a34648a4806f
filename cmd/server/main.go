package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gwi.com/filesearch-playground/internal/api"
	"gwi.com/filesearch-playground/internal/auth"
	"gwi.com/filesearch-playground/internal/config"
	"gwi.com/filesearch-playground/internal/core"
	"gwi.com/filesearch-playground/internal/logger"
	"gwi.com/filesearch-playground/internal/metrics"
	"gwi.com/filesearch-playground/internal/store"
)

func main() {
	// Command line flags for one-shot ingestion
	ingestPath := flag.String("ingest", "", "Ingest the file at this path and exit")
	storeName := flag.String("store", "", "File search store to index the ingested file into (with -ingest)")
	flag.Parse()

	// Load configuration
	cfg, dotenvLoaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if !dotenvLoaded {
		log.Debug("No .env file found, using process environment only")
	}

	m := metrics.New()
	credentials := auth.NewResolver(cfg.GeminiAPIKey)
	backends := store.NewGeminiFactory(store.GeminiConfig{
		BaseURL:      cfg.GeminiBaseURL,
		FileListPage: cfg.FileListPageLength,
		Logger:       log,
	})

	ingestService := core.NewIngestionService(backends, core.IngestOptions{
		StagingDir:   cfg.StagingDir,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxIngestWait,
	}, log, m)

	// Handle one-shot ingestion if the flag is set
	if *ingestPath != "" {
		code := runIngest(log, credentials, ingestService, *ingestPath, *storeName)
		log.Sync()
		os.Exit(code)
	}

	services := api.Services{
		Stores: core.NewStoreService(backends, log, m),
		Files:  core.NewFileService(backends, log, m),
		Ingest: ingestService,
		Chat: core.NewChatService(backends, core.ChatOptions{
			Model:             cfg.ChatModel,
			SystemInstruction: cfg.ChatSystemInstruction,
		}, log, m),
	}
	apiHandler := api.NewAPIHandler(credentials, services, cfg.MaxUploadBytes, log)
	router := api.NewRouter(apiHandler, m.Handler(), log)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Minute, // uploads may be large
		// Indexing waits are bounded by INGEST_MAX_WAIT
		WriteTimeout: cfg.MaxIngestWait + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting server. Press Ctrl+C to quit.",
			zap.String("addr", serverAddr),
			zap.Bool("fallback_credential", credentials.HasFallback()),
			zap.String("chat_model", cfg.ChatModel))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exiting gracefully")
}

// runIngest pushes one local file through the ingestion pipeline with the
// server's own credential and prints the result. It returns the exit code.
func runIngest(log *zap.Logger, credentials *auth.Resolver, svc *core.IngestionService, path, storeName string) int {
	credential, err := credentials.Resolve("")
	if err != nil {
		log.Error("GEMINI_API_KEY is required for -ingest")
		return 1
	}

	f, err := os.Open(path)
	if err != nil {
		log.Error("Failed to open file to ingest", zap.String("path", path), zap.Error(err))
		return 1
	}
	defer f.Close()

	// Ctrl+C aborts the indexing wait; the staged copy is still cleaned up
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting ingestion", zap.String("path", path), zap.String("store", storeName))
	result, err := svc.Ingest(ctx, credential, core.IngestRequest{
		Content:   f,
		Filename:  filepath.Base(path),
		StoreName: storeName,
	})
	if err != nil {
		log.Error("Ingestion failed", zap.Error(err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Error("Failed to print result", zap.Error(err))
		return 1
	}
	return 0
}
