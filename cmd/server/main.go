package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/treepaper/paperedit/internal/api"
	"github.com/treepaper/paperedit/internal/config"
	"github.com/treepaper/paperedit/internal/pipeline"
	"github.com/treepaper/paperedit/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	client := pipeline.NewClient(cfg.PipelineURL, cfg.PipelineAPIKey)

	// Initialize sessions.
	sessions := session.NewManager(log, session.Options{
		TTL:             cfg.SessionTTL,
		FinalStep:       cfg.FinalStep,
		SuggestKeywords: cfg.SuggestKeywords,
		TreeKeywords:    cfg.TreeKeywords,
	})
	sessions.StartCleanup(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(sessions, client, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting paperedit", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
