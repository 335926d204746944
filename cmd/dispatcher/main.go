package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loanflow-backend/internal/config"
	"loanflow-backend/internal/dispatch"
	"loanflow-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting dispatcher...", "addr", cfg.DispatcherAddr())

	dispatcher := dispatch.New(dispatch.NewHub())
	srv := &http.Server{
		Addr:    cfg.DispatcherAddr(),
		Handler: dispatcher.Router(),
	}

	go func() {
		logger.Info("Dispatcher listening", "addr", cfg.DispatcherAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Dispatcher server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down dispatcher...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Dispatcher shutdown failed", "error", err)
	}
}
