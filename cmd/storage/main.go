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
	"loanflow-backend/internal/engine"
	"loanflow-backend/internal/jobs"
	"loanflow-backend/internal/logger"
	"loanflow-backend/internal/repository/sqlite"
	"loanflow-backend/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting storage engine...", "addr", cfg.StorageAddr(), "db_path", cfg.Storage.DBPath)

	db, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Error("Failed to open ledger store", "error", err)
		log.Fatalf("Failed to open ledger store: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping ledger store", "error", err)
		log.Fatalf("Failed to ping ledger store: %v", err)
	}
	if err := sqlite.EnsureSchema(context.Background(), db); err != nil {
		logger.Error("Failed to ensure ledger schema", "error", err)
		log.Fatalf("Failed to ensure ledger schema: %v", err)
	}
	logger.Info("Ledger store ready")

	eng := engine.New(db, sqlite.NewLedger)
	srv := &http.Server{
		Addr:    cfg.StorageAddr(),
		Handler: engine.NewServer(eng).Router(),
	}

	runner := jobs.NewRunner(sqlite.NewLedger(db))
	sched := scheduler.NewScheduler(runner, cfg.Scheduler)
	sched.Start()
	defer sched.Stop()

	go func() {
		logger.Info("Storage engine listening", "addr", cfg.StorageAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Storage engine server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down storage engine...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Storage engine shutdown failed", "error", err)
	}
}
