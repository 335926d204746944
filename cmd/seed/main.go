package main

import (
	"context"
	"flag"
	"log"
	"os"

	"loanflow-backend/internal/config"
	"loanflow-backend/internal/logger"
	"loanflow-backend/internal/repository/sqlite"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	reset := flag.Bool("reset", false, "Delete the store file before seeding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Seeding ledger store", "db_path", cfg.Storage.DBPath, "reset", *reset)

	if *reset {
		if err := os.Remove(cfg.Storage.DBPath); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove existing store: %v", err)
		}
	}

	db, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open ledger store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := sqlite.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	opts := sqlite.DefaultSeedOptions()
	if err := sqlite.Seed(ctx, db, opts); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	logger.Info("Seed complete", "books", opts.Books,
		"active_loans", opts.LoansSite1+opts.LoansSite2)
}
