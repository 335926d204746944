package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"loanflow-backend/internal/config"
	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
	"loanflow-backend/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	opFlag := flag.String("op", "", "Operation topic to serve (RETURN or RENEW)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	op, err := domain.ParseOp(*opFlag)
	if err != nil {
		log.Fatalf("Invalid -op flag: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting worker...", "topic", string(op),
		"subscribe", cfg.SubscribeURL(string(op)), "apply", cfg.ApplyURL())

	w := worker.New(op,
		cfg.SubscribeURL(string(op)),
		cfg.ApplyURL(),
		time.Duration(cfg.Worker.ForwardTimeoutMs)*time.Millisecond,
		time.Duration(cfg.Worker.ReconnectBackoffMs)*time.Millisecond,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Worker stopped", "error", err)
	}
	logger.Info("Worker shut down", "topic", string(op))
}
