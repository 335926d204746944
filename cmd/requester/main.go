package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"loanflow-backend/internal/config"
	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
	"loanflow-backend/internal/requester"
)

var json = jsoniter.ConfigFastest

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	file := flag.String("file", "", "Path to the request file (one JSON object per line)")
	endpoint := flag.String("endpoint", "", "Dispatcher request endpoint override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *file == "" {
		log.Fatal("-file is required")
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	target := cfg.RequestURL()
	if *endpoint != "" {
		target = *endpoint
	}
	logger.Info("Sending requests", "endpoint", target, "file", *file)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open request file: %v", err)
	}
	defer f.Close()

	sender := requester.NewSender(target,
		time.Duration(cfg.Requester.TimeoutMs)*time.Millisecond,
		cfg.Requester.MaxAttempts,
	)
	interval := time.Duration(cfg.Requester.IntervalMs) * time.Millisecond

	var total, ok, fail int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		total++

		var req domain.Request
		if err := json.UnmarshalFromString(line, &req); err != nil {
			fail++
			logger.Error("Invalid request line", "line", total, "error", err)
			continue
		}
		if err := requester.Normalize(&req, time.Now); err != nil {
			fail++
			logger.Error("Request rejected before send", "line", total, "error", err)
			continue
		}

		reply, err := sender.Send(context.Background(), req)
		if err != nil {
			fail++
			logger.Warn("Request failed", "request_id", req.RequestID, "error", err)
		} else {
			ok++
			logger.Info("Request acknowledged", "op", string(req.Op),
				"request_id", req.RequestID, "ok", reply.OK, "msg", reply.Msg)
		}

		// Fixed pacing between independent requests, not between
		// retries of the same one.
		time.Sleep(interval)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Failed reading request file", "error", err)
	}

	logger.Info("Done", "total", total, "ok", ok, "fail", fail)
}
