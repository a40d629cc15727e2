package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rvaleri/shardfs/internal/gateway"
	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/store"
	"github.com/rvaleri/shardfs/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (YAML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	fmt.Println("shardfs gateway")

	table, err := cfg.ShardTable()
	if err != nil {
		log.Fatalf("Failed to build shard table: %v", err)
	}

	st, err := store.New(cfg.Gateway.Root, cfg.Gateway.Extension)
	if err != nil {
		log.Fatalf("Failed to open storage root: %v", err)
	}

	srv := gateway.New(cfg.Gateway.Listen, table, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Gateway is running. Press Ctrl+C to stop.")
	select {
	case err := <-done:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	case <-sigChan:
		logger.Info("Shutting down gateway...")
		cancel()
		select {
		case <-done:
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Warn("Shutdown timed out after %v", cfg.Server.ShutdownTimeout)
		}
	}
}
