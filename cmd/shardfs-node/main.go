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

	"github.com/rvaleri/shardfs/internal/logger"
	"github.com/rvaleri/shardfs/internal/node"
	"github.com/rvaleri/shardfs/internal/shard"
	"github.com/rvaleri/shardfs/internal/store"
	"github.com/rvaleri/shardfs/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (YAML)")
	nodeName := flag.String("node", "", "Name of the configured node to run (e.g. S2)")
	flag.Parse()

	if *nodeName == "" {
		log.Fatal("Missing required --node flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	nc, err := cfg.Node(*nodeName)
	if err != nil {
		log.Fatalf("Unknown node: %v", err)
	}

	fmt.Printf("shardfs node %s\n", nc.Name)

	st, err := store.New(nc.Root, nc.Extension)
	if err != nil {
		log.Fatalf("Failed to open storage root: %v", err)
	}

	sh := shard.Shard{Name: nc.Name, Ext: nc.Extension, Addr: nc.Address, Archivable: nc.Archive}
	srv := node.New(nc.Listen, sh, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Node %s is running. Press Ctrl+C to stop.", nc.Name)
	select {
	case err := <-done:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	case <-sigChan:
		logger.Info("Shutting down node %s...", nc.Name)
		cancel()
		select {
		case <-done:
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Warn("Shutdown timed out after %v", cfg.Server.ShutdownTimeout)
		}
	}
}
