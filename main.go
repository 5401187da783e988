package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mesh-router/internal/config"
	"mesh-router/internal/engine"
	"mesh-router/internal/logging"
	"mesh-router/internal/rules"
	"mesh-router/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	defer logging.MustSync()

	store := engine.NewStore()

	// Optional bootstrap rule set; the control API can replace it later.
	if cfg.RulesPath != "" {
		set, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			log.Fatalf("Failed to load rule set from %s: %v", cfg.RulesPath, err)
		}
		snap := store.Swap(set)
		logging.Info("rule set loaded",
			logging.String("path", cfg.RulesPath),
			logging.Int("rules", snap.RuleCount()),
		)
	}

	server.InitMetrics()

	srv := server.New(cfg, store)
	srv.Start()
	logging.Info("control API listening", logging.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
