// Command gearguard-seed replaces the contents of a store with the demo
// fleet: five teams, fifteen equipment items and nine requests.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"gearguard-backend/config"
	"gearguard-backend/internal/logging"
	"gearguard-backend/internal/store"
)

func main() {
	target := flag.String("target", "primary", "store to seed: primary or fallback")
	keep := flag.Bool("keep", false, "insert without clearing existing records")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var s store.Store
	switch *target {
	case "primary":
		primary, err := store.OpenPrimary(ctx, &cfg.Primary, logger)
		if err != nil {
			logger.Fatal("failed to open primary store", zap.Error(err))
		}
		if primary == nil {
			logger.Fatal("primary driver is none; use -target fallback")
		}
		defer primary.Close(context.Background())
		s = primary.Store
	case "fallback":
		s = store.NewFileStore(cfg.Fallback.Path)
	default:
		logger.Fatal("unknown target", zap.String("target", *target))
	}

	if !*keep {
		if err := store.Clear(ctx, s); err != nil {
			logger.Fatal("clearing store failed", zap.String("backend", s.Backend()), zap.Error(err))
		}
		logger.Info("cleared existing data", zap.String("backend", s.Backend()))
	}

	summary, err := store.Seed(ctx, s)
	if err != nil {
		logger.Fatal("seeding failed", zap.String("backend", s.Backend()), zap.Error(err))
	}
	logger.Info("seed complete",
		zap.String("backend", s.Backend()),
		zap.Int("teams", summary.Teams),
		zap.Int("equipment", summary.Equipment),
		zap.Int("requests", summary.Requests),
	)
}
