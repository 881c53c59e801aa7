package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"GridCast/internal/di"
	"GridCast/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", "train", "run mode: train, serve or predict")
	flag.Parse()

	// Load .env if present, then config with env overrides
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s mode=%s source=%s store=%s",
		cfg.Environment, *mode, cfg.Data.Source, cfg.ArtifactStore.Type)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(*mode); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
