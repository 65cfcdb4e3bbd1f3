package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tradewire/internal/app"
	twcfg "tradewire/internal/config"
	"tradewire/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional convenience for local runs; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfgPath := os.Getenv("TRADEWIRE_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := twcfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logger.SetLevel(cfg.Log.Level)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("initializing app failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}
