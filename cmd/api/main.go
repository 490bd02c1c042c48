package main

import (
	"context"
	"log"

	"pait-backend/internal/bootstrap"
	"pait-backend/internal/shared/config"
	"pait-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go app.OrchestrationService.RunSealSweeper(sweepCtx, cfg.SealSweepInterval)

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
