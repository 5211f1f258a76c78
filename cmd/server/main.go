package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"terminology/internal/app"
	"terminology/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
