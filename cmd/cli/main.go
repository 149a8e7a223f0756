package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/credlink/credlink/internal/client/cli"
	"github.com/credlink/credlink/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	app.Run(ctx)
}
