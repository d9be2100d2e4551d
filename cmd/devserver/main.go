package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/talenorix/candidate-portal/internal/devserver"
	"github.com/talenorix/candidate-portal/internal/devserver/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	store, err := devserver.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	srv := devserver.NewServer(store, cfg, devserver.NewDefaultLogger())
	if err := srv.ListenAndServe(ctx, cfg.EndpointAddr); err != nil {
		log.Fatalf("%v", err)
	}
}
