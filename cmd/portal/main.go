package main

import (
	"context"
	"log"

	"github.com/talenorix/candidate-portal/internal/portalcli"
	"github.com/talenorix/candidate-portal/internal/portalcli/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := portalcli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)
}
