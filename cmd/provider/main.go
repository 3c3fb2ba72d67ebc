package main

import (
	"context"
	"log"

	"user-contract-service/cmd/provider/app"
	"user-contract-service/cmd/provider/server"
)

func main() {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("failed to start provider: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("provider exited with error: %v", err)
	}
}
