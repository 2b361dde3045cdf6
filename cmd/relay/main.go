package main

import (
	"context"
	"log"

	"github.com/hsqsh/maisHack25/internal/bootstrap"
	"github.com/hsqsh/maisHack25/internal/config"
	"github.com/hsqsh/maisHack25/internal/server"
	"github.com/hsqsh/maisHack25/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer("object-finder-relay")
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 3. Initialize Server
	srv := server.New(cfg, container)

	// 4. Run Server
	log.Fatal(srv.Run())
}
