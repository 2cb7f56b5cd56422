package http_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/guild/internal/compression"
	httpserver "github.com/fyrsmithlabs/guild/internal/http"
	"github.com/fyrsmithlabs/guild/internal/logging"
	"github.com/fyrsmithlabs/guild/internal/reference"
	"github.com/fyrsmithlabs/guild/internal/secrets"
)

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	engine, err := compression.NewEngine()
	if err != nil {
		panic(err)
	}

	scrubber, err := secrets.New(nil)
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	registry := reference.Parse("### AG001: Agent Mandate\n```yaml\nagents:\n  reviewers: 2\n```\n")

	cfg := &httpserver.Config{
		Host: "127.0.0.1",
		Port: 9191,
		Mode: compression.ModeInstall,
	}

	server, err := httpserver.NewServer(engine, scrubber, logger, cfg, httpserver.WithRegistry(registry))
	if err != nil {
		panic(err)
	}

	go func() {
		if err := server.Start(); err != nil {
			fmt.Println("server error:", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		fmt.Println("shutdown error:", err)
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
