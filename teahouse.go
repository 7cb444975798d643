package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"teahouse/pkg/app"
	"teahouse/pkg/logging"
)

// main exposes a root-level entry point so operators can simply run `go run teahouse.go`.
func main() {
	logger, err := logging.New("teahouse", logging.FormatConsole)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args[1:], logger); err != nil {
		logger.Fatal("application stopped with error", zap.Error(err))
	}
}
