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

// main acts as a thin adapter so process managers can keep using cmd/server.
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
