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

func main() {
	logger, err := logging.New("hello", logging.FormatConsole)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunHello(ctx, os.Args[1:], logger); err != nil {
		logger.Fatal("hello server stopped with error", zap.Error(err))
	}
}
