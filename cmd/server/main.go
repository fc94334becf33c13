package main // entry point of the movie ticket booking API

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/app"
	"github.com/iliyamo/movietix/internal/config"
	"github.com/iliyamo/movietix/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{
		Service: "movietix",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		logging.Sync(log)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		logging.Sync(log)
		os.Exit(1)
	}
	log.Info("server stopped")
}
