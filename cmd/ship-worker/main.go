package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ShipSight/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	g, closeFn, err := newIngestor(cfg, defaultWorkerFactories())
	if err != nil {
		panic(err)
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if swaggerPath := os.Getenv("swaggerPath"); swaggerPath != "" {
		go func() {
			err := runWorkerHTTPServer(ctx, workerHTTPOpts{
				httpAddr:    cfg.ShipSight.WorkerHTTPAddr,
				swaggerPath: swaggerPath,
				ingestor:    g,
				cfg:         cfg,
			})
			if err != nil && err != context.Canceled && err != http.ErrServerClosed {
				slog.Error("worker http server stopped", "error", err.Error())
			}
		}()
	}

	slog.Info("ship-worker started", "source_mode", cfg.ShipSight.SourceMode)
	if err := g.Run(ctx); err != nil && err != context.Canceled {
		panic(err)
	}
}
