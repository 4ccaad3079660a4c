package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"purchase_worker/config"
	"purchase_worker/internal/bootstrap"
	"purchase_worker/pkg/logger"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "purchase-worker",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "all", "Run mode: api, worker, all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "purchase-worker",
		Pretty:  cfg.IsDevelopment(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mode); err != nil {
		logger.Error("Exited with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, mode string) error {
	switch mode {
	case "api", "worker", "all":
	default:
		return errors.New("unknown mode: " + mode)
	}

	deps, cleanup, err := bootstrap.NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)

	if mode == "worker" || mode == "all" {
		w, err := bootstrap.NewWorker(deps)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	if mode == "api" || mode == "all" {
		app := bootstrap.NewAPI(deps)
		g.Go(func() error { return serveAPI(gctx, app, cfg.Port) })
	}

	return g.Wait()
}

func serveAPI(ctx context.Context, app *fiber.App, port string) error {
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + port
		logger.Info("Starting API server on %s", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("Error shutting down: %v", err)
		return err
	}
	logger.Info("API server shut down gracefully")
	return nil
}
