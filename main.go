package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"riskscreen/config"
	"riskscreen/db"
	rhttp "riskscreen/http"
	"riskscreen/logging"
	"riskscreen/ml"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "riskscreen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join("..", "config.yaml")
	}

	// 1. Load config
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// 2. Load the model; a missing or invalid artifact is fatal
	artifact, err := ml.LoadArtifact(cfg.Model.Path)
	if err != nil {
		logger.Error("failed to load model artifact", zap.String("path", cfg.Model.Path), zap.Error(err))
		return err
	}
	handle := ml.NewModelHandle(ml.NewPredictor(artifact, cfg.BuilderOptions()...))
	logger.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.String("type", artifact.ModelType()),
		zap.Int("columns", len(artifact.Columns)),
		zap.String("digest", artifact.Digest),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, err := ml.NewResultCache(cfg.Model.CacheSize)
	if err != nil {
		return fmt.Errorf("create result cache: %w", err)
	}

	if cfg.Model.Watch {
		watcher, err := ml.NewArtifactWatcher(cfg.Model.Path, handle, logger, cfg.BuilderOptions()...)
		if err != nil {
			return fmt.Errorf("create model watcher: %w", err)
		}
		// results are keyed by digest; drop entries of the replaced model
		watcher.OnReload(func(*ml.Predictor) { cache.Purge() })
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch model: %w", err)
		}
		defer watcher.Stop()
	}

	feed := rhttp.NewFeed(logger)
	go feed.Run(ctx)

	opts := []rhttp.Option{
		rhttp.WithCache(cache),
		rhttp.WithFeed(feed),
		rhttp.WithLogger(logger),
	}

	// 3. Initialize prediction history
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		opts = append(opts, rhttp.WithHistory(store))
		logger.Info("prediction history enabled", zap.String("path", cfg.Database.Path))
	}

	// 4. Start HTTP server
	server := rhttp.NewServer(rhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, rhttp.NewService(handle, opts...))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	return nil
}
