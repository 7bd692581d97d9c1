package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adithya/forensiq/internal/cache"
	"github.com/adithya/forensiq/internal/config"
	"github.com/adithya/forensiq/internal/detect"
	"github.com/adithya/forensiq/internal/graph"
	"github.com/adithya/forensiq/internal/logging"
	"github.com/adithya/forensiq/internal/repository"
	"github.com/adithya/forensiq/internal/server"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	store, err := cache.NewPebbleStore(cfg.Cache.Dir)
	if err != nil {
		logger.Error("failed to open session store", "error", err, "dir", cfg.Cache.Dir)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing session store failed", "error", err)
		}
	}()

	graphClient := buildGraphClient(ctx, logger, cfg)
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	analyzer := detect.NewAnalyzer(logger, detect.WithLocation(cfg.Analysis.Location()))

	handlerOpts := []server.HandlerOption{}
	var metrics *server.Metrics
	if cfg.HTTP.MetricsEnabled {
		metrics = server.NewMetrics()
		handlerOpts = append(handlerOpts, server.WithMetrics(metrics))
	}
	if graphClient != nil {
		handlerOpts = append(handlerOpts, server.WithExporter(repository.New(graphClient)))
	}
	apiHandlers := server.NewAPIHandlers(logger, analyzer, store, cfg.HTTP.MaxUploadBytes, handlerOpts...)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.GraphHealthService{Client: graphClient},
		API:              apiHandlers,
		Metrics:          metrics,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildGraphClient connects only when a graph URI is configured; export is
// optional and the server runs without it.
func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) graph.Client {
	if cfg.Graph.URI == "" {
		return nil
	}

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		logger.Error("failed to create graph client, export disabled", "error", err)
		return nil
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
