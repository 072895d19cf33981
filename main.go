// Command shorturls serves statistics for the w.wiki URL shortener: daily
// per-domain totals aggregated from public dumps, read through a Redis
// cache-aside layer with the snapshot directory as the source of truth.
package main

import (
	"fmt"
	"os"

	"github.com/wikimedia/labs-tools-shorturls/internal/api"
	"github.com/wikimedia/labs-tools-shorturls/internal/cache"
	"github.com/wikimedia/labs-tools-shorturls/internal/config"
	"github.com/wikimedia/labs-tools-shorturls/internal/handler"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
	"github.com/wikimedia/labs-tools-shorturls/internal/profiling"
	"github.com/wikimedia/labs-tools-shorturls/internal/snapshot"
	"github.com/wikimedia/labs-tools-shorturls/internal/stats"
)

func main() {
	os.Exit(run())
}

func run() int {
	profiling.StartPprofServer()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	return runServer(cfg, log)
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	configPath := config.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// createLogger creates a logger instance from configuration.
func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

// connectCache attempts the Redis connection. The cache is best-effort, so
// a failed connection downgrades the service to uncached disk reads instead
// of refusing to start.
func connectCache(cfg *config.Config, log logger.Logger) cache.Cache {
	client, err := cache.NewClient(cache.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, serving without cache",
			logger.String("address", cfg.Redis.Address),
			logger.Error(err),
		)
		return nil
	}

	log.Info("Redis connected",
		logger.String("address", cfg.Redis.Address),
	)
	return cache.NewRedisCache(client)
}

// runServer creates all dependencies and starts the HTTP server.
func runServer(cfg *config.Config, log logger.Logger) int {
	m := metrics.New(nil)

	store := snapshot.NewStore(cfg.Paths.SnapshotDir, log, m)
	reader := stats.NewReader(store, connectCache(cfg, log), cfg.Redis.CacheTTL, log, m)
	builder := stats.NewBuilder(store, reader)

	statsHandler := handler.NewStatsHandler(reader, builder, log)
	server := api.NewServer(statsHandler, cfg, log)

	log.Info("Shorturls stats server starting",
		logger.Int("port", cfg.Service.Port),
		logger.String("snapshot_dir", cfg.Paths.SnapshotDir),
	)

	if err := server.Run(); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Shorturls stats server exited cleanly")
	return 0
}
