// Command extract is the batch job that turns raw shorturl dumps into
// snapshot artifacts. It is idempotent: dumps that already have a snapshot
// are skipped, so the cron job can re-run over the full dump directory.
package main

import (
	"fmt"
	"os"

	"github.com/wikimedia/labs-tools-shorturls/internal/config"
	"github.com/wikimedia/labs-tools-shorturls/internal/dump"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/metrics"
	"github.com/wikimedia/labs-tools-shorturls/internal/snapshot"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	log = log.With(logger.String("service", "shorturls-extract"))

	if err := extract(cfg, log); err != nil {
		log.Error("Extract failed", logger.Error(err))
		return 1
	}

	log.Info("Extract finished")
	return 0
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

// extract aggregates every dump that does not have a snapshot yet. A dump
// that cannot be read or decompressed aborts the job; producing an empty
// snapshot for it would silently corrupt the time series.
func extract(cfg *config.Config, log logger.Logger) error {
	m := metrics.New(nil)
	locator := dump.NewLocator(cfg.Paths.DumpDir)
	aggregator := dump.NewAggregator(log, m)
	store := snapshot.NewStore(cfg.Paths.SnapshotDir, log, m)

	dumps, err := locator.List()
	if err != nil {
		return err
	}

	log.Info("Found dumps",
		logger.Int("count", len(dumps)),
		logger.String("dump_dir", cfg.Paths.DumpDir),
	)

	for _, d := range dumps {
		if store.Exists(d) {
			log.Debug("Snapshot exists, skipping dump",
				logger.String("dump", d.Name),
			)
			continue
		}

		agg, err := aggregator.Aggregate(d)
		if err != nil {
			return fmt.Errorf("aggregate %s: %w", d.Name, err)
		}

		if err := store.Write(d, agg); err != nil {
			return fmt.Errorf("write snapshot for %s: %w", d.Name, err)
		}
	}

	return nil
}
