// Package main aggregates raw exchange trade shards into fixed-width price buckets.
// Writes: buckets.csv, optionally the price_buckets ClickHouse table
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gmx-edge-lab/internal/config"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/normalization"
	"gmx-edge-lab/internal/observability"
	"gmx-edge-lab/internal/reporting"
	chstore "gmx-edge-lab/internal/storage/clickhouse"
	"gmx-edge-lab/internal/storage/migrations"
)

func main() {
	flags := pflag.NewFlagSet("aggregate", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to YAML config file")
	flags.String("input-dir", "", "Directory of trade shard CSV files")
	flags.String("output", config.DefaultBucketsOutput, "Output bucket CSV path")
	flags.String("symbol", config.DefaultSymbol, "Symbol the buckets are stored under")
	flags.Duration("width", 0, "Bucket width (default 5s)")
	flags.String("clickhouse-dsn", "", "ClickHouse DSN; empty disables persistence")
	flags.Bool("migrate", false, "Run ClickHouse migrations before writing")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file on exit")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	_ = flags.Parse(os.Args[1:])

	cfg, err := loadConfig(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = run(ctx, cfg, logger)
	if cfg.Metrics.Textfile != "" {
		if werr := observability.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("write metrics textfile", zap.Error(werr))
		}
	}
	if code := logging.ExitCode(logger, "aggregate failed", err); code != 0 {
		cancel()
		os.Exit(code)
	}
}

func loadConfig(path string, flags *pflag.FlagSet) (*config.Config, error) {
	loader := config.NewLoader(path)
	bindings := map[string]string{
		"aggregate.input_dir":    "input-dir",
		"aggregate.output":       "output",
		"aggregate.symbol":       "symbol",
		"aggregate.width":        "width",
		"storage.clickhouse_dsn": "clickhouse-dsn",
		"storage.migrate":        "migrate",
		"metrics.textfile":       "metrics-textfile",
		"log.level":              "log-level",
	}
	for key, name := range bindings {
		if err := loader.BindFlag(key, flags.Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Aggregate.InputDir == "" {
		return nil, errors.New("input dir is required (--input-dir or aggregate.input_dir)")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opts := []normalization.RunnerOption{normalization.WithLogger(logger)}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := openClickhouse(ctx, dsn, cfg.Storage.Migrate)
		if err != nil {
			return err
		}
		defer conn.Close()
		opts = append(opts, normalization.WithBucketStore(chstore.NewBucketStore(conn), cfg.Aggregate.Symbol))
	}

	runner := normalization.NewRunner(cfg.Aggregate.Width, opts...)
	buckets, err := runner.AggregateDir(ctx, cfg.Aggregate.InputDir)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", cfg.Aggregate.InputDir, err)
	}

	if err := reporting.WriteFile(cfg.Aggregate.Output, func(w io.Writer) error {
		return reporting.WriteBuckets(w, buckets)
	}); err != nil {
		return err
	}

	logger.Info("aggregation complete",
		zap.Int("buckets", len(buckets)),
		zap.String("output", cfg.Aggregate.Output),
	)
	return nil
}

func openClickhouse(ctx context.Context, dsn string, migrate bool) (*chstore.Conn, error) {
	if migrate {
		return migrations.RunClickhouseMigrations(ctx, dsn)
	}
	return chstore.NewConn(ctx, dsn)
}
