// Package main measures the price edge of GMX position events against a reference price series.
// Writes: position_events.csv, merged_trades.csv, edge_summary.csv, EDGE_REPORT.md
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gmx-edge-lab/internal/cleaning"
	"gmx-edge-lab/internal/config"
	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/lookup"
	"gmx-edge-lab/internal/metrics"
	"gmx-edge-lab/internal/observability"
	"gmx-edge-lab/internal/pipeline"
	"gmx-edge-lab/internal/priceedge"
	"gmx-edge-lab/internal/reporting"
	"gmx-edge-lab/internal/storage"
	chstore "gmx-edge-lab/internal/storage/clickhouse"
	"gmx-edge-lab/internal/storage/migrations"
	pgstore "gmx-edge-lab/internal/storage/postgres"
)

func main() {
	flags := pflag.NewFlagSet("edge", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to YAML config file")
	flags.String("trades", "", "Trade artifact CSV with nested increase/decrease lists")
	flags.String("reference", "", "Reference price CSV (time, price); empty reads buckets from ClickHouse")
	flags.String("symbol", config.DefaultSymbol, "Bucket symbol used as reference when --reference is empty")
	flags.String("output-dir", config.DefaultEdgeOutputDir, "Output directory for generated files")
	flags.String("index-token", priceedge.DefaultIndexToken, "Index token symbol to analyze")
	flags.Int("window", domain.DefaultTimestampUncertainty, "Forward uncertainty window in seconds")
	flags.String("tokens-file", "", "YAML map of token address to symbol")
	flags.String("postgres-dsn", "", "PostgreSQL DSN for position events; empty disables")
	flags.String("clickhouse-dsn", "", "ClickHouse DSN for merged trades and buckets; empty disables")
	flags.String("run-id", "", "Re-summarize a stored run from ClickHouse instead of running the pipeline")
	flags.Bool("migrate", false, "Run migrations before writing")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file on exit")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	_ = flags.Parse(os.Args[1:])

	runID, _ := flags.GetString("run-id")

	cfg, err := loadConfig(*configPath, flags, runID != "")
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

	if runID != "" {
		err = summarizeRun(ctx, cfg, runID, logger)
	} else {
		err = run(ctx, cfg, logger)
	}
	if cfg.Metrics.Textfile != "" {
		if werr := observability.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("write metrics textfile", zap.Error(werr))
		}
	}
	if code := logging.ExitCode(logger, "edge pipeline failed", err); code != 0 {
		cancel()
		os.Exit(code)
	}
}

func loadConfig(path string, flags *pflag.FlagSet, storedRun bool) (*config.Config, error) {
	loader := config.NewLoader(path)
	bindings := map[string]string{
		"edge.trades_file":       "trades",
		"edge.reference_file":    "reference",
		"edge.output_dir":        "output-dir",
		"aggregate.symbol":       "symbol",
		"edge.index_token":       "index-token",
		"edge.window":            "window",
		"tokens_file":            "tokens-file",
		"storage.postgres_dsn":   "postgres-dsn",
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
	if storedRun {
		if cfg.Storage.ClickhouseDSN == "" {
			return nil, errors.New("clickhouse dsn is required with --run-id")
		}
		return cfg, nil
	}
	if cfg.Edge.TradesFile == "" {
		return nil, errors.New("trades file is required (--trades or edge.trades_file)")
	}
	if cfg.Edge.ReferenceFile == "" && cfg.Storage.ClickhouseDSN == "" {
		return nil, errors.New("reference file or clickhouse dsn is required")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	tokens, err := cfg.TokenRegistry()
	if err != nil {
		return err
	}
	cleaner := cleaning.NewCleaner(tokens,
		cleaning.WithScales(cfg.Scales()),
		cleaning.WithLogger(logger),
	)
	merger := priceedge.NewMerger(
		priceedge.WithIndexToken(cfg.Edge.IndexToken),
		priceedge.WithWindow(cfg.Edge.Window),
		priceedge.WithLogger(logger),
	)
	p := pipeline.NewEdgePipeline(cleaner, cfg.Edge.OutputDir).
		WithMerger(merger).
		WithLogger(logger)

	var (
		ch          *chstore.Conn
		eventStore  storage.PositionEventStore
		mergedStore storage.MergedTradeStore
	)
	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		if cfg.Storage.Migrate {
			ch, err = migrations.RunClickhouseMigrations(ctx, dsn)
		} else {
			ch, err = chstore.NewConn(ctx, dsn)
		}
		if err != nil {
			return err
		}
		defer ch.Close()
		mergedStore = chstore.NewMergedTradeStore(ch)
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.Storage.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return err
			}
		}
		eventStore = pgstore.NewPositionEventStore(pool)
	}
	p.WithStores(eventStore, mergedStore)

	reference, err := loadReference(ctx, cfg, ch, logger)
	if err != nil {
		return err
	}

	trades, err := os.Open(cfg.Edge.TradesFile)
	if err != nil {
		return fmt.Errorf("open trades: %w", err)
	}
	defer trades.Close()

	res, err := p.Run(ctx, trades, reference)
	if err != nil {
		return err
	}

	for _, f := range res.Files {
		logger.Info("wrote artifact", zap.String("path", f))
	}
	return nil
}

// loadReference reads the reference CSV, or the symbol's buckets from ClickHouse
// when no file is configured.
func loadReference(ctx context.Context, cfg *config.Config, ch *chstore.Conn, logger *zap.Logger) ([]domain.PricePoint, error) {
	if path := cfg.Edge.ReferenceFile; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open reference: %w", err)
		}
		defer f.Close()

		points, err := lookup.ReadReferencePrices(f)
		if err != nil {
			return nil, fmt.Errorf("read reference %s: %w", path, err)
		}
		logger.Info("loaded reference prices", zap.String("path", path), zap.Int("points", len(points)))
		return points, nil
	}

	buckets, err := chstore.NewBucketStore(ch).GetBySymbol(ctx, cfg.Aggregate.Symbol)
	if err != nil {
		return nil, fmt.Errorf("load %s buckets: %w", cfg.Aggregate.Symbol, err)
	}
	points := lookup.BucketsToPoints(buckets)
	logger.Info("loaded reference buckets",
		zap.String("symbol", cfg.Aggregate.Symbol),
		zap.Int("buckets", len(buckets)),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// summarizeRun recomputes edge statistics for a run stored in ClickHouse.
func summarizeRun(ctx context.Context, cfg *config.Config, runID string, logger *zap.Logger) error {
	ch, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return err
	}
	defer ch.Close()

	summaries, err := metrics.NewAggregator(chstore.NewMergedTradeStore(ch)).ComputeForRun(ctx, runID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Edge.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.Edge.OutputDir, reporting.EdgeSummaryFile)
	err = reporting.WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, reporting.RenderSummaryCSV(summaries))
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("summarized stored run",
		zap.String("run_id", runID),
		zap.Int("groups", len(summaries)),
		zap.String("path", path),
	)
	return nil
}
