// Package main pages GMX subgraph collections and writes them as CSV artifacts.
// Writes: orders.csv, swaps.csv
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gmx-edge-lab/internal/config"
	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/graph"
	"gmx-edge-lab/internal/ingestion"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/observability"
	"gmx-edge-lab/internal/reporting"
	"gmx-edge-lab/internal/storage"
	"gmx-edge-lab/internal/storage/memory"
	"gmx-edge-lab/internal/storage/migrations"
	pgstore "gmx-edge-lab/internal/storage/postgres"
	redisstore "gmx-edge-lab/internal/storage/redis"
)

func main() {
	flags := pflag.NewFlagSet("fetch", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to YAML config file")
	flags.String("endpoint", "", "Subgraph GraphQL endpoint")
	flags.StringSlice("collections", nil, "Collections to fetch: orders, swaps")
	flags.Int("page-size", 0, "Records per page (max 1000)")
	flags.Int("max-pages", 0, "Maximum pages per collection")
	flags.String("output-dir", config.DefaultFetchOutputDir, "Output directory for generated files")
	flags.String("postgres-dsn", "", "PostgreSQL DSN for raw records and cursors; empty keeps them in memory")
	flags.String("redis-url", "", "Redis URL for shared cursors; overrides PostgreSQL cursors")
	flags.Bool("migrate", false, "Run PostgreSQL migrations before fetching")
	flags.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
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

	stopMetrics := observability.StartServer(cfg.Metrics.Addr, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	cancel()
	stopMetrics()

	if cfg.Metrics.Textfile != "" {
		if werr := observability.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("write metrics textfile", zap.Error(werr))
		}
	}
	if code := logging.ExitCode(logger, "fetch failed", err); code != 0 {
		os.Exit(code)
	}
}

func loadConfig(path string, flags *pflag.FlagSet) (*config.Config, error) {
	loader := config.NewLoader(path)
	bindings := map[string]string{
		"fetch.endpoint":       "endpoint",
		"fetch.collections":    "collections",
		"fetch.page_size":      "page-size",
		"fetch.max_pages":      "max-pages",
		"fetch.output_dir":     "output-dir",
		"storage.postgres_dsn": "postgres-dsn",
		"storage.redis_url":    "redis-url",
		"storage.migrate":      "migrate",
		"metrics.addr":         "metrics-addr",
		"metrics.textfile":     "metrics-textfile",
		"log.level":            "log-level",
	}
	for key, name := range bindings {
		if err := loader.BindFlag(key, flags.Lookup(name)); err != nil {
			return nil, err
		}
	}
	return loader.Load()
}

// stores holds the record and cursor backends selected by configuration.
type stores struct {
	records storage.GraphRecordStore
	cursors storage.CursorStore
	close   []func()
}

func (s *stores) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{
		records: memory.NewGraphRecordStore(),
		cursors: memory.NewCursorStore(),
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		s.close = append(s.close, pool.Close)
		if cfg.Storage.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.records = pgstore.NewGraphRecordStore(pool)
		s.cursors = pgstore.NewCursorStore(pool)
		logger.Info("using postgres storage")
	}

	if url := cfg.Storage.RedisURL; url != "" {
		client, err := redisstore.NewClient(ctx, url)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.close = append(s.close, func() { _ = client.Close() })
		s.cursors = redisstore.NewCursorStore(client, cfg.Storage.RedisPrefix)
		logger.Info("using redis cursors")
	}

	return s, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	client := graph.NewClient(cfg.Fetch.Endpoint,
		graph.WithTimeout(cfg.Fetch.Timeout),
		graph.WithMaxRetries(cfg.Fetch.MaxRetries),
		graph.WithLogger(logger),
	)
	fetcher := ingestion.NewFetcher(ingestion.FetcherOptions{
		Source:   client,
		Records:  st.records,
		Cursors:  st.cursors,
		PageSize: cfg.Fetch.PageSize,
		MaxPages: cfg.Fetch.MaxPages,
		Logger:   logger,
	})

	if err := os.MkdirAll(cfg.Fetch.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, name := range cfg.Fetch.Collections {
		coll, err := graph.CollectionByName(name)
		if err != nil {
			return err
		}

		res, err := fetcher.Fetch(ctx, coll)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// The artifact covers everything stored so far, not only this run's pages.
		records, err := st.records.GetByCollection(ctx, coll.Name)
		if err != nil {
			return fmt.Errorf("load %s records: %w", coll.Name, err)
		}

		path, err := writeCollection(cfg.Fetch.OutputDir, coll.Name, records)
		if err != nil {
			return err
		}
		logger.Info("wrote artifact",
			zap.String("collection", coll.Name),
			zap.String("path", path),
			zap.Int("fetched", len(res.Records)),
			zap.Int("records", len(records)),
			zap.Bool("truncated", res.Truncated),
		)
	}

	return nil
}

func writeCollection(dir, name string, records []*domain.GraphRecord) (string, error) {
	var (
		file  string
		write func(io.Writer) error
	)
	switch name {
	case domain.CollectionOrders:
		orders, err := graph.DecodeOrders(records)
		if err != nil {
			return "", err
		}
		file = reporting.OrdersFile
		write = func(w io.Writer) error { return reporting.WriteOrders(w, orders) }
	case domain.CollectionSwaps:
		swaps, err := graph.DecodeSwaps(records)
		if err != nil {
			return "", err
		}
		file = reporting.SwapsFile
		write = func(w io.Writer) error { return reporting.WriteSwaps(w, swaps) }
	default:
		return "", fmt.Errorf("unknown collection %q", name)
	}

	path := filepath.Join(dir, file)
	return path, reporting.WriteFile(path, write)
}
