package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"gmx-edge-lab/internal/cleaning"
	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/graph"
	"gmx-edge-lab/internal/priceedge"
)

// Default values for optional configuration fields.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultSymbol          = "ETHUSDT"
	DefaultBucketsOutput   = "buckets.csv"
	DefaultEdgeOutputDir   = "output"
	DefaultFetchOutputDir  = "output"
	DefaultFetchTimeout    = 30 * time.Second
	DefaultFetchMaxRetries = 3
)

// setDefaults registers every key with viper so that environment overrides
// resolve during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")

	v.SetDefault("aggregate.input_dir", "")
	v.SetDefault("aggregate.output", DefaultBucketsOutput)
	v.SetDefault("aggregate.symbol", DefaultSymbol)
	v.SetDefault("aggregate.width", domain.DefaultBucketWidth)

	v.SetDefault("edge.trades_file", "")
	v.SetDefault("edge.reference_file", "")
	v.SetDefault("edge.output_dir", DefaultEdgeOutputDir)
	v.SetDefault("edge.index_token", priceedge.DefaultIndexToken)
	v.SetDefault("edge.window", domain.DefaultTimestampUncertainty)
	v.SetDefault("edge.scales.price", cleaning.DefaultScale)
	v.SetDefault("edge.scales.size", cleaning.DefaultScale)
	v.SetDefault("edge.scales.collateral", cleaning.DefaultScale)
	v.SetDefault("edge.scales.fee", cleaning.DefaultScale)
	v.SetDefault("edge.scales.pnl", cleaning.DefaultScale)

	v.SetDefault("fetch.endpoint", graph.DefaultEndpoint)
	v.SetDefault("fetch.collections", []string{domain.CollectionOrders, domain.CollectionSwaps})
	v.SetDefault("fetch.page_size", graph.DefaultPageSize)
	v.SetDefault("fetch.max_pages", graph.DefaultMaxPages)
	v.SetDefault("fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("fetch.max_retries", DefaultFetchMaxRetries)
	v.SetDefault("fetch.output_dir", DefaultFetchOutputDir)

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.redis_prefix", "")
	v.SetDefault("storage.migrate", false)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("tokens_file", "")
}

// applyDefaults fills values that depend on other fields.
func (c *Config) applyDefaults() {
	if len(c.Tokens) == 0 && c.TokensFile == "" {
		c.Tokens = cleaning.ArbitrumTokens()
	}

	// Comma-separated env values arrive as a single element.
	var collections []string
	for _, name := range c.Fetch.Collections {
		for _, part := range strings.Split(name, ",") {
			if part = strings.TrimSpace(part); part != "" {
				collections = append(collections, part)
			}
		}
	}
	c.Fetch.Collections = collections
}
