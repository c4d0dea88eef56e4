package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmx-edge-lab/internal/cleaning"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.Aggregate.Width)
	assert.Equal(t, "ETHUSDT", cfg.Aggregate.Symbol)
	assert.Equal(t, "WETH", cfg.Edge.IndexToken)
	assert.Equal(t, 120, cfg.Edge.Window)
	assert.Equal(t, cleaning.DefaultScales(), cfg.Scales())
	assert.Equal(t, []string{"orders", "swaps"}, cfg.Fetch.Collections)
	assert.Equal(t, 1000, cfg.Fetch.PageSize)
	assert.Equal(t, 100, cfg.Fetch.MaxPages)
	assert.Len(t, cfg.Tokens, len(cleaning.ArbitrumTokens()))

	reg, err := cfg.TokenRegistry()
	require.NoError(t, err)
	assert.Equal(t, len(cleaning.ArbitrumTokens()), reg.Len())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
log:
  level: debug
  format: json
edge:
  window: 60
  index_token: WBTC
  scales:
    price: 12
fetch:
  collections: [swaps]
  page_size: 500
tokens:
  "0xABC": FOO
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 60, cfg.Edge.Window)
	assert.Equal(t, "WBTC", cfg.Edge.IndexToken)
	assert.Equal(t, int32(12), cfg.Scales().Price)
	assert.Equal(t, int32(30), cfg.Scales().Size)
	assert.Equal(t, []string{"swaps"}, cfg.Fetch.Collections)
	assert.Equal(t, 500, cfg.Fetch.PageSize)

	reg, err := cfg.TokenRegistry()
	require.NoError(t, err)
	sym, err := reg.Symbol("0xabc")
	require.NoError(t, err)
	assert.Equal(t, "FOO", sym)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GMXEDGE_EDGE_WINDOW", "30")
	t.Setenv("GMXEDGE_AGGREGATE_WIDTH", "1s")
	t.Setenv("GMXEDGE_FETCH_COLLECTIONS", "orders")
	t.Setenv("GMXEDGE_STORAGE_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Edge.Window)
	assert.Equal(t, time.Second, cfg.Aggregate.Width)
	assert.Equal(t, []string{"orders"}, cfg.Fetch.Collections)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
}

func TestLoader_FlagsWin(t *testing.T) {
	t.Setenv("GMXEDGE_EDGE_WINDOW", "30")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("window", 0, "")
	fs.String("out", "", "")
	require.NoError(t, fs.Parse([]string{"--window=15"}))

	l := NewLoader("")
	require.NoError(t, l.BindFlag("edge.window", fs.Lookup("window")))
	require.NoError(t, l.BindFlag("edge.output_dir", fs.Lookup("out")))
	require.NoError(t, l.BindFlag("edge.missing", nil))

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Edge.Window)
	assert.Equal(t, DefaultEdgeOutputDir, cfg.Edge.OutputDir, "unset flag keeps the default")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero window", "edge:\n  window: 0\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"unknown collection", "fetch:\n  collections: [trades]\n"},
		{"page size too large", "fetch:\n  page_size: 5000\n"},
		{"negative scale", "edge:\n  scales:\n    fee: -1\n"},
		{"bad dsn", "storage:\n  postgres_dsn: not a url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTokenRegistry_File(t *testing.T) {
	path := writeFile(t, "tokens.yaml", "tokens:\n  \"0x01\": AAA\n")
	cfg := &Config{TokensFile: path}

	reg, err := cfg.TokenRegistry()
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}
