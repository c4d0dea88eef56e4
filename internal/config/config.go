// Package config loads the settings shared by the gmx-edge-lab binaries.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file,
// GMXEDGE_* environment variables, then explicitly bound command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gmx-edge-lab/internal/cleaning"
)

// EnvPrefix prefixes every environment override, e.g. GMXEDGE_EDGE_WINDOW.
const EnvPrefix = "GMXEDGE"

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Edge      EdgeConfig      `mapstructure:"edge"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// Tokens maps lowercase token addresses to symbols.
	// Ignored when TokensFile is set.
	Tokens     map[string]string `mapstructure:"tokens"`
	TokensFile string            `mapstructure:"tokens_file"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	File   string `mapstructure:"file"`
}

// AggregateConfig drives cmd/aggregate.
type AggregateConfig struct {
	InputDir string        `mapstructure:"input_dir"`
	Output   string        `mapstructure:"output"`
	Symbol   string        `mapstructure:"symbol" validate:"required"`
	Width    time.Duration `mapstructure:"width" validate:"gt=0"`
}

// EdgeConfig drives cmd/edge.
type EdgeConfig struct {
	TradesFile    string       `mapstructure:"trades_file"`
	ReferenceFile string       `mapstructure:"reference_file"`
	OutputDir     string       `mapstructure:"output_dir" validate:"required"`
	IndexToken    string       `mapstructure:"index_token" validate:"required"`
	Window        int          `mapstructure:"window" validate:"gt=0"`
	Scales        ScalesConfig `mapstructure:"scales"`
}

// ScalesConfig holds the decimal exponent of each fixed-point field family.
type ScalesConfig struct {
	Price      int32 `mapstructure:"price" validate:"gte=0,lte=60"`
	Size       int32 `mapstructure:"size" validate:"gte=0,lte=60"`
	Collateral int32 `mapstructure:"collateral" validate:"gte=0,lte=60"`
	Fee        int32 `mapstructure:"fee" validate:"gte=0,lte=60"`
	Pnl        int32 `mapstructure:"pnl" validate:"gte=0,lte=60"`
}

// FetchConfig drives cmd/fetch.
type FetchConfig struct {
	Endpoint    string        `mapstructure:"endpoint" validate:"required,url"`
	Collections []string      `mapstructure:"collections" validate:"min=1,dive,oneof=orders swaps"`
	PageSize    int           `mapstructure:"page_size" validate:"gt=0,lte=1000"`
	MaxPages    int           `mapstructure:"max_pages" validate:"gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`
	OutputDir   string        `mapstructure:"output_dir"`
}

// StorageConfig selects optional persistence backends. Empty DSNs disable them.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"omitempty,url"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn" validate:"omitempty,url"`
	RedisURL      string `mapstructure:"redis_url" validate:"omitempty,url"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
	Migrate       bool   `mapstructure:"migrate"`
}

// MetricsConfig selects how metrics are exposed.
type MetricsConfig struct {
	Addr     string `mapstructure:"addr"`     // serve /metrics when set
	Textfile string `mapstructure:"textfile"` // dump on exit when set
}

// Scales converts the configured exponents.
func (c *Config) Scales() cleaning.Scales {
	s := c.Edge.Scales
	return cleaning.Scales{
		Price:      s.Price,
		Size:       s.Size,
		Collateral: s.Collateral,
		Fee:        s.Fee,
		Pnl:        s.Pnl,
	}
}

// TokenRegistry builds the token registry from TokensFile or Tokens.
func (c *Config) TokenRegistry() (*cleaning.TokenRegistry, error) {
	if c.TokensFile != "" {
		return cleaning.LoadTokenRegistry(c.TokensFile)
	}
	return cleaning.NewTokenRegistry(c.Tokens), nil
}

// Loader reads configuration from file, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An empty path skips the config file.
func NewLoader(path string) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v}
}

// BindFlag makes flag f override key when the flag is set on the command line.
// A nil flag is ignored.
func (l *Loader) BindFlag(key string, f *pflag.Flag) error {
	if f == nil {
		return nil
	}
	if err := l.v.BindPFlag(key, f); err != nil {
		return fmt.Errorf("bind flag %s: %w", f.Name, err)
	}
	return nil
}

// Load reads, defaults and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

var validate = validator.New()

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
