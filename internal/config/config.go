package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/esi"
)

// EnvPrefix prefixes every environment override, e.g. HUBARB_FETCH_WORKERS.
const EnvPrefix = "HUBARB"

// Config holds every run setting.
type Config struct {
	// Hubs to scan, by name. Empty selects every tabled hub.
	Hubs []string `mapstructure:"hubs"`
	// Items to scan, by type ID. Empty selects every tabled item.
	Items []int32 `mapstructure:"items"`
	// TablesPath points at a TOML file overriding the built-in hub/item/ship/travel tables.
	TablesPath string `mapstructure:"tables_path"`

	Fetch   FetchConfig   `mapstructure:"fetch"`
	Policy  PolicyConfig  `mapstructure:"policy"`
	Cost    CostConfig    `mapstructure:"cost"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Rank    RankConfig    `mapstructure:"rank"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Output  OutputConfig  `mapstructure:"output"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FetchConfig bounds the market data fetch.
type FetchConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Freshness         time.Duration `mapstructure:"freshness" validate:"gt=0"`
	MaxPages          int           `mapstructure:"max_pages" validate:"min=1"`
	Workers           int           `mapstructure:"workers" validate:"min=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"min=0"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"min=1"`
	MaxConcurrent     int           `mapstructure:"max_concurrent" validate:"min=1"`
	Retries           int           `mapstructure:"retries" validate:"min=0,max=10"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" validate:"min=0"`
}

// PolicyConfig holds the route thresholds.
type PolicyConfig struct {
	MaxTradeSize             int64   `mapstructure:"max_trade_size" validate:"gt=0"`
	MinLotSize               int64   `mapstructure:"min_lot_size" validate:"gt=0"`
	MinNetProfit             float64 `mapstructure:"min_net_profit" validate:"gt=0"`
	MinProfitPercent         float64 `mapstructure:"min_profit_percent" validate:"gt=0"`
	UnrealisticMarginPercent float64 `mapstructure:"unrealistic_margin_percent" validate:"min=0"`
	UnrealisticMarginAction  string  `mapstructure:"unrealistic_margin_action" validate:"required,oneof=off clamp discard"`
}

// CostConfig selects the transport cost strategy.
type CostConfig struct {
	Strategy               string  `mapstructure:"strategy" validate:"required,oneof=detailed flat"`
	CapacityPolicy         string  `mapstructure:"capacity_policy" validate:"required,oneof=discard flat"`
	MinutesPerJump         float64 `mapstructure:"minutes_per_jump" validate:"gt=0"`
	DockingOverheadMinutes float64 `mapstructure:"docking_overhead_minutes" validate:"min=0"`
}

// ScoringConfig tunes the scorer.
type ScoringConfig struct {
	HourlyBaseline float64 `mapstructure:"hourly_baseline" validate:"gt=0"`
	DropWeak       bool    `mapstructure:"drop_weak"`
}

// RankConfig controls ordering and truncation.
type RankConfig struct {
	By     string `mapstructure:"by" validate:"required,oneof=net_profit score"`
	TopN   int    `mapstructure:"top_n" validate:"min=0"`
	Dedupe string `mapstructure:"dedupe" validate:"required,oneof=none sqlite redis"`
}

// MonitorConfig repeats the scan on a fixed interval.
type MonitorConfig struct {
	// Interval between scan starts. Zero runs a single scan.
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`
	// Cycles caps the number of scans. Zero means until interrupted when an interval is set.
	Cycles int `mapstructure:"cycles" validate:"min=0"`
}

// Repeats reports whether more than one scan cycle is configured.
func (m MonitorConfig) Repeats() bool {
	return m.Interval > 0 && m.Cycles != 1
}

// OutputConfig controls the report.
type OutputConfig struct {
	Format string `mapstructure:"format" validate:"required,oneof=table json"`
	Color  string `mapstructure:"color" validate:"required,oneof=auto always never"`
}

// StoreConfig configures the sqlite opportunity store.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
	// Required makes a store failure fail the run.
	Required bool `mapstructure:"required"`
}

// RedisConfig configures the redis seen-route cache.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"min=0"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl" validate:"min=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// Load reads configuration with priority env > file > defaults.
// A missing file is only an error when path is given explicitly.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hubarb")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/hubarb")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config file: %v", engine.ErrConfiguration, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %v", engine.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile reports which file Load would read, or "" when none is found.
func ConfigFile(path string) string {
	if path != "" {
		return path
	}
	v := viper.New()
	v.SetConfigName("hubarb")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/hubarb")
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// EnginePolicy returns the evaluator thresholds.
func (c *Config) EnginePolicy() engine.Policy {
	return engine.Policy{
		MaxTradeSize:     c.Policy.MaxTradeSize,
		MinLotSize:       c.Policy.MinLotSize,
		MinNetProfit:     c.Policy.MinNetProfit,
		MinProfitPercent: c.Policy.MinProfitPercent,
		MarginCapPercent: c.Policy.UnrealisticMarginPercent,
		MarginAction:     engine.MarginAction(c.Policy.UnrealisticMarginAction),
	}
}

// EngineScoring returns the scorer settings. The margin cap only reaches
// the scorer when the margin action is clamp.
func (c *Config) EngineScoring() engine.ScoringConfig {
	sc := engine.ScoringConfig{HourlyBaseline: c.Scoring.HourlyBaseline, DropWeak: c.Scoring.DropWeak}
	if c.Policy.UnrealisticMarginAction == string(engine.MarginClamp) {
		sc.MarginCapPercent = c.Policy.UnrealisticMarginPercent
	}
	return sc
}

// AggregatorConfig returns the fetch phase bounds.
func (c *Config) AggregatorConfig() engine.AggregatorConfig {
	return engine.AggregatorConfig{
		FreshnessWindow: c.Fetch.Freshness,
		MaxPages:        c.Fetch.MaxPages,
		Workers:         c.Fetch.Workers,
		Timeout:         c.Fetch.Timeout,
	}
}

// Timing returns the travel-time constants for the cost models.
func (c *Config) Timing() engine.Timing {
	return engine.Timing{MinutesPerJump: c.Cost.MinutesPerJump, DockingOverhead: c.Cost.DockingOverheadMinutes}
}

// ESIOptions returns the market client options.
func (c *Config) ESIOptions() esi.Options {
	return esi.Options{
		BaseURL:           c.Fetch.BaseURL,
		UserAgent:         c.Fetch.UserAgent,
		Timeout:           c.Fetch.RequestTimeout,
		RequestsPerSecond: c.Fetch.RequestsPerSecond,
		Burst:             c.Fetch.Burst,
		MaxConcurrent:     c.Fetch.MaxConcurrent,
		Retries:           c.Fetch.Retries,
		BackoffBase:       c.Fetch.BackoffBase,
	}
}
