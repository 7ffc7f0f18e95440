package config

import (
	"time"

	"github.com/spf13/viper"

	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/esi"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			BaseURL:           esi.DefaultBaseURL,
			UserAgent:         "eve-hubarb/1.0",
			Freshness:         12 * time.Hour,
			MaxPages:          10,
			Workers:           0,
			Timeout:           2 * time.Minute,
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 20,
			Burst:             20,
			MaxConcurrent:     10,
			Retries:           0,
			BackoffBase:       500 * time.Millisecond,
		},
		Policy: PolicyConfig{
			MaxTradeSize:             5000,
			MinLotSize:               10,
			MinNetProfit:             50_000,
			MinProfitPercent:         3,
			UnrealisticMarginPercent: 50,
			UnrealisticMarginAction:  "off",
		},
		Cost: CostConfig{
			Strategy:               engine.StrategyDetailed,
			CapacityPolicy:         string(engine.CapacityDiscard),
			MinutesPerJump:         5,
			DockingOverheadMinutes: 15,
		},
		Scoring: ScoringConfig{
			HourlyBaseline: engine.DefaultHourlyBaseline,
		},
		Rank: RankConfig{
			By:     string(engine.RankByNetProfit),
			TopN:   25,
			Dedupe: "none",
		},
		Output: OutputConfig{
			Format: "table",
			Color:  "auto",
		},
		Store: StoreConfig{
			Path: "hubarb.db",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "hubarb",
			TTL:       24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("hubs", d.Hubs)
	v.SetDefault("items", d.Items)
	v.SetDefault("tables_path", d.TablesPath)

	v.SetDefault("fetch.base_url", d.Fetch.BaseURL)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.freshness", d.Fetch.Freshness)
	v.SetDefault("fetch.max_pages", d.Fetch.MaxPages)
	v.SetDefault("fetch.workers", d.Fetch.Workers)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.request_timeout", d.Fetch.RequestTimeout)
	v.SetDefault("fetch.requests_per_second", d.Fetch.RequestsPerSecond)
	v.SetDefault("fetch.burst", d.Fetch.Burst)
	v.SetDefault("fetch.max_concurrent", d.Fetch.MaxConcurrent)
	v.SetDefault("fetch.retries", d.Fetch.Retries)
	v.SetDefault("fetch.backoff_base", d.Fetch.BackoffBase)

	v.SetDefault("policy.max_trade_size", d.Policy.MaxTradeSize)
	v.SetDefault("policy.min_lot_size", d.Policy.MinLotSize)
	v.SetDefault("policy.min_net_profit", d.Policy.MinNetProfit)
	v.SetDefault("policy.min_profit_percent", d.Policy.MinProfitPercent)
	v.SetDefault("policy.unrealistic_margin_percent", d.Policy.UnrealisticMarginPercent)
	v.SetDefault("policy.unrealistic_margin_action", d.Policy.UnrealisticMarginAction)

	v.SetDefault("cost.strategy", d.Cost.Strategy)
	v.SetDefault("cost.capacity_policy", d.Cost.CapacityPolicy)
	v.SetDefault("cost.minutes_per_jump", d.Cost.MinutesPerJump)
	v.SetDefault("cost.docking_overhead_minutes", d.Cost.DockingOverheadMinutes)

	v.SetDefault("scoring.hourly_baseline", d.Scoring.HourlyBaseline)
	v.SetDefault("scoring.drop_weak", d.Scoring.DropWeak)

	v.SetDefault("rank.by", d.Rank.By)
	v.SetDefault("rank.top_n", d.Rank.TopN)
	v.SetDefault("rank.dedupe", d.Rank.Dedupe)

	v.SetDefault("monitor.interval", d.Monitor.Interval)
	v.SetDefault("monitor.cycles", d.Monitor.Cycles)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)

	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.required", d.Store.Required)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("logging.level", d.Logging.Level)
}
