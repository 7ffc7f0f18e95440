package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"eve-hubarb/internal/cache"
	"eve-hubarb/internal/db"
	"eve-hubarb/internal/engine"
	"eve-hubarb/internal/esi"
	"eve-hubarb/internal/logger"
	"eve-hubarb/internal/report"
	"eve-hubarb/internal/sde"
)

type scanOptions struct {
	hubs           []string
	items          []int32
	format         string
	top            int
	by             string
	strategy       string
	capacityPolicy string
	dedupe         string
	store          bool
	timeout        time.Duration
	workers        int
	retries        int
	interval       time.Duration
	cycles         int
}

func newScanCommand(a *app) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Fetch hub order books and rank arbitrage routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyScanFlags(cmd, a, opts)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runScan(cmd, a)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.hubs, "hubs", nil, "Hubs to scan (default: all tabled hubs)")
	f.Int32SliceVar(&opts.items, "items", nil, "Item type IDs to scan (default: all tabled items)")
	f.StringVarP(&opts.format, "format", "f", "", "Output format: table or json")
	f.IntVarP(&opts.top, "top", "n", 0, "Number of routes to report (0 = all)")
	f.StringVar(&opts.by, "by", "", "Rank by net_profit or score")
	f.StringVar(&opts.strategy, "strategy", "", "Cost strategy: detailed or flat")
	f.StringVar(&opts.capacityPolicy, "capacity-policy", "", "When no ship fits: discard or flat")
	f.StringVar(&opts.dedupe, "dedupe", "", "Suppress unchanged routes via: none, sqlite or redis")
	f.BoolVar(&opts.store, "store", false, "Persist the run to the sqlite store")
	f.DurationVar(&opts.timeout, "timeout", 0, "Wall-clock budget for the fetch phase")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent hub fetches (0 = one per hub)")
	f.IntVar(&opts.retries, "retries", 0, "Retries per failed page request")
	f.DurationVar(&opts.interval, "interval", 0, "Repeat the scan on this interval until interrupted")
	f.IntVar(&opts.cycles, "cycles", 0, "Stop after this many scans (0 = until interrupted)")
	return cmd
}

// applyScanFlags overlays explicitly set flags on the loaded config.
func applyScanFlags(cmd *cobra.Command, a *app, o *scanOptions) {
	f := cmd.Flags()
	c := a.cfg
	if f.Changed("hubs") {
		c.Hubs = o.hubs
	}
	if f.Changed("items") {
		c.Items = o.items
	}
	if f.Changed("format") {
		c.Output.Format = o.format
	}
	if f.Changed("top") {
		c.Rank.TopN = o.top
	}
	if f.Changed("by") {
		c.Rank.By = o.by
	}
	if f.Changed("strategy") {
		c.Cost.Strategy = o.strategy
	}
	if f.Changed("capacity-policy") {
		c.Cost.CapacityPolicy = o.capacityPolicy
	}
	if f.Changed("dedupe") {
		c.Rank.Dedupe = o.dedupe
	}
	if f.Changed("store") {
		c.Store.Enabled = o.store
	}
	if f.Changed("timeout") {
		c.Fetch.Timeout = o.timeout
	}
	if f.Changed("workers") {
		c.Fetch.Workers = o.workers
	}
	if f.Changed("retries") {
		c.Fetch.Retries = o.retries
	}
	if f.Changed("interval") {
		c.Monitor.Interval = o.interval
	}
	if f.Changed("cycles") {
		c.Monitor.Cycles = o.cycles
	}
}

func runScan(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	if !isJSON(cfg.Output.Format) {
		logger.Banner(a.version)
	}

	hubs, err := a.tables.SelectHubs(cfg.Hubs)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
	}
	if len(hubs) < 2 {
		return fmt.Errorf("%w: at least two hubs are required", engine.ErrConfiguration)
	}
	items, err := a.tables.SelectItems(cfg.Items)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrConfiguration, err)
	}
	policy := cfg.EnginePolicy()
	if err := policy.Validate(); err != nil {
		return err
	}
	model, err := engine.NewCostModel(cfg.Cost.Strategy, engine.CapacityPolicy(cfg.Cost.CapacityPolicy), a.tables, cfg.Timing())
	if err != nil {
		return err
	}
	logger.Info("COST", fmt.Sprintf("Strategy %s, capacity policy %s", cfg.Cost.Strategy, cfg.Cost.CapacityPolicy))
	if policy.MarginAction != engine.MarginOff {
		logger.Info("POLICY", fmt.Sprintf("Margins above %.0f%%: %s", policy.MarginCapPercent, policy.MarginAction))
	}
	if cfg.Fetch.Retries > 0 {
		logger.Info("ESI", fmt.Sprintf("Retrying failed pages up to %d times", cfg.Fetch.Retries))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var sinks []engine.OpportunitySink
	var store *db.DB
	if cfg.Store.Enabled {
		store, err = db.Open(cfg.Store.Path)
		if err != nil {
			if cfg.Store.Required {
				return fmt.Errorf("open store: %w", err)
			}
			logger.Warn("DB", fmt.Sprintf("Store unavailable, reporting only: %v", err))
		} else {
			defer store.Close()
			sinks = append(sinks, store)
		}
	}

	seen, closeSeen, err := openSeenStore(ctx, a, store)
	if err != nil {
		return err
	}
	defer closeSeen()

	if seen == nil && cfg.Monitor.Repeats() {
		seen = engine.NewMemorySeenStore()
		logger.Info("MONITOR", "Deduping unchanged routes in memory between cycles")
	}

	client := esi.NewClient(cfg.ESIOptions())
	agg := engine.NewAggregator(client, cfg.AggregatorConfig(), nil)
	eval := engine.NewEvaluator(policy, model)
	ranker := engine.NewRanker(engine.RankBy(cfg.Rank.By), cfg.Rank.TopN, seen)
	pipeline := engine.NewPipeline(agg, eval, cfg.EngineScoring(), ranker, sinks...)

	mon := cfg.Monitor
	if mon.Repeats() {
		limit := "until interrupted"
		if mon.Cycles > 0 {
			limit = fmt.Sprintf("%d cycles", mon.Cycles)
		}
		logger.Info("MONITOR", fmt.Sprintf("Scanning every %s, %s", mon.Interval, limit))
	}
	for cycle := 1; ; cycle++ {
		started := time.Now()
		if err := scanCycle(ctx, cmd, a, pipeline, client, hubs, items, cycle); err != nil {
			return err
		}
		if !mon.Repeats() || (mon.Cycles > 0 && cycle >= mon.Cycles) {
			return nil
		}
		wait := max(mon.Interval-time.Since(started), 0)
		logger.Info("MONITOR", fmt.Sprintf("Cycle %d done, next scan in %s", cycle, wait.Round(time.Second)))
		select {
		case <-ctx.Done():
			logger.Warn("MONITOR", fmt.Sprintf("Stopped after %d cycles", cycle))
			return nil
		case <-time.After(wait):
		}
	}
}

// scanCycle runs the pipeline once and writes its report.
func scanCycle(ctx context.Context, cmd *cobra.Command, a *app, pipeline *engine.Pipeline, client *esi.Client,
	hubs []sde.Hub, items []sde.Item, cycle int) error {
	cfg := a.cfg
	res, runErr := pipeline.Run(ctx, hubs, items)
	res.Stats.Log()
	logger.Stats("ESI requests", fmt.Sprintf("%d (%d retries, %d pages cached)", client.Calls(), client.Retries(), client.CachedPages()))

	var err error
	out := cmd.OutOrStdout()
	if isJSON(cfg.Output.Format) {
		err = report.WriteJSON(out, res)
	} else {
		title := fmt.Sprintf("Top routes (%d)", len(res.Opportunities))
		if cfg.Monitor.Repeats() {
			title = fmt.Sprintf("Cycle %d: top routes (%d)", cycle, len(res.Opportunities))
		}
		logger.Section(title)
		err = report.WriteTable(out, res.Opportunities)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if runErr != nil {
		if cfg.Store.Required {
			return runErr
		}
		logger.Warn("STORE", fmt.Sprintf("Results not persisted: %v", runErr))
	}
	return nil
}

// openSeenStore returns the configured dedupe store, or nil when dedupe is off
// or its backend is unreachable and not required.
func openSeenStore(ctx context.Context, a *app, store *db.DB) (engine.SeenStore, func(), error) {
	noop := func() {}
	cfg := a.cfg
	switch cfg.Rank.Dedupe {
	case "sqlite":
		if store == nil {
			return nil, noop, nil
		}
		return store, noop, nil
	case "redis":
		c, err := cache.New(ctx, cache.ClientConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			if cfg.Store.Required {
				return nil, noop, fmt.Errorf("open dedupe cache: %w", err)
			}
			logger.Warn("REDIS", fmt.Sprintf("Dedupe disabled: %v", err))
			return nil, noop, nil
		}
		return cache.NewSeenStore(c, cfg.Redis.KeyPrefix, cfg.Redis.TTL), func() { c.Close() }, nil
	}
	return nil, noop, nil
}
