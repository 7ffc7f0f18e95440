package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"eve-hubarb/internal/logger"
	"eve-hubarb/internal/sde"
)

// OpportunitySink persists the outcome of a run.
type OpportunitySink interface {
	SaveRun(ctx context.Context, res *RunResult) error
}

// RunStats aggregates the counters of one discovery run.
type RunStats struct {
	Hubs           int
	HubsFailed     int
	HubsPartial    int
	Pages          int
	OrdersScanned  int
	OrdersRetained int
	OrdersStale    int
	OrdersInvalid  int
	Eval           EvalStats
	Scored         int
	Dropped        int
	Rank           RankStats
	FetchElapsed   time.Duration
	Elapsed        time.Duration
}

// Log prints the counters through the logger.
func (s RunStats) Log() {
	logger.Section("Run summary")
	logger.Stats("Hubs", fmt.Sprintf("%d (%d failed, %d partial)", s.Hubs, s.HubsFailed, s.HubsPartial))
	logger.Stats("Pages", s.Pages)
	logger.Stats("Orders scanned", humanize.Comma(int64(s.OrdersScanned)))
	logger.Stats("Orders retained", humanize.Comma(int64(s.OrdersRetained)))
	logger.Stats("Orders stale", s.OrdersStale)
	logger.Stats("Pairs evaluated", s.Eval.Pairs)
	logger.Stats("No margin", s.Eval.NoProfit)
	logger.Stats("Illiquid", s.Eval.Illiquid)
	logger.Stats("No ship fits", s.Eval.NoShip)
	logger.Stats("Over jump limit", s.Eval.OverJumpLimit)
	logger.Stats("Flat fallback", s.Eval.FellBack)
	logger.Stats("Below threshold", s.Eval.BelowThreshold)
	logger.Stats("Unrealistic margin", s.Eval.Unrealistic)
	logger.Stats("Routes", s.Eval.Routes)
	logger.Stats("Dropped by verdict", s.Dropped)
	logger.Stats("Suppressed (seen)", s.Rank.Suppressed)
	logger.Stats("Reported", s.Rank.Reported)
	logger.Stats("Fetch time", s.FetchElapsed.Round(time.Millisecond))
	logger.Stats("Total time", s.Elapsed.Round(time.Millisecond))
}

// RunResult is the output of one discovery run.
type RunResult struct {
	RunID         string
	StartedAt     time.Time
	Hubs          []string
	Opportunities []Opportunity
	Stats         RunStats
}

// Pipeline wires the aggregator, evaluator, scorer and ranker together.
type Pipeline struct {
	agg     *Aggregator
	eval    *Evaluator
	scoring ScoringConfig
	ranker  *Ranker
	sinks   []OpportunitySink
	now     func() time.Time
}

// NewPipeline creates a Pipeline. Sinks are optional.
func NewPipeline(agg *Aggregator, eval *Evaluator, scoring ScoringConfig, ranker *Ranker, sinks ...OpportunitySink) *Pipeline {
	return &Pipeline{agg: agg, eval: eval, scoring: scoring, ranker: ranker, sinks: sinks, now: time.Now}
}

// Run fetches every hub, then evaluates, scores and ranks. Hub failures are
// counted, not returned. A non-nil error means the seen store or a sink
// failed; the result is still complete and reportable.
func (p *Pipeline) Run(ctx context.Context, hubs []sde.Hub, items []sde.Item) (*RunResult, error) {
	start := p.now()
	res := &RunResult{RunID: uuid.NewString(), StartedAt: start}
	for _, h := range hubs {
		res.Hubs = append(res.Hubs, h.Name)
	}
	logger.Info("SCAN", fmt.Sprintf("Run %s: %d hubs, %d items", res.RunID, len(hubs), len(items)))

	snap := p.agg.Collect(ctx, hubs, items)
	res.Stats.FetchElapsed = time.Since(start)
	res.Stats.addFetches(snap.Fetches)

	opps, stats, err := p.Process(ctx, snap.Books, hubs, items)
	res.Opportunities = opps
	res.Stats.Eval, res.Stats.Scored, res.Stats.Dropped, res.Stats.Rank = stats.Eval, stats.Scored, stats.Dropped, stats.Rank
	if err != nil {
		logger.Error("RANK", err.Error())
	}
	res.Stats.Elapsed = time.Since(start)

	for _, sink := range p.sinks {
		if serr := sink.SaveRun(ctx, res); serr != nil {
			logger.Error("STORE", serr.Error())
			if err == nil {
				err = serr
			}
		}
	}
	return res, err
}

// Process runs the compute phase over a snapshot of order books. For the
// same books and an unchanged seen store the result is identical.
func (p *Pipeline) Process(ctx context.Context, books Books, hubs []sde.Hub, items []sde.Item) ([]Opportunity, RunStats, error) {
	var stats RunStats
	routes, es := p.eval.Evaluate(books, hubs, items)
	stats.Eval = es

	opps, dropped := ScoreRoutes(routes, p.scoring)
	stats.Scored = len(routes)
	stats.Dropped = dropped

	ranked, rs, err := p.ranker.Rank(ctx, opps)
	stats.Rank = rs
	return ranked, stats, err
}

func (s *RunStats) addFetches(fetches []HubFetch) {
	for _, f := range fetches {
		s.Hubs++
		if f.Err != nil {
			s.HubsFailed++
		}
		if f.Partial {
			s.HubsPartial++
		}
		s.Pages += f.Pages
		s.OrdersScanned += f.Scanned
		s.OrdersRetained += f.Retained
		s.OrdersStale += f.Stale
		s.OrdersInvalid += f.Invalid
	}
}
