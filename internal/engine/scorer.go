package engine

import "math"

// Verdict is the tier assigned to a score.
type Verdict string

const (
	VerdictExcellent Verdict = "EXCELLENT"
	VerdictVeryGood  Verdict = "VERY GOOD"
	VerdictGood      Verdict = "GOOD"
	VerdictConsider  Verdict = "CONSIDER"
	VerdictWeak      Verdict = "WEAK"
	VerdictSkip      Verdict = "SKIP"
)

// DefaultHourlyBaseline is the ISK/hour a hauler is assumed to earn otherwise.
const DefaultHourlyBaseline = 50_000_000

// MaxScore caps the summed contributions.
const MaxScore = 100

// ScoringConfig tunes the scorer.
type ScoringConfig struct {
	HourlyBaseline   float64
	DropWeak         bool
	MarginCapPercent float64 // > 0 caps the profit percent seen by the scorer
}

// ScoreInput is the set of factors the score is computed from.
type ScoreInput struct {
	ProfitPercent float64
	IskPerHour    float64
	NetProfit     float64
	AvailableBuy  int64
	AvailableSell int64
	Jumps         int
}

// ScoreBreakdown lists each factor's contribution.
type ScoreBreakdown struct {
	Profit     float64 `json:"profit"`
	IskPerHour float64 `json:"isk_per_hour"`
	NetProfit  float64 `json:"net_profit"`
	Liquidity  float64 `json:"liquidity"`
	Distance   float64 `json:"distance"`
	Balance    float64 `json:"balance"`
	Total      float64 `json:"total"`
}

// Score computes the bounded 0-100 score. It is a pure function of its inputs.
func Score(in ScoreInput, cfg ScoringConfig) ScoreBreakdown {
	base := cfg.HourlyBaseline
	if base <= 0 {
		base = DefaultHourlyBaseline
	}
	pct := in.ProfitPercent
	if cfg.MarginCapPercent > 0 && pct > cfg.MarginCapPercent {
		pct = cfg.MarginCapPercent
	}

	b := ScoreBreakdown{
		Profit:     profitPoints(pct),
		IskPerHour: iskPerHourPoints(in.IskPerHour, base),
		NetProfit:  netProfitPoints(in.NetProfit),
		Liquidity:  liquidityPoints(min(in.AvailableBuy, in.AvailableSell)),
		Distance:   distancePoints(in.Jumps),
		Balance:    balancePoints(in.AvailableBuy, in.AvailableSell),
	}
	b.Total = math.Min(MaxScore, b.Profit+b.IskPerHour+b.NetProfit+b.Liquidity+b.Distance+b.Balance)
	return b
}

func profitPoints(pct float64) float64 {
	switch {
	case pct > 20:
		return 25
	case pct > 15:
		return 20
	case pct > 10:
		return 15
	case pct > 7:
		return 10
	case pct > 5:
		return 5
	}
	return 0
}

func iskPerHourPoints(perHour, base float64) float64 {
	switch {
	case perHour > 3*base:
		return 25
	case perHour > 2*base:
		return 20
	case perHour > 1.5*base:
		return 15
	case perHour > base:
		return 10
	case perHour > 0.7*base:
		return 5
	}
	return 0
}

func netProfitPoints(net float64) float64 {
	switch {
	case net > 5_000_000:
		return 20
	case net > 2_000_000:
		return 15
	case net > 1_000_000:
		return 10
	case net > 500_000:
		return 5
	}
	return 0
}

func liquidityPoints(depth int64) float64 {
	switch {
	case depth > 500:
		return 15
	case depth > 200:
		return 10
	case depth > 100:
		return 8
	case depth > 50:
		return 5
	}
	return 0
}

func distancePoints(jumps int) float64 {
	switch {
	case jumps < 12:
		return 10
	case jumps < 18:
		return 7
	case jumps < 25:
		return 4
	}
	return 0
}

func balancePoints(a, b int64) float64 {
	hi := max(a, b)
	if hi <= 0 {
		return 0
	}
	ratio := float64(min(a, b)) / float64(hi)
	switch {
	case ratio > 0.7:
		return 5
	case ratio > 0.4:
		return 3
	}
	return 0
}

// VerdictFor maps a score to its tier.
func VerdictFor(score float64) Verdict {
	switch {
	case score >= 85:
		return VerdictExcellent
	case score >= 75:
		return VerdictVeryGood
	case score >= 65:
		return VerdictGood
	case score >= 50:
		return VerdictConsider
	case score >= 35:
		return VerdictWeak
	}
	return VerdictSkip
}

// Risk returns the risk label shown next to the verdict.
func (v Verdict) Risk() string {
	switch v {
	case VerdictExcellent:
		return "Low"
	case VerdictVeryGood:
		return "Low-Med"
	case VerdictGood:
		return "Medium"
	case VerdictConsider:
		return "Med-High"
	}
	return "High"
}

// Dropped reports whether routes with this verdict are removed before ranking.
func (v Verdict) Dropped(dropWeak bool) bool {
	return v == VerdictSkip || (dropWeak && v == VerdictWeak)
}

// InputFor extracts the scoring factors of a route.
func InputFor(r Route) ScoreInput {
	return ScoreInput{
		ProfitPercent: r.ProfitPercent,
		IskPerHour:    r.IskPerHour,
		NetProfit:     r.NetProfit,
		AvailableBuy:  r.AvailableBuy,
		AvailableSell: r.AvailableSell,
		Jumps:         r.Jumps,
	}
}

// ScoreRoutes scores every route and drops the ones whose verdict is filtered.
// It returns the survivors and the number dropped.
func ScoreRoutes(routes []Route, cfg ScoringConfig) ([]Opportunity, int) {
	out := make([]Opportunity, 0, len(routes))
	dropped := 0
	for _, r := range routes {
		b := Score(InputFor(r), cfg)
		v := VerdictFor(b.Total)
		if v.Dropped(cfg.DropWeak) {
			dropped++
			continue
		}
		out = append(out, Opportunity{Route: r, Score: b.Total, Verdict: v, Risk: v.Risk(), Breakdown: b})
	}
	return out, dropped
}
