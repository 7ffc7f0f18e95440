package engine

import (
	"errors"
	"fmt"

	"eve-hubarb/internal/logger"
	"eve-hubarb/internal/sde"
)

// MarginAction controls routes whose net margin exceeds Policy.MarginCapPercent.
type MarginAction string

const (
	MarginOff     MarginAction = "off"
	MarginClamp   MarginAction = "clamp"
	MarginDiscard MarginAction = "discard"
)

// Policy holds the evaluator's thresholds.
type Policy struct {
	MaxTradeSize     int64
	MinLotSize       int64
	MinNetProfit     float64
	MinProfitPercent float64
	MarginCapPercent float64
	MarginAction     MarginAction
}

// Validate reports a configuration error for non-positive limits or an unknown margin action.
func (p Policy) Validate() error {
	switch {
	case p.MaxTradeSize <= 0:
		return fmt.Errorf("%w: max trade size must be positive", ErrConfiguration)
	case p.MinLotSize <= 0:
		return fmt.Errorf("%w: min lot size must be positive", ErrConfiguration)
	case p.MinNetProfit < 0 || p.MinProfitPercent < 0:
		return fmt.Errorf("%w: profit minimums must not be negative", ErrConfiguration)
	}
	switch p.MarginAction {
	case MarginOff, "":
	case MarginClamp, MarginDiscard:
		if p.MarginCapPercent <= 0 {
			return fmt.Errorf("%w: margin cap must be positive when action is %q", ErrConfiguration, p.MarginAction)
		}
	default:
		return fmt.Errorf("%w: unknown margin action %q", ErrConfiguration, p.MarginAction)
	}
	return nil
}

// EvalStats counts what happened to each (item, buyHub, sellHub) candidate.
type EvalStats struct {
	Pairs          int // candidates with orders on both sides
	NoProfit       int
	Illiquid       int
	NoShip         int // no ship has the capacity
	OverJumpLimit  int // ships have the capacity but not the jumps per trip
	BelowThreshold int
	Unrealistic    int
	FellBack       int
	CostErrors     int
	Routes         int
}

// bookAgg holds the precomputed aggregates of one order book.
type bookAgg struct {
	bestAsk float64 // lowest sell order
	askVol  int64
	bestBid float64 // highest buy order
	bidVol  int64
}

func (a bookAgg) hasAsk() bool { return a.askVol > 0 }
func (a bookAgg) hasBid() bool { return a.bidVol > 0 }

// buildBookIndex computes best price and summed volume per side for every book.
// Orders with no remaining volume are ignored.
func buildBookIndex(books Books) map[BookKey]bookAgg {
	idx := make(map[BookKey]bookAgg, len(books))
	for key, book := range books {
		var a bookAgg
		for _, o := range book.Sell {
			if o.VolumeRemain <= 0 {
				continue
			}
			if a.askVol == 0 || o.Price < a.bestAsk {
				a.bestAsk = o.Price
			}
			a.askVol += o.VolumeRemain
		}
		for _, o := range book.Buy {
			if o.VolumeRemain <= 0 {
				continue
			}
			if a.bidVol == 0 || o.Price > a.bestBid {
				a.bestBid = o.Price
			}
			a.bidVol += o.VolumeRemain
		}
		idx[key] = a
	}
	return idx
}

// Evaluator turns order books into costed routes.
type Evaluator struct {
	policy Policy
	cost   CostModel
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(policy Policy, cost CostModel) *Evaluator {
	return &Evaluator{policy: policy, cost: cost}
}

// Evaluate produces every route that survives the policy, for every item and
// every ordered pair of distinct hubs. Output follows the given item order,
// then buy hub, then sell hub, in the given hub order.
func (e *Evaluator) Evaluate(books Books, hubs []sde.Hub, items []sde.Item) ([]Route, EvalStats) {
	idx := buildBookIndex(books)
	var stats EvalStats
	var routes []Route

	for _, item := range items {
		for _, buyHub := range hubs {
			src, ok := idx[BookKey{Hub: buyHub.Name, TypeID: item.TypeID}]
			if !ok || !src.hasAsk() {
				continue
			}
			for _, sellHub := range hubs {
				if sellHub.Name == buyHub.Name {
					continue
				}
				dst, ok := idx[BookKey{Hub: sellHub.Name, TypeID: item.TypeID}]
				if !ok || !dst.hasBid() {
					continue
				}
				stats.Pairs++

				r, err := e.route(item, buyHub.Name, sellHub.Name, src, dst)
				switch {
				case err == nil:
				case errors.Is(err, ErrNoProfitableRoute):
					stats.NoProfit++
					continue
				case errors.Is(err, ErrInsufficientLiquidity):
					stats.Illiquid++
					continue
				case errors.Is(err, ErrJumpLimitExceeded):
					stats.OverJumpLimit++
					continue
				case errors.Is(err, ErrCapacityExceeded):
					stats.NoShip++
					continue
				case errors.Is(err, errBelowThreshold):
					stats.BelowThreshold++
					continue
				case errors.Is(err, errUnrealisticMargin):
					stats.Unrealistic++
					continue
				default:
					stats.CostErrors++
					logger.Warn("EVAL", err.Error())
					continue
				}
				if r.fellBack {
					stats.FellBack++
				}
				routes = append(routes, r.Route)
			}
		}
	}
	stats.Routes = len(routes)
	return routes, stats
}

var (
	errBelowThreshold    = errors.New("below profit threshold")
	errUnrealisticMargin = errors.New("margin above cap")
)

type evaluated struct {
	Route
	fellBack bool
}

func (e *Evaluator) route(item sde.Item, buyHub, sellHub string, src, dst bookAgg) (evaluated, error) {
	buyPrice, sellPrice := src.bestAsk, dst.bestBid
	if sellPrice <= buyPrice {
		return evaluated{}, ErrNoProfitableRoute
	}

	qty := min(src.askVol, dst.bidVol, e.policy.MaxTradeSize)
	if qty <= 0 || qty < e.policy.MinLotSize {
		return evaluated{}, ErrInsufficientLiquidity
	}

	volume := float64(qty) * item.Volume
	t, err := e.cost.Cost(CostRequest{
		BuyHub:   buyHub,
		SellHub:  sellHub,
		Volume:   volume,
		BuyPrice: buyPrice,
		Quantity: qty,
	})
	if err != nil {
		return evaluated{}, fmt.Errorf("type %d %s -> %s: %w", item.TypeID, buyHub, sellHub, err)
	}

	gross := (sellPrice - buyPrice) * float64(qty)
	net := gross - t.Cost
	pct := net / (buyPrice * float64(qty)) * 100
	if net < e.policy.MinNetProfit || pct < e.policy.MinProfitPercent {
		return evaluated{}, errBelowThreshold
	}
	if e.policy.MarginAction == MarginDiscard && pct > e.policy.MarginCapPercent {
		return evaluated{}, errUnrealisticMargin
	}

	var perHour float64
	if t.Minutes > 0 {
		perHour = net / t.Minutes * 60
	}
	return evaluated{
		Route: Route{
			Item:             item,
			BuyHub:           buyHub,
			SellHub:          sellHub,
			BuyPrice:         buyPrice,
			SellPrice:        sellPrice,
			Quantity:         qty,
			AvailableSell:    src.askVol,
			AvailableBuy:     dst.bidVol,
			CargoVolume:      volume,
			GrossProfit:      gross,
			TransportCost:    t.Cost,
			NetProfit:        net,
			ProfitPercent:    pct,
			EstimatedMinutes: t.Minutes,
			IskPerHour:       perHour,
			Jumps:            t.Jumps,
			Ship:             t.Ship,
			CostStrategy:     t.Strategy,
		},
		fellBack: t.FellBack,
	}, nil
}
