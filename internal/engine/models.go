package engine

import (
	"time"

	"eve-hubarb/internal/sde"
)

// Side is the side of a market order.
type Side int

const (
	SideSell Side = iota
	SideBuy
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// MarketOrder is a normalized, fresh order at a hub station. Immutable once fetched.
type MarketOrder struct {
	TypeID       int32
	LocationID   int64
	Price        float64
	VolumeRemain int64
	Side         Side
	Issued       time.Time
}

// OrderBook holds the fresh orders for one item at one hub.
type OrderBook struct {
	Buy  []MarketOrder // bids: we sell into these
	Sell []MarketOrder // asks: we buy from these
}

// BookKey identifies an order book by hub name and item type.
type BookKey struct {
	Hub    string
	TypeID int32
}

// Books maps (hub, item) to its order book.
type Books map[BookKey]*OrderBook

// Book returns the order book for (hub, typeID), or nil.
func (b Books) Book(hub string, typeID int32) *OrderBook {
	return b[BookKey{Hub: hub, TypeID: typeID}]
}

// RouteKey identifies an arbitrage route across runs.
type RouteKey struct {
	TypeID  int32
	BuyHub  string
	SellHub string
}

// Route is a candidate buy-here/sell-there trade for one item.
type Route struct {
	Item             sde.Item
	BuyHub           string
	SellHub          string
	BuyPrice         float64 // lowest ask at BuyHub
	SellPrice        float64 // highest bid at SellHub
	Quantity         int64
	AvailableSell    int64 // summed ask volume at BuyHub
	AvailableBuy     int64 // summed bid volume at SellHub
	CargoVolume      float64
	GrossProfit      float64
	TransportCost    float64
	NetProfit        float64
	ProfitPercent    float64
	EstimatedMinutes float64
	IskPerHour       float64
	Jumps            int
	Ship             string // empty for flat-rate transport
	CostStrategy     string
}

// Key returns the route's dedupe key.
func (r Route) Key() RouteKey {
	return RouteKey{TypeID: r.Item.TypeID, BuyHub: r.BuyHub, SellHub: r.SellHub}
}

// Opportunity is a scored route.
type Opportunity struct {
	Route
	Score     float64
	Verdict   Verdict
	Risk      string
	Breakdown ScoreBreakdown
}
