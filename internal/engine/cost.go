package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"eve-hubarb/internal/sde"
)

// Cost strategy names.
const (
	StrategyDetailed = "detailed"
	StrategyFlat     = "flat"
)

// CapacityPolicy decides what happens when no ship fits the cargo under the
// detailed strategy.
type CapacityPolicy string

const (
	CapacityDiscard CapacityPolicy = "discard"
	CapacityFlat    CapacityPolicy = "flat"
)

// CostRequest describes the haul to be costed.
type CostRequest struct {
	BuyHub   string
	SellHub  string
	Volume   float64 // total cargo m³
	BuyPrice float64
	Quantity int64
}

// Transport is the cost and time of hauling one cargo.
type Transport struct {
	Cost     float64
	Minutes  float64
	Jumps    int
	Ship     string
	Strategy string
	FellBack bool // detailed strategy could not fit the cargo; flat rate used
}

// CostModel prices a haul between two hubs.
type CostModel interface {
	Cost(req CostRequest) (Transport, error)
}

// Timing holds the travel-time constants shared by the cost models.
type Timing struct {
	MinutesPerJump  float64
	DockingOverhead float64
}

// ShipQuote is the cost of one ship flying one route.
type ShipQuote struct {
	Ship          sde.CargoShip
	Jumps         int
	FuelCost      float64
	Insurance     float64
	TotalCost     float64
	CostPerVolume float64
	Minutes       float64
}

// DetailedCostModel picks the cheapest-per-m³ ship that can carry the cargo.
type DetailedCostModel struct {
	tables *sde.Data
	ships  []sde.CargoShip
	timing Timing
}

// NewDetailedCostModel creates a vehicle-constrained cost model over the tabled ships.
func NewDetailedCostModel(tables *sde.Data, timing Timing) *DetailedCostModel {
	return &DetailedCostModel{tables: tables, ships: tables.Ships, timing: timing}
}

// Quote prices a single ship over distanceLY.
func (m *DetailedCostModel) Quote(ship sde.CargoShip, distanceLY float64) ShipQuote {
	jumps := int(math.Ceil(distanceLY / ship.JumpRange))
	if jumps < 0 {
		jumps = 0
	}
	fuel := float64(jumps) * ship.FuelPerJump * ship.FuelUnitPrice
	total := fuel + ship.InsurancePerTrip
	return ShipQuote{
		Ship:          ship,
		Jumps:         jumps,
		FuelCost:      fuel,
		Insurance:     ship.InsurancePerTrip,
		TotalCost:     total,
		CostPerVolume: total / ship.CargoCapacity,
		Minutes:       float64(jumps)*m.timing.MinutesPerJump + m.timing.DockingOverhead,
	}
}

// CompareShips returns quotes for every ship able to carry volume between
// the two hubs, cheapest per m³ first. Ships over their jump limit are left out.
func (m *DetailedCostModel) CompareShips(from, to string, volume float64) []ShipQuote {
	quotes, _ := m.fittingShips(from, to, volume)
	return quotes
}

// fittingShips also returns how many ships had the capacity but not the jump range.
func (m *DetailedCostModel) fittingShips(from, to string, volume float64) ([]ShipQuote, int) {
	distance := m.tables.Route(from, to).DistanceLY
	var quotes []ShipQuote
	overJumps := 0
	for _, ship := range m.ships {
		if ship.CargoCapacity < volume {
			continue
		}
		q := m.Quote(ship, distance)
		if ship.MaxJumpsPerTrip > 0 && q.Jumps > ship.MaxJumpsPerTrip {
			overJumps++
			continue
		}
		quotes = append(quotes, q)
	}
	sort.SliceStable(quotes, func(i, j int) bool { return quoteLess(quotes[i], quotes[j]) })
	return quotes, overJumps
}

func quoteLess(a, b ShipQuote) bool {
	if a.CostPerVolume != b.CostPerVolume {
		return a.CostPerVolume < b.CostPerVolume
	}
	if a.TotalCost != b.TotalCost {
		return a.TotalCost < b.TotalCost
	}
	return a.Ship.Name < b.Ship.Name
}

// Cost implements CostModel. Returns ErrCapacityExceeded when no ship fits,
// also wrapping ErrJumpLimitExceeded when only the jump limit was in the way.
func (m *DetailedCostModel) Cost(req CostRequest) (Transport, error) {
	quotes, overJumps := m.fittingShips(req.BuyHub, req.SellHub, req.Volume)
	if len(quotes) == 0 {
		if overJumps > 0 {
			return Transport{}, fmt.Errorf("%w: %w: %.0f m³ %s -> %s",
				ErrCapacityExceeded, ErrJumpLimitExceeded, req.Volume, req.BuyHub, req.SellHub)
		}
		return Transport{}, fmt.Errorf("%w: %.0f m³ %s -> %s", ErrCapacityExceeded, req.Volume, req.BuyHub, req.SellHub)
	}
	best := quotes[0]
	return Transport{
		Cost:     best.TotalCost,
		Minutes:  best.Minutes,
		Jumps:    best.Jumps,
		Ship:     best.Ship.Name,
		Strategy: StrategyDetailed,
	}, nil
}

// FlatCostModel charges a fraction of the cargo's purchase value, looked up
// per hub pair.
type FlatCostModel struct {
	tables *sde.Data
	timing Timing
}

// NewFlatCostModel creates a flat-rate cost model.
func NewFlatCostModel(tables *sde.Data, timing Timing) *FlatCostModel {
	return &FlatCostModel{tables: tables, timing: timing}
}

// Cost implements CostModel.
func (m *FlatCostModel) Cost(req CostRequest) (Transport, error) {
	t := m.tables.Route(req.BuyHub, req.SellHub)
	return Transport{
		Cost:     req.BuyPrice * float64(req.Quantity) * t.CostMultiplier,
		Minutes:  float64(t.Minutes) + m.timing.DockingOverhead,
		Jumps:    t.GateJumps,
		Strategy: StrategyFlat,
	}, nil
}

// FallbackCostModel re-costs capacity failures of the primary model with the
// fallback model.
type FallbackCostModel struct {
	Primary  CostModel
	Fallback CostModel
}

// Cost implements CostModel.
func (m *FallbackCostModel) Cost(req CostRequest) (Transport, error) {
	t, err := m.Primary.Cost(req)
	if err == nil || !errors.Is(err, ErrCapacityExceeded) {
		return t, err
	}
	t, err = m.Fallback.Cost(req)
	if err != nil {
		return t, err
	}
	t.FellBack = true
	return t, nil
}

// NewCostModel builds the configured strategy. The capacity policy is
// required for the detailed strategy and ignored for flat.
func NewCostModel(strategy string, policy CapacityPolicy, tables *sde.Data, timing Timing) (CostModel, error) {
	switch strategy {
	case StrategyFlat:
		return NewFlatCostModel(tables, timing), nil
	case StrategyDetailed:
		detailed := NewDetailedCostModel(tables, timing)
		switch policy {
		case CapacityDiscard:
			return detailed, nil
		case CapacityFlat:
			return &FallbackCostModel{Primary: detailed, Fallback: NewFlatCostModel(tables, timing)}, nil
		default:
			return nil, fmt.Errorf("%w: capacity policy %q (want %q or %q)", ErrConfiguration, policy, CapacityDiscard, CapacityFlat)
		}
	default:
		return nil, fmt.Errorf("%w: unknown cost strategy %q", ErrConfiguration, strategy)
	}
}
