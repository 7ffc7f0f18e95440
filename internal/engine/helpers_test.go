package engine

import (
	"context"
	"sync"
	"time"

	"eve-hubarb/internal/esi"
	"eve-hubarb/internal/sde"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

var (
	hubJita  = sde.Hub{Name: "Jita", RegionID: 10000002, StationID: 60003760, SystemID: 30000142}
	hubAmarr = sde.Hub{Name: "Amarr", RegionID: 10000043, StationID: 60008494, SystemID: 30002187}
	hubRens  = sde.Hub{Name: "Rens", RegionID: 10000030, StationID: 60004588, SystemID: 30002510}

	itemTrit   = sde.Item{TypeID: 34, Name: "Tritanium", Volume: 0.01}
	itemRifter = sde.Item{TypeID: 587, Name: "Rifter", Volume: 2500}
)

// fixedCost charges the same transport for every haul.
type fixedCost struct {
	cost    float64
	minutes float64
	jumps   int
}

func (f fixedCost) Cost(req CostRequest) (Transport, error) {
	return Transport{Cost: f.cost, Minutes: f.minutes, Jumps: f.jumps, Strategy: "fixed"}, nil
}

func sell(price float64, vol int64) MarketOrder {
	return MarketOrder{Price: price, VolumeRemain: vol, Side: SideSell, Issued: testNow.Add(-time.Hour)}
}

func buy(price float64, vol int64) MarketOrder {
	return MarketOrder{Price: price, VolumeRemain: vol, Side: SideBuy, Issued: testNow.Add(-time.Hour)}
}

// book builds Books from (hub, typeID) -> orders.
func book(entries map[BookKey][]MarketOrder) Books {
	out := make(Books)
	for key, orders := range entries {
		b := &OrderBook{}
		for _, o := range orders {
			o.TypeID = key.TypeID
			if o.Side == SideBuy {
				b.Buy = append(b.Buy, o)
			} else {
				b.Sell = append(b.Sell, o)
			}
		}
		out[key] = b
	}
	return out
}

func openPolicy() Policy {
	return Policy{MaxTradeSize: 5000, MinLotSize: 1, MarginAction: MarginOff}
}

// fakeSource serves canned pages per region.
type fakeSource struct {
	mu         sync.Mutex
	pages      map[int32][][]esi.MarketOrder
	fail       map[int32]error
	blockAfter int // pages beyond this block until the context ends
	calls      map[int32]int
}

func (f *fakeSource) RegionOrdersPage(ctx context.Context, regionID int32, page int) (esi.OrderPage, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[int32]int)
	}
	f.calls[regionID]++
	f.mu.Unlock()

	if err := f.fail[regionID]; err != nil {
		return esi.OrderPage{}, err
	}
	if f.blockAfter > 0 && page > f.blockAfter {
		<-ctx.Done()
		return esi.OrderPage{}, ctx.Err()
	}
	ps := f.pages[regionID]
	if page > len(ps) {
		return esi.OrderPage{}, esi.ErrNotFound
	}
	return esi.OrderPage{Orders: ps[page-1], Pages: len(ps)}, nil
}

func (f *fakeSource) callCount(regionID int32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[regionID]
}

// memSeen is an in-memory SeenStore.
type memSeen struct {
	fps       map[RouteKey]string
	err       error
	remembers int
}

func newMemSeen() *memSeen { return &memSeen{fps: make(map[RouteKey]string)} }

func (m *memSeen) Fingerprints(ctx context.Context, keys []RouteKey) (map[RouteKey]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[RouteKey]string)
	for _, k := range keys {
		if fp, ok := m.fps[k]; ok {
			out[k] = fp
		}
	}
	return out, nil
}

func (m *memSeen) Remember(ctx context.Context, entries []SeenEntry) error {
	if m.err != nil {
		return m.err
	}
	m.remembers++
	for _, e := range entries {
		m.fps[e.Key] = e.Fingerprint
	}
	return nil
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1e-6*max(1, abs(a), abs(b))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
