package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"eve-hubarb/internal/esi"
	"eve-hubarb/internal/sde"
)

func wireOrder(typeID int32, loc int64, price float64, vol int64, isBuy bool, age time.Duration) esi.MarketOrder {
	return esi.MarketOrder{TypeID: typeID, LocationID: loc, Price: price, VolumeRemain: vol, IsBuyOrder: isBuy, Issued: testNow.Add(-age)}
}

func newTestAggregator(src MarketSource, cfg AggregatorConfig) *Aggregator {
	if cfg.FreshnessWindow == 0 {
		cfg.FreshnessWindow = 12 * time.Hour
	}
	return NewAggregator(src, cfg, func() time.Time { return testNow })
}

func TestCollect_FiltersStationTypeAndFreshness(t *testing.T) {
	src := &fakeSource{pages: map[int32][][]esi.MarketOrder{
		hubJita.RegionID: {{
			wireOrder(34, hubJita.StationID, 5.50, 10000, false, time.Hour),
			wireOrder(34, hubJita.StationID, 4.00, 99999, false, 13*time.Hour), // stale but cheaper
			wireOrder(34, 60000001, 3.00, 500, false, time.Hour),             // other station
			wireOrder(99, hubJita.StationID, 1.00, 500, false, time.Hour),    // not requested
			wireOrder(34, hubJita.StationID, 0, 500, true, time.Hour),        // invalid price
			wireOrder(34, hubJita.StationID, 5.10, 300, true, time.Hour),
		}},
	}}
	a := newTestAggregator(src, AggregatorConfig{})
	snap := a.Collect(context.Background(), []sde.Hub{hubJita}, []sde.Item{itemTrit})

	b := snap.Books.Book("Jita", 34)
	if b == nil {
		t.Fatal("no book for Jita/34")
	}
	if len(b.Sell) != 1 || b.Sell[0].Price != 5.50 {
		t.Errorf("Sell = %+v, want single order at 5.50", b.Sell)
	}
	if len(b.Buy) != 1 || b.Buy[0].Price != 5.10 {
		t.Errorf("Buy = %+v, want single order at 5.10", b.Buy)
	}
	if snap.Books.Book("Jita", 99) != nil {
		t.Error("unrequested type retained")
	}
	f := snap.Fetches[0]
	if f.Scanned != 6 || f.Retained != 2 || f.Stale != 1 || f.Invalid != 1 {
		t.Errorf("fetch = %+v, want scanned 6 retained 2 stale 1 invalid 1", f)
	}
	if f.Err != nil || f.Partial {
		t.Errorf("fetch err=%v partial=%v", f.Err, f.Partial)
	}
}

func TestCollect_StaleOrderNeverPricesARoute(t *testing.T) {
	src := &fakeSource{pages: map[int32][][]esi.MarketOrder{
		hubJita.RegionID: {{
			wireOrder(34, hubJita.StationID, 5.50, 10000, false, time.Hour),
			wireOrder(34, hubJita.StationID, 1.00, 10000, false, 13*time.Hour),
		}},
		hubAmarr.RegionID: {{
			wireOrder(34, hubAmarr.StationID, 6.20, 8000, true, time.Hour),
			wireOrder(34, hubAmarr.StationID, 50.0, 8000, true, 13*time.Hour),
		}},
	}}
	hubs := []sde.Hub{hubJita, hubAmarr}
	items := []sde.Item{itemTrit}
	snap := newTestAggregator(src, AggregatorConfig{}).Collect(context.Background(), hubs, items)

	routes, _ := NewEvaluator(openPolicy(), fixedCost{}).Evaluate(snap.Books, hubs, items)
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(routes))
	}
	r := routes[0]
	if r.BuyPrice != 5.50 || r.SellPrice != 6.20 {
		t.Errorf("prices = %v/%v, want 5.50/6.20", r.BuyPrice, r.SellPrice)
	}
	if r.AvailableSell != 10000 || r.AvailableBuy != 8000 {
		t.Errorf("available = %d/%d, want 10000/8000", r.AvailableSell, r.AvailableBuy)
	}
}

func TestCollect_PaginatesUntilExhausted(t *testing.T) {
	src := &fakeSource{pages: map[int32][][]esi.MarketOrder{
		hubJita.RegionID: {
			{wireOrder(34, hubJita.StationID, 5, 10, false, time.Hour)},
			{wireOrder(34, hubJita.StationID, 6, 10, false, time.Hour)},
			{wireOrder(34, hubJita.StationID, 7, 10, false, time.Hour)},
		},
	}}
	snap := newTestAggregator(src, AggregatorConfig{}).Collect(context.Background(), []sde.Hub{hubJita}, []sde.Item{itemTrit})
	if got := len(snap.Books.Book("Jita", 34).Sell); got != 3 {
		t.Errorf("sell orders = %d, want 3", got)
	}
	if snap.Fetches[0].Pages != 3 {
		t.Errorf("Pages = %d, want 3", snap.Fetches[0].Pages)
	}
	if got := src.callCount(hubJita.RegionID); got != 3 {
		t.Errorf("calls = %d, want 3 (X-Pages stops the scan)", got)
	}
}

func TestCollect_MaxPagesCeiling(t *testing.T) {
	pages := make([][]esi.MarketOrder, 5)
	for i := range pages {
		pages[i] = []esi.MarketOrder{wireOrder(34, hubJita.StationID, float64(i+1), 10, false, time.Hour)}
	}
	src := &fakeSource{pages: map[int32][][]esi.MarketOrder{hubJita.RegionID: pages}}
	snap := newTestAggregator(src, AggregatorConfig{MaxPages: 2}).Collect(context.Background(), []sde.Hub{hubJita}, []sde.Item{itemTrit})
	if snap.Fetches[0].Pages != 2 {
		t.Errorf("Pages = %d, want 2", snap.Fetches[0].Pages)
	}
	if got := src.callCount(hubJita.RegionID); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestCollect_FailedHubIsContained(t *testing.T) {
	src := &fakeSource{
		pages: map[int32][][]esi.MarketOrder{
			hubJita.RegionID: {{wireOrder(34, hubJita.StationID, 5, 10, false, time.Hour)}},
		},
		fail: map[int32]error{hubAmarr.RegionID: errors.New("502 bad gateway")},
	}
	snap := newTestAggregator(src, AggregatorConfig{Workers: 1}).Collect(context.Background(), []sde.Hub{hubJita, hubAmarr}, []sde.Item{itemTrit})

	if snap.Books.Book("Jita", 34) == nil {
		t.Error("Jita book missing after Amarr failure")
	}
	if snap.Books.Book("Amarr", 34) != nil {
		t.Error("failed hub contributed orders")
	}
	if !errors.Is(snap.Fetches[1].Err, ErrDataUnavailable) {
		t.Errorf("Amarr err = %v, want ErrDataUnavailable", snap.Fetches[1].Err)
	}
	if snap.Fetches[0].Err != nil {
		t.Errorf("Jita err = %v, want nil", snap.Fetches[0].Err)
	}
}

func TestCollect_TimeoutKeepsPartialPages(t *testing.T) {
	src := &fakeSource{
		pages: map[int32][][]esi.MarketOrder{
			hubJita.RegionID: {
				{wireOrder(34, hubJita.StationID, 5, 10, false, time.Hour)},
				{wireOrder(34, hubJita.StationID, 6, 10, false, time.Hour)},
			},
		},
		blockAfter: 1,
	}
	a := newTestAggregator(src, AggregatorConfig{Timeout: 50 * time.Millisecond})
	snap := a.Collect(context.Background(), []sde.Hub{hubJita}, []sde.Item{itemTrit})

	f := snap.Fetches[0]
	if !f.Partial {
		t.Error("Partial = false, want true")
	}
	if f.Err != nil {
		t.Errorf("Err = %v, want nil", f.Err)
	}
	b := snap.Books.Book("Jita", 34)
	if b == nil || len(b.Sell) != 1 {
		t.Fatalf("book = %+v, want page 1 retained", b)
	}
}

func TestCheckFresh(t *testing.T) {
	window := 12 * time.Hour
	tests := []struct {
		age  time.Duration
		want error
	}{
		{time.Hour, nil},
		{12*time.Hour - time.Second, nil},
		{12 * time.Hour, ErrStaleData},
		{13 * time.Hour, ErrStaleData},
	}
	for _, tt := range tests {
		if got := checkFresh(testNow.Add(-tt.age), testNow, window); got != tt.want {
			t.Errorf("checkFresh(age=%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
	if err := checkFresh(testNow.Add(-1000*time.Hour), testNow, 0); err != nil {
		t.Errorf("zero window: %v, want nil", err)
	}
}
