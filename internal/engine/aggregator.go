package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"eve-hubarb/internal/esi"
	"eve-hubarb/internal/logger"
	"eve-hubarb/internal/sde"
)

// MarketSource is a paginated, read-only view of regional order books.
// *esi.Client implements it.
type MarketSource interface {
	RegionOrdersPage(ctx context.Context, regionID int32, page int) (esi.OrderPage, error)
}

// AggregatorConfig bounds the fetch phase.
type AggregatorConfig struct {
	FreshnessWindow time.Duration
	MaxPages        int           // page ceiling per hub
	Workers         int           // concurrent hub fetches; 0 = one per hub
	Timeout         time.Duration // wall-clock budget for the whole fetch phase; 0 = none
}

// HubFetch reports what one hub's fetch task did.
type HubFetch struct {
	Hub      string
	Pages    int
	Scanned  int // orders seen on all pages
	Retained int // fresh orders kept at the hub station
	Stale    int
	Invalid  int // non-positive price
	Partial  bool
	Err      error
	Elapsed  time.Duration
}

// Snapshot is the output of the fetch phase.
type Snapshot struct {
	Books     Books
	Fetches   []HubFetch
	FetchedAt time.Time
}

// Aggregator fetches and normalizes hub order books.
type Aggregator struct {
	src MarketSource
	cfg AggregatorConfig
	now func() time.Time
}

// NewAggregator creates an Aggregator. If now is nil, time.Now is used.
func NewAggregator(src MarketSource, cfg AggregatorConfig, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	return &Aggregator{src: src, cfg: cfg, now: now}
}

// Collect fetches every hub concurrently, one task per hub, and joins them
// before returning. A failed hub contributes no orders. When the timeout
// expires, in-flight tasks are cancelled and whatever pages were already
// read are kept.
func (a *Aggregator) Collect(ctx context.Context, hubs []sde.Hub, items []sde.Item) *Snapshot {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	wanted := make(map[int32]bool, len(items))
	for _, it := range items {
		wanted[it.TypeID] = true
	}
	now := a.now()

	books := make([]map[int32]*OrderBook, len(hubs))
	fetches := make([]HubFetch, len(hubs))

	var g errgroup.Group
	if a.cfg.Workers > 0 {
		g.SetLimit(a.cfg.Workers)
	}
	for i, hub := range hubs {
		g.Go(func() error {
			books[i], fetches[i] = a.fetchHub(ctx, hub, wanted, now)
			return nil
		})
	}
	g.Wait()

	snap := &Snapshot{Books: make(Books), Fetches: fetches, FetchedAt: now}
	for i, hub := range hubs {
		for typeID, book := range books[i] {
			snap.Books[BookKey{Hub: hub.Name, TypeID: typeID}] = book
		}
	}
	return snap
}

// fetchHub scans a hub's region page by page and keeps fresh orders for
// wanted items at the hub station.
func (a *Aggregator) fetchHub(ctx context.Context, hub sde.Hub, wanted map[int32]bool, now time.Time) (map[int32]*OrderBook, HubFetch) {
	start := time.Now()
	f := HubFetch{Hub: hub.Name}
	out := make(map[int32]*OrderBook)

	for page := 1; page <= a.cfg.MaxPages; page++ {
		p, err := a.src.RegionOrdersPage(ctx, hub.RegionID, page)
		if errors.Is(err, esi.ErrNotFound) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				f.Partial = true
				logger.Warn("FETCH", fmt.Sprintf("%s: fetch budget exhausted after %d pages", hub.Name, f.Pages))
				break
			}
			f.Err = fmt.Errorf("%w: hub %s: %v", ErrDataUnavailable, hub.Name, err)
			f.Elapsed = time.Since(start)
			logger.Warn("FETCH", f.Err.Error())
			return nil, f
		}
		f.Pages++
		if len(p.Orders) == 0 {
			break
		}
		for _, o := range p.Orders {
			f.Scanned++
			if o.LocationID != hub.StationID || !wanted[o.TypeID] {
				continue
			}
			if o.Price <= 0 {
				f.Invalid++
				continue
			}
			if err := checkFresh(o.Issued, now, a.cfg.FreshnessWindow); err != nil {
				f.Stale++
				continue
			}
			book := out[o.TypeID]
			if book == nil {
				book = &OrderBook{}
				out[o.TypeID] = book
			}
			mo := normalizeOrder(o)
			if mo.Side == SideBuy {
				book.Buy = append(book.Buy, mo)
			} else {
				book.Sell = append(book.Sell, mo)
			}
			f.Retained++
		}
		if p.Pages > 0 && page >= p.Pages {
			break
		}
	}

	f.Elapsed = time.Since(start)
	logger.Debug("FETCH", fmt.Sprintf("%s: %d pages, %d orders scanned, %d retained, %d stale",
		hub.Name, f.Pages, f.Scanned, f.Retained, f.Stale))
	return out, f
}

// checkFresh returns ErrStaleData unless now - issued < window.
// A zero window disables the check.
func checkFresh(issued, now time.Time, window time.Duration) error {
	if window <= 0 {
		return nil
	}
	if now.Sub(issued) >= window {
		return ErrStaleData
	}
	return nil
}

func normalizeOrder(o esi.MarketOrder) MarketOrder {
	side := SideSell
	if o.IsBuyOrder {
		side = SideBuy
	}
	return MarketOrder{
		TypeID:       o.TypeID,
		LocationID:   o.LocationID,
		Price:        o.Price,
		VolumeRemain: o.VolumeRemain,
		Side:         side,
		Issued:       o.Issued,
	}
}
