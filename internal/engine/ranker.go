package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// RankBy selects the primary sort key.
type RankBy string

const (
	RankByNetProfit RankBy = "net_profit"
	RankByScore     RankBy = "score"
)

// SeenEntry records the fingerprint of a reported route.
type SeenEntry struct {
	Key         RouteKey
	Fingerprint string
}

// SeenStore remembers which routes were already reported.
type SeenStore interface {
	// Fingerprints returns the stored fingerprint for each known key.
	Fingerprints(ctx context.Context, keys []RouteKey) (map[RouteKey]string, error)
	Remember(ctx context.Context, entries []SeenEntry) error
}

// Fingerprint identifies the observable state of a route. A route whose
// fingerprint is unchanged since it was last reported is suppressed.
func Fingerprint(r Route) string {
	return fmt.Sprintf("%.2f|%.2f|%d", r.BuyPrice, r.SellPrice, r.Quantity)
}

// MemorySeenStore is a SeenStore that lives as long as the process.
// Repeated scans without a persistent store dedupe through it.
type MemorySeenStore struct {
	mu  sync.Mutex
	fps map[RouteKey]string
}

// NewMemorySeenStore returns an empty MemorySeenStore.
func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{fps: make(map[RouteKey]string)}
}

func (m *MemorySeenStore) Fingerprints(_ context.Context, keys []RouteKey) (map[RouteKey]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[RouteKey]string, len(keys))
	for _, k := range keys {
		if fp, ok := m.fps[k]; ok {
			out[k] = fp
		}
	}
	return out, nil
}

func (m *MemorySeenStore) Remember(_ context.Context, entries []SeenEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.fps[e.Key] = e.Fingerprint
	}
	return nil
}

// RankStats counts ranker outcomes.
type RankStats struct {
	Candidates int
	Suppressed int
	Truncated  int
	Reported   int
}

// Ranker sorts, dedupes and truncates opportunities.
type Ranker struct {
	by    RankBy
	topN  int
	store SeenStore
}

// NewRanker creates a Ranker. topN <= 0 keeps everything; store may be nil.
func NewRanker(by RankBy, topN int, store SeenStore) *Ranker {
	if by == "" {
		by = RankByNetProfit
	}
	return &Ranker{by: by, topN: topN, store: store}
}

// Rank orders opps in place and returns the reported slice. If the seen
// store fails, the sorted and truncated list is still returned together
// with the error.
func (r *Ranker) Rank(ctx context.Context, opps []Opportunity) ([]Opportunity, RankStats, error) {
	stats := RankStats{Candidates: len(opps)}
	SortOpportunities(opps, r.by)

	out := opps
	var storeErr error
	if r.store != nil && len(opps) > 0 {
		out, stats.Suppressed, storeErr = r.dedupe(ctx, opps)
	}

	if r.topN > 0 && len(out) > r.topN {
		stats.Truncated = len(out) - r.topN
		out = out[:r.topN]
	}

	if r.store != nil && storeErr == nil && len(out) > 0 {
		entries := make([]SeenEntry, len(out))
		for i, o := range out {
			entries[i] = SeenEntry{Key: o.Key(), Fingerprint: Fingerprint(o.Route)}
		}
		if err := r.store.Remember(ctx, entries); err != nil {
			storeErr = fmt.Errorf("remember reported routes: %w", err)
		}
	}

	stats.Reported = len(out)
	return out, stats, storeErr
}

func (r *Ranker) dedupe(ctx context.Context, opps []Opportunity) ([]Opportunity, int, error) {
	keys := make([]RouteKey, len(opps))
	for i, o := range opps {
		keys[i] = o.Key()
	}
	seen, err := r.store.Fingerprints(ctx, keys)
	if err != nil {
		return opps, 0, fmt.Errorf("load seen routes: %w", err)
	}
	out := make([]Opportunity, 0, len(opps))
	suppressed := 0
	for _, o := range opps {
		if fp, ok := seen[o.Key()]; ok && fp == Fingerprint(o.Route) {
			suppressed++
			continue
		}
		out = append(out, o)
	}
	return out, suppressed, nil
}

// SortOpportunities sorts by the primary key descending, the other key as
// tie-break, then by type ID and hub names ascending.
func SortOpportunities(opps []Opportunity, by RankBy) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		first, second := a.NetProfit-b.NetProfit, a.Score-b.Score
		if by == RankByScore {
			first, second = second, first
		}
		if first != 0 {
			return first > 0
		}
		if second != 0 {
			return second > 0
		}
		if a.Item.TypeID != b.Item.TypeID {
			return a.Item.TypeID < b.Item.TypeID
		}
		if a.BuyHub != b.BuyHub {
			return a.BuyHub < b.BuyHub
		}
		return a.SellHub < b.SellHub
	})
}
