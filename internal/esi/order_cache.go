package esi

import (
	"sync"
	"time"
)

type pageKey struct {
	RegionID int32
	Page     int
}

type pageEntry struct {
	page    OrderPage
	expires time.Time
}

// PageCache is a thread-safe in-memory cache of region order pages,
// valid until the Expires time ESI sent with each page.
type PageCache struct {
	mu      sync.RWMutex
	entries map[pageKey]pageEntry
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{entries: make(map[pageKey]pageEntry)}
}

// Get returns a cached page that has not expired at now.
func (pc *PageCache) Get(regionID int32, page int, now time.Time) (OrderPage, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	e, ok := pc.entries[pageKey{regionID, page}]
	if !ok || !now.Before(e.expires) {
		return OrderPage{}, false
	}
	return e.page, true
}

// Put stores a page until expires.
func (pc *PageCache) Put(regionID int32, page int, p OrderPage, expires time.Time) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.entries[pageKey{regionID, page}] = pageEntry{page: p, expires: expires}
}

// Len returns the number of cached pages, expired ones included.
func (pc *PageCache) Len() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.entries)
}
