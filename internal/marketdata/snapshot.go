package marketdata

import (
	"sync"
	"time"
)

// PriceSnapshot is the canonical best-bid/best-offer derived from the last
// trade print. Price, BuyPrice and SellPrice are scaled integers: the true
// value is raw / 10^Decimals.
type PriceSnapshot struct {
	Symbol    string `json:"symbol"`
	Price     int64  `json:"price"`
	BuyPrice  int64  `json:"buyPrice"`
	SellPrice int64  `json:"sellPrice"`
	Decimals  int32  `json:"decimals"`
	Timestamp int64  `json:"timestamp"`
}

type snapshotEntry struct {
	snap      PriceSnapshot
	expiresAt time.Time
}

// SnapshotCache holds the latest snapshot per asset under key
// "price:<SYMBOL>". Entries are superseded by every write and expire after
// the TTL; a stale read is a miss, never a stale price.
type SnapshotCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]snapshotEntry
	now   func() time.Time
}

func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{ttl: ttl, items: make(map[string]snapshotEntry), now: time.Now}
}

func snapshotKey(symbol string) string {
	return "price:" + symbol
}

func (c *SnapshotCache) Set(snap PriceSnapshot) {
	c.mu.Lock()
	c.items[snapshotKey(snap.Symbol)] = snapshotEntry{snap: snap, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *SnapshotCache) Get(symbol string) (PriceSnapshot, bool) {
	c.mu.RLock()
	e, ok := c.items[snapshotKey(symbol)]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return PriceSnapshot{}, false
	}
	return e.snap, true
}

// All returns every fresh snapshot, used to replay state to new subscribers.
func (c *SnapshotCache) All() []PriceSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make([]PriceSnapshot, 0, len(c.items))
	for _, e := range c.items {
		if now.After(e.expiresAt) {
			continue
		}
		out = append(out, e.snap)
	}
	return out
}
