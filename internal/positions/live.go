package positions

import (
	"sync"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

// LiveRecord is the fast-path projection of an open position: just the
// fields the watcher needs to decide a trigger and settle. It is derived
// from the durable record and rebuilt from it on restart.
type LiveRecord struct {
	ID               string
	UserID           string
	Asset            string
	Side             types.Side
	Margin           decimal.Decimal
	Leverage         int64
	Notional         decimal.Decimal
	EntryPrice       int64
	Decimals         int32
	StopLoss         *int64
	TakeProfit       *int64
	LiquidationPrice int64
}

// LiveBook holds live-tracking records keyed "position:<id>" and the
// per-asset membership sets keyed "openPositions:<asset>". Both structures
// change under one lock: an id is in its asset's set if and only if a live
// record exists for it.
type LiveBook struct {
	mu      sync.RWMutex
	records map[string]LiveRecord
	byAsset map[string]map[string]struct{}
}

func NewLiveBook() *LiveBook {
	return &LiveBook{
		records: make(map[string]LiveRecord),
		byAsset: make(map[string]map[string]struct{}),
	}
}

func recordKey(id string) string {
	return "position:" + id
}

func assetKey(asset string) string {
	return "openPositions:" + asset
}

func (b *LiveBook) Put(rec LiveRecord) {
	b.mu.Lock()
	b.records[recordKey(rec.ID)] = rec
	set, ok := b.byAsset[assetKey(rec.Asset)]
	if !ok {
		set = make(map[string]struct{})
		b.byAsset[assetKey(rec.Asset)] = set
	}
	set[rec.ID] = struct{}{}
	b.mu.Unlock()
}

func (b *LiveBook) Get(id string) (LiveRecord, bool) {
	b.mu.RLock()
	rec, ok := b.records[recordKey(id)]
	b.mu.RUnlock()
	return rec, ok
}

// IDs returns a snapshot of the open position ids for one asset.
func (b *LiveBook) IDs(asset string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set, ok := b.byAsset[assetKey(asset)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Remove claims a position for settlement: it deletes the record and its
// membership entry together and reports whether this caller removed it.
// Exactly one caller wins, which is what makes settlement at-most-once.
func (b *LiveBook) Remove(id string) (LiveRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[recordKey(id)]
	if !ok {
		return LiveRecord{}, false
	}
	delete(b.records, recordKey(id))
	if set, ok := b.byAsset[assetKey(rec.Asset)]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(b.byAsset, assetKey(rec.Asset))
		}
	}
	return rec, true
}

func (b *LiveBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}
