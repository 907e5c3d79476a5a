package marketdata

import (
	"errors"
	"sync/atomic"
	"time"

	"levtrade/internal/logger"

	"github.com/shopspring/decimal"
)

// maxPriceDecimals bounds the scale taken from a trade print; anything finer
// is a malformed payload, not a real market price.
const maxPriceDecimals = 18

var errBadPrint = errors.New("malformed trade print")

// TradePrint is one raw trade from the upstream feed. Price keeps its string
// form: the number of digits after the decimal point fixes the scale for the
// snapshot built from this print.
type TradePrint struct {
	Symbol string
	Price  string
	Qty    string
	Ts     int64
}

// Normalizer turns trade prints into two-sided PriceSnapshots by applying a
// fixed total spread (half on each side of the trade price) and publishes
// them to the bus and the snapshot cache. It is the only writer of an
// asset's snapshot.
type Normalizer struct {
	bus     *Bus
	cache   *SnapshotCache
	half    decimal.Decimal
	dropped atomic.Uint64
}

func NewNormalizer(bus *Bus, cache *SnapshotCache, spread decimal.Decimal) *Normalizer {
	return &Normalizer{bus: bus, cache: cache, half: spread.Div(decimal.NewFromInt(2))}
}

// OnTrade normalizes one print. Malformed prints are dropped and counted;
// they never stop the feed.
func (n *Normalizer) OnTrade(p TradePrint) {
	snap, err := n.normalize(p)
	if err != nil {
		n.dropped.Add(1)
		logger.Warn("dropped trade print for %q: %v (total dropped %d)", p.Symbol, err, n.dropped.Load())
		return
	}
	n.cache.Set(snap)
	n.bus.Publish(Event{Topic: PriceTopic(snap.Symbol), Data: snap})
}

func (n *Normalizer) Dropped() uint64 {
	return n.dropped.Load()
}

func (n *Normalizer) normalize(p TradePrint) (PriceSnapshot, error) {
	if p.Symbol == "" || p.Price == "" {
		return PriceSnapshot{}, errBadPrint
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil || !price.IsPositive() {
		return PriceSnapshot{}, errBadPrint
	}
	var decimals int32
	if price.Exponent() < 0 {
		decimals = -price.Exponent()
	}
	if decimals > maxPriceDecimals {
		return PriceSnapshot{}, errBadPrint
	}
	scaled := price.Shift(decimals).IntPart()
	one := decimal.NewFromInt(1)
	scaledD := decimal.NewFromInt(scaled)
	ask := scaledD.Mul(one.Add(n.half)).Round(0).IntPart()
	bid := scaledD.Mul(one.Sub(n.half)).Round(0).IntPart()
	if bid <= 0 || ask <= 0 {
		return PriceSnapshot{}, errBadPrint
	}
	ts := p.Ts
	if ts <= 0 {
		ts = time.Now().UnixMilli()
	}
	return PriceSnapshot{
		Symbol:    p.Symbol,
		Price:     scaled,
		BuyPrice:  ask,
		SellPrice: bid,
		Decimals:  decimals,
		Timestamp: ts,
	}, nil
}
