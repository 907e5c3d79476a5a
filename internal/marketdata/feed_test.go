package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestFeed(symbols ...string) (*Feed, *SnapshotCache) {
	cache := NewSnapshotCache(30 * time.Second)
	n := NewNormalizer(NewBus(), cache, decimal.RequireFromString("0.01"))
	return NewFeed("wss://stream.example.com:9443", symbols, n), cache
}

func TestStreamURL(t *testing.T) {
	f, _ := newTestFeed("BTCUSD", "ETHUSD")
	require.Equal(t, "wss://stream.example.com:9443/stream?streams=btcusd@trade/ethusd@trade", f.streamURL())
}

func TestHandleMessageEnvelope(t *testing.T) {
	f, cache := newTestFeed("BTCUSD")

	f.handleMessage([]byte(`{"stream":"btcusd@trade","data":{"s":"btcusd","p":"50000.00","q":"0.5","T":1700000000000}}`))

	snap, ok := cache.Get("BTCUSD")
	require.True(t, ok)
	require.Equal(t, int64(5000000), snap.Price)
	require.Equal(t, int64(1700000000000), snap.Timestamp)
}

func TestHandleMessageBareTrade(t *testing.T) {
	f, cache := newTestFeed("ETHUSD")

	f.handleMessage([]byte(`{"s":"ETHUSD","p":"3000.00","q":"1","T":5}`))

	snap, ok := cache.Get("ETHUSD")
	require.True(t, ok)
	require.Equal(t, int64(300000), snap.Price)
}

func TestHandleMessageControlFrame(t *testing.T) {
	f, cache := newTestFeed("BTCUSD")

	// Subscription acks carry no symbol and are skipped.
	f.handleMessage([]byte(`{"result":null,"id":1}`))
	f.handleMessage([]byte(`not json at all`))

	require.Empty(t, cache.All())
}
