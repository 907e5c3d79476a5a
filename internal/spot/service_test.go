package spot

import (
	"context"
	"errors"
	"testing"
	"time"

	"levtrade/internal/balance"
	"levtrade/internal/marketdata"
	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger *balance.Service
	cache  *marketdata.SnapshotCache
	store  *MemoryStore
	svc    *Service
}

func newFixture() *fixture {
	f := &fixture{
		ledger: balance.NewService("USD", 2, decimal.NewFromInt(5000)),
		cache:  marketdata.NewSnapshotCache(time.Minute),
		store:  NewMemoryStore(),
	}
	f.svc = NewService(f.ledger, f.cache, f.store)
	f.cache.Set(marketdata.PriceSnapshot{
		Symbol:    "BTCUSD",
		Price:     5000000,
		BuyPrice:  5025000,
		SellPrice: 4975000,
		Decimals:  2,
	})
	return f
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuyFillsAtAsk(t *testing.T) {
	f := newFixture()

	order, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0.01"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(5025000), order.Price)
	// 0.01 * 50250 = 502.50.
	require.True(t, order.QuoteAmount.Equal(d("502.50")))

	acc := f.ledger.Get("u1")
	require.True(t, acc.Assets["USD"].Qty.Equal(d("4497.50")))
	require.True(t, acc.Assets["BTCUSD"].Qty.Equal(d("0.01")))
}

func TestSellFillsAtBid(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.ledger.Credit("u1", "BTCUSD", d("0.02")))

	order, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideSell, Qty: d("0.02"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(4975000), order.Price)
	// 0.02 * 49750 = 995.00.
	require.True(t, order.QuoteAmount.Equal(d("995")))

	acc := f.ledger.Get("u1")
	require.True(t, acc.Assets["USD"].Qty.Equal(d("5995")))
	require.True(t, acc.Assets["BTCUSD"].Qty.IsZero())
}

func TestQuoteAmountRoundsHalfUp(t *testing.T) {
	f := newFixture()

	// 0.0001 * 50250 = 5.025, rounds to 5.03 at two decimals.
	order, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0.0001"),
	})
	require.NoError(t, err)
	require.True(t, order.QuoteAmount.Equal(d("5.03")), "got %s", order.QuoteAmount)
}

func TestOrderRecordsQtyTheLedgerMoved(t *testing.T) {
	f := newFixture()

	// Nine decimals round half up to the ledger's eight; the order row must
	// carry the rounded quantity, not the caller's raw one.
	order, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0.012345678"),
	})
	require.NoError(t, err)
	require.True(t, order.Qty.Equal(d("0.01234568")), "got %s", order.Qty)
	require.True(t, f.ledger.Get("u1").Assets["BTCUSD"].Qty.Equal(order.Qty))
}

func TestQtyRoundingToZeroRejected(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0.000000001"),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTradeValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Trade(ctx, TradeRequest{UserID: "u1", Asset: "BTCUSD", Side: "hold", Qty: d("1")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Trade(ctx, TradeRequest{UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Trade(ctx, TradeRequest{UserID: "u1", Asset: "ETHUSD", Side: types.SideBuy, Qty: d("1")})
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestBuyBeyondBalanceFails(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("1"),
	})
	require.ErrorIs(t, err, balance.ErrInsufficientBalance)

	orders, err := f.svc.ListOrders(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, orders)
}

type failingStore struct {
	*MemoryStore
}

func (s *failingStore) Create(ctx context.Context, o model.SpotOrder) error {
	return errors.New("connection refused")
}

func TestTradeReversedWhenStoreFails(t *testing.T) {
	f := newFixture()
	f.svc = NewService(f.ledger, f.cache, &failingStore{NewMemoryStore()})

	_, err := f.svc.Trade(context.Background(), TradeRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0.01"),
	})
	require.ErrorIs(t, err, ErrPersistence)

	acc := f.ledger.Get("u1")
	require.True(t, acc.Assets["USD"].Qty.Equal(d("5000")))
	require.True(t, acc.Assets["BTCUSD"].Qty.IsZero())
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Trade(ctx, TradeRequest{UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy, Qty: d("0.01")})
	require.NoError(t, err)
	_, err = f.svc.Trade(ctx, TradeRequest{UserID: "u1", Asset: "BTCUSD", Side: types.SideSell, Qty: d("0.01")})
	require.NoError(t, err)

	orders, err := f.svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	other, err := f.svc.ListOrders(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, other)
}
