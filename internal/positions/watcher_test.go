package positions

import (
	"context"
	"testing"

	"levtrade/internal/marketdata"
	"levtrade/internal/types"

	"github.com/stretchr/testify/require"
)

func newWatcherFixture(t *testing.T) (*fixture, *Watcher) {
	t.Helper()
	f := newFixture()
	f.cache.Set(btcSnapshot())
	w := NewWatcher(f.svc, marketdata.NewBus(), f.live)
	return f, w
}

func snapAt(bid, ask int64) marketdata.PriceSnapshot {
	return marketdata.PriceSnapshot{
		Symbol:    "BTCUSD",
		Price:     (bid + ask) / 2,
		BuyPrice:  ask,
		SellPrice: bid,
		Decimals:  2,
	}
}

func TestWatcherLiquidatesBuyAtExactLevel(t *testing.T) {
	f, w := newWatcherFixture(t)
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	// Liquidation for this position is 4522500; the buy exits at the bid.
	w.Evaluate(context.Background(), snapAt(4522500, 4567725))

	require.Equal(t, 0, f.live.Len())
	pos, _ := f.store.Get(id)
	require.Equal(t, types.PositionStatusClosed, pos.Status)
	require.Equal(t, types.CloseReasonLiquidation, pos.CloseReason)
	// Exit exactly at liquidation loses exactly the margin.
	require.True(t, pos.PnL.Equal(d("-500")), "got %s", pos.PnL)
	require.True(t, f.usd("u1").Equal(d("4500")))
}

func TestWatcherIgnoresNonTriggeringPrices(t *testing.T) {
	f, w := newWatcherFixture(t)
	mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	// Bid 4522501 is one tick above liquidation.
	w.Evaluate(context.Background(), snapAt(4522501, 4567726))
	require.Equal(t, 1, f.live.Len())
}

func TestWatcherTakeProfit(t *testing.T) {
	f, w := newWatcherFixture(t)
	tp := d("51000")
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10, TakeProfit: &tp,
	})

	w.Evaluate(context.Background(), snapAt(5100000, 5151000))

	pos, _ := f.store.Get(id)
	require.Equal(t, types.CloseReasonTakeProfit, pos.CloseReason)
	// 5000 * (51000 - 50250) / 50250 = 74.63.
	require.True(t, pos.PnL.Equal(d("74.63")), "got %s", pos.PnL)
	require.True(t, f.usd("u1").Equal(d("5074.63")))
}

func TestWatcherStopLossBeatsLiquidation(t *testing.T) {
	f, w := newWatcherFixture(t)
	sl := d("46000")
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10, StopLoss: &sl,
	})

	// Bid 4500000 is through both the stop (4600000) and liquidation
	// (4522500); the stop wins.
	w.Evaluate(context.Background(), snapAt(4500000, 4545000))

	pos, _ := f.store.Get(id)
	require.Equal(t, types.CloseReasonStopLoss, pos.CloseReason)
}

func TestWatcherLiquidatesSell(t *testing.T) {
	f, w := newWatcherFixture(t)
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideSell,
		Margin: d("500"), Leverage: 10,
	})

	// Sell entry is 4975000, liquidation 5472500; the sell exits at the ask.
	w.Evaluate(context.Background(), snapAt(5418225, 5472500))

	pos, _ := f.store.Get(id)
	require.Equal(t, types.CloseReasonLiquidation, pos.CloseReason)
	require.True(t, pos.PnL.Equal(d("-500")), "got %s", pos.PnL)
}

func TestWatcherSellTakeProfitOnDrop(t *testing.T) {
	f, w := newWatcherFixture(t)
	tp := d("49000")
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideSell,
		Margin: d("500"), Leverage: 10, TakeProfit: &tp,
	})

	w.Evaluate(context.Background(), snapAt(4851000, 4900000))

	pos, _ := f.store.Get(id)
	require.Equal(t, types.CloseReasonTakeProfit, pos.CloseReason)
	require.True(t, pos.PnL.IsPositive())
}

func TestWatcherReplayIsNoOp(t *testing.T) {
	f, w := newWatcherFixture(t)
	mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	trigger := snapAt(4522500, 4567725)
	w.Evaluate(context.Background(), trigger)
	balanceAfter := f.usd("u1")

	// The same snapshot arriving again must not settle anything twice.
	w.Evaluate(context.Background(), trigger)
	require.True(t, f.usd("u1").Equal(balanceAfter))
}

func TestWatcherSkipsClaimedPositions(t *testing.T) {
	f, w := newWatcherFixture(t)
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	// A manual close claims the record before the watcher sees the trigger.
	_, ok := f.live.Remove(id)
	require.True(t, ok)
	balanceBefore := f.usd("u1")

	w.Evaluate(context.Background(), snapAt(4522500, 4567725))
	require.True(t, f.usd("u1").Equal(balanceBefore))
}

func TestWatcherRescalesToPinnedDecimals(t *testing.T) {
	f, w := newWatcherFixture(t)
	id := mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	// Three-decimal snapshot with true bid 45225.00, exactly the
	// liquidation level when rescaled to the position's two decimals.
	w.Evaluate(context.Background(), marketdata.PriceSnapshot{
		Symbol: "BTCUSD", Price: 45451125, BuyPrice: 45677250, SellPrice: 45225000, Decimals: 3,
	})

	pos, _ := f.store.Get(id)
	require.Equal(t, types.PositionStatusClosed, pos.Status)
	require.Equal(t, int64(4522500), *pos.ClosePrice)
}

func TestWatcherEvaluatesOnlyMatchingAsset(t *testing.T) {
	f, w := newWatcherFixture(t)
	mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	w.Evaluate(context.Background(), marketdata.PriceSnapshot{
		Symbol: "ETHUSD", Price: 100, BuyPrice: 101, SellPrice: 99, Decimals: 0,
	})
	require.Equal(t, 1, f.live.Len())
}

func TestWatcherSettlesAllTriggeredOnOneUpdate(t *testing.T) {
	f, w := newWatcherFixture(t)
	mustOpen(t, f, OpenRequest{
		UserID: "u1", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})
	mustOpen(t, f, OpenRequest{
		UserID: "u2", Asset: "BTCUSD", Side: types.SideBuy,
		Margin: d("500"), Leverage: 10,
	})

	w.Evaluate(context.Background(), snapAt(4522500, 4567725))

	require.Equal(t, 0, f.live.Len())
	require.True(t, f.usd("u1").Equal(d("4500")))
	require.True(t, f.usd("u2").Equal(d("4500")))
}
