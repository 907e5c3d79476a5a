package positions

import (
	"context"
	"sync"

	"levtrade/internal/logger"
	"levtrade/internal/marketdata"
	"levtrade/internal/types"
)

// Watcher evaluates every live position against incoming price snapshots
// and settles the ones whose triggers fire. A single bus consumer fans
// snapshots out to one worker per symbol: updates for the same asset are
// processed in arrival order while distinct assets proceed concurrently.
type Watcher struct {
	svc  *Service
	bus  *marketdata.Bus
	live *LiveBook

	mu      sync.Mutex
	workers map[string]chan marketdata.PriceSnapshot
	wg      sync.WaitGroup
}

func NewWatcher(svc *Service, bus *marketdata.Bus, live *LiveBook) *Watcher {
	return &Watcher{
		svc:     svc,
		bus:     bus,
		live:    live,
		workers: make(map[string]chan marketdata.PriceSnapshot),
	}
}

// Run consumes the price bus until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ch := w.bus.Subscribe()
	defer w.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			for _, wc := range w.workers {
				close(wc)
			}
			w.workers = nil
			w.mu.Unlock()
			w.wg.Wait()
			return
		case evt := <-ch:
			w.dispatch(ctx, evt.Data)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, snap marketdata.PriceSnapshot) {
	w.mu.Lock()
	if w.workers == nil {
		w.mu.Unlock()
		return
	}
	wc, ok := w.workers[snap.Symbol]
	if !ok {
		wc = make(chan marketdata.PriceSnapshot, 16)
		w.workers[snap.Symbol] = wc
		w.wg.Add(1)
		go w.work(ctx, wc)
	}
	w.mu.Unlock()

	// Blocking send keeps same-asset snapshots strictly ordered.
	select {
	case wc <- snap:
	case <-ctx.Done():
	}
}

func (w *Watcher) work(ctx context.Context, ch <-chan marketdata.PriceSnapshot) {
	defer w.wg.Done()
	for snap := range ch {
		w.Evaluate(ctx, snap)
	}
}

// Evaluate checks every live position on the snapshot's asset. Trigger
// precedence when several would fire on the same update is stop-loss,
// then take-profit, then liquidation; only the first match settles.
func (w *Watcher) Evaluate(ctx context.Context, snap marketdata.PriceSnapshot) {
	for _, id := range w.live.IDs(snap.Symbol) {
		rec, ok := w.live.Get(id)
		if !ok {
			continue
		}
		exit := rescale(exitPrice(rec.Side, snap), snap.Decimals, rec.Decimals)
		reason, fired := trigger(rec, exit)
		if !fired {
			continue
		}
		claimed, ok := w.live.Remove(id)
		if !ok {
			// Lost the claim to a manual close.
			continue
		}
		pnl, err := w.svc.settle(ctx, claimed, exit, reason)
		if err != nil {
			logger.Error("settlement of %s (%s) failed: %v", id, reason, err)
			continue
		}
		logger.Info("closed %s %s %s at %d (%s) pnl=%s",
			claimed.Side, claimed.Asset, id, exit, reason, pnl.String())
	}
}

// trigger reports whether the exit price fires one of the position's
// close conditions, and which.
func trigger(rec LiveRecord, exit int64) (types.CloseReason, bool) {
	if rec.Side == types.SideBuy {
		if rec.StopLoss != nil && exit <= *rec.StopLoss {
			return types.CloseReasonStopLoss, true
		}
		if rec.TakeProfit != nil && exit >= *rec.TakeProfit {
			return types.CloseReasonTakeProfit, true
		}
		if exit <= rec.LiquidationPrice {
			return types.CloseReasonLiquidation, true
		}
		return "", false
	}
	if rec.StopLoss != nil && exit >= *rec.StopLoss {
		return types.CloseReasonStopLoss, true
	}
	if rec.TakeProfit != nil && exit <= *rec.TakeProfit {
		return types.CloseReasonTakeProfit, true
	}
	if exit >= rec.LiquidationPrice {
		return types.CloseReasonLiquidation, true
	}
	return "", false
}
