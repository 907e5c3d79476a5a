package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"levtrade/internal/balance"
	"levtrade/internal/logger"
	"levtrade/internal/marketdata"
	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrPriceUnavailable  = errors.New("price unavailable")
	ErrInvalidRiskParams = errors.New("invalid stop-loss/take-profit")
	ErrPersistence       = errors.New("failed to persist position")
	ErrNotFound          = errors.New("position not found")
)

type Service struct {
	ledger *balance.Service
	cache  *marketdata.SnapshotCache
	store  Store
	live   *LiveBook
}

func NewService(ledger *balance.Service, cache *marketdata.SnapshotCache, store Store, live *LiveBook) *Service {
	return &Service{ledger: ledger, cache: cache, store: store, live: live}
}

type OpenRequest struct {
	UserID     string
	Asset      string
	Side       types.Side
	Margin     decimal.Decimal
	Leverage   int64
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}

// scaledToDecimal converts a scaled integer price to its true decimal value.
func scaledToDecimal(raw int64, decimals int32) decimal.Decimal {
	return decimal.New(raw, -decimals)
}

// toScaled converts a decimal price to a scaled integer, round half up.
func toScaled(price decimal.Decimal, decimals int32) int64 {
	return price.Shift(decimals).Round(0).IntPart()
}

// rescale moves a scaled price from one scale to another, round half up.
// Positions pin their decimals at open time, so every later comparison
// rescales the incoming snapshot price instead of trusting its scale.
func rescale(raw int64, from, to int32) int64 {
	if from == to {
		return raw
	}
	return decimal.New(raw, -from).Shift(to).Round(0).IntPart()
}

// entryPrice is the side the opener pays: a buy fills at the ask, a sell at
// the bid.
func entryPrice(side types.Side, snap marketdata.PriceSnapshot) int64 {
	if side == types.SideBuy {
		return snap.BuyPrice
	}
	return snap.SellPrice
}

// exitPrice is the opposite side, so the spread is paid on both legs.
func exitPrice(side types.Side, snap marketdata.PriceSnapshot) int64 {
	if side == types.SideBuy {
		return snap.SellPrice
	}
	return snap.BuyPrice
}

// Open validates a leverage request, reserves margin and writes both the
// durable record and the live projection. A failed durable write reverses
// the margin debit: margin gone with no tracked position must not happen.
func (s *Service) Open(ctx context.Context, req OpenRequest) (string, error) {
	// Margin is validated after rounding: a sub-cent value would round to
	// zero and make the notional zero.
	margin := req.Margin.Round(s.ledger.QuoteDecimals())
	if !req.Side.Valid() || req.Leverage < 1 || !margin.IsPositive() {
		return "", ErrInvalidInput
	}
	snap, ok := s.cache.Get(req.Asset)
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrPriceUnavailable, req.Asset)
	}

	entry := entryPrice(req.Side, snap)
	decimals := snap.Decimals
	notional := margin.Mul(decimal.NewFromInt(req.Leverage))

	// The price move that exactly exhausts margin: entry -/+ (margin/notional)*entry.
	marginRatio := margin.Div(notional)
	entryD := decimal.NewFromInt(entry)
	one := decimal.NewFromInt(1)
	var liquidation int64
	if req.Side == types.SideBuy {
		liquidation = entryD.Mul(one.Sub(marginRatio)).Round(0).IntPart()
	} else {
		liquidation = entryD.Mul(one.Add(marginRatio)).Round(0).IntPart()
	}

	var stopLoss, takeProfit *int64
	if req.StopLoss != nil {
		v := toScaled(*req.StopLoss, decimals)
		if v <= 0 {
			return "", ErrInvalidRiskParams
		}
		if req.Side == types.SideBuy && v >= entry {
			return "", ErrInvalidRiskParams
		}
		if req.Side == types.SideSell && v <= entry {
			return "", ErrInvalidRiskParams
		}
		stopLoss = &v
	}
	if req.TakeProfit != nil {
		v := toScaled(*req.TakeProfit, decimals)
		if v <= 0 {
			return "", ErrInvalidRiskParams
		}
		if req.Side == types.SideBuy && v <= entry {
			return "", ErrInvalidRiskParams
		}
		if req.Side == types.SideSell && v >= entry {
			return "", ErrInvalidRiskParams
		}
		takeProfit = &v
	}

	if err := s.ledger.Debit(req.UserID, s.ledger.QuoteSymbol(), margin); err != nil {
		return "", err
	}

	pos := model.Position{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		Asset:            req.Asset,
		Side:             req.Side,
		Margin:           margin,
		Leverage:         req.Leverage,
		Notional:         notional,
		EntryPrice:       entry,
		Decimals:         decimals,
		StopLoss:         stopLoss,
		TakeProfit:       takeProfit,
		LiquidationPrice: liquidation,
		Status:           types.PositionStatusOpen,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.Create(ctx, pos); err != nil {
		// Reverse the reservation before surfacing the failure.
		if cerr := s.ledger.Credit(req.UserID, s.ledger.QuoteSymbol(), margin); cerr != nil {
			logger.Error("failed to reverse margin debit for user %s: %v", req.UserID, cerr)
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.live.Put(liveFromPosition(pos))
	return pos.ID, nil
}

func liveFromPosition(p model.Position) LiveRecord {
	return LiveRecord{
		ID:               p.ID,
		UserID:           p.UserID,
		Asset:            p.Asset,
		Side:             p.Side,
		Margin:           p.Margin,
		Leverage:         p.Leverage,
		Notional:         p.Notional,
		EntryPrice:       p.EntryPrice,
		Decimals:         p.Decimals,
		StopLoss:         p.StopLoss,
		TakeProfit:       p.TakeProfit,
		LiquidationPrice: p.LiquidationPrice,
	}
}

// pnl is notional scaled by the relative price move, signed from the
// position's point of view and floored at -margin so the settlement credit
// is never negative.
func (s *Service) pnl(rec LiveRecord, exit int64) decimal.Decimal {
	entryD := scaledToDecimal(rec.EntryPrice, rec.Decimals)
	exitD := scaledToDecimal(exit, rec.Decimals)
	var ratio decimal.Decimal
	if rec.Side == types.SideBuy {
		ratio = exitD.Sub(entryD).Div(entryD)
	} else {
		ratio = entryD.Sub(exitD).Div(entryD)
	}
	out := rec.Notional.Mul(ratio).Round(s.ledger.QuoteDecimals())
	if floor := rec.Margin.Neg(); out.LessThan(floor) {
		out = floor
	}
	return out
}

// settle credits margin+pnl back to the owner and marks the durable record
// CLOSED. The caller must have claimed the live record first; the ledger
// credit therefore happens at most once per position.
func (s *Service) settle(ctx context.Context, rec LiveRecord, exit int64, reason types.CloseReason) (decimal.Decimal, error) {
	pnl := s.pnl(rec, exit)
	if err := s.ledger.Credit(rec.UserID, s.ledger.QuoteSymbol(), rec.Margin.Add(pnl)); err != nil {
		return pnl, err
	}
	// The live record is already claimed, so a failed durable write would
	// leave the row OPEN with no one left to close it. Retry once before
	// giving up.
	closedAt := time.Now().UTC()
	err := s.store.Close(ctx, rec.ID, exit, pnl, reason, closedAt)
	if err != nil {
		logger.Warn("durable close of %s failed, retrying: %v", rec.ID, err)
		err = s.store.Close(ctx, rec.ID, exit, pnl, reason, closedAt)
	}
	if err != nil {
		return pnl, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return pnl, nil
}

// Close is the manual close path: the owner exits at the current market
// price, paying the spread like any trigger would.
func (s *Service) Close(ctx context.Context, userID, id string) (decimal.Decimal, error) {
	rec, ok := s.live.Get(id)
	if !ok || rec.UserID != userID {
		return decimal.Zero, ErrNotFound
	}
	snap, haveSnap := s.cache.Get(rec.Asset)
	if !haveSnap {
		return decimal.Zero, fmt.Errorf("%w for %s", ErrPriceUnavailable, rec.Asset)
	}
	claimed, ok := s.live.Remove(id)
	if !ok {
		// A trigger settled it between our read and the claim.
		return decimal.Zero, ErrNotFound
	}
	exit := rescale(exitPrice(claimed.Side, snap), snap.Decimals, claimed.Decimals)
	pnl, err := s.settle(ctx, claimed, exit, types.CloseReasonManual)
	if err != nil {
		logger.Error("manual close of %s settled with error: %v", id, err)
	}
	return pnl, err
}

func (s *Service) ListOpen(ctx context.Context, userID string) ([]model.Position, error) {
	return s.store.ListByUser(ctx, userID, types.PositionStatusOpen)
}

func (s *Service) ListClosed(ctx context.Context, userID string) ([]model.Position, error) {
	return s.store.ListByUser(ctx, userID, types.PositionStatusClosed)
}

// Rehydrate rebuilds the live projection from the durable store, used at
// startup so open positions survive a restart of the tracking process.
func (s *Service) Rehydrate(ctx context.Context) error {
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return err
	}
	for _, p := range open {
		s.live.Put(liveFromPosition(p))
	}
	if len(open) > 0 {
		logger.Info("rehydrated %d open positions", len(open))
	}
	return nil
}
