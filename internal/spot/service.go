package spot

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
	ErrInvalidInput     = errors.New("invalid input")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrPersistence      = errors.New("failed to persist order")
)

type Service struct {
	ledger *balance.Service
	cache  *marketdata.SnapshotCache
	store  Store
}

func NewService(ledger *balance.Service, cache *marketdata.SnapshotCache, store Store) *Service {
	return &Service{ledger: ledger, cache: cache, store: store}
}

type TradeRequest struct {
	UserID string
	Asset  string
	Side   types.Side
	Qty    decimal.Decimal
}

// Trade fills a spot order at the current snapshot: buys at the ask, sells
// at the bid. Both balance legs move atomically, then the order is written
// to the durable store; a failed write reverses the ledger movement.
func (s *Service) Trade(ctx context.Context, req TradeRequest) (model.SpotOrder, error) {
	// Round the quantity up front so the order row, the quote amount and
	// the ledger movement all use the same value.
	qty := req.Qty.Round(s.ledger.AssetDecimals(req.Asset))
	if !req.Side.Valid() || !qty.IsPositive() {
		return model.SpotOrder{}, ErrInvalidInput
	}
	snap, ok := s.cache.Get(req.Asset)
	if !ok {
		return model.SpotOrder{}, fmt.Errorf("%w for %s", ErrPriceUnavailable, req.Asset)
	}
	price := snap.SellPrice
	if req.Side == types.SideBuy {
		price = snap.BuyPrice
	}
	priceD := decimal.New(price, -snap.Decimals)
	quote := qty.Mul(priceD).Round(s.ledger.QuoteDecimals())
	if !quote.IsPositive() {
		return model.SpotOrder{}, ErrInvalidInput
	}

	if err := s.ledger.ExecuteTrade(req.UserID, req.Asset, req.Side, qty, quote); err != nil {
		return model.SpotOrder{}, err
	}

	order := model.SpotOrder{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Asset:       req.Asset,
		Side:        req.Side,
		Qty:         qty,
		QuoteAmount: quote,
		Price:       price,
		Decimals:    snap.Decimals,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, order); err != nil {
		// Undo the fill by executing the opposite side at the same prices.
		reverse := types.SideSell
		if req.Side == types.SideSell {
			reverse = types.SideBuy
		}
		if rerr := s.ledger.ExecuteTrade(req.UserID, req.Asset, reverse, qty, quote); rerr != nil {
			logger.Error("failed to reverse spot fill for user %s: %v", req.UserID, rerr)
		}
		return model.SpotOrder{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]model.SpotOrder, error) {
	return s.store.ListByUser(ctx, userID)
}
