package positions

import (
	"context"
	"time"

	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

// Store is the durable, authoritative record of every position. The live
// book is only a projection of the OPEN subset.
type Store interface {
	Create(ctx context.Context, p model.Position) error
	Close(ctx context.Context, id string, closePrice int64, pnl decimal.Decimal, reason types.CloseReason, closedAt time.Time) error
	ListByUser(ctx context.Context, userID string, status types.PositionStatus) ([]model.Position, error)
	ListOpen(ctx context.Context) ([]model.Position, error)
}
