package spot

import (
	"context"

	"levtrade/internal/model"
)

// Store persists executed spot orders. Orders are immutable once written.
type Store interface {
	Create(ctx context.Context, o model.SpotOrder) error
	ListByUser(ctx context.Context, userID string) ([]model.SpotOrder, error)
}
