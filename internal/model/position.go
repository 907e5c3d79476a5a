package model

import (
	"time"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

// Position is the durable record of a leveraged trade. Price fields are
// scaled integers at Decimals, pinned when the position is opened; money
// fields are decimals in the quote currency.
type Position struct {
	ID               string                `json:"id"`
	UserID           string                `json:"user_id"`
	Asset            string                `json:"asset"`
	Side             types.Side            `json:"side"`
	Margin           decimal.Decimal       `json:"margin"`
	Leverage         int64                 `json:"leverage"`
	Notional         decimal.Decimal       `json:"notional"`
	EntryPrice       int64                 `json:"entry_price"`
	Decimals         int32                 `json:"decimals"`
	StopLoss         *int64                `json:"stop_loss"`
	TakeProfit       *int64                `json:"take_profit"`
	LiquidationPrice int64                 `json:"liquidation_price"`
	ClosePrice       *int64                `json:"close_price"`
	PnL              *decimal.Decimal      `json:"pnl"`
	CloseReason      types.CloseReason     `json:"close_reason,omitempty"`
	Status           types.PositionStatus  `json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
	ClosedAt         *time.Time            `json:"closed_at"`
}

type SpotOrder struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Asset       string          `json:"asset"`
	Side        types.Side      `json:"side"`
	Qty         decimal.Decimal `json:"qty"`
	QuoteAmount decimal.Decimal `json:"quote_amount"`
	Price       int64           `json:"price"`
	Decimals    int32           `json:"decimals"`
	CreatedAt   time.Time       `json:"created_at"`
}
