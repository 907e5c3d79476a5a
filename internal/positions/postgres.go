package positions

import (
	"context"
	"time"

	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, p model.Position) error {
	_, err := s.pool.Exec(ctx, "insert into positions (id, user_id, asset, side, margin, leverage, notional, entry_price, decimals, stop_loss, take_profit, liquidation_price, status, created_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)", p.ID, p.UserID, p.Asset, string(p.Side), p.Margin, p.Leverage, p.Notional, p.EntryPrice, p.Decimals, p.StopLoss, p.TakeProfit, p.LiquidationPrice, string(p.Status), p.CreatedAt)
	return err
}

func (s *PostgresStore) Close(ctx context.Context, id string, closePrice int64, pnl decimal.Decimal, reason types.CloseReason, closedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, "update positions set status = $1, close_price = $2, pnl = $3, close_reason = $4, closed_at = $5 where id = $6 and status = $7", string(types.PositionStatusClosed), closePrice, pnl, string(reason), closedAt, id, string(types.PositionStatusOpen))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, status types.PositionStatus) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, "select id, user_id, asset, side, margin, leverage, notional, entry_price, decimals, stop_loss, take_profit, liquidation_price, close_price, pnl, coalesce(close_reason, ''), status, created_at, closed_at from positions where user_id = $1 and status = $2 order by created_at desc", userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, "select id, user_id, asset, side, margin, leverage, notional, entry_price, decimals, stop_loss, take_profit, liquidation_price, close_price, pnl, coalesce(close_reason, ''), status, created_at, closed_at from positions where status = $1 order by created_at asc", string(types.PositionStatusOpen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]model.Position, error) {
	var out []model.Position
	for rows.Next() {
		var p model.Position
		var side, reason, status string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Asset, &side, &p.Margin, &p.Leverage, &p.Notional, &p.EntryPrice, &p.Decimals, &p.StopLoss, &p.TakeProfit, &p.LiquidationPrice, &p.ClosePrice, &p.PnL, &reason, &status, &p.CreatedAt, &p.ClosedAt); err != nil {
			return nil, err
		}
		p.Side = types.Side(side)
		p.CloseReason = types.CloseReason(reason)
		p.Status = types.PositionStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}
