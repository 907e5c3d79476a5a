package spot

import (
	"context"

	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, o model.SpotOrder) error {
	_, err := s.pool.Exec(ctx, "insert into spot_orders (id, user_id, asset, side, qty, quote_amount, price, decimals, created_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)", o.ID, o.UserID, o.Asset, string(o.Side), o.Qty, o.QuoteAmount, o.Price, o.Decimals, o.CreatedAt)
	return err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]model.SpotOrder, error) {
	rows, err := s.pool.Query(ctx, "select id, user_id, asset, side, qty, quote_amount, price, decimals, created_at from spot_orders where user_id = $1 order by created_at desc", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SpotOrder
	for rows.Next() {
		var o model.SpotOrder
		var side string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Asset, &side, &o.Qty, &o.QuoteAmount, &o.Price, &o.Decimals, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Side = types.Side(side)
		out = append(out, o)
	}
	return out, rows.Err()
}
