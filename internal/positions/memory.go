package positions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps durable records in process memory. It backs DB-less runs
// and the tests; the interface contract matches PostgresStore.
type MemoryStore struct {
	mu        sync.Mutex
	positions map[string]model.Position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]model.Position)}
}

func (s *MemoryStore) Create(ctx context.Context, p model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.ID]; ok {
		return errors.New("duplicate position id")
	}
	s.positions[p.ID] = p
	return nil
}

func (s *MemoryStore) Close(ctx context.Context, id string, closePrice int64, pnl decimal.Decimal, reason types.CloseReason, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok || p.Status != types.PositionStatusOpen {
		return ErrNotFound
	}
	p.Status = types.PositionStatusClosed
	p.ClosePrice = &closePrice
	p.PnL = &pnl
	p.CloseReason = reason
	t := closedAt
	p.ClosedAt = &t
	s.positions[id] = p
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, status types.PositionStatus) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Position
	for _, p := range s.positions {
		if p.UserID == userID && p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListOpen(ctx context.Context) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Position
	for _, p := range s.positions {
		if p.Status == types.PositionStatusOpen {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get is a test helper; the service itself goes through List methods.
func (s *MemoryStore) Get(id string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	return p, ok
}
