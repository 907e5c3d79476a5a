package spot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"levtrade/internal/model"
)

// MemoryStore keeps spot orders in process memory. Used when no database
// is configured, and by tests.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]model.SpotOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]model.SpotOrder)}
}

func (s *MemoryStore) Create(ctx context.Context, o model.SpotOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("duplicate spot order id %s", o.ID)
	}
	s.orders[o.ID] = o
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]model.SpotOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SpotOrder
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
