package memory

import (
	"context"
	"sort"
	"sync"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by buy signature
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{data: make(map[string]*domain.Position)}
}

// Insert adds a position. Returns ErrDuplicateKey if buy_sig exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.BuySig == "" || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.BuySig]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *p
	s.data[p.BuySig] = &copy
	return nil
}

// GetByMint returns positions for mint ordered by opened_at.
func (s *PositionStore) GetByMint(_ context.Context, mint string) ([]*domain.Position, error) {
	return s.filter(func(p *domain.Position) bool { return p.Mint == mint }), nil
}

// GetAll returns all positions ordered by opened_at.
func (s *PositionStore) GetAll(_ context.Context) ([]*domain.Position, error) {
	return s.filter(func(*domain.Position) bool { return true }), nil
}

func (s *PositionStore) filter(keep func(*domain.Position) bool) []*domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if keep(p) {
			copy := *p
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OpenedAt.Equal(result[j].OpenedAt) {
			return result[i].OpenedAt.Before(result[j].OpenedAt)
		}
		return result[i].BuySig < result[j].BuySig
	})
	return result
}

var _ storage.PositionStore = (*PositionStore)(nil)
