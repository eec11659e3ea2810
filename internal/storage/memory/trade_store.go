package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade ID
	now  func() time.Time
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
		now:  time.Now,
	}
}

// LogTrade records a trade stamped with the current time.
func (s *TradeStore) LogTrade(ctx context.Context, side domain.Side, mint, signature string, qty, priceSOL decimal.Decimal) (*domain.Trade, error) {
	t, err := storage.NewTrade(side, mint, signature, qty, priceSOL, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Insert adds a new trade. Returns ErrDuplicateKey if the ID exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// FetchTrades returns all trades ordered by ts, then ID.
func (s *TradeStore) FetchTrades(_ context.Context) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}
	sortTrades(result)
	return result, nil
}

// GetBySignature returns trades for a transaction signature.
func (s *TradeStore) GetBySignature(_ context.Context, signature string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Signature == signature {
			copy := *t
			result = append(result, &copy)
		}
	}
	sortTrades(result)
	return result, nil
}

func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].Ts.Equal(trades[j].Ts) {
			return trades[i].Ts.Before(trades[j].Ts)
		}
		return trades[i].ID < trades[j].ID
	})
}

var _ storage.TradeStore = (*TradeStore)(nil)
