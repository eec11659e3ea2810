package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	"solana-launch-sniper/internal/storage"
)

// TradeStore implements storage.TradeStore on SQLite.
type TradeStore struct {
	db  *DB
	now func() time.Time
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db, now: time.Now}
}

var _ storage.TradeStore = (*TradeStore)(nil)

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

// Insert adds a new trade. Returns ErrDuplicateKey if id or (side, signature) exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) (err error) {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}

	start := time.Now()
	defer func() { observability.RecordDBQuery("sqlite", "insert_trade", time.Since(start).Seconds(), err) }()

	row := toTradeRow(t)
	if err = s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// FetchTrades returns all trades ordered by ts, then id.
func (s *TradeStore) FetchTrades(ctx context.Context) ([]*domain.Trade, error) {
	var rows []tradeRow
	if err := s.db.WithContext(ctx).Order("ts ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	return tradesFromRows(rows), nil
}

// GetBySignature returns trades for a transaction signature.
func (s *TradeStore) GetBySignature(ctx context.Context, signature string) ([]*domain.Trade, error) {
	var rows []tradeRow
	err := s.db.WithContext(ctx).
		Where("signature = ?", signature).
		Order("ts ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get trades by signature: %w", err)
	}
	return tradesFromRows(rows), nil
}

func tradesFromRows(rows []tradeRow) []*domain.Trade {
	trades := make([]*domain.Trade, 0, len(rows))
	for _, r := range rows {
		trades = append(trades, r.toDomain())
	}
	return trades
}
