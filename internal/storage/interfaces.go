package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
)

// TradeStore provides access to the append-only trades log.
type TradeStore interface {
	// LogTrade records an executed trade stamped with the current time.
	// Returns ErrDuplicateKey if the same side was already logged for signature.
	LogTrade(ctx context.Context, side domain.Side, mint, signature string, qty, priceSOL decimal.Decimal) (*domain.Trade, error)

	// Insert adds a fully populated trade. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// FetchTrades returns every trade ordered by ts ASC, id ASC.
	FetchTrades(ctx context.Context) ([]*domain.Trade, error)

	// GetBySignature returns trades for a transaction signature.
	GetBySignature(ctx context.Context, signature string) ([]*domain.Trade, error)
}

// PositionStore provides access to positions opened by confirmed buys.
type PositionStore interface {
	// Insert adds a position. Returns ErrDuplicateKey if buy_sig exists.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByMint returns positions for a mint ordered by opened_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Position, error)

	// GetAll returns all positions ordered by opened_at ASC.
	GetAll(ctx context.Context) ([]*domain.Position, error)
}

// LaunchJournal records what happened to every detected launch.
type LaunchJournal interface {
	// Record appends a journal row. Returns ErrInvalidInput without an ID.
	Record(ctx context.Context, r *domain.LaunchRecord) error

	// Recent returns at most limit rows, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.LaunchRecord, error)
}
