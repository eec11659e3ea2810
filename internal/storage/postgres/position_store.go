package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `buy_sig, mint, buy_price::text, amount_tokens::text, opened_at,
	take_profit_pct, stop_loss_pct, max_seconds`

// Insert adds a position. Returns ErrDuplicateKey if buy_sig exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.BuySig == "" || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (
			buy_sig, mint, buy_price, amount_tokens, opened_at,
			take_profit_pct, stop_loss_pct, max_seconds
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		p.BuySig, p.Mint, p.BuyPrice.String(), p.AmountTokens.String(), p.OpenedAt,
		p.TakeProfitPct, p.StopLossPct, p.MaxSeconds,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByMint returns positions for mint ordered by opened_at.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE mint = $1 ORDER BY opened_at ASC, buy_sig ASC`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get positions by mint: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetAll returns all positions ordered by opened_at.
func (s *PositionStore) GetAll(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY opened_at ASC, buy_sig ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		var (
			p             domain.Position
			price, amount string
		)
		err := rows.Scan(
			&p.BuySig, &p.Mint, &price, &amount, &p.OpenedAt,
			&p.TakeProfitPct, &p.StopLossPct, &p.MaxSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}

		p.OpenedAt = p.OpenedAt.UTC()
		if p.BuyPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse buy price %q: %w", price, err)
		}
		if p.AmountTokens, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		positions = append(positions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}
