package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	"solana-launch-sniper/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
	now  func() time.Time
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `id, ts, side, mint, signature, qty::text, price_sol::text`

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
	defer func() { observability.RecordDBQuery("postgres", "insert_trade", time.Since(start).Seconds(), err) }()

	query := `
		INSERT INTO trades (id, ts, side, mint, signature, qty, price_sol)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric)
	`

	_, err = s.pool.Exec(ctx, query,
		t.ID, t.Ts, string(t.Side), t.Mint, t.Signature, t.Qty.String(), t.PriceSOL.String(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// FetchTrades returns all trades ordered by ts, then id.
func (s *TradeStore) FetchTrades(ctx context.Context) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY ts ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetBySignature returns trades for a transaction signature.
func (s *TradeStore) GetBySignature(ctx context.Context, signature string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE signature = $1 ORDER BY ts ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get trades by signature: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans rows into trades. Numerics travel as text to keep full precision.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var (
			t          domain.Trade
			side       string
			qty, price string
		)
		if err := rows.Scan(&t.ID, &t.Ts, &side, &t.Mint, &t.Signature, &qty, &price); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.Side = domain.Side(side)
		t.Ts = t.Ts.UTC()
		var err error
		if t.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse qty %q: %w", qty, err)
		}
		if t.PriceSOL, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
