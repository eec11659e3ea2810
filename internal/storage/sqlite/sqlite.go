// Package sqlite stores trades and positions in a local SQLite file through
// gorm, for single-host deployments without PostgreSQL.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solana-launch-sniper/internal/domain"
)

// DB wraps a gorm handle shared by the stores.
type DB struct {
	*gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.AutoMigrate(&tradeRow{}, &positionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &DB{DB: db}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Decimals are stored as TEXT: SQLite's NUMERIC affinity would round them to REAL.
type tradeRow struct {
	ID        string          `gorm:"primaryKey"`
	Ts        time.Time       `gorm:"index:idx_trades_ts"`
	Side      string          `gorm:"uniqueIndex:idx_trades_side_sig"`
	Mint      string          `gorm:"index"`
	Signature string          `gorm:"uniqueIndex:idx_trades_side_sig"`
	Qty       decimal.Decimal `gorm:"type:text"`
	PriceSOL  decimal.Decimal `gorm:"type:text"`
}

func (tradeRow) TableName() string { return "trades" }

func toTradeRow(t *domain.Trade) tradeRow {
	return tradeRow{
		ID:        t.ID,
		Ts:        t.Ts.UTC(),
		Side:      string(t.Side),
		Mint:      t.Mint,
		Signature: t.Signature,
		Qty:       t.Qty,
		PriceSOL:  t.PriceSOL,
	}
}

func (r tradeRow) toDomain() *domain.Trade {
	return &domain.Trade{
		ID:        r.ID,
		Ts:        r.Ts.UTC(),
		Side:      domain.Side(r.Side),
		Mint:      r.Mint,
		Signature: r.Signature,
		Qty:       r.Qty,
		PriceSOL:  r.PriceSOL,
	}
}

type positionRow struct {
	BuySig        string          `gorm:"primaryKey"`
	Mint          string          `gorm:"index"`
	BuyPrice      decimal.Decimal `gorm:"type:text"`
	AmountTokens  decimal.Decimal `gorm:"type:text"`
	OpenedAt      time.Time       `gorm:"index"`
	TakeProfitPct float64
	StopLossPct   float64
	MaxSeconds    int64
}

func (positionRow) TableName() string { return "positions" }

func toPositionRow(p *domain.Position) positionRow {
	return positionRow{
		BuySig:        p.BuySig,
		Mint:          p.Mint,
		BuyPrice:      p.BuyPrice,
		AmountTokens:  p.AmountTokens,
		OpenedAt:      p.OpenedAt.UTC(),
		TakeProfitPct: p.TakeProfitPct,
		StopLossPct:   p.StopLossPct,
		MaxSeconds:    p.MaxSeconds,
	}
}

func (r positionRow) toDomain() *domain.Position {
	return &domain.Position{
		Mint:          r.Mint,
		BuySig:        r.BuySig,
		BuyPrice:      r.BuyPrice,
		AmountTokens:  r.AmountTokens,
		OpenedAt:      r.OpenedAt.UTC(),
		TakeProfitPct: r.TakeProfitPct,
		StopLossPct:   r.StopLossPct,
		MaxSeconds:    r.MaxSeconds,
	}
}

// isDuplicateKeyError checks for a primary key or unique index violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
