package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a read-only snapshot of a confirmed buy, handed to external
// exit logic. The core never mutates or closes a position.
type Position struct {
	Mint          string
	BuySig        string
	BuyPrice      decimal.Decimal // SOL per token
	AmountTokens  decimal.Decimal
	OpenedAt      time.Time
	TakeProfitPct float64
	StopLossPct   float64
	MaxSeconds    int64
}

// Expired reports whether the position outlived MaxSeconds.
// A non-positive MaxSeconds never expires.
func (p Position) Expired(now time.Time) bool {
	if p.MaxSeconds <= 0 {
		return false
	}
	return now.Sub(p.OpenedAt) >= time.Duration(p.MaxSeconds)*time.Second
}

// TakeProfitPrice returns the price at which take-profit triggers.
func (p Position) TakeProfitPrice() decimal.Decimal {
	return p.BuyPrice.Mul(decimal.NewFromFloat(1 + p.TakeProfitPct/100))
}

// StopLossPrice returns the price at which stop-loss triggers.
func (p Position) StopLossPrice() decimal.Decimal {
	return p.BuyPrice.Mul(decimal.NewFromFloat(1 - p.StopLossPct/100))
}
