package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is an executed action. Append-only: written once, never updated.
// Corresponds to the trades table.
type Trade struct {
	ID        string          // deterministic hash of side and signature
	Ts        time.Time       // time the trade was logged
	Side      Side            // BUY | SELL
	Mint      string          // token mint (base58)
	Signature string          // transaction signature (base58)
	Qty       decimal.Decimal // SOL spent for BUY, tokens for SELL
	PriceSOL  decimal.Decimal // SOL per token, zero when unknown
}

// NotionalSOL returns qty * price.
func (t Trade) NotionalSOL() decimal.Decimal {
	return t.Qty.Mul(t.PriceSOL)
}
