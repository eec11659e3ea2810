package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/idhash"
)

// NewTrade validates the LogTrade arguments and builds the row to insert.
func NewTrade(side domain.Side, mint, signature string, qty, priceSOL decimal.Decimal, ts time.Time) (*domain.Trade, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidInput, side)
	}
	if mint == "" || signature == "" {
		return nil, fmt.Errorf("%w: mint and signature are required", ErrInvalidInput)
	}
	if qty.IsNegative() || priceSOL.IsNegative() {
		return nil, fmt.Errorf("%w: negative qty or price", ErrInvalidInput)
	}

	return &domain.Trade{
		ID:        idhash.ComputeTradeID(side, signature),
		Ts:        ts.UTC(),
		Side:      side,
		Mint:      mint,
		Signature: signature,
		Qty:       qty,
		PriceSOL:  priceSOL,
	}, nil
}

// ValidateTrade checks a trade passed to Insert.
func ValidateTrade(t *domain.Trade) error {
	if t == nil || t.ID == "" || t.Signature == "" || !t.Side.Valid() {
		return ErrInvalidInput
	}
	return nil
}
