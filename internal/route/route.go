// Package route defines the swap instruction builders consumed by the
// coordinator. Concrete AMM and bonding-curve routes live outside this module.
package route

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var (
	// ErrRouteBuild wraps any builder failure surfaced to the coordinator.
	ErrRouteBuild = errors.New("route build failed")
	// ErrNotImplemented is returned by Unimplemented.
	ErrNotImplemented = errors.New("route not implemented")
)

// BuyBuilder produces the instructions that swap SOL into mint.
type BuyBuilder interface {
	BuildBuy(ctx context.Context, owner, mint solana.PublicKey, amountLamports uint64, slippageBps uint16) ([]solana.Instruction, error)
}

// SellBuilder produces the instructions that swap mint back into SOL.
type SellBuilder interface {
	BuildSell(ctx context.Context, owner, mint solana.PublicKey, amountTokens uint64, slippageBps uint16) ([]solana.Instruction, error)
}

// Func adapts a plain function to BuyBuilder.
type Func func(ctx context.Context, owner, mint solana.PublicKey, amountLamports uint64, slippageBps uint16) ([]solana.Instruction, error)

// BuildBuy calls f.
func (f Func) BuildBuy(ctx context.Context, owner, mint solana.PublicKey, amountLamports uint64, slippageBps uint16) ([]solana.Instruction, error) {
	return f(ctx, owner, mint, amountLamports, slippageBps)
}

// Unimplemented rejects every request.
type Unimplemented struct{}

var (
	_ BuyBuilder  = Unimplemented{}
	_ SellBuilder = Unimplemented{}
)

func (Unimplemented) BuildBuy(context.Context, solana.PublicKey, solana.PublicKey, uint64, uint16) ([]solana.Instruction, error) {
	return nil, ErrNotImplemented
}

func (Unimplemented) BuildSell(context.Context, solana.PublicKey, solana.PublicKey, uint64, uint16) ([]solana.Instruction, error) {
	return nil, ErrNotImplemented
}

// PriceQuoter reports the current SOL price of one token.
type PriceQuoter interface {
	QuoteSOLPerToken(ctx context.Context, mint solana.PublicKey) (decimal.Decimal, error)
}

// ZeroQuoter always quotes zero, marking the price as unknown.
type ZeroQuoter struct{}

func (ZeroQuoter) QuoteSOLPerToken(context.Context, solana.PublicKey) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
