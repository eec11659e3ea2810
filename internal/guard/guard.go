// Package guard rejects token mints whose authorities let the issuer freeze
// holders or inflate supply.
package guard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	chain "solana-launch-sniper/internal/solana"
)

// MintSize is the length of an SPL Token mint account without extensions.
const MintSize = 82

// Token-2022 shares the base mint layout.
var token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

var (
	ErrFreezeAuthority = errors.New("mint has a freeze authority")
	ErrMintAuthority   = errors.New("mint has a mint authority")
	ErrNotMint         = errors.New("account is not a token mint")
)

// AccountFetcher is the subset of the chain client used by the guard.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*chain.AccountInfo, error)
}

// MintGuard checks mint authorities before a buy is built.
type MintGuard struct {
	chain             AccountFetcher
	DenyFreeze        bool
	DenyMintAuthority bool
}

// New creates a MintGuard.
func New(fetcher AccountFetcher, denyFreeze, denyMintAuthority bool) *MintGuard {
	return &MintGuard{chain: fetcher, DenyFreeze: denyFreeze, DenyMintAuthority: denyMintAuthority}
}

// Enabled reports whether Check does any work.
func (g *MintGuard) Enabled() bool {
	return g != nil && (g.DenyFreeze || g.DenyMintAuthority)
}

// Check fetches the mint account and applies the configured rules.
func (g *MintGuard) Check(ctx context.Context, mint solana.PublicKey) error {
	if !g.Enabled() {
		return nil
	}

	info, err := g.chain.GetAccountInfo(ctx, mint.String())
	if err != nil {
		return fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if info == nil {
		return fmt.Errorf("mint %s: %w", mint, ErrNotMint)
	}

	owner, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil || !(owner.Equals(solana.TokenProgramID) || owner.Equals(token2022ProgramID)) {
		return fmt.Errorf("mint %s owned by %q: %w", mint, info.Owner, ErrNotMint)
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return fmt.Errorf("decode mint %s data: %w", mint, err)
	}

	m, err := DecodeMint(data)
	if err != nil {
		return fmt.Errorf("mint %s: %w", mint, err)
	}

	if g.DenyFreeze && m.FreezeAuthority != nil {
		return fmt.Errorf("%w: %s", ErrFreezeAuthority, m.FreezeAuthority)
	}
	if g.DenyMintAuthority && m.MintAuthority != nil {
		return fmt.Errorf("%w: %s", ErrMintAuthority, m.MintAuthority)
	}
	return nil
}

// DecodeMint parses the base SPL mint layout. Trailing extension bytes are ignored.
func DecodeMint(data []byte) (*token.Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrNotMint, len(data), MintSize)
	}

	var m token.Mint
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data[:MintSize])); err != nil {
		return nil, fmt.Errorf("decode mint layout: %w", err)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: not initialized", ErrNotMint)
	}
	return &m, nil
}
