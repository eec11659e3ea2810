package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// BlockhashSnapshot is a recent blockhash and the instant it was fetched.
type BlockhashSnapshot struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
	FetchedAt            time.Time
}

// IsZero reports whether the snapshot was never populated.
func (s BlockhashSnapshot) IsZero() bool {
	return s.Hash == (solana.Hash{})
}

// Age returns how long ago the snapshot was fetched.
func (s BlockhashSnapshot) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}
