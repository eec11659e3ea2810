package domain

import (
	"github.com/gagliardetto/solana-go"
)

// LaunchKind identifies the program family that created a pool.
type LaunchKind string

const (
	LaunchKindRaydiumAMM  LaunchKind = "RAYDIUM_AMM"
	LaunchKindRaydiumCLMM LaunchKind = "RAYDIUM_CLMM"
	LaunchKindPumpFun     LaunchKind = "PUMP_FUN"
)

// LaunchKinds lists kinds in detection priority order.
var LaunchKinds = []LaunchKind{
	LaunchKindRaydiumAMM,
	LaunchKindRaydiumCLMM,
	LaunchKindPumpFun,
}

// Priority returns the kind's position in detection order (lower wins).
// Unknown kinds sort last.
func (k LaunchKind) Priority() int {
	for i, kind := range LaunchKinds {
		if kind == k {
			return i
		}
	}
	return len(LaunchKinds)
}

// Valid reports whether k is one of the known kinds.
func (k LaunchKind) Valid() bool {
	return k.Priority() < len(LaunchKinds)
}

// LaunchEvent is a classified pool-creation notification.
// Owned by the coordinator for a single iteration.
type LaunchEvent struct {
	Kind           LaunchKind
	Signature      string
	TokenMint      *solana.PublicKey // nil when not resolvable from the logs
	BaseIsSOL      bool
	DetectedAtSlot uint64
}

// HasMint reports whether the token mint was resolved.
// Events without a mint must never be dispatched.
func (e LaunchEvent) HasMint() bool {
	return e.TokenMint != nil && !e.TokenMint.IsZero()
}

// MintString returns the base58 mint or "" when unresolved.
func (e LaunchEvent) MintString() string {
	if !e.HasMint() {
		return ""
	}
	return e.TokenMint.String()
}
