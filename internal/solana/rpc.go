package solana

import (
	"context"
	"time"
)

// ChainClient defines the Solana RPC calls used by the execution path.
type ChainClient interface {
	// GetLatestBlockhash fetches the most recent blockhash.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (*BlockhashResult, error)

	// SendTransaction submits a base64 encoded signed transaction and
	// returns the signature accepted by the node.
	SendTransaction(ctx context.Context, txBase64 string, opts SendOptions) (string, error)

	// GetSignatureStatuses returns one status per signature, nil for unknown.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetAccountInfo retrieves account info. Returns nil if account not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Confirmer waits for a submitted transaction to reach a commitment level.
type Confirmer interface {
	ConfirmTransaction(ctx context.Context, signature string, commitment Commitment, pollInterval time.Duration) error
}

// Commitment is a Solana commitment level.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Reached reports whether status level got reaches want.
func (c Commitment) Reached(got Commitment) bool {
	return commitmentRank(got) >= commitmentRank(c)
}

func commitmentRank(c Commitment) int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// SendOptions maps to the sendTransaction config object.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	MaxRetries          *uint
}

// BlockhashResult from getLatestBlockhash.
type BlockhashResult struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Slot                 uint64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus Commitment
}

// Failed reports whether the transaction landed with an error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}
