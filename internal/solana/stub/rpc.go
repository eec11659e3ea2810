package stub

import (
	"context"
	"errors"
	"sync"
	"time"

	"solana-launch-sniper/internal/solana"
)

// ErrNotFound is returned when a scripted response is missing.
var ErrNotFound = errors.New("not found")

// ChainClient implements solana.ChainClient for testing.
// Responses are scripted through the exported fields; calls are recorded.
type ChainClient struct {
	mu sync.Mutex

	// Blockhashes are returned in order; the last one repeats.
	Blockhashes  []string
	BlockhashErr error
	blockhashIdx int

	// SendFunc overrides SendTransaction when set.
	SendFunc func(txBase64 string, opts solana.SendOptions) (string, error)
	SendErr  error

	// Statuses keyed by signature.
	Statuses  map[string]*solana.SignatureStatus
	StatusErr error

	Accounts map[string]*solana.AccountInfo

	// Call log
	BlockhashCalls int
	Sent           []SentTx
	AccountCalls   int
}

// SentTx records one SendTransaction call.
type SentTx struct {
	TxBase64 string
	Opts     solana.SendOptions
}

// NewChainClient creates a new stub chain client.
func NewChainClient() *ChainClient {
	return &ChainClient{
		Statuses: make(map[string]*solana.SignatureStatus),
		Accounts: make(map[string]*solana.AccountInfo),
	}
}

var _ solana.ChainClient = (*ChainClient)(nil)
var _ solana.Confirmer = (*ChainClient)(nil)

// GetLatestBlockhash returns the next scripted blockhash.
func (c *ChainClient) GetLatestBlockhash(_ context.Context, _ solana.Commitment) (*solana.BlockhashResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BlockhashCalls++
	if c.BlockhashErr != nil {
		return nil, c.BlockhashErr
	}
	if len(c.Blockhashes) == 0 {
		return nil, ErrNotFound
	}

	hash := c.Blockhashes[c.blockhashIdx]
	if c.blockhashIdx < len(c.Blockhashes)-1 {
		c.blockhashIdx++
	}
	return &solana.BlockhashResult{Blockhash: hash, LastValidBlockHeight: uint64(100 + c.BlockhashCalls)}, nil
}

// SetBlockhashErr changes the scripted blockhash error.
func (c *ChainClient) SetBlockhashErr(err error) {
	c.mu.Lock()
	c.BlockhashErr = err
	c.mu.Unlock()
}

// SendTransaction records the submission and returns SendFunc's result.
func (c *ChainClient) SendTransaction(_ context.Context, txBase64 string, opts solana.SendOptions) (string, error) {
	c.mu.Lock()
	c.Sent = append(c.Sent, SentTx{TxBase64: txBase64, Opts: opts})
	send, sendErr := c.SendFunc, c.SendErr
	c.mu.Unlock()

	if sendErr != nil {
		return "", sendErr
	}
	if send != nil {
		return send(txBase64, opts)
	}
	return "stub-signature", nil
}

// SentCount returns the number of SendTransaction calls.
func (c *ChainClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// SetStatus scripts the status for a signature.
func (c *ChainClient) SetStatus(signature string, st *solana.SignatureStatus) {
	c.mu.Lock()
	c.Statuses[signature] = st
	c.mu.Unlock()
}

// GetSignatureStatuses returns scripted statuses, nil for unknown.
func (c *ChainClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.StatusErr != nil {
		return nil, c.StatusErr
	}
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		out[i] = c.Statuses[sig]
	}
	return out, nil
}

// ConfirmTransaction polls the scripted statuses.
func (c *ChainClient) ConfirmTransaction(ctx context.Context, signature string, commitment solana.Commitment, pollInterval time.Duration) error {
	return solana.PollConfirmation(ctx, c, signature, commitment, pollInterval)
}

// GetAccountInfo returns a scripted account or nil.
func (c *ChainClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.AccountCalls++
	return c.Accounts[pubkey], nil
}
