// Package dispatch assembles, signs and submits transactions with
// compute-budget instructions prepended.
package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/rs/zerolog"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	chain "solana-launch-sniper/internal/solana"
)

// Error categories.
var (
	ErrSigning    = errors.New("signing failed")
	ErrSubmission = errors.New("submission failed")
)

// Mode selects the submission strategy.
type Mode string

const (
	// ModeFireAndForget skips preflight and returns once the node accepts the transaction.
	ModeFireAndForget Mode = "fire_and_forget"
	// ModeConfirm runs preflight and waits for processed commitment.
	ModeConfirm Mode = "confirm"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFireAndForget, ModeConfirm:
		return m, nil
	case "":
		return ModeFireAndForget, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q", s)
	}
}

// Stage identifies where a dispatch failed.
type Stage string

const (
	StageSign    Stage = "sign"
	StageSubmit  Stage = "submit"
	StageConfirm Stage = "confirm"
)

// Error carries the failing stage. Err already wraps ErrSigning or ErrSubmission.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, category, cause error) error {
	return &Error{Stage: stage, Err: fmt.Errorf("%w: %w", category, cause)}
}

// Submitter is the subset of the chain client used for submission.
type Submitter interface {
	SendTransaction(ctx context.Context, txBase64 string, opts chain.SendOptions) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, commitment chain.Commitment, pollInterval time.Duration) error
}

// Default dispatch parameters.
const (
	DefaultMaxRetries     uint = 3
	DefaultConfirmTimeout      = 30 * time.Second
)

// Options configures a Dispatcher.
type Options struct {
	MaxRetries     uint
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Logger         zerolog.Logger
}

// Dispatcher turns instructions into a submitted transaction.
type Dispatcher struct {
	chain Submitter
	opts  Options
}

// New creates a Dispatcher.
func New(submitter Submitter, opts Options) *Dispatcher {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = chain.DefaultPollInterval
	}
	return &Dispatcher{chain: submitter, opts: opts}
}

// Build prepends the compute-unit limit and price instructions to ixs,
// sets the signer as fee payer and signs.
func Build(signer solana.PrivateKey, ixs []solana.Instruction, hash solana.Hash, prio domain.PriorityConfig) (*solana.Transaction, error) {
	if len(signer) != 64 {
		return nil, stageError(StageSign, ErrSigning, errors.New("signer key must be 64 bytes"))
	}
	if hash == (solana.Hash{}) {
		return nil, stageError(StageSign, ErrSigning, errors.New("empty blockhash"))
	}

	all := make([]solana.Instruction, 0, len(ixs)+2)
	all = append(all,
		computebudget.NewSetComputeUnitLimitInstruction(prio.ComputeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(prio.MicroLamportsPerCU).Build(),
	)
	all = append(all, ixs...)

	payer := signer.PublicKey()
	tx, err := solana.NewTransaction(all, hash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, stageError(StageSign, ErrSigning, err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, stageError(StageSign, ErrSigning, err)
	}
	return tx, nil
}

// Dispatch builds, signs and submits a transaction. In ModeConfirm it also
// waits until the transaction reaches processed commitment.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	signer solana.PrivateKey,
	ixs []solana.Instruction,
	hash solana.Hash,
	prio domain.PriorityConfig,
	mode Mode,
) (solana.Signature, error) {
	start := time.Now()
	sig, err := d.dispatch(ctx, signer, ixs, hash, prio, mode)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordDispatch(string(mode), status, time.Since(start).Seconds())
	return sig, err
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	signer solana.PrivateKey,
	ixs []solana.Instruction,
	hash solana.Hash,
	prio domain.PriorityConfig,
	mode Mode,
) (solana.Signature, error) {
	tx, err := Build(signer, ixs, hash, prio)
	if err != nil {
		return solana.Signature{}, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, stageError(StageSign, ErrSigning, err)
	}
	sig := tx.Signatures[0]

	retries := d.opts.MaxRetries
	opts := chain.SendOptions{
		SkipPreflight:       mode != ModeConfirm,
		PreflightCommitment: chain.CommitmentProcessed,
		MaxRetries:          &retries,
	}

	nodeSig, err := d.chain.SendTransaction(ctx, base64.StdEncoding.EncodeToString(raw), opts)
	if err != nil {
		return solana.Signature{}, stageError(StageSubmit, ErrSubmission, err)
	}
	if nodeSig != sig.String() {
		d.opts.Logger.Warn().
			Str("sig", sig.String()).
			Str("node_sig", nodeSig).
			Msg("node returned a different signature")
	}

	if mode != ModeConfirm {
		return sig, nil
	}

	confirmCtx, cancel := context.WithTimeout(ctx, d.opts.ConfirmTimeout)
	defer cancel()
	if err := d.chain.ConfirmTransaction(confirmCtx, sig.String(), chain.CommitmentProcessed, d.opts.PollInterval); err != nil {
		return sig, stageError(StageConfirm, ErrSubmission, err)
	}
	return sig, nil
}
