// Package coordinator binds detection to dispatch.
// Flow: receive → classify → resolve → guard → build → dispatch → report
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"solana-launch-sniper/internal/dispatch"
	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/notify"
	"solana-launch-sniper/internal/observability"
	"solana-launch-sniper/internal/route"
	"solana-launch-sniper/internal/storage"
)

// DefaultDedupSize bounds the set of remembered launch signatures.
const DefaultDedupSize = 4096

// ErrUnresolvedMint marks a launch whose token mint could not be resolved.
var ErrUnresolvedMint = errors.New("token mint unresolved")

// Classifier turns a notification into a launch event.
type Classifier interface {
	Process(ev domain.LogEvent, slot uint64) (domain.LaunchEvent, bool)
}

// Dispatcher signs and submits a transaction.
type Dispatcher interface {
	Dispatch(ctx context.Context, signer solana.PrivateKey, ixs []solana.Instruction, hash solana.Hash, prio domain.PriorityConfig, mode dispatch.Mode) (solana.Signature, error)
}

// BlockhashReader exposes the shared blockhash snapshot.
type BlockhashReader interface {
	Read() domain.BlockhashSnapshot
	Stale(now time.Time) bool
}

// MintChecker vetoes unsafe mints before a buy is built.
type MintChecker interface {
	Check(ctx context.Context, mint solana.PublicKey) error
}

// Options for creating a Coordinator.
type Options struct {
	// Required
	Detector   Classifier
	Dispatcher Dispatcher
	Blockhash  BlockhashReader
	Signer     solana.PrivateKey
	Trades     storage.TradeStore

	// Collaborators, all optional
	Builder   route.BuyBuilder  // default route.Unimplemented
	Quoter    route.PriceQuoter // default route.ZeroQuoter
	Guard     MintChecker
	Positions storage.PositionStore
	Journal   storage.LaunchJournal
	Notifier  notify.Notifier // default notify.Noop

	// Trade parameters
	Priority    domain.PriorityConfig
	Mode        dispatch.Mode
	BuyLamports uint64
	BuySOL      decimal.Decimal
	SlippageBps uint16

	// Exit parameters copied onto positions
	TakeProfitPct float64
	StopLossPct   float64
	MaxSeconds    int64

	Workers   int  // <= 1 processes launches sequentially
	DryRun    bool // stop after building, never dispatch
	DedupSize int

	Logger zerolog.Logger
}

// Stats is a point-in-time view of coordinator counters.
type Stats struct {
	Received       int64 `json:"received"`
	Detected       int64 `json:"detected"`
	Duplicates     int64 `json:"duplicates"`
	SkippedNoMint  int64 `json:"skipped_no_mint"`
	GuardRejected  int64 `json:"guard_rejected"`
	RouteFailed    int64 `json:"route_failed"`
	DryRun         int64 `json:"dry_run"`
	Dispatched     int64 `json:"dispatched"`
	DispatchFailed int64 `json:"dispatch_failed"`
	TradeLogFailed int64 `json:"trade_log_failed"`
	InFlight       int64 `json:"in_flight"`
}

type counters struct {
	received, detected, duplicates       atomic.Int64
	skippedNoMint, guardRejected         atomic.Int64
	routeFailed, dryRun                  atomic.Int64
	dispatched, dispatchFailed, logFails atomic.Int64
	inFlight                             atomic.Int64
}

// Coordinator runs the launch loop.
type Coordinator struct {
	opts  Options
	owner solana.PublicKey
	log   zerolog.Logger

	seen *lru.Cache[string, struct{}]
	sem  *semaphore.Weighted // nil when sequential
	wg   sync.WaitGroup

	stats counters

	now   func() time.Time
	newID func() string
}

// New validates opts and creates a Coordinator.
func New(opts Options) (*Coordinator, error) {
	var errs []error
	if opts.Detector == nil {
		errs = append(errs, errors.New("detector is required"))
	}
	if opts.Dispatcher == nil {
		errs = append(errs, errors.New("dispatcher is required"))
	}
	if opts.Blockhash == nil {
		errs = append(errs, errors.New("blockhash reader is required"))
	}
	if opts.Trades == nil {
		errs = append(errs, errors.New("trade store is required"))
	}
	if len(opts.Signer) != 64 {
		errs = append(errs, errors.New("signer is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	if opts.Builder == nil {
		opts.Builder = route.Unimplemented{}
	}
	if opts.Quoter == nil {
		opts.Quoter = route.ZeroQuoter{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Mode == "" {
		opts.Mode = dispatch.ModeFireAndForget
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = DefaultDedupSize
	}

	seen, err := lru.New[string, struct{}](opts.DedupSize)
	if err != nil {
		return nil, fmt.Errorf("coordinator: dedup cache: %w", err)
	}

	c := &Coordinator{
		opts:  opts,
		owner: opts.Signer.PublicKey(),
		log:   opts.Logger.With().Str("component", "coordinator").Logger(),
		seen:  seen,
		now:   time.Now,
		newID: uuid.NewString,
	}
	if opts.Workers > 1 {
		c.sem = semaphore.NewWeighted(int64(opts.Workers))
	}
	return c, nil
}

// Run consumes events until the stream closes (nil) or ctx is cancelled
// (ctx.Err()). In-flight launches finish before Run returns.
func (c *Coordinator) Run(ctx context.Context, events <-chan domain.LogEvent) error {
	defer c.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				c.log.Info().Msg("event stream closed")
				return nil
			}
			if err := c.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// handle classifies one notification and executes the launch, inline or on
// the worker pool. It only fails when ctx is cancelled while waiting for a slot.
func (c *Coordinator) handle(ctx context.Context, ev domain.LogEvent) error {
	c.stats.received.Add(1)

	launch, ok := c.opts.Detector.Process(ev, ev.Slot)
	if !ok {
		return nil
	}
	detectedAt := c.now()

	if seen, _ := c.seen.ContainsOrAdd(launch.Signature, struct{}{}); seen {
		c.stats.duplicates.Add(1)
		observability.RecordSkip("duplicate")
		c.log.Debug().Str("sig", launch.Signature).Msg("duplicate launch ignored")
		return nil
	}

	c.stats.detected.Add(1)
	observability.RecordDetection(string(launch.Kind))
	c.log.Info().
		Str("kind", string(launch.Kind)).
		Str("sig", launch.Signature).
		Uint64("slot", launch.DetectedAtSlot).
		Str("mint", launch.MintString()).
		Bool("base_is_sol", launch.BaseIsSOL).
		Msg("launch detected")

	if c.sem == nil {
		c.execute(ctx, launch, detectedAt)
		return nil
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.sem.Release(1)
		c.execute(ctx, launch, detectedAt)
	}()
	return nil
}

// execute runs resolve → guard → build → dispatch → report for one launch.
func (c *Coordinator) execute(ctx context.Context, launch domain.LaunchEvent, detectedAt time.Time) {
	c.stats.inFlight.Add(1)
	defer c.stats.inFlight.Add(-1)

	log := c.log.With().Str("sig", launch.Signature).Str("kind", string(launch.Kind)).Logger()

	if !launch.HasMint() {
		c.stats.skippedNoMint.Add(1)
		observability.RecordSkip("no_mint")
		log.Warn().Msg("mint unresolved, skipping dispatch")
		c.journal(ctx, launch, domain.OutcomeSkippedNoMint, "", ErrUnresolvedMint)
		return
	}
	mint := *launch.TokenMint
	log = log.With().Str("mint", mint.String()).Logger()

	if c.opts.Guard != nil {
		if err := c.opts.Guard.Check(ctx, mint); err != nil {
			c.stats.guardRejected.Add(1)
			observability.RecordSkip("guard")
			log.Warn().Err(err).Msg("mint rejected by guard")
			c.journal(ctx, launch, domain.OutcomeGuardRejected, "", err)
			return
		}
	}

	ixs, err := c.opts.Builder.BuildBuy(ctx, c.owner, mint, c.opts.BuyLamports, c.opts.SlippageBps)
	if err != nil {
		err = fmt.Errorf("%w: %w", route.ErrRouteBuild, err)
		c.stats.routeFailed.Add(1)
		observability.RecordSkip("route")
		log.Warn().Err(err).Msg("buy route failed")
		c.journal(ctx, launch, domain.OutcomeRouteFailed, "", err)
		return
	}

	if c.opts.DryRun {
		c.stats.dryRun.Add(1)
		observability.RecordSkip("dry_run")
		log.Info().Int("instructions", len(ixs)).Msg("dry run, not dispatching")
		c.journal(ctx, launch, domain.OutcomeDryRun, "", nil)
		return
	}

	snap := c.opts.Blockhash.Read()
	if c.opts.Blockhash.Stale(c.now()) {
		log.Warn().
			Dur("age", snap.Age(c.now())).
			Str("blockhash", snap.Hash.String()).
			Msg("dispatching with stale blockhash")
	}

	sig, err := c.opts.Dispatcher.Dispatch(ctx, c.opts.Signer, ixs, snap.Hash, c.opts.Priority, c.opts.Mode)
	observability.RecordDetectToDispatch(c.now().Sub(detectedAt).Seconds())
	if err != nil {
		// A confirm-stage failure still carries the accepted signature.
		var dispatchSig string
		if !sig.IsZero() {
			dispatchSig = sig.String()
		}
		c.stats.dispatchFailed.Add(1)
		log.Error().Err(err).Str("mode", string(c.opts.Mode)).Str("dispatch_sig", dispatchSig).Msg("dispatch failed")
		c.journal(ctx, launch, domain.OutcomeDispatchFailed, dispatchSig, err)
		c.opts.Notifier.DispatchFailed(launch, dispatchSig, err)
		return
	}

	c.stats.dispatched.Add(1)
	log.Info().Str("dispatch_sig", sig.String()).Str("mode", string(c.opts.Mode)).Msg("buy dispatched")
	c.report(ctx, log, launch, mint, sig)
}

// report records a successful buy. Store failures are logged but never undo
// the dispatch.
func (c *Coordinator) report(ctx context.Context, log zerolog.Logger, launch domain.LaunchEvent, mint solana.PublicKey, sig solana.Signature) {
	price, err := c.opts.Quoter.QuoteSOLPerToken(ctx, mint)
	if err != nil {
		log.Warn().Err(err).Msg("price quote failed, logging trade without price")
		price = decimal.Zero
	}

	var journalErr error
	trade, err := c.opts.Trades.LogTrade(ctx, domain.SideBuy, mint.String(), sig.String(), c.opts.BuySOL, price)
	if err != nil {
		c.stats.logFails.Add(1)
		journalErr = fmt.Errorf("log trade: %w", err)
		log.Error().Err(err).Str("dispatch_sig", sig.String()).Msg("failed to log trade")
	} else {
		observability.RecordTradeLogged(string(trade.Side))
		c.opts.Notifier.TradeExecuted(*trade)
	}

	if c.opts.Mode == dispatch.ModeConfirm && c.opts.Positions != nil {
		c.openPosition(ctx, log, mint, sig, price)
	}

	c.journal(ctx, launch, domain.OutcomeDispatched, sig.String(), journalErr)
}

func (c *Coordinator) openPosition(ctx context.Context, log zerolog.Logger, mint solana.PublicKey, sig solana.Signature, price decimal.Decimal) {
	amount := decimal.Zero
	if price.IsPositive() {
		amount = c.opts.BuySOL.Div(price)
	}

	pos := &domain.Position{
		Mint:          mint.String(),
		BuySig:        sig.String(),
		BuyPrice:      price,
		AmountTokens:  amount,
		OpenedAt:      c.now().UTC(),
		TakeProfitPct: c.opts.TakeProfitPct,
		StopLossPct:   c.opts.StopLossPct,
		MaxSeconds:    c.opts.MaxSeconds,
	}
	if err := c.opts.Positions.Insert(ctx, pos); err != nil {
		log.Error().Err(err).Msg("failed to open position")
		return
	}
	log.Info().Str("amount_tokens", amount.String()).Str("buy_price", price.String()).Msg("position opened")
}

func (c *Coordinator) journal(ctx context.Context, launch domain.LaunchEvent, outcome domain.LaunchOutcome, dispatchSig string, cause error) {
	if c.opts.Journal == nil {
		return
	}

	rec := &domain.LaunchRecord{
		ID:             c.newID(),
		Kind:           launch.Kind,
		Signature:      launch.Signature,
		Mint:           launch.MintString(),
		BaseIsSOL:      launch.BaseIsSOL,
		DetectedAtSlot: launch.DetectedAtSlot,
		Outcome:        outcome,
		DispatchSig:    dispatchSig,
		RecordedAt:     c.now().UTC(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}

	if err := c.opts.Journal.Record(ctx, rec); err != nil {
		c.log.Warn().Err(err).Str("sig", launch.Signature).Str("outcome", string(outcome)).Msg("failed to journal launch")
	}
}

// Stats returns a snapshot of the counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Received:       c.stats.received.Load(),
		Detected:       c.stats.detected.Load(),
		Duplicates:     c.stats.duplicates.Load(),
		SkippedNoMint:  c.stats.skippedNoMint.Load(),
		GuardRejected:  c.stats.guardRejected.Load(),
		RouteFailed:    c.stats.routeFailed.Load(),
		DryRun:         c.stats.dryRun.Load(),
		Dispatched:     c.stats.dispatched.Load(),
		DispatchFailed: c.stats.dispatchFailed.Load(),
		TradeLogFailed: c.stats.logFails.Load(),
		InFlight:       c.stats.inFlight.Load(),
	}
}

// Mode returns the configured dispatch mode.
func (c *Coordinator) Mode() dispatch.Mode {
	return c.opts.Mode
}
