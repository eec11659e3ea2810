package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-launch-sniper/internal/detect"
	"solana-launch-sniper/internal/dispatch"
	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/route"
	"solana-launch-sniper/internal/storage/memory"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

var (
	ammProgram = solana.MustPublicKeyFromBase58(detect.RaydiumAMMV4)
	testHash   = solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N")
)

type dispatchCall struct {
	ixs  []solana.Instruction
	hash solana.Hash
	prio domain.PriorityConfig
	mode dispatch.Mode
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
	delay time.Duration
	// acceptThenFail returns the signature together with err.
	acceptThenFail bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, _ solana.PrivateKey, ixs []solana.Instruction, hash solana.Hash, prio domain.PriorityConfig, mode dispatch.Mode) (solana.Signature, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return solana.Signature{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{ixs: ixs, hash: hash, prio: prio, mode: mode})
	var sig solana.Signature
	sig[0] = byte(len(f.calls))
	if f.err != nil {
		if f.acceptThenFail {
			return sig, f.err
		}
		return solana.Signature{}, f.err
	}
	return sig, nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBlockhash struct {
	snap  domain.BlockhashSnapshot
	stale bool
}

func (f fakeBlockhash) Read() domain.BlockhashSnapshot { return f.snap }
func (f fakeBlockhash) Stale(time.Time) bool           { return f.stale }

type fakeGuard struct{ err error }

func (f fakeGuard) Check(context.Context, solana.PublicKey) error { return f.err }

type fakeQuoter struct {
	price decimal.Decimal
	err   error
}

func (f fakeQuoter) QuoteSOLPerToken(context.Context, solana.PublicKey) (decimal.Decimal, error) {
	return f.price, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	trades   []domain.Trade
	fails    []error
	failSigs []string
}

func (f *fakeNotifier) TradeExecuted(t domain.Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, t)
}

func (f *fakeNotifier) DispatchFailed(_ domain.LaunchEvent, sig string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = append(f.fails, err)
	f.failSigs = append(f.failSigs, sig)
}

func okBuilder() route.BuyBuilder {
	return route.Func(func(_ context.Context, owner, mint solana.PublicKey, _ uint64, _ uint16) ([]solana.Instruction, error) {
		return []solana.Instruction{
			solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{solana.Meta(owner).SIGNER().WRITE(), solana.Meta(mint)}, []byte{1}),
		}, nil
	})
}

type harness struct {
	coord      *Coordinator
	dispatcher *fakeDispatcher
	trades     *memory.TradeStore
	positions  *memory.PositionStore
	journal    *memory.LaunchJournal
	notifier   *fakeNotifier
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	signer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	h := &harness{
		dispatcher: &fakeDispatcher{},
		trades:     memory.NewTradeStore(),
		positions:  memory.NewPositionStore(),
		journal:    memory.NewLaunchJournal(100),
		notifier:   &fakeNotifier{},
	}

	opts := Options{
		Detector:    detect.NewDetector(detect.Programs{AMM: &ammProgram}, detect.Options{}),
		Dispatcher:  h.dispatcher,
		Blockhash:   fakeBlockhash{snap: domain.BlockhashSnapshot{Hash: testHash, FetchedAt: time.Now()}},
		Signer:      signer,
		Trades:      h.trades,
		Builder:     okBuilder(),
		Positions:   h.positions,
		Journal:     h.journal,
		Notifier:    h.notifier,
		Priority:    domain.DefaultPriorityConfig(),
		Mode:        dispatch.ModeFireAndForget,
		BuyLamports: 500_000_000,
		BuySOL:      decimal.RequireFromString("0.5"),
		SlippageBps: 300,
		Logger:      zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}

	h.coord, err = New(opts)
	require.NoError(t, err)
	return h
}

func launchEvent(sig string, withMint bool) domain.LogEvent {
	logs := []string{"Program log: Instruction: Initialize2"}
	if withMint {
		logs = append(logs, "Program log: mint: "+testMint)
	}
	return domain.LogEvent{
		Signature:     sig,
		Slot:          100,
		Logs:          logs,
		Mentions:      []solana.PublicKey{ammProgram},
		MentionsKnown: true,
	}
}

func runEvents(t *testing.T, c *Coordinator, events ...domain.LogEvent) {
	t.Helper()
	ch := make(chan domain.LogEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	require.NoError(t, c.Run(context.Background(), ch))
}

func journalOutcomes(t *testing.T, j *memory.LaunchJournal) []domain.LaunchOutcome {
	t.Helper()
	recs, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	out := make([]domain.LaunchOutcome, len(recs))
	for i, r := range recs {
		out[i] = r.Outcome
	}
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector is required")
	assert.Contains(t, err.Error(), "signer is required")
}

func TestCoordinator_UnresolvedMintSkipsDispatch(t *testing.T) {
	h := newHarness(t, nil)

	runEvents(t, h.coord, launchEvent("SIG1", false))

	assert.Equal(t, 0, h.dispatcher.count())
	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)

	recs, err := h.journal.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.OutcomeSkippedNoMint, recs[0].Outcome)
	assert.Equal(t, "SIG1", recs[0].Signature)
	assert.Equal(t, uint64(100), recs[0].DetectedAtSlot)
	assert.Equal(t, domain.LaunchKindRaydiumAMM, recs[0].Kind)
	assert.Equal(t, int64(1), h.coord.Stats().SkippedNoMint)
}

func TestCoordinator_RouteErrorSkipsDispatch(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Builder = route.Unimplemented{}
	})

	runEvents(t, h.coord, launchEvent("SIG1", true), launchEvent("SIG2", true))

	assert.Equal(t, 0, h.dispatcher.count())
	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)

	recs, err := h.journal.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2, "loop continues after a route failure")
	for _, r := range recs {
		assert.Equal(t, domain.OutcomeRouteFailed, r.Outcome)
		assert.Contains(t, r.Error, route.ErrNotImplemented.Error())
	}
	assert.Equal(t, int64(2), h.coord.Stats().RouteFailed)
}

func TestCoordinator_FireAndForgetLogsOneBuy(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Quoter = fakeQuoter{price: decimal.RequireFromString("0.000001")}
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	require.Equal(t, 1, h.dispatcher.count())
	call := h.dispatcher.calls[0]
	assert.Equal(t, testHash, call.hash)
	assert.Equal(t, dispatch.ModeFireAndForget, call.mode)
	assert.Len(t, call.ixs, 1)

	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)

	var want solana.Signature
	want[0] = 1
	tr := trades[0]
	assert.Equal(t, domain.SideBuy, tr.Side)
	assert.Equal(t, want.String(), tr.Signature)
	assert.Equal(t, testMint, tr.Mint)
	assert.True(t, tr.Qty.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, tr.PriceSOL.Equal(decimal.RequireFromString("0.000001")))

	recs, err := h.journal.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.OutcomeDispatched, recs[0].Outcome)
	assert.Equal(t, want.String(), recs[0].DispatchSig)
	assert.Empty(t, recs[0].Error)

	assert.Len(t, h.notifier.trades, 1)

	positions, err := h.positions.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions, "positions are only opened in confirm mode")
}

func TestCoordinator_ConfirmModeOpensPosition(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Mode = dispatch.ModeConfirm
		o.Quoter = fakeQuoter{price: decimal.RequireFromString("0.001")}
		o.TakeProfitPct = 50
		o.StopLossPct = 20
		o.MaxSeconds = 600
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	require.Equal(t, 1, h.dispatcher.count())
	assert.Equal(t, dispatch.ModeConfirm, h.dispatcher.calls[0].mode)

	positions, err := h.positions.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, testMint, p.Mint)
	assert.True(t, p.AmountTokens.Equal(decimal.NewFromInt(500)), "0.5 SOL / 0.001 = 500 tokens, got %s", p.AmountTokens)
	assert.Equal(t, 50.0, p.TakeProfitPct)
	assert.Equal(t, 20.0, p.StopLossPct)
	assert.Equal(t, int64(600), p.MaxSeconds)
}

func TestCoordinator_UnknownPriceKeepsZeroAmount(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Mode = dispatch.ModeConfirm
		o.Quoter = fakeQuoter{err: errors.New("no pool state")}
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].PriceSOL.IsZero())

	positions, err := h.positions.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].AmountTokens.IsZero())
}

func TestCoordinator_DispatchFailureProducesNoTrade(t *testing.T) {
	dispatchErr := &dispatch.Error{Stage: dispatch.StageSubmit, Err: fmt.Errorf("%w: node unreachable", dispatch.ErrSubmission)}
	h := newHarness(t, nil)
	h.dispatcher.err = dispatchErr

	runEvents(t, h.coord, launchEvent("SIG1", true), launchEvent("SIG2", true))

	assert.Equal(t, 2, h.dispatcher.count(), "loop continues after a dispatch failure")
	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)

	assert.Equal(t, []domain.LaunchOutcome{domain.OutcomeDispatchFailed, domain.OutcomeDispatchFailed}, journalOutcomes(t, h.journal))
	require.Len(t, h.notifier.fails, 2)
	assert.ErrorIs(t, h.notifier.fails[0], dispatch.ErrSubmission)
	assert.Equal(t, int64(2), h.coord.Stats().DispatchFailed)
	assert.Equal(t, []string{"", ""}, h.notifier.failSigs)
}

func TestCoordinator_ConfirmFailureKeepsAcceptedSignature(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Mode = dispatch.ModeConfirm })
	h.dispatcher.err = &dispatch.Error{Stage: dispatch.StageConfirm, Err: fmt.Errorf("%w: confirmation timeout", dispatch.ErrSubmission)}
	h.dispatcher.acceptThenFail = true

	runEvents(t, h.coord, launchEvent("SIG1", true))

	var accepted solana.Signature
	accepted[0] = 1

	records, err := h.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.OutcomeDispatchFailed, records[0].Outcome)
	assert.Equal(t, accepted.String(), records[0].DispatchSig)
	assert.Contains(t, records[0].Error, "confirmation timeout")

	require.Len(t, h.notifier.failSigs, 1)
	assert.Equal(t, accepted.String(), h.notifier.failSigs[0])

	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestCoordinator_DuplicateSignatureDispatchedOnce(t *testing.T) {
	h := newHarness(t, nil)

	runEvents(t, h.coord,
		launchEvent("SIG1", true),
		launchEvent("SIG1", true),
		launchEvent("SIG1", true),
	)

	assert.Equal(t, 1, h.dispatcher.count())
	trades, err := h.trades.FetchTrades(context.Background())
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	stats := h.coord.Stats()
	assert.Equal(t, int64(3), stats.Received)
	assert.Equal(t, int64(1), stats.Detected)
	assert.Equal(t, int64(2), stats.Duplicates)
}

func TestCoordinator_NonLaunchIgnored(t *testing.T) {
	h := newHarness(t, nil)

	ev := domain.LogEvent{
		Signature:     "SIG1",
		Logs:          []string{"Program log: Instruction: Swap"},
		Mentions:      []solana.PublicKey{ammProgram},
		MentionsKnown: true,
	}
	runEvents(t, h.coord, ev)

	assert.Equal(t, 0, h.dispatcher.count())
	assert.Empty(t, journalOutcomes(t, h.journal))
	assert.Equal(t, int64(1), h.coord.Stats().Received)
	assert.Equal(t, int64(0), h.coord.Stats().Detected)
}

func TestCoordinator_GuardRejects(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Guard = fakeGuard{err: errors.New("freeze authority set")}
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	assert.Equal(t, 0, h.dispatcher.count())
	assert.Equal(t, []domain.LaunchOutcome{domain.OutcomeGuardRejected}, journalOutcomes(t, h.journal))
}

func TestCoordinator_DryRunBuildsButNeverDispatches(t *testing.T) {
	built := 0
	h := newHarness(t, func(o *Options) {
		o.DryRun = true
		o.Builder = route.Func(func(context.Context, solana.PublicKey, solana.PublicKey, uint64, uint16) ([]solana.Instruction, error) {
			built++
			return nil, nil
		})
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	assert.Equal(t, 1, built)
	assert.Equal(t, 0, h.dispatcher.count())
	assert.Equal(t, []domain.LaunchOutcome{domain.OutcomeDryRun}, journalOutcomes(t, h.journal))
}

func TestCoordinator_BuilderReceivesTradeParameters(t *testing.T) {
	var gotOwner, gotMint solana.PublicKey
	var gotAmount uint64
	var gotSlippage uint16

	h := newHarness(t, func(o *Options) {
		o.Builder = route.Func(func(_ context.Context, owner, mint solana.PublicKey, amount uint64, slippage uint16) ([]solana.Instruction, error) {
			gotOwner, gotMint, gotAmount, gotSlippage = owner, mint, amount, slippage
			return nil, nil
		})
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	assert.Equal(t, h.coord.opts.Signer.PublicKey(), gotOwner)
	assert.Equal(t, testMint, gotMint.String())
	assert.Equal(t, uint64(500_000_000), gotAmount)
	assert.Equal(t, uint16(300), gotSlippage)
}

func TestCoordinator_StaleBlockhashStillDispatches(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Blockhash = fakeBlockhash{
			snap:  domain.BlockhashSnapshot{Hash: testHash, FetchedAt: time.Now().Add(-time.Minute)},
			stale: true,
		}
	})

	runEvents(t, h.coord, launchEvent("SIG1", true))

	assert.Equal(t, 1, h.dispatcher.count())
}

func TestCoordinator_WorkerPool(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Workers = 4
	})
	h.dispatcher.delay = 20 * time.Millisecond

	events := make([]domain.LogEvent, 0, 8)
	for i := 0; i < 8; i++ {
		events = append(events, launchEvent(fmt.Sprintf("SIG%d", i), true))
	}

	start := time.Now()
	runEvents(t, h.coord, events...)
	elapsed := time.Since(start)

	assert.Equal(t, 8, h.dispatcher.count(), "Run waits for in-flight launches")
	assert.Less(t, elapsed, 8*h.dispatcher.delay, "launches should overlap")
	assert.Equal(t, int64(0), h.coord.Stats().InFlight)
}

func TestCoordinator_RunReturnsOnCancel(t *testing.T) {
	h := newHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan domain.LogEvent)
	done := make(chan error, 1)
	go func() { done <- h.coord.Run(ctx, events) }()

	events <- launchEvent("SIG1", true)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, h.dispatcher.count())
}
