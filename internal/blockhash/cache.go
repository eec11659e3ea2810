// Package blockhash keeps a recent blockhash fresh for the dispatch path.
package blockhash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	chain "solana-launch-sniper/internal/solana"
)

// DefaultInterval is the refresh period.
const DefaultInterval = 3 * time.Second

// ErrRefresh wraps failures to fetch a new blockhash.
var ErrRefresh = errors.New("blockhash refresh failed")

// Fetcher is the subset of the chain client used by the cache.
type Fetcher interface {
	GetLatestBlockhash(ctx context.Context, commitment chain.Commitment) (*chain.BlockhashResult, error)
}

// Options configures a Cache.
type Options struct {
	Interval   time.Duration
	Commitment chain.Commitment // empty uses the node default
	Logger     zerolog.Logger

	// now is overridable in tests.
	now func() time.Time
}

// Status describes refresh health.
type Status struct {
	Snapshot         domain.BlockhashSnapshot
	Age              time.Duration
	Stale            bool
	LastError        string
	LastErrorAt      time.Time
	ConsecutiveFails int
}

// Cache holds the most recently fetched blockhash. Read never blocks on
// network I/O; only the refresher writes.
type Cache struct {
	fetcher    Fetcher
	interval   time.Duration
	commitment chain.Commitment
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	snapshot domain.BlockhashSnapshot

	statusMu         sync.Mutex
	lastErr          error
	lastErrAt        time.Time
	consecutiveFails int
}

// New creates an empty cache. Call Seed before serving reads.
func New(fetcher Fetcher, opts Options) *Cache {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Cache{
		fetcher:    fetcher,
		interval:   opts.Interval,
		commitment: opts.Commitment,
		log:        opts.Logger,
		now:        opts.now,
	}
}

// Read returns the latest committed snapshot.
func (c *Cache) Read() domain.BlockhashSnapshot {
	c.mu.RLock()
	s := c.snapshot
	c.mu.RUnlock()
	return s
}

// Interval returns the refresh period.
func (c *Cache) Interval() time.Duration {
	return c.interval
}

// Stale reports whether the snapshot is older than one refresh interval.
func (c *Cache) Stale(now time.Time) bool {
	s := c.Read()
	return s.IsZero() || s.Age(now) > c.interval
}

// Seed performs the initial fetch. The cache is unusable if it fails.
func (c *Cache) Seed(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Refresh fetches a new blockhash and replaces the snapshot on success.
// On failure the previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	res, err := c.fetcher.GetLatestBlockhash(ctx, c.commitment)
	if err == nil {
		var hash solana.Hash
		hash, err = solana.HashFromBase58(res.Blockhash)
		if err == nil {
			c.store(domain.BlockhashSnapshot{
				Hash:                 hash,
				LastValidBlockHeight: res.LastValidBlockHeight,
				FetchedAt:            c.now(),
			})
		} else {
			err = fmt.Errorf("decode blockhash %q: %w", res.Blockhash, err)
		}
	}

	observability.RecordRefresh(err)
	c.recordResult(err)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefresh, err)
	}
	return nil
}

func (c *Cache) store(s domain.BlockhashSnapshot) {
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
}

func (c *Cache) recordResult(err error) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	if err == nil {
		c.consecutiveFails = 0
		return
	}
	c.lastErr = err
	c.lastErrAt = c.now()
	c.consecutiveFails++
}

// Run refreshes on every tick until ctx is done. Failures are logged and
// never stop the loop.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn().Err(err).Msg("blockhash refresh failed, serving previous value")
			}
			now := c.now()
			observability.UpdateBlockhashAge(c.Read().Age(now).Seconds())
			if c.Stale(now) {
				c.log.Warn().Dur("age", c.Read().Age(now)).Msg("blockhash is stale")
			}
		}
	}
}

// Status returns a snapshot of refresh health.
func (c *Cache) Status() Status {
	s := c.Read()
	now := c.now()

	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	st := Status{
		Snapshot:         s,
		Age:              s.Age(now),
		Stale:            s.IsZero() || s.Age(now) > c.interval,
		LastErrorAt:      c.lastErrAt,
		ConsecutiveFails: c.consecutiveFails,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}
