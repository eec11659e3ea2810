// Package source turns the logsSubscribe stream into ordered LogEvents.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	chain "solana-launch-sniper/internal/solana"
)

var (
	// ErrSubscription means the log stream could not be established or was lost.
	ErrSubscription = errors.New("log subscription failed")

	// ErrDecode means a notification could not be turned into a LogEvent.
	ErrDecode = errors.New("malformed log notification")
)

// Options configures a Source.
type Options struct {
	Client chain.WSClient
	Filter chain.LogsFilter

	// KeepFailed forwards notifications for transactions that failed on-chain.
	KeepFailed bool

	Logger zerolog.Logger
}

// Source adapts a WSClient logs subscription into a LogEvent stream.
type Source struct {
	client     chain.WSClient
	filter     chain.LogsFilter
	keepFailed bool
	log        zerolog.Logger
}

// New creates a Source.
func New(opts Options) *Source {
	return &Source{
		client:     opts.Client,
		filter:     opts.Filter,
		keepFailed: opts.KeepFailed,
		log:        opts.Logger,
	}
}

// Events subscribes and starts forwarding decoded events in arrival order.
// The event channel closes when the subscription ends or ctx is done. The
// error channel carries at most one ErrSubscription and is then closed.
func (s *Source) Events(ctx context.Context) (<-chan domain.LogEvent, <-chan error, error) {
	notifs, err := s.client.SubscribeLogs(ctx, s.filter)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSubscription, err)
	}

	out := make(chan domain.LogEvent, 256)
	errs := make(chan error, 1)

	go s.forward(ctx, notifs, out, errs)

	return out, errs, nil
}

func (s *Source) forward(ctx context.Context, notifs <-chan chain.LogNotification, out chan<- domain.LogEvent, errs chan<- error) {
	defer close(out)
	defer close(errs)

	clientErrs := s.client.Errors()

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-clientErrs:
			if !ok {
				clientErrs = nil
				continue
			}
			errs <- fmt.Errorf("%w: %v", ErrSubscription, err)
			return

		case n, ok := <-notifs:
			if !ok {
				return
			}
			observability.RecordNotification()

			if n.Err != nil && !s.keepFailed {
				observability.RecordSkip("failed_tx")
				continue
			}

			ev, err := Decode(n)
			if err != nil {
				observability.RecordDecodeError()
				s.log.Debug().Err(err).Str("sig", n.Signature).Msg("skipping notification")
				continue
			}
			observability.UpdateHighestSlot(ev.Slot)

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Decode converts a raw notification into a LogEvent, deriving mentions from
// program invocation lines.
func Decode(n chain.LogNotification) (domain.LogEvent, error) {
	if n.Signature == "" {
		return domain.LogEvent{}, fmt.Errorf("%w: empty signature", ErrDecode)
	}

	mentions, known, err := InvokedPrograms(n.Logs)
	if err != nil {
		return domain.LogEvent{}, err
	}

	return domain.LogEvent{
		Signature:     n.Signature,
		Slot:          n.Slot,
		Logs:          n.Logs,
		Mentions:      mentions,
		MentionsKnown: known,
		Err:           n.Err,
	}, nil
}

// InvokedPrograms extracts program IDs from "Program <id> invoke [n]" lines,
// deduplicated in first-seen order. known is false when no such line exists.
func InvokedPrograms(logs []string) (programs []solana.PublicKey, known bool, err error) {
	seen := make(map[solana.PublicKey]struct{})

	for _, line := range logs {
		if !strings.HasPrefix(line, "Program ") || !strings.Contains(line, " invoke [") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != "invoke" {
			continue
		}

		raw, decErr := base58.Decode(fields[1])
		if decErr != nil || len(raw) != solana.PublicKeyLength {
			return nil, false, fmt.Errorf("%w: bad program id %q", ErrDecode, fields[1])
		}

		key := solana.PublicKeyFromBytes(raw)
		known = true
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		programs = append(programs, key)
	}

	return programs, known, nil
}
