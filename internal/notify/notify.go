// Package notify reports trades and dispatch failures to operators.
package notify

import (
	"solana-launch-sniper/internal/domain"
)

// Notifier receives coordinator reports. Implementations must not block.
type Notifier interface {
	TradeExecuted(t domain.Trade)
	// DispatchFailed reports a failed buy. sig is empty unless the
	// transaction was accepted by the node before the failure.
	DispatchFailed(ev domain.LaunchEvent, sig string, err error)
}

// Noop discards every report.
type Noop struct{}

func (Noop) TradeExecuted(domain.Trade)                        {}
func (Noop) DispatchFailed(domain.LaunchEvent, string, error) {}

var _ Notifier = Noop{}
