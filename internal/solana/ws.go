package solana

import (
	"context"
	"errors"
)

// ErrConnectionLost is reported on Errors() when reconnecting gave up.
var ErrConnectionLost = errors.New("websocket connection lost")

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to transaction logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Errors reports unrecoverable connection failures.
	Errors() <-chan error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these addresses.
	// Empty subscribes to all transactions.
	Mentions []string

	// Commitment is sent only when non-empty, otherwise the node default applies.
	Commitment Commitment
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      uint64
	Logs      []string
	Err       interface{}
}
