package domain

import "github.com/gagliardetto/solana-go"

// LogEvent is one logs notification as delivered by the subscription.
type LogEvent struct {
	Signature string
	Slot      uint64
	Logs      []string

	// Mentions holds programs/accounts referenced by the transaction.
	// Only meaningful when MentionsKnown is true.
	Mentions      []solana.PublicKey
	MentionsKnown bool

	Err interface{} // transaction error reported by the node, nil on success
}

// Mentioned reports whether key is among the event's mentions.
func (e LogEvent) Mentioned(key solana.PublicKey) bool {
	for _, m := range e.Mentions {
		if m.Equals(key) {
			return true
		}
	}
	return false
}
