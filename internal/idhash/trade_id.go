package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-launch-sniper/internal/domain"
)

// ComputeTradeID computes a deterministic trade ID using SHA256.
// Formula: SHA256(side|signature)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(side domain.Side, signature string) string {
	data := fmt.Sprintf("%s|%s", side, signature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
