// Package wallet loads the signing keypair.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrNoPath     = errors.New("wallet keypair path is empty")
	ErrInvalidKey = errors.New("invalid wallet keypair")
)

// Load reads a solana-keygen JSON keypair file.
func Load(path string) (solana.PrivateKey, error) {
	if path == "" {
		return nil, ErrNoPath
	}

	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}
	if err := Validate(key); err != nil {
		return nil, fmt.Errorf("keypair %s: %w", path, err)
	}
	return key, nil
}

// Validate checks that key is a 64-byte seed||pubkey pair whose public half
// is a valid curve point derived from the seed.
func Validate(key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidKey, len(key), ed25519.PrivateKeySize)
	}

	pub := key[32:]
	if !isOnCurve(pub) {
		return fmt.Errorf("%w: public key is not on the ed25519 curve", ErrInvalidKey)
	}

	derived := ed25519.NewKeyFromSeed(key[:32]).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, pub) {
		return fmt.Errorf("%w: public key does not match seed", ErrInvalidKey)
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
