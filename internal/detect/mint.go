package detect

import (
	"regexp"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// mintPattern matches "mint: <b58>", "mint=<b58>" and "Mint: <b58>" forms
// emitted by launch programs' log lines.
var mintPattern = regexp.MustCompile(`(?i)\bmint"?\s*[:=]\s*"?([1-9A-HJ-NP-Za-km-z]{32,44})`)

// ResolveMint returns the first non-WSOL mint found in the logs, or nil.
func ResolveMint(logs []string) *solana.PublicKey {
	for _, line := range logs {
		for _, m := range mintPattern.FindAllStringSubmatch(line, -1) {
			raw, err := base58.Decode(m[1])
			if err != nil || len(raw) != solana.PublicKeyLength {
				continue
			}
			pk := solana.PublicKeyFromBytes(raw)
			if pk.Equals(wsol) {
				continue
			}
			return &pk
		}
	}
	return nil
}
