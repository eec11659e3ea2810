// Package detect classifies log notifications as pool launches.
package detect

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	"solana-launch-sniper/internal/domain"
)

// Well-known mainnet program IDs.
const (
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCLMM  = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	PumpFun      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	WSOLMint     = "So11111111111111111111111111111111111111112"
)

// DefaultKeyword is the initialization marker searched for in log text.
const DefaultKeyword = "initialize"

var wsol = solana.MustPublicKeyFromBase58(WSOLMint)

// Programs holds the program identity per launch kind. Nil disables a kind.
type Programs struct {
	AMM          *solana.PublicKey
	CLMM         *solana.PublicKey
	BondingCurve *solana.PublicKey
}

// Options configures the detector.
type Options struct {
	// Keyword is matched case-insensitively. Defaults to DefaultKeyword.
	Keyword string
}

type identity struct {
	kind    domain.LaunchKind
	program solana.PublicKey
}

// Detector is a stateless launch classifier. Safe for concurrent use.
type Detector struct {
	identities []identity // priority order
	keyword    string
}

// NewDetector creates a detector over the configured program identities.
func NewDetector(programs Programs, opts Options) *Detector {
	keyword := strings.ToLower(strings.TrimSpace(opts.Keyword))
	if keyword == "" {
		keyword = DefaultKeyword
	}

	d := &Detector{keyword: keyword}
	for _, kind := range domain.LaunchKinds {
		var pk *solana.PublicKey
		switch kind {
		case domain.LaunchKindRaydiumAMM:
			pk = programs.AMM
		case domain.LaunchKindRaydiumCLMM:
			pk = programs.CLMM
		case domain.LaunchKindPumpFun:
			pk = programs.BondingCurve
		}
		if pk != nil {
			d.identities = append(d.identities, identity{kind: kind, program: *pk})
		}
	}
	return d
}

// Process classifies one notification. It returns false when no configured
// identity matches or the initialization keyword is absent. The first match
// in AMM, CLMM, bonding-curve order wins.
func (d *Detector) Process(ev domain.LogEvent, slot uint64) (domain.LaunchEvent, bool) {
	if len(d.identities) == 0 || !d.hasKeyword(ev.Logs) {
		return domain.LaunchEvent{}, false
	}

	for _, id := range d.identities {
		// Without mentions we can only go by keyword.
		if ev.MentionsKnown && !ev.Mentioned(id.program) {
			continue
		}

		return domain.LaunchEvent{
			Kind:           id.kind,
			Signature:      ev.Signature,
			TokenMint:      ResolveMint(ev.Logs),
			BaseIsSOL:      baseIsSOL(id.kind, ev),
			DetectedAtSlot: slot,
		}, true
	}

	return domain.LaunchEvent{}, false
}

// Kinds returns the enabled kinds in priority order.
func (d *Detector) Kinds() []domain.LaunchKind {
	kinds := make([]domain.LaunchKind, len(d.identities))
	for i, id := range d.identities {
		kinds[i] = id.kind
	}
	return kinds
}

func (d *Detector) hasKeyword(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(strings.ToLower(line), d.keyword) {
			return true
		}
	}
	return false
}

// baseIsSOL reports whether the pool pairs against native SOL. Bonding-curve
// launches always do; for AMM pools it is inferred from WSOL being mentioned.
func baseIsSOL(kind domain.LaunchKind, ev domain.LogEvent) bool {
	if kind == domain.LaunchKindPumpFun || !ev.MentionsKnown {
		return true
	}
	return ev.Mentioned(wsol)
}
