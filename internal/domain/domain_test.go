package domain

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

func TestLaunchKind_Priority(t *testing.T) {
	if LaunchKindRaydiumAMM.Priority() != 0 {
		t.Errorf("AMM priority = %d, want 0", LaunchKindRaydiumAMM.Priority())
	}
	if LaunchKindRaydiumCLMM.Priority() != 1 {
		t.Errorf("CLMM priority = %d, want 1", LaunchKindRaydiumCLMM.Priority())
	}
	if LaunchKindPumpFun.Priority() != 2 {
		t.Errorf("PumpFun priority = %d, want 2", LaunchKindPumpFun.Priority())
	}
	if LaunchKind("ORCA").Valid() {
		t.Error("unknown kind reported valid")
	}
}

func TestLaunchEvent_HasMint(t *testing.T) {
	var zero solana.PublicKey
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	tests := []struct {
		name string
		ev   LaunchEvent
		want bool
	}{
		{"nil", LaunchEvent{}, false},
		{"zero key", LaunchEvent{TokenMint: &zero}, false},
		{"resolved", LaunchEvent{TokenMint: &mint}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.HasMint(); got != tt.want {
				t.Errorf("HasMint() = %v, want %v", got, tt.want)
			}
		})
	}

	ev := LaunchEvent{TokenMint: &mint}
	if ev.MintString() != mint.String() {
		t.Errorf("MintString() = %q", ev.MintString())
	}
	if (LaunchEvent{}).MintString() != "" {
		t.Error("MintString() should be empty without a mint")
	}
}

func TestLogEvent_Mentioned(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	b := solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")

	ev := LogEvent{Mentions: []solana.PublicKey{a}, MentionsKnown: true}
	if !ev.Mentioned(a) {
		t.Error("expected a to be mentioned")
	}
	if ev.Mentioned(b) {
		t.Error("b should not be mentioned")
	}
}

func TestPriorityConfig(t *testing.T) {
	p := DefaultPriorityConfig()
	if p.ComputeUnitLimit != 1_000_000 || p.MicroLamportsPerCU != 5_000 {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	// 1M CU * 5000 µlamports / 1e6 = 5000 lamports
	if got := p.MaxPriorityFeeLamports(); got != 5_000 {
		t.Errorf("MaxPriorityFeeLamports() = %d, want 5000", got)
	}

	if err := (PriorityConfig{}).Validate(); err == nil {
		t.Error("zero compute unit limit should be rejected")
	}
}

func TestBlockhashSnapshot(t *testing.T) {
	var s BlockhashSnapshot
	if !s.IsZero() {
		t.Error("empty snapshot should be zero")
	}
	if s.Age(time.Now()) != 0 {
		t.Error("unfetched snapshot should have zero age")
	}

	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s = BlockhashSnapshot{
		Hash:      solana.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"),
		FetchedAt: fetched,
	}
	if s.IsZero() {
		t.Error("populated snapshot reported zero")
	}
	if got := s.Age(fetched.Add(4 * time.Second)); got != 4*time.Second {
		t.Errorf("Age() = %v, want 4s", got)
	}
}

func TestPosition_Thresholds(t *testing.T) {
	opened := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Position{
		BuyPrice:      decimal.RequireFromString("0.002"),
		OpenedAt:      opened,
		TakeProfitPct: 50,
		StopLossPct:   20,
		MaxSeconds:    600,
	}

	if !p.TakeProfitPrice().Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("TakeProfitPrice() = %s, want 0.003", p.TakeProfitPrice())
	}
	if !p.StopLossPrice().Equal(decimal.RequireFromString("0.0016")) {
		t.Errorf("StopLossPrice() = %s, want 0.0016", p.StopLossPrice())
	}

	if p.Expired(opened.Add(599 * time.Second)) {
		t.Error("expired too early")
	}
	if !p.Expired(opened.Add(600 * time.Second)) {
		t.Error("should expire at MaxSeconds")
	}

	p.MaxSeconds = 0
	if p.Expired(opened.Add(24 * time.Hour)) {
		t.Error("MaxSeconds=0 should never expire")
	}
}

func TestTrade(t *testing.T) {
	if !SideBuy.Valid() || !SideSell.Valid() || Side("HOLD").Valid() {
		t.Error("Side.Valid() mismatch")
	}

	tr := Trade{Qty: decimal.NewFromInt(1000), PriceSOL: decimal.RequireFromString("0.00002")}
	if !tr.NotionalSOL().Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("NotionalSOL() = %s, want 0.02", tr.NotionalSOL())
	}
}
