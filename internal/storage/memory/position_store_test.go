package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
)

func TestPositionStore_InsertAndQuery(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	positions := []*domain.Position{
		{Mint: "mintA", BuySig: "sig2", OpenedAt: base.Add(2 * time.Second), BuyPrice: decimal.Zero},
		{Mint: "mintA", BuySig: "sig1", OpenedAt: base.Add(time.Second), BuyPrice: decimal.Zero},
		{Mint: "mintB", BuySig: "sig3", OpenedAt: base, BuyPrice: decimal.Zero},
	}
	for _, p := range positions {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByMint(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 || got[0].BuySig != "sig1" || got[1].BuySig != "sig2" {
		t.Errorf("unexpected GetByMint result: %+v", got)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 3 || all[0].BuySig != "sig3" {
		t.Errorf("unexpected GetAll result: %+v", all)
	}
}

func TestPositionStore_DuplicateKey(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	p := &domain.Position{Mint: "m", BuySig: "s"}

	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, p); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Position{Mint: "m"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
