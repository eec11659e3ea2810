package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-launch-sniper/internal/domain"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.msgs = append(f.msgs, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) sent() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.msgs...)
}

func TestTelegramDeliversTrade(t *testing.T) {
	api := &fakeSender{}
	tg := newTelegram(api, 42, zerolog.Nop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tg.Run(ctx)

	tg.TradeExecuted(domain.Trade{
		Side:      domain.SideBuy,
		Mint:      "MintXYZ",
		Signature: "Sig123",
		Qty:       decimal.RequireFromString("0.02"),
		PriceSOL:  decimal.Zero,
	})

	require.Eventually(t, func() bool { return len(api.sent()) == 1 }, time.Second, 5*time.Millisecond)
	msg := api.sent()[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "Markdown", msg.ParseMode)
	assert.Contains(t, msg.Text, "MintXYZ")
	assert.Contains(t, msg.Text, "0.02")
	assert.Contains(t, msg.Text, "Sig123")
	assert.NotContains(t, msg.Text, "price:")
}

func TestTelegramDeliversFailure(t *testing.T) {
	api := &fakeSender{err: errors.New("telegram down")}
	tg := newTelegram(api, 1, zerolog.Nop(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tg.Run(ctx)

	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	tg.DispatchFailed(domain.LaunchEvent{Kind: domain.LaunchKindPumpFun, Signature: "L1", TokenMint: &mint}, "", errors.New("blockhash not found"))
	tg.DispatchFailed(domain.LaunchEvent{Kind: domain.LaunchKindPumpFun, Signature: "L2", TokenMint: &mint}, "AcceptedSig", errors.New("confirm timeout"))

	require.Eventually(t, func() bool { return len(api.sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, api.sent()[0].Text, "blockhash not found")
	assert.Contains(t, api.sent()[0].Text, mint.String())
	assert.NotContains(t, api.sent()[0].Text, "sig:")
	assert.Contains(t, api.sent()[1].Text, "sig: `AcceptedSig`")
}

func TestTelegramDropsWhenFull(t *testing.T) {
	tg := newTelegram(&fakeSender{}, 1, zerolog.Nop(), 2)

	// Run is not started, so the queue never drains.
	for i := 0; i < 5; i++ {
		tg.TradeExecuted(domain.Trade{Side: domain.SideBuy})
	}
	assert.Equal(t, uint64(3), tg.Dropped())
}

func TestTelegramCloseStopsRun(t *testing.T) {
	tg := newTelegram(&fakeSender{}, 1, zerolog.Nop(), 2)
	done := make(chan struct{})
	go func() {
		tg.Run(context.Background())
		close(done)
	}()

	tg.Close()
	tg.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	tg.TradeExecuted(domain.Trade{})
	assert.Zero(t, tg.Dropped())
}
