package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"solana-launch-sniper/internal/domain"
)

// DefaultQueueSize bounds pending Telegram messages.
const DefaultQueueSize = 64

// sender is the part of tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts reports to a chat from a background goroutine.
// Reports are dropped when the queue is full.
type Telegram struct {
	api    sender
	chatID int64
	log    zerolog.Logger

	queue   chan string
	dropped atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewTelegram connects to the bot API. Call Run to start delivery.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram bot connected")
	return newTelegram(api, chatID, log, DefaultQueueSize), nil
}

func newTelegram(api sender, chatID int64, log zerolog.Logger, queueSize int) *Telegram {
	return &Telegram{
		api:    api,
		chatID: chatID,
		log:    log,
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
	}
}

var _ Notifier = (*Telegram)(nil)

// TradeExecuted queues a trade report.
func (t *Telegram) TradeExecuted(tr domain.Trade) {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* `%s`\n", tr.Side, tr.Mint)
	fmt.Fprintf(&b, "qty: %s SOL\n", tr.Qty.String())
	if !tr.PriceSOL.IsZero() {
		fmt.Fprintf(&b, "price: %s SOL\n", tr.PriceSOL.String())
	}
	fmt.Fprintf(&b, "sig: `%s`", tr.Signature)
	t.enqueue(b.String())
}

// DispatchFailed queues a failure report.
func (t *Telegram) DispatchFailed(ev domain.LaunchEvent, sig string, err error) {
	msg := fmt.Sprintf("*FAILED* %s `%s`\nlaunch: `%s`", ev.Kind, ev.MintString(), ev.Signature)
	if sig != "" {
		msg += fmt.Sprintf("\nsig: `%s`", sig)
	}
	msg += fmt.Sprintf("\nerr: %v", err)
	t.enqueue(msg)
}

func (t *Telegram) enqueue(msg string) {
	select {
	case <-t.done:
		return
	default:
	}

	select {
	case t.queue <- msg:
	default:
		n := t.dropped.Add(1)
		t.log.Warn().Uint64("dropped", n).Msg("telegram queue full, dropping message")
	}
}

// Dropped returns how many messages were discarded.
func (t *Telegram) Dropped() uint64 {
	return t.dropped.Load()
}

// Run delivers queued messages until ctx is done or Close is called.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case text := <-t.queue:
			msg := tgbotapi.NewMessage(t.chatID, text)
			msg.ParseMode = "Markdown"
			if _, err := t.api.Send(msg); err != nil {
				t.log.Warn().Err(err).Msg("telegram send failed")
			}
		}
	}
}

// Close stops delivery. Pending messages are discarded.
func (t *Telegram) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}
