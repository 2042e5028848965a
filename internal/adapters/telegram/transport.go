package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/qbridge/qbot/internal/comms"
	"github.com/qbridge/qbot/internal/logging"
)

const (
	msgRateLimited   = "⚠️ Rate limit exceeded. Please wait before sending more messages."
	msgInternalError = "❌ Something went wrong while handling your message."

	retryDelay      = time.Second
	cleanupInterval = 10 * time.Minute
	bucketMaxAge    = 30 * time.Minute
)

// MessageHandler processes incoming messages. *comms.Handler implements it.
type MessageHandler interface {
	Authorize(userID int64) error
	HandleMessage(ctx context.Context, msg *comms.IncomingMessage)
}

// Transport handles Telegram polling. Every update is handled on its own
// goroutine; Stop waits for all of them.
type Transport struct {
	client      *Client
	handler     MessageHandler
	messenger   comms.Messenger
	limiter     *RateLimiter
	pollTimeout int

	offset   int
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	loops    sync.WaitGroup
	inflight sync.WaitGroup
	log      *slog.Logger
}

// NewTransport creates a new Telegram transport layer.
func NewTransport(client *Client, handler MessageHandler, messenger comms.Messenger, cfg *Config) *Transport {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Transport{
		client:      client,
		handler:     handler,
		messenger:   messenger,
		limiter:     NewRateLimiter(cfg.RateLimit),
		pollTimeout: pollTimeout,
		stopCh:      make(chan struct{}),
		log:         logging.WithComponent("telegram"),
	}
}

// StartPolling begins the long-polling loop in a goroutine. Handlers run
// with ctx, so cancelling it also cancels in-flight invocations.
func (t *Transport) StartPolling(ctx context.Context) {
	t.loops.Add(2)
	go t.pollLoop(ctx)
	go t.cleanupLoop(ctx)
}

// Stop stops polling and waits for in-flight handlers to finish.
func (t *Transport) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.client.Close()
	})
	t.loops.Wait()
	t.inflight.Wait()
}

func (t *Transport) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-t.stopCh:
		return true
	default:
		return false
	}
}

func (t *Transport) pollLoop(ctx context.Context) {
	defer t.loops.Done()

	t.log.Debug("Transport poll loop started")
	defer t.log.Debug("Transport poll loop stopped")

	for !t.stopped(ctx) {
		t.fetchAndProcess(ctx)
	}
}

func (t *Transport) cleanupLoop(ctx context.Context) {
	defer t.loops.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			if n := t.limiter.Cleanup(bucketMaxAge); n > 0 {
				t.log.Debug("Dropped idle rate limit buckets", slog.Int("count", n))
			}
		}
	}
}

func (t *Transport) fetchAndProcess(ctx context.Context) {
	t.mu.Lock()
	offset := t.offset
	t.mu.Unlock()

	updates, err := t.client.GetUpdates(offset, t.pollTimeout)
	if err != nil {
		if t.stopped(ctx) {
			return
		}
		if errors.Is(err, ErrConflict) {
			t.log.Error("Another instance is polling with this token", slog.Any("error", err))
		} else {
			t.log.Warn("Error fetching updates", slog.Any("error", err))
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
		case <-t.stopCh:
		}
		return
	}

	for _, update := range updates {
		t.mu.Lock()
		if update.UpdateID >= t.offset {
			t.offset = update.UpdateID + 1
		}
		t.mu.Unlock()

		msg := toIncoming(update)
		if msg == nil {
			continue
		}

		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			t.dispatch(ctx, msg)
		}()
	}
}

// dispatch runs the handler for one message. A panic is logged and answered
// with a generic failure reply; it never takes the process down.
func (t *Transport) dispatch(ctx context.Context, msg *comms.IncomingMessage) {
	ctx = logging.ContextWithCorrelationID(ctx, uuid.NewString())
	ctx = logging.ContextWithUser(ctx, msg.SenderID)
	ctx = logging.ContextWithChat(ctx, msg.ContextID)
	log := logging.WithContext(ctx).With(slog.String("component", "telegram"))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while handling message",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			t.reply(ctx, msg.ContextID, msgInternalError)
		}
	}()

	if t.handler.Authorize(msg.SenderID) == nil && !t.limiter.AllowMessage(msg.SenderID) {
		log.Warn("Message rate limit exceeded")
		t.reply(ctx, msg.ContextID, msgRateLimited)
		return
	}

	start := time.Now()
	t.handler.HandleMessage(ctx, msg)
	log.Debug("Message handled", slog.Duration("duration", time.Since(start)))
}

func (t *Transport) reply(ctx context.Context, contextID, text string) {
	if _, err := t.messenger.SendText(ctx, contextID, text); err != nil {
		t.log.Warn("Failed to send reply", slog.String("chat_id", contextID), slog.Any("error", err))
	}
}

// toIncoming converts a text message update. Other update kinds yield nil.
func toIncoming(update tgbotapi.Update) *comms.IncomingMessage {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil || m.Text == "" {
		return nil
	}
	return &comms.IncomingMessage{
		ContextID: strconv.FormatInt(m.Chat.ID, 10),
		SenderID:  m.From.ID,
		Username:  displayName(m.From),
		Text:      m.Text,
		MessageID: m.MessageID,
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	if u.LastName != "" {
		return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
	}
	return u.FirstName
}
