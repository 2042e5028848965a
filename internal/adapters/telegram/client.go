package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrConflict is returned when another process is already polling with the
// same bot token.
var ErrConflict = errors.New("another bot instance is polling with this token")

// httpTimeout must exceed the long-poll timeout.
const httpTimeout = 60 * time.Second

// Client is a thin wrapper around the Bot API library. Long-poll requests
// are bound to an internal context so that shutdown can abort them.
type Client struct {
	api        *tgbotapi.BotAPI
	http       *http.Client
	cancelPoll context.CancelFunc
}

// NewClient connects to the public Bot API and verifies the token.
func NewClient(botToken string) (*Client, error) {
	return NewClientWithEndpoint(botToken, tgbotapi.APIEndpoint)
}

// NewClientWithEndpoint connects to a Bot API server at endpoint, a format
// string taking the token and the method name.
func NewClientWithEndpoint(botToken, endpoint string) (*Client, error) {
	pollCtx, cancel := context.WithCancel(context.Background())
	httpClient := &http.Client{Timeout: httpTimeout}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, &pollingClient{
		http:    httpClient,
		pollCtx: pollCtx,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return &Client{api: api, http: httpClient, cancelPoll: cancel}, nil
}

// Username returns the bot's username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(offset, timeout int) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = timeout
	cfg.AllowedUpdates = []string{"message"}

	updates, err := c.api.GetUpdates(cfg)
	if err != nil {
		return nil, wrapAPIError("get updates", err)
	}
	return updates, nil
}

// CheckSingleton issues a non-blocking getUpdates to detect a second instance.
func (c *Client) CheckSingleton() error {
	_, err := c.GetUpdates(0, 0)
	return err
}

// SendMessage sends text to chatID and returns the new message ID.
func (c *Client) SendMessage(chatID int64, text, parseMode string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true

	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, wrapAPIError("send message", err)
	}
	return sent.MessageID, nil
}

// DeleteMessage deletes a message the bot sent earlier.
func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return wrapAPIError("delete message", err)
	}
	return nil
}

// Close aborts an in-flight long poll and releases idle connections.
// Sending still works afterwards.
func (c *Client) Close() {
	c.cancelPoll()
	c.http.CloseIdleConnections()
}

func wrapAPIError(op string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// isAPIError reports whether err was returned by the Bot API itself, as
// opposed to a transport failure.
func isAPIError(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr)
}

// pollingClient binds getUpdates requests to pollCtx.
type pollingClient struct {
	http    *http.Client
	pollCtx context.Context
}

func (p *pollingClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/getUpdates") {
		req = req.WithContext(p.pollCtx)
	}
	return p.http.Do(req)
}
