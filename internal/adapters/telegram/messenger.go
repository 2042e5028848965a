package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/qbridge/qbot/internal/comms"
	"github.com/qbridge/qbot/internal/logging"
)

// Messenger implements comms.Messenger for Telegram.
type Messenger struct {
	client *Client
	log    *slog.Logger
}

var _ comms.Messenger = (*Messenger)(nil)

// NewMessenger creates a Telegram messenger.
func NewMessenger(client *Client) *Messenger {
	return &Messenger{
		client: client,
		log:    logging.WithComponent("telegram"),
	}
}

// SendText sends a plain text message to a chat.
func (m *Messenger) SendText(_ context.Context, contextID, text string) (string, error) {
	chatID, err := parseChatID(contextID)
	if err != nil {
		return "", err
	}
	id, err := m.client.SendMessage(chatID, text, "")
	if err != nil {
		return "", fmt.Errorf("failed to send text message: %w", err)
	}
	return strconv.Itoa(id), nil
}

// SendCode sends text with Markdown. When Telegram rejects the markup the
// message is resent as plain text.
func (m *Messenger) SendCode(ctx context.Context, contextID, text string) (string, error) {
	chatID, err := parseChatID(contextID)
	if err != nil {
		return "", err
	}
	id, err := m.client.SendMessage(chatID, text, tgbotapi.ModeMarkdown)
	if err == nil {
		return strconv.Itoa(id), nil
	}
	if !isAPIError(err) {
		return "", fmt.Errorf("failed to send code message: %w", err)
	}

	m.log.Debug("Markdown rejected, retrying as plain text",
		slog.String("chat_id", contextID),
		slog.Any("error", err),
	)
	return m.SendText(ctx, contextID, text)
}

// DeleteMessage deletes a message by its reference.
func (m *Messenger) DeleteMessage(_ context.Context, contextID, msgRef string) error {
	chatID, err := parseChatID(contextID)
	if err != nil {
		return err
	}
	messageID, err := strconv.Atoi(msgRef)
	if err != nil {
		return fmt.Errorf("invalid message ref %q: %w", msgRef, err)
	}
	return m.client.DeleteMessage(chatID, messageID)
}

func parseChatID(contextID string) (int64, error) {
	chatID, err := strconv.ParseInt(contextID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q: %w", contextID, err)
	}
	return chatID, nil
}
