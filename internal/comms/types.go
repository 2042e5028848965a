// Package comms holds the platform-agnostic command dispatcher: permission
// checks, the per-user chat-mode flag, and the single-shot and chat pipelines.
package comms

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qbridge/qbot/internal/executor"
)

// ErrPermissionDenied is returned when a sender is not on a non-empty allow-list.
var ErrPermissionDenied = errors.New("permission denied")

// IncomingMessage is the platform-agnostic representation of an inbound user message.
type IncomingMessage struct {
	ContextID string // chat ID
	SenderID  int64  // platform user ID
	Username  string
	Text      string
	MessageID int
}

// IsCommand reports whether the message is a slash command.
func (m *IncomingMessage) IsCommand() bool {
	text := strings.TrimSpace(m.Text)
	return len(text) > 1 && text[0] == '/'
}

// Messenger is the outbound side of a chat adapter.
type Messenger interface {
	// SendText sends a plain text message and returns its platform reference.
	SendText(ctx context.Context, contextID, text string) (msgRef string, err error)

	// SendCode sends text containing fenced code blocks. Adapters render it
	// with markup and fall back to plain text when the platform rejects it.
	SendCode(ctx context.Context, contextID, text string) (msgRef string, err error)

	// DeleteMessage removes a previously sent message.
	DeleteMessage(ctx context.Context, contextID, msgRef string) error
}

// Tool is the external command-line tool the bot relays to.
// *executor.QCLI implements it.
type Tool interface {
	Locate() (string, error)
	Version(ctx context.Context, timeout time.Duration) (*executor.Result, error)
	Command(ctx context.Context, args []string, timeout time.Duration) (*executor.Result, error)
	Chat(ctx context.Context, message string, timeout time.Duration) (*executor.Result, error)
}

var _ Tool = (*executor.QCLI)(nil)
