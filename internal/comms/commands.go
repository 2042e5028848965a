package comms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qbridge/qbot/internal/executor"
	"github.com/qbridge/qbot/internal/logging"
	"github.com/qbridge/qbot/internal/session"
)

const (
	msgNoPermission = "❌ You don't have permission to use this bot."
	msgToolNotFound = "❌ Q CLI not found"
	msgRunUsage     = "❌ Please provide a command\nExample: /run --version"
	msgChatTimeout  = "⏰ Command timed out"
	msgNoOutput     = "✅ Command executed, no output"
	msgShuttingDown = "⚠️ Bot is shutting down, please try again later."
	msgUnknown      = "❓ Unknown command. Send /help for usage."
	msgChatEnded    = "✅ Chat session ended"
	msgNoChat       = "❌ No active chat session"

	msgHelp = `🤖 Q CLI Telegram Bot

Commands:
/start - show this message
/status - check Q CLI status
/run <args> - run a Q CLI command (alias /q)
/chat - start an interactive Q CLI session
/exit - end the interactive session

Examples:
/run --version
/run "SELECT * FROM data.csv LIMIT 5"
/chat - enter chat mode

You can also send "q <args>" directly.`

	msgChatStarted = `🚀 Interactive Q CLI session started!

Send messages directly, for example:
• Hello
• How to create a Lambda function?
• What is AWS S3?

Use /exit to end the session.`

	msgUsageHint = `💡 Usage:
• /run <args> - run a single command
• /chat - start an interactive session
• q <args> - run a single command

Examples:
/run --version
q "SELECT * FROM data.csv"`
)

// CommandHandler processes slash commands.
type CommandHandler struct {
	messenger     Messenger
	sessions      session.Store
	tool          Tool
	statusTimeout time.Duration
	runFunc       func(ctx context.Context, contextID, argLine string)
	log           *slog.Logger
}

// NewCommandHandler creates a command handler.
func NewCommandHandler(messenger Messenger, sessions session.Store, tool Tool, statusTimeout time.Duration) *CommandHandler {
	return &CommandHandler{
		messenger:     messenger,
		sessions:      sessions,
		tool:          tool,
		statusTimeout: statusTimeout,
		log:           logging.WithComponent("comms.commands"),
	}
}

// SetRunFunc sets the /run handler.
func (c *CommandHandler) SetRunFunc(f func(ctx context.Context, contextID, argLine string)) {
	c.runFunc = f
}

// HandleCommand routes a slash command. Permission has already been checked.
func (c *CommandHandler) HandleCommand(ctx context.Context, msg *IncomingMessage) {
	cmd, rest := parseCommand(msg.Text)

	switch cmd {
	case "/start", "/help":
		c.send(ctx, msg.ContextID, msgHelp)
	case "/status":
		c.handleStatus(ctx, msg.ContextID)
	case "/run", "/q":
		if rest == "" || c.runFunc == nil {
			c.send(ctx, msg.ContextID, msgRunUsage)
			return
		}
		c.runFunc(ctx, msg.ContextID, rest)
	case "/chat":
		c.handleChatStart(ctx, msg)
	case "/exit":
		c.handleChatExit(ctx, msg)
	default:
		c.send(ctx, msg.ContextID, msgUnknown)
	}
}

func (c *CommandHandler) handleStatus(ctx context.Context, contextID string) {
	path, err := c.tool.Locate()
	if err != nil {
		c.send(ctx, contextID, msgToolNotFound)
		return
	}

	res, err := c.tool.Version(ctx, c.statusTimeout)
	switch {
	case err != nil && errors.Is(err, executor.ErrTimeout):
		c.send(ctx, contextID, fmt.Sprintf("❌ Q CLI did not answer within %s", c.statusTimeout))
	case errors.Is(err, context.Canceled):
		c.send(context.WithoutCancel(ctx), contextID, msgShuttingDown)
	case err != nil:
		c.send(ctx, contextID, fmt.Sprintf("❌ Error: %v", err))
	case !res.Success():
		c.send(ctx, contextID, "❌ Q CLI error: "+strings.TrimSpace(res.Stderr))
	default:
		c.send(ctx, contextID, fmt.Sprintf("✅ Q CLI OK\nPath: %s\n%s", path, strings.TrimSpace(res.Stdout)))
	}
}

func (c *CommandHandler) handleChatStart(ctx context.Context, msg *IncomingMessage) {
	if _, err := c.tool.Locate(); err != nil {
		c.send(ctx, msg.ContextID, msgToolNotFound)
		return
	}
	c.sessions.Activate(msg.SenderID)
	c.log.Info("Chat session started", slog.Int64("user_id", msg.SenderID))
	c.send(ctx, msg.ContextID, msgChatStarted)
}

func (c *CommandHandler) handleChatExit(ctx context.Context, msg *IncomingMessage) {
	if !c.sessions.Deactivate(msg.SenderID) {
		c.send(ctx, msg.ContextID, msgNoChat)
		return
	}
	c.log.Info("Chat session ended", slog.Int64("user_id", msg.SenderID))
	c.send(ctx, msg.ContextID, msgChatEnded)
}

func (c *CommandHandler) send(ctx context.Context, contextID, text string) {
	if _, err := c.messenger.SendText(ctx, contextID, text); err != nil {
		c.log.Warn("Failed to send reply", slog.String("context_id", contextID), slog.Any("error", err))
	}
}
