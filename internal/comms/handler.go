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
	"github.com/qbridge/qbot/internal/output"
	"github.com/qbridge/qbot/internal/session"
)

const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultChatTimeout    = 120 * time.Second
	DefaultStatusTimeout  = 10 * time.Second
	DefaultOutputLimit    = 4000

	// stderrPreviewLimit bounds the chat-path error reply.
	stderrPreviewLimit = 1000
)

// HandlerConfig holds configuration for creating a Handler.
type HandlerConfig struct {
	Messenger Messenger
	Sessions  session.Store
	Tool      Tool
	Extractor *output.Extractor
	Chunker   *output.Chunker

	// AllowedUsers restricts the bot to these user IDs. Empty allows everyone.
	AllowedUsers []int64

	CommandTimeout time.Duration
	ChatTimeout    time.Duration
	StatusTimeout  time.Duration
	OutputLimit    int

	Log *slog.Logger
}

// Handler dispatches incoming messages. It is safe for concurrent use; the
// session store is the only shared mutable state.
type Handler struct {
	messenger Messenger
	sessions  session.Store
	tool      Tool
	extractor *output.Extractor
	chunker   *output.Chunker
	commands  *CommandHandler
	allowed   map[int64]bool

	commandTimeout time.Duration
	chatTimeout    time.Duration
	outputLimit    int

	log *slog.Logger
}

// NewHandler creates a Handler, filling unset fields with defaults.
func NewHandler(cfg *HandlerConfig) *Handler {
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = output.NewExtractor(nil)
	}
	chunker := cfg.Chunker
	if chunker == nil {
		chunker = output.NewChunker(output.DefaultBudget, output.DefaultMaxChunks)
	}
	lg := cfg.Log
	if lg == nil {
		lg = logging.WithComponent("comms.handler")
	}

	allowed := make(map[int64]bool, len(cfg.AllowedUsers))
	for _, id := range cfg.AllowedUsers {
		allowed[id] = true
	}

	h := &Handler{
		messenger:      cfg.Messenger,
		sessions:       sessions,
		tool:           cfg.Tool,
		extractor:      extractor,
		chunker:        chunker,
		allowed:        allowed,
		commandTimeout: orDefault(cfg.CommandTimeout, DefaultCommandTimeout),
		chatTimeout:    orDefault(cfg.ChatTimeout, DefaultChatTimeout),
		outputLimit:    cfg.OutputLimit,
		log:            lg,
	}
	if h.outputLimit <= 0 {
		h.outputLimit = DefaultOutputLimit
	}

	h.commands = NewCommandHandler(cfg.Messenger, sessions, cfg.Tool, orDefault(cfg.StatusTimeout, DefaultStatusTimeout))
	h.commands.SetRunFunc(h.runSingleShot)
	return h
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Sessions returns the session store the handler routes on.
func (h *Handler) Sessions() session.Store {
	return h.sessions
}

// Authorize returns ErrPermissionDenied when userID is not allowed.
func (h *Handler) Authorize(userID int64) error {
	if len(h.allowed) == 0 || h.allowed[userID] {
		return nil
	}
	return fmt.Errorf("%w: user %d", ErrPermissionDenied, userID)
}

// HandleMessage is the entry point for one incoming message.
func (h *Handler) HandleMessage(ctx context.Context, msg *IncomingMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	log := h.ctxLog(ctx)

	if err := h.Authorize(msg.SenderID); err != nil {
		log.Warn("Unauthorized message", slog.Any("error", err))
		if msg.IsCommand() {
			h.reply(ctx, msg.ContextID, msgNoPermission)
		}
		return
	}

	if msg.IsCommand() {
		h.commands.HandleCommand(ctx, msg)
		return
	}

	if h.sessions.Active(msg.SenderID) {
		h.handleChat(ctx, msg.ContextID, text)
		return
	}

	if args, ok := singleShotPrefix(text); ok {
		h.runSingleShot(ctx, msg.ContextID, args)
		return
	}

	h.reply(ctx, msg.ContextID, msgUsageHint)
}

// runSingleShot runs `q <args>` once and replies with its output.
func (h *Handler) runSingleShot(ctx context.Context, contextID, argLine string) {
	args := SplitArgs(argLine)
	if len(args) == 0 {
		h.reply(ctx, contextID, msgRunUsage)
		return
	}

	log := h.ctxLog(ctx)
	log.Info("Running command", slog.String("args", argLine))

	res, err := h.tool.Command(ctx, args, h.commandTimeout)
	if err != nil {
		h.replyInvocationError(ctx, contextID, err, h.commandTimeout)
		return
	}

	if res.Success() {
		out := strings.TrimSpace(res.Stdout)
		if out == "" {
			out = "(no output)"
		}
		out = output.Truncate(out, h.outputLimit, "\n...(output truncated)")
		h.replyCode(ctx, contextID, fenced("✅ Success:", out))
		return
	}

	errText := strings.TrimSpace(res.Stderr)
	if errText == "" {
		errText = fmt.Sprintf("command failed with exit code %d", res.ExitCode)
	}
	errText = output.Truncate(errText, h.outputLimit, "\n...(error truncated)")
	log.Info("Command failed", slog.Int("exit_code", res.ExitCode))
	h.replyCode(ctx, contextID, fenced("❌ Failed:", errText))
}

// handleChat relays message to `q chat --non-interactive` and replies with the
// cleaned answer.
func (h *Handler) handleChat(ctx context.Context, contextID, message string) {
	log := h.ctxLog(ctx)

	if _, err := h.tool.Locate(); err != nil {
		log.Warn("Chat without tool", slog.Any("error", err))
		h.reply(ctx, contextID, msgToolNotFound)
		return
	}

	placeholder, err := h.messenger.SendText(ctx, contextID, PlaceholderFor(message))
	if err != nil {
		log.Warn("Failed to send placeholder", slog.Any("error", err))
	}
	if placeholder != "" {
		defer h.deletePlaceholder(context.WithoutCancel(ctx), contextID, placeholder)
	}

	log.Info("Chat message", slog.Int("length", len(message)))
	res, err := h.tool.Chat(ctx, message, h.chatTimeout)
	if err != nil {
		if errors.Is(err, executor.ErrTimeout) {
			log.Warn("Chat timed out", slog.Duration("timeout", h.chatTimeout))
			h.reply(ctx, contextID, msgChatTimeout)
			return
		}
		h.replyInvocationError(ctx, contextID, err, h.chatTimeout)
		return
	}
	if !res.Success() {
		log.Debug("Chat exited non-zero", slog.Int("exit_code", res.ExitCode))
	}

	switch {
	case res.Stdout != "":
		answer := h.extractor.Extract(output.Sanitize(res.Stdout))
		if answer == "" {
			h.replyCode(ctx, contextID, output.Chunk{Seq: 1, Label: message, Body: "(no output)"}.Render())
			return
		}
		for _, chunk := range h.chunker.Chunk(message, answer) {
			h.replyCode(ctx, contextID, chunk.Render())
		}
	case strings.TrimSpace(output.Sanitize(res.Stderr)) != "":
		preview := output.Truncate(output.Sanitize(res.Stderr), stderrPreviewLimit, "")
		h.reply(ctx, contextID, "❌ Error: "+preview)
	default:
		h.reply(ctx, contextID, msgNoOutput)
	}
}

func (h *Handler) replyInvocationError(ctx context.Context, contextID string, err error, timeout time.Duration) {
	switch {
	case errors.Is(err, executor.ErrToolNotFound):
		h.reply(ctx, contextID, msgToolNotFound)
	case errors.Is(err, executor.ErrTimeout):
		h.reply(ctx, contextID, fmt.Sprintf("❌ Command timed out (%s)", timeout))
	case errors.Is(err, context.Canceled):
		h.ctxLog(ctx).Info("Invocation cancelled by shutdown")
		h.reply(context.WithoutCancel(ctx), contextID, msgShuttingDown)
	default:
		h.ctxLog(ctx).Error("Invocation failed", slog.Any("error", err))
		h.reply(ctx, contextID, fmt.Sprintf("❌ Error: %v", err))
	}
}

func (h *Handler) deletePlaceholder(ctx context.Context, contextID, ref string) {
	if err := h.messenger.DeleteMessage(ctx, contextID, ref); err != nil {
		h.log.Debug("Failed to delete placeholder", slog.String("ref", ref), slog.Any("error", err))
	}
}

// reply sends plain text. Send failures are logged and dropped.
func (h *Handler) reply(ctx context.Context, contextID, text string) {
	if _, err := h.messenger.SendText(ctx, contextID, text); err != nil {
		h.log.Warn("Failed to send reply", slog.String("context_id", contextID), slog.Any("error", err))
	}
}

func (h *Handler) replyCode(ctx context.Context, contextID, text string) {
	if _, err := h.messenger.SendCode(ctx, contextID, text); err != nil {
		h.log.Warn("Failed to send reply", slog.String("context_id", contextID), slog.Any("error", err))
	}
}

// ctxLog returns a logger carrying the correlation, user and chat IDs of ctx.
func (h *Handler) ctxLog(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx).With(slog.String("component", "comms.handler"))
}
