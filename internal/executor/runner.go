package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/qbridge/qbot/internal/logging"
)

// GracePeriod bounds how long Wait keeps draining output pipes after the
// process group has been killed.
const GracePeriod = 2 * time.Second

// DefaultMaxOutput caps the bytes kept per stream.
const DefaultMaxOutput = 1 << 20

// ErrTimeout is returned when an invocation exceeds its timeout. The process
// group has been killed and reaped by the time it is returned.
var ErrTimeout = errors.New("invocation timed out")

// Invocation describes a single external-process call.
type Invocation struct {
	Path    string
	Args    []string
	Stdin   string        // piped to the process when non-empty
	Timeout time.Duration // zero means no timeout beyond ctx
	Env     []string      // KEY=VALUE overrides appended to the parent environment
}

// Result is the captured output of a finished invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner spawns child processes. Every process runs in its own process group
// so that a timeout kills the whole tree, and Wait is always called. Children
// still holding the output pipes after the process exits are killed too.
type Runner struct {
	maxOutput   int
	gracePeriod time.Duration
	log         *slog.Logger
}

// NewRunner creates a Runner with default limits.
func NewRunner() *Runner {
	return &Runner{
		maxOutput:   DefaultMaxOutput,
		gracePeriod: GracePeriod,
		log:         logging.WithComponent("executor"),
	}
}

// Run executes inv and waits for it. A non-zero exit status is reported in
// Result.ExitCode, not as an error. On timeout the returned Result holds
// whatever output was captured and the error wraps ErrTimeout.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Path, inv.Args...)
	cmd.Env = append(os.Environ(), inv.Env...)
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	stdout := &cappedBuffer{limit: r.maxOutput}
	stderr := &cappedBuffer{limit: r.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	setProcessGroup(cmd)
	cmd.WaitDelay = r.gracePeriod

	r.log.Debug("Starting process",
		slog.String("path", inv.Path),
		slog.Int("args", len(inv.Args)),
		slog.Duration("timeout", inv.Timeout),
	)

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   strings.ToValidUTF8(stdout.String(), ""),
		Stderr:   strings.ToValidUTF8(stderr.String(), ""),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := runCtx.Err(); err != nil && ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			r.log.Warn("Process timed out, killed",
				slog.String("path", inv.Path),
				slog.Duration("timeout", inv.Timeout),
			)
			return result, fmt.Errorf("%w after %s", ErrTimeout, inv.Timeout)
		}
		return result, fmt.Errorf("invocation cancelled: %w", ctxErr)
	}

	// The process exited but a descendant still holds its output open.
	if errors.Is(err, exec.ErrWaitDelay) {
		r.log.Warn("Process exited with children still attached, killed them",
			slog.String("path", inv.Path),
		)
		if killErr := killProcessGroup(cmd); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			r.log.Debug("Failed to kill process group", slog.Any("error", killErr))
		}
		err = nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to run %s: %w", inv.Path, err)
	}

	r.log.Debug("Process finished",
		slog.String("path", inv.Path),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// cappedBuffer keeps the first limit bytes written and discards the rest, so a
// chatty process cannot exhaust memory.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
