package executor

import (
	"context"
	"time"
)

// PlainOutputEnv forces the Q CLI to print without colors or terminal control.
var PlainOutputEnv = []string{"NO_COLOR=1", "TERM=dumb"}

// QCLI invokes the Q CLI through a Resolver and a Runner. The executable is
// resolved on every call so an install after startup is picked up.
type QCLI struct {
	resolver *Resolver
	runner   *Runner
}

// NewQCLI creates a QCLI. A nil runner gets NewRunner().
func NewQCLI(resolver *Resolver, runner *Runner) *QCLI {
	if runner == nil {
		runner = NewRunner()
	}
	return &QCLI{resolver: resolver, runner: runner}
}

// Locate returns the resolved executable path.
func (q *QCLI) Locate() (string, error) {
	return q.resolver.Resolve()
}

// Version runs `q --version`.
func (q *QCLI) Version(ctx context.Context, timeout time.Duration) (*Result, error) {
	return q.Command(ctx, []string{"--version"}, timeout)
}

// Command runs a single-shot `q <args...>`.
func (q *QCLI) Command(ctx context.Context, args []string, timeout time.Duration) (*Result, error) {
	path, err := q.resolver.Resolve()
	if err != nil {
		return nil, err
	}
	return q.runner.Run(ctx, Invocation{
		Path:    path,
		Args:    args,
		Timeout: timeout,
		Env:     PlainOutputEnv,
	})
}

// Chat runs `q chat --non-interactive` with message on stdin.
func (q *QCLI) Chat(ctx context.Context, message string, timeout time.Duration) (*Result, error) {
	path, err := q.resolver.Resolve()
	if err != nil {
		return nil, err
	}
	return q.runner.Run(ctx, Invocation{
		Path:    path,
		Args:    []string{"chat", "--non-interactive"},
		Stdin:   message + "\n",
		Timeout: timeout,
		Env:     PlainOutputEnv,
	})
}
