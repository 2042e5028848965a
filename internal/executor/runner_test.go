package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qbridge/qbot/internal/testutil"
)

// processAlive reports whether pid exists and is not a zombie.
func processAlive(pid int) bool {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	stat := string(data)
	idx := strings.LastIndex(stat, ")")
	if idx < 0 || idx+2 >= len(stat) {
		return false
	}
	return stat[idx+2] != 'Z'
}

func TestRunCapturesOutput(t *testing.T) {
	script := testutil.WriteScript(t, t.TempDir(), "ok.sh", `echo out; echo err >&2`)

	res, err := NewRunner().Run(context.Background(), Invocation{Path: script, Timeout: 5 * time.Second})

	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Success())
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	script := testutil.WriteScript(t, t.TempDir(), "fail.sh", `echo boom >&2; exit 3`)

	res, err := NewRunner().Run(context.Background(), Invocation{Path: script, Timeout: 5 * time.Second})

	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
	assert.Equal(t, "boom\n", res.Stderr)
}

func TestRunArgsAndStdin(t *testing.T) {
	script := testutil.WriteScript(t, t.TempDir(), "echo.sh", `echo "$1|$2"; cat`)

	res, err := NewRunner().Run(context.Background(), Invocation{
		Path:    script,
		Args:    []string{"chat", "two words"},
		Stdin:   "hello from stdin\n",
		Timeout: 5 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "chat|two words\nhello from stdin\n", res.Stdout)
}

func TestRunEnvOverrides(t *testing.T) {
	script := testutil.WriteScript(t, t.TempDir(), "env.sh", `printf '%s %s' "$NO_COLOR" "$TERM"`)

	res, err := NewRunner().Run(context.Background(), Invocation{
		Path:    script,
		Timeout: 5 * time.Second,
		Env:     PlainOutputEnv,
	})

	require.NoError(t, err)
	assert.Equal(t, "1 dumb", res.Stdout)
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("process inspection uses /proc")
	}

	dir := t.TempDir()
	pidFile := filepath.Join(dir, "child.pid")
	script := testutil.WriteScript(t, dir, "hang.sh", `sleep 30 &
echo $! > "$1"
echo started
wait`)

	start := time.Now()
	res, err := NewRunner().Run(context.Background(), Invocation{
		Path:    script,
		Args:    []string{pidFile},
		Timeout: 500 * time.Millisecond,
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "want ErrTimeout, got %v", err)
	require.NotNil(t, res)
	assert.Equal(t, "started\n", res.Stdout)
	assert.Less(t, elapsed, 10*time.Second)

	data, readErr := os.ReadFile(pidFile)
	require.NoError(t, readErr)
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, convErr)

	assert.Eventually(t, func() bool { return !processAlive(pid) }, 3*time.Second, 50*time.Millisecond,
		"background child %d survived the timeout", pid)
}

func TestRunKillsChildrenHoldingOutput(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("process inspection uses /proc")
	}

	dir := t.TempDir()
	pidFile := filepath.Join(dir, "child.pid")
	script := testutil.WriteScript(t, dir, "detach.sh", `echo answer
sleep 30 &
echo $! > "$1"
exit 0`)

	runner := NewRunner()
	runner.gracePeriod = 200 * time.Millisecond

	start := time.Now()
	res, err := runner.Run(context.Background(), Invocation{
		Path:    script,
		Args:    []string{pidFile},
		Timeout: 10 * time.Second,
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success())
	assert.Equal(t, "answer\n", res.Stdout)
	assert.Less(t, time.Since(start), 5*time.Second)

	data, readErr := os.ReadFile(pidFile)
	require.NoError(t, readErr)
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, convErr)

	assert.Eventually(t, func() bool { return !processAlive(pid) }, 3*time.Second, 50*time.Millisecond,
		"background child %d outlived the call", pid)
}

func TestRunCancelled(t *testing.T) {
	script := testutil.WriteScript(t, t.TempDir(), "slow.sh", `sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := NewRunner().Run(ctx, Invocation{Path: script, Timeout: 10 * time.Second})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunMissingExecutable(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), Invocation{
		Path:    filepath.Join(t.TempDir(), "missing"),
		Timeout: time.Second,
	})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestRunInvalidUTF8IsDropped(t *testing.T) {
	script := testutil.WriteScript(t, t.TempDir(), "bytes.sh", `printf 'ok\377\376done'`)

	res, err := NewRunner().Run(context.Background(), Invocation{Path: script, Timeout: 5 * time.Second})

	require.NoError(t, err)
	assert.Equal(t, "okdone", res.Stdout)
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 5}

	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = b.Write([]byte("ijk"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "abcde", b.String())
}
