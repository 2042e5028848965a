// Package health runs the readiness checks shown by `qbot doctor` and the
// startup banner.
package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/qbridge/qbot/internal/config"
	"github.com/qbridge/qbot/internal/executor"
)

// Status represents check or feature status
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusError
	StatusDisabled
)

// Check represents a health check result
type Check struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// FeatureStatus represents a feature with its availability
type FeatureStatus struct {
	Name   string
	Status Status
	Note   string
}

// Report contains all health check results
type Report struct {
	Dependencies []Check
	Config       []Check
	Features     []FeatureStatus
}

// Tool is the part of the Q CLI wrapper the checks need.
type Tool interface {
	Locate() (string, error)
	Version(ctx context.Context, timeout time.Duration) (*executor.Result, error)
}

// RunChecks performs all health checks based on config.
func RunChecks(ctx context.Context, cfg *config.Config, tool Tool) *Report {
	toolCheck := checkTool(ctx, cfg, tool)
	return &Report{
		Dependencies: []Check{toolCheck},
		Config:       checkConfig(cfg),
		Features:     checkFeatures(cfg, toolCheck),
	}
}

func checkTool(ctx context.Context, cfg *config.Config, tool Tool) Check {
	check := Check{Name: "q cli"}

	path, err := tool.Locate()
	if err != nil {
		check.Status = StatusWarning
		check.Message = "not found (commands will fail)"
		check.Fix = "install the Q CLI or set Q_CLI_PATH"
		return check
	}

	res, err := tool.Version(ctx, cfg.Tool.StatusTimeout)
	switch {
	case errors.Is(err, executor.ErrTimeout):
		check.Status = StatusWarning
		check.Message = fmt.Sprintf("%s did not answer --version within %s", path, cfg.Tool.StatusTimeout)
	case err != nil:
		check.Status = StatusError
		check.Message = err.Error()
		check.Fix = fmt.Sprintf("check that %s is executable", path)
	case !res.Success():
		check.Status = StatusWarning
		check.Message = fmt.Sprintf("%s --version exited %d", path, res.ExitCode)
	default:
		check.Status = StatusOK
		check.Message = fmt.Sprintf("%s (%s)", versionOf(res.Stdout), path)
	}
	return check
}

func checkConfig(cfg *config.Config) []Check {
	var checks []Check

	if err := cfg.RequireToken(); err != nil {
		checks = append(checks, Check{
			Name:    "bot token",
			Status:  StatusError,
			Message: "not set",
			Fix:     "export BOT_TOKEN=<token from @BotFather> or add it to .env",
		})
	} else {
		checks = append(checks, Check{Name: "bot token", Status: StatusOK, Message: "set"})
	}

	if n := len(cfg.Telegram.AllowedUsers); n == 0 {
		checks = append(checks, Check{
			Name:    "allowed users",
			Status:  StatusWarning,
			Message: "empty, every Telegram user may run commands",
			Fix:     "set ALLOWED_USERS to a comma-separated list of user IDs",
		})
	} else {
		checks = append(checks, Check{Name: "allowed users", Status: StatusOK, Message: fmt.Sprintf("%d user(s)", n)})
	}

	if err := cfg.Validate(); err != nil {
		checks = append(checks, Check{Name: "settings", Status: StatusError, Message: err.Error()})
	} else {
		checks = append(checks, Check{Name: "settings", Status: StatusOK, Message: "valid"})
	}

	return checks
}

func checkFeatures(cfg *config.Config, tool Check) []FeatureStatus {
	rl := cfg.Telegram.RateLimit
	rateLimit := FeatureStatus{Name: "Rate limit", Status: boolToStatus(rl != nil && rl.Enabled)}
	if rateLimit.Status == StatusOK {
		rateLimit.Note = fmt.Sprintf("%d/min, burst %d", rl.MessagesPerMinute, rl.BurstSize)
	}

	chat := FeatureStatus{Name: "Chat mode", Status: tool.Status}
	if tool.Status != StatusOK {
		chat.Note = "needs q cli"
	}

	return []FeatureStatus{chat, rateLimit}
}

// versionOf extracts the first dotted token of a version line.
func versionOf(out string) string {
	version := strings.TrimSpace(out)
	if line, _, ok := strings.Cut(version, "\n"); ok {
		version = line
	}
	for _, p := range strings.Fields(version) {
		if strings.Contains(p, ".") {
			return p
		}
	}
	return version
}

// boolToStatus converts bool to Status
func boolToStatus(enabled bool) Status {
	if enabled {
		return StatusOK
	}
	return StatusDisabled
}

// Summary counts errors and warnings across all checks.
func (r *Report) Summary() (errs, warnings int) {
	for _, c := range append(append([]Check{}, r.Dependencies...), r.Config...) {
		switch c.Status {
		case StatusError:
			errs++
		case StatusWarning:
			warnings++
		}
	}
	return errs, warnings
}

// ReadyToStart reports whether the bot can run. A missing Q CLI is only a
// warning; the bot still answers with a "not found" reply.
func (r *Report) ReadyToStart() bool {
	errs, _ := r.Summary()
	return errs == 0
}

// Symbol returns the symbol for a status
func (s Status) Symbol() string {
	switch s {
	case StatusOK:
		return "✓"
	case StatusWarning:
		return "○"
	case StatusError:
		return "✗"
	case StatusDisabled:
		return "·"
	default:
		return "?"
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

var statusStyles = map[Status]lipgloss.Style{
	StatusOK:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7ec699")), // sage green
	StatusWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#d4a054")), // amber
	StatusError:    lipgloss.NewStyle().Foreground(lipgloss.Color("#d48a8a")), // dusty rose
	StatusDisabled: lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e")), // mid gray
}

// ColorSymbol returns the symbol styled for terminals.
func (s Status) ColorSymbol() string {
	style, ok := statusStyles[s]
	if !ok {
		return s.Symbol()
	}
	return style.Render(s.Symbol())
}
