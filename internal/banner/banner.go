// Package banner prints the terminal header shown when qbot starts.
package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/qbridge/qbot/internal/health"
)

// Logo is the ASCII art logo for qbot
const Logo = `
    ██████╗ ██████╗  ██████╗ ████████╗
   ██╔═══██╗██╔══██╗██╔═══██╗╚══██╔══╝
   ██║   ██║██████╔╝██║   ██║   ██║
   ██║▄▄ ██║██╔══██╗██║   ██║   ██║
   ╚██████╔╝██████╔╝╚██████╔╝   ██║
    ╚══▀▀═╝ ╚═════╝  ╚═════╝    ╚═╝
`

// Tagline is the project tagline
const Tagline = "Q CLI in your Telegram chat"

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// PrintWithVersion prints the logo with version info
func PrintWithVersion(w io.Writer, version string) {
	fmt.Fprint(w, Logo)
	fmt.Fprintf(w, "   %s\n", Tagline)
	fmt.Fprintf(w, "   v%s\n\n", version)
}

// StartupTelegram prints the compact startup header with health status.
func StartupTelegram(w io.Writer, version, botName string, report *health.Report) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "QBOT v%s │ @%s\n", version, botName)
	fmt.Fprintln(w, rule)

	var enabled, degraded []string
	for _, f := range report.Features {
		switch f.Status {
		case health.StatusOK:
			enabled = append(enabled, f.Name)
		case health.StatusWarning:
			degraded = append(degraded, f.Name+"*")
		}
	}
	if len(enabled) > 0 {
		fmt.Fprintf(w, "✓ %s\n", strings.Join(enabled, ", "))
	}
	if len(degraded) > 0 {
		fmt.Fprintf(w, "○ %s\n", strings.Join(degraded, ", "))
	}

	for _, c := range append(append([]health.Check{}, report.Dependencies...), report.Config...) {
		if c.Status == health.StatusOK {
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", c.Status.Symbol(), c.Name, c.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Listening... (Ctrl+C to stop)")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}
