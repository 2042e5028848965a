package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/qbridge/qbot/internal/config"
	"github.com/qbridge/qbot/internal/executor"
	"github.com/qbridge/qbot/internal/health"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7eb8da"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
)

// errNotReady makes doctor exit non-zero.
var errNotReady = errors.New("qbot is not ready to start")

func newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the Q CLI and bot configuration",
		Long: `Run health checks on the Q CLI, configuration, and features.

Examples:
  qbot doctor           # Run all checks
  qbot doctor --verbose # Show fix suggestions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v, using defaults\n", err)
				cfg = config.DefaultConfig()
			}

			tool := executor.NewQCLI(executor.NewResolver(cfg.Tool.Path), nil)
			report := health.RunChecks(cmd.Context(), cfg, tool)

			printReport(cmd.OutOrStdout(), report, verbose)
			if !report.ReadyToStart() {
				return errNotReady
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output with fix suggestions")
	return cmd
}

func printReport(w io.Writer, report *health.Report, verbose bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("qbot Health Check"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Dependencies:")
	printChecks(w, report.Dependencies, verbose)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	printChecks(w, report.Config, verbose)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Features:")
	for _, f := range report.Features {
		note := ""
		if f.Note != "" {
			note = dimStyle.Render(" (" + f.Note + ")")
		}
		fmt.Fprintf(w, "  %s %-14s%s\n", f.Status.ColorSymbol(), f.Name, note)
	}
	fmt.Fprintln(w)

	errs, warnings := report.Summary()
	if errs > 0 || warnings > 0 {
		fmt.Fprintln(w, "Recommendations:")
		n := 0
		for _, status := range []health.Status{health.StatusError, health.StatusWarning} {
			for _, c := range append(append([]health.Check{}, report.Dependencies...), report.Config...) {
				if c.Status == status && c.Fix != "" {
					n++
					fmt.Fprintf(w, "  %d. %s: %s\n", n, c.Name, c.Fix)
				}
			}
		}
		fmt.Fprintln(w)
	}

	switch {
	case errs == 0 && warnings == 0:
		fmt.Fprintln(w, "✅ All systems operational!")
	case errs == 0:
		fmt.Fprintf(w, "✅ Ready to start (%d warning(s))\n", warnings)
	default:
		fmt.Fprintf(w, "❌ Not ready - %d error(s)\n", errs)
	}
	fmt.Fprintln(w)
}

func printChecks(w io.Writer, checks []health.Check, verbose bool) {
	for _, c := range checks {
		fmt.Fprintf(w, "  %s %-14s %s\n", c.Status.ColorSymbol(), c.Name, c.Message)
		if verbose && c.Fix != "" && c.Status != health.StatusOK {
			fmt.Fprintf(w, "                   → %s\n", c.Fix)
		}
	}
}
