package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qbridge/qbot/internal/banner"
	"github.com/qbridge/qbot/internal/config"
)

var version = "0.1.0"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qbot",
		Short: "Q CLI in your Telegram chat",
		Long: `qbot is a Telegram bot that forwards messages to the Q CLI.

Users on the allow-list can run single-shot commands with /run or start a
conversational session with /chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to config file")

	rootCmd.AddCommand(
		newStartCmd(),
		newDoctorCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig loads the config file, .env and environment overrides.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
			}
			if err := config.Save(config.DefaultConfig(), configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", configPath)
			fmt.Fprintln(cmd.OutOrStdout(), "   Set BOT_TOKEN and ALLOWED_USERS, then run 'qbot doctor'")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show qbot version",
		Run: func(cmd *cobra.Command, args []string) {
			banner.PrintWithVersion(cmd.OutOrStdout(), version)
		},
	}
}
