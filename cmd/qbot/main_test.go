package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qbridge/qbot/internal/config"
	"github.com/qbridge/qbot/internal/health"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"start", "doctor", "init", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd       string
		flag      string
		shorthand string
	}{
		{"start", "q-path", ""},
		{"doctor", "verbose", "v"},
		{"init", "force", ""},
	}

	root := newRootCmd()
	for _, tt := range tests {
		cmd, _, err := root.Find([]string{tt.cmd})
		require.NoError(t, err)
		flag := cmd.Flags().Lookup(tt.flag)
		if flag == nil {
			t.Errorf("%s: missing flag --%s", tt.cmd, tt.flag)
			continue
		}
		if flag.Shorthand != tt.shorthand {
			t.Errorf("%s --%s: shorthand %q, want %q", tt.cmd, tt.flag, flag.Shorthand, tt.shorthand)
		}
	}
}

func TestInitWritesConfigOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbot", "config.yaml")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"init", "--config", path})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Wrote "+path)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Tool, cfg.Tool)

	root = newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"init", "--config", path})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	root = newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"init", "--config", path, "--force"})
	require.NoError(t, root.Execute())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "v"+version)
}

func TestPrintReport(t *testing.T) {
	report := &health.Report{
		Dependencies: []health.Check{
			{Name: "q cli", Status: health.StatusWarning, Message: "not found", Fix: "install the Q CLI"},
		},
		Config: []health.Check{
			{Name: "bot token", Status: health.StatusError, Message: "not set", Fix: "export BOT_TOKEN"},
		},
		Features: []health.FeatureStatus{
			{Name: "Chat mode", Status: health.StatusWarning, Note: "needs q cli"},
		},
	}

	var out bytes.Buffer
	printReport(&out, report, true)
	text := out.String()

	assert.Contains(t, text, "→ install the Q CLI")
	assert.Contains(t, text, "❌ Not ready - 1 error(s)")

	// errors are recommended before warnings
	first := strings.Index(text, "1. bot token: export BOT_TOKEN")
	second := strings.Index(text, "2. q cli: install the Q CLI")
	require.NotEqual(t, -1, first, text)
	require.NotEqual(t, -1, second, text)
	assert.Less(t, first, second)
}

func TestRunBotRejectsMissingToken(t *testing.T) {
	cfg := config.DefaultConfig()
	err := runBot(t.Context(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token is not set")
}
