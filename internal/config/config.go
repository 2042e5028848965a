// Package config loads qbot configuration from defaults, an optional YAML
// file, a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/qbridge/qbot/internal/adapters/telegram"
	"github.com/qbridge/qbot/internal/logging"
	"github.com/qbridge/qbot/internal/output"
)

// Config represents the main configuration.
type Config struct {
	Telegram *telegram.Config    `yaml:"telegram"`
	Tool     *ToolConfig         `yaml:"tool"`
	Output   *OutputConfig       `yaml:"output"`
	Noise    *output.NoiseTables `yaml:"noise"`
	Logging  *logging.Config     `yaml:"logging"`
}

// ToolConfig controls how the Q CLI is located and invoked.
type ToolConfig struct {
	Path          string        `yaml:"path"` // empty means search install locations and PATH
	Timeout       time.Duration `yaml:"timeout"`
	ChatTimeout   time.Duration `yaml:"chat_timeout"`
	StatusTimeout time.Duration `yaml:"status_timeout"`
}

// OutputConfig controls reply formatting.
type OutputConfig struct {
	Budget      int `yaml:"budget"`       // characters per chat chunk
	MaxChunks   int `yaml:"max_chunks"`   // including the omission notice
	OutputLimit int `yaml:"output_limit"` // single-shot reply truncation
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Telegram: telegram.DefaultConfig(),
		Tool: &ToolConfig{
			Timeout:       30 * time.Second,
			ChatTimeout:   120 * time.Second,
			StatusTimeout: 10 * time.Second,
		},
		Output: &OutputConfig{
			Budget:      output.DefaultBudget,
			MaxChunks:   output.DefaultMaxChunks,
			OutputLimit: 4000,
		},
		Noise:   output.DefaultNoiseTables(),
		Logging: logging.DefaultConfig(),
	}
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".qbot", "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is not an error), then the environment. A .env file in the
// working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFile reads YAML configuration on top of the defaults.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return defaults if no config file
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.fillDefaults()
	config.Tool.Path = expandPath(config.Tool.Path)
	return config, nil
}

// fillDefaults restores sections a YAML file set to null.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Telegram == nil {
		c.Telegram = def.Telegram
	}
	if c.Telegram.RateLimit == nil {
		c.Telegram.RateLimit = def.Telegram.RateLimit
	}
	if c.Tool == nil {
		c.Tool = def.Tool
	}
	if c.Output == nil {
		c.Output = def.Output
	}
	if c.Noise == nil {
		c.Noise = def.Noise
	}
	if c.Logging == nil {
		c.Logging = def.Logging
	}
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	c.fillDefaults()

	if v, ok := lookup("BOT_TOKEN"); ok && v != "" {
		c.Telegram.BotToken = v
	}
	if v, ok := lookup("ALLOWED_USERS"); ok {
		users, err := ParseAllowedUsers(v)
		if err != nil {
			return err
		}
		c.Telegram.AllowedUsers = users
	}
	if v, ok := lookup("Q_CLI_PATH"); ok && v != "" {
		c.Tool.Path = expandPath(v)
	}
	if v, ok := lookup("TIMEOUT"); ok && v != "" {
		d, err := parseSeconds("TIMEOUT", v)
		if err != nil {
			return err
		}
		c.Tool.Timeout = d
	}
	if v, ok := lookup("CHAT_TIMEOUT"); ok && v != "" {
		d, err := parseSeconds("CHAT_TIMEOUT", v)
		if err != nil {
			return err
		}
		c.Tool.ChatTimeout = d
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	return nil
}

// ParseAllowedUsers parses a comma-separated list of numeric user IDs.
// Blank entries are skipped; anything else that is not an integer is an error.
func ParseAllowedUsers(list string) ([]int64, error) {
	var users []int64
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOWED_USERS entry %q: %w", field, err)
		}
		users = append(users, id)
	}
	return users, nil
}

func parseSeconds(name, value string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be whole seconds", name, value)
	}
	return time.Duration(n) * time.Second, nil
}

// Save saves configuration to a file
func Save(config *Config, path string) error {
	path = expandPath(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	c.fillDefaults()

	if c.Tool.Timeout <= 0 {
		return fmt.Errorf("tool timeout must be positive, got %s", c.Tool.Timeout)
	}
	if c.Tool.ChatTimeout <= 0 {
		return fmt.Errorf("tool chat_timeout must be positive, got %s", c.Tool.ChatTimeout)
	}
	if c.Tool.StatusTimeout <= 0 {
		return fmt.Errorf("tool status_timeout must be positive, got %s", c.Tool.StatusTimeout)
	}
	if c.Output.Budget <= 0 || c.Output.Budget >= output.TelegramMessageLimit {
		return fmt.Errorf("output budget must be between 1 and %d, got %d", output.TelegramMessageLimit-1, c.Output.Budget)
	}
	if c.Output.MaxChunks < 2 {
		return fmt.Errorf("output max_chunks must be at least 2, got %d", c.Output.MaxChunks)
	}
	if c.Output.OutputLimit <= 0 {
		return fmt.Errorf("output output_limit must be positive, got %d", c.Output.OutputLimit)
	}
	if c.Noise.PromptMarker == "" {
		return fmt.Errorf("noise prompt_marker must not be empty")
	}
	if rl := c.Telegram.RateLimit; rl.Enabled && (rl.MessagesPerMinute <= 0 || rl.BurstSize <= 0) {
		return fmt.Errorf("rate limit needs positive messages_per_minute and burst_size")
	}
	return nil
}

// RequireToken reports a missing bot token.
func (c *Config) RequireToken() error {
	if c.Telegram == nil || c.Telegram.BotToken == "" {
		return fmt.Errorf("bot token is not set: export BOT_TOKEN, add it to .env, or set telegram.bot_token")
	}
	return nil
}
