package telegram

// DefaultPollTimeout is the getUpdates long-poll timeout in seconds.
const DefaultPollTimeout = 30

// Config holds Telegram adapter settings.
type Config struct {
	BotToken     string           `yaml:"bot_token"`
	AllowedUsers []int64          `yaml:"allowed_users"` // empty allows everyone
	PollTimeout  int              `yaml:"poll_timeout"`
	RateLimit    *RateLimitConfig `yaml:"rate_limit"`
}

// DefaultConfig returns default Telegram configuration.
func DefaultConfig() *Config {
	return &Config{
		PollTimeout: DefaultPollTimeout,
		RateLimit:   DefaultRateLimitConfig(),
	}
}
