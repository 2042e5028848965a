// Package testutil provides testing utilities shared across packages.
package testutil

// Safe test values that won't trigger secret scanning.
const (
	// FakeTelegramBotToken is a safe test token for Telegram bot authentication.
	FakeTelegramBotToken = "123456:test-telegram-bot-token"

	// FakeTelegramChatID is a safe test chat ID.
	FakeTelegramChatID int64 = 100200300

	// FakeTelegramUserID is a safe test user ID.
	FakeTelegramUserID int64 = 424242
)
