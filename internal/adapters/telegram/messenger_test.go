package telegram

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qbridge/qbot/internal/testutil"
)

var testChat = strconv.FormatInt(testutil.FakeTelegramChatID, 10)

func TestMessengerSendText(t *testing.T) {
	api := newFakeBotAPI(t)
	m := NewMessenger(api.newClient())

	ref, err := m.SendText(context.Background(), testChat, "hello")

	require.NoError(t, err)
	assert.Equal(t, "101", ref)
	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, sentRequest{chatID: testChat, text: "hello"}, sent[0])
}

func TestMessengerSendCodeUsesMarkdown(t *testing.T) {
	api := newFakeBotAPI(t)
	m := NewMessenger(api.newClient())

	_, err := m.SendCode(context.Background(), testChat, "```\nq 1.2.3\n```")

	require.NoError(t, err)
	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Markdown", sent[0].parseMode)
}

func TestMessengerSendCodeFallsBackToPlain(t *testing.T) {
	api := newFakeBotAPI(t)
	api.setRejectMarkdown(true)
	m := NewMessenger(api.newClient())

	ref, err := m.SendCode(context.Background(), testChat, "```\nunbalanced_markup*\n```")

	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "", sent[0].parseMode)
	assert.Equal(t, "```\nunbalanced_markup*\n```", sent[0].text)
}

func TestMessengerDeleteMessage(t *testing.T) {
	api := newFakeBotAPI(t)
	m := NewMessenger(api.newClient())
	ctx := context.Background()

	ref, err := m.SendText(ctx, testChat, "🤔 Thinking...")
	require.NoError(t, err)

	require.NoError(t, m.DeleteMessage(ctx, testChat, ref))
	assert.Equal(t, []string{ref}, api.deletedIDs())
}

func TestMessengerRejectsBadIDs(t *testing.T) {
	api := newFakeBotAPI(t)
	m := NewMessenger(api.newClient())
	ctx := context.Background()

	_, err := m.SendText(ctx, "not-a-chat", "hi")
	assert.Error(t, err)

	assert.Error(t, m.DeleteMessage(ctx, testChat, "abc"))
	assert.Empty(t, api.sentMessages())
}
