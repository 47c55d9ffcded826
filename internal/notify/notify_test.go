package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/log"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramNotify(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot, chatID: 99, logger: log.Discard()}

	require.NoError(t, tg.Notify(context.Background(), "Budget exceeded for Food"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(99), bot.sent[0].ChatID)
	assert.Equal(t, "Budget exceeded for Food", bot.sent[0].Text)

	bot.err = errors.New("flood")
	assert.Error(t, tg.Notify(context.Background(), "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.Notify(ctx, "x"), context.Canceled)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Notify(context.Background(), "a")
	_ = r.Notify(context.Background(), "b")
	assert.Equal(t, []string{"a", "b"}, r.Sent())
	assert.NoError(t, NewLog(nil).Notify(context.Background(), "c"))
}
