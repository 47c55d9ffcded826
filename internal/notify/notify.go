// Package notify delivers budget alert messages to people.
package notify

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"budgettracker/internal/log"
)

// Notifier sends one text message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Telegram posts messages to a single chat through the Bot API.
type Telegram struct {
	bot    sender
	chatID int64
	logger *log.Logger
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewTelegram authenticates against the Bot API with token.
func NewTelegram(token string, chatID int64, logger *log.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentNotify)
	logger.Info("Telegram notifier ready", "bot", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.logger.DebugContext(ctx, "Telegram message sent", log.FieldOperation, log.OpNotify)
	return nil
}

// Log writes messages to the logger. Used when no chat is configured.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Discard()
	}
	return &Log{logger: logger.WithComponent(log.ComponentNotify)}
}

func (l *Log) Notify(ctx context.Context, text string) error {
	l.logger.InfoContext(ctx, "Budget notification", "text", text)
	return nil
}

// Recorder keeps messages in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []string
}

func (r *Recorder) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, text)
	return nil
}

func (r *Recorder) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Messages...)
}
