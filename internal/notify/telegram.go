// Package notify pushes pass summaries to the operator.
package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// Notifier receives a short human-readable summary after a pass or sweep.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Telegram struct {
	bot    *bot.Bot
	chatID string
}

func NewTelegram(token, chatID string) (*Telegram, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
