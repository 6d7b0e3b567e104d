// Package telegram runs an optional Telegram bot that forwards chat messages
// into the resolution pipeline.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/hrygo/sagely/ai/orchestrator"
)

const (
	pollTimeoutSeconds = 30
	resolveTimeout     = 30 * time.Second
)

// Bot long-polls the Telegram API and answers each text message with the
// orchestrator's resolution. Users stay anonymous: Telegram identities are
// not mapped onto knowledge ownership.
type Bot struct {
	api          *tgbotapi.BotAPI
	orchestrator *orchestrator.Orchestrator
}

func NewBot(token string, orch *orchestrator.Orchestrator) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	return &Bot{api: api, orchestrator: orch}, nil
}

// Start consumes updates until the context is cancelled or Stop is called.
func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(updateConfig)

	slog.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil {
		message = update.EditedMessage
	}
	if message == nil || message.Text == "" {
		return
	}

	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	result, err := b.orchestrator.Resolve(resolveCtx, message.Text, nil)
	if err != nil {
		slog.Warn("telegram: failed to resolve message", "error", err)
		b.reply(message.Chat.ID, "Sorry, I couldn't process that message.")
		return
	}

	reply := result.Response
	if result.AwaitingReverify {
		reply = fmt.Sprintf("%s\n\n(This answer may be outdated; I'll re-check it.)", reply)
	}
	b.reply(message.Chat.ID, reply)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("telegram: failed to send reply", "chat_id", chatID, "error", err)
	}
}
