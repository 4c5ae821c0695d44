package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handlePrivate routes private-chat traffic: commands, the reply-keyboard
// shortcuts, and free-text answers for an active conversation.
func (b *Bot) handlePrivate(ctx context.Context, msg *tgbotapi.Message) error {
	id := identityOf(msg.From)
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.log.Info().Int64("user", id.ID).Str("command", msg.Command()).Msg("private command")
		switch msg.Command() {
		case "start":
			reply, err := b.reg.Start(ctx, id)
			if err != nil {
				b.log.Error().Err(err).Int64("user", id.ID).Msg("start failed")
			}
			return b.sendReply(chatID, reply)
		case "reg":
			reply, err := b.reg.Begin(ctx, id)
			if err != nil {
				b.log.Error().Err(err).Int64("user", id.ID).Msg("reg failed")
			}
			return b.sendReply(chatID, reply)
		case "update":
			reply, err := b.reg.BeginUpdate(ctx, id)
			if err != nil {
				b.log.Error().Err(err).Int64("user", id.ID).Msg("update failed")
			}
			return b.sendReply(chatID, reply)
		default:
			return b.sendText(chatID, "Команда не поддерживается. Напиши /start.")
		}
	}

	switch msg.Text {
	case btnStatus:
		reply, err := b.reg.Status(ctx, id)
		if err != nil {
			b.log.Error().Err(err).Int64("user", id.ID).Msg("status failed")
		}
		return b.sendReply(chatID, reply)
	case btnUpdate:
		reply, err := b.reg.BeginUpdate(ctx, id)
		if err != nil {
			b.log.Error().Err(err).Int64("user", id.ID).Msg("update failed")
		}
		return b.sendReply(chatID, reply)
	case btnStartReg:
		reply, err := b.reg.Begin(ctx, id)
		if err != nil {
			b.log.Error().Err(err).Int64("user", id.ID).Msg("reg failed")
		}
		return b.sendReply(chatID, reply)
	}

	if b.reg.Active(id.ID) {
		reply, err := b.reg.Input(ctx, id, msg.Text)
		if err != nil {
			b.log.Error().Err(err).Int64("user", id.ID).Msg("conversation input failed")
		}
		return b.sendReply(chatID, reply)
	}

	return b.sendText(chatID, "Я пока не понял сообщение. Напиши /reg, чтобы пройти регистрацию, или /start.")
}

// handleCallback verifies and dispatches a signed interactive action.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	id := identityOf(cb.From)
	chatID := cb.Message.Chat.ID

	result, err := b.reg.Callback(ctx, id, cb.Data)
	if err != nil {
		b.log.Error().Err(err).Int64("user", id.ID).Msg("callback handling failed")
	}

	b.answerCallback(cb.ID, result.Ack, result.Alert)

	if result.DeleteSource {
		b.deleteMessage(chatID, cb.Message.MessageID)
	}
	for _, reply := range result.Replies {
		if err := b.sendReply(chatID, reply); err != nil {
			return err
		}
	}
	return nil
}
