package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group-gatekeeper/internal/service"
)

// handleGroup routes group-chat traffic: moderation commands first, then
// the guard-mode trap for everything else.
func (b *Bot) handleGroup(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From.IsBot {
		return nil
	}
	if msg.IsCommand() {
		return b.handleGroupCommand(ctx, msg)
	}
	return b.guardCheck(ctx, msg)
}

func (b *Bot) handleGroupCommand(ctx context.Context, msg *tgbotapi.Message) error {
	actor := identityOf(msg.From)
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	b.log.Info().Int64("user", actor.ID).Int64("chat", chatID).Str("command", msg.Command()).Msg("group command")

	switch msg.Command() {
	case "kick":
		return b.runTargeted(msg, func(ref service.TargetRef) (string, error) {
			return b.mod.Kick(ctx, actor, chatID, ref)
		})
	case "mute":
		return b.runTargeted(msg, func(ref service.TargetRef) (string, error) {
			return b.mod.Mute(ctx, actor, chatID, ref)
		})
	case "pmute":
		return b.runTargeted(msg, func(ref service.TargetRef) (string, error) {
			return b.mod.PermMute(ctx, actor, chatID, ref)
		})
	case "unmute":
		return b.runTargeted(msg, func(ref service.TargetRef) (string, error) {
			return b.mod.Unmute(ctx, actor, chatID, ref)
		})
	case "up":
		return b.runTargeted(msg, func(ref service.TargetRef) (string, error) {
			return b.mod.ForceVerify(ctx, actor, chatID, ref)
		})
	case "addadmin":
		return b.runHandleOnly(msg, args, func(ref service.TargetRef) (string, error) {
			return b.mod.AddAdmin(ctx, actor, chatID, ref)
		})
	case "deladmin":
		return b.runHandleOnly(msg, args, func(ref service.TargetRef) (string, error) {
			return b.mod.DelAdmin(ctx, actor, chatID, ref)
		})
	case "reg_mode":
		if args != "on" && args != "off" {
			return b.sendTemp(chatID, "Использование: /reg_mode on|off")
		}
		text, err := b.mod.SetGuard(ctx, actor, chatID, args == "on")
		if errors.Is(err, service.ErrNotAllowed) {
			// Root-only toggle stays silent for everyone else.
			return nil
		}
		if err != nil {
			b.log.Error().Err(err).Int64("chat", chatID).Msg("guard toggle failed")
			return b.sendTemp(chatID, "Произошла ошибка. Попробуйте ещё раз.")
		}
		return b.sendText(chatID, text)
	case "help":
		text, err := b.mod.HelpText(ctx, actor.ID)
		if err != nil {
			b.log.Error().Err(err).Msg("help lookup failed")
			return nil
		}
		if text == "" {
			return nil
		}
		return b.sendTemp(chatID, text)
	default:
		return nil
	}
}

// runTargeted packs the reply-to author and the @handle argument into an
// unresolved reference and executes one moderation command, mapping
// service errors to advisory messages. Resolution happens inside the
// service, behind its capability check.
func (b *Bot) runTargeted(msg *tgbotapi.Message, run func(service.TargetRef) (string, error)) error {
	ref := service.TargetRef{Arg: msg.CommandArguments()}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		author := identityOf(msg.ReplyToMessage.From)
		ref.Reply = &author
	}

	text, err := run(ref)
	if err != nil {
		return b.reportCommandError(msg, err)
	}
	return b.sendTemp(msg.Chat.ID, text)
}

// runHandleOnly is runTargeted for the allow-list commands, which accept
// only an explicit @handle.
func (b *Bot) runHandleOnly(msg *tgbotapi.Message, args string, run func(service.TargetRef) (string, error)) error {
	text, err := run(service.TargetRef{Arg: args})
	if err != nil {
		return b.reportCommandError(msg, err)
	}
	return b.sendTemp(msg.Chat.ID, text)
}

func (b *Bot) reportCommandError(msg *tgbotapi.Message, err error) error {
	chatID := msg.Chat.ID
	switch {
	case errors.Is(err, service.ErrNotAllowed):
		return b.sendTemp(chatID, "⛔ У вас нет прав для использования этой команды.")
	case errors.Is(err, service.ErrNoTarget):
		return b.sendTemp(chatID, "Используй команду ответом на сообщение пользователя или укажи @username.")
	case errors.Is(err, service.ErrTargetNotFound):
		return b.sendTemp(chatID, "Пользователь не найден в базе.")
	case errors.Is(err, service.ErrRootImmutable):
		return b.sendTemp(chatID, "❌ Невозможно удалить root администратора.")
	default:
		b.log.Error().Err(err).Int64("chat", chatID).Str("command", msg.Command()).Msg("moderation command failed")
		return b.sendTemp(chatID, "Произошла ошибка. Попробуйте ещё раз.")
	}
}

// guardCheck enforces guard mode: messages from unverified, non-privileged
// senders are deleted and the sender is muted on the spot.
func (b *Bot) guardCheck(ctx context.Context, msg *tgbotapi.Message) error {
	block, err := b.mod.ShouldBlock(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("guard check failed")
		return nil
	}
	if !block {
		return nil
	}

	b.log.Info().Int64("user", msg.From.ID).Int64("chat", msg.Chat.ID).Msg("guard mode blocked message")

	b.deleteMessage(msg.Chat.ID, msg.MessageID)
	if err := b.mod.BlockSender(ctx, msg.Chat.ID, msg.From.ID); err != nil {
		b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("guard mute failed")
	}

	text := "⛔ " + mention(msg.From) +
		", чтобы писать в группе — пройди регистрацию:\n👉 @" + b.cfg.BotUsername
	return b.sendText(msg.Chat.ID, text)
}
