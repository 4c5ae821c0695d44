package bot

import (
	"context"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"group-gatekeeper/internal/config"
	"group-gatekeeper/internal/service"
)

// Bot aggregates the Telegram API with the registration and moderation
// services and routes incoming updates.
type Bot struct {
	api *tgbotapi.BotAPI
	reg *service.RegistrationService
	mod *service.ModerationService
	cfg *config.Config
	log zerolog.Logger
}

// NewAPI authenticates against the Telegram Bot API.
func NewAPI(token string, log zerolog.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")
	return api, nil
}

// NewChatActions exposes member-state mutations as service.ChatPlatform.
func NewChatActions(api *tgbotapi.BotAPI) service.ChatPlatform {
	return &chatActions{api: api}
}

func New(api *tgbotapi.BotAPI, reg *service.RegistrationService, mod *service.ModerationService, cfg *config.Config, log zerolog.Logger) *Bot {
	return &Bot{api: api, reg: reg, mod: mod, cfg: cfg, log: log}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	// chat_member updates are not delivered unless explicitly requested.
	updateConfig.AllowedUpdates = []string{"message", "callback_query", "chat_member"}
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.ChatMember != nil:
			if err := b.handleChatMember(ctx, update.ChatMember); err != nil {
				b.log.Error().Err(err).Msg("handle chat member update")
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	switch {
	case msg.Chat.IsPrivate():
		return b.handlePrivate(ctx, msg)
	case msg.Chat.IsGroup() || msg.Chat.IsSuperGroup():
		return b.handleGroup(ctx, msg)
	default:
		return nil
	}
}

// handleChatMember reacts to join events: a fresh registration cycle, an
// immediate mute and a welcome message pointing at the bot.
func (b *Bot) handleChatMember(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) error {
	if !joinedChat(upd.OldChatMember, upd.NewChatMember) {
		return nil
	}

	user := upd.NewChatMember.User
	if user == nil || user.IsBot {
		return nil
	}

	id := identityOf(user)
	b.log.Info().Int64("user", id.ID).Int64("chat", upd.Chat.ID).Msg("user joined group")

	if err := b.reg.OnJoin(ctx, id, upd.Chat.ID); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👋 %s добро пожаловать!\n\n"+
			"Чтобы получить возможность писать в чате — пройди регистрацию в личных сообщениях у бота.\n"+
			"Просто напиши ему /start",
		mention(user),
	)
	welcome := tgbotapi.NewMessage(upd.Chat.ID, text)
	welcome.ParseMode = tgbotapi.ModeHTML
	welcome.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Перейти к боту", "https://t.me/"+b.cfg.BotUsername),
		),
	)
	_, err := b.api.Send(welcome)
	return err
}

// sendReply renders a service reply: plain text with its keyboard, then
// any inline menu, in order.
func (b *Bot) sendReply(chatID int64, reply service.Reply) error {
	if reply.Text != "" {
		msg := tgbotapi.NewMessage(chatID, reply.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		if markup := replyMarkup(reply.Keyboard); markup != nil {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			return err
		}
	}
	if reply.Summary != nil {
		msg := tgbotapi.NewMessage(chatID, reply.Summary.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = inlineMenu(reply.Summary, nil)
		if _, err := b.api.Send(msg); err != nil {
			return err
		}
	}
	if reply.EditMenu != nil {
		msg := tgbotapi.NewMessage(chatID, reply.EditMenu.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = inlineMenu(nil, reply.EditMenu)
		if _, err := b.api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// sendTemp sends an advisory message that self-deletes after the
// configured TTL. Deletion failure is ignored.
func (b *Bot) sendTemp(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(msg)
	if err != nil {
		return err
	}
	time.AfterFunc(b.cfg.TempMessageTTL, func() {
		_, _ = b.api.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID))
	})
	return nil
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug().Err(err).Int("message", messageID).Msg("delete message failed")
	}
}

func (b *Bot) answerCallback(id, text string, alert bool) {
	callback := tgbotapi.NewCallback(id, text)
	if alert {
		callback = tgbotapi.NewCallbackWithAlert(id, text)
	}
	if _, err := b.api.Request(callback); err != nil {
		b.log.Debug().Err(err).Msg("callback ack failed")
	}
}

// chatMemberPresent reports whether the member is currently in the chat.
// Status alone is not enough: a restricted member carries membership in
// the IsMember flag, and a muted user who leaves and rejoins stays
// "restricted" on both sides of the update.
func chatMemberPresent(m tgbotapi.ChatMember) bool {
	switch m.Status {
	case "creator", "administrator", "member":
		return true
	case "restricted":
		return m.IsMember
	default:
		return false
	}
}

func joinedChat(prev, curr tgbotapi.ChatMember) bool {
	return !chatMemberPresent(prev) && chatMemberPresent(curr)
}

func identityOf(user *tgbotapi.User) service.Identity {
	return service.Identity{ID: user.ID, Username: user.UserName, FirstName: user.FirstName}
}

func mention(user *tgbotapi.User) string {
	name := user.FirstName
	if name == "" && user.UserName != "" {
		name = "@" + user.UserName
	}
	if name == "" {
		name = fmt.Sprintf("ID%d", user.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(name))
}
