package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group-gatekeeper/internal/service"
)

// chatActions adapts the Telegram API to service.ChatPlatform.
type chatActions struct {
	api *tgbotapi.BotAPI
}

var _ service.ChatPlatform = (*chatActions)(nil)

// mutedPermissions is the full restriction applied to newcomers and muted
// members.
var mutedPermissions = tgbotapi.ChatPermissions{
	CanSendMessages:       false,
	CanSendMediaMessages:  false,
	CanSendPolls:          false,
	CanSendOtherMessages:  false,
	CanAddWebPagePreviews: false,
	CanChangeInfo:         false,
	CanInviteUsers:        false,
	CanPinMessages:        false,
}

// memberPermissions is the regular-member permission set restored on unmute.
var memberPermissions = tgbotapi.ChatPermissions{
	CanSendMessages:       true,
	CanSendMediaMessages:  true,
	CanSendPolls:          true,
	CanSendOtherMessages:  true,
	CanAddWebPagePreviews: true,
	CanChangeInfo:         false,
	CanInviteUsers:        true,
	CanPinMessages:        false,
}

func (c *chatActions) Mute(ctx context.Context, chatID, userID int64, until time.Time) error {
	perms := mutedPermissions
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &perms,
	}
	if !until.IsZero() {
		cfg.UntilDate = until.Unix()
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("restrict member %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (c *chatActions) RestoreAccess(ctx context.Context, chatID, userID int64) error {
	perms := memberPermissions
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &perms,
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("restore member %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (c *chatActions) Ban(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("ban member %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (c *chatActions) Unban(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		OnlyIfBanned:     true,
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("unban member %d in %d: %w", userID, chatID, err)
	}
	return nil
}

func (c *chatActions) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return "", fmt.Errorf("get member %d in %d: %w", userID, chatID, err)
	}
	return member.Status, nil
}
