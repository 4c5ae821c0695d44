package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"group-gatekeeper/internal/model"
)

var (
	// ErrNotAllowed means the caller lacks the required capability.
	ErrNotAllowed = errors.New("moderation: not allowed")
	// ErrNoTarget means the command had neither a reply nor a usable @handle.
	ErrNoTarget = errors.New("moderation: target required")
	// ErrTargetNotFound means the @handle resolved to no known user.
	ErrTargetNotFound = errors.New("moderation: target not found")
	// ErrRootImmutable rejects attempts to revoke the root identity.
	ErrRootImmutable = errors.New("moderation: root admin cannot be removed")
)

// TargetRef is an unresolved command target: the replied-to author when
// present, otherwise an "@handle" argument. Resolution happens inside the
// commands, after the capability check, so unauthorized callers learn
// nothing about who is in the database.
type TargetRef struct {
	Reply *Identity
	Arg   string
}

// Target is a resolved moderation target.
type Target struct {
	ID       int64
	Username string // display form, with leading @ or the bare name
}

// ModerationService implements the admin-gated command layer and the
// chat-wide guard mode.
type ModerationService struct {
	users        UserStore
	admins       AdminStore
	audit        AuditStore
	chats        ChatSettingStore
	chat         ChatPlatform
	rootID       int64
	muteDuration time.Duration
	log          zerolog.Logger
}

func NewModerationService(users UserStore, admins AdminStore, audit AuditStore, chats ChatSettingStore, chat ChatPlatform, rootID int64, muteDuration time.Duration, log zerolog.Logger) *ModerationService {
	return &ModerationService{
		users:        users,
		admins:       admins,
		audit:        audit,
		chats:        chats,
		chat:         chat,
		rootID:       rootID,
		muteDuration: muteDuration,
		log:          log,
	}
}

// IsPrivileged reports whether the identity is the root or allow-listed.
func (s *ModerationService) IsPrivileged(ctx context.Context, userID int64) (bool, error) {
	if userID == s.rootID {
		return true, nil
	}
	return s.admins.IsAdmin(ctx, userID)
}

func (s *ModerationService) requirePrivileged(ctx context.Context, userID int64) error {
	ok, err := s.IsPrivileged(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAllowed
	}
	return nil
}

func (s *ModerationService) requireRoot(userID int64) error {
	if userID != s.rootID {
		return ErrNotAllowed
	}
	return nil
}

// resolveTarget turns a reference into a target. The replied-to author wins
// when both are present. When the database has no username for a resolved
// handle, the literal typed handle is kept for display.
func (s *ModerationService) resolveTarget(ctx context.Context, ref TargetRef) (Target, error) {
	if ref.Reply != nil {
		return Target{ID: ref.Reply.ID, Username: displayName(*ref.Reply)}, nil
	}

	arg := strings.TrimSpace(ref.Arg)
	if !strings.HasPrefix(arg, "@") || len(arg) < 2 {
		return Target{}, ErrNoTarget
	}
	handle := strings.TrimPrefix(arg, "@")

	user, err := s.users.FindByUsername(ctx, handle)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Target{}, ErrTargetNotFound
	}
	if err != nil {
		return Target{}, fmt.Errorf("resolve @%s: %w", handle, err)
	}

	display := "@" + handle
	if user.Username != "" {
		display = "@" + user.Username
	}
	return Target{ID: user.TelegramID, Username: display}, nil
}

// Kick soft-kicks the target: ban immediately followed by unban, so no
// persistent ban record remains.
func (s *ModerationService) Kick(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requirePrivileged(ctx, actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := s.chat.Ban(ctx, chatID, target.ID); err != nil {
		return "", fmt.Errorf("kick: ban: %w", err)
	}
	if err := s.chat.Unban(ctx, chatID, target.ID); err != nil {
		return "", fmt.Errorf("kick: unban: %w", err)
	}
	s.logAction(ctx, "kick", actor, &target, &chatID)
	return fmt.Sprintf("👢 Пользователь %s кикнут.", target.Username), nil
}

// Mute applies the fixed-duration restriction.
func (s *ModerationService) Mute(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requirePrivileged(ctx, actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	until := time.Now().Add(s.muteDuration)
	if err := s.chat.Mute(ctx, chatID, target.ID, until); err != nil {
		return "", fmt.Errorf("mute: %w", err)
	}
	s.logAction(ctx, "mute", actor, &target, &chatID)
	return fmt.Sprintf("🔇 Пользователь %s замьючен на %s.", target.Username, formatDuration(s.muteDuration)), nil
}

// PermMute applies a restriction with no expiry.
func (s *ModerationService) PermMute(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requirePrivileged(ctx, actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := s.chat.Mute(ctx, chatID, target.ID, noExpiry); err != nil {
		return "", fmt.Errorf("permanent mute: %w", err)
	}
	s.logAction(ctx, "pmute", actor, &target, &chatID)
	return fmt.Sprintf("🔒 Пользователь %s замьючен перманентно.", target.Username), nil
}

// Unmute restores the full regular-member permission set.
func (s *ModerationService) Unmute(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requirePrivileged(ctx, actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := s.chat.RestoreAccess(ctx, chatID, target.ID); err != nil {
		return "", fmt.Errorf("unmute: %w", err)
	}
	s.logAction(ctx, "unmute", actor, &target, &chatID)
	return fmt.Sprintf("✅ Пользователь %s размьючен.", target.Username), nil
}

// ForceVerify (/up) marks the target verified and unmutes them without the
// form. The completeness re-check is deliberately bypassed here.
func (s *ModerationService) ForceVerify(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requirePrivileged(ctx, actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := s.chat.RestoreAccess(ctx, chatID, target.ID); err != nil {
		return "", fmt.Errorf("force verify: restore access: %w", err)
	}
	if err := s.users.ForceVerify(ctx, target.ID); err != nil {
		return "", err
	}
	s.logAction(ctx, "up", actor, &target, &chatID)
	return fmt.Sprintf("✅ Пользователю %s выданы права без регистрации.", target.Username), nil
}

// AddAdmin grants bot-admin capability. Root only.
func (s *ModerationService) AddAdmin(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requireRoot(actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := s.admins.Add(ctx, target.ID); err != nil {
		return "", err
	}
	s.logAction(ctx, "addadmin", actor, &target, &chatID)
	return fmt.Sprintf("👑 Пользователь %s добавлен админом бота.", target.Username), nil
}

// DelAdmin revokes bot-admin capability. Root only; revoking the root
// itself is always rejected.
func (s *ModerationService) DelAdmin(ctx context.Context, actor Identity, chatID int64, ref TargetRef) (string, error) {
	if err := s.requireRoot(actor.ID); err != nil {
		return "", err
	}
	target, err := s.resolveTarget(ctx, ref)
	if err != nil {
		return "", err
	}
	if target.ID == s.rootID {
		return "", ErrRootImmutable
	}
	if err := s.admins.Remove(ctx, target.ID); err != nil {
		return "", err
	}
	s.logAction(ctx, "deladmin", actor, &target, &chatID)
	return fmt.Sprintf("🗑 Пользователь %s удалён из админов бота.", target.Username), nil
}

// SetGuard toggles guard mode for one chat. Root only; persisted.
func (s *ModerationService) SetGuard(ctx context.Context, actor Identity, chatID int64, enabled bool) (string, error) {
	if err := s.requireRoot(actor.ID); err != nil {
		return "", err
	}
	if err := s.chats.SetGuard(ctx, chatID, enabled); err != nil {
		return "", err
	}
	action := "reg_mode_off"
	state := "ВЫКЛЮЧЕН"
	if enabled {
		action = "reg_mode_on"
		state = "ВКЛЮЧЕН"
	}
	s.logAction(ctx, action, actor, nil, &chatID)
	return fmt.Sprintf("🛡 Режим регистрации: %s", state), nil
}

// ShouldBlock decides whether guard mode must suppress a message from the
// given sender in the given chat: guard on, sender neither privileged nor
// verified.
func (s *ModerationService) ShouldBlock(ctx context.Context, chatID, senderID int64) (bool, error) {
	enabled, err := s.chats.GuardEnabled(ctx, chatID)
	if err != nil || !enabled {
		return false, err
	}
	privileged, err := s.IsPrivileged(ctx, senderID)
	if err != nil || privileged {
		return false, err
	}
	verified, err := s.users.IsVerified(ctx, senderID)
	if err != nil {
		return false, err
	}
	return !verified, nil
}

// BlockSender mutes an unverified sender caught by guard mode.
func (s *ModerationService) BlockSender(ctx context.Context, chatID, senderID int64) error {
	return s.chat.Mute(ctx, chatID, senderID, noExpiry)
}

// HelpText returns the capability-scoped command list; empty for callers
// without any capability.
func (s *ModerationService) HelpText(ctx context.Context, userID int64) (string, error) {
	if userID == s.rootID {
		return "🛠 Команды бота (Супер админ):\n" +
			"/kick — кикнуть пользователя\n" +
			"/mute — замутить на 24 часа\n" +
			"/pmute — перманентный мут\n" +
			"/unmute — снять мут\n" +
			"/up — выдать права без регистрации\n" +
			"/addadmin — добавить админа бота\n" +
			"/deladmin — удалить админа бота\n" +
			"/reg_mode on|off — режим контроля регистрации\n" +
			"/help — показать это сообщение", nil
	}
	isAdmin, err := s.admins.IsAdmin(ctx, userID)
	if err != nil || !isAdmin {
		return "", err
	}
	return "🛠 Команды бота (админ):\n" +
		"/kick — кикнуть пользователя\n" +
		"/mute — замутить на 24 часа\n" +
		"/pmute — перманентный мут\n" +
		"/unmute — снять мут\n" +
		"/up — выдать права без регистрации\n" +
		"/help — показать это сообщение", nil
}

// logAction appends one audit row. Root actions are suppressed: the root
// identity is exempt from audit logging. Append failures are logged and
// swallowed; auditing never fails a command.
func (s *ModerationService) logAction(ctx context.Context, action string, actor Identity, target *Target, chatID *int64) {
	if actor.ID == s.rootID {
		return
	}

	entry := &model.AdminActionLog{
		Action:          action,
		AdminTelegramID: actor.ID,
		AdminUsername:   actor.Username,
		ChatID:          chatID,
	}
	if target != nil {
		entry.TargetTelegramID = &target.ID
		entry.TargetUsername = target.Username
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Int64("admin", actor.ID).Msg("audit append failed")
		return
	}
	s.log.Info().Str("action", action).Int64("admin", actor.ID).Msg("admin action logged")
}

// formatDuration renders a restriction length for chat messages.
func formatDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d ч", int(d.Hours()))
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d мин", int(d.Minutes()))
	}
	return d.String()
}

func displayName(id Identity) string {
	if id.Username != "" {
		return "@" + id.Username
	}
	if id.FirstName != "" {
		return id.FirstName
	}
	return fmt.Sprintf("ID%d", id.ID)
}
