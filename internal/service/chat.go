package service

import (
	"context"
	"time"

	"group-gatekeeper/internal/model"
	"group-gatekeeper/internal/repository"
)

// ChatPlatform is the slice of the chat client the services need.
// Message delivery stays in the transport layer; only member-state
// mutations go through here so the commit and moderation paths are
// testable without a live connection.
type ChatPlatform interface {
	// Mute removes send permissions. A zero until means no expiry.
	Mute(ctx context.Context, chatID, userID int64, until time.Time) error
	// RestoreAccess grants the full regular-member permission set.
	RestoreAccess(ctx context.Context, chatID, userID int64) error
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
	// MemberStatus returns the member status string (creator, administrator,
	// member, restricted, left, kicked).
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

// UserStore is the user persistence surface consumed by the services.
// Implemented by repository.UserRepository.
type UserStore interface {
	UpsertContact(ctx context.Context, telegramID int64, username string) (*model.User, error)
	UpsertOnJoin(ctx context.Context, telegramID int64, username string, chatID int64) (*model.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	IsVerified(ctx context.Context, telegramID int64) (bool, error)
	SaveRegistration(ctx context.Context, telegramID int64, fields repository.RegistrationFields) error
	TryVerify(ctx context.Context, telegramID int64) (bool, error)
	ForceVerify(ctx context.Context, telegramID int64) error
}

// AdminStore is the allow-list surface. Implemented by repository.AdminRepository.
type AdminStore interface {
	Add(ctx context.Context, telegramID int64) error
	Remove(ctx context.Context, telegramID int64) error
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
}

// AuditStore appends action-log rows. Implemented by repository.AuditRepository.
type AuditStore interface {
	Append(ctx context.Context, entry *model.AdminActionLog) error
}

// ChatSettingStore holds per-chat flags. Implemented by repository.ChatSettingRepository.
type ChatSettingStore interface {
	SetGuard(ctx context.Context, chatID int64, enabled bool) error
	GuardEnabled(ctx context.Context, chatID int64) (bool, error)
}
