package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"group-gatekeeper/internal/model"
)

type fakeAdmins struct {
	ids map[int64]bool
}

func newFakeAdmins() *fakeAdmins { return &fakeAdmins{ids: make(map[int64]bool)} }

func (f *fakeAdmins) Add(_ context.Context, telegramID int64) error {
	f.ids[telegramID] = true
	return nil
}

func (f *fakeAdmins) Remove(_ context.Context, telegramID int64) error {
	delete(f.ids, telegramID)
	return nil
}

func (f *fakeAdmins) IsAdmin(_ context.Context, telegramID int64) (bool, error) {
	return f.ids[telegramID], nil
}

type fakeAudit struct {
	entries []*model.AdminActionLog
}

func (f *fakeAudit) Append(_ context.Context, entry *model.AdminActionLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeChatSettings struct {
	guard map[int64]bool
}

func newFakeChatSettings() *fakeChatSettings { return &fakeChatSettings{guard: make(map[int64]bool)} }

func (f *fakeChatSettings) SetGuard(_ context.Context, chatID int64, enabled bool) error {
	f.guard[chatID] = enabled
	return nil
}

func (f *fakeChatSettings) GuardEnabled(_ context.Context, chatID int64) (bool, error) {
	return f.guard[chatID], nil
}

const rootID int64 = 1

var (
	root    = Identity{ID: rootID, Username: "root"}
	officer = Identity{ID: 2, Username: "officer"}
	nobody  = Identity{ID: 3, Username: "nobody"}
)

func byReply(id Identity) TargetRef { return TargetRef{Reply: &id} }

func byHandle(arg string) TargetRef { return TargetRef{Arg: arg} }

type modFixture struct {
	svc      *ModerationService
	users    *fakeUsers
	admins   *fakeAdmins
	audit    *fakeAudit
	settings *fakeChatSettings
	chat     *fakeChat
}

func newModFixture(t *testing.T, muteDuration time.Duration) *modFixture {
	t.Helper()
	f := &modFixture{
		users:    newFakeUsers(),
		admins:   newFakeAdmins(),
		audit:    &fakeAudit{},
		settings: newFakeChatSettings(),
		chat:     newFakeChat(),
	}
	f.svc = NewModerationService(f.users, f.admins, f.audit, f.settings, f.chat, rootID, muteDuration, zerolog.Nop())
	return f
}

func TestAddAdminRequiresRoot(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true
	f.users.records[77] = &model.User{TelegramID: 77, Username: "x"}

	// Neither a plain user nor an allow-listed admin may grow the list.
	for _, actor := range []Identity{nobody, officer} {
		_, err := f.svc.AddAdmin(ctx, actor, 555, byHandle("@x"))
		assert.ErrorIs(t, err, ErrNotAllowed)
	}
	assert.False(t, f.admins.ids[77], "denied call must not touch the allow-list")

	text, err := f.svc.AddAdmin(ctx, root, 555, byHandle("@x"))
	require.NoError(t, err)
	assert.True(t, f.admins.ids[77])
	assert.Contains(t, text, "@x")
}

func TestCapabilityCheckedBeforeResolution(t *testing.T) {
	// An unauthorized caller must not be able to tell whether a handle
	// exists: the answer is the same for known and unknown targets.
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.users.records[88] = &model.User{TelegramID: 88, Username: "known"}

	for _, arg := range []string{"@known", "@ghost", ""} {
		_, err := f.svc.Kick(ctx, nobody, 555, byHandle(arg))
		assert.ErrorIs(t, err, ErrNotAllowed, "arg %q", arg)
	}
	assert.Empty(t, f.chat.banCalls)

	// A privileged caller still gets the precise resolution errors.
	f.admins.ids[officer.ID] = true
	_, err := f.svc.Kick(ctx, officer, 555, byHandle("@ghost"))
	assert.ErrorIs(t, err, ErrTargetNotFound)
	_, err = f.svc.Kick(ctx, officer, 555, byHandle(""))
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestRootActionsLeaveNoAuditTrail(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.users.records[77] = &model.User{TelegramID: 77, Username: "x"}

	_, err := f.svc.AddAdmin(ctx, root, 555, byHandle("@x"))
	require.NoError(t, err)
	_, err = f.svc.Kick(ctx, root, 555, byReply(Identity{ID: 88, Username: "y"}))
	require.NoError(t, err)

	assert.Empty(t, f.audit.entries, "root activity is exempt from the action log")
}

func TestAdminActionsAreAudited(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true

	_, err := f.svc.Mute(ctx, officer, 555, byReply(Identity{ID: 88, Username: "y"}))
	require.NoError(t, err)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, "mute", entry.Action)
	assert.Equal(t, officer.ID, entry.AdminTelegramID)
	require.NotNil(t, entry.TargetTelegramID)
	assert.Equal(t, int64(88), *entry.TargetTelegramID)
	require.NotNil(t, entry.ChatID)
	assert.Equal(t, int64(555), *entry.ChatID)
}

func TestDelAdminProtectsRoot(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()

	_, err := f.svc.DelAdmin(ctx, root, 555, byReply(root))
	assert.ErrorIs(t, err, ErrRootImmutable)

	f.admins.ids[officer.ID] = true
	_, err = f.svc.DelAdmin(ctx, root, 555, byReply(officer))
	require.NoError(t, err)
	assert.False(t, f.admins.ids[officer.ID])
}

func TestResolveTarget(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()

	f.users.records[88] = &model.User{TelegramID: 88, Username: "known"}

	t.Run("reply author wins over argument", func(t *testing.T) {
		author := Identity{ID: 42, Username: "replied"}
		target, err := f.svc.resolveTarget(ctx, TargetRef{Reply: &author, Arg: "@known"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), target.ID)
		assert.Equal(t, "@replied", target.Username)
	})

	t.Run("handle lookup", func(t *testing.T) {
		target, err := f.svc.resolveTarget(ctx, byHandle("@known"))
		require.NoError(t, err)
		assert.Equal(t, int64(88), target.ID)
		assert.Equal(t, "@known", target.Username)
	})

	t.Run("unknown handle", func(t *testing.T) {
		_, err := f.svc.resolveTarget(ctx, byHandle("@ghost"))
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := f.svc.resolveTarget(ctx, byHandle(""))
		assert.ErrorIs(t, err, ErrNoTarget)
		_, err = f.svc.resolveTarget(ctx, byHandle("not-a-handle"))
		assert.ErrorIs(t, err, ErrNoTarget)
	})
}

func TestKickBansThenUnbans(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true

	_, err := f.svc.Kick(ctx, officer, 555, byReply(Identity{ID: 88, Username: "y"}))
	require.NoError(t, err)

	require.Len(t, f.chat.banCalls, 1)
	require.Len(t, f.chat.unbanCalls, 1)
	assert.Equal(t, memberCall{555, 88}, f.chat.banCalls[0])
	assert.Equal(t, memberCall{555, 88}, f.chat.unbanCalls[0])
}

func TestMuteVariants(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true

	text, err := f.svc.Mute(ctx, officer, 555, byReply(Identity{ID: 88, Username: "y"}))
	require.NoError(t, err)
	assert.Contains(t, text, "24 ч")
	_, err = f.svc.PermMute(ctx, officer, 555, byReply(Identity{ID: 89, Username: "z"}))
	require.NoError(t, err)
	require.Len(t, f.chat.muteCalls, 2)

	_, err = f.svc.Unmute(ctx, officer, 555, byReply(Identity{ID: 88, Username: "y"}))
	require.NoError(t, err)
	require.Len(t, f.chat.restoreCalls, 1)
	assert.Equal(t, memberCall{555, 88}, f.chat.restoreCalls[0])

	// A plain member never reaches the platform.
	_, err = f.svc.Mute(ctx, nobody, 555, byReply(Identity{ID: 88, Username: "y"}))
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Len(t, f.chat.muteCalls, 2)
}

func TestMuteMessageForShortDuration(t *testing.T) {
	f := newModFixture(t, 30*time.Minute)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true

	text, err := f.svc.Mute(ctx, officer, 555, byReply(Identity{ID: 88, Username: "y"}))
	require.NoError(t, err)
	assert.Contains(t, text, "30 мин")
	assert.NotContains(t, text, "0 ч")
}

func TestForceVerify(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true
	f.users.records[88] = &model.User{TelegramID: 88, Username: "y"}

	_, err := f.svc.ForceVerify(ctx, officer, 555, byHandle("@y"))
	require.NoError(t, err)

	assert.True(t, f.users.records[88].IsVerified)
	require.Len(t, f.chat.restoreCalls, 1)
	assert.Equal(t, memberCall{555, 88}, f.chat.restoreCalls[0])
}

func TestForceVerifyByReplyWithoutRecord(t *testing.T) {
	// A reply-to target may never have talked to the bot; /up still has to
	// leave a verified row behind so guard mode honors the grant.
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true

	_, err := f.svc.ForceVerify(ctx, officer, 555, byReply(Identity{ID: 90, Username: "stranger"}))
	require.NoError(t, err)

	require.Contains(t, f.users.records, int64(90))
	assert.True(t, f.users.records[90].IsVerified)

	require.NoError(t, f.settings.SetGuard(ctx, 555, true))
	block, err := f.svc.ShouldBlock(ctx, 555, 90)
	require.NoError(t, err)
	assert.False(t, block)
}

func TestSetGuardPersistsPerChat(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()

	_, err := f.svc.SetGuard(ctx, officer, 555, true)
	assert.ErrorIs(t, err, ErrNotAllowed)

	text, err := f.svc.SetGuard(ctx, root, 555, true)
	require.NoError(t, err)
	assert.Contains(t, text, "ВКЛЮЧЕН")
	assert.True(t, f.settings.guard[555])
	assert.False(t, f.settings.guard[777], "guard is scoped to one chat")

	_, err = f.svc.SetGuard(ctx, root, 555, false)
	require.NoError(t, err)
	assert.False(t, f.settings.guard[555])
}

func TestShouldBlock(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true
	f.users.records[88] = &model.User{TelegramID: 88, IsVerified: true}

	// Guard off: nobody is blocked.
	block, err := f.svc.ShouldBlock(ctx, 555, nobody.ID)
	require.NoError(t, err)
	assert.False(t, block)

	require.NoError(t, f.settings.SetGuard(ctx, 555, true))

	cases := []struct {
		name   string
		sender int64
		want   bool
	}{
		{"unverified stranger", nobody.ID, true},
		{"verified member", 88, false},
		{"bot admin", officer.ID, false},
		{"root", rootID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block, err := f.svc.ShouldBlock(ctx, 555, tc.sender)
			require.NoError(t, err)
			assert.Equal(t, tc.want, block)
		})
	}

	// The toggle is per chat: the same stranger passes elsewhere.
	block, err = f.svc.ShouldBlock(ctx, 777, nobody.ID)
	require.NoError(t, err)
	assert.False(t, block)
}

func TestHelpTextScopedByCapability(t *testing.T) {
	f := newModFixture(t, 24*time.Hour)
	ctx := context.Background()
	f.admins.ids[officer.ID] = true

	rootHelp, err := f.svc.HelpText(ctx, rootID)
	require.NoError(t, err)
	assert.Contains(t, rootHelp, "/addadmin")
	assert.Contains(t, rootHelp, "/reg_mode")

	adminHelp, err := f.svc.HelpText(ctx, officer.ID)
	require.NoError(t, err)
	assert.Contains(t, adminHelp, "/kick")
	assert.NotContains(t, adminHelp, "/addadmin")
	assert.NotContains(t, adminHelp, "/reg_mode")

	noneHelp, err := f.svc.HelpText(ctx, nobody.ID)
	require.NoError(t, err)
	assert.Empty(t, noneHelp)
}
