package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"group-gatekeeper/internal/model"
)

var dbSeq int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbSeq++
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.BotAdmin{}, &model.AdminActionLog{}, &model.ChatSetting{},
	))
	return db
}

func completeFields() RegistrationFields {
	return RegistrationFields{
		FullName:     "Иванова Кира Андреевна",
		GroupNumber:  "320601",
		Faculty:      "FKSiS",
		MobileNumber: "+375291234567",
		StudNumber:   "12345678",
		FormEduc:     "бюджет",
		Scholarship:  true,
	}
}

func TestUpsertOnJoinResetsCycleButKeepsHomeChat(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	// First join records the home chat.
	user, err := repo.UpsertOnJoin(ctx, 100, "alice", 555)
	require.NoError(t, err)
	require.NotNil(t, user.HomeChatID)
	assert.Equal(t, int64(555), *user.HomeChatID)

	// A completed registration later...
	require.NoError(t, repo.SaveRegistration(ctx, 100, completeFields()))
	ok, err := repo.TryVerify(ctx, 100)
	require.NoError(t, err)
	require.True(t, ok)

	// ...then a re-join through a different chat re-arms the whole cycle
	// but never rebinds the home chat.
	user, err = repo.UpsertOnJoin(ctx, 100, "alice_new", 777)
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.Nil(t, user.FullName)
	assert.Nil(t, user.Faculty)
	assert.False(t, user.Scholarship)
	assert.Equal(t, "alice_new", user.Username)
	require.NotNil(t, user.HomeChatID)
	assert.Equal(t, int64(555), *user.HomeChatID)
}

func TestUpsertContactLeavesRegistrationData(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertOnJoin(ctx, 100, "alice", 555)
	require.NoError(t, err)
	require.NoError(t, repo.SaveRegistration(ctx, 100, completeFields()))

	user, err := repo.UpsertContact(ctx, 100, "alice_renamed")
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", user.Username)

	user, err = repo.FindByTelegramID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Иванова Кира Андреевна", *user.FullName)
	require.NotNil(t, user.HomeChatID)
	assert.Equal(t, int64(555), *user.HomeChatID)
}

func TestSaveRegistrationNeverTouchesHomeChatOrFlag(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertOnJoin(ctx, 100, "alice", 555)
	require.NoError(t, err)
	_, err = repo.TryVerify(ctx, 100)
	require.NoError(t, err)

	require.NoError(t, repo.SaveRegistration(ctx, 100, completeFields()))

	user, err := repo.FindByTelegramID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, user.HomeChatID)
	assert.Equal(t, int64(555), *user.HomeChatID)
	assert.False(t, user.IsVerified, "the commit write itself never flips the flag")
}

func TestSaveRegistrationCreatesRowForPrivateOnlyUser(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveRegistration(ctx, 200, completeFields()))

	user, err := repo.FindByTelegramID(ctx, 200)
	require.NoError(t, err)
	assert.Nil(t, user.HomeChatID)
	assert.False(t, user.IsVerified)
	require.NotNil(t, user.GroupNumber)
	assert.Equal(t, "320601", *user.GroupNumber)
}

func TestTryVerify(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	t.Run("missing row", func(t *testing.T) {
		ok, err := repo.TryVerify(ctx, 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("incomplete row", func(t *testing.T) {
		_, err := repo.UpsertOnJoin(ctx, 100, "alice", 555)
		require.NoError(t, err)
		ok, err := repo.TryVerify(ctx, 100)
		require.NoError(t, err)
		assert.False(t, ok, "the completeness re-check must hold without the form")

		verified, err := repo.IsVerified(ctx, 100)
		require.NoError(t, err)
		assert.False(t, verified)
	})

	t.Run("complete row flips once", func(t *testing.T) {
		require.NoError(t, repo.SaveRegistration(ctx, 100, completeFields()))

		ok, err := repo.TryVerify(ctx, 100)
		require.NoError(t, err)
		assert.True(t, ok)

		// Second attempt finds the flag already set.
		ok, err = repo.TryVerify(ctx, 100)
		require.NoError(t, err)
		assert.False(t, ok)

		verified, err := repo.IsVerified(ctx, 100)
		require.NoError(t, err)
		assert.True(t, verified)
	})
}

func TestForceVerifySkipsCompletenessCheck(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertOnJoin(ctx, 100, "alice", 555)
	require.NoError(t, err)

	require.NoError(t, repo.ForceVerify(ctx, 100))
	verified, err := repo.IsVerified(ctx, 100)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestForceVerifyCreatesMissingRow(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	// Reply-to targets may never have talked to the bot.
	require.NoError(t, repo.ForceVerify(ctx, 999))

	user, err := repo.FindByTelegramID(ctx, 999)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.FullName)
}

func TestIsVerifiedForUnknownUser(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	verified, err := repo.IsVerified(context.Background(), 12345)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestFindByUsername(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertContact(ctx, 100, "alice")
	require.NoError(t, err)

	user, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.TelegramID)

	_, err = repo.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAdminRepository(t *testing.T) {
	repo := NewAdminRepository(newTestDB(t))
	ctx := context.Background()

	ok, err := repo.IsAdmin(ctx, 77)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Add(ctx, 77))
	require.NoError(t, repo.Add(ctx, 77), "re-adding is idempotent")

	ok, err = repo.IsAdmin(ctx, 77)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Remove(ctx, 77))
	ok, err = repo.IsAdmin(ctx, 77)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChatSettingRepository(t *testing.T) {
	repo := NewChatSettingRepository(newTestDB(t))
	ctx := context.Background()

	// Unknown chats default to guard off.
	enabled, err := repo.GuardEnabled(ctx, 555)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, repo.SetGuard(ctx, 555, true))
	enabled, err = repo.GuardEnabled(ctx, 555)
	require.NoError(t, err)
	assert.True(t, enabled)

	// Independent per chat.
	enabled, err = repo.GuardEnabled(ctx, 777)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, repo.SetGuard(ctx, 555, false))
	enabled, err = repo.GuardEnabled(ctx, 555)
	require.NoError(t, err)
	assert.False(t, enabled)
}
