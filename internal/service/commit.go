package service

import (
	"context"
	"time"

	"group-gatekeeper/internal/repository"
)

// noExpiry marks a restriction without an until date.
var noExpiry time.Time

// commit runs the transactional tail of the registration flow:
//  1. persist the full field set (always, never rolled back later);
//  2. flip is_verified via the atomic try-verify, first verification only;
//  3. best-effort permission restore in the recorded home chat.
//
// Returned replies are rendered to the user in order.
func (s *RegistrationService) commit(ctx context.Context, id Identity, draft *Draft) []Reply {
	log := s.log.With().Int64("user", id.ID).Logger()
	log.Info().Msg("registration commit started")

	already, err := s.users.IsVerified(ctx, id.ID)
	if err != nil {
		log.Error().Err(err).Msg("commit: verification lookup failed")
		return []Reply{{Text: "Произошла ошибка при сохранении данных. Попробуйте заново (/start)", Keyboard: KeyboardMainMenu}}
	}

	fields := repository.RegistrationFields{
		FullName:     draft.Fields[FieldFullName],
		GroupNumber:  draft.Fields[FieldGroupNumber],
		Faculty:      draft.Fields[FieldFaculty],
		MobileNumber: draft.Fields[FieldMobileNumber],
		StudNumber:   draft.Fields[FieldStudNumber],
		FormEduc:     draft.Fields[FieldFormEduc],
		Scholarship:  draft.Fields[FieldScholarship] == "да",
	}

	// Step 1: durable write, unconditional.
	if err := s.users.SaveRegistration(ctx, id.ID, fields); err != nil {
		log.Error().Err(err).Msg("commit: save failed")
		return []Reply{{Text: "Произошла ошибка при сохранении данных. Попробуйте заново (/start)", Keyboard: KeyboardMainMenu}}
	}

	// Step 2: verification flip, only for a not-yet-verified user. The
	// update re-checks field completeness server-side; a client that
	// bypassed the conversation cannot verify an incomplete row.
	if !already {
		ok, err := s.users.TryVerify(ctx, id.ID)
		if err != nil || !ok {
			log.Error().Err(err).Msg("commit: verification flip failed")
			return []Reply{{
				Text:     "Не удалось завершить верификацию.\nПроверьте, все ли поля заполнены правильно, или напишите администратору.",
				Keyboard: KeyboardMainMenu,
			}}
		}
		log.Info().Msg("user verified")
	}

	replies := []Reply{{Text: "Данные успешно сохранены ✅", Keyboard: KeyboardRemove}}

	// Steps 3/4: permission restore, first verification only. Failures here
	// are reported, logged and never invalidate the write above.
	if !already {
		replies = append(replies, s.restoreHomeChatAccess(ctx, id))
	}

	replies = append(replies, Reply{Text: "Меню:", Keyboard: KeyboardMainMenu})
	return replies
}

func (s *RegistrationService) restoreHomeChatAccess(ctx context.Context, id Identity) Reply {
	log := s.log.With().Int64("user", id.ID).Logger()

	user, err := s.users.FindByTelegramID(ctx, id.ID)
	if err != nil {
		log.Error().Err(err).Msg("unmute: user lookup failed")
		return Reply{Text: "Не удалось автоматически снять ограничения.\nПопроси администратора сделать это вручную."}
	}
	if user.HomeChatID == nil {
		log.Warn().Msg("unmute: no home chat on record")
		return Reply{Text: "Группа не найдена в базе — попроси админа группы снять ограничения вручную."}
	}
	chatID := *user.HomeChatID

	// Owners and admins cannot be restricted; skip them silently.
	if status, err := s.chat.MemberStatus(ctx, chatID, id.ID); err == nil && isPrivilegedStatus(status) {
		log.Info().Int64("chat", chatID).Str("status", status).Msg("unmute skipped for privileged member")
		return Reply{Text: "Права в группе полностью восстановлены ✅"}
	}

	if err := s.chat.RestoreAccess(ctx, chatID, id.ID); err != nil {
		log.Error().Err(err).Int64("chat", chatID).Msg("unmute failed")
		return Reply{Text: "Не удалось автоматически снять ограничения.\nПопроси администратора сделать это вручную."}
	}

	log.Info().Int64("chat", chatID).Msg("permissions restored")
	return Reply{Text: "Права в группе полностью восстановлены ✅"}
}

func isPrivilegedStatus(status string) bool {
	return status == "creator" || status == "administrator"
}
