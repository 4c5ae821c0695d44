package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"group-gatekeeper/internal/signing"
)

const (
	payloadConfirm   = "confirm_registration"
	payloadEditAll   = "edit_registration"
	payloadEditField = "edit_field_"
)

// RegistrationService drives the multi-step registration conversation:
// phase transitions, validation dispatch, the review/edit menu and the
// commit protocol.
type RegistrationService struct {
	users     UserStore
	drafts    DraftStore
	chat      ChatPlatform
	codec     *signing.Codec
	validator *Validator
	log       zerolog.Logger
}

func NewRegistrationService(users UserStore, drafts DraftStore, chat ChatPlatform, codec *signing.Codec, validator *Validator, log zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		users:     users,
		drafts:    drafts,
		chat:      chat,
		codec:     codec,
		validator: validator,
		log:       log,
	}
}

// Active reports whether the user has a conversation in progress.
func (s *RegistrationService) Active(userID int64) bool {
	_, ok := s.drafts.Get(userID)
	return ok
}

// OnJoin bootstraps a newcomer: fresh registration cycle in the store and
// an immediate full restriction in the chat they joined.
func (s *RegistrationService) OnJoin(ctx context.Context, id Identity, chatID int64) error {
	if _, err := s.users.UpsertOnJoin(ctx, id.ID, id.Username, chatID); err != nil {
		return fmt.Errorf("register join: %w", err)
	}
	if err := s.chat.Mute(ctx, chatID, id.ID, noExpiry); err != nil {
		return fmt.Errorf("restrict newcomer: %w", err)
	}
	s.log.Info().Int64("user", id.ID).Int64("chat", chatID).Msg("newcomer muted until registration")
	return nil
}

// Start handles /start: upsert the contact, drop any stale draft and greet
// with the current verification status.
func (s *RegistrationService) Start(ctx context.Context, id Identity) (Reply, error) {
	s.drafts.Clear(id.ID)

	user, err := s.users.UpsertContact(ctx, id.ID, id.Username)
	if err != nil {
		return replyStoreError(), err
	}

	name := strings.TrimSpace(id.FirstName)
	if name == "" {
		name = "@" + orDash(id.Username)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Привет, %s! 👋\n\n", name)
	b.WriteString("Этот бот создан для регистрации участников группы УИВР.\n\n")
	b.WriteString("Регистрируясь в боте, вы соглашаетесь на обработку своих персональных данных " +
		"(ФИО, номер группы, телефона, студенческого билета и т.д.) в соответствии " +
		"с политикой конфиденциальности группы.\n\n")
	b.WriteString("❗️Данные так же будут использоваться для формирования освобождений, премий и " +
		"других докладных записок и документов с вашим участием. По этой причине просим " +
		"вносить правильные данные и в случае их изменений, обновлять их в этом боте.\n\n")
	fmt.Fprintf(&b, "Твой telegram_id: <code>%d</code>\n", id.ID)
	fmt.Fprintf(&b, "Username: @%s\n", orDash(id.Username))
	fmt.Fprintf(&b, "Статус в базе: %s\n\n", statusLine(user.IsVerified))

	keyboard := KeyboardMainMenu
	if !user.IsVerified {
		b.WriteString("Чтобы получить возможность писать в группе — нужно пройти регистрацию. Нажми кнопку ниже или напиши /reg.")
		keyboard = KeyboardMainMenuWithReg
	}

	return Reply{Text: b.String(), Keyboard: keyboard}, nil
}

// Status handles the «Статус» shortcut.
func (s *RegistrationService) Status(ctx context.Context, id Identity) (Reply, error) {
	verified, err := s.users.IsVerified(ctx, id.ID)
	if err != nil {
		return replyStoreError(), err
	}
	text := fmt.Sprintf(
		"Твой telegram_id: <code>%d</code>\nUsername: @%s\nСтатус в базе: %s",
		id.ID, orDash(id.Username), statusLine(verified),
	)
	return Reply{Text: text, Keyboard: KeyboardMainMenu}, nil
}

// Begin handles /reg. Already-verified users get a status notice and the
// flow is not re-entered; a mid-flow /reg discards the old draft and
// restarts from the first field.
func (s *RegistrationService) Begin(ctx context.Context, id Identity) (Reply, error) {
	verified, err := s.users.IsVerified(ctx, id.ID)
	if err != nil {
		return replyStoreError(), err
	}
	if verified {
		return Reply{Text: "Вы уже зарегистрированы и можете писать в группе.", Keyboard: KeyboardMainMenu}, nil
	}

	if _, err := s.users.UpsertContact(ctx, id.ID, id.Username); err != nil {
		return replyStoreError(), err
	}

	s.drafts.Clear(id.ID)
	s.drafts.Put(id.ID, NewDraft())
	s.log.Info().Int64("user", id.ID).Msg("registration started")

	return Reply{
		Text:     "Отлично! Начинаем регистрацию.\n\n" + fieldPrompts[FieldFullName],
		Keyboard: KeyboardRemove,
	}, nil
}

// BeginUpdate handles /update: a verified user loads the stored record into
// a fresh draft and lands directly in the review/edit menu.
func (s *RegistrationService) BeginUpdate(ctx context.Context, id Identity) (Reply, error) {
	verified, err := s.users.IsVerified(ctx, id.ID)
	if err != nil {
		return replyStoreError(), err
	}
	if !verified {
		return Reply{
			Text:     "Вы ещё не зарегистрированы.\nНажмите /reg или кнопку «Начать регистрацию», чтобы зарегистрироваться.",
			Keyboard: KeyboardMainMenuWithReg,
		}, nil
	}

	user, err := s.users.FindByTelegramID(ctx, id.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return replyStoreError(), err
	}
	if err != nil || !user.RegistrationComplete() {
		// Verified flag without a full record should not happen; restart.
		s.drafts.Clear(id.ID)
		s.drafts.Put(id.ID, NewDraft())
		return Reply{
			Text:     "Не удалось найти твои полные данные. Начинаем заново.\n\n" + fieldPrompts[FieldFullName],
			Keyboard: KeyboardRemove,
		}, nil
	}

	draft := NewDraft()
	draft.Phase = PhaseReviewing
	draft.Fields[FieldFullName] = *user.FullName
	draft.Fields[FieldGroupNumber] = *user.GroupNumber
	draft.Fields[FieldFaculty] = *user.Faculty
	draft.Fields[FieldMobileNumber] = *user.MobileNumber
	draft.Fields[FieldStudNumber] = *user.StudNumber
	draft.Fields[FieldFormEduc] = *user.FormEduc
	draft.Fields[FieldScholarship] = boolAnswer(user.Scholarship)
	s.drafts.Put(id.ID, draft)

	return Reply{EditMenu: s.editMenu(draft)}, nil
}

// Input feeds one free-text message into the state machine.
func (s *RegistrationService) Input(ctx context.Context, id Identity, text string) (Reply, error) {
	draft, ok := s.drafts.Get(id.ID)
	if !ok {
		return Reply{Text: "Диалог сброшен. Попробуй ещё раз через /reg.", Keyboard: KeyboardMainMenu}, nil
	}

	switch draft.Phase {
	case PhaseFullName, PhaseGroupNumber, PhaseFaculty, PhaseMobileNumber,
		PhaseStudNumber, PhaseFormEduc, PhaseScholarship:
		return s.inputLinear(id, draft, text), nil

	case PhaseEditing:
		return s.inputEdit(id, draft, text), nil

	case PhaseReviewing:
		return Reply{Text: "Используй кнопки под сообщением выше, чтобы подтвердить или исправить данные."}, nil

	default:
		// Unknown (state, input) pairs are rejected, not ignored.
		s.log.Warn().Int64("user", id.ID).Int("phase", int(draft.Phase)).Msg("draft in unknown phase, resetting")
		s.drafts.Clear(id.ID)
		return Reply{Text: "Диалог сброшен. Попробуй ещё раз через /reg.", Keyboard: KeyboardMainMenu}, nil
	}
}

func (s *RegistrationService) inputLinear(id Identity, draft *Draft, text string) Reply {
	field := phaseField[draft.Phase]

	value, err := s.validator.Validate(field, text)
	var rej *Rejection
	if errors.As(err, &rej) {
		s.log.Warn().Int64("user", id.ID).Str("field", string(field)).Str("value", text).Msg("invalid input")
		return Reply{Text: rej.Reason, Keyboard: fieldKeyboards[field]}
	}
	if err != nil {
		s.drafts.Clear(id.ID)
		return Reply{Text: "Диалог сброшен. Попробуй ещё раз через /reg.", Keyboard: KeyboardMainMenu}
	}

	draft.Fields[field] = value
	draft.Phase = nextPhase[draft.Phase]
	s.drafts.Put(id.ID, draft)

	if draft.Phase == PhaseReviewing {
		return Reply{Summary: s.summaryMenu(draft)}
	}

	next := phaseField[draft.Phase]
	return Reply{Text: s.prompt(next), Keyboard: fieldKeyboards[next]}
}

func (s *RegistrationService) inputEdit(id Identity, draft *Draft, text string) Reply {
	field := draft.EditingField
	if field == "" {
		draft.Phase = PhaseReviewing
		s.drafts.Put(id.ID, draft)
		return Reply{Text: "Произошла ошибка. Попробуй заново /update", EditMenu: s.editMenu(draft)}
	}

	value, err := s.validator.Validate(field, text)
	var rej *Rejection
	if errors.As(err, &rej) {
		return Reply{Text: rej.Reason, Keyboard: fieldKeyboards[field]}
	}
	if err != nil {
		s.drafts.Clear(id.ID)
		return Reply{Text: "Диалог сброшен. Попробуй ещё раз через /reg.", Keyboard: KeyboardMainMenu}
	}

	draft.Fields[field] = value
	draft.EditingField = ""
	draft.Phase = PhaseReviewing
	s.drafts.Put(id.ID, draft)

	return Reply{Text: "Поле обновлено ✅", Keyboard: KeyboardRemove, EditMenu: s.editMenu(draft)}
}

// Callback handles a signed interactive action.
func (s *RegistrationService) Callback(ctx context.Context, id Identity, data string) (CallbackReply, error) {
	payload, err := s.codec.Decode(data)
	if err != nil {
		s.log.Warn().Int64("user", id.ID).Str("data", data).Msg("callback failed signature check")
		if !strings.Contains(data, ":") {
			return CallbackReply{Ack: "Неверный запрос", Alert: true}, nil
		}
		return CallbackReply{Ack: "Подпись не совпадает!", Alert: true}, nil
	}

	draft, ok := s.drafts.Get(id.ID)

	switch {
	case payload == payloadConfirm:
		if !ok || draft.Phase != PhaseReviewing {
			return CallbackReply{Ack: "Эта кнопка больше не активна", Alert: true}, nil
		}
		replies := s.commit(ctx, id, draft)
		// Terminal regardless of outcome: a failed commit never traps the
		// user in the flow.
		s.drafts.Clear(id.ID)
		return CallbackReply{DeleteSource: true, Replies: replies}, nil

	case payload == payloadEditAll:
		if !ok || draft.Phase != PhaseReviewing {
			return CallbackReply{Ack: "Эта кнопка больше не активна", Alert: true}, nil
		}
		return CallbackReply{Replies: []Reply{{EditMenu: s.editMenu(draft)}}}, nil

	case strings.HasPrefix(payload, payloadEditField):
		field := Field(strings.TrimPrefix(payload, payloadEditField))
		if _, known := fieldTitles[field]; !known {
			s.log.Warn().Int64("user", id.ID).Str("field", string(field)).Msg("edit request for unknown field")
			return CallbackReply{Ack: "Недопустимое поле", Alert: true}, nil
		}
		if !ok || draft.Phase != PhaseReviewing {
			return CallbackReply{Ack: "Эта кнопка больше не активна", Alert: true}, nil
		}
		draft.EditingField = field
		draft.Phase = PhaseEditing
		s.drafts.Put(id.ID, draft)
		return CallbackReply{Replies: []Reply{{Text: s.prompt(field), Keyboard: fieldKeyboards[field]}}}, nil

	default:
		s.log.Warn().Int64("user", id.ID).Str("payload", payload).Msg("unknown callback payload")
		return CallbackReply{Ack: "Неизвестная команда", Alert: true}, nil
	}
}

func (s *RegistrationService) prompt(field Field) string {
	if field == FieldMobileNumber {
		return fmt.Sprintf(fieldPrompts[field], s.validator.phonePrefix)
	}
	return fieldPrompts[field]
}

func (s *RegistrationService) summaryMenu(draft *Draft) *SummaryMenu {
	var b strings.Builder
	b.WriteString("Проверьте, всё ли верно:\n\n")
	for _, field := range fieldOrder {
		fmt.Fprintf(&b, "%s: %s\n", fieldTitles[field], displayValue(field, draft.Fields[field]))
	}
	b.WriteString("\nДанные верные?")

	return &SummaryMenu{
		Text:    b.String(),
		Confirm: MenuButton{Label: "Всё верно ✓", Data: s.codec.Encode(payloadConfirm)},
		Edit:    MenuButton{Label: "Исправить ✗", Data: s.codec.Encode(payloadEditAll)},
	}
}

func (s *RegistrationService) editMenu(draft *Draft) *EditMenu {
	menu := &EditMenu{
		Text:    "Что нужно изменить?",
		Confirm: MenuButton{Label: "Всё верно ✓", Data: s.codec.Encode(payloadConfirm)},
	}
	for _, field := range fieldOrder {
		menu.Fields = append(menu.Fields, MenuButton{
			Label: fmt.Sprintf("%s: %s", fieldTitles[field], displayValue(field, draft.Fields[field])),
			Data:  s.codec.Encode(payloadEditField + string(field)),
		})
	}
	return menu
}

func displayValue(field Field, value string) string {
	if value == "" {
		return "—"
	}
	switch field {
	case FieldFaculty:
		return FacultyLabel(value)
	case FieldScholarship:
		if value == "да" {
			return "Да"
		}
		return "Нет"
	default:
		return value
	}
}

func boolAnswer(v bool) string {
	if v {
		return "да"
	}
	return "нет"
}

func statusLine(verified bool) string {
	if verified {
		return "✅ зарегистрирован"
	}
	return "⏳ ещё не зарегистрирован"
}

func orDash(username string) string {
	if username == "" {
		return "нет"
	}
	return username
}

func replyStoreError() Reply {
	return Reply{Text: "Произошла ошибка при обращении к базе. Попробуйте ещё раз чуть позже."}
}
