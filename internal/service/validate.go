package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reGroupNumber = regexp.MustCompile(`^\d{6}$`)
	reStudNumber  = regexp.MustCompile(`^\d{8}$`)
	rePhoneDigits = regexp.MustCompile(`^\d{9}$`)
)

// Rejection is a failed field validation. It is a user-facing re-prompt,
// not an error condition: the conversation simply does not advance.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func reject(reason string) error { return &Rejection{Reason: reason} }

// Validator maps raw text input to normalized field values. Pure, no I/O.
type Validator struct {
	phonePrefix string
}

// NewValidator builds a validator; phonePrefix is the required country
// prefix for mobile numbers (e.g. "+375"). The nine-digit tail is fixed.
func NewValidator(phonePrefix string) *Validator {
	return &Validator{phonePrefix: phonePrefix}
}

// Validate returns the normalized value or a *Rejection.
func (v *Validator) Validate(field Field, raw string) (string, error) {
	value := strings.TrimSpace(raw)

	switch field {
	case FieldFullName:
		if utf8.RuneCountInString(value) > 150 || len(strings.Fields(value)) < 3 {
			return "", reject("Пожалуйста, введи ФИО полностью (Пример: Иванова Кира Андреевна)")
		}
		return value, nil

	case FieldGroupNumber:
		if !reGroupNumber.MatchString(value) {
			return "", reject("Номер группы должен состоять ровно из 6 цифр")
		}
		return value, nil

	case FieldFaculty:
		code, ok := faculties[value]
		if !ok {
			return "", reject("Пожалуйста, выбери факультет с кнопок ниже 👇")
		}
		return code, nil

	case FieldMobileNumber:
		phone := strings.NewReplacer(" ", "", "-", "").Replace(value)
		if !strings.HasPrefix(phone, v.phonePrefix) ||
			!rePhoneDigits.MatchString(strings.TrimPrefix(phone, v.phonePrefix)) {
			return "", reject(fmt.Sprintf("Номер телефона введён некорректно. Пример: %s#########", v.phonePrefix))
		}
		return phone, nil

	case FieldStudNumber:
		if !reStudNumber.MatchString(value) {
			return "", reject("Номер студенческого должен состоять из 8 цифр")
		}
		return value, nil

	case FieldFormEduc:
		lower := strings.ToLower(value)
		if lower != "бюджет" && lower != "платное" {
			return "", reject("Выбери один из вариантов на клавиатуре")
		}
		return lower, nil

	case FieldScholarship:
		lower := strings.ToLower(value)
		if lower != "да" && lower != "нет" {
			return "", reject("Ответь Да или Нет")
		}
		return lower, nil

	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}
