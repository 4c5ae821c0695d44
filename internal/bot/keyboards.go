package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group-gatekeeper/internal/service"
)

const (
	btnStatus   = "Статус"
	btnUpdate   = "Обновить данные"
	btnStartReg = "Начать регистрацию"
)

// replyMarkup maps a service keyboard kind to Telegram markup; nil means
// the message leaves the current keyboard untouched.
func replyMarkup(kind service.Keyboard) interface{} {
	switch kind {
	case service.KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(true)
	case service.KeyboardFaculty:
		return facultyKeyboard()
	case service.KeyboardFormEduc:
		return choiceKeyboard("Бюджет", "Платное")
	case service.KeyboardYesNo:
		return choiceKeyboard("Да", "Нет")
	case service.KeyboardMainMenu:
		return mainMenuKeyboard(false)
	case service.KeyboardMainMenuWithReg:
		return mainMenuKeyboard(true)
	default:
		return nil
	}
}

func facultyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("ФКСиС"),
			tgbotapi.NewKeyboardButton("ФИТУ"),
			tgbotapi.NewKeyboardButton("ФКП"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("ФИБ"),
			tgbotapi.NewKeyboardButton("ИЭФ"),
			tgbotapi.NewKeyboardButton("ФРЭ"),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func choiceKeyboard(options ...string) tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(options))
	for _, option := range options {
		row = append(row, tgbotapi.NewKeyboardButton(option))
	}
	kb := tgbotapi.NewReplyKeyboard(row)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard(withReg bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatus),
			tgbotapi.NewKeyboardButton(btnUpdate),
		),
	}
	if withReg {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStartReg),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// inlineMenu renders the signed review/edit menus.
func inlineMenu(summary *service.SummaryMenu, edit *service.EditMenu) tgbotapi.InlineKeyboardMarkup {
	if summary != nil {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(summary.Confirm.Label, summary.Confirm.Data),
				tgbotapi.NewInlineKeyboardButtonData(summary.Edit.Label, summary.Edit.Data),
			),
		)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, field := range edit.Fields {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(field.Label, field.Data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(edit.Confirm.Label, edit.Confirm.Data),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
