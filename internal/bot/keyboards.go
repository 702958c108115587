package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/service"
)

const (
	btnSkip         = "⏭️ Пропустить"
	btnClear        = "🧹 Очистить"
	btnYes          = "Да"
	btnNo           = "Нет"
	btnConfirm      = "✅ Подтвердить"
	btnCancel       = "↩️ Отмена"
	btnCancelDialog = "⏪ Отменить ввод"
	menuLabelNew    = "➕ Новое задание"
	menuLabelQuests = "📋 Задания"
	menuLabelStats  = "📊 Статистика"
	menuLabelHelp   = "ℹ️ Помощь"
	iconsPerRow     = 5
)

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNew):
		return true, b.startNewQuestConversation(msg)
	case strings.ToLower(menuLabelQuests):
		return true, b.sendQuestList(msg.Chat.ID, service.ListOptions{})
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelQuests),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// descriptionKeyboard offers clearing when an existing description is edited.
func descriptionKeyboard(editing bool) tgbotapi.ReplyKeyboardMarkup {
	if !editing {
		return skipKeyboard()
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnClear),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func iconKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, icon := range model.Icons {
		row = append(row, tgbotapi.NewKeyboardButton(icon))
		if len(row) == iconsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func typeKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, qt := range model.QuestTypes {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(typeButtonLabel(qt))))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func typeButtonLabel(qt model.QuestType) string {
	return qt.Mark() + " " + qt.Name()
}

// parseQuestType accepts a keyboard label, a localized name or a type key.
func parseQuestType(text string) (model.QuestType, bool) {
	value := strings.ToLower(strings.TrimSpace(text))
	for _, qt := range model.QuestTypes {
		if value == strings.ToLower(typeButtonLabel(qt)) ||
			value == strings.ToLower(qt.Name()) ||
			value == string(qt) {
			return qt, true
		}
	}
	return "", false
}

func parseBounded(text string, limit int, what string) (int, error) {
	value, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
	if err != nil || value < 1 || value > limit {
		return 0, fmt.Errorf("%s должно быть числом от 1 до %d", what, limit)
	}
	return value, nil
}

func parseXP(text string) (int, error) {
	return parseBounded(text, model.MaxXPReward, "Опыт")
}

func parseTarget(text string) (int, error) {
	return parseBounded(text, model.MaxTargetValue, "Цель")
}

func parseAmount(text string) (int, error) {
	value, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
	if err != nil {
		return 0, errors.New("Количество должно быть целым числом")
	}
	if value < 0 {
		return 0, errors.New("Количество не может быть отрицательным")
	}
	return value, nil
}

// parseListOptions reads "/quests [sort] [search...]".
func parseListOptions(args string) service.ListOptions {
	fields := strings.Fields(args)
	var opts service.ListOptions
	if len(fields) > 0 {
		if mode, ok := service.ParseSortMode(fields[0]); ok {
			opts.Sort = mode
			fields = fields[1:]
		}
	}
	opts.Search = strings.Join(fields, " ")
	return opts
}

func parseCallback(data string) (prefix, questID string, ok bool) {
	for _, p := range []string{cbDonePrefix, cbProgressPrefix, cbEditPrefix, cbDeletePrefix} {
		if strings.HasPrefix(data, p) {
			id := strings.TrimPrefix(data, p)
			return p, id, id != ""
		}
	}
	return "", "", false
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isClearInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnClear) || value == "очистить" || value == "clear"
}

func isYesInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "да" || value == "yes" || value == "y"
}

func isNoInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "нет" || value == "no" || value == "n"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена" || value == "нет"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}
