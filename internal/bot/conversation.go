package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageIcon
	stageType
	stageXP
	stageCumulative
	stageTarget
	stageProgressAmount
)

// conversationState drives the quest editor. questID is set when an
// existing quest is edited or receives progress; skipping a step then keeps
// the current value.
type conversationState struct {
	stage   conversationStage
	questID string
	input   service.QuestInput
}

func (s *conversationState) editing() bool {
	return s.questID != "" && s.stage != stageProgressAmount
}

func (b *Bot) startNewQuestConversation(msg *tgbotapi.Message) error {
	b.logger.Debug("start new quest conversation")
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новое задание.\n<b>Шаг 1:</b> как его назвать?", cancelKeyboard())
}

func (b *Bot) startEditConversation(chatID, userID int64, quest model.Quest) error {
	b.setConversation(userID, &conversationState{
		stage:   stageTitle,
		questID: quest.ID,
		input: service.QuestInput{
			Title:        quest.Title,
			Description:  quest.Description,
			Icon:         quest.Icon,
			Type:         quest.Type,
			XPReward:     quest.XPReward,
			IsCumulative: quest.IsCumulative,
			TargetValue:  quest.TargetValue,
		},
	})
	text := fmt.Sprintf("✏️ Редактируем «%s».\n<b>Шаг 1:</b> новое название (или «Пропустить», чтобы оставить).",
		escape(normalizeTitle(quest.Title)))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) startProgressConversation(chatID, userID int64, quest model.Quest) error {
	if quest.CompletedToday {
		return b.sendText(chatID, "Задание уже выполнено сегодня.")
	}
	b.setConversation(userID, &conversationState{stage: stageProgressAmount, questID: quest.ID})
	text := fmt.Sprintf("📈 «%s»: %d / %d.\nСколько добавить?", escape(normalizeTitle(quest.Title)), quest.CurrentValue, quest.TargetValue)
	return b.sendWithReplyMarkup(chatID, text, cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	skip := isSkipInput(text)

	switch state.stage {
	case stageTitle:
		if !(skip && state.editing()) {
			if text == "" || skip {
				return b.sendWithReplyMarkup(chatID, "Название не может быть пустым.", cancelKeyboard())
			}
			state.input.Title = text
		}
		state.stage = stageDescription
		prompt := "✏️ Добавь короткое описание (или нажми «Пропустить»)."
		if state.editing() {
			prompt = "✏️ Новое описание. «Пропустить» оставит текущее, «Очистить» удалит его."
		}
		return b.sendWithReplyMarkup(chatID, prompt, descriptionKeyboard(state.editing()))
	case stageDescription:
		switch {
		case isClearInput(text):
			state.input.Description = ""
		case !skip:
			state.input.Description = text
		}
		state.stage = stageIcon
		return b.sendWithReplyMarkup(chatID, "🎨 Выбери значок.", iconKeyboard())
	case stageIcon:
		if !skip {
			if !model.IsKnownIcon(text) {
				return b.sendWithReplyMarkup(chatID, "Выбери значок с клавиатуры.", iconKeyboard())
			}
			state.input.Icon = text
		}
		state.stage = stageType
		return b.sendWithReplyMarkup(chatID, "🏷 Выбери тип задания. Ежедневные задания возвращаются каждый день.", typeKeyboard())
	case stageType:
		if !skip {
			questType, ok := parseQuestType(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Выбери тип с клавиатуры.", typeKeyboard())
			}
			state.input.Type = questType
		}
		state.stage = stageXP
		return b.sendWithReplyMarkup(chatID, fmt.Sprintf("⭐ Сколько опыта даёт задание? (1–%d)", model.MaxXPReward), skipKeyboard())
	case stageXP:
		if !skip {
			xp, err := parseXP(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, escape(err.Error()), skipKeyboard())
			}
			state.input.XPReward = xp
		}
		state.stage = stageCumulative
		return b.sendWithReplyMarkup(chatID, "🔢 Задание накопительное (например, 10 000 шагов)?", yesNoKeyboard())
	case stageCumulative:
		switch {
		case isYesInput(text):
			state.input.IsCumulative = true
			state.stage = stageTarget
			return b.sendWithReplyMarkup(chatID, fmt.Sprintf("🎯 Какая цель? (1–%d)", model.MaxTargetValue), skipKeyboard())
		case isNoInput(text):
			state.input.IsCumulative = false
			state.input.TargetValue = 0
			return b.finishQuestConversation(ctx, msg.From.ID, chatID, state)
		case skip && state.editing():
			if state.input.IsCumulative {
				state.stage = stageTarget
				return b.sendWithReplyMarkup(chatID, fmt.Sprintf("🎯 Какая цель? (1–%d)", model.MaxTargetValue), skipKeyboard())
			}
			return b.finishQuestConversation(ctx, msg.From.ID, chatID, state)
		default:
			return b.sendWithReplyMarkup(chatID, "Нажми «Да» или «Нет».", yesNoKeyboard())
		}
	case stageTarget:
		if !skip {
			target, err := parseTarget(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, escape(err.Error()), skipKeyboard())
			}
			state.input.TargetValue = target
		}
		return b.finishQuestConversation(ctx, msg.From.ID, chatID, state)
	case stageProgressAmount:
		amount, err := parseAmount(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, escape(err.Error()), cancelKeyboard())
		}
		b.clearConversation(msg.From.ID)
		return b.addProgress(ctx, chatID, state.questID, amount)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(chatID, "Диалог сброшен. Попробуй ещё раз через /new.")
	}
}

func (b *Bot) finishQuestConversation(ctx context.Context, userID, chatID int64, state *conversationState) error {
	b.clearConversation(userID)

	var (
		quest *model.Quest
		err   error
		title = "✅ <b>Задание сохранено</b>"
	)
	if state.editing() {
		quest, err = b.quests.UpdateQuest(ctx, state.questID, state.input)
		title = "✏️ <b>Задание обновлено</b>"
		if err == nil && quest == nil {
			return b.sendTextWithRemove(chatID, "Задание было удалено, пока ты его редактировал.")
		}
	} else {
		quest, err = b.quests.CreateQuest(ctx, state.input)
	}
	if err != nil {
		return b.sendTextWithRemove(chatID, b.describeError(err))
	}
	b.logger.Info("quest saved from chat", zap.String("id", quest.ID), zap.Bool("edited", state.editing()))

	var summary strings.Builder
	summary.WriteString(title + "\n")
	summary.WriteString(service.FormatQuestLine(*quest))
	summary.WriteString(fmt.Sprintf("Тип: %s", quest.Type.Name()))

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendQuestList(chatID, service.ListOptions{})
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
