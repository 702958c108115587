package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/service"
)

const (
	cbDonePrefix     = "done:"
	cbProgressPrefix = "prog:"
	cbEditPrefix     = "edit:"
	cbDeletePrefix   = "del:"
)

const historyLimit = 15

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

type confirmationRequest struct {
	questID string
	action  confirmationAction
}

// Bot is the Telegram shell around the quest services. It serves a single
// owner; every other sender is turned away.
type Bot struct {
	api     *tgbotapi.BotAPI
	ownerID int64
	quests  *service.QuestService
	stats   *service.StatsService
	logger  *zap.Logger
	now     func() time.Time

	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	listings      map[int64][]string
	mu            sync.Mutex
}

func New(token string, ownerID int64, quests *service.QuestService, stats *service.StatsService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		ownerID:       ownerID,
		quests:        quests,
		stats:         stats,
		logger:        logger,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		listings:      make(map[int64][]string),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Error("handle message", zap.Error(err))
			}
		}
	}

	return nil
}

// SendDailySummary sends the evening report to the owner.
func (b *Bot) SendDailySummary(ctx context.Context) error {
	text, err := b.stats.DailySummary(ctx, b.now())
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := b.sendText(b.ownerID, text); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}

func (b *Bot) isOwner(user *tgbotapi.User) bool {
	return user != nil && user.ID == b.ownerID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.isOwner(msg.From) {
		b.logger.Warn("message from stranger ignored", zap.Int64("user", msg.From.ID))
		return b.sendPlain(msg.Chat.ID, "🔒 Это личный журнал заданий, он отвечает только владельцу.")
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.logger.Info("command",
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()))
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /new, чтобы добавить задание, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "quests":
		return b.handleListQuests(msg)
	case "new":
		return b.startNewQuestConversation(msg)
	case "edit":
		return b.handleEdit(msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "progress":
		return b.handleProgress(ctx, msg)
	case "delete":
		return b.handleDelete(msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "history":
		return b.handleHistory(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "theme":
		return b.handleTheme(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "искатель приключений"
	}
	progress := service.ProgressFor(b.quests.Snapshot().Progression)
	text := fmt.Sprintf("👋 Привет, %s!\n<b>Я веду твой журнал заданий и опыта.</b>\n\n%s\n\n%s",
		escape(name), service.FormatProgress(progress), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "ℹ️ <b>Команды</b>\n" +
	"• /quests [title|type|xp-desc|xp-asc] [поиск] — активные задания\n" +
	"• /new — создать задание пошагово\n" +
	"• /edit &lt;номер&gt; — изменить задание\n" +
	"• /done &lt;номер&gt; — отметить задание выполненным\n" +
	"• /progress &lt;номер&gt; &lt;количество&gt; — добавить прогресс\n" +
	"• /delete &lt;номер&gt; — удалить задание\n" +
	"• /stats — статистика\n" +
	"• /history — последние события\n" +
	"• /report — итоги дня\n" +
	"• /theme light|dark — тема оформления\n" +
	"• /cancel — отменить текущий ввод\n\n" +
	"Номер задания берётся из последнего списка /quests."

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleListQuests(msg *tgbotapi.Message) error {
	return b.sendQuestList(msg.Chat.ID, parseListOptions(msg.CommandArguments()))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	quest, ok, err := b.questFromArgs(msg.Chat.ID, msg.CommandArguments(), "/done 2")
	if !ok {
		return err
	}
	if quest.IsCumulative {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Задание накопительное, используй /progress, например: /progress %s 5", firstField(msg.CommandArguments())))
	}
	if needsCompletionConfirmation(quest) {
		return b.askConfirmation(msg.Chat.ID, msg.From.ID, quest, actionComplete)
	}
	outcome, err := b.quests.CompleteQuest(ctx, quest.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, b.describeError(err))
	}
	return b.sendText(msg.Chat.ID, formatOutcome(*outcome))
}

// needsCompletionConfirmation reports whether completing quest removes it
// from the active list. Daily quests stay and complete right away.
func needsCompletionConfirmation(quest model.Quest) bool {
	return !quest.Type.IsDaily()
}

func (b *Bot) handleProgress(ctx context.Context, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		return b.sendText(msg.Chat.ID, "Укажи номер задания и количество: /progress 2 15")
	}
	quest, ok, err := b.questFromArgs(msg.Chat.ID, fields[0], "/progress 2 15")
	if !ok {
		return err
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	return b.addProgress(ctx, msg.Chat.ID, quest.ID, amount)
}

func (b *Bot) addProgress(ctx context.Context, chatID int64, questID string, amount int) error {
	outcome, err := b.quests.AddProgress(ctx, questID, amount)
	if err != nil {
		return b.sendText(chatID, b.describeError(err))
	}
	return b.sendText(chatID, formatOutcome(*outcome))
}

func (b *Bot) handleDelete(msg *tgbotapi.Message) error {
	quest, ok, err := b.questFromArgs(msg.Chat.ID, msg.CommandArguments(), "/delete 2")
	if !ok {
		return err
	}
	return b.askConfirmation(msg.Chat.ID, msg.From.ID, quest, actionDelete)
}

func (b *Bot) handleEdit(msg *tgbotapi.Message) error {
	quest, ok, err := b.questFromArgs(msg.Chat.ID, msg.CommandArguments(), "/edit 2")
	if !ok {
		return err
	}
	return b.startEditConversation(msg.Chat.ID, msg.From.ID, quest)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	summary, err := b.stats.Summary(ctx, b.now())
	if err != nil {
		b.logger.Warn("journal stats unavailable", zap.Error(err))
	}
	return b.sendText(msg.Chat.ID, service.FormatStats(summary))
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) error {
	events, err := b.stats.History(ctx, historyLimit)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось прочитать журнал: %s", escape(err.Error())))
	}
	if len(events) == 0 {
		return b.sendText(msg.Chat.ID, "📔 Журнал пуст или отключён.")
	}

	var sb strings.Builder
	sb.WriteString("📔 <b>Последние события</b>\n")
	for _, event := range events {
		at := event.OccurredAt.In(time.Local).Format("02.01 15:04")
		switch event.Kind {
		case model.EventLevelUp:
			sb.WriteString(fmt.Sprintf("%s 🎉 Уровень %d\n", at, event.Level))
		default:
			sb.WriteString(fmt.Sprintf("%s %s %s +%d XP\n", at, event.QuestType.Mark(), escape(event.QuestTitle), event.XP))
		}
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.stats.DailySummary(ctx, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleTheme(ctx context.Context, msg *tgbotapi.Message) error {
	theme := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if theme == "" {
		current := b.quests.Snapshot().Theme
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Текущая тема: <b>%s</b>. Смени её: /theme light или /theme dark", escape(current)))
	}
	if theme != "light" && theme != "dark" {
		return b.sendText(msg.Chat.ID, "Доступны темы light и dark.")
	}
	if err := b.quests.SetTheme(ctx, theme); err != nil {
		return b.sendText(msg.Chat.ID, b.describeError(err))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🎨 Тема сохранена: <b>%s</b>", theme))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteQuestAndRefresh(ctx, msg.Chat.ID, req.questID)
		}
		return b.completeQuestAndRefresh(ctx, msg.Chat.ID, req.questID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Подтверди или отмени выполнение задания."
		if req.action == actionDelete {
			prompt = "Подтверди или отмени удаление задания."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", zap.Error(err))
	}
	if !b.isOwner(cb.From) {
		return nil
	}

	chatID := cb.Message.Chat.ID
	prefix, questID, ok := parseCallback(cb.Data)
	if !ok {
		return nil
	}
	b.logger.Info("callback", zap.String("action", prefix), zap.String("quest", questID))

	quest, found := b.quests.Quest(questID)
	if !found {
		return b.sendText(chatID, "Задание не найдено или уже удалено.")
	}

	switch prefix {
	case cbDonePrefix:
		if needsCompletionConfirmation(quest) {
			return b.askConfirmation(chatID, cb.From.ID, quest, actionComplete)
		}
		return b.completeQuestAndRefresh(ctx, chatID, quest.ID)
	case cbDeletePrefix:
		return b.askConfirmation(chatID, cb.From.ID, quest, actionDelete)
	case cbProgressPrefix:
		return b.startProgressConversation(chatID, cb.From.ID, quest)
	case cbEditPrefix:
		return b.startEditConversation(chatID, cb.From.ID, quest)
	}
	return nil
}

func (b *Bot) askConfirmation(chatID, userID int64, quest model.Quest, action confirmationAction) error {
	var text string
	switch action {
	case actionDelete:
		text = fmt.Sprintf("Удалить задание «%s»? Прогресс по нему будет потерян.", escape(normalizeTitle(quest.Title)))
	default:
		if quest.CompletedToday {
			return b.sendText(chatID, "Задание уже выполнено сегодня.")
		}
		text = fmt.Sprintf("Отметить задание «%s» выполненным? Награда: +%d XP.", escape(normalizeTitle(quest.Title)), quest.XPReward)
	}
	b.setConfirmation(userID, confirmationRequest{questID: quest.ID, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) completeQuestAndRefresh(ctx context.Context, chatID int64, questID string) error {
	outcome, err := b.quests.CompleteQuest(ctx, questID)
	if err != nil {
		return b.sendTextWithRemove(chatID, b.describeError(err))
	}
	if err := b.sendTextWithRemove(chatID, formatOutcome(*outcome)); err != nil {
		return err
	}
	return b.sendQuestList(chatID, service.ListOptions{})
}

func (b *Bot) deleteQuestAndRefresh(ctx context.Context, chatID int64, questID string) error {
	quest, found := b.quests.Quest(questID)
	if !found {
		return b.sendTextWithRemove(chatID, "Задание не найдено или уже удалено.")
	}
	if err := b.quests.DeleteQuest(ctx, questID); err != nil {
		return b.sendTextWithRemove(chatID, b.describeError(err))
	}
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Задание «%s» удалено.", escape(normalizeTitle(quest.Title)))); err != nil {
		return err
	}
	return b.sendQuestList(chatID, service.ListOptions{})
}

func (b *Bot) sendQuestList(chatID int64, opts service.ListOptions) error {
	quests := b.quests.List(opts)
	progress := service.ProgressFor(b.quests.Snapshot().Progression)

	ids := make([]string, 0, len(quests))
	for _, q := range quests {
		ids = append(ids, q.ID)
	}
	b.setListing(chatID, ids)

	if len(quests) == 0 {
		text := service.FormatProgress(progress) + "\n\n"
		if opts.Search != "" {
			text += "Ничего не найдено."
		} else {
			text += "Активных заданий нет. Добавь новое через /new."
		}
		return b.sendText(chatID, text)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Задания</b>\n")
	builder.WriteString(service.FormatProgress(progress))
	builder.WriteString("\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, quest := range quests {
		builder.WriteString(fmt.Sprintf("<b>%d.</b> %s", i+1, service.FormatQuestLine(quest)))

		var row []tgbotapi.InlineKeyboardButton
		switch {
		case quest.CompletedToday:
		case quest.IsCumulative:
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📈 %d · %s", i+1, shortTitle(quest.Title, 18)), cbProgressPrefix+quest.ID))
		default:
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d · %s", i+1, shortTitle(quest.Title, 18)), cbDonePrefix+quest.ID))
		}
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("✏️", cbEditPrefix+quest.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+quest.ID),
		)
		buttons = append(buttons, row)
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// questFromArgs resolves a list number from the last /quests output. ok is
// false when a reply was already sent instead.
func (b *Bot) questFromArgs(chatID int64, args, example string) (model.Quest, bool, error) {
	raw := firstField(args)
	if raw == "" {
		return model.Quest{}, false, b.sendText(chatID, fmt.Sprintf("Укажи номер задания из списка /quests: %s", example))
	}
	position, err := strconv.Atoi(raw)
	if err != nil || position < 1 {
		return model.Quest{}, false, b.sendText(chatID, "Номер задания должен быть положительным числом.")
	}

	ids := b.getListing(chatID)
	if ids == nil {
		for _, q := range b.quests.List(service.ListOptions{}) {
			ids = append(ids, q.ID)
		}
	}
	if position > len(ids) {
		return model.Quest{}, false, b.sendText(chatID, "Задание с таким номером не найдено. Обнови список: /quests")
	}
	quest, found := b.quests.Quest(ids[position-1])
	if !found {
		return model.Quest{}, false, b.sendText(chatID, "Задание не найдено или уже удалено. Обнови список: /quests")
	}
	return quest, true, nil
}

func (b *Bot) describeError(err error) string {
	switch {
	case errors.Is(err, service.ErrQuestNotFound):
		return "Задание не найдено или уже удалено."
	case errors.Is(err, service.ErrAlreadyCompleted):
		return "Задание уже выполнено сегодня. Оно вернётся после ежедневного сброса."
	case errors.Is(err, service.ErrValidation):
		return fmt.Sprintf("⚠️ Проверь данные: %s", escape(err.Error()))
	default:
		b.logger.Error("quest operation failed", zap.Error(err))
		return fmt.Sprintf("Ошибка сохранения: %s", escape(err.Error()))
	}
}

func formatOutcome(outcome service.Outcome) string {
	title := escape(normalizeTitle(outcome.Quest.Title))
	if !outcome.Completed {
		return fmt.Sprintf("📈 %s: %d / %d", title, outcome.Quest.CurrentValue, outcome.Quest.TargetValue)
	}
	text := fmt.Sprintf("✅ Задание «%s» выполнено! +%d XP", title, outcome.XPGained)
	if outcome.Quest.Type.IsDaily() {
		text += "\nЕжедневное задание вернётся завтра."
	}
	if outcome.LeveledUp() {
		text += fmt.Sprintf("\n🎉 Новый уровень: <b>%d</b>!", outcome.LevelAfter)
	}
	return text
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendPlain(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Главное меню")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setListing(chatID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings[chatID] = ids
}

func (b *Bot) getListing(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listings[chatID]
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func firstField(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
