package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/curvedhammer/Achievle/internal/model"
)

const (
	topQuestsLimit = 3
	recentDays     = 7
)

// EventReader is the read side of the progress journal.
// *repository.EventRepository implements it.
type EventReader interface {
	ListRecent(ctx context.Context, limit int) ([]model.ProgressEvent, error)
	CountSince(ctx context.Context, kind model.EventKind, since time.Time) (int64, error)
	CompletionsByType(ctx context.Context) (map[model.QuestType]int64, error)
}

type TypeStat struct {
	Type     model.QuestType
	Created  int
	Finished int
}

// Summary is computed from the live store. Completed records only cover
// the time since the last daily reset removed daily entries, so the
// journal counters are reported next to it when available.
type Summary struct {
	Progress   LevelProgress
	Total      int
	Done       int
	Percent    int
	ByType     []TypeStat
	DailyDone  int
	Top        []model.CompletedQuest
	LastWeek   int
	ActiveLeft int

	Journal *JournalStats
}

type JournalStats struct {
	CompletionsWeek int64
	LevelUpsWeek    int64
	Lifetime        map[model.QuestType]int64
}

// StatsService builds statistics and the daily report.
type StatsService struct {
	quests  *QuestService
	journal EventReader
}

// NewStatsService accepts a nil journal.
func NewStatsService(quests *QuestService, journal EventReader) *StatsService {
	return &StatsService{quests: quests, journal: journal}
}

func (s *StatsService) Summary(ctx context.Context, now time.Time) (Summary, error) {
	summary := Summarize(s.quests.Snapshot(), now)
	if s.journal == nil {
		return summary, nil
	}

	since := now.AddDate(0, 0, -recentDays).UTC()
	completions, err := s.journal.CountSince(ctx, model.EventCompletion, since)
	if err != nil {
		return summary, fmt.Errorf("count completions: %w", err)
	}
	levelUps, err := s.journal.CountSince(ctx, model.EventLevelUp, since)
	if err != nil {
		return summary, fmt.Errorf("count level ups: %w", err)
	}
	lifetime, err := s.journal.CompletionsByType(ctx)
	if err != nil {
		return summary, fmt.Errorf("completions by type: %w", err)
	}
	summary.Journal = &JournalStats{
		CompletionsWeek: completions,
		LevelUpsWeek:    levelUps,
		Lifetime:        lifetime,
	}
	return summary, nil
}

// History returns the latest journal events, newest first. Without a
// journal it returns nothing.
func (s *StatsService) History(ctx context.Context, limit int) ([]model.ProgressEvent, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.ListRecent(ctx, limit)
}

// Summarize computes the statistics of a store snapshot.
func Summarize(store *model.Store, now time.Time) Summary {
	summary := Summary{
		Progress:   ProgressFor(store.Progression),
		Total:      len(store.Quests) + len(store.CompletedQuests),
		Done:       len(store.CompletedQuests),
		ActiveLeft: len(store.Quests),
	}
	if summary.Total > 0 {
		summary.Percent = summary.Done * 100 / summary.Total
	}

	created := make(map[model.QuestType]int)
	finished := make(map[model.QuestType]int)
	for _, q := range store.Quests {
		created[q.Type]++
	}

	weekStart := model.Today(now.AddDate(0, 0, -recentDays))
	for _, c := range store.CompletedQuests {
		created[c.Type]++
		finished[c.Type]++
		if c.Type.IsDaily() {
			summary.DailyDone++
		}
		if c.CompletionDate >= weekStart {
			summary.LastWeek++
		}
	}
	for _, qt := range model.QuestTypes {
		summary.ByType = append(summary.ByType, TypeStat{Type: qt, Created: created[qt], Finished: finished[qt]})
	}

	top := make([]model.CompletedQuest, len(store.CompletedQuests))
	copy(top, store.CompletedQuests)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].XPReward > top[j].XPReward
	})
	if len(top) > topQuestsLimit {
		top = top[:topQuestsLimit]
	}
	summary.Top = top
	return summary
}

// DailySummary renders the evening report as Telegram HTML.
func (s *StatsService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	summary, err := s.Summary(ctx, now)
	if err != nil {
		return "", err
	}
	store := s.quests.Snapshot()

	var pending []model.Quest
	for _, q := range store.Quests {
		if q.Type.IsDaily() && !q.CompletedToday {
			pending = append(pending, q)
		}
	}
	SortQuests(pending, SortXPDesc)

	var builder strings.Builder
	builder.WriteString("📋 <b>Итоги дня</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))
	builder.WriteString(FormatProgress(summary.Progress))
	builder.WriteString("\n\n")

	today := model.Today(now)
	doneToday := 0
	for _, c := range store.CompletedQuests {
		if c.CompletionDate == today {
			doneToday++
		}
	}
	builder.WriteString(fmt.Sprintf("✅ Выполнено сегодня: <b>%d</b>\n", doneToday))

	builder.WriteString("\n🔥 <b>Ежедневные задания</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— всё выполнено\n")
	} else {
		for _, q := range pending {
			builder.WriteString(FormatQuestLine(q))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatStats renders a Summary as Telegram HTML.
func FormatStats(summary Summary) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Статистика</b>\n\n")
	sb.WriteString(FormatProgress(summary.Progress))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Всего заданий: <b>%d</b>\n", summary.Total))
	sb.WriteString(fmt.Sprintf("Выполнено: <b>%d</b> (%d%%)\n", summary.Done, summary.Percent))
	sb.WriteString(fmt.Sprintf("Активных: <b>%d</b>\n", summary.ActiveLeft))
	sb.WriteString(fmt.Sprintf("Ежедневных выполнено: <b>%d</b>\n", summary.DailyDone))
	sb.WriteString(fmt.Sprintf("За последние 7 дней: <b>%d</b>\n", summary.LastWeek))

	sb.WriteString("\n<b>По типам</b>\n")
	for _, stat := range summary.ByType {
		sb.WriteString(fmt.Sprintf("%s %s: %d / %d\n", stat.Type.Mark(), stat.Type.Name(), stat.Finished, stat.Created))
	}

	if len(summary.Top) > 0 {
		sb.WriteString("\n🏆 <b>Лучшие задания</b>\n")
		for i, c := range summary.Top {
			sb.WriteString(fmt.Sprintf("%d. %s %s (+%d XP)\n", i+1, c.Icon, html.EscapeString(c.Title), c.XPReward))
		}
	}

	if j := summary.Journal; j != nil {
		sb.WriteString("\n📔 <b>Журнал</b>\n")
		sb.WriteString(fmt.Sprintf("Выполнений за неделю: %d\n", j.CompletionsWeek))
		sb.WriteString(fmt.Sprintf("Новых уровней за неделю: %d\n", j.LevelUpsWeek))
		for _, qt := range model.QuestTypes {
			if n := j.Lifetime[qt]; n > 0 {
				sb.WriteString(fmt.Sprintf("%s %s: %d за всё время\n", qt.Mark(), qt.Name(), n))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatProgress renders the level line and a ten-cell XP bar.
func FormatProgress(p LevelProgress) string {
	filled := min(max(p.Percent/10, 0), 10)
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
	return fmt.Sprintf("⭐ Уровень <b>%d</b>\n%s %d / %d XP", p.Level, bar, p.XP, p.Threshold)
}

// FormatQuestLine renders one active quest.
func FormatQuestLine(q model.Quest) string {
	var sb strings.Builder
	status := q.Type.Mark()
	if q.CompletedToday {
		status = "✅"
	}
	sb.WriteString(fmt.Sprintf("%s %s <b>%s</b> · +%d XP", status, q.Icon, html.EscapeString(q.Title), q.XPReward))
	if q.IsCumulative {
		sb.WriteString(fmt.Sprintf("\n   📈 %d / %d", q.CurrentValue, q.TargetValue))
	}
	if q.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(q.Description)))
	}
	sb.WriteByte('\n')
	return sb.String()
}
