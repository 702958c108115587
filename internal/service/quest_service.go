package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/repository"
)

// QuestInput holds the editable fields of a quest.
type QuestInput struct {
	Title        string
	Description  string
	Icon         string
	Type         model.QuestType
	XPReward     int
	IsCumulative bool
	TargetValue  int
}

// StoreBackend persists the quest store. *repository.FileStore implements it.
type StoreBackend interface {
	Load() (*model.Store, error)
	Save(store *model.Store) error
	ExportTo(path string) error
	ImportFrom(path string) (*model.Store, error)
	ResetToDefault() (*model.Store, error)
}

// Journal receives progress events. Failures are logged and never undo a
// change that is already saved.
type Journal interface {
	Record(ctx context.Context, event *model.ProgressEvent) error
}

// Outcome describes what a completion or progress call did.
type Outcome struct {
	Quest       model.Quest
	Completed   bool
	Archived    bool
	XPGained    int
	LevelBefore int
	LevelAfter  int
}

func (o Outcome) LeveledUp() bool {
	return o.LevelAfter > o.LevelBefore
}

// QuestService owns the in-memory store. Every mutation is saved before
// the call returns; calls are serialised so the bot and the scheduler can
// share one instance.
type QuestService struct {
	mu      sync.Mutex
	backend StoreBackend
	journal Journal
	store   *model.Store
	now     func() time.Time
	logger  *zap.Logger
}

// NewQuestService loads the store from backend. journal may be nil.
func NewQuestService(backend StoreBackend, journal Journal, logger *zap.Logger, now func() time.Time) (*QuestService, error) {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("load quests: %w", err)
	}
	return &QuestService{
		backend: backend,
		journal: journal,
		store:   store,
		now:     now,
		logger:  logger,
	}, nil
}

// Snapshot returns a copy of the current store.
func (s *QuestService) Snapshot() *model.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clone()
}

// Quest returns the active quest with the given id.
func (s *QuestService) Quest(id string) (model.Quest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.store.FindQuest(id)
	if idx < 0 {
		return model.Quest{}, false
	}
	return s.store.Quests[idx], true
}

// List filters active quests by search text and sorts them.
func (s *QuestService) List(opts ListOptions) []model.Quest {
	s.mu.Lock()
	quests := FilterQuests(s.store.Quests, opts.Search)
	s.mu.Unlock()
	SortQuests(quests, opts.Sort)
	return quests
}

func (s *QuestService) CreateQuest(ctx context.Context, input QuestInput) (*model.Quest, error) {
	quest, err := buildQuest(input)
	if err != nil {
		return nil, err
	}
	quest.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.store.Clone()
	next.Quests = append(next.Quests, quest)
	if err := s.commit(next); err != nil {
		return nil, err
	}

	s.logger.Info("quest created",
		zap.String("id", quest.ID),
		zap.String("type", string(quest.Type)),
		zap.Bool("cumulative", quest.IsCumulative))
	return &quest, nil
}

// UpdateQuest replaces the editable fields of an active quest. An unknown
// id is not an error: the quest was removed in the meantime and the call
// returns (nil, nil).
func (s *QuestService) UpdateQuest(ctx context.Context, id string, input QuestInput) (*model.Quest, error) {
	updated, err := buildQuest(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.store.FindQuest(id)
	if idx < 0 {
		s.logger.Debug("update of missing quest ignored", zap.String("id", id))
		return nil, nil
	}

	next := s.store.Clone()
	current := next.Quests[idx]
	updated.ID = current.ID
	if updated.IsCumulative && current.IsCumulative {
		updated.CurrentValue = current.CurrentValue
	}
	// Only the daily reset clears the flag, so changing the type back and
	// forth cannot unlock a second completion on the same day.
	updated.CompletedToday = current.CompletedToday
	next.Quests[idx] = updated

	if err := s.commit(next); err != nil {
		return nil, err
	}
	s.logger.Info("quest updated", zap.String("id", id))
	return &updated, nil
}

// DeleteQuest removes an active quest. The caller is expected to have
// confirmed the removal.
func (s *QuestService) DeleteQuest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.store.FindQuest(id)
	if idx < 0 {
		return nil
	}

	next := s.store.Clone()
	next.Quests = append(next.Quests[:idx], next.Quests[idx+1:]...)
	if err := s.commit(next); err != nil {
		return err
	}
	s.logger.Info("quest deleted", zap.String("id", id))
	return nil
}

// AddProgress adds amount to a cumulative quest and completes it once the
// target is reached. Negative amounts count as zero.
func (s *QuestService) AddProgress(ctx context.Context, id string, amount int) (*Outcome, error) {
	if amount < 0 {
		amount = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.store.FindQuest(id)
	if idx < 0 {
		return nil, fmt.Errorf("add progress %s: %w", id, ErrQuestNotFound)
	}
	quest := s.store.Quests[idx]
	if !quest.IsCumulative {
		return nil, fmt.Errorf("%w: %q has no progress counter", ErrValidation, quest.Title)
	}
	if quest.CompletedToday {
		return nil, fmt.Errorf("add progress %s: %w", id, ErrAlreadyCompleted)
	}

	next := s.store.Clone()
	next.Quests[idx].CurrentValue += amount

	outcome := Outcome{Quest: next.Quests[idx], LevelBefore: next.Level, LevelAfter: next.Level}
	if next.Quests[idx].Reached() {
		outcome = s.complete(next, idx)
	}

	if err := s.commit(next); err != nil {
		return nil, err
	}
	s.logger.Info("progress added",
		zap.String("id", id),
		zap.Int("amount", amount),
		zap.Int("current", outcome.Quest.CurrentValue),
		zap.Int("target", outcome.Quest.TargetValue),
		zap.Bool("completed", outcome.Completed))
	s.record(ctx, outcome)
	return &outcome, nil
}

// CompleteQuest completes a non-cumulative quest. Daily quests stay active
// and are marked done for today; others move to the history.
func (s *QuestService) CompleteQuest(ctx context.Context, id string) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.store.FindQuest(id)
	if idx < 0 {
		return nil, fmt.Errorf("complete %s: %w", id, ErrQuestNotFound)
	}
	quest := s.store.Quests[idx]
	if quest.IsCumulative {
		return nil, fmt.Errorf("%w: %q completes through progress", ErrValidation, quest.Title)
	}
	if quest.CompletedToday {
		return nil, fmt.Errorf("complete %s: %w", id, ErrAlreadyCompleted)
	}

	next := s.store.Clone()
	outcome := s.complete(next, idx)
	if err := s.commit(next); err != nil {
		return nil, err
	}
	s.logger.Info("quest completed",
		zap.String("id", id),
		zap.Int("xp", outcome.XPGained),
		zap.Int("level", outcome.LevelAfter))
	s.record(ctx, outcome)
	return &outcome, nil
}

// RunDailyReset applies the daily reset to the live store. It is what the
// midnight job calls; Load already does the same at startup.
func (s *QuestService) RunDailyReset(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.store.Clone()
	today := model.Today(s.now())
	if !repository.ApplyDailyReset(next, today) {
		return false, nil
	}
	if err := s.commit(next); err != nil {
		return false, err
	}
	s.logger.Info("daily reset applied", zap.String("date", today), zap.Int("active", len(next.Quests)))
	return true, nil
}

// SetTheme stores the presentation theme. The value is opaque to the core.
func (s *QuestService) SetTheme(ctx context.Context, theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.store.Clone()
	next.Theme = strings.TrimSpace(theme)
	return s.commit(next)
}

func (s *QuestService) Export(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.ExportTo(path)
}

// Import replaces all data with the file at path. Callers must obtain the
// user's confirmation first.
func (s *QuestService) Import(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.backend.ImportFrom(path)
	if err != nil {
		return err
	}
	s.store = store
	return nil
}

// Reset discards all data. Callers must obtain the user's confirmation first.
func (s *QuestService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.backend.ResetToDefault()
	if err != nil {
		return err
	}
	s.store = store
	return nil
}

// complete grants XP for next.Quests[idx], archives a dated copy and
// removes the quest unless it is daily.
func (s *QuestService) complete(next *model.Store, idx int) Outcome {
	quest := next.Quests[idx]
	outcome := Outcome{LevelBefore: next.Level, Completed: true, Archived: true}

	if quest.Type.IsDaily() {
		quest.CompletedToday = true
		next.Quests[idx] = quest
	} else {
		next.Quests = append(next.Quests[:idx], next.Quests[idx+1:]...)
	}

	next.CompletedQuests = append(next.CompletedQuests, model.CompletedQuest{
		Quest:          quest,
		CompletionDate: model.Today(s.now()),
	})
	next.XP += quest.XPReward
	ApplyLevelUps(&next.Progression)

	outcome.Quest = quest
	outcome.XPGained = quest.XPReward
	outcome.LevelAfter = next.Level
	return outcome
}

func (s *QuestService) commit(next *model.Store) error {
	if err := s.backend.Save(next); err != nil {
		return fmt.Errorf("save quests: %w", err)
	}
	s.store = next
	return nil
}

func (s *QuestService) record(ctx context.Context, outcome Outcome) {
	if s.journal == nil || !outcome.Completed {
		return
	}
	at := s.now().UTC()
	events := []*model.ProgressEvent{{
		Kind:       model.EventCompletion,
		QuestID:    outcome.Quest.ID,
		QuestTitle: outcome.Quest.Title,
		QuestType:  outcome.Quest.Type,
		XP:         outcome.XPGained,
		Level:      outcome.LevelAfter,
		OccurredAt: at,
	}}
	for lvl := outcome.LevelBefore + 1; lvl <= outcome.LevelAfter; lvl++ {
		events = append(events, &model.ProgressEvent{
			Kind:       model.EventLevelUp,
			QuestID:    outcome.Quest.ID,
			QuestTitle: outcome.Quest.Title,
			QuestType:  outcome.Quest.Type,
			Level:      lvl,
			OccurredAt: at,
		})
	}
	for _, event := range events {
		if err := s.journal.Record(ctx, event); err != nil {
			s.logger.Warn("journal write failed", zap.String("kind", string(event.Kind)), zap.Error(err))
		}
	}
}

// buildQuest validates input and applies field defaults. The result has no id.
func buildQuest(input QuestInput) (model.Quest, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Quest{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	icon := strings.TrimSpace(input.Icon)
	if icon == "" {
		icon = model.DefaultIcon
	}
	if !model.IsKnownIcon(icon) {
		return model.Quest{}, fmt.Errorf("%w: unknown icon %q", ErrValidation, icon)
	}

	questType := input.Type
	if questType == "" {
		questType = model.DefaultType
	}
	if !questType.Valid() {
		return model.Quest{}, fmt.Errorf("%w: unknown type %q", ErrValidation, questType)
	}

	xp := input.XPReward
	if xp == 0 {
		xp = model.DefaultXPReward
	}
	if xp < 0 || xp > model.MaxXPReward {
		return model.Quest{}, fmt.Errorf("%w: xp must be between 1 and %d", ErrValidation, model.MaxXPReward)
	}

	target := 0
	if input.IsCumulative {
		target = input.TargetValue
		if target == 0 {
			target = model.DefaultTargetValue
		}
		if target < 0 || target > model.MaxTargetValue {
			return model.Quest{}, fmt.Errorf("%w: target must be between 1 and %d", ErrValidation, model.MaxTargetValue)
		}
	}

	return model.Quest{
		Title:        title,
		Description:  clampRunes(strings.TrimSpace(input.Description), model.MaxDescriptionLength),
		Icon:         icon,
		Type:         questType,
		XPReward:     xp,
		IsCumulative: input.IsCumulative,
		TargetValue:  target,
	}, nil
}

func clampRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit])
}
