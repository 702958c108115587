package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/repository"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) nextDay() { c.now = c.now.AddDate(0, 0, 1) }

type memoryJournal struct {
	events []model.ProgressEvent
	err    error
}

func (j *memoryJournal) Record(_ context.Context, event *model.ProgressEvent) error {
	if j.err != nil {
		return j.err
	}
	j.events = append(j.events, *event)
	return nil
}

type failingBackend struct {
	StoreBackend
}

func (failingBackend) Save(*model.Store) error {
	return repository.ErrStoreIO
}

func newTestService(t *testing.T, journal Journal) (*QuestService, *repository.FileStore, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)}
	fs := repository.NewFileStore(filepath.Join(t.TempDir(), "quests.json"), zap.NewNop(), clock.Now)
	svc, err := NewQuestService(fs, journal, zap.NewNop(), clock.Now)
	require.NoError(t, err)
	return svc, fs, clock
}

func TestCreateAndCompleteNormalQuest(t *testing.T) {
	svc, fs, _ := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Run 5km", Type: model.TypeNormal, XPReward: 20})
	require.NoError(t, err)
	assert.NotEmpty(t, quest.ID)

	outcome, err := svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, 20, outcome.XPGained)
	assert.False(t, outcome.LeveledUp())

	store := svc.Snapshot()
	assert.Equal(t, 20, store.XP)
	assert.Equal(t, 1, store.Level)
	assert.Empty(t, store.Quests)
	require.Len(t, store.CompletedQuests, 1)
	assert.Equal(t, "2026-10-19", store.CompletedQuests[0].CompletionDate)
	assert.Equal(t, "Run 5km", store.CompletedQuests[0].Title)

	persisted, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, store, persisted)
}

func TestCreateQuest_Defaults(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	quest, err := svc.CreateQuest(context.Background(), QuestInput{
		Title:        "  Push-ups ",
		Description:  strings.Repeat("ж", 250),
		IsCumulative: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Push-ups", quest.Title)
	assert.Equal(t, model.DefaultIcon, quest.Icon)
	assert.Equal(t, model.TypeNormal, quest.Type)
	assert.Equal(t, model.DefaultXPReward, quest.XPReward)
	assert.Equal(t, model.DefaultTargetValue, quest.TargetValue)
	assert.Equal(t, model.MaxDescriptionLength, len([]rune(quest.Description)))
}

func TestCreateQuest_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	inputs := []QuestInput{
		{Title: "   "},
		{Title: "x", XPReward: -5},
		{Title: "x", XPReward: model.MaxXPReward + 1},
		{Title: "x", IsCumulative: true, TargetValue: -1},
		{Title: "x", Type: "weekly"},
		{Title: "x", Icon: "X"},
	}
	for _, in := range inputs {
		_, err := svc.CreateQuest(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
	assert.Empty(t, svc.Snapshot().Quests)
}

func TestAddProgress(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Read pages", XPReward: 30, IsCumulative: true, TargetValue: 100})
	require.NoError(t, err)

	outcome, err := svc.AddProgress(ctx, quest.ID, 80)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)

	outcome, err = svc.AddProgress(ctx, quest.ID, 15)
	require.NoError(t, err)
	assert.False(t, outcome.Completed)
	assert.Equal(t, 95, outcome.Quest.CurrentValue)

	outcome, err = svc.AddProgress(ctx, quest.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 95, outcome.Quest.CurrentValue, "negative amounts are ignored")

	outcome, err = svc.AddProgress(ctx, quest.ID, 25)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)
	assert.Equal(t, 120, outcome.Quest.CurrentValue)

	store := svc.Snapshot()
	assert.Equal(t, 30, store.XP)
	assert.Empty(t, store.Quests)
	require.Len(t, store.CompletedQuests, 1)
	assert.Equal(t, 120, store.CompletedQuests[0].CurrentValue)
}

func TestAddProgress_DailyCumulativeStaysActive(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Water", Type: model.TypeAdvancedDaily, XPReward: 15,
		IsCumulative: true, TargetValue: 8})
	require.NoError(t, err)

	outcome, err := svc.AddProgress(ctx, quest.ID, 8)
	require.NoError(t, err)
	assert.True(t, outcome.Completed)

	store := svc.Snapshot()
	require.Len(t, store.Quests, 1)
	assert.True(t, store.Quests[0].CompletedToday)
	assert.Len(t, store.CompletedQuests, 1)

	_, err = svc.AddProgress(ctx, quest.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestAddProgress_Errors(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddProgress(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrQuestNotFound)

	plain, err := svc.CreateQuest(ctx, QuestInput{Title: "Plain"})
	require.NoError(t, err)
	_, err = svc.AddProgress(ctx, plain.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteDailyQuest(t *testing.T) {
	svc, _, clock := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Stretch", Type: model.TypeDaily, XPReward: 10})
	require.NoError(t, err)

	_, err = svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)

	_, err = svc.CompleteQuest(ctx, quest.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	store := svc.Snapshot()
	require.Len(t, store.Quests, 1)
	assert.True(t, store.Quests[0].CompletedToday)
	assert.Equal(t, 10, store.XP)

	clock.nextDay()
	changed, err := svc.RunDailyReset(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	store = svc.Snapshot()
	require.Len(t, store.Quests, 1)
	assert.False(t, store.Quests[0].CompletedToday)
	assert.Empty(t, store.CompletedQuests)
	assert.Equal(t, 10, store.XP, "xp survives the reset")

	changed, err = svc.RunDailyReset(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = svc.CompleteQuest(ctx, quest.ID)
	assert.NoError(t, err)
}

func TestCompleteQuest_Errors(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CompleteQuest(ctx, "missing")
	assert.ErrorIs(t, err, ErrQuestNotFound)

	cumulative, err := svc.CreateQuest(ctx, QuestInput{Title: "Steps", IsCumulative: true, TargetValue: 10})
	require.NoError(t, err)
	_, err = svc.CompleteQuest(ctx, cumulative.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteQuest_LevelUpAndJournal(t *testing.T) {
	journal := &memoryJournal{}
	svc, _, _ := newTestService(t, journal)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Marathon", Type: model.TypeChallenge, XPReward: 300})
	require.NoError(t, err)

	outcome, err := svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.LevelBefore)
	assert.Equal(t, 4, outcome.LevelAfter)
	assert.True(t, outcome.LeveledUp())

	require.Len(t, journal.events, 4)
	assert.Equal(t, model.EventCompletion, journal.events[0].Kind)
	assert.Equal(t, 300, journal.events[0].XP)
	for i, lvl := range []int{2, 3, 4} {
		assert.Equal(t, model.EventLevelUp, journal.events[i+1].Kind)
		assert.Equal(t, lvl, journal.events[i+1].Level)
	}
}

func TestCompleteQuest_JournalFailureIsNotFatal(t *testing.T) {
	svc, _, _ := newTestService(t, &memoryJournal{err: errors.New("disk full")})
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Anything"})
	require.NoError(t, err)
	_, err = svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultXPReward, svc.Snapshot().XP)
}

func TestUpdateQuest(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Savings", Type: model.TypeMastery, IsCumulative: true, TargetValue: 1000})
	require.NoError(t, err)
	_, err = svc.AddProgress(ctx, quest.ID, 400)
	require.NoError(t, err)

	updated, err := svc.UpdateQuest(ctx, quest.ID, QuestInput{Title: "Savings fund", Type: model.TypeMastery,
		XPReward: 200, IsCumulative: true, TargetValue: 2000})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, quest.ID, updated.ID)
	assert.Equal(t, 400, updated.CurrentValue)
	assert.Equal(t, 2000, updated.TargetValue)

	updated, err = svc.UpdateQuest(ctx, quest.ID, QuestInput{Title: "Savings fund", Type: model.TypeMastery})
	require.NoError(t, err)
	assert.Zero(t, updated.CurrentValue)
	assert.Zero(t, updated.TargetValue)

	missing, err := svc.UpdateQuest(ctx, "missing", QuestInput{Title: "x"})
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.UpdateQuest(ctx, quest.ID, QuestInput{Title: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateQuest_TypeChangeKeepsCompletedToday(t *testing.T) {
	svc, _, clock := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Meditate", Type: model.TypeDaily, XPReward: 30})
	require.NoError(t, err)
	_, err = svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)

	input := QuestInput{Title: "Meditate", Type: model.TypeNormal, XPReward: 30}
	updated, err := svc.UpdateQuest(ctx, quest.ID, input)
	require.NoError(t, err)
	assert.True(t, updated.CompletedToday)
	_, err = svc.CompleteQuest(ctx, quest.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	input.Type = model.TypeDaily
	_, err = svc.UpdateQuest(ctx, quest.ID, input)
	require.NoError(t, err)

	_, err = svc.CompleteQuest(ctx, quest.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, 30, svc.Snapshot().XP)

	clock.nextDay()
	_, err = svc.RunDailyReset(ctx)
	require.NoError(t, err)
	_, err = svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, svc.Snapshot().XP)
}

func TestDeleteQuest(t *testing.T) {
	svc, fs, _ := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Temporary"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteQuest(ctx, quest.ID))
	assert.Empty(t, svc.Snapshot().Quests)
	assert.NoError(t, svc.DeleteQuest(ctx, quest.ID))

	persisted, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted.Quests)
}

func TestSaveFailureKeepsPreviousState(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)}
	fs := repository.NewFileStore(filepath.Join(t.TempDir(), "quests.json"), zap.NewNop(), clock.Now)
	svc, err := NewQuestService(failingBackend{StoreBackend: fs}, nil, zap.NewNop(), clock.Now)
	require.NoError(t, err)

	_, err = svc.CreateQuest(context.Background(), QuestInput{Title: "Lost"})
	assert.ErrorIs(t, err, repository.ErrStoreIO)
	assert.Empty(t, svc.Snapshot().Quests)
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, in := range []QuestInput{
		{Title: "Walk the dog", XPReward: 5},
		{Title: "Deep work", Description: "no phone", XPReward: 50},
		{Title: "Call mom", XPReward: 20},
	} {
		_, err := svc.CreateQuest(ctx, in)
		require.NoError(t, err)
	}

	titles := func(quests []model.Quest) []string {
		out := make([]string, 0, len(quests))
		for _, q := range quests {
			out = append(out, q.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Call mom", "Deep work", "Walk the dog"}, titles(svc.List(ListOptions{})))
	assert.Equal(t, []string{"Deep work", "Call mom", "Walk the dog"}, titles(svc.List(ListOptions{Sort: SortXPDesc})))
	assert.Equal(t, []string{"Deep work"}, titles(svc.List(ListOptions{Search: "PHONE"})))
}

func TestExportImportReset(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	quest, err := svc.CreateQuest(ctx, QuestInput{Title: "Keep me", XPReward: 40})
	require.NoError(t, err)
	_, err = svc.CompleteQuest(ctx, quest.ID)
	require.NoError(t, err)

	exported := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, svc.Export(ctx, exported))

	require.NoError(t, svc.Reset(ctx))
	assert.Zero(t, svc.Snapshot().XP)
	assert.Empty(t, svc.Snapshot().CompletedQuests)

	require.NoError(t, svc.Import(ctx, exported))
	store := svc.Snapshot()
	assert.Equal(t, 40, store.XP)
	require.Len(t, store.CompletedQuests, 1)
	assert.Equal(t, "Keep me", store.CompletedQuests[0].Title)
}

func TestSetTheme(t *testing.T) {
	svc, fs, _ := newTestService(t, nil)

	require.NoError(t, svc.SetTheme(context.Background(), "dark"))
	persisted, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "dark", persisted.Theme)
}
