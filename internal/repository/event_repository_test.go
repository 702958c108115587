package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvedhammer/Achievle/internal/model"
)

func setupJournal(t *testing.T) *EventRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "journal", "events.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewEventRepository(db)
}

func TestEventRepository_RecordAndListRecent(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Record(ctx, &model.ProgressEvent{
			Kind:       model.EventCompletion,
			QuestID:    title,
			QuestTitle: title,
			QuestType:  model.TypeNormal,
			XP:         10,
			Level:      1,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	events, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "third", events[0].QuestTitle)
	assert.Equal(t, "second", events[1].QuestTitle)
}

func TestEventRepository_CountSince(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	record := func(kind model.EventKind, at time.Time) {
		require.NoError(t, repo.Record(ctx, &model.ProgressEvent{Kind: kind, QuestType: model.TypeDaily, OccurredAt: at}))
	}
	record(model.EventCompletion, now.AddDate(0, 0, -10))
	record(model.EventCompletion, now.AddDate(0, 0, -2))
	record(model.EventCompletion, now)
	record(model.EventLevelUp, now)

	count, err := repo.CountSince(ctx, model.EventCompletion, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	levels, err := repo.CountSince(ctx, model.EventLevelUp, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), levels)
}

func TestEventRepository_CompletionsByType(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()
	now := time.Now()

	for _, qt := range []model.QuestType{model.TypeDaily, model.TypeDaily, model.TypeMastery} {
		require.NoError(t, repo.Record(ctx, &model.ProgressEvent{Kind: model.EventCompletion, QuestType: qt, OccurredAt: now}))
	}
	require.NoError(t, repo.Record(ctx, &model.ProgressEvent{Kind: model.EventLevelUp, Level: 2, OccurredAt: now}))

	byType, err := repo.CompletionsByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.QuestType]int64{model.TypeDaily: 2, model.TypeMastery: 1}, byType)
}
