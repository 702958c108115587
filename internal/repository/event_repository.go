package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/curvedhammer/Achievle/internal/model"
)

// EventRepository appends to and queries the progress journal.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Record(ctx context.Context, event *model.ProgressEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first.
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]model.ProgressEvent, error) {
	var events []model.ProgressEvent
	if err := r.db.WithContext(ctx).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) CountSince(ctx context.Context, kind model.EventKind, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ProgressEvent{}).
		Where("kind = ? AND occurred_at >= ?", kind, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// CompletionsByType counts every completion ever recorded, grouped by quest type.
func (r *EventRepository) CompletionsByType(ctx context.Context) (map[model.QuestType]int64, error) {
	var rows []struct {
		QuestType model.QuestType
		Count     int64
	}
	if err := r.db.WithContext(ctx).Model(&model.ProgressEvent{}).
		Select("quest_type, COUNT(*) AS count").
		Where("kind = ?", model.EventCompletion).
		Group("quest_type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("group completions: %w", err)
	}
	out := make(map[model.QuestType]int64, len(rows))
	for _, row := range rows {
		out[row.QuestType] = row.Count
	}
	return out, nil
}
