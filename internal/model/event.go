package model

import "time"

type EventKind string

const (
	EventCompletion EventKind = "completion"
	EventLevelUp    EventKind = "level_up"
)

// ProgressEvent is one row of the progress journal. Completed daily quests
// leave the file history on the next reset; the journal keeps them.
type ProgressEvent struct {
	ID         uint      `gorm:"primaryKey"`
	Kind       EventKind `gorm:"index"`
	QuestID    string    `gorm:"index"`
	QuestTitle string
	QuestType  QuestType `gorm:"index"`
	XP         int
	Level      int
	OccurredAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}
