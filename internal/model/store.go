package model

import "time"

// DateLayout is the calendar date format used for reset and completion dates.
const DateLayout = "2006-01-02"

// SchemaVersion is the current layout of the data file. Version 1 files use
// snake_case keys and localized type names.
const SchemaVersion = 2

const DefaultTheme = "light"

// Progression is the aggregate XP state of the user.
type Progression struct {
	Level              int    `json:"level"`
	XP                 int    `json:"xp"`
	LastDailyResetDate string `json:"lastDailyResetDate"`
}

// Store is the root aggregate persisted as a single file.
type Store struct {
	SchemaVersion int `json:"schemaVersion"`
	Progression
	Quests          []Quest          `json:"quests"`
	CompletedQuests []CompletedQuest `json:"completedQuests"`
	Theme           string           `json:"theme"`
}

// NewStore returns an empty store for a fresh installation.
func NewStore(today string) *Store {
	return &Store{
		SchemaVersion: SchemaVersion,
		Progression: Progression{
			Level:              1,
			XP:                 0,
			LastDailyResetDate: today,
		},
		Quests:          []Quest{},
		CompletedQuests: []CompletedQuest{},
		Theme:           DefaultTheme,
	}
}

// Today formats t as a calendar date in its own location.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// FindQuest returns the index of the active quest with the given id, or -1.
func (s *Store) FindQuest(id string) int {
	for i := range s.Quests {
		if s.Quests[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can read it without holding the owner.
func (s *Store) Clone() *Store {
	out := *s
	out.Quests = append([]Quest(nil), s.Quests...)
	out.CompletedQuests = append([]CompletedQuest(nil), s.CompletedQuests...)
	if out.Quests == nil {
		out.Quests = []Quest{}
	}
	if out.CompletedQuests == nil {
		out.CompletedQuests = []CompletedQuest{}
	}
	return &out
}
