package model

// QuestType is the category of a quest. It decides whether the quest is daily.
type QuestType string

const (
	TypeNormal        QuestType = "normal"
	TypeChallenge     QuestType = "challenge"
	TypeMastery       QuestType = "mastery"
	TypeDaily         QuestType = "daily"
	TypeAdvancedDaily QuestType = "advanced_daily"
)

// QuestTypes lists every type in declared order; sorting by type follows it.
var QuestTypes = []QuestType{
	TypeNormal,
	TypeChallenge,
	TypeMastery,
	TypeDaily,
	TypeAdvancedDaily,
}

var QuestTypeNames = map[QuestType]string{
	TypeNormal:        "Обычное достижение",
	TypeChallenge:     "Испытание",
	TypeMastery:       "Мастерство",
	TypeDaily:         "Ежедневное задание",
	TypeAdvancedDaily: "Продвинутое ежедневное задание",
}

var QuestTypeMarks = map[QuestType]string{
	TypeNormal:        "🔵",
	TypeChallenge:     "🟠",
	TypeMastery:       "🟣",
	TypeDaily:         "🟢",
	TypeAdvancedDaily: "🔴",
}

// Icons is the fixed set of symbols a quest can carry.
var Icons = []string{
	"🎮", "🏆", "🔥", "🚀", "🎯", "💡", "⚡", "✨", "🛡️", "📚",
	"🛠️", "💎", "🏅", "🌟", "💼", "🌱", "🧭", "🧠", "💪", "📊",
}

const (
	DefaultIcon          = "🎮"
	DefaultType          = TypeNormal
	DefaultXPReward      = 10
	DefaultTargetValue   = 100
	MaxDescriptionLength = 200
	MaxXPReward          = 1000
	MaxTargetValue       = 10_000_000
	MaxLevel             = 50
)

// IsDaily reports whether quests of this type reset every calendar day.
func (t QuestType) IsDaily() bool {
	return t == TypeDaily || t == TypeAdvancedDaily
}

// Valid reports whether t is one of the declared types.
func (t QuestType) Valid() bool {
	_, ok := QuestTypeNames[t]
	return ok
}

// Order is the position of t in QuestTypes, or len(QuestTypes) for unknown types.
func (t QuestType) Order() int {
	for i, known := range QuestTypes {
		if known == t {
			return i
		}
	}
	return len(QuestTypes)
}

func (t QuestType) Name() string {
	if name, ok := QuestTypeNames[t]; ok {
		return name
	}
	return string(t)
}

func (t QuestType) Mark() string {
	if mark, ok := QuestTypeMarks[t]; ok {
		return mark
	}
	return "⚪"
}

// IsKnownIcon reports whether icon belongs to Icons.
func IsKnownIcon(icon string) bool {
	for _, known := range Icons {
		if known == icon {
			return true
		}
	}
	return false
}

// Quest is a user-defined task tracked for completion and XP.
type Quest struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Icon           string    `json:"icon"`
	Type           QuestType `json:"type"`
	XPReward       int       `json:"xpReward"`
	IsCumulative   bool      `json:"isCumulative"`
	TargetValue    int       `json:"targetValue"`
	CurrentValue   int       `json:"currentValue"`
	CompletedToday bool      `json:"completedToday"`
}

// Reached reports whether a cumulative quest has met its target.
func (q Quest) Reached() bool {
	return q.IsCumulative && q.CurrentValue >= q.TargetValue
}

// CompletedQuest is a snapshot of a quest taken at completion time.
type CompletedQuest struct {
	Quest
	CompletionDate string `json:"completionDate"`
}
