package repository

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/curvedhammer/Achievle/internal/model"
)

// Keys written by schema version 1 and the names that replaced them.
var legacyStoreKeys = map[string]string{
	"completed_quests": "completedQuests",
	"daily_reset":      "lastDailyResetDate",
}

var legacyQuestKeys = map[string]string{
	"desc":            "description",
	"xp":              "xpReward",
	"is_cumulative":   "isCumulative",
	"target_value":    "targetValue",
	"current_value":   "currentValue",
	"completed_today": "completedToday",
	"date":            "completionDate",
}

var legacyTypeNames = func() map[string]model.QuestType {
	out := make(map[string]model.QuestType, len(model.QuestTypeNames))
	for t, name := range model.QuestTypeNames {
		out[name] = t
	}
	return out
}()

// migrateStore upgrades a decoded data file in place to the current schema.
// Applying it to its own output changes nothing.
func migrateStore(raw map[string]any, today string) (map[string]any, error) {
	renameKeys(raw, legacyStoreKeys)

	setDefault(raw, "level", 1)
	setDefault(raw, "xp", 0)
	setDefault(raw, "lastDailyResetDate", today)
	setDefault(raw, "theme", model.DefaultTheme)

	for _, key := range []string{"quests", "completedQuests"} {
		list, err := migrateQuestList(raw[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		raw[key] = list
	}

	raw["schemaVersion"] = model.SchemaVersion
	return raw, nil
}

func migrateQuestList(value any) ([]any, error) {
	if value == nil {
		return []any{}, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected an object, got %T", i, item)
		}
		out = append(out, migrateQuest(rec))
	}
	return out, nil
}

// migrateQuest fills in fields that older files did not carry.
func migrateQuest(rec map[string]any) map[string]any {
	renameKeys(rec, legacyQuestKeys)

	if id, _ := rec["id"].(string); id == "" {
		rec["id"] = uuid.NewString()
	}
	setDefault(rec, "title", "")
	setDefault(rec, "description", "")
	setDefault(rec, "icon", model.DefaultIcon)
	setDefault(rec, "type", string(model.DefaultType))
	if name, ok := rec["type"].(string); ok {
		if t, legacy := legacyTypeNames[name]; legacy {
			rec["type"] = string(t)
		}
	}
	setDefault(rec, "xpReward", model.DefaultXPReward)
	setDefault(rec, "isCumulative", false)
	if cumulative, _ := rec["isCumulative"].(bool); cumulative {
		setDefault(rec, "targetValue", model.DefaultTargetValue)
	} else {
		setDefault(rec, "targetValue", 0)
	}
	setDefault(rec, "currentValue", 0)
	setDefault(rec, "completedToday", false)
	return rec
}

// applyQuestDefaults is migrateQuest for an already typed quest.
func applyQuestDefaults(q *model.Quest) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Icon == "" {
		q.Icon = model.DefaultIcon
	}
	if q.Type == "" {
		q.Type = model.DefaultType
	}
	if t, legacy := legacyTypeNames[string(q.Type)]; legacy {
		q.Type = t
	}
	if q.XPReward == 0 {
		q.XPReward = model.DefaultXPReward
	}
	if q.IsCumulative && q.TargetValue == 0 {
		q.TargetValue = model.DefaultTargetValue
	}
}

func renameKeys(rec map[string]any, aliases map[string]string) {
	for old, current := range aliases {
		value, ok := rec[old]
		if !ok {
			continue
		}
		if _, exists := rec[current]; !exists {
			rec[current] = value
		}
		delete(rec, old)
	}
}

func setDefault(rec map[string]any, key string, value any) {
	if v, ok := rec[key]; !ok || v == nil {
		rec[key] = value
	}
}
