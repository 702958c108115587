package repository

import "github.com/curvedhammer/Achievle/internal/model"

// ApplyDailyReset restores daily quests once per calendar day. It reports
// whether the store changed; a second call on the same day returns false.
//
// Archived daily completions move back to the active set unless a quest with
// the same id is still active, which is the usual case since completing a
// daily quest keeps it in place.
func ApplyDailyReset(store *model.Store, today string) bool {
	if store.LastDailyResetDate == today {
		return false
	}

	active := make(map[string]bool, len(store.Quests))
	for _, q := range store.Quests {
		active[q.ID] = true
	}

	kept := make([]model.CompletedQuest, 0, len(store.CompletedQuests))
	for _, done := range store.CompletedQuests {
		if !done.Type.IsDaily() {
			kept = append(kept, done)
			continue
		}
		restored := done.Quest
		applyQuestDefaults(&restored)
		restored.CurrentValue = 0
		if active[restored.ID] {
			continue
		}
		active[restored.ID] = true
		store.Quests = append(store.Quests, restored)
	}

	for i := range store.Quests {
		store.Quests[i].CompletedToday = false
		if store.Quests[i].Type.IsDaily() {
			store.Quests[i].CurrentValue = 0
		}
	}

	store.CompletedQuests = kept
	store.LastDailyResetDate = today
	return true
}
