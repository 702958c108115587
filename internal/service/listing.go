package service

import (
	"sort"
	"strings"

	"github.com/curvedhammer/Achievle/internal/model"
)

type SortMode int

const (
	SortTitle SortMode = iota
	SortType
	SortXPDesc
	SortXPAsc
)

var sortModeNames = map[string]SortMode{
	"title":   SortTitle,
	"type":    SortType,
	"xp-desc": SortXPDesc,
	"xp-asc":  SortXPAsc,
}

// ParseSortMode maps a user-facing name such as "xp-desc" to a SortMode.
func ParseSortMode(name string) (SortMode, bool) {
	mode, ok := sortModeNames[strings.ToLower(strings.TrimSpace(name))]
	return mode, ok
}

type ListOptions struct {
	Search string
	Sort   SortMode
}

// FilterQuests returns a new slice with the quests whose title or
// description contains search, ignoring case. An empty search keeps all.
func FilterQuests(quests []model.Quest, search string) []model.Quest {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Quest, 0, len(quests))
	for _, q := range quests {
		if needle == "" ||
			strings.Contains(strings.ToLower(q.Title), needle) ||
			strings.Contains(strings.ToLower(q.Description), needle) {
			out = append(out, q)
		}
	}
	return out
}

// SortQuests sorts in place; equal keys keep their relative order.
func SortQuests(quests []model.Quest, mode SortMode) {
	var less func(a, b model.Quest) bool
	switch mode {
	case SortType:
		less = func(a, b model.Quest) bool { return a.Type.Order() < b.Type.Order() }
	case SortXPDesc:
		less = func(a, b model.Quest) bool { return a.XPReward > b.XPReward }
	case SortXPAsc:
		less = func(a, b model.Quest) bool { return a.XPReward < b.XPReward }
	default:
		less = func(a, b model.Quest) bool { return a.Title < b.Title }
	}
	sort.SliceStable(quests, func(i, j int) bool {
		return less(quests[i], quests[j])
	})
}
