package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/curvedhammer/Achievle/internal/model"
)

func questIDs(quests []model.Quest) []string {
	ids := make([]string, 0, len(quests))
	for _, q := range quests {
		ids = append(ids, q.ID)
	}
	return ids
}

func listingFixture() []model.Quest {
	return []model.Quest{
		{ID: "a", Title: "Stretch", Description: "Morning routine", Type: model.TypeDaily, XPReward: 10},
		{ID: "b", Title: "Bake bread", Type: model.TypeChallenge, XPReward: 40},
		{ID: "c", Title: "Learn Go", Description: "finish the TOUR", Type: model.TypeMastery, XPReward: 40},
		{ID: "d", Title: "Answer mail", Type: model.TypeNormal, XPReward: 5},
	}
}

func TestFilterQuests(t *testing.T) {
	quests := listingFixture()

	assert.Equal(t, []string{"a", "b", "c", "d"}, questIDs(FilterQuests(quests, "")))
	assert.Equal(t, []string{"c"}, questIDs(FilterQuests(quests, "tour")))
	assert.Equal(t, []string{"a"}, questIDs(FilterQuests(quests, "  STRETCH ")))
	assert.Empty(t, FilterQuests(quests, "nothing"))
}

func TestSortQuests(t *testing.T) {
	cases := []struct {
		mode SortMode
		want []string
	}{
		{SortTitle, []string{"d", "b", "c", "a"}},
		{SortType, []string{"d", "b", "c", "a"}},
		{SortXPDesc, []string{"b", "c", "a", "d"}},
		{SortXPAsc, []string{"d", "a", "b", "c"}},
	}
	for _, tc := range cases {
		quests := listingFixture()
		SortQuests(quests, tc.mode)
		assert.Equal(t, tc.want, questIDs(quests), "mode %d", tc.mode)
	}
}

func TestParseSortMode(t *testing.T) {
	mode, ok := ParseSortMode("XP-desc")
	assert.True(t, ok)
	assert.Equal(t, SortXPDesc, mode)

	_, ok = ParseSortMode("random")
	assert.False(t, ok)
}
