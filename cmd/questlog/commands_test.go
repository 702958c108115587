package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvedhammer/Achievle/internal/model"
)

func TestDestructiveCommandsNeedConfirmation(t *testing.T) {
	for _, args := range [][]string{
		{"import", "backup.json"},
		{"reset"},
	} {
		root := newRootCommand()
		root.SetArgs(args)
		root.SetOut(&bytes.Buffer{})
		err := root.Execute()
		assert.ErrorIs(t, err, errNotConfirmed, args)
	}
}

func TestStatusRejectsUnknownSort(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"status", "--sort", "random"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sort")
}

func TestWriteStatus(t *testing.T) {
	store := model.NewStore("2026-10-19")
	store.XP = 40
	quests := []model.Quest{
		{Title: "Stretch", Icon: "🌱", Type: model.TypeDaily, XPReward: 10, CompletedToday: true},
		{Title: "Steps", Icon: "💪", Type: model.TypeNormal, XPReward: 25, IsCumulative: true, CurrentValue: 4000, TargetValue: 10000},
	}

	var out bytes.Buffer
	writeStatus(&out, store, quests)

	text := out.String()
	assert.Contains(t, text, "Level 1  40 / 100 XP (40%)")
	assert.Contains(t, text, " 1. [x] 🌱 Stretch (daily, +10 XP)")
	assert.Contains(t, text, " 2. [ ] 💪 Steps (normal, +25 XP) 4000/10000")
}

func TestWriteStatus_Empty(t *testing.T) {
	var out bytes.Buffer
	writeStatus(&out, model.NewStore("2026-10-19"), nil)
	assert.Contains(t, out.String(), "No active quests.")
}
