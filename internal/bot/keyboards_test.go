package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/service"
)

func TestParseQuestType(t *testing.T) {
	for _, qt := range model.QuestTypes {
		got, ok := parseQuestType(typeButtonLabel(qt))
		require.True(t, ok, qt)
		assert.Equal(t, qt, got)

		got, ok = parseQuestType(qt.Name())
		require.True(t, ok, qt)
		assert.Equal(t, qt, got)
	}

	got, ok := parseQuestType("advanced_daily")
	assert.True(t, ok)
	assert.Equal(t, model.TypeAdvancedDaily, got)

	_, ok = parseQuestType("weekly")
	assert.False(t, ok)
}

func TestParseXPAndTarget(t *testing.T) {
	xp, err := parseXP(" 250 ")
	require.NoError(t, err)
	assert.Equal(t, 250, xp)

	for _, bad := range []string{"0", "1001", "-3", "ten"} {
		_, err := parseXP(bad)
		assert.Error(t, err, bad)
	}

	target, err := parseTarget("10 000")
	require.NoError(t, err)
	assert.Equal(t, 10000, target)

	_, err = parseTarget("10000001")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount("0")
	require.NoError(t, err)
	assert.Zero(t, amount)

	_, err = parseAmount("-5")
	assert.Error(t, err)

	_, err = parseAmount("1.5")
	assert.Error(t, err)
}

func TestParseListOptions(t *testing.T) {
	assert.Equal(t, service.ListOptions{}, parseListOptions(""))
	assert.Equal(t, service.ListOptions{Sort: service.SortXPDesc}, parseListOptions("xp-desc"))
	assert.Equal(t, service.ListOptions{Sort: service.SortType, Search: "морской бой"}, parseListOptions("type морской бой"))
	assert.Equal(t, service.ListOptions{Search: "run"}, parseListOptions("  run "))
}

func TestParseCallback(t *testing.T) {
	prefix, id, ok := parseCallback("prog:0b5c7f0a-1d9e-4f6b-9a53-2c1f0e7d8a11")
	require.True(t, ok)
	assert.Equal(t, cbProgressPrefix, prefix)
	assert.Equal(t, "0b5c7f0a-1d9e-4f6b-9a53-2c1f0e7d8a11", id)

	_, _, ok = parseCallback("done:")
	assert.False(t, ok)

	_, _, ok = parseCallback("complete:12")
	assert.False(t, ok)
}

func TestInputMatchers(t *testing.T) {
	assert.True(t, isSkipInput(btnSkip))
	assert.True(t, isSkipInput(" - "))
	assert.True(t, isConfirmInput(btnConfirm))
	assert.True(t, isCancelInput(btnCancel))
	assert.True(t, isCancelDialogInput(btnCancelDialog))
	assert.False(t, isCancelDialogInput("отмена"))
	assert.True(t, isYesInput(btnYes))
	assert.True(t, isNoInput(btnNo))
	assert.True(t, isClearInput(btnClear))
	assert.True(t, isClearInput(" Очистить "))
	assert.False(t, isClearInput("-"))
	assert.False(t, isSkipInput(btnClear))
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Бег", shortTitle("бег", 10))
	assert.Equal(t, "Прочитать…", shortTitle("прочитать книгу", 10))
}

func TestFormatOutcome(t *testing.T) {
	progress := service.Outcome{Quest: model.Quest{Title: "steps", IsCumulative: true, CurrentValue: 95, TargetValue: 100}}
	assert.Equal(t, "📈 Steps: 95 / 100", formatOutcome(progress))

	done := service.Outcome{
		Quest:       model.Quest{Title: "Run <5km>", Type: model.TypeNormal},
		Completed:   true,
		XPGained:    120,
		LevelBefore: 1,
		LevelAfter:  2,
	}
	text := formatOutcome(done)
	assert.Contains(t, text, "Run &lt;5km&gt;")
	assert.Contains(t, text, "+120 XP")
	assert.Contains(t, text, "Новый уровень: <b>2</b>")
}
