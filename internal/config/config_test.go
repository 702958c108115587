package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for key := range keys {
		name := strings.ToUpper(key)
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "quests.json", cfg.DataPath)
	assert.Equal(t, "quest_journal.db", cfg.JournalPath)
	assert.Equal(t, "00:00", cfg.ResetTime)
	assert.Equal(t, "21:00", cfg.ReportTime)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.JournalEnabled())
	assert.Error(t, cfg.ValidateBot())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", " 123:abc ")
	t.Setenv("QUESTLOG_OWNER_ID", "42")
	t.Setenv("QUESTLOG_DATA_PATH", "/var/lib/questlog/quests.json")
	t.Setenv("QUESTLOG_JOURNAL_PATH", "OFF")
	t.Setenv("QUESTLOG_RESET_TIME", "04:30")
	t.Setenv("QUESTLOG_REPORT_TIME", "")
	t.Setenv("QUESTLOG_DEBUG", "true")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.OwnerID)
	assert.Equal(t, "/var/lib/questlog/quests.json", cfg.DataPath)
	assert.False(t, cfg.JournalEnabled())
	assert.Equal(t, "04:30", cfg.ResetTime)
	assert.Empty(t, cfg.ReportTime)
	assert.True(t, cfg.Debug)
	assert.NoError(t, cfg.ValidateBot())
}
