package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// JournalOff disables the progress journal when used as JournalPath.
const JournalOff = "off"

// Config keeps runtime settings for the quest log.
type Config struct {
	TelegramToken string `mapstructure:"telegram_token"`
	OwnerID       int64  `mapstructure:"questlog_owner_id"`
	DataPath      string `mapstructure:"questlog_data_path"`
	JournalPath   string `mapstructure:"questlog_journal_path"`
	ResetTime     string `mapstructure:"questlog_reset_time"`
	ReportTime    string `mapstructure:"questlog_report_time"`
	Debug         bool   `mapstructure:"questlog_debug"`
}

var keys = map[string]any{
	"telegram_token":        "",
	"questlog_owner_id":     0,
	"questlog_data_path":    "quests.json",
	"questlog_journal_path": "quest_journal.db",
	"questlog_reset_time":   "00:00",
	"questlog_report_time":  "21:00",
	"questlog_debug":        false,
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

// An empty QUESTLOG_REPORT_TIME disables the evening summary, so empty
// variables are kept rather than replaced by defaults.
func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	for key, def := range keys {
		v.SetDefault(key, def)
		// AutomaticEnv only covers Get; Unmarshal needs explicit bindings.
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DataPath = strings.TrimSpace(cfg.DataPath)
	cfg.JournalPath = strings.TrimSpace(cfg.JournalPath)
	cfg.ResetTime = strings.TrimSpace(cfg.ResetTime)
	cfg.ReportTime = strings.TrimSpace(cfg.ReportTime)

	if cfg.DataPath == "" {
		cfg.DataPath = "quests.json"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "quest_journal.db"
	}
	if cfg.ResetTime == "" {
		cfg.ResetTime = "00:00"
	}
	return cfg, nil
}

// JournalEnabled reports whether progress events should be stored.
func (c Config) JournalEnabled() bool {
	return c.JournalPath != "" && !strings.EqualFold(c.JournalPath, JournalOff)
}

// ValidateBot checks the settings the Telegram shell cannot run without.
func (c Config) ValidateBot() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.OwnerID == 0 {
		errs = append(errs, errors.New("QUESTLOG_OWNER_ID is required"))
	}
	return errors.Join(errs...)
}
