package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/curvedhammer/Achievle/internal/model"
)

// NewDB opens the SQLite progress journal and migrates its schema.
//
// The JSON data file stays the source of truth for quests and progression.
// The journal only appends completion and level-up events, which the daily
// reset would otherwise drop from the file's history, so weekly and
// lifetime statistics survive it. The DSN is separate from the data path
// so the journal can be moved or disabled without touching quest data.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "quest_journal.db"
	}

	if err := ensureParentDir(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.AutoMigrate(&model.ProgressEvent{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return db, nil
}

// ensureParentDir creates the parent dir of a file path or SQLite DSN. The
// file store uses it for the data file and export targets as well.
func ensureParentDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	return nil
}
