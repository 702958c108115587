package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/model"
)

var (
	// ErrStoreIO wraps failures to read or write the data file and its copies.
	ErrStoreIO = errors.New("quest store i/o")
	// ErrStoreCorrupt means a file exists but does not hold quest data.
	ErrStoreCorrupt = errors.New("quest store corrupt")
)

// FileStore keeps the quest store in a single JSON file with a one-slot
// .bak copy of the previous contents.
type FileStore struct {
	path   string
	now    func() time.Time
	logger *zap.Logger
}

// NewFileStore creates a store at path. A nil clock means time.Now.
func NewFileStore(path string, logger *zap.Logger, now func() time.Time) *FileStore {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, now: now, logger: logger}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) BackupPath() string {
	return s.path + ".bak"
}

func (s *FileStore) today() string {
	return model.Today(s.now())
}

// Load reads the data file, upgrades it, applies the daily reset and saves
// the result. A missing file yields a fresh store; a corrupt one is an error.
func (s *FileStore) Load() (*model.Store, error) {
	return s.load(true)
}

func (s *FileStore) load(backup bool) (*model.Store, error) {
	today := s.today()

	var store *model.Store
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("data file not found, starting a new quest log", zap.String("path", s.path))
		store = model.NewStore(today)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w: %w", s.path, ErrStoreIO, err)
	default:
		store, err = decode(data, today)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", s.path, err)
		}
	}

	if ApplyDailyReset(store, today) {
		s.logger.Info("daily quests reset",
			zap.String("date", today),
			zap.Int("active", len(store.Quests)),
			zap.Int("archived", len(store.CompletedQuests)))
	}

	if err := s.save(store, backup); err != nil {
		return nil, err
	}
	return store, nil
}

// Save backs up the current file and atomically replaces it with store.
func (s *FileStore) Save(store *model.Store) error {
	return s.save(store, true)
}

func (s *FileStore) save(store *model.Store, backup bool) error {
	data, err := encode(store)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	return s.writeRaw(data, backup)
}

// ExportTo copies the data file verbatim to dest.
func (s *FileStore) ExportTo(dest string) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", s.path, ErrStoreIO, err)
	}
	if err := ensureParentDir(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w: %w", dest, ErrStoreIO, err)
	}
	s.logger.Info("quest log exported", zap.String("dest", dest), zap.Int("bytes", len(data)))
	return nil
}

// ImportFrom replaces the data file with src and loads it. The current file
// is only overwritten once src is known to decode.
func (s *FileStore) ImportFrom(src string) (*model.Store, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", src, ErrStoreIO, err)
	}
	if _, err := decode(data, s.today()); err != nil {
		return nil, fmt.Errorf("import %s: %w", src, err)
	}
	if err := s.writeRaw(data, true); err != nil {
		return nil, err
	}
	s.logger.Info("quest log imported", zap.String("src", src))
	// The backup slot already holds the pre-import file.
	return s.load(false)
}

// ResetToDefault discards the data file and returns an empty store. The
// discarded contents stay in the backup slot.
func (s *FileStore) ResetToDefault() (*model.Store, error) {
	s.backup()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove %s: %w: %w", s.path, ErrStoreIO, err)
	}
	s.logger.Warn("quest log reset to defaults", zap.String("path", s.path))
	return model.NewStore(s.today()), nil
}

func (s *FileStore) writeRaw(data []byte, backup bool) error {
	if err := ensureParentDir(s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	if backup {
		s.backup()
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w: %w", tmp, ErrStoreIO, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w: %w", s.path, ErrStoreIO, err)
	}
	return nil
}

// backup copies the primary file into the .bak slot. Failures are logged
// and never block the write that follows.
func (s *FileStore) backup() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err == nil {
		err = os.WriteFile(s.BackupPath(), data, 0o644)
	}
	if err != nil {
		s.logger.Warn("backup failed", zap.String("path", s.BackupPath()), zap.Error(err))
	}
}

func decode(data []byte, today string) (*model.Store, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", ErrStoreCorrupt)
	}

	migrated, err := migrateStore(raw, today)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	}

	normalized, err := json.Marshal(migrated)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	}
	var store model.Store
	if err := json.Unmarshal(normalized, &store); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	}
	sanitize(&store)
	return &store, nil
}

// sanitize clamps counters a hand-edited file may carry out of range.
func sanitize(store *model.Store) {
	store.Level = min(max(store.Level, 1), model.MaxLevel)
	store.XP = max(store.XP, 0)
	for i := range store.Quests {
		store.Quests[i].CurrentValue = max(store.Quests[i].CurrentValue, 0)
	}
	for i := range store.CompletedQuests {
		store.CompletedQuests[i].CurrentValue = max(store.CompletedQuests[i].CurrentValue, 0)
	}
}

func encode(store *model.Store) ([]byte, error) {
	out := store.Clone()
	out.SchemaVersion = model.SchemaVersion

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
