package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// Storage persists the single session record.
type Storage interface {
	// Load returns errs.ErrNoSession when nothing is stored.
	Load() (model.Session, error)
	Save(model.Session) error
	Clear() error
}

// FileName is the session record inside the config directory.
const FileName = "session.json"

// FileStorage keeps the record as JSON in dir. The directory is created with
// 0700 and the file with 0600.
type FileStorage struct {
	dir string
}

// NewFileStorage returns a storage rooted at dir.
func NewFileStorage(dir string) *FileStorage { return &FileStorage{dir: dir} }

// Path of the session record.
func (f *FileStorage) Path() string { return filepath.Join(f.dir, FileName) }

func (f *FileStorage) Load() (model.Session, error) {
	b, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return model.Session{}, errs.ErrNoSession
	}
	if err != nil {
		return model.Session{}, err
	}
	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return model.Session{}, fmt.Errorf("decode %s: %w", f.Path(), err)
	}
	if !s.Valid() {
		return model.Session{}, errs.ErrNoSession
	}
	return s, nil
}

func (f *FileStorage) Save(s model.Session) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path(), append(b, '\n'), 0o600)
}

// Clear removes the record. A missing record is not an error.
func (f *FileStorage) Clear() error {
	err := os.Remove(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemStorage keeps the record in memory. Useful for tests and one-shot tools.
type MemStorage struct {
	mu  sync.Mutex
	s   model.Session
	set bool
}

func (m *MemStorage) Load() (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return model.Session{}, errs.ErrNoSession
	}
	return m.s, nil
}

func (m *MemStorage) Save(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.set = s, true
	return nil
}

func (m *MemStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s, m.set = model.Session{}, false
	return nil
}
