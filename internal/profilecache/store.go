package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists the whole cache map as one JSON document. A Load from
// an empty backend returns an empty map, not an error.
type Store interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
}

// FileStore keeps the cache in a single JSON file on disk. Writes go
// through a temp file and rename so a crash mid-write cannot leave a
// half-written cache.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the resolved location of the cache file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	return entries, nil
}

func (s *FileStore) Save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}
