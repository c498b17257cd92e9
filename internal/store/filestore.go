// Package store persists whole-object JSON records, one file per id,
// under a subdirectory of the application data directory.
//
// Records carry no schema version tag: unknown fields are ignored on
// decode and missing fields default to their zero values. A file that
// cannot be read or parsed is skipped at load time, never fatal; the
// store behaves as if that record never existed.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore reads and writes records of type T in a single directory.
// Every save is a whole-file rewrite issued synchronously; there is no
// write-ahead log and no flush-to-disk guarantee.
type FileStore[T any] struct {
	dir string

	// Warn is called when a record file is skipped at load time.
	// Defaults to a no-op.
	Warn func(format string, a ...any)
}

// New creates (if needed) the record directory and returns a store over it.
func New[T any](dir string) (*FileStore[T], error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create record directory: %w", err)
	}
	return &FileStore[T]{
		dir:  dir,
		Warn: func(string, ...any) {},
	}, nil
}

// Dir returns the directory backing this store.
func (s *FileStore[T]) Dir() string { return s.dir }

func (s *FileStore[T]) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Write serializes the record and rewrites its file in place.
func (s *FileStore[T]) Write(id string, record *T) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", id, err)
	}
	if err := os.WriteFile(s.path(id), data, 0644); err != nil {
		return fmt.Errorf("write record %s: %w", id, err)
	}
	return nil
}

// Read loads a single record by id. Returns (nil, nil) if absent.
func (s *FileStore[T]) Read(id string) (*T, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", id, err)
	}
	return &record, nil
}

// Delete removes a record's file. Reports whether a file was removed;
// a missing file is not an error.
func (s *FileStore[T]) Delete(id string) (bool, error) {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete record %s: %w", id, err)
	}
	return true, nil
}

// LoadAll decodes every record file in the directory, keyed by filename id.
// Unreadable or corrupt files are reported through Warn and skipped.
func (s *FileStore[T]) LoadAll() (map[string]*T, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read record directory: %w", err)
	}

	records := make(map[string]*T)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.Warn("skipping unreadable record %s: %v", name, err)
			continue
		}
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			s.Warn("skipping corrupt record %s: %v", name, err)
			continue
		}
		records[id] = &record
	}
	return records, nil
}
