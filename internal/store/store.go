// Package store reads and writes the catalog data file.
//
// The file is a JSON object {"books": [...], "ratings": {...}} indented with
// four spaces. A missing file is an empty catalog, not an error.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bookshelf/internal/models"

	"github.com/goccy/go-json"
)

// ErrorType represents the type of store error.
type ErrorType string

const (
	ReadFailed  ErrorType = "READ_FAILED"
	InvalidJSON ErrorType = "INVALID_JSON"
	WriteFailed ErrorType = "WRITE_FAILED"
)

// Error represents a failure reading or writing the data file.
type Error struct {
	Type ErrorType
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Type {
	case ReadFailed:
		return fmt.Sprintf("failed to read data file %s: %v", e.Path, e.Err)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in data file %s: %v", e.Path, e.Err)
	case WriteFailed:
		return fmt.Sprintf("failed to write data file %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("data file error %s: %v", e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FileState identifies a version of the data file on disk.
type FileState struct {
	ModTime time.Time
	Size    int64
}

// Store persists a Library to a single JSON file.
type Store struct {
	path string
}

// New creates a Store for the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the data file. A missing file yields an empty Library.
func (s *Store) Load() (*models.Library, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewLibrary(), nil
		}
		return nil, &Error{Type: ReadFailed, Path: s.path, Err: err}
	}

	lib := models.NewLibrary()
	if err := json.Unmarshal(data, lib); err != nil {
		return nil, &Error{Type: InvalidJSON, Path: s.path, Err: err}
	}
	lib.Normalize()

	return lib, nil
}

// Save writes the library, replacing the data file atomically.
func (s *Store) Save(lib *models.Library) (FileState, error) {
	data, err := json.MarshalIndent(lib, "", "    ")
	if err != nil {
		return FileState{}, &Error{Type: WriteFailed, Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return FileState{}, &Error{Type: WriteFailed, Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return FileState{}, &Error{Type: WriteFailed, Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return FileState{}, &Error{Type: WriteFailed, Path: s.path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return FileState{}, &Error{Type: WriteFailed, Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return FileState{}, &Error{Type: WriteFailed, Path: s.path, Err: err}
	}

	return s.Stat()
}

// Stat returns the current FileState of the data file. A missing file
// yields the zero FileState.
func (s *Store) Stat() (FileState, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileState{}, nil
		}
		return FileState{}, &Error{Type: ReadFailed, Path: s.path, Err: err}
	}
	return FileState{ModTime: info.ModTime(), Size: info.Size()}, nil
}
