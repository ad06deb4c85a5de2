// Package filesystem maps opaque identifiers to database files in a single flat
// upload directory. Presence of the file is the only record of existence.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Extension is the suffix of every backing database file.
const Extension = ".sqlite"

const stagePrefix = ".stage-"

var (
	// ErrNotFound indicates an identifier has no backing file.
	ErrNotFound = errors.New("filesystem: identifier not found")
	// ErrInvalidID indicates an identifier cannot name a file in the upload directory.
	ErrInvalidID = errors.New("filesystem: invalid identifier")
	// ErrExists indicates a backing file is already present for the identifier.
	ErrExists = errors.New("filesystem: identifier already exists")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID reports whether id can be used as a file name inside the upload directory.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Store owns the upload directory.
type Store struct {
	dir string

	ensureOnce sync.Once
	ensureErr  error
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the absolute upload directory.
func (s *Store) Dir() string {
	if abs, err := filepath.Abs(s.dir); err == nil {
		return abs
	}
	return s.dir
}

func (s *Store) ensureDir() error {
	s.ensureOnce.Do(func() {
		s.ensureErr = os.MkdirAll(s.dir, 0o750)
	})
	return s.ensureErr
}

// Path returns the deterministic backing path for id without touching the disk.
func (s *Store) Path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+Extension), nil
}

// Resolve returns the backing path of an existing identifier. It never creates
// anything; identifiers that cannot name a file are reported as not found.
func (s *Store) Resolve(id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return path, nil
}

// Exists reports whether id currently has a backing file.
func (s *Store) Exists(id string) bool {
	_, err := s.Resolve(id)
	return err == nil
}

// Create reserves an empty backing file for id and returns its path. An
// existing file is never overwritten.
func (s *Store) Create(id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	//nolint:gosec // G304: path is built from a validated identifier
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrExists, id)
		}
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Stage creates a scratch file inside the upload directory. Staged files can
// never be resolved as identifiers; callers publish or remove them.
func (s *Store) Stage(suffix string) (*os.File, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return os.CreateTemp(s.dir, stagePrefix+"*"+suffix)
}

// Publish moves a staged file to id's backing path. It fails with ErrExists
// instead of replacing a file that is already there.
func (s *Store) Publish(stagedPath, id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if err := os.Link(stagedPath, path); err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrExists, id)
		}
		return "", err
	}
	if err := os.Remove(stagedPath); err != nil {
		return "", err
	}
	return path, nil
}

// Replace moves a staged file onto id's backing path, replacing whatever is there.
func (s *Store) Replace(stagedPath, id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if err := os.Rename(stagedPath, path); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes id's backing file. A missing file is not an error.
func (s *Store) Remove(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	return DeleteFile(path)
}

// List returns every identifier with a backing file, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, Extension) {
			continue
		}
		id := strings.TrimSuffix(name, Extension)
		if ValidateID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteFile removes a file if it exists.
func DeleteFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(path)
}

// FileSize returns the size of the file at path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
