// Package store implements one shard's filesystem-backed file store. The
// directory tree under the root is the entire durable state: no indexes,
// no metadata files, no caches. Entries are discovered at request time.
//
// Concurrent requests touching the same path are not serialized here; a
// simultaneous read and delete of one file is a race with undefined
// outcome, matching the protocol contract.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotExist indicates the requested file or directory is absent.
var ErrNotExist = errors.New("no such file or directory")

// Store owns one shard's storage root and recognized extension.
type Store struct {
	root string
	ext  string
}

// New creates the storage root if needed and returns the store.
func New(root, ext string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Store{root: filepath.Clean(root), ext: ext}, nil
}

// Root returns the storage root.
func (s *Store) Root() string {
	return s.root
}

// Ext returns the one extension this shard owns.
func (s *Store) Ext() string {
	return s.ext
}

// Save streams body into the file at path, creating parent directories
// as needed. body must deliver exactly size bytes; a short or failed
// transfer removes the partial file so nothing half-written survives.
func (s *Store) Save(path string, body io.Reader, size int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directories for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr == nil && closeErr == nil && written == size {
		return nil
	}

	os.Remove(path)
	if copyErr != nil {
		return fmt.Errorf("write %s after %d of %d bytes: %w", path, written, size, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}
	return fmt.Errorf("write %s: wrote %d of %d bytes", path, written, size)
}

// Open opens a file for streaming and returns its size. A missing file
// is ErrNotExist, never a hard failure.
func (s *Store) Open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%s is a directory: %w", path, ErrNotExist)
	}
	return f, info.Size(), nil
}

// Remove unlinks a file. A missing file is ErrNotExist.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// DirExists reports whether dir exists and is a directory.
func (s *Store) DirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// List returns the names of regular files directly under dir that carry
// the shard's extension, sorted lexicographically. A missing directory
// is ErrNotExist.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotExist)
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(e.Name(), s.ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
