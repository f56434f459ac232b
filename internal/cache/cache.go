package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the cache document stored at the root of a game directory.
const FileName = "anticheat_cache.json"

// PathFor returns the cache document location for a game directory.
func PathFor(gameDir string) string {
	return filepath.Join(gameDir, FileName)
}

// Load reads the cache document at path. A missing, empty or corrupt document
// yields an empty map; Load never fails the caller.
func Load(path string) map[string]Fingerprint {
	b, err := os.ReadFile(path)
	if err != nil || len(b) == 0 {
		return map[string]Fingerprint{}
	}
	var entries map[string]Fingerprint
	if err := json.Unmarshal(b, &entries); err != nil || entries == nil {
		return map[string]Fingerprint{}
	}
	return entries
}

// Save replaces the cache document at path. The document is written to a
// temporary file in the same directory and renamed into place, so a crash
// leaves either the old or the new document. Persistence is best effort:
// callers are expected to ignore the error.
func Save(path string, entries map[string]Fingerprint) error {
	if entries == nil {
		return errors.New("nil cache")
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// IsUnchanged reports whether path is present in entries with a fingerprint
// equal to its current one. It fails closed: a file that cannot be stat'd is
// treated as changed.
func IsUnchanged(path string, entries map[string]Fingerprint) bool {
	cur, ok := Stat(path)
	if !ok {
		return false
	}
	prev, found := entries[path]
	return found && prev == cur
}

// Store owns one cache document. Mutations are serialized and written through
// to disk, so at most one writer touches the file per Store.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]Fingerprint
	// OnSaveError, when set, observes failed writes. Failures never reach the
	// scanner.
	OnSaveError func(error)
}

// Open loads the document at path into a new Store.
func Open(path string) *Store {
	return &Store{path: path, entries: Load(path)}
}

// Memory returns a Store that never touches disk.
func Memory() *Store {
	return &Store{entries: map[string]Fingerprint{}}
}

// Path returns the backing document path, empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// Unchanged is IsUnchanged against the store's current contents.
func (s *Store) Unchanged(path string, cur Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.entries[path]
	return ok && prev == cur
}

// Record stores fp for path and persists the whole document.
func (s *Store) Record(path string, fp Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[path]; ok && prev == fp {
		return
	}
	s.entries[path] = fp
	s.persistLocked()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of the cached entries.
func (s *Store) Snapshot() map[string]Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Fingerprint, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Clear drops every entry and removes the document from disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]Fingerprint{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	if err := Save(s.path, s.entries); err != nil && s.OnSaveError != nil {
		s.OnSaveError(err)
	}
}
