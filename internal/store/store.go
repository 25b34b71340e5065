package store

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Entry is one image known to the store.
type Entry struct {
	// Path is the absolute file path, unique within the store.
	Path string `json:"path"`
	// Name is the display name (base name of Path).
	Name string `json:"name"`
}

// ChangeKind distinguishes a full reset from a single removal so observers
// can refresh incrementally.
type ChangeKind int

const (
	// ChangeReset means the whole entry list was replaced.
	ChangeReset ChangeKind = iota
	// ChangeRemove means exactly one entry was removed.
	ChangeRemove
)

// Change describes a store mutation delivered to observers.
type Change struct {
	Kind ChangeKind
	// Path is set for ChangeRemove, empty for ChangeReset.
	Path string
	// Total is the entry count after the mutation.
	Total int
}

// ChangeCallback is invoked after every store mutation. Callbacks run on the
// mutating goroutine, after the mutation is visible.
type ChangeCallback func(Change)

// Store holds the ordered scan results. All methods are safe for concurrent
// use; mutations are serialized and observers see them in order.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int

	cache *metaCache

	cbMu      sync.RWMutex
	callbacks []ChangeCallback
}

// New creates an empty store backed by the OS filesystem for metadata lookups.
func New() *Store {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates an empty store that stats entries through fs.
func NewWithFs(fs afero.Fs) *Store {
	return &Store{
		index: make(map[string]int),
		cache: newMetaCache(fs),
	}
}

// RegisterChangeCallback adds a callback invoked after every mutation.
func (s *Store) RegisterChangeCallback(cb ChangeCallback) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Replace swaps the full entry list for the given paths, preserving their
// order and dropping duplicates. Cached metadata for paths no longer present
// is discarded. Observers receive a single reset change.
func (s *Store) Replace(paths []string) {
	entries := make([]Entry, 0, len(paths))
	index := make(map[string]int, len(paths))
	for _, p := range paths {
		if _, dup := index[p]; dup {
			continue
		}
		index[p] = len(entries)
		entries = append(entries, Entry{Path: p, Name: filepath.Base(p)})
	}

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.cache.retainOnly(index)
	total := len(entries)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset, Total: total})
}

// Remove deletes the entry for path if present. Removing an unknown path is a
// no-op and produces no notification.
func (s *Store) Remove(path string) bool {
	s.mu.Lock()
	i, ok := s.index[path]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, path)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].Path] = j
	}
	s.cache.remove(path)
	total := len(s.entries)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRemove, Path: path, Total: total})
	return true
}

// Entries returns a copy of the full entry list in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Paths returns the entry paths in order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Path
	}
	return out
}

// Filtered returns the entries whose display name contains filter,
// case-insensitively, preserving store order. An empty filter returns
// everything.
func (s *Store) Filtered(filter string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == "" {
		out := make([]Entry, len(s.entries))
		copy(out, s.entries)
		return out
	}

	needle := strings.ToLower(filter)
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether path is currently in the store.
func (s *Store) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[path]
	return ok
}

// Len returns the entry count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Meta returns cached file metadata for a stored path, statting it on first
// access. Paths not in the store are not served.
func (s *Store) Meta(path string) (Meta, bool) {
	if !s.Contains(path) {
		return Meta{}, false
	}
	return s.cache.get(path)
}

func (s *Store) notify(c Change) {
	s.cbMu.RLock()
	cbs := make([]ChangeCallback, len(s.callbacks))
	copy(cbs, s.callbacks)
	s.cbMu.RUnlock()

	for _, cb := range cbs {
		cb(c)
	}
}
