package store

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// metaCacheSize bounds the number of cached stat results. Entries beyond it
// are evicted least-recently-used and re-statted on demand.
const metaCacheSize = 4096

// Meta is per-entry derived data, computed lazily and invalidated whenever
// the entry leaves the store.
type Meta struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type metaCache struct {
	fs    afero.Fs
	cache *lru.Cache[string, Meta]
}

func newMetaCache(fs afero.Fs) *metaCache {
	// NewLRU only fails on a non-positive size.
	cache, _ := lru.New[string, Meta](metaCacheSize)
	return &metaCache{fs: fs, cache: cache}
}

func (m *metaCache) get(path string) (Meta, bool) {
	if meta, ok := m.cache.Get(path); ok {
		return meta, true
	}
	info, err := m.fs.Stat(path)
	if err != nil {
		return Meta{}, false
	}
	meta := Meta{Size: info.Size(), ModTime: info.ModTime()}
	m.cache.Add(path, meta)
	return meta, true
}

func (m *metaCache) remove(path string) {
	m.cache.Remove(path)
}

// retainOnly drops every cached entry whose path is not in keep.
func (m *metaCache) retainOnly(keep map[string]int) {
	for _, path := range m.cache.Keys() {
		if _, ok := keep[path]; !ok {
			m.cache.Remove(path)
		}
	}
}
