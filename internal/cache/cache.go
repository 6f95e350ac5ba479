// Package cache keeps parsed page results on disk so repeated index runs
// only reparse files whose content changed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const indexVersion = "1"

// Cache is a content-addressed store of page parse results. Keys come from
// Key, so an edited file naturally misses.
type Cache struct {
	mu         sync.RWMutex
	dir        string
	maxEntries int
	index      *index
	dirty      bool
	stats      Stats
}

type index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry describes one cached page.
type Entry struct {
	Key        string    `json:"key"`
	Source     string    `json:"source"`
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"lastAccess"`
}

// Stats counts cache lookups.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// Config holds cache configuration.
type Config struct {
	Dir        string // cache directory (default: $HOME/.cache/linkgraph)
	MaxEntries int    // entries kept before least recently used ones are evicted (default: 10000)
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Dir:        filepath.Join(home, ".cache", "linkgraph"),
		MaxEntries: 10000,
	}
}

// New opens or creates a cache in cfg.Dir. A missing or unreadable index
// starts the cache empty.
func New(cfg Config) (*Cache, error) {
	def := DefaultConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "pages"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{dir: cfg.Dir, maxEntries: cfg.MaxEntries}
	if err := c.loadIndex(); err != nil {
		c.index = newIndex()
	}
	return c, nil
}

func newIndex() *index {
	return &index{Version: indexVersion, Entries: make(map[string]*Entry), Updated: time.Now()}
}

// Key derives the cache key for a source path and its content.
func Key(source string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the raw bytes stored under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.index.Entries[key]
	c.mu.RUnlock()
	if !ok {
		c.recordMiss()
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		_ = c.Delete(key)
		c.recordMiss()
		return nil, false
	}

	c.mu.Lock()
	entry.LastAccess = time.Now()
	c.dirty = true
	c.stats.Hits++
	c.mu.Unlock()
	return data, true
}

// GetJSON decodes the entry under key into v. A corrupt entry is dropped
// and reported as a miss.
func (c *Cache) GetJSON(key string, v interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(key)
		c.mu.Lock()
		c.stats.Hits--
		c.stats.Misses++
		c.mu.Unlock()
		return false
	}
	return true
}

// Put stores data under key, recording source for diagnostics.
func (c *Cache) Put(key, source string, data []byte) error {
	if err := os.WriteFile(c.path(key), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Source:     source,
		Size:       int64(len(data)),
		Created:    now,
		LastAccess: now,
	}
	c.dirty = true
	c.evictLocked()
	return nil
}

// PutJSON encodes v and stores it under key.
func (c *Cache) PutJSON(key, source string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.Put(key, source, data)
}

// Delete removes one entry.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index.Entries[key]; !ok {
		return nil
	}
	delete(c.index.Entries, key)
	c.dirty = true
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and resets the statistics.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, "pages")); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(c.dir, "pages"), 0755); err != nil {
		return fmt.Errorf("failed to recreate cache directory: %w", err)
	}
	c.index = newIndex()
	c.stats = Stats{}
	c.dirty = true
	return c.saveIndexLocked()
}

// Stats returns a snapshot of the lookup counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.index.Entries)
	return s
}

// Flush writes the index to disk if it changed.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.saveIndexLocked()
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, "pages", key+".json")
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		return err
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx.Version != indexVersion || idx.Entries == nil {
		return fmt.Errorf("unsupported cache index version %q", idx.Version)
	}
	c.index = &idx
	return nil
}

func (c *Cache) saveIndexLocked() error {
	c.index.Updated = time.Now()
	data, err := json.Marshal(c.index)
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	if err := os.WriteFile(c.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	c.dirty = false
	return nil
}

// evictLocked drops least recently used entries above maxEntries.
func (c *Cache) evictLocked() {
	over := len(c.index.Entries) - c.maxEntries
	if over <= 0 {
		return
	}
	entries := make([]*Entry, 0, len(c.index.Entries))
	for _, e := range c.index.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})
	for _, e := range entries[:over] {
		delete(c.index.Entries, e.Key)
		os.Remove(c.path(e.Key))
		c.stats.Evictions++
	}
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}
