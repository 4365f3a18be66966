// Package cache persists fetched source payloads between runs so repeated
// invocations over the same exports do not hit the network again.
package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"
)

// NewCache creates an empty cache
func NewCache() *Cache {
	now := time.Now()
	return &Cache{
		Metadata: Metadata{
			Version:     currentVersion,
			CreatedAt:   now,
			LastUpdated: now,
		},
		Entries: make(map[string]Entry),
	}
}

// Load reads cache from disk, returns empty cache if file doesn't exist.
// A cache written by an older version is discarded.
func Load(path string) (*Cache, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewCache(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer file.Close()

	var c Cache
	if err := gob.NewDecoder(file).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}
	if c.Metadata.Version != currentVersion {
		return NewCache(), nil
	}
	if c.Entries == nil {
		c.Entries = make(map[string]Entry)
	}
	return &c, nil
}

// Save writes cache to disk atomically (write to temp, then rename)
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Metadata.LastUpdated = time.Now()

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(c); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding cache: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Get returns the payload for location if it was fetched within ttl
func (c *Cache) Get(location string, ttl time.Duration, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.Entries[location]
	if !ok || !e.Fresh(now, ttl) {
		return nil, false
	}
	return e.Data, true
}

// Put stores the payload for location
func (c *Cache) Put(location string, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries[location] = Entry{Data: data, FetchedAt: now}
}

// Len returns the number of cached locations
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Entries)
}

// Clear removes all cached data but preserves metadata
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries = make(map[string]Entry)
}

// Delete removes the cache file from disk
func Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil // Already deleted
	}
	return err
}
