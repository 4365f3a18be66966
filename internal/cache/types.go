package cache

import (
	"sync"
	"time"
)

const currentVersion = 2

// Metadata stores information about the cache itself
type Metadata struct {
	Version     int
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Entry is the last fetched payload of one source location
type Entry struct {
	Data      []byte
	FetchedAt time.Time
}

// Fresh reports whether the entry is younger than ttl at now
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.FetchedAt) < ttl
}

// Cache is the top-level structure persisted to disk. It maps a source
// location (URL) to its last payload and is safe for concurrent use.
type Cache struct {
	Metadata Metadata
	Entries  map[string]Entry

	mu sync.Mutex
}
