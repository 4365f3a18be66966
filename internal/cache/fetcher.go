package cache

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"energyboard/internal/config"
	"energyboard/internal/fetch"
)

// CachedFetcher wraps a fetch.Fetcher with caching of remote payloads.
// Local files are always read directly.
type CachedFetcher struct {
	fetcher   fetch.Fetcher
	cache     *Cache
	cachePath string
	enabled   bool
	ttl       time.Duration
	modified  atomic.Bool
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewCachedFetcher creates a caching wrapper around the fetcher
func NewCachedFetcher(f fetch.Fetcher, cfg config.CacheConfig, log logrus.FieldLogger) (*CachedFetcher, error) {
	c := NewCache()
	if cfg.Enabled {
		var err error
		c, err = Load(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("loading cache: %w", err)
		}
	}

	return &CachedFetcher{
		fetcher:   f,
		cache:     c,
		cachePath: cfg.Path,
		enabled:   cfg.Enabled,
		ttl:       cfg.TTL(),
		now:       time.Now,
		log:       log.WithField("component", "cache"),
	}, nil
}

// Fetch returns a fresh cached payload or fetches and stores it
func (cf *CachedFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !cf.enabled || !fetch.IsRemote(location) {
		return cf.fetcher.Fetch(ctx, location)
	}

	if data, ok := cf.cache.Get(location, cf.ttl, cf.now()); ok {
		cf.log.WithField("location", location).Debug("cache hit")
		return data, nil
	}

	data, err := cf.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	cf.cache.Put(location, data, cf.now())
	cf.modified.Store(true)
	cf.log.WithFields(logrus.Fields{"location": location, "bytes": len(data)}).Debug("cached payload")
	return data, nil
}

// Flush saves the cache if anything was fetched since the last save
func (cf *CachedFetcher) Flush() error {
	if !cf.enabled || !cf.modified.Swap(false) {
		return nil
	}
	if err := cf.cache.Save(cf.cachePath); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	return nil
}

// ClearCache removes all cached data
func (cf *CachedFetcher) ClearCache() error {
	cf.cache.Clear()
	return cf.cache.Save(cf.cachePath)
}

// DeleteCache removes the cache file from disk
func (cf *CachedFetcher) DeleteCache() error {
	return Delete(cf.cachePath)
}

// DumpCache writes cache contents to the given writer
func (cf *CachedFetcher) DumpCache(w io.Writer) {
	cf.cache.Dump(w)
}
