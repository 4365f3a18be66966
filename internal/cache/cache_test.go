package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energyboard/internal/config"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  error
}

func (f *countingFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[location]++
	if f.fail != nil {
		return nil, f.fail
	}
	return []byte("payload:" + location), nil
}

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.data-cache")
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	c := NewCache()
	c.Put("https://example.com/solar.csv", []byte("abc"), now)
	require.NoError(t, c.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	data, ok := loaded.Get("https://example.com/solar.csv", time.Hour, now.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), data)

	_, ok = loaded.Get("https://example.com/solar.csv", time.Hour, now.Add(2*time.Hour))
	assert.False(t, ok, "stale entry")
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestClearAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c")
	c := NewCache()
	c.Put("a", []byte("1"), time.Now())
	c.Clear()
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Save(path))
	require.NoError(t, Delete(path))
	require.NoError(t, Delete(path), "deleting twice is fine")
}

func TestDump(t *testing.T) {
	c := NewCache()
	c.Put("https://b", []byte("12345"), time.Now())
	c.Put("https://a", []byte("1"), time.Now())

	var buf bytes.Buffer
	c.Dump(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total: 2 sources, 6 bytes")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("https://a")), bytes.Index(buf.Bytes(), []byte("https://b")))
}

func TestCachedFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.data-cache")
	inner := &countingFetcher{}
	cfg := config.CacheConfig{Enabled: true, Path: path, TTLMinutes: 60}

	cf, err := NewCachedFetcher(inner, cfg, quietLog())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		data, err := cf.Fetch(ctx, "https://exports/solar.csv")
		require.NoError(t, err)
		assert.Equal(t, "payload:https://exports/solar.csv", string(data))
	}
	assert.Equal(t, 1, inner.calls["https://exports/solar.csv"])

	// local files bypass the cache
	_, _ = cf.Fetch(ctx, "data/weather.csv")
	_, _ = cf.Fetch(ctx, "data/weather.csv")
	assert.Equal(t, 2, inner.calls["data/weather.csv"])

	require.NoError(t, cf.Flush())

	// a new process reuses the saved payload
	again, err := NewCachedFetcher(inner, cfg, quietLog())
	require.NoError(t, err)
	_, err = again.Fetch(ctx, "https://exports/solar.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls["https://exports/solar.csv"])

	// expired entries are fetched again
	again.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = again.Fetch(ctx, "https://exports/solar.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["https://exports/solar.csv"])
}

func TestCachedFetcherDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingFetcher{fail: boom}
	cf, err := NewCachedFetcher(inner, config.CacheConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "c"), TTLMinutes: 60}, quietLog())
	require.NoError(t, err)

	_, err = cf.Fetch(context.Background(), "https://x")
	assert.ErrorIs(t, err, boom)
	_, err = cf.Fetch(context.Background(), "https://x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, inner.calls["https://x"])
	assert.NoError(t, cf.Flush(), "nothing to save")
}

func TestCachedFetcherDisabled(t *testing.T) {
	inner := &countingFetcher{}
	cf, err := NewCachedFetcher(inner, config.CacheConfig{}, quietLog())
	require.NoError(t, err)

	_, _ = cf.Fetch(context.Background(), "https://x")
	_, _ = cf.Fetch(context.Background(), "https://x")
	assert.Equal(t, 2, inner.calls["https://x"])
	assert.NoError(t, cf.Flush())
}
