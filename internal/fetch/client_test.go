package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energyboard/internal/config"
)

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "plant" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, userAgent, r.UserAgent())
		switch r.URL.Path {
		case "/solar.csv":
			_, _ = w.Write([]byte("last_changed,state,entity_id\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(config.FetchConfig{Username: "plant", Password: "secret"})

	data, err := c.Fetch(context.Background(), srv.URL+"/solar.csv")
	require.NoError(t, err)
	assert.Equal(t, "last_changed,state,entity_id\n", string(data))

	_, err = c.Fetch(context.Background(), srv.URL+"/missing.csv")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = NewClient(config.FetchConfig{}).Fetch(context.Background(), srv.URL+"/solar.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFetchHTTPHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(config.FetchConfig{}).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather.csv")
	require.NoError(t, os.WriteFile(path, []byte("period_end,gti\n"), 0o644))

	c := NewClient(config.FetchConfig{})
	data, err := c.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "period_end,gti\n", string(data))

	data, err = c.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = c.Fetch(context.Background(), filepath.Join(dir, "nope.csv"))
	assert.True(t, errors.Is(err, ErrNotFound))
}
