// Package fetch supplies the raw bytes of source exports, either over HTTP or
// from the local filesystem.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"energyboard/internal/config"
)

// ErrNotFound is returned when a location does not exist
var ErrNotFound = errors.New("source not found")

const userAgent = "energyboard/1.0"

// Fetcher returns the bytes stored at a location
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Client fetches http(s) locations over the network and everything else
// from disk. Cancellation and timeouts come from ctx.
type Client struct {
	config config.FetchConfig
	http   *http.Client
}

func NewClient(cfg config.FetchConfig) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{},
	}
}

func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (c *Client) Fetch(ctx context.Context, location string) ([]byte, error) {
	if IsRemote(location) {
		return c.fetchHTTP(ctx, location)
	}
	return readFile(strings.TrimPrefix(location, "file://"))
}

func (c *Client) createRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if c.config.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.config.Username + ":" + c.config.Password))
		req.Header.Add("Authorization", "Basic "+auth)
	}
	req.Header.Add("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")
	req.Header.Add("User-Agent", userAgent)

	return req, nil
}

func (c *Client) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := c.createRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, snippet(body))
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
