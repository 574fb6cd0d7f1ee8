package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"climaviz/internal/dataset"
)

// Client fetches weather data and normalizes each response. Responses
// are cached by URL; historical data for a fixed date range does not
// change between runs.
type Client struct {
	http  *http.Client
	cache *lru.Cache[string, dataset.Normalized]
}

// NewClient returns a client with a bounded response cache.
func NewClient() *Client {
	cache, err := lru.New[string, dataset.Normalized](128)
	if err != nil {
		panic(err)
	}
	return &Client{
		http:  &http.Client{Timeout: 30 * time.Second},
		cache: cache,
	}
}

// Fetch issues one GET and normalizes the body. Non-success status and
// empty or malformed bodies are errors; the caller decides whether the
// run survives them.
func (c *Client) Fetch(ctx context.Context, q Query) (dataset.Normalized, error) {
	if cached, ok := c.cache.Get(q.URL); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.URL, nil)
	if err != nil {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: %s: %w", q.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: %s: status %d", q.Endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: read body: %w", err)
	}
	if len(body) == 0 {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: %s: empty body", q.Endpoint)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: decode body: %w", err)
	}
	if len(raw) == 0 {
		return dataset.Normalized{}, fmt.Errorf("openmeteo: %s: null response", q.Endpoint)
	}

	n := dataset.Normalize(raw)
	c.cache.Add(q.URL, n)
	return n, nil
}

// Retrieve fetches every query in order. A failing endpoint is logged
// and skipped; an empty collection is a valid outcome.
func (c *Client) Retrieve(ctx context.Context, qs QuerySet) dataset.Collection {
	out := make(dataset.Collection, 0, len(qs))
	for _, q := range qs {
		n, err := c.Fetch(ctx, q)
		if err != nil {
			log.Printf("openmeteo: skipping endpoint: %v", err)
			continue
		}
		out = append(out, n)
	}
	return out
}
