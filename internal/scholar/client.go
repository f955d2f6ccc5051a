// Package scholar resolves an aggregate author-impact metric from the
// Semantic Scholar Graph API. The metric is an optional input to quality
// scoring; callers treat lookup failures as zero contribution.
package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	httpTimeout    = 10 * time.Second

	// maxAuthors bounds per-paper API traffic; impact is dominated by
	// lead authors anyway.
	maxAuthors = 5

	// hIndexScale is the average h-index at which the impact metric
	// saturates at 1.
	hIndexScale = 50.0
)

// Client queries Semantic Scholar for author h-indices and aggregates
// them into an impact score in [0, 1]. Lookups are cached per author name
// for the lifetime of the client, misses included, so repeated names
// across a window cost one request.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	cache map[string]*int // nil entry = author not found
}

// NewClient creates a Client. The API key is optional; without it the
// public rate limits apply.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
		cache:   make(map[string]*int),
	}
}

// NewClientWithBaseURL creates a Client against an alternate endpoint,
// for tests.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// searchResponse is the author-search response body.
type searchResponse struct {
	Data []struct {
		HIndex *int `json:"hIndex"`
	} `json:"data"`
}

// Impact returns the authors' average h-index normalized by hIndexScale
// and capped at 1. Authors beyond the first five are ignored. Authors the
// API cannot resolve contribute nothing; if no author resolves the impact
// is 0. An error is returned only when every lookup failed at the
// transport level.
func (c *Client) Impact(ctx context.Context, authors []string) (float64, error) {
	if len(authors) > maxAuthors {
		authors = authors[:maxAuthors]
	}

	var (
		sum, found int
		lastErr    error
		failures   int
	)
	for _, name := range authors {
		h, err := c.hIndex(ctx, name)
		if err != nil {
			slog.Debug("author lookup failed", "author", name, "error", err)
			lastErr = err
			failures++
			continue
		}
		if h != nil {
			sum += *h
			found++
		}
	}

	if found == 0 {
		if failures > 0 && failures == len(authors) {
			return 0, fmt.Errorf("looking up authors: %w", lastErr)
		}
		return 0, nil
	}

	impact := float64(sum) / float64(found) / hIndexScale
	if impact > 1 {
		impact = 1
	}
	return impact, nil
}

// hIndex resolves one author's h-index, serving repeats from the cache.
func (c *Client) hIndex(ctx context.Context, name string) (*int, error) {
	c.mu.Lock()
	if h, ok := c.cache[name]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	h, err := c.searchAuthor(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[name] = h
	c.mu.Unlock()
	return h, nil
}

// searchAuthor queries the author-search endpoint for the best match.
// A miss (no results) is cached as nil so it is not retried.
func (c *Client) searchAuthor(ctx context.Context, name string) (*int, error) {
	q := url.Values{}
	q.Set("query", name)
	q.Set("limit", "1")
	q.Set("fields", "hIndex")

	reqURL := c.baseURL + "/author/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar returned status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if len(sr.Data) == 0 || sr.Data[0].HIndex == nil {
		return nil, nil
	}
	return sr.Data[0].HIndex, nil
}
