// Package arxiv fetches and normalizes paper metadata from the arXiv API.
//
// The arXiv query API speaks Atom 1.0, so responses are parsed with gofeed.
// The fetcher performs network I/O only; persisting papers is the storage
// layer's job.
package arxiv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ptdat/paperblog/internal/models"
)

const (
	defaultBaseURL = "http://export.arxiv.org/api/query"
	httpTimeout    = 30 * time.Second
	pageSize       = 100

	// arXiv asks clients to wait between successive API requests.
	pageDelay = 3 * time.Second
)

// ErrSourceUnavailable indicates the arXiv API could not be reached or
// returned a transport-level failure. The whole window is safe to retry
// later; no partial state has been written.
var ErrSourceUnavailable = errors.New("paper source unavailable")

// Fetcher retrieves candidate papers from the arXiv query API.
type Fetcher struct {
	baseURL string
	client  *http.Client

	// sleep is swapped out in tests to avoid real inter-page delays.
	sleep func(context.Context, time.Duration) error
}

// NewFetcher creates a Fetcher with a 30-second timeout HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
		sleep:   sleepCtx,
	}
}

// NewFetcherWithBaseURL creates a Fetcher pointed at an alternate endpoint.
// Used by tests to target an httptest server.
func NewFetcherWithBaseURL(baseURL string) *Fetcher {
	f := NewFetcher()
	f.baseURL = baseURL
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

// Fetch retrieves papers submitted within [start, end] in any of the given
// categories and returns them normalized. The range must be non-empty and
// must not extend past today. An empty result set is not an error; a slow
// publication day is valid.
func (f *Fetcher) Fetch(ctx context.Context, start, end time.Time, categories []string) ([]models.Paper, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("invalid date range: start %s is not before end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if end.After(time.Now().Add(24 * time.Hour)) {
		return nil, fmt.Errorf("invalid date range: end %s is in the future", end.Format(time.DateOnly))
	}
	if len(categories) == 0 {
		return nil, errors.New("no categories provided")
	}

	var papers []models.Paper
	seen := make(map[string]bool)

	for offset := 0; ; offset += pageSize {
		feed, err := f.fetchPage(ctx, start, end, categories, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range feed.Items {
			paper, ok := paperFromItem(item)
			if !ok {
				continue
			}
			// The API window is submission-based; enforce the
			// requested publication range exactly.
			if paper.PublishedAt.Before(start) || paper.PublishedAt.After(end) {
				continue
			}
			if seen[paper.ArxivID] {
				continue
			}
			seen[paper.ArxivID] = true
			papers = append(papers, paper)
		}

		if len(feed.Items) < pageSize {
			break
		}
		if err := f.sleep(ctx, pageDelay); err != nil {
			return nil, err
		}
	}

	slog.Info("fetched papers from arxiv",
		"count", len(papers),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
	)
	return papers, nil
}

// fetchPage requests a single result page from the query API.
func (f *Fetcher) fetchPage(ctx context.Context, start, end time.Time, categories []string, offset int) (*gofeed.Feed, error) {
	q := url.Values{}
	q.Set("search_query", buildQuery(start, end, categories))
	q.Set("start", fmt.Sprint(offset))
	q.Set("max_results", fmt.Sprint(pageSize))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")

	reqURL := f.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "paperblog/1.0 (+https://github.com/ptdat/paperblog)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: arxiv returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing atom response: %v", ErrSourceUnavailable, err)
	}
	return feed, nil
}

// buildQuery composes the arXiv search expression: a category disjunction
// constrained to the submitted-date range.
func buildQuery(start, end time.Time, categories []string) string {
	cats := make([]string, len(categories))
	for i, c := range categories {
		cats[i] = "cat:" + c
	}
	const layout = "200601021504"
	return fmt.Sprintf("(%s) AND submittedDate:[%s TO %s]",
		strings.Join(cats, " OR "),
		start.UTC().Format(layout),
		end.UTC().Format(layout),
	)
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
