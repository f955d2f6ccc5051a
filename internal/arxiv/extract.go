package arxiv

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	extractTimeout = 30 * time.Second
	maxWords       = 2000
)

// Extractor pulls readable text from a paper's arXiv abstract page. The
// extra context (beyond the Atom abstract) is fed into summarization
// prompts when enrichment is enabled. Extraction is best-effort; callers
// fall back to the abstract alone on failure.
type Extractor struct {
	baseURL string
}

// NewExtractor creates an Extractor against arxiv.org.
func NewExtractor() *Extractor {
	return &Extractor{baseURL: "https://arxiv.org/abs/"}
}

// NewExtractorWithBaseURL creates an Extractor against an alternate host,
// for tests.
func NewExtractorWithBaseURL(baseURL string) *Extractor {
	return &Extractor{baseURL: baseURL}
}

// browserHeaders sets browser-like request headers so hosts that check
// Accept or User-Agent don't reject the request.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; paperblog/1.0; +https://github.com/ptdat/paperblog)")
}

// PageText fetches the abstract page for the given arXiv identifier and
// returns its main readable text, truncated to 2000 words.
func (e *Extractor) PageText(arxivID string) (string, error) {
	article, err := readability.FromURL(e.baseURL+arxivID, extractTimeout, browserHeaders)
	if err != nil {
		return "", fmt.Errorf("extracting page for %s: %w", arxivID, err)
	}
	return truncateWords(article.TextContent, maxWords), nil
}

// truncateWords returns the first maxWords whitespace-delimited words from
// s. If s contains fewer words, it is returned unchanged.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ")
}
