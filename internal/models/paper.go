package models

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Paper represents one research publication fetched from arXiv.
//
// ArxivID is the stable external identifier and never changes once the
// paper has been seen. Re-fetching the same identifier may update mutable
// fields (score, categories) but not identity or publication date.
type Paper struct {
	ArxivID     string    `json:"arxiv_id"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	Abstract    string    `json:"abstract"`
	Categories  []string  `json:"categories"`
	PublishedAt time.Time `json:"published_at"`

	// Score is the relevance/quality score, recomputed on each
	// filtering pass.
	Score float64 `json:"score"`

	// Topic is the configured topic label the quality filter assigned
	// based on keyword similarity (e.g. "Agentic AI").
	Topic string `json:"topic,omitempty"`

	// Cluster is an optional label assigned by downstream analytics.
	// The pipeline carries it but never writes it.
	Cluster string `json:"cluster,omitempty"`

	Source    string    `json:"source,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ContentHash returns the SHA-256 hex digest of the paper's title and
// abstract. Summaries are cached against this hash so an unchanged paper
// is never re-summarized.
func (p *Paper) ContentHash() string {
	h := sha256.Sum256([]byte(p.Title + "\n" + p.Abstract))
	return fmt.Sprintf("%x", h)
}

// Day returns the paper's publication day truncated to UTC midnight.
// The distributor partitions candidates by this key.
func (p *Paper) Day() time.Time {
	return p.PublishedAt.UTC().Truncate(24 * time.Hour)
}
