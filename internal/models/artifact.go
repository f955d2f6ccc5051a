package models

import (
	"sort"
	"time"
)

// ArtifactStatus describes how a blog artifact was produced.
type ArtifactStatus string

const (
	// ArtifactComplete means every entry has a succeeded summary.
	ArtifactComplete ArtifactStatus = "complete"

	// ArtifactPartial means at least one entry carries a degraded
	// fallback summary. The artifact is still fully produced.
	ArtifactPartial ArtifactStatus = "partial"
)

// ArtifactEntry pairs a selected paper with its terminal summary.
type ArtifactEntry struct {
	Paper   Paper         `json:"paper"`
	Summary SummaryResult `json:"summary"`
}

// BlogArtifact is one generated digest for a window. It is immutable once
// persisted; regenerating a window produces a new artifact version with a
// fresh ID.
type BlogArtifact struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	Entries     []ArtifactEntry `json:"entries"`
	PaperCount  int             `json:"paper_count"`
	Content     string          `json:"content"`
	Status      ArtifactStatus  `json:"status"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// SortEntries orders the entries by the artifact's deterministic key:
// topic ascending, then score descending, then identifier ascending.
// Re-rendering an artifact is therefore stable regardless of the order in
// which summaries completed.
func (a *BlogArtifact) SortEntries() {
	sort.Slice(a.Entries, func(i, j int) bool {
		pi, pj := a.Entries[i].Paper, a.Entries[j].Paper
		if pi.Topic != pj.Topic {
			return pi.Topic < pj.Topic
		}
		if pi.Score != pj.Score {
			return pi.Score > pj.Score
		}
		return pi.ArxivID < pj.ArxivID
	})
}
