// Package blog assembles selected papers and their terminal summaries
// into an immutable digest artifact and hands it to the store.
package blog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ptdat/paperblog/internal/models"
	"github.com/ptdat/paperblog/internal/summarize"
)

// ArtifactStore persists completed artifacts. Save failures propagate to
// the caller; the assembler does not retry them.
type ArtifactStore interface {
	SaveBlogArtifact(ctx context.Context, artifact *models.BlogArtifact) error
}

// defaultTitle is the digest title prefix when none is configured.
const defaultTitle = "AI Research Roundup"

// Assembler builds one BlogArtifact per window.
type Assembler struct {
	store ArtifactStore
	title string

	// now and newID are injected in tests for stable output.
	now   func() time.Time
	newID func() string
}

// NewAssembler creates an Assembler writing to the given store.
func NewAssembler(store ArtifactStore) *Assembler {
	return &Assembler{
		store: store,
		title: defaultTitle,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetTitle overrides the digest title prefix. Empty input keeps the
// default.
func (a *Assembler) SetTitle(title string) {
	if title != "" {
		a.title = title
	}
}

// Assemble builds the artifact for one window from the selected papers
// and their summarization results and persists it.
//
// Every selected paper appears in the artifact exactly once: duplicates
// are dropped by identifier, and a paper whose summarization never
// reached a terminal state (its deadline expired or its work was
// abandoned) is included with a degraded template summary so assembly
// always completes. Entries are ordered by the artifact's deterministic
// key regardless of summary completion order.
//
// On a persistence failure the assembled artifact is returned alongside
// the error so the caller can retry saving without recomputing summaries.
func (a *Assembler) Assemble(ctx context.Context, windowStart, windowEnd time.Time, papers []models.Paper, results map[string]*models.SummaryResult) (*models.BlogArtifact, error) {
	artifact := &models.BlogArtifact{
		ID:          a.newID(),
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
		Status:      models.ArtifactComplete,
		GeneratedAt: a.now().UTC(),
	}
	artifact.Title = fmt.Sprintf("%s: %s", a.title, windowEnd.UTC().Format("January 2, 2006"))

	seen := make(map[string]bool, len(papers))
	for _, paper := range papers {
		if seen[paper.ArxivID] {
			continue
		}
		seen[paper.ArxivID] = true

		result, ok := results[paper.ArxivID]
		if !ok || result == nil || !result.Status.Terminal() {
			slog.Warn("paper missing terminal summary, degrading", "paper", paper.ArxivID)
			result = &models.SummaryResult{
				PaperID:     paper.ArxivID,
				ContentHash: paper.ContentHash(),
				Sections:    *summarize.FallbackSections(&paper),
				Provider:    summarize.FallbackProviderName,
				Status:      models.StatusDegraded,
				CreatedAt:   a.now().UTC(),
			}
		}
		if result.Status != models.StatusSucceeded {
			artifact.Status = models.ArtifactPartial
		}

		artifact.Entries = append(artifact.Entries, models.ArtifactEntry{
			Paper:   paper,
			Summary: *result,
		})
	}

	artifact.PaperCount = len(artifact.Entries)
	artifact.SortEntries()
	artifact.Content = RenderMarkdown(artifact)

	if err := a.store.SaveBlogArtifact(ctx, artifact); err != nil {
		return artifact, fmt.Errorf("saving blog artifact: %w", err)
	}

	slog.Info("assembled blog artifact",
		"id", artifact.ID,
		"papers", artifact.PaperCount,
		"status", artifact.Status,
	)
	return artifact, nil
}
