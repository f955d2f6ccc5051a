// Package pipeline orchestrates one digest generation run: fetch papers
// for a window, score and select them, summarize the selection, and
// assemble the persisted blog artifact.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ptdat/paperblog/internal/blog"
	"github.com/ptdat/paperblog/internal/distribute"
	"github.com/ptdat/paperblog/internal/models"
	"github.com/ptdat/paperblog/internal/quality"
)

var _ Assembler = (*blog.Assembler)(nil)

// Fetcher retrieves candidate papers for a window.
type Fetcher interface {
	Fetch(ctx context.Context, start, end time.Time, categories []string) ([]models.Paper, error)
}

// Summarizer produces terminal summary results for the selected papers.
type Summarizer interface {
	SummarizeAll(ctx context.Context, papers []models.Paper, force bool) map[string]*models.SummaryResult
}

// Assembler builds and persists the digest artifact for a window.
type Assembler interface {
	Assemble(ctx context.Context, windowStart, windowEnd time.Time, papers []models.Paper, results map[string]*models.SummaryResult) (*models.BlogArtifact, error)
}

// Store is the persistence surface the pipeline drives directly. The
// reference corpus comes from papers featured in already-persisted
// artifacts, so a run's own selections only join the corpus once its
// artifact has been saved.
type Store interface {
	UpsertPapers(ctx context.Context, papers []models.Paper) error
	CorpusAbstracts(ctx context.Context) ([]string, error)
}

// Config holds the pipeline's run policy.
type Config struct {
	// Categories are the arXiv categories fetched each run.
	Categories []string

	// Quality configures scoring, thresholding, and topic labeling.
	Quality quality.Config

	// Target is the maximum number of papers per digest.
	Target int

	// WindowDays is the span of the current window ending now.
	WindowDays int

	// AssemblyDeadline bounds how long a run waits for summaries before
	// assembling with degraded entries. Zero means no deadline.
	AssemblyDeadline time.Duration
}

// Pipeline wires the stages together. Collaborators are injected so tests
// can run the full flow against fakes.
type Pipeline struct {
	fetcher   Fetcher
	impact    quality.ImpactLookup
	engine    Summarizer
	assembler Assembler
	store     Store
	cfg       Config

	now func() time.Time
}

// New creates a Pipeline. impact may be nil, in which case the author
// term contributes zero to every score.
func New(fetcher Fetcher, impact quality.ImpactLookup, engine Summarizer, assembler Assembler, store Store, cfg Config) *Pipeline {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	return &Pipeline{
		fetcher:   fetcher,
		impact:    impact,
		engine:    engine,
		assembler: assembler,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
	}
}

// RunCurrentWindow runs the pipeline for the window of WindowDays ending
// now.
func (p *Pipeline) RunCurrentWindow(ctx context.Context, force bool) (*models.BlogArtifact, error) {
	end := p.now().UTC()
	start := end.AddDate(0, 0, -p.cfg.WindowDays)
	return p.Run(ctx, start, end, force)
}

// Run generates the digest artifact for [start, end). Fetched papers are
// persisted before filtering so rejected candidates remain on record;
// selected papers are persisted again after scoring. The summarization
// phase is bounded by the assembly deadline, after which papers without a
// terminal result receive degraded entries.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time, force bool) (*models.BlogArtifact, error) {
	slog.Info("starting digest run",
		"window_start", start.Format(time.DateOnly),
		"window_end", end.Format(time.DateOnly),
		"force", force,
	)

	papers, err := p.fetcher.Fetch(ctx, start, end, p.cfg.Categories)
	if err != nil {
		return nil, fmt.Errorf("fetching papers: %w", err)
	}
	slog.Info("fetched papers", "count", len(papers))

	if err := p.store.UpsertPapers(ctx, papers); err != nil {
		return nil, fmt.Errorf("persisting fetched papers: %w", err)
	}

	corpus, err := p.store.CorpusAbstracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reference corpus: %w", err)
	}

	filter := quality.NewFilter(p.cfg.Quality, quality.NewIndex(corpus), p.impact)
	scored := filter.Filter(ctx, papers)
	slog.Info("filtered papers", "kept", len(scored), "corpus_size", len(corpus))

	selected := distribute.Select(scored, p.cfg.Target)
	slog.Info("selected papers", "count", len(selected), "target", p.cfg.Target)

	if err := p.store.UpsertPapers(ctx, selected); err != nil {
		return nil, fmt.Errorf("persisting selected papers: %w", err)
	}

	summaryCtx := ctx
	if p.cfg.AssemblyDeadline > 0 {
		var cancel context.CancelFunc
		summaryCtx, cancel = context.WithTimeout(ctx, p.cfg.AssemblyDeadline)
		defer cancel()
	}
	results := p.engine.SummarizeAll(summaryCtx, selected, force)

	// A cancelled run stops here instead of assembling a truncated digest;
	// already-terminal summaries were persisted by the engine.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled before assembly: %w", err)
	}

	artifact, err := p.assembler.Assemble(ctx, start, end, selected, results)
	if err != nil {
		return artifact, fmt.Errorf("assembling digest: %w", err)
	}

	slog.Info("digest generated",
		"artifact_id", artifact.ID,
		"papers", artifact.PaperCount,
		"status", artifact.Status,
	)
	return artifact, nil
}
