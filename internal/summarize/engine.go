package summarize

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ptdat/paperblog/internal/models"
)

// SummaryCache looks up and records summaries for idempotent regeneration.
// PriorSummary returns (nil, nil) when no matching summary exists.
type SummaryCache interface {
	PriorSummary(ctx context.Context, paperID, contentHash string) (*models.SummaryResult, error)
	SaveSummary(ctx context.Context, result *models.SummaryResult) error
}

// ContentEnricher supplies extra readable text for a paper beyond its
// abstract. Enrichment is best-effort; failures fall back to the abstract.
type ContentEnricher interface {
	PageText(arxivID string) (string, error)
}

// Config holds the engine's retry and concurrency policy.
type Config struct {
	// MaxAttempts is the attempt limit per provider.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt; it doubles
	// each retry, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// AttemptTimeout bounds each individual provider call.
	AttemptTimeout time.Duration

	// Concurrency bounds the number of papers summarized in parallel.
	Concurrency int
}

// Engine produces a terminal SummaryResult for each selected paper by
// walking an ordered provider chain with retries and backoff, falling back
// to a rule-based template when the chain is exhausted.
type Engine struct {
	providers []Provider
	cache     SummaryCache    // nil disables the idempotence cache
	enricher  ContentEnricher // nil disables prompt enrichment
	cfg       Config

	// sleep and now are injected so tests run the retry state machine
	// without real delays.
	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewEngine creates an Engine over the given provider chain.
func NewEngine(providers []Provider, cache SummaryCache, cfg Config) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Engine{
		providers: providers,
		cache:     cache,
		cfg:       cfg,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// SetEnricher attaches an optional content enricher.
func (e *Engine) SetEnricher(enricher ContentEnricher) {
	e.enricher = enricher
}

// SummarizeAll summarizes the given papers concurrently, bounded by the
// configured limit, and returns the terminal results keyed by paper
// identifier. Terminal results are written to the cache as they complete,
// so cancelling the context preserves finished summaries for a later
// retry; papers whose work was abandoned are simply absent from the map.
func (e *Engine) SummarizeAll(ctx context.Context, papers []models.Paper, force bool) map[string]*models.SummaryResult {
	results := make(map[string]*models.SummaryResult, len(papers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i := range papers {
		paper := papers[i]
		g.Go(func() error {
			result := e.Summarize(gctx, &paper, force)
			if result == nil {
				return nil // cancelled, result discarded
			}
			mu.Lock()
			results[paper.ArxivID] = result
			mu.Unlock()
			return nil
		})
	}

	g.Wait() //nolint:errcheck // workers never return errors
	return results
}

// Summarize runs the per-paper state machine to a terminal result.
//
// Unless force is set, a prior Succeeded or Degraded result for the same
// content hash short-circuits the provider chain entirely: the cached
// result is returned with zero provider calls. Otherwise each provider in
// priority order gets up to MaxAttempts attempts with exponential backoff;
// a permanent error abandons that provider immediately. If the whole chain
// fails the result is Degraded, never absent.
//
// Returns nil only when ctx was cancelled before a terminal state was
// reached.
func (e *Engine) Summarize(ctx context.Context, paper *models.Paper, force bool) *models.SummaryResult {
	hash := paper.ContentHash()

	if !force && e.cache != nil {
		prior, err := e.cache.PriorSummary(ctx, paper.ArxivID, hash)
		if err != nil {
			slog.Warn("prior summary lookup failed", "paper", paper.ArxivID, "error", err)
		} else if prior != nil && (prior.Status == models.StatusSucceeded || prior.Status == models.StatusDegraded) {
			slog.Debug("reusing cached summary", "paper", paper.ArxivID, "provider", prior.Provider)
			return prior
		}
	}

	abstract := e.enrichedAbstract(paper)
	attempts := 0

	for _, provider := range e.providers {
		for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
			if attempt > 0 {
				if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
					return nil
				}
			}
			attempts++

			sections, err := e.attempt(ctx, provider, paper.Title, abstract, paper.Categories)
			if err == nil {
				result := &models.SummaryResult{
					PaperID:     paper.ArxivID,
					ContentHash: hash,
					Sections:    *sections,
					Provider:    provider.Name(),
					Status:      models.StatusSucceeded,
					Attempts:    attempts,
					CreatedAt:   e.now().UTC(),
				}
				e.store(ctx, result)
				return result
			}

			if ctx.Err() != nil {
				return nil // window cancelled, abandon in-flight work
			}

			var perr *ProviderError
			if errors.As(err, &perr) && perr.Permanent {
				slog.Warn("provider failed permanently, moving to next",
					"paper", paper.ArxivID,
					"provider", provider.Name(),
					"error", err,
				)
				break
			}

			slog.Warn("summarization attempt failed",
				"paper", paper.ArxivID,
				"provider", provider.Name(),
				"attempt", attempt+1,
				"error", err,
			)
		}
	}

	slog.Warn("all providers exhausted, using fallback template",
		"paper", paper.ArxivID,
		"attempts", attempts,
	)
	result := &models.SummaryResult{
		PaperID:     paper.ArxivID,
		ContentHash: hash,
		Sections:    *FallbackSections(paper),
		Provider:    FallbackProviderName,
		Status:      models.StatusDegraded,
		Attempts:    attempts,
		CreatedAt:   e.now().UTC(),
	}
	e.store(ctx, result)
	return result
}

// attempt runs one bounded provider call and validates the sections.
func (e *Engine) attempt(ctx context.Context, provider Provider, title, abstract string, categories []string) (*models.SummarySections, error) {
	actx := ctx
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	sections, err := provider.Summarize(actx, title, abstract, categories)
	if err != nil {
		return nil, err
	}
	if !sections.Complete() {
		return nil, ErrMalformedSummary
	}
	return sections, nil
}

// backoff returns the delay before the given retry (attempt >= 1): the
// base delay doubled each retry, capped at the maximum.
func (e *Engine) backoff(attempt int) time.Duration {
	d := e.cfg.BaseDelay << (attempt - 1)
	if e.cfg.MaxDelay > 0 && d > e.cfg.MaxDelay {
		d = e.cfg.MaxDelay
	}
	return d
}

// enrichedAbstract appends best-effort page text to the abstract.
func (e *Engine) enrichedAbstract(paper *models.Paper) string {
	if e.enricher == nil {
		return paper.Abstract
	}
	extra, err := e.enricher.PageText(paper.ArxivID)
	if err != nil || extra == "" {
		if err != nil {
			slog.Debug("content enrichment failed", "paper", paper.ArxivID, "error", err)
		}
		return paper.Abstract
	}
	return paper.Abstract + "\n\n" + extra
}

// store writes a terminal result to the cache. Failures are logged, not
// surfaced: losing the cache entry only costs a future provider call.
func (e *Engine) store(ctx context.Context, result *models.SummaryResult) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SaveSummary(ctx, result); err != nil {
		slog.Warn("saving summary failed", "paper", result.PaperID, "error", err)
	}
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
