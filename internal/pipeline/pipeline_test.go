package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ptdat/paperblog/internal/arxiv"
	"github.com/ptdat/paperblog/internal/blog"
	"github.com/ptdat/paperblog/internal/models"
	"github.com/ptdat/paperblog/internal/quality"
)

type fakeFetcher struct {
	papers []models.Paper
	err    error

	gotStart      time.Time
	gotEnd        time.Time
	gotCategories []string
}

func (f *fakeFetcher) Fetch(_ context.Context, start, end time.Time, categories []string) ([]models.Paper, error) {
	f.gotStart, f.gotEnd, f.gotCategories = start, end, categories
	if f.err != nil {
		return nil, f.err
	}
	return f.papers, nil
}

// fakeSummarizer returns a succeeded result per paper. onCall runs before
// results are produced, letting tests observe or cancel the context.
type fakeSummarizer struct {
	onCall func(ctx context.Context)
	got    []models.Paper
}

func (s *fakeSummarizer) SummarizeAll(ctx context.Context, papers []models.Paper, _ bool) map[string]*models.SummaryResult {
	s.got = papers
	if s.onCall != nil {
		s.onCall(ctx)
	}
	results := make(map[string]*models.SummaryResult, len(papers))
	for _, p := range papers {
		results[p.ArxivID] = &models.SummaryResult{
			PaperID:     p.ArxivID,
			ContentHash: p.ContentHash(),
			Sections: models.SummarySections{
				Problem:    "P.",
				Innovation: "I.",
				Impact:     "M.",
				Analogy:    "A.",
			},
			Provider: "groq",
			Status:   models.StatusSucceeded,
			Attempts: 1,
		}
	}
	return results
}

// memStore satisfies both the pipeline store and the assembler's artifact
// store, recording the order of calls.
type memStore struct {
	corpus    []string
	upserted  [][]models.Paper
	artifacts []*models.BlogArtifact
	calls     []string
}

func (s *memStore) UpsertPapers(_ context.Context, papers []models.Paper) error {
	s.upserted = append(s.upserted, papers)
	s.calls = append(s.calls, "upsert")
	return nil
}

func (s *memStore) CorpusAbstracts(_ context.Context) ([]string, error) {
	s.calls = append(s.calls, "corpus")
	return s.corpus, nil
}

func (s *memStore) SaveBlogArtifact(_ context.Context, artifact *models.BlogArtifact) error {
	s.artifacts = append(s.artifacts, artifact)
	s.calls = append(s.calls, "save")
	return nil
}

func windowPaper(id string, day int) models.Paper {
	return models.Paper{
		ArxivID:     id,
		Title:       "machine learning transformer study " + id,
		Authors:     []string{"Alice"},
		Abstract:    "We study large language models and transformer training for " + id + ".",
		Categories:  []string{"cs.AI"},
		PublishedAt: time.Date(2025, 6, 9+day, 10, 0, 0, 0, time.UTC),
	}
}

func testConfig() Config {
	return Config{
		Categories: []string{"cs.AI", "cs.LG"},
		Quality: quality.Config{
			Categories: []string{"cs.AI", "cs.LG"},
			Keywords:   []string{"transformer", "language models"},
			Weights: quality.Weights{
				Category: 0.35,
				Keyword:  0.25,
				Novelty:  0.3,
				Author:   0.1,
			},
			Threshold: 0.1,
			Floor:     0.05,
		},
		Target:     2,
		WindowDays: 7,
	}
}

func newTestPipeline(fetcher Fetcher, store *memStore, cfg Config) (*Pipeline, *fakeSummarizer) {
	summarizer := &fakeSummarizer{}
	assembler := blog.NewAssembler(store)
	p := New(fetcher, nil, summarizer, assembler, store, cfg)
	p.now = func() time.Time { return time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC) }
	return p, summarizer
}

func TestRun_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{papers: []models.Paper{
		windowPaper("2506.00001", 0),
		windowPaper("2506.00002", 1),
		windowPaper("2506.00003", 2),
	}}
	store := &memStore{}
	p, summarizer := newTestPipeline(fetcher, store, testConfig())

	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	artifact, err := p.Run(context.Background(), start, end, false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if artifact.PaperCount != 2 {
		t.Errorf("PaperCount = %d, want target of 2", artifact.PaperCount)
	}
	if artifact.Status != models.ArtifactComplete {
		t.Errorf("Status = %q, want complete", artifact.Status)
	}
	if len(summarizer.got) != 2 {
		t.Errorf("summarizer received %d papers, want 2", len(summarizer.got))
	}
	if len(store.artifacts) != 1 {
		t.Fatalf("store received %d artifacts, want 1", len(store.artifacts))
	}

	// Fetched papers persisted before filtering, selection persisted after.
	if len(store.upserted) != 2 {
		t.Fatalf("UpsertPapers called %d times, want 2", len(store.upserted))
	}
	if len(store.upserted[0]) != 3 || len(store.upserted[1]) != 2 {
		t.Errorf("upsert batches = %d then %d papers, want 3 then 2",
			len(store.upserted[0]), len(store.upserted[1]))
	}
}

func TestRun_CorpusReadBeforeArtifactSave(t *testing.T) {
	fetcher := &fakeFetcher{papers: []models.Paper{windowPaper("2506.00001", 0)}}
	store := &memStore{corpus: []string{"an unrelated prior abstract"}}
	p, _ := newTestPipeline(fetcher, store, testConfig())

	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	if _, err := p.Run(context.Background(), start, end, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	corpusIdx, saveIdx := -1, -1
	for i, call := range store.calls {
		switch call {
		case "corpus":
			if corpusIdx == -1 {
				corpusIdx = i
			}
		case "save":
			saveIdx = i
		}
	}
	if corpusIdx == -1 || saveIdx == -1 || corpusIdx > saveIdx {
		t.Errorf("corpus must be read before the artifact is saved: %v", store.calls)
	}
}

func TestRun_FetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: arxiv.ErrSourceUnavailable}
	store := &memStore{}
	p, _ := newTestPipeline(fetcher, store, testConfig())

	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	_, err := p.Run(context.Background(), start, end, false)
	if !errors.Is(err, arxiv.ErrSourceUnavailable) {
		t.Fatalf("Run() error = %v, want ErrSourceUnavailable", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("store touched after fetch failure: %v", store.calls)
	}
}

func TestRun_CancelledBeforeAssembly(t *testing.T) {
	fetcher := &fakeFetcher{papers: []models.Paper{windowPaper("2506.00001", 0)}}
	store := &memStore{}
	p, summarizer := newTestPipeline(fetcher, store, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	summarizer.onCall = func(context.Context) { cancel() }

	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	_, err := p.Run(ctx, start, end, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(store.artifacts) != 0 {
		t.Error("cancelled run must not persist an artifact")
	}
}

func TestRun_AssemblyDeadlineBoundsSummarization(t *testing.T) {
	fetcher := &fakeFetcher{papers: []models.Paper{windowPaper("2506.00001", 0)}}
	store := &memStore{}
	cfg := testConfig()
	cfg.AssemblyDeadline = 30 * time.Second
	p, summarizer := newTestPipeline(fetcher, store, cfg)

	var hadDeadline bool
	summarizer.onCall = func(ctx context.Context) {
		_, hadDeadline = ctx.Deadline()
	}

	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	if _, err := p.Run(context.Background(), start, end, false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !hadDeadline {
		t.Error("summarization context missing the assembly deadline")
	}
}

func TestRunCurrentWindow_ComputesWindow(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &memStore{}
	p, _ := newTestPipeline(fetcher, store, testConfig())

	if _, err := p.RunCurrentWindow(context.Background(), false); err != nil {
		t.Fatalf("RunCurrentWindow() error: %v", err)
	}

	wantEnd := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	wantStart := wantEnd.AddDate(0, 0, -7)
	if !fetcher.gotEnd.Equal(wantEnd) || !fetcher.gotStart.Equal(wantStart) {
		t.Errorf("window = [%v, %v], want [%v, %v]",
			fetcher.gotStart, fetcher.gotEnd, wantStart, wantEnd)
	}
	if len(fetcher.gotCategories) != 2 {
		t.Errorf("categories = %v, want config categories", fetcher.gotCategories)
	}
}
