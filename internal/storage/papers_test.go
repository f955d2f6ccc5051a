package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ptdat/paperblog/internal/models"
)

func testPaper(id string) models.Paper {
	return models.Paper{
		ArxivID:     id,
		Title:       "Title " + id,
		Authors:     []string{"Alice Nguyen", "Bob Tran"},
		Abstract:    "Abstract for " + id + ".",
		Categories:  []string{"cs.AI", "cs.LG"},
		PublishedAt: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		Score:       0.42,
		Topic:       "LLMs",
		Source:      "arxiv",
		FetchedAt:   time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC),
	}
}

func TestUpsertPapers_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testPaper("2506.00001")
	if err := store.UpsertPapers(ctx, []models.Paper{want}); err != nil {
		t.Fatalf("UpsertPapers() error: %v", err)
	}

	got, err := store.GetPaper(ctx, "2506.00001")
	if err != nil {
		t.Fatalf("GetPaper() error: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("GetPaper() = %+v, want %+v", *got, want)
	}
}

func TestUpsertPapers_UpdatesMutableFieldsOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := testPaper("2506.00001")
	if err := store.UpsertPapers(ctx, []models.Paper{original}); err != nil {
		t.Fatalf("first UpsertPapers() error: %v", err)
	}

	updated := original
	updated.Score = 0.9
	updated.Topic = "Agentic AI"
	updated.Abstract = "Revised abstract."
	if err := store.UpsertPapers(ctx, []models.Paper{updated}); err != nil {
		t.Fatalf("second UpsertPapers() error: %v", err)
	}

	got, err := store.GetPaper(ctx, "2506.00001")
	if err != nil {
		t.Fatalf("GetPaper() error: %v", err)
	}
	if got.Score != 0.9 || got.Topic != "Agentic AI" || got.Abstract != "Revised abstract." {
		t.Errorf("mutable fields not updated: %+v", got)
	}
	if !got.PublishedAt.Equal(original.PublishedAt) {
		t.Errorf("PublishedAt changed on upsert: %v", got.PublishedAt)
	}

	// Still a single row.
	var count int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM papers").Scan(&count); err != nil {
		t.Fatalf("counting papers: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 paper row, got %d", count)
	}
}

func TestUpsertPapers_EmptyBatch(t *testing.T) {
	store := newTestStore(t)

	if err := store.UpsertPapers(context.Background(), nil); err != nil {
		t.Fatalf("UpsertPapers(nil) error: %v", err)
	}
}

func TestGetPaper_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPaper(context.Background(), "2506.99999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPaper() error = %v, want ErrNotFound", err)
	}
}

func TestCorpusAbstracts_OnlyFeaturedPapers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	featured := testPaper("2506.00001")
	skipped := testPaper("2506.00002")
	if err := store.UpsertPapers(ctx, []models.Paper{featured, skipped}); err != nil {
		t.Fatalf("UpsertPapers() error: %v", err)
	}

	artifact := testArtifact("art-1", featured)
	if err := store.SaveBlogArtifact(ctx, artifact); err != nil {
		t.Fatalf("SaveBlogArtifact() error: %v", err)
	}

	abstracts, err := store.CorpusAbstracts(ctx)
	if err != nil {
		t.Fatalf("CorpusAbstracts() error: %v", err)
	}
	if len(abstracts) != 1 {
		t.Fatalf("CorpusAbstracts() returned %d abstracts, want 1", len(abstracts))
	}
	if abstracts[0] != featured.Abstract {
		t.Errorf("abstract = %q, want %q", abstracts[0], featured.Abstract)
	}
}

func TestCorpusAbstracts_EmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	abstracts, err := store.CorpusAbstracts(context.Background())
	if err != nil {
		t.Fatalf("CorpusAbstracts() error: %v", err)
	}
	if len(abstracts) != 0 {
		t.Errorf("CorpusAbstracts() on empty database = %v", abstracts)
	}
}
