package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ptdat/paperblog/internal/models"
)

type recordingStore struct {
	saved []*models.BlogArtifact
	err   error
}

func (s *recordingStore) SaveBlogArtifact(_ context.Context, artifact *models.BlogArtifact) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, artifact)
	return nil
}

func newTestAssembler(store ArtifactStore) *Assembler {
	a := NewAssembler(store)
	a.now = func() time.Time { return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC) }
	counter := 0
	a.newID = func() string {
		counter++
		return fmt.Sprintf("artifact-%03d", counter)
	}
	return a
}

func entryPaper(id, topic string, score float64) models.Paper {
	return models.Paper{
		ArxivID:     id,
		Title:       "Paper " + id,
		Authors:     []string{"Alice", "Bob"},
		Abstract:    "First sentence. Second sentence. Third sentence.",
		Topic:       topic,
		Score:       score,
		PublishedAt: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

func succeededResult(paperID string) *models.SummaryResult {
	return &models.SummaryResult{
		PaperID: paperID,
		Sections: models.SummarySections{
			Problem:    "P.",
			Innovation: "I.",
			Impact:     "M.",
			Analogy:    "A.",
		},
		Provider: "groq",
		Status:   models.StatusSucceeded,
	}
}

func window() (time.Time, time.Time) {
	return time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
}

func TestAssemble_CompleteArtifact(t *testing.T) {
	store := &recordingStore{}
	a := newTestAssembler(store)
	start, end := window()

	papers := []models.Paper{entryPaper("2506.00001", "LLMs", 0.9)}
	results := map[string]*models.SummaryResult{"2506.00001": succeededResult("2506.00001")}

	artifact, err := a.Assemble(context.Background(), start, end, papers, results)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if artifact.Status != models.ArtifactComplete {
		t.Errorf("Status = %q, want complete", artifact.Status)
	}
	if artifact.PaperCount != 1 {
		t.Errorf("PaperCount = %d, want 1", artifact.PaperCount)
	}
	if len(store.saved) != 1 {
		t.Fatalf("store received %d artifacts, want 1", len(store.saved))
	}
}

func TestAssemble_MissingResultDegradesEntry(t *testing.T) {
	store := &recordingStore{}
	a := newTestAssembler(store)
	start, end := window()

	papers := []models.Paper{
		entryPaper("2506.00001", "LLMs", 0.9),
		entryPaper("2506.00002", "LLMs", 0.8), // no result: stuck past deadline
	}
	results := map[string]*models.SummaryResult{"2506.00001": succeededResult("2506.00001")}

	artifact, err := a.Assemble(context.Background(), start, end, papers, results)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if artifact.Status != models.ArtifactPartial {
		t.Errorf("Status = %q, want partial", artifact.Status)
	}
	if artifact.PaperCount != 2 {
		t.Fatalf("PaperCount = %d, want 2 (assembly always completes)", artifact.PaperCount)
	}

	var degraded *models.SummaryResult
	for i := range artifact.Entries {
		if artifact.Entries[i].Paper.ArxivID == "2506.00002" {
			degraded = &artifact.Entries[i].Summary
		}
	}
	if degraded == nil {
		t.Fatal("stuck paper missing from artifact")
	}
	if degraded.Status != models.StatusDegraded {
		t.Errorf("stuck paper status = %q, want degraded", degraded.Status)
	}
	if !degraded.Sections.Complete() {
		t.Errorf("degraded sections incomplete: %+v", degraded.Sections)
	}
}

func TestAssemble_DeduplicatesByIdentifier(t *testing.T) {
	store := &recordingStore{}
	a := newTestAssembler(store)
	start, end := window()

	papers := []models.Paper{
		entryPaper("2506.00001", "LLMs", 0.9),
		entryPaper("2506.00001", "LLMs", 0.9),
	}
	results := map[string]*models.SummaryResult{"2506.00001": succeededResult("2506.00001")}

	artifact, err := a.Assemble(context.Background(), start, end, papers, results)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if artifact.PaperCount != 1 {
		t.Errorf("PaperCount = %d, want duplicates dropped", artifact.PaperCount)
	}
}

func TestAssemble_DeterministicOrdering(t *testing.T) {
	store := &recordingStore{}
	a := newTestAssembler(store)
	start, end := window()

	papers := []models.Paper{
		entryPaper("2506.00003", "Vision", 0.7),
		entryPaper("2506.00002", "LLMs", 0.5),
		entryPaper("2506.00001", "LLMs", 0.9),
	}
	results := make(map[string]*models.SummaryResult)
	for _, p := range papers {
		results[p.ArxivID] = succeededResult(p.ArxivID)
	}

	artifact, err := a.Assemble(context.Background(), start, end, papers, results)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	// Topic ascending, then score descending, then identifier.
	want := []string{"2506.00001", "2506.00002", "2506.00003"}
	for i, entry := range artifact.Entries {
		if entry.Paper.ArxivID != want[i] {
			t.Errorf("entry %d = %s, want %s", i, entry.Paper.ArxivID, want[i])
		}
	}
}

func TestAssemble_StorageErrorPropagatesWithArtifact(t *testing.T) {
	storageErr := errors.New("disk full")
	store := &recordingStore{err: storageErr}
	a := newTestAssembler(store)
	start, end := window()

	papers := []models.Paper{entryPaper("2506.00001", "LLMs", 0.9)}
	results := map[string]*models.SummaryResult{"2506.00001": succeededResult("2506.00001")}

	artifact, err := a.Assemble(context.Background(), start, end, papers, results)
	if !errors.Is(err, storageErr) {
		t.Fatalf("error = %v, want wrapped storage error", err)
	}
	if artifact == nil {
		t.Fatal("artifact should be returned for retry despite the save failure")
	}
	if artifact.PaperCount != 1 {
		t.Errorf("returned artifact incomplete: %+v", artifact)
	}
}

func TestRenderMarkdown_GroupsAndMarksDegraded(t *testing.T) {
	store := &recordingStore{}
	a := newTestAssembler(store)
	start, end := window()

	papers := []models.Paper{
		entryPaper("2506.00001", "LLMs", 0.9),
		entryPaper("2506.00002", "Vision", 0.8),
	}
	results := map[string]*models.SummaryResult{"2506.00001": succeededResult("2506.00001")}

	artifact, err := a.Assemble(context.Background(), start, end, papers, results)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	content := artifact.Content
	for _, want := range []string{
		"## LLMs",
		"## Vision",
		"### Paper 2506.00001",
		"https://arxiv.org/abs/2506.00002",
		"Automatic summarization was unavailable",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("rendered content missing %q", want)
		}
	}

	// Stable re-rendering.
	if again := RenderMarkdown(artifact); again != content {
		t.Error("re-rendering the artifact changed its content")
	}
}

func TestRenderMarkdown_TruncatesAuthors(t *testing.T) {
	artifact := &models.BlogArtifact{
		Title:       "Digest",
		WindowStart: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		PaperCount:  1,
		Entries: []models.ArtifactEntry{{
			Paper: models.Paper{
				ArxivID: "2506.00001",
				Title:   "Big Collaboration",
				Authors: []string{"A", "B", "C", "D", "E"},
			},
			Summary: *succeededResult("2506.00001"),
		}},
	}

	content := RenderMarkdown(artifact)
	if !strings.Contains(content, "A, B, C et al.") {
		t.Errorf("author line not truncated:\n%s", content)
	}
	if strings.Contains(content, "D, E") {
		t.Error("author line shows more than three names")
	}
}
