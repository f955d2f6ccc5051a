package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ptdat/paperblog/internal/models"
)

// SaveBlogArtifact persists a generated artifact and its entries inside a
// single transaction. Artifacts are immutable: inserting an existing ID is
// an error, and regeneration must use a fresh ID.
//
// Entry summaries are snapshotted on the entry rows so the artifact
// re-renders identically even if the papers table is later updated.
func (s *Store) SaveBlogArtifact(ctx context.Context, artifact *models.BlogArtifact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blog_artifacts (id, title, window_start, window_end, paper_count, content, status, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.Title,
		formatTime(artifact.WindowStart), formatTime(artifact.WindowEnd),
		artifact.PaperCount, artifact.Content, string(artifact.Status),
		formatTime(artifact.GeneratedAt),
	); err != nil {
		return fmt.Errorf("inserting artifact %q: %w", artifact.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO artifact_entries (artifact_id, paper_id, position, topic, score, problem, innovation, impact, analogy, provider, summary_status, attempts, content_hash, summary_created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entry statement: %w", err)
	}
	defer stmt.Close()

	for i := range artifact.Entries {
		entry := &artifact.Entries[i]
		summary := &entry.Summary
		if _, err := stmt.ExecContext(ctx,
			artifact.ID, entry.Paper.ArxivID, i,
			entry.Paper.Topic, entry.Paper.Score,
			summary.Sections.Problem, summary.Sections.Innovation,
			summary.Sections.Impact, summary.Sections.Analogy,
			summary.Provider, string(summary.Status), summary.Attempts,
			summary.ContentHash, formatTime(summary.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting entry %q for artifact %q: %w",
				entry.Paper.ArxivID, artifact.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing artifact %q: %w", artifact.ID, err)
	}
	return nil
}

// GetBlogArtifact returns the artifact with the given ID, entries included
// in their persisted order. Returns nil, ErrNotFound if no row exists.
func (s *Store) GetBlogArtifact(ctx context.Context, id string) (*models.BlogArtifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, window_start, window_end, paper_count, content, status, generated_at
		 FROM blog_artifacts WHERE id = ?`, id)

	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting artifact %q: %w", id, err)
	}

	entries, err := s.artifactEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	artifact.Entries = entries
	return artifact, nil
}

// ListBlogArtifacts returns artifact headers most recent first, without
// entries. Use GetBlogArtifact to load a full artifact.
func (s *Store) ListBlogArtifacts(ctx context.Context, limit int) ([]models.BlogArtifact, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, window_start, window_end, paper_count, content, status, generated_at
		 FROM blog_artifacts
		 ORDER BY generated_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.BlogArtifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		artifacts = append(artifacts, *artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}
	return artifacts, nil
}

// LatestArtifactForWindow returns the most recently generated artifact
// covering the given window, or ErrNotFound.
func (s *Store) LatestArtifactForWindow(ctx context.Context, windowStart, windowEnd string) (*models.BlogArtifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, window_start, window_end, paper_count, content, status, generated_at
		 FROM blog_artifacts
		 WHERE window_start = ? AND window_end = ?
		 ORDER BY generated_at DESC, id DESC
		 LIMIT 1`, windowStart, windowEnd)

	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting artifact for window: %w", err)
	}

	entries, err := s.artifactEntries(ctx, artifact.ID)
	if err != nil {
		return nil, err
	}
	artifact.Entries = entries
	return artifact, nil
}

// artifactEntries loads an artifact's entries joined with their papers,
// ordered by persisted position. The paper's topic and score come from the
// entry snapshot, not the live papers row.
func (s *Store) artifactEntries(ctx context.Context, artifactID string) ([]models.ArtifactEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.arxiv_id, p.title, p.authors, p.abstract, p.categories, p.published_at,
				ae.score, ae.topic, p.cluster, p.source, p.fetched_at,
				ae.problem, ae.innovation, ae.impact, ae.analogy,
				ae.provider, ae.summary_status, ae.attempts, ae.content_hash, ae.summary_created_at
		 FROM artifact_entries ae
		 JOIN papers p ON p.arxiv_id = ae.paper_id
		 WHERE ae.artifact_id = ?
		 ORDER BY ae.position`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("querying entries for artifact %q: %w", artifactID, err)
	}
	defer rows.Close()

	var entries []models.ArtifactEntry
	for rows.Next() {
		entry, err := scanArtifactEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifact entries: %w", err)
	}
	return entries, nil
}

func scanArtifactEntry(row scanner) (*models.ArtifactEntry, error) {
	var (
		entry            models.ArtifactEntry
		authors          string
		categories       string
		publishedAt      string
		fetchedAt        string
		summaryStatus    string
		summaryCreatedAt string
	)
	if err := row.Scan(
		&entry.Paper.ArxivID, &entry.Paper.Title, &authors, &entry.Paper.Abstract,
		&categories, &publishedAt,
		&entry.Paper.Score, &entry.Paper.Topic, &entry.Paper.Cluster,
		&entry.Paper.Source, &fetchedAt,
		&entry.Summary.Sections.Problem, &entry.Summary.Sections.Innovation,
		&entry.Summary.Sections.Impact, &entry.Summary.Sections.Analogy,
		&entry.Summary.Provider, &summaryStatus, &entry.Summary.Attempts,
		&entry.Summary.ContentHash, &summaryCreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authors), &entry.Paper.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &entry.Paper.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}

	entry.Paper.PublishedAt = parseTime(publishedAt)
	entry.Paper.FetchedAt = parseTime(fetchedAt)
	entry.Summary.PaperID = entry.Paper.ArxivID
	entry.Summary.Status = models.SummaryStatus(summaryStatus)
	entry.Summary.CreatedAt = parseTime(summaryCreatedAt)
	return &entry, nil
}

func scanArtifact(row scanner) (*models.BlogArtifact, error) {
	var (
		artifact    models.BlogArtifact
		status      string
		windowStart string
		windowEnd   string
		generatedAt string
	)
	if err := row.Scan(
		&artifact.ID, &artifact.Title, &windowStart, &windowEnd,
		&artifact.PaperCount, &artifact.Content, &status, &generatedAt,
	); err != nil {
		return nil, err
	}
	artifact.Status = models.ArtifactStatus(status)
	artifact.WindowStart = parseTime(windowStart)
	artifact.WindowEnd = parseTime(windowEnd)
	artifact.GeneratedAt = parseTime(generatedAt)
	return &artifact, nil
}
