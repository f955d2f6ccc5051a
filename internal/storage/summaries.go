package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ptdat/paperblog/internal/models"
)

// SaveSummary persists a terminal summarization result. A row with the
// same paper and content hash is replaced, so a forced regeneration
// supersedes the earlier result.
func (s *Store) SaveSummary(ctx context.Context, result *models.SummaryResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (paper_id, content_hash, problem, innovation, impact, analogy, provider, status, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id, content_hash) DO UPDATE SET
			problem    = excluded.problem,
			innovation = excluded.innovation,
			impact     = excluded.impact,
			analogy    = excluded.analogy,
			provider   = excluded.provider,
			status     = excluded.status,
			attempts   = excluded.attempts,
			created_at = excluded.created_at`,
		result.PaperID, result.ContentHash,
		result.Sections.Problem, result.Sections.Innovation,
		result.Sections.Impact, result.Sections.Analogy,
		result.Provider, string(result.Status), result.Attempts,
		formatTime(result.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving summary for %q: %w", result.PaperID, err)
	}
	return nil
}

// PriorSummary returns the stored result for the given paper and content
// hash, or (nil, nil) when none exists. The summarization engine consults
// it before spending provider calls on an unchanged paper.
func (s *Store) PriorSummary(ctx context.Context, paperID, contentHash string) (*models.SummaryResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT paper_id, content_hash, problem, innovation, impact, analogy, provider, status, attempts, created_at
		 FROM summaries WHERE paper_id = ? AND content_hash = ?`,
		paperID, contentHash)

	result, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting prior summary for %q: %w", paperID, err)
	}
	return result, nil
}

// SummariesForPaper returns every stored result for a paper, most recent
// first. Superseded results from earlier content hashes remain visible.
func (s *Store) SummariesForPaper(ctx context.Context, paperID string) ([]models.SummaryResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, content_hash, problem, innovation, impact, analogy, provider, status, attempts, created_at
		 FROM summaries WHERE paper_id = ?
		 ORDER BY created_at DESC, id DESC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying summaries for %q: %w", paperID, err)
	}
	defer rows.Close()

	var results []models.SummaryResult
	for rows.Next() {
		result, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}
	return results, nil
}

func scanSummary(row scanner) (*models.SummaryResult, error) {
	var (
		result    models.SummaryResult
		status    string
		createdAt string
	)
	if err := row.Scan(
		&result.PaperID, &result.ContentHash,
		&result.Sections.Problem, &result.Sections.Innovation,
		&result.Sections.Impact, &result.Sections.Analogy,
		&result.Provider, &status, &result.Attempts, &createdAt,
	); err != nil {
		return nil, err
	}
	result.Status = models.SummaryStatus(status)
	result.CreatedAt = parseTime(createdAt)
	return &result, nil
}
