package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ptdat/paperblog/internal/models"
)

// UpsertPapers batch-upserts papers inside a single transaction. Inserting
// an already-known identifier updates the mutable fields (title, abstract,
// categories, score, topic, fetched_at) but never the identity or the
// publication date.
func (s *Store) UpsertPapers(ctx context.Context, papers []models.Paper) error {
	if len(papers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (arxiv_id, title, authors, abstract, categories, published_at, score, topic, cluster, source, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(arxiv_id) DO UPDATE SET
			title      = excluded.title,
			authors    = excluded.authors,
			abstract   = excluded.abstract,
			categories = excluded.categories,
			score      = excluded.score,
			topic      = excluded.topic,
			source     = excluded.source,
			fetched_at = excluded.fetched_at`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range papers {
		p := &papers[i]
		authors, err := json.Marshal(p.Authors)
		if err != nil {
			return fmt.Errorf("encoding authors for %q: %w", p.ArxivID, err)
		}
		categories, err := json.Marshal(p.Categories)
		if err != nil {
			return fmt.Errorf("encoding categories for %q: %w", p.ArxivID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			p.ArxivID, p.Title, string(authors), p.Abstract, string(categories),
			formatTime(p.PublishedAt), p.Score, p.Topic, p.Cluster, p.Source,
			formatTime(p.FetchedAt),
		); err != nil {
			return fmt.Errorf("upserting paper %q: %w", p.ArxivID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetPaper returns the paper with the given arXiv identifier.
// Returns nil, ErrNotFound if no matching row exists.
func (s *Store) GetPaper(ctx context.Context, arxivID string) (*models.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT arxiv_id, title, authors, abstract, categories, published_at,
				score, topic, cluster, source, fetched_at
		 FROM papers WHERE arxiv_id = ?`, arxivID)

	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting paper %q: %w", arxivID, err)
	}
	return paper, nil
}

// CorpusAbstracts returns the abstracts of every paper already featured in
// a persisted artifact, in identifier order. The quality filter uses them
// as the novelty corpus for subsequent runs.
func (s *Store) CorpusAbstracts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT p.abstract, p.arxiv_id
		 FROM papers p
		 JOIN artifact_entries ae ON ae.paper_id = p.arxiv_id
		 ORDER BY p.arxiv_id`)
	if err != nil {
		return nil, fmt.Errorf("querying corpus abstracts: %w", err)
	}
	defer rows.Close()

	var abstracts []string
	for rows.Next() {
		var abstract, id string
		if err := rows.Scan(&abstract, &id); err != nil {
			return nil, fmt.Errorf("scanning corpus abstract: %w", err)
		}
		abstracts = append(abstracts, abstract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus abstracts: %w", err)
	}
	return abstracts, nil
}

// scanner is a minimal interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*models.Paper, error) {
	var p models.Paper
	var authors, categories, publishedAt, fetchedAt string

	if err := row.Scan(
		&p.ArxivID, &p.Title, &authors, &p.Abstract, &categories,
		&publishedAt, &p.Score, &p.Topic, &p.Cluster, &p.Source, &fetchedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}

	p.PublishedAt = parseTime(publishedAt)
	p.FetchedAt = parseTime(fetchedAt)
	return &p, nil
}
