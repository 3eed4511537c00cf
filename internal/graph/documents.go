package graph

import (
	"context"
	"fmt"

	"github.com/starford/stackscope/internal/apperr"
)

// Document is the searchable text for one entity.
type Document struct {
	EntityID string
	Title    string
	Body     string
}

// SearchResult represents one search hit.
type SearchResult struct {
	EntityID string `json:"entity_id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// IndexDocument stores or replaces the search document of an entity.
func (s *Store) IndexDocument(ctx context.Context, doc Document) error {
	if doc.EntityID == "" {
		return fmt.Errorf("graph: index document: %w", apperr.ErrInvalid)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (entity_id, title, body)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			title = excluded.title,
			body  = excluded.body
	`, doc.EntityID, doc.Title, doc.Body)
	if err != nil {
		return fmt.Errorf("graph: index document %s: %w", doc.EntityID, err)
	}
	if err := ftsUpsert(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}
