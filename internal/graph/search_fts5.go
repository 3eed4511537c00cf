//go:build sqlite_fts5

package graph

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			entity_id UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, doc Document) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE entity_id = ?`, doc.EntityID)
	_, err := tx.ExecContext(ctx, `INSERT INTO documents_fts (entity_id, title, body) VALUES (?, ?, ?)`,
		doc.EntityID, doc.Title, doc.Body)
	if err != nil {
		return fmt.Errorf("graph: upsert fts: %w", err)
	}
	return nil
}

func ftsDeleteByFile(ctx context.Context, tx *sql.Tx, filePath string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM documents_fts
		WHERE entity_id IN (SELECT id FROM entities WHERE file_path = ?)
	`, filePath)
	if err != nil {
		return fmt.Errorf("graph: delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns ranked hits with snippets.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT entity_id,
		       title,
		       snippet(documents_fts, 2, '<b>', '</b>', '...', 32)
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("graph: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.EntityID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
