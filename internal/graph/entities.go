package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/models"
)

const entityColumns = `e.id, e.type, e.name, e.file_path, e.language, e.metadata, e.created_at, e.updated_at`

// UpsertEntity inserts e or replaces every field of the existing row with
// the same id except created_at. updated_at is set from the store clock.
func (s *Store) UpsertEntity(ctx context.Context, e models.Entity) error {
	if e.ID == "" || !e.Type.Valid() {
		return fmt.Errorf("graph: upsert entity %q: %w", e.ID, apperr.ErrInvalid)
	}
	md, err := encodeMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("graph: upsert entity %s: %w", e.ID, err)
	}
	now := s.timestamp()
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO entities (id, type, name, file_path, language, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type       = excluded.type,
			name       = excluded.name,
			file_path  = excluded.file_path,
			language   = excluded.language,
			metadata   = excluded.metadata,
			updated_at = excluded.updated_at
	`, e.ID, string(e.Type), e.Name, e.FilePath, e.Language, md, now, now)
	if err != nil {
		return fmt.Errorf("graph: upsert entity %s: %w", e.ID, err)
	}
	return nil
}

// Entity returns the entity with the given id.
func (s *Store) Entity(ctx context.Context, id string) (*models.Entity, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities e WHERE e.id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph: entity %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("graph: entity %s: %w", id, err)
	}
	return e, nil
}

// EntitiesByType returns every entity of type t ordered by name and path.
func (s *Store) EntitiesByType(ctx context.Context, t models.EntityType) ([]models.Entity, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+entityColumns+`
		FROM entities e
		WHERE e.type = ?
		ORDER BY e.name, e.file_path
	`, string(t))
	if err != nil {
		return nil, fmt.Errorf("graph: entities by type: %w", err)
	}
	return collectEntities(rows)
}

// RelatedEntities returns the entities connected to id by an edge in either
// direction, optionally restricted to one relationship type. The entity
// itself is never included.
func (s *Store) RelatedEntities(ctx context.Context, id string, relType models.RelationshipType) ([]models.Entity, error) {
	query := `
		SELECT DISTINCT ` + entityColumns + `
		FROM relationships r
		JOIN entities e
		  ON (r.source_id = ? AND e.id = r.target_id)
		  OR (r.target_id = ? AND e.id = r.source_id)
		WHERE e.id <> ?`
	args := []any{id, id, id}
	if relType != "" {
		query += ` AND r.relationship_type = ?`
		args = append(args, string(relType))
	}
	query += ` ORDER BY e.name, e.file_path`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: related entities: %w", err)
	}
	return collectEntities(rows)
}

// EntityFilePaths returns the distinct file paths that own at least one entity.
func (s *Store) EntityFilePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT file_path FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("graph: file paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// DeleteEntitiesByFile removes every entity declared in filePath together
// with its edges, mappings and search document. It returns the number of
// entities removed.
func (s *Store) DeleteEntitiesByFile(ctx context.Context, filePath string) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	const owned = `SELECT id FROM entities WHERE file_path = ?`
	stmts := []string{
		`DELETE FROM relationships WHERE source_id IN (` + owned + `) OR target_id IN (` + owned + `)`,
		`DELETE FROM api_mappings WHERE ui_entity_id IN (` + owned + `) OR backend_entity_id IN (` + owned + `)`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, filePath, filePath); err != nil {
			return 0, fmt.Errorf("graph: delete edges of %s: %w", filePath, err)
		}
	}
	if err := ftsDeleteByFile(ctx, tx, filePath); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE entity_id IN (`+owned+`)`, filePath); err != nil {
		return 0, fmt.Errorf("graph: delete documents of %s: %w", filePath, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE file_path = ?`, filePath)
	if err != nil {
		return 0, fmt.Errorf("graph: delete entities of %s: %w", filePath, err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("graph: commit: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e   models.Entity
		typ string
		md  string
	)
	if err := row.Scan(&e.ID, &typ, &e.Name, &e.FilePath, &e.Language, &md, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Type = models.EntityType(typ)
	m, err := decodeMetadata(md)
	if err != nil {
		return nil, err
	}
	e.Metadata = m
	return &e, nil
}

func collectEntities(rows *sql.Rows) ([]models.Entity, error) {
	defer rows.Close()
	out := []models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

func decodeMetadata(s string) (map[string]any, error) {
	out := map[string]any{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return out, nil
}
