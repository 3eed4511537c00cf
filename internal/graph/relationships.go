package graph

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/models"
)

// UpsertRelationship writes r, replacing the metadata of an existing edge
// with the same id. The edge is stored even when an endpoint is missing; in
// that case the returned error is an *apperr.ReferentialWarning.
func (s *Store) UpsertRelationship(ctx context.Context, r models.Relationship) error {
	if r.SourceID == r.TargetID {
		return fmt.Errorf("graph: upsert relationship %s: %w", r.ID, apperr.ErrSelfReference)
	}
	if r.ID == "" || r.SourceID == "" || r.TargetID == "" || !r.Type.Valid() {
		return fmt.Errorf("graph: upsert relationship %q: %w", r.ID, apperr.ErrInvalid)
	}
	md, err := encodeMetadata(r.Metadata)
	if err != nil {
		return fmt.Errorf("graph: upsert relationship %s: %w", r.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO relationships (id, source_id, target_id, relationship_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			metadata = excluded.metadata
	`, r.ID, r.SourceID, r.TargetID, string(r.Type), md, s.timestamp())
	if err != nil {
		return fmt.Errorf("graph: upsert relationship %s: %w", r.ID, err)
	}

	missing, err := missingEntities(ctx, tx, r.SourceID, r.TargetID)
	if err != nil {
		return fmt.Errorf("graph: check endpoints of %s: %w", r.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graph: commit: %w", err)
	}
	if len(missing) > 0 {
		return &apperr.ReferentialWarning{RelationshipID: r.ID, MissingIDs: missing}
	}
	return nil
}

// missingEntities returns the ids (in argument order) with no entity row.
func missingEntities(ctx context.Context, tx *sql.Tx, ids ...string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM entities WHERE id = ?`, id).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
