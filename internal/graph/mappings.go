package graph

import (
	"context"
	"fmt"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/models"
)

// UpsertAPIMapping records that the UI entity uiID calls the backend entity
// backendID. Re-recording the same pair replaces type and metadata.
func (s *Store) UpsertAPIMapping(ctx context.Context, uiID, backendID, mappingType string, metadata map[string]any) (*models.APIMapping, error) {
	if uiID == "" || backendID == "" || mappingType == "" {
		return nil, fmt.Errorf("graph: upsert api mapping: %w", apperr.ErrInvalid)
	}
	md, err := encodeMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("graph: upsert api mapping: %w", err)
	}
	normalized, err := decodeMetadata(md)
	if err != nil {
		return nil, err
	}

	m := &models.APIMapping{
		ID:              models.MappingID(uiID, backendID),
		UIEntityID:      uiID,
		BackendEntityID: backendID,
		MappingType:     mappingType,
		Metadata:        normalized,
		CreatedAt:       s.timestamp(),
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO api_mappings (id, ui_entity_id, backend_entity_id, mapping_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mapping_type = excluded.mapping_type,
			metadata     = excluded.metadata
	`, m.ID, m.UIEntityID, m.BackendEntityID, m.MappingType, md, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("graph: upsert api mapping %s: %w", m.ID, err)
	}
	return m, nil
}

// APIMappings lists mappings, optionally filtered by either side. Empty
// filters match everything.
func (s *Store) APIMappings(ctx context.Context, uiID, backendID string) ([]models.APIMapping, error) {
	query := `SELECT id, ui_entity_id, backend_entity_id, mapping_type, metadata, created_at FROM api_mappings WHERE 1 = 1`
	var args []any
	if uiID != "" {
		query += ` AND ui_entity_id = ?`
		args = append(args, uiID)
	}
	if backendID != "" {
		query += ` AND backend_entity_id = ?`
		args = append(args, backendID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: api mappings: %w", err)
	}
	defer rows.Close()

	out := []models.APIMapping{}
	for rows.Next() {
		var (
			m  models.APIMapping
			md string
		)
		if err := rows.Scan(&m.ID, &m.UIEntityID, &m.BackendEntityID, &m.MappingType, &md, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.Metadata, err = decodeMetadata(md); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
