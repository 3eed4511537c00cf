package graph

import (
	"context"
	"fmt"
)

// Stats summarises the stored graph.
type Stats struct {
	Entities            int            `json:"entities"`
	Relationships       int            `json:"relationships"`
	APIMappings         int            `json:"api_mappings"`
	EntitiesByType      map[string]int `json:"entities_by_type"`
	EntitiesByLanguage  map[string]int `json:"entities_by_language"`
	RelationshipsByType map[string]int `json:"relationships_by_type"`
}

// Stats returns entity counts by type and language, relationship counts by
// type and the number of API mappings.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		EntitiesByType:      map[string]int{},
		EntitiesByLanguage:  map[string]int{},
		RelationshipsByType: map[string]int{},
	}
	groups := []struct {
		query string
		into  map[string]int
		total *int
	}{
		{`SELECT type, count(*) FROM entities GROUP BY type`, st.EntitiesByType, &st.Entities},
		{`SELECT language, count(*) FROM entities GROUP BY language`, st.EntitiesByLanguage, nil},
		{`SELECT relationship_type, count(*) FROM relationships GROUP BY relationship_type`, st.RelationshipsByType, &st.Relationships},
	}
	for _, g := range groups {
		if err := s.countGroups(ctx, g.query, g.into, g.total); err != nil {
			return nil, err
		}
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM api_mappings`).Scan(&st.APIMappings); err != nil {
		return nil, fmt.Errorf("graph: stats: %w", err)
	}
	return st, nil
}

func (s *Store) countGroups(ctx context.Context, query string, into map[string]int, total *int) error {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("graph: stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
		if total != nil {
			*total += n
		}
	}
	return rows.Err()
}
