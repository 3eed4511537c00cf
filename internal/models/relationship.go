package models

import (
	"fmt"
	"time"

	"github.com/starford/stackscope/internal/apperr"
)

// RelationshipType is the label of a directed edge.
type RelationshipType string

const (
	RelCalls      RelationshipType = "calls"
	RelExtends    RelationshipType = "extends"
	RelImplements RelationshipType = "implements"
	RelUses       RelationshipType = "uses"
)

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	switch t {
	case RelCalls, RelExtends, RelImplements, RelUses:
		return true
	}
	return false
}

// ParseRelationshipType converts s into a RelationshipType.
func ParseRelationshipType(s string) (RelationshipType, error) {
	t := RelationshipType(s)
	if !t.Valid() {
		return "", fmt.Errorf("models: relationship type %q: %w", s, apperr.ErrInvalid)
	}
	return t, nil
}

// Relationship is a directed edge between two entities.
type Relationship struct {
	ID        string           `json:"id"`
	SourceID  string           `json:"source_id"`
	TargetID  string           `json:"target_id"`
	Type      RelationshipType `json:"relationship_type"`
	Metadata  map[string]any   `json:"metadata"`
	CreatedAt time.Time        `json:"created_at"`
}

// RelationshipID returns the deterministic id for (source, target, type).
func RelationshipID(sourceID, targetID string, t RelationshipType) string {
	return deriveID("relationship", sourceID, targetID, string(t))
}

// NewRelationship builds an edge. Self-edges are rejected.
func NewRelationship(sourceID, targetID string, t RelationshipType, metadata map[string]any) (Relationship, error) {
	if !t.Valid() {
		return Relationship{}, fmt.Errorf("models: relationship type %q: %w", t, apperr.ErrInvalid)
	}
	if sourceID == "" || targetID == "" {
		return Relationship{}, fmt.Errorf("models: relationship needs both endpoints: %w", apperr.ErrInvalid)
	}
	if sourceID == targetID {
		return Relationship{}, fmt.Errorf("models: %s edge on %s: %w", t, sourceID, apperr.ErrSelfReference)
	}
	normalized, err := NormalizeMetadata(metadata)
	if err != nil {
		return Relationship{}, err
	}
	return Relationship{
		ID:       RelationshipID(sourceID, targetID, t),
		SourceID: sourceID,
		TargetID: targetID,
		Type:     t,
		Metadata: normalized,
	}, nil
}

// MappingTypeAPICall labels mappings produced by the cross-reference builder.
const MappingTypeAPICall = "api_call"

// APIMapping ties a UI call site to a backend route.
type APIMapping struct {
	ID              string         `json:"id"`
	UIEntityID      string         `json:"ui_entity_id"`
	BackendEntityID string         `json:"backend_entity_id"`
	MappingType     string         `json:"mapping_type"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
}

// MappingID returns the deterministic id for a (ui, backend) pair.
func MappingID(uiEntityID, backendEntityID string) string {
	return deriveID("mapping", uiEntityID, backendEntityID)
}

// Confidence returns the confidence recorded in the mapping metadata, or 0.
func (m APIMapping) Confidence() float64 {
	if v, ok := m.Metadata["confidence"].(float64); ok {
		return v
	}
	return 0
}

// CallSiteID identifies a UI call site that is not enclosed by any
// component or state container. No entity carries this id, so edges that
// use it are stored with a referential warning.
func CallSiteID(file string, line int) string {
	return deriveID("call_site", file, fmt.Sprint(line))
}
