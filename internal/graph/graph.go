package graph

import (
	"context"

	"github.com/starford/stackscope/internal/models"
)

// GraphStore is the persistence contract of the entity graph. Consumers
// should depend on this interface rather than on *Store.
type GraphStore interface {
	UpsertEntity(ctx context.Context, e models.Entity) error
	UpsertRelationship(ctx context.Context, r models.Relationship) error
	Entity(ctx context.Context, id string) (*models.Entity, error)
	EntitiesByType(ctx context.Context, t models.EntityType) ([]models.Entity, error)
	RelatedEntities(ctx context.Context, id string, relType models.RelationshipType) ([]models.Entity, error)
	UpsertAPIMapping(ctx context.Context, uiID, backendID, mappingType string, metadata map[string]any) (*models.APIMapping, error)
	APIMappings(ctx context.Context, uiID, backendID string) ([]models.APIMapping, error)
	Stats(ctx context.Context) (*Stats, error)
	EntityFilePaths(ctx context.Context) (map[string]struct{}, error)
	DeleteEntitiesByFile(ctx context.Context, filePath string) (int, error)
	IndexDocument(ctx context.Context, doc Document) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *Store satisfies GraphStore at compile time.
var _ GraphStore = (*Store)(nil)
