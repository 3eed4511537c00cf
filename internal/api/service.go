package api

import (
	"context"

	"github.com/starford/stackscope/internal/gaps"
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/pipeline"
)

// Service is what the handlers need from the analysis coordinator.
type Service interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
	LastSummary() *pipeline.Summary
	GapReport(ctx context.Context) (*gaps.Report, error)
	Stats(ctx context.Context) (*graph.Stats, error)
	EntitiesByType(ctx context.Context, t models.EntityType) ([]models.Entity, error)
	Entity(ctx context.Context, id string) (*models.Entity, error)
	RelatedEntities(ctx context.Context, id string, relType models.RelationshipType) ([]models.Entity, error)
	APIMappings(ctx context.Context, uiID, backendID string) ([]models.APIMapping, error)
	Search(ctx context.Context, query string, limit int) ([]graph.SearchResult, error)
}

var _ Service = (*pipeline.Coordinator)(nil)

// RunNotifier is told about every run started through the API.
type RunNotifier func(sum *pipeline.Summary, err error)
