package api

import (
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/pipeline"
)

// StatsResponse wraps graph counts and the last run summary.
type StatsResponse struct {
	Graph   *graph.Stats      `json:"graph" validate:"required"`
	LastRun *pipeline.Summary `json:"last_run,omitempty"`
}

// EntityListResponse wraps an entity listing.
type EntityListResponse struct {
	Entities []models.Entity `json:"entities" validate:"required"`
	Total    int             `json:"total" example:"42" validate:"required"`
}

// MappingListResponse wraps api mappings.
type MappingListResponse struct {
	Mappings []models.APIMapping `json:"mappings" validate:"required"`
	Total    int                 `json:"total" example:"3" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	EntityID string `json:"entity_id" example:"9b2c..." validate:"required"`
	Title    string `json:"title" example:"LoginPage" validate:"required"`
	Snippet  string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func toSearchResults(in []graph.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{EntityID: r.EntityID, Title: r.Title, Snippet: r.Snippet}
	}
	return out
}
