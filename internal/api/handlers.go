package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc    Service
	notify RunNotifier
}

// NewHandler creates a new Handler.
func NewHandler(svc Service, notify RunNotifier) *Handler {
	return &Handler{svc: svc, notify: notify}
}

// Stats handles GET /api/stats.
//
//	@Summary		Graph counts and the last analysis run
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Graph: st, LastRun: h.svc.LastSummary()})
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities, optionally filtered by type
//	@Tags			graph
//	@Produce		json
//	@Param			type	query		string	false	"Entity type"	Enums(ui_component, state_container, api_endpoint, data_model, service_function)
//	@Success		200		{object}	EntityListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	types := models.EntityTypes
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := models.ParseEntityType(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
			return
		}
		types = []models.EntityType{t}
	}

	items := make([]models.Entity, 0)
	for _, t := range types {
		ents, err := h.svc.EntitiesByType(r.Context(), t)
		if err != nil {
			slog.Error("list entities failed", slog.String("type", string(t)), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		items = append(items, ents...)
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: items, Total: len(items)})
}

// GetEntity handles GET /api/entities/{id}.
//
//	@Summary		Get a single entity
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Entity ID"
//	@Success		200	{object}	models.Entity
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := h.svc.Entity(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("entity not found"))
			return
		}
		slog.Error("get entity failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// RelatedEntities handles GET /api/entities/{id}/related.
//
//	@Summary		Entities connected to an entity in either direction
//	@Tags			graph
//	@Produce		json
//	@Param			id					path		string	true	"Entity ID"
//	@Param			relationship_type	query		string	false	"Relationship type"	Enums(calls, extends, implements, uses)
//	@Success		200					{object}	EntityListResponse
//	@Failure		400					{object}	errResponse
//	@Failure		404					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id}/related [get]
func (h *Handler) RelatedEntities(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var relType models.RelationshipType
	if raw := r.URL.Query().Get("relationship_type"); raw != "" {
		t, err := models.ParseRelationshipType(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown relationship type"))
			return
		}
		relType = t
	}

	if _, err := h.svc.Entity(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("entity not found"))
			return
		}
		slog.Error("get entity failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	items, err := h.svc.RelatedEntities(r.Context(), id, relType)
	if err != nil {
		slog.Error("related entities failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []models.Entity{}
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: items, Total: len(items)})
}

// ListMappings handles GET /api/mappings.
//
//	@Summary		List UI to backend api mappings
//	@Tags			graph
//	@Produce		json
//	@Param			ui_id		query		string	false	"UI entity ID"
//	@Param			backend_id	query		string	false	"Backend entity ID"
//	@Success		200			{object}	MappingListResponse
//	@Security		BearerAuth
//	@Router			/mappings [get]
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.APIMappings(r.Context(), q.Get("ui_id"), q.Get("backend_id"))
	if err != nil {
		slog.Error("list mappings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []models.APIMapping{}
	}
	writeJSON(w, http.StatusOK, MappingListResponse{Mappings: items, Total: len(items)})
}

// Gaps handles GET /api/gaps.
//
//	@Summary		Reconcile declared contracts against backend routes and UI calls
//	@Tags			gaps
//	@Produce		json
//	@Success		200	{object}	gaps.Report
//	@Security		BearerAuth
//	@Router			/gaps [get]
func (h *Handler) Gaps(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.GapReport(r.Context())
	if err != nil {
		slog.Error("gap report failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over extracted entities
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: toSearchResults(results)})
}

// Analyze handles POST /api/analyze.
//
//	@Summary		Run a full analysis pass
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	pipeline.Summary
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Run(r.Context())
	if h.notify != nil {
		h.notify(sum, err)
	}
	if err != nil {
		slog.Error("analysis failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("analysis failed"))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
