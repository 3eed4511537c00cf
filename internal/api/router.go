package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// notify, if non-nil, receives the outcome of POST /analyze.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler, notify RunNotifier) chi.Router {
	h := NewHandler(svc, notify)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/stats", h.Stats)

	r.Get("/entities", h.ListEntities)
	r.Get("/entities/{id}", h.GetEntity)
	r.Get("/entities/{id}/related", h.RelatedEntities)

	r.Get("/mappings", h.ListMappings)
	r.Get("/gaps", h.Gaps)
	r.Get("/search", h.Search)

	r.Post("/analyze", h.Analyze)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
