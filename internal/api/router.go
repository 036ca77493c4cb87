package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/roadmapper/internal/roadmapservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *roadmapservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	lh := NewLibraryHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Roadmaps.
	r.Post("/roadmaps/generate", h.GenerateRoadmap)
	r.Post("/roadmaps", h.CreateRoadmap)
	r.Get("/roadmaps", h.ListRoadmaps)
	r.Get("/roadmaps/{id}", h.GetRoadmap)
	r.Get("/roadmaps/{id}/outline", h.GetOutline)
	r.Delete("/roadmaps/{id}", h.DeleteRoadmap)
	r.Post("/roadmaps/{id}/export", h.ExportRoadmap)

	// Stateless parsing.
	r.Post("/parse", h.Parse)

	// Search.
	r.Get("/search", h.Search)

	// Library files.
	r.Post("/library", lh.Upload)
	r.Get("/library/{filename}", lh.ServeFile)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
