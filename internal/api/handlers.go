package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/roadmapper/internal/index"
	"github.com/starford/roadmapper/internal/roadmapservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *roadmapservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *roadmapservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GenerateRoadmap handles POST /api/roadmaps/generate.
//
//	@Summary		Generate a roadmap for a topic
//	@Tags			roadmaps
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateRequest	true	"Topic to generate"
//	@Success		200		{object}	RoadmapDetail	"Previously generated roadmap"
//	@Success		201		{object}	RoadmapDetail	"Newly generated roadmap"
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roadmaps/generate [post]
func (h *Handler) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic is required"))
		return
	}
	d, created, err := h.svc.Generate(r.Context(), req.Topic, req.Refresh)
	if err != nil {
		writeError(w, "generate roadmap", err, slog.String("topic", req.Topic))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, d)
}

// CreateRoadmap handles POST /api/roadmaps.
//
//	@Summary		Store a hand-written roadmap
//	@Tags			roadmaps
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RoadmapRequest	true	"Roadmap to store"
//	@Success		201		{object}	RoadmapDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roadmaps [post]
func (h *Handler) CreateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req RoadmapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic and text are required"))
		return
	}
	d, err := h.svc.Create(r.Context(), req.Topic, req.Text)
	if err != nil {
		writeError(w, "create roadmap", err, slog.String("topic", req.Topic))
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Parse handles POST /api/parse.
//
//	@Summary		Parse roadmap text without storing it
//	@Tags			roadmaps
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RoadmapRequest	true	"Roadmap text"
//	@Success		200		{object}	ParseResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/parse [post]
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req RoadmapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Parse(r.Context(), req.Topic, req.Text))
}

// ListRoadmaps handles GET /api/roadmaps.
//
//	@Summary		List roadmaps, newest first
//	@Tags			roadmaps
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	RoadmapListResponse
//	@Security		BearerAuth
//	@Router			/roadmaps [get]
func (h *Handler) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list roadmaps", err)
		return
	}
	writeJSON(w, http.StatusOK, RoadmapListResponse{Roadmaps: items, Total: total})
}

// GetRoadmap handles GET /api/roadmaps/{id}.
//
//	@Summary		Get a roadmap with its tree
//	@Tags			roadmaps
//	@Produce		json
//	@Param			id	path		string	true	"Roadmap ID"
//	@Success		200	{object}	RoadmapDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roadmaps/{id} [get]
func (h *Handler) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get roadmap", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetOutline handles GET /api/roadmaps/{id}/outline.
//
//	@Summary		Get the canonical text of a roadmap
//	@Tags			roadmaps
//	@Produce		plain
//	@Param			id	path		string	true	"Roadmap ID"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roadmaps/{id}/outline [get]
func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := h.svc.Outline(r.Context(), id)
	if err != nil {
		writeError(w, "get outline", err, slog.String("id", id))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// DeleteRoadmap handles DELETE /api/roadmaps/{id}.
//
//	@Summary		Delete a roadmap
//	@Tags			roadmaps
//	@Param			id	path	string	true	"Roadmap ID"
//	@Success		204	"Roadmap deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roadmaps/{id} [delete]
func (h *Handler) DeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete roadmap", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportRoadmap handles POST /api/roadmaps/{id}/export.
//
//	@Summary		Write a roadmap into the library
//	@Tags			roadmaps
//	@Produce		json
//	@Param			id	path		string	true	"Roadmap ID"
//	@Success		201	{object}	ExportResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/roadmaps/{id}/export [post]
func (h *Handler) ExportRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := h.svc.Export(r.Context(), id)
	if err != nil {
		writeError(w, "export roadmap", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusCreated, ExportResponse{Path: path})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across roadmaps
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
