package api

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/roadmapper/internal/roadmapservice"
	"github.com/starford/roadmapper/internal/storage"
)

const maxUploadBytes = 1 << 20 // 1 MB

// LibraryHandler serves and accepts roadmap library files.
type LibraryHandler struct {
	svc *roadmapservice.Service
}

// NewLibraryHandler creates a handler backed by the roadmap service.
func NewLibraryHandler(svc *roadmapservice.Service) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

// validName accepts plain roadmap file names only: no separators, no traversal.
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name && storage.IsRoadmapFile(name)
}

// ServeFile handles GET /api/library/{filename}.
func (h *LibraryHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !validName(filename) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
		return
	}
	data, err := h.svc.ReadLibraryFile(filename)
	if err != nil {
		writeError(w, "read library file", err, slog.String("path", filename))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Upload handles POST /api/library (multipart/form-data, field "file").
func (h *LibraryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if !validName(header.Filename) {
		writeJSON(w, http.StatusBadRequest, errorBody("filename must be a plain .txt name"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	d, err := h.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, "upload library file", err, slog.String("path", header.Filename))
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
