package api

import (
	"github.com/starford/roadmapper/internal/index"
	"github.com/starford/roadmapper/internal/roadmapservice"
)

// GenerateRequest is the request body for generating a roadmap.
type GenerateRequest struct {
	Topic   string `json:"topic" example:"Go" validate:"required"`
	Refresh bool   `json:"refresh" example:"false"`
}

// RoadmapRequest is the request body for storing or parsing roadmap text.
type RoadmapRequest struct {
	Topic string `json:"topic" example:"Go" validate:"required"`
	Text  string `json:"text" example:"| Basics\n|| Syntax" validate:"required"`
}

// RoadmapDetail is the full roadmap response type (aliased from the domain layer).
type RoadmapDetail = roadmapservice.Detail

// RoadmapListItem is a lightweight item in a list response (aliased from the domain layer).
type RoadmapListItem = roadmapservice.ListItem

// ParseResponse is the result of a stateless parse.
type ParseResponse = roadmapservice.ParseResult

// RoadmapListResponse wraps paginated roadmap listings.
type RoadmapListResponse struct {
	Roadmaps []RoadmapListItem `json:"roadmaps" validate:"required"`
	Total    int               `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ExportResponse is returned after a roadmap is written to the library.
type ExportResponse struct {
	Path string `json:"path" example:"go.txt" validate:"required"`
}
