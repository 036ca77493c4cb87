// Package models defines the domain types for Roadmapper.
package models

import "time"

// Roadmap sources.
const (
	SourceGenerated = "generated"
	SourceManual    = "manual"
	SourceLibrary   = "library"
)

// Roadmap is a stored piece of roadmap text and where it came from.
type Roadmap struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	Path      string    `json:"path,omitempty"`
	Raw       string    `json:"raw"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LibraryFile is a lightweight representation returned by library listings.
type LibraryFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
