// Package storage defines the roadmap library file-system abstraction.
package storage

import "github.com/starford/roadmapper/internal/models"

// Ext is the file extension of roadmap library files.
const Ext = ".txt"

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every roadmap file under dir (relative to library root).
	List(dir string) ([]models.LibraryFile, error)
	// Read returns the raw bytes of the file at path (relative to library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to library root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to library root).
	Move(oldPath, newPath string) error
	// Root returns the absolute library directory.
	Root() string
}
