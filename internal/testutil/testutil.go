// Package testutil provides shared test helpers for setting up libraries,
// databases, and services.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/roadmapper/internal/generator"
	"github.com/starford/roadmapper/internal/index"
	"github.com/starford/roadmapper/internal/roadmapservice"
	"github.com/starford/roadmapper/internal/storage"
)

// GoRoadmap is a small roadmap used across tests.
const GoRoadmap = `| Basics
|| Syntax
|| Types -> Syntax
| Concurrency -> Basics
|| Goroutines
||| Channels -> Goroutines`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "roadmapper-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	libDir := t.TempDir()
	store, err := storage.NewFS(libDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// WriteFile writes a library file below dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// QuietLogger discards everything below error level.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// CountingGenerator returns text for every topic and counts its calls.
type CountingGenerator struct {
	Text  string
	Calls int
}

// Generate implements generator.Generator.
func (g *CountingGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.Calls++
	return g.Text, nil
}

var _ generator.Generator = (*CountingGenerator)(nil)

// TestService wires a service over a temporary library and database.
func TestService(t *testing.T, opts ...roadmapservice.Option) (*roadmapservice.Service, *index.DB, string) {
	t.Helper()
	libDir, store := TestLibrary(t)
	db := TestDB(t)
	opts = append([]roadmapservice.Option{roadmapservice.WithLogger(QuietLogger())}, opts...)
	return roadmapservice.NewService(db, store, opts...), db, libDir
}
