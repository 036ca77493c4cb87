package index

import "github.com/starford/roadmapper/internal/models"

// RoadmapIndex defines the interface for roadmap persistence.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type RoadmapIndex interface {
	UpsertRoadmap(r models.Roadmap) error
	GetRoadmap(id string) (*models.Roadmap, error)
	FindByTopic(topic, source string) (*models.Roadmap, error)
	DeleteRoadmap(id string) error
	DeleteByPath(path string) error
	ListRoadmaps(limit, offset int) ([]models.Roadmap, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies RoadmapIndex at compile time.
var _ RoadmapIndex = (*DB)(nil)
