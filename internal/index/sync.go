package index

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/roadmapper/internal/checksum"
	"github.com/starford/roadmapper/internal/models"
	"github.com/starford/roadmapper/internal/parser"
	"github.com/starford/roadmapper/internal/storage"
)

// LibraryNamespace seeds the name-based IDs of library roadmaps, so a file
// keeps its ID across restarts and re-syncs.
var LibraryNamespace = uuid.MustParse("6f2d4b8e-3c1a-5e7f-9a0b-1c2d3e4f5a6b")

// LibraryID returns the stable roadmap ID for a library path.
func LibraryID(path string) string {
	return uuid.NewSHA1(LibraryNamespace, []byte(path)).String()
}

// Sync walks the library and brings the index up to date:
//   - new/changed files are parsed with opts and upserted
//   - files removed from disk are deleted from the index
func Sync(db RoadmapIndex, store storage.Provider, logger *slog.Logger, opts ...parser.Option) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, _, err := IndexFile(db, m.Path, data, opts...); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteByPath(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile decodes a library file, parses it with opts, and upserts it into
// the index. The parsed tree is returned alongside the stored row.
func IndexFile(db RoadmapIndex, path string, data []byte, opts ...parser.Option) (*models.Roadmap, *parser.Tree, error) {
	topic, raw := storage.DecodeRoadmap(path, data)
	tree := parser.Parse(raw, topic, opts...)

	r := models.Roadmap{
		ID:        LibraryID(path),
		Topic:     topic,
		Source:    models.SourceLibrary,
		Path:      path,
		Raw:       raw,
		Checksum:  checksum.Sum(data),
		NodeCount: tree.Stats().Nodes,
	}
	if err := db.UpsertRoadmap(r); err != nil {
		return nil, nil, err
	}
	return &r, tree, nil
}
