// Package roadmapservice coordinates the generator, the index, and the
// roadmap library.
package roadmapservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	pathpkg "path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/roadmapper/internal/apperr"
	"github.com/starford/roadmapper/internal/checksum"
	"github.com/starford/roadmapper/internal/generator"
	"github.com/starford/roadmapper/internal/index"
	"github.com/starford/roadmapper/internal/models"
	"github.com/starford/roadmapper/internal/parser"
	"github.com/starford/roadmapper/internal/storage"
)

// Detail is a stored roadmap together with its parsed tree.
type Detail struct {
	models.Roadmap
	Tree  *parser.Tree `json:"tree"`
	Stats parser.Stats `json:"stats"`
}

// ListItem is a lightweight item in a list response.
type ListItem struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Source    string    `json:"source"`
	Path      string    `json:"path,omitempty"`
	NodeCount int       `json:"node_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseResult is the outcome of parsing text that is not stored.
type ParseResult struct {
	Tree  *parser.Tree `json:"tree"`
	Stats parser.Stats `json:"stats"`
}

// Service coordinates generation, parsing, storage, and index operations.
type Service struct {
	db       index.RoadmapIndex
	store    storage.Provider
	gen      generator.Generator
	match    parser.MatchMode
	onChange index.EventCallback
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator sets the generator used by Generate.
func WithGenerator(g generator.Generator) Option {
	return func(s *Service) {
		s.gen = g
	}
}

// WithMatchMode sets how references are resolved when trees are built.
func WithMatchMode(m parser.MatchMode) Option {
	return func(s *Service) {
		s.match = m
	}
}

// WithChangeCallback registers fn to be called after every index mutation.
func WithChangeCallback(fn index.EventCallback) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

// WithLogger sets the logger. The default logger is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a new roadmap service.
func NewService(db index.RoadmapIndex, store storage.Provider, opts ...Option) *Service {
	s := &Service{db: db, store: store, match: parser.MatchSuffix}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Generate returns a generated roadmap for topic. A previously generated
// roadmap for the same topic is reused unless refresh is set. The boolean
// reports whether a new generation took place.
func (s *Service) Generate(ctx context.Context, topic string, refresh bool) (*Detail, bool, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, false, fmt.Errorf("topic is required: %w", apperr.ErrInvalidInput)
	}

	existing, err := s.db.FindByTopic(topic, models.SourceGenerated)
	switch {
	case err == nil && !refresh:
		return s.detail(existing), false, nil
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return nil, false, err
	}

	if s.gen == nil {
		return nil, false, fmt.Errorf("no generator configured: %w", apperr.ErrGeneration)
	}
	raw, err := s.gen.Generate(ctx, topic)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, false, fmt.Errorf("generator returned empty text: %w", apperr.ErrGeneration)
	}

	r := models.Roadmap{ID: uuid.NewString(), Topic: topic, Source: models.SourceGenerated}
	kind := index.ChangeCreated
	if existing != nil {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		kind = index.ChangeUpdated
	}
	d, err := s.save(r, raw)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("roadmap generated",
		slog.String("id", d.ID),
		slog.String("topic", topic),
		slog.Int("nodes", d.Stats.Nodes))
	s.emit(kind, d.ID, "")
	return d, true, nil
}

// Create stores manually written roadmap text under topic.
func (s *Service) Create(_ context.Context, topic, text string) (*Detail, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", apperr.ErrInvalidInput)
	}
	d, err := s.save(models.Roadmap{ID: uuid.NewString(), Topic: topic, Source: models.SourceManual}, text)
	if err != nil {
		return nil, err
	}
	s.emit(index.ChangeCreated, d.ID, "")
	return d, nil
}

// Parse builds a tree from text without storing anything.
func (s *Service) Parse(_ context.Context, topic, text string) *ParseResult {
	tree := s.parse(text, strings.TrimSpace(topic))
	return &ParseResult{Tree: tree, Stats: tree.Stats()}
}

// Get returns a stored roadmap with its tree.
func (s *Service) Get(_ context.Context, id string) (*Detail, error) {
	r, err := s.db.GetRoadmap(id)
	if err != nil {
		return nil, err
	}
	return s.detail(r), nil
}

// Outline returns the canonical text form of a stored roadmap.
func (s *Service) Outline(ctx context.Context, id string) (string, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return parser.Format(d.Tree), nil
}

// List returns a page of roadmaps, newest first.
func (s *Service) List(_ context.Context, limit, offset int) ([]ListItem, int, error) {
	rows, total, err := s.db.ListRoadmaps(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ListItem, len(rows))
	for i, r := range rows {
		items[i] = ListItem{
			ID:        r.ID,
			Topic:     r.Topic,
			Source:    r.Source,
			Path:      r.Path,
			NodeCount: r.NodeCount,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Delete removes a roadmap from the index. Library roadmaps also lose their file.
func (s *Service) Delete(_ context.Context, id string) error {
	r, err := s.db.GetRoadmap(id)
	if err != nil {
		return err
	}
	// Row before file: the watcher ignores removals of unindexed paths.
	if err := s.db.DeleteRoadmap(id); err != nil {
		return err
	}
	if r.Source == models.SourceLibrary && r.Path != "" {
		if err := s.store.Delete(r.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	s.emit(index.ChangeDeleted, id, r.Path)
	return nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", apperr.ErrInvalidInput)
	}
	return s.db.Search(query, limit)
}

// Export writes a stored roadmap into the library and returns its path.
// Library roadmaps already have a file, so their path is returned as is.
func (s *Service) Export(ctx context.Context, id string) (string, error) {
	r, err := s.db.GetRoadmap(id)
	if err != nil {
		return "", err
	}
	if r.Source == models.SourceLibrary {
		return r.Path, nil
	}
	path := storage.FileName(r.Topic)
	if _, err := s.Upload(ctx, path, storage.EncodeRoadmap(r.Topic, r.Raw)); err != nil {
		return "", err
	}
	return path, nil
}

// Import writes topic and text to the library as filename and indexes it.
// An empty filename is derived from the topic.
func (s *Service) Import(ctx context.Context, topic, text, filename string) (*Detail, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required: %w", apperr.ErrInvalidInput)
	}
	if filename == "" {
		filename = storage.FileName(topic)
	}
	return s.Upload(ctx, filename, storage.EncodeRoadmap(topic, text))
}

// Upload stores a library file verbatim and indexes it. Existing files are
// never overwritten.
func (s *Service) Upload(_ context.Context, path string, data []byte) (*Detail, error) {
	path = pathpkg.Clean(strings.TrimPrefix(strings.TrimSpace(path), "/"))
	if !strings.HasSuffix(path, storage.Ext) {
		path += storage.Ext
	}
	if path == ".."+storage.Ext || strings.HasPrefix(path, "../") || !storage.IsRoadmapFile(path) || storage.TopicFromPath(path) == "" {
		return nil, fmt.Errorf("invalid library file name %q: %w", path, apperr.ErrInvalidInput)
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	return s.indexFile(path, data)
}

// ReadLibraryFile returns the raw bytes of a library file.
func (s *Service) ReadLibraryFile(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// IndexFile parses a library file and upserts it into the index. No change
// is emitted when the index already holds the same content, as happens when
// a library watcher picked the file up first.
func (s *Service) IndexFile(path string, data []byte) (*models.Roadmap, error) {
	d, err := s.indexFile(path, data)
	if err != nil {
		return nil, err
	}
	return &d.Roadmap, nil
}

func (s *Service) indexFile(path string, data []byte) (*Detail, error) {
	prev, err := s.db.GetChecksum(path)
	if err != nil {
		return nil, err
	}
	var orphans int
	r, tree, err := index.IndexFile(s.db, path, data, s.parseOptions(path, &orphans)...)
	if err != nil {
		return nil, err
	}
	s.warnOrphans(r.Topic, orphans)
	if prev != r.Checksum {
		kind := index.ChangeUpdated
		if prev == "" {
			kind = index.ChangeCreated
		}
		s.emit(kind, r.ID, path)
	}
	stored, err := s.db.GetRoadmap(r.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Roadmap: *stored, Tree: tree, Stats: tree.Stats()}, nil
}

// save parses raw, fills in the derived fields of r, and upserts it.
func (s *Service) save(r models.Roadmap, raw string) (*Detail, error) {
	raw = strings.TrimSpace(raw)
	tree := s.parse(raw, r.Topic)
	stats := tree.Stats()

	r.Raw = raw
	r.Checksum = checksum.Roadmap(r.Topic, raw)
	r.NodeCount = stats.Nodes
	r.UpdatedAt = time.Now().UTC()
	if err := s.db.UpsertRoadmap(r); err != nil {
		return nil, err
	}
	stored, err := s.db.GetRoadmap(r.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Roadmap: *stored, Tree: tree, Stats: stats}, nil
}

func (s *Service) detail(r *models.Roadmap) *Detail {
	tree := parser.Parse(r.Raw, r.Topic, parser.WithMatchMode(s.match))
	return &Detail{Roadmap: *r, Tree: tree, Stats: tree.Stats()}
}

// parse builds a tree and logs what the parser had to tolerate.
func (s *Service) parse(raw, topic string) *parser.Tree {
	var orphans int
	tree := parser.Parse(raw, topic, s.parseOptions(topic, &orphans)...)
	s.warnOrphans(topic, orphans)
	return tree
}

// parseOptions applies the configured match mode and logs each diagnostic
// under label, counting orphans into orphans.
func (s *Service) parseOptions(label string, orphans *int) []parser.Option {
	return []parser.Option{
		parser.WithMatchMode(s.match),
		parser.WithDiagnosticSink(func(d parser.Diagnostic) {
			if d.Kind == parser.DiagOrphan {
				*orphans++
			}
			s.logger.Debug("parse diagnostic",
				slog.String("roadmap", label),
				slog.Int("line", d.Line),
				slog.String("kind", string(d.Kind)),
				slog.String("text", d.Text))
		}),
	}
}

func (s *Service) warnOrphans(topic string, n int) {
	if n > 0 {
		s.logger.Warn("roadmap has orphaned entries",
			slog.String("topic", topic),
			slog.Int("orphans", n))
	}
}

func (s *Service) emit(kind, id, path string) {
	if s.onChange != nil {
		s.onChange(index.Change{Kind: kind, ID: id, Path: path})
	}
}
