package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/roadmapper/internal/apperr"
	"github.com/starford/roadmapper/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Snippet string `json:"snippet"`
}

const roadmapColumns = `id, topic, source, path, checksum, raw, node_count, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoadmap(s scanner) (*models.Roadmap, error) {
	var r models.Roadmap
	if err := s.Scan(&r.ID, &r.Topic, &r.Source, &r.Path, &r.Checksum, &r.Raw, &r.NodeCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertRoadmap inserts or replaces a roadmap and its FTS entry within a transaction.
// created_at is kept from the first insert.
func (db *DB) UpsertRoadmap(r models.Roadmap) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO roadmaps (`+roadmapColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topic      = excluded.topic,
			source     = excluded.source,
			path       = excluded.path,
			checksum   = excluded.checksum,
			raw        = excluded.raw,
			node_count = excluded.node_count,
			updated_at = excluded.updated_at
	`, r.ID, r.Topic, r.Source, r.Path, r.Checksum, r.Raw, r.NodeCount, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert roadmap: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.ID, r.Topic, r.Raw); err != nil {
		return err
	}

	return tx.Commit()
}

// GetRoadmap returns the roadmap with the given id or apperr.ErrNotFound.
func (db *DB) GetRoadmap(id string) (*models.Roadmap, error) {
	row := db.conn.QueryRow(`SELECT `+roadmapColumns+` FROM roadmaps WHERE id = ?`, id)
	r, err := scanRoadmap(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("index: get roadmap: %w", err)
	}
	return r, nil
}

// FindByTopic returns the most recently updated roadmap for topic (case-insensitive)
// from the given source, or apperr.ErrNotFound.
func (db *DB) FindByTopic(topic, source string) (*models.Roadmap, error) {
	row := db.conn.QueryRow(`
		SELECT `+roadmapColumns+`
		FROM roadmaps
		WHERE topic = ? COLLATE NOCASE AND source = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`, topic, source)
	r, err := scanRoadmap(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("index: find by topic: %w", err)
	}
	return r, nil
}

// DeleteRoadmap removes a roadmap and its FTS entry.
func (db *DB) DeleteRoadmap(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM roadmaps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete roadmap: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)

	return tx.Commit()
}

// DeleteByPath removes every library roadmap indexed from path.
func (db *DB) DeleteByPath(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.Query(`SELECT id FROM roadmaps WHERE path = ? AND source = ?`, path, models.SourceLibrary)
	if err != nil {
		return fmt.Errorf("index: lookup path: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		ftsDelete(tx, id)
		if _, err := tx.Exec(`DELETE FROM roadmaps WHERE id = ?`, id); err != nil {
			return fmt.Errorf("index: delete by path: %w", err)
		}
	}
	return tx.Commit()
}

// ListRoadmaps returns a page of roadmaps, newest first, and the total count.
func (db *DB) ListRoadmaps(limit, offset int) ([]models.Roadmap, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM roadmaps`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count roadmaps: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT `+roadmapColumns+`
		FROM roadmaps
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list roadmaps: %w", err)
	}
	defer rows.Close()

	out := []models.Roadmap{}
	for rows.Next() {
		r, err := scanRoadmap(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored checksum for a library path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM roadmaps WHERE path = ? AND source = ?`, path, models.SourceLibrary).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every library-backed roadmap.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM roadmaps WHERE source = ?`, models.SourceLibrary)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
