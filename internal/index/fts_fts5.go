//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS roadmaps_fts USING fts5(
			id UNINDEXED,
			topic,
			raw,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, topic, raw string) error {
	_, _ = tx.Exec(`DELETE FROM roadmaps_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO roadmaps_fts (id, topic, raw) VALUES (?, ?, ?)`, id, topic, raw)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM roadmaps_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search and returns matching roadmaps with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       topic,
		       snippet(roadmaps_fts, 2, '<b>', '</b>', '...', 32)
		FROM roadmaps_fts
		WHERE roadmaps_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Topic, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
