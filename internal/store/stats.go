package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string     `json:"db_path"`
	DBSizeBytes int64      `json:"db_size_bytes"`
	Keys        []KeyStats `json:"keys"`
}

// KeyStats describes one stored key.
type KeyStats struct {
	Key       string `json:"key"`
	Bytes     int    `json:"bytes"`
	UpdatedAt string `json:"updated_at"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, LENGTH(value), updated_at
		FROM kv ORDER BY LENGTH(value) DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var k KeyStats
		if err := rows.Scan(&k.Key, &k.Bytes, &k.UpdatedAt); err != nil {
			return st, err
		}
		st.Keys = append(st.Keys, k)
	}

	return st, rows.Err()
}
