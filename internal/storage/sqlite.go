package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/bdougie/videorag/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS videos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS frames (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    video_id INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
    timestamp REAL NOT NULL,
    frame_path TEXT NOT NULL,
    embedding TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_frames_video_ts ON frames(video_id, timestamp);
`

// SQLiteStore is an embedded FrameStore used when no PostgreSQL instance is
// configured. Embeddings are stored as JSON and similarity is computed in
// process, which is adequate for single-machine corpora.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) getOrCreateVideo(ctx context.Context, videoID string) (int64, error) {
	var id int64
	err := s.conn.QueryRowContext(ctx,
		"SELECT id FROM videos WHERE name = ?", videoID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("error checking for existing video: %w", err)
	}

	res, err := s.conn.ExecContext(ctx,
		"INSERT INTO videos (name) VALUES (?)", videoID)
	if err != nil {
		return 0, fmt.Errorf("failed to create video entry: %w", err)
	}
	return res.LastInsertId()
}

// AddFrames stores frame metadata and embeddings for one video.
func (s *SQLiteStore) AddFrames(ctx context.Context, videoID string, records []FrameRecord) error {
	if len(records) == 0 {
		return nil
	}

	id, err := s.getOrCreateVideo(ctx, videoID)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		var embedding interface{}
		if len(rec.Embedding) > 0 {
			data, err := json.Marshal(rec.Embedding)
			if err != nil {
				return fmt.Errorf("failed to encode embedding: %w", err)
			}
			embedding = string(data)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO frames (video_id, timestamp, frame_path, embedding)
			VALUES (?, ?, ?, ?)`,
			id, rec.Meta.Timestamp, rec.Meta.FramePath, embedding)
		if err != nil {
			return fmt.Errorf("failed to store frame at %.3fs: %w", rec.Meta.Timestamp, err)
		}
	}

	return tx.Commit()
}

// Search ranks stored frames against the query embedding by cosine
// similarity computed in process.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.FrameSearchResult, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT v.name, f.timestamp, f.frame_path, f.embedding
		FROM frames f
		JOIN videos v ON f.video_id = v.id
		WHERE f.embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var results []models.FrameSearchResult
	for rows.Next() {
		var result models.FrameSearchResult
		var stored string
		if err := rows.Scan(&result.VideoID, &result.Timestamp,
			&result.FramePath, &stored); err != nil {
			return nil, fmt.Errorf("failed to scan frame row: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(stored), &vec); err != nil {
			return nil, fmt.Errorf("failed to decode stored embedding: %w", err)
		}
		result.Similarity = cosineSimilarity(embedding, vec)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// TemporalContext returns the frames of a video within the symmetric,
// inclusive time window around anchor, sorted ascending by timestamp.
func (s *SQLiteStore) TemporalContext(ctx context.Context, videoID string, anchor, windowSeconds float64) ([]models.FrameMeta, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT v.name, f.timestamp, f.frame_path
		FROM frames f
		JOIN videos v ON f.video_id = v.id
		WHERE v.name = ? AND f.timestamp BETWEEN ? AND ?
		ORDER BY f.timestamp`,
		videoID, anchor-windowSeconds, anchor+windowSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to query temporal context: %w", err)
	}
	defer rows.Close()

	results := []models.FrameMeta{}
	for rows.Next() {
		var meta models.FrameMeta
		if err := rows.Scan(&meta.VideoID, &meta.Timestamp, &meta.FramePath); err != nil {
			return nil, fmt.Errorf("failed to scan frame metadata: %w", err)
		}
		results = append(results, meta)
	}

	return results, rows.Err()
}
