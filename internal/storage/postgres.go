package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/videorag/internal/models"
)

// PostgresConfig holds connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (c PostgresConfig) connString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}

// PostgresStore is a FrameStore backed by PostgreSQL with the pgvector
// extension. Similarity queries use the cosine distance operator.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, config.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// getOrCreateVideo gets an existing video entry or creates a new one.
func (s *PostgresStore) getOrCreateVideo(ctx context.Context, videoID string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM videos WHERE name = $1",
		videoID).Scan(&id)

	if err == nil {
		return id, nil
	} else if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("error checking for existing video: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"INSERT INTO videos (name, created_at) VALUES ($1, $2) RETURNING id",
		videoID, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create video entry: %w", err)
	}

	return id, nil
}

// AddFrames stores frame metadata and embeddings for one video.
func (s *PostgresStore) AddFrames(ctx context.Context, videoID string, records []FrameRecord) error {
	if len(records) == 0 {
		return nil
	}

	id, err := s.getOrCreateVideo(ctx, videoID)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		var embedding interface{}
		if len(rec.Embedding) > 0 {
			embedding = pgvector.NewVector(rec.Embedding)
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO frames
			(video_id, timestamp, frame_path, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			id, rec.Meta.Timestamp, rec.Meta.FramePath, embedding, time.Now())
		if err != nil {
			return fmt.Errorf("failed to store frame at %.3fs: %w", rec.Meta.Timestamp, err)
		}
	}

	return tx.Commit(ctx)
}

// Search finds the stored frames most similar to the query embedding.
func (s *PostgresStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.FrameSearchResult, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT v.name, f.timestamp, f.frame_path,
		1 - (f.embedding <=> $1) AS similarity
		FROM frames f
		JOIN videos v ON f.video_id = v.id
		WHERE f.embedding IS NOT NULL
		ORDER BY f.embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar frames: %w", err)
	}
	defer rows.Close()

	var results []models.FrameSearchResult
	for rows.Next() {
		var result models.FrameSearchResult
		if err := rows.Scan(&result.VideoID, &result.Timestamp,
			&result.FramePath, &result.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// TemporalContext returns the frames of a video within the symmetric,
// inclusive time window around anchor, sorted ascending by timestamp.
func (s *PostgresStore) TemporalContext(ctx context.Context, videoID string, anchor, windowSeconds float64) ([]models.FrameMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT v.name, f.timestamp, f.frame_path
		FROM frames f
		JOIN videos v ON f.video_id = v.id
		WHERE v.name = $1 AND f.timestamp BETWEEN $2 AND $3
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

// InitPostgresSchema creates the database schema if it doesn't exist.
// embeddingDim fixes the pgvector column width.
func InitPostgresSchema(ctx context.Context, config PostgresConfig, embeddingDim int) error {
	conn, err := pgx.Connect(ctx, config.connString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS videos (
            id SERIAL PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            UNIQUE(name)
        );

        CREATE TABLE IF NOT EXISTS frames (
            id SERIAL PRIMARY KEY,
            video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
            timestamp DOUBLE PRECISION NOT NULL,
            frame_path VARCHAR(1024) NOT NULL,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL
        );
    `, embeddingDim))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_frames_video_id ON frames(video_id);
        CREATE INDEX IF NOT EXISTS idx_frames_video_ts ON frames(video_id, timestamp);
    `)
	if err != nil {
		return fmt.Errorf("failed to create database indexes: %w", err)
	}

	return nil
}
