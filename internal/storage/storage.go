// Package storage persists per-frame metadata and embeddings and answers
// similarity and temporal-window queries against them.
package storage

import (
	"context"
	"math"

	"github.com/bdougie/videorag/internal/models"
)

// FrameRecord pairs frame metadata with its embedding for insertion.
// Embedding may be nil when no embedder is available; the frame is stored
// anyway so temporal-window retrieval keeps working.
type FrameRecord struct {
	Meta      models.FrameMeta
	Embedding []float32
}

// FrameStore is the vector index plus frame-metadata store. Reads may run
// concurrently with each other but not with writes to the same video.
type FrameStore interface {
	// AddFrames stores the records for one video.
	AddFrames(ctx context.Context, videoID string, records []FrameRecord) error

	// Search returns the frames most similar to the query embedding,
	// ranked by cosine similarity.
	Search(ctx context.Context, embedding []float32, limit int) ([]models.FrameSearchResult, error)

	// TemporalContext returns every stored frame of the video whose
	// timestamp lies within windowSeconds of anchor, inclusive on both
	// bounds, sorted ascending by timestamp. Zero matches yields an
	// empty slice.
	TemporalContext(ctx context.Context, videoID string, anchor, windowSeconds float64) ([]models.FrameMeta, error)

	// Close releases the underlying connection.
	Close() error
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty or zero-length.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
