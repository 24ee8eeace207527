// Package retrieval answers questions about an ingested video: it grounds
// the question in the temporal graph, finds the best-matching frame in the
// vector store, expands it into a bounded context window, and hands the
// evidence to an answer generator.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdougie/videorag/internal/answer"
	"github.com/bdougie/videorag/internal/config"
	"github.com/bdougie/videorag/internal/embeddings"
	"github.com/bdougie/videorag/internal/graph"
	"github.com/bdougie/videorag/internal/models"
	"github.com/bdougie/videorag/internal/storage"
	"github.com/bdougie/videorag/internal/transcript"
)

// Retriever runs the query-time path. It is read-only against the frame
// store and safe to use concurrently with other readers.
type Retriever struct {
	cfg       *config.Config
	store     storage.FrameStore
	embedder  embeddings.Embedder
	generator answer.Generator
	logger    *slog.Logger
}

// New assembles a retriever.
func New(cfg *config.Config, store storage.FrameStore, embedder embeddings.Embedder, generator answer.Generator, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if generator == nil {
		generator = answer.TextGenerator{}
	}
	return &Retriever{
		cfg:       cfg,
		store:     store,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}
}

// Ask answers one question about one video. It returns
// answer.ErrNoEvidence when neither the graph nor the vector store produced
// anything relevant.
func (r *Retriever) Ask(ctx context.Context, videoID, question string) (string, error) {
	g := graph.New()
	if err := g.Load(r.cfg.GraphPath(videoID)); err != nil {
		return "", fmt.Errorf("failed to load temporal graph: %v", err)
	}
	nodes := g.Search(question)
	r.logger.Debug("graph grounding", "video_id", videoID, "matches", len(nodes))

	frames, anchor, matched := r.contextWindow(ctx, videoID, question)

	ev := answer.Evidence{Nodes: nodes, Frames: frames}
	if matched {
		ev.TranscriptText = r.transcriptText(videoID, anchor)
	}

	return r.generator.Answer(ctx, question, ev)
}

// contextWindow embeds the question, finds the best match, and expands it
// into the symmetric inclusive window. Degrades to no frames when the
// embedder is unavailable or nothing matches.
func (r *Retriever) contextWindow(ctx context.Context, videoID, question string) ([]models.FrameMeta, float64, bool) {
	queryVec, err := r.embedder.EncodeText(ctx, question)
	if err != nil {
		r.logger.Warn("query embedding failed, skipping vector search", "error", err)
		return nil, 0, false
	}
	if queryVec == nil {
		return nil, 0, false
	}

	results, err := r.store.Search(ctx, queryVec, config.DefaultSearchLimit)
	if err != nil {
		r.logger.Warn("vector search failed", "error", err)
		return nil, 0, false
	}
	if len(results) == 0 {
		return nil, 0, false
	}

	// Prefer the best match within the queried video; fall back to the
	// global best when the video has no embedded frames.
	best := results[0]
	for _, res := range results {
		if res.VideoID == videoID {
			best = res
			break
		}
	}

	frames, err := r.store.TemporalContext(ctx, videoID, best.Timestamp, r.cfg.ContextWindowSeconds)
	if err != nil {
		r.logger.Warn("temporal context query failed", "error", err)
		return nil, 0, false
	}

	r.logger.Debug("expanded context window",
		"anchor", best.Timestamp, "window_seconds", r.cfg.ContextWindowSeconds, "frames", len(frames))
	return frames, best.Timestamp, true
}

func (r *Retriever) transcriptText(videoID string, anchor float64) string {
	segments, err := transcript.Load(r.cfg.TranscriptPath(videoID))
	if err != nil {
		r.logger.Warn("failed to load transcript", "error", err)
		return ""
	}
	w := r.cfg.ContextWindowSeconds
	return transcript.TextForWindow(segments, anchor-w, anchor+w)
}
