// Package ingest orchestrates one full ingestion pass: decode frames,
// adaptively slice them into keyframes, embed and store the keyframes, and
// build the persisted temporal graph.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bdougie/videorag/internal/config"
	"github.com/bdougie/videorag/internal/embeddings"
	"github.com/bdougie/videorag/internal/extractor"
	"github.com/bdougie/videorag/internal/graph"
	"github.com/bdougie/videorag/internal/models"
	"github.com/bdougie/videorag/internal/slicer"
	"github.com/bdougie/videorag/internal/storage"
	"github.com/bdougie/videorag/internal/summarizer"
	"github.com/bdougie/videorag/internal/transcript"
)

// frameStream is a closeable frame source, satisfied by extractor.FrameStream.
type frameStream interface {
	slicer.FrameSource
	Close() error
}

// Pipeline wires the ingestion stages together. One ProcessVideo call runs
// a single strictly sequential pass; a Pipeline may be reused across videos
// because the slicer is created fresh per call.
type Pipeline struct {
	cfg         *config.Config
	embedSvc    *embeddings.Service
	store       storage.FrameStore
	transcriber transcript.Transcriber
	logger      *slog.Logger

	openStream func(videoPath string) (frameStream, error)
}

// Result reports what one ingestion pass produced.
type Result struct {
	VideoID        string
	Keyframes      int
	Segments       int
	GraphPath      string
	TranscriptPath string
}

// New assembles a pipeline.
func New(cfg *config.Config, embedSvc *embeddings.Service, store storage.FrameStore, transcriber transcript.Transcriber, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if transcriber == nil {
		transcriber = transcript.NullTranscriber{}
	}
	return &Pipeline{
		cfg:         cfg,
		embedSvc:    embedSvc,
		store:       store,
		transcriber: transcriber,
		logger:      logger,
		openStream: func(videoPath string) (frameStream, error) {
			return extractor.Open(videoPath)
		},
	}
}

// VideoID derives the store identifier from the video filename.
func VideoID(videoPath string) string {
	return strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
}

// ProcessVideo runs the full ingestion pass. An unreadable or empty source
// yields a zero-keyframe result, not an error: the graph file is still
// written (possibly empty) so the query path stays consistent. A stream
// that fails mid-pass keeps whatever keyframes were already retained;
// partial ingestion is never rolled back.
func (p *Pipeline) ProcessVideo(ctx context.Context, videoPath string) (*Result, error) {
	videoID := VideoID(videoPath)
	result := &Result{
		VideoID:   videoID,
		GraphPath: p.cfg.GraphPath(videoID),
	}

	p.logger.Info("processing video", "path", videoPath, "video_id", videoID)

	records, err := p.sliceVideo(videoPath, videoID)
	if err != nil {
		if len(records) > 0 {
			p.logger.Warn("frame stream ended early, keeping partial pass",
				"path", videoPath, "keyframes", len(records), "error", err)
		} else {
			p.logger.Warn("video source unreadable, ingestion yields no keyframes",
				"path", videoPath, "error", err)
		}
	}
	result.Keyframes = len(records)

	if len(records) > 0 {
		if err := p.embedAndStore(ctx, videoID, records); err != nil {
			return result, err
		}
	} else {
		p.logger.Info("no keyframes extracted", "video_id", videoID)
	}

	summaries := summarizer.Summarize(records)
	result.Segments = len(summaries)

	g := graph.New()
	g.Build(summaries)
	if err := g.Save(result.GraphPath); err != nil {
		return result, fmt.Errorf("failed to persist temporal graph: %v", err)
	}
	p.logger.Info("built temporal graph",
		"nodes", len(g.Nodes), "edges", len(g.Edges), "path", result.GraphPath)

	if path, err := p.transcribe(ctx, videoPath, videoID); err != nil {
		p.logger.Warn("transcription unavailable", "error", err)
	} else {
		result.TranscriptPath = path
	}

	return result, nil
}

// sliceVideo runs the single forward pass over the decoded frame stream.
func (p *Pipeline) sliceVideo(videoPath, videoID string) ([]models.KeyframeRecord, error) {
	stream, err := p.openStream(videoPath)
	if err != nil {
		return nil, err
	}

	writer, err := slicer.NewFrameWriter(filepath.Join(p.cfg.FramesDir(), videoID))
	if err != nil {
		stream.Close()
		return nil, err
	}

	s := slicer.New(slicer.Config{
		ThresholdMultiplier: p.cfg.ThresholdMultiplier,
		MinThreshold:        p.cfg.MinThreshold,
		MotionPersistence:   p.cfg.MotionPersistence,
		WindowSize:          p.cfg.WindowSize,
	}, p.logger)

	records, err := s.Process(stream, writer)
	if closeErr := stream.Close(); closeErr != nil && err == nil {
		p.logger.Warn("frame stream closed uncleanly", "error", closeErr)
	}
	return records, err
}

// embedAndStore embeds the retained frames and persists metadata plus
// vectors. Embedding failures degrade to metadata-only storage.
func (p *Pipeline) embedAndStore(ctx context.Context, videoID string, records []models.KeyframeRecord) error {
	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = rec.FramePath
	}

	vectors, errs := p.embedSvc.EncodeAll(paths)
	for _, err := range errs {
		p.logger.Warn("frame embedding failed, storing metadata only", "error", err)
	}

	frameRecords := make([]storage.FrameRecord, len(records))
	for i, rec := range records {
		frameRecords[i] = storage.FrameRecord{
			Meta: models.FrameMeta{
				VideoID:   videoID,
				Timestamp: rec.Timestamp,
				FramePath: rec.FramePath,
			},
			Embedding: vectors[i],
		}
	}

	if err := p.store.AddFrames(ctx, videoID, frameRecords); err != nil {
		return fmt.Errorf("failed to store frames: %w", err)
	}
	p.logger.Info("stored keyframes", "video_id", videoID, "count", len(frameRecords))
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, videoPath, videoID string) (string, error) {
	segments, err := p.transcriber.Transcribe(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", nil
	}

	path := p.cfg.TranscriptPath(videoID)
	if err := transcript.Save(segments, path); err != nil {
		return "", err
	}
	p.logger.Info("saved transcript", "segments", len(segments), "path", path)
	return path, nil
}
