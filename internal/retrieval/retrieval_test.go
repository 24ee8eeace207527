package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bdougie/videorag/internal/answer"
	"github.com/bdougie/videorag/internal/config"
	"github.com/bdougie/videorag/internal/graph"
	"github.com/bdougie/videorag/internal/models"
	"github.com/bdougie/videorag/internal/storage"
	"github.com/bdougie/videorag/internal/summarizer"
)

// fakeStore serves canned search and window results.
type fakeStore struct {
	searchResults []models.FrameSearchResult
	windowFrames  []models.FrameMeta

	gotAnchor float64
	gotWindow float64
}

func (f *fakeStore) AddFrames(ctx context.Context, videoID string, records []storage.FrameRecord) error {
	return nil
}

func (f *fakeStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.FrameSearchResult, error) {
	return f.searchResults, nil
}

func (f *fakeStore) TemporalContext(ctx context.Context, videoID string, anchor, windowSeconds float64) ([]models.FrameMeta, error) {
	f.gotAnchor = anchor
	f.gotWindow = windowSeconds
	return f.windowFrames, nil
}

func (f *fakeStore) Close() error { return nil }

// fixedEmbedder returns the same vector for any text.
type fixedEmbedder struct{ vec []float32 }

func (e fixedEmbedder) Encode(ctx context.Context, imagePath string) ([]float32, error) {
	return e.vec, nil
}

func (e fixedEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.vec, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config.New() error = %v", err)
	}
	return cfg
}

func saveGraph(t *testing.T, cfg *config.Config, videoID string, summaries []models.SegmentSummary) {
	t.Helper()
	g := graph.New()
	g.Build(summaries)
	if err := g.Save(cfg.GraphPath(videoID)); err != nil {
		t.Fatalf("graph save error = %v", err)
	}
}

func TestAsk_GraphAndWindowEvidence(t *testing.T) {
	cfg := testConfig(t)
	saveGraph(t, cfg, "demo", summarizer.Summarize([]models.KeyframeRecord{
		{Timestamp: 1.0, FramePath: "a.jpg", SegmentID: 1, Type: models.EventSceneCut},
		{Timestamp: 2.0, FramePath: "b.jpg", SegmentID: 1, Type: models.EventHighMotion},
	}))

	store := &fakeStore{
		searchResults: []models.FrameSearchResult{
			{VideoID: "demo", Timestamp: 1.5, FramePath: "a.jpg", Similarity: 0.92},
		},
		windowFrames: []models.FrameMeta{
			{VideoID: "demo", Timestamp: 1.0, FramePath: "a.jpg"},
			{VideoID: "demo", Timestamp: 2.0, FramePath: "b.jpg"},
		},
	}

	r := New(cfg, store, fixedEmbedder{vec: []float32{1, 0}}, answer.TextGenerator{}, nil)
	got, err := r.Ask(context.Background(), "demo", "visual sequence")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(got, "Segment 1") {
		t.Errorf("answer %q does not mention the matching segment", got)
	}

	// The window expansion must use the best match as anchor and the
	// configured width.
	if store.gotAnchor != 1.5 {
		t.Errorf("window anchor = %v, want 1.5", store.gotAnchor)
	}
	if store.gotWindow != cfg.ContextWindowSeconds {
		t.Errorf("window width = %v, want %v", store.gotWindow, cfg.ContextWindowSeconds)
	}
}

func TestAsk_PrefersMatchFromQueriedVideo(t *testing.T) {
	cfg := testConfig(t)
	saveGraph(t, cfg, "demo", nil)

	store := &fakeStore{
		searchResults: []models.FrameSearchResult{
			{VideoID: "other", Timestamp: 9.0, Similarity: 0.99},
			{VideoID: "demo", Timestamp: 4.0, Similarity: 0.80},
		},
		windowFrames: []models.FrameMeta{{VideoID: "demo", Timestamp: 4.0}},
	}

	r := New(cfg, store, fixedEmbedder{vec: []float32{1}}, answer.TextGenerator{}, nil)
	if _, err := r.Ask(context.Background(), "demo", "anything"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if store.gotAnchor != 4.0 {
		t.Errorf("window anchor = %v, want 4.0 (best match within the queried video)", store.gotAnchor)
	}
}

func TestAsk_NoEvidence(t *testing.T) {
	cfg := testConfig(t)
	// No graph file on disk: load is a no-op leaving an empty graph.

	r := New(cfg, &fakeStore{}, fixedEmbedder{vec: nil}, answer.TextGenerator{}, nil)
	_, err := r.Ask(context.Background(), "demo", "what color is the car?")
	if !errors.Is(err, answer.ErrNoEvidence) {
		t.Errorf("Ask() error = %v, want ErrNoEvidence", err)
	}
}

func TestAsk_DegradesWithoutEmbedder(t *testing.T) {
	cfg := testConfig(t)
	saveGraph(t, cfg, "demo", summarizer.Summarize([]models.KeyframeRecord{
		{Timestamp: 0.5, FramePath: "x.jpg", SegmentID: 0, Type: models.EventSceneCut},
	}))

	// Null-style embedder: no vector, so no vector search, but graph
	// grounding still answers.
	r := New(cfg, &fakeStore{}, fixedEmbedder{vec: nil}, answer.TextGenerator{}, nil)
	got, err := r.Ask(context.Background(), "demo", "visual")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(got, "Segment 0") {
		t.Errorf("answer %q does not use graph evidence", got)
	}
}
