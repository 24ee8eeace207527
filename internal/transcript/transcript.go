// Package transcript provides the optional audio-transcript overlay. The
// pipeline works without it; when present, transcript text overlapping a
// temporal window is attached to retrieval results.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Segment is one timestamped piece of transcript text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcriber produces timestamped transcript segments for a video.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) ([]Segment, error)
}

// NullTranscriber is the degraded-mode implementation: no transcript.
type NullTranscriber struct{}

// Transcribe returns no segments and no error.
func (NullTranscriber) Transcribe(ctx context.Context, videoPath string) ([]Segment, error) {
	return nil, nil
}

// TextForWindow concatenates the text of every segment overlapping
// [startTime, endTime]. Returns "" when nothing overlaps.
func TextForWindow(segments []Segment, startTime, endTime float64) string {
	var parts []string
	for _, seg := range segments {
		if seg.End < startTime || seg.Start > endTime {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Save writes segments as JSON so query time does not re-run ASR.
func Save(segments []Segment, path string) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write transcript file: %v", err)
	}
	return nil
}

// Load reads previously saved segments. A missing file yields no segments
// and no error.
func Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript file: %v", err)
	}

	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("failed to decode transcript file: %v", err)
	}
	return segments, nil
}
