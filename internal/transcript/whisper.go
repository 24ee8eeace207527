package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// WhisperCLI runs the whisper command-line tool and parses its JSON output.
type WhisperCLI struct {
	model  string
	logger *slog.Logger
}

// NewWhisperCLI returns a transcriber backed by the whisper binary, or an
// error when the binary is not on PATH so the caller can fall back to
// NullTranscriber.
func NewWhisperCLI(model string, logger *slog.Logger) (*WhisperCLI, error) {
	if _, err := exec.LookPath("whisper"); err != nil {
		return nil, fmt.Errorf("whisper is not installed: %v", err)
	}
	if model == "" {
		model = "small"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperCLI{model: model, logger: logger}, nil
}

type whisperOutput struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs whisper over the full video and returns its segments.
func (w *WhisperCLI) Transcribe(ctx context.Context, videoPath string) ([]Segment, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}

	outDir, err := os.MkdirTemp("", "videorag-asr-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx,
		"whisper", videoPath,
		"--model", w.model,
		"--output_format", "json",
		"--output_dir", outDir,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper failed: %v\nOutput: %s", err, string(output))
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %v", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %v", err)
	}

	segments := make([]Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	w.logger.Info("transcription complete", "segments", len(segments))
	return segments, nil
}
