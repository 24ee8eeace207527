// Package slicer implements adaptive temporal slicing of a video frame
// stream. It scores consecutive frame pairs by mean absolute pixel
// difference, keeps a rolling statistical window of recent scores, and
// retains only frames classified as scene cuts or sustained high motion.
package slicer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bdougie/videorag/internal/models"
)

// Config holds the slicing parameters.
type Config struct {
	// ThresholdMultiplier is how many standard deviations above the mean
	// a score must be to trigger a scene cut.
	ThresholdMultiplier float64
	// MinThreshold is the floor below which the adaptive threshold never drops.
	MinThreshold float64
	// MotionPersistence is how many consecutive transitions must stay above
	// 80% of the threshold to classify as high motion.
	MotionPersistence int
	// WindowSize is the rolling-statistics window capacity.
	WindowSize int
}

// DefaultConfig returns the stock slicing parameters.
func DefaultConfig() Config {
	return Config{
		ThresholdMultiplier: 3.0,
		MinThreshold:        10.0,
		MotionPersistence:   3,
		WindowSize:          100,
	}
}

// Frame is one decoded video frame. Pixels are row-major 8-bit samples,
// Channels wide per pixel (1 for grayscale, 3 for RGB).
type Frame struct {
	Index     int
	Timestamp float64
	Width     int
	Height    int
	Channels  int
	Pixels    []byte
}

// FrameSource yields decoded frames in strictly increasing timestamp order.
// Next returns io.EOF when the stream is exhausted.
type FrameSource interface {
	Next() (*Frame, error)
}

// Slicer holds the mutable state of one ingestion pass. One instance
// handles exactly one video; state is not shared across passes.
type Slicer struct {
	cfg     Config
	history *RollingStats

	motionCounter int
	segmentID     int

	logger *slog.Logger
}

// New creates a slicer for a single video pass.
func New(cfg Config, logger *slog.Logger) *Slicer {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slicer{
		cfg:     cfg,
		history: NewRollingStats(cfg.WindowSize),
		logger:  logger,
	}
}

// Reset clears all pass-local state so the slicer can take another video.
func (s *Slicer) Reset() {
	s.history.Reset()
	s.motionCounter = 0
	s.segmentID = 0
}

// Score computes the mean absolute difference between the intensity
// representations of two frames. Multi-channel frames are converted to
// single-channel luma before differencing. Pure and deterministic for
// identical pixel data.
func Score(prev, curr *Frame) (float64, error) {
	if prev.Width != curr.Width || prev.Height != curr.Height || prev.Channels != curr.Channels {
		return 0, fmt.Errorf("frame geometry mismatch: %dx%dx%d vs %dx%dx%d",
			prev.Width, prev.Height, prev.Channels, curr.Width, curr.Height, curr.Channels)
	}
	n := prev.Width * prev.Height
	if n == 0 {
		return 0, fmt.Errorf("empty frame at index %d", curr.Index)
	}

	var sum int64
	switch prev.Channels {
	case 1:
		for i := 0; i < n; i++ {
			d := int64(prev.Pixels[i]) - int64(curr.Pixels[i])
			if d < 0 {
				d = -d
			}
			sum += d
		}
	case 3:
		for i := 0; i < n; i++ {
			d := luma(prev.Pixels, i*3) - luma(curr.Pixels, i*3)
			if d < 0 {
				d = -d
			}
			sum += d
		}
	default:
		return 0, fmt.Errorf("unsupported channel count %d", prev.Channels)
	}
	return float64(sum) / float64(n), nil
}

// luma converts one RGB triple to Rec. 601 intensity.
func luma(p []byte, off int) int64 {
	return (299*int64(p[off]) + 587*int64(p[off+1]) + 114*int64(p[off+2])) / 1000
}

// Threshold derives the adaptive cut threshold from the current window:
// mean + k*stddev, floored at the configured minimum. An empty window
// yields the minimum.
func (s *Slicer) Threshold() float64 {
	if s.history.Len() == 0 {
		return s.cfg.MinThreshold
	}
	t := s.history.Mean() + s.cfg.ThresholdMultiplier*s.history.StdDev()
	if t < s.cfg.MinThreshold {
		return s.cfg.MinThreshold
	}
	return t
}

type class int

const (
	classOrdinary class = iota
	classSceneCut
	classHighMotion
)

// classify decides the event for one transition and returns the updated
// motion counter. The cut and motion conditions are evaluated
// independently: a cut frame still counts toward motion persistence.
func classify(score, threshold float64, counter, persistence int) (class, int) {
	if score > 0.8*threshold {
		counter++
	} else {
		counter = 0
	}
	switch {
	case score > threshold:
		return classSceneCut, counter
	case counter >= persistence:
		return classHighMotion, counter
	default:
		return classOrdinary, counter
	}
}

// Process runs a single forward pass over src, writing retained frames
// through w and returning one KeyframeRecord per retained frame. The very
// first frame has no predecessor and is never classified. A source error
// mid-stream returns the records produced so far; partial passes are valid.
func (s *Slicer) Process(src FrameSource, w *FrameWriter) ([]models.KeyframeRecord, error) {
	var prev *Frame
	var records []models.KeyframeRecord

	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, fmt.Errorf("frame source failed: %w", err)
		}

		if prev != nil {
			score, err := Score(prev, frame)
			if err != nil {
				return records, err
			}

			// Threshold comes from history that excludes the current
			// score, so a spike cannot mask itself.
			threshold := s.Threshold()
			s.history.Push(score)

			cls, counter := classify(score, threshold, s.motionCounter, s.cfg.MotionPersistence)
			s.motionCounter = counter

			if cls != classOrdinary {
				eventType := models.EventHighMotion
				if cls == classSceneCut {
					// The cut frame opens the new segment.
					s.segmentID++
					eventType = models.EventSceneCut
				}

				path, err := w.Write(frame)
				if err != nil {
					return records, fmt.Errorf("failed to write keyframe: %w", err)
				}

				records = append(records, models.KeyframeRecord{
					Timestamp: frame.Timestamp,
					FramePath: path,
					SegmentID: s.segmentID,
					Type:      eventType,
				})
			}
		}

		prev = frame
	}

	s.logger.Info("adaptive slicing complete",
		"keyframes", len(records), "segments", s.segmentID+1)
	return records, nil
}
