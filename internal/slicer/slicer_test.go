package slicer

import (
	"io"
	"math"
	"testing"

	"github.com/bdougie/videorag/internal/models"
)

// sliceSource feeds pre-built frames to the slicer.
type sliceSource struct {
	frames []*Frame
	pos    int
}

func (s *sliceSource) Next() (*Frame, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// grayFrame builds an 8x8 single-channel frame filled with value.
func grayFrame(value byte, index int, timestamp float64) *Frame {
	pixels := make([]byte, 64)
	for i := range pixels {
		pixels[i] = value
	}
	return &Frame{
		Index:     index,
		Timestamp: timestamp,
		Width:     8,
		Height:    8,
		Channels:  1,
		Pixels:    pixels,
	}
}

func graySequence(values []byte) []*Frame {
	frames := make([]*Frame, len(values))
	for i, v := range values {
		frames[i] = grayFrame(v, i, float64(i)/30.0)
	}
	return frames
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a, b byte
		want float64
	}{
		{"identical", 100, 100, 0},
		{"max difference", 0, 255, 255},
		{"small difference", 50, 59, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(grayFrame(tt.a, 0, 0), grayFrame(tt.b, 1, 0.033))
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_RGBConvertsToIntensity(t *testing.T) {
	// Both frames are uniform colors; the score must be the luma
	// difference, not a per-channel one.
	rgb := func(r, g, b byte, idx int) *Frame {
		pixels := make([]byte, 4*4*3)
		for i := 0; i < 16; i++ {
			pixels[i*3] = r
			pixels[i*3+1] = g
			pixels[i*3+2] = b
		}
		return &Frame{Index: idx, Width: 4, Height: 4, Channels: 3, Pixels: pixels}
	}

	got, err := Score(rgb(255, 0, 0, 0), rgb(0, 0, 255, 1))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	// luma(red)=76, luma(blue)=29
	if want := 47.0; got != want {
		t.Errorf("Score() = %v, want %v", got, want)
	}
}

func TestScore_GeometryMismatch(t *testing.T) {
	a := grayFrame(0, 0, 0)
	b := &Frame{Index: 1, Width: 4, Height: 4, Channels: 1, Pixels: make([]byte, 16)}
	if _, err := Score(a, b); err == nil {
		t.Error("Score() with mismatched geometry should fail")
	}
}

func TestThreshold_EmptyHistoryReturnsMinimum(t *testing.T) {
	s := New(DefaultConfig(), nil)
	if got := s.Threshold(); got != 10.0 {
		t.Errorf("Threshold() = %v, want min threshold 10.0", got)
	}
}

func TestThreshold_NeverBelowMinimum(t *testing.T) {
	s := New(DefaultConfig(), nil)
	for i := 0; i < 50; i++ {
		s.history.Push(0.5)
	}
	if got := s.Threshold(); got != 10.0 {
		t.Errorf("Threshold() = %v, want floor 10.0", got)
	}
}

func TestThreshold_GrowsWithVariance(t *testing.T) {
	s := New(DefaultConfig(), nil)
	for i := 0; i < 10; i++ {
		s.history.Push(20)
	}
	low := s.Threshold()

	// Injecting high-variance samples must not lower the threshold.
	for i := 0; i < 10; i++ {
		s.history.Push(60)
	}
	high := s.Threshold()

	if high < low {
		t.Errorf("Threshold() dropped from %v to %v after high-variance samples", low, high)
	}
	if high < 10.0 || low < 10.0 {
		t.Errorf("Threshold() fell below the configured minimum: low=%v high=%v", low, high)
	}
}

func TestThreshold_MeanPlusStdDev(t *testing.T) {
	s := New(DefaultConfig(), nil)
	// mean 5, stddev 2 -> 5 + 3*2 = 11, above the floor of 10
	for _, v := range []float64{3, 7, 3, 7} {
		s.history.Push(v)
	}
	if got, want := s.Threshold(), 11.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Threshold() = %v, want %v", got, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		score       float64
		threshold   float64
		counter     int
		persistence int
		wantClass   class
		wantCounter int
	}{
		{"far below threshold resets counter", 2, 10, 2, 3, classOrdinary, 0},
		{"above 80% increments counter", 9, 10, 0, 3, classOrdinary, 1},
		{"persistence reached emits high motion", 9, 10, 2, 3, classHighMotion, 3},
		{"persistence exceeded stays high motion", 9, 10, 5, 3, classHighMotion, 6},
		{"above threshold is a scene cut", 11, 10, 0, 3, classSceneCut, 1},
		{"cut frame still counts toward persistence", 11, 10, 2, 3, classSceneCut, 3},
		{"exactly threshold is not a cut", 10, 10, 0, 3, classOrdinary, 1},
		{"exactly 80% does not qualify", 8, 10, 2, 3, classOrdinary, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotClass, gotCounter := classify(tt.score, tt.threshold, tt.counter, tt.persistence)
			if gotClass != tt.wantClass {
				t.Errorf("classify() class = %v, want %v", gotClass, tt.wantClass)
			}
			if gotCounter != tt.wantCounter {
				t.Errorf("classify() counter = %v, want %v", gotCounter, tt.wantCounter)
			}
		})
	}
}

func TestProcess_BlackToWhiteIsOneSceneCut(t *testing.T) {
	w, err := NewFrameWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewFrameWriter() error = %v", err)
	}

	s := New(DefaultConfig(), nil)
	records, err := s.Process(&sliceSource{frames: graySequence([]byte{0, 255})}, w)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Process() produced %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Type != models.EventSceneCut {
		t.Errorf("record type = %s, want %s", rec.Type, models.EventSceneCut)
	}
	if rec.SegmentID != 1 {
		t.Errorf("record segment id = %d, want 1 (cut opens a new segment)", rec.SegmentID)
	}
}

func TestProcess_ConstantColorYieldsNoRecords(t *testing.T) {
	w, err := NewFrameWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewFrameWriter() error = %v", err)
	}

	values := make([]byte, 60)
	for i := range values {
		values[i] = 128
	}

	s := New(DefaultConfig(), nil)
	records, err := s.Process(&sliceSource{frames: graySequence(values)}, w)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Process() produced %d records, want 0", len(records))
	}
}

func TestProcess_EmptySource(t *testing.T) {
	w, err := NewFrameWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewFrameWriter() error = %v", err)
	}

	s := New(DefaultConfig(), nil)
	records, err := s.Process(&sliceSource{}, w)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Process() produced %d records for an empty source, want 0", len(records))
	}
}

func TestProcess_SustainedMotionAttachesToCurrentSegment(t *testing.T) {
	w, err := NewFrameWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewFrameWriter() error = %v", err)
	}

	// Steps of 9 stay above 80% of the threshold (floored at 10) without
	// ever crossing it, so the third consecutive transition and all that
	// follow are high motion.
	s := New(DefaultConfig(), nil)
	records, err := s.Process(&sliceSource{frames: graySequence([]byte{0, 9, 18, 27, 36})}, w)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Process() produced %d records, want 2 (transitions 3 and 4)", len(records))
	}
	for i, rec := range records {
		if rec.Type != models.EventHighMotion {
			t.Errorf("record %d type = %s, want %s", i, rec.Type, models.EventHighMotion)
		}
		if rec.SegmentID != 0 {
			t.Errorf("record %d segment id = %d, want 0 (high motion never opens a segment)", i, rec.SegmentID)
		}
	}
}

func TestProcess_SegmentIDIncrementsOnlyOnCuts(t *testing.T) {
	w, err := NewFrameWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewFrameWriter() error = %v", err)
	}

	// Two isolated jumps separated by a long still span: two cuts with
	// segment ids 1 and 2. The span between jumps must be long enough for
	// the rolling statistics to settle after the first spike, otherwise
	// the inflated threshold absorbs the second jump.
	values := []byte{10, 10, 10, 10}
	for i := 0; i < 17; i++ {
		values = append(values, 200)
	}
	values = append(values, 10, 10, 10)
	s := New(DefaultConfig(), nil)
	records, err := s.Process(&sliceSource{frames: graySequence(values)}, w)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	var cuts []models.KeyframeRecord
	for _, rec := range records {
		if rec.Type == models.EventSceneCut {
			cuts = append(cuts, rec)
		}
	}
	if len(cuts) != 2 {
		t.Fatalf("got %d scene cuts, want 2 (records: %+v)", len(cuts), records)
	}
	if cuts[0].SegmentID != 1 || cuts[1].SegmentID != 2 {
		t.Errorf("cut segment ids = %d, %d, want 1, 2", cuts[0].SegmentID, cuts[1].SegmentID)
	}

	// Segment ids never decrease across the record stream.
	last := 0
	for _, rec := range records {
		if rec.SegmentID < last {
			t.Errorf("segment id regressed from %d to %d", last, rec.SegmentID)
		}
		last = rec.SegmentID
	}
}
