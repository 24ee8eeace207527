package models

// EventType classifies a frame transition retained by the slicer.
type EventType string

const (
	EventSceneCut   EventType = "scene_cut"
	EventHighMotion EventType = "high_motion"
)

// KeyframeRecord is one retained frame with its segment assignment
type KeyframeRecord struct {
	Timestamp float64   `json:"timestamp"`
	FramePath string    `json:"frame_path"`
	SegmentID int       `json:"segment_id"`
	Type      EventType `json:"type"`
}

// SegmentSummary describes one contiguous segment of keyframes
type SegmentSummary struct {
	SegmentID           int     `json:"segment_id"`
	Summary             string  `json:"summary"`
	RepresentativeFrame string  `json:"representative_frame"`
	StartTime           float64 `json:"start_time"`
	EndTime             float64 `json:"end_time"`
	MemberCount         int     `json:"member_count"`
}

// FrameMeta is the per-frame metadata held by the frame store.
// Embeddings live next to it in the store but are not part of the
// metadata returned by temporal-context queries.
type FrameMeta struct {
	VideoID   string  `json:"video_id"`
	Timestamp float64 `json:"timestamp"`
	FramePath string  `json:"frame_path"`
}

// FrameSearchResult is one ranked hit from a similarity query
type FrameSearchResult struct {
	VideoID    string
	Timestamp  float64
	FramePath  string
	Similarity float64
}
