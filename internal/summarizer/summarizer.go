// Package summarizer collapses ordered keyframe records into one
// descriptive summary per segment.
package summarizer

import (
	"fmt"

	"github.com/bdougie/videorag/internal/models"
)

// Summarize groups keyframe records by segment id, preserving first-seen
// order (ascending, since ids are assigned monotonically), and produces one
// summary per segment. The representative frame is the member at the
// integer-division midpoint of the group. An empty input yields an empty
// result, never an error.
func Summarize(records []models.KeyframeRecord) []models.SegmentSummary {
	if len(records) == 0 {
		return nil
	}

	var order []int
	groups := make(map[int][]models.KeyframeRecord)
	for _, rec := range records {
		if _, seen := groups[rec.SegmentID]; !seen {
			order = append(order, rec.SegmentID)
		}
		groups[rec.SegmentID] = append(groups[rec.SegmentID], rec)
	}

	summaries := make([]models.SegmentSummary, 0, len(order))
	for _, sid := range order {
		members := groups[sid]
		rep := members[len(members)/2]

		summary := fmt.Sprintf(
			"Segment %d: Visual sequence containing %d frames starting at %.2fs. (%s)",
			sid, len(members), members[0].Timestamp, rep.Type,
		)

		summaries = append(summaries, models.SegmentSummary{
			SegmentID:           sid,
			Summary:             summary,
			RepresentativeFrame: rep.FramePath,
			StartTime:           members[0].Timestamp,
			EndTime:             members[len(members)-1].Timestamp,
			MemberCount:         len(members),
		})
	}
	return summaries
}
