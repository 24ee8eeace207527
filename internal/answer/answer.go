// Package answer turns retrieved evidence (graph nodes, context frames,
// transcript text) into a textual answer. A model-backed generator is used
// when Ollama is available; otherwise a deterministic textual fallback
// keeps the query path working.
package answer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bdougie/videorag/internal/graph"
	"github.com/bdougie/videorag/internal/models"
)

// ErrNoEvidence signals that neither graph search nor the context window
// produced anything usable. Callers surface it as an explicit "no evidence
// found" result rather than an empty answer.
var ErrNoEvidence = errors.New("no evidence found for query")

// Evidence is everything retrieval produced for one question.
type Evidence struct {
	Nodes          []graph.Node
	Frames         []models.FrameMeta
	TranscriptText string
}

func (ev Evidence) empty() bool {
	return len(ev.Nodes) == 0 && len(ev.Frames) == 0
}

// Generator produces an answer from a question and its evidence.
type Generator interface {
	Answer(ctx context.Context, query string, ev Evidence) (string, error)
}

// TextGenerator is the degraded-mode generator: it answers from graph
// labels and timestamps alone, with no model call, so results are
// deterministic and always available.
type TextGenerator struct{}

// Answer composes a textual answer from the structural evidence.
func (TextGenerator) Answer(ctx context.Context, query string, ev Evidence) (string, error) {
	if ev.empty() {
		return "", ErrNoEvidence
	}

	var b strings.Builder

	if len(ev.Nodes) > 0 {
		top := ev.Nodes
		if len(top) > 3 {
			top = top[:3]
		}
		var sentences []string
		for _, node := range top {
			if node.Label == "" {
				continue
			}
			sentences = append(sentences, fmt.Sprintf(
				"Between %.2fs and %.2fs the video contains: %s",
				node.StartTime, node.EndTime, node.Label))
		}
		b.WriteString(strings.Join(sentences, " "))
	} else {
		ts := uniqueTimestamps(ev.Frames)
		if len(ts) > 8 {
			ts = ts[:8]
		}
		parts := make([]string, len(ts))
		for i, t := range ts {
			parts[i] = fmt.Sprintf("%.2fs", t)
		}
		b.WriteString("I retrieved several relevant moments in the video around these times: ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(". However, without a vision model I can't reliably describe the exact visual content at those timestamps.")
	}

	if ev.TranscriptText != "" {
		b.WriteString(" Spoken around that moment: \"")
		b.WriteString(ev.TranscriptText)
		b.WriteString("\"")
	}

	return b.String(), nil
}

func uniqueTimestamps(frames []models.FrameMeta) []float64 {
	seen := make(map[float64]bool)
	var ts []float64
	for _, f := range frames {
		if !seen[f.Timestamp] {
			seen[f.Timestamp] = true
			ts = append(ts, f.Timestamp)
		}
	}
	sort.Float64s(ts)
	return ts
}
