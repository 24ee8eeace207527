// Package graph builds and persists the temporal knowledge graph: one node
// per segment summary, linked chronologically by FOLLOWS edges so the graph
// is a simple path.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bdougie/videorag/internal/models"
)

// EdgeFollows is the only edge type: chronological succession.
const EdgeFollows = "FOLLOWS"

// Node is one segment in the temporal graph.
type Node struct {
	ID                  string  `json:"id"`
	Label               string  `json:"label"`
	StartTime           float64 `json:"start_time"`
	EndTime             float64 `json:"end_time"`
	RepresentativeFrame string  `json:"representative_frame"`
}

// Edge links two chronologically adjacent nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// TemporalGraph holds the nodes and edges for one processed video.
type TemporalGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// New returns an empty graph.
func New() *TemporalGraph {
	return &TemporalGraph{}
}

// Build replaces the graph contents with one node per summary, in input
// order, and a FOLLOWS edge for every consecutive pair.
func (g *TemporalGraph) Build(summaries []models.SegmentSummary) {
	g.Nodes = nil
	g.Edges = nil

	for i, summary := range summaries {
		node := Node{
			ID:                  fmt.Sprintf("node_%d", summary.SegmentID),
			Label:               summary.Summary,
			StartTime:           summary.StartTime,
			EndTime:             summary.EndTime,
			RepresentativeFrame: summary.RepresentativeFrame,
		}
		g.Nodes = append(g.Nodes, node)

		if i > 0 {
			g.Edges = append(g.Edges, Edge{
				Source: g.Nodes[i-1].ID,
				Target: node.ID,
				Type:   EdgeFollows,
			})
		}
	}
}

// Search returns the nodes whose label contains query as a case-insensitive
// substring, preserving node order. No match yields an empty slice.
func (g *TemporalGraph) Search(query string) []Node {
	q := strings.ToLower(query)
	var results []Node
	for _, node := range g.Nodes {
		if strings.Contains(strings.ToLower(node.Label), q) {
			results = append(results, node)
		}
	}
	return results
}

// Save writes the graph as indented JSON. Loading a saved graph reproduces
// an identical node and edge set.
func (g *TemporalGraph) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode graph: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph file: %v", err)
	}
	return nil
}

// Load replaces the graph contents from a saved file. A missing file is a
// no-op that leaves the current contents untouched.
func (g *TemporalGraph) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read graph file: %v", err)
	}

	var loaded TemporalGraph
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to decode graph file: %v", err)
	}
	g.Nodes = loaded.Nodes
	g.Edges = loaded.Edges
	return nil
}
