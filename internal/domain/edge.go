package domain

import (
	"crypto/sha256"
	"fmt"
)

// Edge connects an output handle of one node to an input handle of another.
// Empty handles mean the first declared port on that side.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// NewEdge creates a new edge
func NewEdge(source, sourceHandle, target, targetHandle string) *Edge {
	edge := &Edge{
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
	edge.ID = edge.GenerateID()
	return edge
}

// GenerateID creates a deterministic ID for the edge based on its endpoints.
// Direction matters, so a->b and b->a get different ids.
func (e *Edge) GenerateID() string {
	key := fmt.Sprintf("%s:%s->%s:%s", e.Source, e.SourceHandle, e.Target, e.TargetHandle)
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("e-%x", hash[:8])
}

// Touches reports whether the edge starts or ends at the node
func (e *Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}
