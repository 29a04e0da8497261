package layout

import (
	"math"

	"flowcanvas/internal/domain"
)

// DropBuffer widens a group's rectangle when resolving a drop target
const DropBuffer = 20.0

// PortHit identifies a port under the pointer
type PortHit struct {
	NodeID    string
	PortID    string
	Direction domain.PortDirection
	Anchor    domain.Point
	Distance  float64
}

// Scene is the read-only view of the canvas that hit testing needs
type Scene struct {
	Nodes      []*domain.Node
	ExpandedID string
	Zoom       float64
}

func (s Scene) bounds(n *domain.Node) domain.Rect {
	return NodeBoundsExpanded(n, n.ID == s.ExpandedID)
}

// HitNode returns the topmost node under a world point. Regular nodes are
// drawn above groups, so they win even when a group was added later.
func HitNode(s Scene, p domain.Point) *domain.Node {
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		if !n.IsGroup() && s.bounds(n).Contains(p) {
			return n
		}
	}
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		if n.IsGroup() && s.bounds(n).Contains(p) {
			return n
		}
	}
	return nil
}

// HitPort returns the nearest port anchor within radius screen pixels of a
// world point, or false. Groups have no ports.
func HitPort(g *Geometry, s Scene, p domain.Point, radius float64) (PortHit, bool) {
	zoom := s.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	limit := radius / zoom

	best := PortHit{Distance: math.Inf(1)}
	for _, n := range s.Nodes {
		if n.IsGroup() {
			continue
		}
		expanded := n.ID == s.ExpandedID
		for _, dir := range []domain.PortDirection{domain.PortInput, domain.PortOutput} {
			var ports []domain.PortDefinition
			if dir == domain.PortInput {
				ports = g.Ports.Inputs(n.Type)
			} else {
				ports = g.Ports.Outputs(n.Type)
			}
			for _, port := range ports {
				anchor := g.PortPosition(n, port.ID, dir, expanded, zoom)
				d := anchor.Dist(p)
				if d <= limit && d < best.Distance {
					best = PortHit{NodeID: n.ID, PortID: port.ID, Direction: dir, Anchor: anchor, Distance: d}
				}
			}
		}
	}
	return best, best.NodeID != ""
}

// NodesInRect returns every node, groups included, whose bounds overlap r,
// in render order
func NodesInRect(s Scene, r domain.Rect) []*domain.Node {
	var out []*domain.Node
	for _, n := range s.Nodes {
		if s.bounds(n).Overlaps(r) {
			out = append(out, n)
		}
	}
	return out
}

// GroupAt returns the smallest group whose buffered rectangle contains p,
// or nil. A node dropped there becomes that group's child.
func GroupAt(nodes []*domain.Node, p domain.Point) *domain.Node {
	var best *domain.Node
	bestArea := math.Inf(1)
	for _, n := range nodes {
		if !n.IsGroup() {
			continue
		}
		r := NodeBounds(n)
		if !r.Inset(DropBuffer).Contains(p) {
			continue
		}
		if a := r.Area(); a < bestArea {
			best, bestArea = n, a
		}
	}
	return best
}

// BoundsOf returns the union of the derived bounds of the given nodes
func BoundsOf(nodes []*domain.Node, expandedID string) (domain.Rect, bool) {
	if len(nodes) == 0 {
		return domain.Rect{}, false
	}
	r := NodeBoundsExpanded(nodes[0], nodes[0].ID == expandedID)
	for _, n := range nodes[1:] {
		r = r.Union(NodeBoundsExpanded(n, n.ID == expandedID))
	}
	return r, true
}
