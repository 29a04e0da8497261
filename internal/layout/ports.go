package layout

import (
	"math"

	"flowcanvas/internal/domain"
)

const (
	// HeaderHeight is the unscaled node header height
	HeaderHeight = 40.0

	// expandedLift is the vertical shift applied to expanded nodes
	expandedLift = 20.0
)

// Geometry computes port anchors. It needs the port catalogue to place a
// port among its siblings, and the header scale range to model the header
// growing as the user zooms out.
type Geometry struct {
	Ports    domain.PortCatalog
	MinScale float64
	MaxScale float64
}

// NewGeometry creates a geometry with the default header scale range
func NewGeometry(ports domain.PortCatalog) *Geometry {
	return &Geometry{Ports: ports, MinScale: 0.4, MaxScale: 2.5}
}

// AdaptiveScale returns clamp(1/zoom, min, max)
func AdaptiveScale(zoom, min, max float64) float64 {
	if zoom <= 0 {
		return max
	}
	return math.Min(math.Max(1/zoom, min), max)
}

// HeaderHeightAt returns the visual header height at a zoom level
func (g *Geometry) HeaderHeightAt(zoom float64) float64 {
	return HeaderHeight * AdaptiveScale(zoom, g.MinScale, g.MaxScale)
}

// PortOffset returns the anchor of a port relative to the node origin.
// Inputs sit on the left edge, outputs on the right; ports are spread evenly
// down the body below the header. An unknown port id falls back to the
// first port.
func (g *Geometry) PortOffset(n *domain.Node, portID string, dir domain.PortDirection, expanded bool, zoom float64) domain.Point {
	var ports []domain.PortDefinition
	if g.Ports != nil {
		if dir == domain.PortOutput {
			ports = g.Ports.Outputs(n.Type)
		} else {
			ports = g.Ports.Inputs(n.Type)
		}
	}

	index := 0
	if portID != "" {
		index = domain.PortIndex(ports, portID)
	}

	width := NodeWidth(n, expanded)
	bodyH := NodeContentHeight(n, width)
	if !IsMediaNode(n.Type) {
		bodyH += BodyPadding
	}

	count := len(ports)
	if count == 0 {
		count = 1
	}
	step := bodyH / float64(count+1)
	y := g.HeaderHeightAt(zoom) + step*float64(index+1)

	x := 0.0
	if dir == domain.PortOutput {
		x = width
	}
	return domain.Point{X: x, Y: y}
}

// PortPosition returns the world anchor of a port, including the visual
// shift an expanded node receives when it grows around its centre
func (g *Geometry) PortPosition(n *domain.Node, portID string, dir domain.PortDirection, expanded bool, zoom float64) domain.Point {
	p := n.Position().Add(g.PortOffset(n, portID, dir, expanded, zoom))
	if expanded {
		p.X -= (ExpandedWidth - NodeWidth(n, false)) / 2
		p.Y -= expandedLift
	}
	return p
}
