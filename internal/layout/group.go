package layout

import (
	"math"

	"flowcanvas/internal/domain"
)

// GroupMaintainer keeps group rectangles wrapped around their children
type GroupMaintainer struct {
	Padding float64
	Epsilon float64
}

// NewGroupMaintainer creates a maintainer with 40 units of padding and a
// 0.1 unit change threshold
func NewGroupMaintainer() GroupMaintainer {
	return GroupMaintainer{Padding: domain.GroupPadding, Epsilon: 0.1}
}

// Fit returns the padded bounding box of children, or false when there are
// none
func (m GroupMaintainer) Fit(children []*domain.Node, expandedID string) (domain.Rect, bool) {
	if len(children) == 0 {
		return domain.Rect{}, false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range children {
		r := NodeBoundsExpanded(c, c.ID == expandedID)
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.MaxX())
		maxY = math.Max(maxY, r.MaxY())
	}

	return domain.Rect{
		X: minX - m.Padding,
		Y: minY - m.Padding,
		W: maxX - minX + 2*m.Padding,
		H: maxY - minY + 2*m.Padding,
	}, true
}

// groupRect reads the stored rectangle of a group
func groupRect(g *domain.Node) domain.Rect {
	return domain.Rect{
		X: g.X,
		Y: g.Y,
		W: g.Data.Settings.FloatOr("width", DefaultGroupWidth),
		H: g.Data.Settings.FloatOr("height", DefaultGroupHeight),
	}
}

func (m GroupMaintainer) changed(a, b domain.Rect) bool {
	return math.Abs(a.X-b.X) > m.Epsilon ||
		math.Abs(a.Y-b.Y) > m.Epsilon ||
		math.Abs(a.W-b.W) > m.Epsilon ||
		math.Abs(a.H-b.H) > m.Epsilon
}

// Update refits each listed group that is not itself moving. Groups whose
// rectangle would change by less than Epsilon are left alone. It returns
// the groups that were written.
func (m GroupMaintainer) Update(nodes []*domain.Node, groupIDs []string, moving map[string]bool, expandedID string) []*domain.Node {
	byID := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var updated []*domain.Node
	seen := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		if seen[id] || moving[id] {
			continue
		}
		seen[id] = true

		group, ok := byID[id]
		if !ok || !group.IsGroup() {
			continue
		}

		var children []*domain.Node
		for _, n := range nodes {
			if n.ParentID == id {
				children = append(children, n)
			}
		}

		next, ok := m.Fit(children, expandedID)
		if !ok || !m.changed(groupRect(group), next) {
			continue
		}

		group.Move(next.X, next.Y)
		group.Data.Settings = group.Data.Settings.Set("width", next.W).Set("height", next.H)
		updated = append(updated, group)
	}
	return updated
}

// AffectedGroups returns the distinct parents of the given nodes, in order
func AffectedGroups(nodes []*domain.Node) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, n := range nodes {
		if n.ParentID != "" && !seen[n.ParentID] {
			seen[n.ParentID] = true
			ids = append(ids, n.ParentID)
		}
	}
	return ids
}
