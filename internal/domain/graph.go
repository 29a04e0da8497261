package domain

import (
	"fmt"
	"math"
)

// PortCatalog resolves the declared ports of a node type
type PortCatalog interface {
	Inputs(t NodeType) []PortDefinition
	Outputs(t NodeType) []PortDefinition
}

// BoundsFunc returns the derived world rectangle of a node
type BoundsFunc func(n *Node) Rect

const (
	// GroupPadding is the margin kept between a group edge and its children
	GroupPadding = 40.0
	// GroupHeaderSpace is the extra room above the children for the group title
	GroupHeaderSpace = 40.0
)

// Graph holds the nodes and edges of a project. Node order is render order.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// Node returns the node with the given id, or nil
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Edge returns the edge with the given id, or nil
func (g *Graph) Edge(id string) *Edge {
	for _, e := range g.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// AddNode appends a node
func (g *Graph) AddNode(n *Node) error {
	if g.Node(n.ID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}

// MoveNode sets a node position
func (g *Graph) MoveNode(id string, x, y float64) error {
	n := g.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Move(x, y)
	return nil
}

// UpdateNodeData shallow-merges a patch into a node
func (g *Graph) UpdateNodeData(id string, p DataPatch) error {
	n := g.Node(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.UpdateData(p)
	return nil
}

// DeleteNodes removes nodes, every edge touching them, and the parent link
// of any child left behind by a deleted group. It returns the removed edges.
func (g *Graph) DeleteNodes(ids ...string) []*Edge {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}

	kept := g.Nodes[:0]
	for _, n := range g.Nodes {
		if doomed[n.ID] {
			continue
		}
		if doomed[n.ParentID] {
			n.ParentID = ""
		}
		kept = append(kept, n)
	}
	for i := len(kept); i < len(g.Nodes); i++ {
		g.Nodes[i] = nil
	}
	g.Nodes = kept

	var removed []*Edge
	keptEdges := make([]*Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if doomed[e.Source] || doomed[e.Target] {
			removed = append(removed, e)
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	g.Edges = keptEdges
	return removed
}

// Connect adds an edge after resolving handles and checking compatibility.
//
// An empty handle is filled with the best scoring compatible port. Inputs
// accept a single edge unless the port is declared Multiple.
func (g *Graph) Connect(ports PortCatalog, source, sourceHandle, target, targetHandle string) (*Edge, error) {
	if source == target {
		return nil, ErrSelfConnection
	}
	src := g.Node(source)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	tgt := g.Node(target)
	if tgt == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}

	outputs := ports.Outputs(src.Type)
	inputs := ports.Inputs(tgt.Type)

	if sourceHandle != "" {
		p, ok := FindPort(outputs, sourceHandle)
		if !ok {
			return nil, fmt.Errorf("%w: output %q on %s", ErrPortNotFound, sourceHandle, src.Type)
		}
		outputs = []PortDefinition{p}
	}
	if targetHandle != "" {
		p, ok := FindPort(inputs, targetHandle)
		if !ok {
			return nil, fmt.Errorf("%w: input %q on %s", ErrPortNotFound, targetHandle, tgt.Type)
		}
		inputs = []PortDefinition{p}
	} else {
		// Auto-match prefers a free socket over an occupied one
		free := make([]PortDefinition, 0, len(inputs))
		for _, p := range inputs {
			if p.Multiple || len(g.EdgesInto(target, p.ID, ports)) == 0 {
				free = append(free, p)
			}
		}
		if len(free) > 0 {
			inputs = free
		}
	}

	out, in, ok := BestMatch(outputs, inputs)
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIncompatiblePorts, src.Type, tgt.Type)
	}

	edge := NewEdge(source, out.ID, target, in.ID)
	if g.Edge(edge.ID) != nil {
		return nil, ErrDuplicateEdge
	}
	if !in.Multiple && len(g.EdgesInto(target, in.ID, ports)) > 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrHandleOccupied, target, in.ID)
	}

	g.Edges = append(g.Edges, edge)
	return edge, nil
}

// Disconnect removes an edge by id
func (g *Graph) Disconnect(id string) error {
	for i, e := range g.Edges {
		if e.ID == id {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
}

// EdgesInto returns the edges feeding a node's input handle in insertion
// order. Edges with an empty target handle count for the first input.
func (g *Graph) EdgesInto(target, handle string, ports PortCatalog) []*Edge {
	first := ""
	if n := g.Node(target); n != nil && ports != nil {
		if ins := ports.Inputs(n.Type); len(ins) > 0 {
			first = ins[0].ID
		}
	}

	var out []*Edge
	for _, e := range g.Edges {
		if e.Target != target {
			continue
		}
		h := e.TargetHandle
		if h == "" {
			h = first
		}
		if h == handle {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the nodes whose parent is groupID
func (g *Graph) Children(groupID string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.ParentID == groupID {
			out = append(out, n)
		}
	}
	return out
}

// Groups returns every group node
func (g *Graph) Groups() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.IsGroup() {
			out = append(out, n)
		}
	}
	return out
}

// Labels returns id -> display label for every non-group node
func (g *Graph) Labels() map[string]string {
	out := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		if !n.IsGroup() && n.Data.Label != "" {
			out[n.ID] = n.Data.Label
		}
	}
	return out
}

// CreateGroup wraps the given nodes in a new group sized to their bounds,
// with padding on every side and extra header room on top.
func (g *Graph) CreateGroup(ids []string, bounds BoundsFunc) (*Node, error) {
	var members []*Node
	for _, id := range ids {
		if n := g.Node(id); n != nil && !n.IsGroup() {
			members = append(members, n)
		}
	}
	if len(members) == 0 {
		return nil, ErrEmptySelection
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range members {
		r := bounds(n)
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.MaxX())
		maxY = math.Max(maxY, r.MaxY())
	}

	minX -= GroupPadding
	minY -= GroupPadding + GroupHeaderSpace
	maxX += GroupPadding
	maxY += GroupPadding

	group := NewNode(NodeTypeGroup, minX, minY)
	group.Data.Label = fmt.Sprintf("Group %d", len(g.Groups())+1)
	group.Data.Settings = Settings{
		"width":  maxX - minX,
		"height": maxY - minY,
	}
	g.Nodes = append(g.Nodes, group)

	for _, n := range members {
		n.ParentID = group.ID
	}
	return group, nil
}

// Ungroup releases a group's children and removes the group
func (g *Graph) Ungroup(groupID string) error {
	group := g.Node(groupID)
	if group == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, groupID)
	}
	if !group.IsGroup() {
		return fmt.Errorf("%w: %s", ErrNotGroup, groupID)
	}
	for _, n := range g.Children(groupID) {
		n.ParentID = ""
	}
	g.DeleteNodes(groupID)
	return nil
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes: make([]*Node, len(g.Nodes)),
		Edges: make([]*Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Clone()
	}
	for i, e := range g.Edges {
		ec := *e
		c.Edges[i] = &ec
	}
	return c
}
