// Package execution assembles what a node receives when it runs and drives
// single-node and multi-node runs over a graph.
//
// Nothing here mutates a node other than the one being run, and only its
// status and stored result at that. Downstream nodes observe a new result by
// rebuilding their context on their own next run.
package execution

import (
	"fmt"
	"sort"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/registry"
)

// DefaultTextLimit caps inlined reference text
const DefaultTextLimit = 500

// unorderedClip ranks sources missing from the target's clipOrder after
// every listed one
const unorderedClip = 999

// Builder assembles execution contexts
type Builder struct {
	Ports     domain.PortCatalog
	TextLimit int
}

// NewBuilder creates a builder resolving ports through the catalog
func NewBuilder(ports domain.PortCatalog) *Builder {
	return &Builder{Ports: ports, TextLimit: DefaultTextLimit}
}

// Build assembles the context for nodeID from the graph's current state.
// Dangling edges and empty upstream results are skipped, never fatal.
func (b *Builder) Build(g *domain.Graph, nodeID string) (*registry.ExecutionContext, error) {
	n := g.Node(nodeID)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}

	settings := n.Data.Settings.Clone()
	if settings == nil {
		settings = domain.Settings{}
	}
	if n.Data.Value != "" {
		settings = settings.Set("value", n.Data.Value)
	}

	ec := &registry.ExecutionContext{
		NodeID:      n.ID,
		Inputs:      make(map[string]domain.Value),
		Settings:    settings,
		InputLabels: make(map[string]string),
	}

	for _, port := range b.Ports.Inputs(n.Type) {
		value, label, ok := b.resolvePort(g, n.ID, port)
		if !ok {
			continue
		}
		ec.Inputs[port.ID] = value
		ec.InputLabels[port.ID] = label
	}

	ec.References = b.references(g, n)
	return ec, nil
}

// resolvePort gathers the value for one input. Single ports take the first
// edge that yields something; Multiple ports take every edge, ordered by the
// position of each source id in the target's clipOrder setting.
func (b *Builder) resolvePort(g *domain.Graph, target string, port domain.PortDefinition) (domain.Value, string, bool) {
	edges := g.EdgesInto(target, port.ID, b.Ports)
	sources := make([]*domain.Node, 0, len(edges))
	for _, e := range edges {
		if src := g.Node(e.Source); src != nil {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return domain.Value{}, "", false
	}

	if port.Multiple {
		rank := clipRanks(g.Node(target))
		sort.SliceStable(sources, func(i, j int) bool {
			return rank(sources[i].ID) < rank(sources[j].ID)
		})

		var items []string
		label := ""
		for _, src := range sources {
			v, producer := b.upstreamValue(g, src, map[string]bool{target: true})
			items = append(items, v.Strings()...)
			if label == "" && !v.IsZero() {
				label = producer
			}
		}
		if len(items) == 0 {
			return domain.Value{}, "", false
		}
		return domain.ListValue(items), label, true
	}

	for _, src := range sources {
		v, producer := b.upstreamValue(g, src, map[string]bool{target: true})
		if !v.IsZero() {
			return v, producer, true
		}
	}
	return domain.Value{}, "", false
}

// upstreamValue reads a source's current output. Preview nodes are looked
// through to whatever feeds them; visited guards against loops through them.
func (b *Builder) upstreamValue(g *domain.Graph, src *domain.Node, visited map[string]bool) (domain.Value, string) {
	if visited[src.ID] {
		return domain.Value{}, ""
	}
	visited[src.ID] = true

	if src.Type == domain.NodeTypePreview {
		for _, e := range g.EdgesInto(src.ID, "input", b.Ports) {
			up := g.Node(e.Source)
			if up == nil {
				continue
			}
			if v, producer := b.upstreamValue(g, up, visited); !v.IsZero() {
				return v, producer
			}
		}
	}

	return StoredValue(src), producerLabel(src)
}

// StoredValue is the value a node currently exposes downstream: its
// result, else its manual text, else its result list.
func StoredValue(n *domain.Node) domain.Value {
	if n.Data.OutputResult != "" {
		return domain.TextValue(n.Data.OutputResult)
	}
	if text := n.Text(); text != "" {
		return domain.TextValue(text)
	}
	if len(n.Data.OutputList) > 0 {
		return domain.ListValue(append([]string(nil), n.Data.OutputList...))
	}
	return domain.Value{}
}

func producerLabel(n *domain.Node) string {
	if n.Data.Label != "" {
		return n.Data.Label
	}
	return "Unknown"
}

// clipRanks maps a source id to its index in the target's clipOrder list
func clipRanks(target *domain.Node) func(id string) int {
	index := make(map[string]int)
	if target != nil {
		for i, id := range target.Data.Settings.Strings("clipOrder") {
			if _, seen := index[id]; !seen {
				index[id] = i
			}
		}
	}
	return func(id string) int {
		if i, ok := index[id]; ok {
			return i
		}
		return unorderedClip
	}
}
