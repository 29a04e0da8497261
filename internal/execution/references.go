package execution

import (
	"sort"
	"strings"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/registry"
)

// Mention is an @label occurrence in free text
type Mention struct {
	Label  string
	NodeID string
	Offset int
}

// Target is a node that can be mentioned by label
type Target struct {
	Label  string
	NodeID string
}

// FindMentions scans text for @label mentions. At every '@' the longest
// matching label wins and the scan resumes after it, so "Scene A Wide" is
// never also read as "Scene A". Each node is reported once, in order of
// first appearance.
func FindMentions(text string, targets []Target) []Mention {
	if !strings.Contains(text, "@") || len(targets) == 0 {
		return nil
	}

	sorted := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Label != "" {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Label) > len(sorted[j].Label)
	})

	var out []Mention
	seen := make(map[string]bool)
	for i := 0; i < len(text); {
		at := strings.IndexByte(text[i:], '@')
		if at < 0 {
			break
		}
		pos := i + at
		rest := text[pos+1:]
		i = pos + 1

		for _, t := range sorted {
			if !strings.HasPrefix(rest, t.Label) {
				continue
			}
			if !seen[t.NodeID] {
				seen[t.NodeID] = true
				out = append(out, Mention{Label: t.Label, NodeID: t.NodeID, Offset: pos})
			}
			i = pos + 1 + len(t.Label)
			break
		}
	}
	return out
}

// Targets lists every mentionable node except self. Groups are containers
// and carry no result, so they are left out.
func Targets(g *domain.Graph, self string) []Target {
	out := make([]Target, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == self || n.IsGroup() {
			continue
		}
		label := n.Data.Label
		if label == "" {
			label = string(n.Type)
		}
		out = append(out, Target{Label: label, NodeID: n.ID})
	}
	return out
}

// references resolves the mentions in a node's free text
func (b *Builder) references(g *domain.Graph, n *domain.Node) []registry.Reference {
	mentions := FindMentions(n.Text(), Targets(g, n.ID))
	if len(mentions) == 0 {
		return nil
	}

	refs := make([]registry.Reference, 0, len(mentions))
	for _, m := range mentions {
		target := g.Node(m.NodeID)
		if target == nil {
			continue
		}
		v := StoredValue(target)
		if v.IsZero() {
			continue
		}

		text := v.Text
		if text == "" {
			text = referenceListText(v.Items)
		}
		media := domain.IsMedia(text)
		if !media {
			text = registry.Truncate(text, b.TextLimit)
		}
		refs = append(refs, registry.Reference{
			Label:  m.Label,
			NodeID: m.NodeID,
			Value:  text,
			Media:  media,
		})
	}
	return refs
}

// referenceListText picks the first media item of a list, or joins text items
func referenceListText(items []string) string {
	if len(items) > 0 && domain.IsMedia(items[0]) {
		return items[0]
	}
	return strings.Join(items, "\n")
}
