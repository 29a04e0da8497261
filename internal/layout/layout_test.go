package layout

import (
	"math"
	"testing"

	"flowcanvas/internal/domain"
)

type stubCatalog map[domain.NodeType][2][]domain.PortDefinition

func (c stubCatalog) Inputs(t domain.NodeType) []domain.PortDefinition  { return c[t][0] }
func (c stubCatalog) Outputs(t domain.NodeType) []domain.PortDefinition { return c[t][1] }

var testPorts = stubCatalog{
	domain.NodeTypeTextInput: {nil, {{ID: "output", Type: domain.ResourceText}}},
	domain.NodeTypeImageGen: {
		{
			{ID: "prompt", Type: domain.ResourceText},
			{ID: "image_ref", Type: domain.ResourceImage},
			{ID: "char_ref", Type: domain.ResourceImage},
		},
		{{ID: "image", Type: domain.ResourceImage}},
	},
}

func node(t domain.NodeType, x, y float64, settings domain.Settings) *domain.Node {
	return &domain.Node{ID: string(t), Type: t, X: x, Y: y, Data: domain.NodeData{Settings: settings}}
}

func TestNodeWidth(t *testing.T) {
	tests := []struct {
		name     string
		node     *domain.Node
		expanded bool
		want     float64
	}{
		{"text default", node(domain.NodeTypeTextInput, 0, 0, nil), false, 280},
		{"text expanded", node(domain.NodeTypeTextInput, 0, 0, nil), true, 400},
		{"sticky", node(domain.NodeTypeStickyNote, 0, 0, nil), false, 220},
		{"sticky expanded", node(domain.NodeTypeStickyNote, 0, 0, nil), true, 400},
		{"image input", node(domain.NodeTypeImageInput, 0, 0, nil), false, 220},
		{"generator expanded", node(domain.NodeTypeImageGen, 0, 0, nil), true, 600},
		{"portrait", node(domain.NodeTypeVideoGen, 0, 0, domain.Settings{"aspectRatio": "9:16"}), false, 260},
		{"square", node(domain.NodeTypeImageGen, 0, 0, domain.Settings{"aspectRatio": "1:1"}), false, 300},
		{"landscape", node(domain.NodeTypePreview, 0, 0, domain.Settings{"aspectRatio": "16:9"}), false, 360},
		{"pro", node(domain.NodeTypeProIconGen, 0, 0, nil), false, 400},
		{"group", node(domain.NodeTypeGroup, 0, 0, domain.Settings{"width": 512.0}), false, 512},
		{"group default", node(domain.NodeTypeGroup, 0, 0, nil), false, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NodeWidth(tt.node, tt.expanded); got != tt.want {
				t.Errorf("expected width %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNodeContentHeight(t *testing.T) {
	tests := []struct {
		name  string
		node  *domain.Node
		width float64
		want  float64
	}{
		{"video default ratio", node(domain.NodeTypeVideoGen, 0, 0, nil), 320, 320*9.0/16.0 + 30},
		{"video portrait", node(domain.NodeTypeVideoGen, 0, 0, domain.Settings{"aspectRatio": "9:16"}), 260, 260*16.0/9.0 + 30},
		{"video malformed ratio", node(domain.NodeTypeVideoGen, 0, 0, domain.Settings{"aspectRatio": "wide"}), 160, 120},
		{"image measured ratio", node(domain.NodeTypeImageGen, 0, 0, domain.Settings{"imageRatio": 2.0}), 300, 180},
		{"image square", node(domain.NodeTypeImageGen, 0, 0, domain.Settings{"aspectRatio": "1:1"}), 300, 330},
		{"preview", node(domain.NodeTypePreview, 0, 0, domain.Settings{"aspectRatio": "4:3"}), 360, 270},
		{"sticky", node(domain.NodeTypeStickyNote, 0, 0, nil), 220, 300},
		{"script", node(domain.NodeTypeScriptAgent, 0, 0, nil), 280, 180},
		{"audio", node(domain.NodeTypeAudioGen, 0, 0, nil), 280, 160},
		{"text narrow", node(domain.NodeTypeTextInput, 0, 0, nil), 280, 100},
		{"text expanded", node(domain.NodeTypeTextInput, 0, 0, nil), 400, 300},
		{"pro", node(domain.NodeTypeProArtDirector, 0, 0, nil), 400, 600},
		{"default", node(domain.NodeTypeAIRefine, 0, 0, nil), 280, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NodeContentHeight(tt.node, tt.width)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected height %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNodeBounds(t *testing.T) {
	n := node(domain.NodeTypeTextInput, 10, 20, nil)
	want := domain.Rect{X: 10, Y: 20, W: 280, H: 140}
	if got := NodeBounds(n); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	g := node(domain.NodeTypeGroup, 5, 5, domain.Settings{"width": 100.0, "height": 50.0})
	if got := NodeBounds(g); got != (domain.Rect{X: 5, Y: 5, W: 100, H: 50}) {
		t.Errorf("unexpected group bounds %+v", got)
	}
}

func TestAdaptiveScale(t *testing.T) {
	tests := []struct {
		zoom float64
		want float64
	}{
		{1, 1},
		{2, 0.5},
		{4, 0.4},
		{0.5, 2},
		{0.1, 2.5},
		{0, 2.5},
	}
	for _, tt := range tests {
		if got := AdaptiveScale(tt.zoom, 0.4, 2.5); got != tt.want {
			t.Errorf("AdaptiveScale(%v) = %v, want %v", tt.zoom, got, tt.want)
		}
	}
}

func TestPortOffset(t *testing.T) {
	geo := NewGeometry(testPorts)

	t.Run("single output on a text node", func(t *testing.T) {
		n := node(domain.NodeTypeTextInput, 0, 0, nil)
		p := geo.PortOffset(n, "output", domain.PortOutput, false, 1)
		// body 100 + 32 padding, one port at the midpoint
		if p.X != 280 || p.Y != 40+66 {
			t.Errorf("expected (280,106), got (%v,%v)", p.X, p.Y)
		}
	})

	t.Run("inputs evenly spread and increasing", func(t *testing.T) {
		n := node(domain.NodeTypeImageGen, 0, 0, domain.Settings{"aspectRatio": "1:1"})
		header := geo.HeaderHeightAt(1)
		body := NodeContentHeight(n, NodeWidth(n, false))

		prev := math.Inf(-1)
		for _, id := range []string{"prompt", "image_ref", "char_ref"} {
			p := geo.PortOffset(n, id, domain.PortInput, false, 1)
			if p.X != 0 {
				t.Errorf("input %s: expected x=0, got %v", id, p.X)
			}
			if p.Y <= prev {
				t.Errorf("input %s: y=%v not greater than previous %v", id, p.Y, prev)
			}
			if p.Y < header || p.Y > header+body {
				t.Errorf("input %s: y=%v outside [%v,%v]", id, p.Y, header, header+body)
			}
			prev = p.Y
		}

		first := geo.PortOffset(n, "prompt", domain.PortInput, false, 1)
		if first.Y != 40+330.0/4 {
			t.Errorf("expected first port at %v, got %v", 40+330.0/4, first.Y)
		}
	})

	t.Run("unknown port falls back to first", func(t *testing.T) {
		n := node(domain.NodeTypeImageGen, 0, 0, nil)
		a := geo.PortOffset(n, "nope", domain.PortInput, false, 1)
		b := geo.PortOffset(n, "prompt", domain.PortInput, false, 1)
		if a != b {
			t.Errorf("expected %+v, got %+v", b, a)
		}
	})

	t.Run("header grows when zoomed out", func(t *testing.T) {
		n := node(domain.NodeTypeTextInput, 0, 0, nil)
		near := geo.PortOffset(n, "output", domain.PortOutput, false, 1)
		far := geo.PortOffset(n, "output", domain.PortOutput, false, 0.1)
		if far.Y-near.Y != 40*1.5 {
			t.Errorf("expected header delta 60, got %v", far.Y-near.Y)
		}
	})
}

func TestPortPositionExpanded(t *testing.T) {
	geo := NewGeometry(testPorts)
	n := node(domain.NodeTypeTextInput, 100, 100, nil)

	p := geo.PortPosition(n, "output", domain.PortOutput, true, 1)
	offset := geo.PortOffset(n, "output", domain.PortOutput, true, 1)

	wantX := 100 + offset.X - (ExpandedWidth-280)/2
	wantY := 100 + offset.Y - 20
	if p.X != wantX || p.Y != wantY {
		t.Errorf("expected (%v,%v), got (%v,%v)", wantX, wantY, p.X, p.Y)
	}
}

func TestHitNode(t *testing.T) {
	group := node(domain.NodeTypeGroup, 0, 0, domain.Settings{"width": 1000.0, "height": 1000.0})
	text := node(domain.NodeTypeTextInput, 100, 100, nil)
	s := Scene{Nodes: []*domain.Node{text, group}, Zoom: 1}

	if got := HitNode(s, domain.Point{X: 150, Y: 150}); got != text {
		t.Errorf("expected text node above group, got %v", got)
	}
	if got := HitNode(s, domain.Point{X: 900, Y: 900}); got != group {
		t.Errorf("expected group, got %v", got)
	}
	if got := HitNode(s, domain.Point{X: 2000, Y: 0}); got != nil {
		t.Errorf("expected nothing, got %v", got)
	}
}

func TestHitPort(t *testing.T) {
	geo := NewGeometry(testPorts)
	text := node(domain.NodeTypeTextInput, 0, 0, nil)
	s := Scene{Nodes: []*domain.Node{text}, Zoom: 2}

	hit, ok := HitPort(geo, s, domain.Point{X: 283, Y: 20 + 66 - 3}, 16)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.PortID != "output" || hit.Direction != domain.PortOutput {
		t.Errorf("unexpected hit %+v", hit)
	}

	if _, ok := HitPort(geo, s, domain.Point{X: 320, Y: 86}, 16); ok {
		t.Error("expected miss outside the snap radius")
	}
}

func TestGroupAt(t *testing.T) {
	outer := node(domain.NodeTypeGroup, 0, 0, domain.Settings{"width": 1000.0, "height": 1000.0})
	outer.ID = "outer"
	inner := node(domain.NodeTypeGroup, 100, 100, domain.Settings{"width": 200.0, "height": 200.0})
	inner.ID = "inner"
	nodes := []*domain.Node{outer, inner}

	if got := GroupAt(nodes, domain.Point{X: 150, Y: 150}); got != inner {
		t.Errorf("expected inner group, got %v", got)
	}
	if got := GroupAt(nodes, domain.Point{X: 85, Y: 150}); got != inner {
		t.Errorf("expected buffer to include the point, got %v", got)
	}
	if got := GroupAt(nodes, domain.Point{X: 600, Y: 600}); got != outer {
		t.Errorf("expected outer group, got %v", got)
	}
	if got := GroupAt(nodes, domain.Point{X: 5000, Y: 0}); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestGroupMaintainer(t *testing.T) {
	m := NewGroupMaintainer()

	newScene := func() []*domain.Node {
		g := node(domain.NodeTypeGroup, 0, 0, domain.Settings{"width": 10.0, "height": 10.0})
		g.ID = "g1"
		a := node(domain.NodeTypeTextInput, 100, 100, nil)
		a.ID, a.ParentID = "a", "g1"
		b := node(domain.NodeTypeTextInput, 500, 300, nil)
		b.ID, b.ParentID = "b", "g1"
		return []*domain.Node{g, a, b}
	}

	t.Run("wraps children with padding", func(t *testing.T) {
		nodes := newScene()
		updated := m.Update(nodes, []string{"g1"}, nil, "")
		if len(updated) != 1 {
			t.Fatalf("expected one update, got %d", len(updated))
		}

		want := domain.Rect{X: 60, Y: 60, W: 500 + 280 - 100 + 80, H: 300 + 140 - 100 + 80}
		if got := groupRect(nodes[0]); got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("skips changes under epsilon", func(t *testing.T) {
		nodes := newScene()
		m.Update(nodes, []string{"g1"}, nil, "")
		nodes[1].Translate(0.05, 0)
		if updated := m.Update(nodes, []string{"g1"}, nil, ""); len(updated) != 0 {
			t.Errorf("expected no update, got %d", len(updated))
		}
	})

	t.Run("moving groups are skipped", func(t *testing.T) {
		nodes := newScene()
		if updated := m.Update(nodes, []string{"g1"}, map[string]bool{"g1": true}, ""); len(updated) != 0 {
			t.Errorf("expected moving group to be left alone")
		}
	})

	t.Run("affected groups deduplicated", func(t *testing.T) {
		nodes := newScene()
		ids := AffectedGroups(nodes)
		if len(ids) != 1 || ids[0] != "g1" {
			t.Errorf("expected [g1], got %v", ids)
		}
	})
}
