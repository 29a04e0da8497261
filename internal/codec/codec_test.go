package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"flowcanvas/internal/domain"
)

func sampleProject() *domain.Project {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	prompt := &domain.Node{
		ID:   "n1",
		Type: domain.NodeTypeTextInput,
		X:    10,
		Y:    20.5,
		Data: domain.NodeData{
			Label:    "Prompt",
			Value:    "A cat in the rain",
			Settings: domain.Settings{"aspectRatio": "16:9", "temperature": 0.5},
			Status:   domain.NodeStatusIdle,
		},
		ParentID: "g1",
	}
	img := &domain.Node{
		ID:   "n2",
		Type: domain.NodeTypeImageGen,
		X:    400,
		Y:    20.5,
		Data: domain.NodeData{
			Label:        "Visual Generator",
			OutputResult: "data:image/png;base64,AAAA",
			OutputList:   []string{"data:image/png;base64,AAAA"},
			OutputKind:   domain.ResourceImage,
			Status:       domain.NodeStatusDone,
		},
	}
	group := &domain.Node{
		ID:   "g1",
		Type: domain.NodeTypeGroup,
		X:    -30,
		Y:    -100,
		Data: domain.NodeData{
			Label:    "Group 1",
			Settings: domain.Settings{"width": 360.5, "height": 240.5},
			Status:   domain.NodeStatusIdle,
		},
	}
	return &domain.Project{
		ID:        "p1",
		Name:      "Rainy cat",
		Nodes:     []*domain.Node{prompt, img, group},
		Edges:     []*domain.Edge{domain.NewEdge("n1", "output", "n2", "prompt")},
		Viewport:  domain.Viewport{X: 12.5, Y: -40.5, Zoom: 1.25},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format)
			if err != nil {
				t.Fatalf("ForFormat: %v", err)
			}
			want := sampleProject()

			var buf bytes.Buffer
			if err := c.Export(want, &buf); err != nil {
				t.Fatalf("export: %v", err)
			}
			got, err := c.Parse(&buf)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("project mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", "json"},
		{"YAML", "yaml"},
		{"yml", "yaml"},
		{"toml", "toml"},
	}
	for _, tt := range tests {
		c, err := ForFormat(tt.format)
		if err != nil {
			t.Fatalf("ForFormat(%q): %v", tt.format, err)
		}
		if c.Format() != tt.want {
			t.Errorf("expected %s, got %s", tt.want, c.Format())
		}
	}

	if _, err := ForFormat("ansible"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestForPath(t *testing.T) {
	c, err := ForPath("/tmp/story.flow.toml")
	if err != nil || c.Format() != "toml" {
		t.Fatalf("expected toml codec, got %v %v", c, err)
	}
	if _, err := ForPath("Makefile"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParseFillsDefaults(t *testing.T) {
	src := `
name: sketch
nodes:
  - id: a
    type: text_input
    x: 0
    y: 0
    data:
      value: hello
  - id: b
    type: image_gen
    x: 400
    y: 0
    data:
      label: Render
edges:
  - source: a
    target: b
`
	p, err := NewYAMLCodec().Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if p.ID == "" {
		t.Error("expected generated project id")
	}
	if p.Viewport.Zoom != 1 {
		t.Errorf("expected zoom 1, got %v", p.Viewport.Zoom)
	}
	if p.Nodes[0].Data.Label != "Prompt" {
		t.Errorf("expected default label Prompt, got %q", p.Nodes[0].Data.Label)
	}
	if p.Nodes[1].Data.Status != domain.NodeStatusIdle {
		t.Errorf("expected idle status, got %q", p.Nodes[1].Data.Status)
	}
	if want := domain.NewEdge("a", "", "b", "").ID; p.Edges[0].ID != want {
		t.Errorf("expected derived edge id %s, got %s", want, p.Edges[0].ID)
	}
}

func TestTOMLDropsNilSettings(t *testing.T) {
	p := sampleProject()
	p.Nodes[0].Data.Settings["seed"] = nil

	var buf bytes.Buffer
	if err := NewTOMLCodec().Export(p, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := NewTOMLCodec().Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := got.Nodes[0].Data.Settings["seed"]; ok {
		t.Error("expected nil setting to be dropped")
	}
	if _, ok := p.Nodes[0].Data.Settings["seed"]; !ok {
		t.Error("expected export to leave the project untouched")
	}
}

func TestParseErrors(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		c, _ := ForFormat(format)
		if _, err := c.Parse(strings.NewReader("{{{ not valid")); err == nil {
			t.Errorf("%s: expected parse error", format)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("yaml"); got != "application/yaml" {
		t.Errorf("expected application/yaml, got %s", got)
	}
	if got := ContentType("json"); got != "application/json" {
		t.Errorf("expected application/json, got %s", got)
	}
}
