package codec

import (
	"time"

	"flowcanvas/internal/domain"
)

// document is the text-format shape of a project, shared by the YAML and
// TOML codecs
type document struct {
	ID        string      `yaml:"id" toml:"id"`
	Name      string      `yaml:"name" toml:"name"`
	Viewport  docViewport `yaml:"viewport" toml:"viewport"`
	CreatedAt time.Time   `yaml:"created_at,omitempty" toml:"created_at,omitempty"`
	UpdatedAt time.Time   `yaml:"updated_at,omitempty" toml:"updated_at,omitempty"`
	Nodes     []docNode   `yaml:"nodes" toml:"nodes"`
	Edges     []docEdge   `yaml:"edges" toml:"edges"`
}

type docViewport struct {
	X    float64 `yaml:"x" toml:"x"`
	Y    float64 `yaml:"y" toml:"y"`
	Zoom float64 `yaml:"zoom" toml:"zoom"`
}

type docNode struct {
	ID       string  `yaml:"id" toml:"id"`
	Type     string  `yaml:"type" toml:"type"`
	X        float64 `yaml:"x" toml:"x"`
	Y        float64 `yaml:"y" toml:"y"`
	ParentID string  `yaml:"parent_id,omitempty" toml:"parent_id,omitempty"`
	Data     docData `yaml:"data" toml:"data"`
}

type docData struct {
	Label        string         `yaml:"label" toml:"label"`
	Value        string         `yaml:"value,omitempty" toml:"value,omitempty"`
	Settings     map[string]any `yaml:"settings,omitempty" toml:"settings,omitempty"`
	OutputResult string         `yaml:"output_result,omitempty" toml:"output_result,omitempty"`
	OutputList   []string       `yaml:"output_list,omitempty" toml:"output_list,omitempty"`
	OutputKind   string         `yaml:"output_kind,omitempty" toml:"output_kind,omitempty"`
	AudioTrack   string         `yaml:"audio_track,omitempty" toml:"audio_track,omitempty"`
	Status       string         `yaml:"status,omitempty" toml:"status,omitempty"`
	ErrorMessage string         `yaml:"error_message,omitempty" toml:"error_message,omitempty"`
}

type docEdge struct {
	ID           string `yaml:"id,omitempty" toml:"id,omitempty"`
	Source       string `yaml:"source" toml:"source"`
	SourceHandle string `yaml:"source_handle,omitempty" toml:"source_handle,omitempty"`
	Target       string `yaml:"target" toml:"target"`
	TargetHandle string `yaml:"target_handle,omitempty" toml:"target_handle,omitempty"`
}

func toDocument(p *domain.Project) document {
	doc := document{
		ID:        p.ID,
		Name:      p.Name,
		Viewport:  docViewport{X: p.Viewport.X, Y: p.Viewport.Y, Zoom: p.Viewport.Zoom},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Nodes:     make([]docNode, 0, len(p.Nodes)),
		Edges:     make([]docEdge, 0, len(p.Edges)),
	}

	for _, n := range p.Nodes {
		doc.Nodes = append(doc.Nodes, docNode{
			ID:       n.ID,
			Type:     string(n.Type),
			X:        n.X,
			Y:        n.Y,
			ParentID: n.ParentID,
			Data: docData{
				Label:        n.Data.Label,
				Value:        n.Data.Value,
				Settings:     n.Data.Settings,
				OutputResult: n.Data.OutputResult,
				OutputList:   n.Data.OutputList,
				OutputKind:   string(n.Data.OutputKind),
				AudioTrack:   n.Data.AudioTrack,
				Status:       string(n.Data.Status),
				ErrorMessage: n.Data.ErrorMessage,
			},
		})
	}

	for _, e := range p.Edges {
		doc.Edges = append(doc.Edges, docEdge{
			ID:           e.ID,
			Source:       e.Source,
			SourceHandle: e.SourceHandle,
			Target:       e.Target,
			TargetHandle: e.TargetHandle,
		})
	}
	return doc
}

func (doc document) toProject() *domain.Project {
	p := &domain.Project{
		ID:        doc.ID,
		Name:      doc.Name,
		Viewport:  domain.Viewport{X: doc.Viewport.X, Y: doc.Viewport.Y, Zoom: doc.Viewport.Zoom},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Nodes:     make([]*domain.Node, 0, len(doc.Nodes)),
		Edges:     make([]*domain.Edge, 0, len(doc.Edges)),
	}

	for _, dn := range doc.Nodes {
		var settings domain.Settings
		if dn.Data.Settings != nil {
			settings = domain.Settings(dn.Data.Settings)
		}
		p.Nodes = append(p.Nodes, &domain.Node{
			ID:       dn.ID,
			Type:     domain.NodeType(dn.Type),
			X:        dn.X,
			Y:        dn.Y,
			ParentID: dn.ParentID,
			Data: domain.NodeData{
				Label:        dn.Data.Label,
				Value:        dn.Data.Value,
				Settings:     settings,
				OutputResult: dn.Data.OutputResult,
				OutputList:   dn.Data.OutputList,
				OutputKind:   domain.ResourceType(dn.Data.OutputKind),
				AudioTrack:   dn.Data.AudioTrack,
				Status:       domain.NodeStatus(dn.Data.Status),
				ErrorMessage: dn.Data.ErrorMessage,
			},
		})
	}

	for _, de := range doc.Edges {
		p.Edges = append(p.Edges, &domain.Edge{
			ID:           de.ID,
			Source:       de.Source,
			SourceHandle: de.SourceHandle,
			Target:       de.Target,
			TargetHandle: de.TargetHandle,
		})
	}
	return normalize(p)
}
