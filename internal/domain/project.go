package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project is the persistence and interchange unit: a named graph plus the
// viewport it was last seen through.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []*Edge   `json:"edges"`
	Viewport  Viewport  `json:"viewport"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProject creates an empty project
func NewProject(name string) *Project {
	now := time.Now()
	return &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Nodes:     make([]*Node, 0),
		Edges:     make([]*Edge, 0),
		Viewport:  DefaultViewport(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Graph returns a graph view sharing the project's nodes and edges
func (p *Project) Graph() *Graph {
	if p.Nodes == nil {
		p.Nodes = make([]*Node, 0)
	}
	if p.Edges == nil {
		p.Edges = make([]*Edge, 0)
	}
	return &Graph{Nodes: p.Nodes, Edges: p.Edges}
}

// SetGraph stores the graph's nodes and edges back on the project
func (p *Project) SetGraph(g *Graph) {
	p.Nodes = g.Nodes
	p.Edges = g.Edges
	p.UpdatedAt = time.Now()
}

// ProjectSummary is the listing view of a project
type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"nodeCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}
