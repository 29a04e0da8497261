// Package registry maps node types to their port declarations and execution
// behaviour.
//
// Lookups are total: an unknown type resolves to a pass-through definition
// and logs one diagnostic per type, so stale or partially migrated graphs
// still render, hit-test and run.
package registry

import (
	"context"
	"log"
	"sort"
	"sync"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/generation"
)

// Reference is one resolved @label mention in a node's free text
type Reference struct {
	Label  string `json:"label"`
	NodeID string `json:"nodeId"`
	Value  string `json:"value"`
	Media  bool   `json:"media"`
}

// ExecutionContext is everything a node sees when it runs
type ExecutionContext struct {
	NodeID      string                  `json:"nodeId"`
	Inputs      map[string]domain.Value `json:"inputs"`
	Settings    domain.Settings         `json:"settings"`
	InputLabels map[string]string       `json:"inputLabels"`
	References  []Reference             `json:"references"`
}

// Input returns the scalar received on a port
func (c *ExecutionContext) Input(port string) string {
	return c.Inputs[port].String()
}

// InputOrValue returns the port input, falling back to the manual value
func (c *ExecutionContext) InputOrValue(port string) string {
	if v := c.Input(port); v != "" {
		return v
	}
	return c.Settings.String("value")
}

// Definition is a node type's contract
type Definition interface {
	Type() domain.NodeType
	Label() string
	Inputs() []domain.PortDefinition
	Outputs() []domain.PortDefinition
	// Execute produces the node's result. It must not touch the graph.
	Execute(ctx context.Context, ec *ExecutionContext) (domain.Result, error)
}

// ExecutionError is returned when a node's execution fails
type ExecutionError struct {
	NodeID string
	Type   domain.NodeType
	Err    error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Info describes a registered type for API listings
type Info struct {
	Type    domain.NodeType         `json:"type"`
	Label   string                  `json:"label"`
	Inputs  []domain.PortDefinition `json:"inputs"`
	Outputs []domain.PortDefinition `json:"outputs"`
}

// Registry holds node definitions. It satisfies domain.PortCatalog.
type Registry struct {
	mu       sync.RWMutex
	defs     map[domain.NodeType]Definition
	warned   map[domain.NodeType]bool
	fallback Definition
}

// NewEmpty creates a registry with no definitions besides the fallback
func NewEmpty() *Registry {
	return &Registry{
		defs:     make(map[domain.NodeType]Definition),
		warned:   make(map[domain.NodeType]bool),
		fallback: passThroughNode(""),
	}
}

// New creates a registry holding every built-in node type
func New(gen generation.Service) *Registry {
	r := NewEmpty()
	for _, group := range [][]Definition{
		inputNodes(),
		generatorNodes(gen),
		agentNodes(gen),
		composerNodes(),
		effectNodes(gen),
		utilityNodes(),
		proNodes(gen),
	} {
		for _, d := range group {
			r.Register(d)
		}
	}
	return r
}

// Register adds or replaces a definition
func (r *Registry) Register(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.Type()] = d
}

// Lookup returns the definition for t without falling back
func (r *Registry) Lookup(t domain.NodeType) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[t]
	return d, ok
}

// Get returns the definition for t, or the pass-through fallback
func (r *Registry) Get(t domain.NodeType) Definition {
	if d, ok := r.Lookup(t); ok {
		return d
	}

	// Groups are containers, not steps; they have no ports and never warn
	if t == domain.NodeTypeGroup {
		return containerNode
	}

	r.mu.Lock()
	if !r.warned[t] {
		r.warned[t] = true
		log.Printf("Unknown node type %q, using pass-through definition", t)
	}
	r.mu.Unlock()
	return r.fallback
}

// Inputs returns the input ports of a type
func (r *Registry) Inputs(t domain.NodeType) []domain.PortDefinition {
	return r.Get(t).Inputs()
}

// Outputs returns the output ports of a type
func (r *Registry) Outputs(t domain.NodeType) []domain.PortDefinition {
	return r.Get(t).Outputs()
}

// Types returns the registered types in lexical order
func (r *Registry) Types() []domain.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.NodeType, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Catalog describes every registered type
func (r *Registry) Catalog() []Info {
	types := r.Types()
	out := make([]Info, 0, len(types))
	for _, t := range types {
		d := r.Get(t)
		out = append(out, Info{Type: t, Label: d.Label(), Inputs: d.Inputs(), Outputs: d.Outputs()})
	}
	return out
}

// Execute runs the definition for n and wraps failures in ExecutionError
func (r *Registry) Execute(ctx context.Context, n *domain.Node, ec *ExecutionContext) (domain.Result, error) {
	res, err := r.Get(n.Type).Execute(ctx, ec)
	if err != nil {
		return domain.Result{}, &ExecutionError{NodeID: n.ID, Type: n.Type, Err: err}
	}
	return res, nil
}

// node is the shared implementation of Definition
type node struct {
	typ     domain.NodeType
	label   string
	inputs  []domain.PortDefinition
	outputs []domain.PortDefinition
	run     func(ctx context.Context, ec *ExecutionContext) (domain.Result, error)
}

func (n *node) Type() domain.NodeType            { return n.typ }
func (n *node) Label() string                    { return n.label }
func (n *node) Inputs() []domain.PortDefinition  { return n.inputs }
func (n *node) Outputs() []domain.PortDefinition { return n.outputs }

func (n *node) Execute(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
	if ec == nil {
		ec = &ExecutionContext{}
	}
	return n.run(ctx, ec)
}
