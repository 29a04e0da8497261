package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/observability"
	"flowcanvas/internal/registry"
)

// ErrNotRunnable is returned for nodes that have nothing to execute
var ErrNotRunnable = errors.New("node is not runnable")

// Runner executes nodes through the registry
type Runner struct {
	Registry *registry.Registry
	Builder  *Builder
	// Timeout bounds one execute call. Zero means no bound.
	Timeout time.Duration
}

// NewRunner creates a runner whose builder resolves ports via reg
func NewRunner(reg *registry.Registry) *Runner {
	return &Runner{Registry: reg, Builder: NewBuilder(reg)}
}

// Prepare marks the node running and builds its context. The returned node
// is a snapshot safe to hand to Execute without holding the graph.
func (r *Runner) Prepare(g *domain.Graph, nodeID string) (*domain.Node, *registry.ExecutionContext, error) {
	n := g.Node(nodeID)
	if n == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	if n.IsGroup() {
		return nil, nil, fmt.Errorf("%w: %s is a group", ErrNotRunnable, nodeID)
	}

	ec, err := r.Builder.Build(g, nodeID)
	if err != nil {
		return nil, nil, err
	}
	n.MarkRunning()
	return n.Clone(), ec, nil
}

// Execute runs a prepared node. It never touches a graph.
func (r *Runner) Execute(ctx context.Context, n *domain.Node, ec *registry.ExecutionContext) (domain.Result, error) {
	ctx, span := observability.StartNodeSpan(ctx, n.ID, string(n.Type))
	defer span.End()
	observability.RecordContext(span, len(ec.Inputs), len(ec.References))

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res, err := r.Registry.Execute(ctx, n, ec)
	observability.RecordError(span, err)
	return res, err
}

// Finish stores the outcome on the node still present in g. A node deleted
// while it ran is ignored.
func (r *Runner) Finish(g *domain.Graph, nodeID string, res domain.Result, err error) *domain.Node {
	n := g.Node(nodeID)
	if n == nil {
		return nil
	}
	if err != nil {
		log.Printf("Failed to run node %s (%s): %v", n.ID, n.Type, err)
		n.MarkFailed(err.Error())
		return n
	}
	n.ApplyResult(res)
	return n
}

// RunNode prepares, executes and finishes one node in place
func (r *Runner) RunNode(ctx context.Context, g *domain.Graph, nodeID string) (domain.Result, error) {
	snap, ec, err := r.Prepare(g, nodeID)
	if err != nil {
		return domain.Result{}, err
	}
	res, err := r.Execute(ctx, snap, ec)
	r.Finish(g, nodeID, res, err)
	return res, err
}
