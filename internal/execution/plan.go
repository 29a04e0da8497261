package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/observability"
)

// ErrCycle is returned when the nodes to run depend on each other
var ErrCycle = errors.New("graph contains a cycle")

// DefaultConcurrency bounds how many nodes of one level run at once
const DefaultConcurrency = 4

// Plan orders a run into levels. Every node of a level depends only on
// nodes of earlier levels.
type Plan struct {
	Levels [][]string `json:"levels"`
}

// Len returns the number of planned nodes
func (p *Plan) Len() int {
	total := 0
	for _, level := range p.Levels {
		total += len(level)
	}
	return total
}

// NewPlan computes the upstream closure of targets and orders it. With no
// targets every runnable node is planned. Groups and dangling edges are
// ignored.
func NewPlan(g *domain.Graph, targets ...string) (*Plan, error) {
	upstream := make(map[string][]string)
	for _, e := range g.Edges {
		src, tgt := g.Node(e.Source), g.Node(e.Target)
		if src == nil || tgt == nil || src.IsGroup() || tgt.IsGroup() {
			continue
		}
		upstream[e.Target] = append(upstream[e.Target], e.Source)
	}

	include := make(map[string]bool)
	if len(targets) == 0 {
		for _, n := range g.Nodes {
			if !n.IsGroup() {
				include[n.ID] = true
			}
		}
	} else {
		stack := make([]string, 0, len(targets))
		for _, id := range targets {
			n := g.Node(id)
			if n == nil {
				return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
			}
			if n.IsGroup() {
				return nil, fmt.Errorf("%w: %s is a group", ErrNotRunnable, id)
			}
			stack = append(stack, id)
		}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if include[id] {
				continue
			}
			include[id] = true
			stack = append(stack, upstream[id]...)
		}
	}

	pending := make(map[string]int, len(include))
	downstream := make(map[string][]string)
	for id := range include {
		seen := make(map[string]bool)
		for _, src := range upstream[id] {
			if include[src] && !seen[src] {
				seen[src] = true
				pending[id]++
				downstream[src] = append(downstream[src], id)
			}
		}
	}

	plan := &Plan{}
	placed := 0
	for placed < len(include) {
		// Graph order keeps levels deterministic
		var level []string
		for _, n := range g.Nodes {
			if include[n.ID] && pending[n.ID] == 0 {
				level = append(level, n.ID)
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("%w: %d nodes unresolved", ErrCycle, len(include)-placed)
		}
		for _, id := range level {
			pending[id] = -1
			for _, next := range downstream[id] {
				pending[next]--
			}
		}
		placed += len(level)
		plan.Levels = append(plan.Levels, level)
	}
	return plan, nil
}

// Report summarises a workflow run
type Report struct {
	Plan   *Plan             `json:"plan"`
	Done   []string          `json:"done"`
	Failed map[string]string `json:"failed"`
}

// Workflow runs a plan level by level. Failures stay local: dependents
// still run and apply their own presence checks.
type Workflow struct {
	Runner      *Runner
	Concurrency int
	// Lock guards the graph while contexts are built and results stored.
	// Defaults to a private mutex.
	Lock sync.Locker
	// OnNode is called under Lock after every status change
	OnNode func(n *domain.Node)
}

// NewWorkflow creates a workflow with the default concurrency
func NewWorkflow(r *Runner) *Workflow {
	return &Workflow{Runner: r, Concurrency: DefaultConcurrency}
}

// Run executes the upstream closure of targets over g
func (w *Workflow) Run(ctx context.Context, projectID string, g *domain.Graph, targets ...string) (*Report, error) {
	lock := w.Lock
	if lock == nil {
		lock = &sync.Mutex{}
	}

	lock.Lock()
	plan, err := NewPlan(g, targets...)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartWorkflowSpan(ctx, projectID, plan.Len(), len(plan.Levels))
	defer span.End()

	report := &Report{Plan: plan, Failed: make(map[string]string)}
	var mu sync.Mutex

	for _, level := range plan.Levels {
		if err := ctx.Err(); err != nil {
			observability.RecordError(span, err)
			return report, err
		}

		eg, egCtx := errgroup.WithContext(ctx)
		limit := w.Concurrency
		if limit <= 0 {
			limit = DefaultConcurrency
		}
		eg.SetLimit(limit)

		for _, id := range level {
			eg.Go(func() error {
				err := w.runOne(egCtx, lock, g, id)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed[id] = err.Error()
				} else {
					report.Done = append(report.Done, id)
				}
				return nil
			})
		}
		_ = eg.Wait()
	}

	observability.RecordWorkflowResult(span, len(report.Done), len(report.Failed))
	return report, nil
}

func (w *Workflow) runOne(ctx context.Context, lock sync.Locker, g *domain.Graph, id string) error {
	lock.Lock()
	snap, ec, err := w.Runner.Prepare(g, id)
	if err == nil {
		w.notify(g.Node(id))
	}
	lock.Unlock()
	if err != nil {
		return err
	}

	res, err := w.Runner.Execute(ctx, snap, ec)

	lock.Lock()
	defer lock.Unlock()
	w.notify(w.Runner.Finish(g, id, res, err))
	return err
}

func (w *Workflow) notify(n *domain.Node) {
	if w.OnNode != nil && n != nil {
		w.OnNode(n.Clone())
	}
}
