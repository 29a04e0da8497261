package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"flowcanvas/internal/codec"
	"flowcanvas/internal/domain"
	"flowcanvas/internal/execution"
	"flowcanvas/internal/layout"
	"flowcanvas/internal/registry"
	"flowcanvas/internal/repository"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNodeRunning     = errors.New("node is already running")
	ErrInvalidNode     = errors.New("invalid node")
)

// Options tunes execution
type Options struct {
	Concurrency int
	NodeTimeout time.Duration
	TextLimit   int
}

// projectState is an open project. mu guards the graph and the running set.
type projectState struct {
	mu      sync.Mutex
	project *domain.Project
	graph   *domain.Graph
	running map[string]bool
	// deleted marks a state that was deleted or replaced by an import.
	// It is never saved again.
	deleted bool
}

// snapshot returns the project sharing the live graph. Callers hold mu.
func (st *projectState) snapshot() *domain.Project {
	p := *st.project
	p.Nodes = st.graph.Nodes
	p.Edges = st.graph.Edges
	return &p
}

// ProjectService provides business logic for project and graph operations
type ProjectService struct {
	repo        repository.Repository
	eventBus    *EventBus
	registry    *registry.Registry
	runner      *execution.Runner
	groups      layout.GroupMaintainer
	concurrency int

	mu   sync.Mutex
	open map[string]*projectState
}

// NewProjectService creates a new project service
func NewProjectService(repo repository.Repository, eventBus *EventBus, reg *registry.Registry, opts Options) *ProjectService {
	runner := execution.NewRunner(reg)
	runner.Timeout = opts.NodeTimeout
	if opts.TextLimit > 0 {
		runner.Builder.TextLimit = opts.TextLimit
	}
	return &ProjectService{
		repo:        repo,
		eventBus:    eventBus,
		registry:    reg,
		runner:      runner,
		groups:      layout.NewGroupMaintainer(),
		concurrency: opts.Concurrency,
		open:        make(map[string]*projectState),
	}
}

// Registry returns the node registry the service executes with
func (s *ProjectService) Registry() *registry.Registry {
	return s.registry
}

// load returns the open state of a project, reading it from the repository
// on first use. Nodes persisted mid-run come back idle.
func (s *ProjectService) load(ctx context.Context, id string) (*projectState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.open[id]; ok {
		return st, nil
	}

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}

	for _, n := range p.Nodes {
		if n.Data.Status == domain.NodeStatusRunning {
			n.Data.Status = domain.NodeStatusIdle
		}
	}

	st := &projectState{project: p, graph: p.Graph(), running: make(map[string]bool)}
	s.open[id] = st
	return st, nil
}

// saveLocked writes the whole project. Callers hold st.mu.
func (s *ProjectService) saveLocked(ctx context.Context, st *projectState) error {
	if st.deleted {
		return nil
	}
	st.project.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveProject(ctx, st.snapshot()); err != nil {
		return fmt.Errorf("failed to save project %s: %w", st.project.ID, err)
	}
	return nil
}

func (s *ProjectService) publish(projectID string, t EventType, payload interface{}) {
	s.eventBus.Publish(Event{Type: t, ProjectID: projectID, Payload: payload})
}

// ListProjects returns a summary of every stored project
func (s *ProjectService) ListProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	return s.repo.ListProjects(ctx)
}

// CreateProject creates and stores an empty project
func (s *ProjectService) CreateProject(ctx context.Context, name string) (*domain.Project, error) {
	if name == "" {
		name = "Untitled"
	}
	p := domain.NewProject(name)
	if err := s.repo.SaveProject(ctx, p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.open[p.ID] = &projectState{project: p, graph: p.Graph(), running: make(map[string]bool)}
	s.mu.Unlock()

	s.publish(p.ID, EventProjectUpdated, map[string]string{"action": "created", "name": p.Name})
	return p, nil
}

// GetProject returns a deep copy of a project
func (s *ProjectService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	p := *st.project
	g := st.graph.Clone()
	p.Nodes, p.Edges = g.Nodes, g.Edges
	return &p, nil
}

// DeleteProject removes a project. Running nodes finish into the void.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	st, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		st.mu.Unlock()
		return err
	}
	st.deleted = true
	st.mu.Unlock()

	s.mu.Lock()
	delete(s.open, id)
	s.mu.Unlock()

	s.publish(id, EventProjectUpdated, map[string]string{"action": "deleted"})
	return nil
}

// ImportProject stores p, replacing any project with the same id. A
// project with running nodes cannot be replaced.
func (s *ProjectService) ImportProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	if p.ID == "" {
		p.ID = domain.NewProject("").ID
	}
	if p.Name == "" {
		p.Name = "Imported"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The old state stays locked until it is marked replaced, so no run
	// can start on it and later save its graph over the import
	if old, ok := s.open[p.ID]; ok {
		old.mu.Lock()
		defer old.mu.Unlock()
		if len(old.running) > 0 {
			return nil, fmt.Errorf("%w: project %s", ErrNodeRunning, p.ID)
		}
	}

	if err := s.repo.SaveProject(ctx, p); err != nil {
		return nil, err
	}
	if old, ok := s.open[p.ID]; ok {
		old.deleted = true
	}
	s.open[p.ID] = &projectState{project: p, graph: p.Graph(), running: make(map[string]bool)}

	s.publish(p.ID, EventProjectUpdated, map[string]string{"action": "imported", "name": p.Name})
	return p, nil
}

// Import parses a project in the given format and stores it
func (s *ProjectService) Import(ctx context.Context, format string, r io.Reader) (*domain.Project, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}
	p, err := c.Parse(r)
	if err != nil {
		return nil, err
	}
	return s.ImportProject(ctx, p)
}

// Export writes a project in the given format
func (s *ProjectService) Export(ctx context.Context, id, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	return c.Export(p, w)
}

// SaveViewport stores the camera of a project
func (s *ProjectService) SaveViewport(ctx context.Context, id string, v domain.Viewport) error {
	if v.Zoom <= 0 {
		return fmt.Errorf("zoom must be positive, got %v", v.Zoom)
	}
	st, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.project.Viewport = v
	return s.repo.SaveViewport(ctx, id, v)
}

// NodeSpec describes a node to add
type NodeSpec struct {
	Type domain.NodeType   `json:"type"`
	X    float64           `json:"x"`
	Y    float64           `json:"y"`
	Data *domain.DataPatch `json:"data,omitempty"`
}

// AddNode creates a node. Dropped inside a group it becomes that group's
// child and the group grows to wrap it.
func (s *ProjectService) AddNode(ctx context.Context, projectID string, spec NodeSpec) (*domain.Node, error) {
	if spec.Type == "" {
		return nil, fmt.Errorf("%w: type required", ErrInvalidNode)
	}
	if spec.Type == domain.NodeTypeGroup {
		return nil, fmt.Errorf("%w: groups are created from a selection", ErrInvalidNode)
	}

	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	n := domain.NewNode(spec.Type, spec.X, spec.Y)
	if spec.Data != nil {
		n.UpdateData(*spec.Data)
	}
	if g := layout.GroupAt(st.graph.Nodes, n.Position()); g != nil {
		n.ParentID = g.ID
	}
	if err := st.graph.AddNode(n); err != nil {
		return nil, err
	}
	refit := s.refitLocked(st, []*domain.Node{n}, nil)

	if err := s.saveLocked(ctx, st); err != nil {
		return nil, err
	}

	s.publish(projectID, EventNodeCreated, n.Clone())
	s.publishRefit(projectID, refit)
	return n.Clone(), nil
}

// refitLocked wraps the parents of nodes around their children again
func (s *ProjectService) refitLocked(st *projectState, nodes []*domain.Node, moving map[string]bool) []*domain.Node {
	return s.groups.Update(st.graph.Nodes, layout.AffectedGroups(nodes), moving, "")
}

func (s *ProjectService) publishRefit(projectID string, groups []*domain.Node) {
	for _, g := range groups {
		s.publish(projectID, EventNodeUpdated, g.Clone())
	}
}

// UpdateNode merges a data patch into a node
func (s *ProjectService) UpdateNode(ctx context.Context, projectID, nodeID string, patch domain.DataPatch) (*domain.Node, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.graph.UpdateNodeData(nodeID, patch); err != nil {
		return nil, err
	}
	if err := s.saveLocked(ctx, st); err != nil {
		return nil, err
	}

	n := st.graph.Node(nodeID).Clone()
	s.publish(projectID, EventNodeUpdated, n)
	return n, nil
}

// MoveNode places a node. A group carries its children along, and the
// parent of a moved child is refit.
func (s *ProjectService) MoveNode(ctx context.Context, projectID, nodeID string, x, y float64) (*domain.Node, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	n := st.graph.Node(nodeID)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}

	dx, dy := x-n.X, y-n.Y
	moved := []*domain.Node{n}
	n.Move(x, y)
	if n.IsGroup() {
		for _, c := range st.graph.Children(n.ID) {
			c.Translate(dx, dy)
			moved = append(moved, c)
		}
	}

	positions := make(map[string]domain.Point, len(moved))
	moving := make(map[string]bool, len(moved))
	for _, m := range moved {
		positions[m.ID] = m.Position()
		moving[m.ID] = true
	}

	refit := s.refitLocked(st, moved, moving)
	if len(refit) == 0 {
		err = s.repo.SavePositions(ctx, projectID, positions)
	} else {
		err = s.saveLocked(ctx, st)
	}
	if err != nil {
		return nil, err
	}

	s.publish(projectID, EventNodeMoved, positions)
	s.publishRefit(projectID, refit)
	return n.Clone(), nil
}

// DeleteNodes removes nodes with their edges and unparents orphans
func (s *ProjectService) DeleteNodes(ctx context.Context, projectID string, ids ...string) error {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	var present []string
	for _, id := range ids {
		if st.graph.Node(id) != nil {
			present = append(present, id)
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrNodeNotFound, ids)
	}

	removed := st.graph.DeleteNodes(present...)
	if err := s.saveLocked(ctx, st); err != nil {
		return err
	}

	for _, e := range removed {
		s.publish(projectID, EventEdgeDeleted, map[string]string{"edge_id": e.ID})
	}
	for _, id := range present {
		s.publish(projectID, EventNodeDeleted, map[string]string{"node_id": id})
	}
	return nil
}

// EdgeSpec describes an edge to add. Empty handles are auto-matched.
type EdgeSpec struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Connect adds an edge between two nodes
func (s *ProjectService) Connect(ctx context.Context, projectID string, spec EdgeSpec) (*domain.Edge, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	edge, err := st.graph.Connect(s.registry, spec.Source, spec.SourceHandle, spec.Target, spec.TargetHandle)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked(ctx, st); err != nil {
		return nil, err
	}

	e := *edge
	s.publish(projectID, EventEdgeCreated, &e)
	return &e, nil
}

// Disconnect removes an edge
func (s *ProjectService) Disconnect(ctx context.Context, projectID, edgeID string) error {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.graph.Disconnect(edgeID); err != nil {
		return err
	}
	if err := s.saveLocked(ctx, st); err != nil {
		return err
	}

	s.publish(projectID, EventEdgeDeleted, map[string]string{"edge_id": edgeID})
	return nil
}

// CreateGroup wraps nodes in a new group
func (s *ProjectService) CreateGroup(ctx context.Context, projectID string, ids []string) (*domain.Node, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	group, err := st.graph.CreateGroup(ids, layout.NodeBounds)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked(ctx, st); err != nil {
		return nil, err
	}

	s.publish(projectID, EventNodeCreated, group.Clone())
	for _, c := range st.graph.Children(group.ID) {
		s.publish(projectID, EventNodeUpdated, c.Clone())
	}
	return group.Clone(), nil
}

// Ungroup releases a group's children and removes the group
func (s *ProjectService) Ungroup(ctx context.Context, projectID, groupID string) error {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	children := st.graph.Children(groupID)
	if err := st.graph.Ungroup(groupID); err != nil {
		return err
	}
	if err := s.saveLocked(ctx, st); err != nil {
		return err
	}

	for _, c := range children {
		s.publish(projectID, EventNodeUpdated, c.Clone())
	}
	s.publish(projectID, EventNodeDeleted, map[string]string{"node_id": groupID})
	return nil
}

// NodeContext builds the execution context a node would run with now
func (s *ProjectService) NodeContext(ctx context.Context, projectID, nodeID string) (*registry.ExecutionContext, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.runner.Builder.Build(st.graph, nodeID)
}

// RunNode executes one node. A failed execution is not an error here: it
// is recorded on the returned node as status error with its message.
func (s *ProjectService) RunNode(ctx context.Context, projectID, nodeID string) (*domain.Node, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if st.running[nodeID] {
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNodeRunning, nodeID)
	}
	snap, ec, err := s.runner.Prepare(st.graph, nodeID)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	st.running[nodeID] = true
	s.publish(projectID, EventNodeStatus, snap.Clone())
	st.mu.Unlock()

	res, runErr := s.runner.Execute(ctx, snap, ec)

	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.running, nodeID)

	n := s.runner.Finish(st.graph, nodeID, res, runErr)
	if n == nil {
		return nil, fmt.Errorf("%w: %s was deleted while running", domain.ErrNodeNotFound, nodeID)
	}
	if err := s.saveLocked(ctx, st); err != nil {
		log.Printf("Failed to persist result of node %s: %v", nodeID, err)
	}

	out := n.Clone()
	s.publish(projectID, EventNodeStatus, out)
	return out, nil
}

// RunWorkflow executes the upstream closure of targets, or the whole
// graph, level by level
func (s *ProjectService) RunWorkflow(ctx context.Context, projectID string, targets ...string) (*execution.Report, error) {
	st, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	plan, err := execution.NewPlan(st.graph, targets...)
	if err != nil {
		st.mu.Unlock()
		return nil, err
	}
	var ids []string
	for _, level := range plan.Levels {
		for _, id := range level {
			if st.running[id] {
				st.mu.Unlock()
				return nil, fmt.Errorf("%w: %s", ErrNodeRunning, id)
			}
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		st.running[id] = true
	}
	graph := st.graph
	st.mu.Unlock()

	wf := &execution.Workflow{
		Runner:      s.runner,
		Concurrency: s.concurrency,
		Lock:        &st.mu,
		OnNode: func(n *domain.Node) {
			s.publish(projectID, EventNodeStatus, n)
		},
	}
	report, runErr := wf.Run(ctx, projectID, graph, targets...)

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, id := range ids {
		delete(st.running, id)
	}
	if err := s.saveLocked(ctx, st); err != nil {
		log.Printf("Failed to persist workflow results for %s: %v", projectID, err)
	}
	return report, runErr
}

// Close releases the repository
func (s *ProjectService) Close() error {
	return s.repo.Close()
}
