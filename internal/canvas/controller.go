package canvas

import (
	"sync"
	"time"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/layout"
)

// Controller runs the reducer against a live graph. It owns the
// interaction state and carries out every effect: graph writes happen under
// its lock, timers and animations after it is released.
type Controller struct {
	cfg      Config
	graph    *domain.Graph
	geometry *layout.Geometry
	groups   layout.GroupMaintainer
	animator *Animator

	// OnSelect, OnHaptic and OnChange are optional observers
	OnSelect func(SelectionChanged)
	OnHaptic func()
	OnChange func(State)

	mu       sync.Mutex
	state    State
	expanded string
	timers   map[int]*time.Timer
	started  time.Time
}

// NewController creates a controller over g
func NewController(cfg Config, g *domain.Graph, ports domain.PortCatalog, screen Size) *Controller {
	geometry := layout.NewGeometry(ports)
	if cfg.HeaderScaleMin > 0 && cfg.HeaderScaleMax >= cfg.HeaderScaleMin {
		geometry.MinScale, geometry.MaxScale = cfg.HeaderScaleMin, cfg.HeaderScaleMax
	}
	return &Controller{
		cfg:      cfg,
		graph:    g,
		geometry: geometry,
		groups:   layout.NewGroupMaintainer(),
		animator: NewAnimator(),
		state:    NewState(screen),
		timers:   make(map[int]*time.Timer),
		started:  time.Now(),
	}
}

// State returns a snapshot of the interaction state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetExpanded marks the node rendered in its expanded form
func (c *Controller) SetExpanded(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expanded = id
}

// Since is the controller clock used to stamp timer events
func (c *Controller) Since() time.Duration {
	return time.Since(c.started)
}

// Dispatch reduces one event and applies its effects
func (c *Controller) Dispatch(ev Event) {
	c.mu.Lock()
	env := Env{
		Config:     c.cfg,
		Geometry:   c.geometry,
		Nodes:      c.graph.Nodes,
		ExpandedID: c.expanded,
		Groups:     c.groups,
	}
	next, effects := Reduce(env, c.state, ev)
	c.state = next

	var deferred []Effect
	for _, fx := range effects {
		switch fx := fx.(type) {
		case ApplyMoves:
			c.applyMoves(fx)
		case CreateEdge:
			// Incompatible or duplicate drops are no-ops
			_, _ = c.graph.Connect(c.geometry.Ports, fx.Source, fx.SourceHandle, fx.Target, fx.TargetHandle)
		default:
			deferred = append(deferred, fx)
		}
	}
	state := c.state
	c.mu.Unlock()

	for _, fx := range deferred {
		c.run(fx)
	}
	if c.OnChange != nil {
		c.OnChange(state)
	}
}

func (c *Controller) applyMoves(fx ApplyMoves) {
	for _, u := range fx.Updates {
		n := c.graph.Node(u.ID)
		if n == nil {
			continue
		}
		n.Move(u.X, u.Y)
		if u.Resize {
			n.Data.Settings = n.Data.Settings.Clone().Set("width", u.W).Set("height", u.H)
		}
	}
}

func (c *Controller) run(fx Effect) {
	switch fx := fx.(type) {
	case StartLongPress:
		c.mu.Lock()
		c.timers[fx.Token] = time.AfterFunc(fx.After, func() {
			c.mu.Lock()
			delete(c.timers, fx.Token)
			c.mu.Unlock()
			c.Dispatch(LongPressFired{Token: fx.Token, At: c.Since()})
		})
		c.mu.Unlock()

	case CancelLongPress:
		c.mu.Lock()
		if t, ok := c.timers[fx.Token]; ok {
			t.Stop()
			delete(c.timers, fx.Token)
		}
		c.mu.Unlock()

	case Haptic:
		if c.OnHaptic != nil {
			c.OnHaptic()
		}

	case SelectionChanged:
		if c.OnSelect != nil {
			c.OnSelect(fx)
		}

	case AnimateTo:
		from := c.State().Viewport
		c.animator.Start(Transition{From: from, To: fx.Target, Duration: fx.Duration}, func(v domain.Viewport) {
			c.Dispatch(SetViewport{Viewport: v})
		})

	case CancelAnimation:
		c.animator.Stop()
	}
}

// Wait blocks until the running animation, if any, finishes
func (c *Controller) Wait() {
	c.animator.mu.Lock()
	done := c.animator.done
	c.animator.mu.Unlock()
	if done != nil {
		<-done
	}
}
