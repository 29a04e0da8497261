package canvas

import (
	"flowcanvas/internal/domain"
	"flowcanvas/internal/layout"
)

// Env is the read-only world a reduction runs against. Nodes must reflect
// every ApplyMoves effect returned so far.
type Env struct {
	Config     Config
	Geometry   *layout.Geometry
	Nodes      []*domain.Node
	ExpandedID string
	Groups     layout.GroupMaintainer
}

// NewEnv creates an environment with the stock group maintainer
func NewEnv(cfg Config, geometry *layout.Geometry, nodes []*domain.Node) Env {
	return Env{Config: cfg, Geometry: geometry, Nodes: nodes, Groups: layout.NewGroupMaintainer()}
}

func (e Env) scene(s State) layout.Scene {
	return layout.Scene{Nodes: e.Nodes, ExpandedID: e.ExpandedID, Zoom: s.Viewport.Zoom}
}

// Reduce applies one event. It never mutates s, env or the nodes.
func Reduce(env Env, s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case PointerDown:
		return pointerDown(env, s, ev)
	case PointerMove:
		return pointerMove(env, s, ev)
	case PointerUp:
		s = s.withoutPointer(ev.ID)
		return release(env, s, ev.Mods, true)
	case PointerCancel:
		s = s.withoutPointer(ev.ID)
		return release(env, s, Modifiers{}, false)
	case Blur:
		s.Pointers = map[int]domain.Point{}
		s.order = nil
		s.Keys = Modifiers{}
		return release(env, s, Modifiers{}, false)
	case LongPressFired:
		return longPress(env, s, ev)
	case Wheel:
		return wheel(env, s, ev)
	case KeyDown:
		return keyDown(env, s, ev)
	case KeyUp:
		return keyUp(s, ev)
	case Resize:
		s.Screen = ev.Size
		return s, nil
	case SetViewport:
		s.Viewport = ev.Viewport
		return s, nil
	}
	return s, nil
}

func pointerDown(env Env, s State, ev PointerDown) (State, []Effect) {
	if ev.OnControl {
		return s, nil
	}
	s = s.withPointer(ev.ID, ev.Pos)
	s.LastPos = ev.Pos

	// A second finger takes over whatever the first was doing
	if len(s.Pointers) >= 2 {
		var fx []Effect
		if s.Mode == ModeAwaitingGesture {
			fx = append(fx, CancelLongPress{Token: s.Token})
		}
		center, dist, _ := s.pinchPair()
		s = s.reset()
		s.Mode = ModeZoomPinch
		s.PinchAt = center
		s.PinchDist = dist
		return s, fx
	}

	if ev.Kind == PointerMouse {
		switch ev.Button {
		case ButtonMiddle:
			s.Mode = ModePan
			return s, nil
		case ButtonSecondary:
			// Context menus belong to the presentation layer
			return s.reset(), nil
		}
	}

	mods := ev.Mods.or(s.Keys)
	if ev.Kind == PointerMouse && mods.Space && !mods.Shift {
		s.Mode = ModePan
		return s, nil
	}

	world := s.World(ev.Pos)
	scene := env.scene(s)

	if hit, ok := layout.HitPort(env.Geometry, scene, world, env.Config.PortRadius); ok {
		s.Mode = ModeConnecting
		s.Connect = &Connection{
			NodeID:    hit.NodeID,
			PortID:    hit.PortID,
			Direction: hit.Direction,
			Ghost:     world,
		}
		return s, nil
	}

	if n := layout.HitNode(scene, world); n != nil {
		return startDrag(env, s, n, mods)
	}

	if ev.Kind == PointerMouse {
		s.Mode = ModeBoxSelect
		s.Box = newBox(s, world, mods)
		return s, nil
	}

	// Touch waits: a hold becomes a box select, a slide becomes a pan
	s.Mode = ModeAwaitingGesture
	s.Press = Sample{Pos: ev.Pos, At: ev.At}
	s.Token++
	return s, []Effect{StartLongPress{Token: s.Token, After: env.Config.LongPress}}
}

func newBox(s State, world domain.Point, mods Modifiers) *Box {
	box := &Box{Start: world, Current: world}
	if mods.MultiSelect() {
		box.Base = copySet(s.Selection)
	}
	return box
}

// startDrag computes the moving set: the whole selection when the node is
// part of it, plus the children of every moving group
func startDrag(env Env, s State, n *domain.Node, mods Modifiers) (State, []Effect) {
	var fx []Effect
	if !s.IsSelected(n.ID) {
		sel := map[string]bool{n.ID: true}
		if mods.MultiSelect() {
			sel = copySet(s.Selection)
			sel[n.ID] = true
		}
		var e Effect
		s, e = s.withSelection(sel)
		fx = append(fx, e)
	}

	moving := copySet(s.Selection)
	for _, node := range env.Nodes {
		if node.IsGroup() && moving[node.ID] {
			for _, child := range env.Nodes {
				if child.ParentID == node.ID {
					moving[child.ID] = true
				}
			}
		}
	}

	var members []*domain.Node
	for _, node := range env.Nodes {
		if moving[node.ID] {
			members = append(members, node)
		}
	}

	s.Mode = ModeDragNode
	s.Drag = &Drag{NodeID: n.ID, Moving: moving, Groups: layout.AffectedGroups(members)}
	return s, fx
}

func pointerMove(env Env, s State, ev PointerMove) (State, []Effect) {
	if _, ok := s.Pointers[ev.ID]; !ok {
		return s, nil
	}
	prev := s.LastPos
	s = s.withPointer(ev.ID, ev.Pos)
	s.LastPos = ev.Pos

	if len(s.Pointers) >= 2 {
		center, dist, _ := s.pinchPair()
		if s.Mode == ModeZoomPinch && s.PinchDist > 0 {
			s.Viewport = Pinch(s.Viewport, s.PinchAt, s.PinchDist, center, dist, env.Config)
		} else {
			s = s.reset()
			s.Mode = ModeZoomPinch
		}
		s.PinchAt = center
		s.PinchDist = dist
		return s, nil
	}

	switch s.Mode {
	case ModeAwaitingGesture:
		g := Classify([]Sample{s.Press, {Pos: ev.Pos, At: ev.At}}, false, env.Config.MoveThreshold, 0)
		if g == GestureDrag {
			// The viewport has not moved since the press, so panning by the
			// whole slide keeps the canvas under the finger
			s.Mode = ModePan
			s.Viewport = Pan(s.Viewport, ev.Pos.X-s.Press.Pos.X, ev.Pos.Y-s.Press.Pos.Y)
			return s, []Effect{CancelLongPress{Token: s.Token}}
		}

	case ModePan:
		s.Viewport = Pan(s.Viewport, ev.Pos.X-prev.X, ev.Pos.Y-prev.Y)

	case ModeDragNode:
		zoom := s.Viewport.Zoom
		if zoom == 0 {
			zoom = 1
		}
		dx := (ev.Pos.X - prev.X) / zoom
		dy := (ev.Pos.Y - prev.Y) / zoom
		if dx == 0 && dy == 0 {
			return s, nil
		}
		return s, []Effect{ApplyMoves{Updates: moveUpdates(env, s.Drag, dx, dy)}}

	case ModeBoxSelect:
		box := *s.Box
		box.Current = s.World(ev.Pos)
		s.Box = &box

	case ModeConnecting:
		conn := *s.Connect
		conn.Ghost = s.World(ev.Pos)
		conn.Armed = nil
		if hit, ok := dropTarget(env, s, conn); ok {
			conn.Armed = &hit
		}
		s.Connect = &conn
	}
	return s, nil
}

// moveUpdates translates the moving set and refits affected groups on
// copies of the nodes
func moveUpdates(env Env, d *Drag, dx, dy float64) []NodeUpdate {
	clones := make([]*domain.Node, len(env.Nodes))
	var updates []NodeUpdate
	for i, n := range env.Nodes {
		c := n.Clone()
		if d.Moving[n.ID] {
			c.Translate(dx, dy)
			updates = append(updates, NodeUpdate{ID: c.ID, X: c.X, Y: c.Y})
		}
		clones[i] = c
	}

	groups := env.Groups
	if groups == (layout.GroupMaintainer{}) {
		groups = layout.NewGroupMaintainer()
	}
	for _, g := range groups.Update(clones, d.Groups, d.Moving, env.ExpandedID) {
		w, _ := g.Data.Settings.Float("width")
		h, _ := g.Data.Settings.Float("height")
		updates = append(updates, NodeUpdate{ID: g.ID, X: g.X, Y: g.Y, Resize: true, W: w, H: h})
	}
	return updates
}

// dropTarget finds a port under the ghost that can complete the connection
func dropTarget(env Env, s State, conn Connection) (layout.PortHit, bool) {
	hit, ok := layout.HitPort(env.Geometry, env.scene(s), conn.Ghost, env.Config.SnapRadius)
	if !ok || hit.NodeID == conn.NodeID || hit.Direction != conn.Direction.Opposite() {
		return layout.PortHit{}, false
	}

	origin, ok := findNodePort(env, conn.NodeID, conn.PortID, conn.Direction)
	if !ok {
		return layout.PortHit{}, false
	}
	candidate, ok := findNodePort(env, hit.NodeID, hit.PortID, hit.Direction)
	if !ok {
		return layout.PortHit{}, false
	}

	out, in := origin, candidate
	if conn.Direction == domain.PortInput {
		out, in = candidate, origin
	}
	if !domain.IsCompatible(out, in) {
		return layout.PortHit{}, false
	}
	return hit, true
}

func findNodePort(env Env, nodeID, portID string, dir domain.PortDirection) (domain.PortDefinition, bool) {
	for _, n := range env.Nodes {
		if n.ID != nodeID {
			continue
		}
		ports := env.Geometry.Ports.Outputs(n.Type)
		if dir == domain.PortInput {
			ports = env.Geometry.Ports.Inputs(n.Type)
		}
		return domain.FindPort(ports, portID)
	}
	return domain.PortDefinition{}, false
}

// release is the one cleanup path for pointer up, cancel and blur. Only a
// real pointer up commits a box selection, tap or connection.
func release(env Env, s State, mods Modifiers, commit bool) (State, []Effect) {
	if len(s.Pointers) >= 2 {
		center, dist, _ := s.pinchPair()
		s.PinchAt = center
		s.PinchDist = dist
		return s, nil
	}

	var fx []Effect
	switch s.Mode {
	case ModeAwaitingGesture:
		fx = append(fx, CancelLongPress{Token: s.Token})
		if commit {
			g := Classify([]Sample{s.Press, {Pos: s.LastPos, At: s.Press.At}}, true, env.Config.MoveThreshold, 0)
			if g == GestureTap {
				var e Effect
				s, e = s.withSelection(map[string]bool{})
				fx = append(fx, e)
			}
		}

	case ModeBoxSelect:
		if commit && s.Box != nil {
			var e Effect
			s, e = finishBox(env, s, mods)
			fx = append(fx, e)
		}

	case ModeConnecting:
		if commit && s.Connect != nil && s.Connect.Armed != nil {
			fx = append(fx, edgeFor(*s.Connect))
		}
	}

	return s.reset(), fx
}

func edgeFor(c Connection) CreateEdge {
	if c.Direction == domain.PortOutput {
		return CreateEdge{Source: c.NodeID, SourceHandle: c.PortID, Target: c.Armed.NodeID, TargetHandle: c.Armed.PortID}
	}
	return CreateEdge{Source: c.Armed.NodeID, SourceHandle: c.Armed.PortID, Target: c.NodeID, TargetHandle: c.PortID}
}

// finishBox selects every node overlapping the box. A click without
// travel only clears, or keeps the prior selection under a modifier.
func finishBox(env Env, s State, mods Modifiers) (State, Effect) {
	box := *s.Box
	if box.Base == nil && mods.MultiSelect() {
		box.Base = copySet(s.Selection)
	}

	sel := map[string]bool{}
	if box.Base != nil {
		sel = copySet(box.Base)
	}

	start := s.Viewport.ToScreen(box.Start)
	end := s.Viewport.ToScreen(box.Current)
	if Classify([]Sample{{Pos: start}, {Pos: end}}, true, env.Config.ClickThreshold, 0) == GestureTap {
		return s.withSelection(sel)
	}

	for _, n := range layout.NodesInRect(env.scene(s), box.Rect()) {
		if box.Base != nil && box.Base[n.ID] {
			delete(sel, n.ID)
			continue
		}
		sel[n.ID] = true
	}
	return s.withSelection(sel)
}

func longPress(env Env, s State, ev LongPressFired) (State, []Effect) {
	if s.Mode != ModeAwaitingGesture || ev.Token != s.Token {
		return s, nil
	}
	g := Classify([]Sample{s.Press, {Pos: s.LastPos, At: ev.At}}, false, env.Config.MoveThreshold, env.Config.LongPress)
	if g != GestureLongPress {
		return s, nil
	}

	s.Mode = ModeBoxSelect
	s.Box = &Box{Start: s.World(s.Press.Pos), Current: s.World(s.Press.Pos)}
	s, e := s.withSelection(map[string]bool{})
	return s, []Effect{Haptic{}, e}
}

func wheel(env Env, s State, ev Wheel) (State, []Effect) {
	fx := []Effect{CancelAnimation{}}
	mods := ev.Mods.or(s.Keys)
	if mods.Ctrl || mods.Meta {
		s.Viewport = WheelZoom(s.Viewport, ev.Pos, ev.DeltaY, ev.DeltaMode, env.Config)
		return s, fx
	}
	s.Viewport = Pan(s.Viewport, -ev.DeltaX, -ev.DeltaY)
	return s, fx
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}
