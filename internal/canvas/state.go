package canvas

import (
	"sort"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/layout"
)

// Mode is the interaction state
type Mode string

const (
	ModeIdle            Mode = "idle"
	ModePan             Mode = "pan"
	ModeZoomPinch       Mode = "zoomPinch"
	ModeDragNode        Mode = "dragNode"
	ModeBoxSelect       Mode = "boxSelect"
	ModeAwaitingGesture Mode = "awaitingGesture"
	ModeConnecting      Mode = "connecting"
)

// Drag is the precomputed moving set of a node drag
type Drag struct {
	NodeID string
	Moving map[string]bool
	Groups []string
}

// Box is a box selection in world coordinates
type Box struct {
	Start   domain.Point
	Current domain.Point
	// Base is the selection the box toggles against, nil when replacing
	Base map[string]bool
}

// Rect returns the spanned world rectangle
func (b Box) Rect() domain.Rect {
	return domain.RectFromPoints(b.Start, b.Current)
}

// Connection is an in-flight port-to-port drag
type Connection struct {
	NodeID    string
	PortID    string
	Direction domain.PortDirection
	// Ghost is the world position of the floating endpoint
	Ghost domain.Point
	// Armed is the compatible port under the pointer, if any
	Armed *layout.PortHit
}

// State is the whole interaction record. Reduce treats it as a value: maps
// are copied before they change.
type State struct {
	Mode      Mode            `json:"mode"`
	Viewport  domain.Viewport `json:"viewport"`
	Screen    Size            `json:"screen"`
	Selection map[string]bool `json:"-"`
	Primary   string          `json:"primary,omitempty"`
	Keys      Modifiers       `json:"-"`

	Pointers map[int]domain.Point `json:"-"`
	// pointer order, so pinch math always pairs the same two fingers
	order []int

	Press     Sample       `json:"-"`
	LastPos   domain.Point `json:"-"`
	PinchAt   domain.Point `json:"-"`
	PinchDist float64      `json:"-"`
	Token     int          `json:"-"`

	Drag    *Drag       `json:"-"`
	Box     *Box        `json:"box,omitempty"`
	Connect *Connection `json:"connect,omitempty"`
}

// NewState returns an idle state with the default viewport
func NewState(screen Size) State {
	return State{
		Mode:      ModeIdle,
		Viewport:  domain.DefaultViewport(),
		Screen:    screen,
		Selection: map[string]bool{},
		Pointers:  map[int]domain.Point{},
	}
}

// Selected returns the selected ids in lexical order
func (s State) Selected() []string {
	ids := make([]string, 0, len(s.Selection))
	for id, on := range s.Selection {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsSelected reports whether id is selected
func (s State) IsSelected(id string) bool {
	return s.Selection[id]
}

// World converts a screen point through the live viewport
func (s State) World(p domain.Point) domain.Point {
	return s.Viewport.ToWorld(p)
}

func (s State) withPointer(id int, p domain.Point) State {
	next := make(map[int]domain.Point, len(s.Pointers)+1)
	for k, v := range s.Pointers {
		next[k] = v
	}
	if _, ok := next[id]; !ok {
		s.order = append(append([]int(nil), s.order...), id)
	}
	next[id] = p
	s.Pointers = next
	return s
}

func (s State) withoutPointer(id int) State {
	if _, ok := s.Pointers[id]; !ok {
		return s
	}
	next := make(map[int]domain.Point, len(s.Pointers))
	for k, v := range s.Pointers {
		if k != id {
			next[k] = v
		}
	}
	order := make([]int, 0, len(s.order))
	for _, k := range s.order {
		if k != id {
			order = append(order, k)
		}
	}
	s.Pointers = next
	s.order = order
	return s
}

// pinchPair returns the centroid and distance of the first two pointers
func (s State) pinchPair() (domain.Point, float64, bool) {
	if len(s.order) < 2 {
		return domain.Point{}, 0, false
	}
	a, b := s.Pointers[s.order[0]], s.Pointers[s.order[1]]
	center := domain.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	return center, a.Dist(b), true
}

func (s State) withSelection(sel map[string]bool) (State, Effect) {
	s.Selection = sel
	ids := s.Selected()
	s.Primary = ""
	if len(ids) == 1 {
		s.Primary = ids[0]
	}
	return s, SelectionChanged{IDs: ids, Primary: s.Primary}
}

// reset ends any gesture but keeps viewport, selection and held keys
func (s State) reset() State {
	s.Mode = ModeIdle
	s.Drag = nil
	s.Box = nil
	s.Connect = nil
	s.PinchDist = 0
	return s
}
