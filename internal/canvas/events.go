// Package canvas is the interaction layer of the editor: a pure reducer
// turning pointer, wheel and key input into viewport, selection and graph
// edits, plus the animator and controller that run it against a live graph.
//
// Reduce never performs side effects. Timers, haptics, graph writes and
// animations come back as Effects for the caller to carry out.
package canvas

import (
	"time"

	"flowcanvas/internal/domain"
)

// PointerKind is the device behind a pointer event
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerTouch
	PointerPen
)

// Mouse buttons
const (
	ButtonPrimary   = 0
	ButtonMiddle    = 1
	ButtonSecondary = 2
)

// Modifiers is the keyboard state attached to an input event
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Meta  bool
	Space bool
}

// MultiSelect reports whether a selection-extending modifier is held
func (m Modifiers) MultiSelect() bool {
	return m.Shift || m.Ctrl || m.Meta
}

func (m Modifiers) or(o Modifiers) Modifiers {
	return Modifiers{
		Shift: m.Shift || o.Shift,
		Ctrl:  m.Ctrl || o.Ctrl,
		Meta:  m.Meta || o.Meta,
		Space: m.Space || o.Space,
	}
}

// Event is an input to Reduce
type Event interface {
	isEvent()
}

// PointerDown is a press. Pos is in screen coordinates relative to the
// canvas container. OnControl marks presses on buttons, inputs and other
// widgets the canvas must leave alone.
type PointerDown struct {
	ID        int
	Kind      PointerKind
	Button    int
	Pos       domain.Point
	At        time.Duration
	Mods      Modifiers
	OnControl bool
}

// PointerMove is a pointer moving, pressed or not
type PointerMove struct {
	ID  int
	Pos domain.Point
	At  time.Duration
}

// PointerUp is a release
type PointerUp struct {
	ID   int
	Pos  domain.Point
	At   time.Duration
	Mods Modifiers
}

// PointerCancel is the platform aborting a pointer
type PointerCancel struct {
	ID int
}

// Blur is the window losing focus. Every gesture ends.
type Blur struct{}

// LongPressFired is delivered when a StartLongPress timer expires
type LongPressFired struct {
	Token int
	At    time.Duration
}

// Wheel is a scroll or trackpad pinch
type Wheel struct {
	Pos       domain.Point
	DeltaX    float64
	DeltaY    float64
	DeltaMode int
	Mods      Modifiers
}

// KeyDown is a key press. InText marks presses inside editable fields.
type KeyDown struct {
	Key    string
	Mods   Modifiers
	Repeat bool
	InText bool
}

// KeyUp is a key release
type KeyUp struct {
	Key string
}

// Resize is the container changing size
type Resize struct {
	Size Size
}

// SetViewport replaces the viewport, e.g. with an animation frame
type SetViewport struct {
	Viewport domain.Viewport
}

func (PointerDown) isEvent()    {}
func (PointerMove) isEvent()    {}
func (PointerUp) isEvent()      {}
func (PointerCancel) isEvent()  {}
func (Blur) isEvent()           {}
func (LongPressFired) isEvent() {}
func (Wheel) isEvent()          {}
func (KeyDown) isEvent()        {}
func (KeyUp) isEvent()          {}
func (Resize) isEvent()         {}
func (SetViewport) isEvent()    {}

// Effect is a side effect requested by Reduce
type Effect interface {
	isEffect()
}

// NodeUpdate is one position or group-size write
type NodeUpdate struct {
	ID string
	X  float64
	Y  float64
	// Resize is set for groups whose rectangle was recomputed
	Resize bool
	W      float64
	H      float64
}

// ApplyMoves writes node positions and group sizes
type ApplyMoves struct {
	Updates []NodeUpdate
}

// CreateEdge asks for a connection. Failures are silent no-ops.
type CreateEdge struct {
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
}

// StartLongPress arms a timer that must deliver LongPressFired{Token}
type StartLongPress struct {
	Token int
	After time.Duration
}

// CancelLongPress disarms a pending timer
type CancelLongPress struct {
	Token int
}

// Haptic requests a short vibration
type Haptic struct{}

// SelectionChanged reports the new selection. Primary is set only when
// exactly one node is selected.
type SelectionChanged struct {
	IDs     []string
	Primary string
}

// AnimateTo starts an eased transition, superseding any running one
type AnimateTo struct {
	Target   domain.Viewport
	Duration time.Duration
}

// CancelAnimation stops a running transition
type CancelAnimation struct{}

func (ApplyMoves) isEffect()       {}
func (CreateEdge) isEffect()       {}
func (StartLongPress) isEffect()   {}
func (CancelLongPress) isEffect()  {}
func (Haptic) isEffect()           {}
func (SelectionChanged) isEffect() {}
func (AnimateTo) isEffect()        {}
func (CancelAnimation) isEffect()  {}
