package canvas

import (
	"time"

	"flowcanvas/internal/domain"
)

// Gesture is the classification of a press
type Gesture int

const (
	// GesturePending means the press is still undecided
	GesturePending Gesture = iota
	GestureTap
	GestureLongPress
	GestureDrag
)

func (g Gesture) String() string {
	switch g {
	case GestureTap:
		return "tap"
	case GestureLongPress:
		return "long_press"
	case GestureDrag:
		return "drag"
	default:
		return "pending"
	}
}

// Sample is a pointer position at a point in time
type Sample struct {
	Pos domain.Point
	At  time.Duration
}

// Classify decides what a press is from its samples, the first being the
// press itself. Travelling beyond threshold is a drag. Holding still for
// longPress is a long press. Releasing before either is a tap. A zero
// longPress disables long-press detection.
func Classify(samples []Sample, released bool, threshold float64, longPress time.Duration) Gesture {
	if len(samples) == 0 {
		return GesturePending
	}
	start := samples[0]
	for _, s := range samples[1:] {
		if s.Pos.Dist(start.Pos) > threshold {
			return GestureDrag
		}
		if longPress > 0 && s.At-start.At >= longPress {
			return GestureLongPress
		}
	}
	if released {
		return GestureTap
	}
	return GesturePending
}
