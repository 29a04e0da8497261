package canvas

import (
	"context"
	"math"
	"sync"
	"time"

	"flowcanvas/internal/domain"
)

// EaseOutCubic maps linear progress t in [0, 1] to a decelerating curve
func EaseOutCubic(t float64) float64 {
	t = math.Min(math.Max(t, 0), 1)
	return 1 - math.Pow(1-t, 3)
}

// Transition is an eased interpolation between two viewports
type Transition struct {
	From     domain.Viewport
	To       domain.Viewport
	Duration time.Duration
}

// At returns the viewport after elapsed and whether the transition is over
func (tr Transition) At(elapsed time.Duration) (domain.Viewport, bool) {
	if tr.Duration <= 0 || elapsed >= tr.Duration {
		return tr.To, true
	}
	e := EaseOutCubic(float64(elapsed) / float64(tr.Duration))
	return domain.Viewport{
		X:    tr.From.X + (tr.To.X-tr.From.X)*e,
		Y:    tr.From.Y + (tr.To.Y-tr.From.Y)*e,
		Zoom: tr.From.Zoom + (tr.To.Zoom-tr.From.Zoom)*e,
	}, false
}

// DefaultFrameInterval is roughly one display frame
const DefaultFrameInterval = 16 * time.Millisecond

// Animator runs one transition at a time. Starting a new one cancels the
// one in flight, whose frames stop before the new one's first frame.
type Animator struct {
	Interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnimator creates an animator ticking at DefaultFrameInterval
func NewAnimator() *Animator {
	return &Animator{Interval: DefaultFrameInterval}
}

// Start runs tr, calling frame for every step including the final one.
// The returned channel closes when the transition ends or is superseded.
func (a *Animator) Start(tr Transition, frame func(domain.Viewport)) <-chan struct{} {
	a.mu.Lock()
	a.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	interval := a.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				v, finished := tr.At(now.Sub(start))
				// A cancel racing the tick must not let a stale frame through
				if ctx.Err() != nil {
					return
				}
				frame(v)
				if finished {
					return
				}
			}
		}
	}()
	return done
}

// Stop cancels the running transition and waits for it to exit
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Animator) stopLocked() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil
}
