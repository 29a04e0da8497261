package canvas

import (
	"flowcanvas/internal/domain"
	"flowcanvas/internal/layout"
)

// Key names as reported by the platform
const (
	KeyShift   = "Shift"
	KeyControl = "Control"
	KeyMeta    = "Meta"
	KeySpace   = " "
	KeyEscape  = "Escape"
)

func keyDown(env Env, s State, ev KeyDown) (State, []Effect) {
	switch ev.Key {
	case KeyShift:
		s.Keys.Shift = true
		return s, nil
	case KeyControl:
		s.Keys.Ctrl = true
		return s, nil
	case KeyMeta:
		s.Keys.Meta = true
		return s, nil
	case KeySpace:
		if !ev.InText && !ev.Repeat {
			s.Keys.Space = true
		}
		return s, nil
	case KeyEscape:
		return release(env, s, Modifiers{}, false)
	}

	if !(ev.Mods.Ctrl || ev.Mods.Meta) || ev.InText {
		return s, nil
	}

	cfg := env.Config
	switch ev.Key {
	case "=", "+":
		return s, []Effect{ZoomTarget(s, s.Viewport.Zoom*cfg.ZoomStep, nil, cfg)}
	case "-":
		return s, []Effect{ZoomTarget(s, s.Viewport.Zoom/cfg.ZoomStep, nil, cfg)}
	case "0":
		return s, []Effect{FitTarget(env, s, nil)}
	case "1":
		return s, []Effect{ZoomTarget(s, 1, nil, cfg)}
	}
	return s, nil
}

func keyUp(s State, ev KeyUp) (State, []Effect) {
	switch ev.Key {
	case KeyShift:
		s.Keys.Shift = false
	case KeyControl:
		s.Keys.Ctrl = false
	case KeyMeta:
		s.Keys.Meta = false
	case KeySpace:
		s.Keys.Space = false
		if s.Mode == ModePan {
			s = s.reset()
		}
	}
	return s, nil
}

// ZoomTarget animates to zoom around anchor, or the screen centre when
// anchor is nil
func ZoomTarget(s State, zoom float64, anchor *domain.Point, cfg Config) AnimateTo {
	a := s.Screen.Center()
	if anchor != nil {
		a = *anchor
	}
	zoom = ClampZoom(zoom, cfg.MinZoom, cfg.AnimateMaxZoom)
	return AnimateTo{Target: ZoomAround(s.Viewport, a, zoom), Duration: cfg.ZoomDuration}
}

// PanTarget animates so the world point p sits at the screen centre
func PanTarget(s State, p domain.Point, cfg Config) AnimateTo {
	c := s.Screen.Center()
	target := domain.Viewport{
		X:    c.X - p.X*s.Viewport.Zoom,
		Y:    c.Y - p.Y*s.Viewport.Zoom,
		Zoom: s.Viewport.Zoom,
	}
	return AnimateTo{Target: target, Duration: cfg.PanDuration}
}

// FitTarget animates to fit the given nodes, or every node when ids is
// empty. With nothing to fit it resets to zoom 1.
func FitTarget(env Env, s State, ids []string) AnimateTo {
	nodes := env.Nodes
	if len(ids) > 0 {
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		nodes = nil
		for _, n := range env.Nodes {
			if want[n.ID] {
				nodes = append(nodes, n)
			}
		}
	}

	bounds, ok := layout.BoundsOf(nodes, env.ExpandedID)
	if !ok {
		return ZoomTarget(s, 1, nil, env.Config)
	}
	target, ok := FitBounds(bounds, s.Screen, env.Config)
	if !ok {
		return ZoomTarget(s, 1, nil, env.Config)
	}
	return AnimateTo{Target: target, Duration: env.Config.FitDuration}
}
