package canvas

import (
	"math"

	"flowcanvas/internal/domain"
)

// Wheel delta modes
const (
	DeltaPixel = 0
	DeltaLine  = 1
	DeltaPage  = 2
)

// Size is the screen extent of the canvas container
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Center returns the middle of the screen
func (s Size) Center() domain.Point {
	return domain.Point{X: s.W / 2, Y: s.H / 2}
}

// ClampZoom bounds z to [min, max]
func ClampZoom(z, min, max float64) float64 {
	return math.Min(math.Max(z, min), max)
}

// ZoomAround sets the zoom keeping the world point under anchor (screen
// coordinates) fixed on screen
func ZoomAround(v domain.Viewport, anchor domain.Point, zoom float64) domain.Viewport {
	if v.Zoom == 0 {
		v.Zoom = 1
	}
	ratio := zoom / v.Zoom
	return domain.Viewport{
		X:    anchor.X - (anchor.X-v.X)*ratio,
		Y:    anchor.Y - (anchor.Y-v.Y)*ratio,
		Zoom: zoom,
	}
}

// Pan shifts the viewport by a screen delta
func Pan(v domain.Viewport, dx, dy float64) domain.Viewport {
	v.X += dx
	v.Y += dy
	return v
}

// PinchFactor scales the raw distance ratio by sensitivity
func PinchFactor(prevDist, dist, sensitivity float64) float64 {
	if prevDist <= 0 {
		return 1
	}
	factor := dist / prevDist
	if sensitivity > 0 && sensitivity != 1 {
		factor = 1 + (factor-1)*sensitivity
	}
	return factor
}

// Pinch applies one pinch step: zoom around the previous centroid, then
// follow the centroid's translation
func Pinch(v domain.Viewport, prevCenter domain.Point, prevDist float64, center domain.Point, dist float64, cfg Config) domain.Viewport {
	factor := PinchFactor(prevDist, dist, cfg.ZoomSensitivity)
	zoom := ClampZoom(v.Zoom*factor, cfg.MinZoom, cfg.MaxZoom)
	next := ZoomAround(v, prevCenter, zoom)
	return Pan(next, center.X-prevCenter.X, center.Y-prevCenter.Y)
}

// WheelZoom zooms around the cursor by an exponential of the wheel delta
func WheelZoom(v domain.Viewport, cursor domain.Point, deltaY float64, deltaMode int, cfg Config) domain.Viewport {
	switch deltaMode {
	case DeltaLine:
		deltaY *= 40
	case DeltaPage:
		deltaY *= 800
	}
	sensitivity := cfg.ZoomSensitivity
	if sensitivity <= 0 {
		sensitivity = 1
	}
	factor := math.Exp(-deltaY * cfg.WheelSensitivity * sensitivity)
	return ZoomAround(v, cursor, ClampZoom(v.Zoom*factor, cfg.MinZoom, cfg.MaxZoom))
}

// FitBounds returns the viewport centring bounds on screen with the
// configured padding. ok is false for empty bounds.
func FitBounds(bounds domain.Rect, screen Size, cfg Config) (domain.Viewport, bool) {
	if bounds.W <= 0 || bounds.H <= 0 {
		return domain.Viewport{}, false
	}
	scaleX := (screen.W - cfg.FitPadding*2) / bounds.W
	scaleY := (screen.H - cfg.FitPadding*2) / bounds.H
	zoom := ClampZoom(math.Min(scaleX, scaleY), cfg.FitMinZoom, cfg.FitMaxZoom)

	c := bounds.Center()
	return domain.Viewport{
		X:    screen.W/2 - c.X*zoom,
		Y:    screen.H/2 - c.Y*zoom,
		Zoom: zoom,
	}, true
}
