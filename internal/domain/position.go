package domain

import "math"

// Point is a 2D coordinate, in world or screen units depending on context
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p*f
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Dist returns the euclidean distance between p and q
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis aligned rectangle anchored at its top-left corner
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// RectFromPoints builds the rectangle spanned by two corners in any order
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(a.X - b.X),
		H: math.Abs(a.Y - b.Y),
	}
}

// MaxX returns the right edge
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the bottom edge
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the midpoint
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Overlaps reports whether two rectangles intersect
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.MaxX() && r.MaxX() > o.X && r.Y < o.MaxY() && r.MaxY() > o.Y
}

// Inset grows r by d on every side; negative d shrinks it
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Union returns the smallest rectangle containing both
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Area returns W*H
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Viewport maps world coordinates to screen coordinates:
// screen = world*Zoom + (X, Y).
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ToWorld converts a screen point to world coordinates
func (v Viewport) ToWorld(p Point) Point {
	z := v.Zoom
	if z == 0 {
		z = 1
	}
	return Point{X: (p.X - v.X) / z, Y: (p.Y - v.Y) / z}
}

// ToScreen converts a world point to screen coordinates
func (v Viewport) ToScreen(p Point) Point {
	return Point{X: p.X*v.Zoom + v.X, Y: p.Y*v.Zoom + v.Y}
}
