// Package geom provides the small amount of planar geometry the editor
// canvas needs: axis-aligned rectangles in screen coordinates, points and
// travel directions.
//
// Screen coordinates grow rightwards and downwards, so a [Rect] always has
// Left <= Right and Top <= Bottom.
package geom

import "math"

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rect is an axis-aligned bounding shape of a rendered component.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// RectXYWH builds a Rect from an origin and a size.
func RectXYWH(x, y, w, h float64) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns the horizontal span of the rect.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical span of the rect.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Area returns Width*Height, or 0 for degenerate rects.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether the rect has no area (not yet laid out).
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// CenterX returns the horizontal center point of the rect.
func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }

// CenterY returns the vertical center point of the rect.
func (r Rect) CenterY() float64 { return (r.Top + r.Bottom) / 2 }

// Center returns the center point of the rect.
func (r Rect) Center() Point { return Point{X: r.CenterX(), Y: r.CenterY()} }

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Intersect returns the overlapping region of r and o. The result is
// Empty when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// OverlapX reports whether the horizontal projections of r and o overlap.
func (r Rect) OverlapX(o Rect) bool { return r.Left < o.Right && o.Left < r.Right }

// OverlapY reports whether the vertical projections of r and o overlap.
func (r Rect) OverlapY(o Rect) bool { return r.Top < o.Bottom && o.Top < r.Bottom }

// Corners returns the four corners in clockwise order starting top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.Left, Y: r.Top},
		{X: r.Right, Y: r.Top},
		{X: r.Right, Y: r.Bottom},
		{X: r.Left, Y: r.Bottom},
	}
}

// CornerDistance returns the sum of distances between matching corners of
// r and o. Smaller means closer.
func (r Rect) CornerDistance(o Rect) float64 {
	a, b := r.Corners(), o.Corners()
	var sum float64
	for i := range a {
		sum += a[i].Dist(b[i])
	}
	return sum
}

// Axis is the main flow direction of a list of components.
type Axis int

const (
	// Vertical lists stack components top to bottom.
	Vertical Axis = iota
	// Horizontal lists place components left to right.
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// ParseAxis converts "vertical"/"horizontal" to an Axis. Unknown values map
// to Vertical.
func ParseAxis(s string) Axis {
	if s == "horizontal" {
		return Horizontal
	}
	return Vertical
}

// Direction is the travel direction of a drag gesture.
type Direction int

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

var directionNames = [...]string{"none", "up", "down", "left", "right"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "none"
	}
	return directionNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	for i, n := range directionNames {
		if n == string(b) {
			*d = Direction(i)
			return nil
		}
	}
	*d = None
	return nil
}

// Forward reports whether d moves towards later positions in a list
// (down or right).
func (d Direction) Forward() bool { return d == Down || d == Right }

// DirectionOf returns the dominant direction of a movement delta along
// axis. Zero movement along the axis yields None.
func DirectionOf(delta Point, axis Axis) Direction {
	if axis == Horizontal {
		switch {
		case delta.X < 0:
			return Left
		case delta.X > 0:
			return Right
		}
		return None
	}
	switch {
	case delta.Y < 0:
		return Up
	case delta.Y > 0:
		return Down
	}
	return None
}
