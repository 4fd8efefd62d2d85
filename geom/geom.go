// Package geom holds the page geometry shared by the extraction pipeline.
//
// All coordinates are in PDF points with the origin at the top-left corner
// of the page and Y growing downwards, the same convention poppler uses for
// its text layout.
package geom

import "math"

// Point is a position on the page.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 // Left
	Y      float64 // Top
	Width  float64
	Height float64
}

// NewRectFromPoints returns the smallest rectangle containing p1 and p2.
func NewRectFromPoints(p1, p2 Point) Rect {
	return Rect{
		X:      math.Min(p1.X, p2.X),
		Y:      math.Min(p1.Y, p2.Y),
		Width:  math.Abs(p2.X - p1.X),
		Height: math.Abs(p2.Y - p1.Y),
	}
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns the area of r, or 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// IsEmpty reports whether r has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersection returns the overlap of r and other. The result is the zero
// Rect when they do not overlap with positive area.
func (r Rect) Intersection(other Rect) Rect {
	left := math.Max(r.Left(), other.Left())
	top := math.Max(r.Top(), other.Top())
	right := math.Min(r.Right(), other.Right())
	bottom := math.Min(r.Bottom(), other.Bottom())

	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Union returns the smallest rectangle containing both r and other.
// An empty operand is ignored.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	left := math.Min(r.Left(), other.Left())
	top := math.Min(r.Top(), other.Top())
	right := math.Max(r.Right(), other.Right())
	bottom := math.Max(r.Bottom(), other.Bottom())
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// OverlapFraction returns area(a ∩ b) / area(a): the share of a that is
// covered by b. It is 0 when the rectangles do not intersect or a has no
// area, and never exceeds 1.
func OverlapFraction(a, b Rect) float64 {
	area := a.Area()
	if area == 0 {
		return 0
	}
	f := a.Intersection(b).Area() / area
	return math.Min(f, 1)
}

// Quad is one quadrilateral of a text-markup annotation, in the order the
// PDF stores it.
type Quad [4]Point

// Rect returns the bounding rectangle of q.
func (q Quad) Rect() Rect {
	minX, minY := q[0].X, q[0].Y
	maxX, maxY := minX, minY
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Word is a positioned word token on a page.
type Word struct {
	Rect Rect
	Text string
}
