package browser

import "math"

// Point is a position in pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Overlaps reports whether r and o share interior area. Touching edges do
// not count, so a marquee drawn exactly around items never grabs neighbours.
func (r Rect) Overlaps(o Rect) bool {
	return r.Bottom() > o.Top() &&
		r.Right() > o.Left() &&
		r.Top() < o.Bottom() &&
		r.Left() < o.Right()
}

// RectFromPoints builds the rectangle spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	x1, x2 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y1, y2 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Viewport locates the content area for a pointer event.
type Viewport struct {
	// Origin is the unscrolled top-left of the content in client coordinates.
	Origin Point
	// Scroll holds the scroll offset of every scrollable ancestor, the
	// content element itself included.
	Scroll []Point
}

// ToContent converts a client-space point to content-local coordinates.
func (v Viewport) ToContent(p Point) Point {
	out := Point{X: p.X - v.Origin.X, Y: p.Y - v.Origin.Y}
	for _, s := range v.Scroll {
		out.X += s.X
		out.Y += s.Y
	}
	return out
}

// Layout describes where rendered items sit in content-local coordinates.
type Layout interface {
	// ContainerWidth is the client width of the content area.
	ContainerWidth() float64
	// ItemWidth is the outer width of one item, margins included.
	ItemWidth() float64
	// ItemRect returns the bounding rectangle of the item at index.
	ItemRect(index int) Rect
	// ContentHeight is the scrollable height of the content for n items.
	ContentHeight(n int) float64
}

// ItemsPerRow is floor(containerWidth / itemWidth), at least 1.
func ItemsPerRow(l Layout) int {
	w := l.ItemWidth()
	if w <= 0 {
		return 1
	}
	n := int(math.Floor(l.ContainerWidth() / w))
	if n < 1 {
		return 1
	}
	return n
}

// GridLayout is a fixed-cell, left-to-right, top-to-bottom item grid.
type GridLayout struct {
	Width      float64
	CellWidth  float64
	CellHeight float64
}

func (g GridLayout) ContainerWidth() float64 { return g.Width }
func (g GridLayout) ItemWidth() float64      { return g.CellWidth }

func (g GridLayout) ItemRect(index int) Rect {
	perRow := ItemsPerRow(g)
	col, row := index%perRow, index/perRow
	return Rect{
		X: float64(col) * g.CellWidth,
		Y: float64(row) * g.CellHeight,
		W: g.CellWidth,
		H: g.CellHeight,
	}
}

func (g GridLayout) ContentHeight(n int) float64 {
	perRow := ItemsPerRow(g)
	rows := (n + perRow - 1) / perRow
	return float64(rows) * g.CellHeight
}
