// Package geom holds the small amount of plane geometry the layout engine needs:
// points, sizes, normalized rectangles, polygons and affine matrices.
// All values are in points (pt) with the y axis pointing down.
package geom

import "math"

// Point is a position in the layout coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle. Constructors keep it normalized
// (W ≥ 0 and H ≥ 0); a zero Rect is the null rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectFromLTRB builds a normalized rectangle from its four edges.
func RectFromLTRB(left, top, right, bottom float64) Rect {
	if right < left {
		left, right = right, left
	}
	if bottom < top {
		top, bottom = bottom, top
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}
}

// RectFromPoints returns the rectangle spanning p and q.
func RectFromPoints(p, q Point) Rect { return RectFromLTRB(p.X, p.Y, q.X, q.Y) }

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// TopLeft returns the origin corner.
func (r Rect) TopLeft() Point { return Point{X: r.X, Y: r.Y} }

// Size returns the rectangle dimensions.
func (r Rect) Size() Size { return Size{W: r.W, H: r.H} }

// IsValid reports whether the rectangle has a positive area.
func (r Rect) IsValid() bool { return r.W > 0 && r.H > 0 }

// IsNull reports whether both dimensions are zero.
func (r Rect) IsNull() bool { return r.W == 0 && r.H == 0 }

// Normalized returns r with non-negative width and height.
func (r Rect) Normalized() Rect { return RectFromLTRB(r.X, r.Y, r.X+r.W, r.Y+r.H) }

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Top() && p.Y <= r.Bottom()
}

// Intersects reports whether r and o share a region of positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.Left() < o.Right() && o.Left() < r.Right() && r.Top() < o.Bottom() && o.Top() < r.Bottom()
}

// Intersected returns the common region, or the null rectangle.
func (r Rect) Intersected(o Rect) Rect {
	if !r.Intersects(o) {
		return Rect{}
	}
	return RectFromLTRB(
		math.Max(r.Left(), o.Left()), math.Max(r.Top(), o.Top()),
		math.Min(r.Right(), o.Right()), math.Min(r.Bottom(), o.Bottom()),
	)
}

// United returns the bounding rectangle of r and o. A null operand is ignored.
func (r Rect) United(o Rect) Rect {
	if r.IsNull() {
		return o
	}
	if o.IsNull() {
		return r
	}
	return RectFromLTRB(
		math.Min(r.Left(), o.Left()), math.Min(r.Top(), o.Top()),
		math.Max(r.Right(), o.Right()), math.Max(r.Bottom(), o.Bottom()),
	)
}

// Translated moves r by (dx, dy).
func (r Rect) Translated(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Adjusted moves each edge by the given delta and renormalizes.
func (r Rect) Adjusted(dl, dt, dr, db float64) Rect {
	return RectFromLTRB(r.Left()+dl, r.Top()+dt, r.Right()+dr, r.Bottom()+db)
}

// WithTop moves the top edge keeping the bottom edge.
func (r Rect) WithTop(top float64) Rect { return RectFromLTRB(r.Left(), top, r.Right(), r.Bottom()) }

// WithBottom moves the bottom edge keeping the top edge.
func (r Rect) WithBottom(bottom float64) Rect {
	return RectFromLTRB(r.Left(), r.Top(), r.Right(), bottom)
}

// WithLeft moves the left edge keeping the right edge.
func (r Rect) WithLeft(left float64) Rect { return RectFromLTRB(left, r.Top(), r.Right(), r.Bottom()) }

// WithRight moves the right edge keeping the left edge.
func (r Rect) WithRight(right float64) Rect {
	return RectFromLTRB(r.Left(), r.Top(), right, r.Bottom())
}

// Line is a segment between two points.
type Line struct {
	P1, P2 Point
}

// Polygon is a closed outline; the last point connects back to the first.
type Polygon []Point

// RectPolygon returns the four corners of r as a polygon.
func RectPolygon(r Rect) Polygon {
	return Polygon{
		{X: r.Left(), Y: r.Top()},
		{X: r.Right(), Y: r.Top()},
		{X: r.Right(), Y: r.Bottom()},
		{X: r.Left(), Y: r.Bottom()},
	}
}

// Bounds returns the bounding rectangle of the polygon.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := minX, minY
	for _, pt := range p[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return RectFromLTRB(minX, minY, maxX, maxY)
}

// Edges returns the closing sequence of segments of the polygon.
func (p Polygon) Edges() []Line {
	if len(p) < 2 {
		return nil
	}
	edges := make([]Line, 0, len(p))
	for i := range p {
		edges = append(edges, Line{P1: p[i], P2: p[(i+1)%len(p)]})
	}
	return edges
}

// Translated returns a copy of p moved by (dx, dy).
func (p Polygon) Translated(dx, dy float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{X: pt.X + dx, Y: pt.Y + dy}
	}
	return out
}

// Inflated pushes every vertex away from the polygon's bounding-box centre
// so the bounds grow by the given distance on each side.
func (p Polygon) Inflated(left, top, right, bottom float64) Polygon {
	if len(p) == 0 {
		return nil
	}
	b := p.Bounds()
	cx := b.X + b.W/2
	cy := b.Y + b.H/2
	out := make(Polygon, len(p))
	for i, pt := range p {
		q := pt
		switch {
		case pt.X < cx:
			q.X -= left
		case pt.X > cx:
			q.X += right
		}
		switch {
		case pt.Y < cy:
			q.Y -= top
		case pt.Y > cy:
			q.Y += bottom
		}
		out[i] = q
	}
	return out
}

// Matrix is a 2D affine transform: x' = A*x + C*y + E, y' = B*x + D*y + F.
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Matrix { return Matrix{A: 1, D: 1} }

// Translate returns the translation by (dx, dy).
func Translate(dx, dy float64) Matrix { return Matrix{A: 1, D: 1, E: dx, F: dy} }

// Scale returns the scaling by (sx, sy).
func Scale(sx, sy float64) Matrix { return Matrix{A: sx, D: sy} }

// Mul returns the transform applying m first and then n.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Map transforms a point.
func (m Matrix) Map(p Point) Point {
	return Point{X: m.A*p.X + m.C*p.Y + m.E, Y: m.B*p.X + m.D*p.Y + m.F}
}

// MapPolygon transforms every vertex of p.
func (m Matrix) MapPolygon(p Polygon) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = m.Map(pt)
	}
	return out
}

// MapRect returns the bounding rectangle of the transformed corners of r.
func (m Matrix) MapRect(r Rect) Rect { return m.MapPolygon(RectPolygon(r)).Bounds() }

// IsIdentity reports whether m leaves points unchanged.
func (m Matrix) IsIdentity() bool { return m == Identity() }
