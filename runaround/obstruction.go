// Package runaround narrows and splits text lines around non-text objects.
//
// An Obstruction is the mapped outline of one object plus the side text may
// flow on. The Fitter places one line at a time into the widest usable part
// of the band the line occupies.
package runaround

import (
	"math"

	"github.com/ByLCY/textflow/geom"
)

// Side is where text may flow around an obstruction.
type Side int

const (
	NoRunAround Side = iota
	TextOnLeft
	TextOnRight
	EnoughSides
	BiggerSide
	BothSides
	RunThrough
)

func (s Side) String() string {
	switch s {
	case NoRunAround:
		return "none"
	case TextOnLeft:
		return "left"
	case TextOnRight:
		return "right"
	case EnoughSides:
		return "enough"
	case BiggerSide:
		return "biggest"
	case BothSides:
		return "both"
	case RunThrough:
		return "run-through"
	}
	return "unknown"
}

// Options configures an obstruction.
type Options struct {
	Side Side
	// Distance keeps text this far from the outline on each side.
	DistanceLeft, DistanceTop, DistanceRight, DistanceBottom float64
	// Threshold is the minimum part width for EnoughSides.
	Threshold float64
	// Key identifies the owning object (the anchor ID) in registries.
	Key string
}

// Obstruction is the run-around geometry of one object in area coordinates.
type Obstruction struct {
	outline geom.Polygon
	matrix  geom.Matrix
	opts    Options

	polygon geom.Polygon
	edges   []geom.Line
	bounds  geom.Rect
	rect    geom.Rect
}

// New maps outline (object coordinates) through m and inflates it by the
// configured distances.
func New(outline geom.Polygon, m geom.Matrix, opts Options) *Obstruction {
	o := &Obstruction{outline: outline, opts: opts}
	o.ChangeMatrix(m)
	return o
}

// NewRect returns a rectangular obstruction already in area coordinates.
func NewRect(r geom.Rect, opts Options) *Obstruction {
	return New(geom.RectPolygon(r), geom.Identity(), opts)
}

// ChangeMatrix recomputes the mapped outline for a new transform.
func (o *Obstruction) ChangeMatrix(m geom.Matrix) {
	o.matrix = m
	o.polygon = m.MapPolygon(o.outline).Inflated(
		o.opts.DistanceLeft, o.opts.DistanceTop, o.opts.DistanceRight, o.opts.DistanceBottom)
	o.edges = o.polygon.Edges()
	o.bounds = o.polygon.Bounds()
	o.rect = geom.Rect{}
}

// Matrix returns the current transform.
func (o *Obstruction) Matrix() geom.Matrix { return o.matrix }

// Key returns the owner key.
func (o *Obstruction) Key() string { return o.opts.Key }

// Side returns the run-around side.
func (o *Obstruction) Side() Side { return o.opts.Side }

// Threshold returns the EnoughSides minimum width.
func (o *Obstruction) Threshold() float64 { return o.opts.Threshold }

// Bounds returns the bounding box of the inflated outline.
func (o *Obstruction) Bounds() geom.Rect { return o.bounds }

// Polygon returns the inflated outline in area coordinates.
func (o *Obstruction) Polygon() geom.Polygon { return o.polygon }

func (o *Obstruction) NoTextAround() bool      { return o.opts.Side == NoRunAround }
func (o *Obstruction) TextOnLeft() bool        { return o.opts.Side == TextOnLeft }
func (o *Obstruction) TextOnRight() bool       { return o.opts.Side == TextOnRight }
func (o *Obstruction) TextOnEnoughSides() bool { return o.opts.Side == EnoughSides }
func (o *Obstruction) TextOnBiggerSide() bool  { return o.opts.Side == BiggerSide }

// CropToLine computes the horizontal extent of the outline inside the
// vertical band of line and remembers it for the line-part queries. It
// returns an invalid rectangle when the outline does not reach the band.
func (o *Obstruction) CropToLine(line geom.Rect) geom.Rect {
	o.rect = geom.Rect{}
	if !(line.Bottom() > o.bounds.Top() && line.Top() < o.bounds.Bottom()) {
		return o.rect
	}
	top, bottom := line.Top(), line.Bottom()
	minX, maxX := math.Inf(1), math.Inf(-1)
	include := func(x float64) {
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
	}
	for _, e := range o.edges {
		y1, y2 := e.P1.Y, e.P2.Y
		if y1 == y2 {
			if y1 >= top && y1 <= bottom {
				include(e.P1.X)
				include(e.P2.X)
			}
			continue
		}
		lo := math.Max(math.Min(y1, y2), top)
		hi := math.Min(math.Max(y1, y2), bottom)
		if lo > hi {
			continue
		}
		include(xAt(e, lo))
		include(xAt(e, hi))
	}
	if minX > maxX {
		return o.rect
	}
	o.rect = geom.Rect{X: minX, Y: top, W: maxX - minX, H: bottom - top}
	return o.rect
}

func xAt(e geom.Line, y float64) float64 {
	t := (y - e.P1.Y) / (e.P2.Y - e.P1.Y)
	return e.P1.X + t*(e.P2.X-e.P1.X)
}

// CroppedRect returns the result of the last CropToLine.
func (o *Obstruction) CroppedRect() geom.Rect { return o.rect }

// LeftLinePart returns the part of line left of the cropped extent.
func (o *Obstruction) LeftLinePart(line geom.Rect) geom.Rect {
	part := line
	part.W = o.rect.Left() - line.Left()
	if part.W < 0 {
		part.W = 0
	}
	return part
}

// RightLinePart returns the part of line right of the cropped extent.
func (o *Obstruction) RightLinePart(line geom.Rect) geom.Rect {
	left := o.rect.Left()
	if o.rect.W > 0 {
		left = o.rect.Right()
	}
	part := line
	part.X = left
	part.W = line.Right() - left
	if part.W < 0 {
		part.W = 0
	}
	return part
}
