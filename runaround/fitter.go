package runaround

import (
	"math"
	"sort"

	"github.com/ByLCY/textflow/geom"
)

const (
	// ProbeStep is how far a line moves down when no part of its band fits.
	ProbeStep = 10.0
	// MinWidth ends the width search.
	MinWidth = 0.01
	// MaxProbes bounds the downward search when no bottom limit is set.
	MaxProbes = 1000
)

const noHorizontalPosition = -math.MaxFloat64

// Line is the text line being fitted.
type Line interface {
	SetLineWidth(w float64)
	SetNumColumns(n int)
	NaturalTextWidth() float64
	Height() float64
	FirstCharWidth() float64
	SetPosition(p geom.Point)
	Width() float64
}

// Fitter places lines into the free parts of their band.
type Fitter struct {
	obstructions []*Obstruction
	valid        []*Obstruction
	lineParts    []geom.Rect

	width          float64
	bottomLimit    float64
	hasBottomLimit bool

	hpos      float64
	stay      bool
	textWidth float64
}

// NewFitter returns a fitter for lines of the given maximum width.
func NewFitter(width float64) *Fitter {
	return &Fitter{width: width, hpos: noHorizontalPosition}
}

// SetObstructions replaces the obstructions considered for later lines.
func (f *Fitter) SetObstructions(obs []*Obstruction) { f.obstructions = obs }

// Obstructions returns the current obstructions.
func (f *Fitter) Obstructions() []*Obstruction { return f.obstructions }

// SetWidth sets the maximum line width.
func (f *Fitter) SetWidth(w float64) { f.width = w }

// SetBottomLimit stops downward probing once a probed line starts below y.
func (f *Fitter) SetBottomLimit(y float64) {
	f.bottomLimit = y
	f.hasBottomLimit = true
}

// StayOnBaseline reports whether the last line left room to its right so the
// next line belongs on the same baseline.
func (f *Fitter) StayOnBaseline() bool { return f.stay }

// LineParts returns the usable parts computed for the last probed band.
func (f *Fitter) LineParts() []geom.Rect { return f.lineParts }

// TextWidth returns the width given to the last fitted line.
func (f *Fitter) TextWidth() float64 { return f.textWidth }

// Fit sizes and positions line starting at pos. It returns false when the
// line could only be degenerated to a single column at pos: either no width
// is available or no band above the bottom limit has room.
func (f *Fitter) Fit(line Line, resetHorizontal, rtl bool, pos geom.Point) bool {
	if resetHorizontal {
		f.hpos = noHorizontalPosition
		f.stay = false
	}
	if f.width <= 0 {
		line.SetNumColumns(1)
		line.SetPosition(pos)
		return false
	}

	lineRect := geom.Rect{X: pos.X, Y: pos.Y, W: f.width, H: 1}
	var part geom.Rect
	var maxNatural float64
	for probes := 0; ; probes++ {
		if probes >= MaxProbes || (f.hasBottomLimit && probes > 0 && lineRect.Top() > f.bottomLimit) {
			line.SetNumColumns(1)
			line.SetPosition(pos)
			f.hpos = noHorizontalPosition
			f.stay = false
			return false
		}
		lineRect, maxNatural = f.lineRect(line, lineRect)
		part = f.lineRectPart()
		if part.IsValid() {
			f.setMaxTextWidth(line, part, maxNatural)
			break
		}
		lineRect.Y += ProbeStep
		f.hpos = noHorizontalPosition
	}

	if rtl && line.NaturalTextWidth() > f.textWidth {
		part.X -= line.NaturalTextWidth() - f.textWidth
	}
	line.SetLineWidth(f.textWidth)
	line.SetPosition(geom.Point{X: part.X, Y: part.Y})
	f.checkEndOfLine(part, maxNatural)
	return true
}

func (f *Fitter) lineRect(line Line, r geom.Rect) (geom.Rect, float64) {
	line.SetLineWidth(f.width)
	maxNatural := line.NaturalTextWidth()
	r.W = f.width
	r.H = line.Height()
	f.textWidth = line.FirstCharWidth()

	f.valid = f.valid[:0]
	for _, o := range f.obstructions {
		if o.CropToLine(r).IsValid() {
			f.valid = append(f.valid, o)
		}
	}
	f.createLineParts(r)
	return r, maxNatural
}

func (f *Fitter) createLineParts(lineRect geom.Rect) {
	f.lineParts = f.lineParts[:0]
	if len(f.valid) == 0 {
		f.lineParts = append(f.lineParts, lineRect)
		return
	}
	sort.SliceStable(f.valid, func(i, j int) bool {
		return f.valid[i].CroppedRect().Left() < f.valid[j].CroppedRect().Left()
	})

	parts := make([]geom.Rect, 0, len(f.valid)+1)
	right := lineRect
	lastRightValid := false
	for _, o := range f.valid {
		parts = append(parts, o.LeftLinePart(right))
		if r := o.RightLinePart(right); r.IsValid() {
			right = r
			lastRightValid = true
		} else {
			lastRightValid = false
		}
	}
	if lastRightValid {
		parts = append(parts, right)
	} else {
		parts = append(parts, geom.Rect{})
	}

	for i, o := range f.valid {
		switch {
		case o.NoTextAround():
			parts[i] = geom.Rect{}
			parts[i+1] = geom.Rect{}
		case o.TextOnLeft():
			parts[i+1] = geom.Rect{}
		case o.TextOnRight():
			parts[i] = geom.Rect{}
		case o.TextOnEnoughSides():
			if o.LeftLinePart(lineRect).W < o.Threshold() {
				parts[i] = geom.Rect{}
			}
			if o.RightLinePart(lineRect).W < o.Threshold() {
				parts[i+1] = geom.Rect{}
			}
		case o.TextOnBiggerSide():
			if o.LeftLinePart(lineRect).W < o.RightLinePart(lineRect).W {
				parts[i] = geom.Rect{}
			} else {
				parts[i+1] = geom.Rect{}
			}
		}
	}
	for _, p := range parts {
		if p.IsValid() {
			f.lineParts = append(f.lineParts, p)
		}
	}
}

func (f *Fitter) lineRectPart() geom.Rect {
	for _, p := range f.lineParts {
		if f.hpos <= p.Left() && f.textWidth <= p.W {
			return p
		}
	}
	return geom.Rect{}
}

// setMaxTextWidth widens the line inside part for as long as it does not grow
// taller than the band, halving the step each round.
func (f *Fitter) setMaxTextWidth(line Line, part geom.Rect, maxNatural float64) {
	maxWidth := part.W
	maxHeight := part.H
	if maxNatural <= maxWidth {
		line.SetLineWidth(maxWidth)
		if line.Height() <= maxHeight {
			f.textWidth = maxWidth
			return
		}
	}
	width := f.textWidth
	diff := (maxWidth - width) / 2
	for width <= maxWidth && width <= maxNatural && diff > MinWidth {
		candidate := width + diff
		line.SetLineWidth(candidate)
		if line.Height() <= maxHeight {
			width = candidate
			f.textWidth = width
		}
		diff /= 2
	}
}

func (f *Fitter) checkEndOfLine(part geom.Rect, maxNatural float64) {
	if len(f.lineParts) == 0 || part == f.lineParts[len(f.lineParts)-1] || maxNatural <= part.W {
		f.hpos = noHorizontalPosition
		f.stay = false
		return
	}
	f.hpos = part.Right()
	f.stay = true
}
