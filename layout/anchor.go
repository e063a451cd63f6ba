package layout

import (
	"math"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/runaround"
)

// AnchorStrategy places one anchored object during the layout of a root
// area. Strategies live for one root-area pass.
type AnchorStrategy interface {
	Anchor() *document.Anchor
	// Position is the document position of the placeholder rune.
	Position() int
	// MoveSubject places the object. It returns false when the object
	// cannot be placed yet and must be tried again in a later pass.
	MoveSubject() bool
	// Rect is the placed object in page coordinates.
	Rect() (geom.Rect, bool)

	host() *anchorHost
	registryKey() string
}

// anchorHost is where the placeholder was last found in the text.
type anchorHost struct {
	text   *TextLayout
	offset int
	pos    int

	paragraph, content, env geom.Rect
}

type anchorBase struct {
	anchor *document.Anchor
	// key identifies the object in the per-pass registries
	key  string
	dl   *DocumentLayout
	root *Area
	at   anchorHost

	rect   geom.Rect
	placed bool
}

func (s *anchorBase) Anchor() *document.Anchor { return s.anchor }
func (s *anchorBase) Position() int            { return s.at.pos }
func (s *anchorBase) Rect() (geom.Rect, bool)  { return s.rect, s.placed }
func (s *anchorBase) host() *anchorHost        { return &s.at }
func (s *anchorBase) registryKey() string      { return s.key }

// line returns the x of the placeholder and its line in the current pass.
func (s *anchorBase) line() (float64, *TextLine, bool) {
	if s.at.text == nil || !s.dl.anchorFound(s.key) {
		return 0, nil, false
	}
	return s.at.text.CursorToX(s.at.offset)
}

// InlineStrategy glues an object to its text position like a character.
type InlineStrategy struct{ anchorBase }

func NewInlineStrategy(dl *DocumentLayout, root *Area, anchor *document.Anchor, key string) *InlineStrategy {
	return &InlineStrategy{anchorBase{anchor: anchor, key: key, dl: dl, root: root}}
}

// MoveSubject places the object on the baseline of its line. It returns
// false while the line holding the placeholder is unknown.
func (s *InlineStrategy) MoveSubject() bool {
	x, line, ok := s.line()
	if !ok {
		return false
	}
	sz := s.anchor.Size
	s.rect = geom.Rect{X: x, Y: line.Baseline() - sz.H, W: sz.W, H: sz.H}
	s.placed = true
	return true
}

// FloatingStrategy positions an object relative to the page, the paragraph
// or the character it is anchored at, and turns it into an obstruction.
type FloatingStrategy struct{ anchorBase }

func NewFloatingStrategy(dl *DocumentLayout, root *Area, anchor *document.Anchor, key string) *FloatingStrategy {
	return &FloatingStrategy{anchorBase{anchor: anchor, key: key, dl: dl, root: root}}
}

// MoveSubject computes the object rectangle and updates its obstruction.
func (s *FloatingStrategy) MoveSubject() bool {
	if !s.dl.anchorFound(s.key) {
		return false
	}
	page := s.root.page
	r, hrect := s.place(page)
	r = s.clamp(r, page)
	r = s.stack(r, hrect)
	if s.placed && r != s.rect {
		Logger().Debug("anchor moved", "id", s.key, "from", s.rect, "to", r)
	}
	s.rect, s.placed = r, true
	s.dl.registerObstruction(s.key, s.anchor, r)
	return true
}

// place resolves the alignment inside the reference rectangles. It also
// returns the horizontal reference rectangle for stacking.
func (s *FloatingStrategy) place(page Page) (geom.Rect, geom.Rect) {
	a := s.anchor
	w, h := a.Size.W, a.Size.H
	pageRect, content := page.Rect(), page.Content
	lineX, line, hasLine := s.line()
	odd := page.Number%2 == 1

	var hr geom.Rect
	switch a.HRel {
	case document.HRelPage:
		hr = pageRect
	case document.HRelPageContent:
		hr = content
	case document.HRelPageStartMargin:
		hr = geom.RectFromLTRB(pageRect.Left(), 0, content.Left(), 0)
	case document.HRelPageEndMargin:
		hr = geom.RectFromLTRB(content.Right(), 0, pageRect.Right(), 0)
	case document.HRelParagraphContent:
		hr = s.at.content
	case document.HRelParagraphStartMargin:
		hr = geom.RectFromLTRB(s.at.paragraph.Left(), 0, s.at.content.Left(), 0)
	case document.HRelParagraphEndMargin:
		hr = geom.RectFromLTRB(s.at.content.Right(), 0, s.at.paragraph.Right(), 0)
	case document.HRelChar:
		hr = s.at.paragraph
		if hasLine {
			hr = geom.Rect{X: lineX, W: line.advance(s.at.offset)}
		}
	default:
		hr = s.at.paragraph
	}

	var x float64
	switch a.HPos {
	case document.HCenter:
		x = hr.X + (hr.W-w)/2
	case document.HRight:
		x = hr.Right() - w
	case document.HInside:
		x = hr.X
		if !odd {
			x = hr.Right() - w
		}
	case document.HOutside:
		x = hr.Right() - w
		if !odd {
			x = hr.X
		}
	case document.HFromLeft:
		x = hr.X + a.Offset.X
	case document.HFromInside:
		x = hr.X + a.Offset.X
		if !odd {
			x = hr.Right() - w - a.Offset.X
		}
	default:
		x = hr.X
	}

	var vr geom.Rect
	switch a.VRel {
	case document.VRelPage:
		vr = pageRect
	case document.VRelPageContent:
		vr = content
	case document.VRelParagraphContent:
		vr = s.at.content
	case document.VRelChar, document.VRelLine, document.VRelText:
		vr = s.at.paragraph
		if hasLine {
			vr = geom.Rect{X: line.X, Y: line.Y, W: line.Width(), H: line.Height()}
		}
	case document.VRelBaseline:
		vr = geom.Rect{Y: s.at.paragraph.Y}
		if hasLine {
			vr = geom.Rect{Y: line.Baseline()}
		}
	default:
		vr = s.at.paragraph
	}

	var y float64
	switch a.VPos {
	case document.VMiddle:
		y = vr.Y + (vr.H-h)/2
	case document.VBottom:
		y = vr.Bottom() - h
	case document.VFromTop:
		y = vr.Y + a.Offset.Y
	case document.VBelow:
		y = vr.Bottom()
	default:
		y = vr.Y
		if a.VRel == document.VRelBaseline {
			// on the baseline, top means resting on it
			y -= h
		}
	}
	return geom.Rect{X: x, Y: y, W: w, H: h}, hr
}

// clamp keeps the object inside the page and inside the layout environment
// of the area it is anchored in.
func (s *FloatingStrategy) clamp(r geom.Rect, page Page) geom.Rect {
	bound := page.Rect()
	if s.anchor.HRel != document.HRelPage && s.anchor.VRel != document.VRelPage {
		if env := s.at.env.Intersected(bound); env.W > 0 && env.H > 0 {
			bound = env
		}
	}
	r.X = math.Max(bound.Left(), math.Min(r.X, bound.Right()-r.W))
	r.Y = math.Max(bound.Top(), math.Min(r.Y, bound.Bottom()-r.H))
	return r
}

// stack moves a left or right aligned paragraph anchor past earlier ones
// with the same alignment; when there is no room beside them it goes below.
func (s *FloatingStrategy) stack(r, hrect geom.Rect) geom.Rect {
	a := s.anchor
	if a.Type != document.AnchorParagraph || (a.HPos != document.HLeft && a.HPos != document.HRight) {
		return r
	}
	var earlier []geom.Rect
	for _, o := range s.dl.textAnchors {
		if o == AnchorStrategy(s) {
			break
		}
		oa := o.Anchor()
		if oa.Type != a.Type || oa.HPos != a.HPos {
			continue
		}
		if or, ok := o.Rect(); ok {
			earlier = append(earlier, or)
		}
	}
	startX := r.X
	for range len(earlier) + 1 {
		moved := false
		for _, or := range earlier {
			if !or.Intersects(r) {
				continue
			}
			if a.HPos == document.HLeft {
				r.X = or.Right()
			} else {
				r.X = or.Left() - r.W
			}
			if r.X < hrect.Left() || r.Right() > hrect.Right() {
				r.X = startX
				r.Y = or.Bottom()
			}
			moved = true
		}
		if !moved {
			break
		}
	}
	return r
}

// obstructionSide maps a wrap mode; ok is false when text runs through.
func obstructionSide(w document.WrapSide) (runaround.Side, bool) {
	switch w {
	case document.WrapLeft:
		return runaround.TextOnLeft, true
	case document.WrapRight:
		return runaround.TextOnRight, true
	case document.WrapBoth:
		return runaround.BothSides, true
	case document.WrapBiggest:
		return runaround.BiggerSide, true
	case document.WrapEnough:
		return runaround.EnoughSides, true
	case document.WrapRunThrough:
		return runaround.RunThrough, false
	}
	return runaround.NoRunAround, true
}

// newAnchorObstruction builds the run-around geometry of an object placed at r.
func (dl *DocumentLayout) newAnchorObstruction(key string, a *document.Anchor, r geom.Rect) *runaround.Obstruction {
	side, ok := obstructionSide(a.Wrap)
	if !ok {
		return nil
	}
	d := a.Distance
	if d == (document.Insets{}) {
		d = document.Uniform(dl.opts.RunAroundDistance)
	}
	th := a.Threshold
	if th == 0 {
		th = dl.opts.RunAroundThreshold
	}
	return runaround.New(a.Shape(), geom.Translate(r.X, r.Y), runaround.Options{
		Side:           side,
		DistanceLeft:   d.Left,
		DistanceTop:    d.Top,
		DistanceRight:  d.Right,
		DistanceBottom: d.Bottom,
		Threshold:      th,
		Key:            key,
	})
}
