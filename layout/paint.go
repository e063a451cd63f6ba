package layout

import (
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

// Painter receives the drawing operations of a laid out page. Coordinates
// are page-local points; text origins sit on the baseline.
type Painter interface {
	FillRect(r geom.Rect, c document.Color)
	StrokeRect(r geom.Rect, width float64, c document.Color)
	DrawLine(from, to geom.Point, width float64, c document.Color)
	DrawText(origin geom.Point, text string, format document.CharFormat)
	DrawObject(a *document.Anchor, r geom.Rect)
}

// PaintContext tunes a paint pass.
type PaintContext struct {
	// Clip limits painting to blocks intersecting it; empty paints all.
	Clip geom.Rect
	// ShowAreas outlines every area, for debugging.
	ShowAreas bool
}

func (ctx PaintContext) visible(r geom.Rect) bool {
	return ctx.Clip.IsNull() || ctx.Clip.Intersects(r) || r.H == 0
}

var debugAreaColor = document.Color{R: 220, G: 60, B: 60}

// Paint draws the area and everything nested in it.
func (a *Area) Paint(p Painter, ctx PaintContext) {
	a.paint(p, ctx, geom.Point{})
}

func (a *Area) paint(p Painter, ctx PaintContext, off geom.Point) {
	if ctx.ShowAreas {
		p.StrokeRect(a.ReferenceRect().Translated(off.X, off.Y), 0.3, debugAreaColor)
	}
	a.paintBlockDecorations(p, ctx, off)
	for _, bl := range a.blocks {
		if !ctx.visible(a.blockRects[bl.rectIndex].Translated(off.X, off.Y)) {
			continue
		}
		a.paintBlock(p, bl, off)
	}
	for _, t := range a.tables {
		t.paint(p, ctx, off)
	}
	for _, g := range a.generated {
		g.area.paint(p, ctx, off)
	}
	if a.endNotes != nil {
		a.endNotes.paint(p, ctx, off)
	}
	if a.kind == KindEndNotes {
		for _, na := range a.footNoteAreas {
			na.paint(p, ctx, off)
		}
	} else if a.parent == nil {
		a.paintFootNotes(p, ctx, off)
	}
	for _, pa := range a.anchors {
		p.DrawObject(pa.Anchor, pa.Rect.Translated(off.X, off.Y))
	}
}

// paintBlockDecorations fills block backgrounds and draws paragraph borders.
// Blocks sharing a merged border are drawn as one box.
func (a *Area) paintBlockDecorations(p Painter, ctx PaintContext, off geom.Point) {
	for i, bl := range a.blocks {
		r := a.blockRects[bl.rectIndex].Translated(off.X, off.Y)
		if !ctx.visible(r) {
			continue
		}
		f := bl.block.Format
		if f.Background != nil {
			p.FillRect(r, *f.Background)
		}
		if !bl.hasBorder {
			continue
		}
		b := f.Borders
		nextMerged := i+1 < len(a.blocks) && a.blocks[i+1].mergedBorder
		if b.Left.Width > 0 {
			x := r.Left() + b.Left.Width/2
			p.DrawLine(geom.Point{X: x, Y: r.Top()}, geom.Point{X: x, Y: r.Bottom()}, b.Left.Width, b.Left.Color)
		}
		if b.Right.Width > 0 {
			x := r.Right() - b.Right.Width/2
			p.DrawLine(geom.Point{X: x, Y: r.Top()}, geom.Point{X: x, Y: r.Bottom()}, b.Right.Width, b.Right.Color)
		}
		if b.Top.Width > 0 && !bl.mergedBorder {
			y := r.Top() + b.Top.Width/2
			p.DrawLine(geom.Point{X: r.Left(), Y: y}, geom.Point{X: r.Right(), Y: y}, b.Top.Width, b.Top.Color)
		}
		if b.Bottom.Width > 0 && !nextMerged {
			y := r.Bottom() - b.Bottom.Width/2
			p.DrawLine(geom.Point{X: r.Left(), Y: y}, geom.Point{X: r.Right(), Y: y}, b.Bottom.Width, b.Bottom.Color)
		}
	}
}

func (a *Area) paintBlock(p Painter, bl *blockLayout, off geom.Point) {
	lines := bl.lines()
	if len(lines) == 0 {
		return
	}
	if a.kind == KindNote && a.label != "" && bl == a.blocks[0] {
		first := lines[0]
		p.DrawText(geom.Point{X: a.left + off.X, Y: first.Baseline() + off.Y}, a.label, a.labelFormat())
	}
	if bl.hasCounter && bl.first {
		if label := bl.counter.Label(); label != "" {
			p.DrawText(geom.Point{X: bl.counterPos.X + off.X, Y: lines[0].Baseline() + off.Y}, label, bl.labelFormat)
		}
	}
	for _, l := range lines {
		a.paintLine(p, bl, l, off)
	}
}

// paintLine draws the runs of one line. Runs break at format changes,
// objects and tabs; justified lines also break at spaces.
func (a *Area) paintLine(p Painter, bl *blockLayout, l *TextLine, off geom.Point) {
	tl := bl.text
	baseline := l.Baseline() + off.Y
	x := l.X + l.offset + off.X

	var run strings.Builder
	runX := x
	var runFormat document.CharFormat
	flush := func() {
		if run.Len() > 0 {
			p.DrawText(geom.Point{X: runX, Y: baseline + baselineShift(runFormat)}, run.String(), runFormat)
			run.Reset()
		}
	}

	for i := l.Start; i < l.End; i++ {
		r := tl.runes[i]
		adv := l.advance(i)
		f := tl.formats[i]
		switch {
		case r == document.ObjectReplacement:
			flush()
			if n := tl.block.Fragments[tl.frag[i]].Note; n != nil {
				sf := f
				sf.Size = f.FontSize() * superscriptScale
				label := a.dl.noteLabel(n)
				p.DrawText(geom.Point{X: x, Y: baseline - f.FontSize()*0.33}, label, sf)
			}
		case r == '\t':
			flush()
			for _, t := range l.tabs {
				if t.index == i && t.leader != 0 {
					a.paintLeader(p, t, l.X+l.offset+off.X, baseline, f)
				}
			}
		case isNewline(r):
			flush()
		default:
			if run.Len() == 0 || f != runFormat || (l.spaceExtra > 0 && r == ' ') {
				flush()
				runX, runFormat = x, f
			}
			if !(l.spaceExtra > 0 && r == ' ') {
				run.WriteRune(r)
			}
		}
		x += adv
	}
	flush()
}

// paintLeader repeats the leader rune across a tab gap.
func (a *Area) paintLeader(p Painter, t tabSpan, lineX, baseline float64, f document.CharFormat) {
	s := string(t.leader)
	w := a.dl.typesetter.TextWidth(f, s)
	if w <= 0 {
		return
	}
	n := int((t.x1 - t.x0) / w)
	if n <= 0 {
		return
	}
	p.DrawText(geom.Point{X: lineX + t.x1 - float64(n)*w, Y: baseline}, strings.Repeat(s, n), f)
}

func baselineShift(f document.CharFormat) float64 {
	switch f.Baseline {
	case document.BaselineSuper:
		return -f.FontSize() * 0.33
	case document.BaselineSub:
		return f.FontSize() * 0.2
	}
	return 0
}

// paintFootNotes draws the separator and the footnote areas at the foot of
// a root area.
func (a *Area) paintFootNotes(p Painter, ctx PaintContext, off geom.Point) {
	if len(a.footNoteAreas) == 0 {
		return
	}
	cfg := a.dl.doc.Notes
	y := a.bottom - a.footNotesHeight
	if cfg.SeparatorWidth > 0 && cfg.SeparatorWeight > 0 {
		sy := y + cfg.SeparatorSpace/2 + off.Y
		w := (a.right - a.left) * cfg.SeparatorWidth / 100
		p.DrawLine(geom.Point{X: a.left + off.X, Y: sy}, geom.Point{X: a.left + w + off.X, Y: sy},
			cfg.SeparatorWeight, document.DefaultTextColor)
	}
	for _, fa := range a.footNoteAreas {
		fa.paint(p, ctx, geom.Point{X: off.X, Y: off.Y + y})
		y += fa.bottom
	}
}

func (ta *tableArea) paint(p Painter, ctx PaintContext, off geom.Point) {
	f := ta.table.Format
	ta.cells(func(cell *document.Cell, ca *Area, shift geom.Point) {
		r := ta.cellRect(cell).Translated(off.X, off.Y)
		if !ctx.visible(r) {
			return
		}
		bg := cell.Background
		if bg == nil {
			bg = f.Background
		}
		if bg != nil {
			p.FillRect(r, *bg)
		}
		ca.paint(p, ctx, off.Add(shift))
		if w := ta.cellBorder(cell); w > 0 {
			c := f.Border.Color
			if cell.Border.Width > 0 {
				c = cell.Border.Color
			}
			p.StrokeRect(r, w, c)
		}
	})
}

// PointedAt is what lies under a point of a page.
type PointedAt struct {
	// Position is the global document position, or -1 when nothing is hit.
	Position int
	Block    *document.Block
	// Offset is the rune offset inside Block.
	Offset int
	Anchor *document.Anchor
	Note   *document.Note
	Table  *document.Table
	Cell   *document.Cell
	Area   *Area
}

// Hit reports whether something was found.
func (pa PointedAt) Hit() bool { return pa.Position >= 0 }

var noHit = PointedAt{Position: -1}

// HitTest returns what lies under pt, in the coordinates of the area.
func (a *Area) HitTest(pt geom.Point) PointedAt {
	if res := a.anchorsAt(pt); res.Anchor != nil {
		return res
	}
	if a.parent == nil && len(a.footNoteAreas) > 0 {
		y := a.bottom - a.footNotesHeight
		if pt.Y >= y {
			for _, fa := range a.footNoteAreas {
				local := geom.Point{X: pt.X, Y: pt.Y - y}
				if local.Y <= fa.bottom {
					res := fa.HitTest(local)
					res.Note = fa.note
					return res
				}
				y += fa.bottom
			}
		}
	}
	for _, t := range a.tables {
		if res, ok := t.hitTest(pt); ok {
			return res
		}
	}
	for _, g := range a.generated {
		if g.area.boundingRect.Contains(pt) {
			if g.block == nil {
				return g.area.HitTest(pt)
			}
			// generated content hits as one block
			return PointedAt{Position: g.block.Position(), Block: g.block, Area: a}
		}
	}
	if a.endNotes != nil && a.endNotes.boundingRect.Contains(pt) {
		for _, na := range a.endNotes.footNoteAreas {
			if na.boundingRect.Contains(pt) {
				res := na.HitTest(pt)
				res.Note = na.note
				return res
			}
		}
	}
	return a.hitBlocks(pt)
}

func (a *Area) hitBlocks(pt geom.Point) PointedAt {
	var best *TextLine
	var bestBlock *blockLayout
	for _, bl := range a.blocks {
		if !a.blockRects[bl.rectIndex].Contains(pt) {
			continue
		}
		for _, l := range bl.lines() {
			r := l.Rect()
			if pt.Y >= r.Top() && pt.Y <= r.Bottom() {
				best, bestBlock = l, bl
				break
			}
			if pt.Y > r.Top() {
				best, bestBlock = l, bl
			}
		}
	}
	if best == nil {
		return noHit
	}
	off := best.offsetAtX(pt.X)
	res := PointedAt{
		Position: bestBlock.block.Position() + off,
		Block:    bestBlock.block,
		Offset:   off,
		Area:     a,
	}
	if off < bestBlock.text.Len() {
		if f, _ := bestBlock.block.FragmentAt(off); f != nil {
			res.Note = f.Note
			if f.Anchor != nil && f.Anchor.IsInline() {
				res.Anchor = f.Anchor
			}
		}
	}
	return res
}

// offsetAtX maps an x to the nearest rune boundary on the line.
func (l *TextLine) offsetAtX(x float64) int {
	cur := l.X + l.offset
	for i := l.Start; i < l.End; i++ {
		adv := l.advance(i)
		if x < cur+adv/2 {
			return i
		}
		cur += adv
	}
	if l.End > l.Start && isNewline(l.layout.runes[l.End-1]) {
		return l.End - 1
	}
	return l.End
}

func (ta *tableArea) hitTest(pt geom.Point) (PointedAt, bool) {
	res, found := noHit, false
	ta.cells(func(cell *document.Cell, ca *Area, shift geom.Point) {
		if found || !ta.cellRect(cell).Contains(pt) {
			return
		}
		found = true
		res = ca.HitTest(pt.Sub(shift))
		res.Table, res.Cell = ta.table, cell
	})
	return res, found
}

// PaintPage draws the root areas of page index.
func (dl *DocumentLayout) PaintPage(p Painter, index int, ctx PaintContext) {
	for _, r := range dl.rootAreas {
		if r.page.Index == index {
			r.Paint(p, ctx)
		}
	}
}

// HitTest returns what lies under pt on page index.
func (dl *DocumentLayout) HitTest(pt geom.Point, index int) PointedAt {
	for _, r := range dl.rootAreas {
		if r.page.Index != index {
			continue
		}
		rect := r.ReferenceRect()
		if pt.X < rect.Left() || pt.X > rect.Right() {
			if res := r.anchorsAt(pt); res.Anchor != nil {
				return res
			}
			continue
		}
		if res := r.HitTest(pt); res.Hit() || res.Anchor != nil {
			return res
		}
	}
	return noHit
}

func (a *Area) anchorsAt(pt geom.Point) PointedAt {
	for _, pa := range a.anchors {
		if pa.Rect.Contains(pt) {
			return PointedAt{Position: -1, Anchor: pa.Anchor, Area: a}
		}
	}
	return noHit
}
