package layout

import (
	"math"
	"unicode"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/lists"
	"github.com/ByLCY/textflow/runaround"
)

// softBreakZone is how close to the bottom limit soft page breaks are honored.
const softBreakZone = 150.0

// dropCapsIterations bounds the font size search for drop caps.
const dropCapsIterations = 5

// blockLayout is the part of one block placed in an area.
type blockLayout struct {
	block *document.Block
	index int
	text  *TextLayout
	// top is where the block started, before spacing
	top   float64
	first bool
	rtl   bool

	hasCounter  bool
	counter     lists.CounterData
	counterPos  geom.Point
	labelFormat document.CharFormat
	level       *document.ListLevel

	rectIndex    int
	hasBorder    bool
	mergedBorder bool
	dropCaps     int

	// footnotes confirmed before the block and before each placed line
	noteMark  footNoteMark
	lineMarks []footNoteMark
}

// Lines returns the lines placed in the area.
func (bl *blockLayout) lines() []*TextLine { return bl.text.Lines() }

// layoutBlock places the block under cursor. It returns false when the block
// did not fit completely; cursor.LineTextStart then says where to resume.
func (a *Area) layoutBlock(cursor *FrameIterator) bool {
	block := cursor.Item().(*document.Block)
	format := block.Format
	dl := a.dl
	ts := dl.typesetter

	bl := &blockLayout{
		block:     block,
		index:     cursor.Index,
		top:       a.y,
		first:     cursor.LineTextStart == -1,
		rectIndex: -1,
		noteMark:  a.markFootNotes(),
	}
	savedBorder, savedPadding := a.prevBorder, a.prevBorderPadding

	dir := format.Direction
	if dir == document.DirectionInherit {
		dir = a.parentDirection()
	}
	if dir == document.DirectionAuto {
		if d, ok := detectDirection(block.Runes()); ok {
			dir = d
		} else {
			dir = a.parentDirection()
		}
	}
	a.isRTL = dir == document.DirectionRTL
	bl.rtl = a.isRTL

	if block.List != nil {
		bl.level = dl.listLevel(block)
		bl.counter, _ = dl.lists.Counter(block)
		bl.labelFormat = block.FirstCharFormat()
		if bl.level.LabelFormat != nil {
			bl.labelFormat = *bl.level.LabelFormat
		}
		if bl.level.RelativeBulletSize > 0 && bl.level.Format == document.FormatBullet {
			bl.labelFormat.Size = bl.labelFormat.FontSize() * bl.level.RelativeBulletSize / 100
		}
	}

	a.dropCapsNChars, a.dropCapsWidth, a.dropCapsDistance = 0, 0, 0
	dropCapsLines := 0
	opts := textOptions{noteLabel: dl.noteLabel}
	if bl.first && format.DropCaps.Enabled() && block.TextLength() > 1 {
		if n, f, w := a.dropCaps(block); n > 0 {
			opts.dropCaps, opts.dropFormat = n, f
			a.dropCapsNChars = n
			a.dropCapsWidth = w
			a.dropCapsDistance = format.DropCaps.Distance
			dropCapsLines = format.DropCaps.Lines
			bl.dropCaps = n
		}
	}

	startMargin, endMargin := format.LeftMargin, format.RightMargin
	if a.isRTL {
		startMargin, endMargin = endMargin, startMargin
	}
	a.indent = a.textIndent(block, bl.level) + a.extraTextIndent

	labelBoxWidth, labelBoxIndent := 0.0, 0.0
	if bl.level != nil {
		if bl.level.AlignmentMode {
			if startMargin == 0 {
				startMargin = bl.level.Margin
			}
			labelBoxWidth = bl.counter.Width
			switch bl.level.LabelAlignment {
			case document.AlignCenter:
				a.indent += labelBoxWidth / 2
			case document.AlignRight, document.AlignEnd:
			default:
				a.indent += labelBoxWidth
			}
			labelBoxIndent = a.indent - labelBoxWidth
		} else {
			labelBoxWidth = bl.counter.Spacing + bl.counter.Width
		}
	}

	a.width = a.right - a.left - startMargin - endMargin
	if a.isRTL {
		a.x = a.left + endMargin
	} else {
		a.x = a.left + startMargin
	}

	// tab stops are kept relative to the tab origin
	tabOrigin := a.left
	if format.TabsRelativeToIndent {
		tabOrigin += startMargin
	}
	tabs := make([]tabStop, 0, len(format.TabStops)+1)
	for _, t := range format.TabStops {
		pos := t.Position
		if pos == document.MaximumTabPos {
			pos = a.right - endMargin - 2 - tabOrigin
		}
		tabs = append(tabs, tabStop{pos: pos, typ: t.Type, delim: t.Delimiter, leader: t.Leader})
	}
	if bl.level != nil && bl.level.FollowedBy == document.FollowedByTab {
		listTab := a.left + startMargin
		if bl.level.HasTabPosition {
			if format.TabsRelativeToIndent {
				listTab = a.left + startMargin + bl.level.TabPosition - bl.level.Margin
			} else {
				listTab = a.left + bl.level.TabPosition
			}
		}
		typ := document.TabLeft
		if a.isRTL {
			typ = document.TabRight
		}
		tabs = append(tabs, tabStop{pos: listTab - tabOrigin, typ: typ})
	}
	interval := format.TabInterval
	if interval <= 0 {
		interval = dl.doc.TabInterval
	}

	tl := NewTextLayout(block, ts, opts)
	tl.SetTabs(tabs, interval)
	bl.text = tl
	if bl.first {
		tl.Restart(0)
	} else {
		tl.Restart(cursor.LineTextStart)
		a.indent = a.extraTextIndent
	}
	if block.List != nil && block.List.Unnumbered {
		// unnumbered items continue like following lines of the item above
		a.indent = 0
	}

	if bl.first && block.List != nil && !block.List.Unnumbered {
		lvl := bl.level
		if !lvl.AlignmentMode {
			minLabel := lvl.MinLabelWidth
			if !a.isRTL {
				a.x += lvl.Indent + minLabel
			}
			a.width -= lvl.Indent + minLabel
			a.indent += labelBoxWidth - minLabel
			bl.counterPos = geom.Point{X: a.x + a.indent - labelBoxWidth, Y: a.y}
			bl.hasCounter = true
		} else if labelBoxWidth > 0 || bl.counter.Label() != "" {
			bl.counterPos = geom.Point{X: a.x + labelBoxIndent, Y: a.y}
			bl.hasCounter = true
			switch lvl.FollowedBy {
			case document.FollowedByTab:
				rel := a.x + a.indent - tabOrigin
				a.indent += nextTabStop(tl.tabs, interval, rel) - rel
			case document.FollowedBySpace:
				a.indent += ts.TextWidth(bl.labelFormat, " ")
			}
		}
	}

	tabOrigin += a.handleBordersAndSpacing(bl, cursor.LineTextStart != -1)
	a.blocks = append(a.blocks, bl)
	a.boundingRect = a.boundingRect.United(a.blockRects[bl.rectIndex].WithBottom(a.y))

	drop := func() bool {
		a.blocks = a.blocks[:len(a.blocks)-1]
		a.blockRects = a.blockRects[:bl.rectIndex]
		a.prevBorder, a.prevBorderPadding = savedBorder, savedPadding
		a.y = bl.top
		bl.noteMark.restore()
		return false
	}

	fitter := runaround.NewFitter(0)
	blockPos := block.Position()
	maxLineHeight := 0.0
	yBelowDropCaps := 0.0
	anyLineAdded := false
	numBaselineShifts := 0
	dropCapsAffects := dropCapsLines

	line := tl.CreateLine()
	for line != nil {
		fitter.SetWidth(a.lineWidth())
		fitter.SetBottomLimit(a.MaximumAllowedBottom())
		fitter.SetObstructions(dl.currentObstructions())
		content := a.blockRects[len(a.blockRects)-1].WithTop(a.anchoringParagraphContentTop)
		paragraph := geom.RectFromLTRB(a.left, a.anchoringParagraphTop, a.right, content.Bottom())
		dl.setAnchoringRects(paragraph, content, a.layoutEnvironmentRect())

		line.origin = a.lineX() - tabOrigin
		if !fitter.Fit(line, false, a.isRTL, geom.Point{X: a.lineX(), Y: a.y}) {
			Logger().Warn("line degenerated to one column", "block", block.ID, "offset", line.Start)
		}
		if !a.foreign {
			dl.positionAnchorTextRanges(a, bl, line.Start, line.End)
		}
		bottomOfText := line.Y + line.Height()

		softBreak := false
		if a.acceptsPageBreak && !format.KeepTogether && a.y > a.MaximumAllowedBottom()-softBreakZone {
			if pos, ok := tl.SoftBreakIn(line.Start, line.End); ok {
				line.SetNumColumns(pos - line.Start + 1)
				softBreak = true
				if !a.virginPage && pos == 0 {
					tl.DropLast()
					return drop()
				}
			}
		}
		if !a.foreign {
			if sb := dl.anchoringSoftBreak(); sb <= blockPos+line.End {
				line.SetNumColumns(sb - blockPos - line.Start)
				softBreak = true
				if !a.virginPage && sb == blockPos {
					tl.DropLast()
					return drop()
				}
			}
		}

		lineMark := a.markFootNotes()
		a.findFootNotes(tl, line, bottomOfText)
		if bottomOfText > a.MaximumAllowedBottom() {
			if !a.virginPage && (format.KeepTogether ||
				(format.OrphanThreshold != 0 && format.OrphanThreshold > numBaselineShifts)) {
				cursor.LineTextStart = -1
				a.clearPreregisteredFootNotes()
				return drop()
			}
			if !a.virginPage || anyLineAdded {
				tl.DropLast()
				a.clearPreregisteredFootNotes()
				if !anyLineAdded {
					return drop()
				}
				a.keepWidows(bl, cursor, line.Start)
				return false
			}
		}
		a.confirmFootNotes()
		bl.lineMarks = append(bl.lineMarks, lineMark)
		anyLineAdded = true
		h := a.addLine(bl, line)
		line.LineHeight = h
		maxLineHeight = math.Max(maxLineHeight, h)
		a.neededWidth = math.Max(a.neededWidth, line.NaturalTextWidth()+a.indent)
		line.align(format.Alignment, a.isRTL)
		a.boundingRect = a.boundingRect.United(line.Rect())

		if !fitter.StayOnBaseline() {
			a.y += maxLineHeight
			maxLineHeight = 0
			a.indent = 0
			a.extraTextIndent = 0
			numBaselineShifts++
		}

		if a.dropCapsNChars > 0 {
			yBelowDropCaps = a.y
			a.y = line.Y
			a.dropCapsNChars -= line.Len()
		} else if dropCapsAffects > 0 {
			dropCapsAffects--
			if dropCapsAffects == 0 {
				a.y = math.Max(a.y, yBelowDropCaps)
				yBelowDropCaps = 0
				a.dropCapsWidth = 0
				a.dropCapsDistance = 0
			}
		}
		if !a.foreign {
			dl.positionAnchoredObstructions()
		}

		line = tl.CreateLine()
		if line == nil {
			break
		}
		cursor.LineTextStart = line.Start
		if softBreak {
			tl.DropLast()
			return false
		}
	}

	a.bottomSpacing = format.BottomMargin
	a.virginPage = false
	cursor.LineTextStart = -1
	return true
}

// keepWidows moves the split point up so at least WidowThreshold lines
// continue in the next area, as long as one line stays here.
func (a *Area) keepWidows(bl *blockLayout, cursor *FrameIterator, next int) {
	w := bl.block.Format.WidowThreshold
	lines := bl.text.Lines()
	if w <= 0 || len(lines) == 0 {
		return
	}
	rest := bl.text.countLines(next, lines[len(lines)-1].Width())
	if rest >= w {
		return
	}
	keep := max(1, bl.block.Format.OrphanThreshold)
	move := min(w-rest, len(lines)-keep)
	if move <= 0 {
		return
	}
	first := lines[len(lines)-move]
	cursor.LineTextStart = first.Start
	a.y = first.Y
	if i := len(bl.lineMarks) - move; i >= 0 {
		bl.lineMarks[i].restore()
		bl.lineMarks = bl.lineMarks[:i]
	}
	for range move {
		bl.text.DropLast()
	}
}

// nextTabStop returns the first tab position after pos, falling back to the
// regular interval past the last explicit stop.
func nextTabStop(tabs []tabStop, interval, pos float64) float64 {
	for _, t := range tabs {
		if t.pos > pos+MinTabAdvance {
			return t.pos
		}
	}
	if interval <= 0 {
		interval = 36
	}
	return (math.Floor(pos/interval) + 1) * interval
}

func (a *Area) textIndent(b *document.Block, level *document.ListLevel) float64 {
	if b.Format.AutoTextIndent {
		return a.dl.typesetter.TextWidth(b.FirstCharFormat(), "x") * 3
	}
	if level != nil && level.AlignmentMode && b.Format.TextIndent == 0 {
		return level.TextIndent
	}
	return b.Format.TextIndent
}

// dropCaps returns the number of enlarged runes, their format and width.
func (a *Area) dropCaps(b *document.Block) (int, document.CharFormat, float64) {
	dc := b.Format.DropCaps
	runes := b.Runes()
	n := dc.Length
	if n <= 0 {
		i := 0
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
			i++
		}
		n = i
	}
	if f, _ := b.FragmentAt(0); f != nil && f.SoftPageBreak {
		n++
	}
	n = min(n, len(runes)-1)
	if n <= 0 {
		return 0, document.CharFormat{}, 0
	}

	base := b.FirstCharFormat()
	lh := b.Format.LineHeight
	lineHeight := lh.Fixed
	height := 0.0
	if lineHeight == 0 {
		lineHeight = base.FontSize()
		spacing := lh.Spacing
		if spacing == 0 {
			if lh.Percent != 0 {
				spacing = lineHeight * (lh.Percent - 100) / 100
			} else {
				spacing = lineHeight * 0.2
			}
		}
		height = spacing * float64(dc.Lines-1)
	}
	if lh.Minimum > 0 {
		lineHeight = math.Max(lineHeight, lh.Minimum)
	}
	height += lineHeight * float64(dc.Lines)

	ts := a.dl.typesetter
	f := base
	f.Size = height
	for range dropCapsIterations {
		// the ascent stands in for the tight glyph height
		glyph := ts.Metrics(f).Ascent
		diff := height - glyph
		if math.Abs(diff) < 0.5 || glyph <= 0 {
			break
		}
		f.Size += diff * f.Size / glyph
	}
	return n, f, ts.TextWidth(f, string(runes[:n]))
}

// handleBordersAndSpacing applies collapsed vertical spacing, starts the
// block rect and moves the content box inside borders and padding. It
// returns the horizontal shift of the content.
func (a *Area) handleBordersAndSpacing(bl *blockLayout, continued bool) float64 {
	format := bl.block.Format
	borders := format.Borders
	topMargin := 0.0
	if bl.block.Position() > 0 && !continued {
		topMargin = format.TopMargin
	}
	spacing := math.Max(a.bottomSpacing, topMargin)
	paragraphTop := func() float64 {
		if s := a.bottomSpacing + topMargin; s != 0 {
			return a.y + spacing*a.bottomSpacing/s
		}
		return a.y
	}
	closeLast := func(y float64) {
		if n := len(a.blockRects); n > 0 {
			a.blockRects[n-1] = a.blockRects[n-1].WithBottom(y)
		}
	}

	x, width := a.x, a.width
	if a.indent < 0 {
		x += a.indent
		width -= a.indent
	}
	if bl.hasCounter && bl.counterPos.X < x {
		width += x - bl.counterPos.X
		x = bl.counterPos.X
	}

	dx := 0.0
	if !borders.IsZero() {
		if a.prevBorder != nil && a.prevBorder.Equal(borders) {
			bl.mergedBorder = true
			closeLast(paragraphTop())
			a.anchoringParagraphTop = a.y
			a.y += spacing
			a.blockRects = append(a.blockRects, geom.Rect{X: x, Y: a.anchoringParagraphTop, W: width, H: 1})
		} else {
			if a.prevBorder != nil {
				a.y += a.prevBorderPadding + a.prevBorder.Bottom.Width
			}
			closeLast(a.y)
			a.anchoringParagraphTop = paragraphTop()
			a.y += spacing
			a.blockRects = append(a.blockRects, geom.Rect{X: x, Y: a.y, W: width, H: 1})
			a.y += borders.Top.Width + borders.PaddingTop
		}
		dx = borders.Left.Width
		a.x += dx
		a.width -= borders.Left.Width + borders.Right.Width
		bl.hasBorder = true
	} else {
		if a.prevBorder != nil {
			a.y += a.prevBorderPadding + a.prevBorder.Bottom.Width
		}
		closeLast(a.y)
		a.anchoringParagraphTop = paragraphTop()
		a.y += spacing
		a.blockRects = append(a.blockRects, geom.Rect{X: x, Y: a.y, W: width, H: 1})
	}
	dx += borders.PaddingLeft
	a.x += borders.PaddingLeft
	a.width -= borders.PaddingLeft + borders.PaddingRight
	if bl.hasCounter {
		bl.counterPos = geom.Point{X: bl.counterPos.X + dx, Y: a.y}
	}
	if bl.hasBorder {
		b := borders
		a.prevBorder = &b
	} else {
		a.prevBorder = nil
	}
	a.prevBorderPadding = borders.PaddingBottom
	a.anchoringParagraphContentTop = a.y
	bl.rectIndex = len(a.blockRects) - 1
	return dx
}

// addLine applies the line-height policy to a fitted line and returns the
// advance to the next baseline.
func (a *Area) addLine(bl *blockLayout, line *TextLine) float64 {
	format := bl.block.Format
	tl := bl.text

	if bl.hasCounter && bl.first && len(tl.lines) == 1 {
		alignment := format.Alignment
		switch alignment {
		case document.AlignStart:
			alignment = document.AlignLeft
			if a.isRTL {
				alignment = document.AlignRight
			}
		case document.AlignEnd:
			alignment = document.AlignRight
			if a.isRTL {
				alignment = document.AlignLeft
			}
		}
		sign := 1.0
		if a.isRTL {
			sign = -1
		}
		newX := bl.counterPos.X
		switch alignment {
		case document.AlignCenter:
			newX += sign * (line.Width() - line.NaturalTextWidth()) / 2
		case document.AlignRight:
			newX += sign * (line.Width() - line.NaturalTextWidth())
		}
		if a.isRTL {
			newX = line.X + line.NaturalTextWidth() + line.X + a.indent - newX
		}
		bl.counterPos.X = newX
	}

	height := 0.0
	objects := 0.0
	if line.Len() == 0 {
		height = bl.block.CharFormat.FontSize()
	} else {
		for i := line.Start; i < line.End; i++ {
			if tl.runes[i] == document.ObjectReplacement {
				frag := &bl.block.Fragments[tl.frag[i]]
				if frag.Anchor != nil && frag.Anchor.IsInline() {
					objects = math.Max(objects, frag.Anchor.Size.H)
					continue
				}
				if frag.Note == nil {
					continue
				}
			}
			height = math.Max(height, tl.formats[i].FontSize())
		}
	}
	height = math.Max(height, objects)
	if height < 0.01 {
		height = 12
	}

	lineAdjust := 0.0
	if a.dropCapsNChars <= 0 {
		lh := format.LineHeight
		if lh.Fixed != 0 {
			lineAdjust += lh.Fixed - height
			height = lh.Fixed
		} else {
			if lh.Spacing == 0 {
				if lh.Percent != 0 {
					height *= lh.Percent / 100
				} else {
					height *= 1.2
				}
			}
			height += lh.Spacing
		}
		if lh.Minimum > 0 {
			height = math.Max(height, lh.Minimum)
		}
	} else {
		height *= 1.2
	}

	if math.Abs(a.y-line.Y) >= 0.126 {
		a.y = line.Y
	}
	if lineAdjust != 0 {
		line.Y += lineAdjust
		if lineAdjust < 0 && bl.rectIndex >= 0 {
			a.blockRects[bl.rectIndex] = a.blockRects[bl.rectIndex].Translated(0, lineAdjust)
		}
		if bl.hasCounter && bl.first && len(tl.lines) == 1 {
			bl.counterPos.Y += lineAdjust
		}
	}
	return height
}

func (a *Area) findFootNotes(tl *TextLayout, line *TextLine, bottomOfText float64) {
	for _, o := range tl.Objects(line.Start, line.End) {
		if n := o.frag.Note; n != nil && n.Class == document.FootNote && n.Frame != nil {
			a.preregisterFootNote(n, bottomOfText)
		}
	}
}
