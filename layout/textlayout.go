package layout

import (
	"math"
	"sort"
	"unicode"

	"github.com/go-text/typesetting/segmenter"
	"golang.org/x/text/unicode/bidi"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

// superscriptScale sizes note reference labels.
const superscriptScale = 0.58

// tabStop is a tab position resolved against the tab origin of a paragraph.
type tabStop struct {
	pos    float64
	typ    document.TabType
	delim  rune
	leader rune
}

// tabSpan records where a tab landed inside a line, for leader painting.
type tabSpan struct {
	index  int
	x0, x1 float64
	leader rune
}

// object is a placeholder rune carrying an anchor, a note or a soft break.
type object struct {
	offset int
	frag   *document.Fragment
}

// TextLayout breaks the text of one block into lines. Advances come from
// the Typesetter; break opportunities from the UAX #14 segmenter.
type TextLayout struct {
	block   *document.Block
	runes   []rune
	frag    []int
	formats []document.CharFormat
	adv     []float64
	asc     []float64
	desc    []float64

	breakAfter []bool
	mandatory  []bool
	objects    []object

	tabs        []tabStop
	tabInterval float64

	emptyMetrics FontMetrics
	lines        []*TextLine
	next         int
}

// textOptions tunes how a block is measured.
type textOptions struct {
	// dropCaps is the number of leading runes measured in dropFormat.
	dropCaps   int
	dropFormat document.CharFormat
	// noteLabel returns the reference label shown for a note.
	noteLabel func(*document.Note) string
}

// NewTextLayout measures block with ts.
func NewTextLayout(block *document.Block, ts Typesetter, opts textOptions) *TextLayout {
	tl := &TextLayout{block: block, runes: block.Runes()}
	n := len(tl.runes)
	tl.frag = make([]int, n)
	tl.formats = make([]document.CharFormat, n)
	tl.adv = make([]float64, n)
	tl.asc = make([]float64, n)
	tl.desc = make([]float64, n)
	tl.breakAfter = make([]bool, n)
	tl.mandatory = make([]bool, n)
	tl.emptyMetrics = ts.Metrics(block.CharFormat)

	off := 0
	for fi := range block.Fragments {
		f := &block.Fragments[fi]
		ln := f.Len()
		for k := 0; k < ln; k++ {
			tl.frag[off+k] = fi
			tl.formats[off+k] = f.Format
		}
		if f.IsObject() {
			tl.objects = append(tl.objects, object{offset: off, frag: f})
			tl.measureObject(off, f, ts, opts)
		} else if ln > 0 {
			tl.measureRun(off, ln, ts, opts)
		}
		off += ln
	}

	if n > 0 {
		var seg segmenter.Segmenter
		seg.Init(tl.runes)
		it := seg.LineIterator()
		for it.Next() {
			l := it.Line()
			last := l.Offset + len(l.Text) - 1
			if last < 0 || last >= n {
				continue
			}
			tl.breakAfter[last] = true
			if l.IsMandatoryBreak && isNewline(tl.runes[last]) {
				tl.mandatory[last] = true
			}
		}
	}
	return tl
}

func (tl *TextLayout) measureRun(off, ln int, ts Typesetter, opts textOptions) {
	end := off + ln
	// the drop-caps prefix is measured in its own format
	if opts.dropCaps > off {
		split := min(opts.dropCaps, end)
		for i := off; i < split; i++ {
			tl.formats[i] = opts.dropFormat
		}
		tl.fill(off, split, ts)
		off = split
	}
	if off < end {
		tl.fill(off, end, ts)
	}
}

func (tl *TextLayout) fill(from, to int, ts Typesetter) {
	format := tl.formats[from]
	advances := ts.Advances(format, tl.runes[from:to])
	m := ts.Metrics(format)
	for i := from; i < to; i++ {
		if k := i - from; k < len(advances) {
			tl.adv[i] = advances[k]
		}
		if tl.runes[i] == '\t' {
			tl.adv[i] = 0
		}
		tl.asc[i] = m.Ascent
		tl.desc[i] = m.Descent
	}
}

func (tl *TextLayout) measureObject(off int, f *document.Fragment, ts Typesetter, opts textOptions) {
	switch {
	case f.Anchor != nil && f.Anchor.IsInline():
		tl.adv[off] = f.Anchor.Size.W
		tl.asc[off] = f.Anchor.Size.H
	case f.Note != nil:
		label := f.Note.Label
		if opts.noteLabel != nil {
			label = opts.noteLabel(f.Note)
		}
		sf := f.Format
		sf.Size = f.Format.FontSize() * superscriptScale
		tl.adv[off] = ts.TextWidth(sf, label)
		m := ts.Metrics(f.Format)
		tl.asc[off] = m.Ascent
		tl.desc[off] = m.Descent
	}
}

// SetTabs installs the resolved tab stops and the regular interval used past
// the last explicit stop.
func (tl *TextLayout) SetTabs(tabs []tabStop, interval float64) {
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].pos < tabs[j].pos })
	tl.tabs = tabs
	tl.tabInterval = interval
}

// Block returns the measured block.
func (tl *TextLayout) Block() *document.Block { return tl.block }

// Len returns the number of runes.
func (tl *TextLayout) Len() int { return len(tl.runes) }

// Lines returns the lines created so far.
func (tl *TextLayout) Lines() []*TextLine { return tl.lines }

// Restart drops every line and resumes line creation at offset.
func (tl *TextLayout) Restart(offset int) {
	tl.lines = nil
	tl.next = max(0, min(offset, len(tl.runes)))
}

// CreateLine starts the next line, or returns nil when the text is used up.
// An empty block still gets one line.
func (tl *TextLayout) CreateLine() *TextLine {
	if len(tl.lines) > 0 {
		prev := tl.lines[len(tl.lines)-1]
		tl.next = prev.End
		if tl.next >= len(tl.runes) {
			return nil
		}
	} else if tl.next >= len(tl.runes) && len(tl.runes) > 0 {
		return nil
	}
	l := &TextLine{layout: tl, Start: tl.next, End: tl.next}
	tl.lines = append(tl.lines, l)
	return l
}

// DropLast discards the most recently created line.
func (tl *TextLayout) DropLast() {
	if len(tl.lines) > 0 {
		tl.lines = tl.lines[:len(tl.lines)-1]
	}
}

// Objects returns the placeholder runes within [from, to).
func (tl *TextLayout) Objects(from, to int) []object {
	var out []object
	for _, o := range tl.objects {
		if o.offset >= from && o.offset < to {
			out = append(out, o)
		}
	}
	return out
}

// SoftBreakIn returns the offset of the first soft page break in [from, to).
func (tl *TextLayout) SoftBreakIn(from, to int) (int, bool) {
	for _, o := range tl.objects {
		if o.frag.SoftPageBreak && o.offset >= from && o.offset < to {
			return o.offset, true
		}
	}
	return 0, false
}

// CursorToX returns the x of the rune at offset and the line holding it.
func (tl *TextLayout) CursorToX(offset int) (float64, *TextLine, bool) {
	for _, l := range tl.lines {
		if offset < l.Start || offset >= l.End {
			continue
		}
		x := l.X + l.offset
		for i := l.Start; i < offset; i++ {
			x += l.advance(i)
		}
		return x, l, true
	}
	return 0, nil, false
}

func (tl *TextLayout) breakLine(l *TextLine, w float64) {
	n := len(tl.runes)
	l.advances = l.advances[:0]
	l.tabs = l.tabs[:0]
	x := 0.0
	end := n
	lastBreak := -1
	for i := l.Start; i < n; i++ {
		a := tl.adv[i]
		if tl.runes[i] == '\t' {
			a = tl.tabAdvance(l, i, x)
		}
		if x+a > w+lineEpsilon && i > l.Start && !isTrailingSpace(tl.runes[i]) {
			if lastBreak >= l.Start {
				end = lastBreak + 1
			} else {
				end = i
			}
			break
		}
		l.advances = append(l.advances, a)
		x += a
		if tl.mandatory[i] {
			end = i + 1
			break
		}
		if tl.breakAfter[i] {
			lastBreak = i
		}
	}
	l.End = end
	l.broken = true
	l.advances = l.advances[:end-l.Start]
	kept := l.tabs[:0]
	for _, t := range l.tabs {
		if t.index < end {
			kept = append(kept, t)
		}
	}
	l.tabs = kept
	tl.measure(l)
}

// segmentWidth measures from offset up to the next tab, newline or, for
// char tabs, the delimiter.
func (tl *TextLayout) segmentWidth(from int, delim rune) float64 {
	w := 0.0
	for i := from; i < len(tl.runes); i++ {
		r := tl.runes[i]
		if r == '\t' || isNewline(r) || (delim != 0 && r == delim) {
			break
		}
		w += tl.adv[i]
	}
	return w
}

func (tl *TextLayout) tabAdvance(l *TextLine, i int, x float64) float64 {
	p := l.origin + x
	for _, t := range tl.tabs {
		if t.pos <= p+MinTabAdvance {
			continue
		}
		var a float64
		switch t.typ {
		case document.TabRight:
			a = t.pos - p - tl.segmentWidth(i+1, 0)
		case document.TabCenter:
			a = t.pos - p - tl.segmentWidth(i+1, 0)/2
		case document.TabChar:
			a = t.pos - p - tl.segmentWidth(i+1, t.delim)
		default:
			a = t.pos - p
		}
		a = math.Max(a, 0)
		l.tabs = append(l.tabs, tabSpan{index: i, x0: x, x1: x + a, leader: t.leader})
		return a
	}
	interval := tl.tabInterval
	if interval <= 0 {
		interval = 36
	}
	next := (math.Floor(p/interval) + 1) * interval
	a := next - p
	l.tabs = append(l.tabs, tabSpan{index: i, x0: x, x1: x + a})
	return a
}

// MinTabAdvance skips tab stops closer than this to the current position.
const MinTabAdvance = 0.01

// lineEpsilon absorbs rounding when text exactly fills a line.
const lineEpsilon = 1e-6

// countLines returns how many lines of the given width the text from offset needs.
func (tl *TextLayout) countLines(from int, width float64) int {
	n := 0
	for from < len(tl.runes) {
		l := &TextLine{layout: tl, Start: from, End: from}
		tl.breakLine(l, width)
		if l.End <= from {
			break
		}
		from = l.End
		n++
	}
	return n
}

func (tl *TextLayout) measure(l *TextLine) {
	l.ascent, l.descent = 0, 0
	if l.End <= l.Start {
		l.ascent = tl.emptyMetrics.Ascent
		l.descent = tl.emptyMetrics.Descent
		l.natural = 0
		return
	}
	total := 0.0
	trailing := 0.0
	for i := l.Start; i < l.End; i++ {
		a := l.advance(i)
		total += a
		if isTrailingSpace(tl.runes[i]) || isNewline(tl.runes[i]) {
			trailing += a
		} else {
			trailing = 0
		}
		l.ascent = math.Max(l.ascent, tl.asc[i])
		l.descent = math.Max(l.descent, tl.desc[i])
	}
	if l.ascent+l.descent == 0 {
		l.ascent = tl.emptyMetrics.Ascent
		l.descent = tl.emptyMetrics.Descent
	}
	l.natural = total - trailing
}

// TextLine is one line of a block. It satisfies runaround.Line.
type TextLine struct {
	layout *TextLayout

	Start, End int
	X, Y       float64

	// LineHeight is the advance to the next line after the line-height policy.
	LineHeight float64

	width    float64
	broken   bool
	natural  float64
	ascent   float64
	descent  float64
	advances []float64
	tabs     []tabSpan

	// origin is the line start relative to the tab origin.
	origin float64
	// offset shifts the text inside the line for alignment.
	offset float64
	// spaceExtra widens each inner space when justified.
	spaceExtra float64
}

func (l *TextLine) SetLineWidth(w float64) {
	l.width = w
	l.layout.breakLine(l, w)
}

func (l *TextLine) SetNumColumns(n int) {
	n = max(n, 1)
	if !l.broken {
		l.layout.breakLine(l, math.MaxFloat64)
	}
	if end := min(l.Start+n, len(l.layout.runes)); end < l.End {
		l.End = end
		l.advances = l.advances[:end-l.Start]
		l.layout.measure(l)
	}
}

func (l *TextLine) NaturalTextWidth() float64 { return l.natural }

func (l *TextLine) Height() float64 { return l.ascent + l.descent }

func (l *TextLine) FirstCharWidth() float64 {
	if l.Start < len(l.layout.runes) {
		return l.layout.adv[l.Start]
	}
	return 0
}

func (l *TextLine) SetPosition(p geom.Point) { l.X, l.Y = p.X, p.Y }

func (l *TextLine) Width() float64 { return l.width }

// Ascent returns the largest ascent on the line.
func (l *TextLine) Ascent() float64 { return l.ascent }

// Descent returns the largest descent on the line.
func (l *TextLine) Descent() float64 { return l.descent }

// Baseline returns the y of the baseline.
func (l *TextLine) Baseline() float64 { return l.Y + l.ascent }

// Len returns the number of runes on the line.
func (l *TextLine) Len() int { return l.End - l.Start }

// Rect returns the line box using the policy height.
func (l *TextLine) Rect() geom.Rect {
	h := l.LineHeight
	if h <= 0 {
		h = l.Height()
	}
	return geom.Rect{X: l.X, Y: l.Y, W: l.width, H: h}
}

// TextRect returns the box covering the visible text.
func (l *TextLine) TextRect() geom.Rect {
	return geom.Rect{X: l.X + l.offset, Y: l.Y, W: l.natural + l.spaceExtra*float64(l.innerSpaces()), H: l.Height()}
}

func (l *TextLine) advance(i int) float64 {
	k := i - l.Start
	a := 0.0
	if k >= 0 && k < len(l.advances) {
		a = l.advances[k]
	} else if i < len(l.layout.adv) {
		a = l.layout.adv[i]
	}
	if l.spaceExtra > 0 && l.layout.runes[i] == ' ' && i < l.lastVisible() {
		a += l.spaceExtra
	}
	return a
}

func (l *TextLine) lastVisible() int {
	for i := l.End - 1; i >= l.Start; i-- {
		if r := l.layout.runes[i]; !isTrailingSpace(r) && !isNewline(r) {
			return i
		}
	}
	return l.Start
}

func (l *TextLine) innerSpaces() int {
	n := 0
	last := l.lastVisible()
	for i := l.Start; i < last; i++ {
		if l.layout.runes[i] == ' ' {
			n++
		}
	}
	return n
}

// endsParagraph reports whether the line is the last of its block or ends
// with a forced line break.
func (l *TextLine) endsParagraph() bool {
	return l.End >= len(l.layout.runes) || (l.End > l.Start && l.layout.mandatory[l.End-1])
}

// align positions the text inside the line box.
func (l *TextLine) align(a document.Alignment, rtl bool) {
	l.offset, l.spaceExtra = 0, 0
	free := l.width - l.natural
	if free <= 0 {
		return
	}
	switch a {
	case document.AlignStart:
		if rtl {
			l.offset = free
		}
	case document.AlignEnd:
		if !rtl {
			l.offset = free
		}
	case document.AlignRight:
		l.offset = free
	case document.AlignCenter:
		l.offset = free / 2
	case document.AlignJustify:
		if !l.endsParagraph() {
			if n := l.innerSpaces(); n > 0 {
				l.spaceExtra = free / float64(n)
			}
		} else if rtl {
			l.offset = free
		}
	}
}

func isTrailingSpace(r rune) bool {
	return r != '\t' && !isNewline(r) && unicode.IsSpace(r)
}

func isNewline(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// detectDirection returns the direction of the first strong character.
func detectDirection(runes []rune) (document.Direction, bool) {
	for _, r := range runes {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return document.DirectionLTR, true
		case bidi.R, bidi.AL:
			return document.DirectionRTL, true
		}
	}
	return document.DirectionLTR, false
}
