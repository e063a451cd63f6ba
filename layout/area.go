package layout

import (
	"math"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

// Kind selects how an Area behaves.
type Kind int

const (
	KindRoot Kind = iota
	KindTableCell
	KindNote
	KindEndNotes
	KindGenerated
)

var kindNames = [...]string{"root", "cell", "note", "endnotes", "generated"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Page locates a root area on its page. Root areas use page-local
// coordinates with the origin at the top-left corner of the page.
type Page struct {
	Index   int       `json:"index"`
	Number  int       `json:"number"`
	Column  int       `json:"column"`
	Master  string    `json:"master,omitempty"`
	Size    geom.Size `json:"size"`
	Content geom.Rect `json:"content"`
}

// Rect returns the whole page.
func (p Page) Rect() geom.Rect { return geom.Rect{W: p.Size.W, H: p.Size.H} }

// generatedBlock is a block hosting an index generator output.
type generatedBlock struct {
	block *document.Block
	index int
	area  *Area
}

// Area lays out the items of a frame, starting at a cursor, inside a
// reference rectangle. The same type serves root areas, table cells,
// footnotes, the end-notes frame and generated sub-documents; Kind selects
// the few places where they differ.
type Area struct {
	kind   Kind
	dl     *DocumentLayout
	parent *Area

	left, right, top, bottom float64
	maxBottom                float64
	boundingRect             geom.Rect

	// running state of a pass
	x, y, width     float64
	indent          float64
	extraTextIndent float64
	bottomSpacing   float64
	neededWidth     float64
	maxAllowedWidth float64
	isRTL           bool

	anchoringParagraphTop        float64
	anchoringParagraphContentTop float64

	dropCapsWidth    float64
	dropCapsDistance float64
	dropCapsNChars   int

	virginPage         bool
	acceptsPageBreak   bool
	acceptsColumnBreak bool

	isLayoutEnvironment bool
	actsHorizontally    bool
	// foreign areas take no part in anchoring: generated sub-documents
	// and footnotes, which are laid out away from their final position
	foreign bool

	startOfArea *FrameIterator
	endOfArea   *FrameIterator

	blockRects        []geom.Rect
	blocks            []*blockLayout
	tables            []*tableArea
	generated         []*generatedBlock
	endNotes          *Area
	prevBorder        *document.Borders
	prevBorderPadding float64

	footNoteAreas                []*Area
	preregisteredFootNoteAreas   []*Area
	footNotesHeight              float64
	preregisteredFootNotesHeight float64
	footNoteAutoCount            int
	preregisteredAutoCount       int
	footNoteCountInDoc           int
	footNoteCursorToNext         *FrameIterator
	preregisteredCursorToNext    *FrameIterator
	preregisteredNoteToNext      *document.Note
	footNoteCursorFromPrevious   *FrameIterator
	continuedNoteToNext          *document.Note
	continuedNoteFromPrevious    *document.Note

	// note areas
	note       *document.Note
	continued  bool
	label      string
	labelWidth float64

	// root areas
	page            Page
	dirty           bool
	nextStartOfArea *FrameIterator
	anchors         []PlacedAnchor
}

// PlacedAnchor is an anchored object with its final rectangle.
type PlacedAnchor struct {
	Anchor *document.Anchor `json:"anchor"`
	Rect   geom.Rect        `json:"rect"`
	Inline bool             `json:"inline"`
}

func newArea(dl *DocumentLayout, parent *Area, kind Kind) *Area {
	a := &Area{kind: kind, dl: dl, parent: parent, dirty: true}
	if parent != nil {
		a.foreign = parent.foreign
	}
	return a
}

// NewRootArea creates a root area on page. Area providers call it.
func NewRootArea(dl *DocumentLayout, page Page) *Area {
	a := newArea(dl, nil, KindRoot)
	a.page = page
	a.acceptsPageBreak = true
	return a
}

// Kind returns the area kind.
func (a *Area) Kind() Kind { return a.kind }

// Parent returns the enclosing area or nil for root areas.
func (a *Area) Parent() *Area { return a.parent }

// Page returns the page of the root area that contains a.
func (a *Area) Page() Page { return a.root().page }

func (a *Area) root() *Area {
	r := a
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// SetReferenceRect sets the horizontal extent, the top and the bottom limit.
func (a *Area) SetReferenceRect(left, right, top, maxBottom float64) {
	a.left = left
	a.right = right
	a.top = top
	a.bottom = top
	a.maxBottom = maxBottom
	a.boundingRect = geom.RectFromLTRB(left, top, right, top)
}

// ReferenceRect returns left..right × top..bottom.
func (a *Area) ReferenceRect() geom.Rect { return geom.RectFromLTRB(a.left, a.top, a.right, a.bottom) }

func (a *Area) Left() float64   { return a.left }
func (a *Area) Right() float64  { return a.right }
func (a *Area) Top() float64    { return a.top }
func (a *Area) Bottom() float64 { return a.bottom }

// SetBottom moves the bottom edge. Providers use it to stretch a root area to
// its page so footnotes sit at the foot of the column.
func (a *Area) SetBottom(bottom float64) {
	a.bottom = bottom
	a.boundingRect = a.boundingRect.United(geom.RectFromLTRB(a.left, a.top, a.right, bottom))
}

// BoundingRect covers everything painted by the area.
func (a *Area) BoundingRect() geom.Rect { return a.boundingRect }

// MaximumAllowedBottom is the bottom limit minus the space claimed by footnotes.
func (a *Area) MaximumAllowedBottom() float64 {
	return a.maxBottom - a.footNotesHeight - a.preregisteredFootNotesHeight
}

// VirginPage reports whether nothing has been placed on the current page.
func (a *Area) VirginPage() bool          { return a.virginPage }
func (a *Area) SetVirginPage(virgin bool) { a.virginPage = virgin }

func (a *Area) AcceptsPageBreak() bool            { return a.acceptsPageBreak }
func (a *Area) SetAcceptsPageBreak(accept bool)   { a.acceptsPageBreak = accept }
func (a *Area) AcceptsColumnBreak() bool          { return a.acceptsColumnBreak }
func (a *Area) SetAcceptsColumnBreak(accept bool) { a.acceptsColumnBreak = accept }

// SetNoWrap enables the shrink-to-fit pass: lines may be as wide as
// maxWidth and the area narrows to the widest line afterwards.
func (a *Area) SetNoWrap(maxWidth float64) { a.maxAllowedWidth = maxWidth }

// NeededWidth is the widest natural line width of the last pass.
func (a *Area) NeededWidth() float64 { return a.neededWidth }

// StartOfArea returns a copy of the cursor the last pass started from.
func (a *Area) StartOfArea() *FrameIterator { return a.startOfArea.Clone() }

// EndOfArea returns a copy of the cursor where the last pass stopped.
func (a *Area) EndOfArea() *FrameIterator { return a.endOfArea.Clone() }

// IsDirty reports whether a root area must be laid out again.
func (a *Area) IsDirty() bool { return a.dirty }

// SetDirty marks a root area for relayout.
func (a *Area) SetDirty() { a.dirty = true }

// Anchors returns the objects placed on a root area.
func (a *Area) Anchors() []PlacedAnchor { return a.anchors }

// NextStartOfArea is where the following root area starts.
func (a *Area) NextStartOfArea() *FrameIterator { return a.nextStartOfArea.Clone() }

// SetLayoutEnvironment makes the area limit floating objects anchored inside it.
func (a *Area) SetLayoutEnvironment(env, actsHorizontally bool) {
	a.isLayoutEnvironment = env
	a.actsHorizontally = actsHorizontally
}

func (a *Area) layoutEnvironmentRect() geom.Rect {
	r := geom.Rect{X: -5e10, Y: -5e10, W: 10e10, H: 10e20}
	if a.parent != nil {
		r = a.parent.layoutEnvironmentRect()
	}
	if a.isLayoutEnvironment {
		if a.actsHorizontally {
			r = r.WithLeft(a.left).WithRight(a.right)
		}
		r = r.WithTop(a.top).WithBottom(a.MaximumAllowedBottom())
	}
	return r
}

// FootNoteCursorToNext is the resume point of a footnote that did not fit.
func (a *Area) FootNoteCursorToNext() *FrameIterator { return a.footNoteCursorToNext }

// ContinuedNoteToNext is the footnote continued in the next root area.
func (a *Area) ContinuedNoteToNext() *document.Note { return a.continuedNoteToNext }

// FootNoteAutoCount is the number of automatically numbered footnotes placed.
func (a *Area) FootNoteAutoCount() int { return a.footNoteAutoCount }

// SetFootNoteCountInDoc sets the number of footnotes in earlier root areas.
func (a *Area) SetFootNoteCountInDoc(n int) { a.footNoteCountInDoc = n }

// SetFootNoteFromPrevious continues a footnote at the top of the footnote zone.
func (a *Area) SetFootNoteFromPrevious(cursor *FrameIterator, note *document.Note) {
	a.footNoteCursorFromPrevious = cursor
	a.continuedNoteFromPrevious = note
}

// parentDirection is the direction blocks with DirectionInherit take.
func (a *Area) parentDirection() document.Direction {
	if a.parent != nil {
		return a.parent.parentDirection()
	}
	return a.dl.opts.Direction
}

// layoutRoot lays out a root area and remembers where the next one starts.
func (a *Area) layoutRoot(cursor *FrameIterator) bool {
	a.dirty = false
	a.virginPage = true
	done := a.Layout(cursor)
	a.nextStartOfArea = cursor.Clone()
	return done
}

// Layout fills the area from cursor. It returns true when the frame was laid
// out completely; otherwise cursor is left where the next area continues.
func (a *Area) Layout(cursor *FrameIterator) bool {
	a.reset(cursor)
	if a.kind == KindNote {
		a.prepareNoteLabel()
	}

	if a.footNoteCursorFromPrevious != nil {
		fa := newArea(a.dl, a, KindNote)
		fa.note = a.continuedNoteFromPrevious
		fa.continued = true
		fa.foreign = true
		fa.SetReferenceRect(a.left, a.right, a.separatorSpace(), a.maxBottom)
		from := a.footNoteCursorFromPrevious.Clone()
		if !fa.Layout(from) {
			a.footNoteCursorToNext = from
			a.continuedNoteToNext = a.continuedNoteFromPrevious
		}
		a.footNotesHeight += fa.bottom
		a.footNoteAreas = append(a.footNoteAreas, fa)
	}

	for !cursor.AtEnd() {
		switch item := cursor.Item().(type) {
		case *document.Table:
			if !a.layoutTableItem(cursor, item) {
				return false
			}
		case *document.Frame:
			if item.Kind == document.FrameEndNotes {
				if !a.layoutEndNotesItem(cursor, item) {
					return false
				}
				cursor.Next()
				continue
			}
			// plain sub-frames flow inline
			sub := cursor.SubFrameIterator(item)
			child := newArea(a.dl, a, KindGenerated)
			child.acceptsPageBreak = a.acceptsPageBreak
			child.acceptsColumnBreak = a.acceptsColumnBreak
			child.virginPage = a.virginPage
			a.y += a.bottomSpacing
			child.SetReferenceRect(a.left, a.right, a.y, a.MaximumAllowedBottom())
			if item.ShrinkToFit > 0 {
				child.SetNoWrap(item.ShrinkToFit)
			}
			a.generated = append(a.generated, &generatedBlock{index: cursor.Index, area: child})
			if !child.Layout(sub) {
				a.y = child.bottom
				return a.stop(cursor)
			}
			a.virginPage = false
			a.bottomSpacing = 0
			a.y = child.bottom
			cursor.Next()
		case *document.Block:
			if item.IsGenerated() {
				if !a.layoutGenerated(cursor, item) {
					return false
				}
				if a.breakAfter(cursor, item.Format.BreakAfter) {
					return false
				}
				cursor.Next()
				continue
			}
			if a.breakBefore(item.Format.BreakBefore, item.Format.MasterPage) {
				return a.stop(cursor)
			}
			if !a.layoutBlock(cursor) {
				if cursor.LineTextStart == -1 {
					a.backtrackKeepWithNext(cursor)
				}
				return a.stop(cursor)
			}
			a.extraTextIndent = 0
			if a.breakAfter(cursor, item.Format.BreakAfter) {
				return false
			}
			cursor.Next()
		default:
			cursor.Next()
		}
	}

	a.endOfArea = cursor.Clone()
	a.y = math.Min(a.MaximumAllowedBottom(), a.y+a.bottomSpacing)
	a.setBottomFromY()

	if a.maxAllowedWidth > 0 {
		a.right += a.neededWidth - a.width
		a.maxAllowedWidth = 0
		a.virginPage = true
		start := a.startOfArea.Clone()
		done := a.Layout(start)
		*cursor = *start
		return done
	}
	return true
}

func (a *Area) reset(cursor *FrameIterator) {
	a.blocks = nil
	a.tables = nil
	a.generated = nil
	a.endNotes = nil
	a.blockRects = nil
	a.footNoteAreas = nil
	a.dropPreregistered()
	a.startOfArea = cursor.Clone()
	a.endOfArea = nil
	a.y = a.top
	a.bottom = a.top
	a.boundingRect = geom.RectFromLTRB(a.left, a.top, a.right, a.top)
	a.bottomSpacing = 0
	a.neededWidth = 0
	a.footNoteAutoCount = 0
	a.footNotesHeight = 0
	a.footNoteCursorToNext = nil
	a.continuedNoteToNext = nil
	a.prevBorder = nil
	a.prevBorderPadding = 0
	a.dropCapsNChars = 0
	a.dropCapsWidth = 0
	a.dropCapsDistance = 0
}

// stop records cursor as the end of the area and closes the last block rect.
func (a *Area) stop(cursor *FrameIterator) bool {
	a.endOfArea = cursor.Clone()
	a.setBottomFromY()
	return false
}

func (a *Area) setBottomFromY() {
	a.bottom = a.y
	if a.parent == nil {
		a.bottom += a.footNotesHeight
	}
	if n := len(a.blockRects); n > 0 {
		a.blockRects[n-1] = a.blockRects[n-1].WithBottom(a.y)
	}
	a.boundingRect = a.boundingRect.United(geom.RectFromLTRB(a.left, a.top, a.right, a.bottom))
}

// breakBefore reports whether a forced break ends the area before an item.
func (a *Area) breakBefore(kind document.BreakKind, master string) bool {
	if a.virginPage {
		return false
	}
	if a.acceptsPageBreak && (kind == document.BreakPage || a.masterPageChanged(master)) {
		return true
	}
	return a.acceptsColumnBreak && kind == document.BreakColumn
}

func (a *Area) masterPageChanged(master string) bool {
	if master == "" {
		return false
	}
	return a.root().page.Master != master
}

// breakAfter ends the area after the current item when a forced break follows it.
func (a *Area) breakAfter(cursor *FrameIterator, kind document.BreakKind) bool {
	if !(a.acceptsPageBreak && kind == document.BreakPage) && !(a.acceptsColumnBreak && kind == document.BreakColumn) {
		return false
	}
	cursor.Next()
	a.endOfArea = cursor.Clone()
	a.setBottomFromY()
	return true
}

// backtrackKeepWithNext moves cursor back to the first item of a run of
// keep-with-next items that ends right before it, so the run moves together.
func (a *Area) backtrackKeepWithNext(cursor *FrameIterator) {
	for i := cursor.Index - 1; i >= a.startOfArea.Index; i-- {
		keep := false
		switch item := cursor.Frame().Items[i].(type) {
		case *document.Block:
			keep = item.Format.KeepWithNext
		case *document.Table:
			keep = false
		}
		if !keep {
			if i+1 == cursor.Index {
				return
			}
			cursor.Index = i + 1
			cursor.LineTextStart = -1
			cursor.TableIterator(nil)
			cursor.SubFrameIterator(nil)
			a.dropItemsFrom(i + 1)
			Logger().Debug("keep-with-next backtrack", "from", cursor.Index, "area", a.kind)
			return
		}
	}
}

// dropItemsFrom forgets laid out items with a frame index of at least index.
// Footnotes of the dropped items are taken back as well.
func (a *Area) dropItemsFrom(index int) {
	var (
		mark      footNoteMark
		markIndex = math.MaxInt
	)
	blocks := a.blocks[:0]
	for _, b := range a.blocks {
		if b.index < index {
			blocks = append(blocks, b)
			continue
		}
		a.y = math.Min(a.y, b.top)
		if b.index < markIndex {
			mark, markIndex = b.noteMark, b.index
		}
	}
	a.blocks = blocks
	tables := a.tables[:0]
	for _, t := range a.tables {
		if t.index < index {
			tables = append(tables, t)
			continue
		}
		a.y = math.Min(a.y, t.top)
		if t.index < markIndex {
			mark, markIndex = t.noteMark, t.index
		}
	}
	a.tables = tables
	mark.restore()
}

func (a *Area) layoutTableItem(cursor *FrameIterator, t *document.Table) bool {
	if a.breakBefore(t.Format.BreakBefore, "") {
		return a.stop(cursor)
	}
	a.y += a.bottomSpacing
	if n := len(a.blockRects); n > 0 {
		a.blockRects[n-1] = a.blockRects[n-1].WithBottom(a.y)
	}
	ta := newTableArea(a, t, cursor.Index)
	ta.noteMark = a.markFootNotes()
	ta.virginPage = a.virginPage
	ta.setReferenceRect(a.left, a.right, a.y, a.MaximumAllowedBottom())
	a.tables = append(a.tables, ta)
	if !ta.layout(cursor.TableIterator(t)) {
		a.y = ta.bottom
		return a.stop(cursor)
	}
	a.virginPage = false
	a.bottomSpacing = 0
	a.y = ta.bottom
	a.boundingRect = a.boundingRect.United(ta.boundingRect())
	cursor.TableIterator(nil)
	if a.breakAfter(cursor, t.Format.BreakAfter) {
		return false
	}
	cursor.Next()
	return true
}

func (a *Area) layoutEndNotesItem(cursor *FrameIterator, f *document.Frame) bool {
	a.y += a.bottomSpacing
	if n := len(a.blockRects); n > 0 {
		a.blockRects[n-1] = a.blockRects[n-1].WithBottom(a.y)
	}
	en := newArea(a.dl, a, KindEndNotes)
	en.virginPage = a.virginPage
	en.SetReferenceRect(a.left, a.right, a.y, a.MaximumAllowedBottom())
	a.endNotes = en
	if !en.layoutEndNotes(cursor.SubFrameIterator(f)) {
		a.y = en.bottom
		return a.stop(cursor)
	}
	a.bottomSpacing = 0
	a.y = en.bottom
	cursor.SubFrameIterator(nil)
	return true
}

func (a *Area) layoutGenerated(cursor *FrameIterator, b *document.Block) bool {
	if a.breakBefore(b.Format.BreakBefore, b.Format.MasterPage) {
		return a.stop(cursor)
	}
	child := newArea(a.dl, a, KindGenerated)
	child.foreign = true
	child.acceptsPageBreak = a.acceptsPageBreak
	child.acceptsColumnBreak = a.acceptsColumnBreak
	child.virginPage = a.virginPage
	a.y += a.bottomSpacing
	child.SetReferenceRect(a.left, a.right, a.y, a.MaximumAllowedBottom())
	a.generated = append(a.generated, &generatedBlock{block: b, index: cursor.Index, area: child})
	if !child.Layout(cursor.SubFrameIterator(b.Generated.Root)) {
		cursor.LineTextStart = 1
		a.y = child.bottom
		return a.stop(cursor)
	}
	a.virginPage = false
	a.bottomSpacing = 0
	a.y = child.bottom
	a.boundingRect = a.boundingRect.United(child.boundingRect)
	cursor.SubFrameIterator(nil)
	cursor.LineTextStart = -1
	return true
}

// layoutEndNotes places one note area per endnote, in reference order.
func (a *Area) layoutEndNotes(cursor *FrameIterator) bool {
	notes := a.dl.doc.EndNotes()
	y := a.top
	for cursor.EndNoteIndex < len(notes) {
		n := notes[cursor.EndNoteIndex]
		if n.Frame == nil {
			cursor.EndNoteIndex++
			continue
		}
		sub := cursor.SubFrameIterator(n.Frame)
		na := newArea(a.dl, a, KindNote)
		na.note = n
		na.continued = sub.Index > 0 || sub.LineTextStart > 0
		na.virginPage = a.virginPage
		na.acceptsPageBreak = a.acceptsPageBreak
		na.SetReferenceRect(a.left, a.right, y, a.MaximumAllowedBottom())
		a.footNoteAreas = append(a.footNoteAreas, na)
		if !na.Layout(sub) {
			a.endOfArea = cursor.Clone()
			a.y = na.bottom
			a.SetBottom(na.bottom)
			return false
		}
		a.virginPage = false
		y = na.bottom
		cursor.EndNoteIndex++
		cursor.SubFrameIterator(nil)
	}
	a.y = y
	a.SetBottom(y)
	a.endOfArea = cursor.Clone()
	return true
}

// x is the left edge of the next line.
func (a *Area) lineX() float64 {
	if a.isRTL {
		return a.x
	}
	if a.dropCapsNChars > 0 || a.dropCapsWidth == 0 {
		return a.x + a.indent
	}
	return a.x + a.indent + a.dropCapsWidth + a.dropCapsDistance
}

// lineWidth is the width available to the next line.
func (a *Area) lineWidth() float64 {
	if a.dropCapsNChars > 0 {
		return a.dropCapsWidth
	}
	w := a.width
	if a.maxAllowedWidth > 0 {
		w = a.width - (a.right - a.left) + a.maxAllowedWidth
	}
	return w - a.indent - a.dropCapsWidth - a.dropCapsDistance
}

// separatorSpace is the gap reserved above the first footnote of a page.
func (a *Area) separatorSpace() float64 {
	if a.parent != nil || len(a.footNoteAreas) > 0 || len(a.preregisteredFootNoteAreas) > 0 {
		return 0
	}
	return a.dl.doc.Notes.SeparatorSpace
}
