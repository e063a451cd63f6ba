package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/lists"
	"github.com/ByLCY/textflow/runaround"
)

// ErrNoProvider is returned by Layout when no AreaProvider is configured.
var ErrNoProvider = errors.New("layout: 未配置区域提供者")

// Constraints describe the root area the next content needs.
type Constraints struct {
	// MasterPage names the page style the content asks for.
	MasterPage string
	// NewPageForced asks for a new page rather than the next column.
	NewPageForced bool
}

// AreaProvider hands out root areas. The layout never creates page or
// column geometry itself.
type AreaProvider interface {
	// Provide returns the root area with the given index; isNew is true when
	// the area did not exist before. nil means there is no more space.
	Provide(dl *DocumentLayout, c Constraints, index int) (area *Area, isNew bool)
	// SuggestRect is the reference rectangle of area in page coordinates.
	SuggestRect(area *Area) geom.Rect
	// RelevantObstructions are obstructions not anchored in the text.
	RelevantObstructions(area *Area) []*runaround.Obstruction
	// DoPostLayout is called after area was laid out.
	DoPostLayout(area *Area, isNew bool)
	// ReleaseAllAfter drops the areas following area.
	ReleaseAllAfter(area *Area)
}

// Options tune a DocumentLayout.
type Options struct {
	// Typesetter measures text; nil means FixedTypesetter.
	Typesetter Typesetter
	// Direction is the direction of blocks that inherit one.
	Direction document.Direction
	// RunAroundDistance is the default gap around floating objects.
	RunAroundDistance float64
	// RunAroundThreshold is the default minimum line part width.
	RunAroundThreshold float64
}

// DocumentLayout drives the layout of a document over the root areas of an
// AreaProvider. It keeps the areas between passes and only lays out again
// what an edit or a moved resume point invalidated.
type DocumentLayout struct {
	doc        *document.Document
	provider   AreaProvider
	opts       Options
	typesetter Typesetter
	lists      *lists.Helper

	rootAreas      []*Area
	layoutPosition *FrameIterator

	isLayouting bool
	restart     bool
	scheduled   bool

	// anchoring state of the root area being laid out
	anchoringRoot    *Area
	textAnchors      []AnchorStrategy
	strategies       map[string]AnchorStrategy
	found            map[string]bool
	anchoringIndex   int
	anAnchorIsPlaced bool
	softBreakAt      int
	paragraphRect    geom.Rect
	contentRect      geom.Rect
	environmentRect  geom.Rect
	obstructions     map[string]*runaround.Obstruction
	freeObstructions []*runaround.Obstruction
	pageAnchors      []*document.Anchor

	noteNumbers map[*document.Note]int

	onFinished []func()
	onDirty    []func()
	onArea     []func(*Area)
}

// New binds a layout to doc. The document is reindexed once.
func New(doc *document.Document, provider AreaProvider, opts Options) *DocumentLayout {
	ts := opts.Typesetter
	if ts == nil {
		ts = FixedTypesetter{}
	}
	doc.Reindex()
	return &DocumentLayout{
		doc:          doc,
		provider:     provider,
		opts:         opts,
		typesetter:   ts,
		lists:        lists.NewHelper(doc, nil, ts),
		strategies:   map[string]AnchorStrategy{},
		found:        map[string]bool{},
		obstructions: map[string]*runaround.Obstruction{},
		noteNumbers:  map[*document.Note]int{},
		softBreakAt:  math.MaxInt,
		scheduled:    true,
	}
}

// Document returns the laid out document.
func (dl *DocumentLayout) Document() *document.Document { return dl.doc }

// Typesetter returns the measuring backend.
func (dl *DocumentLayout) Typesetter() Typesetter { return dl.typesetter }

// Lists returns the list counter helper.
func (dl *DocumentLayout) Lists() *lists.Helper { return dl.lists }

// RootAreas returns the root areas of the last pass in order.
func (dl *DocumentLayout) RootAreas() []*Area { return dl.rootAreas }

// OnLayoutFinished registers fn to run after a complete pass.
func (dl *DocumentLayout) OnLayoutFinished(fn func()) { dl.onFinished = append(dl.onFinished, fn) }

// OnLayoutIsDirty registers fn to run when an edit invalidated the layout.
func (dl *DocumentLayout) OnLayoutIsDirty(fn func()) { dl.onDirty = append(dl.onDirty, fn) }

// OnAreaLaidOut registers fn to run after each root area is laid out.
func (dl *DocumentLayout) OnAreaLaidOut(fn func(*Area)) { dl.onArea = append(dl.onArea, fn) }

// Layout lays out the document. A call made while a pass runs restarts
// that pass instead of nesting.
func (dl *DocumentLayout) Layout() error {
	if dl.provider == nil {
		return ErrNoProvider
	}
	if dl.isLayouting {
		dl.restart = true
		return nil
	}
	dl.isLayouting = true
	finished := false
	passes := 0
	for {
		finished = dl.doLayout()
		passes++
		if !dl.restart {
			break
		}
	}
	dl.isLayouting = false
	Logger().Debug("layout done", "passes", passes, "areas", len(dl.rootAreas), "finished", finished)
	if finished {
		for _, fn := range dl.onFinished {
			fn()
		}
	}
	return nil
}

// ScheduleLayout requests a layout. Requests collapse until MaybeLayout.
func (dl *DocumentLayout) ScheduleLayout() {
	if dl.isLayouting {
		dl.restart = true
	}
	dl.scheduled = true
}

// MaybeLayout runs a scheduled layout. It reports whether one ran.
func (dl *DocumentLayout) MaybeLayout() (bool, error) {
	if !dl.scheduled {
		return false, nil
	}
	if err := dl.Layout(); err != nil {
		return false, err
	}
	return true, nil
}

// constraintsFor derives the page request from the item at it.
func (dl *DocumentLayout) constraintsFor(it *FrameIterator, previousValid bool) Constraints {
	var c Constraints
	if it.AtEnd() || it.LineTextStart > 0 || it.table != nil || it.sub != nil {
		return c
	}
	switch item := it.Item().(type) {
	case *document.Block:
		c.MasterPage = item.Format.MasterPage
		c.NewPageForced = item.Format.BreakBefore == document.BreakPage
	case *document.Table:
		c.NewPageForced = item.Format.BreakBefore == document.BreakPage
	}
	if c.MasterPage != "" {
		c.NewPageForced = true
	}
	if previousValid && !c.NewPageForced && it.Index > 0 {
		switch prev := it.Frame().Items[it.Index-1].(type) {
		case *document.Block:
			c.NewPageForced = prev.Format.BreakAfter == document.BreakPage
		case *document.Table:
			c.NewPageForced = prev.Format.BreakAfter == document.BreakPage
		}
	}
	return c
}

// doLayout walks the root areas once. It returns false when a restart was
// requested midway.
func (dl *DocumentLayout) doLayout() bool {
	dl.layoutPosition = NewFrameIterator(dl.doc.Root)
	dl.scheduled = false
	dl.restart = false
	dl.lists.Refresh()
	dl.collectPageAnchors()

	var footCursor *FrameIterator
	var footNote *document.Note
	footCount := 0
	dl.rootAreas = dl.rootAreas[:0]

	for index := 0; ; index++ {
		if dl.restart {
			return false
		}
		c := dl.constraintsFor(dl.layoutPosition, index > 0)
		root, isNew := dl.provider.Provide(dl, c, index)
		if root == nil {
			Logger().Debug("provider out of areas", "index", index)
			break
		}
		dl.rootAreas = append(dl.rootAreas, root)
		rect := dl.provider.SuggestRect(root)

		relayout := isNew || root.IsDirty() ||
			root.top != rect.Top() ||
			!root.startOfArea.Equal(dl.layoutPosition) ||
			!root.footNoteCursorFromPrevious.Equal(footCursor) ||
			root.footNoteCountInDoc != footCount

		if relayout {
			dl.freeObstructions = dl.provider.RelevantObstructions(root)
			root.SetReferenceRect(rect.Left(), rect.Right(), rect.Top(), rect.Bottom())
			dl.beginAnchorCollecting(root)
			placed := dl.placePageAnchors(root)

			var pos *FrameIterator
			finished := false
			for {
				root.SetFootNoteCountInDoc(footCount)
				root.SetFootNoteFromPrevious(footCursor.Clone(), footNote)
				clear(dl.found)
				pos = dl.layoutPosition.Clone()
				finished = root.layoutRoot(pos)
				if dl.anAnchorIsPlaced {
					dl.anAnchorIsPlaced = false
				} else {
					dl.anchoringIndex++
				}
				if dl.anchoringIndex >= len(dl.textAnchors) {
					break
				}
			}

			for _, s := range dl.textAnchors {
				key := s.registryKey()
				if !dl.found[key] {
					delete(dl.obstructions, key)
					dl.softBreakAt = min(dl.softBreakAt, s.Position())
				}
			}
			if len(dl.textAnchors) > 0 {
				root.SetFootNoteCountInDoc(footCount)
				root.SetFootNoteFromPrevious(footCursor.Clone(), footNote)
				clear(dl.found)
				pos = dl.layoutPosition.Clone()
				finished = root.layoutRoot(pos)
			}
			root.anchors = append(placed, dl.placedAnchors()...)
			dl.layoutPosition = pos
			dl.anchoringRoot = nil

			dl.provider.DoPostLayout(root, isNew)
			for _, fn := range dl.onArea {
				fn(root)
			}
			Logger().Debug("root area laid out", "index", index, "page", root.page.Number,
				"column", root.page.Column, "anchors", len(dl.textAnchors))

			if (finished || dl.layoutPosition.AtEnd()) && root.FootNoteCursorToNext() == nil {
				dl.releaseAfter(root)
				return true
			}
		} else {
			dl.layoutPosition = root.NextStartOfArea()
			if dl.layoutPosition.AtEnd() && root.FootNoteCursorToNext() == nil {
				dl.releaseAfter(root)
				return true
			}
		}

		footCursor = root.FootNoteCursorToNext()
		footNote = root.ContinuedNoteToNext()
		footCount += root.FootNoteAutoCount()
		if footCursor == nil && dl.layoutPosition.AtEnd() {
			break
		}
	}
	return true
}

func (dl *DocumentLayout) releaseAfter(root *Area) {
	dl.provider.ReleaseAllAfter(root)
	for i, r := range dl.rootAreas {
		if r == root {
			dl.rootAreas = dl.rootAreas[:i+1]
			break
		}
	}
}

// DocumentChanged invalidates the layout after an edit of removed runes
// replaced by added runes at position.
func (dl *DocumentLayout) DocumentChanged(position, removed, added int) {
	if removed > 0 {
		dl.lists.Cache().Clear()
	}
	for from, to := position, position+added; from < to; {
		b := dl.doc.FindBlock(from)
		if b == nil {
			break
		}
		if from == b.Position() && b.List != nil {
			dl.lists.Cache().InvalidateList(b.List.List)
		}
		from = b.Position() + b.Length()
	}

	if len(dl.rootAreas) > 0 {
		start := 0
		if position > 0 {
			if i, ok := dl.rootIndexForPosition(position - 1); ok {
				start = i
			}
		}
		end := start
		if removed != 0 || added != 0 {
			end = len(dl.rootAreas) - 1
			if i, ok := dl.rootIndexForPosition(position + max(removed, added) + 1); ok {
				end = max(start, i)
			}
			if start > 0 {
				start--
			}
			if end+1 < len(dl.rootAreas) {
				end++
			}
		}
		for i := start; i <= end; i++ {
			dl.rootAreas[i].SetDirty()
		}
	}
	dl.scheduled = true
	for _, fn := range dl.onDirty {
		fn()
	}
}

// RootAreaForPosition returns the root area showing the document position.
func (dl *DocumentLayout) RootAreaForPosition(pos int) (*Area, bool) {
	if i, ok := dl.rootIndexForPosition(pos); ok {
		return dl.rootAreas[i], true
	}
	return nil, false
}

func (dl *DocumentLayout) rootIndexForPosition(pos int) (int, bool) {
	b := dl.doc.FindBlock(pos)
	if b == nil {
		return 0, false
	}
	off := pos - b.Position()
	for i, r := range dl.rootAreas {
		if r.IsDirty() && r.endOfArea == nil {
			continue
		}
		if r.showsOffset(b, off) {
			return i, true
		}
	}
	return 0, false
}

// PageNumberOf returns the page number holding the first line of a block.
func (dl *DocumentLayout) PageNumberOf(blockID int) (int, bool) {
	b := dl.doc.BlockByID(blockID)
	if b == nil {
		return 0, false
	}
	for _, r := range dl.rootAreas {
		if r.showsOffset(b, 0) {
			return r.page.Number, true
		}
	}
	return 0, false
}

// AnchorRect returns the placed rectangle of an anchored object and the
// page it is on.
func (dl *DocumentLayout) AnchorRect(id string) (geom.Rect, Page, bool) {
	for _, r := range dl.rootAreas {
		for _, p := range r.anchors {
			if p.Anchor.ID == id {
				return p.Rect, r.page, true
			}
		}
	}
	return geom.Rect{}, Page{}, false
}

func (dl *DocumentLayout) listLevel(b *document.Block) *document.ListLevel {
	n := b.List.EffectiveLevel()
	if st := dl.doc.Lists[b.List.List]; st != nil {
		return st.Level(n)
	}
	return &document.ListLevel{Level: n, Format: document.FormatDecimal}
}

// anchor bookkeeping

func (dl *DocumentLayout) beginAnchorCollecting(root *Area) {
	dl.textAnchors = nil
	clear(dl.strategies)
	clear(dl.obstructions)
	dl.anchoringIndex = 0
	dl.anAnchorIsPlaced = false
	dl.anchoringRoot = root
	dl.softBreakAt = math.MaxInt
}

func (dl *DocumentLayout) anchorFound(key string) bool { return dl.found[key] }

// anchoringSoftBreak is the position where a root area must end because an
// object anchored there did not fit.
func (dl *DocumentLayout) anchoringSoftBreak() int { return dl.softBreakAt }

func (dl *DocumentLayout) setAnchoringRects(paragraph, content, env geom.Rect) {
	dl.paragraphRect, dl.contentRect, dl.environmentRect = paragraph, content, env
}

func anchorKey(a *document.Anchor, pos int) string {
	if a.ID != "" {
		return a.ID
	}
	return fmt.Sprintf("anchor@%d", pos)
}

// positionAnchorTextRanges registers the anchors whose placeholders lie on
// the runes [from, to) of bl.
func (dl *DocumentLayout) positionAnchorTextRanges(a *Area, bl *blockLayout, from, to int) {
	if dl.anchoringRoot == nil {
		return
	}
	base := bl.block.Position()
	for _, o := range bl.text.Objects(from, to) {
		an := o.frag.Anchor
		if an == nil || (an.Type == document.AnchorPage && an.Page > 0) {
			continue
		}
		pos := base + o.offset
		key := anchorKey(an, pos)
		dl.found[key] = true
		s, ok := dl.strategies[key]
		if !ok {
			if an.IsInline() {
				s = NewInlineStrategy(dl, dl.anchoringRoot, an, key)
			} else {
				s = NewFloatingStrategy(dl, dl.anchoringRoot, an, key)
			}
			dl.strategies[key] = s
			dl.textAnchors = append(dl.textAnchors, s)
		}
		h := s.host()
		h.text, h.offset, h.pos = bl.text, o.offset, pos
		h.paragraph, h.content, h.env = dl.paragraphRect, dl.contentRect, dl.environmentRect
	}
}

// positionAnchoredObstructions gives the next unplaced anchor one attempt.
// At most one anchor is placed per pass over a root area.
func (dl *DocumentLayout) positionAnchoredObstructions() {
	if dl.anchoringRoot == nil || dl.anAnchorIsPlaced {
		return
	}
	if dl.anchoringIndex < len(dl.textAnchors) {
		if dl.textAnchors[dl.anchoringIndex].MoveSubject() {
			dl.anchoringIndex++
			dl.anAnchorIsPlaced = true
		}
	}
}

func (dl *DocumentLayout) registerObstruction(key string, a *document.Anchor, r geom.Rect) {
	if o := dl.newAnchorObstruction(key, a, r); o != nil {
		dl.obstructions[key] = o
	} else {
		delete(dl.obstructions, key)
	}
}

// currentObstructions are the free obstructions plus those of the anchors
// placed so far, in anchor order.
func (dl *DocumentLayout) currentObstructions() []*runaround.Obstruction {
	out := append([]*runaround.Obstruction(nil), dl.freeObstructions...)
	for _, s := range dl.textAnchors {
		if o, ok := dl.obstructions[s.registryKey()]; ok {
			out = append(out, o)
		}
	}
	return out
}

// maxYOfAnchoredObstructions is the lowest bottom of the floating objects
// anchored within [first, last].
func (dl *DocumentLayout) maxYOfAnchoredObstructions(first, last int) float64 {
	y := 0.0
	for _, s := range dl.textAnchors[:min(dl.anchoringIndex, len(dl.textAnchors))] {
		if s.Anchor().IsInline() || s.Position() < first || s.Position() > last {
			continue
		}
		if r, ok := s.Rect(); ok {
			y = math.Max(y, r.Bottom())
		}
	}
	return y
}

// placedAnchors returns the anchors found in the last pass with their
// final rectangles.
func (dl *DocumentLayout) placedAnchors() []PlacedAnchor {
	var out []PlacedAnchor
	for _, s := range dl.textAnchors {
		if !dl.found[s.registryKey()] {
			continue
		}
		if s.Anchor().IsInline() {
			s.MoveSubject()
		}
		if r, ok := s.Rect(); ok {
			out = append(out, PlacedAnchor{Anchor: s.Anchor(), Rect: r, Inline: s.Anchor().IsInline()})
		}
	}
	return out
}

// collectPageAnchors finds the objects bound to a fixed page.
func (dl *DocumentLayout) collectPageAnchors() {
	dl.pageAnchors = dl.pageAnchors[:0]
	dl.doc.Walk(func(b *document.Block) bool {
		for i := range b.Fragments {
			if an := b.Fragments[i].Anchor; an != nil && an.Type == document.AnchorPage && an.Page > 0 {
				dl.pageAnchors = append(dl.pageAnchors, an)
			}
		}
		return true
	})
}

// placePageAnchors positions the objects bound to the page of root and adds
// their obstructions to the free ones.
func (dl *DocumentLayout) placePageAnchors(root *Area) []PlacedAnchor {
	var out []PlacedAnchor
	for _, an := range dl.pageAnchors {
		if an.Page != root.page.Number {
			continue
		}
		key := anchorKey(an, -an.Page)
		s := NewFloatingStrategy(dl, root, an, key)
		s.at.paragraph, s.at.content = root.page.Content, root.page.Content
		r, _ := s.place(root.page)
		r = s.clamp(r, root.page)
		if o := dl.newAnchorObstruction(key, an, r); o != nil {
			dl.freeObstructions = append(dl.freeObstructions, o)
		}
		out = append(out, PlacedAnchor{Anchor: an, Rect: r})
	}
	return out
}

// showsOffset reports whether a line of the area, or of an area nested in
// it, shows the block offset off of b.
func (a *Area) showsOffset(b *document.Block, off int) bool {
	for _, bl := range a.blocks {
		if bl.block != b {
			continue
		}
		lines := bl.lines()
		if len(lines) == 0 {
			return off == 0
		}
		for _, l := range lines {
			if off >= l.Start && (off < l.End || (off == l.End && l.End == b.TextLength())) {
				return true
			}
		}
	}
	for _, t := range a.tables {
		found := false
		t.cells(func(_ *document.Cell, ca *Area, _ geom.Point) {
			found = found || ca.showsOffset(b, off)
		})
		if found {
			return true
		}
	}
	for _, g := range a.generated {
		if g.area.showsOffset(b, off) {
			return true
		}
	}
	if a.endNotes != nil && a.endNotes.showsOffset(b, off) {
		return true
	}
	for _, fa := range a.footNoteAreas {
		if fa.showsOffset(b, off) {
			return true
		}
	}
	return false
}
