package lists

import (
	"math"
	"strings"

	"github.com/ByLCY/textflow/document"
)

// DefaultBullet is used when a bullet level sets no character.
const DefaultBullet = '•'

// Measurer measures label text.
type Measurer interface {
	TextWidth(format document.CharFormat, text string) float64
}

// CounterData is the cached label of one list block.
type CounterData struct {
	List    string  `json:"list"`
	Level   int     `json:"level"`
	Index   int     `json:"index"`
	Text    string  `json:"text"`
	Partial string  `json:"partial"`
	Prefix  string  `json:"prefix,omitempty"`
	Suffix  string  `json:"suffix,omitempty"`
	Width   float64 `json:"width"`
	Spacing float64 `json:"spacing"`
	// Numbered is false for unnumbered items and list headers.
	Numbered bool `json:"numbered"`
}

// Label returns prefix, counter text and suffix joined.
func (c CounterData) Label() string { return c.Prefix + c.Text + c.Suffix }

// Cache holds counter data keyed by block identity.
type Cache struct {
	data map[int]CounterData
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{data: map[int]CounterData{}} }

// Get returns the cached data of a block.
func (c *Cache) Get(blockID int) (CounterData, bool) {
	d, ok := c.data[blockID]
	return d, ok
}

// Invalidate drops one block.
func (c *Cache) Invalidate(blockID int) { delete(c.data, blockID) }

// InvalidateList drops every block of a list.
func (c *Cache) InvalidateList(list string) {
	for id, d := range c.data {
		if d.List == list {
			delete(c.data, id)
		}
	}
}

// Clear drops everything.
func (c *Cache) Clear() { clear(c.data) }

// Len returns the number of cached blocks.
func (c *Cache) Len() int { return len(c.data) }

// Helper computes counter data for the list blocks of one document.
type Helper struct {
	doc     *document.Document
	cache   *Cache
	measure Measurer

	order []*document.Block
	index map[int]int
}

// NewHelper binds a helper to doc. measure may be nil, in which case widths are zero.
func NewHelper(doc *document.Document, cache *Cache, measure Measurer) *Helper {
	if cache == nil {
		cache = NewCache()
	}
	return &Helper{doc: doc, cache: cache, measure: measure}
}

// Cache returns the backing cache.
func (h *Helper) Cache() *Cache { return h.cache }

// Refresh re-reads the block order of the document.
func (h *Helper) Refresh() {
	h.order = h.doc.Blocks()
	h.index = make(map[int]int, len(h.order))
	for i, b := range h.order {
		h.index[b.ID] = i
	}
}

// NeedsRecalc reports whether block has no valid counter data.
func (h *Helper) NeedsRecalc(b *document.Block) bool {
	if b.List == nil {
		return false
	}
	d, ok := h.cache.Get(b.ID)
	return !ok || d.List != b.List.List || d.Level != b.List.EffectiveLevel()
}

// Counter returns the counter data of block, computing it when needed.
func (h *Helper) Counter(b *document.Block) (CounterData, bool) {
	if b.List == nil {
		return CounterData{}, false
	}
	if h.NeedsRecalc(b) {
		h.Recalculate(b)
	}
	return h.cache.Get(b.ID)
}

// Recalculate computes the counter data of b and of every earlier list block
// whose data is missing.
func (h *Helper) Recalculate(b *document.Block) {
	if b.List == nil {
		return
	}
	pos, ok := h.index[b.ID]
	if !ok || pos >= len(h.order) || h.order[pos] != b {
		h.Refresh()
		if pos, ok = h.index[b.ID]; !ok {
			// blocks outside the main flow (notes, cells of generated docs) number alone
			h.recalculate(b, -1)
			return
		}
	}
	for i := 0; i < pos; i++ {
		if prev := h.order[i]; h.NeedsRecalc(prev) {
			h.recalculate(prev, i)
		}
	}
	h.recalculate(b, pos)
}

func (h *Helper) style(list string) *document.ListStyle {
	if s, ok := h.doc.Lists[list]; ok && s != nil {
		return s
	}
	return document.NewListStyle(list, document.FormatDecimal)
}

// previousIndex finds the counter the item at pos continues from.
func (h *Helper) previousIndex(b *document.Block, pos int, level int) (int, bool) {
	for i := pos - 1; i >= 0; i-- {
		prev := h.order[i]
		if prev.List == nil || prev.List.List != b.List.List {
			continue
		}
		pl := prev.List.EffectiveLevel()
		if pl < level {
			return 0, false
		}
		if pl > level {
			continue
		}
		if d, ok := h.cache.Get(prev.ID); ok {
			return d.Index, true
		}
	}
	return 0, false
}

// continuedIndex finds the last counter of an earlier list sharing the style name.
func (h *Helper) continuedIndex(b *document.Block, pos int, level int, style *document.ListStyle) (int, bool) {
	for i := pos - 1; i >= 0; i-- {
		prev := h.order[i]
		if prev.List == nil || prev.List.List == b.List.List || prev.List.EffectiveLevel() != level {
			continue
		}
		if h.style(prev.List.List).Name != style.Name {
			continue
		}
		if d, ok := h.cache.Get(prev.ID); ok {
			return d.Index, true
		}
	}
	return 0, false
}

func (h *Helper) recalculate(b *document.Block, pos int) {
	style := h.style(b.List.List)
	level := b.List.EffectiveLevel()
	lvl := style.Level(level)

	index := lvl.Start()
	fixed := false
	if b.List.Restart > 0 {
		index = b.List.Restart
		fixed = true
	}
	if !fixed && pos >= 0 {
		if prev, ok := h.previousIndex(b, pos, level); ok {
			index = prev + 1
		} else if style.ContinueNumbering {
			if prev, ok := h.continuedIndex(b, pos, level, style); ok {
				index = prev + 1
			}
		}
	}

	data := CounterData{List: b.List.List, Level: level, Prefix: lvl.Prefix, Suffix: lvl.EffectiveSuffix()}
	if b.List.Unnumbered || b.List.Header {
		data.Prefix, data.Suffix = "", ""
		data.Index = index - 1
		if b.List.Header {
			data.Width = lvl.MinLabelWidth
		}
		h.cache.data[b.ID] = data
		return
	}

	labelFormat := b.FirstCharFormat()
	if lvl.LabelFormat != nil {
		labelFormat = *lvl.LabelFormat
	}

	var item string
	if dp := min(lvl.DisplayLevels, level); dp > 1 && lvl.Format.IsNumbered() && pos >= 0 {
		item = h.ancestorText(b, pos, level, dp)
		if !strings.HasSuffix(item, ".") && item != "" {
			item += "."
		}
	}

	width := 0.0
	calcWidth := true
	switch {
	case lvl.Format.IsNumbered():
		data.Partial = Format(index, lvl.Format, lvl.LetterSync)
	case lvl.Format == document.FormatBullet:
		calcWidth = false
		bullet := lvl.BulletChar
		if bullet == 0 {
			bullet = DefaultBullet
		}
		item = string(bullet)
		bf := labelFormat
		if lvl.RelativeBulletSize > 0 {
			bf.Size = bf.FontSize() * lvl.RelativeBulletSize / 100
		}
		width = h.textWidth(bf, item)
	case lvl.Format == document.FormatImage:
		calcWidth = false
		width = lvl.ImageWidth
	default:
		calcWidth = false
	}

	data.Index = index
	data.Numbered = true
	data.Text = item + data.Partial
	if calcWidth {
		width = h.textWidth(labelFormat, data.Text)
	}
	width += h.textWidth(labelFormat, data.Prefix+data.Suffix)

	if !lvl.AlignmentMode {
		if lvl.Format != document.FormatNone {
			spacing := lvl.MinLabelDistance
			if width < lvl.MinLabelWidth {
				spacing -= lvl.MinLabelWidth - width
			}
			data.Spacing = math.Max(spacing, 0)
		}
		width = math.Max(width, lvl.MinLabelWidth)
	}
	data.Width = width
	h.cache.data[b.ID] = data
}

// ancestorText builds the shallower-level part of a multi-level label from the
// nearest earlier item at each level; levels with no such item count as 1.
func (h *Helper) ancestorText(b *document.Block, pos, level, displayLevels int) string {
	first := level - displayLevels + 1
	parts := make(map[int]string, displayLevels)
	check := level
	for i := pos - 1; check > first && i >= 0; i-- {
		prev := h.order[i]
		if prev.List == nil || prev.List.List != b.List.List || prev.List.Unnumbered || prev.List.Header {
			continue
		}
		other := prev.List.EffectiveLevel()
		if other >= check {
			continue
		}
		if d, ok := h.cache.Get(prev.ID); ok {
			parts[other] = d.Partial
		}
		check = other
	}
	segments := make([]string, 0, displayLevels-1)
	for l := first; l < level; l++ {
		seg, ok := parts[l]
		if !ok || seg == "" {
			seg = "1"
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, ".")
}

func (h *Helper) textWidth(f document.CharFormat, s string) float64 {
	if h.measure == nil || s == "" {
		return 0
	}
	return h.measure.TextWidth(f, s)
}
