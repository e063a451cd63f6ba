package layout

import "github.com/ByLCY/textflow/document"

// FrameIterator is a resume point inside a frame: the current item, the
// first line of a split paragraph and an optional child iterator for the
// table or sub-frame being laid out. It is a value: Clone copies it deeply.
type FrameIterator struct {
	frame *document.Frame

	// Index is the current item of the frame.
	Index int
	// LineTextStart is the block-relative offset where a split paragraph
	// resumes, or -1 for the start of the block.
	LineTextStart int
	// EndNoteIndex is the next endnote of an end-notes frame.
	EndNoteIndex int

	table *TableIterator
	sub   *FrameIterator
}

// NewFrameIterator returns an iterator at the start of frame.
func NewFrameIterator(frame *document.Frame) *FrameIterator {
	return &FrameIterator{frame: frame, LineTextStart: -1}
}

// NewCellIterator returns an iterator at the start of a table cell.
func NewCellIterator(cell *document.Cell) *FrameIterator {
	if cell == nil {
		return NewFrameIterator(&document.Frame{Kind: document.FrameCell})
	}
	return NewFrameIterator(cell.Frame)
}

// Frame returns the iterated frame.
func (it *FrameIterator) Frame() *document.Frame { return it.frame }

// Clone returns a deep copy.
func (it *FrameIterator) Clone() *FrameIterator {
	if it == nil {
		return nil
	}
	c := *it
	c.table = it.table.Clone()
	c.sub = it.sub.Clone()
	return &c
}

// Equal reports whether both iterators resume at the same point.
func (it *FrameIterator) Equal(o *FrameIterator) bool {
	if it == nil || o == nil {
		return it == o
	}
	if it.frame != o.frame || it.Index != o.Index || it.EndNoteIndex != o.EndNoteIndex {
		return false
	}
	switch {
	case it.table != nil:
		return o.table != nil && it.table.Equal(o.table)
	case it.sub != nil:
		return o.sub != nil && it.sub.Equal(o.sub)
	}
	return o.table == nil && o.sub == nil && it.LineTextStart == o.LineTextStart
}

// AtEnd reports whether every item has been consumed.
func (it *FrameIterator) AtEnd() bool { return it.frame == nil || it.Index >= len(it.frame.Items) }

// Item returns the current item or nil at the end.
func (it *FrameIterator) Item() document.Item {
	if it.AtEnd() {
		return nil
	}
	return it.frame.Items[it.Index]
}

// PeekNext returns the item after the current one.
func (it *FrameIterator) PeekNext() document.Item {
	if it.frame == nil || it.Index+1 >= len(it.frame.Items) {
		return nil
	}
	return it.frame.Items[it.Index+1]
}

// Next moves to the following item and drops any child iterator.
func (it *FrameIterator) Next() {
	it.Index++
	it.LineTextStart = -1
	it.table = nil
	it.sub = nil
}

// TableIterator returns the child iterator for t, creating it when needed.
// Passing nil tears the child down.
func (it *FrameIterator) TableIterator(t *document.Table) *TableIterator {
	if t == nil {
		it.table = nil
		return nil
	}
	if it.table == nil || it.table.table != t {
		it.table = NewTableIterator(t)
	}
	return it.table
}

// SubFrameIterator returns the child iterator for f, creating it when needed.
// Passing nil tears the child down.
func (it *FrameIterator) SubFrameIterator(f *document.Frame) *FrameIterator {
	if f == nil {
		it.sub = nil
		return nil
	}
	if it.sub == nil || it.sub.frame != f {
		it.sub = NewFrameIterator(f)
	}
	return it.sub
}

// Position returns the global document position of the resume point.
func (it *FrameIterator) Position() int {
	if it.frame == nil {
		return 0
	}
	item := it.Item()
	if item == nil {
		return it.frame.End()
	}
	if b, ok := item.(*document.Block); ok && it.LineTextStart > 0 {
		return b.Position() + it.LineTextStart
	}
	if it.table != nil {
		return it.table.Position()
	}
	if it.sub != nil {
		return it.sub.Position()
	}
	return item.Position()
}

// TableIterator is a resume point inside a table: the current row plus a
// frame iterator per column for cells split across areas. Header rows laid
// out on the current page are remembered so continuation pages can repeat
// them.
type TableIterator struct {
	table *document.Table

	Row        int
	HeaderRows int
	// HeaderRowPositions holds HeaderRows+1 row tops of the repeated header.
	HeaderRowPositions []float64
	// HeaderCellAreas holds the cell areas of the header, [row][column].
	HeaderCellAreas [][]*Area
	HeaderPositionX float64

	frames []*FrameIterator
}

// NewTableIterator returns an iterator at the first row of t.
func NewTableIterator(t *document.Table) *TableIterator {
	hr := min(t.Format.HeaderRows, t.RowCount())
	return &TableIterator{
		table:              t,
		HeaderRows:         hr,
		HeaderRowPositions: make([]float64, hr+1),
		HeaderCellAreas:    make([][]*Area, hr),
		frames:             make([]*FrameIterator, t.ColumnCount()),
	}
}

// Table returns the iterated table.
func (ti *TableIterator) Table() *document.Table { return ti.table }

// Clone returns a deep copy. Header cell areas are shared.
func (ti *TableIterator) Clone() *TableIterator {
	if ti == nil {
		return nil
	}
	c := *ti
	c.HeaderRowPositions = append([]float64(nil), ti.HeaderRowPositions...)
	c.HeaderCellAreas = make([][]*Area, len(ti.HeaderCellAreas))
	for i, row := range ti.HeaderCellAreas {
		c.HeaderCellAreas[i] = append([]*Area(nil), row...)
	}
	c.frames = make([]*FrameIterator, len(ti.frames))
	for i, f := range ti.frames {
		c.frames[i] = f.Clone()
	}
	return &c
}

// Equal reports whether both iterators resume at the same row and cell points.
func (ti *TableIterator) Equal(o *TableIterator) bool {
	if ti == nil || o == nil {
		return ti == o
	}
	if ti.table != o.table || ti.Row != o.Row || len(ti.frames) != len(o.frames) {
		return false
	}
	for i := range ti.frames {
		a, b := ti.frames[i], o.frames[i]
		switch {
		case a == nil && b == nil:
		case a == nil || b == nil:
			// a missing iterator equals a fresh one
			other := a
			if other == nil {
				other = b
			}
			if !other.Equal(NewFrameIterator(other.frame)) {
				return false
			}
		case !a.Equal(b):
			return false
		}
	}
	return true
}

// CellIterator returns the frame iterator of the cell covering (Row, column),
// creating it when needed.
func (ti *TableIterator) CellIterator(column int) *FrameIterator {
	if column < 0 || column >= len(ti.frames) {
		return nil
	}
	if ti.frames[column] == nil {
		ti.frames[column] = NewCellIterator(ti.table.CellAt(ti.Row, column))
	}
	return ti.frames[column]
}

// inProgress reports whether a cell of the current row was split.
func (ti *TableIterator) inProgress() bool {
	for _, f := range ti.frames {
		if f != nil {
			return true
		}
	}
	return false
}

// ClearCell drops the iterator of a column so the next row starts afresh.
func (ti *TableIterator) ClearCell(column int) {
	if column >= 0 && column < len(ti.frames) {
		ti.frames[column] = nil
	}
}

// Position returns the global position of the resume point.
func (ti *TableIterator) Position() int {
	for _, f := range ti.frames {
		if f != nil {
			return f.Position()
		}
	}
	if c := ti.table.CellAt(ti.Row, 0); c != nil && c.Frame != nil {
		return c.Frame.Position()
	}
	return ti.table.Position()
}
