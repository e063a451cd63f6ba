package layout

import (
	"math"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

// tableArea lays out the rows of one table inside its parent area. Each
// cell is a KindTableCell Area; header rows laid out on the first page are
// repeated, shifted, at the top of every continuation.
type tableArea struct {
	parent *Area
	dl     *DocumentLayout
	table  *document.Table
	// index is the item index of the table within the parent frame
	index int

	left, right, top, bottom float64
	maxBottom                float64
	virginPage               bool

	start, end *TableIterator
	headerRows int
	// offset of the repeated header relative to where it was first laid out
	headerOffsetX, headerOffsetY float64

	tableWidth         float64
	columnWidths       []float64
	columnPositions    []float64
	rowPositions       []float64
	headerRowPositions []float64
	cellAreas          [][]*Area

	lastRowHasSomething bool
	totalMisFit         bool
	bounding            geom.Rect

	// footnotes confirmed before the table and before the current row
	noteMark footNoteMark
	rowMark  footNoteMark
}

func newTableArea(parent *Area, t *document.Table, index int) *tableArea {
	ta := &tableArea{parent: parent, dl: parent.dl, table: t, index: index}
	rows := t.RowCount()
	ta.rowPositions = make([]float64, rows+1)
	ta.headerRowPositions = make([]float64, rows+1)
	ta.cellAreas = make([][]*Area, rows)
	for r := range ta.cellAreas {
		ta.cellAreas[r] = make([]*Area, t.ColumnCount())
	}
	return ta
}

func (ta *tableArea) setReferenceRect(left, right, top, maxBottom float64) {
	ta.left, ta.right = left, right
	ta.top, ta.bottom = top, top
	ta.maxBottom = maxBottom
	ta.bounding = geom.RectFromLTRB(left, top, right, top)
}

func (ta *tableArea) boundingRect() geom.Rect {
	return ta.bounding.WithTop(ta.top).WithBottom(math.Max(ta.top, ta.bottom))
}

// layout places rows from cursor until the table ends or a row does not fit.
func (ta *tableArea) layout(cursor *TableIterator) bool {
	t := ta.table
	ta.start = cursor.Clone()
	ta.headerRows = cursor.HeaderRows
	ta.totalMisFit = false

	if cursor.Row >= t.RowCount() {
		ta.bottom = ta.top
		ta.end = cursor.Clone()
		return true
	}
	ta.layoutColumns()

	first := cursor.Row == 0 && !cursor.inProgress()
	if first {
		ta.rowPositions[0] = ta.top + t.Format.TopMargin
		ta.headerOffsetX, ta.headerOffsetY = 0, 0
	} else {
		if cursor.Row < ta.headerRows {
			// the header itself was split; nothing to repeat yet
			ta.headerRows = 0
		}
		for r := 0; r < ta.headerRows; r++ {
			ta.headerRowPositions[r] = cursor.HeaderRowPositions[r]
			copy(ta.cellAreas[r], cursor.HeaderCellAreas[r])
		}
		if ta.headerRows > 0 {
			ta.headerRowPositions[ta.headerRows] = cursor.HeaderRowPositions[ta.headerRows]
		}
		ta.headerOffsetY = ta.top - ta.headerRowPositions[0]
		ta.rowPositions[cursor.Row] = ta.headerRowPositions[ta.headerRows] + ta.headerOffsetY
		ta.headerOffsetX = ta.columnPositions[0] - cursor.HeaderPositionX
	}

	var complete bool
	for {
		row := cursor.Row
		topBorder, bottomBorder := ta.borderAbove(row), ta.borderAbove(row+1)
		ta.lastRowHasSomething = false
		complete = ta.layoutRow(cursor, topBorder, bottomBorder)
		ta.bottom = ta.rowPositions[row+1] + bottomBorder
		if !complete {
			break
		}
		ta.virginPage = false
		cursor.Row++
		if cursor.Row >= t.RowCount() {
			break
		}
	}
	if cursor.Row >= t.RowCount() {
		ta.lastRowHasSomething = false
		ta.bottom += t.Format.BottomMargin
	}

	if first {
		for r := 0; r < ta.headerRows; r++ {
			cursor.HeaderRowPositions[r] = ta.rowPositions[r]
			ta.headerRowPositions[r] = ta.rowPositions[r]
			copy(cursor.HeaderCellAreas[r], ta.cellAreas[r])
		}
		if ta.headerRows > 0 {
			cursor.HeaderRowPositions[ta.headerRows] = ta.rowPositions[ta.headerRows]
			ta.headerRowPositions[ta.headerRows] = ta.rowPositions[ta.headerRows]
		}
		cursor.HeaderPositionX = ta.columnPositions[0]

		if !ta.virginPage && ta.totalMisFit {
			// the header plus the first body row does not fit; move the
			// whole table on
			Logger().Debug("table header does not fit, moving table", "index", ta.index)
			cursor.Row = 0
			ta.nukeRow(cursor)
			ta.noteMark.restore()
			ta.bottom = ta.top
		}
	}

	ta.end = cursor.Clone()
	return complete
}

// layoutColumns resolves the table width and the column positions.
// RelativeWidth of a column is a weight; when the weights sum below 1 the
// rest of the width goes to columns without any width.
func (ta *tableArea) layoutColumns() {
	t := ta.table
	f := t.Format
	cols := t.ColumnCount()
	ta.columnWidths = make([]float64, cols+1)
	ta.columnPositions = make([]float64, cols+1)

	parentWidth := ta.right - ta.left
	switch {
	case f.Width == 0 && f.RelativeWidth == 0, f.Alignment == document.AlignJustify:
		ta.tableWidth = parentWidth - f.LeftMargin - f.RightMargin
	case f.Width > 0:
		ta.tableWidth = f.Width
	default:
		ta.tableWidth = f.RelativeWidth*parentWidth/100 - f.LeftMargin - f.RightMargin
	}

	available := ta.tableWidth
	var fixed, relative []int
	relativeSum := 0.0
	unstyled := 0
	for c, col := range t.Columns {
		switch {
		case col.RelativeWidth > 0:
			relative = append(relative, c)
			relativeSum += col.RelativeWidth
		case col.Width > 0:
			ta.columnWidths[c] = col.Width
			fixed = append(fixed, c)
			available -= col.Width
		default:
			relative = append(relative, c)
			unstyled++
		}
	}

	if available < 0 {
		if f.Width == 0 && len(fixed) > 0 {
			diff := -available / float64(len(fixed))
			for _, c := range fixed {
				ta.columnWidths[c] = math.Max(0, ta.columnWidths[c]-diff)
			}
		}
		available = 0
	}

	rest := (1 - math.Min(relativeSum, 1)) * available
	available -= rest
	if unstyled > 0 {
		rest /= float64(unstyled)
	}
	for _, c := range relative {
		if w := t.Columns[c].RelativeWidth; w > 0 {
			ta.columnWidths[c] = math.Max(0, w*available/relativeSum)
		} else {
			ta.columnWidths[c] = rest
		}
	}

	offset := f.LeftMargin
	switch f.Alignment {
	case document.AlignRight, document.AlignEnd:
		offset += parentWidth - ta.tableWidth
	case document.AlignCenter:
		offset += (parentWidth - ta.tableWidth) / 2
	}
	x := ta.left
	for c := range ta.columnPositions {
		ta.columnPositions[c] = x + offset
		x += ta.columnWidths[c]
	}

	var leftBorder, rightBorder float64
	for r := 0; r < t.RowCount(); r++ {
		leftBorder = math.Max(leftBorder, ta.cellBorder(t.CellAt(r, 0)))
		rightBorder = math.Max(rightBorder, ta.cellBorder(t.CellAt(r, cols-1)))
	}
	ta.bounding = ta.bounding.United(geom.RectFromLTRB(
		ta.columnPositions[0]-leftBorder/2, ta.top,
		ta.columnPositions[cols]+rightBorder/2, ta.top))
}

// cellBorder is the border width drawn around cell.
func (ta *tableArea) cellBorder(cell *document.Cell) float64 {
	if cell != nil && cell.Border.Width > 0 {
		return cell.Border.Width
	}
	return ta.table.Format.Border.Width
}

// rowBorder is the widest border of the cells ending in row.
func (ta *tableArea) rowBorder(row int) float64 {
	t := ta.table
	if row < 0 || row >= t.RowCount() {
		return 0
	}
	w := 0.0
	for c := 0; c < t.ColumnCount(); {
		cell := t.CellAt(row, c)
		if cell == nil {
			c++
			continue
		}
		if row == cell.Row+cell.RowSpan-1 {
			w = math.Max(w, ta.cellBorder(cell))
		}
		c += max(1, cell.ColSpan)
	}
	return w
}

// borderAbove is the collapsed border between row-1 and row.
func (ta *tableArea) borderAbove(row int) float64 {
	return math.Max(ta.rowBorder(row-1), ta.rowBorder(row))
}

func (ta *tableArea) nukeRow(cursor *TableIterator) {
	if cursor.Row < len(ta.cellAreas) {
		for c := range ta.cellAreas[cursor.Row] {
			ta.cellAreas[cursor.Row][c] = nil
			cursor.ClearCell(c)
		}
	}
	ta.lastRowHasSomething = false
}

// giveUpRow collapses the current row and completes the merged cells of the
// previous row that were waiting for it.
func (ta *tableArea) giveUpRow(cursor *TableIterator, nuke bool, rowBottom float64) bool {
	row := cursor.Row
	ta.rowPositions[row+1] = ta.rowPositions[row]
	if nuke {
		ta.nukeRow(cursor)
		ta.rowMark.restore()
	}
	if row > ta.start.Row {
		cursor.Row--
		ta.layoutMergedCellsNotEnding(cursor, rowBottom)
		cursor.Row++
	}
	return false
}

func (ta *tableArea) newCellArea(cell *document.Cell, col int, top, maxBottom float64) *Area {
	pad := ta.table.CellPadding(cell)
	half := ta.cellBorder(cell) / 2
	left := ta.columnPositions[col] + pad + half
	right := math.Max(left, ta.columnPositions[col+max(1, cell.ColSpan)]-pad-half)

	ca := newArea(ta.dl, ta.parent, KindTableCell)
	ca.SetReferenceRect(left, right, top, maxBottom)
	ca.virginPage = ta.virginPage
	ca.SetLayoutEnvironment(true, true)
	ta.cellAreas[cell.Row][cell.Column] = ca
	return ca
}

// layoutRow lays out the cells that end in the cursor row. Cells spanning
// further rows wait for their last row, so the merged cell grows that row.
func (ta *tableArea) layoutRow(cursor *TableIterator, topBorder, bottomBorder float64) bool {
	t := ta.table
	row := cursor.Row
	ta.rowMark = ta.parent.markFootNotes()
	rowBottom := ta.rowPositions[row] + t.Rows[row].MinHeight
	if rowBottom > ta.maxBottom {
		return ta.giveUpRow(cursor, false, rowBottom)
	}

	allDone, anyTried, noneFitted := true, false, true
	for c := 0; c < t.ColumnCount(); {
		cell := t.CellAt(row, c)
		if cell == nil {
			c++
			continue
		}
		if row == cell.Row+cell.RowSpan-1 {
			anyTried = true
			pad := t.CellPadding(cell)
			maxBottom := ta.maxBottom - pad - bottomBorder
			top := ta.rowPositions[max(cell.Row, ta.start.Row)] + pad + topBorder
			if maxBottom < top {
				return ta.giveUpRow(cursor, true, rowBottom)
			}

			ca := ta.newCellArea(cell, c, top, maxBottom)
			done := ca.Layout(cursor.CellIterator(c))
			allDone = allDone && done
			noneFitted = noneFitted && ca.top >= ca.bottom

			rowBottom = math.Max(rowBottom, ca.bottom+pad)
			if cell.Frame != nil {
				rowBottom = math.Max(rowBottom, ta.dl.maxYOfAnchoredObstructions(cell.Frame.Position(), cell.Frame.End()))
			}
			ta.lastRowHasSomething = true
		}
		c += max(1, cell.ColSpan)
	}

	if allDone {
		for c := 0; c < t.ColumnCount(); {
			cell := t.CellAt(row, c)
			if cell == nil {
				c++
				continue
			}
			if row == cell.Row+cell.RowSpan-1 {
				cursor.ClearCell(c)
			}
			c += max(1, cell.ColSpan)
		}
	}

	if noneFitted && row <= ta.headerRows {
		ta.totalMisFit = true
	}
	if anyTried && noneFitted && !allDone {
		return ta.giveUpRow(cursor, true, rowBottom)
	}
	if !allDone {
		ta.layoutMergedCellsNotEnding(cursor, rowBottom)
	}
	ta.rowPositions[row+1] = rowBottom
	return allDone
}

// layoutMergedCellsNotEnding gives the cells that span past the cursor row
// their share of this area when the table breaks after that row.
func (ta *tableArea) layoutMergedCellsNotEnding(cursor *TableIterator, rowBottom float64) {
	t := ta.table
	row := cursor.Row
	for c := 0; c < t.ColumnCount(); {
		cell := t.CellAt(row, c)
		if cell == nil {
			c++
			continue
		}
		if row != cell.Row+cell.RowSpan-1 {
			pad := t.CellPadding(cell)
			border := ta.cellBorder(cell)
			top := ta.rowPositions[max(cell.Row, ta.start.Row)] + pad + border
			ca := ta.newCellArea(cell, c, top, rowBottom-pad-border)
			ca.Layout(cursor.CellIterator(c))
			if ca.top < ca.bottom && row == ta.headerRows {
				ta.totalMisFit = false
			}
		}
		c += max(1, cell.ColSpan)
	}
}

// rowRange returns the first and last body rows painted by the area. last
// is below first when the area holds no body row.
func (ta *tableArea) rowRange() (first, last int) {
	if ta.start == nil || ta.end == nil {
		return 0, -1
	}
	last = ta.end.Row
	if !ta.lastRowHasSomething {
		last--
	}
	last = min(last, ta.table.RowCount()-1)
	first = max(ta.start.Row, ta.headerRows)
	return first, last
}

// cells calls fn for every laid out cell area, once per cell, with the
// shift to apply. Repeated header cells carry the header offset.
func (ta *tableArea) cells(fn func(cell *document.Cell, ca *Area, offset geom.Point)) {
	first, last := ta.rowRange()
	if last < ta.start.Row {
		return
	}
	t := ta.table
	for r := 0; r < ta.headerRows; r++ {
		for c := 0; c < t.ColumnCount(); c++ {
			if cell := t.Cell(r, c); cell != nil && ta.cellAreas[r][c] != nil {
				fn(cell, ta.cellAreas[r][c], geom.Point{X: ta.headerOffsetX, Y: ta.headerOffsetY})
			}
		}
	}
	seen := make(map[*document.Cell]bool)
	for r := first; r <= last; r++ {
		for c := 0; c < t.ColumnCount(); c++ {
			cell := t.CellAt(r, c)
			if cell == nil || seen[cell] {
				continue
			}
			if ca := ta.cellAreas[cell.Row][cell.Column]; ca != nil {
				seen[cell] = true
				fn(cell, ca, geom.Point{})
			}
		}
	}
}

// cellRect is the border box of a laid out cell. Repeated header cells are
// placed where the header is drawn on this page.
func (ta *tableArea) cellRect(cell *document.Cell) geom.Rect {
	span := max(1, cell.ColSpan)
	x0, x1 := ta.columnPositions[cell.Column], ta.columnPositions[min(cell.Column+span, len(ta.columnPositions)-1)]
	if cell.Row < ta.headerRows {
		end := min(cell.Row+max(1, cell.RowSpan), ta.headerRows)
		return geom.RectFromLTRB(x0, ta.headerRowPositions[cell.Row]+ta.headerOffsetY,
			x1, ta.headerRowPositions[end]+ta.headerOffsetY)
	}
	_, last := ta.rowRange()
	first := max(cell.Row, ta.start.Row)
	end := min(cell.Row+max(1, cell.RowSpan)-1, last)
	return geom.RectFromLTRB(x0, ta.rowPositions[first], x1, ta.rowPositions[max(first, end)+1])
}
