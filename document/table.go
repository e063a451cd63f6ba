package document

// TableFormat holds table-level properties.
type TableFormat struct {
	Width         float64   `json:"width,omitempty"`         // pt; 0 = full available width
	RelativeWidth float64   `json:"relativeWidth,omitempty"` // percent of available width
	Alignment     Alignment `json:"alignment,omitempty"`

	LeftMargin   float64 `json:"leftMargin,omitempty"`
	RightMargin  float64 `json:"rightMargin,omitempty"`
	TopMargin    float64 `json:"topMargin,omitempty"`
	BottomMargin float64 `json:"bottomMargin,omitempty"`

	HeaderRows  int        `json:"headerRows,omitempty"`
	BreakBefore BreakKind  `json:"breakBefore,omitempty"`
	BreakAfter  BreakKind  `json:"breakAfter,omitempty"`
	Border      BorderLine `json:"border"`
	CellPadding float64    `json:"cellPadding,omitempty"`
	Background  *Color     `json:"background,omitempty"`
}

// Column is one table column; a zero width shares the remainder evenly.
type Column struct {
	Width         float64 `json:"width,omitempty"`
	RelativeWidth float64 `json:"relativeWidth,omitempty"`
}

// Row is one table row. Cells is indexed by column; positions covered by a
// spanning cell hold nil.
type Row struct {
	MinHeight float64 `json:"minHeight,omitempty"`
	Cells     []*Cell `json:"-"`
}

// Cell is one table cell with its own content frame.
type Cell struct {
	Row     int `json:"row"`
	Column  int `json:"column"`
	RowSpan int `json:"rowSpan"`
	ColSpan int `json:"colSpan"`

	Frame      *Frame     `json:"-"`
	Padding    *float64   `json:"padding,omitempty"`
	Background *Color     `json:"background,omitempty"`
	Border     BorderLine `json:"border"`
}

// Table is a grid of cells.
type Table struct {
	Format  TableFormat `json:"format"`
	Columns []Column    `json:"columns"`
	Rows    []*Row      `json:"-"`

	pos, end int
}

func (*Table) isItem() {}

// Position is the global position of the table start marker.
func (t *Table) Position() int { return t.pos }

// End is the global position of the table end marker.
func (t *Table) End() int { return t.end }

// NewTable returns a rows×cols table of empty single-span cells.
func NewTable(rows, cols int) *Table {
	t := &Table{Columns: make([]Column, cols)}
	for r := 0; r < rows; r++ {
		row := &Row{Cells: make([]*Cell, cols)}
		for c := 0; c < cols; c++ {
			row.Cells[c] = &Cell{Row: r, Column: c, RowSpan: 1, ColSpan: 1, Frame: &Frame{Kind: FrameCell}}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.Columns) }

// Cell returns the cell anchored at (row, col), or nil when that position is
// covered by a span or out of range.
func (t *Table) Cell(row, col int) *Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row].Cells) {
		return nil
	}
	return t.Rows[row].Cells[col]
}

// CellAt returns the cell covering (row, col), following spans.
func (t *Table) CellAt(row, col int) *Cell {
	for r := row; r >= 0; r-- {
		for c := col; c >= 0; c-- {
			cell := t.Cell(r, c)
			if cell == nil {
				continue
			}
			if r+cell.RowSpan > row && c+cell.ColSpan > col {
				return cell
			}
		}
	}
	return nil
}

// Merge makes the cell at (row, col) span rowSpan×colSpan, clearing the
// covered cells. Content of covered cells is discarded.
func (t *Table) Merge(row, col, rowSpan, colSpan int) *Cell {
	cell := t.Cell(row, col)
	if cell == nil {
		return nil
	}
	if row+rowSpan > len(t.Rows) {
		rowSpan = len(t.Rows) - row
	}
	if col+colSpan > len(t.Columns) {
		colSpan = len(t.Columns) - col
	}
	for r := row; r < row+rowSpan; r++ {
		for c := col; c < col+colSpan; c++ {
			if r != row || c != col {
				t.Rows[r].Cells[c] = nil
			}
		}
	}
	cell.RowSpan = rowSpan
	cell.ColSpan = colSpan
	return cell
}

// CellPadding returns the effective padding of cell.
func (t *Table) CellPadding(cell *Cell) float64 {
	if cell != nil && cell.Padding != nil {
		return *cell.Padding
	}
	return t.Format.CellPadding
}
