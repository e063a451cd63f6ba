package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/generator"
)

type cellSpec struct {
	cmd              *Command
	rowSpan, colSpan int
}

type rowSpec struct {
	minHeight float64
	cells     []cellSpec
}

// table builds
//
//	table columns 3 header 1 width 80% border 0.5pt {
//	  row { cell { "a" } cell colspan 2 { text Body { "b" } } }
//	}
//
// Cells are placed left to right into the next column not covered by a
// span from an earlier row.
func (b *builder) table(cmd *Command, frame *document.Frame) error {
	_, attrs := parseArgs(cmd.Args, false)
	var rows []rowSpec
	columns := 0
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			rc := stmt.Command
			if rc == nil {
				continue
			}
			if rc.Name != "row" {
				return b.errorf(rc, "%w", ErrUnknownCommand)
			}
			row, err := b.rowSpec(rc)
			if err != nil {
				return err
			}
			width := 0
			for _, c := range row.cells {
				width += c.colSpan
			}
			columns = max(columns, width)
			rows = append(rows, row)
		}
	}
	if v, ok := attrs["columns"]; ok {
		n, err := parseInt(v)
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
		columns = max(columns, n)
	}
	if len(rows) == 0 || columns == 0 {
		return b.errorf(cmd, "表格没有单元格")
	}

	t := document.NewTable(len(rows), columns)
	if err := b.tableAttrs(t, attrs); err != nil {
		return b.errorf(cmd, "%w", err)
	}
	for r, row := range rows {
		t.Rows[r].MinHeight = row.minHeight
		col := 0
		for _, spec := range row.cells {
			for col < columns && t.Cell(r, col) == nil {
				col++
			}
			if col >= columns {
				return b.errorf(spec.cmd, "第 %d 行单元格超出列数 %d", r+1, columns)
			}
			cell := t.Cell(r, col)
			if spec.rowSpan > 1 || spec.colSpan > 1 {
				cell = t.Merge(r, col, spec.rowSpan, spec.colSpan)
			}
			if err := b.cell(spec.cmd, t, cell); err != nil {
				return err
			}
			col += cell.ColSpan
		}
	}
	b.attach(frame, t)
	return nil
}

func (b *builder) rowSpec(cmd *Command) (rowSpec, error) {
	var row rowSpec
	_, attrs := parseArgs(cmd.Args, false)
	if v, ok := attrs["min-height"]; ok {
		h, err := dimensionPt(v)
		if err != nil {
			return row, b.errorf(cmd, "%w", err)
		}
		row.minHeight = h
	}
	if cmd.Block == nil {
		return row, nil
	}
	for _, stmt := range cmd.Block.Statements {
		cc := stmt.Command
		if cc == nil {
			continue
		}
		if cc.Name != "cell" {
			return row, b.errorf(cc, "%w", ErrUnknownCommand)
		}
		spec := cellSpec{cmd: cc, rowSpan: 1, colSpan: 1}
		_, ca := parseArgs(cc.Args, false)
		for key, dst := range map[string]*int{"rowspan": &spec.rowSpan, "colspan": &spec.colSpan} {
			if v, ok := ca[key]; ok {
				n, err := parseInt(v)
				if err != nil || n < 1 {
					return row, b.errorf(cc, "%s 无效：%s", key, v)
				}
				*dst = n
			}
		}
		row.cells = append(row.cells, spec)
	}
	return row, nil
}

func (b *builder) tableAttrs(t *document.Table, attrs map[string]string) error {
	f := &t.Format
	var err error
	for key, value := range attrs {
		switch key {
		case "width":
			var pct float64
			var isPct bool
			if pct, isPct, err = percent(value); isPct && err == nil {
				f.RelativeWidth = pct
			} else if err == nil {
				f.Width, err = dimensionPt(value)
			}
		case "align":
			f.Alignment, err = lookup(alignments, value, "对齐方式")
		case "header":
			f.HeaderRows, err = parseInt(value)
		case "border":
			f.Border.Width, err = sizePt(value)
		case "border-color":
			var c *document.Color
			if c, err = b.color(value); err == nil {
				f.Border.Color = *c
			}
		case "padding":
			f.CellPadding, err = sizePt(value)
		case "background":
			f.Background, err = b.color(value)
		case "margin-top", "space-before":
			f.TopMargin, err = sizePt(value)
		case "margin-bottom", "space-after":
			f.BottomMargin, err = sizePt(value)
		case "margin-left":
			f.LeftMargin, err = dimensionPt(value)
		case "margin-right":
			f.RightMargin, err = dimensionPt(value)
		case "break-before":
			f.BreakBefore, err = lookup(breakKinds, value, "分页方式")
		case "break-after":
			f.BreakAfter, err = lookup(breakKinds, value, "分页方式")
		case "widths":
			err = columnWidths(t, value)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// columnWidths reads "30mm, 2, 1": lengths with a unit are fixed widths,
// bare numbers are relative weights of the remaining width.
func columnWidths(t *document.Table, value string) error {
	parts := strings.Split(value, ",")
	for i, p := range parts {
		if i >= len(t.Columns) {
			break
		}
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if w, err := strconv.ParseFloat(p, 64); err == nil {
			t.Columns[i].RelativeWidth = w
			continue
		}
		w, err := dimensionPt(p)
		if err != nil {
			return err
		}
		t.Columns[i].Width = w
	}
	return nil
}

func (b *builder) cell(cmd *Command, t *document.Table, cell *document.Cell) error {
	_, attrs := parseArgs(cmd.Args, false)
	for key, value := range attrs {
		var err error
		switch key {
		case "background":
			cell.Background, err = b.color(value)
		case "padding":
			var p float64
			if p, err = sizePt(value); err == nil {
				cell.Padding = &p
			}
		case "border":
			cell.Border.Width, err = sizePt(value)
			cell.Border.Color = t.Format.Border.Color
		}
		if err != nil {
			return b.errorf(cmd, "%s: %w", key, err)
		}
	}
	return b.content(cmd.Block, cell.Frame)
}

// generatedHost appends an empty block that will hold generated content.
func (b *builder) generatedHost(frame *document.Frame, g generator.Generator) {
	host := b.doc.NewBlock(document.BlockFormat{})
	host.CharFormat = document.CharFormat{}
	host.Generated = document.New()
	b.attach(frame, host)
	b.out.Indexes = append(b.out.Indexes, Index{Host: host, Generator: g})
}

// toc builds "toc [title "Contents"] [levels 3] [style Contents] [leader .]".
func (b *builder) toc(cmd *Command, frame *document.Frame) error {
	_, attrs := parseArgs(cmd.Args, false)
	g := &generator.TOC{
		Title:      attrs["title"],
		TitleStyle: attrs["title-style"],
		EntryStyle: attrs["style"],
	}
	var err error
	if v, ok := attrs["levels"]; ok {
		if g.MaxLevel, err = parseInt(v); err != nil {
			return b.errorf(cmd, "%w", err)
		}
	}
	if v, ok := attrs["indent"]; ok {
		if g.Indent, err = dimensionPt(v); err != nil {
			return b.errorf(cmd, "%w", err)
		}
	}
	if v := attrs["leader"]; v != "" {
		g.Leader = []rune(v)[0]
	}
	if v, ok := attrs["page-numbers"]; ok {
		show, err := parseBool(v)
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
		g.NoPageNumbers = !show
	}
	b.generatedHost(frame, g)
	return nil
}

// bibliography builds "bibliography [title "References"] [sort key|cited]
// [numbered yes]" with optional per-type templates in a block:
//
//	bibliography { book: "{author}: {title} ({year})" }
func (b *builder) bibliography(cmd *Command, frame *document.Frame) error {
	_, attrs := parseArgs(cmd.Args, false)
	g := &generator.Bibliography{
		Title:      attrs["title"],
		TitleStyle: attrs["title-style"],
		EntryStyle: attrs["style"],
		Templates:  map[string]string{},
	}
	switch attrs["sort"] {
	case "", "cited":
	case "key":
		g.Order = generator.OrderKey
	default:
		return b.errorf(cmd, "未知的排序方式：%s", attrs["sort"])
	}
	if v, ok := attrs["numbered"]; ok {
		n, err := parseBool(v)
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
		g.NumberCitations = n
	}
	for typ, tmpl := range blockAttrs(cmd.Block) {
		if typ == "default" {
			typ = ""
		}
		g.Templates[typ] = tmpl
	}
	b.generatedHost(frame, g)
	return nil
}
