package layout

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/textflow/document"
)

func TestColumnBreakMovesToNextColumn(t *testing.T) {
	cases := []struct {
		name    string
		columns int
		page    int
		column  int
	}{
		{name: "two columns", columns: 2, page: 1, column: 1},
		// 单栏页面上的分栏等同于分页
		{name: "one column", columns: 1, page: 2, column: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := testFormat()
			f.Columns = tc.columns
			f.ColumnGap = 10
			doc := newTestDoc("one", "two")
			two := doc.Blocks()[1]
			two.Format.BreakBefore = document.BreakColumn
			dl := layoutDoc(t, doc, NewPageProvider(f))

			roots := dl.RootAreas()
			if len(roots) != 2 {
				t.Fatalf("分栏符应开始新的根区域，实际 %d 个", len(roots))
			}
			if !roots[0].AcceptsColumnBreak() {
				t.Fatalf("根区域应接受分栏符")
			}
			second := roots[1]
			if len(second.blocks) != 1 || second.blocks[0].block != two {
				t.Fatalf("分栏后的段落应排在第二个根区域")
			}
			if p := second.Page(); p.Number != tc.page || p.Column != tc.column {
				t.Fatalf("第二个根区域位置错误: page=%d column=%d", p.Number, p.Column)
			}
		})
	}
}

func TestKeepTogetherAndOrphans(t *testing.T) {
	cases := []struct {
		name   string
		format document.BlockFormat
		// placed 是第 1 页上留下的行数
		placed int
	}{
		{name: "keep together", format: document.BlockFormat{KeepTogether: true}, placed: 0},
		{name: "orphans 3", format: document.BlockFormat{OrphanThreshold: 3}, placed: 0},
		{name: "orphans 2", format: document.BlockFormat{OrphanThreshold: 2}, placed: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := newTestDoc(repeat(11, "filler")...)
			// 4 行的段落，第 1 页只剩 2 行
			p := wordsBlock(doc, words("word", 12), 0, nil)
			p.Format = tc.format
			doc.Root.Append(p)
			dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

			placed := 0
			for _, bl := range dl.RootAreas()[0].blocks {
				if bl.block == p {
					placed = len(bl.lines())
				}
			}
			if placed != tc.placed {
				t.Fatalf("第 1 页应留下 %d 行，实际 %d", tc.placed, placed)
			}
			last := dl.RootAreas()[1]
			if n := len(last.blocks[0].lines()); n != 4-tc.placed {
				t.Fatalf("第 2 页应续排 %d 行，实际 %d", 4-tc.placed, n)
			}
		})
	}
}

func TestSoftPageBreakEndsPage(t *testing.T) {
	doc := newTestDoc("first")
	doc.Root.Append(doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "aaa", Format: doc.DefaultChar},
		document.Fragment{SoftPageBreak: true, Format: doc.DefaultChar},
		document.Fragment{Text: "bbb", Format: doc.DefaultChar},
	))
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	res := dl.Result(nil)
	if len(res.Pages) != 2 {
		t.Fatalf("软分页符应结束第 1 页，实际 %d 页", len(res.Pages))
	}
	p1, p2 := textContents(res.Pages[0]), textContents(res.Pages[1])
	if !p1["aaa"] || p1["bbb"] || !p2["bbb"] {
		t.Fatalf("软分页符前后的文字应分在两页: %v / %v", p1, p2)
	}
	if start := dl.RootAreas()[1].StartOfArea(); start.Index != 1 || start.LineTextStart != 4 {
		t.Fatalf("第 2 页应从软分页符之后继续: %+v", start)
	}
}

func TestAnchoringSoftBreakEndsArea(t *testing.T) {
	doc := newTestDoc("first", "abcdefgh")
	if err := doc.Styles.ApplyAll(doc); err != nil {
		t.Fatalf("应用样式失败: %v", err)
	}
	dl := New(doc, NewPageProvider(testFormat()), Options{})
	b := doc.Blocks()[1]
	// 锚定在第 3 个字符上的对象没有放下
	dl.softBreakAt = b.Position() + 3

	root := NewRootArea(dl, Page{Number: 1})
	root.SetReferenceRect(20, 180, 20, 180)
	cursor := NewFrameIterator(doc.Root)
	if root.layoutRoot(cursor) {
		t.Fatalf("锚点软分页应使区域提前结束")
	}
	if cursor.Index != 1 || cursor.LineTextStart != 3 {
		t.Fatalf("下一区域应从锚点处继续: index=%d start=%d", cursor.Index, cursor.LineTextStart)
	}
	lines := root.blocks[1].lines()
	if len(lines) != 1 || lines[0].End != 3 {
		t.Fatalf("锚点前的文字应单独成行: %d 行", len(lines))
	}
}

func TestDropCapsSpanLines(t *testing.T) {
	doc := newTestDoc("Dropped " + strings.Repeat("word ", 30))
	doc.Blocks()[0].Format.DropCaps = document.DropCaps{Lines: 2}
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	bl := dl.RootAreas()[0].blocks[0]
	if bl.dropCaps != 7 {
		t.Fatalf("首字下沉应覆盖第一个单词，实际 %d 个字符", bl.dropCaps)
	}
	lines := bl.lines()
	if len(lines) < 4 {
		t.Fatalf("段落行数过少: %d", len(lines))
	}
	// 两行高 22pt 的下沉字号收敛到 27.5pt，单词宽 7×13.75
	if lines[1].Y != lines[0].Y || math.Abs(lines[1].X-(20+7*13.75)) > 0.01 {
		t.Fatalf("第二行应与下沉字母并排: y=%g x=%g", lines[1].Y, lines[1].X)
	}
	if lines[2].X != lines[1].X {
		t.Fatalf("下沉跨两行时第三行也应右移: x=%g", lines[2].X)
	}
	if lines[3].X != 20 || lines[3].Y < lines[0].Y+27.5 {
		t.Fatalf("下沉字母之后应回到左边并排在其下方: x=%g y=%g", lines[3].X, lines[3].Y)
	}
}

func TestIdenticalBordersMerge(t *testing.T) {
	thin := document.BorderLine{Width: 1}
	box := document.Borders{Top: thin, Left: thin, Bottom: thin, Right: thin}
	doc := newTestDoc("a", "b", "c")
	blocks := doc.Blocks()
	blocks[0].Format.Borders = box
	blocks[1].Format.Borders = box
	thick := box
	thick.Top.Width = 2
	blocks[2].Format.Borders = thick
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	bls := dl.RootAreas()[0].blocks
	if bls[0].mergedBorder || !bls[1].mergedBorder || bls[2].mergedBorder {
		t.Fatalf("只有边框相同的相邻段落合并: %v %v %v", bls[0].mergedBorder, bls[1].mergedBorder, bls[2].mergedBorder)
	}
	a, b, c := bls[0].lines()[0].Y, bls[1].lines()[0].Y, bls[2].lines()[0].Y
	if b != a+12 {
		t.Fatalf("合并的段落之间不应有边框: a=%g b=%g", a, b)
	}
	// 上一段的下边框 1pt 加本段的上边框 2pt
	if c != b+12+3 {
		t.Fatalf("不同边框的段落应各自描边: b=%g c=%g", b, c)
	}
}

func TestTableHeaderRepeatsOnNextPage(t *testing.T) {
	doc := newTestDoc()
	tbl := document.NewTable(20, 1)
	tbl.Format.HeaderRows = 1
	doc.AddParagraph(tbl.Cell(0, 0).Frame, "head", document.BlockFormat{})
	for r := 1; r < 20; r++ {
		doc.AddParagraph(tbl.Cell(r, 0).Frame, fmt.Sprintf("r%02d", r), document.BlockFormat{})
	}
	doc.Root.Append(tbl)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	res := dl.Result(nil)
	if len(res.Pages) < 2 {
		t.Fatalf("20 行的表格应跨页，实际 %d 页", len(res.Pages))
	}
	page := res.Pages[len(res.Pages)-1]
	headY, bodyY := -1.0, math.MaxFloat64
	for _, tr := range page.Texts {
		if tr.Content == "head" {
			headY = tr.Y
		} else {
			bodyY = math.Min(bodyY, tr.Y)
		}
	}
	if headY < 0 {
		t.Fatalf("第 2 页应重复表头: %v", textContents(page))
	}
	if headY >= bodyY {
		t.Fatalf("重复的表头应在表体上方: head=%g body=%g", headY, bodyY)
	}
	if got := textContents(page); !got["r19"] || textContents(res.Pages[0])["r19"] {
		t.Fatalf("末行应排在最后一页: %v", got)
	}
}

func TestNestedLayoutRestarts(t *testing.T) {
	doc := newTestDoc("a", "b")
	if err := doc.Styles.ApplyAll(doc); err != nil {
		t.Fatalf("应用样式失败: %v", err)
	}
	dl := New(doc, NewPageProvider(testFormat()), Options{})
	areas, finished := 0, 0
	dl.OnAreaLaidOut(func(a *Area) {
		areas++
		if areas == 1 {
			// 重排时不复用这一区域
			a.SetDirty()
			if err := dl.Layout(); err != nil {
				t.Fatalf("嵌套排版不应报错: %v", err)
			}
		}
	})
	dl.OnLayoutFinished(func() { finished++ })
	if err := dl.Layout(); err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if areas != 2 {
		t.Fatalf("嵌套调用应使整趟排版重来一次，回调 %d 次", areas)
	}
	if finished != 1 || len(dl.Pages()) != 1 {
		t.Fatalf("重排后应只完成一次: finished=%d pages=%d", finished, len(dl.Pages()))
	}
}

func TestAreasPartitionTheFlow(t *testing.T) {
	doc := newTestDoc(repeat(5, "filler")...)
	doc.Root.Append(wordsBlock(doc, words("long", 60), 0, nil))
	tbl := document.NewTable(20, 2)
	for r := 0; r < 20; r++ {
		for c := 0; c < 2; c++ {
			doc.AddParagraph(tbl.Cell(r, c).Frame, fmt.Sprintf("c%d-%d", r, c), document.BlockFormat{})
		}
	}
	doc.Root.Append(tbl)
	doc.Root.Append(wordsBlock(doc, words("tail", 30), 0, nil))
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	roots := dl.RootAreas()
	if len(roots) < 4 {
		t.Fatalf("文档应跨多页，实际 %d 页", len(roots))
	}
	if !roots[0].StartOfArea().Equal(NewFrameIterator(doc.Root)) {
		t.Fatalf("第一个区域应从文档开头开始")
	}
	splitParagraph, splitTable := false, false
	for i := 0; i+1 < len(roots); i++ {
		end, next := roots[i].EndOfArea(), roots[i+1].StartOfArea()
		if !end.Equal(next) {
			t.Fatalf("区域 %d 的结束位置应等于下一区域的开始位置: %+v / %+v", i, end, next)
		}
		splitParagraph = splitParagraph || next.LineTextStart > 0
		splitTable = splitTable || next.table != nil
	}
	if !roots[len(roots)-1].EndOfArea().AtEnd() {
		t.Fatalf("最后一个区域应排到文档末尾")
	}
	if !splitParagraph || !splitTable {
		t.Fatalf("应同时出现跨页的段落与表格: paragraph=%v table=%v", splitParagraph, splitTable)
	}
}

func TestShrinkToFitBoxNarrows(t *testing.T) {
	cases := []struct {
		text  string
		width float64
	}{
		{text: "abc def", width: 35},
		// 超过 100pt 时按 100pt 折行，再收窄到最宽的一行
		{text: "aaaa bbbb cccc dddd eeee ffff gggg", width: 95},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			doc := newTestDoc()
			box := &document.Frame{Kind: document.FrameBox, ShrinkToFit: 100}
			doc.AddParagraph(box, tc.text, document.BlockFormat{})
			doc.Root.Append(box)
			doc.AddParagraph(nil, "after", document.BlockFormat{})
			dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

			root := dl.RootAreas()[0]
			if len(root.generated) != 1 {
				t.Fatalf("嵌套帧应排成一个子区域")
			}
			child := root.generated[0].area
			if w := child.Right() - child.Left(); w != tc.width || child.NeededWidth() != tc.width {
				t.Fatalf("子区域应收窄到 %g，实际 %g (needed %g)", tc.width, w, child.NeededWidth())
			}
			for _, l := range child.blocks[0].lines() {
				if l.NaturalTextWidth() > tc.width {
					t.Fatalf("收窄后的行不应超出区域: %g", l.NaturalTextWidth())
				}
			}
			if n, _ := dl.PageNumberOf(doc.Blocks()[len(doc.Blocks())-1].ID); n != 1 {
				t.Fatalf("后续段落应排在同一页")
			}
		})
	}
}
