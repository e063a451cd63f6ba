package layout

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

func textContents(page ResultPage) map[string]bool {
	out := map[string]bool{}
	for _, t := range page.Texts {
		out[t.Content] = true
	}
	return out
}

func TestFloatingAnchorPushesLines(t *testing.T) {
	doc := newTestDoc()
	fig := &document.Anchor{
		ID: "fig", Type: document.AnchorParagraph,
		HPos: document.HLeft, Size: geom.Size{W: 60, H: 30},
		Wrap: document.WrapBoth,
	}
	b := doc.NewBlock(document.BlockFormat{},
		document.Fragment{Anchor: fig},
		document.Fragment{Text: "aaaa bbbb cccc dddd eeee", Format: doc.DefaultChar},
	)
	doc.Root.Append(b)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	r, page, ok := dl.AnchorRect("fig")
	if !ok || page.Number != 1 {
		t.Fatalf("浮动对象应放在第 1 页: ok=%v page=%d", ok, page.Number)
	}
	if r.X != 20 || r.Y != 20 || r.W != 60 || r.H != 30 {
		t.Fatalf("浮动对象位置错误: %+v", r)
	}
	lines := dl.RootAreas()[0].blocks[0].lines()
	if len(lines) == 0 || lines[0].X < 80 {
		t.Fatalf("首行应绕排到对象右侧: %+v", lines)
	}
	objects := dl.Result(nil).Pages[0].Objects
	if len(objects) != 1 || objects[0].ID != "fig" {
		t.Fatalf("结果中应有一个对象框: %+v", objects)
	}
}

func TestInlineAnchorSitsOnBaseline(t *testing.T) {
	doc := newTestDoc()
	icon := &document.Anchor{ID: "icon", Type: document.AnchorAsChar, Size: geom.Size{W: 20, H: 15}}
	b := doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "ab", Format: doc.DefaultChar},
		document.Fragment{Anchor: icon},
		document.Fragment{Text: "cd", Format: doc.DefaultChar},
	)
	doc.Root.Append(b)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	r, _, ok := dl.AnchorRect("icon")
	if !ok {
		t.Fatalf("内联对象未放置")
	}
	line := dl.RootAreas()[0].blocks[0].lines()[0]
	if math.Abs(r.Bottom()-line.Baseline()) > 1e-9 || r.X != 30 {
		t.Fatalf("内联对象应立在基线上: rect=%+v baseline=%g", r, line.Baseline())
	}
	res := dl.HitTest(geom.Point{X: 35, Y: 25}, 0)
	if res.Anchor != icon {
		t.Fatalf("点击对象区域应命中内联对象: %+v", res)
	}
}

func TestPageAnchorOnFixedPage(t *testing.T) {
	doc := newTestDoc(repeat(20, "line")...)
	logo := &document.Anchor{
		ID: "logo", Type: document.AnchorPage, Page: 2,
		HPos: document.HFromLeft, HRel: document.HRelPage,
		VPos: document.VFromTop, VRel: document.VRelPage,
		Offset: geom.Point{X: 10, Y: 10}, Size: geom.Size{W: 30, H: 30},
		Wrap: document.WrapRunThrough,
	}
	first := doc.Blocks()[0]
	first.Fragments = append(first.Fragments, document.Fragment{Anchor: logo})
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	r, page, ok := dl.AnchorRect("logo")
	if !ok || page.Number != 2 {
		t.Fatalf("页面锚定对象应在第 2 页: ok=%v page=%d", ok, page.Number)
	}
	if r.X != 10 || r.Y != 10 {
		t.Fatalf("页面锚定对象位置错误: %+v", r)
	}
}

// newNote 返回带一段正文的脚注。
func newNote(doc *document.Document, id, body string) *document.Note {
	n := &document.Note{ID: id, Class: document.FootNote, Frame: doc.NewNoteFrame()}
	doc.AddParagraph(n.Frame, body, document.BlockFormat{})
	return n
}

func TestFootNotesNumberedAndSeparated(t *testing.T) {
	doc := newTestDoc()
	b := doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "a", Format: doc.DefaultChar},
		document.Fragment{Note: newNote(doc, "n1", "note one"), Format: doc.DefaultChar},
		document.Fragment{Text: " b", Format: doc.DefaultChar},
		document.Fragment{Note: newNote(doc, "n2", "note two"), Format: doc.DefaultChar},
	)
	doc.Root.Append(b)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	page := dl.Result(nil).Pages[0]
	got := textContents(page)
	for _, want := range []string{"1", "2", "1 ", "2 ", "note one", "note two"} {
		if !got[want] {
			t.Fatalf("第 1 页缺少文字 %q: %v", want, got)
		}
	}
	if len(page.Lines) == 0 {
		t.Fatalf("脚注区上方应绘制分隔线")
	}
	var body, note float64
	for _, tr := range page.Texts {
		switch tr.Content {
		case "a":
			body = tr.Y
		case "note one":
			note = tr.Y
		}
	}
	if note <= body {
		t.Fatalf("脚注应排在正文下方: body=%g note=%g", body, note)
	}
}

func TestFootNoteNumberingScope(t *testing.T) {
	build := func(scope document.NumberingScope) *DocumentLayout {
		doc := newTestDoc()
		doc.Notes.FootNotes.Scope = scope
		doc.Root.Append(doc.NewBlock(document.BlockFormat{},
			document.Fragment{Text: "a", Format: doc.DefaultChar},
			document.Fragment{Note: newNote(doc, "n1", "first"), Format: doc.DefaultChar},
		))
		for _, p := range repeat(13, "filler") {
			doc.AddParagraph(nil, p, document.BlockFormat{})
		}
		doc.Root.Append(doc.NewBlock(document.BlockFormat{},
			document.Fragment{Text: "b", Format: doc.DefaultChar},
			document.Fragment{Note: newNote(doc, "n2", "second"), Format: doc.DefaultChar},
		))
		return layoutDoc(t, doc, NewPageProvider(testFormat()))
	}

	res := build(document.BeginAtDocument).Result(nil)
	if len(res.Pages) != 2 {
		t.Fatalf("应排成 2 页，实际 %d", len(res.Pages))
	}
	if got := textContents(res.Pages[1]); !got["2"] || !got["2 "] {
		t.Fatalf("按文档编号时第二个脚注应为 2: %v", got)
	}

	res = build(document.BeginAtPage).Result(nil)
	if got := textContents(res.Pages[1]); !got["1 "] || got["2 "] {
		t.Fatalf("按页编号时第 2 页脚注应从 1 开始: %v", got)
	}
}

func TestTableCellsLaidOutAndHit(t *testing.T) {
	doc := newTestDoc("before")
	tbl := document.NewTable(2, 2)
	tbl.Format.Border = document.BorderLine{Width: 1}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			doc.AddParagraph(tbl.Cell(r, c).Frame, string(rune('a'+r*2+c)), document.BlockFormat{})
		}
	}
	doc.Root.Append(tbl)
	doc.AddParagraph(nil, "after", document.BlockFormat{})
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	cell := tbl.Cell(0, 1)
	cellBlock := cell.Frame.Blocks()[0]
	if n, ok := dl.PageNumberOf(cellBlock.ID); !ok || n != 1 {
		t.Fatalf("单元格段落应在第 1 页: %d ok=%v", n, ok)
	}

	page := dl.Result(nil).Pages[0]
	strokes := 0
	for _, r := range page.Rects {
		if r.StrokeWidth > 0 {
			strokes++
		}
	}
	if strokes != 4 {
		t.Fatalf("每个单元格应描一个边框，实际 %d", strokes)
	}

	root := dl.RootAreas()[0]
	if len(root.tables) != 1 {
		t.Fatalf("根区域应包含一个表格区域")
	}
	rect := root.tables[0].cellRect(cell)
	if rect.X != 100 || rect.Right() != 180 {
		t.Fatalf("第二列应平分内容宽度: %+v", rect)
	}
	center := geom.Point{X: rect.X + rect.W/2, Y: rect.Y + rect.H/2}
	res := dl.HitTest(center, 0)
	if res.Table != tbl || res.Cell != cell || res.Block != cellBlock {
		t.Fatalf("点击应命中单元格 (0,1): %+v", res)
	}
}

func TestListLabelsPainted(t *testing.T) {
	doc := newTestDoc()
	doc.Lists["Steps"] = document.NewListStyle("Steps", document.FormatDecimal)
	for _, text := range []string{"one", "two"} {
		b := doc.AddParagraph(nil, text, document.BlockFormat{})
		b.List = &document.ListItem{List: "Steps", Level: 1}
	}
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))
	got := textContents(dl.Result(nil).Pages[0])
	if !got["1."] || !got["2."] {
		t.Fatalf("列表标签应为 1. 与 2.: %v", got)
	}
	if d, ok := dl.Lists().Counter(doc.Blocks()[1]); !ok || d.Index != 2 {
		t.Fatalf("第二项计数错误: %+v", d)
	}
}

func TestHitTestOffset(t *testing.T) {
	doc := newTestDoc("hello")
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))
	res := dl.HitTest(geom.Point{X: 31, Y: 25}, 0)
	if !res.Hit() || res.Offset != 2 || res.Position != 2 {
		t.Fatalf("x=31 应命中偏移 2: %+v", res)
	}
	if miss := dl.HitTest(geom.Point{X: 100, Y: 150}, 0); miss.Hit() {
		t.Fatalf("空白处不应命中文字: %+v", miss)
	}
}

func TestResultAndDebugJSON(t *testing.T) {
	doc := newTestDoc(repeat(20, "line")...)
	doc.Meta.Title = "Debug"
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	plain := dl.Result(nil)
	if len(plain.Pages) != 2 || plain.Meta.Title != "Debug" {
		t.Fatalf("结果页数或元信息错误: pages=%d title=%q", len(plain.Pages), plain.Meta.Title)
	}
	if math.Abs(plain.Pages[0].Width-200*PtToMm) > 1e-9 {
		t.Fatalf("页面宽度应换算为毫米: %g", plain.Pages[0].Width)
	}
	debug := dl.ResultWith(nil, PaintContext{ShowAreas: true})
	if len(debug.Pages[0].Rects) <= len(plain.Pages[0].Rects) {
		t.Fatalf("ShowAreas 应额外描出区域边框")
	}

	var buf bytes.Buffer
	if err := EncodeDebugJSON(&buf, plain); err != nil {
		t.Fatalf("输出调试 JSON 失败: %v", err)
	}
	var decoded struct {
		Pages []struct {
			Texts []TextRun `json:"texts"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("调试 JSON 无法解析: %v", err)
	}
	if len(decoded.Pages) != 2 || len(decoded.Pages[0].Texts) == 0 {
		t.Fatalf("调试 JSON 内容不完整: %+v", decoded)
	}
}

func TestPaperSizeAndMargins(t *testing.T) {
	if s, ok := PaperSize(" a4 "); !ok || s != A4 {
		t.Fatalf("a4 应解析为 A4: %v %v", s, ok)
	}
	if _, ok := PaperSize("x"); ok {
		t.Fatalf("未知纸张不应解析成功")
	}
	fallback := document.Uniform(7)
	cases := []struct {
		vals []float64
		want document.Insets
	}{
		{[]float64{5}, document.Uniform(5)},
		{[]float64{1, 2}, document.Insets{Top: 1, Right: 2, Bottom: 1, Left: 2}},
		{[]float64{1, 2, 3}, document.Insets{Top: 1, Right: 2, Bottom: 3, Left: 2}},
		{[]float64{1, 2, 3, 4}, document.Insets{Top: 1, Right: 2, Bottom: 3, Left: 4}},
		{nil, fallback},
	}
	for _, c := range cases {
		if got := MarginShorthand(c.vals, fallback); got != c.want {
			t.Fatalf("边距简写 %v 错误: %+v", c.vals, got)
		}
	}

	f := testFormat()
	f.Columns = 3
	f.ColumnGap = 5
	col := f.Column(2)
	if math.Abs(col.W-50) > 1e-9 || math.Abs(col.X-130) > 1e-9 {
		t.Fatalf("第三栏几何错误: %+v", col)
	}
}

func TestFrameIteratorClone(t *testing.T) {
	doc := newTestDoc("a", "b")
	doc.Reindex()
	it := NewFrameIterator(doc.Root)
	c := it.Clone()
	c.Next()
	if it.Equal(c) || it.Index != 0 {
		t.Fatalf("克隆后的迭代器应相互独立")
	}
	if c.Position() != doc.Blocks()[1].Position() {
		t.Fatalf("迭代器位置错误: %d", c.Position())
	}
	it.Next()
	if !it.Equal(c) {
		t.Fatalf("前进到同一项的迭代器应相等")
	}
	c.Next()
	if !c.AtEnd() {
		t.Fatalf("越过末项后应到达结尾")
	}
}

func TestLeftAnchorsStackSideBySide(t *testing.T) {
	doc := newTestDoc()
	newFig := func(id string) *document.Anchor {
		return &document.Anchor{
			ID: id, Type: document.AnchorParagraph,
			HPos: document.HLeft, Size: geom.Size{W: 40, H: 30},
			Wrap: document.WrapBoth,
		}
	}
	a, b := newFig("a"), newFig("b")
	doc.Root.Append(doc.NewBlock(document.BlockFormat{},
		document.Fragment{Anchor: a},
		document.Fragment{Anchor: b},
		document.Fragment{Text: "aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii jjjj kkkk llll mmmm", Format: doc.DefaultChar},
	))
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	ra, _, okA := dl.AnchorRect("a")
	rb, _, okB := dl.AnchorRect("b")
	if !okA || !okB {
		t.Fatalf("两个对象都应放置: a=%v b=%v", okA, okB)
	}
	if ra.X != 20 || rb.X != 60 || rb.Y != ra.Y {
		t.Fatalf("后一个左对齐对象应排在前一个右侧: a=%+v b=%+v", ra, rb)
	}
	if ra.Intersects(rb) {
		t.Fatalf("对象不应重叠: a=%+v b=%+v", ra, rb)
	}

	band := ra.Bottom()
	fullWidth := false
	for _, l := range dl.RootAreas()[0].blocks[0].lines() {
		r := l.TextRect()
		if l.Y < band && r.X < rb.Right() {
			t.Fatalf("与对象同高的行应绕到对象右侧: line=%+v", r)
		}
		if l.Y >= band && l.X == 20 {
			fullWidth = true
		}
	}
	if !fullWidth {
		t.Fatalf("对象下方的行应恢复全宽")
	}
}

func TestVirginPageKeepsOversizedLine(t *testing.T) {
	doc := newTestDoc()
	big := doc.NewBlock(document.BlockFormat{}, document.Fragment{Text: "X", Format: document.CharFormat{Size: 200}})
	doc.Root.Append(big)
	doc.AddParagraph(nil, "after", document.BlockFormat{})
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	if n, ok := dl.PageNumberOf(big.ID); !ok || n != 1 {
		t.Fatalf("超高的行在空白页上仍应排出: page=%d ok=%v", n, ok)
	}
	if lines := dl.RootAreas()[0].blocks[0].lines(); len(lines) != 1 {
		t.Fatalf("第一页应有一行，实际 %d", len(lines))
	}
	if n, _ := dl.PageNumberOf(doc.Blocks()[1].ID); n != 2 {
		t.Fatalf("后续段落应移到第 2 页，实际 %d", n)
	}
}
