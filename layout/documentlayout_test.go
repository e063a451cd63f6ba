package layout

import (
	"strings"
	"testing"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

// testFormat 是 200×200pt、四边 20pt 的小页面，内容区 160×160。
func testFormat() PageFormat {
	return PageFormat{Size: geom.Size{W: 200, H: 200}, Margins: document.Uniform(20)}
}

// newTestDoc 返回默认字号 10pt 的文档；每行高 12pt，每字宽 5pt。
func newTestDoc(paragraphs ...string) *document.Document {
	doc := document.New()
	doc.DefaultChar = document.CharFormat{Size: 10}
	for _, p := range paragraphs {
		doc.AddParagraph(nil, p, document.BlockFormat{})
	}
	return doc
}

func layoutDoc(t *testing.T, doc *document.Document, provider *PageProvider) *DocumentLayout {
	t.Helper()
	if err := doc.Styles.ApplyAll(doc); err != nil {
		t.Fatalf("应用样式失败: %v", err)
	}
	dl := New(doc, provider, Options{})
	if err := dl.Layout(); err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	return dl
}

func repeat(n int, text string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = text
	}
	return out
}

func TestLayoutWithoutProvider(t *testing.T) {
	dl := New(newTestDoc("a"), nil, Options{})
	if err := dl.Layout(); err != ErrNoProvider {
		t.Fatalf("缺少提供者时应返回 ErrNoProvider，实际 %v", err)
	}
}

func TestLayoutFlowsOntoNextPage(t *testing.T) {
	doc := newTestDoc(repeat(20, "line")...)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	pages := dl.Pages()
	if len(pages) != 2 {
		t.Fatalf("20 行应排成 2 页，实际 %d 页", len(pages))
	}
	blocks := doc.Blocks()
	if n, ok := dl.PageNumberOf(blocks[0].ID); !ok || n != 1 {
		t.Fatalf("首段应在第 1 页，实际 %d ok=%v", n, ok)
	}
	if n, ok := dl.PageNumberOf(blocks[19].ID); !ok || n != 2 {
		t.Fatalf("末段应在第 2 页，实际 %d ok=%v", n, ok)
	}
	first := dl.RootAreas()[0]
	if first.Kind() != KindRoot || first.Kind().String() != "root" {
		t.Fatalf("根区域类型错误: %v", first.Kind())
	}
	if first.Bottom() != 180 {
		t.Fatalf("根区域应拉伸到栏底 180，实际 %g", first.Bottom())
	}
	if first.EndOfArea().Equal(first.StartOfArea()) {
		t.Fatalf("第一页应推进游标")
	}
}

func TestSplitParagraphResumesOnNextPage(t *testing.T) {
	// 32 字一行，40 行的段落必须跨页
	doc := newTestDoc(strings.Repeat("abcdefghijklmnopqrstuvwxyz12345 ", 40))
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))
	roots := dl.RootAreas()
	if len(roots) < 3 {
		t.Fatalf("长段落应至少占 3 页，实际 %d", len(roots))
	}
	next := roots[0].NextStartOfArea()
	if next.Index != 0 || next.LineTextStart <= 0 {
		t.Fatalf("下一区域应从同一段落中间继续: %+v", next)
	}
	if !roots[1].StartOfArea().Equal(next) {
		t.Fatalf("第二个根区域应从第一个的结束点开始")
	}
}

func TestBreakBeforeAndMasterPage(t *testing.T) {
	doc := newTestDoc("one", "two", "three")
	blocks := doc.Blocks()
	blocks[1].Format.BreakBefore = document.BreakPage
	blocks[2].Format.MasterPage = "Wide"

	provider := NewPageProvider(testFormat())
	wide := testFormat()
	wide.Size = geom.Size{W: 300, H: 200}
	provider.Masters = map[string]PageFormat{"Wide": wide}
	dl := layoutDoc(t, doc, provider)

	pages := dl.Pages()
	if len(pages) != 3 {
		t.Fatalf("分页与主页面切换应得到 3 页，实际 %d", len(pages))
	}
	if pages[2].Master != "Wide" || pages[2].Size.W != 300 {
		t.Fatalf("第三页应使用 Wide 主页面: %+v", pages[2])
	}
	if n, _ := dl.PageNumberOf(blocks[1].ID); n != 2 {
		t.Fatalf("分页前的段落应在第 2 页，实际 %d", n)
	}
}

func TestKeepWithNextMovesHeading(t *testing.T) {
	// 标题恰好排在第一页最后一行
	paras := repeat(12, "filler")
	paras = append(paras, "heading", "body")
	doc := newTestDoc(paras...)
	blocks := doc.Blocks()
	heading := blocks[12]
	heading.Format.KeepWithNext = true
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))
	hp, _ := dl.PageNumberOf(heading.ID)
	bp, _ := dl.PageNumberOf(blocks[13].ID)
	if hp != 2 || bp != 2 {
		t.Fatalf("与下段同页的标题应随正文移到下一页: heading=%d body=%d", hp, bp)
	}
}

func TestColumnsFillBeforeNewPage(t *testing.T) {
	f := testFormat()
	f.Columns = 2
	f.ColumnGap = 10
	doc := newTestDoc(repeat(20, "col")...)
	dl := layoutDoc(t, doc, NewPageProvider(f))
	roots := dl.RootAreas()
	if len(roots) != 2 || len(dl.Pages()) != 1 {
		t.Fatalf("两栏页面应在一页内排完: areas=%d pages=%d", len(roots), len(dl.Pages()))
	}
	if roots[1].Page().Column != 1 || roots[1].Left() != 105 {
		t.Fatalf("第二栏位置错误: column=%d left=%g", roots[1].Page().Column, roots[1].Left())
	}
}

func TestMaxPagesStopsLayout(t *testing.T) {
	doc := newTestDoc(repeat(60, "x")...)
	provider := NewPageProvider(testFormat())
	provider.MaxPages = 2
	dl := layoutDoc(t, doc, provider)
	if n := len(dl.Pages()); n != 2 {
		t.Fatalf("MaxPages=2 时应只排 2 页，实际 %d", n)
	}
}

func TestDocumentChangedRelayout(t *testing.T) {
	doc := newTestDoc(repeat(20, "line")...)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	finished, dirty := 0, 0
	dl.OnLayoutFinished(func() { finished++ })
	dl.OnLayoutIsDirty(func() { dirty++ })

	if ran, err := dl.MaybeLayout(); err != nil || ran {
		t.Fatalf("未修改时不应重新排版: ran=%v err=%v", ran, err)
	}

	last := doc.Blocks()[19]
	pos, removed, added := doc.SetBlockText(last, strings.Repeat("word ", 100))
	dl.DocumentChanged(pos, removed, added)
	if dirty != 1 {
		t.Fatalf("修改后应通知一次脏标记，实际 %d", dirty)
	}
	ran, err := dl.MaybeLayout()
	if err != nil || !ran {
		t.Fatalf("修改后应重新排版: ran=%v err=%v", ran, err)
	}
	if finished != 1 {
		t.Fatalf("排版完成回调应触发一次，实际 %d", finished)
	}
	if n := len(dl.Pages()); n < 3 {
		t.Fatalf("加长末段后应至少 3 页，实际 %d", n)
	}
	if !dl.RootAreas()[0].StartOfArea().Equal(NewFrameIterator(doc.Root)) {
		t.Fatalf("第一页起点不应改变")
	}
}

func TestRootAreaForPosition(t *testing.T) {
	doc := newTestDoc(repeat(20, "line")...)
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))
	last := doc.Blocks()[19]
	a, ok := dl.RootAreaForPosition(last.Position() + 1)
	if !ok || a.Page().Number != 2 {
		t.Fatalf("末段位置应落在第 2 页")
	}
}

func TestPageExclusionsPushText(t *testing.T) {
	doc := newTestDoc("first")
	provider := NewPageProvider(testFormat())
	provider.Exclusions = map[int][]geom.Rect{1: {{X: 0, Y: 0, W: 200, H: 60}}}
	dl := layoutDoc(t, doc, provider)
	lines := dl.RootAreas()[0].blocks[0].lines()
	if len(lines) == 0 || lines[0].Y < 60 {
		t.Fatalf("排除区域下方才可放置文字，实际 y=%v", lines)
	}
}
