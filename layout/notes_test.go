package layout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ByLCY/textflow/document"
)

// countText 统计页面上包含 sub 的文字段数。
func countText(page ResultPage, sub string) int {
	n := 0
	for _, t := range page.Texts {
		if strings.Contains(t.Content, sub) {
			n++
		}
	}
	return n
}

// words 返回 n 个 9 字符宽的单词；160pt 的行恰好排 3 个。
func words(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%0*d", prefix, 9-len(prefix), i+1)
	}
	return out
}

// wordsBlock 返回由单词组成的段落，note 插在第 at 个单词之后。
func wordsBlock(doc *document.Document, ws []string, at int, note *document.Note) *document.Block {
	f := doc.DefaultChar
	if note == nil {
		return doc.NewBlock(document.BlockFormat{}, document.Fragment{Text: strings.Join(ws, " "), Format: f})
	}
	return doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: strings.Join(ws[:at], " "), Format: f},
		document.Fragment{Note: note, Format: f},
		document.Fragment{Text: " " + strings.Join(ws[at:], " "), Format: f},
	)
}

func TestKeepWithNextTakesFootNoteAlong(t *testing.T) {
	// 11 行时脚注整段放得下，12 行时只放得下预留的分隔空间
	for _, fill := range []int{11, 12} {
		t.Run(fmt.Sprint(fill), func(t *testing.T) {
			doc := newTestDoc(repeat(fill, "filler")...)
			heading := doc.NewBlock(document.BlockFormat{KeepWithNext: true},
				document.Fragment{Text: "heading", Format: doc.DefaultChar},
				document.Fragment{Note: newNote(doc, "n1", "noteone"), Format: doc.DefaultChar},
			)
			doc.Root.Append(heading)
			doc.AddParagraph(nil, "body", document.BlockFormat{})
			dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

			if n, _ := dl.PageNumberOf(heading.ID); n != 2 {
				t.Fatalf("标题应随正文移到第 2 页，实际 %d", n)
			}
			first := dl.RootAreas()[0]
			if first.FootNoteCursorToNext() != nil || len(first.footNoteAreas) != 0 {
				t.Fatalf("第 1 页不应保留已移走标题的脚注: areas=%d", len(first.footNoteAreas))
			}
			res := dl.Result(nil)
			if c := countText(res.Pages[0], "noteone"); c != 0 {
				t.Fatalf("第 1 页不应出现脚注正文，实际 %d 次", c)
			}
			if c := countText(res.Pages[1], "noteone"); c != 1 {
				t.Fatalf("第 2 页脚注正文应恰好出现一次，实际 %d 次", c)
			}
			if got := textContents(res.Pages[1]); !got["1 "] || got["2 "] {
				t.Fatalf("脚注编号应为 1: %v", got)
			}
		})
	}
}

func TestWidowsTakeFootNoteAlong(t *testing.T) {
	cases := []struct {
		name string
		body string
		last string
	}{
		{name: "whole", body: "noteone", last: "noteone"},
		// 三行脚注在第 1 页只放得下两行
		{name: "partial", body: strings.Join(words("alpha", 9), " "), last: "alpha0009"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := newTestDoc(repeat(6, "filler")...)
			// 7 行的段落，脚注在第 5 行
			p := wordsBlock(doc, words("word", 21), 13, newNote(doc, "n1", tc.body))
			p.Format.WidowThreshold = 3
			doc.Root.Append(p)
			dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

			roots := dl.RootAreas()
			if len(roots) != 2 {
				t.Fatalf("应排成 2 页，实际 %d", len(roots))
			}
			if roots[0].FootNoteCursorToNext() != nil {
				t.Fatalf("移走的行不应把脚注续排到下一页")
			}
			second := roots[1]
			if len(second.blocks) != 1 || len(second.blocks[0].lines()) != 3 {
				t.Fatalf("第 2 页应至少保留 3 行孤行: %d 个段落", len(second.blocks))
			}
			if len(second.footNoteAreas) != 1 || second.footNoteAreas[0].continued {
				t.Fatalf("第 2 页应只有一个完整脚注区: %d", len(second.footNoteAreas))
			}
			res := dl.Result(nil)
			if c := countText(res.Pages[0], tc.last); c != 0 {
				t.Fatalf("第 1 页不应出现脚注正文，实际 %d 次", c)
			}
			if c := countText(res.Pages[1], tc.last); c != 1 {
				t.Fatalf("第 2 页脚注正文应恰好出现一次，实际 %d 次", c)
			}
		})
	}
}

func TestFootNoteNumberKeptWhenLineMoves(t *testing.T) {
	doc := newTestDoc(repeat(13, "filler")...)
	doc.Notes.FootNotes.Scope = document.BeginAtDocument
	doc.Root.Append(doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "b", Format: doc.DefaultChar},
		document.Fragment{Note: newNote(doc, "n1", "only"), Format: doc.DefaultChar},
	))
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	if n := dl.RootAreas()[0].FootNoteAutoCount(); n != 0 {
		t.Fatalf("没有排下的脚注不应占用编号，实际计数 %d", n)
	}
	res := dl.Result(nil)
	if len(res.Pages) != 2 {
		t.Fatalf("应排成 2 页，实际 %d", len(res.Pages))
	}
	got := textContents(res.Pages[1])
	if !got["1"] || !got["1 "] || got["2"] || got["2 "] {
		t.Fatalf("文档中唯一的脚注应编号为 1: %v", got)
	}
}

func TestFootNoteContinuesOnNextPage(t *testing.T) {
	doc := newTestDoc(repeat(11, "filler")...)
	body := append(words("first", 3), words("second", 3)...)
	note := newNote(doc, "n1", strings.Join(body, " "))
	doc.Root.Append(doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "ref", Format: doc.DefaultChar},
		document.Fragment{Note: note, Format: doc.DefaultChar},
	))
	doc.AddParagraph(nil, "after", document.BlockFormat{})
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	roots := dl.RootAreas()
	if len(roots) != 2 {
		t.Fatalf("应排成 2 页，实际 %d", len(roots))
	}
	if roots[0].ContinuedNoteToNext() != note || roots[0].FootNoteCursorToNext() == nil {
		t.Fatalf("第 1 页应把脚注的剩余部分交给下一页")
	}
	if len(roots[1].footNoteAreas) != 1 || !roots[1].footNoteAreas[0].continued {
		t.Fatalf("第 2 页应以续排的脚注区开始")
	}
	res := dl.Result(nil)
	if countText(res.Pages[0], "first0001") != 1 || countText(res.Pages[0], "second001") != 0 {
		t.Fatalf("第 1 页应只有脚注第一行: %v", textContents(res.Pages[0]))
	}
	p2 := textContents(res.Pages[1])
	if countText(res.Pages[1], "second001") != 1 || countText(res.Pages[1], "first0001") != 0 {
		t.Fatalf("第 2 页应只续排脚注第二行: %v", p2)
	}
	if p2["1 "] {
		t.Fatalf("续排的脚注不应再画编号: %v", p2)
	}
	if n, _ := dl.PageNumberOf(doc.Blocks()[12].ID); n != 2 {
		t.Fatalf("脚注占去的空间应把后续段落推到第 2 页，实际 %d", n)
	}
}

func TestEndNotesArea(t *testing.T) {
	doc := newTestDoc()
	note := &document.Note{ID: "e1", Class: document.EndNote, Frame: doc.NewNoteFrame()}
	doc.AddParagraph(note.Frame, "endbody", document.BlockFormat{})
	doc.Root.Append(doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "text", Format: doc.DefaultChar},
		document.Fragment{Note: note, Format: doc.DefaultChar},
	))
	dl := layoutDoc(t, doc, NewPageProvider(testFormat()))

	root := dl.RootAreas()[0]
	en := root.endNotes
	if en == nil || en.Kind() != KindEndNotes {
		t.Fatalf("文末应有尾注区")
	}
	if len(en.footNoteAreas) != 1 || en.footNoteAreas[0].note != note {
		t.Fatalf("尾注区应包含一条尾注: %d", len(en.footNoteAreas))
	}
	if en.Top() < 32 {
		t.Fatalf("尾注区应排在正文之后，实际顶部 %g", en.Top())
	}
	if len(root.footNoteAreas) != 0 {
		t.Fatalf("尾注不应进入页脚脚注区")
	}
	got := textContents(dl.Result(nil).Pages[0])
	if !got["endbody"] || !got["i "] || !got["i"] {
		t.Fatalf("尾注应以小写罗马数字编号: %v", got)
	}
}
