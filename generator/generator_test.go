package generator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/layout"
)

func smallPage() layout.PageFormat {
	return layout.PageFormat{Size: geom.Size{W: 200, H: 200}, Margins: document.Uniform(20)}
}

func blockTexts(doc *document.Document) []string {
	var out []string
	for _, b := range doc.Blocks() {
		out = append(out, b.Text())
	}
	return out
}

// layoutUntilStable 运行排版直到生成内容不再变化。
func layoutUntilStable(t *testing.T, dl *layout.DocumentLayout) {
	t.Helper()
	require.NoError(t, dl.Layout())
	for range 10 {
		ran, err := dl.MaybeLayout()
		require.NoError(t, err)
		if !ran {
			return
		}
	}
	t.Fatalf("排版未收敛")
}

func TestTOCFollowsPageNumbers(t *testing.T) {
	doc := document.New()
	doc.DefaultChar = document.CharFormat{Size: 10}
	host := doc.AddParagraph(nil, "", document.BlockFormat{})
	doc.AddParagraph(nil, "Intro", document.BlockFormat{OutlineLevel: 1})
	for range 20 {
		doc.AddParagraph(nil, "filler", document.BlockFormat{})
	}
	doc.AddParagraph(nil, "Details", document.BlockFormat{OutlineLevel: 2})
	doc.AddParagraph(nil, "Too deep", document.BlockFormat{OutlineLevel: 3})
	require.NoError(t, doc.Styles.ApplyAll(doc))

	dl := layout.New(doc, layout.NewPageProvider(smallPage()), layout.Options{})
	toc := &TOC{Title: "Contents", MaxLevel: 2}
	m := NewManager(dl)
	m.Register(host, toc)
	require.Equal(t, 1, m.Len())
	layoutUntilStable(t, dl)

	want := []Entry{
		{Level: 1, Text: "Intro", Page: 1},
		{Level: 2, Text: "Details", Page: 2},
	}
	got := toc.Entries(dl)
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Entry{}, "BlockID")); diff != "" {
		t.Fatalf("目录条目不符 (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"Contents", "Intro\t1", "Details\t2"}, blockTexts(host.Generated))
	entry := host.Generated.Blocks()[2]
	require.Len(t, entry.Format.TabStops, 1)
	assert.Equal(t, document.TabRight, entry.Format.TabStops[0].Type)
	assert.Equal(t, '.', entry.Format.TabStops[0].Leader)
	assert.InDelta(t, 12, entry.Format.LeftMargin, 1e-9)

	assert.False(t, m.Update(), "内容稳定后再次更新不应报告变化")
}

func TestTOCWithoutPageNumbers(t *testing.T) {
	doc := document.New()
	doc.AddParagraph(nil, "Heading", document.BlockFormat{OutlineLevel: 1})
	dl := layout.New(doc, layout.NewPageProvider(smallPage()), layout.Options{})
	sub := (&TOC{NoPageNumbers: true}).Generate(dl)
	assert.Equal(t, []string{"Heading"}, blockTexts(sub))
}

func bibDocument() *document.Document {
	doc := document.New()
	doc.Bibliography["knuth84"] = &document.BibEntry{
		Key: "knuth84", Type: "book", Author: "Donald E. Knuth", Title: "The TeXbook", Year: "1984",
	}
	doc.Bibliography["lamport94"] = &document.BibEntry{
		Key: "lamport94", Type: "book", Author: "Leslie Lamport", Title: "LaTeX", Publisher: "Addison-Wesley", Year: "1994",
	}
	cite := func(key string) document.Fragment {
		return document.Fragment{Text: key, Citation: &document.Citation{Key: key}}
	}
	doc.Root.Append(doc.NewBlock(document.BlockFormat{},
		document.Fragment{Text: "see "}, cite("lamport94"), document.Fragment{Text: " and "}, cite("knuth84"),
	))
	doc.Root.Append(doc.NewBlock(document.BlockFormat{}, cite("knuth-84"), cite("missing")))
	doc.Reindex()
	return doc
}

func TestBibliographyResolve(t *testing.T) {
	doc := bibDocument()
	bib := &Bibliography{}

	e, ok := bib.Resolve(doc, "knuth84")
	require.True(t, ok)
	assert.Equal(t, "knuth84", e.Key)

	e, ok = bib.Resolve(doc, "knuth-84")
	require.True(t, ok, "相近的键应模糊匹配")
	assert.Equal(t, "knuth84", e.Key)

	_, ok = bib.Resolve(doc, "zzz")
	assert.False(t, ok)

	strict := &Bibliography{MinSimilarity: -1}
	_, ok = strict.Resolve(doc, "knuth-84")
	assert.False(t, ok, "负阈值应关闭模糊匹配")
}

func TestBibliographyFormat(t *testing.T) {
	bib := &Bibliography{}
	knuth := &document.BibEntry{Type: "book", Author: "Donald E. Knuth", Title: "The TeXbook", Year: "1984"}
	assert.Equal(t, "Donald E. Knuth. The TeXbook. 1984.", bib.Format(knuth), "缺少的字段应连同其后文字一起省略")

	article := &document.BibEntry{Type: "article", Author: "A", Title: "T", Journal: "J", Year: "2001"}
	assert.Equal(t, "A. T. J, 2001.", bib.Format(article))

	custom := &Bibliography{Templates: map[string]string{"": "{title} ({year})"}}
	assert.Equal(t, "Notes (2000)", custom.Format(&document.BibEntry{Type: "misc", Title: "Notes", Year: "2000"}))
}

func TestBibliographyEntriesOrder(t *testing.T) {
	doc := bibDocument()

	cited := (&Bibliography{}).Entries(doc)
	require.Len(t, cited, 2)
	assert.Equal(t, "lamport94", cited[0].Entry.Key)
	assert.Equal(t, 1, cited[0].Number)
	assert.Equal(t, "knuth84", cited[1].Entry.Key)
	assert.Equal(t, []string{"knuth84", "knuth-84"}, cited[1].Keys)

	byKey := (&Bibliography{Order: OrderKey}).Entries(doc)
	require.Len(t, byKey, 2)
	assert.Equal(t, "knuth84", byKey[0].Entry.Key)
	assert.Equal(t, 1, byKey[0].Number)
}

func TestBibliographyGenerateAndRelabel(t *testing.T) {
	doc := bibDocument()
	dl := layout.New(doc, layout.NewPageProvider(smallPage()), layout.Options{})
	bib := &Bibliography{Title: "References", NumberCitations: true}

	sub := bib.Generate(dl)
	assert.Equal(t, []string{
		"References",
		"[1] Leslie Lamport. LaTeX. Addison-Wesley, 1994.",
		"[2] Donald E. Knuth. The TeXbook. 1984.",
	}, blockTexts(sub))

	changed := bib.Relabel(doc)
	require.Len(t, changed, 2)
	first := doc.Blocks()[0]
	assert.Same(t, first, changed[0].Block)
	assert.Equal(t, 25, changed[0].OldText)
	assert.Equal(t, "see [1] and [2]", first.Text())
	assert.Equal(t, "[2]missing", doc.Blocks()[1].Text(), "无法解析的引用保持原样")

	assert.Empty(t, bib.Relabel(doc), "编号已一致时不应再次修改")
	assert.Nil(t, (&Bibliography{}).Relabel(doc))
}
