package dsl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/dsl"
	"github.com/ByLCY/textflow/generator"
	"github.com/ByLCY/textflow/layout"
)

const reportDSL = `
doc Report v1 {
  meta {
    title: "Report for ${name}"
    author: "Layout team"
  }

  resources {
    color Accent = #0F62FE

    style Normal {
      size: 11pt
      space-after: 4pt
    }
    style Heading1 extends Normal {
      size: 18pt
      bold: true
      color: Accent
    }

    list Steps {
      level 1 {
        format: 1
        suffix: "."
      }
    }

    bib knuth84 {
      type: book
      author: "Donald E. Knuth"
      title: "The TeXbook"
      year: 1984
    }

    notes {
      footnote-suffix: ")"
    }
  }

  page-set Wide {
    size: A4 landscape
    margin: 15mm
    columns: 2
  }

  page A5 margin 10mm 20mm {
    flow {
      heading 1 { "Intro" }
      toc title "Contents" levels 2
      text Normal {
        "Hello ${name}" note { "A note." } " see " cite knuth84 "."
      }
      item Steps { "one" }
      item Steps { "two" }
      table columns 3 header 1 border 0.5pt {
        row { cell colspan 2 { "wide" } cell { "c" } }
        row { cell { "a" } cell { "b" } cell { "c" } }
      }
      master Wide
      text Normal { "landscape" }
      bibliography title "References" numbered yes
    }
  }
}
`

func buildReport(t *testing.T, src string) *dsl.Output {
	t.Helper()
	ast, err := dsl.ParseString(src)
	require.NoError(t, err, "解析失败")
	out, err := dsl.Build(ast, dsl.BuildOptions{Data: map[string]any{"name": "Ada"}})
	require.NoError(t, err, "构建失败")
	return out
}

func TestBuildReport(t *testing.T) {
	out := buildReport(t, reportDSL)
	doc := out.Document

	assert.Equal(t, "Report for Ada", doc.Meta.Title)
	assert.Equal(t, "Layout team", doc.Meta.Author)

	a5, _ := layout.PaperSize("A5")
	assert.Equal(t, a5, out.Page.Size)
	assert.InDelta(t, 10*layout.MmToPt, out.Page.Margins.Top, 1e-9)
	assert.InDelta(t, 20*layout.MmToPt, out.Page.Margins.Left, 1e-9)

	wide, ok := out.Masters["Wide"]
	require.True(t, ok, "缺少主页面 Wide")
	assert.Greater(t, wide.Size.W, wide.Size.H, "Wide 应为横向")
	assert.Equal(t, 2, wide.Columns)

	blocks := doc.Root.Blocks()
	require.GreaterOrEqual(t, len(blocks), 6)

	heading := blocks[0]
	assert.Equal(t, "Heading1", heading.Format.Style)
	assert.Equal(t, 1, heading.Format.OutlineLevel)
	assert.True(t, heading.CharFormat.Bold, "标题样式应为粗体")
	assert.InDelta(t, 18, heading.CharFormat.Size, 1e-9)
	require.NotNil(t, heading.CharFormat.Color)
	assert.Equal(t, 0x62, heading.CharFormat.Color.G)

	require.True(t, blocks[1].IsGenerated(), "目录宿主段落应为生成内容")

	para := blocks[2]
	assert.InDelta(t, 11, para.CharFormat.Size, 1e-9)
	require.Len(t, para.Fragments, 5)
	assert.Equal(t, "Hello Ada", para.Fragments[0].Text)
	require.NotNil(t, para.Fragments[1].Note)
	assert.Equal(t, document.FootNote, para.Fragments[1].Note.Class)
	require.NotNil(t, para.Fragments[3].Citation)
	assert.Equal(t, "knuth84", para.Fragments[3].Citation.Key)
	assert.Equal(t, ".", para.Fragments[4].Text)
	assert.Equal(t, ")", doc.Notes.FootNotes.Suffix)

	require.NotNil(t, blocks[3].List)
	assert.Equal(t, "Steps", blocks[3].List.List)
	assert.Equal(t, 1, blocks[3].List.Level)

	var table *document.Table
	for _, item := range doc.Root.Items {
		if tb, ok := item.(*document.Table); ok {
			table = tb
		}
	}
	require.NotNil(t, table, "缺少表格")
	assert.Equal(t, 3, table.ColumnCount())
	assert.Equal(t, 2, table.RowCount())
	assert.Equal(t, 1, table.Format.HeaderRows)
	merged := table.Cell(0, 0)
	require.NotNil(t, merged)
	assert.Equal(t, 2, merged.ColSpan)
	assert.Nil(t, table.Cell(0, 1), "被合并的位置应为空")
	assert.Same(t, merged, table.CellAt(0, 1))

	var landscape *document.Block
	for _, b := range doc.Blocks() {
		if b.Text() == "landscape" {
			landscape = b
		}
	}
	require.NotNil(t, landscape)
	assert.Equal(t, "Wide", landscape.Format.MasterPage)

	require.Len(t, out.Indexes, 2)
	_, isTOC := out.Indexes[0].Generator.(*generator.TOC)
	assert.True(t, isTOC, "第一个索引应为目录")
	bib, isBib := out.Indexes[1].Generator.(*generator.Bibliography)
	require.True(t, isBib, "第二个索引应为参考文献")
	assert.True(t, bib.NumberCitations)
	assert.Equal(t, "References", bib.Title)
}

func TestBuildNotesOption(t *testing.T) {
	ast, err := dsl.ParseString(`doc N v1 { page A4 { flow { text { "x" } } } }`)
	require.NoError(t, err)
	cfg := document.DefaultNotesConfig()
	cfg.FootNotes.Format = document.FormatAlphaLower
	out, err := dsl.Build(ast, dsl.BuildOptions{Notes: &cfg})
	require.NoError(t, err)
	assert.Equal(t, document.FormatAlphaLower, out.Document.Notes.FootNotes.Format)
}

func TestBuildBox(t *testing.T) {
	ast, err := dsl.ParseString(`doc B v1 { page A4 { flow { box max-width 30mm { text { "inside" } }; text { "after" } } } }`)
	require.NoError(t, err)
	out, err := dsl.Build(ast, dsl.BuildOptions{})
	require.NoError(t, err)

	items := out.Document.Root.Items
	require.GreaterOrEqual(t, len(items), 2)
	box, ok := items[0].(*document.Frame)
	require.True(t, ok, "box 应构建为嵌套帧")
	assert.Equal(t, document.FrameBox, box.Kind)
	assert.InDelta(t, 30*layout.MmToPt, box.ShrinkToFit, 1e-9)
	require.Len(t, box.Blocks(), 1)
	assert.Equal(t, "inside", box.Blocks()[0].Text())
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		unknown bool
	}{
		{name: "unknown command", src: `doc E v1 { page A4 { flow { frobnicate { "x" } } } }`, unknown: true},
		{name: "undefined style", src: `doc E v1 { page A4 { flow { text Missing { "x" } } } }`},
		{name: "undefined list", src: `doc E v1 { page A4 { flow { item Missing { "x" } } } }`},
		{name: "undefined master", src: `doc E v1 { page A4 { flow { master Nope } } }`},
		{name: "object without size", src: `doc E v1 { page A4 { flow { object anchor page } } }`},
		{name: "unknown paper", src: `doc E v1 { page Z9 { flow { text { "x" } } } }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ast, err := dsl.ParseString(tc.src)
			require.NoError(t, err, "解析失败")
			_, err = dsl.Build(ast, dsl.BuildOptions{})
			require.Error(t, err, "期望构建失败")
			if tc.unknown {
				assert.True(t, errors.Is(err, dsl.ErrUnknownCommand), "错误应包装 ErrUnknownCommand: %v", err)
			}
		})
	}
}
