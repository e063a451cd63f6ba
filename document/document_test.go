package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindexAssignsContiguousPositions(t *testing.T) {
	doc := New()
	a := doc.AddParagraph(nil, "hello", BlockFormat{})
	b := doc.AddParagraph(nil, "world!", BlockFormat{})
	doc.Reindex()

	assert.Equal(t, 0, a.Position())
	assert.Equal(t, 6, b.Position())
	assert.Equal(t, 13, doc.Length())
	assert.Same(t, b, doc.FindBlock(8))
	assert.Nil(t, doc.FindBlock(100))
}

func TestTablePositionsWrapCells(t *testing.T) {
	doc := New()
	first := doc.AddParagraph(nil, "ab", BlockFormat{})
	tbl := NewTable(1, 2)
	doc.AddParagraph(tbl.Cell(0, 0).Frame, "x", BlockFormat{})
	doc.AddParagraph(tbl.Cell(0, 1).Frame, "y", BlockFormat{})
	doc.Root.Append(tbl)
	last := doc.AddParagraph(nil, "z", BlockFormat{})
	doc.Reindex()

	require.Equal(t, 0, first.Position())
	assert.Equal(t, 3, tbl.Position())
	assert.Greater(t, last.Position(), tbl.End())
	blocks := doc.Blocks()
	require.Len(t, blocks, 4)
	assert.Equal(t, "x", blocks[1].Text())
	assert.Equal(t, "y", blocks[2].Text())
}

func TestObjectsOccupyOnePosition(t *testing.T) {
	doc := New()
	note := &Note{ID: "n1", Class: EndNote, Frame: doc.NewNoteFrame()}
	doc.AddParagraph(note.Frame, "body", BlockFormat{})
	b := doc.NewBlock(BlockFormat{},
		Fragment{Text: "ab"},
		Fragment{Anchor: &Anchor{ID: "img", Type: AnchorAsChar}},
		Fragment{Note: note},
		Fragment{Text: "c"},
	)
	doc.Root.Append(b)
	doc.Reindex()

	assert.Equal(t, 5, b.TextLength())
	assert.Equal(t, []rune{'a', 'b', ObjectReplacement, ObjectReplacement, 'c'}, b.Runes())
	assert.Equal(t, "abc", b.PlainText())
	frag, start := b.FragmentAt(3)
	require.NotNil(t, frag)
	assert.Same(t, note, frag.Note)
	assert.Equal(t, 3, start)

	require.NotNil(t, doc.EndNotesFrame(), "存在尾注时应创建辅助尾注帧")
	assert.Same(t, doc.EndNotesFrame(), doc.Root.Items[len(doc.Root.Items)-1])
	assert.Len(t, doc.EndNotes(), 1)

	// a second reindex must not duplicate the auxiliary frame
	doc.Reindex()
	count := 0
	for _, it := range doc.Root.Items {
		if f, ok := it.(*Frame); ok && f.Kind == FrameEndNotes {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSetBlockTextReportsChange(t *testing.T) {
	doc := New()
	doc.AddParagraph(nil, "abc", BlockFormat{})
	b := doc.AddParagraph(nil, "defg", BlockFormat{})
	doc.Reindex()

	pos, removed, added := doc.SetBlockText(b, "xy")
	assert.Equal(t, 4, pos)
	assert.Equal(t, 4, removed)
	assert.Equal(t, 2, added)
	assert.Equal(t, 7, doc.Length())
}

func TestTableMergeAndCellAt(t *testing.T) {
	tbl := NewTable(3, 3)
	cell := tbl.Merge(0, 0, 2, 2)
	require.NotNil(t, cell)
	assert.Nil(t, tbl.Cell(1, 1))
	assert.Same(t, cell, tbl.CellAt(1, 1))
	assert.Same(t, tbl.Cell(2, 2), tbl.CellAt(2, 2))
	assert.Equal(t, 2, cell.RowSpan)
}

func TestListLevelDefaults(t *testing.T) {
	style := NewListStyle("l", FormatDecimal)
	style.Levels[1].Indent = 18
	lvl := style.Level(3)
	assert.Equal(t, 3, lvl.Level)
	assert.InDelta(t, 54, lvl.Indent, 1e-9)
	assert.Equal(t, 1, lvl.Start())
	assert.Equal(t, ".", lvl.EffectiveSuffix())

	bullet := &ListLevel{Format: FormatBullet}
	assert.Equal(t, "", bullet.EffectiveSuffix())
	f, ok := ParseNumberFormat("I")
	assert.True(t, ok)
	assert.Equal(t, FormatRomanUpper, f)
}

func TestSyncTextKeepsBlockIdentity(t *testing.T) {
	build := func(texts ...string) *Document {
		d := New()
		for _, s := range texts {
			d.AddParagraph(nil, s, BlockFormat{})
		}
		d.Reindex()
		return d
	}
	doc := build("abc", "defg")
	b := doc.Blocks()[1]

	changes, ok := doc.SyncText(build("abc", "wxyz!"))
	require.True(t, ok)
	assert.Equal(t, []Change{{Position: 4, Removed: 4, Added: 5}}, changes)
	assert.Same(t, b, doc.Blocks()[1], "同步后应保留原段落")
	assert.Equal(t, "wxyz!", b.Text())
	assert.Equal(t, 10, doc.Length())

	_, ok = doc.SyncText(build("abc"))
	assert.False(t, ok, "段落数量不同不能只同步文字")

	other := build("abc", "wxyz!")
	other.Blocks()[0].Format.Alignment = AlignCenter
	_, ok = doc.SyncText(other)
	assert.False(t, ok, "段落格式不同不能只同步文字")
	assert.Equal(t, AlignStart, doc.Blocks()[0].Format.Alignment)
}

func TestSyncTextComparesObjectsByValue(t *testing.T) {
	build := func(label, text string, tabs []TabStop) *Document {
		d := New()
		note := &Note{ID: "n1", Class: FootNote, Label: label, Frame: d.NewNoteFrame()}
		d.AddParagraph(note.Frame, "body", BlockFormat{})
		ref := d.NewBlock(BlockFormat{TabStops: tabs}, Fragment{Text: "see"}, Fragment{Note: note})
		d.Root.Append(ref)
		d.AddParagraph(nil, text, BlockFormat{})
		d.Reindex()
		return d
	}
	doc := build("", "old", nil)

	changes, ok := doc.SyncText(build("", "new!", []TabStop{}))
	require.True(t, ok, "脚注内容相同、制表位为空时应只同步文字")
	require.Len(t, changes, 1)
	assert.Equal(t, "new!", doc.Blocks()[1].Text())

	_, ok = doc.SyncText(build("*", "new!", nil))
	assert.False(t, ok, "脚注标签不同不能只同步文字")

	padded := build("", "new!", nil)
	padded.Blocks()[1].Format.Borders.PaddingTop = 4
	_, ok = doc.SyncText(padded)
	assert.False(t, ok, "边框内边距不同不能只同步文字")
}
