// Package document is the host document model the layout engine reads:
// frames holding blocks, tables and sub-frames, with character and paragraph
// formatting, lists, notes and anchored objects.
//
// Every block occupies a contiguous span of global positions (its runes plus
// one separator), so edits can be reported as (position, removed, added).
package document

import (
	"strings"
	"unicode/utf8"
)

// FrameKind distinguishes the frames of a document.
type FrameKind int

const (
	FrameMain FrameKind = iota
	FrameCell
	FrameNote
	FrameEndNotes
	FrameGenerated
	FrameBox
)

// Item is one entry of a frame: a *Block, a *Table or a nested *Frame.
type Item interface {
	Position() int
	isItem()
}

// Frame is an ordered run of items.
type Frame struct {
	Kind  FrameKind `json:"kind"`
	Items []Item    `json:"-"`
	// ShrinkToFit, when positive, lets the lines of a nested frame run up to
	// that width without wrapping; the frame then narrows to its widest line.
	ShrinkToFit float64 `json:"shrinkToFit,omitempty"`

	pos, end int
}

func (*Frame) isItem() {}

// Position is the first global position covered by the frame.
func (f *Frame) Position() int { return f.pos }

// End is one past the last global position covered by the frame.
func (f *Frame) End() int { return f.end }

// Append adds items to the frame.
func (f *Frame) Append(items ...Item) { f.Items = append(f.Items, items...) }

// Blocks returns the direct block children of the frame.
func (f *Frame) Blocks() []*Block {
	var out []*Block
	for _, it := range f.Items {
		if b, ok := it.(*Block); ok {
			out = append(out, b)
		}
	}
	return out
}

// Fragment is a run of text sharing one character format, or a single object
// (anchor, note reference, soft page break) occupying one position.
type Fragment struct {
	Text          string     `json:"text,omitempty"`
	Format        CharFormat `json:"format"`
	Anchor        *Anchor    `json:"anchor,omitempty"`
	Note          *Note      `json:"note,omitempty"`
	Citation      *Citation  `json:"citation,omitempty"`
	SoftPageBreak bool       `json:"softPageBreak,omitempty"`
}

// IsObject reports whether the fragment is an object placeholder.
func (f Fragment) IsObject() bool { return f.Anchor != nil || f.Note != nil || f.SoftPageBreak }

// Len returns the number of positions the fragment occupies.
func (f Fragment) Len() int {
	if f.IsObject() {
		return 1
	}
	return utf8.RuneCountInString(f.Text)
}

// Block is a paragraph.
type Block struct {
	ID         int         `json:"id"`
	Format     BlockFormat `json:"format"`
	CharFormat CharFormat  `json:"charFormat"`
	Fragments  []Fragment  `json:"fragments,omitempty"`
	List       *ListItem   `json:"list,omitempty"`

	// Generated holds the output of an index generator (table of contents,
	// bibliography); the block is then laid out as that sub-document.
	Generated *Document `json:"-"`

	pos int
}

func (*Block) isItem() {}

// Position is the global position of the first character.
func (b *Block) Position() int { return b.pos }

// Length is the number of positions including the trailing separator.
func (b *Block) Length() int { return b.TextLength() + 1 }

// TextLength is the number of runes in the block text.
func (b *Block) TextLength() int {
	n := 0
	for _, f := range b.Fragments {
		n += f.Len()
	}
	return n
}

// Runes returns the block text with objects replaced by ObjectReplacement.
func (b *Block) Runes() []rune {
	out := make([]rune, 0, b.TextLength())
	for _, f := range b.Fragments {
		if f.IsObject() {
			out = append(out, ObjectReplacement)
			continue
		}
		out = append(out, []rune(f.Text)...)
	}
	return out
}

// Text returns the block text as a string.
func (b *Block) Text() string { return string(b.Runes()) }

// PlainText returns the text without object placeholders.
func (b *Block) PlainText() string {
	var sb strings.Builder
	for _, f := range b.Fragments {
		if !f.IsObject() {
			sb.WriteString(f.Text)
		}
	}
	return sb.String()
}

// FragmentAt returns the fragment covering the block-relative rune offset and
// the offset of that fragment's first rune.
func (b *Block) FragmentAt(offset int) (*Fragment, int) {
	start := 0
	for i := range b.Fragments {
		n := b.Fragments[i].Len()
		if offset < start+n {
			return &b.Fragments[i], start
		}
		start += n
	}
	return nil, start
}

// FirstCharFormat returns the format of the first fragment, or the block
// char format for empty blocks.
func (b *Block) FirstCharFormat() CharFormat {
	for _, f := range b.Fragments {
		if !f.IsObject() && f.Text != "" {
			return f.Format
		}
	}
	return b.CharFormat
}

// IsGenerated reports whether the block hosts an index generator output.
func (b *Block) IsGenerated() bool { return b.Generated != nil }

// Meta is descriptive document metadata.
type Meta struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Creator  string   `json:"creator,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Document is the root of the model.
type Document struct {
	Root         *Frame
	Lists        map[string]*ListStyle
	Notes        NotesConfig
	Bibliography map[string]*BibEntry
	Styles       *StyleSheet
	Meta         Meta
	DefaultChar  CharFormat
	TabInterval  float64

	endNotes *Frame
	nextID   int
	length   int
	notes    []*Note
}

// New returns an empty document with a main frame.
func New() *Document {
	return &Document{
		Root:         &Frame{Kind: FrameMain},
		Lists:        map[string]*ListStyle{},
		Bibliography: map[string]*BibEntry{},
		Styles:       NewStyleSheet(),
		Notes:        DefaultNotesConfig(),
		TabInterval:  36,
	}
}

// NewBlock creates a block with a fresh identity; it is not attached to any frame.
func (d *Document) NewBlock(format BlockFormat, fragments ...Fragment) *Block {
	d.nextID++
	return &Block{ID: d.nextID, Format: format, CharFormat: d.DefaultChar, Fragments: fragments}
}

// AddParagraph appends a plain-text block to frame (the root frame when nil).
func (d *Document) AddParagraph(frame *Frame, text string, format BlockFormat) *Block {
	if frame == nil {
		frame = d.Root
	}
	b := d.NewBlock(format, Fragment{Text: text, Format: d.DefaultChar})
	frame.Append(b)
	return b
}

// NewNoteFrame returns an empty frame for a foot- or endnote body.
func (d *Document) NewNoteFrame() *Frame { return &Frame{Kind: FrameNote} }

// Length returns the number of global positions in the document.
func (d *Document) Length() int { return d.length }

// EndNotesFrame returns the auxiliary end-notes frame, or nil when the
// document has no endnotes. Valid after Reindex.
func (d *Document) EndNotesFrame() *Frame { return d.endNotes }

// AllNotes returns every note of the document in reference order. Valid after Reindex.
func (d *Document) AllNotes() []*Note { return d.notes }

// EndNotes returns the endnotes in reference order. Valid after Reindex.
func (d *Document) EndNotes() []*Note {
	var out []*Note
	for _, n := range d.notes {
		if n.Class == EndNote {
			out = append(out, n)
		}
	}
	return out
}

// Reindex assigns global positions to every item and (re)creates the
// auxiliary end-notes frame as the last root item. Call after any structural edit.
func (d *Document) Reindex() {
	if d.Root == nil {
		d.Root = &Frame{Kind: FrameMain}
	}
	// drop a previous auxiliary frame before walking
	if d.endNotes != nil {
		items := d.Root.Items[:0]
		for _, it := range d.Root.Items {
			if it != Item(d.endNotes) {
				items = append(items, it)
			}
		}
		d.Root.Items = items
		d.endNotes = nil
	}
	d.notes = d.notes[:0]
	d.collectNotes(d.Root)
	hasEndNotes := false
	for _, n := range d.notes {
		if n.Class == EndNote {
			hasEndNotes = true
			break
		}
	}
	if hasEndNotes {
		d.endNotes = &Frame{Kind: FrameEndNotes}
		d.Root.Items = append(d.Root.Items, d.endNotes)
	}

	pos := 0
	pos = d.indexFrame(d.Root, pos)
	// note bodies live after the main flow
	for _, n := range d.notes {
		if n.Frame != nil {
			pos = d.indexFrame(n.Frame, pos)
		}
	}
	d.length = pos
}

func (d *Document) collectNotes(f *Frame) {
	for _, it := range f.Items {
		switch v := it.(type) {
		case *Block:
			for _, frag := range v.Fragments {
				if frag.Note != nil {
					d.notes = append(d.notes, frag.Note)
				}
			}
		case *Table:
			for _, row := range v.Rows {
				for _, c := range row.Cells {
					if c != nil && c.Frame != nil {
						d.collectNotes(c.Frame)
					}
				}
			}
		case *Frame:
			d.collectNotes(v)
		}
	}
}

func (d *Document) indexFrame(f *Frame, pos int) int {
	f.pos = pos
	if f.Kind != FrameMain {
		pos++
	}
	for _, it := range f.Items {
		switch v := it.(type) {
		case *Block:
			v.pos = pos
			pos += v.Length()
			if v.Generated != nil {
				v.Generated.Reindex()
			}
		case *Table:
			v.pos = pos
			pos++
			for _, row := range v.Rows {
				for _, c := range row.Cells {
					if c != nil && c.Frame != nil {
						pos = d.indexFrame(c.Frame, pos)
					}
				}
			}
			v.end = pos
			pos++
		case *Frame:
			pos = d.indexFrame(v, pos)
		}
	}
	if f.Kind != FrameMain {
		pos++
	}
	f.end = pos
	return pos
}

// Walk visits every block of the main flow in document order, descending into
// tables. Note bodies and generated sub-documents are not visited.
func (d *Document) Walk(fn func(*Block) bool) {
	walkFrame(d.Root, fn)
}

func walkFrame(f *Frame, fn func(*Block) bool) bool {
	for _, it := range f.Items {
		switch v := it.(type) {
		case *Block:
			if !fn(v) {
				return false
			}
		case *Table:
			for _, row := range v.Rows {
				for _, c := range row.Cells {
					if c != nil && c.Frame != nil && !walkFrame(c.Frame, fn) {
						return false
					}
				}
			}
		case *Frame:
			if v.Kind != FrameEndNotes && !walkFrame(v, fn) {
				return false
			}
		}
	}
	return true
}

// Blocks returns the main-flow blocks in order.
func (d *Document) Blocks() []*Block {
	var out []*Block
	d.Walk(func(b *Block) bool {
		out = append(out, b)
		return true
	})
	return out
}

// FindBlock returns the main-flow block containing pos, or nil.
func (d *Document) FindBlock(pos int) *Block {
	var found *Block
	d.Walk(func(b *Block) bool {
		if pos >= b.pos && pos < b.pos+b.Length() {
			found = b
			return false
		}
		return true
	})
	return found
}

// BlockByID returns the main-flow block with the given identity, or nil.
func (d *Document) BlockByID(id int) *Block {
	var found *Block
	d.Walk(func(b *Block) bool {
		if b.ID == id {
			found = b
			return false
		}
		return true
	})
	return found
}

// SetBlockText replaces the text of b with a single fragment in its first
// char format, reindexes, and returns the change as (position, removed, added).
func (d *Document) SetBlockText(b *Block, text string) (int, int, int) {
	removed := b.TextLength()
	format := b.FirstCharFormat()
	b.Fragments = []Fragment{{Text: text, Format: format}}
	d.Reindex()
	return b.pos, removed, b.TextLength()
}

// InsertBlockAfter inserts nb after ref in frame, reindexes and reports the change.
func (d *Document) InsertBlockAfter(frame *Frame, ref, nb *Block) (int, int, int) {
	if frame == nil {
		frame = d.Root
	}
	idx := len(frame.Items)
	for i, it := range frame.Items {
		if it == Item(ref) {
			idx = i + 1
			break
		}
	}
	frame.Items = append(frame.Items, nil)
	copy(frame.Items[idx+1:], frame.Items[idx:])
	frame.Items[idx] = nb
	d.Reindex()
	return nb.pos, 0, nb.Length()
}
