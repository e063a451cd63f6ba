package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

// TOC lists the outline headings of the main flow with their page numbers.
type TOC struct {
	Title      string
	TitleStyle string
	// EntryStyle is the style name prefix of entries; the outline level is
	// appended ("Contents" gives "Contents1", "Contents2", ...).
	EntryStyle string
	// MaxLevel is the deepest outline level listed; 0 means 10.
	MaxLevel int
	// Indent is the left margin added per level, in pt.
	Indent float64
	// Leader fills the gap before the page number; 0 means '.'.
	Leader rune
	// NoPageNumbers drops the tab and page number.
	NoPageNumbers bool
	// NoListLabels drops the list numbering of numbered headings.
	NoListLabels bool
}

func (t *TOC) maxLevel() int {
	if t.MaxLevel <= 0 {
		return 10
	}
	return t.MaxLevel
}

func (t *TOC) leader() rune {
	if t.Leader == 0 {
		return '.'
	}
	return t.Leader
}

func (t *TOC) indent() float64 {
	if t.Indent == 0 {
		return 12
	}
	return t.Indent
}

// Entry is one heading of the table of contents.
type Entry struct {
	Level   int
	Label   string
	Text    string
	Page    int
	BlockID int
}

// Entries collects the headings in document order. Page is 0 for headings
// that are not laid out yet.
func (t *TOC) Entries(dl *layout.DocumentLayout) []Entry {
	var out []Entry
	levels := t.maxLevel()
	dl.Document().Walk(func(b *document.Block) bool {
		lvl := b.Format.OutlineLevel
		if lvl <= 0 || lvl > levels {
			return true
		}
		text := strings.TrimSpace(strings.ReplaceAll(b.PlainText(), "\t", " "))
		if text == "" {
			return true
		}
		e := Entry{Level: lvl, Text: text, BlockID: b.ID}
		if !t.NoListLabels && b.List != nil {
			if c, ok := dl.Lists().Counter(b); ok && c.Numbered {
				e.Label = c.Label()
			}
		}
		if page, ok := dl.PageNumberOf(b.ID); ok {
			e.Page = page
		}
		out = append(out, e)
		return true
	})
	return out
}

func (t *TOC) Generate(dl *layout.DocumentLayout) *document.Document {
	src := dl.Document()
	out := newSubDocument(src)

	if t.Title != "" {
		format := document.BlockFormat{BottomMargin: 6}
		char := document.CharFormat{Bold: true, Size: 1.4 * src.DefaultChar.FontSize()}
		if hasStyle(src, t.TitleStyle) {
			format = document.BlockFormat{Style: t.TitleStyle}
			char = document.CharFormat{}
		}
		b := out.NewBlock(format, document.Fragment{Text: t.Title})
		b.CharFormat = char
		out.Root.Append(b)
	}

	entries := t.Entries(dl)
	for _, e := range entries {
		format := document.BlockFormat{LeftMargin: t.indent() * float64(e.Level-1)}
		if style := t.EntryStyle + strconv.Itoa(e.Level); t.EntryStyle != "" && hasStyle(src, style) {
			format.Style = style
		}
		text := e.Text
		if e.Label != "" {
			text = e.Label + " " + text
		}
		if !t.NoPageNumbers {
			format.TabStops = []document.TabStop{{
				Position: document.MaximumTabPos,
				Type:     document.TabRight,
				Leader:   t.leader(),
			}}
			page := ""
			if e.Page > 0 {
				page = strconv.Itoa(e.Page)
			}
			text = fmt.Sprintf("%s\t%s", text, page)
		}
		b := out.NewBlock(format, document.Fragment{Text: text})
		b.CharFormat = document.CharFormat{}
		out.Root.Append(b)
	}
	layout.Logger().Debug("toc generated", "entries", len(entries))
	return finish(out)
}
