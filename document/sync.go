package document

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Change is one edit in global positions, as reported to a layout.
type Change struct {
	Position int
	Removed  int
	Added    int
}

// SyncText copies the text of src into d when both documents have the same
// block structure and only plain text runs differ. Blocks keep their
// identity, so a layout bound to d can relayout incrementally from the
// returned changes, which are in application order. It reports false and
// leaves d untouched when the structure differs.
func (d *Document) SyncText(src *Document) ([]Change, bool) {
	old, next := d.Blocks(), src.Blocks()
	if len(old) != len(next) {
		return nil, false
	}
	var changed []int
	for i := range old {
		a, b := old[i], next[i]
		if a.Generated != nil || b.Generated != nil || hasObjects(a) || hasObjects(b) {
			if !sameFormat(a.Fragments, b.Fragments) {
				return nil, false
			}
		}
		if !sameFormat(a.Format, b.Format) || !sameFormat(a.List, b.List) {
			return nil, false
		}
		if !sameFormat(a.Fragments, b.Fragments) || !sameFormat(a.CharFormat, b.CharFormat) {
			changed = append(changed, i)
		}
	}
	out := make([]Change, 0, len(changed))
	for _, i := range changed {
		b := old[i]
		removed := b.TextLength()
		b.Fragments = next[i].Fragments
		b.CharFormat = next[i].CharFormat
		d.Reindex()
		out = append(out, Change{Position: b.Position(), Removed: removed, Added: b.TextLength()})
	}
	return out, true
}

func hasObjects(b *Block) bool {
	for _, f := range b.Fragments {
		if f.IsObject() || f.Citation != nil {
			return true
		}
	}
	return false
}

// formatOptions compare formats and fragments by value. Note bodies are
// separate frames and do not take part. Borders.Equal ignores padding, so
// borders are compared field by field.
var formatOptions = cmp.Options{
	cmpopts.IgnoreFields(Note{}, "Frame"),
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b Borders) bool { return a == b }),
}

func sameFormat(a, b any) bool {
	return cmp.Equal(a, b, formatOptions)
}
