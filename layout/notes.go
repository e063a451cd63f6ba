package layout

import (
	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/lists"
)

// preregisterFootNote lays out a footnote referenced by a line whose text
// ends at bottomOfText and reserves its height. Nested areas forward to the
// root area, which owns the footnote zone. The reservation becomes final
// with confirmFootNotes or is dropped by clearPreregisteredFootNotes.
func (a *Area) preregisterFootNote(note *document.Note, bottomOfText float64) float64 {
	if a.kind == KindNote {
		return 0
	}
	if a.parent != nil {
		h := a.parent.preregisterFootNote(note, bottomOfText)
		a.preregisteredFootNotesHeight += h
		return h
	}

	if note.Label == "" {
		cfg := a.dl.doc.Notes.FootNotes
		n := a.footNoteAutoCount + a.preregisteredAutoCount
		if cfg.Scope == document.BeginAtDocument {
			n += a.footNoteCountInDoc
		}
		a.preregisteredAutoCount++
		a.dl.setNoteNumber(note, n)
	}

	avail := a.MaximumAllowedBottom() - bottomOfText
	if avail <= 0 {
		return 0
	}
	fa := newArea(a.dl, a, KindNote)
	fa.note = note
	fa.foreign = true
	fa.SetReferenceRect(a.left, a.right, a.separatorSpace(), avail)
	cursor := NewFrameIterator(note.Frame)
	if !fa.Layout(cursor) {
		a.preregisteredCursorToNext = cursor
		a.preregisteredNoteToNext = note
	}
	h := fa.bottom
	a.preregisteredFootNotesHeight += h
	a.preregisteredFootNoteAreas = append(a.preregisteredFootNoteAreas, fa)
	return h
}

// confirmFootNotes makes the preregistered footnotes permanent.
func (a *Area) confirmFootNotes() {
	a.footNotesHeight += a.preregisteredFootNotesHeight
	a.footNoteAreas = append(a.footNoteAreas, a.preregisteredFootNoteAreas...)
	a.footNoteAutoCount += a.preregisteredAutoCount
	if a.preregisteredCursorToNext != nil {
		a.footNoteCursorToNext = a.preregisteredCursorToNext
		a.continuedNoteToNext = a.preregisteredNoteToNext
	}
	a.dropPreregistered()
	if p := a.noteOwner(); p != nil {
		p.confirmFootNotes()
	}
}

// clearPreregisteredFootNotes drops footnotes of a line that did not fit.
func (a *Area) clearPreregisteredFootNotes() {
	a.dropPreregistered()
	if p := a.noteOwner(); p != nil {
		p.clearPreregisteredFootNotes()
	}
}

// noteOwner is the area footnote bookkeeping is forwarded to. Note areas are
// laid out while their owner preregisters them and keep to themselves.
func (a *Area) noteOwner() *Area {
	if a.kind == KindNote {
		return nil
	}
	return a.parent
}

func (a *Area) dropPreregistered() {
	a.preregisteredFootNotesHeight = 0
	a.preregisteredFootNoteAreas = nil
	a.preregisteredAutoCount = 0
	a.preregisteredCursorToNext = nil
	a.preregisteredNoteToNext = nil
}

// footNoteMark is the footnote bookkeeping of an area and its ancestors at
// one point of a pass.
type footNoteMark []footNoteLevel

type footNoteLevel struct {
	area      *Area
	areas     int
	height    float64
	autoCount int
	cursor    *FrameIterator
	note      *document.Note
}

// markFootNotes records the confirmed footnotes of a and every area above it.
func (a *Area) markFootNotes() footNoteMark {
	var m footNoteMark
	for x := a; x != nil; x = x.noteOwner() {
		m = append(m, footNoteLevel{
			area:      x,
			areas:     len(x.footNoteAreas),
			height:    x.footNotesHeight,
			autoCount: x.footNoteAutoCount,
			cursor:    x.footNoteCursorToNext,
			note:      x.continuedNoteToNext,
		})
	}
	return m
}

// restore takes back the footnotes confirmed after the mark, so lines that
// move to the next area take their footnotes along.
func (m footNoteMark) restore() {
	for _, l := range m {
		x := l.area
		if l.areas <= len(x.footNoteAreas) {
			x.footNoteAreas = x.footNoteAreas[:l.areas]
		}
		x.footNotesHeight = l.height
		x.footNoteAutoCount = l.autoCount
		x.footNoteCursorToNext = l.cursor
		x.continuedNoteToNext = l.note
		x.dropPreregistered()
	}
}

// prepareNoteLabel sets the label of a note area and indents the first
// line past it. Continued areas carry no label.
func (a *Area) prepareNoteLabel() {
	a.label, a.labelWidth = "", 0
	if a.note == nil || a.continued {
		return
	}
	a.label = a.dl.noteLabel(a.note) + " "
	a.labelWidth = a.dl.typesetter.TextWidth(a.labelFormat(), a.label)
	a.extraTextIndent = a.labelWidth
}

func (a *Area) labelFormat() document.CharFormat {
	if a.note != nil && a.note.Frame != nil {
		for _, b := range a.note.Frame.Blocks() {
			return b.FirstCharFormat()
		}
	}
	return a.dl.doc.DefaultChar
}

// noteLabel returns the label shown for a note reference and in front of
// the note text.
func (dl *DocumentLayout) noteLabel(n *document.Note) string {
	if n.Label != "" {
		return n.Label
	}
	cfg := dl.doc.Notes.FootNotes
	num, ok := dl.noteNumbers[n]
	if n.Class == document.EndNote {
		cfg = dl.doc.Notes.EndNotes
		num, ok = dl.endNoteIndex(n), true
	}
	if !ok {
		num = dl.documentNoteIndex(n)
	}
	start := cfg.Start
	if start == 0 {
		start = 1
	}
	return cfg.Prefix + lists.Format(start+num, cfg.Format, false) + cfg.Suffix
}

func (dl *DocumentLayout) setNoteNumber(n *document.Note, num int) {
	dl.noteNumbers[n] = num
}

// documentNoteIndex is the position of a footnote among all footnotes.
func (dl *DocumentLayout) documentNoteIndex(n *document.Note) int {
	i := 0
	for _, o := range dl.doc.AllNotes() {
		if o == n {
			return i
		}
		if o.Class == n.Class && o.Label == "" {
			i++
		}
	}
	return i
}

func (dl *DocumentLayout) endNoteIndex(n *document.Note) int {
	return dl.documentNoteIndex(n)
}
