// Package generator fills generated blocks (table of contents, bibliography)
// from the current layout and keeps them current across layout passes.
package generator

import (
	"bytes"
	"encoding/json"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

// Generator produces the content of a generated block.
type Generator interface {
	// Generate builds the sub-document from the document and its current
	// layout. It must not modify the main document.
	Generate(dl *layout.DocumentLayout) *document.Document
}

// Relabeler is implemented by generators that also rewrite text of the
// main document, such as citation labels. Relabel returns the blocks it
// changed together with their text length before the change.
type Relabeler interface {
	Relabel(doc *document.Document) []Relabeled
}

// Relabeled is one block changed by a Relabeler.
type Relabeled struct {
	Block   *document.Block
	OldText int
}

// DefaultMaxRegenerations bounds the regenerate/relayout rounds after one
// edit.
const DefaultMaxRegenerations = 4

type binding struct {
	host *document.Block
	gen  Generator
	last []byte
}

// Manager owns the generated blocks of one document layout. It regenerates
// them after every finished pass and reports a change to the layout only
// when the output differs, so page numbers settle in a few rounds.
type Manager struct {
	// MaxRegenerations caps consecutive changing rounds.
	MaxRegenerations int

	dl       *layout.DocumentLayout
	bindings []*binding
	rounds   int
	updating bool
}

// NewManager binds a manager to dl's layout-finished and layout-dirty
// notifications.
func NewManager(dl *layout.DocumentLayout) *Manager {
	m := &Manager{MaxRegenerations: DefaultMaxRegenerations, dl: dl}
	dl.OnLayoutFinished(m.layoutFinished)
	dl.OnLayoutIsDirty(func() {
		if !m.updating {
			m.rounds = 0
		}
	})
	return m
}

// Register binds g to host. The host gets an empty sub-document until the
// first pass finished.
func (m *Manager) Register(host *document.Block, g Generator) {
	if host.Generated == nil {
		host.Generated = document.New()
	}
	m.bindings = append(m.bindings, &binding{host: host, gen: g})
}

// Len returns the number of registered generators.
func (m *Manager) Len() int { return len(m.bindings) }

func (m *Manager) layoutFinished() {
	if m.rounds >= m.MaxRegenerations {
		layout.Logger().Warn("generated content did not settle", "rounds", m.rounds)
		return
	}
	if m.Update() {
		m.rounds++
	} else {
		m.rounds = 0
	}
}

// Update regenerates every generated block now and reports whether any
// output changed. Changed hosts are reported to the layout.
func (m *Manager) Update() bool {
	m.updating = true
	defer func() { m.updating = false }()

	doc := m.dl.Document()
	changed := false
	for _, b := range m.bindings {
		sub := b.gen.Generate(m.dl)
		fp := fingerprint(sub)
		if fp != nil && bytes.Equal(fp, b.last) {
			continue
		}
		b.last = fp
		b.host.Generated = sub
		doc.Reindex()
		m.dl.DocumentChanged(b.host.Position(), b.host.Length(), b.host.Length())
		changed = true
	}
	for _, b := range m.bindings {
		r, ok := b.gen.(Relabeler)
		if !ok {
			continue
		}
		for _, c := range r.Relabel(doc) {
			doc.Reindex()
			m.dl.DocumentChanged(c.Block.Position(), c.OldText, c.Block.TextLength())
			changed = true
		}
	}
	return changed
}

// fingerprint serializes the blocks of sub for change detection.
func fingerprint(sub *document.Document) []byte {
	data, err := json.Marshal(sub.Blocks())
	if err != nil {
		return nil
	}
	return data
}

// newSubDocument returns a document sharing the styles and defaults of src.
func newSubDocument(src *document.Document) *document.Document {
	out := document.New()
	out.Styles = src.Styles
	out.DefaultChar = src.DefaultChar
	out.TabInterval = src.TabInterval
	return out
}

// finish indexes sub and resolves its paragraph styles.
func finish(sub *document.Document) *document.Document {
	sub.Reindex()
	if err := sub.Styles.ApplyAll(sub); err != nil {
		layout.Logger().Warn("generated content style", "err", err)
	}
	return sub
}

func hasStyle(doc *document.Document, name string) bool {
	if name == "" || doc.Styles == nil {
		return false
	}
	_, ok := doc.Styles.Style(name)
	return ok
}
