package document

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// ParagraphStyle is a named, inheritable pair of paragraph and character formats.
// Only non-zero fields override the parent.
type ParagraphStyle struct {
	Name   string      `json:"name"`
	Parent string      `json:"parent,omitempty"`
	Block  BlockFormat `json:"block"`
	Char   CharFormat  `json:"char"`
}

// StyleSheet holds paragraph styles and resolves their inheritance.
type StyleSheet struct {
	styles   map[string]ParagraphStyle
	resolved map[string]ParagraphStyle
}

// NewStyleSheet returns an empty sheet.
func NewStyleSheet() *StyleSheet {
	return &StyleSheet{styles: map[string]ParagraphStyle{}}
}

// Add registers or replaces a style.
func (s *StyleSheet) Add(style ParagraphStyle) {
	s.styles[style.Name] = style
	s.resolved = nil
}

// Names returns the registered style names.
func (s *StyleSheet) Names() []string {
	out := make([]string, 0, len(s.styles))
	for name := range s.styles {
		out = append(out, name)
	}
	return out
}

// Resolve flattens every style against its ancestors and reports undefined
// parents and inheritance cycles.
func (s *StyleSheet) Resolve() error {
	resolved := map[string]ParagraphStyle{}
	visiting := map[string]bool{}

	var dfs func(name string) (ParagraphStyle, error)
	dfs = func(name string) (ParagraphStyle, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := s.styles[name]
		if !ok {
			return ParagraphStyle{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return ParagraphStyle{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		merged := ParagraphStyle{Name: name, Parent: style.Parent}
		if style.Parent != "" {
			parent, err := dfs(style.Parent)
			if err != nil {
				return ParagraphStyle{}, err
			}
			merged.Block = parent.Block
			merged.Char = parent.Char
		}
		if err := overlay(&merged.Block, &style.Block); err != nil {
			return ParagraphStyle{}, err
		}
		if err := overlay(&merged.Char, &style.Char); err != nil {
			return ParagraphStyle{}, err
		}
		resolved[name] = merged
		delete(visiting, name)
		return merged, nil
	}

	for name := range s.styles {
		if _, err := dfs(name); err != nil {
			return err
		}
	}
	s.resolved = resolved
	return nil
}

// Style returns the resolved style by name.
func (s *StyleSheet) Style(name string) (ParagraphStyle, bool) {
	if s.resolved == nil {
		if err := s.Resolve(); err != nil {
			return ParagraphStyle{}, false
		}
	}
	style, ok := s.resolved[name]
	return style, ok
}

// Apply computes b's effective formats: the named style first, then the
// block's own non-zero properties on top. Fragment formats inherit the block
// char format the same way.
func (s *StyleSheet) Apply(b *Block) error {
	return s.apply(b, CharFormat{})
}

func (s *StyleSheet) apply(b *Block, base CharFormat) error {
	var style ParagraphStyle
	if b.Format.Style != "" {
		var ok bool
		if style, ok = s.Style(b.Format.Style); !ok {
			return fmt.Errorf("段落样式 %s 未定义", b.Format.Style)
		}
	}
	block := style.Block
	if err := overlay(&block, &b.Format); err != nil {
		return err
	}
	char := base
	if err := overlay(&char, &style.Char); err != nil {
		return err
	}
	if err := overlay(&char, &b.CharFormat); err != nil {
		return err
	}
	for i := range b.Fragments {
		fc := char
		if err := overlay(&fc, &b.Fragments[i].Format); err != nil {
			return err
		}
		b.Fragments[i].Format = fc
	}
	b.Format = block
	b.CharFormat = char
	return nil
}

// ApplyAll applies the sheet to every main-flow block of doc and to the
// bodies of its notes, with doc.DefaultChar beneath every style. Call after
// Reindex.
func (s *StyleSheet) ApplyAll(doc *Document) error {
	var err error
	apply := func(b *Block) bool {
		err = s.apply(b, doc.DefaultChar)
		return err == nil
	}
	if doc.Walk(apply); err != nil {
		return err
	}
	for _, n := range doc.AllNotes() {
		if n.Frame == nil {
			continue
		}
		if walkFrame(n.Frame, apply); err != nil {
			return err
		}
	}
	return err
}

func overlay(dst, src any) error {
	if err := copier.CopyWithOption(dst, src, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return fmt.Errorf("合并样式失败: %w", err)
	}
	return nil
}
