package dsl

import (
	"fmt"
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

func (b *builder) collectMeta(doc *Document) {
	meta := document.Meta{Creator: "textflow"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			value := b.scope.Expand(valueToString(stmt.Assignment.Value))
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = value
			case "author":
				meta.Author = value
			case "subject":
				meta.Subject = value
			case "creator":
				meta.Creator = value
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	b.doc.Meta = meta
}

// collectResources reads every resources section. Colors come first so
// styles and lists can refer to them by name.
func (b *builder) collectResources(doc *Document) error {
	var cmds []*Command
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command != nil {
				cmds = append(cmds, stmt.Command)
			}
		}
	}
	for _, cmd := range cmds {
		if cmd.Name != "color" {
			continue
		}
		name, value := parseColorResource(cmd)
		if name == "" || value == "" {
			continue
		}
		c, err := parseColor(value)
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
		b.colors[name] = c
	}
	for _, cmd := range cmds {
		var err error
		switch cmd.Name {
		case "color":
		case "font":
			font := parseFontResource(cmd)
			if font.Name != "" {
				b.out.Resources.Fonts[font.Name] = font
			}
		case "image":
			err = b.imageResource(cmd)
		case "style":
			err = b.styleResource(cmd)
		case "list":
			err = b.listResource(cmd)
		case "bib":
			err = b.bibResource(cmd)
		case "notes":
			err = b.notesResource(cmd)
		default:
			err = fmt.Errorf("%w：%s", ErrUnknownCommand, cmd.Name)
		}
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
	}
	return b.doc.Styles.Resolve()
}

func parseColorResource(cmd *Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func parseFontResource(cmd *Command) layout.FontResource {
	if len(cmd.Args) == 0 {
		return layout.FontResource{}
	}
	font := layout.FontResource{Name: cmd.Args[0].Value, Family: cmd.Args[0].Value}
	attrs := blockAttrs(cmd.Block)
	font.Src = attrs["src"]
	font.Style = attrs["style"]
	if v := attrs["family"]; v != "" {
		font.Family = v
	}
	return font
}

func (b *builder) imageResource(cmd *Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("image 资源缺少名称")
	}
	image := layout.ImageResource{Name: cmd.Args[0].Value}
	attrs := blockAttrs(cmd.Block)
	image.Src = attrs["src"]
	for key, dst := range map[string]*float64{"width": &image.Width, "height": &image.Height} {
		v, ok := attrs[key]
		if !ok {
			continue
		}
		pt, err := dimensionPt(v)
		if err != nil {
			return err
		}
		*dst = pt * layout.PtToMm
	}
	b.out.Resources.Images[image.Name] = image
	return nil
}

func (b *builder) styleResource(cmd *Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("style 资源缺少名称")
	}
	style := document.ParagraphStyle{Name: cmd.Args[0].Value}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Parent = cmd.Args[2].Value
	}
	if err := b.paragraphAttrs(blockAttrs(cmd.Block), &style.Block, &style.Char); err != nil {
		return fmt.Errorf("style %s: %w", style.Name, err)
	}
	b.doc.Styles.Add(style)
	return nil
}

func (b *builder) listResource(cmd *Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("list 资源缺少名称")
	}
	style := &document.ListStyle{Name: cmd.Args[0].Value, Levels: map[int]*document.ListLevel{}}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			switch {
			case stmt.Assignment != nil && stmt.Assignment.Key == "continue":
				v, err := parseBool(valueToString(stmt.Assignment.Value))
				if err != nil {
					return err
				}
				style.ContinueNumbering = v
			case stmt.Command != nil && stmt.Command.Name == "level":
				lvl, err := b.listLevel(stmt.Command)
				if err != nil {
					return fmt.Errorf("list %s: %w", style.Name, err)
				}
				style.Levels[lvl.Level] = lvl
			}
		}
	}
	if len(style.Levels) == 0 {
		style.Levels[1] = &document.ListLevel{Level: 1, Format: document.FormatBullet}
	}
	b.doc.Lists[style.Name] = style
	return nil
}

func (b *builder) listLevel(cmd *Command) (*document.ListLevel, error) {
	if len(cmd.Args) == 0 {
		return nil, fmt.Errorf("level 缺少层级编号")
	}
	n, err := parseInt(cmd.Args[0].Value)
	if err != nil {
		return nil, err
	}
	lvl := &document.ListLevel{Level: n, Format: document.FormatDecimal}
	for key, value := range blockAttrs(cmd.Block) {
		switch key {
		case "format":
			lvl.Format, err = numberFormat(value)
		case "start":
			lvl.StartValue, err = parseInt(value)
		case "prefix":
			lvl.Prefix = value
		case "suffix":
			lvl.Suffix = value
		case "display":
			lvl.DisplayLevels, err = parseInt(value)
		case "bullet":
			if r := []rune(value); len(r) > 0 {
				lvl.BulletChar = r[0]
			}
		case "letter-sync":
			lvl.LetterSync, err = parseBool(value)
		case "alignment-mode":
			lvl.AlignmentMode, err = parseBool(value)
		case "indent":
			lvl.Indent, err = dimensionPt(value)
		case "min-label-width":
			lvl.MinLabelWidth, err = dimensionPt(value)
		case "min-label-distance":
			lvl.MinLabelDistance, err = dimensionPt(value)
		case "margin":
			lvl.Margin, err = dimensionPt(value)
		case "text-indent":
			lvl.TextIndent, err = dimensionPt(value)
		case "tab-position":
			lvl.TabPosition, err = dimensionPt(value)
			lvl.HasTabPosition = true
		case "followed-by":
			lvl.FollowedBy, err = lookup(followedBy, value, "标签分隔方式")
		case "label-align":
			lvl.LabelAlignment, err = lookup(alignments, value, "对齐方式")
		case "relative-size":
			var pct float64
			if pct, _, err = percent(value); err == nil {
				lvl.RelativeBulletSize = pct
			}
		case "image-width":
			lvl.ImageWidth, err = dimensionPt(value)
		case "image-height":
			lvl.ImageHeight, err = dimensionPt(value)
		}
		if err != nil {
			return nil, fmt.Errorf("level %d %s: %w", n, key, err)
		}
	}
	return lvl, nil
}

func (b *builder) bibResource(cmd *Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("bib 资源缺少键名")
	}
	attrs := blockAttrs(cmd.Block)
	e := &document.BibEntry{
		Key:       cmd.Args[0].Value,
		Type:      attrs["type"],
		Author:    attrs["author"],
		Title:     attrs["title"],
		Year:      attrs["year"],
		Publisher: attrs["publisher"],
		Journal:   attrs["journal"],
		URL:       attrs["url"],
	}
	b.doc.Bibliography[e.Key] = e
	return nil
}

func (b *builder) notesResource(cmd *Command) error {
	cfg := &b.doc.Notes
	var err error
	for key, value := range blockAttrs(cmd.Block) {
		switch key {
		case "footnotes":
			cfg.FootNotes.Format, err = numberFormat(value)
		case "footnote-start":
			cfg.FootNotes.Start, err = parseInt(value)
		case "footnote-prefix":
			cfg.FootNotes.Prefix = value
		case "footnote-suffix":
			cfg.FootNotes.Suffix = value
		case "footnote-scope":
			cfg.FootNotes.Scope, err = lookup(scopes, value, "编号范围")
		case "endnotes":
			cfg.EndNotes.Format, err = numberFormat(value)
		case "endnote-start":
			cfg.EndNotes.Start, err = parseInt(value)
		case "endnote-prefix":
			cfg.EndNotes.Prefix = value
		case "endnote-suffix":
			cfg.EndNotes.Suffix = value
		case "separator-width":
			var pct float64
			if pct, _, err = percent(strings.TrimSuffix(value, "%") + "%"); err == nil {
				cfg.SeparatorWidth = pct
			}
		case "separator-space":
			cfg.SeparatorSpace, err = dimensionPt(value)
		case "separator-weight":
			cfg.SeparatorWeight, err = sizePt(value)
		}
		if err != nil {
			return fmt.Errorf("notes %s: %w", key, err)
		}
	}
	return nil
}

// pageFormat reads a page header ("A4 landscape margin 20mm columns 2")
// and an optional page-set block on top of base.
func pageFormat(base layout.PageFormat, size string, params []*Lexeme, attrs map[string]string) (layout.PageFormat, error) {
	f := base
	if attrs == nil {
		attrs = map[string]string{}
	}
	if size != "" {
		s, ok := layout.PaperSize(size)
		if !ok {
			return f, fmt.Errorf("暂不支持的纸张尺寸：%s", size)
		}
		f.Size = s
	}
	landscape := false
	for i := 0; i < len(params); i++ {
		switch params[i].Value {
		case "landscape":
			landscape = true
		case "portrait":
			landscape = false
		case "margin":
			var vals []float64
			for j := i + 1; j < len(params) && len(vals) < 4; j++ {
				v, err := dimensionPt(params[j].Value)
				if err != nil {
					break
				}
				vals = append(vals, v)
			}
			f.Margins = layout.MarginShorthand(vals, f.Margins)
			i += len(vals)
		case "columns", "gap", "header", "footer":
			if i+1 < len(params) {
				attrs[params[i].Value] = params[i+1].Value
				i++
			}
		}
	}
	if v, ok := attrs["size"]; ok {
		parts := strings.Fields(v)
		if len(parts) > 0 {
			s, ok := layout.PaperSize(parts[0])
			if !ok {
				return f, fmt.Errorf("暂不支持的纸张尺寸：%s", parts[0])
			}
			f.Size = s
			landscape = len(parts) > 1 && parts[1] == "landscape"
		}
	}
	if attrs["orientation"] == "landscape" {
		landscape = true
	}
	if v, ok := attrs["margin"]; ok {
		var vals []float64
		for _, p := range strings.Fields(v) {
			pt, err := dimensionPt(p)
			if err != nil {
				return f, err
			}
			vals = append(vals, pt)
		}
		f.Margins = layout.MarginShorthand(vals, f.Margins)
	}
	var err error
	if v, ok := attrs["columns"]; ok {
		if f.Columns, err = parseInt(v); err != nil {
			return f, err
		}
	}
	for key, dst := range map[string]*float64{"gap": &f.ColumnGap, "header": &f.HeaderHeight, "footer": &f.FooterHeight} {
		if v, ok := attrs[key]; ok {
			if *dst, err = dimensionPt(v); err != nil {
				return f, err
			}
		}
	}
	if landscape && f.Size.W < f.Size.H {
		f.Size.W, f.Size.H = f.Size.H, f.Size.W
	}
	return f, nil
}
