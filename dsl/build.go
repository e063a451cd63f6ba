package dsl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/textflow/binding"
	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/generator"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/layout"
)

// ErrUnknownCommand is wrapped by build errors for commands the builder
// does not know.
var ErrUnknownCommand = errors.New("未知指令")

// BuildOptions configure Build.
type BuildOptions struct {
	// Data is bound into text literals through ${path} placeholders.
	Data any
	// DefaultChar is the character format beneath every paragraph style.
	DefaultChar document.CharFormat
	// Page is the page format used when the document has no page section.
	Page layout.PageFormat
	// TabInterval is the default tab distance in pt; 0 keeps the document default.
	TabInterval float64
	// Notes replaces the default note numbering; a notes resource still wins.
	Notes *document.NotesConfig
}

// Output is a built document with everything the layout and the renderer
// need besides it.
type Output struct {
	Document  *document.Document
	Resources layout.ResourceSet
	// Page is the default page format; Masters are the named page formats.
	Page    layout.PageFormat
	Masters map[string]layout.PageFormat
	// Images maps anchor IDs to image resource names.
	Images map[string]string
	// Indexes are the generated blocks in document order.
	Indexes []Index
	// Unbound lists placeholder paths the data did not resolve.
	Unbound []string
}

// Index binds a generated block to its generator.
type Index struct {
	Host      *document.Block
	Generator generator.Generator
}

// PageProvider returns a provider using the page formats of the output.
func (o *Output) PageProvider() *layout.PageProvider {
	p := layout.NewPageProvider(o.Page)
	p.Masters = o.Masters
	return p
}

type pending struct {
	kind   document.BreakKind
	master string
}

type builder struct {
	opts    BuildOptions
	scope   *binding.Scope
	doc     *document.Document
	out     *Output
	colors  map[string]document.Color
	pending pending
	notes   int
	anchors int
}

// Build converts a parsed document into the document model. Paragraph
// styles are resolved and applied before returning.
func Build(ast *Document, opts BuildOptions) (*Output, error) {
	if ast == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Page.Size.W == 0 {
		opts.Page = layout.DefaultPageFormat()
	}
	doc := document.New()
	doc.DefaultChar = opts.DefaultChar
	if opts.TabInterval > 0 {
		doc.TabInterval = opts.TabInterval
	}
	if opts.Notes != nil {
		doc.Notes = *opts.Notes
	}
	b := &builder{
		opts:  opts,
		scope: binding.NewScope(opts.Data),
		doc:   doc,
		out: &Output{
			Document: doc,
			Resources: layout.ResourceSet{
				Fonts:  map[string]layout.FontResource{},
				Images: map[string]layout.ImageResource{},
			},
			Page:    opts.Page,
			Masters: map[string]layout.PageFormat{},
			Images:  map[string]string{},
		},
		colors: map[string]document.Color{},
	}
	b.collectMeta(ast)
	if err := b.collectPageSets(ast); err != nil {
		return nil, err
	}
	if err := b.collectResources(ast); err != nil {
		return nil, err
	}
	pages := 0
	for _, section := range ast.Sections {
		if section.Page == nil {
			continue
		}
		if err := b.page(section.Page, pages); err != nil {
			return nil, err
		}
		pages++
	}
	doc.Reindex()
	if err := doc.Styles.ApplyAll(doc); err != nil {
		return nil, fmt.Errorf("应用段落样式失败: %w", err)
	}
	b.out.Unbound = b.scope.Missing()
	return b.out, nil
}

func (b *builder) errorf(cmd *Command, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	if cmd == nil {
		return err
	}
	return fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
}

func (b *builder) collectPageSets(ast *Document) error {
	for _, section := range ast.Sections {
		if section.PageSet == nil {
			continue
		}
		ps := section.PageSet
		f, err := pageFormat(b.out.Page, "", nil, blockAttrs(ps.Block))
		if err != nil {
			return fmt.Errorf("page-set %s: %w", ps.Name, err)
		}
		b.out.Masters[ps.Name] = f
	}
	return nil
}

// page builds one page section. The first defines the default page format;
// each later one starts on a new page with its own master page.
func (b *builder) page(p *PageSection, index int) error {
	f, err := pageFormat(b.out.Page, p.Spec.Size, p.Spec.Params, nil)
	if err != nil {
		return err
	}
	if index == 0 {
		b.out.Page = f
	} else {
		master := fmt.Sprintf("page-%d", index+1)
		b.out.Masters[master] = f
		b.pending.master = master
	}
	if p.Block == nil {
		return nil
	}
	return b.content(p.Block, b.doc.Root)
}

// content appends the items of block to frame.
func (b *builder) content(block *Block, frame *document.Frame) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt.Text != nil:
			blk := b.doc.NewBlock(document.BlockFormat{}, b.textFragment(string(stmt.Text.Value), document.CharFormat{}))
			blk.CharFormat = document.CharFormat{}
			b.attach(frame, blk)
		case stmt.Command != nil:
			if err := b.command(stmt.Command, frame); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) command(cmd *Command, frame *document.Frame) error {
	switch cmd.Name {
	case "flow":
		return b.content(cmd.Block, frame)
	case "text", "p":
		_, err := b.paragraph(cmd, frame, cmd.Args, nil)
		return err
	case "heading", "h":
		return b.heading(cmd, frame)
	case "item":
		return b.item(cmd, frame)
	case "table":
		return b.table(cmd, frame)
	case "image", "object":
		frag, err := b.anchor(cmd)
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
		blk := b.doc.NewBlock(document.BlockFormat{}, frag)
		blk.CharFormat = document.CharFormat{}
		b.attach(frame, blk)
		return nil
	case "box":
		return b.box(cmd, frame)
	case "toc":
		return b.toc(cmd, frame)
	case "bibliography":
		return b.bibliography(cmd, frame)
	case "pagebreak":
		b.pending.kind = document.BreakPage
		return nil
	case "columnbreak":
		b.pending.kind = document.BreakColumn
		return nil
	case "master":
		if len(cmd.Args) == 0 {
			return b.errorf(cmd, "缺少主页面名称")
		}
		name := cmd.Args[0].Value
		if _, ok := b.out.Masters[name]; !ok {
			return b.errorf(cmd, "主页面 %s 未定义", name)
		}
		b.pending.master = name
		return nil
	}
	return b.errorf(cmd, "%w", ErrUnknownCommand)
}

// box builds a nested frame, "box [max-width <len>] { ... }". With a
// max-width its lines do not wrap below that width and the box narrows to
// the widest line.
func (b *builder) box(cmd *Command, frame *document.Frame) error {
	_, attrs := parseArgs(cmd.Args, false)
	sub := &document.Frame{Kind: document.FrameBox}
	if v, ok := attrs["max-width"]; ok {
		w, err := dimensionPt(v)
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
		sub.ShrinkToFit = w
	}
	if err := b.content(cmd.Block, sub); err != nil {
		return err
	}
	b.attach(frame, sub)
	return nil
}

// attach appends item to frame and hands it the pending break and master page.
func (b *builder) attach(frame *document.Frame, item document.Item) {
	switch v := item.(type) {
	case *document.Block:
		if b.pending.kind != document.BreakNone {
			v.Format.BreakBefore = b.pending.kind
		}
		if b.pending.master != "" {
			v.Format.MasterPage = b.pending.master
		}
	case *document.Table:
		if b.pending.master != "" {
			// tables carry no master page, an empty paragraph takes it
			carrier := b.doc.NewBlock(document.BlockFormat{MasterPage: b.pending.master})
			carrier.CharFormat = document.CharFormat{}
			frame.Append(carrier)
		} else if b.pending.kind != document.BreakNone {
			v.Format.BreakBefore = b.pending.kind
		}
	}
	b.pending = pending{}
	frame.Append(item)
}

// paragraph builds a paragraph from "text [Style] key value ... { ... }".
func (b *builder) paragraph(cmd *Command, frame *document.Frame, args []*Lexeme, list *document.ListItem) (*document.Block, error) {
	style, attrs := parseArgs(args, true)
	format := document.BlockFormat{Style: style}
	var char document.CharFormat
	if err := b.paragraphAttrs(attrs, &format, &char); err != nil {
		return nil, b.errorf(cmd, "%w", err)
	}
	if style != "" {
		if _, ok := b.doc.Styles.Style(style); !ok {
			return nil, b.errorf(cmd, "段落样式 %s 未定义", style)
		}
	}
	blk := b.doc.NewBlock(format)
	blk.CharFormat = char
	blk.List = list
	if err := b.inline(cmd.Block, document.CharFormat{}, blk); err != nil {
		return nil, err
	}
	b.attach(frame, blk)
	return blk, nil
}

// heading builds "heading <level> [Style] ... { ... }". Without a style the
// paragraph uses "Heading<level>" when that style exists.
func (b *builder) heading(cmd *Command, frame *document.Frame) error {
	if len(cmd.Args) == 0 {
		return b.errorf(cmd, "缺少标题层级")
	}
	level, err := parseInt(cmd.Args[0].Value)
	if err != nil || level < 1 {
		return b.errorf(cmd, "标题层级无效：%s", cmd.Args[0].Value)
	}
	args := cmd.Args[1:]
	if style, _ := parseArgs(args, true); style == "" {
		if name := "Heading" + strconv.Itoa(level); b.hasStyle(name) {
			args = append([]*Lexeme{{Type: "Ident", Value: name, Raw: name}}, args...)
		}
	}
	blk, err := b.paragraph(cmd, frame, args, nil)
	if err != nil {
		return err
	}
	blk.Format.OutlineLevel = level
	return nil
}

func (b *builder) hasStyle(name string) bool {
	_, ok := b.doc.Styles.Style(name)
	return ok
}

// item builds "item <List> [level n] [restart n] [unnumbered] { ... }".
func (b *builder) item(cmd *Command, frame *document.Frame) error {
	if len(cmd.Args) == 0 {
		return b.errorf(cmd, "缺少列表名称")
	}
	li := &document.ListItem{List: cmd.Args[0].Value, Level: 1}
	if _, ok := b.doc.Lists[li.List]; !ok {
		return b.errorf(cmd, "列表 %s 未定义", li.List)
	}
	var rest []*Lexeme
	args := cmd.Args[1:]
	for i := 0; i < len(args); i++ {
		var err error
		switch args[i].Value {
		case "unnumbered":
			li.Unnumbered = true
		case "header":
			li.Header = true
		case "level", "restart":
			if i+1 >= len(args) {
				return b.errorf(cmd, "%s 缺少取值", args[i].Value)
			}
			n, perr := parseInt(args[i+1].Value)
			if args[i].Value == "level" {
				li.Level = n
			} else {
				li.Restart = n
			}
			err = perr
			i++
		default:
			rest = append(rest, args[i])
		}
		if err != nil {
			return b.errorf(cmd, "%w", err)
		}
	}
	_, err := b.paragraph(cmd, frame, rest, li)
	return err
}

// inline appends the fragments of block to blk.
func (b *builder) inline(block *Block, format document.CharFormat, blk *document.Block) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			blk.Fragments = append(blk.Fragments, b.textFragment(string(stmt.Text.Value), format))
			continue
		}
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		switch cmd.Name {
		case "b", "bold", "i", "italic", "sup", "sub", "span":
			f := format
			switch cmd.Name {
			case "b", "bold":
				f.Bold = true
			case "i", "italic":
				f.Italic = true
			case "sup":
				f.Baseline = document.BaselineSuper
			case "sub":
				f.Baseline = document.BaselineSub
			}
			_, attrs := parseArgs(cmd.Args, false)
			var unused document.BlockFormat
			if err := b.paragraphAttrs(attrs, &unused, &f); err != nil {
				return b.errorf(cmd, "%w", err)
			}
			if err := b.inline(cmd.Block, f, blk); err != nil {
				return err
			}
		case "tab":
			blk.Fragments = append(blk.Fragments, document.Fragment{Text: "\t", Format: format})
		case "br":
			blk.Fragments = append(blk.Fragments, document.Fragment{Text: "\u2028", Format: format})
		case "softbreak":
			blk.Fragments = append(blk.Fragments, document.Fragment{SoftPageBreak: true})
		case "note", "footnote", "endnote":
			frag, err := b.note(cmd, format)
			if err != nil {
				return err
			}
			blk.Fragments = append(blk.Fragments, frag)
		case "cite":
			if len(cmd.Args) == 0 {
				return b.errorf(cmd, "缺少文献键名")
			}
			key := cmd.Args[0].Value
			blk.Fragments = append(blk.Fragments, document.Fragment{
				Text:     "[" + key + "]",
				Format:   format,
				Citation: &document.Citation{Key: key},
			})
			// text written on the same line follows the citation
			for _, a := range cmd.Args[1:] {
				if a.Type == "String" {
					blk.Fragments = append(blk.Fragments, b.textFragment(a.Value, format))
				}
			}
		case "image", "object":
			frag, err := b.anchor(cmd)
			if err != nil {
				return b.errorf(cmd, "%w", err)
			}
			blk.Fragments = append(blk.Fragments, frag)
		default:
			return b.errorf(cmd, "%w", ErrUnknownCommand)
		}
	}
	return nil
}

func (b *builder) textFragment(text string, format document.CharFormat) document.Fragment {
	return document.Fragment{Text: b.scope.Expand(text), Format: format}
}

// note builds "note [label x] { ... }"; text literals become one paragraph,
// commands build the note body like page content.
func (b *builder) note(cmd *Command, format document.CharFormat) (document.Fragment, error) {
	_, attrs := parseArgs(cmd.Args, false)
	b.notes++
	n := &document.Note{
		ID:    fmt.Sprintf("note-%d", b.notes),
		Label: attrs["label"],
		Frame: b.doc.NewNoteFrame(),
	}
	if cmd.Name == "endnote" {
		n.Class = document.EndNote
	}
	if id := attrs["id"]; id != "" {
		n.ID = id
	}
	if err := b.content(cmd.Block, n.Frame); err != nil {
		return document.Fragment{}, err
	}
	return document.Fragment{Note: n, Format: format}, nil
}

// anchor builds an object placeholder:
// "image <Name> [anchor page|paragraph|char|inline] [width w] [height h] ...".
func (b *builder) anchor(cmd *Command) (document.Fragment, error) {
	name, attrs := parseArgs(cmd.Args, true)
	b.anchors++
	a := &document.Anchor{ID: fmt.Sprintf("%s-%d", cmd.Name, b.anchors), Type: document.AnchorAsChar}
	if id := attrs["id"]; id != "" {
		a.ID = id
	}
	if name != "" && cmd.Name == "image" {
		img, ok := b.out.Resources.Images[name]
		if !ok {
			return document.Fragment{}, fmt.Errorf("图片资源 %s 未定义", name)
		}
		b.out.Images[a.ID] = name
		a.Label = name
		a.Size = geom.Size{W: img.Width * layout.MmToPt, H: img.Height * layout.MmToPt}
	} else if name != "" {
		a.Label = name
	}
	a.Wrap = document.WrapBoth
	var err error
	for key, value := range attrs {
		switch key {
		case "anchor":
			a.Type, err = lookup(anchorTypes, value, "锚定方式")
		case "h":
			a.HPos, err = lookup(hPositions, value, "水平位置")
		case "hrel":
			a.HRel, err = lookup(hRelations, value, "水平参照")
		case "v":
			a.VPos, err = lookup(vPositions, value, "垂直位置")
		case "vrel":
			a.VRel, err = lookup(vRelations, value, "垂直参照")
		case "wrap":
			a.Wrap, err = lookup(wrapSides, value, "环绕方式")
		case "x":
			a.Offset.X, err = dimensionPt(value)
		case "y":
			a.Offset.Y, err = dimensionPt(value)
		case "width":
			a.Size.W, err = dimensionPt(value)
		case "height":
			a.Size.H, err = dimensionPt(value)
		case "distance":
			var d float64
			if d, err = dimensionPt(value); err == nil {
				a.Distance = document.Uniform(d)
			}
		case "threshold":
			a.Threshold, err = dimensionPt(value)
		case "page":
			a.Page, err = parseInt(value)
		case "label":
			a.Label = value
		case "fill":
			var c *document.Color
			if c, err = b.color(value); err == nil {
				a.Fill = c
			}
		}
		if err != nil {
			return document.Fragment{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	if a.Type == document.AnchorPage && a.Page == 0 {
		a.Page = 1
	}
	if !a.Size.IsValid() {
		return document.Fragment{}, fmt.Errorf("对象 %s 缺少尺寸", a.ID)
	}
	return document.Fragment{Anchor: a}, nil
}

func (b *builder) color(value string) (*document.Color, error) {
	if c, ok := b.colors[value]; ok {
		return &c, nil
	}
	c, err := parseColor(value)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// paragraphAttrs applies key/value attributes to paragraph and character
// formats. Unknown keys are ignored so styles can carry renderer hints.
func (b *builder) paragraphAttrs(attrs map[string]string, bf *document.BlockFormat, cf *document.CharFormat) error {
	for key, value := range attrs {
		if err := b.paragraphAttr(key, value, bf, cf); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (b *builder) paragraphAttr(key, value string, bf *document.BlockFormat, cf *document.CharFormat) error {
	var err error
	switch key {
	case "font":
		cf.Font = value
	case "size":
		cf.Size, err = sizePt(value)
	case "bold":
		cf.Bold, err = parseBool(value)
	case "italic":
		cf.Italic, err = parseBool(value)
	case "color":
		cf.Color, err = b.color(value)
	case "baseline":
		cf.Baseline, err = lookup(baselines, value, "基线偏移")
	case "align":
		bf.Alignment, err = lookup(alignments, value, "对齐方式")
	case "direction":
		bf.Direction, err = lookup(directions, value, "书写方向")
	case "line-height":
		var spec layout.LineHeightSpec
		if spec, err = layout.ParseLineHeight(strings.TrimSuffix(value, "x")); err == nil {
			bf.LineHeight = spec.Paragraph()
		}
	case "line-spacing":
		bf.LineHeight.Spacing, err = sizePt(value)
	case "min-line-height":
		bf.LineHeight.Minimum, err = sizePt(value)
	case "space-before", "margin-top":
		bf.TopMargin, err = sizePt(value)
	case "space-after", "margin-bottom":
		bf.BottomMargin, err = sizePt(value)
	case "margin-left":
		bf.LeftMargin, err = dimensionPt(value)
	case "margin-right":
		bf.RightMargin, err = dimensionPt(value)
	case "indent":
		bf.TextIndent, err = dimensionPt(value)
	case "auto-indent":
		bf.AutoTextIndent, err = parseBool(value)
	case "background":
		bf.Background, err = b.color(value)
	case "border":
		var w float64
		if w, err = sizePt(value); err == nil {
			c := document.Color{}
			if old := bf.Borders.Top.Color; old != (document.Color{}) {
				c = old
			}
			line := document.BorderLine{Width: w, Color: c}
			bf.Borders.Top, bf.Borders.Bottom, bf.Borders.Left, bf.Borders.Right = line, line, line, line
		}
	case "border-color":
		var c *document.Color
		if c, err = b.color(value); err == nil {
			bf.Borders.Top.Color, bf.Borders.Bottom.Color = *c, *c
			bf.Borders.Left.Color, bf.Borders.Right.Color = *c, *c
		}
	case "padding":
		var p float64
		if p, err = sizePt(value); err == nil {
			bf.Borders.PaddingTop, bf.Borders.PaddingBottom = p, p
			bf.Borders.PaddingLeft, bf.Borders.PaddingRight = p, p
		}
	case "keep-with-next":
		bf.KeepWithNext, err = parseBool(value)
	case "keep-together":
		bf.KeepTogether, err = parseBool(value)
	case "orphans":
		bf.OrphanThreshold, err = parseInt(value)
	case "widows":
		bf.WidowThreshold, err = parseInt(value)
	case "break-before":
		bf.BreakBefore, err = lookup(breakKinds, value, "分页方式")
	case "break-after":
		bf.BreakAfter, err = lookup(breakKinds, value, "分页方式")
	case "master":
		if _, ok := b.out.Masters[value]; !ok {
			return fmt.Errorf("主页面 %s 未定义", value)
		}
		bf.MasterPage = value
	case "outline":
		bf.OutlineLevel, err = parseInt(value)
	case "drop-caps":
		bf.DropCaps.Lines, err = parseInt(value)
	case "drop-caps-length":
		bf.DropCaps.Length, err = parseInt(value)
	case "drop-caps-distance":
		bf.DropCaps.Distance, err = sizePt(value)
	case "tab-interval":
		bf.TabInterval, err = dimensionPt(value)
	case "tabs-relative":
		bf.TabsRelativeToIndent, err = parseBool(value)
	case "tabs":
		bf.TabStops, err = b.tabStops(value)
	}
	return err
}

// tabStops parses "72pt, 120mm right ., 80mm char ." into tab stops; the
// optional third field is the leader, or the delimiter of a char tab.
func (b *builder) tabStops(value string) ([]document.TabStop, error) {
	var out []document.TabStop
	for _, entry := range strings.Split(value, ",") {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		pos, err := dimensionPt(fields[0])
		if err != nil {
			return nil, err
		}
		ts := document.TabStop{Position: pos}
		if len(fields) > 1 {
			if ts.Type, err = lookup(tabTypes, fields[1], "制表位类型"); err != nil {
				return nil, err
			}
		}
		if len(fields) > 2 {
			r := []rune(fields[2])[0]
			if ts.Type == document.TabChar {
				ts.Delimiter = r
			} else {
				ts.Leader = r
			}
		}
		out = append(out, ts)
	}
	return out, nil
}
