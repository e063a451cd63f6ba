package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/runaround"
)

// A4 in points.
var A4 = geom.Size{W: 595.28, H: 841.89}

var paperSizes = map[string]geom.Size{
	"A3":     {W: 297 * MmToPt, H: 420 * MmToPt},
	"A4":     A4,
	"A5":     {W: 148 * MmToPt, H: 210 * MmToPt},
	"B5":     {W: 176 * MmToPt, H: 250 * MmToPt},
	"LETTER": {W: 612, H: 792},
	"LEGAL":  {W: 612, H: 1008},
}

// PaperSize returns the portrait size of a named paper format in points.
func PaperSize(name string) (geom.Size, bool) {
	s, ok := paperSizes[strings.ToUpper(strings.TrimSpace(name))]
	return s, ok
}

// MarginShorthand applies CSS-like margin shorthand:
// 1 value: all sides; 2 values: top/bottom and left/right;
// 3 values: top, left/right, bottom; 4 values: top, right, bottom, left.
// Any other count returns fallback.
func MarginShorthand(vals []float64, fallback document.Insets) document.Insets {
	switch len(vals) {
	case 1:
		return document.Uniform(vals[0])
	case 2:
		return document.Insets{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
	case 3:
		return document.Insets{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
	case 4:
		return document.Insets{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	}
	return fallback
}

// PageFormat is the geometry of one page style. All values are in points.
type PageFormat struct {
	Size    geom.Size       `json:"size" yaml:"size" toml:"size"`
	Margins document.Insets `json:"margins" yaml:"margins" toml:"margins"`
	// Columns splits the content box into equal columns; 0 means one.
	Columns      int     `json:"columns,omitempty" yaml:"columns" toml:"columns"`
	ColumnGap    float64 `json:"columnGap,omitempty" yaml:"columnGap" toml:"columnGap"`
	HeaderHeight float64 `json:"headerHeight,omitempty" yaml:"headerHeight" toml:"headerHeight"`
	FooterHeight float64 `json:"footerHeight,omitempty" yaml:"footerHeight" toml:"footerHeight"`
}

// DefaultPageFormat 返回 A4、四边 2cm 的单栏页面。
func DefaultPageFormat() PageFormat {
	return PageFormat{Size: A4, Margins: document.Uniform(56.69)}
}

func (f PageFormat) columns() int { return max(1, f.Columns) }

// Content is the page box minus margins, header and footer.
func (f PageFormat) Content() geom.Rect {
	return geom.RectFromLTRB(
		f.Margins.Left,
		f.Margins.Top+f.HeaderHeight,
		f.Size.W-f.Margins.Right,
		f.Size.H-f.Margins.Bottom-f.FooterHeight,
	)
}

// Column returns the rectangle of column i of the content box.
func (f PageFormat) Column(i int) geom.Rect {
	c := f.Content()
	n := f.columns()
	w := (c.W - f.ColumnGap*float64(n-1)) / float64(n)
	return geom.Rect{X: c.X + float64(i)*(w+f.ColumnGap), Y: c.Y, W: w, H: c.H}
}

// PageProvider is the built-in AreaProvider: one root area per column of a
// fixed-size page. Pages use the Default format unless content asks for a
// named master page.
type PageProvider struct {
	Default PageFormat
	Masters map[string]PageFormat
	// MaxPages stops the layout after that many pages; 0 means no limit.
	MaxPages int
	// Exclusions are page-number keyed rectangles text never flows into.
	Exclusions map[int][]geom.Rect

	areas []*Area
}

// NewPageProvider returns a provider using format for every page.
func NewPageProvider(format PageFormat) *PageProvider {
	return &PageProvider{Default: format}
}

// Format returns the page format of a master page.
func (p *PageProvider) Format(master string) PageFormat {
	if f, ok := p.Masters[master]; ok && master != "" {
		return f
	}
	return p.Default
}

// nextPage returns where the area after prev goes.
func (p *PageProvider) nextPage(prev *Page, c Constraints) Page {
	if prev == nil {
		return p.newPage(0, c.MasterPage)
	}
	master := prev.Master
	if c.MasterPage != "" {
		master = c.MasterPage
	}
	f := p.Format(prev.Master)
	if !c.NewPageForced && master == prev.Master && prev.Column+1 < f.columns() {
		next := *prev
		next.Column++
		return next
	}
	return p.newPage(prev.Index+1, master)
}

func (p *PageProvider) newPage(index int, master string) Page {
	f := p.Format(master)
	return Page{
		Index:   index,
		Number:  index + 1,
		Master:  master,
		Size:    f.Size,
		Content: f.Content(),
	}
}

// Provide implements AreaProvider. An existing area is reused when it sits on
// the page and column the constraints lead to.
func (p *PageProvider) Provide(dl *DocumentLayout, c Constraints, index int) (*Area, bool) {
	if index > len(p.areas) {
		return nil, false
	}
	var prev *Page
	if index > 0 {
		prev = &p.areas[index-1].page
	}
	page := p.nextPage(prev, c)
	if p.MaxPages > 0 && page.Index >= p.MaxPages {
		return nil, false
	}
	if index < len(p.areas) {
		if old := p.areas[index]; old.page == page {
			return old, false
		}
		p.areas = p.areas[:index]
	}
	a := NewRootArea(dl, page)
	// a column break on the last column continues on the next page
	a.SetAcceptsColumnBreak(true)
	p.areas = append(p.areas, a)
	return a, true
}

// SuggestRect returns the column of the area.
func (p *PageProvider) SuggestRect(a *Area) geom.Rect {
	return p.Format(a.page.Master).Column(a.page.Column)
}

// RelevantObstructions turns the exclusions of the page into obstructions.
func (p *PageProvider) RelevantObstructions(a *Area) []*runaround.Obstruction {
	rects := p.Exclusions[a.page.Number]
	out := make([]*runaround.Obstruction, 0, len(rects))
	for i, r := range rects {
		out = append(out, runaround.NewRect(r, runaround.Options{
			Side: runaround.NoRunAround,
			Key:  fmt.Sprintf("exclusion-%d-%d", a.page.Number, i),
		}))
	}
	return out
}

// DoPostLayout stretches the area to the foot of its column, which is where
// footnotes are painted.
func (p *PageProvider) DoPostLayout(a *Area, _ bool) {
	a.SetBottom(p.SuggestRect(a).Bottom())
}

// ReleaseAllAfter drops the areas following a.
func (p *PageProvider) ReleaseAllAfter(a *Area) {
	for i, o := range p.areas {
		if o == a {
			p.areas = p.areas[:i+1]
			return
		}
	}
}
