package document

import "fmt"

// MaximumTabPos 是索引生成器（目录）使用的特殊制表位，布局时解析为段落右边缘。
const MaximumTabPos = 10000.0

// ObjectReplacement stands in the text stream for anchors, note references
// and soft page breaks.
const ObjectReplacement = '\uFFFC'

// Color is an 8-bit RGB colour.
type Color struct {
	R int `json:"r" yaml:"r" toml:"r"`
	G int `json:"g" yaml:"g" toml:"g"`
	B int `json:"b" yaml:"b" toml:"b"`
}

// Hex renders the colour as #rrggbb.
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// DefaultTextColor 与渲染器默认文字颜色保持一致。
var DefaultTextColor = Color{R: 30, G: 30, B: 30}

// Direction is the text progression direction of a paragraph.
type Direction int

const (
	DirectionAuto Direction = iota
	DirectionLTR
	DirectionRTL
	DirectionInherit
)

// Alignment is the horizontal alignment of paragraph lines.
type Alignment int

const (
	AlignStart Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
	AlignJustify
	AlignEnd
)

// BreakKind controls forced breaks before or after content.
type BreakKind int

const (
	BreakNone BreakKind = iota
	BreakPage
	BreakColumn
)

// BaselineShift moves characters above or below the baseline.
type BaselineShift int

const (
	BaselineNormal BaselineShift = iota
	BaselineSuper
	BaselineSub
)

// CharFormat holds the character properties the layout consumes.
type CharFormat struct {
	Font     string        `json:"font,omitempty"`
	Size     float64       `json:"size,omitempty"` // pt
	Bold     bool          `json:"bold,omitempty"`
	Italic   bool          `json:"italic,omitempty"`
	Color    *Color        `json:"color,omitempty"`
	Baseline BaselineShift `json:"baseline,omitempty"`
}

// FontSize returns Size or the 12pt default.
func (f CharFormat) FontSize() float64 {
	if f.Size <= 0 {
		return 12
	}
	return f.Size
}

// TextColor returns Color or the default text colour.
func (f CharFormat) TextColor() Color {
	if f.Color == nil {
		return DefaultTextColor
	}
	return *f.Color
}

// LineHeight mirrors the paragraph line-height properties: a fixed height wins,
// otherwise the natural height is scaled by Percent (120 when unset) unless an
// explicit Spacing is given; Minimum clamps the result.
type LineHeight struct {
	Fixed   float64 `json:"fixed,omitempty"`
	Percent float64 `json:"percent,omitempty"`
	Spacing float64 `json:"spacing,omitempty"`
	Minimum float64 `json:"minimum,omitempty"`
}

// TabType is the alignment of text at a tab stop.
type TabType int

const (
	TabLeft TabType = iota
	TabRight
	TabCenter
	TabChar
)

// TabStop is one explicit tab position, relative to the paragraph start margin.
type TabStop struct {
	Position  float64 `json:"position"`
	Type      TabType `json:"type,omitempty"`
	Delimiter rune    `json:"delimiter,omitempty"`
	Leader    rune    `json:"leader,omitempty"`
}

// BorderLine is one side of a paragraph or cell border.
type BorderLine struct {
	Width float64 `json:"width,omitempty"`
	Color Color   `json:"color"`
}

// Borders describes a paragraph border box and its padding.
type Borders struct {
	Top    BorderLine `json:"top"`
	Left   BorderLine `json:"left"`
	Bottom BorderLine `json:"bottom"`
	Right  BorderLine `json:"right"`

	PaddingTop    float64 `json:"paddingTop,omitempty"`
	PaddingLeft   float64 `json:"paddingLeft,omitempty"`
	PaddingBottom float64 `json:"paddingBottom,omitempty"`
	PaddingRight  float64 `json:"paddingRight,omitempty"`
}

// IsZero reports whether no side has a visible line.
func (b Borders) IsZero() bool {
	return b.Top.Width <= 0 && b.Left.Width <= 0 && b.Bottom.Width <= 0 && b.Right.Width <= 0
}

// Equal compares the border lines only; adjacent paragraphs whose borders are
// equal share one border box.
func (b Borders) Equal(o Borders) bool {
	return b.Top == o.Top && b.Left == o.Left && b.Bottom == o.Bottom && b.Right == o.Right
}

// DropCaps configures enlarged leading characters.
type DropCaps struct {
	Lines    int     `json:"lines,omitempty"`
	Length   int     `json:"length,omitempty"` // 0 means the whole first word
	Distance float64 `json:"distance,omitempty"`
}

// Enabled reports whether drop caps span more than one line.
func (d DropCaps) Enabled() bool { return d.Lines > 1 }

// BlockFormat holds the paragraph properties the layout consumes.
type BlockFormat struct {
	Style string `json:"style,omitempty"`

	TopMargin      float64 `json:"topMargin,omitempty"`
	BottomMargin   float64 `json:"bottomMargin,omitempty"`
	LeftMargin     float64 `json:"leftMargin,omitempty"`
	RightMargin    float64 `json:"rightMargin,omitempty"`
	TextIndent     float64 `json:"textIndent,omitempty"`
	AutoTextIndent bool    `json:"autoTextIndent,omitempty"`

	Alignment  Alignment  `json:"alignment,omitempty"`
	Direction  Direction  `json:"direction,omitempty"`
	LineHeight LineHeight `json:"lineHeight"`

	Borders    Borders `json:"borders"`
	Background *Color  `json:"background,omitempty"`

	TabStops             []TabStop `json:"tabStops,omitempty"`
	TabInterval          float64   `json:"tabInterval,omitempty"`
	TabsRelativeToIndent bool      `json:"tabsRelativeToIndent,omitempty"`

	BreakBefore     BreakKind `json:"breakBefore,omitempty"`
	BreakAfter      BreakKind `json:"breakAfter,omitempty"`
	MasterPage      string    `json:"masterPage,omitempty"`
	KeepWithNext    bool      `json:"keepWithNext,omitempty"`
	KeepTogether    bool      `json:"keepTogether,omitempty"`
	OrphanThreshold int       `json:"orphans,omitempty"`
	WidowThreshold  int       `json:"widows,omitempty"`

	DropCaps     DropCaps `json:"dropCaps"`
	OutlineLevel int      `json:"outlineLevel,omitempty"`
}

// Insets are per-side distances.
type Insets struct {
	Left   float64 `json:"left,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Right  float64 `json:"right,omitempty"`
	Bottom float64 `json:"bottom,omitempty"`
}

// Uniform returns the same inset on every side.
func Uniform(v float64) Insets { return Insets{Left: v, Top: v, Right: v, Bottom: v} }
