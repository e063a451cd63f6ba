package document

// NumberFormat is the label style of a list level or note.
type NumberFormat int

const (
	FormatNone NumberFormat = iota
	FormatDecimal
	FormatAlphaLower
	FormatAlphaUpper
	FormatRomanLower
	FormatRomanUpper
	FormatBullet
	FormatImage
	FormatArabicIndic
	FormatBengali
	FormatDevanagari
	FormatGujarati
	FormatGurmukhi
	FormatKannada
	FormatMalayalam
	FormatOriya
	FormatTamil
	FormatTelugu
	FormatTibetan
	FormatThai
	FormatAbjad
	FormatAbjadMinor
	FormatArabicAlphabet
)

var numberFormatNames = map[string]NumberFormat{
	"none":            FormatNone,
	"1":               FormatDecimal,
	"decimal":         FormatDecimal,
	"a":               FormatAlphaLower,
	"A":               FormatAlphaUpper,
	"i":               FormatRomanLower,
	"I":               FormatRomanUpper,
	"bullet":          FormatBullet,
	"image":           FormatImage,
	"arabic-indic":    FormatArabicIndic,
	"bengali":         FormatBengali,
	"devanagari":      FormatDevanagari,
	"gujarati":        FormatGujarati,
	"gurmukhi":        FormatGurmukhi,
	"kannada":         FormatKannada,
	"malayalam":       FormatMalayalam,
	"oriya":           FormatOriya,
	"tamil":           FormatTamil,
	"telugu":          FormatTelugu,
	"tibetan":         FormatTibetan,
	"thai":            FormatThai,
	"abjad":           FormatAbjad,
	"abjad-minor":     FormatAbjadMinor,
	"arabic-alphabet": FormatArabicAlphabet,
}

// ParseNumberFormat maps an ODF-like format name ("1", "a", "I", "thai", ...)
// to a NumberFormat.
func ParseNumberFormat(name string) (NumberFormat, bool) {
	f, ok := numberFormatNames[name]
	return f, ok
}

// IsNumbered reports whether the format produces a counter value.
func (f NumberFormat) IsNumbered() bool {
	return f != FormatNone && f != FormatBullet && f != FormatImage
}

// LabelFollowedBy is what separates a list label from the paragraph text.
type LabelFollowedBy int

const (
	FollowedByTab LabelFollowedBy = iota
	FollowedBySpace
	FollowedByNothing
)

// ListLevel is the formatting of one nesting level of a list.
type ListLevel struct {
	Level  int          `json:"level"`
	Format NumberFormat `json:"format"`
	// StartValue is the first counter value; 0 is treated as 1.
	StartValue    int    `json:"startValue,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Suffix        string `json:"suffix,omitempty"`
	SuffixNone    bool   `json:"suffixNone,omitempty"`
	DisplayLevels int    `json:"displayLevels,omitempty"`
	BulletChar    rune   `json:"bulletChar,omitempty"`
	LetterSync    bool   `json:"letterSync,omitempty"`

	ImageWidth  float64 `json:"imageWidth,omitempty"`
	ImageHeight float64 `json:"imageHeight,omitempty"`

	// AlignmentMode selects label-alignment geometry (Margin, TextIndent,
	// FollowedBy, TabPosition) instead of label-width geometry (Indent,
	// MinLabelWidth, MinLabelDistance).
	AlignmentMode    bool            `json:"alignmentMode,omitempty"`
	Margin           float64         `json:"margin,omitempty"`
	TextIndent       float64         `json:"textIndent,omitempty"`
	FollowedBy       LabelFollowedBy `json:"followedBy,omitempty"`
	TabPosition      float64         `json:"tabPosition,omitempty"`
	HasTabPosition   bool            `json:"hasTabPosition,omitempty"`
	Indent           float64         `json:"indent,omitempty"`
	MinLabelWidth    float64         `json:"minLabelWidth,omitempty"`
	MinLabelDistance float64         `json:"minLabelDistance,omitempty"`
	LabelAlignment   Alignment       `json:"labelAlignment,omitempty"`

	RelativeBulletSize float64     `json:"relativeBulletSize,omitempty"` // percent
	LabelFormat        *CharFormat `json:"labelFormat,omitempty"`
}

// Start returns the effective start value.
func (l *ListLevel) Start() int {
	if l.StartValue == 0 {
		return 1
	}
	return l.StartValue
}

// EffectiveSuffix returns Suffix, defaulting to "." for numbered formats.
func (l *ListLevel) EffectiveSuffix() string {
	if l.SuffixNone {
		return ""
	}
	if l.Suffix == "" && l.Format.IsNumbered() {
		return "."
	}
	return l.Suffix
}

// ListStyle groups the levels of one list.
type ListStyle struct {
	Name   string             `json:"name"`
	Levels map[int]*ListLevel `json:"levels"`
	// ContinueNumbering makes the first item continue counting from the most
	// recent earlier list sharing this style name.
	ContinueNumbering bool `json:"continueNumbering,omitempty"`
}

// NewListStyle returns a style whose levels all use format.
func NewListStyle(name string, format NumberFormat) *ListStyle {
	return &ListStyle{Name: name, Levels: map[int]*ListLevel{1: {Level: 1, Format: format}}}
}

// Level returns the formatting of level n (1-based), synthesizing a default
// derived from the nearest defined level.
func (s *ListStyle) Level(n int) *ListLevel {
	if n < 1 {
		n = 1
	}
	if l, ok := s.Levels[n]; ok {
		return l
	}
	for i := n - 1; i >= 1; i-- {
		if l, ok := s.Levels[i]; ok {
			c := *l
			c.Level = n
			c.Indent = l.Indent * float64(n) / float64(i)
			c.Margin = l.Margin * float64(n) / float64(i)
			return &c
		}
	}
	return &ListLevel{Level: n, Format: FormatDecimal}
}

// ListItem attaches a block to a list.
type ListItem struct {
	List  string `json:"list"`
	Level int    `json:"level"`
	// Restart sets the counter of this item explicitly when > 0.
	Restart    int  `json:"restart,omitempty"`
	Unnumbered bool `json:"unnumbered,omitempty"`
	// Header marks a list header: part of the list but without a label.
	Header bool `json:"header,omitempty"`
}

// EffectiveLevel clamps Level to at least 1.
func (li *ListItem) EffectiveLevel() int {
	if li.Level < 1 {
		return 1
	}
	return li.Level
}
