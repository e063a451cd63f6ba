package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/textflow/document"
)

// 布局内部统一使用 pt；该文件负责把带单位的输入长度换算为 pt。

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// String returns the unit suffix.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	}
	return ""
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// IsZero reports a zero value.
func (l Length) IsZero() bool { return l.Value == 0 }

// Pt converts the length to points. Unit-less values are already points.
func (l Length) Pt() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * 72
	}
	return l.Value
}

// Mm converts the length to millimeters.
func (l Length) Mm() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	}
	return l.Value * PtToMm
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}}

// ParseLength parses "12pt", "2.5cm", "10mm", "1in" or a bare number (pt).
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, nil
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// MustPt parses value and returns points, or fallback when it does not parse.
func MustPt(value string, fallback float64) float64 {
	l, err := ParseLength(value)
	if err != nil || strings.TrimSpace(value) == "" {
		return fallback
	}
	return l.Pt()
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec keeps the author's intent: a factor (1.2) or an absolute length (18pt).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight reads "1.5", "150%" or an absolute length.
func ParseLineHeight(value string) (LineHeightSpec, error) {
	v := strings.TrimSpace(value)
	if pct, ok := strings.CutSuffix(v, "%"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return LineHeightSpec{}, fmt.Errorf("无法解析行高 %q: %w", value, err)
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f / 100}, nil
	}
	l, err := ParseLength(v)
	if err != nil {
		return LineHeightSpec{}, err
	}
	if l.Unit == UnitNone {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, nil
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, nil
}

// Resolve computes the absolute line height in pt for a font size in pt.
func (s LineHeightSpec) Resolve(fontSize float64) float64 {
	switch s.Kind {
	case LineHeightFactor:
		return fontSize * s.Factor
	case LineHeightAbsolute:
		return s.Len.Pt()
	}
	return fontSize * 1.2
}

// Paragraph maps the spec onto paragraph line-height properties.
func (s LineHeightSpec) Paragraph() document.LineHeight {
	if s.Kind == LineHeightAbsolute {
		return document.LineHeight{Fixed: s.Len.Pt()}
	}
	return document.LineHeight{Percent: s.Factor * 100}
}
