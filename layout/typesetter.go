package layout

import (
	"unicode/utf8"

	"github.com/ByLCY/textflow/document"
)

// FontMetrics are the vertical metrics of one character format, in pt.
type FontMetrics struct {
	Ascent  float64
	Descent float64
	LineGap float64
}

// Typesetter is the text-shaping collaborator: it measures runs of text in a
// character format. Line breaking and placement stay in the layout.
type Typesetter interface {
	// Advances returns one horizontal advance per rune of text.
	Advances(format document.CharFormat, text []rune) []float64
	// TextWidth measures a whole string.
	TextWidth(format document.CharFormat, text string) float64
	// Metrics returns ascent, descent and gap for the format.
	Metrics(format document.CharFormat) FontMetrics
}

// FixedTypesetter measures every rune as Advance × font size. It is the
// fallback when no shaping backend is configured and keeps tests exact.
type FixedTypesetter struct {
	// Advance is the em fraction of one rune; 0 means 0.5.
	Advance float64
}

func (t FixedTypesetter) advance(format document.CharFormat) float64 {
	a := t.Advance
	if a <= 0 {
		a = 0.5
	}
	return a * format.FontSize()
}

func (t FixedTypesetter) Advances(format document.CharFormat, text []rune) []float64 {
	out := make([]float64, len(text))
	a := t.advance(format)
	for i := range out {
		out[i] = a
	}
	return out
}

func (t FixedTypesetter) TextWidth(format document.CharFormat, text string) float64 {
	return float64(utf8.RuneCountInString(text)) * t.advance(format)
}

func (t FixedTypesetter) Metrics(format document.CharFormat) FontMetrics {
	size := format.FontSize()
	return FontMetrics{Ascent: 0.8 * size, Descent: 0.2 * size}
}
