// Package gotext measures text with HarfBuzz shaping from
// github.com/go-text/typesetting, so kerning and ligatures are reflected in
// the advances the layout breaks lines with.
package gotext

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/fonts"
	"github.com/ByLCY/textflow/layout"
)

// Shaper implements layout.Typesetter. Fonts are taken from the resource set
// and fall back to the embedded Latin Modern faces; a font that cannot be
// parsed degrades to the fixed-advance measurement.
//
// Shaper is safe for concurrent use: parsed font.Font values are shared and
// every call gets its own font.Face and a pooled HarfbuzzShaper.
type Shaper struct {
	resources layout.ResourceSet
	loader    *fonts.Loader
	lang      language.Language
	fallback  layout.FixedTypesetter

	shapers sync.Pool

	mu    sync.RWMutex
	fonts map[string]*font.Font
}

var _ layout.Typesetter = (*Shaper)(nil)

// New creates a shaper for the given resources. loader may be nil when every
// font is embedded.
func New(resources layout.ResourceSet, loader *fonts.Loader) *Shaper {
	if loader == nil {
		loader = fonts.NewLoader("", nil)
	}
	return &Shaper{
		resources: resources,
		loader:    loader,
		lang:      language.NewLanguage("en"),
		shapers: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		fonts: map[string]*font.Font{},
	}
}

// SetLanguage sets the BCP 47 language passed to the shaper.
func (s *Shaper) SetLanguage(tag string) {
	s.lang = language.NewLanguage(tag)
}

func (s *Shaper) Advances(format document.CharFormat, text []rune) []float64 {
	out := make([]float64, len(text))
	if len(text) == 0 {
		return out
	}
	shaped, ok := s.shape(format, text)
	if !ok {
		return s.fallback.Advances(format, text)
	}
	for _, g := range shaped.Glyphs {
		if i := g.TextIndex(); i >= 0 && i < len(out) {
			out[i] += fixedToFloat(g.Advance)
		}
	}
	return out
}

func (s *Shaper) TextWidth(format document.CharFormat, text string) float64 {
	if text == "" {
		return 0
	}
	shaped, ok := s.shape(format, []rune(text))
	if !ok {
		return s.fallback.TextWidth(format, text)
	}
	return fixedToFloat(shaped.Advance)
}

func (s *Shaper) Metrics(format document.CharFormat) layout.FontMetrics {
	f := s.font(format)
	if f == nil {
		return s.fallback.Metrics(format)
	}
	face := font.NewFace(f)
	ext, ok := face.FontHExtents()
	upem := float64(face.Upem())
	if !ok || upem == 0 {
		return s.fallback.Metrics(format)
	}
	scale := format.FontSize() / upem
	return layout.FontMetrics{
		Ascent:  float64(ext.Ascender) * scale,
		Descent: -float64(ext.Descender) * scale,
		LineGap: float64(ext.LineGap) * scale,
	}
}

func (s *Shaper) shape(format document.CharFormat, text []rune) (shaping.Output, bool) {
	f := s.font(format)
	if f == nil {
		return shaping.Output{}, false
	}
	input := shaping.Input{
		Text:      text,
		RunStart:  0,
		RunEnd:    len(text),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(f),
		Size:      floatToFixed(format.FontSize()),
		Script:    detectScript(text),
		Language:  s.lang,
	}
	hb := s.shapers.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	s.shapers.Put(hb)
	return out, true
}

// font returns the parsed font for format, or nil when it cannot be loaded.
func (s *Shaper) font(format document.CharFormat) *font.Font {
	key, data := s.source(format)

	s.mu.RLock()
	f, ok := s.fonts[key]
	s.mu.RUnlock()
	if ok {
		return f
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fonts[key]; ok {
		return f
	}
	if data == nil {
		s.fonts[key] = nil
		return nil
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		layout.Logger().Warn("font parse failed, using fixed advances", "font", key, "error", err)
		s.fonts[key] = nil
		return nil
	}
	s.fonts[key] = face.Font
	return face.Font
}

// source resolves the cache key and bytes of the font for format.
func (s *Shaper) source(format document.CharFormat) (string, []byte) {
	if res, ok := s.resources.FontFor(format); ok {
		s.mu.RLock()
		_, cached := s.fonts[res.Src]
		s.mu.RUnlock()
		if cached {
			return res.Src, nil
		}
		data, err := s.loader.Bytes(res.Src)
		if err == nil {
			return res.Src, data
		}
		layout.Logger().Warn("font load failed, using embedded fallback", "font", res.Name, "error", err)
	}
	key := "fallback"
	if format.Bold {
		key += "-bold"
	}
	if format.Italic {
		key += "-italic"
	}
	return key, fonts.Default(format.Bold, format.Italic)
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0', '\u2028', '\u2029':
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
