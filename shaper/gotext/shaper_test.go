package gotext

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/fonts"
	"github.com/ByLCY/textflow/layout"
)

func TestAdvancesMatchTextWidth(t *testing.T) {
	s := New(layout.ResourceSet{}, nil)
	format := document.CharFormat{Size: 12}
	text := []rune("hello world")

	adv := s.Advances(format, text)
	require.Len(t, adv, len(text), "每个字符都应有一个步进值")

	sum := 0.0
	for _, a := range adv {
		sum += a
	}
	width := s.TextWidth(format, string(text))
	assert.Greater(t, width, 0.0)
	if math.Abs(sum-width) > 0.05 {
		t.Fatalf("步进之和 %.3f 与整体宽度 %.3f 不一致", sum, width)
	}
}

func TestWidthScalesWithFontSize(t *testing.T) {
	s := New(layout.ResourceSet{}, nil)
	small := s.TextWidth(document.CharFormat{Size: 10}, "Typesetting")
	large := s.TextWidth(document.CharFormat{Size: 20}, "Typesetting")
	if math.Abs(large-2*small) > 0.1 {
		t.Fatalf("字号加倍后宽度应加倍: small=%.3f large=%.3f", small, large)
	}
}

func TestMetricsFromEmbeddedFont(t *testing.T) {
	s := New(layout.ResourceSet{}, nil)
	m := s.Metrics(document.CharFormat{Size: 10})
	assert.Greater(t, m.Ascent, 0.0)
	assert.Greater(t, m.Descent, 0.0)
	assert.Less(t, m.Ascent+m.Descent, 15.0, "行高度量应与字号同一量级")
}

func TestBoldUsesBoldFace(t *testing.T) {
	s := New(layout.ResourceSet{}, nil)
	regular := s.TextWidth(document.CharFormat{Size: 12}, "Bold text")
	bold := s.TextWidth(document.CharFormat{Size: 12, Bold: true}, "Bold text")
	assert.NotEqual(t, regular, bold, "粗体应使用不同的字形")
}

func TestResourceFontAndFallback(t *testing.T) {
	resources := layout.ResourceSet{Fonts: map[string]layout.FontResource{
		"Sans":   {Name: "Sans", Family: "Sans", Src: "embed:lmsans10-regular"},
		"Broken": {Name: "Broken", Family: "Broken", Src: "built-in:missing"},
	}}
	s := New(resources, fonts.NewLoader("", nil))

	sans := s.TextWidth(document.CharFormat{Font: "Sans", Size: 12}, "mmmm")
	roman := s.TextWidth(document.CharFormat{Size: 12}, "mmmm")
	assert.NotEqual(t, sans, roman, "资源字体应替代回退字体")

	broken := s.TextWidth(document.CharFormat{Font: "Broken", Size: 12}, "mmmm")
	assert.InDelta(t, roman, broken, 1e-9, "无法加载的字体应回退到内置字体")
}
