package layout

import (
	"slices"
	"strings"

	"github.com/ByLCY/textflow/document"
)

// IsBold reports whether the style string names a bold face.
func (f FontResource) IsBold() bool {
	s := strings.ToLower(f.Style)
	return strings.Contains(s, "bold") || strings.Contains(s, "black")
}

// IsItalic reports whether the style string names an italic face.
func (f FontResource) IsItalic() bool {
	s := strings.ToLower(f.Style)
	return strings.Contains(s, "italic") || strings.Contains(s, "oblique")
}

// FontFor picks the font resource for a character format: resources whose
// name or family equals format.Font are candidates, and the one matching
// Bold and Italic best wins. An empty font name falls back to "Body".
// It reports false when no resource matches.
func (rs ResourceSet) FontFor(format document.CharFormat) (FontResource, bool) {
	name := format.Font
	if name == "" {
		name = "Body"
	}
	if exact, ok := rs.Fonts[name]; ok && exact.IsBold() == format.Bold && exact.IsItalic() == format.Italic {
		return exact, true
	}
	var candidates []FontResource
	for _, f := range rs.Fonts {
		if f.Name == name || f.Family == name {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return FontResource{}, false
	}
	slices.SortFunc(candidates, func(a, b FontResource) int { return strings.Compare(a.Name, b.Name) })
	best, bestScore := candidates[0], -1
	for _, f := range candidates {
		score := 0
		if f.IsBold() == format.Bold {
			score += 2
		}
		if f.IsItalic() == format.Italic {
			score++
		}
		if score > bestScore {
			best, bestScore = f, score
		}
	}
	return best, true
}
