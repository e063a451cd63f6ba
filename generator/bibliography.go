package generator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

// Order is the ordering of bibliography entries.
type Order int

const (
	// OrderCited lists entries in order of first citation.
	OrderCited Order = iota
	// OrderKey sorts entries by key.
	OrderKey
)

// DefaultTemplates format entries per bibliography type. Fields are written
// as {name}; a field that is empty drops the text up to the next field.
var DefaultTemplates = map[string]string{
	"article": "{author}. {title}. {journal}, {year}.",
	"book":    "{author}. {title}. {publisher}, {year}.",
	"":        "{author}. {title}. {year}.",
}

// DefaultMinSimilarity is the similarity a citation key needs to be
// matched against an entry key it does not equal.
const DefaultMinSimilarity = 0.8

// Bibliography lists the cited entries of the document as "[n] text".
type Bibliography struct {
	Title      string
	TitleStyle string
	EntryStyle string
	Order      Order
	// Templates override DefaultTemplates per type; "" is the fallback.
	Templates map[string]string
	// MinSimilarity is the threshold of fuzzy key resolution; 0 means
	// DefaultMinSimilarity, a negative value disables fuzzy matching.
	MinSimilarity float64
	// NumberCitations rewrites the citation text in the main flow to the
	// entry number.
	NumberCitations bool
}

// Cited is one bibliography entry with its number.
type Cited struct {
	Number int
	Entry  *document.BibEntry
	// Keys are the citation keys that resolved to the entry.
	Keys []string
}

// Resolve maps a citation key to an entry: exactly, or else to the most
// similar entry key above the threshold.
func (bib *Bibliography) Resolve(doc *document.Document, key string) (*document.BibEntry, bool) {
	if e, ok := doc.Bibliography[key]; ok {
		return e, true
	}
	threshold := bib.MinSimilarity
	if threshold == 0 {
		threshold = DefaultMinSimilarity
	}
	if threshold < 0 {
		return nil, false
	}
	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false
	var best *document.BibEntry
	bestScore := 0.0
	for k, e := range doc.Bibliography {
		score := strutil.Similarity(key, k, metric)
		if score > bestScore || (score == bestScore && best != nil && k < best.Key) {
			best, bestScore = e, score
		}
	}
	if best == nil || bestScore < threshold {
		return nil, false
	}
	layout.Logger().Warn("citation key resolved fuzzily", "key", key, "entry", best.Key, "similarity", bestScore)
	return best, true
}

// Entries returns the cited entries numbered in bibliography order.
func (bib *Bibliography) Entries(doc *document.Document) []Cited {
	var out []*Cited
	byKey := map[string]*Cited{}
	doc.Walk(func(b *document.Block) bool {
		for _, f := range b.Fragments {
			if f.Citation == nil {
				continue
			}
			e, ok := bib.Resolve(doc, f.Citation.Key)
			if !ok {
				layout.Logger().Warn("unknown citation", "key", f.Citation.Key, "block", b.ID)
				continue
			}
			c, seen := byKey[e.Key]
			if !seen {
				c = &Cited{Entry: e}
				byKey[e.Key] = c
				out = append(out, c)
			}
			if !slices.Contains(c.Keys, f.Citation.Key) {
				c.Keys = append(c.Keys, f.Citation.Key)
			}
		}
		return true
	})
	if bib.Order == OrderKey {
		slices.SortStableFunc(out, func(a, b *Cited) int { return strings.Compare(a.Entry.Key, b.Entry.Key) })
	}
	res := make([]Cited, len(out))
	for i, c := range out {
		c.Number = i + 1
		res[i] = *c
	}
	return res
}

var fieldPattern = regexp.MustCompile(`\{([a-z-]+)\}`)

// Format renders one entry with the template of its type.
func (bib *Bibliography) Format(e *document.BibEntry) string {
	tmpl, ok := bib.Templates[e.Type]
	if !ok {
		tmpl, ok = DefaultTemplates[e.Type]
	}
	if !ok {
		if tmpl, ok = bib.Templates[""]; !ok {
			tmpl = DefaultTemplates[""]
		}
	}
	var sb strings.Builder
	locs := fieldPattern.FindAllStringSubmatchIndex(tmpl, -1)
	if len(locs) > 0 {
		sb.WriteString(tmpl[:locs[0][0]])
	}
	for i, loc := range locs {
		end := len(tmpl)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := e.Field(tmpl[loc[2]:loc[3]])
		if value == "" {
			continue
		}
		sb.WriteString(value)
		sb.WriteString(tmpl[loc[1]:end])
	}
	if len(locs) == 0 {
		sb.WriteString(tmpl)
	}
	return strings.TrimSpace(sb.String())
}

func (bib *Bibliography) Generate(dl *layout.DocumentLayout) *document.Document {
	src := dl.Document()
	out := newSubDocument(src)
	if bib.Title != "" {
		format := document.BlockFormat{BottomMargin: 6}
		char := document.CharFormat{Bold: true, Size: 1.4 * src.DefaultChar.FontSize()}
		if hasStyle(src, bib.TitleStyle) {
			format = document.BlockFormat{Style: bib.TitleStyle}
			char = document.CharFormat{}
		}
		b := out.NewBlock(format, document.Fragment{Text: bib.Title})
		b.CharFormat = char
		out.Root.Append(b)
	}
	for _, c := range bib.Entries(src) {
		format := document.BlockFormat{BottomMargin: 3}
		if hasStyle(src, bib.EntryStyle) {
			format.Style = bib.EntryStyle
		}
		text := fmt.Sprintf("[%d] %s", c.Number, bib.Format(c.Entry))
		b := out.NewBlock(format, document.Fragment{Text: text})
		b.CharFormat = document.CharFormat{}
		out.Root.Append(b)
	}
	return finish(out)
}

// Relabel sets the text of every resolvable citation to "[n]" when
// NumberCitations is set.
func (bib *Bibliography) Relabel(doc *document.Document) []Relabeled {
	if !bib.NumberCitations {
		return nil
	}
	numbers := map[string]int{}
	for _, c := range bib.Entries(doc) {
		for _, k := range c.Keys {
			numbers[k] = c.Number
		}
	}
	var out []Relabeled
	doc.Walk(func(b *document.Block) bool {
		old := b.TextLength()
		changed := false
		for i := range b.Fragments {
			f := &b.Fragments[i]
			if f.Citation == nil {
				continue
			}
			n, ok := numbers[f.Citation.Key]
			if !ok {
				continue
			}
			if label := fmt.Sprintf("[%d]", n); f.Text != label {
				f.Text = label
				changed = true
			}
		}
		if changed {
			out = append(out, Relabeled{Block: b, OldText: old})
		}
		return true
	})
	return out
}
