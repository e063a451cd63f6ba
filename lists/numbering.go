// Package lists computes list-item labels: counter values, their text in the
// supported numbering systems, multi-level labels and label widths.
package lists

import (
	"strconv"
	"strings"

	"github.com/ByLCY/textflow/document"
)

// Capitalisation selects upper- or lower-case letters.
type Capitalisation int

const (
	Lowercase Capitalisation = iota
	Uppercase
)

var (
	romanUnits     = [...]string{"", "i", "ii", "iii", "iv", "v", "vi", "vii", "viii", "ix"}
	romanTens      = [...]string{"", "x", "xx", "xxx", "xl", "l", "lx", "lxx", "lxxx", "xc"}
	romanHundreds  = [...]string{"", "c", "cc", "ccc", "cd", "d", "dc", "dcc", "dccc", "cm"}
	romanThousands = [...]string{"", "m", "mm", "mmm"}
)

// IntToRoman returns n as a lower-case roman numeral. Values ≤ 0 fall back to
// decimal; thousands beyond 3 repeat "m".
func IntToRoman(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	thousands := n / 1000
	var prefix string
	if thousands < len(romanThousands) {
		prefix = romanThousands[thousands]
	} else {
		prefix = strings.Repeat("m", thousands)
	}
	return prefix + romanHundreds[(n/100)%10] + romanTens[(n/10)%10] + romanUnits[n%10]
}

// IntToAlpha returns n in letters. Without letter synchronization the digits
// form a bijective base-26 number (27 → aa, 28 → ab); with it every digit
// repeats the same letter (27 → aa, 28 → bb).
func IntToAlpha(n int, caps Capitalisation, letterSync bool) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	offset := 'a'
	if caps == Uppercase {
		offset = 'A'
	}
	if letterSync {
		digits := 1
		for ; n > 26; n -= 26 {
			digits++
		}
		return strings.Repeat(string(offset+rune(n-1)), digits)
	}
	var out []rune
	for n > 26 {
		bottom := (n - 1) % 26
		n = (n - 1) / 26
		out = append([]rune{offset + rune(bottom)}, out...)
	}
	out = append([]rune{offset + rune(n-1)}, out...)
	return string(out)
}

var scriptZero = map[document.NumberFormat]rune{
	document.FormatArabicIndic: 0x660,
	document.FormatDevanagari:  0x966,
	document.FormatBengali:     0x9e6,
	document.FormatGurmukhi:    0xa66,
	document.FormatGujarati:    0xae6,
	document.FormatOriya:       0xb66,
	document.FormatTamil:       0xbe6,
	document.FormatTelugu:      0xc66,
	document.FormatKannada:     0xce6,
	document.FormatMalayalam:   0xd66,
	document.FormatThai:        0xe50,
	document.FormatTibetan:     0xf20,
}

// IsScript reports whether f is a positional digit system.
func IsScript(f document.NumberFormat) bool {
	_, ok := scriptZero[f]
	return ok
}

// IntToScript writes n in base 10 with the digits of the script f.
func IntToScript(n int, f document.NumberFormat) string {
	zero, ok := scriptZero[f]
	if !ok || n < 0 {
		return strconv.Itoa(n)
	}
	if n == 0 {
		return string(zero)
	}
	var out []rune
	for ; n > 0; n /= 10 {
		out = append([]rune{zero + rune(n%10)}, out...)
	}
	return string(out)
}

var (
	abjad = []string{"أ", "ب", "ج", "د", "ﻫ", "و", "ز", "ح", "ط", "ي", "ك", "ل", "م",
		"ن", "س", "ع", "ف", "ص", "ق", "ر", "ش", "ت", "ث", "خ", "ذ", "ض", "ظ", "غ"}
	abjadMinor = []string{"ﺃ", "ﺏ", "ﺝ", "ﺩ", "ﻫ", "ﻭ", "ﺯ", "ﺡ", "ﻁ", "ﻱ", "ﻙ", "ﻝ", "ﻡ",
		"ﻥ", "ﺹ", "ﻉ", "ﻑ", "ﺽ", "ﻕ", "ﺭ", "ﺱ", "ﺕ", "ﺙ", "ﺥ", "ﺫ", "ﻅ", "ﺽ", "ﻍ"}
	arabicAlphabet = []string{"ا", "ب", "ت", "ث", "ج", "ح", "خ", "د", "ذ", "ر", "ز",
		"س", "ش", "ص", "ض", "ط", "ظ", "ع", "غ", "ف", "ق", "ك", "ل", "م", "ن", "ه", "و", "ي"}
)

// IsScriptList reports whether f is a fixed-table sequence.
func IsScriptList(f document.NumberFormat) bool {
	return f == document.FormatAbjad || f == document.FormatAbjadMinor || f == document.FormatArabicAlphabet
}

// IntToScriptList returns the n-th (1-based) entry of a fixed sequence; values
// past the usable range fall back to decimal.
func IntToScriptList(n int, f document.NumberFormat) string {
	var table []string
	limit := 0
	switch f {
	case document.FormatAbjad:
		table, limit = abjad, 22
	case document.FormatAbjadMinor:
		table, limit = abjadMinor, 22
	case document.FormatArabicAlphabet:
		table, limit = arabicAlphabet, len(arabicAlphabet)
	}
	if n < 1 || n > limit {
		return strconv.Itoa(n)
	}
	return table[n-1]
}

// Format renders a counter value in f. Bullet, image and none formats yield "".
func Format(n int, f document.NumberFormat, letterSync bool) string {
	switch {
	case f == document.FormatDecimal:
		return strconv.Itoa(n)
	case f == document.FormatAlphaLower:
		return IntToAlpha(n, Lowercase, letterSync)
	case f == document.FormatAlphaUpper:
		return IntToAlpha(n, Uppercase, letterSync)
	case f == document.FormatRomanLower:
		return IntToRoman(n)
	case f == document.FormatRomanUpper:
		return strings.ToUpper(IntToRoman(n))
	case IsScript(f):
		return IntToScript(n, f)
	case IsScriptList(f):
		return IntToScriptList(n, f)
	}
	return ""
}
