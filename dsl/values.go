package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

// parseArgs splits command arguments into an optional leading name and
// key/value pairs. A leading identifier is a name only when the remaining
// arguments pair up.
func parseArgs(args []*Lexeme, allowName bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}

	cursor := 0
	var name string
	if allowName && len(args)%2 == 1 && (args[0].Type == "Ident" || args[0].Type == "String") {
		name = args[0].Value
		cursor = 1
	}

	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return name, result
}

// blockAttrs collects assignments and single-argument commands of a block
// as key/value pairs; multi-argument commands keep their values joined by
// spaces.
func blockAttrs(block *Block) map[string]string {
	out := map[string]string{}
	if block == nil {
		return out
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt.Assignment != nil:
			if v := valueToString(stmt.Assignment.Value); v != "" {
				out[stmt.Assignment.Key] = v
			}
		case stmt.Command != nil && stmt.Command.Block == nil:
			vals := make([]string, 0, len(stmt.Command.Args))
			for _, a := range stmt.Command.Args {
				vals = append(vals, a.Value)
			}
			out[stmt.Command.Name] = strings.Join(vals, " ")
		}
	}
	return out
}

func valueToString(val *Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for i, part := range val.Expr.Parts {
			if i > 0 && part.Type != "Symbol" && val.Expr.Parts[i-1].Type != "Symbol" {
				builder.WriteByte(' ')
			}
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}

// extractText concatenates the text literals of a block.
func extractText(block *Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

// lengthPt converts a DSL length to points. Bare numbers use bare.
func lengthPt(value string, bare layout.Unit) (float64, error) {
	l, err := layout.ParseLength(value)
	if err != nil {
		return 0, err
	}
	if l.Unit == layout.UnitNone {
		l.Unit = bare
	}
	if l.Unit == layout.UnitNone {
		return l.Value, nil
	}
	return l.Pt(), nil
}

// dimensionPt converts a length to points; bare numbers are millimetres.
func dimensionPt(value string) (float64, error) { return lengthPt(value, layout.UnitMM) }

// sizePt converts a font size to points; bare numbers are points.
func sizePt(value string) (float64, error) { return lengthPt(value, layout.UnitPT) }

// percent parses "80%" and reports whether the value was a percentage.
func percent(value string) (float64, bool, error) {
	num, ok := strings.CutSuffix(strings.TrimSpace(value), "%")
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, true, fmt.Errorf("无法解析百分比 %q: %w", value, err)
	}
	return f, true, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("无法解析布尔值 %q", value)
}

func parseInt(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("无法解析整数 %q: %w", value, err)
	}
	return n, nil
}

func parseColor(value string) (document.Color, error) {
	value = strings.TrimPrefix(value, "#")
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return document.Color{R: mustHex(r), G: mustHex(g), B: mustHex(b)}, nil
	case 6, 8:
		return document.Color{
			R: mustHex(value[0:2]),
			G: mustHex(value[2:4]),
			B: mustHex(value[4:6]),
		}, nil
	default:
		return document.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

// lookup maps a keyword through table.
func lookup[T any](table map[string]T, value, what string) (T, error) {
	v, ok := table[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		var zero T
		return zero, fmt.Errorf("未知的%s：%s", what, value)
	}
	return v, nil
}

var (
	alignments = map[string]document.Alignment{
		"start": document.AlignStart, "left": document.AlignLeft, "right": document.AlignRight,
		"center": document.AlignCenter, "middle": document.AlignCenter,
		"justify": document.AlignJustify, "end": document.AlignEnd,
	}
	directions = map[string]document.Direction{
		"auto": document.DirectionAuto, "ltr": document.DirectionLTR,
		"rtl": document.DirectionRTL, "inherit": document.DirectionInherit,
	}
	breakKinds = map[string]document.BreakKind{
		"none": document.BreakNone, "page": document.BreakPage, "column": document.BreakColumn,
	}
	baselines = map[string]document.BaselineShift{
		"normal": document.BaselineNormal, "super": document.BaselineSuper, "sub": document.BaselineSub,
	}
	tabTypes = map[string]document.TabType{
		"left": document.TabLeft, "right": document.TabRight,
		"center": document.TabCenter, "char": document.TabChar,
	}
	followedBy = map[string]document.LabelFollowedBy{
		"tab": document.FollowedByTab, "space": document.FollowedBySpace, "nothing": document.FollowedByNothing,
	}
	anchorTypes = map[string]document.AnchorType{
		"inline": document.AnchorAsChar, "as-char": document.AnchorAsChar,
		"char": document.AnchorChar, "paragraph": document.AnchorParagraph, "page": document.AnchorPage,
	}
	hPositions = map[string]document.HPos{
		"left": document.HLeft, "center": document.HCenter, "right": document.HRight,
		"inside": document.HInside, "outside": document.HOutside,
		"from-left": document.HFromLeft, "from-inside": document.HFromInside,
	}
	hRelations = map[string]document.HRel{
		"paragraph": document.HRelParagraph, "paragraph-content": document.HRelParagraphContent,
		"paragraph-start-margin": document.HRelParagraphStartMargin, "paragraph-end-margin": document.HRelParagraphEndMargin,
		"page": document.HRelPage, "page-content": document.HRelPageContent,
		"page-start-margin": document.HRelPageStartMargin, "page-end-margin": document.HRelPageEndMargin,
		"char": document.HRelChar,
	}
	vPositions = map[string]document.VPos{
		"top": document.VTop, "middle": document.VMiddle, "bottom": document.VBottom,
		"from-top": document.VFromTop, "below": document.VBelow,
	}
	vRelations = map[string]document.VRel{
		"paragraph": document.VRelParagraph, "paragraph-content": document.VRelParagraphContent,
		"page": document.VRelPage, "page-content": document.VRelPageContent,
		"char": document.VRelChar, "line": document.VRelLine,
		"baseline": document.VRelBaseline, "text": document.VRelText,
	}
	wrapSides = map[string]document.WrapSide{
		"none": document.WrapNone, "left": document.WrapLeft, "right": document.WrapRight,
		"both": document.WrapBoth, "parallel": document.WrapBoth,
		"biggest": document.WrapBiggest, "dynamic": document.WrapBiggest,
		"enough": document.WrapEnough, "run-through": document.WrapRunThrough,
	}
	scopes = map[string]document.NumberingScope{
		"document": document.BeginAtDocument, "page": document.BeginAtPage,
	}
)

func numberFormat(value string) (document.NumberFormat, error) {
	if f, ok := document.ParseNumberFormat(strings.TrimSpace(value)); ok {
		return f, nil
	}
	return 0, fmt.Errorf("未知的编号格式：%s", value)
}
