package dsl

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// flowLexer tokenises .flow sources. Colors must precede HashComment so that
// "#0F62FE" is not swallowed as a comment.
var flowLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "HashComment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|%|x)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

type tokenTable struct {
	names                           map[lexer.TokenType]string
	newline, lbrace, rbrace, symbol lexer.TokenType
	str                             lexer.TokenType
}

// tokenKinds caches the token types the hand-written atoms look at.
var tokenKinds = func() tokenTable {
	symbols := flowLexer.Symbols()
	lookup := func(name string) lexer.TokenType {
		tt, ok := symbols[name]
		if !ok {
			panic(fmt.Sprintf("dsl: token %s not defined", name))
		}
		return tt
	}
	t := tokenTable{names: make(map[lexer.TokenType]string, len(symbols))}
	for name, tt := range symbols {
		t.names[tt] = name
	}
	t.newline, t.lbrace, t.rbrace = lookup("Newline"), lookup("LBrace"), lookup("RBrace")
	t.symbol, t.str = lookup("Symbol"), lookup("String")
	return t
}()

var flowParser = participle.MustBuild[Document](
	participle.Lexer(flowLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
)

// Document is the root of a .flow file: doc <Name> <Version> { sections }.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is exactly one of the top-level sections.
type Section struct {
	Meta      *BodySection    `parser:"  'meta' @@"`
	Resources *BodySection    `parser:"| 'resources' @@"`
	PageSet   *PageSetSection `parser:"| 'page-set' @@"`
	Page      *PageSection    `parser:"| 'page' @@"`
}

// Kind names the section as written in the source.
func (s *Section) Kind() string {
	switch {
	case s == nil:
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.PageSet != nil:
		return "page-set"
	case s.Page != nil:
		return "page"
	}
	return "unknown"
}

// BodySection is a keyword followed by a block; meta and resources use it.
type BodySection struct {
	Block *Block `parser:"@@"`
}

// PageSetSection declares a named page format usable as a master page.
type PageSetSection struct {
	Name  string `parser:"@Ident"`
	Block *Block `parser:"@@"`
}

// PageSection is the flow owner: page <size> [params] { ... }.
type PageSection struct {
	Spec  PageSpec `parser:"@@"`
	Block *Block   `parser:"@@"`
}

// PageSpec holds the paper name and the loose header words after it.
type PageSpec struct {
	Size   string    `parser:"@Ident"`
	Params []*Lexeme `parser:"@@*"`
}

// Block is a braced statement list; statements end at a newline or ';'.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is one of key: value, a command, or a bare text literal.
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command is a name, loose arguments and an optional body.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value is the right-hand side of an assignment. Anything that is not a
// literal, array or inline object is kept as a raw Expression.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue is [a, b] with commas, semicolons or newlines between items.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// InlineObject is { key: value; ... } on the right of an assignment.
type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ Newline* ( (';' | Newline+) Newline* @@ Newline* )* )? Newline* '}'"`
}

// Lexeme is a single token kept verbatim for the builder to interpret.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

func (l *Lexeme) String() string { return l.Raw }

// Parse reads one command argument. Arguments stop at a brace, a newline or
// a ';'.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok.EOF() || endsArgument(tok) {
		return participle.NextMatch
	}
	next, err := takeLexeme(lex)
	if err != nil {
		return err
	}
	*l = next
	return nil
}

func endsArgument(tok *lexer.Token) bool {
	switch tok.Type {
	case tokenKinds.newline, tokenKinds.lbrace, tokenKinds.rbrace:
		return true
	case tokenKinds.symbol:
		return tok.Value == ";"
	}
	return false
}

// Expression is a run of tokens such as "A4 landscape" or "1.2 * 3".
type Expression struct {
	Parts []*Lexeme
}

// Parse collects tokens until a top-level terminator. Brackets and parentheses
// nest; a ']' closes the enclosing array once no bracket is open.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var (
		parts         []*Lexeme
		paren, square int
	)
	for {
		tok := lex.Peek()
		if tok.EOF() {
			break
		}
		top := paren == 0 && square == 0
		if top && endsValue(tok) || tok.Type == tokenKinds.symbol && tok.Value == "]" && square == 0 {
			break
		}
		next, err := takeLexeme(lex)
		if err != nil {
			return err
		}
		if next.Type == "Symbol" {
			switch next.Raw {
			case "(":
				paren++
			case ")":
				paren = max(paren-1, 0)
			case "[":
				square++
			case "]":
				square--
			}
		}
		parts = append(parts, &next)
	}
	if len(parts) == 0 {
		return participle.NextMatch
	}
	e.Parts = parts
	return nil
}

func endsValue(tok *lexer.Token) bool {
	if endsArgument(tok) {
		return true
	}
	return tok.Type == tokenKinds.symbol && tok.Value == ","
}

// takeLexeme consumes the next token. String tokens are unquoted into Value
// while Raw keeps the source text.
func takeLexeme(lex *lexer.PeekingLexer) (Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Lexeme{}, participle.NextMatch
	}
	name, ok := tokenKinds.names[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	value := tok.Value
	if tok.Type == tokenKinds.str {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, fmt.Errorf("%s: 字符串无效: %w", tok.Pos, err)
		}
		value = unquoted
	}
	return Lexeme{Type: name, Value: value, Raw: tok.Value, Pos: tok.Pos}, nil
}

// StringLiteral is a quoted string, unquoted on capture.
type StringLiteral string

func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return errors.New("字符串缺少内容")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// SyntaxError is a parse failure with its source position.
type SyntaxError struct {
	Pos lexer.Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ParseFile parses a .flow source; name only labels error positions.
func ParseFile(name string, r io.Reader) (*Document, error) {
	doc, err := flowParser.Parse(name, r)
	return doc, syntaxError(err)
}

// Parse parses an unnamed .flow source.
func Parse(r io.Reader) (*Document, error) {
	return ParseFile("", r)
}

// ParseString parses .flow source text.
func ParseString(input string) (*Document, error) {
	doc, err := flowParser.ParseString("", input)
	return doc, syntaxError(err)
}

func syntaxError(err error) error {
	if err == nil {
		return nil
	}
	var perr participle.Error
	if errors.As(err, &perr) {
		return &SyntaxError{Pos: perr.Position(), Msg: perr.Message()}
	}
	return err
}
