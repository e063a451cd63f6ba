package dsl_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ByLCY/textflow/dsl"
)

const sampleDSL = `
doc Report v1 {
  meta {
    title: "Layout notes"
    keywords: [
      "layout"
      "internal"
    ]
  }

  resources {
    font Body {
      src: "embed:lmroman10-regular"
    }

    color Accent = #0F62FE
  }

  page-set Wide {
    size: A4 landscape
  }

  page A4 portrait margin 18mm {
    flow {
      text Body size 12pt color #333 { "Hello, ${user.name}!" cite knuth84 "." }

      table columns 2 header 1 {
        row { cell colspan 2 { "Header" } }
      }

      image anchor page h from-left x 10mm width 40mm height 20mm
    }
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if doc.Name != "Report" {
		t.Fatalf("expected document name Report, got %s", doc.Name)
	}
	if doc.Version != "v1" {
		t.Fatalf("expected version v1, got %s", doc.Version)
	}

	if len(doc.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(doc.Sections))
	}
	kinds := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		kinds = append(kinds, s.Kind())
	}
	if got := strings.Join(kinds, ","); got != "meta,resources,page-set,page" {
		t.Fatalf("unexpected section kinds: %s", got)
	}

	meta := doc.Sections[0].Meta
	if meta == nil {
		t.Fatalf("meta section missing")
	}
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	if got := string(*title.Value.String); got != "Layout notes" {
		t.Fatalf("expected title Layout notes, got %s", got)
	}
	keywords := meta.Block.Statements[1].Assignment
	if keywords == nil || keywords.Value.Array == nil || len(keywords.Value.Array.Values) != 2 {
		t.Fatalf("expected 2 keywords, got %+v", keywords)
	}

	set := doc.Sections[2].PageSet
	if set == nil || set.Name != "Wide" {
		t.Fatalf("expected page-set Wide, got %+v", set)
	}
	size := set.Block.Statements[0].Assignment
	if size == nil || size.Value.Expr == nil {
		t.Fatalf("size should capture an expression, got %+v", set.Block.Statements[0])
	}
	if got := tokensToString(size.Value.Expr.Parts); got != "A4 landscape" {
		t.Fatalf("unexpected expression tokens: %s", got)
	}

	page := doc.Sections[3].Page
	if page == nil {
		t.Fatalf("page section missing")
	}
	if page.Spec.Size != "A4" {
		t.Fatalf("expected page size A4, got %s", page.Spec.Size)
	}
	if len(page.Spec.Params) != 3 || page.Spec.Params[2].Value != "18mm" {
		t.Fatalf("unexpected page params: %+v", page.Spec.Params)
	}

	flow := page.Block.Statements[0].Command
	if flow == nil || flow.Name != "flow" {
		t.Fatalf("expected flow command, got %+v", page.Block.Statements[0])
	}
	if len(flow.Block.Statements) != 3 {
		t.Fatalf("expected 3 flow statements, got %d", len(flow.Block.Statements))
	}

	text := flow.Block.Statements[0].Command
	if text == nil || text.Name != "text" || text.Args[0].Value != "Body" {
		t.Fatalf("unexpected text command: %+v", flow.Block.Statements[0])
	}
	if len(text.Block.Statements) != 2 {
		t.Fatalf("expected literal and cite inside text, got %d statements", len(text.Block.Statements))
	}
	if got := string(text.Block.Statements[0].Text.Value); !strings.Contains(got, "${user.name}") {
		t.Fatalf("expected interpolation in text literal, got %s", got)
	}
	cite := text.Block.Statements[1].Command
	if cite == nil || cite.Name != "cite" || len(cite.Args) != 2 || cite.Args[1].Type != "String" {
		t.Fatalf("unexpected cite command: %+v", text.Block.Statements[1])
	}

	table := flow.Block.Statements[1].Command
	if table == nil || table.Name != "table" || table.Block == nil {
		t.Fatalf("expected table command, got %+v", flow.Block.Statements[1])
	}
	row := table.Block.Statements[0].Command
	if row == nil || row.Name != "row" {
		t.Fatalf("expected row command, got %+v", table.Block.Statements[0])
	}
	cell := row.Block.Statements[0].Command
	if cell == nil || cell.Name != "cell" || len(cell.Args) != 2 || cell.Args[1].Value != "2" {
		t.Fatalf("unexpected cell command: %+v", row.Block.Statements[0])
	}

	image := flow.Block.Statements[2].Command
	if image == nil || image.Name != "image" || image.Block != nil {
		t.Fatalf("expected block-less image command, got %+v", flow.Block.Statements[2])
	}
	if len(image.Args) != 10 {
		t.Fatalf("expected 10 image args, got %d", len(image.Args))
	}
}

func TestParseRejectsMissingHeader(t *testing.T) {
	if _, err := dsl.ParseString(`page A4 { }`); err == nil {
		t.Fatalf("expected error for document without doc header")
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := dsl.ParseFile("broken.flow", strings.NewReader("doc D v1 {\n  page A4 {\n    flow { \"x\"\n"))
	var syn *dsl.SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
	}
	if syn.Pos.Filename != "broken.flow" || syn.Pos.Line < 3 {
		t.Fatalf("unexpected error position: %+v", syn.Pos)
	}
	if !strings.HasPrefix(err.Error(), "broken.flow:") {
		t.Fatalf("error should start with the file name: %v", err)
	}
}

func TestParseColorsAndHashComments(t *testing.T) {
	doc, err := dsl.ParseString("doc C v1 {\n  resources {\n    color Accent = #0F62FE # brand blue\n  }\n}\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	color := doc.Sections[0].Resources.Block.Statements[0].Command
	if color == nil || len(color.Args) != 3 || color.Args[2].Type != "Color" || color.Args[2].Value != "#0F62FE" {
		t.Fatalf("unexpected color command: %+v", color)
	}
}

func tokensToString(parts []*dsl.Lexeme) string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, " ")
}
