package layout

import (
	"strings"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
)

// Recorder is a Painter that records drawing operations of one page into a
// ResultPage, converting points to millimetres.
type Recorder struct {
	Page ResultPage
	// Images maps anchor IDs to image names of the resource set.
	Images map[string]string
}

func mm(v float64) float64 { return v * PtToMm }

func mmRect(r geom.Rect) Rect {
	return Rect{X: mm(r.X), Y: mm(r.Y), Width: mm(r.W), Height: mm(r.H)}
}

func (r *Recorder) FillRect(rect geom.Rect, c document.Color) {
	out := mmRect(rect)
	out.FillColor = &c
	r.Page.Rects = append(r.Page.Rects, out)
}

func (r *Recorder) StrokeRect(rect geom.Rect, width float64, c document.Color) {
	out := mmRect(rect)
	out.StrokeColor = c
	out.StrokeWidth = mm(width)
	r.Page.Rects = append(r.Page.Rects, out)
}

func (r *Recorder) DrawLine(from, to geom.Point, width float64, c document.Color) {
	r.Page.Lines = append(r.Page.Lines, Line{
		X1: mm(from.X), Y1: mm(from.Y), X2: mm(to.X), Y2: mm(to.Y),
		Color: c, Width: mm(width),
	})
}

func (r *Recorder) DrawText(origin geom.Point, text string, f document.CharFormat) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.Page.Texts = append(r.Page.Texts, TextRun{
		Content:  text,
		X:        mm(origin.X),
		Y:        mm(origin.Y),
		Font:     f.Font,
		FontSize: f.FontSize(),
		Bold:     f.Bold,
		Italic:   f.Italic,
		Color:    f.TextColor(),
	})
}

func (r *Recorder) DrawObject(a *document.Anchor, rect geom.Rect) {
	box := ObjectBox{
		ID: a.ID, Label: a.Label,
		X: mm(rect.X), Y: mm(rect.Y), Width: mm(rect.W), Height: mm(rect.H),
		Fill: a.Fill,
	}
	if name, ok := r.Images[a.ID]; ok {
		box.Image = name
	}
	r.Page.Objects = append(r.Page.Objects, box)
}

// Result paints every page of the last pass into the serializable model.
// images maps anchor IDs to image resource names.
func (dl *DocumentLayout) Result(images map[string]string) *Result {
	return dl.ResultWith(images, PaintContext{})
}

// ResultWith is Result with an explicit paint context.
func (dl *DocumentLayout) ResultWith(images map[string]string, ctx PaintContext) *Result {
	res := &Result{Meta: DocumentMeta{
		Title:    dl.doc.Meta.Title,
		Author:   dl.doc.Meta.Author,
		Subject:  dl.doc.Meta.Subject,
		Creator:  dl.doc.Meta.Creator,
		Keywords: dl.doc.Meta.Keywords,
	}}
	for _, page := range dl.Pages() {
		rec := &Recorder{Images: images, Page: ResultPage{
			Index:   page.Index,
			Number:  page.Number,
			Master:  page.Master,
			Width:   mm(page.Size.W),
			Height:  mm(page.Size.H),
			Content: mmRect(page.Content),
		}}
		dl.PaintPage(rec, page.Index, ctx)
		res.Pages = append(res.Pages, rec.Page)
	}
	return res
}

// Pages returns the distinct pages of the last pass.
func (dl *DocumentLayout) Pages() []Page {
	var out []Page
	for _, a := range dl.rootAreas {
		if n := len(out); n == 0 || out[n-1].Index != a.page.Index {
			out = append(out, a.page)
		}
	}
	return out
}
