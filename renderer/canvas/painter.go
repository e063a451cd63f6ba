package canvasrenderer

import (
	"image/color"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/layout"
)

const (
	hairline        = 0.2 // mm
	placeholderSize = 7.0 // pt
)

var placeholderStroke = document.Color{R: 160, G: 160, B: 160}

// pagePainter draws onto a canvas context whose unit is the millimetre.
// It implements layout.Painter for direct painting of a DocumentLayout
// page; those coordinates arrive in points.
type pagePainter struct {
	r   *Renderer
	ctx *canvas.Context
	err error
}

var _ layout.Painter = (*pagePainter)(nil)

// NewPainter returns a layout.Painter drawing onto ctx, which must use
// millimetres with a top-left origin (canvas.CartesianIV).
func (r *Renderer) NewPainter(ctx *canvas.Context) layout.Painter {
	return &pagePainter{r: r, ctx: ctx}
}

func (p *pagePainter) background(w, h float64) {
	p.ctx.SetFillColor(canvas.White)
	p.ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	p.ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
}

func (p *pagePainter) FillRect(r geom.Rect, c document.Color) {
	p.rect(toMm(r.X), toMm(r.Y), toMm(r.W), toMm(r.H), &c, document.Color{}, 0)
}

func (p *pagePainter) StrokeRect(r geom.Rect, width float64, c document.Color) {
	p.rect(toMm(r.X), toMm(r.Y), toMm(r.W), toMm(r.H), nil, c, toMm(width))
}

func (p *pagePainter) DrawLine(from, to geom.Point, width float64, c document.Color) {
	p.line(toMm(from.X), toMm(from.Y), toMm(to.X), toMm(to.Y), toMm(width), c)
}

func (p *pagePainter) DrawText(origin geom.Point, text string, format document.CharFormat) {
	p.text(toMm(origin.X), toMm(origin.Y), text, format)
}

func (p *pagePainter) DrawObject(a *document.Anchor, r geom.Rect) {
	p.object(layout.ObjectBox{
		ID: a.ID, Label: a.Label, Fill: a.Fill,
		X: toMm(r.X), Y: toMm(r.Y), Width: toMm(r.W), Height: toMm(r.H),
	})
}

// drawResultPage draws a recorded page: shapes first, then objects, then text.
func (p *pagePainter) drawResultPage(page layout.ResultPage) error {
	for _, rc := range page.Rects {
		p.rect(rc.X, rc.Y, rc.Width, rc.Height, rc.FillColor, rc.StrokeColor, rc.StrokeWidth)
	}
	for _, ln := range page.Lines {
		p.line(ln.X1, ln.Y1, ln.X2, ln.Y2, ln.Width, ln.Color)
	}
	for _, obj := range page.Objects {
		p.object(obj)
		if p.err != nil {
			return p.err
		}
	}
	for _, t := range page.Texts {
		p.text(t.X, t.Y, t.Content, document.CharFormat{
			Font:   t.Font,
			Size:   t.FontSize,
			Bold:   t.Bold,
			Italic: t.Italic,
			Color:  &t.Color,
		})
	}
	return p.err
}

// rect 绘制矩形，fill 为空表示不填充，strokeWidth 为 0 表示不描边。
func (p *pagePainter) rect(x, y, w, h float64, fill *document.Color, stroke document.Color, strokeWidth float64) {
	if fill != nil {
		p.ctx.SetFillColor(colorFromDocument(*fill))
	} else {
		p.ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	}
	if strokeWidth > 0 {
		p.ctx.SetStrokeColor(colorFromDocument(stroke))
		p.ctx.SetStrokeWidth(strokeWidth)
	} else {
		p.ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	}
	p.ctx.DrawPath(x, y, canvas.Rectangle(w, h))
}

// line 绘制直线（毫米单位）
func (p *pagePainter) line(x1, y1, x2, y2, width float64, c document.Color) {
	if width <= 0 {
		width = hairline
	}
	p.ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	p.ctx.SetStrokeColor(colorFromDocument(c))
	p.ctx.SetStrokeWidth(width)
	path := &canvas.Path{}
	path.MoveTo(0, 0)
	path.LineTo(x2-x1, y2-y1)
	p.ctx.DrawPath(x1, y1, path)
}

// text draws a run with its origin on the baseline.
func (p *pagePainter) text(x, baseline float64, content string, format document.CharFormat) {
	if content == "" {
		return
	}
	face := p.r.face(format)
	p.ctx.DrawText(x, baseline, canvas.NewTextLine(face, content, canvas.Left))
}

// object draws an image, or a labelled placeholder box when the object has
// no image.
func (p *pagePainter) object(obj layout.ObjectBox) {
	if obj.Image != "" {
		img, err := p.r.image(obj.Image)
		if err != nil {
			p.err = err
			return
		}
		dpmm := 1.0
		if obj.Width > 0 && img.Bounds().Dx() > 0 {
			dpmm = float64(img.Bounds().Dx()) / obj.Width
		}
		p.ctx.DrawImage(obj.X, obj.Y, img, canvas.DPMM(dpmm))
		return
	}
	p.rect(obj.X, obj.Y, obj.Width, obj.Height, obj.Fill, placeholderStroke, hairline)
	if obj.Label != "" {
		format := document.CharFormat{Size: placeholderSize, Color: &placeholderStroke}
		width := toMm(p.r.TextWidth(format, obj.Label))
		baseline := obj.Y + obj.Height/2 + toMm(placeholderSize)/3
		p.text(obj.X+(obj.Width-width)/2, baseline, obj.Label, format)
	}
}

func colorFromDocument(c document.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
