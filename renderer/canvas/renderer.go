package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/fonts"
	"github.com/ByLCY/textflow/layout"
	"github.com/ByLCY/textflow/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas. It also
// measures text with canvas font faces, so the same fonts drive line
// breaking and output.
type Renderer struct {
	loader *fonts.Loader

	resMu     sync.RWMutex
	resources layout.ResourceSet

	fontMu   sync.Mutex
	families map[string]*canvas.FontFamily
	images   map[string]image.Image
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // built-in fonts accessible via built-in:<name>
	Images  map[string]Resource // built-in images accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	blobs := map[string][]byte{}
	loader := fonts.NewLoader(opts.BaseDir, blobs)
	for _, set := range []map[string]Resource{opts.Fonts, opts.Images} {
		for name, res := range set {
			if name == "" {
				continue
			}
			if len(res.Bytes) > 0 {
				blobs[name] = res.Bytes
				continue
			}
			if res.Path != "" {
				// 读取失败时留到实际使用时报错
				if data, err := loader.Bytes(res.Path); err == nil {
					blobs[name] = data
				}
			}
		}
	}
	return &Renderer{
		loader:   loader,
		families: map[string]*canvas.FontFamily{},
		images:   map[string]image.Image{},
	}
}

// SetResources sets the fonts and images used for measuring before a
// layout pass. Render replaces them with the result's resources.
func (r *Renderer) SetResources(rs layout.ResourceSet) {
	r.resMu.Lock()
	r.resources = rs
	r.resMu.Unlock()
}

func (r *Renderer) resourceSet() layout.ResourceSet {
	r.resMu.RLock()
	defer r.resMu.RUnlock()
	return r.resources
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	r.SetResources(result.Resources)

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c, err := r.PageCanvas(page)
		if err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// PageCanvas draws one recorded page onto a new canvas in millimetres.
func (r *Renderer) PageCanvas(page layout.ResultPage) (*canvas.Canvas, error) {
	c := canvas.New(page.Width, page.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	p := &pagePainter{r: r, ctx: ctx}
	p.background(page.Width, page.Height)
	if err := p.drawResultPage(page); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// Advances implements layout.Typesetter with one canvas measurement per rune.
func (r *Renderer) Advances(format document.CharFormat, text []rune) []float64 {
	face := r.face(format)
	out := make([]float64, len(text))
	for i, ch := range text {
		out[i] = toPt(face.TextWidth(string(ch)))
	}
	return out
}

func (r *Renderer) TextWidth(format document.CharFormat, text string) float64 {
	return toPt(r.face(format).TextWidth(text))
}

func (r *Renderer) Metrics(format document.CharFormat) layout.FontMetrics {
	m := r.face(format).Metrics()
	gap := m.LineHeight - m.Ascent - m.Descent
	return layout.FontMetrics{
		Ascent:  toPt(m.Ascent),
		Descent: toPt(m.Descent),
		LineGap: toPt(max(gap, 0)),
	}
}

// face returns the canvas face of format at its size in points.
func (r *Renderer) face(format document.CharFormat) *canvas.FontFace {
	family := r.family(format)
	return family.Face(format.FontSize(), colorFromDocument(format.TextColor()), canvas.FontRegular, canvas.FontNormal)
}

// family loads the font resource for format into its own family. Every
// family holds a single regular face, the resource file carries the weight.
func (r *Renderer) family(format document.CharFormat) *canvas.FontFamily {
	res, ok := r.resourceSet().FontFor(format)
	key := fallbackKey(format)
	if ok {
		key = res.Src
	}

	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if family, ok := r.families[key]; ok {
		return family
	}
	if ok {
		family := canvas.NewFontFamily(res.Name)
		data, err := r.loader.Bytes(res.Src)
		if err == nil {
			err = family.LoadFont(data, 0, canvas.FontRegular)
		}
		if err == nil {
			r.families[key] = family
			return family
		}
		layout.Logger().Warn("font load failed, using embedded fallback", "font", res.Name, "error", err)
	}
	family := r.fallback(format)
	r.families[key] = family
	return family
}

// fallback returns the embedded Latin Modern family for format. The caller
// holds fontMu.
func (r *Renderer) fallback(format document.CharFormat) *canvas.FontFamily {
	key := fallbackKey(format)
	if family, ok := r.families[key]; ok {
		return family
	}
	family := canvas.NewFontFamily(key)
	if err := family.LoadFont(fonts.Default(format.Bold, format.Italic), 0, canvas.FontRegular); err != nil {
		// 内置字体不可能解析失败
		panic(fmt.Sprintf("加载内置字体失败: %v", err))
	}
	r.families[key] = family
	return family
}

func fallbackKey(format document.CharFormat) string {
	key := "textflow-fallback"
	if format.Bold {
		key += "-bold"
	}
	if format.Italic {
		key += "-italic"
	}
	return key
}

// image decodes the image resource called name.
func (r *Renderer) image(name string) (image.Image, error) {
	r.fontMu.Lock()
	img, ok := r.images[name]
	r.fontMu.Unlock()
	if ok {
		return img, nil
	}
	res, ok := r.resourceSet().Images[name]
	if !ok {
		return nil, fmt.Errorf("找不到图片资源 %s", name)
	}
	data, err := r.loader.Bytes(res.Src)
	if err != nil {
		return nil, err
	}
	img, _, err = image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", res.Src, err)
	}
	r.fontMu.Lock()
	r.images[name] = img
	r.fontMu.Unlock()
	return img, nil
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
