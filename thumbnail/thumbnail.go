// Package thumbnail renders paragraph-style previews: a sample text laid out
// in a style and rasterized. Previews are cached by a hash of the resolved
// style content, so an edited style never reuses a stale image.
package thumbnail

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"image"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/geom"
	"github.com/ByLCY/textflow/layout"
	canvasrenderer "github.com/ByLCY/textflow/renderer/canvas"
)

const (
	// DefaultSample is the preview text.
	DefaultSample = "AaBbCc 123"
	// DefaultResolution is the raster resolution in dots per millimetre.
	DefaultResolution = 4.0
	// DefaultMaxEntries bounds the cache.
	DefaultMaxEntries = 256

	padding = 2.0 // pt
)

// Key identifies a preview: the content hash of the resolved style and
// sample text, plus the requested size.
type Key struct {
	Hash [sha256.Size]byte
	Size geom.Size
}

// Thumbnailer renders and caches style previews. It is safe for concurrent
// use.
type Thumbnailer struct {
	renderer   *canvasrenderer.Renderer
	Sample     string
	Resolution float64
	MaxEntries int

	mu      sync.Mutex
	cache   map[Key]*image.RGBA
	order   []Key
	byStyle map[string][]Key
	hits    int
	misses  int
}

// New creates a thumbnailer drawing with r.
func New(r *canvasrenderer.Renderer) *Thumbnailer {
	return &Thumbnailer{
		renderer:   r,
		Sample:     DefaultSample,
		Resolution: DefaultResolution,
		MaxEntries: DefaultMaxEntries,
		cache:      map[Key]*image.RGBA{},
		byStyle:    map[string][]Key{},
	}
}

// KeyFor computes the cache key of a style preview without rendering.
func (t *Thumbnailer) KeyFor(sheet *document.StyleSheet, name string, size geom.Size) (Key, error) {
	style, ok := sheet.Style(name)
	if !ok {
		return Key{}, fmt.Errorf("段落样式 %s 未定义", name)
	}
	data, err := json.Marshal(struct {
		Style  document.ParagraphStyle
		Sample string
	}{style, t.sample()})
	if err != nil {
		return Key{}, fmt.Errorf("计算样式摘要失败: %w", err)
	}
	return Key{Hash: sha256.Sum256(data), Size: size}, nil
}

// Thumbnail returns the preview of style name at size (pt).
func (t *Thumbnailer) Thumbnail(sheet *document.StyleSheet, name string, size geom.Size) (*image.RGBA, error) {
	key, err := t.KeyFor(sheet, name, size)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	if img, ok := t.cache[key]; ok {
		t.hits++
		t.mu.Unlock()
		return img, nil
	}
	t.misses++
	t.mu.Unlock()

	img, err := t.render(sheet, name, size)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.cache[key]; !ok {
		t.cache[key] = img
		t.order = append(t.order, key)
		t.byStyle[name] = append(t.byStyle[name], key)
		t.evict()
	}
	return img, nil
}

// evict drops the oldest entries above MaxEntries. The caller holds mu.
func (t *Thumbnailer) evict() {
	limit := t.MaxEntries
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	for len(t.order) > limit {
		delete(t.cache, t.order[0])
		t.order = t.order[1:]
	}
}

// Invalidate drops every preview rendered for the named styles.
func (t *Thumbnailer) Invalidate(names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range names {
		for _, key := range t.byStyle[name] {
			delete(t.cache, key)
		}
		delete(t.byStyle, name)
	}
	kept := t.order[:0]
	for _, key := range t.order {
		if _, ok := t.cache[key]; ok {
			kept = append(kept, key)
		}
	}
	t.order = kept
}

// Clear empties the cache.
func (t *Thumbnailer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache = map[Key]*image.RGBA{}
	t.byStyle = map[string][]Key{}
	t.order = nil
}

// Stats reports cache hits, misses and current size.
func (t *Thumbnailer) Stats() (hits, misses, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hits, t.misses, len(t.cache)
}

func (t *Thumbnailer) sample() string {
	if t.Sample == "" {
		return DefaultSample
	}
	return t.Sample
}

// render lays the sample out on a page the size of the preview and
// rasterizes the first page.
func (t *Thumbnailer) render(sheet *document.StyleSheet, name string, size geom.Size) (*image.RGBA, error) {
	if size.W <= 0 || size.H <= 0 {
		return nil, fmt.Errorf("缩略图尺寸无效：%gx%g", size.W, size.H)
	}
	doc := document.New()
	doc.Styles = sheet
	b := doc.AddParagraph(nil, t.sample(), document.BlockFormat{Style: name})
	doc.Reindex()
	if err := sheet.ApplyAll(doc); err != nil {
		return nil, err
	}
	// 预览只有一页
	b.Format.BreakBefore = document.BreakNone
	b.Format.BreakAfter = document.BreakNone
	b.Format.MasterPage = ""

	provider := layout.NewPageProvider(layout.PageFormat{Size: size, Margins: document.Uniform(padding)})
	dl := layout.New(doc, provider, layout.Options{Typesetter: t.renderer})
	if err := dl.Layout(); err != nil {
		return nil, fmt.Errorf("样式 %s 预览排版失败: %w", name, err)
	}

	w, h := size.W*layout.PtToMm, size.H*layout.PtToMm
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	if len(dl.Pages()) > 0 {
		dl.PaintPage(t.renderer.NewPainter(ctx), 0, layout.PaintContext{})
	}
	res := t.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	layout.Logger().Debug("style thumbnail rendered", "style", name, "width", size.W, "height", size.H)
	return rasterizer.Draw(c, canvas.DPMM(res), canvas.DefaultColorSpace), nil
}
