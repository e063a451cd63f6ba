package layout

import "github.com/ByLCY/textflow/document"

// 该文件定义布局结果的可序列化模型，供渲染与调试 JSON 共用。坐标单位为 mm。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []ResultPage `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体与图片定义。
type ResourceSet struct {
	Fonts  map[string]FontResource  `json:"fonts"`
	Images map[string]ImageResource `json:"images"`
}

// FontResource 描述字体资源，src 可以是文件路径、内置 embed 路径或 builtin:* 形式。
type FontResource struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Style  string `json:"style"`
	Family string `json:"family"` // 渲染器使用的 Family 名称
}

// ImageResource 记录图片资源，宽高以毫米为单位保存。
type ImageResource struct {
	Name   string  `json:"name"`
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResultPage 记录页面尺寸与最终可以直接渲染的元素。
type ResultPage struct {
	Index   int         `json:"index"`
	Number  int         `json:"number"`
	Master  string      `json:"master,omitempty"`
	Width   float64     `json:"width"`
	Height  float64     `json:"height"`
	Content Rect        `json:"content"`
	Texts   []TextRun   `json:"texts"`
	Lines   []Line      `json:"lines,omitempty"`
	Rects   []Rect      `json:"rects,omitempty"`
	Objects []ObjectBox `json:"objects,omitempty"`
}

// TextRun 是一段同格式文字，Y 为基线位置。
type TextRun struct {
	Content  string         `json:"content"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Font     string         `json:"font"`
	FontSize float64        `json:"fontSize"` // pt
	Bold     bool           `json:"bold,omitempty"`
	Italic   bool           `json:"italic,omitempty"`
	Color    document.Color `json:"color"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64        `json:"x1"`
	Y1    float64        `json:"y1"`
	X2    float64        `json:"x2"`
	Y2    float64        `json:"y2"`
	Color document.Color `json:"color"`
	Width float64        `json:"width"` // 线宽（mm）
}

// Rect 表示一个矩形。
type Rect struct {
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	StrokeColor document.Color  `json:"strokeColor"`
	StrokeWidth float64         `json:"strokeWidth"`         // mm，0 表示不描边
	FillColor   *document.Color `json:"fillColor,omitempty"` // 为空表示不填充
}

// ObjectBox 是锚定对象（图片或占位框）的最终位置。
type ObjectBox struct {
	ID     string          `json:"id"`
	Label  string          `json:"label,omitempty"`
	Image  string          `json:"image,omitempty"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Fill   *document.Color `json:"fill,omitempty"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
