// Package config loads engine settings from TOML or YAML files. Lengths are
// strings with units ("20mm", "12pt"); bare numbers are millimetres for page
// geometry and points for type sizes, the same as in .flow documents.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

// ErrUnknownFormat is returned for files that are neither TOML nor YAML.
var ErrUnknownFormat = errors.New("config: 未知的配置文件格式")

// Config 汇总排版引擎的全部配置项。
type Config struct {
	Page      Page      `toml:"page" yaml:"page"`
	Text      Text      `toml:"text" yaml:"text"`
	RunAround RunAround `toml:"runaround" yaml:"runaround"`
	Notes     Notes     `toml:"notes" yaml:"notes"`
	Index     Index     `toml:"index" yaml:"index"`
	Debug     Debug     `toml:"debug" yaml:"debug"`
}

// Page 描述默认页面。
type Page struct {
	Size        string   `toml:"size" yaml:"size"`               // A4、LETTER 等
	Orientation string   `toml:"orientation" yaml:"orientation"` // portrait | landscape
	Width       string   `toml:"width" yaml:"width"`             // 自定义尺寸，优先于 size
	Height      string   `toml:"height" yaml:"height"`
	Margin      []string `toml:"margin" yaml:"margin"` // 1～4 个值，同 CSS 简写
	Columns     int      `toml:"columns" yaml:"columns"`
	ColumnGap   string   `toml:"column_gap" yaml:"column_gap"`
	Header      string   `toml:"header" yaml:"header"`
	Footer      string   `toml:"footer" yaml:"footer"`
	MaxPages    int      `toml:"max_pages" yaml:"max_pages"`
}

// Text 描述默认字符格式与测量方式。
type Text struct {
	Font        string  `toml:"font" yaml:"font"`
	Size        float64 `toml:"size" yaml:"size"` // pt
	TabInterval string  `toml:"tab_interval" yaml:"tab_interval"`
	Direction   string  `toml:"direction" yaml:"direction"` // ltr | rtl | auto
	// Shaper 选择测量后端：gotext（默认）、canvas 或 fixed。
	Shaper   string `toml:"shaper" yaml:"shaper"`
	Language string `toml:"language" yaml:"language"`
}

// RunAround 是绕排的默认距离与最小行宽。
type RunAround struct {
	Distance  string `toml:"distance" yaml:"distance"`
	Threshold string `toml:"threshold" yaml:"threshold"`
}

// Numbering 是一类注释的编号方式。
type Numbering struct {
	Format string `toml:"format" yaml:"format"` // 1, a, A, i, I
	Start  int    `toml:"start" yaml:"start"`
	Prefix string `toml:"prefix" yaml:"prefix"`
	Suffix string `toml:"suffix" yaml:"suffix"`
	Scope  string `toml:"scope" yaml:"scope"` // document | page
}

// Notes 配置脚注与尾注。
type Notes struct {
	Footnotes       Numbering `toml:"footnotes" yaml:"footnotes"`
	Endnotes        Numbering `toml:"endnotes" yaml:"endnotes"`
	SeparatorWidth  float64   `toml:"separator_width" yaml:"separator_width"` // 占区域宽度的百分比
	SeparatorSpace  string    `toml:"separator_space" yaml:"separator_space"`
	SeparatorWeight string    `toml:"separator_weight" yaml:"separator_weight"`
}

// Index 限制目录与参考文献的重新生成。
type Index struct {
	MaxRegenerations int `toml:"max_regenerations" yaml:"max_regenerations"`
}

// Debug 控制调试输出。
type Debug struct {
	JSON      string `toml:"json" yaml:"json"`
	ShowAreas bool   `toml:"show_areas" yaml:"show_areas"`
	Verbose   bool   `toml:"verbose" yaml:"verbose"`
}

// Default 返回内置默认配置：A4 纵向、四边 20mm、12pt 正文。
func Default() *Config {
	return &Config{
		Page: Page{Size: "A4", Orientation: "portrait", Margin: []string{"20mm"}, Columns: 1, ColumnGap: "5mm"},
		Text: Text{Size: 12, TabInterval: "36pt", Direction: "auto", Shaper: "gotext", Language: "en"},
		RunAround: RunAround{
			Distance:  "6pt",
			Threshold: "36pt",
		},
		Notes: Notes{
			Footnotes:       Numbering{Format: "1", Start: 1, Scope: "document"},
			Endnotes:        Numbering{Format: "i", Start: 1, Scope: "document"},
			SeparatorWidth:  25,
			SeparatorSpace:  "6pt",
			SeparatorWeight: "0.5pt",
		},
		Index: Index{MaxRegenerations: 4},
	}
}

// Load 读取配置文件，按扩展名选择 TOML 或 YAML，未出现的字段保留默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析配置内容，ext 为 ".toml"、".yaml" 或 ".yml"。
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PageFormat 将页面配置换算为 layout.PageFormat。
func (c *Config) PageFormat() (layout.PageFormat, error) {
	f := layout.DefaultPageFormat()
	p := c.Page
	if p.Size != "" {
		size, ok := layout.PaperSize(p.Size)
		if !ok {
			return f, fmt.Errorf("暂不支持的纸张尺寸：%s", p.Size)
		}
		f.Size = size
	}
	if p.Width != "" || p.Height != "" {
		w, err := length(p.Width, layout.UnitMM)
		if err != nil {
			return f, fmt.Errorf("page.width: %w", err)
		}
		h, err := length(p.Height, layout.UnitMM)
		if err != nil {
			return f, fmt.Errorf("page.height: %w", err)
		}
		if w <= 0 || h <= 0 {
			return f, fmt.Errorf("自定义页面尺寸需要同时给出 width 与 height")
		}
		f.Size.W, f.Size.H = w, h
	}
	switch strings.ToLower(p.Orientation) {
	case "", "portrait":
		if f.Size.W > f.Size.H {
			f.Size.W, f.Size.H = f.Size.H, f.Size.W
		}
	case "landscape":
		if f.Size.W < f.Size.H {
			f.Size.W, f.Size.H = f.Size.H, f.Size.W
		}
	default:
		return f, fmt.Errorf("未知的页面方向：%s", p.Orientation)
	}
	if len(p.Margin) > 4 {
		return f, fmt.Errorf("page.margin 最多 4 个值")
	}
	vals := make([]float64, 0, len(p.Margin))
	for _, m := range p.Margin {
		v, err := length(m, layout.UnitMM)
		if err != nil {
			return f, fmt.Errorf("page.margin: %w", err)
		}
		vals = append(vals, v)
	}
	f.Margins = layout.MarginShorthand(vals, f.Margins)
	f.Columns = max(p.Columns, 1)
	var err error
	for _, item := range []struct {
		name  string
		value string
		dst   *float64
	}{
		{"page.column_gap", p.ColumnGap, &f.ColumnGap},
		{"page.header", p.Header, &f.HeaderHeight},
		{"page.footer", p.Footer, &f.FooterHeight},
	} {
		if *item.dst, err = length(item.value, layout.UnitMM); err != nil {
			return f, fmt.Errorf("%s: %w", item.name, err)
		}
	}
	if c := f.Content(); c.W <= 0 || c.H <= 0 {
		return f, fmt.Errorf("页边距过大，页面没有版心")
	}
	return f, nil
}

// PageProvider 返回按配置分页的区域提供者。
func (c *Config) PageProvider() (*layout.PageProvider, error) {
	f, err := c.PageFormat()
	if err != nil {
		return nil, err
	}
	p := layout.NewPageProvider(f)
	p.MaxPages = c.Page.MaxPages
	return p, nil
}

// LayoutOptions 返回不含测量后端的排版选项，Typesetter 由调用方按 Text.Shaper 设置。
func (c *Config) LayoutOptions() (layout.Options, error) {
	var opts layout.Options
	var err error
	if opts.RunAroundDistance, err = length(c.RunAround.Distance, layout.UnitPT); err != nil {
		return opts, fmt.Errorf("runaround.distance: %w", err)
	}
	if opts.RunAroundThreshold, err = length(c.RunAround.Threshold, layout.UnitPT); err != nil {
		return opts, fmt.Errorf("runaround.threshold: %w", err)
	}
	switch strings.ToLower(c.Text.Direction) {
	case "", "auto":
		opts.Direction = document.DirectionAuto
	case "ltr":
		opts.Direction = document.DirectionLTR
	case "rtl":
		opts.Direction = document.DirectionRTL
	default:
		return opts, fmt.Errorf("未知的文字方向：%s", c.Text.Direction)
	}
	return opts, nil
}

// DefaultChar 返回正文的默认字符格式。
func (c *Config) DefaultChar() document.CharFormat {
	return document.CharFormat{Font: c.Text.Font, Size: c.Text.Size}
}

// TabInterval 返回默认制表位间距（pt）。
func (c *Config) TabInterval() (float64, error) {
	return length(c.Text.TabInterval, layout.UnitPT)
}

// NotesConfig 将注释配置换算为 document.NotesConfig。
func (c *Config) NotesConfig() (document.NotesConfig, error) {
	out := document.DefaultNotesConfig()
	var err error
	if out.FootNotes, err = numbering(c.Notes.Footnotes, out.FootNotes); err != nil {
		return out, fmt.Errorf("notes.footnotes: %w", err)
	}
	if out.EndNotes, err = numbering(c.Notes.Endnotes, out.EndNotes); err != nil {
		return out, fmt.Errorf("notes.endnotes: %w", err)
	}
	if c.Notes.SeparatorWidth > 0 {
		out.SeparatorWidth = c.Notes.SeparatorWidth
	}
	if c.Notes.SeparatorSpace != "" {
		if out.SeparatorSpace, err = length(c.Notes.SeparatorSpace, layout.UnitPT); err != nil {
			return out, fmt.Errorf("notes.separator_space: %w", err)
		}
	}
	if c.Notes.SeparatorWeight != "" {
		if out.SeparatorWeight, err = length(c.Notes.SeparatorWeight, layout.UnitPT); err != nil {
			return out, fmt.Errorf("notes.separator_weight: %w", err)
		}
	}
	return out, nil
}

// Validate 检查全部可换算的配置项。
func (c *Config) Validate() error {
	if _, err := c.PageFormat(); err != nil {
		return err
	}
	if _, err := c.LayoutOptions(); err != nil {
		return err
	}
	if _, err := c.TabInterval(); err != nil {
		return fmt.Errorf("text.tab_interval: %w", err)
	}
	if _, err := c.NotesConfig(); err != nil {
		return err
	}
	switch strings.ToLower(c.Text.Shaper) {
	case "", "gotext", "canvas", "fixed":
	default:
		return fmt.Errorf("未知的测量后端：%s", c.Text.Shaper)
	}
	if c.Page.MaxPages < 0 || c.Index.MaxRegenerations < 0 {
		return fmt.Errorf("max_pages 与 max_regenerations 不能为负数")
	}
	return nil
}

func numbering(n Numbering, base document.NoteNumbering) (document.NoteNumbering, error) {
	out := base
	if n.Format != "" {
		f, ok := document.ParseNumberFormat(n.Format)
		if !ok {
			return out, fmt.Errorf("未知的编号格式：%s", n.Format)
		}
		out.Format = f
	}
	if n.Start > 0 {
		out.Start = n.Start
	}
	out.Prefix = n.Prefix
	out.Suffix = n.Suffix
	switch strings.ToLower(n.Scope) {
	case "", "document":
		out.Scope = document.BeginAtDocument
	case "page":
		out.Scope = document.BeginAtPage
	default:
		return out, fmt.Errorf("未知的编号范围：%s", n.Scope)
	}
	return out, nil
}

// length 将带单位的长度换算为 pt，空字符串为 0，裸数字按 bare 解释。
func length(value string, bare layout.Unit) (float64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	l, err := layout.ParseLength(value)
	if err != nil {
		return 0, err
	}
	if l.Unit == layout.UnitNone {
		l.Unit = bare
	}
	return l.Pt(), nil
}
