package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/textflow/document"
	"github.com/ByLCY/textflow/layout"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	f, err := cfg.PageFormat()
	require.NoError(t, err)
	if !near(f.Size.W, layout.A4.W) && !near(f.Size.W, 210*layout.MmToPt) {
		t.Fatalf("默认纸张应为 A4，得到宽度 %g", f.Size.W)
	}
	if !near(f.Margins.Left, 20*layout.MmToPt) {
		t.Fatalf("默认页边距应为 20mm，得到 %gpt", f.Margins.Left)
	}

	opts, err := cfg.LayoutOptions()
	require.NoError(t, err)
	assert.Equal(t, 6.0, opts.RunAroundDistance)
	assert.Equal(t, 36.0, opts.RunAroundThreshold)
	assert.Equal(t, document.DirectionAuto, opts.Direction)
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
[page]
size = "A5"
orientation = "landscape"
margin = ["10mm", "15mm"]
columns = 2
column_gap = "4mm"
max_pages = 3

[text]
font = "Body"
size = 10.0
shaper = "fixed"

[notes.footnotes]
format = "a"
prefix = "("
suffix = ")"
scope = "page"
`)
	cfg, err := Parse(data, ".toml")
	require.NoError(t, err)

	f, err := cfg.PageFormat()
	require.NoError(t, err)
	if f.Size.W < f.Size.H {
		t.Fatalf("横向页面宽应大于高: %gx%g", f.Size.W, f.Size.H)
	}
	want := document.Insets{
		Top: 10 * layout.MmToPt, Bottom: 10 * layout.MmToPt,
		Left: 15 * layout.MmToPt, Right: 15 * layout.MmToPt,
	}
	if diff := cmp.Diff(want, f.Margins); diff != "" {
		t.Fatalf("页边距不符 (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, f.Columns)

	p, err := cfg.PageProvider()
	require.NoError(t, err)
	assert.Equal(t, 3, p.MaxPages)

	assert.Equal(t, document.CharFormat{Font: "Body", Size: 10}, cfg.DefaultChar())

	notes, err := cfg.NotesConfig()
	require.NoError(t, err)
	assert.Equal(t, document.FormatAlphaLower, notes.FootNotes.Format)
	assert.Equal(t, "(", notes.FootNotes.Prefix)
	assert.Equal(t, document.BeginAtPage, notes.FootNotes.Scope)
	assert.Equal(t, document.FormatRomanLower, notes.EndNotes.Format, "未配置的尾注保持默认")
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
page:
  width: 100mm
  height: 150mm
  margin: ["5mm"]
runaround:
  distance: 2mm
text:
  direction: rtl
index:
  max_regenerations: 2
`)
	cfg, err := Parse(data, ".yml")
	require.NoError(t, err)

	f, err := cfg.PageFormat()
	require.NoError(t, err)
	assert.InDelta(t, 100*layout.MmToPt, f.Size.W, 1e-6)
	assert.InDelta(t, 150*layout.MmToPt, f.Size.H, 1e-6)

	opts, err := cfg.LayoutOptions()
	require.NoError(t, err)
	assert.InDelta(t, 2*layout.MmToPt, opts.RunAroundDistance, 1e-6)
	assert.Equal(t, document.DirectionRTL, opts.Direction)
	assert.Equal(t, 2, cfg.Index.MaxRegenerations)
}

func TestParseEmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil, ".yaml")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("空配置应等于默认配置 (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("{}"), ".json")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("未知扩展名应返回 ErrUnknownFormat，得到 %v", err)
	}

	cases := map[string]struct {
		data string
		ext  string
	}{
		"未知字段":  {"[page]\npaper = \"A4\"\n", ".toml"},
		"未知纸张":  {"[page]\nsize = \"A0\"\n", ".toml"},
		"页边距过大": {"page:\n  margin: [\"200mm\"]\n", ".yaml"},
		"未知方向":  {"text:\n  direction: up\n", ".yaml"},
		"未知后端":  {"[text]\nshaper = \"cairo\"\n", ".toml"},
		"未知编号":  {"[notes.endnotes]\nformat = \"x\"\n", ".toml"},
		"缺少高度":  {"[page]\nwidth = \"100mm\"\n", ".toml"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(c.data), c.ext); err == nil {
				t.Fatalf("%s 应报错", name)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "textflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("[text]\nsize = 11.0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 11.0, cfg.Text.Size)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}
