package binding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type author struct {
	Name  string `yaml:"name"`
	Email string
}

func TestInterpolateMapsAndSlices(t *testing.T) {
	data := map[string]any{
		"title":   "Manual",
		"version": 2.0,
		"ratio":   0.25,
		"authors": []any{map[string]any{"name": "Ada"}, map[string]any{"name": "Grace"}},
		"grid":    []any{[]any{"a", "b"}, []any{"c", "d"}},
	}
	assert.Equal(t, "Manual v2 (0.25)", Interpolate("${title} v${version} (${ratio})", data))
	assert.Equal(t, "by Grace", Interpolate("by ${ authors[1].name }", data))
	assert.Equal(t, "d", Interpolate("${grid[1][1]}", data))
	assert.Equal(t, "${authors[5].name}", Interpolate("${authors[5].name}", data), "越界的下标应保留占位符")
	assert.Equal(t, "${title", Interpolate("${title", data), "未闭合的占位符原样输出")
	assert.Equal(t, "${title}", Interpolate("${title}", nil))
}

func TestInterpolateStructsAndTypedCollections(t *testing.T) {
	data := struct {
		Authors []author
		Counts  map[string]int
		Owner   *author
	}{
		Authors: []author{{Name: "Ada", Email: "ada@example.com"}},
		Counts:  map[string]int{"pages": 12},
		Owner:   &author{Name: "Lin"},
	}
	assert.Equal(t, "Ada <ada@example.com>", Interpolate("${Authors[0].name} <${Authors[0].Email}>", data))
	assert.Equal(t, "12 pages", Interpolate("${Counts.pages} pages", data))
	assert.Equal(t, "Lin", Interpolate("${Owner.Name}", data))
}

func TestScopeFallbackAndMissing(t *testing.T) {
	s := NewScope(map[string]any{"name": "Ada"})
	got := s.Expand("${name}, ${city|unknown}, ${zip}, ${country}")
	assert.Equal(t, "Ada, unknown, ${zip}, ${country}", got)
	assert.Equal(t, []string{"zip", "country"}, s.Missing())
}

func TestLookup(t *testing.T) {
	v, ok := Lookup(map[string]any{"a": map[string]any{"b": []any{1, 2}}}, "a.b[1]")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = Lookup(map[string]any{"a": 1}, "a[x]")
	assert.False(t, ok, "非数字下标应失败")
	_, ok = Lookup(map[int]any{1: "x"}, "1")
	assert.False(t, ok, "非字符串键的映射不可按名称访问")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"data.json": `{"name": "Ada", "tags": ["x", "y"]}`,
		"data.yaml": "name: Ada\ntags:\n  - x\n  - y\n",
		"data.toml": "name = \"Ada\"\ntags = [\"x\", \"y\"]\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		data, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, "Ada y", Interpolate("${name} ${tags[1]}", data), name)
	}

	_, err := Decode([]byte("x"), ".ini")
	assert.Error(t, err)
	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
