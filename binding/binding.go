// Package binding substitutes ${path} placeholders in DSL text with values
// from caller supplied data.
package binding

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Scope resolves placeholders against one data value and records the paths
// it could not resolve.
type Scope struct {
	data    any
	missing []string
}

// NewScope returns a scope over data. A nil data leaves every placeholder
// untouched.
func NewScope(data any) *Scope {
	return &Scope{data: data}
}

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若路径不存在，则使用 ${path|默认值} 中的默认值，否则保留原占位符。
func Interpolate(text string, data any) string {
	return NewScope(data).Expand(text)
}

// Expand replaces every placeholder in text.
func (s *Scope) Expand(text string) string {
	if s.data == nil || !strings.Contains(text, "${") {
		return text
	}
	var sb strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "${")
		if open < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:open])
		placeholder := rest[open : open+end+1]
		sb.WriteString(s.replace(placeholder))
		rest = rest[open+end+1:]
	}
	return sb.String()
}

// Missing returns the placeholder paths that had neither a value nor a
// fallback, in the order they were met.
func (s *Scope) Missing() []string {
	return s.missing
}

func (s *Scope) replace(placeholder string) string {
	body := placeholder[2 : len(placeholder)-1]
	path, fallback, hasFallback := strings.Cut(body, "|")
	path = strings.TrimSpace(path)
	if path == "" {
		return placeholder
	}
	if val, ok := Lookup(s.data, path); ok {
		return format(val)
	}
	if hasFallback {
		return strings.TrimSpace(fallback)
	}
	s.missing = append(s.missing, path)
	return placeholder
}

// Lookup walks a dotted path such as authors[0].name through maps, slices
// and exported struct fields.
func Lookup(data any, path string) (any, bool) {
	current := reflect.ValueOf(data)
	for _, segment := range strings.Split(path, ".") {
		name, indexes, ok := splitSegment(segment)
		if !ok {
			return nil, false
		}
		if name != "" {
			if current, ok = field(current, name); !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			if current, ok = element(current, idx); !ok {
				return nil, false
			}
		}
	}
	if !current.IsValid() {
		return nil, false
	}
	return current.Interface(), true
}

// splitSegment separates "rows[1][2]" into the name and its indexes.
func splitSegment(segment string) (string, []int, bool) {
	name, rest, found := strings.Cut(segment, "[")
	if !found {
		return segment, nil, true
	}
	var indexes []int
	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest[1:end]))
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, n)
		rest = rest[end+1:]
	}
	return name, indexes, true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func field(v reflect.Value, name string) (reflect.Value, bool) {
	v = indirect(v)
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		val := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		return val, val.IsValid()
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if f.Name == name || tagName(f) == name {
				return v.Field(i), true
			}
		}
	}
	return reflect.Value{}, false
}

// tagName honours the yaml and json tags so data decoded from files binds by
// its file keys.
func tagName(f reflect.StructField) string {
	for _, key := range []string{"yaml", "json", "toml"} {
		if tag, _, _ := strings.Cut(f.Tag.Get(key), ","); tag != "" && tag != "-" {
			return tag
		}
	}
	return ""
}

func element(v reflect.Value, idx int) (reflect.Value, bool) {
	v = indirect(v)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if idx < 0 || idx >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(idx), true
	}
	return reflect.Value{}, false
}

// format prints whole floats without a fraction so JSON numbers read
// naturally in running text.
func format(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(val)
}

// LoadFile decodes a JSON, YAML or TOML data file by its extension.
func LoadFile(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败: %w", err)
	}
	return Decode(raw, filepath.Ext(path))
}

// Decode parses raw data in the format named by ext. JSON is read through the
// YAML decoder, which accepts it as a subset.
func Decode(raw []byte, ext string) (any, error) {
	var data any
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		var m map[string]any
		if err := toml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("解析 TOML 数据失败: %w", err)
		}
		return m, nil
	case "yaml", "yml", "json", "":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("解析数据失败: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("不支持的数据格式 %q", ext)
	}
}
