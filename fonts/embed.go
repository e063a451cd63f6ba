package fonts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10italic"
	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10oblique"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// builtin 内置的 Latin Modern 字体，键为 embed: 之后的名称。
var builtin = map[string][]byte{
	"lmroman10-regular":    lmroman10regular.TTF,
	"lmroman10-bold":       lmroman10bold.TTF,
	"lmroman10-italic":     lmroman10italic.TTF,
	"lmroman10-bolditalic": lmroman10bolditalic.TTF,
	"lmsans10-regular":     lmsans10regular.TTF,
	"lmsans10-bold":        lmsans10bold.TTF,
	"lmsans10-oblique":     lmsans10oblique.TTF,
	"lmmono10-regular":     lmmono10regular.TTF,
	"lmmono10-italic":      lmmono10italic.TTF,
}

// Load 返回内置字体的字节数据，path 可写为 "embed:lmroman10-regular" 或直接 "lmroman10-regular"。
func Load(path string) ([]byte, error) {
	name := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(path, "embed:"), ".ttf"))
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体", path)
	}
	return data, nil
}

// Default 返回正文回退字体（Latin Modern Roman）的对应字形变体。
func Default(bold, italic bool) []byte {
	switch {
	case bold && italic:
		return lmroman10bolditalic.TTF
	case bold:
		return lmroman10bold.TTF
	case italic:
		return lmroman10italic.TTF
	default:
		return lmroman10regular.TTF
	}
}

// Names 列出全部内置字体名称。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
