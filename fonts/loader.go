package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Loader 按资源 src 读取字体或图片数据，并缓存读取结果。
//
// src 支持三种写法：
//   - "built-in:<name>" 或 "builtin:<name>"：调用方注入的 Blobs
//   - "embed:<name>"：内置 Latin Modern 字体
//   - 文件路径：相对路径基于 BaseDir 解析
type Loader struct {
	BaseDir string
	Blobs   map[string][]byte

	mu    sync.Mutex
	cache map[string][]byte
}

// NewLoader 创建以 baseDir 为资源目录的 Loader。
func NewLoader(baseDir string, blobs map[string][]byte) *Loader {
	if blobs == nil {
		blobs = map[string][]byte{}
	}
	return &Loader{BaseDir: baseDir, Blobs: blobs, cache: map[string][]byte{}}
}

// Bytes 读取 src 指向的数据。
func (l *Loader) Bytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("资源缺少 src")
	}
	if name, ok := builtinName(src); ok {
		if blob, ok := l.Blobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return Load(src)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if data, ok := l.cache[src]; ok {
		return data, nil
	}
	if l.BaseDir == "" && !filepath.IsAbs(src) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 built-in: 或 embed:）", src)
	}
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取资源 %s 失败: %w", src, err)
	}
	if l.cache == nil {
		l.cache = map[string][]byte{}
	}
	l.cache[src] = data
	return data, nil
}

func builtinName(src string) (string, bool) {
	for _, prefix := range []string{"built-in:", "builtin:"} {
		if name, ok := strings.CutPrefix(src, prefix); ok {
			return name, true
		}
	}
	return "", false
}
