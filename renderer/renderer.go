// Package renderer turns a layout result into an output file.
package renderer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ByLCY/textflow/layout"
)

// Renderer encodes a paginated result, for example as PDF bytes.
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// WriteFile renders result and writes it to path, creating the parent
// directory when needed.
func WriteFile(r Renderer, result *layout.Result, path string) error {
	data, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	layout.Logger().Debug("output written", "path", path, "pages", len(result.Pages), "bytes", len(data))
	return nil
}
