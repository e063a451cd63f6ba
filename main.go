package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/textflow/binding"
	"github.com/ByLCY/textflow/config"
	"github.com/ByLCY/textflow/dsl"
	"github.com/ByLCY/textflow/fonts"
	"github.com/ByLCY/textflow/generator"
	"github.com/ByLCY/textflow/layout"
	"github.com/ByLCY/textflow/renderer"
	canvasrenderer "github.com/ByLCY/textflow/renderer/canvas"
	"github.com/ByLCY/textflow/shaper/gotext"
)

// maxLayoutRounds 限制一次运行中 MaybeLayout 的次数，生成器会在排版完成后再次标脏。
const maxLayoutRounds = 16

func main() {
	input := flag.String("in", "examples/demo.flow", "DSL 文件路径")
	output := flag.String("out", "output/demo.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据，以 @ 开头时读取 JSON/YAML/TOML 文件")
	configPath := flag.String("config", "", "TOML 或 YAML 配置文件")
	verbose := flag.Bool("v", false, "输出调试日志")
	watch := flag.Bool("watch", false, "监视 DSL 文件，修改后增量重排")
	flag.Parse()

	inputData, err := loadData(*dataJSON)
	if err != nil {
		log.Fatalf("加载绑定数据失败: %v", err)
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
	}
	if *debug == "" {
		*debug = cfg.Debug.JSON
	}

	level := slog.LevelWarn
	if *verbose || cfg.Debug.Verbose {
		level = slog.LevelDebug
	}
	layout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	s := &session{
		cfg:        cfg,
		inputPath:  *input,
		outputPath: *output,
		debugPath:  *debug,
		data:       inputData,
		renderer:   canvasrenderer.NewRenderer(filepath.Dir(*input)),
	}
	if err := s.reload(); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)

	if *watch {
		if err := s.watch(); err != nil {
			log.Fatalf("监视文件失败: %v", err)
		}
	}
}

// loadData 解析 -data 参数：@path 读取数据文件，其余按 JSON 解析。
func loadData(arg string) (any, error) {
	switch {
	case arg == "":
		return nil, nil
	case strings.HasPrefix(arg, "@"):
		return binding.LoadFile(arg[1:])
	}
	var data any
	if err := json.Unmarshal([]byte(arg), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// session 串联解析、排版与渲染，并在监视模式下保留排版状态。
type session struct {
	cfg                              *config.Config
	inputPath, outputPath, debugPath string
	data                             any
	renderer                         *canvasrenderer.Renderer

	out *dsl.Output
	dl  *layout.DocumentLayout
	mgr *generator.Manager
}

// build 解析 DSL 文件并生成文档模型。
func (s *session) build() (*dsl.Output, error) {
	file, err := os.Open(s.inputPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开 DSL 文件 %s: %w", s.inputPath, err)
	}
	defer file.Close()

	ast, err := dsl.ParseFile(s.inputPath, file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	page, err := s.cfg.PageFormat()
	if err != nil {
		return nil, err
	}
	tab, err := s.cfg.TabInterval()
	if err != nil {
		return nil, err
	}
	notes, err := s.cfg.NotesConfig()
	if err != nil {
		return nil, err
	}
	out, err := dsl.Build(ast, dsl.BuildOptions{
		Data:        s.data,
		DefaultChar: s.cfg.DefaultChar(),
		Page:        page,
		TabInterval: tab,
		Notes:       &notes,
	})
	if err != nil {
		return nil, fmt.Errorf("构建文档失败: %w", err)
	}
	if len(out.Unbound) > 0 {
		layout.Logger().Warn("unbound placeholders", "paths", out.Unbound)
	}
	return out, nil
}

// reload 重新读取输入。结构未变时只把文字改动通知现有排版，否则重新建立排版。
func (s *session) reload() error {
	out, err := s.build()
	if err != nil {
		return err
	}
	if s.dl != nil {
		if changes, ok := s.out.Document.SyncText(out.Document); ok {
			layout.Logger().Debug("incremental relayout", "changes", len(changes))
			for _, c := range changes {
				s.dl.DocumentChanged(c.Position, c.Removed, c.Added)
			}
			return s.relayout()
		}
	}
	if err := s.start(out); err != nil {
		return err
	}
	return s.relayout()
}

// start 为 out 建立新的排版与生成器。
func (s *session) start(out *dsl.Output) error {
	opts, err := s.cfg.LayoutOptions()
	if err != nil {
		return err
	}
	opts.Typesetter = s.typesetter(out.Resources)

	provider := out.PageProvider()
	provider.MaxPages = s.cfg.Page.MaxPages
	dl := layout.New(out.Document, provider, opts)
	mgr := generator.NewManager(dl)
	if n := s.cfg.Index.MaxRegenerations; n > 0 {
		mgr.MaxRegenerations = n
	}
	for _, idx := range out.Indexes {
		mgr.Register(idx.Host, idx.Generator)
	}
	s.out, s.dl, s.mgr = out, dl, mgr
	return nil
}

func (s *session) typesetter(resources layout.ResourceSet) layout.Typesetter {
	switch strings.ToLower(s.cfg.Text.Shaper) {
	case "fixed":
		return layout.FixedTypesetter{}
	case "canvas":
		s.renderer.SetResources(resources)
		return s.renderer
	default:
		sh := gotext.New(resources, fonts.NewLoader(filepath.Dir(s.inputPath), nil))
		if s.cfg.Text.Language != "" {
			sh.SetLanguage(s.cfg.Text.Language)
		}
		return sh
	}
}

// relayout 排版直到不再标脏，然后输出文件。
func (s *session) relayout() error {
	for round := 0; round < maxLayoutRounds; round++ {
		ran, err := s.dl.MaybeLayout()
		if err != nil {
			return fmt.Errorf("布局计算失败: %w", err)
		}
		if !ran {
			break
		}
	}
	return s.write()
}

func (s *session) write() error {
	result := s.dl.ResultWith(s.out.Images, layout.PaintContext{ShowAreas: s.cfg.Debug.ShowAreas})
	result.Resources = s.out.Resources

	if s.debugPath != "" {
		if err := layout.WriteDebugJSON(result, s.debugPath); err != nil {
			return err
		}
	}
	return renderer.WriteFile(s.renderer, result, s.outputPath)
}

// watch 监视输入文件所在目录，文件被写入或替换时重新排版。
func (s *session) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// 监视目录而不是文件，编辑器保存时常以重命名替换文件
	if err := watcher.Add(filepath.Dir(s.inputPath)); err != nil {
		return err
	}
	target := filepath.Clean(s.inputPath)
	fmt.Printf("正在监视 %s\n", target)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if err := s.reload(); err != nil {
				layout.Logger().Error("relayout failed", "error", err)
				continue
			}
			fmt.Printf("已更新 PDF：%s\n", s.outputPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			layout.Logger().Error("watch failed", "error", err)
		}
	}
}
