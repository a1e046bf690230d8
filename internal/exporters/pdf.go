package exporters

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/internal/security"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// PDFExporter 先走 HTML 渲染管线，再用无头 Chrome 打印成 PDF，
// 水印与加密交给 PDF 后处理。
type PDFExporter struct {
	html       *HTMLExporter
	chromePath string
	log        logger.Logger
}

// NewPDFExporter 创建 PDF 导出器。chromePath 为空时自动探测本机浏览器，
// 探测失败返回错误，调用方可据此提前拒绝 PDF 任务。
func NewPDFExporter(html *HTMLExporter, chromePath string, log logger.Logger) (*PDFExporter, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if chromePath == "" {
		p, ok := launcher.LookPath()
		if !ok {
			return nil, fmt.Errorf("未找到可用的 Chrome/Chromium，无法生成 PDF")
		}
		chromePath = p
	}
	if _, err := os.Stat(chromePath); err != nil {
		return nil, fmt.Errorf("浏览器路径不可用 %s: %w", chromePath, err)
	}
	return &PDFExporter{html: html, chromePath: chromePath, log: log}, nil
}

// Format 返回导出格式名。
func (e *PDFExporter) Format() string { return "pdf" }

// Export 生成 PDF 文件。HTML 阶段不注入 CSS 水印，统一由
// PDF 水印保证打印后仍然可见。
func (e *PDFExporter) Export(ctx context.Context, data *docmodel.DataStructure, templatePath, outputPath string, opts docmodel.ExportOptions) (docmodel.ProblemList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "docexport-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "page.html")
	htmlOpts := opts
	htmlOpts.Watermark = false
	problems, err := e.html.Export(ctx, data, templatePath, htmlPath, htmlOpts)
	if err != nil {
		return problems, fmt.Errorf("渲染 HTML 失败: %w", err)
	}

	if err := e.printToPDF(ctx, htmlPath, outputPath); err != nil {
		return problems, err
	}

	if opts.Watermark {
		text := opts.WatermarkText
		if text == "" {
			text = docmodel.DefaultWatermarkText
		}
		if err := security.WatermarkPDF(outputPath, text, opts.WatermarkImagePath); err != nil {
			problems = append(problems, docmodel.Problem{
				Type:    docmodel.ProblemWarning,
				Field:   "watermark",
				Message: fmt.Sprintf("PDF 水印失败: %v", err),
			})
		}
	}
	e.log.Debug("PDF 导出完成", zap.String("path", outputPath))
	return problems, nil
}

// printToPDF 启动无头浏览器加载本地页面并打印。
func (e *PDFExporter) printToPDF(ctx context.Context, htmlPath, outputPath string) error {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return err
	}

	l := launcher.New().Bin(e.chromePath).Headless(true)
	defer l.Cleanup()
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + abs})
	if err != nil {
		return fmt.Errorf("打开页面失败: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return fmt.Errorf("打印 PDF 失败: %w", err)
	}
	pdf, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("读取 PDF 流失败: %w", err)
	}
	return os.WriteFile(outputPath, pdf, 0o644)
}
