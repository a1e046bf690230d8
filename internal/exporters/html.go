package exporters

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"

	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/fileutil"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/internal/render"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// HTMLExporter 渲染 HTML 输出。PDF 导出复用其模板填充。
type HTMLExporter struct {
	engine   *render.Engine
	resolver *processors.ImageResolver
	log      logger.Logger
}

// NewHTMLExporter 创建 HTML 导出器。
func NewHTMLExporter(engine *render.Engine, resolver *processors.ImageResolver, log logger.Logger) *HTMLExporter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &HTMLExporter{engine: engine, resolver: resolver, log: log}
}

// Format 返回导出格式名。
func (e *HTMLExporter) Format() string { return "html" }

// Export 填充模板（或生成兜底文档）并写出 HTML 文件。
func (e *HTMLExporter) Export(ctx context.Context, data *docmodel.DataStructure, templatePath, outputPath string, opts docmodel.ExportOptions) (docmodel.ProblemList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var problems docmodel.ProblemList
	var doc string

	if templatePath == "" {
		doc = generateDefaultHTML(data, e.resolver, &problems)
	} else {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			return problems, fmt.Errorf("读取模板失败: %w", err)
		}
		var fillProblems docmodel.ProblemList
		doc, fillProblems = e.FillTemplate(string(raw), data)
		problems = append(problems, fillProblems...)
	}

	if opts.Watermark {
		text := opts.WatermarkText
		if text == "" {
			text = docmodel.DefaultWatermarkText
		}
		doc = injectWatermarkCSS(doc, text, opts.WatermarkImagePath)
	}

	if err := fileutil.SafeSave(outputPath, []byte(doc)); err != nil {
		return problems, fmt.Errorf("写出 HTML 失败: %w", err)
	}
	e.log.Debug("HTML 导出完成", zap.String("path", outputPath))
	return problems, nil
}

// FillTemplate 先跑表达式引擎，再替换片段锚点。
func (e *HTMLExporter) FillTemplate(text string, data *docmodel.DataStructure) (string, docmodel.ProblemList) {
	out, problems := e.engine.Render(text, data, nil)
	out = substituteHTMLFragments(out, data, e.resolver, &problems)
	return out, problems
}

var headCloseRe = regexp.MustCompile(`(?i)</head>`)

// injectWatermarkCSS 在 </head> 前注入水印样式。
// 图片水印存在时优先于文字水印。
func injectWatermarkCSS(doc, text, imagePath string) string {
	css := ""
	if imagePath != "" {
		if img, err := os.ReadFile(imagePath); err == nil {
			css = fmt.Sprintf(`<style>
body::before {
    content: "";
    position: fixed;
    top: 0; left: 0; right: 0; bottom: 0;
    background-image: url(data:%s;base64,%s);
    background-repeat: repeat;
    opacity: 0.3;
    transform: rotate(-45deg);
    pointer-events: none;
    z-index: 9999;
}
</style>`, processors.ImageMIME(imagePath), base64.StdEncoding.EncodeToString(img))
		}
	}
	if css == "" {
		css = fmt.Sprintf(`<style>
body::after {
    content: "%s";
    position: fixed;
    top: 50%%; left: 50%%;
    transform: translate(-50%%, -50%%) rotate(-45deg);
    font-size: 60px;
    color: rgba(192, 192, 192, 0.3);
    white-space: nowrap;
    pointer-events: none;
    z-index: 9999;
}
</style>`, html.EscapeString(text))
	}

	if loc := headCloseRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + css + doc[loc[0]:]
	}
	return css + doc
}
