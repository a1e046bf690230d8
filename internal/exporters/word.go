package exporters

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/docx"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/internal/render"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// WordExporter 渲染 .docx 输出。有模板时提取模板文本、过表达式引擎，
// 再按轻量标记语法（# 标题、| 表格、**加粗**）重建文档。
type WordExporter struct {
	engine   *render.Engine
	resolver *processors.ImageResolver
	md       goldmark.Markdown
	log      logger.Logger
}

// NewWordExporter 创建 Word 导出器。
func NewWordExporter(engine *render.Engine, resolver *processors.ImageResolver, log logger.Logger) *WordExporter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &WordExporter{
		engine:   engine,
		resolver: resolver,
		md:       goldmark.New(goldmark.WithExtensions(extension.Table)),
		log:      log,
	}
}

// Format 返回导出格式名。
func (e *WordExporter) Format() string { return "word" }

// Export 构建并写出 .docx 文件。
func (e *WordExporter) Export(ctx context.Context, data *docmodel.DataStructure, templatePath, outputPath string, opts docmodel.ExportOptions) (docmodel.ProblemList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var problems docmodel.ProblemList
	b := docx.NewBuilder()

	if templatePath == "" {
		generateDefaultWord(b, data, e.resolver, &problems)
	} else {
		f, err := docx.Read(templatePath)
		if err != nil {
			return problems, fmt.Errorf("读取模板失败: %w", err)
		}
		rendered, renderProblems := e.engine.Render(f.PlainText(), data, nil)
		problems = append(problems, renderProblems...)
		e.buildFromText(b, rendered, data, &problems)
	}

	if opts.Watermark {
		applied := false
		if opts.WatermarkImagePath != "" {
			if img, err := os.ReadFile(opts.WatermarkImagePath); err == nil {
				b.SetHeaderWatermarkImage(img)
				applied = true
			} else {
				problems = append(problems, docmodel.Problem{
					Type:    docmodel.ProblemWarning,
					Field:   "watermark",
					Message: fmt.Sprintf("水印图片不可读，退回文字水印: %v", err),
				})
			}
		}
		if !applied {
			text := opts.WatermarkText
			if text == "" {
				text = docmodel.DefaultWatermarkText
			}
			b.SetHeaderWatermark(text)
		}
	}
	if opts.RestrictEdit {
		if err := b.RestrictEditing(opts.Password); err != nil {
			return problems, fmt.Errorf("设置编辑保护失败: %w", err)
		}
	}

	if err := b.Save(outputPath); err != nil {
		return problems, fmt.Errorf("写出 docx 失败: %w", err)
	}
	e.log.Debug("Word 导出完成", zap.String("path", outputPath))
	return problems, nil
}

// buildFromText 解析渲染后文本并逐块写入构建器。
func (e *WordExporter) buildFromText(b *docx.Builder, text string, data *docmodel.DataStructure, problems *docmodel.ProblemList) {
	src := []byte(text)
	root := e.md.Parser().Parse(gtext.NewReader(src))

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			b.AddHeading(plainNodeText(n, src), n.Level)
		case *east.Table:
			headers, rows := extractMarkdownTable(n, src)
			if len(headers) > 0 {
				b.AddTable(headers, rows, nil)
			}
		case *ast.Paragraph:
			e.emitParagraph(b, n, src, data, problems)
		default:
			if t := plainNodeText(node, src); strings.TrimSpace(t) != "" {
				b.AddText(t)
			}
		}
	}
}

// emitParagraph 输出一个段落。含片段锚点时按锚点切分，
// 文本与表格/图表/图片交错写入。
func (e *WordExporter) emitParagraph(b *docx.Builder, n *ast.Paragraph, src []byte, data *docmodel.DataStructure, problems *docmodel.ProblemList) {
	text := plainNodeText(n, src)

	if !strings.Contains(text, "{{") {
		runs := inlineRuns(n, src)
		if len(runs) > 0 {
			b.AddParagraph(runs...)
		}
		return
	}

	rest := text
	for {
		loc, kind, name := nextAnchor(rest)
		if loc == nil {
			break
		}
		if head := strings.TrimSpace(rest[:loc[0]]); head != "" {
			b.AddText(head)
		}
		switch kind {
		case "table":
			e.emitTable(b, name, data, problems)
		case "chart":
			e.emitChart(b, name, data, problems)
		case "image":
			e.emitImage(b, name, data, problems)
		}
		rest = rest[loc[1]:]
	}
	if tail := strings.TrimSpace(rest); tail != "" {
		b.AddText(tail)
	}
}

// nextAnchor 找到最靠前的片段锚点。
func nextAnchor(text string) (loc []int, kind, name string) {
	type hit struct {
		loc  []int
		kind string
		name string
	}
	var best *hit
	check := func(re *regexp.Regexp, k string) {
		if m := re.FindStringSubmatchIndex(text); m != nil {
			if best == nil || m[0] < best.loc[0] {
				best = &hit{loc: []int{m[0], m[1]}, kind: k, name: strings.TrimSpace(text[m[2]:m[3]])}
			}
		}
	}
	check(render.TableTokenRe, "table")
	check(render.ChartTokenRe, "chart")
	check(render.ImageTokenRe, "image")
	if best == nil {
		return nil, "", ""
	}
	return best.loc, best.kind, best.name
}

func (e *WordExporter) emitTable(b *docx.Builder, name string, data *docmodel.DataStructure, problems *docmodel.ProblemList) {
	if !data.EnableTable {
		return
	}
	rows, ok := data.Tables[name]
	if !ok {
		*problems = append(*problems, docmodel.Problem{
			Type:    docmodel.ProblemWarning,
			Field:   "tables." + name,
			Message: fmt.Sprintf("模板引用的表格 %q 不存在", name),
		})
		return
	}
	cols := processors.ColumnOrder(rows)
	merges := processors.ParseMergeSpecs(data.Data["table_merge"], name)
	b.AddTable(cols, processors.TableCells(rows, cols), merges)
}

func (e *WordExporter) emitChart(b *docx.Builder, name string, data *docmodel.DataStructure, problems *docmodel.ProblemList) {
	if !data.EnableChart {
		return
	}
	payload, ok := data.Charts[name]
	if !ok {
		*problems = append(*problems, docmodel.Problem{
			Type:    docmodel.ProblemWarning,
			Field:   "charts." + name,
			Message: fmt.Sprintf("模板引用的图表 %q 不存在", name),
		})
		return
	}
	spec, err := processors.ParseChartSpec(payload)
	if err != nil {
		*problems = append(*problems, chartWarning(name, err))
		return
	}
	png, err := processors.RenderChartPNG(spec)
	if err != nil {
		*problems = append(*problems, chartWarning(name, err))
		return
	}
	b.AddImage(png, 576, 384)
}

func (e *WordExporter) emitImage(b *docx.Builder, name string, data *docmodel.DataStructure, problems *docmodel.ProblemList) {
	src := name
	if ref, ok := data.Images[name]; ok {
		src = ref.Src
	}
	img, err := e.resolver.Resolve(src)
	if err != nil {
		*problems = append(*problems, imageWarning(name, err))
		return
	}
	b.AddImage(img, 0, 0)
}

// plainNodeText 拼接节点的全部文本内容。
func plainNodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(node ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteString("\n")
				}
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// inlineRuns 把行内节点转成带加粗标记的片段序列。
func inlineRuns(n ast.Node, src []byte) []docx.RunSpec {
	var runs []docx.RunSpec
	var walk func(node ast.Node, bold bool)
	walk = func(node ast.Node, bold bool) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				runs = append(runs, docx.RunSpec{Text: string(t.Segment.Value(src)), Bold: bold})
				if t.SoftLineBreak() || t.HardLineBreak() {
					runs = append(runs, docx.RunSpec{Text: " ", Bold: bold})
				}
			case *ast.Emphasis:
				walk(c, bold || t.Level >= 2)
			default:
				walk(c, bold)
			}
		}
	}
	walk(n, false)
	return runs
}

// extractMarkdownTable 取出表头与数据行文本。
func extractMarkdownTable(t *east.Table, src []byte) ([]string, [][]string) {
	var headers []string
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(plainNodeText(cell, src)))
		}
		if _, isHeader := row.(*east.TableHeader); isHeader {
			headers = cells
		} else {
			rows = append(rows, cells)
		}
	}
	return headers, rows
}
