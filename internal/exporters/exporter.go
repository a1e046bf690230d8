package exporters

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/internal/render"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// Exporter 是各导出格式的统一契约。模板路径为空时生成兜底文档。
// 返回的问题列表记录降级情况，error 仅在文件级失败时返回。
type Exporter interface {
	Format() string
	Export(ctx context.Context, data *docmodel.DataStructure, templatePath, outputPath string, opts docmodel.ExportOptions) (docmodel.ProblemList, error)
}

// substituteHTMLFragments 把渲染后文本中的片段锚点替换为 HTML 片段。
// 表格/图表开关关闭时锚点替换为空。
func substituteHTMLFragments(text string, data *docmodel.DataStructure, resolver *processors.ImageResolver, problems *docmodel.ProblemList) string {
	text = render.TableTokenRe.ReplaceAllStringFunc(text, func(token string) string {
		name := render.TableTokenRe.FindStringSubmatch(token)[1]
		if !data.EnableTable {
			return ""
		}
		rows, ok := data.Tables[name]
		if !ok {
			*problems = append(*problems, docmodel.Problem{
				Type:    docmodel.ProblemWarning,
				Field:   "tables." + name,
				Message: fmt.Sprintf("模板引用的表格 %q 不存在", name),
			})
			return ""
		}
		merges := processors.ParseMergeSpecs(data.Data["table_merge"], name)
		return processors.BuildHTMLTable(rows, merges)
	})

	text = render.ChartTokenRe.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(render.ChartTokenRe.FindStringSubmatch(token)[1])
		if !data.EnableChart {
			return ""
		}
		payload, ok := data.Charts[name]
		if !ok {
			*problems = append(*problems, docmodel.Problem{
				Type:    docmodel.ProblemWarning,
				Field:   "charts." + name,
				Message: fmt.Sprintf("模板引用的图表 %q 不存在", name),
			})
			return ""
		}
		spec, err := processors.ParseChartSpec(payload)
		if err != nil {
			*problems = append(*problems, chartWarning(name, err))
			return ""
		}
		png, err := processors.RenderChartPNG(spec)
		if err != nil {
			*problems = append(*problems, chartWarning(name, err))
			return ""
		}
		return fmt.Sprintf(`<img src="data:image/png;base64,%s" alt="%s" style="max-width:100%%;">`,
			base64.StdEncoding.EncodeToString(png), name)
	})

	text = render.ImageTokenRe.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(render.ImageTokenRe.FindStringSubmatch(token)[1])
		src := name
		alt := name
		if ref, ok := data.Images[name]; ok {
			src = ref.Src
			if ref.Alt != "" {
				alt = ref.Alt
			}
		}
		img, err := resolver.Resolve(src)
		if err != nil {
			*problems = append(*problems, imageWarning(name, err))
			return ""
		}
		return fmt.Sprintf(`<img src="data:%s;base64,%s" alt="%s" style="max-width:100%%;">`,
			processors.ImageMIME(src), base64.StdEncoding.EncodeToString(img), alt)
	})

	return text
}
