package exporters

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"sort"

	"github.com/nikk909/Document-Management-System-DMS/internal/docx"
	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// 没有模板时的兜底文档生成：标题、正文、逐表格小节、图表、图片，
// 以及仅在一个表格都没渲染时才追加的原始数据递归展开。

// dataTableDisplayName 是通用 "data" 表在兜底文档里的显示名。
const dataTableDisplayName = "数据表格"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// generateDefaultWord 用构建器拼装兜底 Word 文档。
func generateDefaultWord(b *docx.Builder, data *docmodel.DataStructure, resolver *processors.ImageResolver, problems *docmodel.ProblemList) {
	if data.Title != "" {
		b.AddTitle(data.Title)
	}
	if data.Content != "" {
		b.AddText(data.Content)
	}

	tablesRendered := 0
	if data.EnableTable {
		for _, name := range data.TableNames() {
			rows := data.Tables[name]
			if len(rows) == 0 {
				continue
			}
			display := name
			if name == "data" {
				display = dataTableDisplayName
			}
			b.AddHeading(display, 2)
			cols := processors.ColumnOrder(rows)
			merges := processors.ParseMergeSpecs(data.Data["table_merge"], name)
			b.AddTable(cols, processors.TableCells(rows, cols), merges)
			tablesRendered++
		}
	}

	if data.EnableChart {
		for _, name := range sortedKeys(data.Charts) {
			spec, err := processors.ParseChartSpec(data.Charts[name])
			if err != nil {
				*problems = append(*problems, chartWarning(name, err))
				continue
			}
			png, err := processors.RenderChartPNG(spec)
			if err != nil {
				*problems = append(*problems, chartWarning(name, err))
				continue
			}
			b.AddHeading(spec.Title, 2)
			b.AddImage(png, 576, 384)
		}
	}

	for _, name := range sortedKeys(data.Images) {
		ref := data.Images[name]
		img, err := resolver.Resolve(ref.Src)
		if err != nil {
			*problems = append(*problems, imageWarning(name, err))
			continue
		}
		b.AddHeading(name, 3)
		b.AddImage(img, 0, 0)
	}

	if tablesRendered == 0 {
		dumpRawWord(b, data.Data, 2)
	}
}

func dumpRawWord(b *docx.Builder, m map[string]interface{}, depth int) {
	for _, key := range sortedKeys(m) {
		if reservedRawKey(key) {
			continue
		}
		switch v := m[key].(type) {
		case []interface{}:
			rows := rawListRows(v)
			if rows == nil {
				continue
			}
			b.AddHeading(key, depth)
			cols := processors.ColumnOrder(rows)
			b.AddTable(cols, processors.TableCells(rows, cols), nil)
		case map[string]interface{}:
			b.AddHeading(key, depth)
			dumpRawWord(b, v, min(depth+1, 3))
		default:
			b.AddParagraph(docx.RunSpec{Text: key + ": ", Bold: true},
				docx.RunSpec{Text: processors.FormatValue(v)})
		}
	}
}

// rawListRows 把原始列表折算成可展示的行：对象列表原样，
// 标量列表折叠为 (序号, 值) 两列。
func rawListRows(list []interface{}) []map[string]interface{} {
	if len(list) == 0 {
		return nil
	}
	if _, ok := list[0].(map[string]interface{}); ok {
		rows := make([]map[string]interface{}, 0, len(list))
		for _, it := range list {
			if row, ok := it.(map[string]interface{}); ok {
				rows = append(rows, row)
			}
		}
		return rows
	}
	rows := make([]map[string]interface{}, 0, len(list))
	for i, it := range list {
		rows = append(rows, map[string]interface{}{"序号": i + 1, "值": it})
	}
	return rows
}

func reservedRawKey(key string) bool {
	switch key {
	case "table_data", "chart_data", "images", "document", "table_merge",
		"enable_table", "enable_chart", "title", "content":
		return true
	}
	return false
}

// defaultStyleSheet 是兜底 HTML 的内嵌样式。
const defaultStyleSheet = `<style>
body {
    font-family: "Microsoft YaHei", "PingFang SC", "Helvetica Neue", Arial, sans-serif;
    max-width: 960px;
    margin: 0 auto;
    padding: 24px;
    color: #333;
    line-height: 1.6;
}
h1 {
    color: #2c3e50;
    border-bottom: 3px solid #3498db;
    padding-bottom: 10px;
    text-align: center;
}
h2 {
    color: #2c3e50;
    border-left: 4px solid #3498db;
    padding-left: 10px;
    margin-top: 30px;
}
h3 { color: #34495e; }
table {
    width: 100%;
    border-collapse: collapse;
    margin: 16px 0;
}
th, td {
    border: 1px solid #ddd;
    padding: 8px 12px;
    text-align: left;
}
th { background-color: #3498db; color: #fff; }
tbody tr:nth-child(even) { background-color: #f7f9fb; }
tbody tr:hover { background-color: #eef5fc; }
.json-section { margin: 16px 0; }
.info-item { margin: 4px 0; }
img { max-width: 100%; }
</style>`

// generateDefaultHTML 生成完整的兜底 HTML 文档。
func generateDefaultHTML(data *docmodel.DataStructure, resolver *processors.ImageResolver, problems *docmodel.ProblemList) string {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(data.Title))
	buf.WriteString(defaultStyleSheet)
	buf.WriteString("\n</head>\n<body>\n")

	if data.Title != "" {
		fmt.Fprintf(&buf, "<h1>%s</h1>\n", html.EscapeString(data.Title))
	}
	if data.Content != "" {
		fmt.Fprintf(&buf, "<p>%s</p>\n", html.EscapeString(data.Content))
	}

	tablesRendered := 0
	if data.EnableTable {
		for _, name := range data.TableNames() {
			rows := data.Tables[name]
			if len(rows) == 0 {
				continue
			}
			display := name
			if name == "data" {
				display = dataTableDisplayName
			}
			fmt.Fprintf(&buf, "<h2>%s</h2>\n", html.EscapeString(display))
			merges := processors.ParseMergeSpecs(data.Data["table_merge"], name)
			buf.WriteString(processors.BuildHTMLTable(rows, merges))
			buf.WriteString("\n")
			tablesRendered++
		}
	}

	if data.EnableChart {
		for _, name := range sortedKeys(data.Charts) {
			spec, err := processors.ParseChartSpec(data.Charts[name])
			if err != nil {
				*problems = append(*problems, chartWarning(name, err))
				continue
			}
			png, err := processors.RenderChartPNG(spec)
			if err != nil {
				*problems = append(*problems, chartWarning(name, err))
				continue
			}
			fmt.Fprintf(&buf, "<h2>%s</h2>\n", html.EscapeString(spec.Title))
			fmt.Fprintf(&buf, `<img src="data:image/png;base64,%s" alt="%s">`+"\n",
				base64.StdEncoding.EncodeToString(png), html.EscapeString(name))
		}
	}

	for _, name := range sortedKeys(data.Images) {
		ref := data.Images[name]
		img, err := resolver.Resolve(ref.Src)
		if err != nil {
			*problems = append(*problems, imageWarning(name, err))
			continue
		}
		fmt.Fprintf(&buf, "<h3>%s</h3>\n", html.EscapeString(name))
		fmt.Fprintf(&buf, `<img src="data:%s;base64,%s" alt="%s">`+"\n",
			processors.ImageMIME(ref.Src), base64.StdEncoding.EncodeToString(img), html.EscapeString(ref.Alt))
	}

	if tablesRendered == 0 {
		dumpRawHTML(&buf, data.Data, 2)
	}

	buf.WriteString("</body>\n</html>\n")
	return buf.String()
}

func dumpRawHTML(buf *bytes.Buffer, m map[string]interface{}, depth int) {
	for _, key := range sortedKeys(m) {
		if reservedRawKey(key) {
			continue
		}
		switch v := m[key].(type) {
		case []interface{}:
			rows := rawListRows(v)
			if rows == nil {
				continue
			}
			fmt.Fprintf(buf, "<h%d>%s</h%d>\n", depth, html.EscapeString(key), depth)
			buf.WriteString(processors.BuildHTMLTable(rows, nil))
			buf.WriteString("\n")
		case map[string]interface{}:
			fmt.Fprintf(buf, `<div class="json-section"><h%d>%s</h%d>`+"\n", depth, html.EscapeString(key), depth)
			dumpRawHTML(buf, v, min(depth+1, 4))
			buf.WriteString("</div>\n")
		default:
			fmt.Fprintf(buf, `<p class="info-item"><strong>%s:</strong> %s</p>`+"\n",
				html.EscapeString(key), html.EscapeString(processors.FormatValue(v)))
		}
	}
}

func chartWarning(name string, err error) docmodel.Problem {
	return docmodel.Problem{
		Type:    docmodel.ProblemWarning,
		Field:   "charts." + name,
		Message: fmt.Sprintf("图表渲染失败: %v", err),
	}
}

func imageWarning(name string, err error) docmodel.Problem {
	return docmodel.Problem{
		Type:    docmodel.ProblemWarning,
		Field:   "images." + name,
		Message: fmt.Sprintf("图片解析失败: %v", err),
	}
}
