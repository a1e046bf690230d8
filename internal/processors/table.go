package processors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// ColumnOrder 返回表格的列名，以首行的键排序保证稳定输出。
func ColumnOrder(rows []map[string]interface{}) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// TableCells 按列序把行集合展开成字符串矩阵，缺失列输出 null。
func TableCells(rows []map[string]interface{}, cols []string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, 0, len(cols))
		for _, c := range cols {
			line = append(line, FormatValue(row[c]))
		}
		out = append(out, line)
	}
	return out
}

// ParseMergeSpecs 解析载荷里 table_merge 的合并配置。
// 支持 map[表名][]spec 与直接 []spec 两种形态。
func ParseMergeSpecs(payload interface{}, tableName string) []docmodel.MergeSpec {
	if payload == nil {
		return nil
	}
	var rawList []interface{}
	switch t := payload.(type) {
	case map[string]interface{}:
		if v, ok := t[tableName]; ok {
			rawList, _ = v.([]interface{})
		} else if v, ok := t["merge_rows"]; ok {
			rawList, _ = v.([]interface{})
		}
	case []interface{}:
		rawList = t
	}
	if rawList == nil {
		return nil
	}

	var specs []docmodel.MergeSpec
	for _, item := range rawList {
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var spec docmodel.MergeSpec
		if err := json.Unmarshal(b, &spec); err != nil {
			continue
		}
		if spec.EndRow < spec.StartRow || spec.EndCol < spec.StartCol {
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// BuildHTMLTable 渲染带合并单元格的 HTML 表格。
// 被合并区域吸收的单元格不输出 td，rowspan/colspan 写在区域左上角。
func BuildHTMLTable(rows []map[string]interface{}, merges []docmodel.MergeSpec) string {
	cols := ColumnOrder(rows)
	if len(cols) == 0 {
		return ""
	}
	cells := TableCells(rows, cols)

	absorbed := map[[2]int]bool{}
	origin := map[[2]int]docmodel.MergeSpec{}
	for _, m := range merges {
		origin[[2]int{m.StartRow, m.StartCol}] = m
		for r := m.StartRow; r <= m.EndRow; r++ {
			for c := m.StartCol; c <= m.EndCol; c++ {
				if r == m.StartRow && c == m.StartCol {
					continue
				}
				absorbed[[2]int{r, c}] = true
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`<table border="1" cellpadding="5" style="border-collapse: collapse; width: 100%;">`)
	buf.WriteString("<thead><tr>")
	for _, c := range cols {
		fmt.Fprintf(&buf, "<th>%s</th>", html.EscapeString(c))
	}
	buf.WriteString("</tr></thead><tbody>")

	for ri, line := range cells {
		buf.WriteString("<tr>")
		for ci, cell := range line {
			key := [2]int{ri, ci}
			if absorbed[key] {
				continue
			}
			attrs := ""
			if m, ok := origin[key]; ok {
				if rs := m.EndRow - m.StartRow + 1; rs > 1 {
					attrs += fmt.Sprintf(` rowspan="%d"`, rs)
				}
				if cs := m.EndCol - m.StartCol + 1; cs > 1 {
					attrs += fmt.Sprintf(` colspan="%d"`, cs)
				}
			}
			fmt.Fprintf(&buf, "<td%s>%s</td>", attrs, html.EscapeString(cell))
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table>")
	return buf.String()
}
