package render

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// 占位符方言：
//
//	{{table:<name>}}  {{chart:<name>}}  {{image:<name>}}
//	{{variable}}  {{variable|length}}
//
// 前三类是片段锚点，由各导出器替换；变量类在表达式引擎之前
// 先走分层查找链解析。
var (
	TableTokenRe = regexp.MustCompile(`\{\{table:(\w+)\}\}`)
	ChartTokenRe = regexp.MustCompile(`\{\{chart:([^{}]+)\}\}`)
	ImageTokenRe = regexp.MustCompile(`\{\{image:([^{}]+)\}\}`)

	// 变量匹配需要排除带前缀的片段锚点，RE2 没有前瞻，用 regexp2
	variableTokenRe = regexp2.MustCompile(`\{\{\s*(?!table:|chart:|image:)([\p{L}_][\p{L}\p{N}_\.]*)\s*(\|\s*length)?\s*\}\}`, regexp2.None)
)

// LookupVariable 按分层查找链解析变量：
// 标准化字段（title/content）→ 原始载荷 data → 表格集合。
// 带点路径沿原始载荷逐层下钻。
func LookupVariable(name string, ds *docmodel.DataStructure) (interface{}, bool) {
	switch name {
	case "title":
		return ds.Title, true
	case "content":
		return ds.Content, true
	}

	if strings.Contains(name, ".") {
		return lookupPath(name, ds.Data)
	}

	if v, ok := ds.Data[name]; ok {
		return v, true
	}
	if rows, ok := ds.Tables[name]; ok {
		return rows, true
	}
	return nil, false
}

func lookupPath(path string, m map[string]interface{}) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = m
	for _, part := range parts {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ReplaceTextPlaceholders 解析文本中能通过查找链命中的变量占位符，
// 未命中的保持原样留给表达式引擎。
func ReplaceTextPlaceholders(text string, ds *docmodel.DataStructure) string {
	out, err := variableTokenRe.ReplaceFunc(text, func(m regexp2.Match) string {
		name := m.GroupByNumber(1).String()
		wantLength := m.GroupByNumber(2).String() != ""

		v, ok := LookupVariable(name, ds)
		if !ok {
			return m.String()
		}
		if wantLength {
			return lengthOf(v)
		}
		return processors.FormatValue(v)
	}, -1, -1)
	if err != nil {
		return text
	}
	return out
}

func lengthOf(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		return itoa(len(t))
	case []map[string]interface{}:
		return itoa(len(t))
	case map[string]interface{}:
		return itoa(len(t))
	case string:
		return itoa(len([]rune(t)))
	default:
		return "0"
	}
}

func itoa(n int) string {
	return processors.FormatValue(n)
}
