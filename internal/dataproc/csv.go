package dataproc

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

func (p *Processor) fromDelimitedFile(path string, delim rune) (*docmodel.DataStructure, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件失败: %w", err)
	}

	// 国内导出的 CSV 经常是 GBK 编码
	if !utf8.Valid(raw) {
		decoded, _, derr := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), raw)
		if derr != nil {
			return nil, fmt.Errorf("文件编码无法识别: %w", derr)
		}
		raw = decoded
	}
	raw = stripBOM(raw)

	records, err := readRecords(raw, delim)
	if err != nil {
		return nil, err
	}
	// 单列结果通常意味着分隔符猜错了，换分号重试
	if delim == ',' && len(records) > 0 && len(records[0]) == 1 {
		if retried, rerr := readRecords(raw, ';'); rerr == nil && len(retried) > 0 && len(retried[0]) > 1 {
			records = retried
		}
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("数据文件为空: %s", path)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.fromRecords(records, stem), nil
}

func readRecords(raw []byte, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(string(raw)))
	r.Comma = delim
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 失败: %w", err)
	}
	return records, nil
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// fromRecords 把首行为表头的表格记录归一化为 DataStructure，
// 并为每个数值列自动合成折线图（行数不超过 20 时再加柱状图）。
// CSV/TSV 与 XLSX 输入共用该路径。
func (p *Processor) fromRecords(records [][]string, stem string) *docmodel.DataStructure {
	ds := docmodel.NewDataStructure()
	ds.Title = stem

	header := records[0]
	rows := make([]map[string]interface{}, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]interface{}, len(header))
		for i, col := range header {
			var v interface{}
			if i < len(rec) {
				cell := strings.TrimSpace(rec[i])
				if cell != "" {
					if f, ok := parseNumber(cell); ok {
						v = f
					} else {
						v = cell
					}
				}
			}
			row[col] = v
		}
		rows = append(rows, row)
	}
	ds.SetTable("data", rows)
	ds.Data["data"] = rowsToAny(rows)

	p.synthesizeCharts(ds, header, rows, stem)
	return ds
}

func rowsToAny(rows []map[string]interface{}) []interface{} {
	out := make([]interface{}, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// synthesizeCharts 为每个数值列生成图表配置。X 轴取第一个非数值列，
// 找不到则使用行号（轴名 "序号"）。
func (p *Processor) synthesizeCharts(ds *docmodel.DataStructure, header []string, rows []map[string]interface{}, stem string) {
	if len(rows) == 0 {
		return
	}

	numericCols := make([]string, 0)
	var labelCol string
	for _, col := range header {
		if isNumericColumn(rows, col) {
			numericCols = append(numericCols, col)
		} else if labelCol == "" {
			labelCol = col
		}
	}

	xLabel := labelCol
	var xValues []interface{}
	if labelCol != "" {
		for _, row := range rows {
			xValues = append(xValues, fmt.Sprintf("%v", row[labelCol]))
		}
	} else {
		xLabel = "序号"
		for i := range rows {
			xValues = append(xValues, strconv.Itoa(i+1))
		}
	}

	for _, col := range numericCols {
		var yValues []interface{}
		for _, row := range rows {
			if f, ok := row[col].(float64); ok {
				yValues = append(yValues, f)
			} else {
				yValues = append(yValues, 0.0)
			}
		}

		lineName := fmt.Sprintf("%s_%s_line", stem, col)
		ds.Charts[lineName] = chartPayload("line", col+" 趋势图", xLabel, col, xValues, yValues)

		if len(rows) <= 20 {
			barName := fmt.Sprintf("%s_%s_bar", stem, col)
			ds.Charts[barName] = chartPayload("bar", col+" 分布图", xLabel, col, xValues, yValues)
		}
	}
}

func chartPayload(typ, title, xLabel, yLabel string, x, y []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type": typ,
		"data": map[string]interface{}{
			"x":       x,
			"y":       y,
			"title":   title,
			"x_label": xLabel,
			"y_label": yLabel,
		},
	}
}

func isNumericColumn(rows []map[string]interface{}, col string) bool {
	seen := false
	for _, row := range rows {
		switch row[col].(type) {
		case float64:
			seen = true
		case nil:
			// 空单元格不影响判定
		default:
			return false
		}
	}
	return seen
}
