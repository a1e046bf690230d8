package dataproc

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// Processor 将异构输入（内存 map 或数据文件路径）归一化为 DataStructure。
type Processor struct {
	log logger.Logger
}

// NewProcessor 创建数据处理器。
func NewProcessor(log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Processor{log: log}
}

// Process 接受 map[string]interface{} 或文件路径字符串。
// 文件按扩展名分发：.json / .csv / .tsv / .xlsx，其余报错。
func (p *Processor) Process(input interface{}) (*docmodel.DataStructure, error) {
	switch v := input.(type) {
	case map[string]interface{}:
		return p.fromMap(v)
	case *docmodel.DataStructure:
		return v, nil
	case string:
		return p.fromFile(v)
	default:
		return nil, fmt.Errorf("不支持的输入类型: %T", input)
	}
}

func (p *Processor) fromFile(path string) (*docmodel.DataStructure, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return p.fromJSONFile(path)
	case ".csv":
		return p.fromDelimitedFile(path, ',')
	case ".tsv":
		return p.fromDelimitedFile(path, '\t')
	case ".xlsx":
		return p.fromXLSXFile(path)
	default:
		return nil, fmt.Errorf("不支持的文件格式: %s", ext)
	}
}

func (p *Processor) fromMap(m map[string]interface{}) (*docmodel.DataStructure, error) {
	ds := p.normalizeMap(m, nil)

	// enable 开关从载荷透传
	if v, ok := m["enable_table"].(bool); ok {
		ds.EnableTable = v
	}
	if v, ok := m["enable_chart"].(bool); ok {
		ds.EnableChart = v
	}
	p.log.Debug("处理内存数据完成",
		zap.Int("tables", len(ds.Tables)),
		zap.Int("charts", len(ds.Charts)))
	return ds, nil
}

// ValidateData 检查归一化结果的完整性，返回问题列表而不是错误。
func (p *Processor) ValidateData(ds *docmodel.DataStructure) docmodel.ProblemList {
	var problems docmodel.ProblemList

	if strings.TrimSpace(ds.Title) == "" {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "title", Message: "标题为空",
		})
	}

	for name, rows := range ds.Tables {
		if rows == nil {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemError, Field: "tables." + name, Message: "表格数据缺失",
			})
			continue
		}
		if len(rows) == 0 {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemWarning, Field: "tables." + name, Message: "表格没有数据行",
			})
			continue
		}
		if len(rows[0]) == 0 {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemWarning, Field: "tables." + name, Message: "表格首行没有列",
			})
		}
	}

	for name, payload := range ds.Charts {
		if !hasChartData(payload) {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemWarning, Field: "charts." + name, Message: "图表配置缺少数据",
			})
		}
	}

	return problems
}

func hasChartData(payload map[string]interface{}) bool {
	if payload == nil {
		return false
	}
	if _, ok := payload["series"]; ok {
		return true
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		if _, ok := data["x"]; ok {
			return true
		}
		if _, ok := data["data"]; ok {
			return true
		}
	}
	if _, ok := payload["data"].([]interface{}); ok {
		return true
	}
	if _, ok := payload["x"]; ok {
		return true
	}
	return false
}
