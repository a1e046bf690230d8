package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// Engine 在占位符方言之上叠加 Jinja 风格的表达式层
// （{% if %}、循环、点路径访问、now/today）。
//
// 渲染分两阶段：先把片段锚点保护成不透明标记，跑完表达式引擎后
// 再还原，最后重扫一遍，表达式展开出来的新锚点留给导出器处理。
type Engine struct {
	log logger.Logger
}

// NewEngine 创建表达式渲染引擎。
func NewEngine(log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Engine{log: log}
}

const markerFormat = "@@DOCPH_%d@@"

// protector 把片段锚点替换为不透明标记，表达式引擎不会动它们。
type protector struct {
	counter      int
	replacements map[string]string
}

func newProtector() *protector {
	return &protector{replacements: make(map[string]string)}
}

func (pr *protector) protect(content string) string {
	marker := fmt.Sprintf(markerFormat, pr.counter)
	pr.counter++
	pr.replacements[marker] = content
	return marker
}

func (pr *protector) protectAll(text string) string {
	text = TableTokenRe.ReplaceAllStringFunc(text, pr.protect)
	text = ChartTokenRe.ReplaceAllStringFunc(text, pr.protect)
	text = ImageTokenRe.ReplaceAllStringFunc(text, pr.protect)
	return text
}

// restore 从后往前还原，避免标记内容里出现相似标记时串位。
func (pr *protector) restore(text string) string {
	for i := pr.counter - 1; i >= 0; i-- {
		marker := fmt.Sprintf(markerFormat, i)
		if original, ok := pr.replacements[marker]; ok {
			text = strings.ReplaceAll(text, marker, original)
		}
	}
	return text
}

// Render 渲染模板文本。表达式错误降级为告警并返回未展开的文本，
// 不向上抛出。
func (e *Engine) Render(text string, ds *docmodel.DataStructure, extra map[string]interface{}) (string, docmodel.ProblemList) {
	var problems docmodel.ProblemList

	// 变量占位符先走查找链
	text = ReplaceTextPlaceholders(text, ds)

	pr := newProtector()
	protected := pr.protectAll(text)

	rendered, err := e.renderExpressions(protected, ds, extra)
	if err != nil {
		e.log.Warn("模板表达式渲染失败", zap.Error(err))
		problems = append(problems, docmodel.Problem{
			Type:    docmodel.ProblemWarning,
			Field:   "template",
			Message: fmt.Sprintf("模板表达式渲染失败: %v", err),
		})
		rendered = protected
	}

	out := pr.restore(rendered)

	// 表达式可能展开出新的变量占位符，再解析一轮
	out = ReplaceTextPlaceholders(out, ds)
	return out, problems
}

func (e *Engine) renderExpressions(text string, ds *docmodel.DataStructure, extra map[string]interface{}) (string, error) {
	if !strings.Contains(text, "{{") && !strings.Contains(text, "{%") {
		return text, nil
	}

	// 输出不是 HTML 上下文，关闭自动转义
	tpl, err := pongo2.FromString("{% autoescape off %}" + text + "{% endautoescape %}")
	if err != nil {
		return "", err
	}

	now := time.Now()
	ctx := pongo2.Context{
		"title":        ds.Title,
		"content":      ds.Content,
		"tables":       ds.Tables,
		"charts":       ds.Charts,
		"images":       ds.Images,
		"data":         ds.Tables["data"],
		"now":          now,
		"today":        now.Format("2006-01-02"),
		"enable_table": ds.EnableTable,
		"enable_chart": ds.EnableChart,
		"project_name": ds.Title,
		"report_date":  now.Format("2006-01-02"),
	}

	// 原始载荷键加入上下文，但不覆盖标准键
	for k, v := range ds.Data {
		if _, exists := ctx[k]; !exists {
			ctx[k] = v
		}
	}
	for k, v := range extra {
		ctx[k] = v
	}

	return tpl.Execute(ctx)
}
