package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikk909/Document-Management-System-DMS/internal/config"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

func newTestExporter(t *testing.T) *DocumentExporter {
	t.Helper()
	base := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.OutputDir = filepath.Join(base, "exports")
	cfg.TemplateDir = filepath.Join(base, "templates")
	cfg.StorageDir = filepath.Join(base, "storage")
	cfg.ChromePath = filepath.Join(base, "no-such-chrome") // 测试环境不依赖浏览器

	d, err := NewDocumentExporter(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleInput() map[string]interface{} {
	return map[string]interface{}{
		"title":   "月度销售报告",
		"content": "各区域销售情况汇总。",
		"table_data": []interface{}{
			map[string]interface{}{"区域": "华东", "销售额": 1200.5},
			map[string]interface{}{"区域": "华南", "销售额": 980.0},
		},
	}
}

func TestExportWordSuccess(t *testing.T) {
	d := newTestExporter(t)
	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "word"

	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusSuccess, result.Status)
	assert.FileExists(t, result.ResultFile)
	assert.FileExists(t, result.LogFile)
	assert.FileExists(t, result.ProblemsFile)
	assert.True(t, strings.HasSuffix(result.ResultFile, ".docx"))

	// 三件套共享时间戳
	base := filepath.Base(result.ResultFile)
	ts := strings.TrimSuffix(strings.TrimPrefix(base, "result_"), ".docx")
	assert.Equal(t, "log_"+ts+".txt", filepath.Base(result.LogFile))
	assert.Contains(t, filepath.Base(result.ProblemsFile), ts)

	// 归档到 reports 类目
	assert.NotEmpty(t, result.DocID)
	assert.Contains(t, result.StoragePath, "reports")

	log, err := os.ReadFile(result.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(log), "导出文件:")
	assert.Contains(t, string(log), "处理数据量: 2 行")
}

func TestExportHTMLSuccess(t *testing.T) {
	d := newTestExporter(t)
	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "html"
	opts.Watermark = true

	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusSuccess, result.Status)

	raw, err := os.ReadFile(result.ResultFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "月度销售报告")
	assert.Contains(t, string(raw), "华东")

	score, ok := result.Metadata["style_reduction_score"].(float64)
	require.True(t, ok)
	assert.Greater(t, score, 0.0)
}

func TestExportWatermarkTextFromConfig(t *testing.T) {
	base := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.OutputDir = filepath.Join(base, "exports")
	cfg.TemplateDir = filepath.Join(base, "templates")
	cfg.StorageDir = filepath.Join(base, "storage")
	cfg.ChromePath = filepath.Join(base, "no-such-chrome")
	cfg.WatermarkText = "机密资料"

	d, err := NewDocumentExporter(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "html"
	opts.Watermark = true

	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusSuccess, result.Status)

	// 配置里的水印文字生效，而不是默认常量
	raw, err := os.ReadFile(result.ResultFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "机密资料")
	assert.NotContains(t, string(raw), docmodel.DefaultWatermarkText)
}

func TestExportDefaultFormat(t *testing.T) {
	d := newTestExporter(t)
	result := d.Export(context.Background(), sampleInput(), docmodel.NewExportOptions())
	require.Equal(t, docmodel.StatusSuccess, result.Status)
	assert.Equal(t, "word", result.Metadata["format"])
}

func TestExportBadInputFails(t *testing.T) {
	d := newTestExporter(t)
	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "html"

	result := d.Export(context.Background(), "/no/such/data.json", opts)
	require.Equal(t, docmodel.StatusFailed, result.Status)
	assert.NotEmpty(t, result.Metadata["error"])
	// 失败时问题文件仍然生成
	assert.FileExists(t, result.ProblemsFile)
	raw, err := os.ReadFile(result.ProblemsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[错误]")
	// 结果文件位置写入占位文件，保证三件套齐全
	assert.FileExists(t, result.ResultFile)
	placeholder, err := os.ReadFile(result.ResultFile)
	require.NoError(t, err)
	assert.Contains(t, string(placeholder), "导出失败")
}

func TestExportMissingTemplateFails(t *testing.T) {
	d := newTestExporter(t)
	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "html"
	opts.TemplateName = "不存在的模板"

	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusFailed, result.Status)
	errMsg, _ := result.Metadata["error"].(string)
	assert.Contains(t, errMsg, "html") // 错误信息点名格式
}

func TestExportWithUploadedTemplate(t *testing.T) {
	d := newTestExporter(t)
	dir := t.TempDir()
	tpl := filepath.Join(dir, "tpl.html")
	require.NoError(t, os.WriteFile(tpl,
		[]byte(`<html><body><h1>{{title}}</h1>{{table:table_data}}</body></html>`), 0o644))

	_, err := d.Templates().Upload("销售模板", "html", tpl, "初版")
	require.NoError(t, err)

	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "html"
	opts.TemplateName = "销售模板"
	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusSuccess, result.Status)
	assert.Equal(t, "销售模板", strings.Split(result.Metadata["template_used"].(string), "_v")[0])

	raw, _ := os.ReadFile(result.ResultFile)
	assert.Contains(t, string(raw), "<h1>月度销售报告</h1>")
	assert.Contains(t, string(raw), "<table")
}

func TestExportWordPasswordFallback(t *testing.T) {
	d := newTestExporter(t)
	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "word"
	opts.Password = "secret"

	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusSuccess, result.Status)
	assert.Equal(t, false, result.Metadata["is_encrypted"])

	raw, _ := os.ReadFile(result.ProblemsFile)
	assert.Contains(t, string(raw), "不支持密码加密")
}

func TestExportPDFUnavailable(t *testing.T) {
	d := newTestExporter(t)
	opts := docmodel.NewExportOptions()
	opts.OutputFormat = "pdf"

	result := d.Export(context.Background(), sampleInput(), opts)
	require.Equal(t, docmodel.StatusFailed, result.Status)
	errMsg, _ := result.Metadata["error"].(string)
	assert.Contains(t, errMsg, "pdf")
}

func TestExportBatch(t *testing.T) {
	d := newTestExporter(t)

	tasks := make([]BatchTask, 3)
	for i := range tasks {
		opts := docmodel.NewExportOptions()
		opts.OutputFormat = "html"
		tasks[i] = BatchTask{Input: sampleInput(), Options: opts}
	}
	// 第二个任务给坏输入
	tasks[1].Input = "/no/such/file.json"

	var done int
	results := d.ExportBatch(context.Background(), tasks, func(int, *docmodel.ExportResult) { done++ })
	require.Len(t, results, 3)
	assert.Equal(t, 3, done)
	assert.Equal(t, docmodel.StatusSuccess, results[0].Status)
	assert.Equal(t, docmodel.StatusFailed, results[1].Status)
	assert.Equal(t, docmodel.StatusSuccess, results[2].Status)
}
