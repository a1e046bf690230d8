package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestUploadAndLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "templates"), nil)
	require.NoError(t, err)
	defer m.Close()

	src := writeTemplate(t, dir, "report.html", "<html><body>{{title}}</body></html>")

	v, err := m.Upload("季度报告", "html", src, "首次上传")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// 再传一版，版本号递增
	src2 := writeTemplate(t, dir, "report2.html", "<html><body>v2 {{title}}</body></html>")
	v, err = m.Upload("季度报告", "html", src2, "改版")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// 不带版本号取最新
	p, err := m.Load("季度报告", "html", 0)
	require.NoError(t, err)
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "v2")

	// 指定历史版本
	p, err = m.Load("季度报告", "html", 1)
	require.NoError(t, err)
	raw, _ = os.ReadFile(p)
	assert.NotContains(t, string(raw), "v2")
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "templates"), nil)
	require.NoError(t, err)
	defer m.Close()

	src := writeTemplate(t, dir, "report.html", "<html></html>")
	_, err = m.Upload("合同", "word", src, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".docx")
}

func TestLoadMissingFormat(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "templates"), nil)
	require.NoError(t, err)
	defer m.Close()

	src := writeTemplate(t, dir, "report.html", "<html></html>")
	_, err = m.Upload("季度报告", "html", src, "")
	require.NoError(t, err)

	// 同名模板在 word 格式下不存在
	_, err = m.Load("季度报告", "word", 0)
	require.Error(t, err)
	var notFound *ErrTemplateNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "word", notFound.Format)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "templates"), nil)
	require.NoError(t, err)
	defer m.Close()

	src := writeTemplate(t, dir, "a.html", "<html></html>")
	_, err = m.Upload("报告A", "html", src, "")
	require.NoError(t, err)
	_, err = m.Upload("报告A", "html", src, "")
	require.NoError(t, err)
	_, err = m.Upload("报告B", "pdf", src, "")
	require.NoError(t, err)

	all, err := m.List("")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"报告A": 2, "报告B": 1}, all)

	htmlOnly, err := m.List("html")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"报告A": 2}, htmlOnly)
}

func TestInferFormat(t *testing.T) {
	assert.Equal(t, "word", InferFormat("/x/合同.docx"))
	assert.Equal(t, "html", InferFormat("/x/report.html"))
	assert.Equal(t, "pdf", InferFormat("/x/pdf/report.html"))
	assert.Equal(t, "pdf", InferFormat("/x/report_PDF.htm"))
	assert.Equal(t, "", InferFormat("/x/data.csv"))
}

func TestRegistryRoundTrip(t *testing.T) {
	reg, err := OpenRegistry(filepath.Join(t.TempDir(), "templates.db"))
	require.NoError(t, err)
	defer reg.Close()

	require.NoError(t, reg.Record("报告", "html", 1, "html/报告_v1.html", "初版"))
	require.NoError(t, reg.Record("报告", "html", 2, "html/报告_v2.html", ""))

	versions, err := reg.Versions("报告", "html")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}
