package exporters

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikk909/Document-Management-System-DMS/internal/docx"
	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/internal/render"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

func testData() *docmodel.DataStructure {
	d := docmodel.NewDataStructure()
	d.Title = "季度销售报告"
	d.Content = "本季度业绩稳中有升。"
	d.Tables["sales"] = []map[string]interface{}{
		{"产品": "笔记本", "销量": 120.0},
		{"产品": "显示器", "销量": 85.0},
	}
	d.Charts["trend"] = map[string]interface{}{
		"type": "line",
		"data": map[string]interface{}{
			"x": []interface{}{"一月", "二月"},
			"y": []interface{}{10.0, 20.0},
		},
	}
	d.Data["author"] = "张三"
	return d
}

func newHTMLExporter() *HTMLExporter {
	engine := render.NewEngine(nil)
	resolver := &processors.ImageResolver{}
	return NewHTMLExporter(engine, resolver, nil)
}

func TestHTMLExportDefaultTemplate(t *testing.T) {
	e := newHTMLExporter()
	out := filepath.Join(t.TempDir(), "out.html")

	problems, err := e.Export(context.Background(), testData(), "", out, docmodel.NewExportOptions())
	require.NoError(t, err)
	assert.Empty(t, problems.Errors())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	htmlText := string(raw)
	assert.Contains(t, htmlText, "季度销售报告") // 标题
	assert.Contains(t, htmlText, "笔记本")
	assert.Contains(t, htmlText, "<table")
	assert.Contains(t, htmlText, "data:image/png;base64,") // 图表内嵌
}

func TestHTMLExportWithTemplate(t *testing.T) {
	e := newHTMLExporter()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "tpl.html")
	require.NoError(t, os.WriteFile(tpl, []byte(`<html><head></head><body>
<h1>{{title}}</h1><p>作者：{{author}}</p>
{{table:sales}}
</body></html>`), 0o644))

	out := filepath.Join(dir, "out.html")
	opts := docmodel.NewExportOptions()
	opts.Watermark = true
	problems, err := e.Export(context.Background(), testData(), tpl, out, opts)
	require.NoError(t, err)
	assert.Empty(t, problems.Errors())

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	htmlText := string(raw)
	assert.Contains(t, htmlText, "<h1>季度销售报告</h1>")
	assert.Contains(t, htmlText, "作者：张三")
	assert.Contains(t, htmlText, "<td>120</td>")
	assert.NotContains(t, htmlText, "{{table:sales}}")
	// 水印 CSS 注入
	assert.Contains(t, htmlText, docmodel.DefaultWatermarkText)
	assert.Contains(t, htmlText, "rotate(-45deg)")
}

func TestHTMLDefaultTemplateTableOrder(t *testing.T) {
	e := newHTMLExporter()
	data := docmodel.NewDataStructure()
	data.Title = "排序"
	data.SetTable("zulu", []map[string]interface{}{{"a": 1.0}})
	data.SetTable("alpha", []map[string]interface{}{{"b": 2.0}})

	out := filepath.Join(t.TempDir(), "out.html")
	_, err := e.Export(context.Background(), data, "", out, docmodel.NewExportOptions())
	require.NoError(t, err)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	htmlText := string(raw)
	// 表格按发现顺序输出，不按名称排序
	assert.Less(t, strings.Index(htmlText, "<h2>zulu</h2>"), strings.Index(htmlText, "<h2>alpha</h2>"))
	assert.NotEqual(t, -1, strings.Index(htmlText, "<h2>zulu</h2>"))
}

func TestHTMLExportMissingTableWarns(t *testing.T) {
	e := newHTMLExporter()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "tpl.html")
	require.NoError(t, os.WriteFile(tpl, []byte(`<html><body>{{table:nope}}</body></html>`), 0o644))

	out := filepath.Join(dir, "out.html")
	problems, err := e.Export(context.Background(), testData(), tpl, out, docmodel.NewExportOptions())
	require.NoError(t, err)
	require.Len(t, problems.Warnings(), 1)
	assert.Contains(t, problems.Warnings()[0].Message, "nope")
}

func TestHTMLTableDisabled(t *testing.T) {
	e := newHTMLExporter()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "tpl.html")
	require.NoError(t, os.WriteFile(tpl, []byte(`<html><body>前{{table:sales}}后</body></html>`), 0o644))

	data := testData()
	data.EnableTable = false
	out := filepath.Join(dir, "out.html")
	_, err := e.Export(context.Background(), data, tpl, out, docmodel.NewExportOptions())
	require.NoError(t, err)

	raw, _ := os.ReadFile(out)
	assert.NotContains(t, string(raw), "<table")
	assert.Contains(t, string(raw), "前后")
}

func newWordExporter() *WordExporter {
	engine := render.NewEngine(nil)
	resolver := &processors.ImageResolver{}
	return NewWordExporter(engine, resolver, nil)
}

func TestWordExportDefaultTemplate(t *testing.T) {
	e := newWordExporter()
	out := filepath.Join(t.TempDir(), "out.docx")

	problems, err := e.Export(context.Background(), testData(), "", out, docmodel.NewExportOptions())
	require.NoError(t, err)
	assert.Empty(t, problems.Errors())

	f, err := docx.Read(out)
	require.NoError(t, err)
	text := f.PlainText()
	assert.Contains(t, text, "季度销售报告")
	assert.Contains(t, text, "笔记本")
	assert.GreaterOrEqual(t, f.TableCount(), 1)
}

func TestWordExportWithTemplate(t *testing.T) {
	dir := t.TempDir()

	// 先用构建器生成一个带占位符的模板
	b := docx.NewBuilder()
	b.AddTitle("{{title}}")
	b.AddText("作者：{{author}}")
	b.AddText("{{table:sales}}")
	tpl := filepath.Join(dir, "tpl.docx")
	require.NoError(t, b.Save(tpl))

	e := newWordExporter()
	out := filepath.Join(dir, "out.docx")
	opts := docmodel.NewExportOptions()
	opts.Watermark = true
	opts.RestrictEdit = true
	opts.Password = "secret"
	problems, err := e.Export(context.Background(), testData(), tpl, out, opts)
	require.NoError(t, err)
	assert.Empty(t, problems.Errors())

	f, err := docx.Read(out)
	require.NoError(t, err)
	text := f.PlainText()
	assert.Contains(t, text, "季度销售报告")
	assert.Contains(t, text, "张三")
	assert.NotContains(t, text, "{{table:sales}}")
	assert.Equal(t, 1, f.TableCount())
	// 页眉水印
	require.NotEmpty(t, f.Headers)
	found := false
	for _, h := range f.Headers {
		for _, p := range h.Paragraphs {
			if strings.Contains(p.Text(), docmodel.DefaultWatermarkText) {
				found = true
			}
		}
	}
	assert.True(t, found, "页眉应包含水印文字")
}

func TestWordExportImageWatermark(t *testing.T) {
	dir := t.TempDir()
	wm := filepath.Join(dir, "wm.png")
	require.NoError(t, os.WriteFile(wm, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, 0o644))

	e := newWordExporter()
	out := filepath.Join(dir, "out.docx")
	opts := docmodel.NewExportOptions()
	opts.Watermark = true
	opts.WatermarkImagePath = wm
	problems, err := e.Export(context.Background(), testData(), "", out, opts)
	require.NoError(t, err)
	assert.Empty(t, problems.Warnings())

	// 图片水印进了页眉部件
	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()
	names := map[string]bool{}
	for _, zf := range zr.File {
		names[zf.Name] = true
	}
	assert.True(t, names["word/media/header_wm.png"])
	assert.True(t, names["word/_rels/header1.xml.rels"])
}

func TestWordExportImageWatermarkFallback(t *testing.T) {
	dir := t.TempDir()

	e := newWordExporter()
	out := filepath.Join(dir, "out.docx")
	opts := docmodel.NewExportOptions()
	opts.Watermark = true
	opts.WatermarkImagePath = filepath.Join(dir, "no-such.png")
	problems, err := e.Export(context.Background(), testData(), "", out, opts)
	require.NoError(t, err)

	// 图片不可读时降级为文字水印并给出警告
	require.NotEmpty(t, problems.Warnings())
	assert.Contains(t, problems.Warnings()[0].Message, "退回文字水印")

	f, err := docx.Read(out)
	require.NoError(t, err)
	require.NotEmpty(t, f.Headers)
	assert.Contains(t, f.Headers[0].Paragraphs[0].Text(), docmodel.DefaultWatermarkText)
}

func TestWordParagraphSurvivesAnchors(t *testing.T) {
	dir := t.TempDir()
	b := docx.NewBuilder()
	b.AddText("销量图如下：{{chart:trend}}完")
	tpl := filepath.Join(dir, "tpl.docx")
	require.NoError(t, b.Save(tpl))

	e := newWordExporter()
	out := filepath.Join(dir, "out.docx")
	_, err := e.Export(context.Background(), testData(), tpl, out, docmodel.NewExportOptions())
	require.NoError(t, err)

	f, err := docx.Read(out)
	require.NoError(t, err)
	text := f.PlainText()
	assert.Contains(t, text, "销量图如下：")
	assert.Contains(t, text, "完")
	assert.NotContains(t, text, "{{chart:trend}}")
}

func TestPDFExporterRequiresBrowser(t *testing.T) {
	_, err := NewPDFExporter(newHTMLExporter(), filepath.Join(t.TempDir(), "no-such-chrome"), nil)
	require.Error(t, err)
}

func TestSubstituteFragmentsImageByName(t *testing.T) {
	data := testData()
	data.Images["logo"] = docmodel.ImageRef{
		Alt: "logo",
		Src: "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==",
	}
	resolver := &processors.ImageResolver{}

	var problems docmodel.ProblemList
	out := substituteHTMLFragments("<p>{{image:logo}}</p>", data, resolver, &problems)
	assert.Contains(t, out, "<img")
	assert.Contains(t, out, "base64")
	assert.Empty(t, problems)
}
