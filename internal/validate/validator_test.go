package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikk909/Document-Management-System-DMS/internal/docx"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

func TestValidateMissingFile(t *testing.T) {
	v := NewValidator(nil)
	problems := v.Validate(filepath.Join(t.TempDir(), "nope.html"), "html", nil, false)
	require.Len(t, problems.Errors(), 1)
	assert.Contains(t, problems.Errors()[0].Message, "不存在")
}

func TestValidateEmptyFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	v := NewValidator(nil)
	problems := v.Validate(p, "html", nil, false)
	require.Len(t, problems.Errors(), 1)
	assert.Contains(t, problems.Errors()[0].Message, "为空")
}

func TestValidateDataWarnings(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(p, []byte("<html><body>ok</body></html>"), 0o644))

	data := docmodel.NewDataStructure()
	data.Tables["空表"] = nil
	data.Charts["空图"] = map[string]interface{}{}
	data.Images["丢失"] = docmodel.ImageRef{Src: filepath.Join(dir, "missing.png")}
	data.Images["仓库"] = docmodel.ImageRef{Src: "image_id:42"} // 仓库引用不检查本地存在性

	v := NewValidator(nil)
	problems := v.Validate(p, "html", data, false)
	assert.Len(t, problems.Warnings(), 2)
	require.Len(t, problems.Errors(), 1)
	assert.Equal(t, "images.丢失", problems.Errors()[0].Field)
}

func TestValidateHTMLInlineStyles(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 12; i++ {
		sb.WriteString(`<p style="color: red">x</p>`)
	}
	sb.WriteString("</body></html>")
	p := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(p, []byte(sb.String()), 0o644))

	v := NewValidator(nil)
	problems := v.Validate(p, "html", nil, false)
	require.Len(t, problems.Warnings(), 1)
	assert.Contains(t, problems.Warnings()[0].Message, "内联样式")
}

func TestValidateWordBookmarks(t *testing.T) {
	dir := t.TempDir()
	b := docx.NewBuilder()
	b.AddTitle("报告")
	b.AddText("正文")
	p := filepath.Join(dir, "out.docx")
	require.NoError(t, b.Save(p))

	v := NewValidator(nil)
	problems := v.Validate(p, "word", nil, true)
	assert.Empty(t, problems.Errors())
}

func TestStyleScoreHTML(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.html")
	require.NoError(t, os.WriteFile(good, []byte("<html><head><style>body{}</style></head><body>ok</body></html>"), 0o644))
	assert.InDelta(t, 1.0, StyleScore(good, "html", nil), 0.001)

	bad := filepath.Join(dir, "bad.html")
	require.NoError(t, os.WriteFile(bad, []byte("<html><body>{{a}} {{b}} {{c}}</body></html>"), 0o644))
	score := StyleScore(bad, "html", nil)
	assert.GreaterOrEqual(t, score, 0.8)
	assert.Less(t, score, 1.0)
}

func TestStyleScoreWord(t *testing.T) {
	dir := t.TempDir()

	t.Run("Filled Document Scores High", func(t *testing.T) {
		b := docx.NewBuilder()
		b.AddTitle("报告")
		b.AddTable([]string{"列"}, [][]string{{"值"}}, nil)
		p := filepath.Join(dir, "out.docx")
		require.NoError(t, b.Save(p))

		data := docmodel.NewDataStructure()
		data.Tables["t"] = []map[string]interface{}{{"列": "值"}}
		assert.GreaterOrEqual(t, StyleScore(p, "word", data), 0.95)
	})

	t.Run("Residual Placeholders Lower Score", func(t *testing.T) {
		b := docx.NewBuilder()
		b.AddText("已填充段落")
		b.AddText("{{未填充}}")
		b.AddText("{{另一个未填充}}")
		p := filepath.Join(dir, "residual.docx")
		require.NoError(t, b.Save(p))

		score := StyleScore(p, "word", docmodel.NewDataStructure())
		assert.Less(t, score, 0.95)
		assert.Greater(t, score, 0.5)
	})
}
