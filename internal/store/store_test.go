package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferCategory(t *testing.T) {
	assert.Equal(t, "reports", InferCategory("季度销售报告"))
	assert.Equal(t, "reports", InferCategory("Annual Report 2025"))
	assert.Equal(t, "contracts", InferCategory("采购合同-2025"))
	assert.Equal(t, "meetings", InferCategory("周会会议纪要"))
	assert.Equal(t, "未分类", InferCategory("随手记"))
}

func TestArchiveAndLookup(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "storage"), nil)
	require.NoError(t, err)

	src := filepath.Join(dir, "result.docx")
	require.NoError(t, os.WriteFile(src, []byte("doc"), 0o644))

	docID, archived, err := s.Archive(src, "季度销售报告", "word")
	require.NoError(t, err)
	assert.NotEmpty(t, docID)
	assert.Contains(t, archived, string(filepath.Separator)+"reports"+string(filepath.Separator))
	assert.FileExists(t, archived)

	meta, err := s.Lookup(docID)
	require.NoError(t, err)
	assert.Equal(t, "季度销售报告", meta.Title)
	assert.Equal(t, "reports", meta.Category)
	assert.Equal(t, "word", meta.Format)
}

func TestLookupMissing(t *testing.T) {
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = s.Lookup("no-such-id")
	require.Error(t, err)
}

func TestImageRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	id, err := s.SaveImage("", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := s.LoadImage(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	// 指定 ID 覆盖写
	_, err = s.SaveImage("logo", []byte("v1"))
	require.NoError(t, err)
	_, err = s.SaveImage("logo", []byte("v2"))
	require.NoError(t, err)
	data, err = s.LoadImage("logo")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
