package processors

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

func TestFormatValue(t *testing.T) {
	t.Run("Null Forms", func(t *testing.T) {
		assert.Equal(t, "null", FormatValue(nil))
		assert.Equal(t, "null", FormatValue(""))
		assert.Equal(t, "null", FormatValue("   "))
	})

	t.Run("Booleans Localized", func(t *testing.T) {
		assert.Equal(t, "是", FormatValue(true))
		assert.Equal(t, "否", FormatValue(false))
	})

	t.Run("Numbers Without Trailing Zeros", func(t *testing.T) {
		assert.Equal(t, "3", FormatValue(3.0))
		assert.Equal(t, "3.14", FormatValue(3.14))
	})

	t.Run("Nested Values As Compact JSON", func(t *testing.T) {
		assert.Equal(t, `["a","b"]`, FormatValue([]interface{}{"a", "b"}))
		assert.Equal(t, `{"k":1}`, FormatValue(map[string]interface{}{"k": 1}))
	})
}

func TestBuildHTMLTable(t *testing.T) {
	rows := []map[string]interface{}{
		{"名称": "A", "数量": 1.0},
		{"名称": "B", "数量": nil},
	}

	t.Run("Header And Null Cells", func(t *testing.T) {
		out := BuildHTMLTable(rows, nil)
		assert.Contains(t, out, "<thead>")
		assert.Contains(t, out, "<th>名称</th>")
		assert.Contains(t, out, "<td>null</td>")
		assert.Contains(t, out, `border="1"`)
	})

	t.Run("Missing Column Renders Null", func(t *testing.T) {
		uneven := []map[string]interface{}{
			{"名称": "A", "数量": 1.0},
			{"名称": "B"},
		}
		cells := TableCells(uneven, []string{"名称", "数量"})
		require.Len(t, cells, 2)
		assert.Equal(t, []string{"B", "null"}, cells[1])

		out := BuildHTMLTable(uneven, nil)
		assert.Contains(t, out, "<td>null</td>")
		assert.NotContains(t, out, "<td></td>")
	})

	t.Run("Absorbed Cells Emit Nothing", func(t *testing.T) {
		merges := []docmodel.MergeSpec{{StartRow: 0, EndRow: 1, StartCol: 0, EndCol: 0}}
		out := BuildHTMLTable(rows, merges)
		assert.Contains(t, out, `rowspan="2"`)
		// 两行数据共 4 个单元格，吸收掉 1 个
		assert.Equal(t, 3, strings.Count(out, "<td"))
	})

	t.Run("Colspan", func(t *testing.T) {
		merges := []docmodel.MergeSpec{{StartRow: 0, EndRow: 0, StartCol: 0, EndCol: 1}}
		out := BuildHTMLTable(rows, merges)
		assert.Contains(t, out, `colspan="2"`)
	})
}

func TestParseMergeSpecs(t *testing.T) {
	t.Run("Per Table Map", func(t *testing.T) {
		payload := map[string]interface{}{
			"sales": []interface{}{
				map[string]interface{}{"start_row": 0.0, "end_row": 1.0, "start_col": 0.0, "end_col": 0.0},
			},
		}
		specs := ParseMergeSpecs(payload, "sales")
		require.Len(t, specs, 1)
		assert.Equal(t, 1, specs[0].EndRow)
	})

	t.Run("Invalid Region Dropped", func(t *testing.T) {
		payload := []interface{}{
			map[string]interface{}{"start_row": 2.0, "end_row": 0.0, "start_col": 0.0, "end_col": 0.0},
		}
		assert.Empty(t, ParseMergeSpecs(payload, "x"))
	})
}

func TestParseChartSpec(t *testing.T) {
	t.Run("Series With Labels", func(t *testing.T) {
		spec, err := ParseChartSpec(map[string]interface{}{
			"type":   "bar",
			"series": []interface{}{map[string]interface{}{"data": []interface{}{1.0, 2.0}}},
			"labels": []interface{}{"一", "二"},
		})
		require.NoError(t, err)
		assert.Equal(t, "bar", spec.Type)
		assert.Equal(t, []float64{1, 2}, spec.Y)
		assert.Equal(t, []string{"一", "二"}, spec.X)
	})

	t.Run("Point List", func(t *testing.T) {
		spec, err := ParseChartSpec(map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"label": "a", "value": 3.0},
				map[string]interface{}{"x": "b", "y": 4.0},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4}, spec.Y)
	})

	t.Run("XY Arrays With Axis Labels", func(t *testing.T) {
		spec, err := ParseChartSpec(map[string]interface{}{
			"data": map[string]interface{}{
				"x":       []interface{}{"一月", "二月"},
				"y":       []interface{}{10.0, 20.0},
				"title":   "销量 趋势图",
				"x_label": "月份",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "销量 趋势图", spec.Title)
		assert.Equal(t, "月份", spec.XLabel)
		assert.Equal(t, "Y Axis", spec.YLabel)
	})

	t.Run("Defaults", func(t *testing.T) {
		spec, err := ParseChartSpec(map[string]interface{}{
			"x": []interface{}{"a"},
			"y": []interface{}{1.0},
		})
		require.NoError(t, err)
		assert.Equal(t, "Line Chart", spec.Title)
		assert.Equal(t, "X Axis", spec.XLabel)
	})

	t.Run("No Data Is An Error", func(t *testing.T) {
		_, err := ParseChartSpec(map[string]interface{}{"title": "空"})
		assert.Error(t, err)
	})
}

func TestRenderChartPNG(t *testing.T) {
	spec := &docmodel.ChartSpec{
		Type: "line", Title: "t", XLabel: "x", YLabel: "y",
		X: []string{"a", "b", "c"}, Y: []float64{1, 3, 2},
	}
	png, err := RenderChartPNG(spec)
	require.NoError(t, err)
	// PNG 魔数
	require.True(t, len(png) > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	bar := &docmodel.ChartSpec{Type: "bar", Title: "t", X: []string{"a", "b"}, Y: []float64{1, 2}}
	png, err = RenderChartPNG(bar)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

type fakeStore map[string][]byte

func (f fakeStore) LoadImage(id string) ([]byte, error) {
	return f[id], nil
}

func TestImageResolver(t *testing.T) {
	store := fakeStore{"42": []byte("png-bytes")}
	r := NewImageResolver(store)

	t.Run("Storage Reference", func(t *testing.T) {
		data, err := r.Resolve("image_id:42")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)
	})

	t.Run("API Download Path Goes Through Store", func(t *testing.T) {
		data, err := r.Resolve("http://localhost/api/images/42/download")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)
	})

	t.Run("Data URI", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("img"))
		data, err := r.Resolve("data:image/png;base64," + payload)
		require.NoError(t, err)
		assert.Equal(t, []byte("img"), data)
	})

	t.Run("Base64 Prefix", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("img"))
		data, err := r.Resolve("base64:" + payload)
		require.NoError(t, err)
		assert.Equal(t, []byte("img"), data)
	})

	t.Run("No Store Errors On Reference", func(t *testing.T) {
		bare := NewImageResolver(nil)
		_, err := bare.Resolve("id:7")
		assert.Error(t, err)
	})
}

func TestImageMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", ImageMIME("a.JPG"))
	assert.Equal(t, "image/gif", ImageMIME("b.gif"))
	assert.Equal(t, "image/png", ImageMIME("c.png"))
	assert.Equal(t, "image/png", ImageMIME("data:image/png;base64,xx"))
}
