package dataproc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessMap(t *testing.T) {
	p := NewProcessor(nil)

	t.Run("Title Search Chain", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"document": map[string]interface{}{"title": "月度报告"},
			"title":    "被忽略",
		})
		require.NoError(t, err)
		assert.Equal(t, "月度报告", ds.Title)

		ds, err = p.Process(map[string]interface{}{
			"store": map[string]interface{}{"name": "示例门店"},
		})
		require.NoError(t, err)
		assert.Equal(t, "示例门店", ds.Title)
	})

	t.Run("Title Search Stops At First Key", func(t *testing.T) {
		// title 存在但不可用，不应回退到 name
		ds, err := p.Process(map[string]interface{}{
			"title": 123.0,
			"name":  "不应命中",
		})
		require.NoError(t, err)
		assert.Equal(t, "", ds.Title)
	})

	t.Run("Top Level Lists Become Tables", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"products": []interface{}{
				map[string]interface{}{"名称": "A", "数量": 1.0},
				map[string]interface{}{"名称": "B", "数量": 2.0},
			},
			"data": []interface{}{
				map[string]interface{}{"k": "v"},
			},
		})
		require.NoError(t, err)
		assert.Len(t, ds.Tables["products"], 2)
		// 泛化键名改用顺序命名
		assert.Contains(t, ds.Tables, "table_1")
		assert.NotContains(t, ds.Tables, "data")
	})

	t.Run("Scalar List Folds Into Value Column", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"tags": []interface{}{"红", "绿"},
		})
		require.NoError(t, err)
		rows := ds.Tables["tags"]
		require.Len(t, rows, 2)
		assert.Equal(t, "红", rows[0]["值"])
	})

	t.Run("Nested Tables With Underscore Names", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"report": map[string]interface{}{
				"sales": map[string]interface{}{
					"monthly": []interface{}{
						map[string]interface{}{"月份": "一月", "额": 100.0},
					},
				},
			},
		})
		require.NoError(t, err)
		assert.Contains(t, ds.Tables, "report_sales_monthly")
	})

	t.Run("Images With ID Prefer Storage Reference", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"images": []interface{}{
				map[string]interface{}{"alt": "logo", "src": "/tmp/x.png", "id": "42"},
			},
		})
		require.NoError(t, err)
		ref := ds.Images["logo"]
		assert.Equal(t, "image_id:42", ref.Src)
	})

	t.Run("Enable Switches Propagate", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"enable_table": false,
			"enable_chart": false,
		})
		require.NoError(t, err)
		assert.False(t, ds.EnableTable)
		assert.False(t, ds.EnableChart)
	})

	t.Run("Chart Data Keyed By Title", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"chart_data": map[string]interface{}{
				"title": "销量走势",
				"type":  "line",
			},
		})
		require.NoError(t, err)
		assert.Contains(t, ds.Charts, "销量走势")
	})
}

func TestProcessJSONFile(t *testing.T) {
	p := NewProcessor(nil)

	t.Run("Object Root Required", func(t *testing.T) {
		path := writeFixture(t, "arr.json", `[1,2,3]`)
		_, err := p.Process(path)
		assert.Error(t, err)
	})

	t.Run("Table Data Key", func(t *testing.T) {
		path := writeFixture(t, "doc.json", `{
			"title": "测试",
			"table_data": [{"a": 1}, {"a": 2}]
		}`)
		ds, err := p.Process(path)
		require.NoError(t, err)
		assert.Equal(t, "测试", ds.Title)
		assert.Len(t, ds.Tables["table_data"], 2)
	})

	t.Run("Unknown Extension Rejected", func(t *testing.T) {
		_, err := p.Process("data.yaml")
		assert.Error(t, err)
	})

	t.Run("Table Order Follows Document Order", func(t *testing.T) {
		path := writeFixture(t, "ordered.json", `{
			"zulu": [{"a": 1}],
			"alpha": [{"b": 2}],
			"nested": {
				"yy": [{"c": 3}],
				"bb": [{"d": 4}]
			}
		}`)
		ds, err := p.Process(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"zulu", "alpha", "nested_yy", "nested_bb"}, ds.TableNames())
	})
}

func TestProcessCSV(t *testing.T) {
	p := NewProcessor(nil)

	t.Run("Rows And Title From Stem", func(t *testing.T) {
		path := writeFixture(t, "sales.csv", "月份,销量\n一月,10\n二月,20\n")
		ds, err := p.Process(path)
		require.NoError(t, err)
		assert.Equal(t, "sales", ds.Title)
		require.Len(t, ds.Tables["data"], 2)
		assert.Equal(t, 10.0, ds.Tables["data"][0]["销量"])
	})

	t.Run("Semicolon Retry", func(t *testing.T) {
		path := writeFixture(t, "semi.csv", "a;b\n1;2\n")
		ds, err := p.Process(path)
		require.NoError(t, err)
		require.Len(t, ds.Tables["data"], 1)
		assert.Equal(t, 1.0, ds.Tables["data"][0]["a"])
	})

	t.Run("Empty Cells Are Nil", func(t *testing.T) {
		path := writeFixture(t, "gaps.csv", "a,b\n1,\n")
		ds, err := p.Process(path)
		require.NoError(t, err)
		assert.Nil(t, ds.Tables["data"][0]["b"])
	})

	t.Run("Auto Charts For Numeric Columns", func(t *testing.T) {
		path := writeFixture(t, "trend.csv", "月份,销量\n一月,10\n二月,20\n")
		ds, err := p.Process(path)
		require.NoError(t, err)
		// 数值列生成折线图，行数不超过 20 再加柱状图
		assert.Contains(t, ds.Charts, "trend_销量_line")
		assert.Contains(t, ds.Charts, "trend_销量_bar")
		assert.NotContains(t, ds.Charts, "trend_月份_line")

		payload := ds.Charts["trend_销量_line"]
		data := payload["data"].(map[string]interface{})
		assert.Equal(t, "销量 趋势图", data["title"])
		assert.Equal(t, "月份", data["x_label"])
	})

	t.Run("Row Index X Axis When All Numeric", func(t *testing.T) {
		path := writeFixture(t, "nums.csv", "v\n3\n4\n")
		ds, err := p.Process(path)
		require.NoError(t, err)
		data := ds.Charts["nums_v_line"]["data"].(map[string]interface{})
		assert.Equal(t, "序号", data["x_label"])
	})
}

func TestValidateData(t *testing.T) {
	p := NewProcessor(nil)

	t.Run("Empty Title Is Warning", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{})
		require.NoError(t, err)
		problems := p.ValidateData(ds)
		require.Len(t, problems, 1)
		assert.Equal(t, "warning", problems[0].Type)
		assert.Equal(t, "title", problems[0].Field)
	})

	t.Run("Clean Data Has No Problems", func(t *testing.T) {
		ds, err := p.Process(map[string]interface{}{
			"title": "ok",
			"rows":  []interface{}{map[string]interface{}{"a": 1.0}},
		})
		require.NoError(t, err)
		assert.Empty(t, p.ValidateData(ds))
	})
}
