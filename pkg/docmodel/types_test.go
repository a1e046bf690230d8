package docmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNamesKeepInsertionOrder(t *testing.T) {
	ds := NewDataStructure()
	ds.SetTable("zebra", []map[string]interface{}{{"a": 1}})
	ds.SetTable("alpha", []map[string]interface{}{{"b": 2}})

	assert.Equal(t, []string{"zebra", "alpha"}, ds.TableNames())

	// 重复写入不改变顺序
	ds.SetTable("zebra", []map[string]interface{}{{"a": 3}})
	assert.Equal(t, []string{"zebra", "alpha"}, ds.TableNames())

	// 绕过 SetTable 的表排在已登记表之后
	ds.Tables["manual"] = []map[string]interface{}{{"c": 4}}
	assert.Equal(t, []string{"zebra", "alpha", "manual"}, ds.TableNames())
}
