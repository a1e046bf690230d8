package processors

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatValue 把任意单元格值格式化为输出文本。
// 空值（nil/NaN/空白串）统一输出字面量 "null"，布尔输出 是/否，
// 嵌套结构输出紧凑 JSON。所有导出格式共用该规则。
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "是"
		}
		return "否"
	case float64:
		if math.IsNaN(t) {
			return "null"
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return FormatValue(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		if strings.TrimSpace(t) == "" {
			return "null"
		}
		return t
	case map[string]interface{}, []interface{}, []map[string]interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}
