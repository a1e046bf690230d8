package dataproc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// 这些顶层键有专用的归一化路径，通用表格发现阶段跳过它们。
var reservedKeys = map[string]bool{
	"table_data":  true,
	"chart_data":  true,
	"images":      true,
	"document":    true,
	"table_merge": true,
}

// 这些键名太泛化，命中的表改用 table_N 顺序命名。
var genericListKeys = map[string]bool{
	"data":  true,
	"items": true,
	"list":  true,
}

func (p *Processor) fromJSONFile(path string) (*docmodel.DataStructure, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 JSON 文件失败: %w", err)
	}

	var root interface{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	m, ok := root.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("JSON 根节点必须是对象")
	}

	// Unmarshal 丢掉键序，重扫 token 流把对象键按出现顺序记下来
	orders := keyOrders{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := collectKeyOrders(dec, "", orders); err != nil {
		orders = nil
	}
	return p.normalizeMap(m, orders), nil
}

// keyOrders 对象路径 -> 键的文档顺序。根路径是空串，
// 嵌套对象沿表名规则用下划线连接。
type keyOrders map[string][]string

func collectKeyOrders(dec *json.Decoder, path string, orders keyOrders) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			orders[path] = append(orders[path], key)
			child := key
			if path != "" {
				child = path + "_" + key
			}
			if err := collectKeyOrders(dec, child, orders); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
	case '[':
		for dec.More() {
			if err := collectKeyOrders(dec, path, orders); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	return nil
}

// orderedKeys 按记录的文档顺序返回 m 的键；没有顺序信息时
// 退回名称排序保证确定性。
func orderedKeys(m map[string]interface{}, orders keyOrders, path string) []string {
	if keys, ok := orders[path]; ok {
		out := make([]string, 0, len(m))
		seen := make(map[string]bool, len(m))
		for _, k := range keys {
			if _, exists := m[k]; exists && !seen[k] {
				out = append(out, k)
				seen[k] = true
			}
		}
		if len(out) == len(m) {
			return out
		}
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// normalizeMap 是 JSON 与内存 map 输入共用的归一化入口。
// orders 为 nil 时（内存 map 没有来源顺序）按键名排序遍历。
func (p *Processor) normalizeMap(m map[string]interface{}, orders keyOrders) *docmodel.DataStructure {
	ds := docmodel.NewDataStructure()
	ds.Data = m

	ds.Title = findTitle(m)
	if s, ok := m["content"].(string); ok {
		ds.Content = s
	}

	// 专用键
	if chart, ok := m["chart_data"].(map[string]interface{}); ok {
		name := "chart_data"
		if t, ok := chart["title"].(string); ok && t != "" {
			name = t
		}
		ds.Charts[name] = chart
	}
	if imgs, ok := m["images"].([]interface{}); ok {
		for _, it := range imgs {
			im, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			ref := docmodel.ImageRef{}
			if s, ok := im["alt"].(string); ok {
				ref.Alt = s
			}
			if s, ok := im["src"].(string); ok {
				ref.Src = s
			}
			switch id := im["id"].(type) {
			case string:
				ref.ID = id
			case float64:
				ref.ID = fmt.Sprintf("%.0f", id)
			}
			// 带 id 的图片优先走存储引用，源地址可能是临时的
			if ref.ID != "" {
				ref.Src = "image_id:" + ref.ID
			}
			name := ref.Alt
			if name == "" {
				name = ref.Src
			}
			if name != "" {
				ds.Images[name] = ref
			}
		}
	}

	// 顶层按文档顺序单遍扫描：列表成表，嵌套对象下钻找表
	genericCount := 0
	for _, key := range orderedKeys(m, orders, "") {
		if reservedKeys[key] && key != "table_data" {
			continue
		}
		switch val := m[key].(type) {
		case []interface{}:
			if len(val) == 0 {
				continue
			}
			rows := toTableRows(val)
			if rows == nil {
				continue
			}
			name := key
			if genericListKeys[key] {
				genericCount++
				name = fmt.Sprintf("table_%d", genericCount)
			}
			if _, exists := ds.Tables[name]; !exists {
				ds.SetTable(name, rows)
			}
		case map[string]interface{}:
			if key == "table_data" {
				continue
			}
			findNestedTables(val, key, ds, orders)
		}
	}

	return ds
}

// findTitle 依次尝试 document.title 与一组常见标题键。
// 命中第一个存在的键后即停止，即便其值不可用。
func findTitle(m map[string]interface{}) string {
	if doc, ok := m["document"].(map[string]interface{}); ok {
		if t, ok := doc["title"].(string); ok && t != "" {
			return t
		}
	}
	for _, key := range []string{"title", "name", "store", "company", "organization"} {
		val, ok := m[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			return v
		case map[string]interface{}:
			if name, ok := v["name"].(string); ok {
				return name
			}
		}
		// 键存在但不可用，不再继续向后尝试
		return ""
	}
	return ""
}

// toTableRows 把 JSON 列表转换为行集合。对象列表直接转换，
// 标量列表折叠为单列 "值" 表。混合或不可用时返回 nil。
func toTableRows(list []interface{}) []map[string]interface{} {
	if len(list) == 0 {
		return nil
	}
	if _, ok := list[0].(map[string]interface{}); ok {
		rows := make([]map[string]interface{}, 0, len(list))
		for _, it := range list {
			if row, ok := it.(map[string]interface{}); ok {
				rows = append(rows, row)
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return rows
	}
	switch list[0].(type) {
	case string, float64, bool, nil:
		rows := make([]map[string]interface{}, 0, len(list))
		for _, it := range list {
			rows = append(rows, map[string]interface{}{"值": it})
		}
		return rows
	}
	return nil
}

// findNestedTables 按文档顺序下钻嵌套对象，路径用下划线连接命名，
// 先到先得。
func findNestedTables(m map[string]interface{}, prefix string, ds *docmodel.DataStructure, orders keyOrders) {
	for _, key := range orderedKeys(m, orders, prefix) {
		name := prefix + "_" + key
		switch v := m[key].(type) {
		case []interface{}:
			if rows := toTableRows(v); rows != nil {
				if _, exists := ds.Tables[name]; !exists {
					ds.SetTable(name, rows)
				}
			}
		case map[string]interface{}:
			findNestedTables(v, name, ds, orders)
		}
	}
}
