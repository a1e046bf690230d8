package docmodel

import "sort"

// DataStructure 是所有导出器共享的标准化数据结构。
// 输入数据（JSON/CSV/XLSX 或内存 map）先被归一化为该结构，
// 再交给模板填充与渲染。
type DataStructure struct {
	Title   string
	Content string

	// Tables 表名 -> 行列表，每行是 列名 -> 值
	Tables map[string][]map[string]interface{}

	// TableOrder 记录表格的发现顺序，渲染按该顺序输出。
	// 通过 SetTable 写入时自动维护。
	TableOrder []string

	// Charts 图表名 -> 原始图表配置（支持多种载荷形态，渲染时解析）
	Charts map[string]map[string]interface{}

	// Images 图片名 -> 图片引用
	Images map[string]ImageRef

	// Data 原始载荷，占位符解析时的兜底查找层
	Data map[string]interface{}

	EnableTable bool
	EnableChart bool
}

// NewDataStructure 返回各容器已初始化、开关默认开启的空结构。
func NewDataStructure() *DataStructure {
	return &DataStructure{
		Tables:      make(map[string][]map[string]interface{}),
		Charts:      make(map[string]map[string]interface{}),
		Images:      make(map[string]ImageRef),
		Data:        make(map[string]interface{}),
		EnableTable: true,
		EnableChart: true,
	}
}

// SetTable 写入一张表并登记发现顺序，重复写入不改变顺序。
func (d *DataStructure) SetTable(name string, rows []map[string]interface{}) {
	if _, ok := d.Tables[name]; !ok {
		d.TableOrder = append(d.TableOrder, name)
	}
	d.Tables[name] = rows
}

// TableNames 返回按发现顺序排列的表名。绕过 SetTable 直接写入
// map 的表排在已登记的表之后，按名称排序保证确定性。
func (d *DataStructure) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	seen := make(map[string]bool, len(d.Tables))
	for _, n := range d.TableOrder {
		if _, ok := d.Tables[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range d.Tables {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// ImageRef 指向一张待嵌入的图片。Src 可以是本地路径、http(s) 地址、
// data URI、base64 字符串或 image_id:<n> 形式的存储引用。
type ImageRef struct {
	Alt string
	Src string
	ID  string
}

// ChartSpec is the parsed form of a chart payload, ready for rendering.
type ChartSpec struct {
	Type   string // "line" or "bar"
	Title  string
	XLabel string
	YLabel string
	X      []string
	Y      []float64
}

// MergeSpec describes one rectangular cell-merge region of a table, in
// zero-based data-row coordinates (the header row is not counted).
type MergeSpec struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
	StartCol int `json:"start_col"`
	EndCol   int `json:"end_col"`
}
