package dataproc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// fromXLSXFile 读取第一个工作表，首行作为表头，
// 其余与 CSV 输入走同一条归一化路径。
func (p *Processor) fromXLSXFile(path string) (*docmodel.DataStructure, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开 XLSX 文件失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX 文件没有工作表: %s", path)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("工作表为空: %s", sheets[0])
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.fromRecords(records, stem), nil
}
