package docmodel

// Problem severity levels.
const (
	ProblemError   = "error"
	ProblemWarning = "warning"
)

// Export status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Problem 描述校验或导出过程中发现的一个问题。
type Problem struct {
	Type    string // error | warning
	Field   string
	Message string
}

// ProblemList collects problems across pipeline stages.
type ProblemList []Problem

// Errors returns only the error-typed problems.
func (pl ProblemList) Errors() ProblemList {
	var out ProblemList
	for _, p := range pl {
		if p.Type == ProblemError {
			out = append(out, p)
		}
	}
	return out
}

// Warnings returns only the warning-typed problems.
func (pl ProblemList) Warnings() ProblemList {
	var out ProblemList
	for _, p := range pl {
		if p.Type == ProblemWarning {
			out = append(out, p)
		}
	}
	return out
}

// HasErrors reports whether any error-typed problem is present.
func (pl ProblemList) HasErrors() bool {
	return len(pl.Errors()) > 0
}

// ExportResult 是一次导出的完整结果。无论成功失败，
// ResultFile/LogFile/ProblemsFile 三件套始终存在。
type ExportResult struct {
	ResultFile   string
	LogFile      string
	ProblemsFile string
	Status       string // success | failed
	Metadata     map[string]interface{}
	StoragePath  string
	DocID        string
}

// ExportOptions 控制单次导出的行为。
type ExportOptions struct {
	TemplateName string
	TemplatePath string // 直接指定模板文件，优先于 TemplateName
	OutputFormat string // word | html | pdf，空则取配置默认
	OutputDir    string

	Watermark          bool
	WatermarkText      string // 空则使用默认水印文案
	WatermarkImagePath string

	RestrictEdit bool   // 仅 word 有效
	Password     string // pdf/word 加密口令

	EnableTable bool
	EnableChart bool

	CheckLinks bool
}

// DefaultWatermarkText 是未显式指定时使用的水印文案。
const DefaultWatermarkText = "内部使用，禁止外传"

// NewExportOptions returns options with the enable switches on.
func NewExportOptions() ExportOptions {
	return ExportOptions{EnableTable: true, EnableChart: true}
}
