// Package export 把数据处理、模板解析、渲染导出、安全后处理与
// 质量校验串成完整管线。Export 是全函数：任何内部失败都折叠成
// 带日志与问题文件的失败结果，不向调用方抛错。
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/config"
	"github.com/nikk909/Document-Management-System-DMS/internal/dataproc"
	"github.com/nikk909/Document-Management-System-DMS/internal/exporters"
	"github.com/nikk909/Document-Management-System-DMS/internal/fileutil"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/internal/render"
	"github.com/nikk909/Document-Management-System-DMS/internal/security"
	"github.com/nikk909/Document-Management-System-DMS/internal/store"
	"github.com/nikk909/Document-Management-System-DMS/internal/template"
	"github.com/nikk909/Document-Management-System-DMS/internal/validate"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// DocumentExporter 是导出管线的入口。
type DocumentExporter struct {
	cfg       *config.Config
	processor *dataproc.Processor
	templates *template.Manager
	validator *validate.Validator
	store     *store.Store
	exporters map[string]exporters.Exporter
	log       logger.Logger
}

// NewDocumentExporter 组装整条管线。PDF 导出依赖本机浏览器，
// 探测失败时仅禁用 pdf 格式，不影响 word/html。
func NewDocumentExporter(cfg *config.Config, log logger.Logger) (*DocumentExporter, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("初始化目录失败: %w", err)
	}

	st, err := store.NewStore(cfg.StorageDir, log)
	if err != nil {
		return nil, err
	}
	templates, err := template.NewManager(cfg.TemplateDir, log)
	if err != nil {
		return nil, err
	}

	engine := render.NewEngine(log)
	resolver := processors.NewImageResolver(st)

	htmlExp := exporters.NewHTMLExporter(engine, resolver, log)
	exps := map[string]exporters.Exporter{
		"word": exporters.NewWordExporter(engine, resolver, log),
		"html": htmlExp,
	}
	if pdfExp, err := exporters.NewPDFExporter(htmlExp, cfg.ChromePath, log); err != nil {
		log.Warn("PDF 导出不可用", zap.Error(err))
	} else {
		exps["pdf"] = pdfExp
	}

	return &DocumentExporter{
		cfg:       cfg,
		processor: dataproc.NewProcessor(log),
		templates: templates,
		validator: validate.NewValidator(log),
		store:     st,
		exporters: exps,
		log:       log,
	}, nil
}

// Templates 返回模板管理器，供 CLI 的模板子命令复用。
func (d *DocumentExporter) Templates() *template.Manager { return d.templates }

// Store 返回文档仓库。
func (d *DocumentExporter) Store() *store.Store { return d.store }

// Close 释放持有的资源。
func (d *DocumentExporter) Close() error { return d.templates.Close() }

// Export 执行一次完整导出。input 可以是数据 map、*DataStructure
// 或 JSON/CSV/TSV/XLSX 文件路径。
func (d *DocumentExporter) Export(ctx context.Context, input interface{}, opts docmodel.ExportOptions) (result *docmodel.ExportResult) {
	start := time.Now()

	format := strings.ToLower(opts.OutputFormat)
	if format == "" {
		format = d.cfg.DefaultFormat
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = d.cfg.OutputDir
	}
	if opts.WatermarkText == "" {
		opts.WatermarkText = d.cfg.WatermarkText
	}

	ts := fileutil.GenerateTimestamp()
	resultFile := filepath.Join(outputDir, fileutil.ResultFilename(format, ts))
	// 三件套共享从结果文件名提取的时间戳
	ts = fileutil.TimestampFromResult(resultFile)
	logFile := filepath.Join(outputDir, fileutil.LogFilename(ts))
	problemsFile := filepath.Join(outputDir, fileutil.ProblemsFilename(ts, format))

	result = &docmodel.ExportResult{
		ResultFile:   resultFile,
		LogFile:      logFile,
		ProblemsFile: problemsFile,
		Status:       docmodel.StatusFailed,
		Metadata:     map[string]interface{}{"format": format},
	}
	var problems docmodel.ProblemList

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("导出发生 panic", zap.Any("panic", r))
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemError, Field: "export",
				Message: fmt.Sprintf("内部错误: %v", r),
			})
			d.finish(result, nil, problems, start)
		}
	}()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		problems = append(problems, errorProblem("output", "创建输出目录失败: %v", err))
		d.finish(result, nil, problems, start)
		return result
	}

	data, err := d.processor.Process(input)
	if err != nil {
		problems = append(problems, errorProblem("data", "数据处理失败: %v", err))
		d.finish(result, nil, problems, start)
		return result
	}
	problems = append(problems, d.processor.ValidateData(data)...)
	data.EnableTable = data.EnableTable && opts.EnableTable
	data.EnableChart = data.EnableChart && opts.EnableChart

	templatePath, tplProblems := d.resolveTemplate(format, opts)
	problems = append(problems, tplProblems...)
	if tplProblems.HasErrors() {
		d.finish(result, data, problems, start)
		return result
	}
	if templatePath != "" {
		result.Metadata["template_used"] = filepath.Base(templatePath)
	}

	exp, ok := d.exporters[format]
	if !ok {
		problems = append(problems, errorProblem("format", "不支持的导出格式: %s", format))
		d.finish(result, data, problems, start)
		return result
	}

	expProblems, err := exp.Export(ctx, data, templatePath, resultFile, opts)
	problems = append(problems, expProblems...)
	if err != nil {
		problems = append(problems, errorProblem("export", "导出失败: %v", err))
		d.finish(result, data, problems, start)
		return result
	}

	problems = append(problems, d.applyEncryption(result, format, opts)...)
	problems = append(problems, d.checkPerformance(resultFile, format, start)...)
	problems = append(problems, d.validator.Validate(resultFile, format, data, opts.CheckLinks)...)

	score := validate.StyleScore(resultFile, format, data)
	result.Metadata["style_reduction_score"] = score
	if score < 0.95 {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "style",
			Message: fmt.Sprintf("样式还原度 %.2f 低于 0.95", score),
		})
	}

	d.finish(result, data, problems, start)

	if result.Status == docmodel.StatusSuccess {
		if docID, archived, err := d.store.Archive(resultFile, data.Title, format); err != nil {
			d.log.Warn("归档失败", zap.Error(err))
		} else {
			result.DocID = docID
			result.StoragePath = archived
		}
	}
	return result
}

// resolveTemplate 按选项确定模板文件。显式路径优先；指定名称时
// 该格式下找不到即失败；两者都未给时返回空路径走默认版式。
func (d *DocumentExporter) resolveTemplate(format string, opts docmodel.ExportOptions) (string, docmodel.ProblemList) {
	var problems docmodel.ProblemList
	if opts.TemplatePath != "" {
		if _, err := os.Stat(opts.TemplatePath); err != nil {
			problems = append(problems, errorProblem("template", "模板文件不存在: %s", opts.TemplatePath))
			return "", problems
		}
		return opts.TemplatePath, nil
	}
	if opts.TemplateName != "" {
		p, err := d.templates.Load(opts.TemplateName, format, 0)
		if err != nil {
			problems = append(problems, errorProblem("template", "%v", err))
			return "", problems
		}
		return p, nil
	}
	return "", nil
}

// applyEncryption 做密码加密后处理。Word 的密码加密暂不支持，
// 降级为不加密并告警；编辑保护已在导出阶段完成，不在此重复。
func (d *DocumentExporter) applyEncryption(result *docmodel.ExportResult, format string, opts docmodel.ExportOptions) docmodel.ProblemList {
	result.Metadata["is_encrypted"] = false
	if opts.Password == "" {
		return nil
	}
	if format == "word" && opts.RestrictEdit {
		return nil
	}

	var problems docmodel.ProblemList
	if err := security.EncryptDocument(result.ResultFile, format, opts.Password); err != nil {
		msg := fmt.Sprintf("加密失败，输出未加密文件: %v", err)
		if errors.Is(err, security.ErrWordEncryptionUnsupported) {
			msg = "Word 文档暂不支持密码加密，输出未加密文件"
		}
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "security", Message: msg,
		})
		return problems
	}
	result.Metadata["is_encrypted"] = true
	return nil
}

// checkPerformance 对大文档的慢生成给出告警。
func (d *DocumentExporter) checkPerformance(resultFile, format string, start time.Time) docmodel.ProblemList {
	pages := fileutil.PageCount(resultFile, format)
	elapsed := time.Since(start).Seconds()
	if pages > d.cfg.PerfPageThreshold && elapsed > d.cfg.PerfTimeThreshold {
		return docmodel.ProblemList{{
			Type: docmodel.ProblemWarning, Field: "performance",
			Message: fmt.Sprintf("生成 %d 页耗时 %.1f 秒，超出阈值（%d 页 / %.1f 秒）",
				pages, elapsed, d.cfg.PerfPageThreshold, d.cfg.PerfTimeThreshold),
		}}
	}
	return nil
}

// finish 固化状态、补全元数据并落盘日志与问题文件。
func (d *DocumentExporter) finish(result *docmodel.ExportResult, data *docmodel.DataStructure, problems docmodel.ProblemList, start time.Time) {
	elapsed := time.Since(start)
	if problems.HasErrors() {
		result.Status = docmodel.StatusFailed
		result.Metadata["error"] = problems.Errors()[0].Message
		result.Metadata["error_summary"] = summarizeErrors(problems.Errors())
		// 失败时结果文件可能没生成，补一个占位文件保证三件套齐全
		if _, err := os.Stat(result.ResultFile); os.IsNotExist(err) {
			placeholder := "导出失败: " + summarizeErrors(problems.Errors()) + "\n"
			if err := fileutil.SafeSave(result.ResultFile, []byte(placeholder)); err != nil {
				d.log.Warn("写入占位结果文件失败", zap.Error(err))
			}
		}
	} else {
		result.Status = docmodel.StatusSuccess
	}

	result.Metadata["generation_time"] = elapsed.Seconds()
	result.Metadata["error_count"] = len(problems.Errors())
	result.Metadata["warning_count"] = len(problems.Warnings())

	var fileSize int64
	if info, err := os.Stat(result.ResultFile); err == nil {
		fileSize = info.Size()
	}
	result.Metadata["file_size"] = fileSize

	format, _ := result.Metadata["format"].(string)
	pages := fileutil.PageCount(result.ResultFile, format)
	result.Metadata["page_count"] = pages
	if elapsed.Seconds() > 0 && pages > 0 {
		result.Metadata["pages_per_second"] = float64(pages) / elapsed.Seconds()
	}

	if data != nil {
		result.Metadata["title"] = data.Title
	}

	if err := d.writeLogFile(result, data, elapsed, fileSize, pages); err != nil {
		d.log.Warn("写入导出日志失败", zap.Error(err))
	}
	if err := d.writeProblemsFile(result.ProblemsFile, problems); err != nil {
		d.log.Warn("写入问题文件失败", zap.Error(err))
	}
}

func (d *DocumentExporter) writeLogFile(result *docmodel.ExportResult, data *docmodel.DataStructure, elapsed time.Duration, fileSize int64, pages int) error {
	format, _ := result.Metadata["format"].(string)
	rows := 0
	if data != nil {
		for _, t := range data.Tables {
			rows += len(t)
		}
	}

	var sb strings.Builder
	sb.WriteString("==================================================\n")
	sb.WriteString("导出日志\n")
	sb.WriteString("==================================================\n")
	fmt.Fprintf(&sb, "生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "导出文件: %s\n", filepath.Base(result.ResultFile))
	fmt.Fprintf(&sb, "文件格式: %s\n", format)
	fmt.Fprintf(&sb, "文件大小: %s\n", fileutil.FormatFileSize(fileSize))
	fmt.Fprintf(&sb, "页数: %d\n", pages)
	fmt.Fprintf(&sb, "生成耗时: %.2f 秒\n", elapsed.Seconds())
	fmt.Fprintf(&sb, "处理数据量: %d 行\n", rows)
	fmt.Fprintf(&sb, "导出状态: %s\n", result.Status)
	sb.WriteString("==================================================\n")
	return fileutil.SafeSave(result.LogFile, []byte(sb.String()))
}

func (d *DocumentExporter) writeProblemsFile(path string, problems docmodel.ProblemList) error {
	var sb strings.Builder
	if len(problems) == 0 {
		sb.WriteString("未发现问题\n")
	} else {
		n := 1
		for _, p := range problems.Errors() {
			fmt.Fprintf(&sb, "%d. [错误] [%s] %s\n", n, p.Field, p.Message)
			n++
		}
		for _, p := range problems.Warnings() {
			fmt.Fprintf(&sb, "%d. [警告] [%s] %s\n", n, p.Field, p.Message)
			n++
		}
	}
	return fileutil.SafeSave(path, []byte(sb.String()))
}

func errorProblem(field, format string, args ...interface{}) docmodel.Problem {
	return docmodel.Problem{
		Type: docmodel.ProblemError, Field: field,
		Message: fmt.Sprintf(format, args...),
	}
}

func summarizeErrors(errs docmodel.ProblemList) string {
	msgs := make([]string, 0, len(errs))
	for _, p := range errs {
		msgs = append(msgs, p.Message)
	}
	return strings.Join(msgs, "; ")
}
