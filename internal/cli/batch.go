package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/config"
	"github.com/nikk909/Document-Management-System-DMS/internal/export"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

var (
	// batch 命令的标志
	batchWorkers int
)

// NewBatchCommand 创建批量导出命令
func NewBatchCommand() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [flags] data_file...",
		Short: "并行导出多个数据文件",
		Long: `批量导出把每个数据文件作为独立任务并行处理，
单个任务失败不影响其他任务。全部任务共享相同的模板与导出选项。

Examples:
  # 批量导出为 Word
  docexport batch -f word data1.json data2.json data3.csv

  # 限制并行度并套用模板
  docexport batch -f html -t 销售模板 --workers 2 *.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatchCommand,
	}

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "并行任务数上限（0 取 CPU 核数）")
	return batchCmd
}

// runBatchCommand 执行批量导出
func runBatchCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewZapLogger(debugMode || verboseMode)
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	updateConfigFromFlags(cmd, cfg)
	if batchWorkers > 0 {
		cfg.MaxWorkers = batchWorkers
	}

	exporter, err := export.NewDocumentExporter(cfg, log)
	if err != nil {
		return fmt.Errorf("初始化导出器失败: %w", err)
	}
	defer exporter.Close()

	tasks := make([]export.BatchTask, len(args))
	opts := buildOptions()
	for i, path := range args {
		tasks[i] = export.BatchTask{Input: path, Options: opts}
	}

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(len(tasks)).
		WithTitle("批量导出").
		Start()
	results := exporter.ExportBatch(cmd.Context(), tasks,
		func(index int, result *docmodel.ExportResult) {
			bar.Increment()
		})
	_, _ = bar.Stop()

	printBatchSummary(args, results)

	failed := 0
	for _, r := range results {
		if r.Status != docmodel.StatusSuccess {
			failed++
		}
	}
	if failed > 0 {
		log.Warn("部分任务失败", zap.Int("failed", failed), zap.Int("total", len(results)))
		return fmt.Errorf("%d/%d 个任务失败", failed, len(results))
	}
	return nil
}

// printBatchSummary 用表格汇总批量结果
func printBatchSummary(inputs []string, results []*docmodel.ExportResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "数据文件", "状态", "结果文件", "警告"})

	for i, result := range results {
		status := "✅ 成功"
		if result.Status != docmodel.StatusSuccess {
			status = "❌ 失败"
		}
		warnings := 0
		if w, ok := result.Metadata["warning_count"].(int); ok {
			warnings = w
		}
		t.AppendRow(table.Row{
			i + 1,
			filepath.Base(inputs[i]),
			status,
			filepath.Base(result.ResultFile),
			warnings,
		})
	}
	t.Render()
}
