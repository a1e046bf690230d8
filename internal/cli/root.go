package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/config"
	"github.com/nikk909/Document-Management-System-DMS/internal/export"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

var (
	// 命令行标志变量
	cfgFile       string
	outputDir     string
	outputFormat  string
	templateName  string
	templateFile  string
	watermark     bool
	watermarkText string
	watermarkImg  string
	restrictEdit  bool
	password      string
	noTables      bool // 禁用表格渲染
	noCharts      bool // 禁用图表渲染
	checkLinks    bool // 校验超链接可达性（较慢）
	debugMode     bool
	verboseMode   bool

	listFormats bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docexport [flags] data_file",
		Short: "文档导出工具：把结构化数据渲染成 Word、HTML 和 PDF 文档",
		Long: `文档导出工具把 JSON、CSV、TSV 或 Excel 数据渲染成正式文档。
支持模板版本管理、表达式模板语法、表格合并、图表生成、图片内嵌，
以及水印、密码加密与编辑保护等安全后处理。

支持的导出格式:
  - word: Word 文档 (.docx)
  - html: 网页 (.html)
  - pdf:  PDF 文档（需要本机 Chrome/Chromium）`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args: func(cmd *cobra.Command, args []string) error {
			if listFormats {
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			log := logger.NewZapLogger(debugMode || verboseMode)
			defer func() {
				_ = log.Sync()
			}()

			if listFormats {
				fmt.Println("支持的导出格式:")
				for _, f := range []string{"word", "html", "pdf"} {
					fmt.Printf("  - %s\n", f)
				}
				return
			}

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				log.Error("加载配置失败", zap.Error(err))
				os.Exit(1)
			}
			updateConfigFromFlags(cmd, cfg)

			exporter, err := export.NewDocumentExporter(cfg, log)
			if err != nil {
				log.Error("初始化导出器失败", zap.Error(err))
				os.Exit(1)
			}
			defer exporter.Close()

			result := exporter.Export(cmd.Context(), args[0], buildOptions())
			printResult(result)
			if result.Status != docmodel.StatusSuccess {
				os.Exit(1)
			}
		},
	}

	addGlobalFlags(rootCmd)
	rootCmd.AddCommand(NewBatchCommand())
	rootCmd.AddCommand(NewTemplateCommand())

	return rootCmd
}

// addGlobalFlags 添加全局标志
func addGlobalFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "输出目录")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "导出格式 (word, html, pdf)")
	rootCmd.PersistentFlags().StringVarP(&templateName, "template", "t", "", "使用的模板名称")
	rootCmd.PersistentFlags().StringVar(&templateFile, "template-file", "", "直接指定模板文件路径")
	rootCmd.PersistentFlags().BoolVar(&watermark, "watermark", false, "添加水印")
	rootCmd.PersistentFlags().StringVar(&watermarkText, "watermark-text", "", "水印文字（默认使用配置文案）")
	rootCmd.PersistentFlags().StringVar(&watermarkImg, "watermark-image", "", "水印图片路径（优先于文字水印）")
	rootCmd.PersistentFlags().BoolVar(&restrictEdit, "restrict-edit", false, "限制编辑（仅 Word）")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "文档口令（PDF 加密 / Word 编辑保护）")
	rootCmd.PersistentFlags().BoolVar(&noTables, "no-tables", false, "禁用表格渲染")
	rootCmd.PersistentFlags().BoolVar(&noCharts, "no-charts", false, "禁用图表渲染")
	rootCmd.PersistentFlags().BoolVar(&checkLinks, "check-links", false, "校验文档内超链接可达性")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试模式")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "显示详细日志")
	rootCmd.PersistentFlags().BoolVar(&listFormats, "list-formats", false, "列出支持的导出格式")
}

// updateConfigFromFlags 使用命令行参数更新配置
func updateConfigFromFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("format") {
		cfg.DefaultFormat = outputFormat
	}
	if cmd.Flags().Changed("watermark-text") {
		cfg.WatermarkText = watermarkText
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debugMode
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verboseMode
	}
}

// buildOptions 把命令行标志折叠成导出选项
func buildOptions() docmodel.ExportOptions {
	opts := docmodel.NewExportOptions()
	opts.TemplateName = templateName
	opts.TemplatePath = templateFile
	opts.OutputFormat = outputFormat
	opts.OutputDir = outputDir
	opts.Watermark = watermark
	opts.WatermarkText = watermarkText
	opts.WatermarkImagePath = watermarkImg
	opts.RestrictEdit = restrictEdit
	opts.Password = password
	opts.EnableTable = !noTables
	opts.EnableChart = !noCharts
	opts.CheckLinks = checkLinks
	return opts
}

// printResult 打印单次导出结果
func printResult(result *docmodel.ExportResult) {
	if result.Status == docmodel.StatusSuccess {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Println("✅ 导出成功")
	} else {
		fail := color.New(color.FgRed, color.Bold)
		fail.Println("❌ 导出失败")
		if msg, ok := result.Metadata["error"].(string); ok && msg != "" {
			fmt.Printf("  原因: %s\n", msg)
		}
	}

	fmt.Printf("  结果文件: %s\n", result.ResultFile)
	fmt.Printf("  导出日志: %s\n", result.LogFile)
	fmt.Printf("  问题报告: %s\n", result.ProblemsFile)
	if result.StoragePath != "" {
		fmt.Printf("  归档位置: %s\n", result.StoragePath)
	}
	if score, ok := result.Metadata["style_reduction_score"].(float64); ok {
		fmt.Printf("  样式还原度: %.2f\n", score)
	}
	if warnings, ok := result.Metadata["warning_count"].(int); ok && warnings > 0 {
		fmt.Printf("  ⚠️  %d 个警告，详见问题报告\n", warnings)
	}
}
