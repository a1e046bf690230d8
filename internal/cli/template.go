package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nikk909/Document-Management-System-DMS/internal/config"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/internal/template"
)

var (
	// template 命令的标志
	tplFormat    string
	tplChangeLog string
)

// NewTemplateCommand 创建模板管理命令
func NewTemplateCommand() *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "管理导出模板",
		Long: `模板管理支持上传新模板（自动递增版本号）与列举已有模板。
Word 模板为 .docx 文件，HTML 与 PDF 模板为 .html/.htm 文件。

Examples:
  # 上传一个 Word 模板
  docexport template upload 合同模板 contract.docx --format word

  # 上传新版本并附变更说明
  docexport template upload 合同模板 contract_v2.docx --format word --changelog "更新签章栏"

  # 列出全部模板
  docexport template list

  # 只看 HTML 模板
  docexport template list --format html`,
	}

	uploadCmd := &cobra.Command{
		Use:   "upload <name> <file>",
		Short: "上传模板（版本号自动递增）",
		Args:  cobra.ExactArgs(2),
		RunE:  runTemplateUpload,
	}
	uploadCmd.Flags().StringVar(&tplFormat, "format", "", "模板格式 (word, html, pdf)，空则按扩展名推断")
	uploadCmd.Flags().StringVar(&tplChangeLog, "changelog", "", "本版本的变更说明")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "列出模板及其最新版本",
		Args:  cobra.NoArgs,
		RunE:  runTemplateList,
	}
	listCmd.Flags().StringVar(&tplFormat, "format", "", "只列出指定格式的模板")

	templateCmd.AddCommand(uploadCmd)
	templateCmd.AddCommand(listCmd)
	return templateCmd
}

func newTemplateManager() (*template.Manager, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	log := logger.NewZapLogger(debugMode)
	return template.NewManager(cfg.TemplateDir, log)
}

// runTemplateUpload 执行模板上传
func runTemplateUpload(cmd *cobra.Command, args []string) error {
	name, file := args[0], args[1]

	format := tplFormat
	if format == "" {
		format = template.InferFormat(file)
		if format == "" {
			return fmt.Errorf("无法从 %s 推断模板格式，请用 --format 指定", file)
		}
	}

	m, err := newTemplateManager()
	if err != nil {
		return err
	}
	defer m.Close()

	version, err := m.Upload(name, format, file, tplChangeLog)
	if err != nil {
		return fmt.Errorf("上传模板失败: %w", err)
	}

	ok := color.New(color.FgGreen, color.Bold)
	ok.Printf("✅ 模板 %q 已上传为 %s 格式的 v%d\n", name, format, version)
	return nil
}

// runTemplateList 列出模板
func runTemplateList(cmd *cobra.Command, args []string) error {
	m, err := newTemplateManager()
	if err != nil {
		return err
	}
	defer m.Close()

	templates, err := m.List(tplFormat)
	if err != nil {
		return fmt.Errorf("列出模板失败: %w", err)
	}
	if len(templates) == 0 {
		fmt.Println("没有已上传的模板")
		return nil
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"模板名称", "最新版本"})
	for _, name := range names {
		t.AppendRow(table.Row{name, fmt.Sprintf("v%d", templates[name])})
	}
	t.Render()
	return nil
}
