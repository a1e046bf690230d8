// Package validate 对导出结果做质量检查：文件完备性、数据完整性、
// 链接有效性（可选）与样式一致性，并给出样式还原度评分。
package validate

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/docx"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/internal/processors"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// Validator 执行导出后校验。
type Validator struct {
	client *http.Client
	log    logger.Logger
}

// NewValidator 创建校验器。
func NewValidator(log logger.Logger) *Validator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Validator{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Validate 校验导出文件与其数据来源，返回发现的问题列表。
// checkLinks 打开时额外做超链接可达性检查（外链逐个请求，较慢）。
func (v *Validator) Validate(path, format string, data *docmodel.DataStructure, checkLinks bool) docmodel.ProblemList {
	var problems docmodel.ProblemList

	// 文件级错误直接短路，后续检查没有意义
	info, err := os.Stat(path)
	if err != nil {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemError, Field: "file",
			Message: fmt.Sprintf("导出文件不存在: %v", err),
		})
		return problems
	}
	if info.Size() == 0 {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemError, Field: "file",
			Message: "导出文件为空",
		})
		return problems
	}

	problems = append(problems, v.checkData(data)...)

	switch format {
	case "word":
		problems = append(problems, v.checkWordStyle(path, checkLinks)...)
	case "html":
		problems = append(problems, v.checkHTML(path, checkLinks)...)
	case "pdf":
		if err := api.ValidateFile(path, nil); err != nil {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemError, Field: "file",
				Message: fmt.Sprintf("PDF 结构校验失败: %v", err),
			})
		}
	}
	return problems
}

// checkData 检查数据本身的完整性。
func (v *Validator) checkData(data *docmodel.DataStructure) docmodel.ProblemList {
	var problems docmodel.ProblemList
	if data == nil {
		return problems
	}
	for name, rows := range data.Tables {
		if len(rows) == 0 {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemWarning, Field: "tables." + name,
				Message: fmt.Sprintf("表格 %q 没有数据行", name),
			})
		}
	}
	for name, payload := range data.Charts {
		if len(payload) == 0 {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemWarning, Field: "charts." + name,
				Message: fmt.Sprintf("图表 %q 没有数据", name),
			})
		}
	}
	for name, ref := range data.Images {
		if processors.IsStorageRef(ref.Src) {
			continue
		}
		if strings.HasPrefix(ref.Src, "http://") || strings.HasPrefix(ref.Src, "https://") ||
			strings.HasPrefix(ref.Src, "data:") || strings.HasPrefix(ref.Src, "base64:") {
			continue
		}
		if _, err := os.Stat(ref.Src); err != nil {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemError, Field: "images." + name,
				Message: fmt.Sprintf("图片文件不存在: %s", ref.Src),
			})
		}
	}
	return problems
}

// checkWordStyle 检查 Word 文档的样式一致性与链接。
func (v *Validator) checkWordStyle(path string, checkLinks bool) docmodel.ProblemList {
	var problems docmodel.ProblemList
	f, err := docx.Read(path)
	if err != nil {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemError, Field: "file",
			Message: fmt.Sprintf("读取 Word 文档失败: %v", err),
		})
		return problems
	}

	if fonts := f.BodyFonts(); len(fonts) > 3 {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "style",
			Message: fmt.Sprintf("正文使用了 %d 种字体，样式可能不统一", len(fonts)),
		})
	}
	if sizes := f.BodyFontSizes(); len(sizes) > 3 {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "style",
			Message: fmt.Sprintf("正文使用了 %d 种字号，样式可能不统一", len(sizes)),
		})
	}
	hf, ff := f.HeaderFonts(), f.FooterFonts()
	if len(hf) > 0 && len(ff) > 0 && !sameSet(hf, ff) {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "style",
			Message: "页眉与页脚字体不一致",
		})
	}

	if checkLinks {
		problems = append(problems, v.checkWordLinks(f)...)
	}
	return problems
}

// checkWordLinks 校验超链接目标与书签锚点。
func (v *Validator) checkWordLinks(f *docx.File) docmodel.ProblemList {
	var problems docmodel.ProblemList
	bookmarks := f.BookmarkNames()
	for _, anchor := range f.AnchorRefs() {
		if !bookmarks[anchor] {
			problems = append(problems, docmodel.Problem{
				Type: docmodel.ProblemWarning, Field: "links",
				Message: fmt.Sprintf("内部链接指向不存在的书签: %s", anchor),
			})
		}
	}
	for _, target := range f.HyperlinkTargets() {
		if p := v.checkExternalLink(target); p != nil {
			problems = append(problems, *p)
		}
	}
	return problems
}

// checkHTML 检查 HTML 文件的链接与内联样式泛滥。
func (v *Validator) checkHTML(path string, checkLinks bool) docmodel.ProblemList {
	var problems docmodel.ProblemList
	fh, err := os.Open(path)
	if err != nil {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemError, Field: "file",
			Message: fmt.Sprintf("打开 HTML 失败: %v", err),
		})
		return problems
	}
	defer fh.Close()

	doc, err := goquery.NewDocumentFromReader(fh)
	if err != nil {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemError, Field: "file",
			Message: fmt.Sprintf("解析 HTML 失败: %v", err),
		})
		return problems
	}

	inlineStyles := 0
	doc.Find("[style]").Each(func(_ int, _ *goquery.Selection) { inlineStyles++ })
	if inlineStyles > 10 {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "style",
			Message: fmt.Sprintf("内联样式过多（%d 处），建议收敛到样式表", inlineStyles),
		})
	}
	families := make(map[string]bool)
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, decl := range strings.Split(style, ";") {
			if k, val, ok := strings.Cut(decl, ":"); ok && strings.TrimSpace(k) == "font-family" {
				families[strings.TrimSpace(val)] = true
			}
		}
	})
	if len(families) > 5 {
		problems = append(problems, docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "style",
			Message: fmt.Sprintf("使用了 %d 种字体族，样式可能不统一", len(families)),
		})
	}

	if checkLinks {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if href == "" || strings.HasPrefix(href, "#") ||
				strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
				return
			}
			if p := v.checkExternalLink(href); p != nil {
				problems = append(problems, *p)
			}
		})
	}
	return problems
}

// checkExternalLink 对 http(s) 链接发 HEAD 请求确认可达。
func (v *Validator) checkExternalLink(target string) *docmodel.Problem {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return nil
	}
	resp, err := v.client.Head(target)
	if err != nil {
		return &docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "links",
			Message: fmt.Sprintf("链接不可达: %s (%v)", target, err),
		}
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &docmodel.Problem{
			Type: docmodel.ProblemWarning, Field: "links",
			Message: fmt.Sprintf("链接返回 %d: %s", resp.StatusCode, target),
		}
	}
	v.log.Debug("链接可达", zap.String("url", target))
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}
