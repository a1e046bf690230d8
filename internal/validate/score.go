package validate

import (
	"os"
	"strings"

	"github.com/nikk909/Document-Management-System-DMS/internal/docx"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// StyleScore 估算导出结果对预期样式的还原度，范围 [0, 1]。
// 启发式评分，用于在日志里提示明显的渲染退化，不追求精确。
func StyleScore(path, format string, data *docmodel.DataStructure) float64 {
	switch format {
	case "word":
		return wordStyleScore(path, data)
	case "html":
		return htmlStyleScore(path)
	case "pdf":
		if _, err := os.Stat(path); err != nil {
			return 0.5
		}
		return 0.95
	default:
		return 0.5
	}
}

func wordStyleScore(path string, data *docmodel.DataStructure) float64 {
	f, err := docx.Read(path)
	if err != nil {
		return 0.5
	}
	score := 1.0

	// 只有数据里确实带表格时才参与评分，数量必须严格对上
	if data != nil && data.EnableTable && len(data.Tables) > 0 {
		if f.TableCount() == len(data.Tables) {
			score += 0.3
		} else {
			score -= 0.2
		}
	}

	// 按段落统计填充率：残留占位符的段落算未填充
	filled, unresolved := 0, 0
	for _, p := range f.Document.Body.Paragraphs {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			continue
		}
		if strings.Contains(text, "{{") {
			unresolved++
		} else {
			filled++
		}
	}
	if unresolved == 0 {
		score += 0.2
	} else {
		fill := float64(filled) / float64(filled+unresolved)
		score = 0.5*fill + 0.5*score
	}

	fonts := f.BodyFonts()
	switch {
	case len(fonts) <= 3:
		score += 0.2
	case len(fonts) > 5:
		score -= 0.1
	}

	return clamp(score)
}

func htmlStyleScore(path string) float64 {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0.5
	}
	text := string(raw)
	score := 1.0

	// 每个未解析的占位符扣 0.1，封底 0.8
	unresolved := strings.Count(text, "{{")
	if unresolved > 0 {
		score -= 0.1 * float64(unresolved)
		if score < 0.8 {
			score = 0.8
		}
	}
	if strings.Contains(text, "<style") {
		score += 0.1
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
