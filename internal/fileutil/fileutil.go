package fileutil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// TimestampLayout 是结果文件名中使用的时间戳格式。
const TimestampLayout = "20060102_150405"

var (
	tsMu   sync.Mutex
	lastTS time.Time
)

// GenerateTimestamp 返回文件名时间戳。秒级精度下并发调用会撞名，
// 这里保证进程内单调递增且互不相同。
func GenerateTimestamp() string {
	tsMu.Lock()
	defer tsMu.Unlock()
	now := time.Now().Truncate(time.Second)
	if !now.After(lastTS) {
		now = lastTS.Add(time.Second)
	}
	lastTS = now
	return now.Format(TimestampLayout)
}

// Ext 返回导出格式对应的文件扩展名。
func Ext(format string) string {
	switch format {
	case "word":
		return ".docx"
	case "pdf":
		return ".pdf"
	case "html":
		return ".html"
	default:
		return "." + format
	}
}

// ResultFilename builds "result_<timestamp>.<ext>" for the given format.
func ResultFilename(format, timestamp string) string {
	return "result_" + timestamp + Ext(format)
}

var resultTsPattern = regexp.MustCompile(`result_(\d{8}_\d{6})`)

// TimestampFromResult 从结果文件名中提取时间戳，供日志与问题文件复用，
// 保证三件套共享同一时间戳。提取失败时退回当前时间。
func TimestampFromResult(resultFile string) string {
	m := resultTsPattern.FindStringSubmatch(filepath.Base(resultFile))
	if m == nil {
		return GenerateTimestamp()
	}
	return m[1]
}

// LogFilename builds "log_<timestamp>.txt".
func LogFilename(timestamp string) string {
	return "log_" + timestamp + ".txt"
}

// ProblemsFilename builds "problems_<timestamp>[_<format>].txt".
func ProblemsFilename(timestamp, format string) string {
	if format == "" {
		return "problems_" + timestamp + ".txt"
	}
	return "problems_" + timestamp + "_" + format + ".txt"
}

// SafeSave 先写临时文件再原子重命名，避免半写文件。
func SafeSave(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FormatFileSize 将字节数格式化为人类可读的大小。
func FormatFileSize(size int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// PageCount 估算导出文件的页数。Word 按段落数折算（约 20 段一页），
// PDF 读取真实页数，HTML 无分页概念返回 0。
func PageCount(path, format string) int {
	switch format {
	case "word":
		n := docxParagraphCount(path)
		if n == 0 {
			return 0
		}
		pages := n / 20
		if pages < 1 {
			pages = 1
		}
		return pages
	case "pdf":
		n, err := api.PageCountFile(path)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func docxParagraphCount(path string) int {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return 0
		}
		return strings.Count(string(data), "<w:p ") + strings.Count(string(data), "<w:p>")
	}
	return 0
}
