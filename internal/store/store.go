// Package store 归档导出的文档与图片素材。文档按标题推断的类目分目录，
// 每份归档附带一个 JSON 元数据；图片按 ID 存取，供模板中的
// image_id 引用解析。
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/fileutil"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
)

// DocumentMeta 是一份归档文档的元数据。
type DocumentMeta struct {
	DocID      string `json:"doc_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Format     string `json:"format"`
	FilePath   string `json:"file_path"`
	ArchivedAt string `json:"archived_at"`
}

// Store 是基于文件系统的文档与图片仓库。
type Store struct {
	dir string
	log logger.Logger
}

// NewStore 创建仓库并确保目录存在。
func NewStore(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	for _, sub := range []string{"documents", "images", "metadata"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("创建仓库目录失败: %w", err)
		}
	}
	return &Store{dir: dir, log: log}, nil
}

// categoryRules 标题关键词到类目的映射，命中即止。
var categoryRules = []struct {
	keywords []string
	category string
}{
	{[]string{"报告", "report"}, "reports"},
	{[]string{"合同", "contract"}, "contracts"},
	{[]string{"会议", "meeting"}, "meetings"},
}

// InferCategory 按标题关键词推断归档类目。
func InferCategory(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return "未分类"
}

// Archive 把导出文件复制进仓库并登记元数据，返回文档 ID 与归档路径。
func (s *Store) Archive(srcPath, title, format string) (string, string, error) {
	docID := uuid.NewString()
	category := InferCategory(title)

	destDir := filepath.Join(s.dir, "documents", category)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", "", fmt.Errorf("创建类目目录失败: %w", err)
	}
	destPath := filepath.Join(destDir, docID+filepath.Ext(srcPath))
	if err := fileutil.CopyFile(srcPath, destPath); err != nil {
		return "", "", fmt.Errorf("归档文件失败: %w", err)
	}

	meta := DocumentMeta{
		DocID:      docID,
		Title:      title,
		Category:   category,
		Format:     format,
		FilePath:   destPath,
		ArchivedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", "", err
	}
	metaPath := filepath.Join(s.dir, "metadata", docID+".json")
	if err := fileutil.SafeSave(metaPath, raw); err != nil {
		return "", "", fmt.Errorf("写入归档元数据失败: %w", err)
	}

	s.log.Info("文档已归档",
		zap.String("doc_id", docID), zap.String("category", category), zap.String("title", title))
	return docID, destPath, nil
}

// Lookup 按文档 ID 读取归档元数据。
func (s *Store) Lookup(docID string) (*DocumentMeta, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, "metadata", docID+".json"))
	if err != nil {
		return nil, fmt.Errorf("归档记录不存在 %s: %w", docID, err)
	}
	var meta DocumentMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SaveImage 存入一张图片并返回其 ID。传入 ID 为空时自动生成。
func (s *Store) SaveImage(id string, data []byte) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	path := filepath.Join(s.dir, "images", id)
	if err := fileutil.SafeSave(path, data); err != nil {
		return "", fmt.Errorf("保存图片失败: %w", err)
	}
	return id, nil
}

// LoadImage 按 ID 读取图片内容，实现图片解析器的仓库接口。
func (s *Store) LoadImage(id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "images", id))
	if err != nil {
		return nil, fmt.Errorf("图片 %s 不存在: %w", id, err)
	}
	return data, nil
}
