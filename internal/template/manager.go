// Package template 管理导出模板：按格式分目录存放、带版本号上传、
// 版本化加载与列举。元数据落在 metadata/ 下的 JSON 文件里，
// 同时尽力写入 SQLite 注册表供外部工具查询。
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/fileutil"
	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// ErrTemplateNotFound 由 Load 在指定格式下找不到模板时返回。
type ErrTemplateNotFound struct {
	Name   string
	Format string
}

func (e *ErrTemplateNotFound) Error() string {
	return fmt.Sprintf("模板 %q 在 %s 格式下不存在", e.Name, e.Format)
}

// validExts 各格式允许的模板扩展名。PDF 复用 HTML 模板。
var validExts = map[string][]string{
	"word": {".docx"},
	"html": {".html", ".htm"},
	"pdf":  {".html", ".htm"},
}

// Manager 维护模板目录与版本元数据。
type Manager struct {
	dir      string
	registry *Registry
	log      logger.Logger
}

// NewManager 创建模板管理器并确保目录结构存在。
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	for _, sub := range []string{"word", "html", "pdf", "metadata"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("创建模板目录失败: %w", err)
		}
	}
	m := &Manager{dir: dir, log: log}
	if reg, err := OpenRegistry(filepath.Join(dir, "templates.db")); err != nil {
		log.Warn("模板注册表不可用", zap.Error(err))
	} else {
		m.registry = reg
	}
	return m, nil
}

// Close 释放注册表连接。
func (m *Manager) Close() error {
	if m.registry != nil {
		return m.registry.Close()
	}
	return nil
}

// Dir 返回模板根目录。
func (m *Manager) Dir() string { return m.dir }

// Upload 上传模板文件并登记为新版本，返回新版本号。
func (m *Manager) Upload(name, format, srcPath, changeLog string) (int, error) {
	format = strings.ToLower(format)
	exts, ok := validExts[format]
	if !ok {
		return 0, fmt.Errorf("不支持的模板格式: %s", format)
	}
	ext := strings.ToLower(filepath.Ext(srcPath))
	if !contains(exts, ext) {
		return 0, fmt.Errorf("%s 格式模板需要 %s 文件，收到 %s", format, strings.Join(exts, "/"), ext)
	}
	if _, err := os.Stat(srcPath); err != nil {
		return 0, fmt.Errorf("模板文件不可读: %w", err)
	}

	meta, err := m.loadMetadata(name)
	if err != nil {
		return 0, err
	}
	version := meta.CurrentVersion + 1
	ts := fileutil.GenerateTimestamp()
	filename := fmt.Sprintf("%s_v%d_%s%s", name, version, ts, ext)
	relPath := filepath.ToSlash(filepath.Join(format, filename))

	if err := fileutil.CopyFile(srcPath, filepath.Join(m.dir, format, filename)); err != nil {
		return 0, fmt.Errorf("复制模板失败: %w", err)
	}

	meta.TemplateName = name
	meta.CurrentVersion = version
	meta.Versions = append(meta.Versions, docmodel.TemplateVersion{
		Version:   version,
		Timestamp: ts,
		FilePath:  relPath,
		ChangeLog: changeLog,
		CreatedAt: time.Now().Format("2006-01-02 15:04:05"),
	})
	if err := m.saveMetadata(name, meta); err != nil {
		return 0, err
	}

	if m.registry != nil {
		if err := m.registry.Record(name, format, version, relPath, changeLog); err != nil {
			m.log.Warn("写入模板注册表失败", zap.Error(err))
		}
	}
	m.log.Info("模板上传完成",
		zap.String("name", name), zap.String("format", format), zap.Int("version", version))
	return version, nil
}

// Load 返回指定模板版本的绝对路径。version 为 0 取最新版本。
func (m *Manager) Load(name, format string, version int) (string, error) {
	format = strings.ToLower(format)
	meta, err := m.loadMetadata(name)
	if err != nil {
		return "", err
	}

	prefix := format + "/"
	var candidates []docmodel.TemplateVersion
	for _, v := range meta.Versions {
		if strings.HasPrefix(v.FilePath, prefix) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return "", &ErrTemplateNotFound{Name: name, Format: format}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Version < candidates[j].Version })
	pick := candidates[len(candidates)-1]
	if version > 0 {
		found := false
		for _, v := range candidates {
			if v.Version == version {
				pick = v
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("模板 %q 没有 %s 格式的版本 %d", name, format, version)
		}
	}

	abs := filepath.Join(m.dir, filepath.FromSlash(pick.FilePath))
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("模板文件丢失 %s: %w", pick.FilePath, err)
	}
	return abs, nil
}

// List 列出某格式下全部模板名及其最新版本号。format 为空时列全部格式。
func (m *Manager) List(format string) (map[string]int, error) {
	entries, err := os.ReadDir(filepath.Join(m.dir, "metadata"))
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_versions.json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), "_versions.json")
		meta, err := m.loadMetadata(name)
		if err != nil {
			m.log.Warn("读取模板元数据失败", zap.String("name", name), zap.Error(err))
			continue
		}
		for _, v := range meta.Versions {
			if format != "" && !strings.HasPrefix(v.FilePath, format+"/") {
				continue
			}
			if v.Version > out[name] {
				out[name] = v.Version
			}
		}
	}
	return out, nil
}

// InferFormat 按模板文件路径推断导出格式。.docx 视为 word；
// .html/.htm 路径中含 pdf 字样时视为 pdf 模板，否则为 html。
func InferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return "word"
	case ".html", ".htm":
		if strings.Contains(strings.ToLower(path), "pdf") {
			return "pdf"
		}
		return "html"
	default:
		return ""
	}
}

func (m *Manager) metadataPath(name string) string {
	return filepath.Join(m.dir, "metadata", name+"_versions.json")
}

func (m *Manager) loadMetadata(name string) (*docmodel.TemplateMetadata, error) {
	raw, err := os.ReadFile(m.metadataPath(name))
	if os.IsNotExist(err) {
		return &docmodel.TemplateMetadata{TemplateName: name}, nil
	}
	if err != nil {
		return nil, err
	}
	var meta docmodel.TemplateMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("解析模板元数据失败: %w", err)
	}
	return &meta, nil
}

func (m *Manager) saveMetadata(name string, meta *docmodel.TemplateMetadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.SafeSave(m.metadataPath(name), raw)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
