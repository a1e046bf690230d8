package processors

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ImageStore 按 id 提供图片内容，由存储层实现。
type ImageStore interface {
	LoadImage(id string) ([]byte, error)
}

// ImageResolver 把各种形式的图片来源解析为字节流：
// 存储引用（image_id:<n> / id:<n> / /api/images/<n>/download）、
// data URI、base64、http(s) 地址、本地路径。
type ImageResolver struct {
	Store  ImageStore
	Client *http.Client
}

// NewImageResolver 创建解析器。store 可以为 nil，此时存储引用报错。
func NewImageResolver(store ImageStore) *ImageResolver {
	return &ImageResolver{
		Store:  store,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

var apiImagePathRe = regexp.MustCompile(`/api/images/([^/]+)/download`)

// Resolve 解析图片来源并返回内容。
func (r *ImageResolver) Resolve(src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("图片来源为空")
	}

	switch {
	case strings.HasPrefix(src, "image_id:"):
		return r.fromStore(strings.TrimPrefix(src, "image_id:"))
	case strings.HasPrefix(src, "id:"):
		return r.fromStore(strings.TrimPrefix(src, "id:"))
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "base64:"):
		return base64.StdEncoding.DecodeString(strings.TrimPrefix(src, "base64:"))
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		// 指向本服务图片接口的地址改走存储，拿到的是原始内容而非接口响应
		if m := apiImagePathRe.FindStringSubmatch(src); m != nil {
			return r.fromStore(m[1])
		}
		return r.fetch(src)
	}

	if m := apiImagePathRe.FindStringSubmatch(src); m != nil {
		return r.fromStore(m[1])
	}

	path := filepath.Clean(src)
	if _, err := os.Stat(path); err != nil && looksLikeBase64(src) {
		if raw, derr := base64.StdEncoding.DecodeString(src); derr == nil {
			return raw, nil
		}
	}
	return os.ReadFile(path)
}

var base64Re = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

func looksLikeBase64(s string) bool {
	return len(s) >= 16 && len(s)%4 == 0 && base64Re.MatchString(s)
}

func (r *ImageResolver) fromStore(id string) ([]byte, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("没有可用的图片存储，无法解析 id %q", id)
	}
	return r.Store.LoadImage(id)
}

func (r *ImageResolver) fetch(url string) ([]byte, error) {
	resp, err := r.Client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("下载图片失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载图片失败: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func decodeDataURI(src string) ([]byte, error) {
	idx := strings.Index(src, ",")
	if idx < 0 {
		return nil, fmt.Errorf("data URI 缺少数据段")
	}
	meta, data := src[:idx], src[idx+1:]
	if !strings.Contains(meta, "base64") {
		return nil, fmt.Errorf("不支持的 data URI 编码")
	}
	return base64.StdEncoding.DecodeString(data)
}

// ImageMIME 根据来源推断 MIME 类型，HTML 内嵌时使用。
func ImageMIME(src string) string {
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	default:
		return "image/png"
	}
}

// IsStorageRef 判断图片来源是否是存储引用，校验时这类来源跳过
// 本地文件存在性检查。
func IsStorageRef(src string) bool {
	return strings.HasPrefix(src, "image_id:") ||
		strings.HasPrefix(src, "id:") ||
		strings.HasPrefix(src, "data:") ||
		strings.HasPrefix(src, "base64:") ||
		strings.Contains(src, "/api/images/")
}
