// Package security 提供导出文件的后处理保护：PDF 加密与 PDF 水印。
// Word 的密码加密（OOXML 容器级加密）暂无可用实现，调用方应降级处理。
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrWordEncryptionUnsupported 表示 Word 文档不支持容器级密码加密。
var ErrWordEncryptionUnsupported = errors.New("word 文档暂不支持密码加密")

// EncryptPDF 就地为 PDF 设置打开密码，优先 AES-256，失败时回退 AES-128。
func EncryptPDF(path, password string) error {
	if password == "" {
		return errors.New("密码为空")
	}
	tmp := path + ".enc.tmp"
	defer os.Remove(tmp)

	var lastErr error
	for _, keyLen := range []int{256, 128} {
		conf := model.NewDefaultConfiguration()
		conf.UserPW = password
		conf.OwnerPW = password
		conf.EncryptUsingAES = true
		conf.EncryptKeyLength = keyLen
		if err := api.EncryptFile(path, tmp, conf); err != nil {
			lastErr = fmt.Errorf("AES-%d 加密失败: %w", keyLen, err)
			continue
		}
		return os.Rename(tmp, path)
	}
	return lastErr
}

// EncryptDocument 按格式分发加密。HTML 无加密能力，Word 返回
// ErrWordEncryptionUnsupported 供调用方降级。
func EncryptDocument(path, format, password string) error {
	switch format {
	case "pdf":
		return EncryptPDF(path, password)
	case "word":
		return ErrWordEncryptionUnsupported
	default:
		return fmt.Errorf("格式 %s 不支持加密", format)
	}
}

const watermarkDesc = "rotation:-45, opacity:0.3, scalefactor:0.6 rel, fillcolor:#c0c0c0"

// WatermarkPDF 在每页叠加文字或图片水印。imagePath 非空且可读时优先图片。
func WatermarkPDF(path, text, imagePath string) error {
	var (
		wm  *model.Watermark
		err error
	)
	if imagePath != "" {
		if _, statErr := os.Stat(imagePath); statErr == nil {
			wm, err = api.ImageWatermark(imagePath, watermarkDesc, true, false, types.POINTS)
		}
	}
	if wm == nil && err == nil {
		wm, err = api.TextWatermark(text, watermarkDesc, true, false, types.POINTS)
	}
	if err != nil {
		return fmt.Errorf("构建水印失败: %w", err)
	}

	tmp := path + ".wm.tmp"
	defer os.Remove(tmp)
	if err := api.AddWatermarksFile(path, tmp, nil, wm, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("叠加水印失败: %w", err)
	}
	return os.Rename(tmp, path)
}

// IsPDF 按扩展名判断是否 PDF 文件。
func IsPDF(path string) bool {
	return filepath.Ext(path) == ".pdf"
}
