package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const hyperlinkRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

// HeaderFooter is the parsed form of a header or footer part.
type HeaderFooter struct {
	Paragraphs []Paragraph `xml:"p"`
}

// File 是已解析的 docx 包，供模板填充与校验使用。
type File struct {
	Document WordDocument
	Headers  []HeaderFooter
	Footers  []HeaderFooter
	Rels     Relationships
}

// Read 打开并解析一个 .docx 文件的主文档、页眉页脚与关系表。
func Read(path string) (*File, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("打开 docx 失败: %w", err)
	}
	defer r.Close()

	f := &File{}
	found := false
	for _, zf := range r.File {
		switch {
		case zf.Name == "word/document.xml":
			if err := unmarshalPart(zf, &f.Document); err != nil {
				return nil, fmt.Errorf("解析 document.xml 失败: %w", err)
			}
			found = true
		case zf.Name == "word/_rels/document.xml.rels":
			if err := unmarshalPart(zf, &f.Rels); err != nil {
				return nil, fmt.Errorf("解析关系表失败: %w", err)
			}
		case strings.HasPrefix(zf.Name, "word/header") && strings.HasSuffix(zf.Name, ".xml"):
			var h HeaderFooter
			if err := unmarshalPart(zf, &h); err == nil {
				f.Headers = append(f.Headers, h)
			}
		case strings.HasPrefix(zf.Name, "word/footer") && strings.HasSuffix(zf.Name, ".xml"):
			var h HeaderFooter
			if err := unmarshalPart(zf, &h); err == nil {
				f.Footers = append(f.Footers, h)
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("不是有效的 docx 文件: 缺少 word/document.xml")
	}
	return f, nil
}

func unmarshalPart(zf *zip.File, v interface{}) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

// PlainText 按出现顺序拼接正文段落与表格单元格文本。
func (f *File) PlainText() string {
	var sb strings.Builder
	for _, p := range f.Document.Body.Paragraphs {
		sb.WriteString(p.Text())
		// 空行分隔，让段落边界在后续解析中保留
		sb.WriteString("\n\n")
	}
	for _, t := range f.Document.Body.Tables {
		for _, row := range t.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, c := range row.Cells {
				cells = append(cells, c.Text())
			}
			sb.WriteString(strings.Join(cells, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// TableCount returns the number of body tables.
func (f *File) TableCount() int {
	return len(f.Document.Body.Tables)
}

// BodyFonts 收集正文引用到的字体名。
func (f *File) BodyFonts() []string {
	set := map[string]bool{}
	collect := func(runs []Run) {
		for _, r := range runs {
			if r.Properties == nil {
				continue
			}
			for _, name := range r.Properties.Font.Names() {
				set[name] = true
			}
		}
	}
	for _, p := range f.Document.Body.Paragraphs {
		collect(p.Runs)
	}
	for _, t := range f.Document.Body.Tables {
		for _, row := range t.Rows {
			for _, c := range row.Cells {
				for _, p := range c.Paragraphs {
					collect(p.Runs)
				}
			}
		}
	}
	return setToList(set)
}

// BodyFontSizes 收集正文引用到的字号（半磅值）。
func (f *File) BodyFontSizes() []string {
	set := map[string]bool{}
	for _, p := range f.Document.Body.Paragraphs {
		for _, r := range p.Runs {
			if r.Properties != nil && r.Properties.Size != nil {
				set[r.Properties.Size.Val] = true
			}
		}
	}
	return setToList(set)
}

func partFonts(parts []HeaderFooter) []string {
	set := map[string]bool{}
	for _, part := range parts {
		for _, p := range part.Paragraphs {
			for _, r := range p.Runs {
				if r.Properties == nil {
					continue
				}
				for _, name := range r.Properties.Font.Names() {
					set[name] = true
				}
			}
		}
	}
	return setToList(set)
}

// HeaderFonts 收集页眉字体名。
func (f *File) HeaderFonts() []string { return partFonts(f.Headers) }

// FooterFonts 收集页脚字体名。
func (f *File) FooterFonts() []string { return partFonts(f.Footers) }

// HyperlinkTargets 返回关系表中的超链接目标。
func (f *File) HyperlinkTargets() []string {
	var out []string
	for _, rel := range f.Rels.Relationships {
		if rel.Type == hyperlinkRelType {
			out = append(out, rel.Target)
		}
	}
	return out
}

// BookmarkNames 返回正文中定义的书签名。
func (f *File) BookmarkNames() map[string]bool {
	out := map[string]bool{}
	for _, p := range f.Document.Body.Paragraphs {
		for _, b := range p.Bookmarks {
			out[b.Name] = true
		}
	}
	return out
}

// AnchorRefs 返回正文超链接使用的书签锚点。
func (f *File) AnchorRefs() []string {
	var out []string
	for _, p := range f.Document.Body.Paragraphs {
		for _, h := range p.Hyperlinks {
			if h.Anchor != "" {
				out = append(out, h.Anchor)
			}
		}
	}
	return out
}

func setToList(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
