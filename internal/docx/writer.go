package docx

import (
	"archive/zip"
	"bytes"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nikk909/Document-Management-System-DMS/pkg/docmodel"
)

// 生成侧的结构体使用 w: 前缀标签直接序列化，命名空间在根元素声明。
// 读取侧按本地名匹配，见 structures.go。

type wDocument struct {
	XMLName  xml.Name `xml:"w:document"`
	XmlnsW   string   `xml:"xmlns:w,attr"`
	XmlnsR   string   `xml:"xmlns:r,attr"`
	XmlnsWP  string   `xml:"xmlns:wp,attr"`
	XmlnsA   string   `xml:"xmlns:a,attr"`
	XmlnsPic string   `xml:"xmlns:pic,attr"`
	Body     wBody    `xml:"w:body"`
}

type wBody struct {
	Items  []interface{}
	SectPr *wSectPr `xml:"w:sectPr"`
}

type wSectPr struct {
	HeaderRef *wHeaderRef `xml:"w:headerReference,omitempty"`
}

type wHeaderRef struct {
	Type string `xml:"w:type,attr"`
	ID   string `xml:"r:id,attr"`
}

type wP struct {
	XMLName xml.Name `xml:"w:p"`
	Props   *wPPr    `xml:"w:pPr,omitempty"`
	Runs    []wR
}

type wPPr struct {
	Style *wVal `xml:"w:pStyle,omitempty"`
	Jc    *wVal `xml:"w:jc,omitempty"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wR struct {
	XMLName xml.Name  `xml:"w:r"`
	Props   *wRPr     `xml:"w:rPr,omitempty"`
	Text    *wT       `xml:"w:t,omitempty"`
	Drawing *wDrawing `xml:"w:drawing,omitempty"`
}

type wRPr struct {
	Bold  *wEmpty  `xml:"w:b,omitempty"`
	Fonts *wRFonts `xml:"w:rFonts,omitempty"`
	Sz    *wVal    `xml:"w:sz,omitempty"`
	SzCs  *wVal    `xml:"w:szCs,omitempty"`
	Color *wVal    `xml:"w:color,omitempty"`
}

type wEmpty struct{}

type wRFonts struct {
	ASCII    string `xml:"w:ascii,attr,omitempty"`
	HAnsi    string `xml:"w:hAnsi,attr,omitempty"`
	EastAsia string `xml:"w:eastAsia,attr,omitempty"`
}

type wT struct {
	XMLName xml.Name `xml:"w:t"`
	Space   string   `xml:"xml:space,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type wDrawing struct {
	XMLName xml.Name `xml:"w:drawing"`
	Inner   string   `xml:",innerxml"`
}

type wTbl struct {
	XMLName xml.Name `xml:"w:tbl"`
	Props   wTblPr   `xml:"w:tblPr"`
	Grid    wTblGrid `xml:"w:tblGrid"`
	Rows    []wTr
}

type wTblPr struct {
	Style   *wVal        `xml:"w:tblStyle,omitempty"`
	Width   wTblW        `xml:"w:tblW"`
	Borders *wTblBorders `xml:"w:tblBorders,omitempty"`
}

type wTblW struct {
	W    string `xml:"w:w,attr"`
	Type string `xml:"w:type,attr"`
}

type wTblBorders struct {
	Top     wBorder `xml:"w:top"`
	Left    wBorder `xml:"w:left"`
	Bottom  wBorder `xml:"w:bottom"`
	Right   wBorder `xml:"w:right"`
	InsideH wBorder `xml:"w:insideH"`
	InsideV wBorder `xml:"w:insideV"`
}

type wBorder struct {
	Val   string `xml:"w:val,attr"`
	Sz    string `xml:"w:sz,attr"`
	Color string `xml:"w:color,attr"`
}

type wTblGrid struct {
	Cols []wGridCol `xml:"w:gridCol"`
}

type wGridCol struct {
	W string `xml:"w:w,attr"`
}

type wTr struct {
	XMLName xml.Name `xml:"w:tr"`
	Cells   []wTc
}

type wTc struct {
	XMLName xml.Name `xml:"w:tc"`
	Props   *wTcPr   `xml:"w:tcPr,omitempty"`
	Paras   []wP
}

type wTcPr struct {
	GridSpan *wVal    `xml:"w:gridSpan,omitempty"`
	VMerge   *wVMerge `xml:"w:vMerge,omitempty"`
	Shd      *wShd    `xml:"w:shd,omitempty"`
}

type wVMerge struct {
	Val string `xml:"w:val,attr,omitempty"`
}

type wShd struct {
	Val  string `xml:"w:val,attr"`
	Fill string `xml:"w:fill,attr"`
}

// DefaultFont 是生成文档的默认正文字体。
const DefaultFont = "宋体"

// DefaultSizeHalfPoints 对应 12 磅正文。
const defaultSizeHalfPoints = "24"

type mediaFile struct {
	name        string
	data        []byte
	contentType string
}

// Builder 自底向上拼装一个 .docx 包。
type Builder struct {
	items     []interface{}
	media     []mediaFile
	imageRels []Relationship
	nextRelID int

	watermarkText  string
	watermarkImage []byte
	protection     *editProtection
}

type editProtection struct {
	saltB64 string
	hashB64 string
}

// NewBuilder 创建空文档构建器。
func NewBuilder() *Builder {
	return &Builder{nextRelID: 100}
}

// RunSpec 描述一个文本片段及其加粗标记。
type RunSpec struct {
	Text string
	Bold bool
}

func textRun(spec RunSpec, sizeHalfPoints string) wR {
	props := &wRPr{
		Fonts: &wRFonts{ASCII: DefaultFont, HAnsi: DefaultFont, EastAsia: DefaultFont},
		Sz:    &wVal{Val: sizeHalfPoints},
		SzCs:  &wVal{Val: sizeHalfPoints},
	}
	if spec.Bold {
		props.Bold = &wEmpty{}
	}
	return wR{
		Props: props,
		Text:  &wT{Space: "preserve", Text: spec.Text},
	}
}

// AddTitle 添加居中的文档标题。
func (b *Builder) AddTitle(text string) {
	b.items = append(b.items, wP{
		Props: &wPPr{Style: &wVal{Val: "Title"}, Jc: &wVal{Val: "center"}},
		Runs:  []wR{textRun(RunSpec{Text: text, Bold: true}, "36")},
	})
}

// AddHeading 添加 1..3 级标题。
func (b *Builder) AddHeading(text string, level int) {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	sizes := map[int]string{1: "32", 2: "28", 3: "26"}
	b.items = append(b.items, wP{
		Props: &wPPr{Style: &wVal{Val: "Heading" + strconv.Itoa(level)}},
		Runs:  []wR{textRun(RunSpec{Text: text, Bold: true}, sizes[level])},
	})
}

// AddParagraph 添加一个由多个片段组成的段落。
func (b *Builder) AddParagraph(specs ...RunSpec) {
	runs := make([]wR, 0, len(specs))
	for _, s := range specs {
		runs = append(runs, textRun(s, defaultSizeHalfPoints))
	}
	b.items = append(b.items, wP{Runs: runs})
}

// AddText 添加纯文本段落。
func (b *Builder) AddText(text string) {
	b.AddParagraph(RunSpec{Text: text})
}

// AddTable 添加带表头的表格。merges 的行坐标基于数据行，
// 写入时对表头行做 +1 偏移。
func (b *Builder) AddTable(headers []string, rows [][]string, merges []docmodel.MergeSpec) {
	cols := len(headers)
	if cols == 0 {
		return
	}

	grid := wTblGrid{}
	colWidth := strconv.Itoa(9000 / cols)
	for i := 0; i < cols; i++ {
		grid.Cols = append(grid.Cols, wGridCol{W: colWidth})
	}

	border := wBorder{Val: "single", Sz: "4", Color: "999999"}
	tbl := wTbl{
		Props: wTblPr{
			Style: &wVal{Val: "LightGrid-Accent1"},
			Width: wTblW{W: "5000", Type: "pct"},
			Borders: &wTblBorders{
				Top: border, Left: border, Bottom: border, Right: border,
				InsideH: border, InsideV: border,
			},
		},
		Grid: grid,
	}

	headerRow := wTr{}
	for _, h := range headers {
		headerRow.Cells = append(headerRow.Cells, wTc{
			Props: &wTcPr{Shd: &wShd{Val: "clear", Fill: "D9E2F3"}},
			Paras: []wP{{Runs: []wR{textRun(RunSpec{Text: h, Bold: true}, defaultSizeHalfPoints)}}},
		})
	}
	tbl.Rows = append(tbl.Rows, headerRow)

	// 合并区域做成快速查表，行号含表头偏移
	type mergeCell struct {
		skip   bool // 被吸收的列单元格，不输出
		span   int
		vmerge string // restart | continue
	}
	mergeMap := map[[2]int]mergeCell{}
	for _, m := range merges {
		span := m.EndCol - m.StartCol + 1
		for r := m.StartRow + 1; r <= m.EndRow+1; r++ {
			vm := "continue"
			if r == m.StartRow+1 {
				vm = "restart"
			}
			if m.EndRow > m.StartRow {
				mergeMap[[2]int{r, m.StartCol}] = mergeCell{span: span, vmerge: vm}
			} else {
				mergeMap[[2]int{r, m.StartCol}] = mergeCell{span: span}
			}
			for c := m.StartCol + 1; c <= m.EndCol; c++ {
				mergeMap[[2]int{r, c}] = mergeCell{skip: true}
			}
		}
	}

	for ri, row := range rows {
		tr := wTr{}
		rowIdx := ri + 1
		for ci, cell := range row {
			mc, merged := mergeMap[[2]int{rowIdx, ci}]
			if merged && mc.skip {
				continue
			}
			tc := wTc{
				Paras: []wP{{Runs: []wR{textRun(RunSpec{Text: cell}, defaultSizeHalfPoints)}}},
			}
			if merged {
				props := &wTcPr{}
				if mc.span > 1 {
					props.GridSpan = &wVal{Val: strconv.Itoa(mc.span)}
				}
				switch mc.vmerge {
				case "restart":
					props.VMerge = &wVMerge{Val: "restart"}
				case "continue":
					props.VMerge = &wVMerge{}
					// 延续单元格内容为空
					tc.Paras = []wP{{}}
				}
				tc.Props = props
			}
			tr.Cells = append(tr.Cells, tc)
		}
		tbl.Rows = append(tbl.Rows, tr)
	}

	b.items = append(b.items, tbl)
}

// AddImage 以内嵌图片段落的方式添加 PNG。宽高按 96 DPI 折算。
func (b *Builder) AddImage(png []byte, widthPx, heightPx int) {
	if widthPx <= 0 {
		widthPx = 576 // 6 英寸
	}
	if heightPx <= 0 {
		heightPx = widthPx * 2 / 3
	}
	cx := int64(widthPx) * 914400 / 96
	cy := int64(heightPx) * 914400 / 96

	b.nextRelID++
	relID := fmt.Sprintf("rId%d", b.nextRelID)
	name := fmt.Sprintf("image%d.png", len(b.media)+1)
	b.media = append(b.media, mediaFile{name: name, data: png, contentType: "image/png"})
	b.imageRels = append(b.imageRels, Relationship{
		ID:     relID,
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image",
		Target: "media/" + name,
	})

	inner := inlineImageXML(cx, cy, b.nextRelID, name, relID)

	b.items = append(b.items, wP{
		Props: &wPPr{Jc: &wVal{Val: "center"}},
		Runs:  []wR{{Drawing: &wDrawing{Inner: inner}}},
	})
}

func inlineImageXML(cx, cy int64, id int, name, relID string) string {
	return fmt.Sprintf(`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="%s"/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline>`,
		cx, cy, id, name, id, name, relID, cx, cy)
}

// SetHeaderWatermark 在页眉放置水印文本。
func (b *Builder) SetHeaderWatermark(text string) {
	b.watermarkText = text
}

// SetHeaderWatermarkImage 在页眉放置图片水印，优先于文字水印。
func (b *Builder) SetHeaderWatermarkImage(png []byte) {
	b.watermarkImage = png
}

// RestrictEditing 开启只读保护。口令按 ISO/IEC 29500 的
// SHA-512 + spinCount 方案散列后写入 settings.xml。
func (b *Builder) RestrictEditing(password string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	const spinCount = 100000
	pw := utf16LE(password)
	h := sha512.Sum512(append(append([]byte{}, salt...), pw...))
	digest := h[:]
	for i := 0; i < spinCount; i++ {
		iter := make([]byte, 4)
		binary.LittleEndian.PutUint32(iter, uint32(i))
		next := sha512.Sum512(append(append([]byte{}, digest...), iter...))
		digest = next[:]
	}

	b.protection = &editProtection{
		saltB64: base64.StdEncoding.EncodeToString(salt),
		hashB64: base64.StdEncoding.EncodeToString(digest),
	}
	return nil
}

func utf16LE(s string) []byte {
	runes := []rune(s)
	var out []byte
	for _, r := range runes {
		if r > 0xFFFF {
			r = '?'
		}
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

// Save 序列化整个包并原子写入目标路径。
func (b *Builder) Save(path string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	hasHeader := b.watermarkText != "" || b.watermarkImage != nil

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", b.contentTypesXML(hasHeader)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/document.xml", nil}, // 占位，下面填充
		{"word/styles.xml", []byte(stylesXML)},
		{"word/settings.xml", b.settingsXML()},
		{"word/_rels/document.xml.rels", b.documentRelsXML(hasHeader)},
	}

	docXML, err := b.documentXML(hasHeader)
	if err != nil {
		return err
	}
	parts[2].data = docXML

	if hasHeader {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/header1.xml", b.headerXML()})
	}
	if b.watermarkImage != nil {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/_rels/header1.xml.rels", b.headerRelsXML()})
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/media/" + headerWatermarkMedia, b.watermarkImage})
	}
	for _, m := range b.media {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/media/" + m.name, m.data})
	}

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if _, err := w.Write(part.data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const xmlDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

func (b *Builder) documentXML(hasHeader bool) ([]byte, error) {
	doc := wDocument{
		XmlnsW:   WordprocessingMLNamespace,
		XmlnsR:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships",
		XmlnsWP:  "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing",
		XmlnsA:   "http://schemas.openxmlformats.org/drawingml/2006/main",
		XmlnsPic: "http://schemas.openxmlformats.org/drawingml/2006/picture",
		Body:     wBody{Items: b.items, SectPr: &wSectPr{}},
	}
	if hasHeader {
		doc.Body.SectPr.HeaderRef = &wHeaderRef{Type: "default", ID: "rIdHdr"}
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("序列化 document.xml 失败: %w", err)
	}
	return append([]byte(xmlDecl), out...), nil
}
