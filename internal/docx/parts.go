package docx

import (
	"bytes"
	"fmt"
)

// 包内固定部件。样式表只声明用到的样式：默认宋体正文、
// 标题与 LightGrid-Accent1 表格样式。

const packageRelsXML = xmlDecl + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const stylesXML = xmlDecl + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="宋体" w:hAnsi="宋体" w:eastAsia="宋体"/>` +
	`<w:sz w:val="24"/><w:szCs w:val="24"/>` +
	`</w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:styleId="Title">` +
	`<w:name w:val="Title"/><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1">` +
	`<w:name w:val="heading 1"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2">` +
	`<w:name w:val="heading 2"/><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3">` +
	`<w:name w:val="heading 3"/><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>` +
	`<w:style w:type="table" w:styleId="LightGrid-Accent1">` +
	`<w:name w:val="Light Grid Accent 1"/>` +
	`<w:tblPr><w:tblBorders>` +
	`<w:top w:val="single" w:sz="4" w:color="9CC2E5"/>` +
	`<w:left w:val="single" w:sz="4" w:color="9CC2E5"/>` +
	`<w:bottom w:val="single" w:sz="4" w:color="9CC2E5"/>` +
	`<w:right w:val="single" w:sz="4" w:color="9CC2E5"/>` +
	`<w:insideH w:val="single" w:sz="4" w:color="9CC2E5"/>` +
	`<w:insideV w:val="single" w:sz="4" w:color="9CC2E5"/>` +
	`</w:tblBorders></w:tblPr></w:style>` +
	`</w:styles>`

func (b *Builder) contentTypesXML(hasHeader bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlDecl)
	buf.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	buf.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	buf.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	buf.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	buf.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	buf.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	buf.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	buf.WriteString(`<Override PartName="/word/settings.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"/>`)
	if hasHeader {
		buf.WriteString(`<Override PartName="/word/header1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>`)
	}
	buf.WriteString(`</Types>`)
	return buf.Bytes()
}

func (b *Builder) settingsXML() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlDecl)
	buf.WriteString(`<w:settings xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	if b.protection != nil {
		buf.WriteString(fmt.Sprintf(
			`<w:documentProtection w:edit="readOnly" w:enforcement="1" `+
				`w:cryptProviderType="rsaAES" w:cryptAlgorithmClass="hash" `+
				`w:cryptAlgorithmType="typeAny" w:cryptAlgorithmSid="14" `+
				`w:cryptSpinCount="100000" w:hash="%s" w:salt="%s"/>`,
			b.protection.hashB64, b.protection.saltB64))
	}
	buf.WriteString(`</w:settings>`)
	return buf.Bytes()
}

func (b *Builder) documentRelsXML(hasHeader bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlDecl)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	buf.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	buf.WriteString(`<Relationship Id="rIdSettings" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings" Target="settings.xml"/>`)
	if hasHeader {
		buf.WriteString(`<Relationship Id="rIdHdr" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>`)
	}
	for _, rel := range b.imageRels {
		buf.WriteString(fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, rel.ID, rel.Type, rel.Target))
	}
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

const (
	headerWatermarkMedia = "header_wm.png"
	headerWatermarkRelID = "rIdHdrImg"
)

// headerXML 输出承载水印的页眉。图片水印优先于文字水印，
// 文字水印是居中放大的浅灰文字。
func (b *Builder) headerXML() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlDecl)
	buf.WriteString(`<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">`)
	buf.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr>`)
	if b.watermarkImage != nil {
		// 页眉图片宽 200px，高按 2:3 比例，96 DPI 折算 EMU
		cx := int64(200) * 914400 / 96
		cy := cx * 2 / 3
		buf.WriteString(`<w:r><w:drawing>`)
		buf.WriteString(inlineImageXML(cx, cy, 900, headerWatermarkMedia, headerWatermarkRelID))
		buf.WriteString(`</w:drawing></w:r>`)
	} else {
		buf.WriteString(`<w:r><w:rPr>`)
		buf.WriteString(`<w:rFonts w:ascii="宋体" w:hAnsi="宋体" w:eastAsia="宋体"/>`)
		buf.WriteString(`<w:color w:val="C0C0C0"/><w:sz w:val="48"/>`)
		buf.WriteString(`</w:rPr><w:t xml:space="preserve">`)
		xmlEscapeTo(&buf, b.watermarkText)
		buf.WriteString(`</w:t></w:r>`)
	}
	buf.WriteString(`</w:p></w:hdr>`)
	return buf.Bytes()
}

// headerRelsXML 输出页眉自己的关系部件，指向水印图片。
func (b *Builder) headerRelsXML() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlDecl)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	buf.WriteString(fmt.Sprintf(
		`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`,
		headerWatermarkRelID, headerWatermarkMedia))
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

func xmlEscapeTo(buf *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(r)
		}
	}
}
