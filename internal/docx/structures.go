package docx

import (
	"encoding/xml"
)

// DOCX XML Namespaces
const (
	WordprocessingMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	RelationshipsNamespace    = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// WordDocument represents the main document.xml structure.
// encoding/xml matches on local names, so these structs read any
// namespace-prefixed document part.
type WordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    Body     `xml:"body"`
}

// Body represents the document body
type Body struct {
	Paragraphs []Paragraph `xml:"p"`
	Tables     []Table     `xml:"tbl"`
}

// Paragraph represents a paragraph element
type Paragraph struct {
	XMLName    xml.Name        `xml:"p"`
	Properties *ParagraphProps `xml:"pPr"`
	Runs       []Run           `xml:"r"`
	Hyperlinks []Hyperlink     `xml:"hyperlink"`
	Bookmarks  []BookmarkStart `xml:"bookmarkStart"`
}

// Text concatenates all run text of the paragraph.
func (p Paragraph) Text() string {
	out := ""
	for _, r := range p.Runs {
		if r.Text != nil {
			out += r.Text.Text
		}
	}
	for _, h := range p.Hyperlinks {
		for _, r := range h.Runs {
			if r.Text != nil {
				out += r.Text.Text
			}
		}
	}
	return out
}

// ParagraphProps represents paragraph properties
type ParagraphProps struct {
	Style *ParagraphStyle `xml:"pStyle"`
	Align *ParagraphAlign `xml:"jc"`
}

// ParagraphStyle represents paragraph style
type ParagraphStyle struct {
	Val string `xml:"val,attr"`
}

// ParagraphAlign represents paragraph alignment
type ParagraphAlign struct {
	Val string `xml:"val,attr"`
}

// Run represents a text run
type Run struct {
	XMLName    xml.Name  `xml:"r"`
	Properties *RunProps `xml:"rPr"`
	Text       *Text     `xml:"t"`
	Break      *Break    `xml:"br"`
}

// RunProps represents run properties
type RunProps struct {
	Bold *Bold     `xml:"b"`
	Size *FontSize `xml:"sz"`
	Font *RunFont  `xml:"rFonts"`
}

// Text represents actual text content
type Text struct {
	XMLName xml.Name `xml:"t"`
	Space   string   `xml:"http://www.w3.org/XML/1998/namespace space,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

// Break represents a line break
type Break struct {
	XMLName xml.Name `xml:"br"`
	Type    string   `xml:"type,attr,omitempty"`
}

// Bold represents bold formatting
type Bold struct {
	Val string `xml:"val,attr,omitempty"`
}

// FontSize represents font size in half-points
type FontSize struct {
	Val string `xml:"val,attr"`
}

// RunFont represents font settings
type RunFont struct {
	ASCII    string `xml:"ascii,attr,omitempty"`
	HAnsi    string `xml:"hAnsi,attr,omitempty"`
	EastAsia string `xml:"eastAsia,attr,omitempty"`
}

// Names returns the distinct font names the run references.
func (f *RunFont) Names() []string {
	if f == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range []string{f.ASCII, f.HAnsi, f.EastAsia} {
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Table represents a table element
type Table struct {
	XMLName    xml.Name    `xml:"tbl"`
	Properties *TableProps `xml:"tblPr"`
	Rows       []TableRow  `xml:"tr"`
}

// TableProps represents table properties
type TableProps struct {
	Style *TableStyle `xml:"tblStyle"`
}

// TableStyle represents table style
type TableStyle struct {
	Val string `xml:"val,attr"`
}

// TableRow represents a table row
type TableRow struct {
	XMLName xml.Name    `xml:"tr"`
	Cells   []TableCell `xml:"tc"`
}

// TableCell represents a table cell
type TableCell struct {
	XMLName    xml.Name        `xml:"tc"`
	Properties *TableCellProps `xml:"tcPr"`
	Paragraphs []Paragraph     `xml:"p"`
}

// Text concatenates the cell's paragraph text.
func (c TableCell) Text() string {
	out := ""
	for _, p := range c.Paragraphs {
		out += p.Text()
	}
	return out
}

// TableCellProps represents table cell properties
type TableCellProps struct {
	VMerge   *VerticalMerge `xml:"vMerge"`
	GridSpan *GridSpan      `xml:"gridSpan"`
}

// VerticalMerge represents vertical merge
type VerticalMerge struct {
	Val string `xml:"val,attr,omitempty"`
}

// GridSpan represents grid span
type GridSpan struct {
	Val string `xml:"val,attr"`
}

// Hyperlink represents a hyperlink
type Hyperlink struct {
	XMLName xml.Name `xml:"hyperlink"`
	ID      string   `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	Anchor  string   `xml:"anchor,attr,omitempty"`
	Runs    []Run    `xml:"r"`
}

// BookmarkStart represents bookmark start
type BookmarkStart struct {
	XMLName xml.Name `xml:"bookmarkStart"`
	ID      string   `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
}

// Relationships represents a relationships part
type Relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Relationship represents a relationship
type Relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}
