package services

import (
	"bytes"
	"fmt"
	"strings"

	"baliance.com/gooxml/document"
)

// ParagraphText is the readable content of one body paragraph.
type ParagraphText struct {
	Text      string `json:"text"`
	Style     string `json:"style,omitempty"`
	Alignment string `json:"alignment,omitempty"`
	Bold      bool   `json:"bold,omitempty"`
	Numbered  bool   `json:"numbered,omitempty"`
}

// BillText is the text content of a generated bill, in document order.
type BillText struct {
	Paragraphs []ParagraphText `json:"paragraphs"`
	Tables     [][][]string    `json:"tables"`
}

// ExtractBillText re-opens a generated document and returns its text.
func ExtractBillText(data []byte) (*BillText, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read bill document: %w", err)
	}

	out := &BillText{
		Paragraphs: []ParagraphText{},
		Tables:     [][][]string{},
	}
	for _, para := range doc.Paragraphs() {
		out.Paragraphs = append(out.Paragraphs, paragraphText(para))
	}
	for _, table := range doc.Tables() {
		rows := [][]string{}
		for _, row := range table.Rows() {
			cells := []string{}
			for _, cell := range row.Cells() {
				var sb strings.Builder
				for _, para := range cell.Paragraphs() {
					sb.WriteString(paragraphText(para).Text)
				}
				cells = append(cells, sb.String())
			}
			rows = append(rows, cells)
		}
		out.Tables = append(out.Tables, rows)
	}
	return out, nil
}

func paragraphText(para document.Paragraph) ParagraphText {
	var pt ParagraphText
	var sb strings.Builder
	for _, run := range para.Runs() {
		sb.WriteString(run.Text())
		if rpr := run.X().RPr; rpr != nil && rpr.B != nil {
			pt.Bold = true
		}
	}
	pt.Text = sb.String()

	if ppr := para.X().PPr; ppr != nil {
		if ppr.PStyle != nil {
			pt.Style = ppr.PStyle.ValAttr
		}
		if ppr.Jc != nil {
			pt.Alignment = ppr.Jc.ValAttr.String()
		}
		pt.Numbered = ppr.NumPr != nil
	}
	return pt
}

// Paragraph returns the first paragraph whose text starts with prefix.
func (t *BillText) Paragraph(prefix string) (ParagraphText, bool) {
	for _, p := range t.Paragraphs {
		if strings.HasPrefix(p.Text, prefix) {
			return p, true
		}
	}
	return ParagraphText{}, false
}

// ItemTable returns the rows of the item table, which is always the last table.
func (t *BillText) ItemTable() [][]string {
	if len(t.Tables) == 0 {
		return nil
	}
	return t.Tables[len(t.Tables)-1]
}

// String joins all paragraph and cell text with newlines.
func (t *BillText) String() string {
	var lines []string
	for _, p := range t.Paragraphs {
		lines = append(lines, p.Text)
	}
	for _, table := range t.Tables {
		for _, row := range table {
			lines = append(lines, strings.Join(row, "\t"))
		}
	}
	return strings.Join(lines, "\n")
}
