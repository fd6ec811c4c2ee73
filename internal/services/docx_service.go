package services

import (
	"bytes"
	"fmt"

	"go-bill-webapp/internal/config"
	"go-bill-webapp/internal/models"

	"baliance.com/gooxml/color"
	"baliance.com/gooxml/document"
	"baliance.com/gooxml/measurement"
	"baliance.com/gooxml/schema/soo/wml"
)

// Letterhead printed on every bill.
const CompanyName = "S. S. ENTERPRISES"

var CompanyContact = []string{
	"Aluminium Interior Works",
	"Plot No. 651/A, East Kakatiyanagar, Neredmet, Malkajgiri, Secunderabad – 500056",
	"Cell: 9014462295, 7999110733",
}

const (
	BillHeading         = "BILL"
	PaymentTermsHeading = "Note - Payment Terms and Conditions"
)

// PaymentTerms are rendered as an auto-numbered list, so they carry no number.
var PaymentTerms = []string{
	"Advance Payment: An initial advance of 25% of the total project cost is required before commencement of work.",
	"Work Initiation: A further 25% is to be paid once the work has officially started.",
	"Post-Framing Stage: An additional 25% is to be paid upon completion of the framing stage.",
	"Final Payment: The remaining 25% must be paid upon completion of the finishing work.",
}

const (
	pageMargin       = 0.5 * measurement.Inch
	headerMargin     = 0.5 * measurement.Inch
	ruleThickness    = 1.5 * measurement.Point // w:sz=12
	gridThickness    = 0.5 * measurement.Point
	heading1FontSize = 16 * measurement.Point
	heading2FontSize = 13 * measurement.Point
)

// DocxService assembles bills into WordprocessingML documents. It holds no
// mutable state and is safe for concurrent use.
type DocxService struct {
	layout config.LayoutConfig
}

func NewDocxService(layout config.LayoutConfig) *DocxService {
	return &DocxService{layout: layout}
}

func (s *DocxService) Layout() config.LayoutConfig {
	return s.layout
}

// WithLayout returns a service assembling the given layout variant.
func (s *DocxService) WithLayout(layout config.LayoutConfig) *DocxService {
	return &DocxService{layout: layout}
}

// GenerateBillDocx builds the bill document and returns the serialized .docx.
// Sections are appended in a fixed order; the layout only toggles and orders them.
func (s *DocxService) GenerateBillDocx(bill *models.Bill) ([]byte, error) {
	if bill == nil {
		return nil, fmt.Errorf("bill cannot be nil")
	}

	doc := document.New()
	if s.layout.CustomMargins {
		doc.BodySection().SetPageMargins(pageMargin, pageMargin, pageMargin, pageMargin, headerMargin, headerMargin, 0)
	}

	addHeading(doc, CompanyName, "Heading1", heading1FontSize)
	addContactBlock(doc)

	if s.layout.DecorativeRule {
		addDecorativeRule(doc)
	}

	if bill.CustomerName != "" {
		addField(doc, "Customer Name: "+bill.CustomerName, wml.ST_JcLeft, s.layout.EmphasizeFields)
	}

	addDate := func() {
		if s.layout.EmphasizeFields {
			addField(doc, "Date: "+bill.FormattedDate(), wml.ST_JcRight, true)
		} else {
			addField(doc, "Date: "+bill.FormattedDate(), wml.ST_JcLeft, false)
		}
	}
	addBillTo := func() {
		addField(doc, "Bill to: "+bill.BillTo, wml.ST_JcLeft, false)
	}
	if s.layout.DateBeforeBillTo {
		addDate()
		addBillTo()
	} else {
		addBillTo()
		addDate()
	}

	addHeading(doc, BillHeading, "Heading2", heading2FontSize)
	addItemTable(doc, bill.Items)

	if s.layout.PaymentTerms {
		addPaymentTerms(doc)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize bill document: %w", err)
	}
	return buf.Bytes(), nil
}

func addHeading(doc *document.Document, text, style string, size measurement.Distance) {
	para := doc.AddParagraph()
	para.SetStyle(style)
	para.Properties().SetAlignment(wml.ST_JcCenter)

	run := para.AddRun()
	run.Properties().SetBold(true)
	run.Properties().SetSize(size)
	run.AddText(text)
}

func addContactBlock(doc *document.Document) {
	para := doc.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)
	for i, line := range CompanyContact {
		run := para.AddRun()
		if i > 0 {
			run.AddBreak()
		}
		run.AddText(line)
	}
}

func addField(doc *document.Document, text string, align wml.ST_Jc, bold bool) {
	para := doc.AddParagraph()
	para.Properties().SetAlignment(align)

	run := para.AddRun()
	if bold {
		run.Properties().SetBold(true)
	}
	run.AddText(text)
}

// addDecorativeRule draws a full-width horizontal line as a single empty cell
// with only a bottom border. It carries no data.
func addDecorativeRule(doc *document.Document) {
	table := doc.AddTable()
	table.Properties().SetWidthPercent(100)
	table.Properties().SetAlignment(wml.ST_JcTableCenter)

	cell := table.AddRow().AddCell()
	cell.AddParagraph()
	cell.Properties().Borders().SetBottom(wml.ST_BorderSingle, color.Black, ruleThickness)
}

func addItemTable(doc *document.Document, items []models.LineItem) {
	table := doc.AddTable()
	table.Properties().SetWidthPercent(100)
	table.Properties().Borders().SetAll(wml.ST_BorderSingle, color.Black, gridThickness)

	header := table.AddRow()
	for _, column := range models.BillColumns {
		addCellText(header, column)
	}

	for _, item := range items {
		row := table.AddRow()
		for _, column := range models.BillColumns {
			addCellText(row, item.Value(column))
		}
	}
}

func addCellText(row document.Row, text string) {
	row.AddCell().AddParagraph().AddRun().AddText(text)
}

func addPaymentTerms(doc *document.Document) {
	addHeading(doc, PaymentTermsHeading, "Heading2", heading2FontSize)

	numbering := doc.Numbering.AddDefinition()
	level := numbering.AddLevel()
	level.SetFormat(wml.ST_NumberFormatDecimal)
	level.SetText("%1.")

	for _, term := range PaymentTerms {
		para := doc.AddParagraph()
		para.SetNumberingDefinition(numbering)
		para.SetNumberingLevel(0)
		para.AddRun().AddText(term)
	}
}
