package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	pageMargin   = 10.0
	headerHeight = 8.0
	rowHeight    = 7.0
	cellPadding  = 4.0
)

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body. Column
// widths follow the widest cell of each column and the header row is repeated
// on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin+5, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(pdf, data)
	writeHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], headerHeight, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	writeHeader()

	for _, row := range data.Rows {
		if pdf.GetY()+rowHeight > pageHeight-pageMargin {
			pdf.AddPage()
			writeHeader()
		}
		for i, value := range align(row, len(data.Headers)) {
			pdf.CellFormat(widths[i], rowHeight, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths sizes columns to their content and scales them down to the
// printable width when the table would overflow.
func columnWidths(pdf *gofpdf.Fpdf, data Dataset) []float64 {
	widths := make([]float64, len(data.Headers))
	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		widths[i] = pdf.GetStringWidth(header) + cellPadding
	}
	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			widths[i] = max(widths[i], pdf.GetStringWidth(row[i])+cellPadding)
		}
	}

	total := 0.0
	for _, w := range widths {
		total += w
	}
	available := pageWidth - 2*pageMargin
	if total > available {
		scale := available / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}
