package export

import (
	"bytes"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 277.0 // A4 landscape minus margins

// PDFExporter renders tables as a landscape A4 report.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render lays the table out with column widths proportional to their longest cell.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("generated %s - page %d", e.now().UTC().Format(time.RFC3339), pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	if table.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, table.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(table)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range table.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range table.Rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(table.Rows) == 0 {
		pdf.CellFormat(pageWidth, 8, "no rows", "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(table Table) []float64 {
	weights := make([]int, len(table.Headers))
	total := 0
	for i, header := range table.Headers {
		weights[i] = utf8.RuneCountInString(header)
		for _, row := range table.Rows {
			if n := utf8.RuneCountInString(row[i]); n > weights[i] {
				weights[i] = n
			}
		}
		if weights[i] < 4 {
			weights[i] = 4
		}
		total += weights[i]
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = pageWidth * float64(w) / float64(total)
	}
	return widths
}
