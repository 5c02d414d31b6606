package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Report"

// XLSXExporter renders tables as a single-sheet Excel workbook.
type XLSXExporter struct{}

// NewXLSXExporter builds an Excel exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the title (if any) on row 1, headers below it, then the rows.
func (e *XLSXExporter) Render(table Table) ([]byte, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	row := 1
	if table.Title != "" {
		if err := f.SetCellValue(xlsxSheet, "A1", table.Title); err != nil {
			return nil, err
		}
		last, _ := excelize.CoordinatesToCellName(len(table.Headers), 1)
		if len(table.Headers) > 1 {
			if err := f.MergeCell(xlsxSheet, "A1", last); err != nil {
				return nil, fmt.Errorf("merge title: %w", err)
			}
		}
		row++
	}

	for i, header := range table.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(xlsxSheet, cell, header); err != nil {
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(table.Headers), row)
	if err := f.SetCellStyle(xlsxSheet, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("style headers: %w", err)
	}

	for _, values := range table.Rows {
		row++
		for i, value := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	for i, width := range columnCharWidths(table) {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(xlsxSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func columnCharWidths(table Table) []float64 {
	widths := make([]float64, len(table.Headers))
	for i, header := range table.Headers {
		n := utf8.RuneCountInString(header)
		for _, row := range table.Rows {
			if l := utf8.RuneCountInString(row[i]); l > n {
				n = l
			}
		}
		widths[i] = float64(n + 2)
	}
	return widths
}
