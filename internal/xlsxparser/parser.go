// =============================================================================
// ykj-wgs - XLSX Parser Module
// =============================================================================
//
// This module reads point rows from an XLSX workbook, one row at a time, with
// the same column layout as the CSV files (name, y, x, note). It exposes the
// same Next/Record/RowNumber/Err/Close shape as csvparser.StreamingParser.
//
// SHEET SELECTION:
//   The configured sheet is read; when none is configured the first sheet
//   of the workbook is used.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/validation"
	"github.com/xuri/excelize/v2"
)

// StreamingParser yields the rows of one worksheet.
type StreamingParser struct {
	file      *excelize.File
	rows      *excelize.Rows
	sheet     string
	current   []string
	rowNumber int
	err       error
}

// NewStreamingParser opens the workbook and skips the configured header rows.
func NewStreamingParser(filePath string, settings config.InputConfig) (*StreamingParser, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheetName, err)
	}

	p := &StreamingParser{file: f, rows: rows, sheet: sheetName}
	for i := 0; i < settings.HeaderRows && p.rows.Next(); i++ {
		p.rowNumber++
	}
	return p, nil
}

// Next advances to the next non-blank row.
func (p *StreamingParser) Next() bool {
	for p.err == nil && p.rows.Next() {
		p.rowNumber++

		columns, err := p.rows.Columns()
		if err != nil {
			p.err = fmt.Errorf("error reading row %d of sheet '%s': %w", p.rowNumber, p.sheet, err)
			return false
		}
		if isRowEmpty(columns) {
			continue
		}

		// Columns() drops trailing empty cells, so an empty note would be
		// reported as a missing column.
		for len(columns) < validation.MinFields {
			columns = append(columns, "")
		}

		p.current = columns
		return true
	}
	if p.err == nil {
		if err := p.rows.Error(); err != nil {
			p.err = fmt.Errorf("error reading sheet '%s': %w", p.sheet, err)
		}
	}
	return false
}

// Record returns the current row's cell values.
func (p *StreamingParser) Record() []string {
	return p.current
}

// RowNumber returns the current row number (1-indexed).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close releases the row iterator and the workbook.
func (p *StreamingParser) Close() error {
	rowsErr := p.rows.Close()
	if err := p.file.Close(); err != nil {
		return err
	}
	return rowsErr
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
