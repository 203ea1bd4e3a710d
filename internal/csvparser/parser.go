// =============================================================================
// ykj-wgs - CSV Parser Module
// =============================================================================
//
// This module reads delimited point files one record at a time. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Optional leading header rows to skip
//   - Blank lines (skipped)
//   - Rows with a variable number of fields (validated downstream)
//
// The parser does not interpret the fields; see internal/validation.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/razz0/ykj-wgs/internal/config"
)

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser yields the records of a CSV file one at a time.
//
// USAGE:
//   parser, err := NewStreamingParser(filePath, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       record := parser.Record()
//       // Process the record...
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	closer    io.Closer
	reader    *csv.Reader
	current   []string
	rowNumber int
	err       error
	settings  config.InputConfig
}

// NewStreamingParser opens filePath and skips the configured header rows.
func NewStreamingParser(filePath string, settings config.InputConfig) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewReader(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	parser.closer = file
	return parser, nil
}

// NewReader parses records from r. Close on the result does not close r.
func NewReader(r io.Reader, settings config.InputConfig) (*StreamingParser, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	configureReader(reader, settings)

	parser := &StreamingParser{
		reader:   reader,
		settings: settings,
	}

	if err := parser.skipHeaders(); err != nil {
		return nil, err
	}
	return parser, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.InputConfig) {
	reader.Comma = Delimiter(settings.Delimiter)

	// Column count is checked per row by the validator so the error can
	// name the row.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// Delimiter maps a configured delimiter to the separator rune.
func Delimiter(s string) rune {
	switch s {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "":
		return ','
	default:
		return []rune(s)[0]
	}
}

// skipHeaders discards the configured number of header rows.
func (p *StreamingParser) skipHeaders() error {
	for i := 0; i < p.settings.HeaderRows; i++ {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil // Header only, no data rows
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		p.rowNumber, _ = p.reader.FieldPos(0)
	}
	return nil
}

// Next advances to the next non-blank record. It returns false at the end
// of the file or on error.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		record, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}

		// encoding/csv drops blank lines, so take the physical line.
		p.rowNumber, _ = p.reader.FieldPos(0)

		if isRowEmpty(record) {
			continue
		}

		p.current = record
		return true
	}
	return false
}

// Record returns the current record.
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

// Close closes the underlying file, if the parser opened one.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
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
