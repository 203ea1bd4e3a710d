// =============================================================================
// ykj-wgs - Row Validation
// =============================================================================
//
// This module turns raw input records into InputPoints. A record is valid
// when it has at least four fields in the order name, y, x, note:
//   - name must not be empty
//   - y and x must be finite decimal numbers
//   - note may be empty
// Fields after the fourth are ignored.
//
// ERROR HANDLING:
//   - A malformed record yields a *ValidationError that matches
//     ErrMalformedRow with errors.Is
//   - Each error carries the row number, field and offending value
//   - Whether the run stops or skips the row is decided by the caller
//
// =============================================================================

package validation

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/razz0/ykj-wgs/internal/types"
)

// MinFields is the number of columns a data row must have.
const MinFields = 4

// ErrMalformedRow is matched by every *ValidationError.
var ErrMalformedRow = errors.New("malformed input row")

// =============================================================================
// VALIDATION ERROR TYPE
// =============================================================================

// ValidationError describes why one input row was rejected.
type ValidationError struct {
	// RowNumber is the 1-based row in the source file.
	RowNumber int

	// Field is the column that failed ("record" when the column count is wrong).
	Field string

	// Value is the offending raw value.
	Value string

	// Message is a human-readable reason.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d, field '%s': %s", e.RowNumber, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d, field '%s': %s (value: '%s')", e.RowNumber, e.Field, e.Message, e.Value)
}

// Is reports whether target is ErrMalformedRow.
func (e *ValidationError) Is(target error) bool {
	return target == ErrMalformedRow
}

// =============================================================================
// RECORD VALIDATION
// =============================================================================

// ParseRecord validates a raw record and converts it to an InputPoint.
//
// PARAMETERS:
//   - record: The fields of one row, in file order.
//   - rowNumber: The 1-based row number, used in errors and kept on the point.
//
// RETURNS:
//   - The InputPoint (column 2 -> Y, column 3 -> X).
//   - A *ValidationError if the record is malformed.
func ParseRecord(record []string, rowNumber int) (types.InputPoint, error) {
	if len(record) < MinFields {
		return types.InputPoint{}, &ValidationError{
			RowNumber: rowNumber,
			Field:     "record",
			Value:     strings.Join(record, ","),
			Message:   fmt.Sprintf("expected at least %d fields, got %d", MinFields, len(record)),
		}
	}

	name := strings.TrimSpace(record[0])
	if name == "" {
		return types.InputPoint{}, &ValidationError{
			RowNumber: rowNumber,
			Field:     "name",
			Message:   "name is empty",
		}
	}

	y, err := parseCoordinate(record[1], "y", rowNumber)
	if err != nil {
		return types.InputPoint{}, err
	}
	x, err := parseCoordinate(record[2], "x", rowNumber)
	if err != nil {
		return types.InputPoint{}, err
	}

	return types.InputPoint{
		Name: name,
		Y:    y,
		X:    x,
		Note: strings.TrimSpace(record[3]),
		Row:  rowNumber,
	}, nil
}

// parseCoordinate parses one grid coordinate.
func parseCoordinate(raw, field string, rowNumber int) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, &ValidationError{RowNumber: rowNumber, Field: field, Message: "coordinate is empty"}
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ValidationError{RowNumber: rowNumber, Field: field, Value: raw, Message: "not a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{RowNumber: rowNumber, Field: field, Value: raw, Message: "not a finite number"}
	}
	return f, nil
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Skipped %d malformed row(s):\n\n", len(errs)))
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// WriteErrorLog writes the skipped rows to filePath. Nothing is written when
// errs is empty.
func WriteErrorLog(errs []*ValidationError, sourceFile, filePath string) error {
	if len(errs) == 0 {
		return nil
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "ykj-wgs - Error Log\nSource: %s\nGenerated: %s\n", sourceFile, time.Now().Format("2006-01-02 15:04:05"))
	writer.WriteString("================================================================================\n")
	writer.WriteString(FormatErrors(errs))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush error log: %w", err)
	}
	return file.Close()
}
