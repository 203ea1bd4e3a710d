// =============================================================================
// ykj-wgs - Point Source
// =============================================================================
//
// This module picks the row reader for an input file by its extension and
// turns every record into a validated InputPoint:
//   .xlsx        -> internal/xlsxparser
//   anything else -> internal/csvparser
//
// Malformed rows either stop the iteration (fail fast, the default) or are
// collected in Skipped() when skip_malformed is set.
//
// =============================================================================

package source

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/csvparser"
	"github.com/razz0/ykj-wgs/internal/logging"
	"github.com/razz0/ykj-wgs/internal/types"
	"github.com/razz0/ykj-wgs/internal/validation"
	"github.com/razz0/ykj-wgs/internal/xlsxparser"
)

// RecordReader is the shape shared by the CSV and XLSX parsers.
type RecordReader interface {
	Next() bool
	Record() []string
	RowNumber() int
	Err() error
	Close() error
}

// Source yields InputPoints in file order.
type Source struct {
	reader        RecordReader
	skipMalformed bool
	current       types.InputPoint
	skipped       []*validation.ValidationError
	err           error
}

// Open opens path with the reader matching its extension.
func Open(path string, settings config.InputConfig) (*Source, error) {
	var (
		reader RecordReader
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		reader, err = xlsxparser.NewStreamingParser(path, settings)
	default:
		reader, err = csvparser.NewStreamingParser(path, settings)
	}
	if err != nil {
		return nil, err
	}
	return New(reader, settings.SkipMalformed), nil
}

// New wraps an already opened reader.
func New(reader RecordReader, skipMalformed bool) *Source {
	return &Source{reader: reader, skipMalformed: skipMalformed}
}

// Next advances to the next valid point.
func (s *Source) Next() bool {
	for s.err == nil && s.reader.Next() {
		p, err := validation.ParseRecord(s.reader.Record(), s.reader.RowNumber())
		if err == nil {
			s.current = p
			return true
		}

		var ve *validation.ValidationError
		if s.skipMalformed && errors.As(err, &ve) {
			logging.L().Warn("skipping malformed row", "row", ve.RowNumber, "field", ve.Field, "reason", ve.Message)
			s.skipped = append(s.skipped, ve)
			continue
		}
		s.err = err
		return false
	}
	if s.err == nil {
		s.err = s.reader.Err()
	}
	return false
}

// Point returns the current point.
func (s *Source) Point() types.InputPoint {
	return s.current
}

// Skipped returns the rows skipped so far.
func (s *Source) Skipped() []*validation.ValidationError {
	return s.skipped
}

// Err returns the error that stopped the iteration, if any.
func (s *Source) Err() error {
	return s.err
}

// Close closes the underlying reader.
func (s *Source) Close() error {
	return s.reader.Close()
}
