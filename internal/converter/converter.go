// =============================================================================
// ykj-wgs - Converter Module
// =============================================================================
//
// This module runs one conversion from an input file to the GPX document.
//
// CONVERSION PIPELINE:
//   1. Open the input (CSV or XLSX) and validate each row
//   2. Transform each point through the coordinate service
//   3. Write the report line for the point
//   4. Feed the point into the track grouper
//   5. At end of input, render the document as GPX (and KML)
//   6. Write the output file(s) atomically
//
// A run either completes for every row or aborts with no output file
// written. Rows are processed one at a time, in file order.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/kmlwriter"
	"github.com/razz0/ykj-wgs/internal/logging"
	"github.com/razz0/ykj-wgs/internal/report"
	"github.com/razz0/ykj-wgs/internal/source"
	"github.com/razz0/ykj-wgs/internal/telemetry"
	"github.com/razz0/ykj-wgs/internal/track"
	"github.com/razz0/ykj-wgs/internal/transform"
	"github.com/razz0/ykj-wgs/internal/types"
	"github.com/razz0/ykj-wgs/internal/validation"
	"github.com/razz0/ykj-wgs/internal/xmlwriter"
	"github.com/razz0/ykj-wgs/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	// RunID identifies the run in the logs.
	RunID string

	// FilePath is the input file.
	FilePath string

	// OutputFile is the GPX file. Empty if the run failed.
	OutputFile string

	// KMLFile is the KML file, when enabled. Empty if the run failed.
	KMLFile string

	// ErrorLog lists skipped rows. Empty when nothing was skipped.
	ErrorLog string

	// Success indicates whether the run completed.
	Success bool

	// Error is the cause of a failed run.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	RowsProcessed  int
	RowsSkipped    int
	Tracks         int
	Waypoints      int
	Retries        int
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Transformer converts one input point. *transform.Client implements it.
type Transformer interface {
	Transform(ctx context.Context, p types.InputPoint, retries int, wait time.Duration) (types.TransformedPoint, error)
}

// retryCounter is implemented by transformers that count their retries.
type retryCounter interface {
	Retries() int
}

// Converter handles the conversion of a single input file.
type Converter struct {
	inputPath   string
	cfg         *config.Config
	transformer Transformer
	out         io.Writer
	metrics     *telemetry.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes a Converter.
type Option func(*Converter)

// WithTransformer replaces the coordinate service client.
func WithTransformer(t Transformer) Option {
	return func(c *Converter) { c.transformer = t }
}

// WithReportWriter sets where the progress report goes. Default stdout.
func WithReportWriter(w io.Writer) Option {
	return func(c *Converter) { c.out = w }
}

// WithMetrics records the run on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithLogger replaces the process logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter for inputPath.
//
// PARAMETERS:
//   - inputPath: The CSV or XLSX file to convert.
//   - cfg: The application configuration.
//   - opts: Optional overrides; without WithTransformer a transform.Client
//     for cfg.Service is used.
func New(inputPath string, cfg *config.Config, opts ...Option) *Converter {
	c := &Converter{
		inputPath: inputPath,
		cfg:       cfg,
		out:       os.Stdout,
		logger:    logging.L(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transformer == nil {
		c.transformer = transform.New(cfg.Service,
			transform.WithLogger(c.logger),
			transform.WithMetrics(c.metrics))
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion.
func (c *Converter) Run(ctx context.Context) Result {
	start := c.now()
	result := Result{
		RunID:    uuid.New().String(),
		FilePath: c.inputPath,
	}
	logger := c.logger.With("run_id", result.RunID)
	defer c.writeMetrics(logger)

	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = c.now().Sub(start)
		result.Stats.Retries = c.retries()
		logger.Error("conversion failed", "input", c.inputPath, "error", err)
		return result
	}

	logger.Info("processing file", "input", c.inputPath,
		"endpoint", c.cfg.Service.Endpoint, "retries", c.cfg.Retry.Count, "wait", c.cfg.Retry.Wait)

	// =========================================================================
	// STEP 1: OPEN INPUT
	// =========================================================================

	src, err := source.Open(c.inputPath, c.cfg.Input)
	if err != nil {
		return fail(fmt.Errorf("failed to open input: %w", err))
	}
	defer src.Close()

	// =========================================================================
	// STEP 2-4: TRANSFORM, REPORT, GROUP
	// =========================================================================

	rep := report.New(c.out)
	grouper := track.New()

	for src.Next() {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("conversion aborted: %w", err))
		}

		p := src.Point()
		tp, err := c.transformer.Transform(ctx, p, c.cfg.Retry.Count, c.cfg.Retry.Wait)
		if err != nil {
			return fail(fmt.Errorf("failed to transform %q (row %d): %w", p.Name, p.Row, err))
		}

		rep.Point(p, tp)
		if err := rep.Err(); err != nil {
			return fail(err)
		}

		grouper.Add(p, tp)
		c.metrics.Row()
		logger.Debug("converted point", "name", p.Name, "row", p.Row, "lat", tp.Lat, "lon", tp.Lon)
	}
	if err := src.Err(); err != nil {
		return fail(fmt.Errorf("failed to read input: %w", err))
	}

	skipped := src.Skipped()
	for range skipped {
		c.metrics.Skip()
	}

	// =========================================================================
	// STEP 5-6: ERROR LOG, RENDER AND WRITE OUTPUT
	// =========================================================================

	if len(skipped) > 0 {
		errorLog := utils.ErrorLogPath(c.inputPath)
		if err := validation.WriteErrorLog(skipped, c.inputPath, errorLog); err != nil {
			return fail(err)
		}
		result.ErrorLog = errorLog
		logger.Warn("skipped malformed rows", "count", len(skipped), "error_log", errorLog)
	}

	doc := grouper.Document()
	outputs, err := c.writeOutputs(doc)
	if err != nil {
		if result.ErrorLog != "" {
			os.Remove(result.ErrorLog)
			result.ErrorLog = ""
		}
		return fail(err)
	}
	result.OutputFile = outputs[0]
	if len(outputs) > 1 {
		result.KMLFile = outputs[1]
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	result.Stats = ProcessingStats{
		RowsProcessed:  grouper.Len(),
		RowsSkipped:    len(skipped),
		Tracks:         len(doc.Tracks),
		Waypoints:      len(doc.Waypoints),
		Retries:        c.retries(),
		ProcessingTime: c.now().Sub(start),
	}
	c.metrics.Document(len(doc.Tracks), len(doc.Waypoints))

	rep.Summary(report.Summary{
		Input:     c.inputPath,
		Outputs:   outputs,
		ErrorLog:  result.ErrorLog,
		Rows:      result.Stats.RowsProcessed,
		Skipped:   result.Stats.RowsSkipped,
		Tracks:    result.Stats.Tracks,
		Waypoints: result.Stats.Waypoints,
		Retries:   result.Stats.Retries,
		Elapsed:   result.Stats.ProcessingTime,
	})

	logger.Info("wrote output", "output", result.OutputFile,
		"rows", result.Stats.RowsProcessed, "tracks", result.Stats.Tracks, "elapsed", result.Stats.ProcessingTime)
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeOutputs renders doc and writes the GPX file, followed by the KML file
// when enabled. Both documents are rendered before anything is written.
func (c *Converter) writeOutputs(doc types.Document) ([]string, error) {
	gpx, err := xmlwriter.GenerateWithOptions(doc, xmlwriter.GenerateOptions{
		Indent:                c.cfg.Output.Indent,
		Creator:               c.cfg.Output.Creator,
		IncludeXMLDeclaration: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate GPX: %w", err)
	}

	gpxPath := utils.GenerateOutputFileName(c.cfg.Output.NameFormat, c.inputPath, c.now())
	files := []struct {
		path string
		data []byte
	}{{gpxPath, gpx}}

	if c.cfg.Output.KML {
		kml, err := kmlwriter.Generate(filepath.Base(c.inputPath), doc)
		if err != nil {
			return nil, err
		}
		files = append(files, struct {
			path string
			data []byte
		}{utils.SiblingPath(gpxPath, ".kml"), kml})
	}

	var written []string
	for _, f := range files {
		if err := utils.EnsureDir(f.path); err != nil {
			return nil, err
		}
		if err := utils.WriteFileAtomic(f.path, f.data, 0o644); err != nil {
			for _, path := range written {
				os.Remove(path)
			}
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
		written = append(written, f.path)
	}
	return written, nil
}

// writeMetrics exports the metrics textfile, if configured. A failed export
// does not fail the run.
func (c *Converter) writeMetrics(logger *slog.Logger) {
	if err := c.metrics.WriteTextfile(c.cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics export failed", "path", c.cfg.Metrics.Textfile, "error", err)
	}
}

func (c *Converter) retries() int {
	if rc, ok := c.transformer.(retryCounter); ok {
		return rc.Retries()
	}
	return 0
}
