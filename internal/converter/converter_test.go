package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/telemetry"
	"github.com/razz0/ykj-wgs/internal/transform"
	"github.com/razz0/ykj-wgs/internal/types"
	"github.com/razz0/ykj-wgs/internal/validation"
	"github.com/razz0/ykj-wgs/internal/xmlwriter"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubTransformer returns fixed coordinates, or err once calls reach failAt.
type stubTransformer struct {
	point  types.TransformedPoint
	failAt int
	err    error
	calls  int
}

func (s *stubTransformer) Transform(_ context.Context, p types.InputPoint, _ int, _ time.Duration) (types.TransformedPoint, error) {
	s.calls++
	if s.failAt > 0 && s.calls >= s.failAt {
		return types.TransformedPoint{}, s.err
	}
	return s.point, nil
}

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Retry.Wait = 0
	return &cfg
}

func TestRun_SinglePointRoundTrip(t *testing.T) {
	input := writeInput(t, "P1,100,200,note1\n")
	var out bytes.Buffer

	res := New(input, testConfig(),
		WithTransformer(&stubTransformer{point: types.TransformedPoint{Lat: 60, Lon: 25}}),
		WithReportWriter(&out),
		WithLogger(quiet),
	).Run(context.Background())

	if !res.Success {
		t.Fatalf("Run: %v", res.Error)
	}
	if res.OutputFile != input+".gpx" {
		t.Fatalf("output = %q", res.OutputFile)
	}
	if !strings.HasPrefix(out.String(), "P1 - note1: lat 60.0, lon 25.0\n\n") {
		t.Fatalf("report:\n%s", out.String())
	}

	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	doc, err := xmlwriter.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Tracks) != 1 || doc.Tracks[0].Name != "P1" || doc.Tracks[0].Points[0] != (types.TransformedPoint{Lat: 60, Lon: 25}) {
		t.Fatalf("tracks = %+v", doc.Tracks)
	}
	if len(doc.Waypoints) != 1 || doc.Waypoints[0] != (types.Waypoint{Label: "P1 note1", Lat: 60, Lon: 25}) {
		t.Fatalf("waypoints = %+v", doc.Waypoints)
	}
	if res.KMLFile != "" || res.ErrorLog != "" {
		t.Fatalf("unexpected extra outputs: %+v", res)
	}
}

func TestRun_EmptyInputWritesEmptyDocument(t *testing.T) {
	input := writeInput(t, "")
	res := New(input, testConfig(),
		WithTransformer(&stubTransformer{}),
		WithReportWriter(io.Discard),
		WithLogger(quiet),
	).Run(context.Background())
	if !res.Success {
		t.Fatalf("Run: %v", res.Error)
	}

	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc, err := xmlwriter.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Tracks) != 0 || len(doc.Waypoints) != 0 {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestRun_TransformFailureWritesNothing(t *testing.T) {
	input := writeInput(t, "A,1,2,a\nA,3,4,b\nB,5,6,c\n")
	cause := &transform.RemoteServiceError{Endpoint: "http://x", Attempts: 1, Err: errors.New("boom")}
	stub := &stubTransformer{failAt: 3, err: cause}
	var out bytes.Buffer

	res := New(input, testConfig(),
		WithTransformer(stub),
		WithReportWriter(&out),
		WithLogger(quiet),
	).Run(context.Background())

	if res.Success {
		t.Fatal("expected failure")
	}
	var rse *transform.RemoteServiceError
	if !errors.As(res.Error, &rse) {
		t.Fatalf("error = %v, want *RemoteServiceError", res.Error)
	}
	if _, err := os.Stat(input + ".gpx"); !os.IsNotExist(err) {
		t.Fatalf("output written on failure: %v", err)
	}
	if strings.Count(out.String(), "\n\n") != 2 {
		t.Fatalf("report should hold the two completed rows:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Summary") {
		t.Fatal("summary written for a failed run")
	}
}

func TestRun_MalformedRowFailsFast(t *testing.T) {
	input := writeInput(t, "A,1,2,a\nB,x,2,b\n")
	stub := &stubTransformer{}
	res := New(input, testConfig(), WithTransformer(stub), WithReportWriter(io.Discard), WithLogger(quiet)).Run(context.Background())

	if !errors.Is(res.Error, validation.ErrMalformedRow) {
		t.Fatalf("error = %v, want ErrMalformedRow", res.Error)
	}
	if stub.calls != 1 {
		t.Fatalf("calls = %d", stub.calls)
	}
	if _, err := os.Stat(input + ".gpx"); !os.IsNotExist(err) {
		t.Fatal("output written on failure")
	}
}

func TestRun_SkipMalformedWritesErrorLog(t *testing.T) {
	input := writeInput(t, "A,1,2,a\nB,x,2,b\nC,1,2,c\n")
	cfg := testConfig()
	cfg.Input.SkipMalformed = true
	m := telemetry.New()

	res := New(input, cfg,
		WithTransformer(&stubTransformer{point: types.TransformedPoint{Lat: 1, Lon: 2}}),
		WithReportWriter(io.Discard),
		WithMetrics(m),
		WithLogger(quiet),
	).Run(context.Background())

	if !res.Success {
		t.Fatalf("Run: %v", res.Error)
	}
	if res.Stats.RowsProcessed != 2 || res.Stats.RowsSkipped != 1 || res.Stats.Tracks != 2 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	b, err := os.ReadFile(res.ErrorLog)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	if !strings.Contains(string(b), "row 2, field 'y'") {
		t.Fatalf("error log:\n%s", b)
	}
	if v := testutil.ToFloat64(m.Skipped); v != 1 {
		t.Fatalf("skipped metric = %v", v)
	}
	if v := testutil.ToFloat64(m.Rows); v != 2 {
		t.Fatalf("rows metric = %v", v)
	}
}

func TestRun_ErrorLogFailureWritesNothing(t *testing.T) {
	input := writeInput(t, "A,1,2,a\nB,x,2,b\n")
	if err := os.Mkdir(input+".errors.txt", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := testConfig()
	cfg.Input.SkipMalformed = true
	cfg.Output.KML = true

	res := New(input, cfg,
		WithTransformer(&stubTransformer{point: types.TransformedPoint{Lat: 1, Lon: 2}}),
		WithReportWriter(io.Discard),
		WithLogger(quiet),
	).Run(context.Background())

	if res.Success || res.Error == nil {
		t.Fatal("expected failure")
	}
	for _, path := range []string{input + ".gpx", input + ".kml"} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s written on failure: %v", path, err)
		}
	}
}

func TestRun_KMLAndNameFormat(t *testing.T) {
	input := writeInput(t, "A,1,2,a\n")
	cfg := testConfig()
	cfg.Output.KML = true
	cfg.Output.NameFormat = "{dir}/out/{base}.gpx"

	res := New(input, cfg,
		WithTransformer(&stubTransformer{point: types.TransformedPoint{Lat: 60, Lon: 25}}),
		WithReportWriter(io.Discard),
		WithLogger(quiet),
	).Run(context.Background())
	if !res.Success {
		t.Fatalf("Run: %v", res.Error)
	}

	wantGPX := filepath.Join(filepath.Dir(input), "out", "points.gpx")
	if res.OutputFile != wantGPX || res.KMLFile != filepath.Join(filepath.Dir(input), "out", "points.kml") {
		t.Fatalf("outputs = %q %q", res.OutputFile, res.KMLFile)
	}
	b, err := os.ReadFile(res.KMLFile)
	if err != nil {
		t.Fatalf("read kml: %v", err)
	}
	if !strings.Contains(string(b), "<Placemark>") {
		t.Fatalf("kml:\n%s", b)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	input := writeInput(t, "A,1,2,a\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(input, testConfig(), WithTransformer(&stubTransformer{}), WithReportWriter(io.Discard), WithLogger(quiet)).Run(ctx)
	if !errors.Is(res.Error, context.Canceled) {
		t.Fatalf("error = %v", res.Error)
	}
}

func TestRun_AgainstCoordinateService(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			http.Error(w, "warming up", http.StatusBadGateway)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		y, _ := strconv.ParseFloat(r.PostForm.Get("lat"), 64)
		x, _ := strconv.ParseFloat(r.PostForm.Get("lon"), 64)
		json.NewEncoder(w).Encode(map[string]float64{"lat": y / 100000, "lon": x / 100000})
	}))
	defer srv.Close()

	input := writeInput(t, "A,6690000,3385000,first\nA,6700000,3390000,second\nB,6710000,3400000,\n")
	cfg := testConfig()
	cfg.Service.Endpoint = srv.URL
	cfg.Retry.Count = 1
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "ykjwgs.prom")
	m := telemetry.New()
	var out bytes.Buffer

	res := New(input, cfg, WithReportWriter(&out), WithMetrics(m), WithLogger(quiet)).Run(context.Background())
	if !res.Success {
		t.Fatalf("Run: %v", res.Error)
	}
	if res.Stats.Retries != 1 || res.Stats.Tracks != 2 || res.Stats.Waypoints != 3 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	if !strings.Contains(out.String(), "A - first: lat 66.9, lon 33.85\n\n") {
		t.Fatalf("report:\n%s", out.String())
	}

	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc, err := xmlwriter.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Tracks[0].Points) != 2 || doc.Waypoints[2].Label != "B" {
		t.Fatalf("doc = %+v", doc)
	}
	if v := testutil.ToFloat64(m.Attempts.WithLabelValues(telemetry.OutcomeError)); v != 1 {
		t.Fatalf("error attempts = %v", v)
	}

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), "ykjwgs_rows_processed_total 3") {
		t.Fatalf("metrics textfile:\n%s", prom)
	}
}
