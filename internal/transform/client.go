// =============================================================================
// ykj-wgs - Transform Client
// =============================================================================
//
// This module converts one YKJ grid point to ETRS89 latitude/longitude by
// calling the National Land Survey coordinate service.
//
// RETRY POLICY:
//   - At most retries+1 attempts per point
//   - A fixed wait between a failed attempt and the next one
//   - Every failure is retryable (transport, timeout, status, body)
//   - The last cause is returned inside a *RemoteServiceError
//
// The client is synchronous and keeps no state between points.
//
// =============================================================================

package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/logging"
	"github.com/razz0/ykj-wgs/internal/telemetry"
	"github.com/razz0/ykj-wgs/internal/types"
)

// maxErrorBody caps how much of an error response ends up in the error.
const maxErrorBody = 512

// Client talks to the coordinate service.
type Client struct {
	settings config.ServiceConfig
	http     *http.Client
	log      *slog.Logger
	metrics  *telemetry.Metrics
	retries  int

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger replaces the process logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records attempts and retries on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the configured service.
func New(settings config.ServiceConfig, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: settings.Timeout},
		log:      logging.L(),
		sleep:    sleepWithCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Retries returns the number of retries made so far.
func (c *Client) Retries() int {
	return c.retries
}

// =============================================================================
// TRANSFORM
// =============================================================================

// Transform converts p, retrying failed attempts.
//
// PARAMETERS:
//   - ctx: Cancels the current attempt and the wait between attempts.
//   - p: The point; Y is sent as "lat" and X as "lon".
//   - retries: Additional attempts after the first one (>= 0).
//   - wait: Delay between a failed attempt and the next one (>= 0).
//
// RETURNS:
//   - The transformed point from the first successful attempt.
//   - ErrInvalidArgument (wrapped) for negative retries or wait, before any
//     request is made.
//   - *RemoteServiceError when every attempt failed.
func (c *Client) Transform(ctx context.Context, p types.InputPoint, retries int, wait time.Duration) (types.TransformedPoint, error) {
	if retries < 0 {
		return types.TransformedPoint{}, fmt.Errorf("%w: retries must not be negative, got %d", ErrInvalidArgument, retries)
	}
	if wait < 0 {
		return types.TransformedPoint{}, fmt.Errorf("%w: wait must not be negative, got %s", ErrInvalidArgument, wait)
	}

	payload := c.payload(p)
	attempts := retries + 1

	var (
		lastErr error
		made    int
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		if attempt > 1 {
			c.retries++
			c.metrics.Retry()
		}
		c.log.Debug("requesting coordinate transform",
			"name", p.Name, "row", p.Row, "attempt", attempt, "of", attempts)

		tp, err := c.attempt(ctx, payload)
		if err == nil {
			c.metrics.Attempt(telemetry.OutcomeOK)
			return tp, nil
		}
		c.metrics.Attempt(telemetry.OutcomeError)
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(lastErr, ctxErr) {
				lastErr = errors.Join(lastErr, ctxErr)
			}
			break
		}
		if attempt == attempts {
			if retries > 0 {
				c.log.Warn("out of retries", "name", p.Name, "row", p.Row, "attempts", attempts, "error", err)
			}
			break
		}

		c.log.Warn("coordinate transform failed, retrying",
			"name", p.Name, "row", p.Row, "attempt", attempt, "wait", wait, "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	return types.TransformedPoint{}, &RemoteServiceError{
		Endpoint: c.settings.Endpoint,
		Payload:  payload,
		Attempts: made,
		Err:      lastErr,
	}
}

// payload builds the form body for p.
func (c *Client) payload(p types.InputPoint) url.Values {
	v := url.Values{}
	v.Set("action_route", c.settings.ActionRoute)
	v.Set("targetSRS", c.settings.TargetSRS)
	v.Set("srs", c.settings.SourceSRS)
	v.Set("lat", strconv.FormatFloat(p.Y, 'f', -1, 64))
	v.Set("lon", strconv.FormatFloat(p.X, 'f', -1, 64))
	return v
}

// attempt performs one request.
func (c *Client) attempt(ctx context.Context, payload url.Values) (types.TransformedPoint, error) {
	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.Endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return types.TransformedPoint{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.TransformedPoint{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return types.TransformedPoint{}, &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return decodeResponse(resp.Body)
}

// =============================================================================
// RESPONSE DECODING
// =============================================================================

type response struct {
	Lat json.RawMessage `json:"lat"`
	Lon json.RawMessage `json:"lon"`
}

// decodeResponse reads lat and lon from the service's JSON body.
func decodeResponse(r io.Reader) (types.TransformedPoint, error) {
	var body response
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return types.TransformedPoint{}, fmt.Errorf("failed to decode response: %w", err)
	}

	lat, err := coordinate(body.Lat, "lat")
	if err != nil {
		return types.TransformedPoint{}, err
	}
	lon, err := coordinate(body.Lon, "lon")
	if err != nil {
		return types.TransformedPoint{}, err
	}
	return types.TransformedPoint{Lat: lat, Lon: lon}, nil
}

// coordinate accepts a JSON number or a string holding one.
func coordinate(raw json.RawMessage, field string) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("response has no %q", field)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("response field %q is not a number: %s", field, raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("response field %q is not a number: %q", field, s)
	}
	return f, nil
}

// sleepWithCtx waits for d or until ctx is done.
func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRemote reports whether err came from an exhausted retry loop.
func IsRemote(err error) bool {
	var rse *RemoteServiceError
	return errors.As(err, &rse)
}
