// Package nightscout reads display settings and glucose entries from a Nightscout site.
package nightscout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/source"
)

// Nightscout API v1 endpoints.
const (
	StatusPath  = "/api/v1/status.json"
	EntriesPath = "/api/v1/entries/sgv.json"
)

// ErrUnauthorized is returned when the site rejects the token.
var ErrUnauthorized = errors.New("nightscout rejected the authentication token")

// StatusError is returned for any other non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for a Nightscout site. The token is passed through
// as a query parameter and never inspected.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Attempts is the number of tries per request. 1 disables retries.
	Attempts   uint
	RetryDelay time.Duration
}

// NewClient creates a new Nightscout API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Logger:     slog.Default(),
		Attempts:   1,
		RetryDelay: time.Second,
	}
}

// Status is the subset of status.json we use.
type Status struct {
	Settings struct {
		Units       string `json:"units"`
		CustomTitle string `json:"customTitle"`
		Thresholds  struct {
			BgTargetBottom float64 `json:"bgTargetBottom"`
			BgTargetTop    float64 `json:"bgTargetTop"`
		} `json:"thresholds"`
	} `json:"settings"`
}

// Entry is a sensor glucose value from entries/sgv.json.
// Date and SGV are pointers so that missing fields can be told apart from zero.
// Some uploaders write date as a float, so it is decoded as one.
type Entry struct {
	Date       *float64 `json:"date"`
	DateString string   `json:"dateString"`
	SGV        *float64 `json:"sgv"`
	Trend      int      `json:"trend"`
	Direction  string   `json:"direction"`
}

// Sample converts the entry. Missing fields produce a zero timestamp or a NaN
// value, which aggregation rejects as malformed.
func (e Entry) Sample() bloodsugar.Sample {
	s := bloodsugar.Sample{
		Value:     math.NaN(),
		Direction: e.Direction,
		Trend:     e.Trend,
	}
	if e.SGV != nil {
		s.Value = *e.SGV
	}
	switch {
	case e.Date != nil && *e.Date > 0 && !math.IsInf(*e.Date, 0):
		s.Timestamp = time.UnixMilli(int64(*e.Date))
	case e.DateString != "":
		if t, err := time.Parse(time.RFC3339, e.DateString); err == nil {
			s.Timestamp = t
		}
	}
	return s
}

// FetchStatus downloads status.json.
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.getJSON(ctx, StatusPath, nil, &status); err != nil {
		return nil, fmt.Errorf("fetching status: %w", err)
	}
	return &status, nil
}

// FetchSettings downloads the site settings and picks the parts the heatmap needs.
func (c *Client) FetchSettings(ctx context.Context) (bloodsugar.Settings, error) {
	status, err := c.FetchStatus(ctx)
	if err != nil {
		return bloodsugar.Settings{}, err
	}

	thresholds := status.Settings.Thresholds
	target, targetUnit := bloodsugar.NewTargetRange(thresholds.BgTargetBottom, thresholds.BgTargetTop)

	return bloodsugar.Settings{
		Title:       status.Settings.CustomTitle,
		URL:         c.BaseURL,
		DisplayUnit: bloodsugar.ParseUnit(status.Settings.Units),
		TargetRange: target,
		TargetUnit:  targetUnit,
	}, nil
}

// FetchEntries downloads all sensor glucose entries whose date falls between
// the calendar dates of from and to (inclusive, UTC). An entry that does not
// decode is kept as an empty Entry, which converts to a malformed sample.
func (c *Client) FetchEntries(ctx context.Context, from, to time.Time) ([]Entry, error) {
	query := url.Values{}
	query.Set("count", "0")
	query.Set("find[dateString][$gte]", DateParam(from))
	query.Set("find[dateString][$lte]", DateParam(to))

	var raw []json.RawMessage
	if err := c.getJSON(ctx, EntriesPath, query, &raw); err != nil {
		return nil, fmt.Errorf("fetching entries: %w", err)
	}

	entries := make([]Entry, len(raw))
	for i, msg := range raw {
		if err := json.Unmarshal(msg, &entries[i]); err != nil {
			c.Logger.Debug("undecodable nightscout entry", "index", i, "error", err)
			entries[i] = Entry{}
		}
	}
	return entries, nil
}

// DateWindow widens w to the whole UTC dates FetchEntries asks for, from the
// start of the first date to the last millisecond of the last one.
func DateWindow(w source.Window) source.Window {
	from := w.From.UTC()
	to := w.To.UTC()
	return source.Window{
		From: time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC),
		To:   time.Date(to.Year(), to.Month(), to.Day()+1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond),
	}
}

// FetchSamples downloads entries and converts them to samples.
func (c *Client) FetchSamples(ctx context.Context, from, to time.Time) ([]bloodsugar.Sample, error) {
	c.Logger.Debug("fetching glucose data", "from", DateParam(from), "to", DateParam(to))

	entries, err := c.FetchEntries(ctx, from, to)
	if err != nil {
		return nil, err
	}

	samples := make([]bloodsugar.Sample, len(entries))
	for i, e := range entries {
		samples[i] = e.Sample()
	}
	return samples, nil
}

// DateParam formats t as the YYYY-MM-DD date Nightscout compares dateString against.
func DateParam(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return err
	}

	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var body []byte
	err = retry.Do(
		func() error {
			var doErr error
			body, doErr = c.get(ctx, endpoint)
			return doErr
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.RetryDelay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.Logger.Debug("retrying nightscout request", "attempt", n+1, "path", path, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid nightscout address %q: %w", c.BaseURL, err)
	}
	if query == nil {
		query = url.Values{}
	}
	if c.Token != "" {
		query.Set("token", c.Token)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", c.redact(err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Debug("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: excerpt(body)}
	}
	return body, nil
}

// redact removes the token from the URL that net/http puts into transport errors.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if c.Token != "" && errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(c.Token), "REDACTED")
	}
	return err
}

// isRetryable allows retries for network errors, rate limiting and server errors.
func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func excerpt(body []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
