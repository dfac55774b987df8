package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jwulff/glucoscape/internal/config"
	"github.com/jwulff/glucoscape/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newNightscout serves a status, two readings taken an hour ago and one reading without a date.
func newNightscout(t *testing.T) *httptest.Server {
	t.Helper()
	reading := time.Now().Add(-time.Hour).UnixMilli()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/status.json":
			_, _ = w.Write([]byte(`{"settings":{"customTitle":"Test NS","units":"mg/dl","thresholds":{"bgTargetBottom":70,"bgTargetTop":180}}}`))
		case "/api/v1/entries/sgv.json":
			fmt.Fprintf(w, `[{"date":%d,"sgv":60},{"date":%d,"sgv":120},{"sgv":100}]`, reading, reading+60_000)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func noEnv(string) string { return "" }

func runCommand(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, noEnv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	code, _, stderr := runCommand()
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: glucoscape")

	code, _, _ = runCommand("nope")
	assert.Equal(t, 2, code)
}

func TestInvalidConfigFailsFast(t *testing.T) {
	code, _, stderr := runCommand("summary", "-url", "http://127.0.0.1:1", "-interval", "7000")

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "interval must evenly divide one day")
}

func TestSummaryCommand(t *testing.T) {
	ns := newNightscout(t)

	code, stdout, stderr := runCommand("summary", "-url", ns.URL)

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Test NS  target 70–180 mg/dl")
	assert.Contains(t, stdout, "2 readings over 1 days (1 malformed skipped)")
	assert.Contains(t, stdout, "Latest 120 mg/dl at ")
	assert.Contains(t, stdout, "(stale)")
	assert.Contains(t, stdout, "Low 50% / on target 50% / high 0%")
	assert.Contains(t, stderr, "skipped malformed readings")
}

func TestHTMLCommand(t *testing.T) {
	ns := newNightscout(t)

	code, stdout, stderr := runCommand("html", "-url", ns.URL)
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "<!DOCTYPE html>"))

	path := filepath.Join(t.TempDir(), "heatmap.html")
	code, stdout, stderr = runCommand("html", "-url", ns.URL, path)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.FileExists(t, path)
}

func TestTermCommand(t *testing.T) {
	ns := newNightscout(t)

	code, stdout, stderr := runCommand("term", "-url", ns.URL)

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "all days")
}

func TestUnauthorizedMessage(t *testing.T) {
	ns := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ns.Close()

	code, _, stderr := runCommand("summary", "-url", ns.URL)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, ns.URL+" rejected the access token")
}

func TestArchiveRoundTrip(t *testing.T) {
	ns := newNightscout(t)
	path := filepath.Join(t.TempDir(), "glucose.db")

	code, stdout, stderr := runCommand("archive", "-url", ns.URL, path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Archived 2 readings")
	assert.Contains(t, stderr, "skipped=1")

	// Read back offline; the Nightscout server is no longer needed.
	ns.Close()
	code, stdout, stderr = runCommand("summary", "-archive", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Test NS  target 70–180 mg/dl")
	assert.Contains(t, stdout, "Low 50% / on target 50% / high 0%")
}

func TestArchiveKeepsWholeFirstDate(t *testing.T) {
	from := time.Now().AddDate(0, 0, -14).UTC()
	early := time.Date(from.Year(), from.Month(), from.Day(), 0, 1, 0, 0, time.UTC).UnixMilli()
	recent := time.Now().Add(-time.Hour).UnixMilli()
	ns := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/status.json":
			_, _ = w.Write([]byte(`{"settings":{"customTitle":"Test NS","units":"mg/dl"}}`))
		default:
			fmt.Fprintf(w, `[{"date":%d,"sgv":120},{"date":%d,"sgv":60}]`, early, recent)
		}
	}))
	path := filepath.Join(t.TempDir(), "glucose.db")

	code, stdout, stderr := runCommand("archive", "-url", ns.URL, path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Archived 2 readings")
	assert.Contains(t, stderr, "pruned=0")
	assert.Contains(t, stderr, "total=2")

	ns.Close()
	code, stdout, stderr = runCommand("summary", "-archive", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "2 readings over 2 days")
}

func TestMissingArchive(t *testing.T) {
	code, _, stderr := runCommand("summary", "-archive", filepath.Join(t.TempDir(), "missing.db"))

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "opening archive")
}

func TestPublishRequiresBroker(t *testing.T) {
	ns := newNightscout(t)

	code, _, stderr := runCommand("publish", "-url", ns.URL)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "MQTT broker required")
}

func TestPublishSummary(t *testing.T) {
	ns := newNightscout(t)
	cfg, _, err := config.Parse("publish", []string{"-url", ns.URL}, noEnv, io.Discard)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := newPipeline(cfg, newNightscoutClient(cfg, logger), logger)
	result, err := p.Run(t.Context())
	require.NoError(t, err)

	fake := publish.NewFakePublisher()
	require.NoError(t, publishSummary(fake, result, env{cfg: cfg, logger: logger}))

	require.Len(t, fake.Summaries, 1)
	assert.Equal(t, 2, fake.Summaries[0].Samples)
	assert.Contains(t, string(fake.Payloads[0]), `"on_target":50`)
}
