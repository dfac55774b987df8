package nightscout

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server) *Client {
	c := NewClient(server.URL+"/", "secret-token")
	c.RetryDelay = time.Millisecond
	return c
}

func TestFetchSettings(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantTitle  string
		wantUnit   bloodsugar.Unit
		wantTarget bloodsugar.TargetRange
		wantTUnit  bloodsugar.Unit
	}{
		{
			name:       "mgdl site",
			body:       `{"settings":{"customTitle":"My NS","units":"mg/dl","thresholds":{"bgTargetBottom":80,"bgTargetTop":160}}}`,
			wantTitle:  "My NS",
			wantUnit:   bloodsugar.UnitMgdl,
			wantTarget: bloodsugar.TargetRange{Low: 80, High: 160},
			wantTUnit:  bloodsugar.UnitMgdl,
		},
		{
			name:       "mmol site with mmol thresholds",
			body:       `{"settings":{"customTitle":"NS","units":"mmol","thresholds":{"bgTargetBottom":4,"bgTargetTop":10}}}`,
			wantTitle:  "NS",
			wantUnit:   bloodsugar.UnitMmol,
			wantTarget: bloodsugar.TargetRange{Low: 4 * bloodsugar.MmolToMgdl, High: 10 * bloodsugar.MmolToMgdl},
			wantTUnit:  bloodsugar.UnitMmol,
		},
		{
			name:       "missing thresholds",
			body:       `{"settings":{"units":"mg/dl"}}`,
			wantUnit:   bloodsugar.UnitMgdl,
			wantTarget: bloodsugar.DefaultTargetRange,
			wantTUnit:  bloodsugar.UnitMgdl,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, StatusPath, r.URL.Path)
				assert.Equal(t, "secret-token", r.URL.Query().Get("token"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			settings, err := newTestClient(server).FetchSettings(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, settings.Title)
			assert.Equal(t, server.URL, settings.URL)
			assert.Equal(t, tt.wantUnit, settings.DisplayUnit)
			assert.InDelta(t, tt.wantTarget.Low, settings.TargetRange.Low, 1e-9)
			assert.InDelta(t, tt.wantTarget.High, settings.TargetRange.High, 1e-9)
			assert.Equal(t, tt.wantTUnit, settings.TargetUnit)
		})
	}
}

func TestFetchSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EntriesPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "0", q.Get("count"))
		assert.Equal(t, "2024-01-08", q.Get("find[dateString][$gte]"))
		assert.Equal(t, "2024-01-23", q.Get("find[dateString][$lte]"))
		assert.Equal(t, "secret-token", q.Get("token"))

		_, _ = w.Write([]byte(`[
			{"date":1705887600000,"sgv":120,"trend":4,"direction":"Flat"},
			{"date":1705887900000,"trend":4},
			{"sgv":90,"dateString":"2024-01-22T01:50:00.000Z"},
			{"sgv":95}
		]`))
	}))
	defer server.Close()

	from := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 23, 10, 0, 0, 0, time.UTC)

	samples, err := newTestClient(server).FetchSamples(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, int64(1705887600000), samples[0].Timestamp.UnixMilli())
	assert.Equal(t, 120.0, samples[0].Value)
	assert.Equal(t, "Flat", samples[0].Direction)
	assert.Equal(t, 4, samples[0].Trend)

	assert.True(t, math.IsNaN(samples[1].Value), "missing sgv becomes NaN")

	assert.Equal(t, time.Date(2024, 1, 22, 1, 50, 0, 0, time.UTC), samples[2].Timestamp.UTC())
	assert.True(t, samples[3].Timestamp.IsZero(), "missing date becomes zero time")
}

func TestFetchSamplesOddEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"date":1705910400000.0,"sgv":110},
			{"date":"yesterday","sgv":120},
			{"date":1705910700000,"sgv":130}
		]`))
	}))
	defer server.Close()

	samples, err := newTestClient(server).FetchSamples(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, int64(1705910400000), samples[0].Timestamp.UnixMilli())
	assert.Equal(t, 110.0, samples[0].Value)

	assert.True(t, samples[1].Timestamp.IsZero(), "undecodable entry becomes a malformed sample")
	assert.True(t, math.IsNaN(samples[1].Value))

	assert.Equal(t, int64(1705910700000), samples[2].Timestamp.UnixMilli())
}

func TestDateWindow(t *testing.T) {
	loc := time.FixedZone("UTC+2", 7200)
	w := DateWindow(source.Window{
		From: time.Date(2024, 1, 8, 1, 30, 0, 0, loc),
		To:   time.Date(2024, 1, 23, 10, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2024, 1, 23, 23, 59, 59, 999_000_000, time.UTC), w.To)
	assert.Equal(t, "2024-01-07", DateParam(w.From))
	assert.Equal(t, "2024-01-23", DateParam(w.To))
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
				assert.Equal(t, "down", statusErr.Body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("down"))
			}))
			defer server.Close()

			_, err := newTestClient(server).FetchSettings(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchSamples(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server).FetchSettings(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"settings":{"units":"mg/dl"}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.Attempts = 3

	_, err := client.FetchSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server)
	client.Attempts = 3

	_, err := client.FetchSettings(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDateParam(t *testing.T) {
	loc := time.FixedZone("UTC+2", 7200)
	assert.Equal(t, "2024-01-21", DateParam(time.Date(2024, 1, 22, 1, 0, 0, 0, loc)))
}

func TestTransportErrorRedactsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server).FetchSettings(context.Background())

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
	assert.Contains(t, err.Error(), "REDACTED")
}
