package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	settings    bloodsugar.Settings
	samples     []bloodsugar.Sample
	settingsErr error
	samplesErr  error

	calls            []string
	settingsDeadline time.Time
	samplesDeadline  time.Time
	from, to         time.Time
}

func (f *fakeSource) FetchSettings(ctx context.Context) (bloodsugar.Settings, error) {
	f.calls = append(f.calls, "settings")
	f.settingsDeadline, _ = ctx.Deadline()
	return f.settings, f.settingsErr
}

func (f *fakeSource) FetchSamples(ctx context.Context, from, to time.Time) ([]bloodsugar.Sample, error) {
	f.calls = append(f.calls, "samples")
	f.samplesDeadline, _ = ctx.Deadline()
	f.from, f.to = from, to
	return f.samples, f.samplesErr
}

func TestWindowFor(t *testing.T) {
	now := time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC)

	w := WindowFor(now, 14)

	assert.Equal(t, time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2024, 1, 23, 10, 0, 0, 0, time.UTC), w.To)
}

func TestLoadSequentialWithIndependentTimeouts(t *testing.T) {
	src := &fakeSource{
		settings: bloodsugar.Settings{Title: "NS"},
		samples:  []bloodsugar.Sample{bloodsugar.NewSample(1705887600000, 120)},
	}
	w := WindowFor(time.Now(), 14)

	start := time.Now()
	ds, err := Load(context.Background(), src, w, Timeouts{Settings: time.Second, Samples: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, []string{"settings", "samples"}, src.calls)
	assert.Equal(t, "NS", ds.Settings.Title)
	assert.Len(t, ds.Samples, 1)
	assert.Equal(t, w, ds.Window)
	assert.Equal(t, w.From, src.from)
	assert.Equal(t, w.To, src.to)

	assert.WithinDuration(t, start.Add(time.Second), src.settingsDeadline, 500*time.Millisecond)
	assert.WithinDuration(t, start.Add(time.Hour), src.samplesDeadline, 500*time.Millisecond)
}

func TestLoadNoTimeout(t *testing.T) {
	src := &fakeSource{}

	_, err := Load(context.Background(), src, Window{}, Timeouts{})
	require.NoError(t, err)

	assert.True(t, src.settingsDeadline.IsZero())
	assert.True(t, src.samplesDeadline.IsZero())
}

func TestLoadSettingsError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{settingsErr: boom}

	_, err := Load(context.Background(), src, Window{}, Timeouts{})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "loading settings")
	assert.Equal(t, []string{"settings"}, src.calls, "samples are not fetched after a settings failure")
}

func TestLoadSamplesError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{samplesErr: boom}

	_, err := Load(context.Background(), src, Window{}, Timeouts{})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "loading glucose data")
}
