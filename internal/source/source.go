// Package source defines where glucose data comes from and how a window of it is loaded.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
)

// Source provides display settings and glucose samples.
// Implementations: nightscout.Client (remote) and sqlite.Store (offline archive).
type Source interface {
	FetchSettings(ctx context.Context) (bloodsugar.Settings, error)
	FetchSamples(ctx context.Context, from, to time.Time) ([]bloodsugar.Sample, error)
}

// Windowed is implemented by sources that hold one fixed window, such as an
// archive. StoredWindow reports false when no window was recorded.
type Windowed interface {
	StoredWindow(ctx context.Context) (Window, bool, error)
}

// Default request timeouts.
const (
	DefaultSettingsTimeout = 10 * time.Second
	DefaultSamplesTimeout  = 30 * time.Second
)

// DefaultDays is how many days of history are loaded besides the running day.
const DefaultDays = 14

// Window is the time span requested from a source.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowFor returns the window ending one day after now and starting days before it.
// The extra day makes sure today's readings are included by sources that
// filter on calendar dates.
func WindowFor(now time.Time, days int) Window {
	return Window{
		From: now.AddDate(0, 0, -days),
		To:   now.AddDate(0, 0, 1),
	}
}

// Timeouts bounds each of the two fetches independently.
type Timeouts struct {
	Settings time.Duration
	Samples  time.Duration
}

// Dataset is everything loaded for one heatmap.
type Dataset struct {
	Settings bloodsugar.Settings
	Samples  []bloodsugar.Sample
	Window   Window
}

// Load fetches settings and then samples, each under its own timeout.
func Load(ctx context.Context, src Source, w Window, timeouts Timeouts) (*Dataset, error) {
	settings, err := fetchSettings(ctx, src, timeouts.Settings)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	samples, err := fetchSamples(ctx, src, w, timeouts.Samples)
	if err != nil {
		return nil, fmt.Errorf("loading glucose data: %w", err)
	}

	return &Dataset{Settings: settings, Samples: samples, Window: w}, nil
}

func fetchSettings(ctx context.Context, src Source, timeout time.Duration) (bloodsugar.Settings, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	return src.FetchSettings(ctx)
}

func fetchSamples(ctx context.Context, src Source, w Window, timeout time.Duration) ([]bloodsugar.Sample, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	return src.FetchSamples(ctx, w.From, w.To)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
