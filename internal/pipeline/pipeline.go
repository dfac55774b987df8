// Package pipeline wires a data source to aggregation and heatmap assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwulff/glucoscape/internal/aggregate"
	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/heatmap"
	"github.com/jwulff/glucoscape/internal/source"
)

// Pipeline holds everything needed to produce a heatmap from a source.
type Pipeline struct {
	Source          source.Source
	Days            int
	Timeouts        source.Timeouts
	IntervalSeconds int
	Location        *time.Location
	Palette         heatmap.Palette
	Logger          *slog.Logger
	Now             func() time.Time
}

// Result is the outcome of one run.
type Result struct {
	Settings    bloodsugar.Settings
	Window      source.Window
	Summary     aggregate.Summary
	Heatmap     heatmap.Heatmap
	GeneratedAt time.Time
}

// Run loads the window ending now, aggregates it and assembles the heatmap.
// A source that holds a fixed window (an archive) is read over that window instead.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	now := p.now()
	window, err := p.window(ctx, now)
	if err != nil {
		return nil, err
	}

	ds, err := source.Load(ctx, p.Source, window, p.Timeouts)
	if err != nil {
		return nil, err
	}
	p.logger().Debug("loaded glucose data", "samples", len(ds.Samples), "from", window.From, "to", window.To)

	summary, err := aggregate.Summarize(ds.Samples, aggregate.Options{
		Target:          ds.Settings.TargetRange,
		IntervalSeconds: p.IntervalSeconds,
		Location:        p.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregating glucose data: %w", err)
	}
	if summary.Rejected > 0 {
		p.logger().Warn("skipped malformed readings", "count", summary.Rejected)
	}

	return &Result{
		Settings:    ds.Settings,
		Window:      window,
		Summary:     summary,
		Heatmap:     heatmap.Build(ds.Settings, summary, p.Palette),
		GeneratedAt: now,
	}, nil
}

func (p *Pipeline) window(ctx context.Context, now time.Time) (source.Window, error) {
	if windowed, ok := p.Source.(source.Windowed); ok {
		w, found, err := windowed.StoredWindow(ctx)
		if err != nil {
			return source.Window{}, fmt.Errorf("reading archived window: %w", err)
		}
		if found {
			p.logger().Debug("using archived window", "from", w.From, "to", w.To)
			return w, nil
		}
	}
	return source.WindowFor(now, p.Days), nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
