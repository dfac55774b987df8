// Package storage defines the offline glucose archive.
//
// An archive holds one exported window: the site settings at export time and
// the samples inside the window. It is only written when the user asks for it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwulff/glucoscape/internal/aggregate"
	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/source"
)

// Archive is the interface for an offline copy of a data window.
type Archive interface {
	// Settings
	SaveSettings(ctx context.Context, settings bloodsugar.Settings) error
	GetSettings(ctx context.Context) (bloodsugar.Settings, error)

	// Window
	SaveWindow(ctx context.Context, w source.Window) error
	StoredWindow(ctx context.Context) (source.Window, bool, error)

	// Samples
	SaveSamples(ctx context.Context, samples []bloodsugar.Sample) (int, error)
	QuerySamples(ctx context.Context, since, until time.Time) ([]bloodsugar.Sample, error)
	DeleteSamplesBefore(ctx context.Context, before time.Time) (int, error)
	SampleCount(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is, or wraps, a not found error.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Export writes a loaded dataset into the archive, replacing the stored settings
// and window and upserting the samples. Malformed samples are not archived. It
// returns the number of samples written.
func Export(ctx context.Context, a Archive, ds *source.Dataset) (int, error) {
	if err := a.SaveSettings(ctx, ds.Settings); err != nil {
		return 0, fmt.Errorf("failed to save settings: %w", err)
	}
	if err := a.SaveWindow(ctx, ds.Window); err != nil {
		return 0, fmt.Errorf("failed to save window: %w", err)
	}
	valid, _ := aggregate.Sanitize(ds.Samples)
	n, err := a.SaveSamples(ctx, valid)
	if err != nil {
		return 0, fmt.Errorf("failed to save samples: %w", err)
	}
	return n, nil
}
