// Package sqlite provides a SQLite implementation of the storage.Archive interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/source"
	"github.com/jwulff/glucoscape/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Archive.
// It also implements source.Source so an archive can replace the remote site.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store.
func NewMemoryStore() (*Store, error) {
	return newStore(":memory:")
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Settings methods

func (s *Store) SaveSettings(ctx context.Context, settings bloodsugar.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (id, title, url, display_unit, target_low, target_high, target_unit, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`, settings.Title, settings.URL, string(settings.DisplayUnit),
		settings.TargetRange.Low, settings.TargetRange.High, string(settings.TargetUnit), time.Now())
	return err
}

func (s *Store) GetSettings(ctx context.Context) (bloodsugar.Settings, error) {
	var settings bloodsugar.Settings
	var displayUnit, targetUnit string

	err := s.db.QueryRowContext(ctx, `
		SELECT title, url, display_unit, target_low, target_high, target_unit
		FROM settings WHERE id = 1
	`).Scan(&settings.Title, &settings.URL, &displayUnit,
		&settings.TargetRange.Low, &settings.TargetRange.High, &targetUnit)

	if errors.Is(err, sql.ErrNoRows) {
		return bloodsugar.Settings{}, storage.ErrNotFound{Resource: "settings", ID: "1"}
	}
	if err != nil {
		return bloodsugar.Settings{}, err
	}

	settings.DisplayUnit = bloodsugar.ParseUnit(displayUnit)
	settings.TargetUnit = bloodsugar.ParseUnit(targetUnit)
	return settings, nil
}

// Window methods

// SaveWindow records the window the archive covers, replacing any earlier one.
func (s *Store) SaveWindow(ctx context.Context, w source.Window) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO export_window (id, from_ms, to_ms)
		VALUES (1, ?, ?)
	`, w.From.UnixMilli(), w.To.UnixMilli())
	return err
}

// StoredWindow returns the recorded window. Archives written before windows
// were recorded report false.
func (s *Store) StoredWindow(ctx context.Context) (source.Window, bool, error) {
	var fromMs, toMs int64
	err := s.db.QueryRowContext(ctx, "SELECT from_ms, to_ms FROM export_window WHERE id = 1").Scan(&fromMs, &toMs)
	if errors.Is(err, sql.ErrNoRows) {
		return source.Window{}, false, nil
	}
	if err != nil {
		return source.Window{}, false, err
	}
	return source.Window{From: time.UnixMilli(fromMs), To: time.UnixMilli(toMs)}, true, nil
}

// Sample methods

// SaveSamples upserts samples keyed by timestamp and returns how many were written.
func (s *Store) SaveSamples(ctx context.Context, samples []bloodsugar.Sample) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO samples (timestamp, value, direction, trend)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, sample := range samples {
		if _, err := stmt.ExecContext(ctx, sample.Timestamp.UnixMilli(), sample.Value, sample.Direction, sample.Trend); err != nil {
			return 0, fmt.Errorf("failed to save sample at %s: %w", sample.Timestamp.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(samples), nil
}

// QuerySamples returns samples with since <= timestamp <= until, oldest first.
func (s *Store) QuerySamples(ctx context.Context, since, until time.Time) ([]bloodsugar.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, value, direction, trend FROM samples
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, since.UnixMilli(), until.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []bloodsugar.Sample
	for rows.Next() {
		var ms int64
		var sample bloodsugar.Sample
		if err := rows.Scan(&ms, &sample.Value, &sample.Direction, &sample.Trend); err != nil {
			return nil, err
		}
		sample.Timestamp = time.UnixMilli(ms)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func (s *Store) DeleteSamplesBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM samples WHERE timestamp < ?", before.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) SampleCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&count)
	return count, err
}

// Source methods

// FetchSettings returns the archived settings.
func (s *Store) FetchSettings(ctx context.Context) (bloodsugar.Settings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return bloodsugar.Settings{}, fmt.Errorf("archive has no settings: %w", err)
	}
	return settings, nil
}

// FetchSamples returns the archived samples inside the window.
func (s *Store) FetchSamples(ctx context.Context, from, to time.Time) ([]bloodsugar.Sample, error) {
	return s.QuerySamples(ctx, from, to)
}

// Verify interface compliance
var (
	_ storage.Archive = (*Store)(nil)
	_ source.Source   = (*Store)(nil)
	_ source.Windowed = (*Store)(nil)
)
