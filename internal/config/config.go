// Package config parses command-line flags and environment into an immutable Config.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // -tz works on hosts without a zoneinfo database

	"github.com/jwulff/glucoscape/internal/aggregate"
	"github.com/jwulff/glucoscape/internal/heatmap"
	"github.com/jwulff/glucoscape/internal/publish"
	"github.com/jwulff/glucoscape/internal/source"
)

// Environment variables read when the matching flag is not set.
const (
	EnvNightscoutURL   = "NIGHTSCOUT_URL"
	EnvNightscoutToken = "NIGHTSCOUT_TOKEN"
	EnvArchive         = "GLUCOSCAPE_ARCHIVE"
	EnvMQTTBroker      = "MQTT_BROKER"
)

// ErrNoSource is returned when neither a Nightscout URL nor an archive is configured.
var ErrNoSource = errors.New("no data source: set -url (or " + EnvNightscoutURL + ") or -archive (or " + EnvArchive + ")")

// Config is the resolved configuration. It is built once by Parse and then
// only read.
type Config struct {
	NightscoutURL string
	Token         string
	Archive       string

	Days            int
	IntervalSeconds int
	TZ              string
	Location        *time.Location

	SettingsTimeout time.Duration
	SamplesTimeout  time.Duration
	Retries         uint

	Palette heatmap.Palette

	HTTPAddr string
	CacheTTL time.Duration

	MQTTBroker string
	MQTTTopic  string

	Brightness int
	Verbose    bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Days:            source.DefaultDays,
		IntervalSeconds: aggregate.DefaultIntervalSeconds,
		Location:        time.Local,
		SettingsTimeout: source.DefaultSettingsTimeout,
		SamplesTimeout:  source.DefaultSamplesTimeout,
		Palette:         heatmap.DefaultPalette(),
		HTTPAddr:        ":8080",
		CacheTTL:        time.Minute,
		MQTTTopic:       publish.DefaultTopic,
		Brightness:      -1,
	}
}

// Attempts is the number of tries per Nightscout request.
func (c Config) Attempts() uint {
	return c.Retries + 1
}

// Timeouts returns the per-fetch timeouts.
func (c Config) Timeouts() source.Timeouts {
	return source.Timeouts{Settings: c.SettingsTimeout, Samples: c.SamplesTimeout}
}

// Parse parses args for the named subcommand, falling back to getenv for unset
// values, and validates the result. It returns the remaining positional arguments.
func Parse(name string, args []string, getenv func(string) string, output io.Writer) (Config, []string, error) {
	cfg := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.NightscoutURL, "url", "", "Nightscout site URL (or set "+EnvNightscoutURL+")")
	fs.StringVar(&cfg.Token, "token", "", "Nightscout access token (or set "+EnvNightscoutToken+")")
	fs.StringVar(&cfg.Archive, "archive", "", "read from a SQLite archive instead of Nightscout (or set "+EnvArchive+")")
	fs.IntVar(&cfg.Days, "days", cfg.Days, "days of history to load")
	fs.IntVar(&cfg.IntervalSeconds, "interval", cfg.IntervalSeconds, "slot width in seconds, must divide 86400")
	fs.StringVar(&cfg.TZ, "tz", "", "IANA time zone for day and hour grouping (default local)")
	fs.DurationVar(&cfg.SettingsTimeout, "settings-timeout", cfg.SettingsTimeout, "timeout for loading settings (0 disables)")
	fs.DurationVar(&cfg.SamplesTimeout, "samples-timeout", cfg.SamplesTimeout, "timeout for loading glucose data (0 disables)")
	fs.UintVar(&cfg.Retries, "retries", 0, "retries for failed Nightscout requests (network errors, 429 and 5xx)")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "listen address for serve")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "how long serve reuses a rendered page (0 disables)")
	fs.StringVar(&cfg.MQTTBroker, "broker", "", "MQTT broker URL for publish (or set "+EnvMQTTBroker+")")
	fs.StringVar(&cfg.MQTTTopic, "topic", cfg.MQTTTopic, "MQTT topic for publish")
	fs.IntVar(&cfg.Brightness, "brightness", cfg.Brightness, "Pixoo brightness 0-100 (-1 leaves it unchanged)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")

	var lowColor, onTargetColor, highColor, missingColor string
	fs.StringVar(&lowColor, "color-low", "", "hex color for low readings")
	fs.StringVar(&onTargetColor, "color-on-target", "", "hex color for on-target readings")
	fs.StringVar(&highColor, "color-high", "", "hex color for high readings")
	fs.StringVar(&missingColor, "color-missing", "", "hex color for slots without data")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	envFallback(&cfg.NightscoutURL, getenv(EnvNightscoutURL))
	envFallback(&cfg.Token, getenv(EnvNightscoutToken))
	envFallback(&cfg.Archive, getenv(EnvArchive))
	envFallback(&cfg.MQTTBroker, getenv(EnvMQTTBroker))
	cfg.NightscoutURL = strings.TrimRight(cfg.NightscoutURL, "/")

	if cfg.TZ != "" {
		loc, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return Config{}, nil, fmt.Errorf("invalid time zone %q: %w", cfg.TZ, err)
		}
		cfg.Location = loc
	}

	palette, err := heatmap.ParsePalette(lowColor, onTargetColor, highColor, missingColor)
	if err != nil {
		return Config{}, nil, err
	}
	cfg.Palette = palette

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

func envFallback(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// Validate checks the configuration before any data is fetched.
func (c Config) Validate() error {
	if err := aggregate.ValidateInterval(c.IntervalSeconds); err != nil {
		return err
	}
	if c.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", c.Days)
	}
	if c.SettingsTimeout < 0 || c.SamplesTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache-ttl must not be negative")
	}
	if c.NightscoutURL == "" && c.Archive == "" {
		return ErrNoSource
	}
	if c.NightscoutURL != "" {
		u, err := url.Parse(c.NightscoutURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid Nightscout URL %q: must be http(s)://host", c.NightscoutURL)
		}
	}
	return nil
}
