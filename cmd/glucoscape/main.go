// Package main is the entry point for the glucoscape command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
	"github.com/jwulff/glucoscape/internal/config"
	"github.com/jwulff/glucoscape/internal/domain"
	"github.com/jwulff/glucoscape/internal/heatmap"
	"github.com/jwulff/glucoscape/internal/nightscout"
	"github.com/jwulff/glucoscape/internal/pipeline"
	"github.com/jwulff/glucoscape/internal/pixoo"
	"github.com/jwulff/glucoscape/internal/publish"
	"github.com/jwulff/glucoscape/internal/source"
	"github.com/jwulff/glucoscape/internal/storage"
	"github.com/jwulff/glucoscape/internal/storage/sqlite"
	"github.com/jwulff/glucoscape/internal/web"
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// env bundles what a subcommand needs besides its configuration.
type env struct {
	cfg    config.Config
	args   []string
	stdout io.Writer
	logger *slog.Logger
}

var commands = map[string]func(ctx context.Context, e env) error{
	"html":    runHTML,
	"term":    runTerm,
	"summary": runSummary,
	"serve":   runServe,
	"pixoo":   runPixoo,
	"archive": runArchive,
	"publish": runPublish,
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		showUsage(stderr)
		return 2
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		showUsage(stderr)
		return 2
	}

	cfg, rest, err := config.Parse(name, args[1:], getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, env{cfg: cfg, args: rest, stdout: stdout, logger: logger}); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describe(err, cfg))
		return 1
	}
	return 0
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: glucoscape <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  html [file]     - Write the heatmap as an HTML page (stdout by default)")
	fmt.Fprintln(w, "  term            - Print the heatmap in the terminal")
	fmt.Fprintln(w, "  summary         - Print time in range per day")
	fmt.Fprintln(w, "  serve           - Serve the heatmap over HTTP")
	fmt.Fprintln(w, "  pixoo <IP>      - Show the heatmap on a Pixoo64")
	fmt.Fprintln(w, "  archive <file>  - Save the current window from Nightscout to a SQLite archive")
	fmt.Fprintln(w, "  publish         - Publish the overall time in range to MQTT")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  "+config.EnvNightscoutURL+"       - Nightscout site URL")
	fmt.Fprintln(w, "  "+config.EnvNightscoutToken+"     - Nightscout access token (optional)")
	fmt.Fprintln(w, "  "+config.EnvArchive+"   - SQLite archive to read instead of Nightscout")
	fmt.Fprintln(w, "  "+config.EnvMQTTBroker+"          - MQTT broker URL for publish")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'glucoscape <command> -h' for flags.")
}

// describe turns an error into a message that names the data source.
func describe(err error, cfg config.Config) string {
	origin := cfg.NightscoutURL
	if cfg.Archive != "" {
		origin = cfg.Archive
	}
	switch {
	case errors.Is(err, nightscout.ErrUnauthorized):
		return fmt.Sprintf("%s rejected the access token; check -token or %s", origin, config.EnvNightscoutToken)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("timed out talking to %s: %v", origin, err)
	case storage.IsNotFound(err):
		return fmt.Sprintf("%s is not a glucoscape archive: %v", origin, err)
	}
	return err.Error()
}

// openSource returns the archive when one is configured and Nightscout otherwise.
func openSource(cfg config.Config, logger *slog.Logger) (source.Source, func() error, error) {
	if cfg.Archive != "" {
		if _, err := os.Stat(cfg.Archive); err != nil {
			return nil, nil, fmt.Errorf("opening archive: %w", err)
		}
		store, err := sqlite.NewFileStore(cfg.Archive)
		if err != nil {
			return nil, nil, fmt.Errorf("opening archive %s: %w", cfg.Archive, err)
		}
		logger.Debug("reading from archive", "path", cfg.Archive)
		return store, store.Close, nil
	}
	return newNightscoutClient(cfg, logger), func() error { return nil }, nil
}

func newNightscoutClient(cfg config.Config, logger *slog.Logger) *nightscout.Client {
	client := nightscout.NewClient(cfg.NightscoutURL, cfg.Token)
	client.Logger = logger
	client.Attempts = cfg.Attempts()
	return client
}

func newPipeline(cfg config.Config, src source.Source, logger *slog.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Source:          src,
		Days:            cfg.Days,
		Timeouts:        cfg.Timeouts(),
		IntervalSeconds: cfg.IntervalSeconds,
		Location:        cfg.Location,
		Palette:         cfg.Palette,
		Logger:          logger,
	}
}

// load runs the pipeline once against the configured source.
func load(ctx context.Context, e env) (*pipeline.Result, error) {
	src, closeSource, err := openSource(e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	return newPipeline(e.cfg, src, e.logger).Run(ctx)
}

func runHTML(ctx context.Context, e env) error {
	result, err := load(ctx, e)
	if err != nil {
		return err
	}

	if len(e.args) == 0 {
		return heatmap.RenderHTML(e.stdout, result.Heatmap)
	}

	f, err := os.Create(e.args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", e.args[0], err)
	}
	defer f.Close()
	if err := heatmap.RenderHTML(f, result.Heatmap); err != nil {
		return err
	}
	e.logger.Info("wrote heatmap", "path", e.args[0])
	return f.Close()
}

func runTerm(ctx context.Context, e env) error {
	result, err := load(ctx, e)
	if err != nil {
		return err
	}
	return heatmap.RenderTerminal(e.stdout, result.Heatmap)
}

func runSummary(ctx context.Context, e env) error {
	result, err := load(ctx, e)
	if err != nil {
		return err
	}

	hm := result.Heatmap
	fmt.Fprintf(e.stdout, "%s  target %s\n", hm.Header.Title, hm.Header.Target)
	fmt.Fprintf(e.stdout, "%d readings over %d days", hm.Total.Samples, len(hm.Rows))
	if hm.Rejected > 0 {
		fmt.Fprintf(e.stdout, " (%d malformed skipped)", hm.Rejected)
	}
	fmt.Fprintln(e.stdout)
	if hm.Header.Latest != "" {
		latest := result.Summary.Latest.Timestamp
		fmt.Fprintf(e.stdout, "Latest %s at %s", hm.Header.Latest, latest.In(e.cfg.Location).Format("Mon 15:04"))
		if bloodsugar.IsStale(latest, result.GeneratedAt) {
			fmt.Fprint(e.stdout, " (stale)")
		}
		fmt.Fprintln(e.stdout)
	}
	fmt.Fprintln(e.stdout)

	printSummaryLine(e.stdout, "all days", hm.Total)
	for _, row := range hm.Rows {
		printSummaryLine(e.stdout, row.Label, row.Summary)
	}
	return nil
}

func printSummaryLine(w io.Writer, label string, cell heatmap.Cell) {
	if !cell.HasData {
		fmt.Fprintf(w, "  %-10s no data\n", label)
		return
	}
	fmt.Fprintf(w, "  %-10s %5d  %s\n", label, cell.Samples, cell.Tooltip)
}

func runServe(ctx context.Context, e env) error {
	src, closeSource, err := openSource(e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer closeSource()

	p := newPipeline(e.cfg, src, e.logger)
	srv := web.New(e.cfg.HTTPAddr, p.Run, e.cfg.CacheTTL, e.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	e.logger.Info("serving heatmap", "addr", e.cfg.HTTPAddr, "cache_ttl", e.cfg.CacheTTL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		e.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runPixoo(ctx context.Context, e env) error {
	if len(e.args) < 1 {
		return errors.New("IP address required: glucoscape pixoo <IP>")
	}
	client := pixoo.NewClient(e.args[0])
	client.Logger = e.logger

	reachCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !client.IsReachable(reachCtx) {
		return fmt.Errorf("cannot reach Pixoo at %s; make sure the IP is correct and the device is powered on", e.args[0])
	}

	result, err := load(ctx, e)
	if err != nil {
		return err
	}

	if e.cfg.Brightness >= 0 {
		if err := client.SetBrightness(ctx, e.cfg.Brightness); err != nil {
			return fmt.Errorf("setting brightness: %w", err)
		}
	}

	frame := heatmap.RenderFrame(result.Heatmap, domain.Pixoo64Size)
	if err := client.SendFrame(ctx, frame); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	e.logger.Info("sent heatmap to pixoo", "addr", e.args[0], "days", min(len(result.Heatmap.Rows), heatmap.FrameDays(domain.Pixoo64Size)))
	return nil
}

func runArchive(ctx context.Context, e env) error {
	if len(e.args) < 1 {
		return errors.New("archive path required: glucoscape archive <file>")
	}
	if e.cfg.NightscoutURL == "" {
		return errors.New("archive reads from Nightscout: set -url or " + config.EnvNightscoutURL)
	}
	path := e.args[0]

	// Nightscout returns whole UTC dates; the archive keeps exactly that span.
	window := nightscout.DateWindow(source.WindowFor(time.Now(), e.cfg.Days))
	ds, err := source.Load(ctx, newNightscoutClient(e.cfg, e.logger), window, e.cfg.Timeouts())
	if err != nil {
		return err
	}

	store, err := sqlite.NewFileStore(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer store.Close()

	n, err := storage.Export(ctx, store, ds)
	if err != nil {
		return err
	}
	pruned, err := store.DeleteSamplesBefore(ctx, window.From)
	if err != nil {
		return fmt.Errorf("pruning archive: %w", err)
	}
	total, err := store.SampleCount(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("archived glucose data", "path", path, "written", n, "skipped", len(ds.Samples)-n, "pruned", pruned, "total", total)
	fmt.Fprintf(e.stdout, "Archived %d readings from %s to %s\n", n, e.cfg.NightscoutURL, path)
	return nil
}

func runPublish(ctx context.Context, e env) error {
	if e.cfg.MQTTBroker == "" {
		return errors.New("MQTT broker required: set -broker or " + config.EnvMQTTBroker)
	}

	result, err := load(ctx, e)
	if err != nil {
		return err
	}
	if !result.Summary.Total.HasData {
		return errors.New("no glucose data in the window; nothing to publish")
	}

	publisher, err := publish.NewRealPublisher(e.cfg.MQTTBroker, e.cfg.MQTTTopic)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", e.cfg.MQTTBroker, err)
	}
	defer publisher.Close()

	return publishSummary(publisher, result, e)
}

func publishSummary(publisher publish.Publisher, result *pipeline.Result, e env) error {
	summary := publish.FromAggregate(result.Summary, result.GeneratedAt)
	if err := publisher.Publish(summary); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}
	e.logger.Info("published summary", "topic", e.cfg.MQTTTopic, "on_target", summary.Percentages.OnTarget)
	return nil
}
