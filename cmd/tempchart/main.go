// Command tempchart loads temperature readings from a spreadsheet, derives
// the rate of change at every reading, and serves an interactive chart.
//
// Usage:
//
//	tempchart [flags] <path>
//
// Settings come from the environment (and an optional .env file); flags
// override them. See internal/config for the variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/temperature-chart/internal/adapter/http"
	"github.com/couchcryptid/temperature-chart/internal/adapter/source"
	"github.com/couchcryptid/temperature-chart/internal/chart"
	"github.com/couchcryptid/temperature-chart/internal/config"
	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
	"github.com/couchcryptid/temperature-chart/internal/watch"
)

// Exit codes by failure kind.
const (
	exitOK             = 0
	exitError          = 1
	exitSourceNotFound = 2
	exitSchemaMismatch = 3
	exitEmptyDataset   = 4
)

// newMetrics is swapped in tests to avoid duplicate registration.
var newMetrics = observability.NewMetrics

type options struct {
	table              string
	timeColumns        []string
	temperatureColumns []string
	addr               string
	png                string
	noServe            bool
	watch              bool
	logLevel           string
}

func main() {
	_ = godotenv.Load() // .env is optional

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "tempchart: %s: %v\n", domain.Kind(err), err)
		return exitCode(err)
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tempchart [flags] <path>",
		Short: "Chart temperature readings from a spreadsheet",
		Long: "tempchart reads a time column and a temperature column from an .xlsx or .csv\n" +
			"document, skips rows that fail validation, estimates the rate of change at\n" +
			"every reading, and serves an interactive chart over HTTP.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cmd.OutOrStdout(), cfg, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.table, "table", "", "table (sheet) to read; defaults to the first (SOURCE_TABLE)")
	f.StringArrayVar(&opts.timeColumns, "time-column", nil, "time column header; repeat for aliases (TIME_COLUMNS)")
	f.StringArrayVar(&opts.temperatureColumns, "temperature-column", nil, "temperature column header; repeat for aliases (TEMPERATURE_COLUMNS)")
	f.StringVar(&opts.addr, "addr", "", "HTTP listen address (HTTP_ADDR)")
	f.StringVar(&opts.png, "png", "", "also write the chart as PNG to this file")
	f.BoolVar(&opts.noServe, "no-serve", false, "exit after loading (and writing --png) instead of serving")
	f.BoolVar(&opts.watch, "watch", false, "reload when the document changes (WATCH)")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	return cmd
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("table") {
		cfg.SourceTable = opts.table
	}
	if f.Changed("time-column") {
		cfg.TimeColumns = opts.timeColumns
	}
	if f.Changed("temperature-column") {
		cfg.TemperatureColumns = opts.temperatureColumns
	}
	if f.Changed("addr") {
		cfg.HTTPAddr = opts.addr
	}
	if f.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func execute(ctx context.Context, stdout io.Writer, cfg *config.Config, opts *options, path string) error {
	logger := observability.NewLogger(cfg)
	metrics := newMetrics()

	p := pipeline.New(
		source.NewOpener(cfg.HeaderScanRows),
		pipeline.NewReadingParser(cfg.TimeLayouts, cfg.Location),
		pipeline.Options{
			Table:              cfg.SourceTable,
			TimeColumns:        cfg.TimeColumns,
			TemperatureColumns: cfg.TemperatureColumns,
		},
		logger,
		metrics,
	)

	res, err := p.Run(ctx, path)
	if err != nil {
		return err
	}
	var store pipeline.Store
	store.Set(res)

	chartOpts := chart.Options{
		TickInterval: cfg.TickInterval,
		YMin:         cfg.YMin,
		YMax:         cfg.YMax,
		Width:        cfg.ChartWidth,
		Height:       cfg.ChartHeight,
	}

	if opts.png != "" {
		if err := writePNG(opts.png, chartOpts, res); err != nil {
			return err
		}
		metrics.ChartRenders.WithLabelValues("png").Inc()
		logger.Info("chart written", "file", opts.png)
	}

	if opts.noServe {
		fmt.Fprintf(stdout, "%s: %d readings (%d of %d rows skipped)\n",
			path, res.Report.Kept, res.Report.Skipped, res.Report.Rows)
		return nil
	}

	return serve(ctx, stdout, cfg, chartOpts, p, &store, path, metrics, logger)
}

func writePNG(path string, opts chart.Options, res *pipeline.Result) (err error) {
	r, err := chart.NewPNGRenderer(opts)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return r.Render(f, chart.Title(res.Report.Source, res.Report.Table), res.Points)
}

func serve(ctx context.Context, stdout io.Writer, cfg *config.Config, chartOpts chart.Options, p *pipeline.Pipeline,
	store *pipeline.Store, path string, metrics *observability.Metrics, logger *slog.Logger) error {
	html, err := chart.NewHTMLRenderer(chartOpts)
	if err != nil {
		return err
	}
	png, err := chart.NewPNGRenderer(chartOpts)
	if err != nil {
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, httpadapter.Renderers{HTML: html, PNG: png}, metrics, logger)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	fmt.Fprintf(stdout, "chart available at http://%s/\n", ln.Addr())

	if cfg.Watch {
		w := watch.New(path, cfg.WatchDebounce, p, store, metrics, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrSourceNotFound):
		return exitSourceNotFound
	case errors.Is(err, domain.ErrSchemaMismatch):
		return exitSchemaMismatch
	case errors.Is(err, domain.ErrEmptyDataset):
		return exitEmptyDataset
	default:
		return exitError
	}
}
