package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/smileynet/cubone"
	"github.com/smileynet/cubone/collectionview"
	"github.com/smileynet/cubone/internal/config"
	"github.com/smileynet/cubone/internal/itemfile"
	"github.com/smileynet/cubone/internal/logging"
	"github.com/smileynet/cubone/internal/metrics"
	"github.com/smileynet/cubone/internal/tui"
	"github.com/smileynet/cubone/internal/watch"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for cubone.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	View    ViewCmd          `cmd:"" help:"Render an item file as a board."`
	Demo    DemoCmd          `cmd:"" help:"Render the built-in sample board with scripted edits."`
	Check   CheckCmd         `cmd:"" help:"Validate an item file."`
}

// DisplayFlags are the board flags shared by view and demo. Zero values
// keep the configured setting.
type DisplayFlags struct {
	Plain       bool   `help:"Force plain text output even if stdout is a TTY." default:"false"`
	Style       string `help:"View style (card or line)."`
	Width       int    `help:"Card width in columns."`
	MetricsAddr string `help:"Serve Prometheus metrics on this address." name:"metrics-addr"`
}

// apply overrides cfg with the flags that were set.
func (f DisplayFlags) apply(cfg *config.Config) {
	if f.Plain {
		cfg.Display.Plain = true
	}
	if f.Style != "" {
		cfg.Display.Style = f.Style
	}
	if f.Width != 0 {
		cfg.Display.Width = f.Width
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}
}

// ViewCmd renders an item file.
type ViewCmd struct {
	File  string `arg:"" help:"Item file to render." type:"path"`
	Watch bool   `help:"Keep running and redraw items as the file changes." short:"w"`

	DisplayFlags `embed:""`
}

// DemoCmd renders the embedded sample file.
type DemoCmd struct {
	Interval time.Duration `help:"Time between scripted edits." default:"2s"`
	Steps    int           `help:"Number of scripted edits; 0 runs until quit. Plain output defaults to 6." default:"-1"`

	DisplayFlags `embed:""`
}

// CheckCmd validates an item file.
type CheckCmd struct {
	File string `arg:"" help:"Item file to validate." type:"path"`
}

// loadConfig loads layered config from user and project paths with env
// overrides. The project .env file feeds the environment first.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(".cubone/.env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/cubone/config.yaml"),
		".cubone/config.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the zap logger, creating the log directory if needed.
func newLogger(cfg config.Log) (*zap.Logger, error) {
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	return logging.New(logging.Config{Level: cfg.Level, Format: cfg.Format, File: cfg.File})
}

// setup loads and validates config with flag overrides and builds the logger.
func setup(flags DisplayFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	// Tag every line with the run id.
	return cfg, logger.With(zap.Stringer("run", ulid.Make())), nil
}

// Run executes the view command.
func (v *ViewCmd) Run() error {
	cfg, logger, err := setup(v.DisplayFlags)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	records, err := itemfile.LoadFile(v.File)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := boardOptions{
		Config:  cfg,
		Logger:  logger.With(zap.String("file", v.File)),
		Records: records,
		Load:    func() ([]itemfile.Record, error) { return itemfile.LoadFile(v.File) },
	}
	if v.Watch {
		w, err := watch.New(v.File, cfg.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("view: %w", err)
		}
		defer func() { _ = w.Close() }()
		opts.Live = true
		opts.Changes = w.Changes()
		opts.Errors = w.Errors()
	}

	if err := runBoard(ctx, os.Stdout, opts); err != nil {
		return fmt.Errorf("view: %w", err)
	}
	return nil
}

// Run executes the demo command.
func (d *DemoCmd) Run() error {
	cfg, logger, err := setup(d.DisplayFlags)
	if err != nil {
		return fmt.Errorf("demo: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	records, err := itemfile.Load(cubone.OverlayFS("samples", cubone.Samples), cubone.SampleFile)
	if err != nil {
		return fmt.Errorf("demo: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	steps := d.Steps
	if steps < 0 {
		steps = 0
		if cfg.Display.Plain || !isTerminal(os.Stdout) {
			steps = 6
		}
	}

	if err := runBoard(ctx, os.Stdout, boardOptions{
		Config:  cfg,
		Logger:  logger.With(zap.String("file", cubone.SampleFile)),
		Records: records,
		Load:    demoScript(records),
		Live:    true,
		Changes: tick(ctx, d.Interval, steps),
	}); err != nil {
		return fmt.Errorf("demo: %w", err)
	}
	return nil
}

// Run executes the check command.
func (c *CheckCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *CheckCmd) run(w io.Writer) error {
	records, err := itemfile.LoadFile(c.File)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%s: %d items\n", c.File, len(records))
	return nil
}

// boardOptions configures runBoard.
type boardOptions struct {
	Config  *config.Config
	Logger  *zap.Logger
	Records []itemfile.Record
	Load    func() ([]itemfile.Record, error)
	// Live keeps the board running until Changes closes or the user quits.
	Live    bool
	Changes <-chan struct{}
	Errors  <-chan error
	// Display overrides the display chosen from Config, for tests.
	Display func(tui.DisplayOptions) tui.Display
}

// runBoard renders the board once and, when live, keeps it in sync until
// the changes channel closes, the user quits, or ctx is done.
func runBoard(ctx context.Context, w io.Writer, opts boardOptions) error {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var observer collectionview.Observer
	if cfg.Metrics.Addr != "" {
		collector := metrics.New(metrics.Options{Namespace: cfg.Metrics.Namespace})
		observer = collector
		go func() {
			if err := collector.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	bridge := tui.NewBridge()
	sess, err := newSession(opts.Records, bridge, sessionOptions{
		Style:    cfg.Display.Style,
		Width:    cfg.Display.Width,
		Theme:    cfg.Display.Theme,
		Logger:   log,
		Observer: observer,
		Load:     opts.Load,
	})
	if err != nil {
		return err
	}

	var requests chan tui.Request
	displayOpts := tui.DisplayOptions{
		Writer:     w,
		ForcePlain: cfg.Display.Plain || !opts.Live,
	}
	if opts.Live {
		requests = make(chan tui.Request, 4)
		displayOpts.Requests = func(r tui.Request) {
			select {
			case requests <- r:
			default:
				// A request is already pending.
			}
		}
		displayOpts.CancelFunc = cancel
	}
	newDisplay := opts.Display
	if newDisplay == nil {
		newDisplay = tui.NewDisplay
	}
	display := newDisplay(displayOpts)

	// The display outlives ctx so it can drain the final Done or Error.
	displayDone := make(chan error, 1)
	go func() {
		displayDone <- display.Run(context.Background(), bridge.Events())
	}()

	runErr := sess.render(ctx)
	if runErr == nil && opts.Live {
		log.Info("watching", zap.Int("items", len(opts.Records)))
		runErr = sess.run(ctx, opts.Changes, opts.Errors, requests)
	}

	if runErr != nil {
		bridge.Error(runErr)
	} else {
		bridge.Done()
	}
	displayErr := <-displayDone

	closeErr := sess.close()
	if closeErr != nil {
		log.Warn("tearing down views", zap.Error(closeErr))
	}
	if runErr != nil {
		return runErr
	}
	if displayErr != nil && !errors.Is(displayErr, context.Canceled) {
		return displayErr
	}
	return nil
}

// isTerminal reports whether f is connected to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	exitSuccess = 0
	exitFailure = 1
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	return exitFailure
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cubone"),
		kong.Description("Dirty-tracking board renderer for YAML item files."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
