package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/wasmbridge/internal/bridge"
	"github.com/roach88/wasmbridge/internal/channel"
	"github.com/roach88/wasmbridge/internal/config"
	"github.com/roach88/wasmbridge/internal/engine"
	"github.com/roach88/wasmbridge/internal/hostfs"
	"github.com/roach88/wasmbridge/internal/journal"
	"github.com/roach88/wasmbridge/internal/payload"
	"github.com/roach88/wasmbridge/internal/trigger"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	WatchDir   string
	Pattern    string
	Drain      string
	TickRate   float64
	Journal    string
	MaxTicks   int64
	MaxBytes   int64
	Format     string
	Schema     string

	// IDGenerator overrides the task ID generator (for testing).
	// If nil, defaults to trigger.UUIDv7Generator.
	IDGenerator trigger.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run the engine and feed it uploaded files",
		Long: `Run the tick-driven engine with the bridge installed.

Each positional file is uploaded once at startup, as if picked in the
browser file input. With --watch, every matching file created or rewritten
in the directory is uploaded too. Payloads reach the engine on a later tick;
files with the wrong shape are logged and dropped.

Without --max-ticks the engine runs until interrupted.

Example:
  wasmbridge run --max-ticks 10 a.json b.json
  wasmbridge run --watch ./inbox --drain all --journal ./deliveries.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runBridge(cmd, opts, cfg, args)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.WatchDir, "watch", "", "directory to watch for uploads")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", "", "file name pattern for --watch (default *.json)")
	cmd.Flags().StringVar(&opts.Drain, "drain", "", "payloads taken per tick (one|all)")
	cmd.Flags().Float64Var(&opts.TickRate, "tick-rate", 0, "engine ticks per second")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite delivery journal")
	cmd.Flags().Int64Var(&opts.MaxTicks, "max-ticks", 0, "stop after this many ticks (0 = until interrupted)")
	cmd.Flags().Int64Var(&opts.MaxBytes, "max-bytes", 0, "largest accepted upload in bytes")
	cmd.Flags().StringVar(&opts.Format, "payload-format", "", "payload text format (json|yaml|cue)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file for --payload-format cue")

	return cmd
}

// loadRunConfig layers defaults, the config file and explicitly set flags.
func loadRunConfig(cmd *cobra.Command, opts *RunOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("watch") {
		cfg.WatchDir = opts.WatchDir
	}
	if flags.Changed("pattern") {
		cfg.Pattern = opts.Pattern
	}
	if flags.Changed("drain") {
		cfg.Drain = opts.Drain
	}
	if flags.Changed("tick-rate") {
		cfg.TickRate = opts.TickRate
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if flags.Changed("max-bytes") {
		cfg.MaxBytes = opts.MaxBytes
	}
	if flags.Changed("payload-format") {
		cfg.Format = opts.Format
	}
	if flags.Changed("schema") {
		cfg.Schema = opts.Schema
	}

	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// RunSummary is printed when the engine stops.
type RunSummary struct {
	Ticks     int64  `json:"ticks"`
	Uploads   int64  `json:"uploads"`
	Sent      int64  `json:"sent"`
	Rejected  int64  `json:"rejected"`
	Delivered int64  `json:"delivered"`
	Pending   int    `json:"pending"`
	Journal   string `json:"journal,omitempty"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("ticks=%d uploads=%d sent=%d rejected=%d delivered=%d pending=%d",
		s.Ticks, s.Uploads, s.Sent, s.Rejected, s.Delivered, s.Pending)
}

// uploadStats counts finished upload tasks. Updated from task goroutines.
type uploadStats struct {
	uploads  atomic.Int64
	sent     atomic.Int64
	rejected atomic.Int64
}

func (s *uploadStats) observe(task *trigger.Task) {
	s.uploads.Add(1)
	switch task.Outcome() {
	case trigger.Sent:
		s.sent.Add(1)
	case trigger.NoSelection:
	default:
		s.rejected.Add(1)
	}
}

func runBridge(cmd *cobra.Command, opts *RunOptions, cfg config.Config, files []string) error {
	logger := opts.newLogger(cmd.ErrOrStderr())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dec, err := config.Decoder[payload.Example](cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build decoder", err)
	}

	appOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithTickRate(cfg.TickRate),
	}
	maxTicks := opts.MaxTicks

	var jr *journal.Journal
	if cfg.Journal != "" {
		jr, err = journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		last, err := jr.LastTick(ctx)
		if err != nil {
			jr.Close()
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		// Tick numbers continue where the previous run stopped.
		appOpts = append(appOpts, engine.WithClock(engine.NewClockAt(last)))
		if maxTicks > 0 {
			maxTicks += last
		}
		logger.Info("journal ready", "path", cfg.Journal, "last_tick", last)
	}
	appOpts = append(appOpts, engine.WithMaxTicks(maxTicks))

	app := engine.New(appOpts...)
	if jr != nil {
		if err := engine.Insert(app.Resources(), jr); err != nil {
			jr.Close()
			return WrapExitError(ExitCommandError, "failed to register journal", err)
		}
	}

	tx, rx := channel.New[payload.Example]()

	var delivered int64
	handler := bridge.LogHandler[payload.Example](logger)
	counting := func(ctx context.Context, tick int64, v payload.Example) error {
		delivered++
		return handler(ctx, tick, v)
	}
	var h bridge.Handler[payload.Example] = counting
	if jr != nil {
		h = bridge.Journaled(jr, h)
	}
	if err := bridge.Install(app, rx,
		bridge.WithPolicy[payload.Example](cfg.Policy()),
		bridge.WithHandler(h),
	); err != nil {
		app.Shutdown()
		return WrapExitError(ExitCommandError, "failed to install bridge", err)
	}

	stats := &uploadStats{}
	input := hostfs.NewInput()
	trigOpts := []trigger.Option{
		trigger.WithLogger(logger),
		trigger.WithSource(input),
		trigger.WithMaxBytes(cfg.MaxBytes),
		trigger.WithContext(ctx),
		trigger.WithObserver(stats.observe),
		// Uploads still in flight when the engine stops find the receiver gone.
		trigger.WithFatalHandler(func(err error) {
			logger.Error("receiver closed, payload lost", "error", err)
		}),
	}
	if opts.IDGenerator != nil {
		trigOpts = append(trigOpts, trigger.WithIDGenerator(opts.IDGenerator))
	}
	trig := trigger.New(tx, dec, trigOpts...)

	out := opts.formatter(cmd)
	for _, f := range files {
		out.VerboseLog("uploading %s", f)
		input.Upload(trig, f)
	}
	// Startup uploads are in the channel before the first tick.
	trig.Wait()

	var watcher *hostfs.Watcher
	if cfg.WatchDir != "" {
		watcher, err = hostfs.NewWatcher(cfg.WatchDir, cfg.Pattern, input, trig, hostfs.WithWatchLogger(logger))
		if err != nil {
			app.Shutdown()
			return WrapExitError(ExitCommandError, "failed to watch directory", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		err := app.Run(runCtx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(runCtx)
		})
	}

	runErr := g.Wait()
	trig.Wait()

	if runErr != nil {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}

	summary := RunSummary{
		Ticks:     app.CurrentTick(),
		Uploads:   stats.uploads.Load(),
		Sent:      stats.sent.Load(),
		Rejected:  stats.rejected.Load(),
		Delivered: delivered,
		Pending:   rx.Len(),
		Journal:   cfg.Journal,
	}
	logger.Info("run finished", "ticks", summary.Ticks, "delivered", summary.Delivered)
	return out.Success(summary)
}
