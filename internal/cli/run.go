package cli

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
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/touchy/internal/binding"
	"github.com/roach88/touchy/internal/config"
	"github.com/roach88/touchy/internal/engine"
	"github.com/roach88/touchy/internal/midi"
	"github.com/roach88/touchy/internal/store"
)

// InputNone disables the input reader; the engine then runs until
// interrupted, driven only by config reloads.
const InputNone = "none"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config      string
	Port        string
	Database    string
	MetricsAddr string
	Input       string

	// Session allows overriding the session token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Session engine.SessionGenerator

	// Opener allows overriding the output port opener (for testing).
	// If nil, defaults to midi.DefaultOpener.
	Opener midi.Opener
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the engine",
		Long: `Start the touchy engine.

Input events are read as JSON lines from stdin (or --input). The config
file, if given, sets switches, selectors, rules and the output port, and is
watched for changes while the engine runs. Rules are loaded from and saved
back to the SQLite database.

The run ends when the input stream ends or on interrupt.

Example:
  capture-pointer | touchy run --config touchy.yaml
  touchy run --db touchy.db --port "IAC Driver Bus 1" --input events.jsonl
  touchy run --port - --input none --metrics-addr :9464`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Port, "port", "", `output port name, overrides the config ("-" prints to stdout)`)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite rule database, overrides the config")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.Input, "input", "-", `input file ("-" for stdin, "none" to disable)`)

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	input, closeInput, err := openInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer closeInput()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var persister store.Persister
	if cfg.Database != "" {
		slog.Info("opening database", "path", cfg.Database)
		persister = store.NewSQLite(cfg.Database)
	}
	st := store.New(persister)
	st.Load(ctx)
	st.Bind(binding.DefaultRows(binding.SystemClock{})...)
	defer func() {
		if !st.Save(context.Background()) {
			slog.Error("rules were not saved", "path", cfg.Database)
		}
	}()

	session := opts.Session
	if session == nil {
		session = engine.UUIDv7Generator{}
	}
	engOpts := []engine.Option{
		engine.WithSession(session),
		engine.WithSwitches(cfg.Switches),
		engine.WithDecay(cfg.Decay.Tick, cfg.Decay.Idle),
		engine.WithDomains(cfg.Domains),
		engine.WithSink(midi.SlogSink{Logger: slog.New(handler).With("component", "midi")}),
	}
	if opts.Opener != nil {
		engOpts = append(engOpts, engine.WithOpener(opts.Opener))
	}
	eng := engine.New(st, engOpts...)
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			slog.Error("error closing output port", "error", closeErr)
		}
	}()
	slog.SetDefault(slog.New(handler).With("session", eng.Session()))

	if err := applyConfig(eng, cfg); err != nil {
		return err
	}
	if eng.PortName() == "" {
		slog.Warn("no output port open; messages are dropped until one is opened")
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "touchy running (session %s). Press Ctrl-C to stop.\n", eng.Session())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if err := eng.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error { return eng.Ticks(gctx) })

	if opts.Config != "" {
		w, err := newConfigWatcher(gctx, opts, cfg, eng)
		if err != nil {
			cancel()
			_ = g.Wait()
			return WrapExitError(ExitCommandError, "failed to watch config", err)
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	if opts.MetricsAddr != "" {
		serveMetrics(g, gctx, opts.MetricsAddr)
	}

	// The reader blocks in Read and cannot be interrupted, so it stays
	// outside the group. End of input stops the engine once the events
	// already queued are processed.
	if input != nil {
		go func() {
			n, err := ReadInput(input, eng)
			if err != nil {
				slog.Error("input reader failed", "error", err)
			}
			slog.Info("input ended", "events", n)
			eng.Stop()
		}()
	}

	if err := g.Wait(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return WrapExitError(ExitFailure, "engine error", err)
	}
	slog.Info("engine stopped gracefully")
	return nil
}

// loadRunConfig reads the config file, if any, and applies the flag
// overrides.
func loadRunConfig(opts *RunOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		if errs := config.Validate(loaded); len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, "invalid config", errors.Join(validationErrs(errs)...))
		}
		cfg = loaded
	}
	applyOverrides(cfg, opts)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, opts *RunOptions) {
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
}

func validationErrs(errs []config.ValidationError) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// applyConfig runs the config's events synchronously, before the loop
// starts. A port that fails to open is fatal; other failures are logged.
func applyConfig(eng *engine.Engine, cfg *config.Config) error {
	for _, ev := range cfg.Events() {
		err := eng.Process(ev)
		if err == nil {
			continue
		}
		if ev.Type == engine.EventTypeOpenPort {
			return WrapExitError(ExitCommandError, "failed to open output port", err)
		}
		slog.Warn("config setting not applied", "event", ev.Type.String(), "error", err)
	}
	return nil
}

// newConfigWatcher turns config file changes into engine events. A port
// change waits for the engine to open the port; failing to open it stops
// the run, as it does at startup.
func newConfigWatcher(ctx context.Context, opts *RunOptions, initial *config.Config, eng *engine.Engine) (*config.Watcher, error) {
	current := initial
	return config.NewWatcher(opts.Config, config.DefaultDebounce, func(next *config.Config) error {
		applyOverrides(next, opts)
		if config.Restart(current, next) {
			slog.Warn("config change to database, decay or domains takes effect after a restart", "path", opts.Config)
		}
		events := config.Diff(current, next)
		current = next
		for _, ev := range events {
			if ev.Type != engine.EventTypeOpenPort {
				eng.Enqueue(ev)
				continue
			}
			if err := eng.Do(ctx, ev); err != nil {
				if ctx.Err() != nil || errors.Is(err, engine.ErrStopped) {
					return nil
				}
				return WrapExitError(ExitCommandError, "failed to open output port", err)
			}
		}
		slog.Info("config reloaded", "path", opts.Config, "events", len(events))
		return nil
	})
}

// serveMetrics runs the Prometheus endpoint in g until ctx is done.
func serveMetrics(g *errgroup.Group, ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// openInput resolves the --input flag to a reader. The returned reader is
// nil for InputNone.
func openInput(name string, stdin io.Reader) (io.Reader, func(), error) {
	switch name {
	case InputNone:
		return nil, func() {}, nil
	case "", "-":
		return stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open input", err)
	}
	return f, func() { f.Close() }, nil
}
