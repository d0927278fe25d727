package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/engine"
	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/harness"
	"github.com/roach88/msgpulse/internal/message"
	"github.com/roach88/msgpulse/internal/plugin"
	"github.com/roach88/msgpulse/internal/sim"
	"github.com/roach88/msgpulse/internal/store"
	"github.com/roach88/msgpulse/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Catalog  string
	Config   string
	Players  string
	Locales  string
	Database string

	// Realtime runs broadcast and image timers on the wall clock and keeps
	// running after stdin closes until interrupted.
	Realtime bool

	// IDs overrides the firing ID generator (for testing).
	IDs engine.FiringIDGenerator
}

// RunSummary is printed when the run ends.
type RunSummary struct {
	Steps    int `json:"steps"`
	Failed   int `json:"failed"`
	Chat     int `json:"chat"`
	Problems int `json:"problems"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a simulated server from JSON-lines steps",
		Long: `Load the configuration into a simulated game server and feed it steps.

Each stdin line is one JSON step: an event to fire, a player connecting
or leaving, a chat command, time passing or the round counter moving.
Every chat line a player receives is written to stdout as it is sent.

Without --realtime, timers move only on {"advance": "30s"} steps and the
run ends with stdin. With --realtime, timers follow the wall clock, the
run continues after stdin closes until interrupted, and SIGHUP reloads
the configuration.

Examples:
  msgpulse run --catalog ./catalog --config ./config --players players.yaml < steps.jsonl
  echo '{"event":"EventPlayerDeath","roles":{"userid":"1"}}' | \
    msgpulse run --catalog ./catalog --config ./config --players players.yaml --db journal.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "event catalog (.cue file or directory)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "feature config directory (default $MSGPULSE_CONFIG_DIR)")
	cmd.Flags().StringVar(&opts.Players, "players", "", "players connected at start (YAML or JSON list)")
	cmd.Flags().StringVar(&opts.Locales, "locales", "", "translations directory (default $MSGPULSE_LOCALES_DIR)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "delivery journal (default $MSGPULSE_JOURNAL)")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "run timers on the wall clock")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func (o *RunOptions) applyDefaults() {
	if o.Config == "" {
		o.Config = o.Settings.ConfigDir
	}
	if o.Locales == "" {
		o.Locales = o.Settings.LocalesDir
	}
	if o.Database == "" {
		o.Database = o.Settings.Journal
	}
}

func runServer(opts *RunOptions, cmd *cobra.Command) error {
	opts.applyDefaults()
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, opts.Settings)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("trace flush failed", "error", err)
		}
	}()

	cat, err := LoadCatalog(opts.Catalog)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}

	loader, err := config.NewLoader()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	loader.WriteExamples = opts.Settings.WriteExamples
	cfg, err := loader.Load(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}

	bundle, err := loadBundle(opts.Locales, opts.Settings.DefaultLocale)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
	}

	srv := sim.NewServer()
	if opts.Players != "" {
		data, err := os.ReadFile(opts.Players)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
		}
		specs, err := sim.ParsePlayers(data)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
		}
		for _, spec := range specs {
			if err := srv.Connect(cat.Registry, spec); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
			}
		}
	}

	engineOpts := []engine.Option{}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDs))
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing journal", "error", err)
			}
		}()
		last, err := st.MaxSeq(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error())
		}
		engineOpts = append(engineOpts, engine.WithJournal(st), engine.WithClock(engine.NewClockAt(last)))
		logger.Info("journal open", "path", opts.Database, "seq", last)
	}

	h := harness.HostOf(srv, cat.Registry)
	if opts.Realtime {
		h.Timers = sim.WallTimers{}
	}
	p := plugin.New(h, bundle,
		plugin.WithLogger(logger),
		plugin.WithEngineOptions(engineOpts...),
	)
	p.UsePlaceholderAPI(message.NewPlaceholders())

	out := &chatWriter{w: cmd.OutOrStdout(), json: formatter.JSON()}
	srv.Chat.OnSend = out.write

	// mu serializes steps and config reloads.
	var mu sync.Mutex
	summary := RunSummary{}

	mu.Lock()
	summary.Problems = len(p.Load(ctx, cfg, false))
	mu.Unlock()
	defer p.Unload()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		for {
			select {
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					reload(ctx, &mu, p, loader, opts.Config, logger)
					continue
				}
				logger.Info("received signal, shutting down", "signal", sig)
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- feedSteps(ctx, cmd.InOrStdin(), srv, cat.Registry, &mu, &summary, logger)
	}()

	select {
	case err := <-done:
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error())
		}
		if opts.Realtime {
			logger.Info("input closed; running until interrupted")
			<-ctx.Done()
		}
	case <-ctx.Done():
	}

	mu.Lock()
	summary.Chat = out.count()
	mu.Unlock()
	logger.Info("run finished",
		"steps", summary.Steps,
		"failed", summary.Failed,
		"chat", summary.Chat,
		"problems", summary.Problems,
	)
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d step(s) failed", summary.Failed, summary.Steps))
	}
	return nil
}

// feedSteps applies stdin steps in order. A step that fails is logged and
// counted; malformed input stops the run.
func feedSteps(ctx context.Context, r io.Reader, srv *sim.Server, reg *sim.Registry, mu *sync.Mutex, summary *RunSummary, logger *slog.Logger) error {
	dec := sim.NewStepDecoder(r)
	for {
		step, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		mu.Lock()
		summary.Steps++
		if err := srv.Apply(ctx, reg, step); err != nil {
			summary.Failed++
			logger.Error("step failed", "step", summary.Steps, "error", err)
		}
		mu.Unlock()

		if ctx.Err() != nil {
			return nil
		}
	}
}

// reload re-reads the config directory and hot-reloads the plugin. A
// config that fails to load leaves the running one in place.
func reload(ctx context.Context, mu *sync.Mutex, p *plugin.Plugin, loader *config.Loader, dir string, logger *slog.Logger) {
	cfg, err := loader.Load(dir)
	if err != nil {
		logger.Error("reload failed", "error", err)
		return
	}
	mu.Lock()
	defer mu.Unlock()
	p.Load(ctx, cfg, true)
}

// chatWriter prints chat lines as they are sent.
type chatWriter struct {
	mu    sync.Mutex
	w     io.Writer
	json  bool
	lines int
}

func (c *chatWriter) write(p event.Player, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines++
	if c.json {
		line, _ := json.Marshal(sim.ChatLine{PlayerID: p.ID(), Text: text})
		fmt.Fprintf(c.w, "%s\n", line)
		return
	}
	fmt.Fprintf(c.w, "[%s] %s\n", p.ID(), text)
}

func (c *chatWriter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}
