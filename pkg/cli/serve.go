package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chessinsight/chessinsight/pkg/api"
	"github.com/chessinsight/chessinsight/pkg/config"
	"github.com/chessinsight/chessinsight/pkg/gateway"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	port        int
	host        string
	enginePath  string
	corsOrigins string
)

// engineWatchInterval is how often serve checks that the engine process is
// still there.
const engineWatchInterval = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engine and serve the HTTP API",
	Long: `Start the UCI engine, then serve the HTTP API until SIGINT or SIGTERM.

The engine is started before the listener opens; if it cannot be started the
command fails. On shutdown the HTTP server drains first, then the engine is
stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(settings, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", settings.Server.Address())
		if err != nil {
			return fmt.Errorf("listen on %s: %w", settings.Server.Address(), err)
		}
		return runServe(ctx, settings, ln, log)
	},
}

// engineOptions converts settings into gateway options.
func engineOptions(s *config.Settings, log *slog.Logger) []gateway.Option {
	opts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithArgs(s.Engine.Args...),
		gateway.WithEnv(engineEnv(s.Engine.Env)...),
		gateway.WithStartupTimeout(s.Engine.StartupTimeout),
		gateway.WithAnalysisTimeout(s.Engine.AnalysisTimeout),
		gateway.WithStopGrace(s.Engine.StopGrace),
	}
	for _, name := range sortedKeys(s.Engine.Options) {
		opts = append(opts, gateway.WithOption(name, s.Engine.Options[name]))
	}
	return opts
}

// engineEnv turns the env setting into sorted KEY=VALUE entries.
func engineEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, key := range sortedKeys(env) {
		out = append(out, key+"="+env[key])
	}
	return out
}

// runServe starts the engine, serves on ln until ctx is done and then shuts
// both down. It owns ln.
func runServe(ctx context.Context, settings *config.Settings, ln net.Listener, log *slog.Logger) error {
	eng, err := gateway.Start(ctx, settings.Engine.Path, engineOptions(settings, log)...)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			log.Error("engine stop failed", "error", err)
		}
	}()

	srv, err := api.New(eng, settings, api.WithLogger(log))
	if err != nil {
		_ = ln.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	g.Go(func() error {
		watchEngine(gctx, eng, log)
		return nil
	})

	log.Info("chessinsight started", "addr", ln.Addr().String(), "engine", eng.Name())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("chessinsight stopped")
	return nil
}

// watchEngine logs once if the engine process disappears. The engine is not
// restarted; the ready route reports it and requests fail with 503.
func watchEngine(ctx context.Context, eng *gateway.Engine, log *slog.Logger) {
	ticker := time.NewTicker(engineWatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !eng.Running() {
				log.Error("engine process is gone; analysis requests will fail until restart",
					"state", eng.State().String(), "pid", eng.PID())
				return
			}
		}
	}
}

func init() {
	f := serveCmd.Flags()
	f.IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	f.StringVar(&host, "host", "0.0.0.0", "HTTP listen address")
	f.StringVar(&enginePath, "engine", "", "UCI engine executable (default: /usr/bin/stockfish)")
	f.StringVar(&corsOrigins, "cors-origins", "", "comma separated list of allowed CORS origins")
	rootCmd.AddCommand(serveCmd)
}
