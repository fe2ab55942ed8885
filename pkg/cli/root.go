package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chessinsight/chessinsight/pkg/config"
	"github.com/chessinsight/chessinsight/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configFile string
	logLevel   string
	logFormat  string
	noDotEnv   bool
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "chessinsight",
	Short: "chessinsight evaluates chess positions with a UCI engine",
	Long: `chessinsight runs a UCI chess engine such as Stockfish behind an HTTP API
and evaluates positions given in Forsyth-Edwards Notation.

Settings come from flags, CHESSINSIGHT_* environment variables, a .env file
and chessinsight.yaml, in that order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "settings file (default: chessinsight.yaml in the working directory)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: text or json")
	pf.BoolVar(&noDotEnv, "no-dotenv", false, "do not read .env")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// loadSettings layers flags over config.Load and validates the result.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(config.LoadOptions{File: configFile, NoDotEnv: noDotEnv})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		s.SetLogLevel(logLevel)
	}
	if flags.Changed("log-format") {
		s.SetLogFormat(logFormat)
	}
	if flags.Changed("engine") {
		s.SetEnginePath(enginePath)
	}
	if flags.Changed("port") {
		s.SetPort(port)
	}
	if flags.Changed("host") {
		s.SetHost(host)
	}
	if flags.Changed("cors-origins") {
		s.SetCORSOrigins(config.SplitList(corsOrigins))
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// newLogger builds the process logger. The returned closer releases the
// mirror log file, if one is configured.
func newLogger(s *config.Settings, out io.Writer) (*slog.Logger, func() error, error) {
	cfg := s.LoggingConfig()
	cfg.Output = out

	closer := func() error { return nil }
	if s.Logging.File != "" {
		f, err := os.OpenFile(s.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cfg.Mirror = f
		closer = f.Close
	}
	return logging.New(cfg).With("app", s.AppName, "env", s.Environment), closer, nil
}
