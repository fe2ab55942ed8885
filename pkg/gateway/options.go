package gateway

import (
	"log/slog"
	"time"
)

// Default timeouts.
const (
	DefaultStartupTimeout  = 10 * time.Second
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultStopGrace       = 2 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithArgs sets extra command line arguments for the engine executable.
func WithArgs(args ...string) Option {
	return func(e *Engine) {
		e.args = append([]string(nil), args...)
	}
}

// WithEnv adds KEY=VALUE entries to the engine environment, on top of the
// current process environment.
func WithEnv(env ...string) Option {
	return func(e *Engine) {
		e.env = append(e.env, env...)
	}
}

// WithStartupTimeout bounds the spawn plus handshake.
func WithStartupTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.startupTimeout = d
		}
	}
}

// WithAnalysisTimeout bounds each Analyse call.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.analysisTimeout = d
		}
	}
}

// WithStopGrace sets how long Stop waits at each escalation step, and how
// long an interrupted search may take to report its best move.
func WithStopGrace(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stopGrace = d
		}
	}
}

// WithOption sends "setoption name <name> value <value>" during the
// handshake. Options are sent in the order given.
func WithOption(name, value string) Option {
	return func(e *Engine) {
		e.options = append(e.options, engineOption{name: name, value: value})
	}
}

type engineOption struct {
	name  string
	value string
}
