// Package logging builds the slog loggers used across chessinsight.
//
// Every component takes a *slog.Logger through an option. When none is
// given it falls back to Nop, so library code never writes to stderr on its
// own.
//
//	log := logging.New(logging.Config{
//	    Level:  logging.ParseLevel(settings.Logging.Level),
//	    Format: logging.ParseFormat(settings.Logging.Format),
//	})
//	log.Info("engine ready", "name", eng.Name())
//
// Text output is meant for a terminal, JSON output for log shippers. A
// second sink, typically a file, can be attached with Config.Mirror; records
// are then written to both.
package logging
